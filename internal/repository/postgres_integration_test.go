//go:build integration
// +build integration

package repository

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dujiao-next/tableside/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// setupPostgresIntegrationDB 初始化 PostgreSQL 集成测试数据库。
func setupPostgresIntegrationDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := strings.TrimSpace(os.Getenv("TEST_POSTGRES_DSN"))
	if dsn == "" {
		t.Skip("skip postgres integration test: TEST_POSTGRES_DSN is empty")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open postgres failed: %v", err)
	}

	cleanupModels := []interface{}{
		&models.SharedCartItem{},
		&models.SharedCart{},
		&models.TableSessionLog{},
		&models.DiningTable{},
	}
	_ = db.Migrator().DropTable(cleanupModels...)

	if err := models.AutoMigrate(db); err != nil {
		t.Fatalf("migrate postgres models failed: %v", err)
	}

	t.Cleanup(func() {
		_ = db.Migrator().DropTable(cleanupModels...)
		sqlDB, err := db.DB()
		if err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func TestPostgresDiningTableSearchIsCaseInsensitive(t *testing.T) {
	db := setupPostgresIntegrationDB(t)
	if _, err := models.InitDefaultTables(db, []models.TableSeed{
		{StaticID: "4", Name: "Patio Four"},
		{StaticID: "7", Name: "Bar Seven"},
	}); err != nil {
		t.Fatalf("seed tables failed: %v", err)
	}

	repo := NewDiningTableRepository(db)
	tables, total, err := repo.List(DiningTableListFilter{Page: 1, PageSize: 10, Search: "patio"})
	if err != nil {
		t.Fatalf("list tables failed: %v", err)
	}
	if total != 1 || len(tables) != 1 || tables[0].StaticID != "4" {
		t.Fatalf("unexpected search result: total=%d tables=%+v", total, tables)
	}
}

func TestPostgresSharedCartUpsertAndTransaction(t *testing.T) {
	db := setupPostgresIntegrationDB(t)
	repo := NewSharedCartRepository(db)

	if err := repo.CreateIfAbsent(&models.SharedCart{ID: "11111111-1111-1111-1111-111111111111", TableID: "4"}); err != nil {
		t.Fatalf("create cart failed: %v", err)
	}
	if err := repo.CreateIfAbsent(&models.SharedCart{ID: "22222222-2222-2222-2222-222222222222", TableID: "4"}); err != nil {
		t.Fatalf("duplicate create should be ignored: %v", err)
	}

	err := repo.Transaction(func(tx SharedCartRepository) error {
		cart, err := tx.GetByTable("4")
		if err != nil {
			return err
		}
		for _, qty := range []int{2, 3} {
			if err := tx.UpsertItem(&models.SharedCartItem{
				CartID:        cart.ID,
				ID:            "latte",
				ProductID:     "latte",
				Quantity:      qty,
				UnitPrice:     models.NewMoneyFromInt(1250),
				BaseUnitPrice: models.NewMoneyFromInt(1250),
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("transaction failed: %v", err)
	}

	cart, err := repo.GetByTable("4")
	if err != nil || cart == nil {
		t.Fatalf("get cart failed: %+v err=%v", cart, err)
	}
	if cart.ID != "11111111-1111-1111-1111-111111111111" {
		t.Fatalf("first cart should win, got %s", cart.ID)
	}
	if len(cart.Items) != 1 || cart.Items[0].Quantity != 5 {
		t.Fatalf("expected merged quantity 5, got %+v", cart.Items)
	}
}

func TestPostgresConcurrentDistinctItemsKeepTotals(t *testing.T) {
	db := setupPostgresIntegrationDB(t)
	repo := NewSharedCartRepository(db)
	if err := repo.CreateIfAbsent(&models.SharedCart{ID: "33333333-3333-3333-3333-333333333333", TableID: "9"}); err != nil {
		t.Fatalf("create cart failed: %v", err)
	}

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			errs <- repo.Transaction(func(tx SharedCartRepository) error {
				cart, err := tx.GetByTableForUpdate("9")
				if err != nil {
					return err
				}
				if cart == nil {
					return fmt.Errorf("cart missing")
				}
				if err := tx.UpsertItem(&models.SharedCartItem{
					CartID:        cart.ID,
					ID:            fmt.Sprintf("item-%d", n),
					ProductID:     fmt.Sprintf("item-%d", n),
					Quantity:      1,
					UnitPrice:     models.NewMoneyFromInt(2),
					BaseUnitPrice: models.NewMoneyFromInt(2),
				}); err != nil {
					return err
				}
				// 放大读取明细与写合计之间的窗口
				time.Sleep(20 * time.Millisecond)
				items, err := tx.ListItems(cart.ID)
				if err != nil {
					return err
				}
				total := models.NewMoneyFromInt(0)
				count := 0
				for _, item := range items {
					count += item.Quantity
					total = total.Add(item.UnitPrice.Mul(item.Quantity))
				}
				return tx.UpdateTotals(cart.ID, count, total, time.Now())
			})
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("transaction failed: %v", err)
		}
	}

	cart, err := repo.GetByTable("9")
	if err != nil || cart == nil {
		t.Fatalf("get cart failed: %+v err=%v", cart, err)
	}
	if len(cart.Items) != workers || cart.TotalItems != workers || cart.TotalAmount.String() != "16.00" {
		t.Fatalf("totals drifted: items=%d total_items=%d total_amount=%s", len(cart.Items), cart.TotalItems, cart.TotalAmount.String())
	}
}
