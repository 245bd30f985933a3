package main

import (
	"flag"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dujiao-next/tableside/internal/config"
	"github.com/dujiao-next/tableside/internal/constants"
	"github.com/dujiao-next/tableside/internal/logger"
	"github.com/dujiao-next/tableside/internal/models"
	"github.com/dujiao-next/tableside/internal/service"
)

func main() {
	var (
		tableCount int
		staffRole  string
		staffID    string
		staffTTL   time.Duration
	)
	flag.IntVar(&tableCount, "tables", 12, "按编号 1..N 补齐餐桌")
	flag.StringVar(&staffRole, "staff-role", "", "签发员工令牌的角色: ADMIN / PRIMARY / SECONDARY / USER，留空不签发")
	flag.StringVar(&staffID, "staff-id", "seed-staff", "员工令牌 subject")
	flag.DurationVar(&staffTTL, "staff-ttl", 24*time.Hour, "员工令牌有效期")
	flag.Parse()

	// 连接数据库
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()
	db, err := models.OpenDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}, false)
	if err != nil {
		stdLog.Fatalf("Failed to connect database: %v", err)
	}
	defer func() { _ = models.CloseDB(db) }()

	// 自动迁移
	if err := models.AutoMigrate(db); err != nil {
		stdLog.Fatalf("Failed to migrate database: %v", err)
	}

	// 添加餐桌
	seeds := make([]models.TableSeed, 0, tableCount)
	for i := 1; i <= tableCount; i++ {
		staticID := strconv.Itoa(i)
		seeds = append(seeds, models.TableSeed{StaticID: staticID, Name: "Table " + staticID})
	}
	created, err := models.InitDefaultTables(db, seeds)
	if err != nil {
		stdLog.Fatalf("Failed to seed tables: %v", err)
	}
	stdLog.Printf("Seeded tables: created=%d total=%d", created, len(seeds))

	// 签发员工令牌
	if role := strings.TrimSpace(staffRole); role != "" {
		staff := service.NewStaffAuthService(cfg.JWT.SecretKey)
		token, expiresAt, err := staff.GenerateJWT(staffID, "", role, staffTTL)
		if err != nil {
			stdLog.Fatalf("Failed to sign staff token: %v", err)
		}
		normalized := service.NormalizeStaffRole(role)
		if normalized != strings.ToUpper(role) {
			stdLog.Printf("Unknown role %q, token issued as %s", role, constants.RoleUser)
		}
		fmt.Printf("staff token (%s, expires %s):\n%s\n", normalized, expiresAt.Format(time.RFC3339), token)
	}

	stdLog.Printf("Seed completed")
}
