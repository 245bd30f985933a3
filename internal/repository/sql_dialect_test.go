package repository

import (
	"testing"

	"github.com/dujiao-next/tableside/internal/models"
)

func TestBuildLikeConditionByDialect(t *testing.T) {
	condition, argCount := buildLikeConditionByDialect("sqlite", []string{"static_id", " ", "name"})
	if argCount != 2 {
		t.Fatalf("arg count want 2 got %d", argCount)
	}
	if condition != `(static_id LIKE ? ESCAPE '\' OR name LIKE ? ESCAPE '\')` {
		t.Fatalf("unexpected sqlite condition: %s", condition)
	}

	condition, _ = buildLikeConditionByDialect("postgres", []string{"static_id", "name"})
	if condition != `(static_id ILIKE ? ESCAPE '\' OR name ILIKE ? ESCAPE '\')` {
		t.Fatalf("unexpected postgres condition: %s", condition)
	}

	if condition, argCount := buildLikeConditionByDialect("sqlite", []string{" "}); condition != "" || argCount != 0 {
		t.Fatalf("blank columns should yield no condition, got %q (%d)", condition, argCount)
	}
}

func TestDialectNameDefaultsToSQLite(t *testing.T) {
	if got := dialectName(nil); got != "sqlite" {
		t.Fatalf("nil db should fall back to sqlite, got %s", got)
	}
}

func TestLikeSearchTreatsWildcardsLiterally(t *testing.T) {
	db := openTestDB(t)
	for _, table := range []models.DiningTable{
		{StaticID: "50%", Name: "Half", IsActive: true},
		{StaticID: "500", Name: "Patio", IsActive: true},
		{StaticID: "5_1", Name: "Bar", IsActive: true},
	} {
		table := table
		if err := db.Create(&table).Error; err != nil {
			t.Fatalf("seed table failed: %v", err)
		}
	}

	var hits []models.DiningTable
	if err := db.Scopes(likeSearch("0%", "static_id")).Find(&hits).Error; err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(hits) != 1 || hits[0].StaticID != "50%" {
		t.Fatalf("percent should match literally, got %+v", hits)
	}

	hits = nil
	if err := db.Scopes(likeSearch("5_", "static_id")).Find(&hits).Error; err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(hits) != 1 || hits[0].StaticID != "5_1" {
		t.Fatalf("underscore should match literally, got %+v", hits)
	}

	hits = nil
	if err := db.Scopes(likeSearch("  ", "static_id")).Find(&hits).Error; err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(hits) != 3 {
		t.Fatalf("blank term should not filter, got %d", len(hits))
	}
}
