package repository

import (
	"fmt"
	"strings"

	"gorm.io/gorm"
)

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likeSearch 返回多列模糊搜索 scope，关键字中的 % 与 _ 按字面匹配；postgres 下不区分大小写。
func likeSearch(term string, columns ...string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		term = strings.TrimSpace(term)
		if term == "" {
			return db
		}
		condition, count := buildLikeConditionByDialect(dialectName(db), columns)
		if count == 0 {
			return db
		}
		pattern := "%" + likeEscaper.Replace(term) + "%"
		args := make([]interface{}, count)
		for i := range args {
			args[i] = pattern
		}
		return db.Where(condition, args...)
	}
}

func dialectName(db *gorm.DB) string {
	if db == nil || db.Dialector == nil {
		return "sqlite"
	}
	if name := strings.ToLower(strings.TrimSpace(db.Dialector.Name())); name != "" {
		return name
	}
	return "sqlite"
}

// buildLikeConditionByDialect 生成 "(a LIKE ? ESCAPE '\' OR b LIKE ? ESCAPE '\')"，返回占位符数量。
func buildLikeConditionByDialect(dialect string, columns []string) (string, int) {
	operator := "LIKE"
	if dialect == "postgres" || dialect == "postgresql" {
		operator = "ILIKE"
	}
	parts := make([]string, 0, len(columns))
	for _, column := range columns {
		if column = strings.TrimSpace(column); column != "" {
			parts = append(parts, fmt.Sprintf(`%s %s ? ESCAPE '\'`, column, operator))
		}
	}
	if len(parts) == 0 {
		return "", 0
	}
	return "(" + strings.Join(parts, " OR ") + ")", len(parts)
}
