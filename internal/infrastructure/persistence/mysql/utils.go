package mysql

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/xiebiao/bookshelf/internal/infrastructure/persistence/txctx"
)

// getDB 优先使用context中的事务DB
func getDB(ctx context.Context, db *gorm.DB) *gorm.DB {
	if v, ok := txctx.From(ctx); ok {
		if tx, ok := v.(*gorm.DB); ok {
			return tx.WithContext(ctx)
		}
	}
	return db.WithContext(ctx)
}

// upsert INSERT ... ON DUPLICATE KEY UPDATE
// deleted_at一并覆盖为NULL，软删除过的ID可以被重新写入
func upsert(db *gorm.DB) *gorm.DB {
	return db.Clauses(clause.OnConflict{UpdateAll: true})
}

// forUpdate SELECT ... FOR UPDATE
func forUpdate(db *gorm.DB) *gorm.DB {
	return db.Clauses(clause.Locking{Strength: "UPDATE"})
}

// isDuplicateError 判断是否为MySQL唯一索引冲突（错误码1062）
func isDuplicateError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return strings.Contains(err.Error(), "Duplicate entry")
}

// isTitleDuplicate 头衔唯一索引冲突
// MySQL 8.0的错误信息为 for key 'users.uk_users_title'，5.7为 for key 'uk_users_title'
func isTitleDuplicate(err error) bool {
	return isDuplicateError(err) && strings.Contains(err.Error(), uniqueTitleIndex)
}
