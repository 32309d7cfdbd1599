package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/xiebiao/bookshelf/internal/infrastructure/persistence/txctx"
)

// TxManager 事务管理器
// 已处于事务中时直接复用外层事务
type TxManager struct {
	db *sqlx.DB
}

// NewTxManager 创建事务管理器
func NewTxManager(db *sqlx.DB) *TxManager {
	return &TxManager{db: db}
}

// Transaction fn返回error或panic时回滚，否则提交并执行提交后回调
func (m *TxManager) Transaction(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if txctx.Active(ctx) {
		return fn(ctx)
	}

	tx, err := m.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("开启事务失败: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	txCtx := txctx.With(ctx, tx)
	if err = fn(txCtx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("提交事务失败: %w", err)
	}

	txctx.Committed(txCtx)
	return nil
}
