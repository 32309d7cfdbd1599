package mysql

import (
	"context"

	"gorm.io/gorm"

	"github.com/xiebiao/bookshelf/internal/infrastructure/persistence/txctx"
)

// TxManager 事务管理器
// fn内通过getDB取到的都是同一个事务DB；fn返回error时ROLLBACK，否则COMMIT
// 嵌套调用时GORM自动使用Savepoint
type TxManager struct {
	db *gorm.DB
}

// NewTxManager 创建事务管理器
func NewTxManager(db *gorm.DB) *TxManager {
	return &TxManager{db: db}
}

// Transaction 执行事务，提交成功后执行txctx.OnCommit注册的回调
func (m *TxManager) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	var txCtx context.Context
	err := getDB(ctx, m.db).Transaction(func(tx *gorm.DB) error {
		txCtx = txctx.With(ctx, tx)
		return fn(txCtx)
	})
	if err != nil {
		return err
	}

	txctx.Committed(txCtx)
	return nil
}
