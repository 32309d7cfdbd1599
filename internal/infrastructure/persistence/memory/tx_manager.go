package memory

import (
	"context"

	"github.com/xiebiao/bookshelf/internal/infrastructure/persistence/txctx"
)

// TxManager 内存存储没有事务，只开启一个不带句柄的事务范围
// 失败后的清理由调用方的补偿步骤完成
type TxManager struct{}

// NewTxManager 创建事务管理器
func NewTxManager() *TxManager {
	return &TxManager{}
}

// Transaction fn成功后执行txctx.OnCommit注册的回调
func (m *TxManager) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	txCtx := txctx.With(ctx, nil)
	if err := fn(txCtx); err != nil {
		return err
	}

	txctx.Committed(txCtx)
	return nil
}
