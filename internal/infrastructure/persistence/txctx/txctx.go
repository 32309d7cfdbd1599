// Package txctx 在context中传递事务句柄
// MySQL实现存放*gorm.DB，Postgres实现存放*sqlx.Tx，内存实现只开启事务范围、不带句柄
package txctx

import (
	"context"
	"sync"
)

type txKey struct{}

// scope 一层事务范围，嵌套事务的提交回调统一挂到最外层
type scope struct {
	tx     any
	parent *scope

	mu    sync.Mutex
	hooks []func()
}

func (s *scope) root() *scope {
	for s.parent != nil {
		s = s.parent
	}
	return s
}

func scopeOf(ctx context.Context) *scope {
	s, _ := ctx.Value(txKey{}).(*scope)
	return s
}

// With 返回携带事务句柄的context，tx为nil时只开启事务范围
func With(ctx context.Context, tx any) context.Context {
	return context.WithValue(ctx, txKey{}, &scope{tx: tx, parent: scopeOf(ctx)})
}

// From 取出事务句柄
func From(ctx context.Context) (any, bool) {
	s := scopeOf(ctx)
	if s == nil || s.tx == nil {
		return nil, false
	}
	return s.tx, true
}

// Active 当前context是否处于数据库事务中
func Active(ctx context.Context) bool {
	_, ok := From(ctx)
	return ok
}

// OnCommit 注册事务提交后执行的回调
// 不在事务范围内时不注册，返回false
func OnCommit(ctx context.Context, fn func()) bool {
	s := scopeOf(ctx)
	if s == nil {
		return false
	}

	root := s.root()
	root.mu.Lock()
	root.hooks = append(root.hooks, fn)
	root.mu.Unlock()
	return true
}

// Committed 由TxManager在提交成功后调用，按注册顺序执行回调
// 嵌套事务的内层调用不执行，等最外层提交
func Committed(ctx context.Context) {
	s := scopeOf(ctx)
	if s == nil || s.parent != nil {
		return
	}

	s.mu.Lock()
	hooks := s.hooks
	s.hooks = nil
	s.mu.Unlock()

	for _, fn := range hooks {
		fn()
	}
}
