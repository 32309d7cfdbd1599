package txctx

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWithFrom(t *testing.T) {
	ctx := context.Background()
	assert.False(t, Active(ctx))

	type fakeTx struct{ name string }
	txCtx := With(ctx, &fakeTx{name: "t1"})
	assert.True(t, Active(txCtx))

	got, ok := From(txCtx)
	assert.True(t, ok)
	assert.Equal(t, "t1", got.(*fakeTx).name)

	// 脱离取消信号后仍能取到事务句柄（补偿步骤依赖这一点）
	detached := context.WithoutCancel(txCtx)
	assert.True(t, Active(detached))
}

func TestWith_NilTxIsNotActive(t *testing.T) {
	ctx := With(context.Background(), nil)
	assert.False(t, Active(ctx))

	_, ok := From(ctx)
	assert.False(t, ok)
}

func TestOnCommit_OutsideTransaction(t *testing.T) {
	called := false
	assert.False(t, OnCommit(context.Background(), func() { called = true }))

	Committed(context.Background())
	assert.False(t, called)
}

func TestOnCommit_RunsAfterCommitInOrder(t *testing.T) {
	ctx := With(context.Background(), "tx")

	var calls []string
	assert.True(t, OnCommit(ctx, func() { calls = append(calls, "a") }))
	assert.True(t, OnCommit(ctx, func() { calls = append(calls, "b") }))
	assert.Empty(t, calls)

	Committed(ctx)
	assert.Equal(t, []string{"a", "b"}, calls)

	// 回调只执行一次
	Committed(ctx)
	assert.Equal(t, []string{"a", "b"}, calls)
}

func TestOnCommit_NestedWaitsForOutermost(t *testing.T) {
	outer := With(context.Background(), "tx")
	inner := With(outer, "savepoint")

	called := 0
	OnCommit(inner, func() { called++ })

	Committed(inner)
	assert.Equal(t, 0, called)

	Committed(outer)
	assert.Equal(t, 1, called)
}
