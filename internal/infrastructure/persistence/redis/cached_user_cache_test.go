package redis

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiebiao/bookshelf/internal/domain/user"
	"github.com/xiebiao/bookshelf/internal/infrastructure/persistence/memory"
	"github.com/xiebiao/bookshelf/internal/infrastructure/persistence/txctx"
)

// fakeRedis 内存版Redis，只实现缓存装饰器用到的GET/SET/DEL
type fakeRedis struct {
	redis.UniversalClient

	mu   sync.Mutex
	data map[string]string
	gets int
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: make(map[string]string)}
}

func (f *fakeRedis) Get(_ context.Context, key string) *redis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.gets++
	val, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(val, nil)
}

func (f *fakeRedis) Set(_ context.Context, key string, value interface{}, _ time.Duration) *redis.StatusCmd {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch v := value.(type) {
	case []byte:
		f.data[key] = string(v)
	case string:
		f.data[key] = v
	default:
		return redis.NewStatusResult("", errors.New("unsupported value"))
	}
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Del(_ context.Context, keys ...string) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()

	var n int64
	for _, key := range keys {
		if _, ok := f.data[key]; ok {
			delete(f.data, key)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func (f *fakeRedis) has(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.data[key]
	return ok
}

func (f *fakeRedis) getCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.gets
}

func TestCachedUserRepository_SecondReadIsHit(t *testing.T) {
	ctx := context.Background()
	inner := memory.NewUserRepository()
	cache := newFakeRedis()
	repo := NewCachedUserRepository(inner, cache, time.Minute, nil)

	u := &user.User{FullName: "Ada", Title: "reader", Age: 30}
	require.NoError(t, repo.Create(ctx, u))

	first, err := repo.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, cache.has(userKey(u.ID)))

	// 绕过装饰器修改底层数据，命中缓存时读到的仍是旧值
	changed := *first
	changed.Age = 99
	require.NoError(t, inner.Update(ctx, &changed))

	second, err := repo.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, u.ID, second.ID)
	assert.Equal(t, "Ada", second.FullName)
	assert.Equal(t, "reader", second.Title)
	assert.Equal(t, 30, second.Age)
	assert.True(t, first.CreatedAt.Equal(second.CreatedAt))
	assert.True(t, first.UpdatedAt.Equal(second.UpdatedAt))
}

func TestCachedUserRepository_UpdateInvalidates(t *testing.T) {
	ctx := context.Background()
	cache := newFakeRedis()
	repo := NewCachedUserRepository(memory.NewUserRepository(), cache, time.Minute, nil)

	u := &user.User{FullName: "Ada", Title: "reader", Age: 30}
	require.NoError(t, repo.Create(ctx, u))
	_, err := repo.FindByID(ctx, u.ID)
	require.NoError(t, err)

	u.Age = 31
	require.NoError(t, repo.Update(ctx, u))
	assert.False(t, cache.has(userKey(u.ID)))

	got, err := repo.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 31, got.Age)
}

func TestCachedUserRepository_DeleteThenFind(t *testing.T) {
	ctx := context.Background()
	cache := newFakeRedis()
	repo := NewCachedUserRepository(memory.NewUserRepository(), cache, time.Minute, nil)

	u := &user.User{FullName: "Ada", Title: "reader", Age: 30}
	require.NoError(t, repo.Create(ctx, u))
	_, err := repo.FindByID(ctx, u.ID)
	require.NoError(t, err)
	require.True(t, cache.has(userKey(u.ID)))

	require.NoError(t, repo.Delete(ctx, u.ID))
	assert.False(t, cache.has(userKey(u.ID)))

	_, err = repo.FindByID(ctx, u.ID)
	assert.ErrorIs(t, err, user.ErrUserNotFound)
	// 不存在的用户不回填
	assert.False(t, cache.has(userKey(u.ID)))
}

func TestCachedUserRepository_BypassedInTransaction(t *testing.T) {
	ctx := context.Background()
	cache := newFakeRedis()
	repo := NewCachedUserRepository(memory.NewUserRepository(), cache, time.Minute, nil)

	u := &user.User{FullName: "Ada", Title: "reader", Age: 30}
	require.NoError(t, repo.Create(ctx, u))

	txCtx := txctx.With(ctx, "tx")
	got, err := repo.FindByID(txCtx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ada", got.FullName)

	assert.Equal(t, 0, cache.getCount())
	assert.False(t, cache.has(userKey(u.ID)))
}

func TestCachedUserRepository_InvalidatesAfterCommit(t *testing.T) {
	ctx := context.Background()
	cache := newFakeRedis()
	repo := NewCachedUserRepository(memory.NewUserRepository(), cache, time.Minute, nil)
	tm := memory.NewTxManager()

	u := &user.User{FullName: "Ada", Title: "reader", Age: 30}
	require.NoError(t, repo.Create(ctx, u))
	stale, err := json.Marshal(u)
	require.NoError(t, err)

	err = tm.Transaction(ctx, func(ctx context.Context) error {
		u.Age = 31
		if err := repo.Update(ctx, u); err != nil {
			return err
		}
		// 提交前并发读把旧值回填进缓存
		cache.Set(ctx, userKey(u.ID), stale, time.Minute)
		return nil
	})
	require.NoError(t, err)
	assert.False(t, cache.has(userKey(u.ID)))

	got, err := repo.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 31, got.Age)
}

func TestCachedUserRepository_KeepsCacheWhenTransactionFails(t *testing.T) {
	ctx := context.Background()
	cache := newFakeRedis()
	repo := NewCachedUserRepository(memory.NewUserRepository(), cache, time.Minute, nil)
	tm := memory.NewTxManager()
	boom := errors.New("boom")

	u := &user.User{FullName: "Ada", Title: "reader", Age: 30}
	require.NoError(t, repo.Create(ctx, u))

	err := tm.Transaction(ctx, func(ctx context.Context) error {
		require.NoError(t, repo.Update(ctx, u))
		cache.Set(ctx, userKey(u.ID), []byte(`{}`), time.Minute)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	// 未提交不执行提交后删除
	assert.True(t, cache.has(userKey(u.ID)))
}
