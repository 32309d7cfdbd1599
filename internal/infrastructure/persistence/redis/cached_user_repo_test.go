package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiebiao/bookshelf/internal/domain/user"
	"github.com/xiebiao/bookshelf/internal/infrastructure/config"
	"github.com/xiebiao/bookshelf/internal/infrastructure/persistence/memory"
	"github.com/xiebiao/bookshelf/pkg/circuitbreaker"
)

// unreachable 指向一个没有Redis监听的端口
func unreachable() config.RedisConfig {
	return config.RedisConfig{
		Host:         "127.0.0.1",
		Port:         1,
		DialTimeout:  50 * time.Millisecond,
		ReadTimeout:  50 * time.Millisecond,
		WriteTimeout: 50 * time.Millisecond,
		PoolSize:     1,
	}
}

func TestNewClient_Unreachable(t *testing.T) {
	_, err := NewClient(unreachable(), nil)
	assert.Error(t, err)
}

func TestCachedUserRepository_FallsBackWhenRedisDown(t *testing.T) {
	ctx := context.Background()
	inner := memory.NewUserRepository()
	client := newClient(unreachable())
	defer client.Close()

	repo := NewCachedUserRepository(inner, client, time.Minute, nil)

	u := &user.User{FullName: "Ada", Title: "reader", Age: 30}
	require.NoError(t, repo.Create(ctx, u))

	for i := 0; i < 6; i++ {
		got, err := repo.FindByID(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, "Ada", got.FullName)
	}

	// 连续失败后熔断器打开，后续请求不再访问Redis
	assert.Equal(t, circuitbreaker.StateOpen, repo.Breaker().State())

	_, err := repo.FindByID(ctx, 99)
	assert.ErrorIs(t, err, user.ErrUserNotFound)
}

func TestCachedUserRepository_WritesPassThrough(t *testing.T) {
	ctx := context.Background()
	inner := memory.NewUserRepository()
	client := newClient(unreachable())
	defer client.Close()

	repo := NewCachedUserRepository(inner, client, 0, nil)

	u := &user.User{FullName: "Ada", Title: "reader", Age: 30}
	require.NoError(t, repo.Create(ctx, u))

	u.Age = 31
	require.NoError(t, repo.Update(ctx, u))
	got, err := inner.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 31, got.Age)

	require.NoError(t, repo.Delete(ctx, u.ID))
	assert.Equal(t, 0, inner.Count())

	// 校验错误原样返回
	assert.ErrorIs(t, repo.Create(ctx, &user.User{}), user.ErrInvalidUser)
}

func TestUserKey(t *testing.T) {
	assert.Equal(t, "bookshelf:user:42", userKey(42))
}
