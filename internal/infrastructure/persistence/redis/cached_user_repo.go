package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/xiebiao/bookshelf/internal/domain/user"
	"github.com/xiebiao/bookshelf/internal/infrastructure/persistence/txctx"
	"github.com/xiebiao/bookshelf/pkg/circuitbreaker"
	"github.com/xiebiao/bookshelf/pkg/metrics"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	cacheName      = "user"
	userKeyPattern = "bookshelf:user:%d"
	defaultUserTTL = 10 * time.Minute
)

// CachedUserRepository 用户仓储的cache-aside装饰器
//
// 1. FindByID先查Redis，未命中回源并回填
// 2. 写操作先写底层仓储再删除缓存，事务提交后再删除一次
// 3. 事务内的读写绕过缓存，避免缓存未提交（可能回滚）的数据
// 4. Redis调用经过熔断器，Redis故障时直接回源，不影响业务
type CachedUserRepository struct {
	user.Repository

	client  redis.UniversalClient
	breaker *circuitbreaker.CircuitBreaker
	ttl     time.Duration
	logger  *zap.Logger
}

var _ user.Repository = (*CachedUserRepository)(nil)

// NewCachedUserRepository 包装底层用户仓储
func NewCachedUserRepository(inner user.Repository, client redis.UniversalClient, ttl time.Duration, logger *zap.Logger) *CachedUserRepository {
	if ttl <= 0 {
		ttl = defaultUserTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	breaker := circuitbreaker.New("redis-user-cache", circuitbreaker.Settings{
		Timeout: 10 * time.Second,
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, redis.Nil)
		},
		OnStateChange: func(name string, from, to circuitbreaker.State) {
			metrics.SetBreakerState(name, int(to))
			logger.Warn("熔断器状态切换",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	return &CachedUserRepository{
		Repository: inner,
		client:     client,
		breaker:    breaker,
		ttl:        ttl,
		logger:     logger,
	}
}

// Breaker 缓存使用的熔断器
func (r *CachedUserRepository) Breaker() *circuitbreaker.CircuitBreaker {
	return r.breaker
}

// FindByID 先查缓存
func (r *CachedUserRepository) FindByID(ctx context.Context, id uint) (*user.User, error) {
	if txctx.Active(ctx) {
		return r.Repository.FindByID(ctx, id)
	}

	key := userKey(id)
	var data []byte
	err := r.execute(ctx, func(ctx context.Context) error {
		var err error
		data, err = r.client.Get(ctx, key).Bytes()
		return err
	})

	switch {
	case err == nil:
		var u user.User
		if err := json.Unmarshal(data, &u); err == nil {
			metrics.IncCache(cacheName, "hit")
			return &u, nil
		}
		// 缓存内容损坏，按未命中处理
		metrics.IncCache(cacheName, "miss")
	case errors.Is(err, redis.Nil):
		metrics.IncCache(cacheName, "miss")
	default:
		metrics.IncCache(cacheName, "error")
		r.logger.Debug("读取用户缓存失败，回源", zap.Uint("user_id", id), zap.Error(err))
	}

	u, err := r.Repository.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	r.set(ctx, key, u)
	return u, nil
}

func (r *CachedUserRepository) Create(ctx context.Context, u *user.User) error {
	if err := r.Repository.Create(ctx, u); err != nil {
		return err
	}
	// 删除自增ID上可能残留的旧缓存
	r.invalidate(ctx, u.ID)
	return nil
}

func (r *CachedUserRepository) Update(ctx context.Context, u *user.User) error {
	if err := r.Repository.Update(ctx, u); err != nil {
		return err
	}
	r.invalidate(ctx, u.ID)
	return nil
}

func (r *CachedUserRepository) Delete(ctx context.Context, id uint) error {
	if err := r.Repository.Delete(ctx, id); err != nil {
		return err
	}
	r.invalidate(ctx, id)
	return nil
}

func (r *CachedUserRepository) set(ctx context.Context, key string, u *user.User) {
	data, err := json.Marshal(u)
	if err != nil {
		return
	}
	if err := r.execute(ctx, func(ctx context.Context) error {
		return r.client.Set(ctx, key, data, r.ttl).Err()
	}); err != nil {
		r.logger.Debug("写入用户缓存失败", zap.String("key", key), zap.Error(err))
	}
}

// invalidate 写入后立即删除缓存；事务中提交后再删一次，清掉提交前被并发读回填的旧值
func (r *CachedUserRepository) invalidate(ctx context.Context, id uint) {
	r.del(ctx, id)
	txctx.OnCommit(ctx, func() {
		r.del(context.WithoutCancel(ctx), id)
	})
}

// del 删除失败只记录日志，脏数据最长存活一个TTL
func (r *CachedUserRepository) del(ctx context.Context, id uint) {
	if err := r.execute(ctx, func(ctx context.Context) error {
		return r.client.Del(ctx, userKey(id)).Err()
	}); err != nil {
		r.logger.Warn("删除用户缓存失败", zap.Uint("user_id", id), zap.Error(err))
	}
}

func (r *CachedUserRepository) execute(ctx context.Context, fn func(ctx context.Context) error) error {
	err := r.breaker.Execute(ctx, fn)
	switch {
	case errors.Is(err, circuitbreaker.ErrOpenState):
		metrics.IncBreakerRequest(r.breaker.Name(), "rejected")
	case err == nil || errors.Is(err, redis.Nil):
		metrics.IncBreakerRequest(r.breaker.Name(), "success")
	default:
		metrics.IncBreakerRequest(r.breaker.Name(), "failure")
	}
	return err
}

func userKey(id uint) string {
	return fmt.Sprintf(userKeyPattern, id)
}
