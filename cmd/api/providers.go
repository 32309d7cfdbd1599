package main

import (
	"context"

	"go.uber.org/zap"

	"github.com/xiebiao/bookshelf/internal/application/userbook"
	"github.com/xiebiao/bookshelf/internal/domain/book"
	"github.com/xiebiao/bookshelf/internal/domain/user"
	"github.com/xiebiao/bookshelf/internal/infrastructure/config"
	"github.com/xiebiao/bookshelf/internal/infrastructure/logger"
	"github.com/xiebiao/bookshelf/internal/infrastructure/persistence/memory"
	"github.com/xiebiao/bookshelf/internal/infrastructure/persistence/mysql"
	"github.com/xiebiao/bookshelf/internal/infrastructure/persistence/postgres"
	"github.com/xiebiao/bookshelf/internal/infrastructure/persistence/redis"
	"github.com/xiebiao/bookshelf/pkg/mq"
	"github.com/xiebiao/bookshelf/pkg/tracing"
)

// Stores 按storage.driver选出的一组仓储实现
type Stores struct {
	Users user.Repository
	Books book.Repository
	Tx    userbook.TxManager
}

// provideLogger cleanup时刷新缓冲
func provideLogger(cfg *config.Config) (*zap.Logger, func(), error) {
	log, err := logger.New(cfg.Log)
	if err != nil {
		return nil, nil, err
	}
	return log, func() { _ = log.Sync() }, nil
}

// provideStores 创建存储层，redis.enabled时给用户仓储套上缓存
func provideStores(cfg *config.Config, log *zap.Logger) (*Stores, func(), error) {
	var (
		stores  *Stores
		closers []func()
	)

	switch cfg.Storage.Driver {
	case config.DriverMySQL:
		db, err := mysql.NewDB(cfg, log)
		if err != nil {
			return nil, nil, err
		}
		if sqlDB, err := db.DB(); err == nil {
			closers = append(closers, func() { _ = sqlDB.Close() })
		}
		stores = &Stores{
			Users: mysql.NewUserRepository(db, mysql.WithUniqueTitle(cfg.User.UniqueTitle)),
			Books: mysql.NewBookRepository(db),
			Tx:    mysql.NewTxManager(db),
		}
	case config.DriverPostgres:
		db, err := postgres.NewDB(cfg, log)
		if err != nil {
			return nil, nil, err
		}
		closers = append(closers, func() { _ = db.Close() })
		stores = &Stores{
			Users: postgres.NewUserRepository(db),
			Books: postgres.NewBookRepository(db),
			Tx:    postgres.NewTxManager(db),
		}
	default:
		stores = &Stores{
			Users: memory.NewUserRepository(),
			Books: memory.NewBookRepository(),
			Tx:    memory.NewTxManager(),
		}
	}

	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if cfg.Redis.Enabled {
		client, err := redis.NewClient(cfg.Redis, log)
		if err != nil {
			// 缓存不可用不影响启动
			log.Warn("Redis不可用，关闭用户缓存", zap.Error(err))
		} else {
			closers = append(closers, func() { _ = client.Close() })
			stores.Users = redis.NewCachedUserRepository(stores.Users, client, cfg.Redis.UserTTL, log)
		}
	}

	log.Info("存储层初始化完成", zap.String("driver", cfg.Storage.Driver), zap.Bool("user_cache", cfg.Redis.Enabled))
	return stores, cleanup, nil
}

func provideUserService(cfg *config.Config, stores *Stores, log *zap.Logger) user.Service {
	return user.NewService(stores.Users,
		user.WithUniqueTitle(cfg.User.UniqueTitle),
		user.WithLogger(log),
	)
}

func provideBookService(cfg *config.Config, stores *Stores, log *zap.Logger) book.Service {
	opts := []book.Option{book.WithLogger(log)}
	if cfg.Book.RequireOwner {
		opts = append(opts, book.WithOwnerCheck(stores.Users))
	}
	return book.NewService(stores.Books, opts...)
}

// providePublisher mq.enabled时连接RabbitMQ，否则丢弃事件
func providePublisher(cfg *config.Config, log *zap.Logger) (userbook.EventPublisher, func(), error) {
	if !cfg.MQ.Enabled {
		return userbook.NopPublisher{}, func() {}, nil
	}

	pub, err := mq.NewPublisher(cfg.MQ.URL, cfg.MQ.Exchange, cfg.MQ.ExchangeType, log)
	if err != nil {
		return nil, nil, err
	}
	return pub, func() { _ = pub.Close() }, nil
}

func provideFacade(cfg *config.Config, users user.Service, books book.Service, stores *Stores, publisher userbook.EventPublisher, log *zap.Logger) *userbook.Facade {
	return userbook.NewFacade(users, books, stores.Tx, publisher, log, userbook.Options{
		Timeout:       cfg.Facade.Timeout,
		CascadeDelete: cfg.Facade.CascadeDelete,
	})
}

func provideTracer(cfg *config.Config) (tracing.ShutdownFunc, error) {
	return tracing.InitTracer(context.Background(), tracing.Options{
		Enabled:     cfg.Tracing.Enabled,
		ServiceName: cfg.Tracing.ServiceName,
		Endpoint:    cfg.Tracing.Endpoint,
		Insecure:    cfg.Tracing.Insecure,
		SampleRatio: cfg.Tracing.SampleRatio,
	})
}
