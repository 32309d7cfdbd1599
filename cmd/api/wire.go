//go:build wireinject
// +build wireinject

// 依赖注入声明，修改后执行 `wire gen ./cmd/api` 重新生成wire_gen.go

package main

import (
	"github.com/google/wire"

	"github.com/xiebiao/bookshelf/internal/infrastructure/config"
	"github.com/xiebiao/bookshelf/internal/interface/http/handler"
	"github.com/xiebiao/bookshelf/internal/interface/http/router"
)

// infrastructureSet 配置、日志、追踪
var infrastructureSet = wire.NewSet(
	config.Load,
	provideLogger,
	provideTracer,
)

// repositorySet 存储层（memory/mysql/postgres，可选redis缓存）
var repositorySet = wire.NewSet(
	provideStores,
)

// domainSet 领域服务
var domainSet = wire.NewSet(
	provideUserService,
	provideBookService,
)

// applicationSet 组合门面和事件发布
var applicationSet = wire.NewSet(
	providePublisher,
	provideFacade,
)

// handlerSet HTTP接口层
var handlerSet = wire.NewSet(
	handler.NewUserBookHandler,
	router.New,
)

// InitializeApp 初始化整个应用，cleanup按创建的逆序释放资源
func InitializeApp() (*App, func(), error) {
	wire.Build(
		infrastructureSet,
		repositorySet,
		domainSet,
		applicationSet,
		handlerSet,
		NewApp,
	)
	return nil, nil, nil
}
