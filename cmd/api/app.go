package main

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xiebiao/bookshelf/internal/infrastructure/config"
	"github.com/xiebiao/bookshelf/pkg/tracing"
)

// App HTTP服务及其生命周期
type App struct {
	cfg            *config.Config
	server         *http.Server
	shutdownTracer tracing.ShutdownFunc
	logger         *zap.Logger
}

// NewApp 组装HTTP服务
func NewApp(cfg *config.Config, engine *gin.Engine, shutdownTracer tracing.ShutdownFunc, log *zap.Logger) *App {
	return &App{
		cfg: cfg,
		server: &http.Server{
			Addr:         cfg.Server.Addr(),
			Handler:      engine,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		},
		shutdownTracer: shutdownTracer,
		logger:         log,
	}
}

// Run 启动服务，ctx取消后优雅关闭
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Info("HTTP服务启动", zap.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		a.logger.Info("开始优雅关闭", zap.Duration("timeout", a.cfg.Server.ShutdownTimeout))

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.cfg.Server.ShutdownTimeout)
		defer cancel()

		err := a.server.Shutdown(shutdownCtx)
		if a.shutdownTracer != nil {
			err = errors.Join(err, a.shutdownTracer(shutdownCtx))
		}
		return err
	})

	return g.Wait()
}
