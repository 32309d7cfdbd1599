package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
)

// @title           Bookshelf API
// @version         1.0
// @description     用户及其图书的组合增删改查服务
// @host            localhost:8080
// @BasePath        /
// @schemes         http
func main() {
	app, cleanup, err := InitializeApp()
	if err != nil {
		log.Fatalf("初始化应用失败: %v", err)
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx); err != nil {
		app.logger.Error("服务异常退出", zap.Error(err))
		stop()
		cleanup()
		os.Exit(1)
	}
	app.logger.Info("服务已停止")
}
