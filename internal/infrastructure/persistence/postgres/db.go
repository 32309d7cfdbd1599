// Package postgres 基于sqlx + goqu的Postgres仓储实现
// 驱动可选pgx（jackc/pgx stdlib）或postgres（lib/pq），由postgres.driver配置
package postgres

import (
	"context"
	"fmt"

	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/xiebiao/bookshelf/internal/infrastructure/config"
)

const dialect = "postgres"

// schema 建表语句，可重复执行
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id         BIGSERIAL PRIMARY KEY,
		full_name  VARCHAR(100) NOT NULL,
		title      VARCHAR(100) NOT NULL,
		age        INTEGER      NOT NULL,
		created_at TIMESTAMPTZ  NOT NULL,
		updated_at TIMESTAMPTZ  NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_users_title ON users (title)`,
	`CREATE TABLE IF NOT EXISTS books (
		id         BIGSERIAL PRIMARY KEY,
		user_id    BIGINT       NOT NULL,
		title      VARCHAR(200) NOT NULL,
		author     VARCHAR(100) NOT NULL,
		page_count INTEGER      NOT NULL,
		created_at TIMESTAMPTZ  NOT NULL,
		updated_at TIMESTAMPTZ  NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_books_user_id ON books (user_id)`,
}

// uniqueTitleSchema user.unique_title开启时追加，并发事务也无法写入重复头衔
var uniqueTitleSchema = `CREATE UNIQUE INDEX IF NOT EXISTS ` + uniqueTitleIndex + ` ON users (title)`

func schemaFor(uniqueTitle bool) []string {
	stmts := append([]string(nil), schema...)
	if uniqueTitle {
		stmts = append(stmts, uniqueTitleSchema)
	}
	return stmts
}

// NewDB 打开连接池并测试连接
func NewDB(cfg *config.Config, log *zap.Logger) (*sqlx.DB, error) {
	pg := cfg.Postgres

	db, err := sqlx.Open(pg.Driver, pg.DSN())
	if err != nil {
		return nil, fmt.Errorf("打开Postgres连接失败: %w", err)
	}

	db.SetMaxOpenConns(pg.MaxOpenConns)
	db.SetMaxIdleConns(pg.MaxIdleConns)
	db.SetConnMaxLifetime(pg.ConnMaxLifetime)

	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("Postgres连接测试失败: %w", err)
	}

	log.Info("Postgres连接成功",
		zap.String("driver", pg.Driver),
		zap.String("host", pg.Host),
		zap.Int("port", pg.Port),
		zap.String("dbname", pg.DBName),
	)

	if cfg.Storage.AutoMigrate {
		if err := Migrate(ctx, db, cfg.User.UniqueTitle); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("Postgres迁移失败: %w", err)
		}
	}

	return db, nil
}

// Migrate 执行建表语句，uniqueTitle为true时为头衔建唯一索引
func Migrate(ctx context.Context, db sqlx.ExecerContext, uniqueTitle bool) error {
	for _, stmt := range schemaFor(uniqueTitle) {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
