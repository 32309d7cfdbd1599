package mysql

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/xiebiao/bookshelf/internal/infrastructure/config"
)

// NewDB 创建MySQL连接
// 1. GORM v2 + 连接池参数
// 2. debug模式打印SQL
// 3. storage.auto_migrate开启时自动迁移表结构
func NewDB(cfg *config.Config, log *zap.Logger) (*gorm.DB, error) {
	logLevel := logger.Silent
	if cfg.Server.Mode == "debug" {
		logLevel = logger.Info
	}

	db, err := gorm.Open(mysql.Open(cfg.Database.DSN()), &gorm.Config{
		Logger:  logger.Default.LogMode(logLevel),
		NowFunc: time.Now,
	})
	if err != nil {
		return nil, fmt.Errorf("连接数据库失败: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("获取SQL DB失败: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("数据库连接测试失败: %w", err)
	}

	log.Info("MySQL连接成功",
		zap.String("host", cfg.Database.Host),
		zap.Int("port", cfg.Database.Port),
		zap.String("dbname", cfg.Database.DBName),
	)

	// 生产环境应使用版本化迁移脚本
	if cfg.Storage.AutoMigrate {
		if err := AutoMigrate(db, cfg.User.UniqueTitle); err != nil {
			return nil, fmt.Errorf("数据库迁移失败: %w", err)
		}
	}

	return db, nil
}

const uniqueTitleIndex = "uk_users_title"

// AutoMigrate 只创建表和添加字段，不删除已有字段
// uniqueTitle为true时为头衔建唯一索引，并发事务也无法写入重复头衔
func AutoMigrate(db *gorm.DB, uniqueTitle bool) error {
	if err := db.AutoMigrate(&UserModel{}, &BookModel{}); err != nil {
		return err
	}
	if !uniqueTitle || db.Migrator().HasIndex(&UserModel{}, uniqueTitleIndex) {
		return nil
	}
	return db.Exec(createUniqueTitleIndexSQL).Error
}

var createUniqueTitleIndexSQL = "CREATE UNIQUE INDEX " + uniqueTitleIndex + " ON users (title)"

// UserModel GORM用户模型
// domain/user.User不依赖GORM，由Repository负责转换
type UserModel struct {
	ID        uint           `gorm:"primaryKey"`
	FullName  string         `gorm:"size:100;not null;comment:姓名"`
	Title     string         `gorm:"index;size:100;not null;comment:头衔"`
	Age       int            `gorm:"not null;comment:年龄"`
	CreatedAt time.Time      `gorm:"comment:创建时间"`
	UpdatedAt time.Time      `gorm:"comment:更新时间"`
	DeletedAt gorm.DeletedAt `gorm:"index;comment:删除时间（软删除）"`
}

// TableName 指定表名
func (UserModel) TableName() string {
	return "users"
}

// BookModel GORM图书模型
// UserID建索引，支撑按用户查询全部图书
type BookModel struct {
	ID        uint           `gorm:"primaryKey"`
	UserID    uint           `gorm:"index;not null;comment:所属用户ID"`
	Title     string         `gorm:"size:200;not null;comment:书名"`
	Author    string         `gorm:"size:100;not null;comment:作者"`
	PageCount int            `gorm:"not null;comment:页数"`
	CreatedAt time.Time      `gorm:"comment:创建时间"`
	UpdatedAt time.Time      `gorm:"comment:更新时间"`
	DeletedAt gorm.DeletedAt `gorm:"index;comment:删除时间（软删除）"`
}

// TableName 指定表名
func (BookModel) TableName() string {
	return "books"
}
