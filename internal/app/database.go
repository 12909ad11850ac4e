package app

import (
	"context"
	"fmt"
	"time"

	"github.com/setwear/internal/config"
	"github.com/setwear/internal/migrate"
	"github.com/setwear/internal/models"
)

// migrateTimeout 启动迁移的超时时间
const migrateTimeout = 2 * time.Minute

// InitDatabase 连接数据库并同步表结构
// postgres 执行内嵌 SQL 迁移，sqlite 使用 AutoMigrate
func InitDatabase(cfg *config.Config) error {
	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}); err != nil {
		return fmt.Errorf("init database: %w", err)
	}
	return MigrateDatabase(cfg)
}

// MigrateDatabase 同步表结构，要求 models.DB 已初始化
func MigrateDatabase(cfg *config.Config) error {
	if models.IsPostgres(models.DB) {
		ctx, cancel := context.WithTimeout(context.Background(), migrateTimeout)
		defer cancel()
		if err := migrate.Apply(ctx, cfg.Database.DSN); err != nil {
			return fmt.Errorf("apply migrations: %w", err)
		}
		return nil
	}
	if err := models.AutoMigrate(); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
