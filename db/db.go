package db

import (
	"database/sql"
	"fmt"
	"time"

	"checkout-pay/conf"

	_ "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"
)

// DB 全局连接池。nil 表示未配置数据库，调用方按无持久化降级
var DB *sql.DB

// Init 建立 MySQL 连接池
func Init() error {
	cfg := conf.GetConf().Database
	if cfg.Host == "" {
		return fmt.Errorf("database not configured")
	}

	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=true",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database)

	pool, err := sql.Open("mysql", dsn)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	pool.SetMaxOpenConns(cfg.MaxOpenConns)
	pool.SetMaxIdleConns(cfg.MaxIdleConns)
	pool.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Second)

	if err := pool.Ping(); err != nil {
		_ = pool.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	DB = pool
	zap.L().Info("Database connected successfully",
		zap.String("host", cfg.Host),
		zap.Int("port", cfg.Port),
		zap.String("database", cfg.Database))
	return nil
}

// Close 关闭连接池
func Close() error {
	if DB == nil {
		return nil
	}
	return DB.Close()
}
