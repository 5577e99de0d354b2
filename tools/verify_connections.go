package main

import (
	"fmt"

	"checkout-pay/cache"
	"checkout-pay/conf"
	"checkout-pay/db"

	"go.uber.org/zap"
)

func main() {
	// 初始化配置
	if err := conf.Init(); err != nil {
		fmt.Printf("❌ 配置初始化失败: %v\n", err)
		return
	}

	// 初始化日志
	logger, _ := zap.NewDevelopment()
	zap.ReplaceGlobals(logger)

	cfg := conf.GetConf()

	// 初始化数据库（可选）
	fmt.Println("正在连接 MySQL...")
	if err := db.Init(); err != nil {
		fmt.Printf("⚠️  MySQL 未配置或连接失败: %v\n", err)
		fmt.Println("   确认记录不会落库，系统仍可正常工作")
	} else {
		fmt.Println("✅ MySQL 连接成功！")
		fmt.Printf("  地址: %s:%d\n", cfg.Database.Host, cfg.Database.Port)
	}

	// 初始化 Redis
	fmt.Println("正在连接 Redis...")
	if err := cache.Init(); err != nil {
		fmt.Printf("❌ Redis 连接失败: %v\n", err)
		return
	}

	if cache.IsAvailable() {
		fmt.Println("✅ Redis 连接成功！")
		fmt.Println("")
		fmt.Println("Redis 配置信息：")
		fmt.Printf("  地址: %s:%d\n", cfg.Redis.Address, cfg.Redis.Port)
		fmt.Printf("  数据库: %d\n", cfg.Redis.DB)
		fmt.Printf("  连接池大小: %d\n", cfg.Redis.PoolSize)
		fmt.Println("")
		fmt.Println("✅ 意向状态缓存和 Redis 限流已启用")
	} else {
		fmt.Println("⚠️  Redis 未配置或连接失败，缓存功能已禁用")
		fmt.Println("   系统仍可正常工作，限流退化为内存窗口")
	}

	// 关闭连接
	cache.Close()
	db.Close()
}
