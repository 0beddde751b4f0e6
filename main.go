// @title Step2Hub API
// @version 1.0
// @description 做题记录、自动分类、仪表盘与导出。
// @BasePath /api

package main

import (
	"flag"
	"log"
	"step2hub/internal/app"
	"step2hub/internal/config"
	"step2hub/pkg/logger"
)

func main() {
	// 命令行参数
	configDir := flag.String("config", "configs", "config.yaml 所在目录")
	migrateOnly := flag.Bool("migrate-only", false, "只建表并补齐缺失的列，完成后退出")
	flag.Parse()

	cfg, err := config.LoadConfig(*configDir)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	cfg.MigrateOnly = *migrateOnly

	application := app.NewApp(cfg)
	defer logger.Log.Sync()

	// 迁移完成后直接退出
	if *migrateOnly {
		application.Close()
		logger.Log.Info("Schema migration finished, exiting")
		return
	}

	application.Run()
}
