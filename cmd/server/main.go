package main

import (
	"flag"
	"os"
	"strings"
	"syscall"

	"github.com/setwear/internal/app"
	"github.com/setwear/internal/config"
	"github.com/setwear/internal/logger"

	"github.com/gin-gonic/gin"
)

func main() {
	// 解析命令行参数
	var mode string
	flag.StringVar(&mode, "mode", app.ModeAll, "启动模式: all (默认), api, worker, migrate")
	flag.Parse()

	// 加载配置
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()

	if !app.ValidMode(mode) {
		stdLog.Fatalf("未知启动模式: %s", mode)
	}

	if mode != app.ModeMigrate {
		checkSecret(cfg.Server.Mode, "jwt.secret", cfg.JWT.SecretKey)
		checkSecret(cfg.Server.Mode, "user_jwt.secret", cfg.UserJWT.SecretKey)
	}

	// 初始化数据库并迁移
	if err := app.InitDatabase(cfg); err != nil {
		stdLog.Fatalf("数据库初始化失败: %v", err)
	}

	// 设置 Gin 模式
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := app.Run(app.Options{
		Config:  cfg,
		Logger:  logger.S(),
		Signals: []os.Signal{syscall.SIGINT, syscall.SIGTERM},
		Mode:    mode,
	}); err != nil {
		stdLog.Fatalf("服务运行失败: %v", err)
	}
}

// checkSecret release 模式下弱密钥直接退出
func checkSecret(serverMode, name, secret string) {
	if !isWeakSecret(secret) {
		return
	}
	if serverMode == "release" {
		logger.StdLogger().Fatalf("%s 过弱或仍为默认值，请在生产环境中配置强随机密钥", name)
	}
	logger.StdLogger().Printf("警告: %s 过弱或仍为默认值，建议在生产环境中更换", name)
}

func isWeakSecret(secret string) bool {
	if len(secret) < 32 {
		return true
	}
	normalized := strings.ToLower(secret)
	if strings.Contains(normalized, "change-me") ||
		strings.Contains(normalized, "change-in-production") ||
		strings.Contains(normalized, "your-secret-key") {
		return true
	}
	return false
}
