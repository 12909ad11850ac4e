package app

import (
	"os"
	"time"

	"github.com/setwear/internal/config"
	"github.com/setwear/internal/logger"

	"go.uber.org/zap"
)

const (
	ModeAll     = "all"
	ModeAPI     = "api"
	ModeWorker  = "worker"
	ModeMigrate = "migrate"
)

// Options 应用启动选项
type Options struct {
	Config          *config.Config
	Logger          *zap.SugaredLogger
	Signals         []os.Signal
	ShutdownTimeout time.Duration
	Mode            string
}

// normalizeOptions 补齐默认参数
func normalizeOptions(opts Options) Options {
	if opts.Logger == nil {
		opts.Logger = logger.S()
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 10 * time.Second
	}
	if opts.Mode == "" {
		opts.Mode = ModeAll
	}
	return opts
}

// ValidMode 启动模式是否合法
func ValidMode(mode string) bool {
	switch mode {
	case ModeAll, ModeAPI, ModeWorker, ModeMigrate:
		return true
	}
	return false
}
