package log

import (
	"os"

	"github.com/go-logr/zapr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"k8s.io/klog/v2"
)

const levelEnv = "ALIPAY_SIGN_LOG_LEVEL"

var Logger *zap.SugaredLogger

func init() {
	Setup(os.Getenv(levelEnv))
}

// Setup rebuilds Logger at the given level and routes klog output through it.
// An empty or unknown level falls back to info.
func Setup(level string) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zapcore.InfoLevel
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}

	zl, err := cfg.Build()
	if err != nil {
		zl = zap.NewNop()
	}
	Logger = zl.Sugar()
	klog.SetLogger(zapr.NewLogger(zl))
}
