package log

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"
)

func TestSetup(t *testing.T) {
	defer Setup("")

	Setup("debug")
	assert.True(t, Logger.Desugar().Core().Enabled(zapcore.DebugLevel))

	Setup("error")
	assert.False(t, Logger.Desugar().Core().Enabled(zapcore.WarnLevel))
	assert.True(t, Logger.Desugar().Core().Enabled(zapcore.ErrorLevel))

	Setup("bogus")
	assert.False(t, Logger.Desugar().Core().Enabled(zapcore.DebugLevel))
	assert.True(t, Logger.Desugar().Core().Enabled(zapcore.InfoLevel))
}
