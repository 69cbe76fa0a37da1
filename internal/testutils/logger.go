package testutils

import (
	"io"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger builds a development-style logr.Logger writing to w. Verbosity is
// a zap level: negative values enable the corresponding logr V levels (pass
// -10 for full trace output in a suite, 0 to keep it quiet).
func NewLogger(w io.Writer, verbosity int) logr.Logger {
	encoder := zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	core := zapcore.NewCore(encoder, zapcore.AddSync(w), zapcore.Level(verbosity))
	return zapr.NewLogger(zap.New(core))
}
