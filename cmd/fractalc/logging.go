package main

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"

	"github.com/wippyai/fractal-wasm/bench"
	"github.com/wippyai/fractal-wasm/engine"
)

// newLogger builds the process logger. It always writes to stderr so
// command output on stdout stays machine-readable.
func newLogger(opts *rootOptions) (*zap.Logger, error) {
	level := opts.logLevel
	if opts.verbose {
		level = zapcore.DebugLevel
	}

	var cfg zap.Config
	switch opts.logFormat {
	case "json":
		cfg = zap.NewProductionConfig()
	case "console", "":
		cfg = zap.NewDevelopmentConfig()
		if term.IsTerminal(int(os.Stderr.Fd())) {
			cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		}
	default:
		return nil, fmt.Errorf("unknown log format %q; supported formats are console, json", opts.logFormat)
	}
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	cfg.DisableStacktrace = level > zapcore.DebugLevel

	return cfg.Build(zap.AddCaller())
}

func installLogger(log *zap.Logger) {
	engine.SetLogger(log.Named("engine"))
	bench.SetLogger(log.Named("bench"))
}
