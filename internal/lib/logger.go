package lib

import (
	"os"
	"path/filepath"

	"gitlab.com/TitanInd/escrow-bridge/internal/interfaces"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const timeLayout = "2006-01-02T15:04:05"

type Logger struct {
	*zap.SugaredLogger
}

type LoggerOptions struct {
	Level      string
	Color      bool
	IsProd     bool
	JSON       bool
	FolderPath string // file logging is enabled when set
	FileName   string
}

func NewLogger(opts LoggerOptions) (*Logger, error) {
	level, err := zapcore.ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}

	cores := []zapcore.Core{
		zapcore.NewCore(newEncoder(opts.IsProd, opts.Color, opts.JSON), zapcore.AddSync(os.Stdout), level),
	}

	if opts.FolderPath != "" {
		name := opts.FileName
		if name == "" {
			name = "escrow-bridge.log"
		}
		file, err := os.OpenFile(filepath.Join(opts.FolderPath, name), os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0666)
		if err != nil {
			return nil, err
		}
		cores = append(cores, zapcore.NewCore(newEncoder(opts.IsProd, false, opts.JSON), zapcore.AddSync(file), zapcore.DebugLevel))
	}

	zapOpts := []zap.Option{zap.AddStacktrace(zap.ErrorLevel)}
	if !opts.IsProd {
		zapOpts = append(zapOpts, zap.Development())
	}

	return &Logger{zap.New(zapcore.NewTee(cores...), zapOpts...).Sugar()}, nil
}

// NewTestLogger logs only to stdout
func NewTestLogger() *Logger {
	log, _ := NewLogger(LoggerOptions{Level: "debug"})
	return log
}

func newEncoder(isProd, color, isJSON bool) zapcore.Encoder {
	var cfg zapcore.EncoderConfig
	if isProd {
		cfg = zap.NewProductionEncoderConfig()
	} else {
		cfg = zap.NewDevelopmentEncoderConfig()
		cfg.EncodeTime = zapcore.TimeEncoderOfLayout(timeLayout)
	}

	if isJSON {
		return zapcore.NewJSONEncoder(cfg)
	}
	if color {
		cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	return zapcore.NewConsoleEncoder(cfg)
}

func (l *Logger) Named(name string) interfaces.ILogger {
	return &Logger{l.SugaredLogger.Named(name)}
}

func (l *Logger) With(args ...interface{}) interfaces.ILogger {
	return &Logger{l.SugaredLogger.With(args...)}
}
