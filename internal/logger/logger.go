package logger

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Log is the process logger. It is a no-op until Initialize runs, so
// packages can log from tests without setup.
var Log = zap.NewNop()

const (
	defaultFile = "agora.log"

	rotateMaxSizeMB  = 100
	rotateMaxBackups = 5
	rotateMaxAgeDays = 7
)

// Initialize points Log at stdout (console encoding) and a rotated JSON
// file. An empty level means info; an unknown one falls back to info.
func Initialize(level string, file string) error {
	if file == "" {
		file = defaultFile
	}

	rotated := zapcore.AddSync(&lumberjack.Logger{
		Filename:   file,
		MaxSize:    rotateMaxSizeMB,
		MaxBackups: rotateMaxBackups,
		MaxAge:     rotateMaxAgeDays,
		Compress:   true,
	})

	Log = zap.New(newCore(parseLevel(level), zapcore.AddSync(os.Stdout), rotated),
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
	)
	Log.Info("Logger initialized", zap.String("level", level), zap.String("file", file))
	return nil
}

// newCore tees human-readable console output and JSON file output at the
// same level.
func newCore(level zapcore.Level, console, file zapcore.WriteSyncer) zapcore.Core {
	jsonConfig := zap.NewProductionEncoderConfig()
	jsonConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return zapcore.NewTee(
		zapcore.NewCore(zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()), console, level),
		zapcore.NewCore(zapcore.NewJSONEncoder(jsonConfig), file, level),
	)
}

func parseLevel(s string) zapcore.Level {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "warning" {
		s = "warn"
	}
	level, err := zapcore.ParseLevel(s)
	if err != nil || s == "" {
		return zapcore.InfoLevel
	}
	return level
}

// Close flushes buffered entries
func Close() error {
	return Log.Sync()
}

func withErr(err error) []zap.Field {
	if err == nil {
		return nil
	}
	return []zap.Field{zap.Error(err)}
}

// WarnWithFields logs msg at warn, attaching err when non-nil
func WarnWithFields(msg string, err error) {
	Log.Warn(msg, withErr(err)...)
}

// ErrorWithFields logs msg at error, attaching err when non-nil
func ErrorWithFields(msg string, err error) {
	Log.Error(msg, withErr(err)...)
}

// FatalWithFields logs msg and exits
func FatalWithFields(msg string, err error) {
	Log.Fatal(msg, withErr(err)...)
}

func WithRequestID(requestID string) zap.Field {
	return zap.String("request_id", requestID)
}

func WithUserID(userID string) zap.Field {
	return zap.String("user_id", userID)
}

func WithPostID(postID string) zap.Field {
	return zap.String("post_id", postID)
}

func WithChatID(chatID string) zap.Field {
	return zap.String("chat_id", chatID)
}

func WithIP(ip string) zap.Field {
	return zap.String("ip", ip)
}
