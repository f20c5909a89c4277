package xlog

import (
	"context"
	"log/slog"
)

// Logger 日志接口
//
// 所有方法都需要 context.Context 参数，方法签名只接受 slog.Attr。
type Logger interface {
	Debug(ctx context.Context, msg string, attrs ...slog.Attr)
	Info(ctx context.Context, msg string, attrs ...slog.Attr)
	Warn(ctx context.Context, msg string, attrs ...slog.Attr)
	Error(ctx context.Context, msg string, attrs ...slog.Attr)

	// With 返回带额外属性的派生 Logger，派生 Logger 共享父级的级别。
	With(attrs ...slog.Attr) Logger
}

// LoggerWithLevel 在 Logger 之上增加动态级别控制。
type LoggerWithLevel interface {
	Logger

	// SetLevel 动态设置日志级别
	SetLevel(level Level)

	// GetLevel 获取当前日志级别
	GetLevel() Level

	// Enabled 检查指定级别是否启用
	Enabled(ctx context.Context, level Level) bool
}

// Discard 返回丢弃所有记录的 Logger，作为库组件未注入日志时的默认值。
func Discard() Logger {
	return discardLogger{}
}

type discardLogger struct{}

func (discardLogger) Debug(context.Context, string, ...slog.Attr) {}
func (discardLogger) Info(context.Context, string, ...slog.Attr)  {}
func (discardLogger) Warn(context.Context, string, ...slog.Attr)  {}
func (discardLogger) Error(context.Context, string, ...slog.Attr) {}
func (d discardLogger) With(...slog.Attr) Logger                  { return d }
