package xrelay

import (
	"context"
	"log/slog"
	"time"

	"github.com/omeyang/rotatelog/pkg/lifecycle/xrun"
	"github.com/omeyang/rotatelog/pkg/observability/xlog"
)

const (
	// DefaultFineInterval 每小时最后一分钟内的轮询间隔
	DefaultFineInterval = time.Second

	// DefaultCoarseInterval 其余时间的轮询间隔
	DefaultCoarseInterval = time.Minute

	// fineMinute 进入精细轮询的分钟数
	fineMinute = 59
)

// WatcherOption 配置 [ClockWatcher]。
type WatcherOption func(*ClockWatcher)

// WithClock 注入时钟，默认 time.Now（本地时区）。
func WithClock(clock func() time.Time) WatcherOption {
	return func(w *ClockWatcher) {
		if clock != nil {
			w.clock = clock
		}
	}
}

// WithIntervals 覆盖精细与粗粒度轮询间隔，非正值被忽略。
func WithIntervals(fine, coarse time.Duration) WatcherOption {
	return func(w *ClockWatcher) {
		if fine > 0 {
			w.fine = fine
		}
		if coarse > 0 {
			w.coarse = coarse
		}
	}
}

// WithWatcherLogger 设置日志记录器。
func WithWatcherLogger(logger xlog.Logger) WatcherOption {
	return func(w *ClockWatcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// ClockWatcher 检测本地日历日期变化并置位轮转信号。
//
// 精细轮询窗口是每小时的最后一分钟，不只是午夜前一分钟。
type ClockWatcher struct {
	signal  *Flag
	nearEnd *Flag
	clock   func() time.Time
	fine    time.Duration
	coarse  time.Duration
	logger  xlog.Logger

	lastYear  int
	lastMonth time.Month
	lastDay   int
}

// NewClockWatcher 创建观察者，以创建时刻的日期作为基准。
func NewClockWatcher(signal, nearEnd *Flag, opts ...WatcherOption) (*ClockWatcher, error) {
	if signal == nil || nearEnd == nil {
		return nil, ErrNilArgument
	}
	w := &ClockWatcher{
		signal:  signal,
		nearEnd: nearEnd,
		clock:   time.Now,
		fine:    DefaultFineInterval,
		coarse:  DefaultCoarseInterval,
		logger:  xlog.Discard(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(w)
		}
	}
	w.lastYear, w.lastMonth, w.lastDay = w.clock().Date()
	return w, nil
}

// Run 轮询直到 ctx 取消，返回 ctx.Err()。
func (w *ClockWatcher) Run(ctx context.Context) error {
	return xrun.Poller(w.interval, w.check)(ctx)
}

func (w *ClockWatcher) interval() time.Duration {
	if w.clock().Minute() >= fineMinute {
		return w.fine
	}
	return w.coarse
}

func (w *ClockWatcher) check(ctx context.Context) error {
	now := w.clock()
	w.nearEnd.Store(now.Minute() >= fineMinute)

	y, m, d := now.Date()
	if y == w.lastYear && m == w.lastMonth && d == w.lastDay {
		return nil
	}
	w.lastYear, w.lastMonth, w.lastDay = y, m, d
	w.signal.Set()
	w.logger.Debug(ctx, "date changed", slog.String("date", now.Format(time.DateOnly)))
	return nil
}
