package xrun

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"

	"golang.org/x/sync/errgroup"

	"github.com/omeyang/rotatelog/pkg/observability/xlog"
)

// Group 基于 errgroup + context 管理多个任务的并发运行和协调关闭。
//
// 当任一任务返回错误、收到终止信号或调用 Cancel 时，所有任务都会收到取消信号。
// Go、GoWithName、Cancel 可安全地从多个 goroutine 并发调用；Wait 仅调用一次。
//
//	g, ctx := xrun.NewGroup(ctx, xrun.WithName("rotatelog"))
//	g.HandleSignals(syscall.SIGINT, syscall.SIGTERM)
//	g.GoWithName("watcher", watcher.Run)
//	g.GoWithName("relay", func(ctx context.Context) error {
//	    err := relay.Run(ctx)
//	    if err == nil {
//	        g.Cancel(nil) // 输入结束，停止其余任务
//	    }
//	    return err
//	})
//	err := g.Wait()
type Group struct {
	eg       *errgroup.Group
	ctx      context.Context
	causeCtx context.Context
	cancel   context.CancelCauseFunc
	opts     *groupOptions
}

// NewGroup 创建新的 Group，返回的 context 在 Group 取消时被取消。
// nil ctx 视为 context.Background()。
func NewGroup(ctx context.Context, opts ...Option) (*Group, context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}

	options := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(options)
		}
	}

	causeCtx, cancel := context.WithCancelCause(ctx)
	eg, egCtx := errgroup.WithContext(causeCtx)

	return &Group{
		eg:       eg,
		ctx:      egCtx,
		causeCtx: causeCtx,
		cancel:   cancel,
		opts:     options,
	}, egCtx
}

// Go 启动一个 goroutine 执行 fn。fn 返回非 nil 错误时取消整个 Group。
// fn 应监听 ctx.Done() 以响应取消。
func (g *Group) Go(fn func(ctx context.Context) error) {
	g.eg.Go(func() error {
		if fn == nil {
			return ErrNilFunc
		}
		return fn(g.ctx)
	})
}

// GoWithName 与 Go 相同，但会在日志中记录任务名称和退出原因。
func (g *Group) GoWithName(name string, fn func(ctx context.Context) error) {
	g.eg.Go(func() error {
		if fn == nil {
			return ErrNilFunc
		}
		attrs := []slog.Attr{slog.String("group", g.opts.name), slog.String("service", name)}

		g.opts.logger.Debug(g.ctx, "service starting", attrs...)
		err := fn(g.ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			g.opts.logger.Warn(g.ctx, "service exited with error", append(attrs, xlog.Err(err))...)
		} else {
			g.opts.logger.Debug(g.ctx, "service stopped", attrs...)
		}
		return err
	})
}

// HandleSignals 注册一个信号监听任务：收到 signals 中任一信号时，
// 以 [*SignalError] 为原因取消 Group。signals 为空时使用 [DefaultSignals]。
func (g *Group) HandleSignals(signals ...os.Signal) {
	if len(signals) == 0 {
		// signal.Notify(ch) 无参调用会订阅所有信号
		signals = DefaultSignals()
	}

	g.Go(func(ctx context.Context) error {
		testc := testSigChan(ctx)
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, signals...)
		defer signal.Stop(sigCh)

		var sig os.Signal
		select {
		case sig = <-testc:
		case sig = <-sigCh:
		case <-ctx.Done():
			return ctx.Err()
		}

		g.opts.logger.Info(ctx, "received signal",
			slog.String("group", g.opts.name),
			slog.String("signal", sig.String()),
		)
		g.cancel(&SignalError{Signal: sig})
		return nil
	})
}

// Wait 等待所有任务完成。
//
// 返回规则：
//   - 任务返回的首个非 context.Canceled 错误原样返回
//   - Group 被 Cancel(cause) 或信号取消时返回 cause（如 *SignalError）
//   - 无显式 cause 的取消（Cancel(nil)、父 context 取消）返回 nil
//   - context.Canceled 来自任务内部（Group 未被取消）时原样返回
func (g *Group) Wait() error {
	defer g.cancel(nil)

	err := g.eg.Wait()
	g.opts.logger.Debug(context.Background(), "all services stopped", slog.String("group", g.opts.name))

	if errors.Is(err, context.Canceled) {
		if g.causeCtx.Err() != nil {
			return g.explicitCause()
		}
		return err
	}
	if err == nil && g.causeCtx.Err() != nil {
		return g.explicitCause()
	}
	return err
}

func (g *Group) explicitCause() error {
	if cause := context.Cause(g.causeCtx); cause != nil && !errors.Is(cause, context.Canceled) {
		return cause
	}
	return nil
}

// Cancel 主动取消所有任务。cause 为 nil 时 Wait 返回 nil。
//
// cause 不应包装 context.Canceled，否则会被 Wait 当作普通取消过滤掉。
func (g *Group) Cancel(cause error) {
	g.cancel(cause)
}

// Context 返回 Group 的 context。
func (g *Group) Context() context.Context {
	return g.ctx
}
