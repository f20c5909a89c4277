package xrun

import (
	"context"
	"os"
	"syscall"
	"time"
)

// DefaultSignals 返回默认监听的终止信号：SIGINT、SIGTERM。
// 每次调用返回新的切片，调用者可安全修改。
func DefaultSignals() []os.Signal {
	return []os.Signal{
		syscall.SIGINT,
		syscall.SIGTERM,
	}
}

// testSigChanKey 用于在测试中通过 context 注入信号通道，避免发送真实信号。
type testSigChanKey struct{}

func testSigChan(ctx context.Context) <-chan os.Signal {
	c, ok := ctx.Value(testSigChanKey{}).(<-chan os.Signal)
	if !ok {
		return nil
	}
	return c
}

func withTestSigChan(ctx context.Context, c <-chan os.Signal) context.Context {
	return context.WithValue(ctx, testSigChanKey{}, c)
}

// Poller 返回按动态间隔轮询的服务函数。
//
// 启动时立即执行一次 fn，之后每次调用 next 计算下一次等待时长，
// 等待结束后再次执行 fn。间隔从不缓存，时钟相关的调度（如整点前加密轮询）
// 在每一轮重新计算。fn 返回错误时服务结束；ctx 取消时返回 ctx.Err()。
//
//	g.Go(xrun.Poller(
//	    func() time.Duration { return time.Minute },
//	    func(ctx context.Context) error { return check(ctx) },
//	))
func Poller(next func() time.Duration, fn func(ctx context.Context) error) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		if next == nil || fn == nil {
			return ErrNilFunc
		}

		for {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if err := fn(ctx); err != nil {
				return err
			}

			d := next()
			if d <= 0 {
				return ErrInvalidInterval
			}
			timer := time.NewTimer(d)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			}
		}
	}
}
