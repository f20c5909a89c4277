//go:build !windows

package xdbg

import (
	"context"
	"os"
	"os/signal"
	"sync"

	"golang.org/x/sys/unix"
)

// SignalTrigger 信号触发器。
// 监听 SIGUSR1，收到信号时发出 Rotate 事件。
type SignalTrigger struct {
	sigCh     chan os.Signal
	closeOnce sync.Once
	done      chan struct{}
}

// NewSignalTrigger 创建信号触发器。创建本身不注册信号处理，Watch 时才注册。
func NewSignalTrigger() *SignalTrigger {
	return &SignalTrigger{
		sigCh: make(chan os.Signal, 1),
		done:  make(chan struct{}),
	}
}

// Watch 注册 SIGUSR1 并开始监听。
//
// 事件通道容量为 1，消费方来不及处理时多余的信号被合并：
// 一次挂起的轮转请求已经足够。
func (t *SignalTrigger) Watch(ctx context.Context) <-chan TriggerEvent {
	eventCh := make(chan TriggerEvent, 1)

	signal.Notify(t.sigCh, unix.SIGUSR1)

	go func() {
		defer close(eventCh)
		defer signal.Stop(t.sigCh)

		for {
			select {
			case <-ctx.Done():
				return
			case <-t.done:
				return
			case sig := <-t.sigCh:
				if sig != unix.SIGUSR1 {
					continue
				}
				select {
				case eventCh <- TriggerEventRotate:
				default:
				}
			}
		}
	}()

	return eventCh
}

// Close 停止接收信号并结束所有 Watch。
func (t *SignalTrigger) Close() error {
	t.closeOnce.Do(func() {
		signal.Stop(t.sigCh)
		close(t.done)
	})
	return nil
}
