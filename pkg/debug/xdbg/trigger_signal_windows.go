//go:build windows

package xdbg

import "context"

// SignalTrigger Windows 平台的信号触发器，从不触发。
type SignalTrigger struct{}

// NewSignalTrigger 创建信号触发器。
func NewSignalTrigger() *SignalTrigger {
	return &SignalTrigger{}
}

// Watch 返回一个在 ctx 取消时关闭、期间从不发送事件的通道。
func (t *SignalTrigger) Watch(ctx context.Context) <-chan TriggerEvent {
	ch := make(chan TriggerEvent)
	go func() {
		<-ctx.Done()
		close(ch)
	}()
	return ch
}

// Close 关闭触发器。
func (t *SignalTrigger) Close() error {
	return nil
}
