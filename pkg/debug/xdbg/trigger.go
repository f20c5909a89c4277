package xdbg

import "context"

// TriggerEvent 触发事件类型。
type TriggerEvent int

const (
	// TriggerEventRotate 请求立即轮转。
	TriggerEventRotate TriggerEvent = iota + 1
)

// String 返回触发事件的字符串表示。
func (e TriggerEvent) String() string {
	switch e {
	case TriggerEventRotate:
		return "Rotate"
	default:
		return "Unknown"
	}
}

// Trigger 触发器接口。
// 触发器负责监听外部事件（如信号）并转换为 TriggerEvent。
type Trigger interface {
	// Watch 开始监听触发事件，返回事件通道。
	// ctx 取消或触发器关闭后通道被关闭。
	Watch(ctx context.Context) <-chan TriggerEvent

	// Close 关闭触发器，释放资源。可重复调用。
	Close() error
}

// Forward 返回一个任务函数：持续把 t 的事件交给 fn，直到 ctx 取消
// 或事件通道关闭。ctx 取消时返回 ctx.Err()，通道关闭时返回 nil。
func Forward(t Trigger, fn func(TriggerEvent)) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		if t == nil || fn == nil {
			return ErrNilTrigger
		}
		events := t.Watch(ctx)
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case ev, ok := <-events:
				if !ok {
					if ctx.Err() != nil {
						return ctx.Err()
					}
					return nil
				}
				fn(ev)
			}
		}
	}
}
