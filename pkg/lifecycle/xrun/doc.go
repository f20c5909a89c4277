// Package xrun 提供基于 errgroup + context 的进程生命周期管理。
//
// [Group] 并发运行若干长期任务，任一任务失败、收到终止信号或调用
// [Group.Cancel] 时取消全部任务，[Group.Wait] 返回首个有意义的退出原因。
//
// # 信号
//
// [Group.HandleSignals] 注册信号监听任务，收到信号时以 [*SignalError]
// 为原因取消 Group：
//
//	err := g.Wait()
//	if errors.Is(err, xrun.ErrSignal) {
//	    // 正常的信号退出
//	}
//
// # 轮询
//
// [Poller] 以动态间隔反复执行同一函数，间隔在每一轮重新计算。
//
// # 错误处理
//
//   - 任务返回非 nil、非 context.Canceled 的错误时，Wait 直接返回该错误
//   - Group 被主动取消且带 cause 时，Wait 返回 cause
//   - 无 cause 的取消返回 nil
//   - context.Canceled 来自任务内部（Group 本身未被取消）时不被过滤
//
// errgroup 只保留第一个错误，其余任务的错误应在任务内部记录日志。
package xrun
