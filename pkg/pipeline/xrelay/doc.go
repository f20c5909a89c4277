// Package xrelay 把输入字节流搬运到可轮转的输出，并决定何时轮转。
//
// 组成：
//
//   - [Flag]: 跨 goroutine 的原子标志。轮转信号由多个写者 Set，
//     只有 [Relay] 通过 Take 读取并清除，因此不存在丢失唤醒。
//   - [ClockWatcher]: 轮询本地日期，日期变化时置位轮转信号。
//     每小时最后一分钟内改为每秒轮询，并同步维护"临近日终"标志。
//   - [Relay]: 热路径。临近日终时按行读取，保证轮转边界不会落在
//     一行中间；其余时间按块读取以获得吞吐。每次写入前检查轮转信号。
//
// Relay 与 ClockWatcher 都实现 Run(ctx) error，可直接交给 xrun.Group 运行。
package xrelay
