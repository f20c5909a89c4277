// Package xrotate 实现按日期命名的日志文件轮转。
//
// [Dated] 是轮转引擎：持有当前写入的文件 dir/base-<时间戳>，并维护
// "当前日志"符号链接 dir/base。[Dated.Rotate] 根据时钟计算新文件名，
// 名字未变时为空操作；否则打开新文件、原子替换符号链接、关闭旧句柄，
// 并在启用压缩时把被取代的文件交给 [Compressor] 后台处理。
//
// # 符号链接
//
// 链接目标使用相对文件名（如 app-2024-01-02），目录被移动或以相对路径
// 启动时链接依然有效。替换通过"临时链接 + rename"完成，任何时刻链接
// 要么不存在，要么指向一个存在的文件。压缩任务在链接替换之后才派发，
// 因此链接不会指向正在被压缩删除的文件。
//
// # 压缩
//
// [GzipCompressor] 为每个被取代的文件启动一个独立 goroutine：
// 空文件直接删除；否则写出 path.gz，成功后删除原文件。任何失败都会
// 清理不完整的 .gz 并保留原文件，错误通过 OnError 回调上报，从不影响写入路径。
//
// # 并发
//
// Dated 的所有方法并发安全。Close 后调用 Write 或 Rotate 返回 [ErrClosed]。
package xrotate
