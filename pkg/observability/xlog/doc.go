// Package xlog 是 rotatelog 的诊断日志库，基于 log/slog。
//
// rotatelog 的 stdout 属于上游管道、日志文件属于被转发的数据，
// 因此自身诊断只写 stderr（或调用方指定的 io.Writer）。
//
// # 创建 Logger
//
// Builder 采用 first-error-wins：遇到第一个配置错误后，后续 Set 操作的错误被忽略，
// Build 返回该错误。
//
//	logger, err := xlog.New().
//		SetOutput(os.Stderr).
//		SetLevelString("info").
//		SetFormat("json").
//		Build()
//
// # 日志级别
//
// LevelDebug(-4)、LevelInfo(0)、LevelWarn(4)、LevelError(8)，可通过 [ParseLevel]
// 从命令行参数解析。Level 实现 encoding.TextMarshaler/TextUnmarshaler。
//
// # 便捷属性
//
// [Err]、[Component]、[Operation]、[Path]、[Bytes]、[Duration]。
package xlog
