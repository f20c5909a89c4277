// Package xmetrics 为轮转与压缩等文件操作提供统一的观测接口（metrics + tracing）。
//
// # 设计理念
//
// 只定义最小化接口 Observer/Span/Attr，调用方仅依赖接口；
// 默认实现基于 OpenTelemetry，未配置 Provider 时退化为全局（通常是 no-op）实现。
//
// # 使用示例
//
//	obs, _ := xmetrics.NewOTelObserver()
//	_, span := xmetrics.Start(ctx, obs, xmetrics.SpanOptions{
//		Component: "xrotate",
//		Operation: "rotate",
//	})
//	defer span.End(xmetrics.Result{Err: err})
//
// # 进程内汇总
//
// [Recorder] 把指标保存在进程内，退出前用 Snapshot 取出每类操作的
// 次数与耗时，无需部署任何采集端。
//
// # 指标命名
//
//   - rotatelog.operation.total
//   - rotatelog.operation.duration
//
// 统一属性：component / operation / status。
package xmetrics
