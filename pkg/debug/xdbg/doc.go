// Package xdbg 提供调试期的带外触发器。
//
// [SignalTrigger] 监听 SIGUSR1，收到信号时发出 [TriggerEventRotate]，
// 运维或测试脚本借此强制立即轮转，而不必等待日期变化：
//
//	kill -USR1 $(pidof rotatelog)
//
// 触发器只在调试模式下由调用方启用，生产环境不注册信号处理，
// SIGUSR1 保持系统默认行为。[Forward] 把触发器事件转交给回调，
// 返回的函数可直接作为 xrun 任务运行。
//
// Windows 不支持该信号，SignalTrigger 退化为从不触发的空实现。
package xdbg
