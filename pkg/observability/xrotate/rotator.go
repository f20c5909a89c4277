package xrotate

import "io"

var _ io.WriteCloser = (Rotator)(nil)

// Rotator 日志轮转器接口
//
// 约定：
//   - 所有方法并发安全
//   - Close 后调用 Write 或 Rotate 返回 [ErrClosed]
//   - Rotate 可以在任意时刻调用，目标文件未变化时为空操作
type Rotator interface {
	// Write 写入当前活动文件
	Write(p []byte) (n int, err error)

	// Close 关闭当前活动文件，重复调用返回 [ErrClosed]
	Close() error

	// Rotate 切换到当前时刻对应的文件
	Rotate() error
}
