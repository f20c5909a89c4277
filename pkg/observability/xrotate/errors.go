package xrotate

import (
	"errors"
	"fmt"
)

// 配置校验错误
var (
	// ErrEmptyDirectory 目录为空
	ErrEmptyDirectory = errors.New("xrotate: directory is required")

	// ErrInvalidFilename 基础文件名为空或包含路径分隔符
	ErrInvalidFilename = errors.New("xrotate: invalid base filename")

	// ErrEmptyLayout 时间戳格式为空
	ErrEmptyLayout = errors.New("xrotate: time layout is required")

	// ErrInvalidFileMode FileMode 包含非权限位（仅允许 0000~0777）
	ErrInvalidFileMode = errors.New("xrotate: invalid FileMode")

	// ErrInvalidLevel gzip 压缩级别无效
	ErrInvalidLevel = errors.New("xrotate: invalid compression level")

	// ErrInvalidAttempts 压缩尝试次数必须 >= 1
	ErrInvalidAttempts = errors.New("xrotate: compression attempts must be positive")
)

// 运行期错误
var (
	// ErrClosed 轮转器已关闭
	ErrClosed = errors.New("xrotate: rotator is closed")

	// ErrRotation 打开新文件或维护符号链接失败，调用方应视为致命错误
	ErrRotation = errors.New("xrotate: rotation failed")

	// ErrOpen 无法打开新的日期文件
	ErrOpen = errors.New("xrotate: open dated file")

	// ErrLink 无法维护"当前日志"符号链接
	ErrLink = errors.New("xrotate: maintain symlink")

	// ErrCompression 后台压缩失败，原文件已保留
	ErrCompression = errors.New("xrotate: compression failed")
)

// 轮转步骤
const (
	OpOpen = "open"
	OpLink = "link"
)

// RotationError 描述失败的轮转步骤。
// errors.Is(err, ErrRotation) 恒为 true，并按 Op 匹配 ErrOpen 或 ErrLink。
type RotationError struct {
	Op   string // OpOpen 或 OpLink
	Path string
	Err  error
}

func (e *RotationError) Error() string {
	return fmt.Sprintf("xrotate: %s %s: %v", e.Op, e.Path, e.Err)
}

// Is 支持 errors.Is(err, ErrRotation/ErrOpen/ErrLink)。
func (e *RotationError) Is(target error) bool {
	switch target {
	case ErrRotation:
		return true
	case ErrOpen:
		return e.Op == OpOpen
	case ErrLink:
		return e.Op == OpLink
	}
	return false
}

// Unwrap 返回底层错误。
func (e *RotationError) Unwrap() error {
	return e.Err
}

// CompressionError 描述一次失败的后台压缩。
// errors.Is(err, ErrCompression) 为 true。
type CompressionError struct {
	Path string
	Err  error
}

func (e *CompressionError) Error() string {
	return fmt.Sprintf("xrotate: compress %s: %v", e.Path, e.Err)
}

// Is 支持 errors.Is(err, ErrCompression)。
func (e *CompressionError) Is(target error) bool {
	return target == ErrCompression
}

// Unwrap 返回底层错误。
func (e *CompressionError) Unwrap() error {
	return e.Err
}
