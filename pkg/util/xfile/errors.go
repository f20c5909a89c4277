package xfile

import "errors"

var (
	// ErrEmptyPath 表示必需的路径参数为空。
	ErrEmptyPath = errors.New("xfile: path is required")

	// ErrInvalidPath 表示路径格式无效（如非绝对路径）。
	ErrInvalidPath = errors.New("xfile: invalid path")

	// ErrInvalidName 表示文件名不是裸名称（包含分隔符或为 "."/".."）。
	ErrInvalidName = errors.New("xfile: invalid file name")

	// ErrPathTraversal 表示检测到路径穿越（".." 路径段）。
	ErrPathTraversal = errors.New("xfile: path traversal detected")

	// ErrPathEscaped 表示路径超出了指定的基准目录范围。
	ErrPathEscaped = errors.New("xfile: path escapes base directory")

	// ErrNullByte 表示路径中包含空字节（\x00）。
	ErrNullByte = errors.New("xfile: path contains null byte")

	// ErrNotDir 表示路径存在但不是目录。
	ErrNotDir = errors.New("xfile: not a directory")

	// ErrNotWritable 表示目录对当前进程不可写。
	ErrNotWritable = errors.New("xfile: directory is not writable")
)
