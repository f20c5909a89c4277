package xfile

import (
	"fmt"
	"os"
)

// RequireDir 确认 dir 是已存在、且当前进程可写的目录。
//
// 日志目录由运维预先创建，这里只校验不创建：写错目录名时立即失败，
// 而不是在一个意料之外的位置悄悄建出目录树。
func RequireDir(dir string) error {
	if dir == "" {
		return fmt.Errorf("directory is required: %w", ErrEmptyPath)
	}
	if containsNullByte(dir) {
		return fmt.Errorf("directory contains null byte: %w", ErrNullByte)
	}

	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("stat directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s: %w", dir, ErrNotDir)
	}
	if err := checkWritable(dir); err != nil {
		return fmt.Errorf("%s: %w: %w", dir, ErrNotWritable, err)
	}
	return nil
}
