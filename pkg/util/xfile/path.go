package xfile

import (
	"fmt"
	"path/filepath"
	"strings"
)

func containsNullByte(path string) bool {
	return strings.ContainsRune(path, 0)
}

// hasDotDotSegment 检测路径中是否包含 ".." 作为独立路径段。
// '/' 和 '\' 都视为分隔符，Windows 风格的穿越在 Linux 上同样拒绝。
func hasDotDotSegment(path string) bool {
	i := 0
	for i < len(path) {
		if path[i] == '/' || path[i] == '\\' {
			i++
			continue
		}
		j := i
		for j < len(path) && path[j] != '/' && path[j] != '\\' {
			j++
		}
		if j-i == 2 && path[i] == '.' && path[i+1] == '.' {
			return true
		}
		i = j
	}
	return false
}

// CleanDir 规范化目录参数并返回其绝对路径。
//
// 允许尾随分隔符（"/var/log/"），相对路径按当前工作目录解析。
// 本函数只做字符串处理，不访问文件系统；存在性检查见 [RequireDir]。
func CleanDir(dir string) (string, error) {
	if dir == "" {
		return "", fmt.Errorf("directory is required: %w", ErrEmptyPath)
	}
	if containsNullByte(dir) {
		return "", fmt.Errorf("directory contains null byte: %w", ErrNullByte)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolve directory %q: %w: %w", dir, ErrInvalidPath, err)
	}
	return abs, nil
}

// BaseName 校验 name 是裸文件名并原样返回。
//
// 裸文件名不含 '/' 或 '\'，且不是 "." 或 ".."。
// 前导空白等其他字符都按原样保留，文件系统允许的名字这里都接受。
func BaseName(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("file name is required: %w", ErrEmptyPath)
	}
	if containsNullByte(name) {
		return "", fmt.Errorf("file name contains null byte: %w", ErrNullByte)
	}
	if strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("file name %q contains a path separator: %w", name, ErrInvalidName)
	}
	if name == "." || name == ".." {
		return "", fmt.Errorf("file name %q: %w", name, ErrInvalidName)
	}
	return name, nil
}

// SafeJoin 把相对路径 path 拼接到绝对目录 base，结果保证位于 base 之内。
//
//	SafeJoin("/var/log", "app")           // -> "/var/log/app", nil
//	SafeJoin("/var/log", "../etc/passwd") // -> "", ErrPathTraversal
//	SafeJoin("/var/log", "/etc/passwd")   // -> "", ErrInvalidPath
//
// 不解析符号链接：返回的是经过校验的路径字符串，与后续文件操作之间
// 存在 TOCTOU 窗口，适用于可信环境下的路径构建。
func SafeJoin(base, path string) (string, error) {
	cleanBase, err := validateBase(base)
	if err != nil {
		return "", err
	}
	cleanPath, err := validatePath(path)
	if err != nil {
		return "", err
	}

	joined := filepath.Join(cleanBase, cleanPath)
	rel, err := filepath.Rel(cleanBase, joined)
	if err != nil || hasDotDotSegment(rel) {
		return "", ErrPathEscaped
	}
	return joined, nil
}

func validateBase(base string) (string, error) {
	if base == "" {
		return "", fmt.Errorf("base directory is required: %w", ErrEmptyPath)
	}
	if containsNullByte(base) {
		return "", fmt.Errorf("base contains null byte: %w", ErrNullByte)
	}
	cleanBase := filepath.Clean(base)
	if !filepath.IsAbs(cleanBase) {
		return "", fmt.Errorf("base must be an absolute path: %w", ErrInvalidPath)
	}
	return cleanBase, nil
}

func validatePath(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("path is required: %w", ErrEmptyPath)
	}
	if containsNullByte(path) {
		return "", fmt.Errorf("path contains null byte: %w", ErrNullByte)
	}
	if filepath.IsAbs(path) || strings.HasPrefix(path, `\`) {
		return "", fmt.Errorf("path must be relative: %w", ErrInvalidPath)
	}
	cleanPath := filepath.Clean(path)
	if hasDotDotSegment(cleanPath) {
		return "", fmt.Errorf("path traversal in path: %w", ErrPathTraversal)
	}
	return cleanPath, nil
}
