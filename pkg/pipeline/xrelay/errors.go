package xrelay

import (
	"errors"
	"fmt"
)

var (
	// ErrRead 读取输入失败（EOF 除外），调用方应视为致命错误
	ErrRead = errors.New("xrelay: read input")

	// ErrNilArgument 构造参数为 nil
	ErrNilArgument = errors.New("xrelay: nil argument")
)

// ReadError 包装输入端的读取失败。errors.Is(err, ErrRead) 为 true。
type ReadError struct {
	Err error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("xrelay: read input: %v", e.Err)
}

// Is 支持 errors.Is(err, ErrRead)。
func (e *ReadError) Is(target error) bool {
	return target == ErrRead
}

// Unwrap 返回底层错误。
func (e *ReadError) Unwrap() error {
	return e.Err
}
