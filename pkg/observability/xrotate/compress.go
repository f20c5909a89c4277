package xrotate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"sync"
	"time"

	"github.com/avast/retry-go/v5"
	"github.com/klauspost/compress/gzip"

	"github.com/omeyang/rotatelog/pkg/observability/xmetrics"
)

//go:generate mockgen -source=compress.go -destination=mock_compressor_test.go -package=xrotate Compressor

// Compressor 接收被轮转取代的文件路径并在后台处理。
//
// Compress 必须立即返回，不得阻塞写入路径；处理失败只能通过实现自身的
// 错误回调上报。
type Compressor interface {
	Compress(path string)
}

// Outcome 描述一次压缩任务的结果。
type Outcome string

const (
	// OutcomeCompressed 生成了 path.gz 并删除了原文件
	OutcomeCompressed Outcome = "compressed"

	// OutcomeRemovedEmpty 原文件为空，直接删除，不生成 .gz
	OutcomeRemovedEmpty Outcome = "removed-empty"
)

const (
	// DefaultAttempts 默认压缩尝试次数（含首次）
	DefaultAttempts = 3

	// DefaultRetryDelay 默认重试间隔
	DefaultRetryDelay = 100 * time.Millisecond
)

// CompressorOption 配置 [GzipCompressor]。
type CompressorOption func(*GzipCompressor)

// WithLevel 设置 gzip 压缩级别，默认 gzip.DefaultCompression。
func WithLevel(level int) CompressorOption {
	return func(c *GzipCompressor) {
		c.level = level
	}
}

// WithAttempts 设置每个文件的最大尝试次数（含首次），必须 >= 1。
func WithAttempts(n uint) CompressorOption {
	return func(c *GzipCompressor) {
		c.attempts = n
	}
}

// WithRetryDelay 设置两次尝试之间的固定间隔。
func WithRetryDelay(d time.Duration) CompressorOption {
	return func(c *GzipCompressor) {
		if d >= 0 {
			c.delay = d
		}
	}
}

// WithOnError 设置压缩失败回调，参数为 [*CompressionError]。
//
// 回调在压缩 goroutine 中执行，内部 panic 会被恢复。
// 回调内部不应再触发轮转，避免递归。
func WithOnError(fn func(error)) CompressorOption {
	return func(c *GzipCompressor) {
		c.onError = fn
	}
}

// WithOnDone 设置压缩成功回调。
func WithOnDone(fn func(path string, outcome Outcome)) CompressorOption {
	return func(c *GzipCompressor) {
		c.onDone = fn
	}
}

// WithCompressorObserver 设置观测器，每个文件记录一个 compress 跨度。
func WithCompressorObserver(obs xmetrics.Observer) CompressorOption {
	return func(c *GzipCompressor) {
		c.observer = obs
	}
}

// GzipCompressor 为每个文件启动独立 goroutine 执行 [CompressAndRemove]。
//
// 进程退出时不等待在途任务：被打断的任务最多留下原文件与一个不完整的
// .gz，原文件始终完好。
type GzipCompressor struct {
	level    int
	attempts uint
	delay    time.Duration
	onError  func(error)
	onDone   func(string, Outcome)
	observer xmetrics.Observer

	wg sync.WaitGroup
}

var _ Compressor = (*GzipCompressor)(nil)

// NewGzipCompressor 创建压缩器。
func NewGzipCompressor(opts ...CompressorOption) (*GzipCompressor, error) {
	c := &GzipCompressor{
		level:    gzip.DefaultCompression,
		attempts: DefaultAttempts,
		delay:    DefaultRetryDelay,
		observer: xmetrics.NoopObserver{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	if c.attempts == 0 {
		return nil, ErrInvalidAttempts
	}
	if _, err := gzip.NewWriterLevel(io.Discard, c.level); err != nil {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLevel, c.level)
	}
	return c, nil
}

// Compress 异步压缩 path，立即返回。
func (c *GzipCompressor) Compress(path string) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.run(path)
	}()
}

// Wait 阻塞直到所有在途任务结束。仅供测试与需要确定性的调用方使用。
func (c *GzipCompressor) Wait() {
	c.wg.Wait()
}

func (c *GzipCompressor) run(path string) {
	_, span := xmetrics.Start(context.Background(), c.observer, xmetrics.SpanOptions{
		Component: "xrotate",
		Operation: "compress",
		Attrs:     []xmetrics.Attr{{Key: "path", Value: path}},
	})

	var outcome Outcome
	err := retry.New(
		retry.Attempts(c.attempts),
		retry.Delay(c.delay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		// 文件已被外部移走时重试没有意义
		retry.RetryIf(func(err error) bool {
			return !errors.Is(err, fs.ErrNotExist)
		}),
	).Do(func() error {
		var err error
		outcome, err = CompressAndRemove(path, c.level)
		return err
	})

	span.End(xmetrics.Result{Err: err, Attrs: []xmetrics.Attr{{Key: "outcome", Value: string(outcome)}}})

	if err != nil {
		c.reportError(&CompressionError{Path: path, Err: err})
		return
	}
	if c.onDone != nil {
		c.onDone(path, outcome)
	}
}

func (c *GzipCompressor) reportError(err error) {
	if c.onError == nil {
		return
	}
	defer func() {
		_ = recover() //nolint:errcheck // 回调 panic 不得终止进程
	}()
	c.onError(err)
}

// CompressAndRemove 把 path 压缩为 path.gz 并删除原文件，同步执行。
//
// 结束时磁盘上恰好保留 path 与 path.gz 之一：
//   - 原文件为空：直接删除，不生成 .gz
//   - 编码失败：撤销本次写入，保留原文件
//   - 删除原文件失败：撤销本次写入，保留原文件
//
// path.gz 已存在且是完整的 gzip 流时（时钟回拨后同一日期的文件被再次轮转），
// 新内容作为独立的 gzip 成员追加在末尾，解压得到两段内容的拼接；
// 不完整的 .gz 视为崩溃残留，直接覆盖。
//
// gzip 头部记录原文件名与修改时间，新建的 .gz 沿用原文件权限位。
func CompressAndRemove(path string, level int) (Outcome, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("%s: not a regular file", path)
	}

	if info.Size() == 0 {
		if err := os.Remove(path); err != nil {
			return "", err
		}
		return OutcomeRemovedEmpty, nil
	}

	dst := path + CompressedSuffix
	keep, err := archiveSize(dst)
	if err != nil {
		return "", err
	}
	if err := encodeFile(path, dst, info, level, keep); err != nil {
		return "", err
	}

	if err := os.Remove(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return OutcomeCompressed, nil
		}
		rollbackArchive(dst, keep)
		return "", fmt.Errorf("remove original: %w", err)
	}
	return OutcomeCompressed, nil
}

// archiveSize 返回 dst 中需要保留的字节数：不存在或不是完整 gzip 流时为 0。
func archiveSize(dst string) (int64, error) {
	info, err := os.Lstat(dst)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if !info.Mode().IsRegular() {
		return 0, fmt.Errorf("%s: not a regular file", dst)
	}
	if !completeGzip(dst) {
		return 0, nil
	}
	return info.Size(), nil
}

// completeGzip 解码 path 的全部成员，校验和与长度均正确时返回 true。
func completeGzip(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer func() {
		_ = f.Close() //nolint:errcheck // 只读句柄
	}()

	zr, err := gzip.NewReader(f)
	if err != nil {
		return false
	}
	defer func() {
		_ = zr.Close() //nolint:errcheck // 只读
	}()
	_, err = io.Copy(io.Discard, zr)
	return err == nil
}

// rollbackArchive 撤销本次写入：原先没有可保留内容时删除 dst，否则截回原长度。
func rollbackArchive(dst string, keep int64) {
	if keep == 0 {
		_ = os.Remove(dst) //nolint:errcheck // 尽力清理，返回原始错误
		return
	}
	_ = os.Truncate(dst, keep) //nolint:errcheck // 尽力恢复，返回原始错误
}

// encodeFile 把 src 编码为一个 gzip 成员，写在 dst 的前 keep 字节之后。
func encodeFile(src, dst string, info fs.FileInfo, level int, keep int64) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() {
		_ = in.Close() //nolint:errcheck // 只读句柄
	}()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE, info.Mode().Perm())
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = cerr
		}
		if err != nil {
			rollbackArchive(dst, keep)
		}
	}()

	if err := out.Truncate(keep); err != nil {
		return err
	}
	if _, err := out.Seek(keep, io.SeekStart); err != nil {
		return err
	}

	zw, err := gzip.NewWriterLevel(out, level)
	if err != nil {
		return err
	}
	zw.Name = info.Name()
	zw.ModTime = info.ModTime()

	if _, err := io.Copy(zw, in); err != nil {
		_ = zw.Close() //nolint:errcheck // 返回拷贝错误
		return fmt.Errorf("encode: %w", err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("flush: %w", err)
	}
	return out.Sync()
}
