package xrelay

import (
	"bufio"
	"context"
	"errors"
	"io"
	"sync/atomic"
	"time"

	"github.com/omeyang/rotatelog/pkg/observability/xmetrics"
)

const (
	// DefaultBufferSize 块读取的缓冲区大小
	DefaultBufferSize = 32 * 1024

	// DefaultShortReadPause 只读到 1 字节时的暂停时长，避免对慢速生产者空转
	DefaultShortReadPause = 10 * time.Millisecond
)

// Sink 是 Relay 的输出端：可写入、可按需轮转。
// Rotate 在目标未变化时必须是空操作。
type Sink interface {
	io.Writer
	Rotate() error
}

// RelayOption 配置 [Relay]。
type RelayOption func(*Relay)

// WithBufferSize 设置块读取缓冲区大小，非正值被忽略。
func WithBufferSize(n int) RelayOption {
	return func(r *Relay) {
		if n > 0 {
			r.bufSize = n
		}
	}
}

// WithShortReadPause 设置短读暂停时长，0 表示不暂停。
func WithShortReadPause(d time.Duration) RelayOption {
	return func(r *Relay) {
		if d >= 0 {
			r.pause = d
		}
	}
}

// WithSleep 替换暂停函数，默认 time.Sleep。
func WithSleep(sleep func(time.Duration)) RelayOption {
	return func(r *Relay) {
		if sleep != nil {
			r.sleep = sleep
		}
	}
}

// WithRelayObserver 设置观测器，每次 Run 记录一个 relay 跨度。
func WithRelayObserver(obs xmetrics.Observer) RelayOption {
	return func(r *Relay) {
		if obs != nil {
			r.observer = obs
		}
	}
}

// Relay 把输入搬运到 Sink，在写入前响应轮转信号。
type Relay struct {
	in      *bufio.Reader
	out     Sink
	signal  *Flag
	nearEnd *Flag

	bufSize  int
	pause    time.Duration
	sleep    func(time.Duration)
	observer xmetrics.Observer

	written atomic.Int64
}

// NewRelay 创建 Relay。signal 由 Relay 独占清除；nearEnd 只读。
func NewRelay(in io.Reader, out Sink, signal, nearEnd *Flag, opts ...RelayOption) (*Relay, error) {
	if in == nil || out == nil || signal == nil || nearEnd == nil {
		return nil, ErrNilArgument
	}
	r := &Relay{
		out:      out,
		signal:   signal,
		nearEnd:  nearEnd,
		bufSize:  DefaultBufferSize,
		pause:    DefaultShortReadPause,
		sleep:    time.Sleep,
		observer: xmetrics.NoopObserver{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	r.in = bufio.NewReaderSize(in, r.bufSize)
	return r, nil
}

// Written 返回已写入 Sink 的字节数。
func (r *Relay) Written() int64 {
	return r.written.Load()
}

// Run 搬运数据直到输入结束（返回 nil）、出错或 ctx 取消。
//
// 读取在内部 goroutine 中进行：ctx 取消时 Run 立即返回 ctx.Err()，
// 阻塞中的读取被放弃，由进程退出回收。
func (r *Relay) Run(ctx context.Context) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	_, span := xmetrics.Start(ctx, r.observer, xmetrics.SpanOptions{
		Component: "xrelay",
		Operation: "relay",
	})
	defer func() {
		span.End(xmetrics.Result{Err: err, Attrs: []xmetrics.Attr{{Key: "bytes", Value: r.Written()}}})
	}()

	done := make(chan error, 1)
	go func() {
		done <- r.loop(ctx)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Relay) loop(ctx context.Context) error {
	buf := make([]byte, r.bufSize)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		chunk, rerr := r.read(buf)
		if len(chunk) > 0 {
			if err := r.write(chunk); err != nil {
				return err
			}
			if len(chunk) == 1 && rerr == nil && r.pause > 0 {
				r.sleep(r.pause)
			}
		}

		if rerr != nil {
			if errors.Is(rerr, io.EOF) {
				return nil
			}
			return &ReadError{Err: rerr}
		}
	}
}

// read 临近日终时读到换行为止，否则按块读取。
//
// 行模式下单行最多缓冲 bufSize 字节，超长的行按缓冲区大小分段写出。
// 返回的切片在下一次 read 前有效。
func (r *Relay) read(buf []byte) ([]byte, error) {
	if r.nearEnd.Load() {
		line, err := r.in.ReadSlice('\n')
		if errors.Is(err, bufio.ErrBufferFull) {
			return line, nil
		}
		return line, err
	}
	n, err := r.in.Read(buf)
	return buf[:n], err
}

func (r *Relay) write(chunk []byte) error {
	if r.signal.Take() {
		if err := r.out.Rotate(); err != nil {
			return err
		}
	}
	n, err := r.out.Write(chunk)
	r.written.Add(int64(n))
	return err
}
