package xrelay

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"testing/iotest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omeyang/rotatelog/pkg/observability/xmetrics"
	"github.com/omeyang/rotatelog/pkg/observability/xrotate"
)

// ============================================================================
// 测试辅助
// ============================================================================

// memSink 把每次轮转视为一个新文件，记录每个文件收到的写入块。
type memSink struct {
	mu        sync.Mutex
	files     [][]string
	rotateErr error
	writeErr  error
}

func newMemSink() *memSink {
	return &memSink{files: [][]string{nil}}
}

func (s *memSink) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writeErr != nil {
		return 0, s.writeErr
	}
	last := len(s.files) - 1
	s.files[last] = append(s.files[last], string(p))
	return len(p), nil
}

func (s *memSink) Rotate() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rotateErr != nil {
		return s.rotateErr
	}
	s.files = append(s.files, nil)
	return nil
}

func (s *memSink) contents() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.files))
	for i, chunks := range s.files {
		out[i] = strings.Join(chunks, "")
	}
	return out
}

func (s *memSink) chunks() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, f := range s.files {
		out = append(out, f...)
	}
	return out
}

// scriptReader 依次返回预设片段，返回第 i 个片段前执行 hooks[i]。
type scriptReader struct {
	pieces []string
	hooks  map[int]func()
	next   int
}

func (r *scriptReader) Read(p []byte) (int, error) {
	if r.next >= len(r.pieces) {
		return 0, io.EOF
	}
	if hook := r.hooks[r.next]; hook != nil {
		hook()
	}
	n := copy(p, r.pieces[r.next])
	r.next++
	return n, nil
}

func newTestRelay(t *testing.T, in io.Reader, out Sink, signal, nearEnd *Flag, opts ...RelayOption) *Relay {
	t.Helper()
	r, err := NewRelay(in, out, signal, nearEnd, append([]RelayOption{WithShortReadPause(0)}, opts...)...)
	require.NoError(t, err)
	return r
}

// ============================================================================
// 构造
// ============================================================================

func TestNewRelay_Nil(t *testing.T) {
	in, out := strings.NewReader(""), newMemSink()
	tests := []struct {
		name    string
		in      io.Reader
		out     Sink
		signal  *Flag
		nearEnd *Flag
	}{
		{"nil 输入", nil, out, &Flag{}, &Flag{}},
		{"nil 输出", in, nil, &Flag{}, &Flag{}},
		{"nil 信号", in, out, nil, &Flag{}},
		{"nil 日终标志", in, out, &Flag{}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRelay(tt.in, tt.out, tt.signal, tt.nearEnd)
			assert.ErrorIs(t, err, ErrNilArgument)
		})
	}
}

// ============================================================================
// 读写语义
// ============================================================================

func TestRelay_EmptyInput(t *testing.T) {
	sink := newMemSink()
	var signal, nearEnd Flag
	signal.Set()

	r := newTestRelay(t, strings.NewReader(""), sink, &signal, &nearEnd)
	require.NoError(t, r.Run(context.Background()))

	assert.Equal(t, []string{""}, sink.contents(), "无数据时不写入也不轮转")
	assert.True(t, signal.Load(), "没有写入就不消费轮转信号")
	assert.Zero(t, r.Written())
}

func TestRelay_AllBytesInOrderAcrossRotations(t *testing.T) {
	sink := newMemSink()
	var signal, nearEnd Flag

	in := &scriptReader{
		pieces: []string{"one\n", "two\n", "three\n", "four\n"},
		hooks: map[int]func(){
			1: signal.Set,
			3: signal.Set,
		},
	}
	r := newTestRelay(t, in, sink, &signal, &nearEnd)
	require.NoError(t, r.Run(context.Background()))

	assert.Equal(t, []string{"one\n", "two\nthree\n", "four\n"}, sink.contents())
	assert.Equal(t, int64(len("one\ntwo\nthree\nfour\n")), r.Written())
	assert.False(t, signal.Load())
}

func TestRelay_PartialDataWithEOF(t *testing.T) {
	sink := newMemSink()
	var signal, nearEnd Flag

	r := newTestRelay(t, iotest.DataErrReader(strings.NewReader("no newline")), sink, &signal, &nearEnd)
	require.NoError(t, r.Run(context.Background()))

	assert.Equal(t, []string{"no newline"}, sink.contents())
}

func TestRelay_NearEndReadsLines(t *testing.T) {
	sink := newMemSink()
	var signal, nearEnd Flag
	nearEnd.Set()

	r := newTestRelay(t, strings.NewReader("a\nbb\nccc"), sink, &signal, &nearEnd)
	require.NoError(t, r.Run(context.Background()))

	assert.Equal(t, []string{"a\n", "bb\n", "ccc"}, sink.chunks())
}

func TestRelay_NearEndRotationOnLineBoundary(t *testing.T) {
	sink := newMemSink()
	var signal, nearEnd Flag
	nearEnd.Set()

	// 整段数据一次到达，按行读取使轮转发生在行边界上
	in := &scriptReader{pieces: []string{"23:59:59 last\n00:00:00 first\n"}}
	hookOnce := sync.Once{}
	r := newTestRelay(t, in, &hookSink{memSink: sink, afterWrite: func() {
		hookOnce.Do(signal.Set)
	}}, &signal, &nearEnd)
	require.NoError(t, r.Run(context.Background()))

	assert.Equal(t, []string{"23:59:59 last\n", "00:00:00 first\n"}, sink.contents())
}

// hookSink 在每次写入后执行回调。
type hookSink struct {
	*memSink
	afterWrite func()
}

func (s *hookSink) Write(p []byte) (int, error) {
	n, err := s.memSink.Write(p)
	s.afterWrite()
	return n, err
}

func TestRelay_BulkRead(t *testing.T) {
	sink := newMemSink()
	var signal, nearEnd Flag

	r := newTestRelay(t, strings.NewReader("a\nb\nc\n"), sink, &signal, &nearEnd)
	require.NoError(t, r.Run(context.Background()))

	assert.Equal(t, []string{"a\nb\nc\n"}, sink.chunks())
}

func TestRelay_ShortReadPause(t *testing.T) {
	sink := newMemSink()
	var signal, nearEnd Flag

	var pauses []time.Duration
	r := newTestRelay(t, iotest.OneByteReader(strings.NewReader("abc")), sink, &signal, &nearEnd,
		WithShortReadPause(5*time.Millisecond),
		WithSleep(func(d time.Duration) { pauses = append(pauses, d) }),
	)
	require.NoError(t, r.Run(context.Background()))

	assert.Equal(t, []string{"abc"}, sink.contents())
	assert.Equal(t, []time.Duration{5 * time.Millisecond, 5 * time.Millisecond, 5 * time.Millisecond}, pauses)
}

func TestRelay_NoPauseForLargerReads(t *testing.T) {
	sink := newMemSink()
	var signal, nearEnd Flag

	r := newTestRelay(t, strings.NewReader("abc"), sink, &signal, &nearEnd,
		WithShortReadPause(time.Millisecond),
		WithSleep(func(time.Duration) { t.Error("unexpected pause") }),
	)
	require.NoError(t, r.Run(context.Background()))
}

func TestRelay_SmallBuffer(t *testing.T) {
	sink := newMemSink()
	var signal, nearEnd Flag

	// bufio 的最小缓冲区为 16 字节
	input := strings.Repeat("0123456789", 10)
	r := newTestRelay(t, strings.NewReader(input), sink, &signal, &nearEnd, WithBufferSize(16))
	require.NoError(t, r.Run(context.Background()))

	assert.Equal(t, []string{input}, sink.contents())
	for _, c := range sink.chunks() {
		assert.LessOrEqual(t, len(c), 16)
	}
}

func TestRelay_NearEndLongLineFlushedInPieces(t *testing.T) {
	sink := newMemSink()
	var signal, nearEnd Flag
	nearEnd.Set()

	// 没有换行的长输出不能整段滞留在内存里
	long := strings.Repeat("x", 40)
	r := newTestRelay(t, strings.NewReader(long+"\nend\n"), sink, &signal, &nearEnd, WithBufferSize(16))
	require.NoError(t, r.Run(context.Background()))

	assert.Equal(t, []string{
		strings.Repeat("x", 16),
		strings.Repeat("x", 16),
		strings.Repeat("x", 8) + "\n",
		"end\n",
	}, sink.chunks())
	assert.Equal(t, int64(len(long)+5), r.Written())
}

// ============================================================================
// 错误
// ============================================================================

func TestRelay_ReadError(t *testing.T) {
	sink := newMemSink()
	var signal, nearEnd Flag
	boom := errors.New("broken pipe")

	in := io.MultiReader(strings.NewReader("kept\n"), iotest.ErrReader(boom))
	r := newTestRelay(t, in, sink, &signal, &nearEnd)
	err := r.Run(context.Background())

	require.ErrorIs(t, err, ErrRead)
	require.ErrorIs(t, err, boom)
	var rerr *ReadError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, []string{"kept\n"}, sink.contents(), "出错前读到的数据已写入")
}

func TestRelay_RotateError(t *testing.T) {
	sink := newMemSink()
	sink.rotateErr = errors.New("cannot open")
	var signal, nearEnd Flag
	signal.Set()

	r := newTestRelay(t, strings.NewReader("data"), sink, &signal, &nearEnd)
	err := r.Run(context.Background())

	require.ErrorIs(t, err, sink.rotateErr)
	assert.Equal(t, []string{""}, sink.contents(), "轮转失败时不写入")
}

func TestRelay_WriteError(t *testing.T) {
	sink := newMemSink()
	sink.writeErr = errors.New("disk full")
	var signal, nearEnd Flag

	r := newTestRelay(t, strings.NewReader("data"), sink, &signal, &nearEnd)
	require.ErrorIs(t, r.Run(context.Background()), sink.writeErr)
}

// ============================================================================
// 取消
// ============================================================================

func TestRelay_CancelWhileBlocked(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()

	sink := newMemSink()
	var signal, nearEnd Flag
	r := newTestRelay(t, pr, sink, &signal, &nearEnd)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	_, err := pw.Write([]byte("hello\n"))
	require.NoError(t, err)
	assert.Eventually(t, func() bool { return r.Written() == 6 }, time.Second, time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Run should return without waiting for the blocked read")
	}

	// 结束被放弃的读取，避免 goroutine 泄漏
	require.NoError(t, pw.Close())
}

func TestRelay_CanceledBeforeStart(t *testing.T) {
	sink := newMemSink()
	var signal, nearEnd Flag
	r := newTestRelay(t, strings.NewReader("data"), sink, &signal, &nearEnd)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, r.Run(ctx), context.Canceled)
	assert.Zero(t, r.Written())
}

// ============================================================================
// 观测
// ============================================================================

type recordingObserver struct {
	mu      sync.Mutex
	results []xmetrics.Result
}

type recordingSpan struct{ o *recordingObserver }

func (o *recordingObserver) Start(ctx context.Context, _ xmetrics.SpanOptions) (context.Context, xmetrics.Span) {
	return ctx, recordingSpan{o: o}
}

func (s recordingSpan) End(result xmetrics.Result) {
	s.o.mu.Lock()
	defer s.o.mu.Unlock()
	s.o.results = append(s.o.results, result)
}

func TestRelay_Observer(t *testing.T) {
	obs := &recordingObserver{}
	var signal, nearEnd Flag

	r := newTestRelay(t, strings.NewReader("12345"), newMemSink(), &signal, &nearEnd, WithRelayObserver(obs))
	require.NoError(t, r.Run(context.Background()))

	require.Len(t, obs.results, 1)
	assert.NoError(t, obs.results[0].Err)
	assert.Equal(t, []xmetrics.Attr{{Key: "bytes", Value: int64(5)}}, obs.results[0].Attrs)
}

// ============================================================================
// 与轮转引擎集成
// ============================================================================

func TestRelay_WithDatedRotator(t *testing.T) {
	dir := t.TempDir()
	clock := &testClock{now: at(1, 23, 0)}

	rot, err := xrotate.NewDated(dir, "base", xrotate.WithClock(clock.Now))
	require.NoError(t, err)
	t.Cleanup(func() { _ = rot.Close() })

	var signal, nearEnd Flag
	in := &scriptReader{
		pieces: []string{"a\n", "b\n"},
		hooks: map[int]func(){
			1: func() {
				clock.Set(at(2, 0, 0))
				signal.Set()
			},
		},
	}
	r := newTestRelay(t, in, rot, &signal, &nearEnd)
	require.NoError(t, r.Run(context.Background()))

	day1, err := os.ReadFile(filepath.Join(dir, "base-2024-01-01"))
	require.NoError(t, err)
	day2, err := os.ReadFile(filepath.Join(dir, "base-2024-01-02"))
	require.NoError(t, err)
	assert.Equal(t, "a\n", string(day1))
	assert.Equal(t, "b\n", string(day2))

	target, err := os.Readlink(filepath.Join(dir, "base"))
	require.NoError(t, err)
	assert.Equal(t, "base-2024-01-02", target)
}
