package xrotate

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/omeyang/rotatelog/pkg/observability/xmetrics"
	"github.com/omeyang/rotatelog/pkg/util/xfile"
)

// DefaultFileMode 日期文件的默认权限
const DefaultFileMode os.FileMode = 0o644

// RotateEvent 描述一次实际发生的轮转，由 WithOnRotate 回调接收。
type RotateEvent struct {
	// Previous 被取代的活动文件路径，首次打开时为空
	Previous string
	// Current 新的活动文件路径
	Current string
	// Relinked 是否替换了符号链接
	Relinked bool
	// Superseded 交给压缩器的路径，未派发时为空
	Superseded string
}

type datedConfig struct {
	layout     string
	compress   bool
	fileMode   os.FileMode
	clock      func() time.Time
	compressor Compressor
	observer   xmetrics.Observer
	onRotate   func(RotateEvent)
	onError    func(error)
}

// Option 配置 [Dated]。
type Option func(*datedConfig)

// WithLayout 设置文件名时间戳格式，默认 [LayoutDaily]。
func WithLayout(layout string) Option {
	return func(c *datedConfig) {
		c.layout = layout
	}
}

// WithCompress 启用被取代文件的后台压缩。
func WithCompress(enable bool) Option {
	return func(c *datedConfig) {
		c.compress = enable
	}
}

// WithFileMode 设置新建日期文件的权限，仅允许 0000~0777。
func WithFileMode(mode os.FileMode) Option {
	return func(c *datedConfig) {
		c.fileMode = mode
	}
}

// WithClock 注入时钟，默认 time.Now（本地时区）。
func WithClock(clock func() time.Time) Option {
	return func(c *datedConfig) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// WithCompressor 替换压缩器。未设置且启用压缩时使用默认的 [GzipCompressor]。
func WithCompressor(compressor Compressor) Option {
	return func(c *datedConfig) {
		c.compressor = compressor
	}
}

// WithObserver 设置观测器，每次实际轮转记录一个 rotate 跨度。
func WithObserver(obs xmetrics.Observer) Option {
	return func(c *datedConfig) {
		if obs != nil {
			c.observer = obs
		}
	}
}

// WithOnRotate 设置轮转完成回调，在持锁状态下同步调用，应尽快返回。
func WithOnRotate(fn func(RotateEvent)) Option {
	return func(c *datedConfig) {
		c.onRotate = fn
	}
}

// WithOnRotateError 设置非致命错误回调（如关闭旧句柄失败）。
func WithOnRotateError(fn func(error)) Option {
	return func(c *datedConfig) {
		c.onError = fn
	}
}

// Dated 按日期命名文件的轮转器，维护 dir/base 符号链接指向活动文件。
type Dated struct {
	dir  string
	base string
	link string
	cfg  datedConfig

	mu     sync.Mutex
	file   *os.File
	path   string
	closed bool
}

var _ Rotator = (*Dated)(nil)

// NewDated 校验参数并打开当前时刻对应的日期文件。
//
// dir 必须已存在（不会自动创建），base 必须是裸文件名。
// 返回的错误若来自首次打开或建立链接，errors.Is(err, ErrRotation) 为 true。
func NewDated(dir, base string, opts ...Option) (*Dated, error) {
	cfg := datedConfig{
		layout:   LayoutDaily,
		fileMode: DefaultFileMode,
		clock:    time.Now,
		observer: xmetrics.NoopObserver{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	if dir == "" {
		return nil, ErrEmptyDirectory
	}
	absDir, err := xfile.CleanDir(dir)
	if err != nil {
		return nil, fmt.Errorf("xrotate: %w", err)
	}
	if _, err := xfile.BaseName(base); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidFilename, err)
	}
	link, err := xfile.SafeJoin(absDir, base)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidFilename, err)
	}
	if cfg.layout == "" {
		return nil, ErrEmptyLayout
	}
	if cfg.fileMode&^0o777 != 0 {
		return nil, fmt.Errorf("%w: %04o", ErrInvalidFileMode, cfg.fileMode)
	}
	if cfg.compress && cfg.compressor == nil {
		gz, err := NewGzipCompressor(WithCompressorObserver(cfg.observer), WithOnError(cfg.onError))
		if err != nil {
			return nil, err
		}
		cfg.compressor = gz
	}

	d := &Dated{
		dir:  absDir,
		base: base,
		link: link,
		cfg:  cfg,
	}
	if err := d.rotateLocked(); err != nil {
		return nil, err
	}
	return d, nil
}

// Write 写入活动文件。
func (d *Dated) Write(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return 0, ErrClosed
	}
	n, err := d.file.Write(p)
	if err != nil {
		return n, fmt.Errorf("xrotate: write %s: %w", d.path, err)
	}
	return n, nil
}

// Close 关闭活动文件。符号链接保持指向最后一个文件。
func (d *Dated) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return ErrClosed
	}
	d.closed = true
	if d.file == nil {
		return nil
	}
	err := d.file.Close()
	d.file = nil
	if err != nil {
		return fmt.Errorf("xrotate: close %s: %w", d.path, err)
	}
	return nil
}

// Rotate 切换到当前时刻对应的日期文件，名字未变时为空操作。
//
// 打开新文件或替换链接失败时返回 [*RotationError]，原活动文件保持不变。
func (d *Dated) Rotate() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return ErrClosed
	}
	return d.rotateLocked()
}

// Path 返回活动文件的绝对路径。
func (d *Dated) Path() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.path
}

// Link 返回符号链接的绝对路径。
func (d *Dated) Link() string {
	return d.link
}

func (d *Dated) rotateLocked() (err error) {
	name := DatedName(d.base, d.cfg.layout, d.cfg.clock())
	path := filepath.Join(d.dir, name)
	if d.file != nil && d.path == path {
		return nil
	}

	_, span := xmetrics.Start(context.Background(), d.cfg.observer, xmetrics.SpanOptions{
		Component: "xrotate",
		Operation: "rotate",
		Attrs:     []xmetrics.Attr{{Key: "path", Value: path}},
	})
	event := RotateEvent{Previous: d.path, Current: path}
	defer func() {
		span.End(xmetrics.Result{Err: err, Attrs: []xmetrics.Attr{
			{Key: "relinked", Value: event.Relinked},
			{Key: "compress", Value: event.Superseded != ""},
		}})
	}()

	previous, relink := d.inspectLink(name, path)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, d.cfg.fileMode)
	if err != nil {
		return &RotationError{Op: OpOpen, Path: path, Err: err}
	}

	if relink {
		if err := d.relink(name); err != nil {
			_ = f.Close() //nolint:errcheck // 返回链接错误
			return &RotationError{Op: OpLink, Path: d.link, Err: err}
		}
		event.Relinked = true
	}

	old := d.file
	d.file, d.path = f, path
	if old != nil {
		if cerr := old.Close(); cerr != nil {
			d.reportError(fmt.Errorf("xrotate: close %s: %w", event.Previous, cerr))
		}
	}

	// 链接已指向新文件，此后删除 previous 不会留下悬空链接
	if relink && d.cfg.compress && d.compressible(previous) {
		d.cfg.compressor.Compress(previous)
		event.Superseded = previous
	}

	if d.cfg.onRotate != nil {
		d.cfg.onRotate(event)
	}
	return nil
}

// inspectLink 读取符号链接（不跟随），返回旧目标的绝对路径与是否需要替换。
// 链接不存在、不是符号链接或无法读取时都需要替换，此时 previous 为空。
func (d *Dated) inspectLink(name, path string) (previous string, relink bool) {
	target, err := os.Readlink(d.link)
	if err != nil {
		return "", true
	}
	if target == name || target == path {
		return "", false
	}
	if !filepath.IsAbs(target) {
		target = filepath.Join(d.dir, target)
	}
	return filepath.Clean(target), true
}

// relink 先在同目录创建临时链接，再 rename 覆盖 d.link。
// rename 是原子的，链接不会出现缺失的窗口。
func (d *Dated) relink(name string) error {
	tmp := filepath.Join(d.dir, fmt.Sprintf("%s.tmp-%d", d.base, os.Getpid()))
	if err := os.Remove(tmp); err != nil && !os.IsNotExist(err) {
		return err
	}
	if err := os.Symlink(name, tmp); err != nil {
		return err
	}
	if err := os.Rename(tmp, d.link); err != nil {
		_ = os.Remove(tmp) //nolint:errcheck // 返回 rename 错误
		return err
	}
	return nil
}

// compressible 判断旧链接目标能否交给压缩器：必须是本目录下
// base-* 形式的未压缩普通文件，且不是活动文件。
func (d *Dated) compressible(previous string) bool {
	if previous == "" || previous == d.path {
		return false
	}
	if filepath.Dir(previous) != d.dir {
		return false
	}
	if !isDatedName(d.base, filepath.Base(previous)) {
		return false
	}
	info, err := os.Lstat(previous)
	return err == nil && info.Mode().IsRegular()
}

func (d *Dated) reportError(err error) {
	if d.cfg.onError == nil {
		return
	}
	defer func() {
		_ = recover() //nolint:errcheck // 回调 panic 不得影响写入路径
	}()
	d.cfg.onError(err)
}
