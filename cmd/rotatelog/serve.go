package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/omeyang/rotatelog/pkg/debug/xdbg"
	"github.com/omeyang/rotatelog/pkg/lifecycle/xrun"
	"github.com/omeyang/rotatelog/pkg/observability/xlog"
	"github.com/omeyang/rotatelog/pkg/observability/xmetrics"
	"github.com/omeyang/rotatelog/pkg/observability/xrotate"
	"github.com/omeyang/rotatelog/pkg/pipeline/xrelay"
	"github.com/omeyang/rotatelog/pkg/util/xfile"
)

const (
	flagDirectory = "directory"
	flagFilename  = "filename"
	flagCompress  = "compress"
	flagDebug     = "debug"
	flagFileMode  = "file-mode"
	flagLogLevel  = "log-level"
	flagLogFormat = "log-format"
)

// config 解析后的运行配置，创建后不再修改。
type config struct {
	directory string
	filename  string
	compress  bool
	debug     bool
	fileMode  os.FileMode
	logLevel  string
	logFormat string
}

// parseConfig 从命令行读取并校验配置，任何问题都返回 *usageError。
func parseConfig(cmd *cli.Command) (config, error) {
	if cmd.Args().Len() > 0 {
		return config{}, &usageError{msg: fmt.Sprintf("unexpected argument %q", cmd.Args().First())}
	}

	cfg := config{
		directory: cmd.String(flagDirectory),
		filename:  cmd.String(flagFilename),
		compress:  cmd.Bool(flagCompress),
		debug:     cmd.Bool(flagDebug),
		logLevel:  cmd.String(flagLogLevel),
		logFormat: cmd.String(flagLogFormat),
	}

	if cfg.directory == "" {
		return config{}, &usageError{msg: "--directory is required"}
	}
	if cfg.filename == "" {
		return config{}, &usageError{msg: "--filename is required"}
	}
	if err := xfile.RequireDir(cfg.directory); err != nil {
		return config{}, &usageError{msg: "invalid --directory", err: err}
	}
	if _, err := xfile.BaseName(cfg.filename); err != nil {
		return config{}, &usageError{msg: "invalid --filename", err: err}
	}

	mode, err := strconv.ParseUint(cmd.String(flagFileMode), 8, 32)
	if err != nil || mode&^0o777 != 0 {
		return config{}, &usageError{msg: fmt.Sprintf("invalid --file-mode %q", cmd.String(flagFileMode))}
	}
	cfg.fileMode = os.FileMode(mode)

	return cfg, nil
}

// serve 组装各组件并运行到输入结束或收到终止信号。
func serve(ctx context.Context, cfg config, stdin io.Reader, stderr io.Writer) error {
	logger, err := xlog.New().
		SetOutput(stderr).
		SetLevelString(cfg.logLevel).
		SetFormat(cfg.logFormat).
		Build()
	if err != nil {
		return &usageError{msg: "invalid logging options", err: err}
	}

	rec := xmetrics.NewRecorder()
	obs, err := rec.Observer()
	if err != nil {
		return fmt.Errorf("create observer: %w", err)
	}
	defer func() {
		_ = rec.Shutdown(context.WithoutCancel(ctx)) //nolint:errcheck // 仅进程内 Reader
	}()

	dated, err := openDated(cfg, logger, obs)
	if err != nil {
		if errors.Is(err, xrotate.ErrInvalidFilename) || errors.Is(err, xrotate.ErrInvalidFileMode) {
			return &usageError{msg: "invalid options", err: err}
		}
		return err
	}
	logger.Info(ctx, "relay started", xlog.Path(dated.Path()), slog.Bool("compress", cfg.compress))

	runErr := runRelay(ctx, cfg, dated, stdin, logger, obs)

	if err := dated.Close(); err != nil && runErr == nil {
		runErr = fmt.Errorf("close active file: %w", err)
	}
	logSummary(context.WithoutCancel(ctx), rec, logger)

	var sigErr *xrun.SignalError
	if errors.As(runErr, &sigErr) {
		logger.Info(ctx, "stopped by signal", slog.String("signal", sigErr.Signal.String()))
		return nil
	}
	if runErr != nil {
		logger.Error(ctx, "relay failed", xlog.Err(runErr))
		return runErr
	}
	logger.Info(ctx, "input closed")
	return nil
}

// openDated 按配置创建轮转引擎，压缩结果和旧文件关闭错误都记入日志。
func openDated(cfg config, logger xlog.Logger, obs xmetrics.Observer) (*xrotate.Dated, error) {
	ctx := context.Background()
	rotateLog := logger.With(xlog.Component("xrotate"))

	opts := []xrotate.Option{
		xrotate.WithFileMode(cfg.fileMode),
		xrotate.WithObserver(obs),
		xrotate.WithOnRotate(func(ev xrotate.RotateEvent) {
			rotateLog.Info(ctx, "rotated",
				slog.String("old", ev.Previous),
				slog.String("new", ev.Current),
				slog.Bool("relinked", ev.Relinked))
		}),
		xrotate.WithOnRotateError(func(err error) {
			rotateLog.Warn(ctx, "close superseded file", xlog.Err(err))
		}),
	}
	if cfg.debug {
		opts = append(opts, xrotate.WithLayout(xrotate.LayoutSecondly))
	}

	if cfg.compress {
		gz, err := xrotate.NewGzipCompressor(
			xrotate.WithCompressorObserver(obs),
			xrotate.WithOnError(func(err error) {
				rotateLog.Error(ctx, "compression failed", xlog.Err(err))
			}),
			xrotate.WithOnDone(func(path string, outcome xrotate.Outcome) {
				rotateLog.Debug(ctx, "compression done", xlog.Path(path), slog.String("outcome", string(outcome)))
			}),
		)
		if err != nil {
			return nil, err
		}
		opts = append(opts, xrotate.WithCompress(true), xrotate.WithCompressor(gz))
	}

	return xrotate.NewDated(cfg.directory, cfg.filename, opts...)
}

// runRelay 在一个 xrun.Group 中运行中继、时钟观察者和可选的调试触发器。
//
// 输入结束时中继返回 nil 并取消整个组；SIGINT/SIGTERM 以 *xrun.SignalError 结束。
func runRelay(ctx context.Context, cfg config, sink xrelay.Sink, stdin io.Reader, logger xlog.Logger, obs xmetrics.Observer) error {
	rotateSignal, nearEnd := new(xrelay.Flag), new(xrelay.Flag)

	watcher, err := xrelay.NewClockWatcher(rotateSignal, nearEnd,
		xrelay.WithWatcherLogger(logger.With(xlog.Component("watcher"))))
	if err != nil {
		return err
	}
	relay, err := xrelay.NewRelay(stdin, sink, rotateSignal, nearEnd, xrelay.WithRelayObserver(obs))
	if err != nil {
		return err
	}

	g, _ := xrun.NewGroup(ctx, xrun.WithLogger(logger), xrun.WithName("rotatelog"))
	g.HandleSignals(syscall.SIGINT, syscall.SIGTERM)

	g.GoWithName("relay", func(ctx context.Context) error {
		err := relay.Run(ctx)
		if err == nil {
			logger.Debug(ctx, "relay drained", xlog.Bytes(relay.Written()))
			g.Cancel(nil)
		}
		return err
	})
	g.GoWithName("watcher", func(ctx context.Context) error {
		if err := watcher.Run(ctx); err != nil && ctx.Err() == nil {
			// 日期检测失效只影响轮转时机，中继继续运行
			logger.Error(ctx, "clock watcher stopped", xlog.Err(err))
		}
		return nil
	})
	if cfg.debug {
		trigger := xdbg.NewSignalTrigger()
		defer func() { _ = trigger.Close() }()
		g.GoWithName("trigger", xdbg.Forward(trigger, func(ev xdbg.TriggerEvent) {
			logger.Info(ctx, "rotation requested", slog.String("event", ev.String()))
			rotateSignal.Set()
		}))
	}

	return g.Wait()
}

// logSummary 把本次运行中各类操作的次数与耗时写入日志。
// 退出时仍在后台进行的压缩不计入。
func logSummary(ctx context.Context, rec *xmetrics.Recorder, logger xlog.Logger) {
	stats, err := rec.Snapshot(ctx)
	if err != nil {
		logger.Warn(ctx, "collect operation summary", xlog.Err(err))
		return
	}
	for _, s := range stats {
		logger.Info(ctx, "operation summary",
			xlog.Component(s.Component),
			xlog.Operation(s.Operation),
			slog.String("status", string(s.Status)),
			slog.Int64("count", s.Count),
			xlog.Duration(s.Total),
			slog.String("max", s.Max.String()))
	}
}
