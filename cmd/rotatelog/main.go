// rotatelog 把标准输入中继到按日期命名的日志文件，并维护指向当前文件的符号链接。
//
// 用法:
//
//	app | rotatelog -d /var/log -f app [-c]
//
// 选项:
//
//	-d, --directory  日志目录，必须已存在且可写 (环境变量 ROTATELOG_DIRECTORY)
//	-f, --filename   基础文件名，不含目录 (环境变量 ROTATELOG_FILENAME)
//	-c, --compress   轮转后 gzip 压缩上一个文件 (环境变量 ROTATELOG_COMPRESS)
//	    --debug      启用 SIGUSR1 强制轮转，文件名精确到秒
//	    --file-mode  新建日志文件的权限，八进制 (默认: 0644)
//	    --log-level  诊断日志级别 debug|info|warn|error (默认: info)
//	    --log-format 诊断日志格式 text|json (默认: text)
//
// 诊断日志只写 stderr，不会混入中继的数据。
//
// 退出码:
//
//	0: 输入结束或收到 SIGINT/SIGTERM
//	1: 文件系统或读取错误
//	2: 参数错误
//
// 示例:
//
//	myapp | rotatelog -d /var/log/myapp -f myapp -c
//	myapp | rotatelog -d /tmp -f myapp --debug --log-level debug
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v3"
)

// 版本信息（可通过 -ldflags 注入，例如:
//
//	go build -ldflags "-X main.Version=1.0.0 -X main.GitCommit=$(git rev-parse --short HEAD) -X main.BuildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
//
// ）。
var (
	Version   = "0.1.0-dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

const (
	exitOK    = 0
	exitFatal = 1
	exitUsage = 2
)

func main() {
	os.Exit(run(context.Background(), os.Args, os.Stdin, os.Stdout, os.Stderr))
}

// usageError 表示命令行参数错误，对应退出码 2。
type usageError struct {
	msg string
	err error
}

func (e *usageError) Error() string {
	if e.err != nil {
		return e.msg + ": " + e.err.Error()
	}
	return e.msg
}

func (e *usageError) Unwrap() error { return e.err }

// createApp 创建 CLI 应用。
func createApp(stdin io.Reader, stdout, stderr io.Writer) *cli.Command {
	return &cli.Command{
		Name:      "rotatelog",
		Usage:     "把标准输入写入按日期轮转的日志文件",
		UsageText: "app | rotatelog -d <directory> -f <filename> [-c]",
		Version:   fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildTime),
		Reader:    stdin,
		Writer:    stdout,
		ErrWriter: stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    flagDirectory,
				Aliases: []string{"d"},
				Usage:   "日志目录（必须已存在且可写）",
				Sources: cli.EnvVars("ROTATELOG_DIRECTORY"),
			},
			&cli.StringFlag{
				Name:    flagFilename,
				Aliases: []string{"f"},
				Usage:   "基础文件名，同时是指向当前文件的符号链接名",
				Sources: cli.EnvVars("ROTATELOG_FILENAME"),
			},
			&cli.BoolFlag{
				Name:    flagCompress,
				Aliases: []string{"c"},
				Usage:   "轮转后 gzip 压缩被替换的文件",
				Sources: cli.EnvVars("ROTATELOG_COMPRESS"),
			},
			&cli.BoolFlag{
				Name:  flagDebug,
				Usage: "启用 SIGUSR1 强制轮转，文件名精确到秒",
			},
			&cli.StringFlag{
				Name:  flagFileMode,
				Usage: "新建日志文件的权限（八进制）",
				Value: "0644",
			},
			&cli.StringFlag{
				Name:  flagLogLevel,
				Usage: "诊断日志级别 (debug|info|warn|error)",
				Value: "info",
			},
			&cli.StringFlag{
				Name:  flagLogFormat,
				Usage: "诊断日志格式 (text|json)",
				Value: "text",
			},
		},
		HideHelpCommand: true,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := parseConfig(cmd)
			if err != nil {
				return err
			}
			return serve(ctx, cfg, stdin, stderr)
		},
		OnUsageError: func(_ context.Context, _ *cli.Command, err error, _ bool) error {
			return &usageError{msg: "invalid arguments", err: err}
		},
		// 禁止 urfave/cli 直接调用 os.Exit，由 run() 统一处理退出码映射。
		ExitErrHandler: func(_ context.Context, _ *cli.Command, err error) {
			if _, ok := err.(cli.ExitCoder); ok {
				fmt.Fprintln(stderr, err)
			}
		},
	}
}

// run 执行命令并返回退出码。
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	app := createApp(stdin, stdout, stderr)

	if err := app.Run(ctx, args); err != nil {
		var usageErr *usageError
		if errors.As(err, &usageErr) {
			fmt.Fprintf(stderr, "参数错误: %v\n", usageErr)
			return exitUsage
		}
		var exitCoder cli.ExitCoder
		if errors.As(err, &exitCoder) && exitCoder.ExitCode() == exitUsage {
			return exitUsage
		}
		fmt.Fprintf(stderr, "错误: %v\n", err)
		return exitFatal
	}
	return exitOK
}
