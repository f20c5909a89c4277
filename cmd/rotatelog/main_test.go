package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type result struct {
	code   int
	stdout string
	stderr string
}

func runWith(t *testing.T, ctx context.Context, stdin io.Reader, args ...string) result {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(ctx, append([]string{"rotatelog"}, args...), stdin, &stdout, &stderr)
	return result{code: code, stdout: stdout.String(), stderr: stderr.String()}
}

// datedFiles 返回目录中除符号链接外的 base-* 文件名。
func datedFiles(t *testing.T, dir, base string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		if e.Name() != base && strings.HasPrefix(e.Name(), base+"-") {
			names = append(names, e.Name())
		}
	}
	return names
}

func TestUsageError(t *testing.T) {
	inner := errors.New("not a directory")
	err := &usageError{msg: "invalid --directory", err: inner}
	assert.Equal(t, "invalid --directory: not a directory", err.Error())
	assert.ErrorIs(t, err, inner)
	assert.Equal(t, "plain", (&usageError{msg: "plain"}).Error())
}

func TestRun_UsageErrors(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "regular")
	require.NoError(t, os.WriteFile(file, nil, 0o600))

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"缺少目录", []string{"-f", "app"}, "--directory is required"},
		{"缺少文件名", []string{"-d", dir}, "--filename is required"},
		{"目录不存在", []string{"-d", filepath.Join(dir, "missing"), "-f", "app"}, "invalid --directory"},
		{"目录是普通文件", []string{"-d", file, "-f", "app"}, "invalid --directory"},
		{"文件名含路径", []string{"-d", dir, "-f", "sub/app"}, "invalid --filename"},
		{"文件名为点点", []string{"-d", dir, "-f", ".."}, "invalid --filename"},
		{"权限非八进制", []string{"-d", dir, "-f", "app", "--file-mode", "rw-r--r--"}, "invalid --file-mode"},
		{"权限超出范围", []string{"-d", dir, "-f", "app", "--file-mode", "4755"}, "invalid --file-mode"},
		{"多余参数", []string{"-d", dir, "-f", "app", "extra"}, "unexpected argument"},
		{"日志级别无效", []string{"-d", dir, "-f", "app", "--log-level", "trace"}, "invalid logging options"},
		{"日志格式无效", []string{"-d", dir, "-f", "app", "--log-format", "xml"}, "invalid logging options"},
		{"未知选项", []string{"-d", dir, "-f", "app", "--bogus"}, "参数错误"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := runWith(t, context.Background(), strings.NewReader(""), tt.args...)
			assert.Equal(t, exitUsage, res.code, "stderr: %s", res.stderr)
			assert.Contains(t, res.stderr, tt.want)
		})
	}

	// 参数错误时不应创建任何文件
	assert.Empty(t, datedFiles(t, dir, "app"))
}

func TestRun_EmptyInput(t *testing.T) {
	dir := t.TempDir()

	res := runWith(t, context.Background(), strings.NewReader(""), "-d", dir, "-f", "app")
	require.Equal(t, exitOK, res.code, "stderr: %s", res.stderr)

	files := datedFiles(t, dir, "app")
	require.Len(t, files, 1)
	assert.Regexp(t, `^app-\d{4}-\d{2}-\d{2}$`, files[0])

	target, err := os.Readlink(filepath.Join(dir, "app"))
	require.NoError(t, err)
	assert.Equal(t, files[0], target)

	info, err := os.Stat(filepath.Join(dir, files[0]))
	require.NoError(t, err)
	assert.Zero(t, info.Size())
}

func TestRun_RelaysInput(t *testing.T) {
	dir := t.TempDir()
	input := "first line\nsecond line\npartial"

	res := runWith(t, context.Background(), strings.NewReader(input), "-d", dir, "-f", "app", "-c")
	require.Equal(t, exitOK, res.code, "stderr: %s", res.stderr)
	assert.Empty(t, res.stdout)

	data, err := os.ReadFile(filepath.Join(dir, "app"))
	require.NoError(t, err)
	assert.Equal(t, input, string(data))
	assert.Contains(t, res.stderr, "relay started")
	assert.Contains(t, res.stderr, "input closed")
}

func TestRun_LogsOperationSummary(t *testing.T) {
	dir := t.TempDir()

	res := runWith(t, context.Background(), strings.NewReader("x\n"), "-d", dir, "-f", "app", "--log-format", "json")
	require.Equal(t, exitOK, res.code, "stderr: %s", res.stderr)

	var ops []string
	for _, line := range strings.Split(strings.TrimSpace(res.stderr), "\n") {
		var record map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &record), line)
		if record["msg"] != "operation summary" {
			continue
		}
		ops = append(ops, record["operation"].(string))
		assert.Equal(t, "ok", record["status"])
		assert.Equal(t, float64(1), record["count"])
	}
	assert.ElementsMatch(t, []string{"relay", "rotate"}, ops)
}

func TestRun_AppendsAcrossRestarts(t *testing.T) {
	dir := t.TempDir()

	require.Equal(t, exitOK, runWith(t, context.Background(), strings.NewReader("one\n"), "-d", dir, "-f", "app").code)
	require.Equal(t, exitOK, runWith(t, context.Background(), strings.NewReader("two\n"), "-d", dir, "-f", "app").code)

	data, err := os.ReadFile(filepath.Join(dir, "app"))
	require.NoError(t, err)
	assert.Equal(t, "one\ntwo\n", string(data))
	assert.Len(t, datedFiles(t, dir, "app"), 1)
}

func TestRun_EnvFallback(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("ROTATELOG_DIRECTORY", dir)
	t.Setenv("ROTATELOG_FILENAME", "envapp")
	t.Setenv("ROTATELOG_COMPRESS", "true")

	res := runWith(t, context.Background(), strings.NewReader("from env\n"))
	require.Equal(t, exitOK, res.code, "stderr: %s", res.stderr)

	data, err := os.ReadFile(filepath.Join(dir, "envapp"))
	require.NoError(t, err)
	assert.Equal(t, "from env\n", string(data))
	assert.Contains(t, res.stderr, "compress=true")
}

func TestRun_FileMode(t *testing.T) {
	dir := t.TempDir()

	res := runWith(t, context.Background(), strings.NewReader(""), "-d", dir, "-f", "app", "--file-mode", "0600")
	require.Equal(t, exitOK, res.code, "stderr: %s", res.stderr)

	files := datedFiles(t, dir, "app")
	require.Len(t, files, 1)
	info, err := os.Stat(filepath.Join(dir, files[0]))
	require.NoError(t, err)
	// umask 只会收窄权限
	assert.Zero(t, info.Mode().Perm()&0o077)
}

func TestRun_DebugLayout(t *testing.T) {
	dir := t.TempDir()

	res := runWith(t, context.Background(), strings.NewReader("x\n"), "-d", dir, "-f", "app", "--debug", "--log-format", "json")
	require.Equal(t, exitOK, res.code, "stderr: %s", res.stderr)

	files := datedFiles(t, dir, "app")
	require.Len(t, files, 1)
	assert.Regexp(t, regexp.MustCompile(`^app-\d{4}-\d{2}-\d{2}T\d{2}-\d{2}-\d{2}$`), files[0])
	assert.Contains(t, res.stderr, `"msg":"relay started"`)
}

func TestRun_ContextCancel(t *testing.T) {
	dir := t.TempDir()
	pr, pw := io.Pipe()
	defer pw.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan result, 1)
	go func() {
		done <- runWith(t, ctx, pr, "-d", dir, "-f", "app")
	}()

	_, err := pw.Write([]byte("before cancel\n"))
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		data, err := os.ReadFile(filepath.Join(dir, "app"))
		return err == nil && string(data) == "before cancel\n"
	}, 5*time.Second, 10*time.Millisecond)

	cancel()

	select {
	case res := <-done:
		assert.Equal(t, exitOK, res.code, "stderr: %s", res.stderr)
	case <-time.After(5 * time.Second):
		t.Fatal("run did not return after cancellation")
	}

	// 被放弃的读取在管道关闭后退出
	require.NoError(t, pw.Close())
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("broken pipe") }

func TestRun_ReadErrorIsFatal(t *testing.T) {
	dir := t.TempDir()

	res := runWith(t, context.Background(), failingReader{}, "-d", dir, "-f", "app")
	assert.Equal(t, exitFatal, res.code)
	assert.Contains(t, res.stderr, "broken pipe")
}

func TestRun_Version(t *testing.T) {
	res := runWith(t, context.Background(), strings.NewReader(""), "--version")
	assert.Equal(t, exitOK, res.code)
	assert.Contains(t, res.stdout, Version)
	assert.Contains(t, res.stdout, GitCommit)
}

func TestRun_Help(t *testing.T) {
	res := runWith(t, context.Background(), strings.NewReader(""), "--help")
	assert.Equal(t, exitOK, res.code)
	for _, flag := range []string{"--directory", "--filename", "--compress", "--debug", "--file-mode"} {
		assert.Contains(t, res.stdout, flag)
	}
}
