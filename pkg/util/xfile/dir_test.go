//go:build !windows

package xfile

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
)

func TestRequireDir(t *testing.T) {
	tmpDir := t.TempDir()
	file := filepath.Join(tmpDir, "regular")
	if err := os.WriteFile(file, nil, 0o600); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		dir     string
		wantErr error
	}{
		{name: "可写目录", dir: tmpDir},
		{name: "目录不存在", dir: filepath.Join(tmpDir, "missing"), wantErr: fs.ErrNotExist},
		{name: "普通文件", dir: file, wantErr: ErrNotDir},
		{name: "空路径", dir: "", wantErr: ErrEmptyPath},
		{name: "空字节", dir: "/tmp\x00", wantErr: ErrNullByte},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := RequireDir(tt.dir)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("RequireDir(%q) 意外错误: %v", tt.dir, err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("RequireDir(%q) error = %v, want %v", tt.dir, err, tt.wantErr)
			}
		})
	}
}

func TestRequireDir_DoesNotCreate(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "a", "b")
	if err := RequireDir(missing); err == nil {
		t.Fatal("RequireDir 应拒绝不存在的目录")
	}
	if _, err := os.Stat(missing); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("RequireDir 不应创建目录, stat err = %v", err)
	}
}

func TestRequireDir_ReadOnly(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root 绕过权限检查")
	}

	dir := filepath.Join(t.TempDir(), "ro")
	if err := os.Mkdir(dir, 0o500); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chmod(dir, 0o700) })

	if err := RequireDir(dir); !errors.Is(err, ErrNotWritable) {
		t.Errorf("RequireDir(只读目录) error = %v, want ErrNotWritable", err)
	}
}
