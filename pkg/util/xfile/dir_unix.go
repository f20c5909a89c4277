//go:build !windows

package xfile

import "golang.org/x/sys/unix"

// checkWritable 使用 access(2) 按真实 uid/gid 检查写权限和搜索权限。
func checkWritable(dir string) error {
	return unix.Access(dir, unix.W_OK|unix.X_OK)
}
