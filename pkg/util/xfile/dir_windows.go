//go:build windows

package xfile

// checkWritable 在 Windows 上不做预检，写入失败会在打开文件时暴露。
func checkWritable(string) error {
	return nil
}
