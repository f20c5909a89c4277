package xrotate

import (
	"strings"
	"time"
)

const (
	// LayoutDaily 生产环境的文件时间戳：每天一个文件
	LayoutDaily = "2006-01-02"

	// LayoutSecondly 调试模式的文件时间戳，快速手动轮转时避免文件名冲突
	LayoutSecondly = "2006-01-02T15-04-05"

	// CompressedSuffix 压缩后的文件后缀
	CompressedSuffix = ".gz"
)

// DatedName 返回 base-<t 按 layout 格式化> 形式的文件名。
func DatedName(base, layout string, t time.Time) string {
	return base + "-" + t.Format(layout)
}

// isDatedName 判断 name 是否为 base 的日期文件（未压缩）。
func isDatedName(base, name string) bool {
	return strings.HasPrefix(name, base+"-") && !strings.HasSuffix(name, CompressedSuffix)
}
