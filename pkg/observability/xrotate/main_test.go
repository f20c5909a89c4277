package xrotate

import (
	"testing"

	"go.uber.org/goleak"
)

// TestMain 在所有测试完成后检测 goroutine 泄漏。
// 压缩任务是独立 goroutine，用例必须通过 GzipCompressor.Wait 收尾。
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
