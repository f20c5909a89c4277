package xrelay

import "sync/atomic"

// Flag 原子布尔标志，零值为清除状态。
type Flag struct {
	v atomic.Bool
}

// Set 置位。
func (f *Flag) Set() {
	f.v.Store(true)
}

// Store 写入指定值。
func (f *Flag) Store(v bool) {
	f.v.Store(v)
}

// Load 读取当前值，不修改。
func (f *Flag) Load() bool {
	return f.v.Load()
}

// Take 若已置位则清除并返回 true。并发调用时只有一个调用者得到 true。
func (f *Flag) Take() bool {
	return f.v.CompareAndSwap(true, false)
}
