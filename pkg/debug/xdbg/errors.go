package xdbg

import "errors"

// ErrNilTrigger 表示 Forward 的触发器或回调为 nil。
var ErrNilTrigger = errors.New("xdbg: nil trigger or callback")
