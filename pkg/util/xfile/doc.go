// Package xfile 提供日志目录与文件名的校验工具。
//
//   - [CleanDir]: 规范化目录参数（绝对化、拒绝空字节）
//   - [BaseName]: 校验"裸文件名"，拒绝任何路径分隔符与 "."/".."
//   - [SafeJoin]: 把相对路径拼接到绝对目录，结果保证不越出该目录
//   - [RequireDir]: 目录必须已存在且当前进程可写，不会自动创建
//
// # 路径穿越检测
//
// 穿越检测按路径段精确匹配，只有 ".." 作为独立路径段时才拒绝。
// 以 ".." 开头的合法文件名（如 "..config"）不会被误判。
//
// # 空字节防护
//
// 所有函数都拒绝包含空字节（\x00）的参数。内核会在空字节处截断路径，
// 导致 Go 代码与操作系统看到的路径不一致。
//
// # 错误处理
//
// 预定义错误变量支持 [errors.Is] 判断：
//
//	if _, err := xfile.BaseName("../app"); errors.Is(err, xfile.ErrInvalidName) {
//	    // 文件名不是裸名称
//	}
package xfile
