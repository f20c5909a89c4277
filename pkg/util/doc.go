// Package util 提供通用工具相关的子包。
//
// 子包列表：
//   - xfile: 路径与目录工具，路径净化、防穿越拼接、目录可写性检查
//
// 设计原则：
//   - 安全处理路径遍历和空字节
//   - 跨平台兼容
package util
