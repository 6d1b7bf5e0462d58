// Package global holds process wide debugging helpers
// Package global 进程级调试工具
package global

import (
	"fmt"
	"runtime"

	dumpx "github.com/gookit/goutil/dump"
)

// Dump 打印调用位置和变量的结构化内容
func Dump(a ...any) {
	_, file, line, ok := runtime.Caller(1)
	if ok {
		fmt.Printf("\033[32m%s:%d:\033[0m\n", file, line)
	}
	dumpx.P(a...)
}
