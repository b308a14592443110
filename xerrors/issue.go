package xerrors

import "fmt"

// Issue 记录一条被跳过的输入行或记录及原因。解析器遇到坏行时上报 Issue 并继续，不中断整体处理。
type Issue struct {
	Line   int    // 1 起始的行号，0 表示无行号
	Text   string // 原始文本
	Err    error
	Record bool // 整条记录被丢弃，而不只是其中一行
}

func (i Issue) String() string {
	switch {
	case i.Line == 0:
		return fmt.Sprintf("record %q: %v", i.Text, i.Err)
	case i.Record:
		return fmt.Sprintf("record at line %d %q: %v", i.Line, i.Text, i.Err)
	default:
		return fmt.Sprintf("line %d %q: %v", i.Line, i.Text, i.Err)
	}
}
