package contract

import (
	"path"
	"strings"
)

// NormalizeFileID 规范化路径，统一为跨平台稳定的 FileID。
// 规则：
// - 使用正斜杠分隔符
// - 清理多余分隔符与路径片段（.、..）
// - 保留相对/绝对语义，不做隐式绝对化
func NormalizeFileID(p string) FileID {
	return FileID(path.Clean(strings.ReplaceAll(p, "\\", "/")))
}

// Base 返回 FileID 的文件名部分（含扩展名）。
func (id FileID) Base() string { return path.Base(string(id)) }

// Stem 返回去掉最后一个扩展名后的文件名，例如 "a/DiseaseXPositive.txt" -> "DiseaseXPositive"。
func (id FileID) Stem() string {
	b := id.Base()
	return strings.TrimSuffix(b, path.Ext(b))
}
