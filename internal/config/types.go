package config

import (
	"encoding/json"

	"patternprep/internal/pairing"
)

// Config: 运行期只读配置（一次解析，运行期不变）。
// JSON 使用 snake_case；未知字段在解析期失败。
type Config struct {
	// Input: 待处理的挖掘结果目录（仅处理该目录下一层的文件）。
	Input string `json:"input"`
	// Output: 清洗结果输出目录。
	Output string `json:"output"`
	// MaxRows: 每个文件最多保留的行数（>=1）。
	MaxRows int `json:"max_rows"`
	// Marker: 输出文件名追加的处理标记；分组前也会从输入名中剥离。
	// nil 表示未设置；显式空串表示不追加标记。
	Marker *string `json:"marker,omitempty"`
	// OnCollision: 两个文件映射到同一 (基名, 类别) 时的策略：error|last。
	OnCollision string  `json:"on_collision"`
	Logging     Logging `json:"logging"`

	// 组件名选择（空则使用默认名）。
	Components Components `json:"components"`

	// 各组件 Options 子树，原样 JSON 传入工厂。
	Options Options `json:"options"`
}

// EffectiveMarker 返回最终标记（未设置时为默认标记）。
func (c Config) EffectiveMarker() string {
	if c.Marker == nil {
		return pairing.DefaultMarker
	}
	return *c.Marker
}

// StringPtr 返回 s 的副本指针，用于显式设置可为空的字段。
func StringPtr(s string) *string { return &s }

// Logging: 仅保留日志等级可配置；输出路径与轮转策略为固定默认。
type Logging struct {
	Level string `json:"level"`
}

// Components: 组件名选择（注册表中的实现名）。
type Components struct {
	Reader string `json:"reader"`
	Writer string `json:"writer"`
}

// Options: 各组件的原样 JSON Options。
type Options struct {
	Reader json.RawMessage `json:"reader,omitempty"`
	Writer json.RawMessage `json:"writer,omitempty"`
}
