package config

import (
	"encoding/json"
	"strings"
)

// DefaultTemplateConfig 返回一个“可运行”的默认配置模板：
// - 输入目录 ./patterns，输出到 ./out；
// - 组件名采用仓库内置实现；
// - 选项给出全部键与安全中性默认值。
func DefaultTemplateConfig() Config {
	cfg := Defaults()
	cfg.Input = "patterns"
	cfg.Options.Reader = json.RawMessage(`{
  "buf_size": 65536,
  "exts": [".txt"]
}`)
	cfg.Options.Writer = json.RawMessage(`{
  "atomic": true,
  "perm_file": 0,
  "perm_dir": 0,
  "buf_size": 65536
}`)
	return cfg
}

// DotEnvTemplate 返回 .env 模板内容：列出全部支持的覆盖项，值为空表示未设置。
func DotEnvTemplate() string {
	var b strings.Builder
	b.WriteString("# patternprep .env 模板（由 init-config 生成）\n")
	b.WriteString("# 优先级：CLI > ENV(.env) > JSON\n")
	b.WriteString("# 空值表示未设置。\n\n")

	b.WriteString("# 配置来源（可二选一）\n")
	b.WriteString(EnvPrefix + "CONFIG_FILE=\n")
	b.WriteString(EnvPrefix + "CONFIG_JSON=\n\n")

	b.WriteString("# 运行参数覆盖\n")
	for _, k := range []string{"INPUT", "OUTPUT", "MAX_ROWS", "MARKER", "ON_COLLISION", "LOG_LEVEL"} {
		b.WriteString(EnvPrefix + k + "=\n")
	}
	b.WriteString("\n# 组件选择与选项（原样 JSON）\n")
	for _, k := range []string{"COMPONENTS_READER", "COMPONENTS_WRITER", "OPTIONS_READER_JSON", "OPTIONS_WRITER_JSON"} {
		b.WriteString(EnvPrefix + k + "=\n")
	}
	return b.String()
}
