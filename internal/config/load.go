package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"patternprep/internal/pairing"
	"patternprep/internal/pattern"
)

// EnvPrefix: 本程序识别的环境变量前缀。
const EnvPrefix = "PATTERNPREP_"

// Defaults 返回带有安全默认值的 Config 雏形。
// 注意：Input 不设默认（必须由 JSON/ENV/CLI 提供）。
func Defaults() Config {
	return Config{
		Output:      "out",
		MaxRows:     pattern.DefaultMaxRows,
		Marker:      StringPtr(pairing.DefaultMarker),
		OnCollision: string(pairing.CollisionError),
		Logging:     Logging{Level: "info"},
		Components: Components{
			Reader: "fs",
			Writer: "fs",
		},
	}
}

// LoadJSON 从文件路径或原始 JSON 解析 Config（严格拒绝未知字段）。
func LoadJSON(path string, raw []byte) (Config, error) {
	var cfg Config
	var r io.Reader
	switch {
	case len(raw) > 0:
		r = bytes.NewReader(raw)
	case path != "":
		f, err := os.Open(path)
		if err != nil {
			return cfg, err
		}
		defer f.Close()
		r = f
	default:
		return cfg, errors.New("no config source provided")
	}
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadDotEnv 读取 .env 并注入进程环境；文件不存在时忽略。
// 不覆盖已存在的环境变量（保持系统/调用者优先）。
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return godotenv.Load(path)
}

// Merge 按优先级合并（后者覆盖前者）。
// 仅标量/字符串/原样 JSON 为“替换”；不做深度合并。零值不覆盖。
func Merge(base, over Config) Config {
	out := base
	if s := strings.TrimSpace(over.Input); s != "" {
		out.Input = s
	}
	if s := strings.TrimSpace(over.Output); s != "" {
		out.Output = s
	}
	if over.MaxRows != 0 {
		out.MaxRows = over.MaxRows
	}
	// 标记允许显式置空：以是否设置（非 nil）判断
	if over.Marker != nil {
		out.Marker = StringPtr(*over.Marker)
	}
	if s := strings.TrimSpace(over.OnCollision); s != "" {
		out.OnCollision = s
	}
	if s := strings.TrimSpace(over.Logging.Level); s != "" {
		out.Logging.Level = s
	}

	// 组件名（空不覆盖）
	if over.Components.Reader != "" {
		out.Components.Reader = over.Components.Reader
	}
	if over.Components.Writer != "" {
		out.Components.Writer = over.Components.Writer
	}

	// Options（完整替换对应键）
	if len(over.Options.Reader) > 0 {
		out.Options.Reader = cloneRaw(over.Options.Reader)
	}
	if len(over.Options.Writer) > 0 {
		out.Options.Writer = cloneRaw(over.Options.Writer)
	}
	return out
}

// EnvOverlay 从环境变量构建一个 Config 覆盖（仅解析有限键集合）。
// 规则：前缀 PATTERNPREP_；集合之外的键忽略。
// 支持：INPUT, OUTPUT, MAX_ROWS, MARKER, ON_COLLISION, LOG_LEVEL,
// COMPONENTS_{READER,WRITER}, OPTIONS_{READER,WRITER}_JSON。
// MARKER 即使为空也视为已设置（清空标记）。数值键无法解析时返回错误。
func EnvOverlay(environ []string) (Config, error) {
	var over Config
	for _, kv := range environ {
		if !strings.HasPrefix(kv, EnvPrefix) {
			continue
		}
		eq := strings.IndexByte(kv, '=')
		if eq <= len(EnvPrefix) {
			continue
		}
		key := kv[len(EnvPrefix):eq]
		val := kv[eq+1:]
		switch key {
		case "INPUT":
			over.Input = strings.TrimSpace(val)
		case "OUTPUT":
			over.Output = strings.TrimSpace(val)
		case "MAX_ROWS":
			if strings.TrimSpace(val) == "" {
				continue
			}
			v, err := atoi(val)
			if err != nil {
				return over, fmt.Errorf("%sMAX_ROWS: %w", EnvPrefix, err)
			}
			over.MaxRows = v
		case "MARKER":
			over.Marker = StringPtr(strings.TrimSpace(val))
		case "ON_COLLISION":
			over.OnCollision = strings.TrimSpace(val)
		case "LOG_LEVEL":
			over.Logging.Level = strings.TrimSpace(val)
		case "COMPONENTS_READER":
			over.Components.Reader = strings.TrimSpace(val)
		case "COMPONENTS_WRITER":
			over.Components.Writer = strings.TrimSpace(val)
		case "OPTIONS_READER_JSON":
			// 原样 JSON；空值视为未设置，避免清空现有配置
			if strings.TrimSpace(val) != "" {
				over.Options.Reader = json.RawMessage(val)
			}
		case "OPTIONS_WRITER_JSON":
			if strings.TrimSpace(val) != "" {
				over.Options.Writer = json.RawMessage(val)
			}
		}
	}
	return over, nil
}

func cloneRaw(in json.RawMessage) json.RawMessage {
	if len(in) == 0 {
		return nil
	}
	out := make([]byte, len(in))
	copy(out, in)
	return out
}

func atoi(s string) (int, error) {
	return strconv.Atoi(strings.TrimSpace(s))
}
