// Package encode 将 CSV 表格记录按声明式列映射编码为挖掘工具使用的 token 行。
package encode

import (
	"fmt"
	"io"
	"os"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"

	"patternprep/pkg/contract"
)

// Kind: 列值的编码方式。
type Kind string

const (
	KindRaw     Kind = "raw"
	KindInt     Kind = "int"
	KindDecimal Kind = "decimal"
	KindMap     Kind = "map"
	KindYesNo   Kind = "yesno"
)

// Column: 单列映射。输出 token 为 Prefix + 编码值。
type Column struct {
	Name   string `yaml:"name"`
	Prefix string `yaml:"prefix"`
	Kind   Kind   `yaml:"kind"`
	// Map: 仅 kind=map；键在加载时规范化。
	Map map[string]string `yaml:"map"`
	// Default: 缺失值或无法映射时的替代值。
	Default string `yaml:"default"`
	// Negative: 数值为负时的替代值（为空则保留原值）。
	Negative string `yaml:"negative"`
	// Places: 仅 kind=decimal；非整数值四舍五入到的小数位数。未设置时保留全部有效数字。
	Places *int `yaml:"places"`
}

// Profile: 一个数据集的编码档案。
type Profile struct {
	Name string `yaml:"name"`
	// DropColumns: 先行移除的列，不参与完整性判定。
	DropColumns []string `yaml:"drop_columns"`
	// DropIncomplete: 任一剩余列缺失时丢弃整条记录。
	DropIncomplete bool `yaml:"drop_incomplete"`
	// Missing: 视为缺失的取值（大小写敏感，比较前去除首尾空白）。
	Missing []string `yaml:"missing"`
	Columns []Column `yaml:"columns"`
}

// DefaultMissing: 未配置 missing 时视为缺失的取值。
var DefaultMissing = []string{"", "NA", "NaN", "nan", "<nil>"}

// LoadProfile 读取 YAML 档案文件。
func LoadProfile(path string) (Profile, error) {
	f, err := os.Open(path)
	if err != nil {
		return Profile{}, err
	}
	defer f.Close()
	return ParseProfile(f)
}

// ParseProfile 严格解析 YAML（拒绝未知字段）并校验。
func ParseProfile(r io.Reader) (Profile, error) {
	var p Profile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil {
		return Profile{}, fmt.Errorf("%w: profile: %v", contract.ErrInvalidInput, err)
	}
	if err := p.validate(); err != nil {
		return Profile{}, err
	}
	if len(p.Missing) == 0 {
		p.Missing = append([]string(nil), DefaultMissing...)
	}
	for i := range p.Columns {
		c := &p.Columns[i]
		if c.Kind == "" {
			c.Kind = KindRaw
		}
		if len(c.Map) > 0 {
			m := make(map[string]string, len(c.Map))
			for k, v := range c.Map {
				m[normalizeValue(k)] = v
			}
			c.Map = m
		}
	}
	return p, nil
}

func (p Profile) validate() error {
	if len(p.Columns) == 0 {
		return fmt.Errorf("%w: profile %q has no columns", contract.ErrInvalidInput, p.Name)
	}
	seen := map[string]bool{}
	for _, c := range p.Columns {
		if strings.TrimSpace(c.Name) == "" {
			return fmt.Errorf("%w: column without name", contract.ErrInvalidInput)
		}
		k := headerKey(c.Name)
		if seen[k] {
			return fmt.Errorf("%w: column %q listed twice", contract.ErrInvalidInput, c.Name)
		}
		seen[k] = true
		if c.Prefix == "" || strings.IndexFunc(c.Prefix, func(r rune) bool { return r < '0' || r > '9' }) >= 0 {
			return fmt.Errorf("%w: column %q prefix %q must be digits", contract.ErrInvalidInput, c.Name, c.Prefix)
		}
		if c.Places != nil && (c.Kind != KindDecimal || *c.Places < 0) {
			return fmt.Errorf("%w: column %q places needs kind decimal and a value >= 0", contract.ErrInvalidInput, c.Name)
		}
		switch c.Kind {
		case "", KindRaw, KindInt, KindDecimal, KindYesNo:
		case KindMap:
			if len(c.Map) == 0 && c.Default == "" {
				return fmt.Errorf("%w: map column %q needs map or default", contract.ErrInvalidInput, c.Name)
			}
		default:
			return fmt.Errorf("%w: column %q unknown kind %q", contract.ErrInvalidInput, c.Name, c.Kind)
		}
	}
	return nil
}

// headerKey: 表头匹配键，仅保留小写字母与数字（"Age.3 categories" -> "age3categories"）。
func headerKey(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// normalizeValue: 小写、去首尾空白、长短破折号统一为 '-'、连续空白折叠为一个空格。
func normalizeValue(s string) string {
	s = strings.NewReplacer("–", "-", "—", "-", "\u00a0", " ").Replace(s)
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
