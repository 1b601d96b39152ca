// Package pattern 实现挖掘结果单行的清洗、过滤与按文件收集。
package pattern

import (
	"strings"
	"unicode"

	"patternprep/pkg/contract"
)

// cleanState: 单 token 前瞻自动机的状态。
type cleanState int

const (
	// stateNormal: 正常扫描。
	stateNormal cleanState = iota
	// stateSkipOne: 上一个 token 为标签，丢弃当前 token（标签值）。
	stateSkipOne
)

// CleanLine 将一行原始文本解析为有序的正整数序列。
// 规则：
//   - 按空白切分；
//   - 标签 token（形如 "#UTIL:"）与其后紧随的一个 token 一并丢弃，无论后者内容；
//   - 可解析为十进制整数（可带 +/-）且严格大于 0 的 token 以规范形式保留；
//   - 其余（0、负数、浮点、单词、符号）静默丢弃。
//
// 行尾的孤立标签没有可跳过的值，自动机停在 stateSkipOne，不报错。
func CleanLine(line string) contract.Row {
	var out contract.Row
	st := stateNormal
	for _, tok := range strings.Fields(line) {
		switch st {
		case stateSkipOne:
			st = stateNormal
		case stateNormal:
			if isTag(tok) {
				st = stateSkipOne
				continue
			}
			if v, ok := positiveInt(tok); ok {
				out = append(out, v)
			}
		}
	}
	return out
}

// isTag: '#' + 至少一个单词字符（字母/数字/下划线）+ ':'，且无其他字符。
func isTag(tok string) bool {
	if len(tok) < 3 || tok[0] != '#' || tok[len(tok)-1] != ':' {
		return false
	}
	for _, r := range tok[1 : len(tok)-1] {
		if r != '_' && !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// positiveInt 解析可选符号 + 十进制数字的整数 token。
// 数字可为任意 Unicode 十进制数字（Nd），统一转为 ASCII。
// 返回去掉符号与前导零的规范十进制串；仅当数值严格为正时 ok=true。
// 基于字符串实现，任意长度的整数都不会溢出。
func positiveInt(tok string) (string, bool) {
	neg := false
	switch {
	case strings.HasPrefix(tok, "+"):
		tok = tok[1:]
	case strings.HasPrefix(tok, "-"):
		tok = tok[1:]
		neg = true
	}
	if tok == "" {
		return "", false
	}
	var b strings.Builder
	for _, r := range tok {
		d, ok := digitValue(r)
		if !ok {
			return "", false
		}
		if d == 0 && b.Len() == 0 {
			continue
		}
		b.WriteByte('0' + d)
	}
	if b.Len() == 0 || neg {
		return "", false
	}
	return b.String(), true
}

// digitValue 返回十进制数字字符的数值。
// Nd 类字符按 0..9 连续成组，且表中每个区间都从某组的 0 开始。
func digitValue(r rune) (byte, bool) {
	if r >= '0' && r <= '9' {
		return byte(r - '0'), true
	}
	if r < 0x80 || !unicode.Is(unicode.Nd, r) {
		return 0, false
	}
	for _, rg := range unicode.Nd.R16 {
		if r >= rune(rg.Lo) && r <= rune(rg.Hi) && rg.Stride == 1 {
			return byte((r - rune(rg.Lo)) % 10), true
		}
	}
	for _, rg := range unicode.Nd.R32 {
		if r >= rune(rg.Lo) && r <= rune(rg.Hi) && rg.Stride == 1 {
			return byte((r - rune(rg.Lo)) % 10), true
		}
	}
	return 0, false
}
