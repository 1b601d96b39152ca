// Package normalize 计算组目标宽度并以占位符补齐行。
package normalize

import "patternprep/pkg/contract"

// MaxLen 返回 rows 中最长行的长度；无行时为 0。
func MaxLen(rows []contract.Row) int {
	m := 0
	for _, r := range rows {
		if len(r) > m {
			m = len(r)
		}
	}
	return m
}

// Target 返回多组行的共同目标宽度：各组 MaxLen 的最大值。
// 空组贡献 0，不会把同伴的宽度压低。
func Target(sets ...[]contract.Row) int {
	t := 0
	for _, s := range sets {
		if m := MaxLen(s); m > t {
			t = m
		}
	}
	return t
}

// Note: 成对组两侧自然宽度不一致时的归一说明。
type Note struct {
	Key      string
	Positive int
	Negative int
	Target   int
	// Diff: 两侧最大长度之差（绝对值）。
	Diff int
	// Padded: 被补齐的一侧（自然宽度较小者）。
	Padded contract.Polarity
}

// Pair 计算成对组的目标宽度。hasPos/hasNeg 表示该类别的文件是否存在（文件存在但无行时 rows 为空）。
// 仅当两侧都存在、都至少有一行、且最大长度不同时返回 Note。
func Pair(key string, pos, neg []contract.Row, hasPos, hasNeg bool) (int, *Note) {
	pm, nm := MaxLen(pos), MaxLen(neg)
	target := Target(pos, neg)
	if !hasPos || !hasNeg || len(pos) == 0 || len(neg) == 0 || pm == nm {
		return target, nil
	}
	n := &Note{Key: key, Positive: pm, Negative: nm, Target: target}
	if pm > nm {
		n.Diff = pm - nm
		n.Padded = contract.Negative
	} else {
		n.Diff = nm - pm
		n.Padded = contract.Positive
	}
	return target, n
}

// Pad 在行右侧追加 Sentinel 直到长度为 width；行已不短于 width 时原样拷贝返回（从不截断）。
func Pad(row contract.Row, width int) contract.Row {
	n := len(row)
	if width > n {
		n = width
	}
	out := make(contract.Row, len(row), n)
	copy(out, row)
	for len(out) < width {
		out = append(out, contract.Sentinel)
	}
	return out
}
