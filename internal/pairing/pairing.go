// Package pairing 根据文件名把输入文件分为 Positive/Negative 成对组与单文件。
package pairing

import (
	"fmt"
	"strings"

	"patternprep/pkg/contract"
)

// DefaultMarker: 处理标记后缀。输出文件名 = 原主干 + 标记 + ".txt"。
const DefaultMarker = "-cleaned"

// Kind: 分类结果标签。
type Kind int

const (
	Single Kind = iota
	Paired
)

// Classification: 单个文件主干的分类结果。仅当 Kind == Paired 时 Base/Polarity 有意义。
type Classification struct {
	Kind     Kind
	Base     string
	Polarity contract.Polarity
}

// CollisionPolicy: 两个文件声明同一 (基名, 类别) 时的处理策略。
type CollisionPolicy string

const (
	// CollisionError: 返回 ErrPairCollision（默认）。
	CollisionError CollisionPolicy = "error"
	// CollisionLast: 后出现者覆盖先出现者。
	CollisionLast CollisionPolicy = "last"
)

// ParseCollisionPolicy 解析策略名；空串为默认 error。
func ParseCollisionPolicy(s string) (CollisionPolicy, error) {
	switch CollisionPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", CollisionError:
		return CollisionError, nil
	case CollisionLast:
		return CollisionLast, nil
	default:
		return "", fmt.Errorf("%w: unknown collision policy %q", contract.ErrInvalidInput, s)
	}
}

// StripMarker 去掉主干末尾一个或多个（大小写不敏感的）处理标记。
func StripMarker(stem, marker string) string {
	if marker == "" {
		return stem
	}
	for len(stem) >= len(marker) && strings.EqualFold(stem[len(stem)-len(marker):], marker) {
		stem = stem[:len(stem)-len(marker)]
	}
	return stem
}

// Classify 对文件主干做纯函数分类：
// 去掉重复的处理标记后，若以 Positive/Negative（大小写不敏感）结尾则为 Paired，
// 基名为其前缀（可为空）；否则为 Single。
func Classify(stem, marker string) Classification {
	core := StripMarker(stem, marker)
	for _, p := range contract.Polarities() {
		word := string(p)
		if len(core) >= len(word) && strings.EqualFold(core[len(core)-len(word):], word) {
			return Classification{Kind: Paired, Base: core[:len(core)-len(word)], Polarity: p}
		}
	}
	return Classification{Kind: Single}
}

// Group: 按大写基名聚合的 1~2 个成员。
type Group struct {
	Key     string
	Members map[contract.Polarity]contract.FileID
}

// Has 判断组内是否存在某类别。
func (g Group) Has(p contract.Polarity) bool {
	_, ok := g.Members[p]
	return ok
}

// Result: 分组结果。Groups 保持首次出现顺序；Singles 保持输入顺序。
type Result struct {
	Groups  []Group
	Singles []contract.FileID
	// Replaced: CollisionLast 策略下被覆盖的文件（用于告警）。
	Replaced []contract.FileID
}

// Resolve 遍历 files（调用方保证稳定顺序）构建分组。
func Resolve(files []contract.FileID, marker string, policy CollisionPolicy) (Result, error) {
	var res Result
	index := make(map[string]int)
	for _, f := range files {
		c := Classify(f.Stem(), marker)
		if c.Kind == Single {
			res.Singles = append(res.Singles, f)
			continue
		}
		key := strings.ToUpper(c.Base)
		i, ok := index[key]
		if !ok {
			i = len(res.Groups)
			index[key] = i
			res.Groups = append(res.Groups, Group{Key: key, Members: make(map[contract.Polarity]contract.FileID, 2)})
		}
		g := res.Groups[i]
		if prev, dup := g.Members[c.Polarity]; dup {
			if policy != CollisionLast {
				return Result{}, fmt.Errorf("%w: %s and %s both map to %s/%s", contract.ErrPairCollision, prev, f, key, c.Polarity)
			}
			res.Replaced = append(res.Replaced, prev)
		}
		g.Members[c.Polarity] = f
	}
	return res, nil
}
