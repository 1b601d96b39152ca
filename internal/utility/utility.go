// Package utility 为编码后的 token 行附加效用标注（HUIM 与 USPAN 两种输入格式）。
package utility

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"patternprep/pkg/contract"
)

// Profile: 按位置的特征效用。Total 为 0 时取 Weights 之和。
type Profile struct {
	Total   int   `yaml:"total"`
	Weights []int `yaml:"weights"`
}

// LoadProfile 读取 YAML 档案文件。
func LoadProfile(path string) (Profile, error) {
	f, err := os.Open(path)
	if err != nil {
		return Profile{}, err
	}
	defer f.Close()
	return ParseProfile(f)
}

// ParseProfile 严格解析 YAML 并校验：权重非负，Total 与权重之和一致。
func ParseProfile(r io.Reader) (Profile, error) {
	var p Profile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil {
		return Profile{}, fmt.Errorf("%w: utility profile: %v", contract.ErrInvalidInput, err)
	}
	if len(p.Weights) == 0 {
		return Profile{}, fmt.Errorf("%w: utility profile has no weights", contract.ErrInvalidInput)
	}
	sum := 0
	for i, w := range p.Weights {
		if w < 0 {
			return Profile{}, fmt.Errorf("%w: weight %d is negative (%d)", contract.ErrInvalidInput, i, w)
		}
		sum += w
	}
	if p.Total == 0 {
		p.Total = sum
	}
	if p.Total != sum {
		return Profile{}, fmt.Errorf("%w: total %d differs from weight sum %d", contract.ErrInvalidInput, p.Total, sum)
	}
	return p, nil
}

func (p Profile) check(tokens []string) error {
	if len(tokens) > len(p.Weights) {
		return fmt.Errorf("%w: %d tokens but only %d weights", contract.ErrInvalidInput, len(tokens), len(p.Weights))
	}
	return nil
}

// HUIM: "<tokens>:<total>:<全部权重>"，后缀对所有行相同。
func HUIM(tokens []string, p Profile) (string, error) {
	if err := p.check(tokens); err != nil {
		return "", err
	}
	var b strings.Builder
	b.WriteString(strings.Join(tokens, " "))
	b.WriteByte(':')
	b.WriteString(strconv.Itoa(p.Total))
	b.WriteByte(':')
	for i, w := range p.Weights {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(strconv.Itoa(w))
	}
	return b.String(), nil
}

// USPAN: "t1[w1] -1 t2[w2] -1 ... -2 SUtility:<total>"。
func USPAN(tokens []string, p Profile) (string, error) {
	if err := p.check(tokens); err != nil {
		return "", err
	}
	var b strings.Builder
	for i, t := range tokens {
		fmt.Fprintf(&b, "%s[%d] -1 ", t, p.Weights[i])
	}
	b.WriteString("-2 SUtility:")
	b.WriteString(strconv.Itoa(p.Total))
	return b.String(), nil
}

// Result: 两种格式的输出行（顺序与输入一致）。
type Result struct {
	HUIM  []string
	USPAN []string
	// Skipped: 跳过的空行数。
	Skipped int
}

// Annotate 逐行读取 token 文件并生成两种标注；空行跳过。
// 出错时返回的错误带 1 起始的行号。
func Annotate(ctx context.Context, r io.Reader, p Profile) (Result, error) {
	var res Result
	br := bufio.NewReader(r)
	for n := 1; ; n++ {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		line, err := br.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return Result{}, err
		}
		if line == "" && err != nil {
			break
		}
		tokens := strings.Fields(line)
		if len(tokens) == 0 {
			res.Skipped++
		} else {
			h, herr := HUIM(tokens, p)
			if herr != nil {
				return Result{}, fmt.Errorf("line %d: %w", n, herr)
			}
			u, _ := USPAN(tokens, p)
			res.HUIM = append(res.HUIM, h)
			res.USPAN = append(res.USPAN, u)
		}
		if err != nil {
			break
		}
	}
	return res, nil
}

// OutputNames 返回 stem 对应的 HUIM 与 USPAN 输出文件名。
func OutputNames(stem string) (huim, uspan string) {
	return stem + "HUIM.txt", stem + "HUIMUSPAN.txt"
}
