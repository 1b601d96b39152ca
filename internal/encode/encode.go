package encode

import (
	"context"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"patternprep/pkg/contract"
)

// Result: 编码结果。Lines 每条记录一行（token 以单个空格连接）。
type Result struct {
	Lines   []string
	Records int
	Dropped int
}

// Encode 读取带表头的 CSV 并按档案编码。
// 所有单元格按字符串读取（不做类型推断）；缺失列返回 ErrInvalidInput。
func Encode(ctx context.Context, r io.Reader, p Profile) (Result, error) {
	df := dataframe.ReadCSV(r,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.NaNValues(p.Missing),
	)
	if df.Err != nil {
		return Result{}, fmt.Errorf("%w: csv: %v", contract.ErrInvalidInput, df.Err)
	}

	byKey := make(map[string]string, df.Ncol())
	for _, h := range df.Names() {
		byKey[headerKey(h)] = h
	}
	drop := make(map[string]bool, len(p.DropColumns))
	for _, c := range p.DropColumns {
		drop[headerKey(c)] = true
	}

	var missingCols []string
	cols := make([][]cell, len(p.Columns))
	for i, c := range p.Columns {
		h, ok := byKey[headerKey(c.Name)]
		if !ok {
			missingCols = append(missingCols, c.Name)
			continue
		}
		cols[i] = cells(df.Col(h))
	}
	if len(missingCols) > 0 {
		return Result{}, fmt.Errorf("%w: missing expected columns %v", contract.ErrInvalidInput, missingCols)
	}

	// 完整性判定覆盖所有未被移除的列（含未映射列）
	var checked [][]cell
	if p.DropIncomplete {
		for _, h := range df.Names() {
			if !drop[headerKey(h)] {
				checked = append(checked, cells(df.Col(h)))
			}
		}
	}

	res := Result{Records: df.Nrow()}
	tokens := make([]string, 0, len(p.Columns))
rows:
	for i := 0; i < df.Nrow(); i++ {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		for _, col := range checked {
			if col[i].missing {
				res.Dropped++
				continue rows
			}
		}
		tokens = tokens[:0]
		for j, c := range p.Columns {
			tokens = append(tokens, c.Prefix+encodeValue(c, cols[j][i]))
		}
		res.Lines = append(res.Lines, strings.Join(tokens, " "))
	}
	return res, nil
}

type cell struct {
	value   string
	missing bool
}

func cells(s series.Series) []cell {
	recs := s.Records()
	nan := s.IsNaN()
	out := make([]cell, len(recs))
	for i, v := range recs {
		v = strings.TrimSpace(strings.ReplaceAll(v, "\u00a0", " "))
		out[i] = cell{value: v, missing: nan[i] || v == ""}
	}
	return out
}

func encodeValue(c Column, v cell) string {
	if v.missing {
		return orDefault(c.Default, "0")
	}
	switch c.Kind {
	case KindInt:
		f, err := strconv.ParseFloat(v.value, 64)
		if err != nil {
			return orDefault(c.Default, "0")
		}
		if f < 0 && c.Negative != "" {
			return c.Negative
		}
		return strconv.FormatFloat(math.Trunc(f), 'f', 0, 64)
	case KindDecimal:
		return decimal(c, v.value)
	case KindMap:
		n := normalizeValue(v.value)
		if isDigits(n) {
			return n
		}
		if m, ok := c.Map[n]; ok {
			return m
		}
		return orDefault(c.Default, n)
	case KindYesNo:
		return yesNo(v.value)
	default:
		return v.value
	}
}

// decimal: 整数值输出整数；否则以 '0' 替换小数点（93.3 -> 9303，1.55 -> 1055）。
// 设置 Places 时先四舍五入到该位数。
func decimal(c Column, s string) string {
	if s == "." {
		return "0"
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		if c.Default != "" {
			return c.Default
		}
		return strings.ReplaceAll(s, ".", "0")
	}
	if f < 0 && c.Negative != "" {
		return c.Negative
	}
	if f == math.Trunc(f) {
		return strconv.FormatFloat(f, 'f', 0, 64)
	}
	prec := -1
	if c.Places != nil {
		prec = *c.Places
	}
	return strings.ReplaceAll(strconv.FormatFloat(f, 'f', prec, 64), ".", "0")
}

func yesNo(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "y", "true", "1":
		return "1"
	case "no", "n", "false", "0":
		return "0"
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && math.Trunc(f) == 1 {
		return "1"
	}
	return "0"
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func orDefault(v, def string) string {
	if v != "" {
		return v
	}
	return def
}
