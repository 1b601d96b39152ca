package normalize

import (
	"testing"

	"github.com/stretchr/testify/require"

	"patternprep/pkg/contract"
)

func rows(lens ...int) []contract.Row {
	out := make([]contract.Row, 0, len(lens))
	for _, l := range lens {
		r := make(contract.Row, l)
		for i := range r {
			r[i] = "1"
		}
		out = append(out, r)
	}
	return out
}

func TestMaxLenTarget(t *testing.T) {
	require.Zero(t, MaxLen(nil))
	require.Equal(t, 5, MaxLen(rows(3, 5, 4)))
	require.Equal(t, 6, Target(rows(3, 5), rows(6), nil))
	require.Zero(t, Target())
}

func TestPairDiseaseXExample(t *testing.T) {
	target, note := Pair("DISEASEX", rows(5, 5), rows(3, 3), true, true)
	require.Equal(t, 5, target)
	require.NotNil(t, note)
	require.Equal(t, Note{Key: "DISEASEX", Positive: 5, Negative: 3, Target: 5, Diff: 2, Padded: contract.Negative}, *note)
}

func TestPairNegativeWider(t *testing.T) {
	target, note := Pair("K", rows(3), rows(4, 7), true, true)
	require.Equal(t, 7, target)
	require.Equal(t, contract.Positive, note.Padded)
	require.Equal(t, 4, note.Diff)
}

func TestPairNoNote(t *testing.T) {
	// 宽度相同
	target, note := Pair("K", rows(4), rows(4, 3), true, true)
	require.Equal(t, 4, target)
	require.Nil(t, note)
	// 一侧为空文件：不压低同伴宽度，也不产生说明
	target, note = Pair("K", rows(4, 6), nil, true, true)
	require.Equal(t, 6, target)
	require.Nil(t, note)
	// 仅一侧存在
	target, note = Pair("K", nil, rows(3), false, true)
	require.Equal(t, 3, target)
	require.Nil(t, note)
	// 两侧均空
	target, note = Pair("K", nil, nil, true, true)
	require.Zero(t, target)
	require.Nil(t, note)
}

func TestPad(t *testing.T) {
	row := contract.Row{"12", "45", "7"}
	got := Pad(row, 5)
	require.Equal(t, contract.Row{"12", "45", "7", "?", "?"}, got)
	require.Equal(t, contract.Row{"12", "45", "7"}, row, "原行不被修改")

	// 不截断
	require.Equal(t, row, Pad(row, 2))
	require.Equal(t, row, Pad(row, 3))
	require.Empty(t, Pad(nil, 0))
}

func TestPadPreservesPrefix(t *testing.T) {
	for _, r := range rows(3, 4, 9) {
		p := Pad(r, 9)
		require.Len(t, p, 9)
		require.Equal(t, r, p[:len(r)])
		for _, tok := range p[len(r):] {
			require.Equal(t, contract.Sentinel, tok)
		}
	}
}
