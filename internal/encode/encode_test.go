package encode

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"patternprep/pkg/contract"
)

const heartProfile = `
name: heart
drop_columns: [StudyID]
drop_incomplete: true
columns:
  - {name: Age, prefix: "888", kind: raw}
  - {name: Sex, prefix: "889", kind: map, map: {M: "1", f: "0"}, default: "0"}
  - {name: Oldpeak, prefix: "897", kind: decimal, negative: "999"}
  - {name: Outcome, prefix: "9999", kind: int}
  - name: chest_pain_type
    prefix: "890"
    kind: map
    map: {"Typical - Angina": "1", "atypical angina": "2"}
    default: "9"
`

const heartCSV = "StudyID,Age,Sex,Oldpeak,Outcome,Chest Pain Type\n" +
	"1,63,M,1.5,1,typical – angina\n" +
	"2,41,F,-0.5,0,ATYPICAL  angina\n" +
	"3,,M,0.0,1,4\n" +
	"4,55,f,2,0.9,weird\n" +
	",57,M,.,1,4\n"

func mustProfile(t *testing.T, y string) Profile {
	t.Helper()
	p, err := ParseProfile(strings.NewReader(y))
	require.NoError(t, err)
	return p
}

func TestEncodeHeart(t *testing.T) {
	p := mustProfile(t, heartProfile)
	res, err := Encode(context.Background(), strings.NewReader(heartCSV), p)
	require.NoError(t, err)
	require.Equal(t, 5, res.Records)
	require.Equal(t, 1, res.Dropped)
	require.Equal(t, []string{
		"88863 8891 897105 99991 8901",
		"88841 8890 897999 99990 8902",
		"88855 8890 8972 99990 8909",
		"88857 8891 8970 99991 8904",
	}, res.Lines)
}

func TestEncodeKeepIncomplete(t *testing.T) {
	p := mustProfile(t, strings.Replace(heartProfile, "drop_incomplete: true", "drop_incomplete: false", 1))
	res, err := Encode(context.Background(), strings.NewReader(heartCSV), p)
	require.NoError(t, err)
	require.Zero(t, res.Dropped)
	require.Len(t, res.Lines, 5)
	require.Equal(t, "8880 8891 8970 99991 8904", res.Lines[2])
}

func TestEncodeMissingColumn(t *testing.T) {
	p := mustProfile(t, heartProfile)
	_, err := Encode(context.Background(), strings.NewReader("Age,Sex\n1,M\n"), p)
	require.ErrorIs(t, err, contract.ErrInvalidInput)
	require.Contains(t, err.Error(), "Oldpeak")
}

func TestEncodeCanceled(t *testing.T) {
	p := mustProfile(t, heartProfile)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Encode(ctx, strings.NewReader(heartCSV), p)
	require.ErrorIs(t, err, context.Canceled)
}

func TestValueKinds(t *testing.T) {
	dec := Column{Kind: KindDecimal}
	require.Equal(t, "9303", encodeValue(dec, cell{value: "93.3"}))
	require.Equal(t, "-005", encodeValue(dec, cell{value: "-0.5"}))
	require.Equal(t, "1202", encodeValue(dec, cell{value: "12.2"}))
	require.Equal(t, "0", encodeValue(dec, cell{value: "."}))
	require.Equal(t, "#NULL!", encodeValue(dec, cell{value: "#NULL!"}))
	require.Equal(t, "0", encodeValue(dec, cell{missing: true}))
	require.Equal(t, "1055", encodeValue(dec, cell{value: "1.55"}))
	require.Equal(t, "3106", encodeValue(dec, cell{value: "31.60"}))
	require.Equal(t, "0626", encodeValue(dec, cell{value: "0.626"}))

	one := 1
	rounded := Column{Kind: KindDecimal, Places: &one}
	require.Equal(t, "106", encodeValue(rounded, cell{value: "1.55"}))
	require.Equal(t, "9303", encodeValue(rounded, cell{value: "93.33"}))
	require.Equal(t, "7", encodeValue(rounded, cell{value: "7.0"}))

	in := Column{Kind: KindInt, Default: "5"}
	require.Equal(t, "12", encodeValue(in, cell{value: "12.9"}))
	require.Equal(t, "5", encodeValue(in, cell{value: "n/a"}))

	yn := Column{Kind: KindYesNo}
	for in, want := range map[string]string{"Yes": "1", "y": "1", "TRUE": "1", "1.0": "1", "No": "0", "maybe": "0", "2": "0"} {
		require.Equal(t, want, encodeValue(yn, cell{value: in}), in)
	}

	m := Column{Kind: KindMap, Map: map[string]string{"male": "1"}}
	require.Equal(t, "1", encodeValue(m, cell{value: "  MALE "}))
	require.Equal(t, "3", encodeValue(m, cell{value: "3"}))
	require.Equal(t, "other value", encodeValue(m, cell{value: "Other   Value"}))

	require.Equal(t, "x y", encodeValue(Column{Kind: KindRaw}, cell{value: "x y"}))
}

func TestNormalizers(t *testing.T) {
	require.Equal(t, "age3categories", headerKey("Age.3 categories"))
	require.Equal(t, "a - b", normalizeValue("  A — B "))
	require.Equal(t, "a - b", normalizeValue("a – b"))
}

func TestParseProfileErrors(t *testing.T) {
	cases := map[string]string{
		"unknown field":   "name: x\ncolumns: [{name: a, prefix: '1'}]\nbogus: 1\n",
		"no columns":      "name: x\n",
		"bad prefix":      "columns: [{name: a, prefix: 'x1'}]\n",
		"empty prefix":    "columns: [{name: a}]\n",
		"unknown kind":    "columns: [{name: a, prefix: '1', kind: float}]\n",
		"empty map":       "columns: [{name: a, prefix: '1', kind: map}]\n",
		"duplicate":       "columns: [{name: Age, prefix: '1'}, {name: age, prefix: '2'}]\n",
		"no name":         "columns: [{prefix: '1'}]\n",
		"places on raw":   "columns: [{name: a, prefix: '1', places: 1}]\n",
		"negative places": "columns: [{name: a, prefix: '1', kind: decimal, places: -1}]\n",
	}
	for name, y := range cases {
		_, err := ParseProfile(strings.NewReader(y))
		require.Truef(t, errors.Is(err, contract.ErrInvalidInput), "%s: %v", name, err)
	}
}

func TestLoadProfileDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "p.yaml")
	require.NoError(t, os.WriteFile(path, []byte("columns: [{name: a, prefix: '1'}]\n"), 0o644))
	p, err := LoadProfile(path)
	require.NoError(t, err)
	require.Equal(t, KindRaw, p.Columns[0].Kind)
	require.Equal(t, DefaultMissing, p.Missing)

	_, err = LoadProfile(filepath.Join(t.TempDir(), "none.yaml"))
	require.Error(t, err)
}
