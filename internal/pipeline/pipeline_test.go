package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"patternprep/internal/diag"
	"patternprep/internal/normalize"
	"patternprep/internal/pairing"
	"patternprep/pkg/contract"
	rfs "patternprep/plugins/reader/filesystem"
	wfs "patternprep/plugins/writer/filesystem"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fixture struct {
	in, out string
	comp    Components
}

func newFixture(t *testing.T, files map[string]string) fixture {
	t.Helper()
	in := t.TempDir()
	out := filepath.Join(t.TempDir(), "out")
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(in, name), []byte(body), 0o644))
	}
	w, err := wfs.New(&wfs.Options{OutputDir: out})
	require.NoError(t, err)
	return fixture{in: in, out: out, comp: Components{Reader: rfs.New(nil), Writer: w}}
}

func (f fixture) settings(maxRows int) Settings {
	return Settings{Input: f.in, Output: f.out, MaxRows: maxRows, Marker: pairing.DefaultMarker, Collision: pairing.CollisionError}
}

func (f fixture) read(t *testing.T, name string) string {
	t.Helper()
	b, err := os.ReadFile(filepath.Join(f.out, name))
	require.NoError(t, err)
	return string(b)
}

func TestRunPairNormalizes(t *testing.T) {
	f := newFixture(t, map[string]string{
		"DiseaseXPositive.txt": "1 2 3 4 5 #SUP: 10\n6 7 8 9 10 #SUP: 9\n",
		"DiseaseXNegative.txt": "11 12 13 #SUP: 4\n14 15 16 #SUP: 3\n",
	})
	var sb strings.Builder
	rep := diag.NewReporter(&sb, true)
	sum, err := Run(context.Background(), f.comp, f.settings(500), diag.NewNop(), rep)
	require.NoError(t, err)

	require.Equal(t, "1,2,3,4,5\n6,7,8,9,10\n", f.read(t, "DiseaseXPositive-cleaned.txt"))
	require.Equal(t, "11,12,13,?,?\n14,15,16,?,?\n", f.read(t, "DiseaseXNegative-cleaned.txt"))
	require.Equal(t, []normalize.Note{{Key: "DISEASEX", Positive: 5, Negative: 3, Target: 5, Diff: 2, Padded: contract.Negative}}, sum.Notes)
	require.Len(t, sum.Files, 2)
	require.Equal(t, 4, sum.Rows)

	out := sb.String()
	require.Contains(t, out, "[pair] DISEASEX normalized: target=5 (Positive=5, Negative=3; Negative padded with 2 '?')")
	require.Contains(t, out, "| rows=2 | width=5")
	require.Contains(t, out, "has only 2 rows (cap 500)")
}

func TestRunCapAndSingles(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 10; i++ {
		b.WriteString("1 2 3 #UTIL: 7\n")
		b.WriteString("4 5 #UTIL: 7\n") // 少于 3 个，丢弃
	}
	f := newFixture(t, map[string]string{
		"summary.txt":      b.String(),
		"onlyPositive.txt": "1 2 3\n1 2 3 4\n",
	})
	var sb strings.Builder
	sum, err := Run(context.Background(), f.comp, f.settings(3), nil, diag.NewReporter(&sb, true))
	require.NoError(t, err)

	require.Equal(t, "1,2,3\n1,2,3\n1,2,3\n", f.read(t, "summary-cleaned.txt"))
	// 单侧成对组：以自身宽度补齐
	require.Equal(t, "1,2,3,?\n1,2,3,4\n", f.read(t, "onlyPositive-cleaned.txt"))
	require.Empty(t, sum.Notes)

	var capped FileResult
	for _, fr := range sum.Files {
		if strings.HasSuffix(fr.Output, "summary-cleaned.txt") {
			capped = fr
		}
	}
	require.True(t, capped.CapReached)
	require.Equal(t, 3, capped.Rows)
	require.NotContains(t, sb.String(), "summary-cleaned.txt has only")
	require.Contains(t, sb.String(), "onlyPositive-cleaned.txt has only 2 rows (cap 3)")
}

func TestRunEmptyPolarityKeepsPartnerWidth(t *testing.T) {
	f := newFixture(t, map[string]string{
		"aPositive.txt": "1 2 3 4\n",
		"aNegative.txt": "noise only\n0 0 0\n",
	})
	sum, err := Run(context.Background(), f.comp, f.settings(500), nil, nil)
	require.NoError(t, err)
	require.Equal(t, "1,2,3,4\n", f.read(t, "aPositive-cleaned.txt"))
	require.Equal(t, "", f.read(t, "aNegative-cleaned.txt"))
	require.Empty(t, sum.Notes)
	for _, fr := range sum.Files {
		require.Equal(t, 4, fr.Width)
	}
}

func TestRunMarkerStrippedForGrouping(t *testing.T) {
	f := newFixture(t, map[string]string{
		"heartPositive-cleaned.txt": "1 2 3\n",
		"HEARTnegative.txt":         "1 2 3 4\n",
	})
	sum, err := Run(context.Background(), f.comp, f.settings(500), nil, nil)
	require.NoError(t, err)
	require.Len(t, sum.Notes, 1)
	require.Equal(t, "HEART", sum.Notes[0].Key)
	require.Equal(t, "1,2,3,?\n", f.read(t, "heartPositive-cleaned-cleaned.txt"))
}

func TestRunCollision(t *testing.T) {
	files := map[string]string{
		"aPositive.txt":         "1 2 3\n",
		"aPositive-cleaned.txt": "1 2 3 4 5\n",
		"aNegative.txt":         "1 2 3\n",
	}
	f := newFixture(t, files)
	_, err := Run(context.Background(), f.comp, f.settings(500), nil, nil)
	require.ErrorIs(t, err, contract.ErrPairCollision)

	set := f.settings(500)
	set.Collision = pairing.CollisionLast
	var sb strings.Builder
	sum, err := Run(context.Background(), f.comp, set, nil, diag.NewReporter(&sb, true))
	require.NoError(t, err)
	require.Len(t, sum.Replaced, 1)
	require.Contains(t, sb.String(), "superseded")
	// 字典序：aPositive-cleaned.txt 先于 aPositive.txt，后者胜出
	require.Equal(t, "1,2,3\n", f.read(t, "aPositive-cleaned.txt"))
}

func TestRunDuplicateOutputName(t *testing.T) {
	f := newFixture(t, map[string]string{"x.txt": "1 2 3\n", "x.out": "1 2 3\n"})
	f.comp.Reader = rfs.New(&rfs.Options{Exts: []string{".txt", ".out"}})
	_, err := Run(context.Background(), f.comp, f.settings(500), nil, nil)
	require.ErrorIs(t, err, contract.ErrInvalidInput)
}

func TestRunMissingAndEmptyInput(t *testing.T) {
	f := newFixture(t, nil)
	_, err := Run(context.Background(), f.comp, f.settings(500), nil, nil)
	require.ErrorIs(t, err, contract.ErrInputEmpty)

	set := f.settings(500)
	set.Input = filepath.Join(f.in, "missing")
	_, err = Run(context.Background(), f.comp, set, nil, nil)
	require.ErrorIs(t, err, contract.ErrInputMissing)
}

type failWriter struct{ err error }

func (w failWriter) Write(context.Context, contract.Table) error { return w.err }

func TestRunWriteFailureAborts(t *testing.T) {
	f := newFixture(t, map[string]string{"a.txt": "1 2 3\n", "b.txt": "1 2 3\n"})
	boom := errors.New("disk full")
	f.comp.Writer = failWriter{err: boom}
	sum, err := Run(context.Background(), f.comp, f.settings(500), nil, nil)
	require.ErrorIs(t, err, boom)
	require.Contains(t, err.Error(), "write a-cleaned.txt")
	require.Empty(t, sum.Files)
}

func TestRunCanceled(t *testing.T) {
	f := newFixture(t, map[string]string{"a.txt": "1 2 3\n"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Run(ctx, f.comp, f.settings(500), nil, nil)
	require.ErrorIs(t, err, context.Canceled)
}

func TestRunSanity(t *testing.T) {
	_, err := Run(context.Background(), Components{}, Settings{}, nil, nil)
	require.Error(t, err)
	f := newFixture(t, nil)
	set := f.settings(0)
	_, err = Run(context.Background(), f.comp, set, nil, nil)
	require.ErrorIs(t, err, contract.ErrInvalidInput)
}

func TestOutputName(t *testing.T) {
	require.Equal(t, "DiseaseXPositive-cleaned.txt", OutputName("in/DiseaseXPositive.txt", "-cleaned"))
	require.Equal(t, "a.b.txt", OutputName("a.b.out", ""))
}
