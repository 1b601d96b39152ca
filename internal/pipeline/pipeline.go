package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"

	"patternprep/internal/diag"
	"patternprep/internal/normalize"
	"patternprep/internal/pairing"
	"patternprep/internal/pattern"
	"patternprep/pkg/contract"
)

// - 单线程顺序执行：文件按 Reader 的稳定顺序处理，先成对组（首次出现顺序），后单文件。
// - 组内屏障：一个组的全部成员收集完成后才计算目标宽度并写出。
// - 首错即停：任一文件收集或写出失败，立即返回（已写出的文件保留）。

// Components 聚合运行所需的原子组件。
type Components struct {
	Reader contract.Reader
	Writer contract.Writer
}

// Settings 运行期配置（最小必要）。
type Settings struct {
	// Input: 输入目录；Output: 输出目录（仅用于报告展示，实际写出由 Writer 决定）。
	Input  string
	Output string
	// MaxRows: 每个文件保留的最大行数（>=1）。
	MaxRows int
	// Marker: 处理标记，追加到输出名，并在分组前从输入名剥离。
	Marker    string
	Collision pairing.CollisionPolicy
}

// FileResult: 单个输入文件的处理结果。
type FileResult struct {
	Input      contract.FileID
	Output     string
	Rows       int
	Width      int
	LinesRead  int
	Dropped    int
	CapReached bool
}

// Summary: 一次运行的汇总。
type Summary struct {
	Files    []FileResult
	Notes    []normalize.Note
	Replaced []contract.FileID
	Rows     int
	Dropped  int
}

// OutputName 返回输入文件对应的输出文件名：原始主名 + 标记 + ".txt"。
func OutputName(id contract.FileID, marker string) string {
	return id.Stem() + marker + ".txt"
}

// Run 执行完整流水线：Reader.List → Resolve → Collect → Normalize → Writer。
// rep 为 nil 时不输出控制台提示；logger 为 nil 时不记录日志。
func Run(ctx context.Context, comp Components, set Settings, logger *diag.Logger, rep *diag.Reporter) (Summary, error) {
	var sum Summary
	if err := sanity(comp, set); err != nil {
		return sum, fmt.Errorf("sanity: %w", err)
	}
	if logger == nil {
		logger = diag.NewNop()
	}
	rep.RunStart(set.Input, set.Output, set.MaxRows)

	lt := logger.StartWith("reader", "list", set.Input, nil)
	files, err := comp.Reader.List(ctx, set.Input)
	if err != nil {
		fail(logger, "reader", "list failed", lt, set.Input, err)
		return sum, err
	}
	lt.Finish("list", int64(len(files)))
	diag.IncOp("reader", "finish", "success")

	if err := uniqueOutputs(files, set.Marker); err != nil {
		logger.Error("pairing", diag.Classify(err), err.Error(), nil)
		return sum, err
	}
	res, err := pairing.Resolve(files, set.Marker, set.Collision)
	if err != nil {
		logger.Error("pairing", diag.Classify(err), err.Error(), nil)
		diag.IncError("pairing", diag.Classify(err))
		return sum, err
	}
	logger.DebugStart("pairing", "resolved", "", map[string]string{
		"groups":  strconv.Itoa(len(res.Groups)),
		"singles": strconv.Itoa(len(res.Singles)),
	})
	for _, f := range res.Replaced {
		logger.Warn("pairing", "superseded by later file with same base and polarity", string(f), nil)
		rep.Replaced(string(f))
	}
	sum.Replaced = res.Replaced

	for _, g := range res.Groups {
		if err := runGroup(ctx, comp, set, logger, rep, g, &sum); err != nil {
			return sum, err
		}
	}
	for _, f := range res.Singles {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		col, err := collect(ctx, comp.Reader, f, set.MaxRows, logger)
		if err != nil {
			return sum, err
		}
		if err := emit(ctx, comp.Writer, set, logger, rep, f, col, normalize.MaxLen(col.Rows), &sum); err != nil {
			return sum, err
		}
	}
	return sum, nil
}

// runGroup 先收集全部成员，再以共同目标宽度逐个写出。
func runGroup(ctx context.Context, comp Components, set Settings, logger *diag.Logger, rep *diag.Reporter, g pairing.Group, sum *Summary) error {
	cols := make(map[contract.Polarity]pattern.Collection, 2)
	for _, p := range contract.Polarities() {
		id, ok := g.Members[p]
		if !ok {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		col, err := collect(ctx, comp.Reader, id, set.MaxRows, logger)
		if err != nil {
			return err
		}
		cols[p] = col
	}

	target, note := normalize.Pair(g.Key, cols[contract.Positive].Rows, cols[contract.Negative].Rows,
		g.Has(contract.Positive), g.Has(contract.Negative))

	for _, p := range contract.Polarities() {
		id, ok := g.Members[p]
		if !ok {
			continue
		}
		if err := emit(ctx, comp.Writer, set, logger, rep, id, cols[p], target, sum); err != nil {
			return err
		}
	}
	if note != nil {
		sum.Notes = append(sum.Notes, *note)
		logger.DebugStart("normalize", "pair normalized", "", map[string]string{
			"key":      note.Key,
			"target":   strconv.Itoa(note.Target),
			"positive": strconv.Itoa(note.Positive),
			"negative": strconv.Itoa(note.Negative),
		})
		rep.Pair(*note)
	}
	return nil
}

func collect(ctx context.Context, r contract.Reader, id contract.FileID, maxRows int, logger *diag.Logger) (pattern.Collection, error) {
	t := logger.StartWith("collect", "collect", string(id), nil)
	rc, err := r.Open(ctx, id)
	if err != nil {
		fail(logger, "collect", "open failed", t, string(id), err)
		return pattern.Collection{}, fmt.Errorf("open %s: %w", id, err)
	}
	defer rc.Close()
	col, err := pattern.Collect(ctx, rc, maxRows)
	if err != nil {
		fail(logger, "collect", "read failed", t, string(id), err)
		return pattern.Collection{}, fmt.Errorf("collect %s: %w", id, err)
	}
	t.Finish("collected", int64(len(col.Rows)))
	diag.IncOp("collect", "finish", "success")
	return col, nil
}

func emit(ctx context.Context, w contract.Writer, set Settings, logger *diag.Logger, rep *diag.Reporter,
	id contract.FileID, col pattern.Collection, width int, sum *Summary) error {
	name := OutputName(id, set.Marker)
	t := logger.StartWith("writer", "write", name, map[string]string{"width": strconv.Itoa(width)})
	if err := w.Write(ctx, contract.Table{Name: name, Width: width, Rows: col.Rows}); err != nil {
		fail(logger, "writer", "write failed", t, name, err)
		return fmt.Errorf("write %s: %w", name, err)
	}
	t.Finish("written", int64(len(col.Rows)))
	diag.IncOp("writer", "finish", "success")

	out := filepath.Join(set.Output, name)
	fr := FileResult{
		Input:      id,
		Output:     out,
		Rows:       len(col.Rows),
		Width:      width,
		LinesRead:  col.LinesRead,
		Dropped:    col.Dropped,
		CapReached: col.CapReached,
	}
	sum.Files = append(sum.Files, fr)
	sum.Rows += fr.Rows
	sum.Dropped += fr.Dropped
	rep.File(string(id), out, fr.Rows, width, fr.Dropped)
	if fr.Rows < set.MaxRows {
		logger.Warn("writer", "under capacity", name, map[string]string{
			"rows": strconv.Itoa(fr.Rows),
			"cap":  strconv.Itoa(set.MaxRows),
		})
		rep.UnderCap(out, fr.Rows, set.MaxRows)
	}
	return nil
}

// uniqueOutputs 拒绝映射到同一输出名的输入（例如同主名不同扩展名）。
func uniqueOutputs(files []contract.FileID, marker string) error {
	seen := make(map[string]contract.FileID, len(files))
	for _, f := range files {
		name := OutputName(f, marker)
		if prev, ok := seen[name]; ok {
			return fmt.Errorf("%w: %s and %s both write %s", contract.ErrInvalidInput, prev, f, name)
		}
		seen[name] = f
	}
	return nil
}

func fail(logger *diag.Logger, comp, msg string, t *diag.Timer, fileID string, err error) {
	code := diag.Classify(err)
	logger.ErrorWith(comp, code, msg+": "+err.Error(), t.Since(), fileID, nil)
	diag.IncOp(comp, "error", "error")
	if code != diag.CodeUnknown {
		diag.IncError(comp, code)
	}
}

func sanity(comp Components, set Settings) error {
	if comp.Reader == nil || comp.Writer == nil {
		return errors.New("missing component")
	}
	if set.MaxRows < 1 {
		return fmt.Errorf("%w: max rows %d", contract.ErrInvalidInput, set.MaxRows)
	}
	if set.Input == "" {
		return fmt.Errorf("%w: input directory not set", contract.ErrInvalidInput)
	}
	return nil
}
