package filesystem

import (
	"bufio"
	"context"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"patternprep/pkg/contract"
)

// Options: 最小必要选项。
type Options struct {
	// OutputDir: 输出目录（必需）。不存在时创建。
	OutputDir string `json:"output_dir"`
	// Atomic: 是否使用原子替换（同目录临时文件 + rename）。
	// 默认值：true。未提供该字段时采用原子写；显式 false 可关闭。
	Atomic *bool `json:"atomic,omitempty"`
	// PermFile/PermDir: 可选权限；为 0 表示使用默认 0644/0755。
	PermFile os.FileMode `json:"perm_file,omitempty"`
	PermDir  os.FileMode `json:"perm_dir,omitempty"`
	// BufSize: 写缓冲区大小；<=0 使用实现默认。
	BufSize int `json:"buf_size,omitempty"`
}

// FS 将补齐后的表写为逗号分隔的文本文件（每行一条，'\n' 结尾，UTF-8）。
type FS struct {
	root    string
	atomic  bool
	permF   os.FileMode
	permD   os.FileMode
	bufSize int
}

// New 创建文件系统 Writer 实现。
func New(opts *Options) (*FS, error) {
	if opts == nil || strings.TrimSpace(opts.OutputDir) == "" {
		return nil, os.ErrInvalid
	}
	bsz := opts.BufSize
	if bsz <= 0 {
		bsz = 64 * 1024
	}
	pf := opts.PermFile
	if pf == 0 {
		pf = 0o644
	}
	pd := opts.PermDir
	if pd == 0 {
		pd = 0o755
	}
	atomic := true
	if opts.Atomic != nil {
		atomic = *opts.Atomic
	}
	return &FS{root: opts.OutputDir, atomic: atomic, permF: pf, permD: pd, bufSize: bsz}, nil
}

var _ contract.Writer = (*FS)(nil)

// Root 返回输出目录。
func (w *FS) Root() string { return w.root }

// Write 将表 t 写入 OutputDir/t.Name；已存在则覆盖。
func (w *FS) Write(ctx context.Context, t contract.Table) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	if err := contract.ValidateTable(t); err != nil {
		return err
	}
	dest := filepath.Join(w.root, t.Name)
	if err := os.MkdirAll(w.root, w.permD); err != nil {
		return err
	}
	if w.atomic {
		return w.writeAtomic(ctx, dest, t)
	}
	return w.writeOverwrite(ctx, dest, t)
}

// WriteLines 写出任意文本行（每行追加 '\n'），供编码/效用标注阶段复用同一落盘策略。
func (w *FS) WriteLines(ctx context.Context, name string, lines []string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	if err := contract.ValidateTable(contract.Table{Name: name}); err != nil {
		return err
	}
	if err := os.MkdirAll(w.root, w.permD); err != nil {
		return err
	}
	dest := filepath.Join(w.root, name)
	body := func(bw io.Writer) error {
		for _, l := range lines {
			if err := ctx.Err(); err != nil {
				return err
			}
			if _, err := io.WriteString(bw, l+"\n"); err != nil {
				return err
			}
		}
		return nil
	}
	if w.atomic {
		return w.atomicWith(dest, body)
	}
	return w.overwriteWith(dest, body)
}

// encodeTable 逐行写出：行右侧以 Sentinel 补齐到 t.Width，逗号连接。
func encodeTable(ctx context.Context, bw io.Writer, t contract.Table) error {
	for _, r := range t.Rows {
		if err := ctx.Err(); err != nil {
			return err
		}
		var b strings.Builder
		for i := 0; i < t.Width; i++ {
			if i > 0 {
				b.WriteByte(',')
			}
			if i < len(r) {
				b.WriteString(r[i])
			} else {
				b.WriteString(contract.Sentinel)
			}
		}
		b.WriteByte('\n')
		if _, err := io.WriteString(bw, b.String()); err != nil {
			return err
		}
	}
	return nil
}

func (w *FS) writeOverwrite(ctx context.Context, dest string, t contract.Table) error {
	return w.overwriteWith(dest, func(bw io.Writer) error { return encodeTable(ctx, bw, t) })
}

func (w *FS) writeAtomic(ctx context.Context, dest string, t contract.Table) error {
	return w.atomicWith(dest, func(bw io.Writer) error { return encodeTable(ctx, bw, t) })
}

func (w *FS) overwriteWith(dest string, body func(io.Writer) error) error {
	f, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, w.permF)
	if err != nil {
		return err
	}
	defer f.Close()

	bw := bufio.NewWriterSize(f, w.bufSize)
	if err := body(bw); err != nil {
		return err
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	return f.Close()
}

func (w *FS) atomicWith(dest string, body func(io.Writer) error) error {
	dir := filepath.Dir(dest)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	// 目标权限：尽量与期望一致
	_ = os.Chmod(tmpPath, w.permF)

	fail := func(err error) error {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	bw := bufio.NewWriterSize(tmp, w.bufSize)
	if err := body(bw); err != nil {
		return fail(err)
	}
	if err := bw.Flush(); err != nil {
		return fail(err)
	}
	if err := tmp.Sync(); err != nil {
		return fail(err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	// os.Rename 在 Windows 上使用 MoveFileEx(REPLACE_EXISTING)，目标已存在时同样替换
	if err := os.Rename(tmpPath, dest); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	// 最佳努力：同步父目录，提升崩溃安全性
	_ = syncDir(dir)
	return nil
}

func syncDir(dir string) error {
	if runtime.GOOS == "windows" {
		return nil
	}
	f, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Sync()
}
