package filesystem

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"patternprep/pkg/contract"
)

func noTemp(t *testing.T, dir string) {
	t.Helper()
	entries, _ := os.ReadDir(dir)
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".tmp-") {
			t.Fatalf("tmp file not cleaned: %s", e.Name())
		}
	}
}

// TestWriteAtomic 原子写入并补齐
func TestWriteAtomic(t *testing.T) {
	dir := t.TempDir()
	a := true
	w, err := New(&Options{OutputDir: dir, Atomic: &a})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	tb := contract.Table{Name: "out.txt", Width: 3, Rows: []contract.Row{{"1", "2", "3"}, {"4"}}}
	if err := w.Write(context.Background(), tb); err != nil {
		t.Fatalf("write: %v", err)
	}
	b, err := os.ReadFile(filepath.Join(dir, "out.txt"))
	if err != nil || string(b) != "1,2,3\n4,?,?\n" {
		t.Fatalf("unexpected file %v %q", err, string(b))
	}
	noTemp(t, dir)
}

// 当目标已存在时，Atomic 写应替换为新内容。
func TestWriteAtomicReplaceExisting(t *testing.T) {
	dir := t.TempDir()
	w, err := New(&Options{OutputDir: dir})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	ctx := context.Background()
	if err := w.Write(ctx, contract.Table{Name: "out.txt", Width: 1, Rows: []contract.Row{{"1"}}}); err != nil {
		t.Fatalf("write v1: %v", err)
	}
	if err := w.Write(ctx, contract.Table{Name: "out.txt", Width: 2, Rows: []contract.Row{{"7", "8"}}}); err != nil {
		t.Fatalf("write v2: %v", err)
	}
	b, err := os.ReadFile(filepath.Join(dir, "out.txt"))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(b) != "7,8\n" {
		t.Fatalf("expect replaced content, got %q", string(b))
	}
	noTemp(t, dir)
}

// 空表写出空文件
func TestWriteEmptyTable(t *testing.T) {
	dir := t.TempDir()
	w, _ := New(&Options{OutputDir: dir})
	if err := w.Write(context.Background(), contract.Table{Name: "e.txt"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	fi, err := os.Stat(filepath.Join(dir, "e.txt"))
	if err != nil || fi.Size() != 0 {
		t.Fatalf("expect empty file, got %v %v", fi, err)
	}
}

// TestWritePathInvalid 名称含目录分隔
func TestWritePathInvalid(t *testing.T) {
	dir := t.TempDir()
	w, _ := New(&Options{OutputDir: dir})
	for _, name := range []string{"../bad", "sub/out.txt", "", ".."} {
		err := w.Write(context.Background(), contract.Table{Name: name})
		if !errors.Is(err, contract.ErrPathInvalid) {
			t.Fatalf("%q: expect path invalid, got %v", name, err)
		}
	}
}

// 行宽超过 Width 或包含占位符时拒绝写出，且不产生文件
func TestWriteInvariant(t *testing.T) {
	dir := t.TempDir()
	w, _ := New(&Options{OutputDir: dir})
	cases := []contract.Table{
		{Name: "a.txt", Width: 1, Rows: []contract.Row{{"1", "2"}}},
		{Name: "b.txt", Width: 2, Rows: []contract.Row{{"1", "?"}}},
	}
	for _, tb := range cases {
		if err := w.Write(context.Background(), tb); !errors.Is(err, contract.ErrInvariantViolation) {
			t.Fatalf("%s: expect invariant violation, got %v", tb.Name, err)
		}
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Fatalf("files left %v", entries)
	}
}

// TestWriteNonAtomic 非原子写入，输出目录按需创建
func TestWriteNonAtomic(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "out")
	a := false
	w, _ := New(&Options{OutputDir: dir, Atomic: &a})
	if err := w.Write(context.Background(), contract.Table{Name: "out.txt", Width: 2, Rows: []contract.Row{{"5"}}}); err != nil {
		t.Fatalf("write: %v", err)
	}
	b, err := os.ReadFile(filepath.Join(dir, "out.txt"))
	if err != nil || string(b) != "5,?\n" {
		t.Fatalf("unexpected file %v %q", err, string(b))
	}
}

// TestWriteCtxCancel 上下文取消
func TestWriteCtxCancel(t *testing.T) {
	dir := t.TempDir()
	w, _ := New(&Options{OutputDir: dir})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := w.Write(ctx, contract.Table{Name: "a.txt"}); err == nil {
		t.Fatalf("expect ctx error")
	}
	if err := w.WriteLines(ctx, "b.txt", []string{"x"}); err == nil {
		t.Fatalf("expect ctx error")
	}
}

// TestNewInvalid 参数缺失
func TestNewInvalid(t *testing.T) {
	if _, err := New(nil); err == nil {
		t.Fatalf("expect error for nil opts")
	}
	if _, err := New(&Options{}); err == nil {
		t.Fatalf("expect error for empty output dir")
	}
}

// 目标被目录占用时 rename 失败，临时文件需清理
func TestWriteAtomicRenameError(t *testing.T) {
	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, "a.txt"), 0o755); err != nil {
		t.Fatal(err)
	}
	w, _ := New(&Options{OutputDir: dir})
	if err := w.Write(context.Background(), contract.Table{Name: "a.txt", Width: 1, Rows: []contract.Row{{"1"}}}); err == nil {
		t.Fatalf("expect rename error")
	}
	noTemp(t, dir)
}

func TestWriteLines(t *testing.T) {
	dir := t.TempDir()
	w, _ := New(&Options{OutputDir: dir})
	if err := w.WriteLines(context.Background(), "l.txt", []string{"1 2:3:1 2", "4:4:4"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	b, _ := os.ReadFile(filepath.Join(dir, "l.txt"))
	if string(b) != "1 2:3:1 2\n4:4:4\n" {
		t.Fatalf("unexpected %q", string(b))
	}
	if err := w.WriteLines(context.Background(), "x/l.txt", nil); !errors.Is(err, contract.ErrPathInvalid) {
		t.Fatalf("expect path invalid, got %v", err)
	}
}
