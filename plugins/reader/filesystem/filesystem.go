package filesystem

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	xunicode "golang.org/x/text/encoding/unicode"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"

	"patternprep/pkg/contract"
)

// Options 为 FileSystem Reader 的可选配置（最小必要）。
type Options struct {
	// BufSize 为读缓冲区大小（字节）。默认 64KiB。
	BufSize int `json:"buf_size"`
	// Exts: 参与处理的扩展名（大小写敏感，含点）。默认 [".txt"]。
	Exts []string `json:"exts"`
}

// FileSystem 实现基于本地目录的 Reader。
// 仅列出目录下一层的常规文件（含指向常规文件的符号链接），不递归。
type FileSystem struct {
	bufSize int
	exts    map[string]struct{}
}

// New 创建 FileSystem Reader。
func New(opts *Options) *FileSystem {
	const defaultBuf = 64 * 1024
	b := defaultBuf
	if opts != nil && opts.BufSize > 0 {
		b = opts.BufSize
	}
	ex := make(map[string]struct{})
	if opts != nil {
		for _, e := range opts.Exts {
			e = strings.TrimSpace(e)
			if e == "" {
				continue
			}
			if !strings.HasPrefix(e, ".") {
				e = "." + e
			}
			ex[e] = struct{}{}
		}
	}
	if len(ex) == 0 {
		ex[".txt"] = struct{}{}
	}
	return &FileSystem{bufSize: b, exts: ex}
}

var _ contract.Reader = (*FileSystem)(nil)

// List 返回 dir 下匹配扩展名的文件，按文件名字典序。
// 目录不存在（或不是目录）返回 ErrInputMissing；无匹配文件返回 ErrInputEmpty。
func (r *FileSystem) List(ctx context.Context, dir string) ([]contract.FileID, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	st, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", contract.ErrInputMissing, dir)
		}
		return nil, err
	}
	if !st.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", contract.ErrInputMissing, dir)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	// 稳定顺序：字典序
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var out []contract.FileID
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if _, ok := r.exts[filepath.Ext(e.Name())]; !ok {
			continue
		}
		p := filepath.Join(dir, e.Name())
		// 符号链接仅跟随到常规文件；其他非常规文件（设备、FIFO 等）跳过
		t, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		if !t.Mode().IsRegular() {
			continue
		}
		out = append(out, contract.NormalizeFileID(p))
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: %s", contract.ErrInputEmpty, dir)
	}
	return out, nil
}

// Open 打开文件并返回解码容错的流：
// - 识别 BOM（UTF-8 去掉 BOM；UTF-16 转为 UTF-8）；
// - 非法 UTF-8 字节被丢弃而不是报错。
func (r *FileSystem) Open(ctx context.Context, id contract.FileID) (io.ReadCloser, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	f, err := os.Open(filepath.FromSlash(string(id)))
	if err != nil {
		return nil, err
	}
	return newBufferedCloser(f, tolerantDecoder(), r.bufSize), nil
}

// tolerantDecoder: 非法序列先替换为 U+FFFD 再移除，等价于“忽略无法解码的字节”。
func tolerantDecoder() transform.Transformer {
	return transform.Chain(
		xunicode.BOMOverride(transform.Nop),
		runes.ReplaceIllFormed(),
		runes.Remove(runes.Predicate(func(r rune) bool { return r == utf8.RuneError })),
	)
}

// bufferedCloser 将 bufio.Reader 与底层 Closer 组合为 ReadCloser。
type bufferedCloser struct {
	*bufio.Reader
	c io.Closer
}

func newBufferedCloser(c io.ReadCloser, t transform.Transformer, bufSize int) *bufferedCloser {
	if bufSize <= 0 {
		bufSize = 64 * 1024
	}
	var src io.Reader = c
	if t != nil {
		src = transform.NewReader(c, t)
	}
	return &bufferedCloser{Reader: bufio.NewReaderSize(src, bufSize), c: c}
}

func (b *bufferedCloser) Close() error { return b.c.Close() }
