package diag

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"patternprep/internal/normalize"
)

// Reporter: 面向操作者的控制台提示（非日志）。
// - 输出到提供的 io.Writer（默认 stdout），逐行打印，便于 grep。
// - 并发安全；写失败后进入禁用态为 no-op。
type Reporter struct {
	w       io.Writer
	enabled bool

	files    int
	rows     int
	dropped  int
	runStart time.Time

	mu sync.Mutex
}

// NewReporter 构造控制台提示器。enabled=false 时总是 no-op。
func NewReporter(w io.Writer, enabled bool) *Reporter {
	if w == nil {
		w = os.Stdout
	}
	return &Reporter{w: w, enabled: enabled}
}

// RunStart 记录运行起点并打印输入/输出目录。
func (r *Reporter) RunStart(input, output string, maxRows int) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.files, r.rows, r.dropped = 0, 0, 0
	r.runStart = time.Now()
	r.println(fmt.Sprintf("[run] %s -> %s | cap=%d", safe(input), safe(output), maxRows))
}

// File 打印单个输出文件的行数与应用宽度，并累计总数。
func (r *Reporter) File(in, out string, rows, width, dropped int) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.files++
	r.rows += rows
	r.dropped += dropped
	r.println(fmt.Sprintf("[file] %s -> %s | rows=%d | width=%d", safe(in), safe(out), rows, width))
}

// UnderCap 打印容量不足警告（非致命）。
func (r *Reporter) UnderCap(out string, rows, cap int) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.println(fmt.Sprintf("[warn] %s has only %d rows (cap %d)", safe(out), rows, cap))
}

// Pair 打印成对组的宽度归一说明。
func (r *Reporter) Pair(n normalize.Note) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.println(fmt.Sprintf("[pair] %s normalized: target=%d (Positive=%d, Negative=%d; %s padded with %d '?')",
		safe(n.Key), n.Target, n.Positive, n.Negative, n.Padded, n.Diff))
}

// Replaced 打印 last 策略下被覆盖的冲突文件。
func (r *Reporter) Replaced(file string) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.println(fmt.Sprintf("[warn] %s superseded by a later file with the same base and polarity", safe(file)))
}

// RunFinish 打印结束总览。
func (r *Reporter) RunFinish(ok bool, dur time.Duration) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	tag := "ok"
	if !ok {
		tag = "fail"
	}
	r.println(fmt.Sprintf("[%s] files=%d rows=%d dropped=%d | %s", tag, r.files, r.rows, r.dropped, formatDur(dur)))
}

func (r *Reporter) println(s string) {
	if !r.enabled {
		return
	}
	if _, err := io.WriteString(r.w, s+"\n"); err != nil {
		// 写失败即禁用
		r.enabled = false
	}
}

func safe(s string) string {
	// 避免换行等控制字符污染终端
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", " ")
	return s
}

func formatDur(d time.Duration) string {
	if d < time.Second {
		ms := d.Milliseconds()
		if ms < 0 {
			ms = 0
		}
		return fmt.Sprintf("%dms", ms)
	}
	// 秒，保留 1 位小数
	return fmt.Sprintf("%.1fs", float64(d.Milliseconds())/1000.0)
}
