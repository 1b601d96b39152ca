package pattern

import (
	"bufio"
	"context"
	"errors"
	"io"

	"patternprep/pkg/contract"
)

// DefaultMaxRows: 每个文件默认最多保留的行数。
const DefaultMaxRows = 500

// Collection: 单文件收集结果。
type Collection struct {
	// Rows: 通过过滤的清洗行，保持原始顺序，len(Rows) <= maxRows。
	Rows []contract.Row
	// LinesRead: 实际读取的行数（达到上限后不再读取）。
	LinesRead int
	// Dropped: 清洗后长度不足被丢弃的行数（含空行）。
	Dropped int
	// CapReached: 是否因达到上限而提前停止。
	CapReached bool
}

// Collect 流式读取 r，逐行 CleanLine + Keep，达到 maxRows 时立即停止（剩余行不读）。
// maxRows <= 0 时使用 DefaultMaxRows。
// 在每行之间检查 ctx；读取错误（非 EOF）直接上抛。
func Collect(ctx context.Context, r io.Reader, maxRows int) (Collection, error) {
	if maxRows <= 0 {
		maxRows = DefaultMaxRows
	}
	var c Collection
	br, ok := r.(*bufio.Reader)
	if !ok {
		br = bufio.NewReader(r)
	}
	for {
		select {
		case <-ctx.Done():
			return c, ctx.Err()
		default:
		}
		line, err := br.ReadString('\n')
		if len(line) > 0 {
			c.LinesRead++
			row := CleanLine(line)
			if Keep(row) {
				c.Rows = append(c.Rows, row)
				if len(c.Rows) >= maxRows {
					c.CapReached = true
					return c, nil
				}
			} else {
				c.Dropped++
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return c, nil
			}
			return c, err
		}
	}
}
