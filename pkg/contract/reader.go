package contract

import (
	"context"
	"io"
)

// Reader: 输入源抽象（目录）。
// 约束：
// 1) List 返回稳定顺序（字典序）的文件列表；目录不存在/为空分别返回 ErrInputMissing/ErrInputEmpty；
// 2) FileID 稳定且去平台差异化；
// 3) Open 返回的流已做解码容错（无法解码的字节被丢弃），不做业务解析；
// 4) 不在内部起并发。
type Reader interface {
	List(ctx context.Context, dir string) ([]FileID, error)
	Open(ctx context.Context, id FileID) (io.ReadCloser, error)
}
