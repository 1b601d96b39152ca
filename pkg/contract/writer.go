package contract

import "context"

// Writer: 将一张补齐后的表持久化到目标介质。
// 约束：
//  1. 同一 Table.Name 单写者；已存在则覆盖；
//  2. 每行右侧以 Sentinel 补齐到 Table.Width，逗号连接，'\n' 结尾；从不截断；
//  3. 输出目录不存在时创建（幂等）；
//  4. 错误直接上抛（不做重试/回退）。
type Writer interface {
	Write(ctx context.Context, t Table) error
}
