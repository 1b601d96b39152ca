package contract

import "errors"

// 最小错误分类（哨兵）。调用方以 errors.Is 判定，包装时使用 %w。
var (
	// ErrPathInvalid: 输出名映射为无效/越界路径（例如包含目录分隔或 '..'）。
	ErrPathInvalid = errors.New("path invalid")
	// ErrInvariantViolation: 领域不变量违例（通用哨兵）。
	ErrInvariantViolation = errors.New("invariant violation")
	// ErrInvalidInput: 输入不满足契约（配置档案、列缺失、权重不足等）。
	ErrInvalidInput = errors.New("invalid input")
	// ErrInputMissing: 输入目录不存在或不是目录。
	ErrInputMissing = errors.New("input directory not found")
	// ErrInputEmpty: 输入目录中没有可处理的文件。
	ErrInputEmpty = errors.New("no input files")
	// ErrPairCollision: 两个文件声明了同一 (基名, 类别)。
	ErrPairCollision = errors.New("pair collision")
)
