package pattern

import "patternprep/pkg/contract"

// MinTokens: 保留一行所需的最少正整数个数（固定，不可按调用配置）。
const MinTokens = 3

// Keep 判断清洗后的行是否保留：长度 >= MinTokens。
func Keep(row contract.Row) bool { return len(row) >= MinTokens }
