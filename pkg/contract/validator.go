package contract

import "fmt"

// ValidateTable 校验 Writer 输入的不变量（纯函数，无 I/O）：
// - Name 非空且为单一文件名；
// - Width >= 0，且不小于任何一行的长度（补齐从不截断）；
// - 行内每个元素均为规范正整数（不得预先包含 Sentinel）。
func ValidateTable(t Table) error {
	if t.Name == "" || t.Name == "." || t.Name == ".." || containsSep(t.Name) {
		return fmt.Errorf("%w: table name %q", ErrPathInvalid, t.Name)
	}
	if t.Width < 0 {
		return fmt.Errorf("%w: negative width %d", ErrInvariantViolation, t.Width)
	}
	for i, r := range t.Rows {
		if len(r) > t.Width {
			return fmt.Errorf("%w: row %d has %d fields, width %d", ErrInvariantViolation, i, len(r), t.Width)
		}
		for _, tok := range r {
			if !IsCanonicalPositive(tok) {
				return fmt.Errorf("%w: row %d token %q is not a positive integer", ErrInvariantViolation, i, tok)
			}
		}
	}
	return nil
}

// IsCanonicalPositive 判断 s 是否为规范十进制正整数（仅 ASCII 数字、无符号、无前导零、非零）。
func IsCanonicalPositive(s string) bool {
	if s == "" || s[0] == '0' {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func containsSep(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] == '/' || s[i] == '\\' {
			return true
		}
	}
	return false
}
