package contract

// FileID: 逻辑文件ID（通常为路径，需规范化，跨平台一致）。
type FileID string

// Sentinel: 补齐占位符。短行在右侧以该记号补齐到组目标宽度。
const Sentinel = "?"

// Row: 清洗后的一行（Cleaned Row）。
// 约束：每个元素均为规范化的十进制正整数字符串（无符号、无前导零），按原始从左到右顺序。
type Row []string

// Polarity: 成对文件中的类别（正类/负类）。取值为规范大小写。
type Polarity string

const (
	Positive Polarity = "Positive"
	Negative Polarity = "Negative"
)

// Polarities 返回固定顺序的全部类别（先 Positive 后 Negative），用于稳定遍历。
func Polarities() []Polarity { return []Polarity{Positive, Negative} }

// Table: Writer 的输入单元。
// - Name: 输出文件名（仅文件名，不含目录）；
// - Width: 组目标宽度，所有行写出时补齐到该宽度；
// - Rows: 按原始顺序的清洗行（尚未补齐）。
type Table struct {
	Name  string
	Width int
	Rows  []Row
}
