package scan

import "fmt"

var sizeUnits = []string{"B", "KB", "MB", "GB", "TB", "PB"}

// FormatSize 把字节数格式化为两位小数 + 1024 进制单位，例如 1536 -> "1.50 KB"。
// PB 是最大单位，超出后不再进位。
func FormatSize(n int64) string {
	v := float64(n)
	i := 0
	for v >= 1024 && i < len(sizeUnits)-1 {
		v /= 1024
		i++
	}
	return fmt.Sprintf("%.2f %s", v, sizeUnits[i])
}
