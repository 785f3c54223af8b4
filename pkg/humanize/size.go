package humanize

import "fmt"

// Size breaks a byte count into a scaled value and its unit.
func Size(i int64) (float64, string) {
	switch {
	case i < 1024:
		return float64(i), "B"
	case i < 1024*1024:
		return float64(i) / 1024, "KB"
	case i < 1024*1024*1024:
		return float64(i) / (1024 * 1024), "MB"
	default:
		return float64(i) / (1024 * 1024 * 1024), "GB"
	}
}

// IEC renders a byte count the way people read it, one decimal place
// once the value scales past bytes.
func IEC(i int64) string {
	v, unit := Size(i)

	if unit == "B" {
		return fmt.Sprintf("%d%s", i, unit)
	}

	return fmt.Sprintf("%.1f%s", v, unit)
}
