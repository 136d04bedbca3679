package carrier

import "strings"

// LabelFormat is the paper size of a shipping label.
type LabelFormat string

const (
	LabelA4 LabelFormat = "A4"
	LabelA6 LabelFormat = "A6"
)

const (
	DefaultLabelFormat = LabelA6
	DefaultA4Position  = 1
)

// ParseLabelFormat accepts "a4"/"A6" in any case.
func ParseLabelFormat(s string) (LabelFormat, bool) {
	switch LabelFormat(strings.ToUpper(strings.TrimSpace(s))) {
	case LabelA4:
		return LabelA4, true
	case LabelA6:
		return LabelA6, true
	}
	return "", false
}

// ValidPosition reports whether p is a quadrant on an A4 sheet.
func ValidPosition(p int) bool {
	return p >= 1 && p <= 4
}
