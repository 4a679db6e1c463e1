package metric

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// LabelKey is the comparison form of a label. Whole-number floats print as
// integers so that 1, 1.0 and "1" name the same class. Metrics and case
// collection must both compare labels through it.
func LabelKey(v any) string {
	switch x := v.(type) {
	case float64:
		if x == float64(int64(x)) {
			return strconv.FormatInt(int64(x), 10)
		}
	case float32:
		if x == float32(int64(x)) {
			return strconv.FormatInt(int64(x), 10)
		}
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return strconv.FormatInt(i, 10)
		}
		if f, err := x.Float64(); err == nil {
			return LabelKey(f)
		}
	}
	return fmt.Sprint(v)
}

// SameLabel reports whether two labels name the same class.
func SameLabel(a, b any) bool {
	return LabelKey(a) == LabelKey(b)
}
