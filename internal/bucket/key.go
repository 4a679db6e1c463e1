package bucket

import (
	"fmt"
	"strconv"

	"github.com/vk/bucketgrid/internal/sigfig"
)

// Kind distinguishes the shapes a bucket key can take.
type Kind int

const (
	// Value is a discrete bucket holding one exact value.
	Value Kind = iota
	// Interval is a range bucket [Lo, Hi), or [Lo, Hi] when Closed.
	Interval
	// Other collects discrete values beyond the bucket cap.
	Other
	// NoValue collects samples whose numeric value is missing or NaN.
	NoValue
	// OutOfRange collects values outside explicitly supplied boundaries.
	OutOfRange
)

// Sentinel bucket names.
const (
	OtherName      = "other"
	NoValueName    = "no-value"
	OutOfRangeName = "out-of-range"
)

// Key is the internal encoding of a bucket name. String returns a lossless
// form used for lookups; Beautify returns the form shown in reports.
type Key struct {
	Kind   Kind
	Value  string
	Lo, Hi float64
	Closed bool
}

// String returns the lossless internal encoding.
func (k Key) String() string {
	switch k.Kind {
	case Value:
		return k.Value
	case Interval:
		right := ")"
		if k.Closed {
			right = "]"
		}
		return "[" + strconv.FormatFloat(k.Lo, 'g', -1, 64) + "," + strconv.FormatFloat(k.Hi, 'g', -1, 64) + right
	case Other:
		if k.Value != "" {
			return k.Value
		}
		return OtherName
	case NoValue:
		return NoValueName
	case OutOfRange:
		return OutOfRangeName
	default:
		return fmt.Sprintf("bucket(%d)", k.Kind)
	}
}

// Beautify renders the key for reports with interval edges rounded to
// sigfig.Digits significant digits.
func (k Key) Beautify() string {
	if k.Kind != Interval {
		return k.String()
	}
	right := ")"
	if k.Closed {
		right = "]"
	}
	return "[" + sigfig.Format(k.Lo, sigfig.Digits) + "," + sigfig.Format(k.Hi, sigfig.Digits) + right
}

// Contains reports whether v falls in an interval key.
func (k Key) Contains(v float64) bool {
	if k.Kind != Interval {
		return false
	}
	if k.Closed {
		return v >= k.Lo && v <= k.Hi
	}
	return v >= k.Lo && v < k.Hi
}
