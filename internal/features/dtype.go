package features

import (
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"sort"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"
)

// DType is the declared value type of a feature.
type DType string

const (
	String     DType = "string"
	Int        DType = "int"
	Float      DType = "float"
	Dict       DType = "dict"
	ClassLabel DType = "class_label"
)

// ParseDType resolves a dtype keyword.
func ParseDType(s string) (DType, error) {
	switch DType(s) {
	case String, Int, Float, Dict, ClassLabel:
		return DType(s), nil
	case "number":
		return Float, nil
	default:
		return "", fmt.Errorf("unknown dtype %q", s)
	}
}

// Numeric reports whether values of this type can be range-bucketed.
func (d DType) Numeric() bool {
	return d == Int || d == Float
}

// CtyType is the cty type a value of this dtype is converted to.
func (d DType) CtyType() cty.Type {
	switch d {
	case String, ClassLabel:
		return cty.String
	case Int, Float:
		return cty.Number
	default:
		return cty.DynamicPseudoType
	}
}

// Normalize checks v against the dtype and returns its canonical Go form:
// string for String and ClassLabel, int for Int, float64 for Float and
// map[string]any for Dict. Conversion follows cty rules, so the string "3" is
// an acceptable Int while "three" is not. A null or NaN value of a numeric
// dtype normalizes to NaN, which range bucketing files under its no-value
// bucket.
func (d DType) Normalize(v any) (any, error) {
	if d.Numeric() && isMissingNumber(v) {
		return math.NaN(), nil
	}
	if v == nil {
		return nil, fmt.Errorf("value is null")
	}
	val, err := toCty(v)
	if err != nil {
		return nil, err
	}

	if d == Dict {
		if !val.Type().IsObjectType() && !val.Type().IsMapType() {
			return nil, fmt.Errorf("expected dict, got %s", val.Type().FriendlyName())
		}
		m, ok := v.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("expected dict, got %T", v)
		}
		return m, nil
	}

	converted, err := convert.Convert(val, d.CtyType())
	if err != nil {
		return nil, fmt.Errorf("expected %s, got %s: %w", d, val.Type().FriendlyName(), err)
	}
	if converted.IsNull() {
		return nil, fmt.Errorf("value is null")
	}

	switch d {
	case String, ClassLabel:
		var s string
		if err := gocty.FromCtyValue(converted, &s); err != nil {
			return nil, err
		}
		return s, nil
	case Int:
		var i int
		if err := gocty.FromCtyValue(converted, &i); err != nil {
			return nil, fmt.Errorf("expected int: %w", err)
		}
		return i, nil
	case Float:
		bf := converted.AsBigFloat()
		f, _ := bf.Float64()
		return f, nil
	default:
		return nil, fmt.Errorf("unsupported dtype %q", d)
	}
}

// toCty converts a decoded sample value into a cty.Value. Sample values come
// from JSON decoding or from operation outputs, so only the shapes those
// produce are handled.
func toCty(v any) (cty.Value, error) {
	switch x := v.(type) {
	case nil:
		return cty.NullVal(cty.DynamicPseudoType), nil
	case cty.Value:
		return x, nil
	case string:
		return cty.StringVal(x), nil
	case bool:
		return cty.BoolVal(x), nil
	case int:
		return cty.NumberIntVal(int64(x)), nil
	case int64:
		return cty.NumberIntVal(x), nil
	case int32:
		return cty.NumberIntVal(int64(x)), nil
	case float32:
		return floatVal(float64(x))
	case float64:
		return floatVal(x)
	case json.Number:
		bf, _, err := big.ParseFloat(string(x), 10, 512, big.ToNearestEven)
		if err != nil {
			return cty.NilVal, fmt.Errorf("invalid number %q", string(x))
		}
		return cty.NumberVal(bf), nil
	case []string:
		vals := make([]cty.Value, len(x))
		for i, s := range x {
			vals[i] = cty.StringVal(s)
		}
		if len(vals) == 0 {
			return cty.ListValEmpty(cty.String), nil
		}
		return cty.TupleVal(vals), nil
	case []any:
		vals := make([]cty.Value, len(x))
		for i, e := range x {
			cv, err := toCty(e)
			if err != nil {
				return cty.NilVal, err
			}
			vals[i] = cv
		}
		return cty.TupleVal(vals), nil
	case map[string]any:
		attrs := make(map[string]cty.Value, len(x))
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			cv, err := toCty(x[k])
			if err != nil {
				return cty.NilVal, err
			}
			attrs[k] = cv
		}
		return cty.ObjectVal(attrs), nil
	default:
		ty, err := gocty.ImpliedType(v)
		if err != nil {
			return cty.NilVal, fmt.Errorf("unsupported value type %T", v)
		}
		return gocty.ToCtyValue(v, ty)
	}
}

func floatVal(f float64) (cty.Value, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return cty.NilVal, fmt.Errorf("non-finite number %v", f)
	}
	return cty.NumberFloatVal(f), nil
}

func isMissingNumber(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case float64:
		return math.IsNaN(x)
	case float32:
		return math.IsNaN(float64(x))
	default:
		return false
	}
}
