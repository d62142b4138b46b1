package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// Number is a nullable metric value. The zero Number is undefined.
//
// Undefined values encode to JSON null; non-finite values encode to the
// strings "NaN", "Infinity" and "-Infinity".
type Number struct {
	Value float64
	Valid bool
}

// Some returns a defined Number.
func Some(v float64) Number { return Number{Value: v, Valid: true} }

// Null returns an undefined Number.
func Null() Number { return Number{} }

// IsNaN reports whether n is defined and NaN.
func (n Number) IsNaN() bool { return n.Valid && math.IsNaN(n.Value) }

// IsInf reports whether n is defined and infinite with the given sign
// (see math.IsInf).
func (n Number) IsInf(sign int) bool { return n.Valid && math.IsInf(n.Value, sign) }

// Float64 returns the value and whether it is defined.
func (n Number) Float64() (float64, bool) { return n.Value, n.Valid }

func (n Number) String() string {
	if !n.Valid {
		return "null"
	}
	return strconv.FormatFloat(n.Value, 'g', -1, 64)
}

// MarshalJSON implements json.Marshaler.
func (n Number) MarshalJSON() ([]byte, error) {
	switch {
	case !n.Valid:
		return []byte("null"), nil
	case math.IsNaN(n.Value):
		return []byte(`"NaN"`), nil
	case math.IsInf(n.Value, 1):
		return []byte(`"Infinity"`), nil
	case math.IsInf(n.Value, -1):
		return []byte(`"-Infinity"`), nil
	}
	return json.Marshal(n.Value)
}

// UnmarshalJSON implements json.Unmarshaler.
func (n *Number) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*n = Null()
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		switch s {
		case "NaN":
			*n = Some(math.NaN())
		case "Infinity":
			*n = Some(math.Inf(1))
		case "-Infinity":
			*n = Some(math.Inf(-1))
		default:
			return fmt.Errorf("invalid number %q", s)
		}
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*n = Some(v)
	return nil
}
