package dynamo

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// Vector is a float slice whose JSON form keeps non-finite components:
// NaN, +Inf and -Inf are written as the strings "NaN", "+Inf" and "-Inf".
type Vector []float64

func (v Vector) MarshalJSON() ([]byte, error) {
	if v == nil {
		return []byte("null"), nil
	}
	b := make([]byte, 0, 2+len(v)*8)
	b = append(b, '[')
	for i, x := range v {
		if i > 0 {
			b = append(b, ',')
		}
		b = appendFloat(b, x)
	}
	return append(b, ']'), nil
}

func (v *Vector) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil {
		*v = nil
		return nil
	}
	out := make(Vector, len(raw))
	for i, r := range raw {
		x, err := parseFloat(r)
		if err != nil {
			return fmt.Errorf("dynamo: element %d: %w", i, err)
		}
		out[i] = x
	}
	*v = out
	return nil
}

func (l Load) MarshalJSON() ([]byte, error) {
	return Vector(l[:]).MarshalJSON()
}

func (l *Load) UnmarshalJSON(data []byte) error {
	var v Vector
	if err := v.UnmarshalJSON(data); err != nil {
		return err
	}
	if err := CheckLen("load", NumAxes, len(v)); err != nil {
		return err
	}
	copy(l[:], v)
	return nil
}

func (f Forces) MarshalJSON() ([]byte, error) {
	return Vector(f[:]).MarshalJSON()
}

func (f *Forces) UnmarshalJSON(data []byte) error {
	var v Vector
	if err := v.UnmarshalJSON(data); err != nil {
		return err
	}
	if err := CheckLen("forces", NumActuators, len(v)); err != nil {
		return err
	}
	copy(f[:], v)
	return nil
}

func appendFloat(b []byte, x float64) []byte {
	switch {
	case math.IsNaN(x):
		return append(b, `"NaN"`...)
	case math.IsInf(x, 1):
		return append(b, `"+Inf"`...)
	case math.IsInf(x, -1):
		return append(b, `"-Inf"`...)
	}
	return strconv.AppendFloat(b, x, 'g', -1, 64)
}

func parseFloat(r json.RawMessage) (float64, error) {
	var s string
	if err := json.Unmarshal(r, &s); err == nil {
		switch s {
		case "NaN":
			return math.NaN(), nil
		case "+Inf", "Inf":
			return math.Inf(1), nil
		case "-Inf":
			return math.Inf(-1), nil
		}
		return 0, fmt.Errorf("unexpected string %q", s)
	}
	var x float64
	if err := json.Unmarshal(r, &x); err != nil {
		return 0, err
	}
	return x, nil
}
