package api

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// FlexFloat accepts a JSON number or a numeric string. Anything missing or
// unparseable leaves the value absent instead of failing the request.
type FlexFloat struct {
	value float64
	ok    bool
}

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexFloat) UnmarshalJSON(data []byte) error {
	f.ok = false
	if v, ok := parseFlexNumber(data); ok {
		f.value = v
		f.ok = true
	}
	return nil
}

// Ptr returns the value, or nil when absent.
func (f FlexFloat) Ptr() *float64 {
	if !f.ok {
		return nil
	}
	v := f.value
	return &v
}

// FlexInt accepts a JSON number or a numeric string holding a whole number.
// Fractional or unparseable input leaves the value absent.
type FlexInt struct {
	value int
	ok    bool
}

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexInt) UnmarshalJSON(data []byte) error {
	f.ok = false
	v, ok := parseFlexNumber(data)
	if !ok || v != math.Trunc(v) {
		return nil
	}
	f.value = int(v)
	f.ok = true
	return nil
}

// Ptr returns the value, or nil when absent.
func (f FlexInt) Ptr() *int {
	if !f.ok {
		return nil
	}
	v := f.value
	return &v
}

func parseFlexNumber(data []byte) (float64, bool) {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" || trimmed == "null" {
		return 0, false
	}
	if strings.HasPrefix(trimmed, `"`) {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return 0, false
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(str), 64)
		if err != nil {
			return 0, false
		}
		return v, true
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return 0, false
	}
	return v, true
}
