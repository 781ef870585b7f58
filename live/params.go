package live

import (
	"net/http"
	"net/url"
	"strconv"
)

// Params event params.
type Params map[string]any

// String helper to get a string from the params.
func (p Params) String(key string) string {
	switch out := p[key].(type) {
	case string:
		return out
	case []string:
		if len(out) > 0 {
			return out[0]
		}
	case []any:
		if len(out) > 0 {
			s, _ := out[0].(string)
			return s
		}
	}
	return ""
}

// Strings helper to get every value sent for a key, for example
// a group of checkboxes sharing one name.
func (p Params) Strings(key string) []string {
	switch out := p[key].(type) {
	case string:
		return []string{out}
	case []string:
		return out
	case []any:
		res := make([]string, 0, len(out))
		for _, v := range out {
			if s, ok := v.(string); ok {
				res = append(res, s)
			}
		}
		return res
	}
	return nil
}

// Checkbox helper to return a boolean from params referring to
// a checkbox input.
func (p Params) Checkbox(key string) bool {
	out, ok := p[key].(string)
	if !ok {
		return false
	}
	return out == "on"
}

// Int helper to return and int from the params.
func (p Params) Int(key string) int {
	switch out := p[key].(type) {
	case int:
		return out
	case string:
		i, err := strconv.Atoi(out)
		if err != nil {
			return 0
		}
		return i
	case float32:
		return int(out)
	case float64:
		return int(out)
	}
	return 0
}

// IntDefault helper to return an int from the params, or def when the key
// is missing or not a number.
func (p Params) IntDefault(key string, def int) int {
	v, ok := p[key]
	if !ok {
		return def
	}
	if s, isString := v.(string); isString {
		i, err := strconv.Atoi(s)
		if err != nil {
			return def
		}
		return i
	}
	return p.Int(key)
}

// Float32 helper to return a float32 from the params.
func (p Params) Float32(key string) float32 {
	switch out := p[key].(type) {
	case float32:
		return out
	case float64:
		return float32(out)
	case string:
		f, err := strconv.ParseFloat(out, 32)
		if err != nil {
			return 0.0
		}
		return float32(f)
	}
	return 0.0
}

// NewParamsFromRequest helper to generate Params from an http request.
func NewParamsFromRequest(r *http.Request) Params {
	return NewParamsFromValues(r.URL.Query())
}

// NewParamsFromValues helper to generate Params from url values.
func NewParamsFromValues(values url.Values) Params {
	out := Params{}
	for k, v := range values {
		if len(v) == 1 {
			out[k] = v[0]
		} else {
			out[k] = v
		}
	}
	return out
}
