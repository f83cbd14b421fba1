package automation

// Params is a step's literal parameter bag. YAML unmarshals numbers as
// int or float64 depending on their spelling, so the accessors accept
// both and apply a caller-supplied default when the key is absent or
// the wrong shape.
type Params map[string]any

// String returns the string value for key, or def when absent.
func (p Params) String(key, def string) string {
	if v, ok := p[key].(string); ok {
		return v
	}
	return def
}

// Int returns the integer value for key, or def when absent.
func (p Params) Int(key string, def int) int {
	switch v := p[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return def
}

// Float returns the float value for key, or def when absent.
func (p Params) Float(key string, def float64) float64 {
	switch v := p[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return def
}

// Bool returns the boolean value for key, or def when absent.
func (p Params) Bool(key string, def bool) bool {
	if v, ok := p[key].(bool); ok {
		return v
	}
	return def
}

// Has reports whether the key is present at all.
func (p Params) Has(key string) bool {
	_, ok := p[key]
	return ok
}
