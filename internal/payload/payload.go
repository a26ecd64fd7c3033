// Package payload reads named fields from loosely typed event payloads.
//
// Machines accept their own typed payload structs; scenario files and the
// playground send map payloads keyed by the wire field names.
package payload

// Field returns the value stored under key in a map payload
func Field(p any, key string) (any, bool) {
	switch m := p.(type) {
	case map[string]any:
		v, ok := m[key]
		return v, ok
	case map[string]string:
		v, ok := m[key]
		return v, ok
	}
	return nil, false
}

// String returns the string stored under key. Empty strings count as absent.
func String(p any, key string) (string, bool) {
	v, ok := Field(p, key)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}
