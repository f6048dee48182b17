package frontmatter

import (
	"strings"
	"time"
)

// Date layouts accepted in front matter, most specific first. The first one
// is the Hugo-conventional layout used when writing dates back.
var dateLayouts = []string{
	"2006-01-02T15:04:05-07:00",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// String returns the value for key as a string.
//
// ok is false when the key is absent, nil, or not a string.
func String(fields map[string]any, key string) (string, bool) {
	v, present := fields[key]
	if !present || v == nil {
		return "", false
	}
	s, isString := v.(string)
	return s, isString
}

// Bool returns the value for key as a bool.
func Bool(fields map[string]any, key string) (bool, bool) {
	v, present := fields[key]
	if !present || v == nil {
		return false, false
	}
	b, isBool := v.(bool)
	return b, isBool
}

// StringList returns the value for key as a list of strings.
//
// YAML authors write both `series: name` and `series: [name]`; a bare string
// scalar is treated as a one-element list. Non-string list members are
// rejected (ok=false) so the caller can flag the type error.
func StringList(fields map[string]any, key string) ([]string, bool) {
	v, present := fields[key]
	if !present || v == nil {
		return nil, false
	}

	switch vv := v.(type) {
	case string:
		return []string{vv}, true
	case []string:
		out := make([]string, len(vv))
		copy(out, vv)
		return out, true
	case []any:
		out := make([]string, 0, len(vv))
		for _, item := range vv {
			s, isString := item.(string)
			if !isString {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	default:
		return nil, false
	}
}

// Time returns the value for key as a time.Time.
//
// The YAML parser hands back time.Time for unquoted timestamps; quoted dates
// arrive as strings and are parsed against the accepted layouts.
func Time(fields map[string]any, key string) (time.Time, bool) {
	v, present := fields[key]
	if !present || v == nil {
		return time.Time{}, false
	}

	switch vv := v.(type) {
	case time.Time:
		return vv, true
	case string:
		return ParseTime(vv)
	default:
		return time.Time{}, false
	}
}

// ParseTime parses a date string against the accepted front matter layouts.
func ParseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Has reports whether key is present with a non-nil value.
func Has(fields map[string]any, key string) bool {
	v, present := fields[key]
	return present && v != nil
}
