package render

import (
	"fmt"
	"strings"
)

// HiddenField is a hidden form input rendered next to a visible control. The
// geofield component mirrors latitude, longitude and zoom into three of them.
type HiddenField struct {
	Name  string
	Value string
	Class string
}

// Hidden returns a HiddenField for an arbitrary name/value pair. Nil values
// render as an empty string.
func Hidden(name string, value any) HiddenField {
	field := HiddenField{Name: strings.TrimSpace(name)}
	if value != nil {
		field.Value = fmt.Sprint(value)
	}
	return field
}

// ChildName builds the bracketed name of a child input, e.g.
// ChildName("Photo", "Latitude") == "Photo[Latitude]".
func ChildName(parent, key string) string {
	return strings.TrimSpace(parent) + "[" + strings.TrimSpace(key) + "]"
}

// SplitChildName reverses ChildName. It reports false for names without a
// trailing bracketed key.
func SplitChildName(name string) (parent, key string, ok bool) {
	name = strings.TrimSpace(name)
	open := strings.IndexByte(name, '[')
	if open <= 0 || !strings.HasSuffix(name, "]") {
		return "", "", false
	}
	key = name[open+1 : len(name)-1]
	if key == "" || strings.ContainsAny(key, "[]") {
		return "", "", false
	}
	return name[:open], key, true
}
