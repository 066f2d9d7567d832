package render

import (
	"html"
	"slices"
	"sort"
	"strings"
)

// Script describes a JavaScript dependency emitted once per page.
type Script struct {
	Src    string
	Inline string
	Async  bool
	Defer  bool
	Attrs  map[string]string
}

func (s Script) key() string {
	if s.Src != "" {
		return "src:" + s.Src
	}
	return "inline:" + s.Inline
}

// Assets collects stylesheets and scripts required by rendered fields. Adding
// the same stylesheet or script twice keeps the first occurrence, so pages
// with several geofields load the maps API once.
type Assets struct {
	Stylesheets []string
	Scripts     []Script
}

// AddStylesheet appends href unless it is empty or already present.
func (a *Assets) AddStylesheet(href string) *Assets {
	href = strings.TrimSpace(href)
	if href == "" || slices.Contains(a.Stylesheets, href) {
		return a
	}
	a.Stylesheets = append(a.Stylesheets, href)
	return a
}

// AddScript appends script unless an identical source (or inline body) is
// already present.
func (a *Assets) AddScript(script Script) *Assets {
	if script.Src == "" && strings.TrimSpace(script.Inline) == "" {
		return a
	}
	key := script.key()
	for _, existing := range a.Scripts {
		if existing.key() == key {
			return a
		}
	}
	a.Scripts = append(a.Scripts, script)
	return a
}

// Merge folds other into a, preserving order and dropping duplicates.
func (a *Assets) Merge(other Assets) *Assets {
	for _, href := range other.Stylesheets {
		a.AddStylesheet(href)
	}
	for _, script := range other.Scripts {
		a.AddScript(script)
	}
	return a
}

// HTML renders link and script tags for inclusion in a page head.
func (a Assets) HTML() string {
	var b strings.Builder
	for _, href := range a.Stylesheets {
		b.WriteString(`<link rel="stylesheet" href="`)
		b.WriteString(html.EscapeString(href))
		b.WriteString("\">\n")
	}
	for _, script := range a.Scripts {
		b.WriteString("<script")
		if script.Src != "" {
			b.WriteString(` src="`)
			b.WriteString(html.EscapeString(script.Src))
			b.WriteString(`"`)
		}
		if script.Async {
			b.WriteString(" async")
		}
		if script.Defer {
			b.WriteString(" defer")
		}
		keys := make([]string, 0, len(script.Attrs))
		for key := range script.Attrs {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			b.WriteString(" ")
			b.WriteString(html.EscapeString(key))
			b.WriteString(`="`)
			b.WriteString(html.EscapeString(script.Attrs[key]))
			b.WriteString(`"`)
		}
		b.WriteString(">")
		if script.Src == "" {
			b.WriteString(script.Inline)
		}
		b.WriteString("</script>\n")
	}
	return b.String()
}
