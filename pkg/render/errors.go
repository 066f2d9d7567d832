package render

import (
	"strconv"
	"strings"
)

// ErrorMapping splits an error payload into messages for known field paths
// and form-level messages.
type ErrorMapping struct {
	Fields map[string][]string
	Form   []string
}

// For returns the messages mapped to path.
func (m ErrorMapping) For(path string) []string {
	if m.Fields == nil {
		return nil
	}
	return m.Fields[path]
}

// MergeFormErrors concatenates form-level messages, trimming whitespace and
// removing duplicates while preserving order.
func MergeFormErrors(existing []string, extras ...string) []string {
	combined := make([]string, 0, len(existing)+len(extras))
	combined = append(combined, existing...)
	combined = append(combined, extras...)
	return normalizeMessages(combined)
}

// MapErrorPayload assigns payload messages to the longest matching dotted path
// in fieldPaths. Keys may be written as bracketed form names
// ("Photo[Latitude]"), JSON pointers ("/body/Photo/Latitude") or dotted paths.
// Unknown keys are kept as form-level messages.
func MapErrorPayload(fieldPaths []string, payload map[string][]string) ErrorMapping {
	mapping := ErrorMapping{}
	if len(payload) == 0 {
		return mapping
	}

	known := make(map[string]struct{}, len(fieldPaths))
	for _, path := range fieldPaths {
		if trimmed := strings.TrimSpace(path); trimmed != "" {
			known[trimmed] = struct{}{}
		}
	}

	for rawPath, messages := range payload {
		normalized := normalizeMessages(messages)
		if len(normalized) == 0 {
			continue
		}
		path := matchPath(rawPath, known)
		if path == "" {
			mapping.Form = append(mapping.Form, normalized...)
			continue
		}
		if mapping.Fields == nil {
			mapping.Fields = make(map[string][]string)
		}
		mapping.Fields[path] = append(mapping.Fields[path], normalized...)
	}
	mapping.Form = normalizeMessages(mapping.Form)
	return mapping
}

func normalizeMessages(messages []string) []string {
	if len(messages) == 0 {
		return nil
	}
	out := make([]string, 0, len(messages))
	seen := make(map[string]struct{}, len(messages))
	for _, message := range messages {
		trimmed := strings.TrimSpace(message)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

var wrapperSegments = map[string]struct{}{
	"body":    {},
	"request": {},
	"payload": {},
	"data":    {},
}

func matchPath(raw string, known map[string]struct{}) string {
	segments := splitErrorPath(raw)
	for len(segments) > 0 {
		if _, ok := wrapperSegments[strings.ToLower(segments[0])]; !ok {
			break
		}
		segments = segments[1:]
	}
	if len(segments) == 0 {
		return ""
	}

	filtered := make([]string, 0, len(segments))
	for _, segment := range segments {
		if _, err := strconv.Atoi(segment); err == nil {
			continue
		}
		filtered = append(filtered, segment)
	}

	for end := len(filtered); end > 0; end-- {
		candidate := strings.Join(filtered[:end], ".")
		if _, ok := known[candidate]; ok {
			return candidate
		}
	}
	return ""
}

func splitErrorPath(raw string) []string {
	clean := strings.TrimSpace(raw)
	clean = strings.TrimLeft(clean, "#$/.")
	clean = strings.NewReplacer("[", ".", "]", "").Replace(clean)

	parts := strings.FieldsFunc(clean, func(r rune) bool {
		return r == '.' || r == '/'
	})
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		segment := strings.TrimSpace(part)
		if segment == "" {
			continue
		}
		segment = strings.ReplaceAll(segment, "~1", "/")
		segment = strings.ReplaceAll(segment, "~0", "~")
		out = append(out, segment)
	}
	return out
}
