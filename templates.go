package geofield

import (
	"io/fs"

	component "github.com/goliatone/go-geofield/components/geofield"
)

// EmbeddedTemplates exposes the built-in field templates so callers can copy
// or extend them as go-theme partials.
func EmbeddedTemplates() fs.FS {
	return component.Templates()
}
