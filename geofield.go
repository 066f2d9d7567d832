// Package geofield is the entry point of the geolocation upload field: it
// re-exports the field constructors and ships the browser runtime assets.
//
// Typical use:
//
//	field, err := geofield.NewField("location", "Location",
//	  geofield.WithOverrides(map[string]any{"map": map[string]any{"zoom": 5}}),
//	)
//	html, err := field.Render(ctx, geofield.RenderOptions{})
package geofield

import (
	"context"
	"net/http"
	"strings"

	component "github.com/goliatone/go-geofield/components/geofield"
	"github.com/goliatone/go-geofield/pkg/geodata"
	"github.com/goliatone/go-geofield/pkg/render"
)

// Field aliases the server-side field.
type Field = component.Field

// FieldOption configures a Field.
type FieldOption = component.FieldOption

// Component aliases the geocode proxy component.
type Component = component.Component

// RenderOptions describes per-request overrides such as DOM id, validation
// errors and extra attributes.
type RenderOptions = render.RenderOptions

// Assets aliases the stylesheet and script requirements of rendered fields.
type Assets = render.Assets

// FieldSettings aliases the serialized client settings payload.
type FieldSettings = geodata.FieldSettings

// Field options re-exported for callers that only import the root package.
var (
	WithOverrides = component.WithOverrides
	WithDefaults  = component.WithDefaults
	WithBinding   = component.WithBinding
	WithAssetBase = component.WithAssetBase
	WithTheme     = component.WithTheme
	WithLogger    = component.WithLogger
)

// NewField builds a field with the embedded default options.
func NewField(name, title string, opts ...FieldOption) (*Field, error) {
	return component.NewField(name, title, opts...)
}

// NewComponent builds the geocode proxy component.
func NewComponent(fns ...component.OptionFn) *Component {
	return component.New(fns...)
}

// RenderPage renders fields and collects the assets they need, deduplicated.
func RenderPage(ctx context.Context, fields []*Field, opts RenderOptions) (string, Assets, error) {
	var (
		markup strings.Builder
		assets Assets
	)
	for _, field := range fields {
		if field == nil {
			continue
		}
		html, err := field.Render(ctx, opts)
		if err != nil {
			return "", Assets{}, err
		}
		markup.WriteString(html)
		markup.WriteString("\n")
		assets.Merge(field.Assets())
	}
	return markup.String(), assets, nil
}

// AssetsHandler serves RuntimeAssetsFS. Mount it under the field asset base:
//
//	mux.Handle("/geofield/assets/",
//	  http.StripPrefix("/geofield/assets/", geofield.AssetsHandler()),
//	)
func AssetsHandler() http.Handler {
	return http.FileServerFS(RuntimeAssetsFS())
}
