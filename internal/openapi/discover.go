package openapi

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/spf13/cast"

	"github.com/goliatone/go-geofield/components/geofield"
)

// Extension keys read from request body properties.
const (
	extensionNamespace = "x-formgen"
	widgetExtensionKey = "x-formgen-widget"
	geofieldExtension  = "x-geofield"
	// WidgetName marks a property rendered as a geofield.
	WidgetName = "geofield"
)

// ErrOperationNotFound is returned when Discover is asked for an unknown
// operation id.
var ErrOperationNotFound = errors.New("openapi: operation not found")

// FieldSpec describes one geofield found in a request body.
type FieldSpec struct {
	OperationID string
	Method      string
	Path        string
	Name        string
	Title       string
	Description string
	Required    bool
	Binding     geofield.Binding
	Overrides   map[string]any
}

// FieldOptions returns the geofield options for the discovered property.
func (s FieldSpec) FieldOptions() []geofield.FieldOption {
	return []geofield.FieldOption{
		geofield.WithBinding(s.Binding),
		geofield.WithOverrides(s.Overrides),
	}
}

// Discover loads an OpenAPI document and returns the geofields declared in
// the request body of operationID, or of every operation when operationID is
// empty. Operations without an id are addressed as "<method>:<path>".
func Discover(ctx context.Context, raw []byte, operationID string) ([]FieldSpec, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, errors.New("openapi: document payload is empty")
	}

	loader := &openapi3.Loader{Context: ctx}
	doc, err := loader.LoadFromData(raw)
	if err != nil {
		return nil, fmt.Errorf("openapi: load document: %w", err)
	}

	var specs []FieldSpec
	found := false
	if doc.Paths != nil {
		paths := doc.Paths.InMatchingOrder()
		sort.Strings(paths)
		for _, path := range paths {
			item := doc.Paths.Value(path)
			if item == nil {
				continue
			}
			methods := item.Operations()
			names := make([]string, 0, len(methods))
			for method := range methods {
				names = append(names, method)
			}
			sort.Strings(names)
			for _, method := range names {
				op := methods[method]
				id := op.OperationID
				if id == "" {
					id = strings.ToLower(method) + ":" + path
				}
				if operationID != "" && id != operationID {
					continue
				}
				found = true
				specs = append(specs, collectFields(id, method, path, op)...)
			}
		}
	}
	if operationID != "" && !found {
		return nil, fmt.Errorf("%w: %s", ErrOperationNotFound, operationID)
	}
	return specs, nil
}

func collectFields(id, method, path string, op *openapi3.Operation) []FieldSpec {
	schema := requestSchema(op.RequestBody)
	if schema == nil || len(schema.Properties) == 0 {
		return nil
	}
	required := make(map[string]bool, len(schema.Required))
	for _, name := range schema.Required {
		required[name] = true
	}

	names := make([]string, 0, len(schema.Properties))
	for name := range schema.Properties {
		names = append(names, name)
	}
	sort.Strings(names)

	var out []FieldSpec
	for _, name := range names {
		ref := schema.Properties[name]
		if ref == nil || ref.Value == nil {
			continue
		}
		ext := mergedExtensions(ref.Value)
		if !isGeofield(ext) {
			continue
		}
		spec := FieldSpec{
			OperationID: id,
			Method:      method,
			Path:        path,
			Name:        name,
			Title:       ref.Value.Title,
			Description: ref.Value.Description,
			Required:    required[name],
			Binding:     geofield.DefaultBinding(),
		}
		if spec.Title == "" {
			spec.Title = name
		}
		applyGeofieldExtension(&spec, ext[geofieldExtension])
		out = append(out, spec)
	}
	return out
}

func requestSchema(body *openapi3.RequestBodyRef) *openapi3.Schema {
	if body == nil || body.Value == nil {
		return nil
	}
	content := body.Value.Content
	for _, mediaType := range []string{"application/x-www-form-urlencoded", "multipart/form-data", "application/json"} {
		if mt, ok := content[mediaType]; ok && mt.Schema != nil {
			return mt.Schema.Value
		}
	}
	for _, mt := range content {
		if mt != nil && mt.Schema != nil {
			return mt.Schema.Value
		}
	}
	return nil
}

// mergedExtensions returns the schema extensions with those of allOf members
// folded in.
func mergedExtensions(schema *openapi3.Schema) map[string]any {
	out := make(map[string]any, len(schema.Extensions))
	for key, value := range schema.Extensions {
		out[key] = value
	}
	for _, ref := range schema.AllOf {
		if ref == nil || ref.Value == nil {
			continue
		}
		for key, value := range mergedExtensions(ref.Value) {
			if _, exists := out[key]; !exists {
				out[key] = value
			}
		}
	}
	return out
}

func isGeofield(ext map[string]any) bool {
	if widget, ok := ext[widgetExtensionKey].(string); ok && strings.EqualFold(widget, WidgetName) {
		return true
	}
	if ns, ok := ext[extensionNamespace].(map[string]any); ok {
		if widget, ok := ns["widget"].(string); ok && strings.EqualFold(widget, WidgetName) {
			return true
		}
	}
	_, ok := ext[geofieldExtension]
	return ok
}

func applyGeofieldExtension(spec *FieldSpec, raw any) {
	values, err := cast.ToStringMapE(raw)
	if err != nil || len(values) == 0 {
		return
	}
	if v := cast.ToString(values["latitude"]); v != "" {
		spec.Binding.Latitude = v
	}
	if v := cast.ToString(values["longitude"]); v != "" {
		spec.Binding.Longitude = v
	}
	if v := cast.ToString(values["zoom"]); v != "" {
		spec.Binding.Zoom = v
	}
	if options, err := cast.ToStringMapE(values["options"]); err == nil && len(options) > 0 {
		spec.Overrides = options
	}
}
