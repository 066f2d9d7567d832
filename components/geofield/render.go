package geofield

import (
	"context"
	"embed"
	"io/fs"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/goliatone/go-geofield/pkg/render"
	"github.com/goliatone/go-geofield/pkg/render/template"
)

// TemplateName is the template rendered for a field. A go-theme partial
// registered under the same key replaces it.
const TemplateName = "geofield"

// DefaultAssetBase is the URL prefix of the bundled stylesheet and script.
const DefaultAssetBase = "/geofield/assets"

// MapsAPIURL is the Google Maps JavaScript API loader. The callback
// initialises every field bound before the API finished loading.
const MapsAPIURL = "//maps.googleapis.com/maps/api/js"

// MapsCallback is the global function the maps loader invokes.
const MapsCallback = "geofieldInit"

//go:embed templates/*.tmpl
var templatesFS embed.FS

// Templates exposes the bundled field templates.
func Templates() fs.FS {
	sub, err := fs.Sub(templatesFS, "templates")
	if err != nil {
		return templatesFS
	}
	return sub
}

var (
	engineOnce sync.Once
	engine     *template.Engine
	engineErr  error

	titlePolicyOnce sync.Once
	titlePolicy     *bluemonday.Policy
)

func defaultRenderer() (template.Renderer, error) {
	engineOnce.Do(func() {
		engine, engineErr = template.New(template.WithFS(Templates()))
	})
	return engine, engineErr
}

func titleSanitizer() *bluemonday.Policy {
	titlePolicyOnce.Do(func() {
		policy := bluemonday.StrictPolicy()
		policy.AllowElements("em", "strong", "b", "i", "small", "abbr")
		policy.AllowAttrs("title").OnElements("abbr")
		titlePolicy = policy
	})
	return titlePolicy
}

func sanitizeTitle(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	return strings.TrimSpace(titleSanitizer().Sanitize(trimmed))
}

// MapsScriptURL returns the maps API loader URL with the init callback and,
// when set, the API key.
func MapsScriptURL(apiKey string) string {
	params := url.Values{}
	params.Set("callback", MapsCallback)
	if key := strings.TrimSpace(apiKey); key != "" {
		params.Set("key", key)
	}
	return MapsAPIURL + "?" + params.Encode()
}

// Assets lists the stylesheet and scripts a page needs for this field.
func (f *Field) Assets() render.Assets {
	var assets render.Assets
	assets.AddStylesheet(f.assetURL("geofield.css"))
	assets.AddScript(render.Script{Src: f.assetURL("geofield.js"), Defer: true})
	assets.AddScript(render.Script{Src: MapsScriptURL(f.resolver.APIKey()), Async: true, Defer: true})
	return assets
}

func (f *Field) assetURL(file string) string {
	if f.theme != nil {
		if resolve := f.theme.AssetURL; resolve != nil {
			if resolved := strings.TrimSpace(resolve("geofield/" + file)); resolved != "" {
				return resolved
			}
		}
	}
	return f.assetBase + "/" + file
}

// Render returns the field markup: the upload input, map container, optional
// search box and the hidden mirrors, with the settings payload in
// data-settings.
func (f *Field) Render(ctx context.Context, opts render.RenderOptions) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	settingsJSON, err := f.SettingsJSON()
	if err != nil {
		f.logger.Error("geofield render failed", zap.String("field", f.name), zap.Error(err))
		return "", err
	}

	renderer := f.renderer
	if renderer == nil {
		renderer, err = defaultRenderer()
		if err != nil {
			return "", eris.Wrap(err, "geofield: build template engine")
		}
	}

	name := TemplateName
	if f.theme != nil {
		if partial := strings.TrimSpace(f.theme.Partials[TemplateName]); partial != "" {
			name = partial
		}
	}

	out, err := renderer.RenderTemplate(name, f.viewData(settingsJSON, opts))
	if err != nil {
		return "", eris.Wrapf(err, "geofield: render %q", f.name)
	}
	return out, nil
}

func (f *Field) viewData(settingsJSON string, opts render.RenderOptions) map[string]any {
	id := strings.TrimSpace(opts.ID)
	if id == "" {
		id = DOMID(f.name)
	}

	hidden := make([]map[string]any, 0, len(mirroredKeys))
	var search map[string]any
	for _, child := range f.children {
		entry := map[string]any{
			"name":  child.Name,
			"value": child.Value,
			"class": child.Class,
		}
		if child.Type == "hidden" {
			hidden = append(hidden, entry)
			continue
		}
		entry["placeholder"] = opts.Localizer.Text("geofield.search.placeholder", child.Placeholder)
		search = entry
	}

	mapping := render.ErrorMapping{Fields: opts.Errors}
	var messages []string
	for _, path := range f.ErrorPaths() {
		messages = append(messages, mapping.For(path)...)
	}

	data := map[string]any{
		"id":         id,
		"name":       f.name,
		"title":      sanitizeTitle(f.title),
		"value":      stringValue(f.value),
		"settings":   settingsJSON,
		"hidden":     hidden,
		"search":     search,
		"errors":     render.MergeFormErrors(nil, messages...),
		"attributes": attributeList(opts.Attributes),
		"map_label":  opts.Localizer.Text("geofield.map.label", "Map"),
	}
	if search == nil {
		delete(data, "search")
	}
	if f.theme != nil {
		data["theme"] = f.theme.Theme
		data["variant"] = f.theme.Variant
		data["style"] = cssVarsStyle(f.theme.CSSVars)
	}
	return data
}

var (
	attrNamePattern = regexp.MustCompile(`^[a-zA-Z_:][a-zA-Z0-9_.:-]*$`)
	domIDPattern    = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)
)

// DOMID derives the root element id from a field name.
func DOMID(name string) string {
	cleaned := strings.Trim(domIDPattern.ReplaceAllString(name, "-"), "-")
	if cleaned == "" {
		return "geofield"
	}
	return "geofield-" + cleaned
}

func attributeList(attrs map[string]string) []map[string]string {
	if len(attrs) == 0 {
		return nil
	}
	keys := make([]string, 0, len(attrs))
	for key := range attrs {
		if !attrNamePattern.MatchString(key) {
			continue
		}
		lower := strings.ToLower(key)
		if strings.HasPrefix(lower, "on") {
			continue
		}
		switch lower {
		case "id", "class", "style", "data-settings", "data-field":
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)
	out := make([]map[string]string, 0, len(keys))
	for _, key := range keys {
		out = append(out, map[string]string{"name": key, "value": attrs[key]})
	}
	return out
}

func cssVarsStyle(vars map[string]string) string {
	if len(vars) == 0 {
		return ""
	}
	keys := make([]string, 0, len(vars))
	for key := range vars {
		if strings.HasPrefix(key, "--") {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, key+": "+strings.TrimSpace(vars[key]))
	}
	return strings.Join(parts, "; ")
}
