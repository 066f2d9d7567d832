package geofield

import (
	"context"
	"strings"
	"testing"
	"testing/fstest"

	theme "github.com/goliatone/go-theme"

	"github.com/goliatone/go-geofield/pkg/render"
	"github.com/goliatone/go-geofield/pkg/render/template"
)

func TestRender_DefaultTemplate(t *testing.T) {
	field, err := NewField("Photo", `<script>alert(1)</script><em>Photo</em> location`, WithOverrides(map[string]any{
		"default_field_values": map[string]any{"Latitude": 1.0, "Longitude": 2.0, "Zoom": 5},
	}))
	if err != nil {
		t.Fatalf("new field: %v", err)
	}

	out, err := field.Render(context.Background(), render.RenderOptions{
		Errors:     map[string][]string{"Photo.Latitude": {"Latitude must be a number"}},
		Attributes: map[string]string{"data-tab": "geo", "onclick": "x()", "bad attr": "y", "class": "ignored"},
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	for _, want := range []string{
		`id="geofield-Photo"`,
		`data-field="Photo"`,
		`&quot;coords&quot;:[1,2]`,
		`&quot;zoom&quot;:5`,
		`<em>Photo</em> location`,
		`name="Photo[Latitude]" value="1"`,
		`name="Photo[Longitude]" value="2"`,
		`name="Photo[Zoom]" value="5"`,
		`class="geofield-searchfield" name="Photo[Search]" placeholder="Search for a location"`,
		`data-tab="geo"`,
		`<p class="geofield-error">Latitude must be a number</p>`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected output to contain %q\n%s", want, out)
		}
	}
	for _, unwanted := range []string{"<script>", "alert(1)", "bad attr", `class="ignored"`, "onclick"} {
		if strings.Contains(out, unwanted) {
			t.Fatalf("did not expect %q in output\n%s", unwanted, out)
		}
	}
}

func TestRender_LocalizedPlaceholder(t *testing.T) {
	field, err := NewField("Photo", "")
	if err != nil {
		t.Fatalf("new field: %v", err)
	}
	translator := render.TranslatorFunc(func(_ string, key string, _ ...any) (string, error) {
		if key == "geofield.search.placeholder" {
			return "Buscar una ubicación", nil
		}
		return "", nil
	})

	out, err := field.Render(context.Background(), render.RenderOptions{
		ID:        "custom",
		Localizer: render.Localizer{Locale: "es", Translator: translator},
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(out, `placeholder="Buscar una ubicación"`) {
		t.Fatalf("expected localized placeholder\n%s", out)
	}
	if !strings.Contains(out, `id="custom-map"`) {
		t.Fatalf("expected custom id\n%s", out)
	}
}

func TestRender_ThemePartialAndAssets(t *testing.T) {
	files := fstest.MapFS{
		"acme/geofield.tmpl": {Data: []byte(`<section data-theme="{{ theme }}" style="{{ style }}">{{ settings }}</section>`)},
	}
	engine, err := template.New(template.WithFS(files))
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	cfg := &theme.RendererConfig{
		Theme:    "acme",
		Variant:  "dark",
		Partials: map[string]string{TemplateName: "acme/geofield"},
		CSSVars:  map[string]string{"--geofield-height": "320px", "color": "red"},
		AssetURL: func(key string) string { return "/themes/acme/" + key },
	}
	field, err := NewField("Photo", "", WithRenderer(engine), WithTheme(cfg), WithOverrides(map[string]any{"api_key": "k&1"}))
	if err != nil {
		t.Fatalf("new field: %v", err)
	}

	out, err := field.Render(context.Background(), render.RenderOptions{})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.HasPrefix(out, `<section data-theme="acme" style="--geofield-height: 320px">`) {
		t.Fatalf("unexpected themed output %q", out)
	}

	assets := field.Assets()
	wantStyles := []string{"/themes/acme/geofield/geofield.css"}
	if len(assets.Stylesheets) != 1 || assets.Stylesheets[0] != wantStyles[0] {
		t.Fatalf("unexpected stylesheets %#v", assets.Stylesheets)
	}
	if len(assets.Scripts) != 2 {
		t.Fatalf("expected 2 scripts, got %#v", assets.Scripts)
	}
	if got := assets.Scripts[1].Src; got != "//maps.googleapis.com/maps/api/js?callback=geofieldInit&key=k%261" {
		t.Fatalf("unexpected maps script %q", got)
	}
}

func TestMapsScriptURL_OmitsEmptyKey(t *testing.T) {
	if got := MapsScriptURL("  "); got != "//maps.googleapis.com/maps/api/js?callback=geofieldInit" {
		t.Fatalf("unexpected url %q", got)
	}
}

func TestAssets_DeduplicatedAcrossFields(t *testing.T) {
	first, _ := NewField("Photo", "")
	second, _ := NewField("Video", "", WithAssetBase("/geofield/assets/"))

	var page render.Assets
	page.Merge(first.Assets()).Merge(second.Assets())
	if len(page.Stylesheets) != 1 || len(page.Scripts) != 2 {
		t.Fatalf("expected deduplicated assets, got %#v", page)
	}
	if page.Scripts[0].Src != "/geofield/assets/geofield.js" {
		t.Fatalf("unexpected runtime script %q", page.Scripts[0].Src)
	}
}

func TestRender_CanceledContext(t *testing.T) {
	field, _ := NewField("Photo", "")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := field.Render(ctx, render.RenderOptions{}); err == nil {
		t.Fatalf("expected context error")
	}
}

func TestDOMID(t *testing.T) {
	cases := map[string]string{
		"Photo":        "geofield-Photo",
		"media[0].geo": "geofield-media-0-geo",
		"***":          "geofield",
	}
	for in, want := range cases {
		if got := DOMID(in); got != want {
			t.Fatalf("DOMID(%q) = %q, want %q", in, got, want)
		}
	}
}
