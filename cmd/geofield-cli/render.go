package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	root "github.com/goliatone/go-geofield"
	"github.com/goliatone/go-geofield/components/geofield"
	"github.com/goliatone/go-geofield/components/geofield/formgenwiring"
	"github.com/goliatone/go-geofield/internal/config"
	"github.com/goliatone/go-geofield/internal/openapi"
	"github.com/goliatone/go-geofield/pkg/geodata"
	"github.com/goliatone/go-geofield/pkg/render"
)

type renderRequest struct {
	Name      string
	Title     string
	Latitude  string
	Longitude string
	Zoom      string
	OpenAPI   string
	Operation string
	BasePath  string
	Page      bool
	Endpoints bool
}

var (
	renderReq    renderRequest
	renderOutput string
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render geofield markup",
	Long:  "Renders one field from flags, or every geofield declared in an OpenAPI operation's request body.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		out := cmd.OutOrStdout()
		if renderOutput != "" {
			f, err := os.Create(renderOutput)
			if err != nil {
				return eris.Wrap(err, "render: create output")
			}
			defer f.Close()
			out = f
		}
		return renderFields(cmd.Context(), cfg, renderReq, out)
	},
}

func init() {
	f := renderCmd.Flags()
	f.StringVar(&renderReq.Name, "name", "location", "field name")
	f.StringVar(&renderReq.Title, "title", "Location", "field title")
	f.StringVar(&renderReq.Latitude, "lat", "", "current latitude")
	f.StringVar(&renderReq.Longitude, "lng", "", "current longitude")
	f.StringVar(&renderReq.Zoom, "zoom", "", "current zoom")
	f.StringVar(&renderReq.OpenAPI, "openapi", "", "OpenAPI document path or URL to discover fields from")
	f.StringVar(&renderReq.Operation, "operation", "", "operation ID (all operations when empty)")
	f.StringVar(&renderReq.BasePath, "base-path", "/", "base path the geocode proxy is mounted under")
	f.BoolVar(&renderReq.Page, "page", false, "prefix the markup with the asset tags")
	f.BoolVar(&renderReq.Endpoints, "endpoints", false, "print geocode endpoint overrides as JSON instead of markup")
	f.StringVar(&renderOutput, "output", "", "output file (stdout if empty)")
	rootCmd.AddCommand(renderCmd)
}

func renderFields(ctx context.Context, c *config.Config, req renderRequest, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	component := newComponent(c.Geocode, nil)

	var specs []openapi.FieldSpec
	if req.OpenAPI != "" {
		raw, err := openapi.Load(ctx, req.OpenAPI, openapi.LoaderOptions{
			HTTPClient:     &http.Client{Timeout: 30 * time.Second},
			RequestTimeout: 30 * time.Second,
		})
		if err != nil {
			return err
		}
		specs, err = openapi.Discover(ctx, raw, req.Operation)
		if err != nil {
			return err
		}
		if len(specs) == 0 {
			return eris.Errorf("render: no geofield found in %q", req.OpenAPI)
		}
	} else {
		specs = []openapi.FieldSpec{{Name: req.Name, Title: req.Title, Binding: geofield.DefaultBinding()}}
	}

	if req.Endpoints {
		overrides := make([]formgenwiring.EndpointOverride, 0, len(specs))
		for _, spec := range specs {
			overrides = append(overrides, formgenwiring.GeocodeEndpointOverride(
				spec.OperationID,
				render.ChildName(spec.Name, geofield.SearchKey),
				req.BasePath,
				geofield.WithRoutePath(c.Geocode.RoutePath),
				geofield.WithAddressParam(c.Geocode.AddressKey),
			))
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(overrides)
	}

	fields := make([]*root.Field, 0, len(specs))
	for _, spec := range specs {
		spec.Overrides = layerOverrides(c.Field.Overrides(), spec.Overrides)
		opts := append(fieldOptions(c.Field, nil), spec.FieldOptions()...)
		field, err := component.NewField(req.BasePath, spec.Name, spec.Title, opts...)
		if err != nil {
			return err
		}
		if current := req.current(); current != nil {
			field.SetValue(nil, map[string]any{spec.Name: current})
		}
		fields = append(fields, field)
	}

	markup, assets, err := root.RenderPage(ctx, fields, root.RenderOptions{})
	if err != nil {
		return err
	}
	if req.Page {
		if _, err := io.WriteString(out, assets.HTML()); err != nil {
			return err
		}
	}
	_, err = io.WriteString(out, markup)
	return err
}

func (r renderRequest) current() map[string]any {
	values := map[string]any{}
	for key, value := range map[string]string{
		geodata.Latitude:  r.Latitude,
		geodata.Longitude: r.Longitude,
		geodata.Zoom:      r.Zoom,
	} {
		if value = strings.TrimSpace(value); value != "" {
			values[key] = value
		}
	}
	if len(values) == 0 {
		return nil
	}
	return values
}
