package main

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	root "github.com/goliatone/go-geofield"
	"github.com/goliatone/go-geofield/components/geofield"
	"github.com/goliatone/go-geofield/internal/config"
	"github.com/goliatone/go-geofield/pkg/geodata"
	"github.com/goliatone/go-geofield/pkg/render"
	"github.com/goliatone/go-geofield/pkg/render/template"
	"github.com/goliatone/go-geofield/pkg/store"
)

// mediaFieldName is the form field the edit page renders.
const mediaFieldName = "location"

//go:embed templates/*.tmpl
var pageTemplates embed.FS

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve media edit forms and the geocode proxy",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := openStore(ctx, cfg.Store)
		if err != nil {
			return err
		}
		defer st.Close()

		geocoder, err := newGeocoder(cfg.Geocode)
		if err != nil {
			return err
		}

		srv, err := newServer(cfg, st, geocoder)
		if err != nil {
			return err
		}

		addr := serveAddr
		if addr == "" {
			addr = cfg.Server.Addr
		}
		return srv.listen(ctx, addr)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config)")
	rootCmd.AddCommand(serveCmd)
}

type server struct {
	cfg       *config.Config
	store     store.Store
	component *geofield.Component
	pages     template.Renderer
	logger    *zap.Logger
}

func newServer(c *config.Config, st store.Store, geocoder geodata.Geocoder) (*server, error) {
	sub, err := fs.Sub(pageTemplates, "templates")
	if err != nil {
		return nil, eris.Wrap(err, "serve: page templates")
	}
	pages, err := template.New(template.WithFS(sub))
	if err != nil {
		return nil, err
	}
	return &server{
		cfg:       c,
		store:     st,
		component: newComponent(c.Geocode, geocoder),
		pages:     pages,
		logger:    zap.L(),
	}, nil
}

func (s *server) basePath() string {
	base := strings.TrimRight(strings.TrimSpace(s.cfg.Server.BasePath), "/")
	if base != "" && !strings.HasPrefix(base, "/") {
		base = "/" + base
	}
	return base
}

func (s *server) routes() (http.Handler, error) {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.Server.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodHead, http.MethodPost},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	base := s.basePath()
	r.Get(base+"/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, "application/json", map[string]string{"status": "ok"})
	})

	pattern, err := s.component.RegisterRoutes(r, base)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("geocode proxy mounted", zap.String("path", pattern))

	if assetBase := strings.TrimRight(s.cfg.Field.AssetBase, "/"); assetBase != "" {
		r.Handle(assetBase+"/*", http.StripPrefix(assetBase+"/", root.AssetsHandler()))
	}

	r.Get(base+"/media", s.handleIndex)
	r.Post(base+"/media", s.handleCreate)
	r.Get(base+"/media.geojson", s.handleFeatures)
	r.Get(base+"/media/{id}", s.handleEdit)
	r.Post(base+"/media/{id}", s.handleSave)
	return r, nil
}

func (s *server) listen(ctx context.Context, addr string) error {
	handler, err := s.routes()
	if err != nil {
		return err
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("starting server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "server listen")
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		s.logger.Info("shutting down server")
		timeout := time.Duration(s.cfg.Server.ShutdownSecs) * time.Second
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// mediaField builds the edit field for m, seeded from the stored position.
func (s *server) mediaField(m *store.Media) (*geofield.Field, error) {
	field, err := s.component.NewField(s.basePath(), mediaFieldName, m.Filename, fieldOptions(s.cfg.Field, nil)...)
	if err != nil {
		return nil, err
	}
	field.SetValue(m.Filename, nil)
	field.LoadRecord(m)
	return field, nil
}

func (s *server) loadMedia(w http.ResponseWriter, r *http.Request) (*store.Media, bool) {
	m, err := s.store.Get(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, store.ErrNotFound) {
		http.NotFound(w, r)
		return nil, false
	}
	if err != nil {
		s.logger.Error("load media failed", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return nil, false
	}
	return m, true
}

func (s *server) handleIndex(w http.ResponseWriter, r *http.Request) {
	items, err := s.store.List(r.Context(), store.ListFilter{})
	if err != nil {
		s.logger.Error("list media failed", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	s.renderPage(w, "index", map[string]any{
		"items":    items,
		"index":    s.basePath() + "/media",
		"features": s.basePath() + "/media.geojson",
	})
}

func (s *server) handleCreate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	filename := strings.TrimSpace(r.PostForm.Get("filename"))
	if filename == "" {
		http.Error(w, "filename is required", http.StatusBadRequest)
		return
	}
	m, err := s.store.Create(r.Context(), filename)
	if err != nil {
		s.logger.Error("create media failed", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, s.basePath()+"/media/"+m.ID, http.StatusSeeOther)
}

func (s *server) handleEdit(w http.ResponseWriter, r *http.Request) {
	m, ok := s.loadMedia(w, r)
	if !ok {
		return
	}
	field, err := s.mediaField(m)
	if err != nil {
		s.logger.Error("build field failed", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	s.renderEdit(w, r, m, field, http.StatusOK, nil)
}

func (s *server) renderEdit(w http.ResponseWriter, r *http.Request, m *store.Media, field *geofield.Field, status int, payload map[string][]string) {
	mapping := render.MapErrorPayload(field.ErrorPaths(), payload)
	markup, assets, err := root.RenderPage(r.Context(), []*geofield.Field{field}, render.RenderOptions{Errors: mapping.Fields})
	if err != nil {
		s.logger.Error("render field failed", zap.String("media", m.ID), zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	s.renderPageStatus(w, status, "page", map[string]any{
		"media":  m,
		"field":  markup,
		"assets": assets.HTML(),
		"action": s.basePath() + "/media/" + m.ID,
		"index":  s.basePath() + "/media",
		"saved":  r.URL.Query().Get("saved") != "",
		"errors": mapping.Form,
	})
}

func (s *server) handleSave(w http.ResponseWriter, r *http.Request) {
	m, ok := s.loadMedia(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	field, err := s.mediaField(m)
	if err != nil {
		s.logger.Error("build field failed", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	if !field.LoadForm(r.PostForm) {
		http.Error(w, "missing "+mediaFieldName+" values", http.StatusBadRequest)
		return
	}
	if err := field.SaveInto(m); err != nil {
		s.logger.Warn("rejected media position", zap.String("media", m.ID), zap.Error(err))
		s.renderEdit(w, r, m, field, http.StatusUnprocessableEntity, map[string][]string{
			mediaFieldName: {"The position could not be saved: " + eris.Cause(err).Error()},
		})
		return
	}
	if err := s.store.Save(r.Context(), m); err != nil {
		s.logger.Error("save media failed", zap.String("media", m.ID), zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	s.logger.Info("media position saved",
		zap.String("media", m.ID),
		zap.Float64("lat", m.Latitude),
		zap.Float64("lng", m.Longitude),
		zap.Int("zoom", m.Zoom),
	)
	http.Redirect(w, r, s.basePath()+"/media/"+m.ID+"?saved=1", http.StatusSeeOther)
}

func (s *server) handleFeatures(w http.ResponseWriter, r *http.Request) {
	items, err := s.store.List(r.Context(), store.ListFilter{Limit: 500})
	if err != nil {
		s.logger.Error("list media failed", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	payload, err := store.FeatureCollection(items)
	if err != nil {
		s.logger.Error("encode features failed", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(payload)
}

func (s *server) renderPage(w http.ResponseWriter, name string, data map[string]any) {
	s.renderPageStatus(w, http.StatusOK, name, data)
}

func (s *server) renderPageStatus(w http.ResponseWriter, status int, name string, data map[string]any) {
	html, err := s.pages.RenderTemplate(name, data)
	if err != nil {
		s.logger.Error("render page failed", zap.String("page", name), zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(html))
}

func writeJSON(w http.ResponseWriter, status int, contentType string, body any) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
