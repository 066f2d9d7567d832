// Package picker runs an interactive position pick for a geofield in the
// terminal. The real map controller drives an in-memory map, so every action
// goes through the same event handlers a browser would trigger.
package picker

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cast"
	"go.uber.org/zap"

	"github.com/goliatone/go-geofield/components/geofield"
	"github.com/goliatone/go-geofield/internal/prompt"
	"github.com/goliatone/go-geofield/pkg/geodata"
	"github.com/goliatone/go-geofield/pkg/mapsync"
	"github.com/goliatone/go-geofield/pkg/mapsync/headless"
)

// Action is one entry of the session menu.
type Action string

const (
	ActionSearch Action = "Search for a place"
	ActionClick  Action = "Click on the map"
	ActionDrag   Action = "Drag the marker"
	ActionZoom   Action = "Change zoom"
	ActionPin    Action = "Move pin from another widget"
	ActionDone   Action = "Done"
	ActionCancel Action = "Cancel"
)

// Result is the outcome of a finished session.
type Result struct {
	State    geodata.CoordinateState
	Values   url.Values
	Changed  bool
	Applied  bool
	Searches []mapsync.SearchOutcome
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the session logger. Defaults to zap.L().
func WithLogger(logger *zap.Logger) Option {
	return func(s *Session) {
		s.logger = logger
	}
}

// WithGeocoder sets the geocoder used by search. Without one every search
// reports ZERO_RESULTS.
func WithGeocoder(geocoder geodata.Geocoder) Option {
	return func(s *Session) {
		s.geocoder = geocoder
	}
}

// Session drives one field through prompts.
type Session struct {
	driver   prompt.Driver
	geocoder geodata.Geocoder
	logger   *zap.Logger
}

// New returns a session reading answers from driver.
func New(driver prompt.Driver, opts ...Option) *Session {
	s := &Session{driver: driver}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.logger == nil {
		s.logger = zap.L()
	}
	return s
}

type run struct {
	host     *headless.Field
	ctrl     *mapsync.Controller
	loop     *mapsync.EventLoop
	pins     *mapsync.PinBus
	searches []mapsync.SearchOutcome
}

// Run picks a position for field. When the user finishes with a changed
// position and confirms, the mirrored values are loaded back into field.
// Cancelling returns prompt.ErrAborted and leaves field untouched.
func (s *Session) Run(ctx context.Context, field *geofield.Field) (Result, error) {
	if s.driver == nil {
		return Result{}, errors.New("picker: prompt driver is required")
	}
	if field == nil {
		return Result{}, errors.New("picker: field is required")
	}

	host, err := headless.FromField(field)
	if err != nil {
		return Result{}, eris.Wrapf(err, "picker: prepare field %q", field.Name())
	}

	r := &run{host: host, loop: mapsync.NewEventLoop(), pins: mapsync.NewPinBus()}
	r.ctrl, err = mapsync.NewController(host, headless.NewProvider(s.geocoder),
		mapsync.WithLogger(s.logger),
		mapsync.WithDispatcher(r.loop),
		mapsync.WithRunner(mapsync.SyncRunner),
		mapsync.WithPinSource(r.pins),
		mapsync.WithSearchHook(func(outcome mapsync.SearchOutcome) {
			r.searches = append(r.searches, outcome)
		}),
	)
	if err != nil {
		return Result{}, err
	}
	if err := r.ctrl.Init(ctx); err != nil {
		return Result{}, err
	}
	defer r.ctrl.Close()
	r.loop.Drain()

	initialZoom := r.ctrl.State().Zoom
	actions := s.actions(host)
	labels := make([]string, len(actions))
	for i, action := range actions {
		labels[i] = string(action)
	}

	if err := s.show(ctx, r); err != nil {
		return Result{}, err
	}
	for {
		idx, err := s.driver.Select(ctx, prompt.SelectConfig{
			Message:  fmt.Sprintf("%s: choose an action", field.Title()),
			Options:  labels,
			PageSize: len(labels),
		})
		if err != nil {
			return Result{}, err
		}

		switch action := actions[idx]; action {
		case ActionCancel:
			return Result{}, prompt.ErrAborted
		case ActionDone:
			return s.finish(ctx, field, r, initialZoom)
		default:
			if err := s.apply(ctx, r, action); err != nil {
				return Result{}, err
			}
		}
		r.loop.Drain()
		if err := s.show(ctx, r); err != nil {
			return Result{}, err
		}
	}
}

func (s *Session) actions(host *headless.Field) []Action {
	actions := make([]Action, 0, 7)
	if host.Search() != nil {
		actions = append(actions, ActionSearch)
	}
	return append(actions, ActionClick, ActionDrag, ActionZoom, ActionPin, ActionDone, ActionCancel)
}

func (s *Session) apply(ctx context.Context, r *run, action Action) error {
	switch action {
	case ActionSearch:
		query, err := s.driver.Input(ctx, prompt.InputConfig{
			Message: "Address or place",
			Default: r.host.Search().Text(),
		})
		if err != nil {
			return err
		}
		before := len(r.searches)
		r.host.Search().Type(query)
		r.host.Search().Submit()
		r.loop.Drain()
		if len(r.searches) > before {
			return s.driver.Info(ctx, describeSearch(r.searches[len(r.searches)-1]))
		}
		return s.driver.Info(ctx, "Nothing to search for")
	case ActionClick, ActionDrag, ActionPin:
		pos, err := s.askPosition(ctx, r.ctrl.State().Position())
		if err != nil {
			return err
		}
		switch action {
		case ActionClick:
			r.ctrl.Map().(*headless.Map).Click(pos)
		case ActionDrag:
			r.ctrl.Marker().(*headless.Marker).Drag(pos)
		default:
			r.pins.Publish(pos.Lat, pos.Lng)
		}
		return nil
	case ActionZoom:
		text, err := s.driver.Input(ctx, prompt.InputConfig{
			Message:   "Zoom level",
			Default:   geodata.FormatZoom(r.ctrl.State().Zoom),
			Validator: validateZoom,
		})
		if err != nil {
			return err
		}
		zoom, _ := strconv.Atoi(strings.TrimSpace(text))
		r.ctrl.Map().SetZoom(zoom)
		return nil
	}
	return fmt.Errorf("picker: unknown action %q", action)
}

func (s *Session) askPosition(ctx context.Context, current geodata.LatLng) (geodata.LatLng, error) {
	text, err := s.driver.Input(ctx, prompt.InputConfig{
		Message:   "Position (lat, lng)",
		Default:   FormatPosition(current),
		Help:      "Decimal degrees, e.g. -41.2866, 174.7756",
		Validator: func(raw string) error { _, err := ParsePosition(raw); return err },
	})
	if err != nil {
		return geodata.LatLng{}, err
	}
	return ParsePosition(text)
}

func (s *Session) finish(ctx context.Context, field *geofield.Field, r *run, initialZoom int) (Result, error) {
	state := r.ctrl.State()
	result := Result{
		State:    state,
		Values:   r.host.FormValues(),
		Changed:  r.host.Changed(),
		Searches: r.searches,
	}
	if !result.Changed && state.Zoom == initialZoom {
		return result, nil
	}

	apply, err := s.driver.Confirm(ctx, prompt.ConfirmConfig{
		Message: fmt.Sprintf("Keep %s?", describeState(state)),
		Default: true,
	})
	if err != nil {
		return Result{}, err
	}
	if apply {
		field.LoadForm(result.Values)
		result.Applied = true
		s.logger.Info("geofield position picked",
			zap.String("field", field.Name()),
			zap.Float64("lat", state.Latitude),
			zap.Float64("lng", state.Longitude),
			zap.Int("zoom", state.Zoom),
		)
	}
	return result, nil
}

func (s *Session) show(ctx context.Context, r *run) error {
	line := describeState(r.ctrl.State())
	if r.host.Changed() {
		line += " (changed)"
	}
	return s.driver.Info(ctx, line)
}

// ParsePosition reads "lat, lng" or "lat lng" in decimal degrees.
func ParsePosition(raw string) (geodata.LatLng, error) {
	parts := strings.FieldsFunc(raw, func(r rune) bool { return r == ',' || r == ' ' || r == '\t' })
	if len(parts) != 2 {
		return geodata.LatLng{}, fmt.Errorf("picker: expected \"lat, lng\", got %q", raw)
	}
	lat, err := cast.ToFloat64E(parts[0])
	if err != nil {
		return geodata.LatLng{}, fmt.Errorf("picker: invalid latitude %q", parts[0])
	}
	lng, err := cast.ToFloat64E(parts[1])
	if err != nil {
		return geodata.LatLng{}, fmt.Errorf("picker: invalid longitude %q", parts[1])
	}
	if lat < -90 || lat > 90 {
		return geodata.LatLng{}, fmt.Errorf("picker: latitude %v out of range", lat)
	}
	if lng < -180 || lng > 180 {
		return geodata.LatLng{}, fmt.Errorf("picker: longitude %v out of range", lng)
	}
	return geodata.LatLng{Lat: lat, Lng: lng}, nil
}

// FormatPosition renders pos the way ParsePosition reads it.
func FormatPosition(pos geodata.LatLng) string {
	return geodata.FormatCoordinate(pos.Lat) + ", " + geodata.FormatCoordinate(pos.Lng)
}

func validateZoom(raw string) error {
	zoom, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("picker: invalid zoom %q", raw)
	}
	if zoom < 0 {
		return fmt.Errorf("picker: zoom %d is negative", zoom)
	}
	return nil
}

func describeState(state geodata.CoordinateState) string {
	return fmt.Sprintf("lat %s lng %s zoom %s",
		geodata.FormatCoordinate(state.Latitude),
		geodata.FormatCoordinate(state.Longitude),
		geodata.FormatZoom(state.Zoom),
	)
}

func describeSearch(outcome mapsync.SearchOutcome) string {
	if outcome.Applied {
		return fmt.Sprintf("Found %q at %s", outcome.Query, FormatPosition(outcome.Position))
	}
	if outcome.Err != nil {
		return fmt.Sprintf("Search for %q failed: %v", outcome.Query, outcome.Err)
	}
	return fmt.Sprintf("No match for %q (%s)", outcome.Query, outcome.Status)
}
