package mapsync_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/goliatone/go-geofield/pkg/geodata"
	"github.com/goliatone/go-geofield/pkg/mapsync"
	"github.com/goliatone/go-geofield/pkg/mapsync/headless"
)

const fieldID = "geofield-location"

func settingsJSON(lat, lng float64, zoom int) string {
	return fmt.Sprintf(`{"coords":[%v,%v],"map":{"zoom":%d,"mapTypeId":"ROADMAP"},"showSearchBox":true}`, lat, lng, zoom)
}

type harness struct {
	ctrl     *mapsync.Controller
	host     *headless.Field
	provider *headless.Provider
	logs     *observer.ObservedLogs

	calls   []string
	results []geodata.GeocodeResult
	status  geodata.GeocodeStatus
}

func newHarness(t *testing.T, settings string, withSearch bool, opts ...mapsync.Option) *harness {
	t.Helper()
	core, logs := observer.New(zap.DebugLevel)
	h := &harness{
		host: headless.NewField(fieldID, "location", settings, withSearch),
		logs:   logs,
		status: geodata.StatusZeroResults,
	}
	h.provider = headless.NewProvider(geodata.GeocoderFunc(func(_ context.Context, address string) ([]geodata.GeocodeResult, geodata.GeocodeStatus, error) {
		h.calls = append(h.calls, address)
		return h.results, h.status, nil
	}))

	base := []mapsync.Option{
		mapsync.WithLogger(zap.New(core)),
		mapsync.WithDispatcher(mapsync.Inline{}),
		mapsync.WithRunner(mapsync.SyncRunner),
	}
	ctrl, err := mapsync.NewController(h.host, h.provider, append(base, opts...)...)
	if err != nil {
		t.Fatalf("new controller: %v", err)
	}
	h.ctrl = ctrl
	return h
}

func (h *harness) init(t *testing.T) {
	t.Helper()
	if err := h.ctrl.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}
}

func (h *harness) mapView() *headless.Map {
	return h.ctrl.Map().(*headless.Map)
}

func (h *harness) marker() *headless.Marker {
	return h.ctrl.Marker().(*headless.Marker)
}

func (h *harness) mirror() map[string]string {
	return map[string]string{
		geodata.Latitude:  h.host.Value(geodata.Latitude),
		geodata.Longitude: h.host.Value(geodata.Longitude),
		geodata.Zoom:      h.host.Value(geodata.Zoom),
	}
}

func mirrorOf(lat, lng, zoom string) map[string]string {
	return map[string]string{geodata.Latitude: lat, geodata.Longitude: lng, geodata.Zoom: zoom}
}

func TestNewController_RequiresHostAndProvider(t *testing.T) {
	provider := headless.NewProvider(nil)
	if _, err := mapsync.NewController(nil, provider); !errors.Is(err, mapsync.ErrNoHost) {
		t.Fatalf("expected ErrNoHost, got %v", err)
	}
	host := headless.NewField(fieldID, "location", settingsJSON(0, 0, 1), false)
	if _, err := mapsync.NewController(host, nil); !errors.Is(err, mapsync.ErrNoProvider) {
		t.Fatalf("expected ErrNoProvider, got %v", err)
	}
}

func TestController_InitSeedsMapMarkerAndMirror(t *testing.T) {
	h := newHarness(t, settingsJSON(1, 2, 5), true)
	h.init(t)

	if got := h.ctrl.Status(); got != mapsync.StateActive {
		t.Fatalf("expected active, got %s", got)
	}
	if got := h.marker().Position(); got != (geodata.LatLng{Lat: 1, Lng: 2}) {
		t.Fatalf("unexpected marker position %#v", got)
	}
	if !h.marker().Draggable() || h.marker().Title() != mapsync.MarkerTitle {
		t.Fatalf("expected draggable marker titled %q", mapsync.MarkerTitle)
	}
	if got := h.mapView().Zoom(); got != 5 {
		t.Fatalf("unexpected map zoom %d", got)
	}
	if got := h.mapView().MapType(); got != geodata.MapTypeRoadmap {
		t.Fatalf("unexpected map type %q", got)
	}
	if got := h.mapView().Container(); got != h.host.MapContainer() {
		t.Fatalf("map built in wrong container %#v", got)
	}
	if diff := cmp.Diff(mirrorOf("1", "2", "5"), h.mirror()); diff != "" {
		t.Fatalf("mirror mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(geodata.CoordinateState{Latitude: 1, Longitude: 2, Zoom: 5}, h.ctrl.State()); diff != "" {
		t.Fatalf("state mismatch (-want +got):\n%s", diff)
	}
	if h.host.Changed() {
		t.Fatalf("init must not mark the form changed")
	}
	// dragend, click, zoom_changed, submit, keydown
	if got := h.ctrl.Subscriptions(); got != 5 {
		t.Fatalf("expected 5 subscriptions, got %d", got)
	}
}

func TestController_InitIsIdempotent(t *testing.T) {
	h := newHarness(t, settingsJSON(1, 2, 5), true)
	h.init(t)
	subs := h.ctrl.Subscriptions()
	listeners := h.provider.Listeners()
	state := h.ctrl.State()

	for i := 0; i < 3; i++ {
		h.init(t)
	}

	if got := h.ctrl.Subscriptions(); got != subs {
		t.Fatalf("subscriptions changed: %d -> %d", subs, got)
	}
	if got := h.provider.Listeners(); got != listeners {
		t.Fatalf("provider listeners changed: %d -> %d", listeners, got)
	}
	if got := len(h.provider.Maps()); got != 1 {
		t.Fatalf("expected one map, got %d", got)
	}
	if diff := cmp.Diff(state, h.ctrl.State()); diff != "" {
		t.Fatalf("state changed (-want +got):\n%s", diff)
	}
	if got := h.host.Search().Handlers(); got != 2 {
		t.Fatalf("expected 2 search handlers, got %d", got)
	}
}

func TestController_InitFailsOnBadSettings(t *testing.T) {
	cases := map[string]string{
		"malformed":        `{"coords":`,
		"missing coords":   `{"map":{"zoom":1,"mapTypeId":"ROADMAP"}}`,
		"missing zoom":     `{"coords":[1,2],"map":{"mapTypeId":"ROADMAP"}}`,
		"missing map type": `{"coords":[1,2],"map":{"zoom":1}}`,
		"unknown map type": `{"coords":[1,2],"map":{"zoom":1,"mapTypeId":"MOON"}}`,
	}

	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			h := newHarness(t, raw, true)
			if err := h.ctrl.Init(context.Background()); err == nil {
				t.Fatalf("expected init error")
			}
			if got := h.ctrl.Status(); got != mapsync.StateUninitialized {
				t.Fatalf("expected uninitialized, got %s", got)
			}
			if len(h.provider.Maps()) != 0 || h.ctrl.Subscriptions() != 0 {
				t.Fatalf("expected no map and no subscriptions after failure")
			}
			if h.logs.FilterMessage("geofield map init failed").Len() != 1 {
				t.Fatalf("expected init failure to be logged")
			}
			if err := h.ctrl.Init(context.Background()); err != nil {
				t.Fatalf("expected failed init not to be retried, got %v", err)
			}
		})
	}
}

func TestController_ZeroZoomIsValid(t *testing.T) {
	h := newHarness(t, settingsJSON(0, 0, 0), false)
	h.init(t)

	if got := h.host.Value(geodata.Zoom); got != "0" {
		t.Fatalf("expected zoom mirror 0, got %q", got)
	}
	if got := h.ctrl.Subscriptions(); got != 3 {
		t.Fatalf("expected 3 subscriptions without search box, got %d", got)
	}
}

func TestController_MarkerDragUpdatesFieldAndCentres(t *testing.T) {
	h := newHarness(t, settingsJSON(1, 2, 5), true)
	h.init(t)

	h.marker().Drag(geodata.LatLng{Lat: -41.28, Lng: 174.77})

	if diff := cmp.Diff(mirrorOf("-41.28", "174.77", "5"), h.mirror()); diff != "" {
		t.Fatalf("mirror mismatch (-want +got):\n%s", diff)
	}
	if got := h.mapView().Center(); got != (geodata.LatLng{Lat: -41.28, Lng: 174.77}) {
		t.Fatalf("expected map centred on marker, got %#v", got)
	}
	if !h.host.Changed() {
		t.Fatalf("expected form marked changed")
	}
}

func TestController_MapClickMovesMarker(t *testing.T) {
	h := newHarness(t, settingsJSON(1, 2, 5), true)
	h.init(t)

	h.mapView().Click(geodata.LatLng{Lat: 3, Lng: 4})

	if got := h.marker().Position(); got != (geodata.LatLng{Lat: 3, Lng: 4}) {
		t.Fatalf("unexpected marker position %#v", got)
	}
	if got := h.mapView().Center(); got != (geodata.LatLng{Lat: 1, Lng: 2}) {
		t.Fatalf("click must not pan the map, got %#v", got)
	}
	if diff := cmp.Diff(mirrorOf("3", "4", "5"), h.mirror()); diff != "" {
		t.Fatalf("mirror mismatch (-want +got):\n%s", diff)
	}
	if !h.host.Changed() {
		t.Fatalf("expected form marked changed")
	}
}

func TestController_ZoomChangeOnlyTouchesZoom(t *testing.T) {
	h := newHarness(t, settingsJSON(1, 2, 5), true)
	h.init(t)

	h.mapView().SetZoom(8)

	if diff := cmp.Diff(mirrorOf("1", "2", "8"), h.mirror()); diff != "" {
		t.Fatalf("mirror mismatch (-want +got):\n%s", diff)
	}
	if h.ctrl.State().Zoom != 8 {
		t.Fatalf("expected state zoom 8, got %d", h.ctrl.State().Zoom)
	}
	if h.host.Changed() {
		t.Fatalf("zoom changes must not mark the form changed")
	}
}

func TestController_PinMoveForcesZoom(t *testing.T) {
	bus := mapsync.NewPinBus()
	h := newHarness(t, settingsJSON(1, 2, 5), true, mapsync.WithPinSource(bus))
	h.init(t)

	bus.Publish(10, 20)

	if got := h.marker().Position(); got != (geodata.LatLng{Lat: 10, Lng: 20}) {
		t.Fatalf("unexpected marker position %#v", got)
	}
	if got := h.mapView().Center(); got != (geodata.LatLng{Lat: 10, Lng: 20}) {
		t.Fatalf("unexpected map centre %#v", got)
	}
	if got := h.mapView().Zoom(); got != geodata.PinMoveZoom {
		t.Fatalf("expected zoom %d, got %d", geodata.PinMoveZoom, got)
	}
	if diff := cmp.Diff(mirrorOf("10", "20", "10"), h.mirror()); diff != "" {
		t.Fatalf("mirror mismatch (-want +got):\n%s", diff)
	}
	if !h.host.Changed() {
		t.Fatalf("expected form marked changed")
	}
}

func TestController_SearchAppliesFirstResult(t *testing.T) {
	var outcomes []mapsync.SearchOutcome
	h := newHarness(t, settingsJSON(1, 2, 5), true, mapsync.WithSearchHook(func(o mapsync.SearchOutcome) {
		outcomes = append(outcomes, o)
	}))
	h.status = geodata.StatusOK
	h.results = []geodata.GeocodeResult{
		{Geometry: geodata.Geometry{Location: geodata.LatLng{Lat: 7, Lng: 8}}},
		{Geometry: geodata.Geometry{Location: geodata.LatLng{Lat: 9, Lng: 9}}},
	}
	h.init(t)

	h.host.Search().Type("  Wellington  ")
	ev := h.host.Search().Submit()

	if !ev.DefaultPrevented() || !ev.PropagationStopped() {
		t.Fatalf("expected submit suppressed")
	}
	if diff := cmp.Diff([]string{"Wellington"}, h.calls); diff != "" {
		t.Fatalf("geocode calls mismatch (-want +got):\n%s", diff)
	}
	if got := h.marker().Position(); got != (geodata.LatLng{Lat: 7, Lng: 8}) {
		t.Fatalf("unexpected marker position %#v", got)
	}
	if got := h.mapView().Center(); got != (geodata.LatLng{Lat: 7, Lng: 8}) {
		t.Fatalf("expected map centred on result, got %#v", got)
	}
	if diff := cmp.Diff(mirrorOf("7", "8", "5"), h.mirror()); diff != "" {
		t.Fatalf("mirror mismatch (-want +got):\n%s", diff)
	}
	if !h.host.Changed() {
		t.Fatalf("expected form marked changed")
	}
	want := []mapsync.SearchOutcome{{
		FieldID:  fieldID,
		Query:    "Wellington",
		Status:   geodata.StatusOK,
		Applied:  true,
		Position: geodata.LatLng{Lat: 7, Lng: 8},
	}}
	if diff := cmp.Diff(want, outcomes); diff != "" {
		t.Fatalf("outcomes mismatch (-want +got):\n%s", diff)
	}
}

func TestController_SearchEnterKey(t *testing.T) {
	h := newHarness(t, settingsJSON(1, 2, 5), true)
	h.init(t)
	h.host.Search().Type("Auckland")

	other := h.host.Search().PressKey(65)
	if other.DefaultPrevented() || len(h.calls) != 0 {
		t.Fatalf("non-enter keys must pass through")
	}

	enter := h.host.Search().PressKey(mapsync.KeyEnter)
	if !enter.DefaultPrevented() || !enter.PropagationStopped() {
		t.Fatalf("expected enter suppressed")
	}
	if diff := cmp.Diff([]string{"Auckland"}, h.calls); diff != "" {
		t.Fatalf("geocode calls mismatch (-want +got):\n%s", diff)
	}
}

func TestController_EmptySearchSkipsLookup(t *testing.T) {
	for _, text := range []string{"", "   ", "\t\n"} {
		h := newHarness(t, settingsJSON(1, 2, 5), true)
		h.init(t)
		h.host.Search().Type(text)

		ev := h.host.Search().Submit()

		if !ev.DefaultPrevented() {
			t.Fatalf("expected submit suppressed for %q", text)
		}
		if len(h.calls) != 0 {
			t.Fatalf("expected no geocode call for %q, got %v", text, h.calls)
		}
	}
}

func TestController_FailedSearchLeavesStateUnchanged(t *testing.T) {
	cases := map[string]struct {
		status geodata.GeocodeStatus
		err    error
	}{
		"zero results": {status: geodata.StatusZeroResults},
		"denied":       {status: geodata.StatusRequestDenied},
		"transport":    {status: geodata.StatusError, err: errors.New("connection reset")},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			core, logs := observer.New(zap.WarnLevel)
			var outcomes []mapsync.SearchOutcome
			calls := 0
			geocoder := geodata.GeocoderFunc(func(context.Context, string) ([]geodata.GeocodeResult, geodata.GeocodeStatus, error) {
				calls++
				return nil, tc.status, tc.err
			})
			host := headless.NewField(fieldID, "location", settingsJSON(1, 2, 5), true)
			ctrl, err := mapsync.NewController(host, headless.NewProvider(nil),
				mapsync.WithLogger(zap.New(core)),
				mapsync.WithRunner(mapsync.SyncRunner),
				mapsync.WithGeocoder(geocoder),
				mapsync.WithSearchHook(func(o mapsync.SearchOutcome) { outcomes = append(outcomes, o) }),
			)
			if err != nil {
				t.Fatalf("new controller: %v", err)
			}
			if err := ctrl.Init(context.Background()); err != nil {
				t.Fatalf("init: %v", err)
			}

			host.Search().Type("nowhere")
			host.Search().Submit()

			if calls != 1 {
				t.Fatalf("expected one geocode call, got %d", calls)
			}
			if diff := cmp.Diff(geodata.CoordinateState{Latitude: 1, Longitude: 2, Zoom: 5}, ctrl.State()); diff != "" {
				t.Fatalf("state changed (-want +got):\n%s", diff)
			}
			if host.Changed() {
				t.Fatalf("failed search must not mark the form changed")
			}
			entries := logs.FilterMessage("geocoding search failed").All()
			if len(entries) != 1 {
				t.Fatalf("expected one warning, got %d", len(entries))
			}
			fields := entries[0].ContextMap()
			if fields["status"] != string(tc.status) || fields["query"] != "nowhere" || fields["field"] != fieldID {
				t.Fatalf("unexpected log fields %#v", fields)
			}
			if len(outcomes) != 1 || outcomes[0].Applied || outcomes[0].Status != tc.status {
				t.Fatalf("unexpected outcomes %#v", outcomes)
			}
		})
	}
}

func TestController_LastSearchResponseWins(t *testing.T) {
	var pending []func()
	loop := mapsync.NewEventLoop()
	geocoder := geodata.GeocoderFunc(func(_ context.Context, address string) ([]geodata.GeocodeResult, geodata.GeocodeStatus, error) {
		pos := map[string]geodata.LatLng{"first": {Lat: 1, Lng: 1}, "second": {Lat: 2, Lng: 2}}[address]
		return []geodata.GeocodeResult{{Geometry: geodata.Geometry{Location: pos}}}, geodata.StatusOK, nil
	})
	host := headless.NewField(fieldID, "location", settingsJSON(0, 0, 3), true)
	ctrl, err := mapsync.NewController(host, headless.NewProvider(geocoder),
		mapsync.WithLogger(zap.NewNop()),
		mapsync.WithDispatcher(loop),
		mapsync.WithRunner(func(fn func()) { pending = append(pending, fn) }),
	)
	if err != nil {
		t.Fatalf("new controller: %v", err)
	}
	if err := ctrl.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}

	host.Search().Type("first")
	host.Search().Submit()
	host.Search().Type("second")
	host.Search().Submit()
	if len(pending) != 2 {
		t.Fatalf("expected two lookups in flight, got %d", len(pending))
	}

	pending[1]()
	pending[0]()
	loop.Drain()

	if got := ctrl.State().Position(); got != (geodata.LatLng{Lat: 1, Lng: 1}) {
		t.Fatalf("expected the last response to win, got %#v", got)
	}
}

func TestController_InlineKeepsSearchOnHandlerGoroutine(t *testing.T) {
	cases := map[string][]mapsync.Option{
		"defaults":           nil,
		"inline with runner": {mapsync.WithDispatcher(mapsync.Inline{}), mapsync.WithRunner(mapsync.GoRunner)},
	}

	for name, opts := range cases {
		t.Run(name, func(t *testing.T) {
			geocoder := geodata.GeocoderFunc(func(context.Context, string) ([]geodata.GeocodeResult, geodata.GeocodeStatus, error) {
				return []geodata.GeocodeResult{{Geometry: geodata.Geometry{Location: geodata.LatLng{Lat: 50, Lng: 60}}}}, geodata.StatusOK, nil
			})
			host := headless.NewField(fieldID, "location", settingsJSON(1, 2, 5), true)
			ctrl, err := mapsync.NewController(host, headless.NewProvider(geocoder),
				append([]mapsync.Option{mapsync.WithLogger(zap.NewNop())}, opts...)...)
			if err != nil {
				t.Fatalf("new controller: %v", err)
			}
			if err := ctrl.Init(context.Background()); err != nil {
				t.Fatalf("init: %v", err)
			}

			host.Search().Type("somewhere")
			host.Search().Submit()
			if got := ctrl.State().Position(); got != (geodata.LatLng{Lat: 50, Lng: 60}) {
				t.Fatalf("expected search applied before Submit returned, got %#v", got)
			}

			ctrl.Map().(*headless.Map).Click(geodata.LatLng{Lat: 3, Lng: 4})

			state := ctrl.State()
			if diff := cmp.Diff(geodata.CoordinateState{Latitude: 3, Longitude: 4, Zoom: 5}, state); diff != "" {
				t.Fatalf("state mismatch (-want +got):\n%s", diff)
			}
			mirror := map[string]string{
				geodata.Latitude:  host.Value(geodata.Latitude),
				geodata.Longitude: host.Value(geodata.Longitude),
				geodata.Zoom:      host.Value(geodata.Zoom),
			}
			if diff := cmp.Diff(mirrorOf("3", "4", "5"), mirror); diff != "" {
				t.Fatalf("mirror mismatch (-want +got):\n%s", diff)
			}
			if got := ctrl.Marker().(*headless.Marker).Position(); got != state.Position() {
				t.Fatalf("marker %#v diverged from state %#v", got, state.Position())
			}
		})
	}
}

func TestController_EventsRunOnDispatcher(t *testing.T) {
	loop := mapsync.NewEventLoop()
	h := newHarness(t, settingsJSON(1, 2, 5), true, mapsync.WithDispatcher(loop))
	h.init(t)

	h.mapView().Click(geodata.LatLng{Lat: 3, Lng: 4})
	h.mapView().SetZoom(9)
	if h.host.Value(geodata.Latitude) != "1" || loop.Pending() != 2 {
		t.Fatalf("expected handlers queued, pending=%d", loop.Pending())
	}

	if ran := loop.Drain(); ran != 2 {
		t.Fatalf("expected 2 handlers, ran %d", ran)
	}
	if diff := cmp.Diff(mirrorOf("3", "4", "9"), h.mirror()); diff != "" {
		t.Fatalf("mirror mismatch (-want +got):\n%s", diff)
	}
}

func TestController_CloseDetachesEverything(t *testing.T) {
	bus := mapsync.NewPinBus()
	h := newHarness(t, settingsJSON(1, 2, 5), true, mapsync.WithPinSource(bus))
	h.init(t)
	marker := h.marker()
	view := h.mapView()

	h.ctrl.Close()
	h.ctrl.Close()

	if got := h.ctrl.Status(); got != mapsync.StateClosed {
		t.Fatalf("expected closed, got %s", got)
	}
	if h.provider.Listeners() != 0 || bus.Subscribers() != 0 || h.host.Search().Handlers() != 0 {
		t.Fatalf("expected every subscription removed")
	}

	marker.Drag(geodata.LatLng{Lat: 9, Lng: 9})
	view.Click(geodata.LatLng{Lat: 8, Lng: 8})
	bus.Publish(7, 7)
	if diff := cmp.Diff(mirrorOf("1", "2", "5"), h.mirror()); diff != "" {
		t.Fatalf("mirror changed after close (-want +got):\n%s", diff)
	}
	if h.host.Changed() {
		t.Fatalf("form changed after close")
	}
}

func TestController_QueuedEventsIgnoredAfterClose(t *testing.T) {
	loop := mapsync.NewEventLoop()
	h := newHarness(t, settingsJSON(1, 2, 5), true, mapsync.WithDispatcher(loop))
	h.init(t)

	h.mapView().Click(geodata.LatLng{Lat: 3, Lng: 4})
	h.ctrl.Close()
	loop.Drain()

	if h.host.Value(geodata.Latitude) != "1" || h.host.Changed() {
		t.Fatalf("queued click applied after close")
	}
}
