package headless_test

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"

	"github.com/goliatone/go-geofield/components/geofield"
	"github.com/goliatone/go-geofield/pkg/geodata"
	"github.com/goliatone/go-geofield/pkg/mapsync"
	"github.com/goliatone/go-geofield/pkg/mapsync/headless"
)

func TestFromField_RoundTripsThroughController(t *testing.T) {
	field, err := geofield.NewField("location", "Location", geofield.WithOverrides(map[string]any{
		"map": map[string]any{"zoom": 7, "mapTypeId": "terrain"},
	}))
	if err != nil {
		t.Fatalf("new field: %v", err)
	}
	field.SetValue("photo.jpg", map[string]any{
		"location": map[string]any{"Latitude": "-41.28", "Longitude": "174.77"},
	})

	host, err := headless.FromField(field)
	if err != nil {
		t.Fatalf("from field: %v", err)
	}
	if host.ID() != "geofield-location" || host.Search() == nil {
		t.Fatalf("unexpected host %q search=%v", host.ID(), host.Search() != nil)
	}

	provider := headless.NewProvider(nil)
	ctrl, err := mapsync.NewController(host, provider, mapsync.WithLogger(zap.NewNop()))
	if err != nil {
		t.Fatalf("new controller: %v", err)
	}
	if err := ctrl.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}
	if got := ctrl.State(); got != (geodata.CoordinateState{Latitude: -41.28, Longitude: 174.77, Zoom: 7}) {
		t.Fatalf("unexpected state %#v", got)
	}
	if got := provider.Maps()[0].MapType(); got != geodata.MapTypeTerrain {
		t.Fatalf("unexpected map type %q", got)
	}

	ctrl.Marker().(*headless.Marker).Drag(geodata.LatLng{Lat: -36.85, Lng: 174.76})
	if !host.Changed() {
		t.Fatalf("expected drag to mark the form changed")
	}

	if !field.LoadForm(host.FormValues()) {
		t.Fatalf("expected submitted values to load")
	}
	got := map[string]string{
		geodata.Latitude:  field.ChildValue(geodata.Latitude),
		geodata.Longitude: field.ChildValue(geodata.Longitude),
		geodata.Zoom:      field.ChildValue(geodata.Zoom),
	}
	want := map[string]string{geodata.Latitude: "-36.85", geodata.Longitude: "174.76", geodata.Zoom: "7"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("submitted values mismatch (-want +got):\n%s", diff)
	}
}

func TestFromField_NoSearchBox(t *testing.T) {
	field, err := geofield.NewField("spot", "Spot", geofield.WithOverrides(map[string]any{"show_search_box": false}))
	if err != nil {
		t.Fatalf("new field: %v", err)
	}
	host, err := headless.FromField(field)
	if err != nil {
		t.Fatalf("from field: %v", err)
	}
	if host.SearchBox() != nil || host.Search() != nil {
		t.Fatalf("expected no search box")
	}
}

func TestSearchBox_Subscriptions(t *testing.T) {
	host := headless.NewField("geofield-x", "x", `{}`, true)
	box := host.Search()
	submits, keys := 0, 0
	subSubmit := box.OnSubmit(func(ev mapsync.UIEvent) { submits++; ev.PreventDefault() })
	box.OnKeyDown(func(ev mapsync.UIEvent) {
		keys++
		if ev.KeyCode() != 40 {
			t.Fatalf("unexpected key %d", ev.KeyCode())
		}
	})

	if ev := box.Submit(); !ev.DefaultPrevented() || ev.PropagationStopped() {
		t.Fatalf("unexpected submit event state")
	}
	box.PressKey(40)
	subSubmit.Remove()
	box.Submit()

	if submits != 1 || keys != 1 || box.Handlers() != 1 {
		t.Fatalf("unexpected counts submits=%d keys=%d handlers=%d", submits, keys, box.Handlers())
	}
}

func TestObserver_ActivateNotifiesSubscribers(t *testing.T) {
	var observer headless.Observer
	var seen []string
	sub := observer.OnActivate(func(h mapsync.Host) { seen = append(seen, h.ID()) })

	observer.Activate(headless.NewField("a", "a", `{}`, false))
	sub.Remove()
	observer.Activate(headless.NewField("b", "b", `{}`, false))

	if diff := cmp.Diff([]string{"a"}, seen); diff != "" {
		t.Fatalf("activations mismatch (-want +got):\n%s", diff)
	}
}
