package headless

import (
	"net/url"
	"sync"

	"github.com/goliatone/go-geofield/components/geofield"
	"github.com/goliatone/go-geofield/pkg/geodata"
	"github.com/goliatone/go-geofield/pkg/mapsync"
	"github.com/goliatone/go-geofield/pkg/render"
)

// Field is an in-memory rendered field: settings payload, mirrored values,
// changed flag and optional search box. It implements mapsync.Host,
// mapsync.Mirror and mapsync.Form.
type Field struct {
	id        string
	name      string
	settings  string
	container string

	mu      sync.Mutex
	values  map[string]string
	changed bool
	search  *SearchBox
}

var (
	_ mapsync.Host   = (*Field)(nil)
	_ mapsync.Mirror = (*Field)(nil)
	_ mapsync.Form   = (*Field)(nil)
)

// NewField returns a host with the given settings payload. name is the form
// field name used by FormValues.
func NewField(id, name, settings string, withSearch bool) *Field {
	f := &Field{
		id:        id,
		name:      name,
		settings:  settings,
		container: id + "-map",
		values:    make(map[string]string),
	}
	if withSearch {
		f.search = &SearchBox{}
	}
	return f
}

// FromField builds a host from a server-side field, as if it had been
// rendered: same settings payload, mirrored values and search box.
func FromField(field *geofield.Field) (*Field, error) {
	settings, err := field.SettingsJSON()
	if err != nil {
		return nil, err
	}
	_, hasSearch := field.Child(geofield.SearchKey)
	host := NewField(geofield.DOMID(field.Name()), field.Name(), settings, hasSearch)
	for _, key := range []string{geodata.Latitude, geodata.Longitude, geodata.Zoom} {
		host.values[key] = field.ChildValue(key)
	}
	return host, nil
}

// ID implements mapsync.Host.
func (f *Field) ID() string { return f.id }

// Settings implements mapsync.Host.
func (f *Field) Settings() string { return f.settings }

// MapContainer implements mapsync.Host.
func (f *Field) MapContainer() any { return f.container }

// Mirror implements mapsync.Host.
func (f *Field) Mirror() mapsync.Mirror { return f }

// Form implements mapsync.Host.
func (f *Field) Form() mapsync.Form { return f }

// SearchBox implements mapsync.Host.
func (f *Field) SearchBox() mapsync.SearchBox {
	if f.search == nil {
		return nil
	}
	return f.search
}

// Search returns the concrete search box, nil when absent.
func (f *Field) Search() *SearchBox { return f.search }

// Set implements mapsync.Mirror.
func (f *Field) Set(key, value string) {
	f.mu.Lock()
	f.values[key] = value
	f.mu.Unlock()
}

// Value implements mapsync.Mirror.
func (f *Field) Value(key string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.values[key]
}

// MarkChanged implements mapsync.Form.
func (f *Field) MarkChanged() {
	f.mu.Lock()
	f.changed = true
	f.mu.Unlock()
}

// Changed reports whether the form was marked changed.
func (f *Field) Changed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.changed
}

// FormValues returns the mirrored values as submitted form data.
func (f *Field) FormValues() url.Values {
	f.mu.Lock()
	defer f.mu.Unlock()
	values := url.Values{}
	for _, key := range []string{geodata.Latitude, geodata.Longitude, geodata.Zoom} {
		values.Set(render.ChildName(f.name, key), f.values[key])
	}
	return values
}

// UIEvent records what a handler did with a simulated input event.
type UIEvent struct {
	Code int

	mu        sync.Mutex
	prevented bool
	stopped   bool
}

// KeyCode implements mapsync.UIEvent.
func (e *UIEvent) KeyCode() int { return e.Code }

// PreventDefault implements mapsync.UIEvent.
func (e *UIEvent) PreventDefault() {
	e.mu.Lock()
	e.prevented = true
	e.mu.Unlock()
}

// StopPropagation implements mapsync.UIEvent.
func (e *UIEvent) StopPropagation() {
	e.mu.Lock()
	e.stopped = true
	e.mu.Unlock()
}

// DefaultPrevented reports whether PreventDefault was called.
func (e *UIEvent) DefaultPrevented() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.prevented
}

// PropagationStopped reports whether StopPropagation was called.
func (e *UIEvent) PropagationStopped() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stopped
}

// SearchBox is an in-memory search input.
type SearchBox struct {
	mu      sync.Mutex
	text    string
	nextID  int
	submit  map[int]func(mapsync.UIEvent)
	keydown map[int]func(mapsync.UIEvent)
}

// Text implements mapsync.SearchBox.
func (s *SearchBox) Text() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.text
}

// Type replaces the search text.
func (s *SearchBox) Type(text string) {
	s.mu.Lock()
	s.text = text
	s.mu.Unlock()
}

// OnSubmit implements mapsync.SearchBox.
func (s *SearchBox) OnSubmit(fn func(mapsync.UIEvent)) mapsync.Subscription {
	return s.add(&s.submit, fn)
}

// OnKeyDown implements mapsync.SearchBox.
func (s *SearchBox) OnKeyDown(fn func(mapsync.UIEvent)) mapsync.Subscription {
	return s.add(&s.keydown, fn)
}

// Submit fires the submit action and returns the event handlers saw.
func (s *SearchBox) Submit() *UIEvent {
	ev := &UIEvent{}
	s.fire(&s.submit, ev)
	return ev
}

// PressKey fires a keydown with code and returns the event handlers saw.
func (s *SearchBox) PressKey(code int) *UIEvent {
	ev := &UIEvent{Code: code}
	s.fire(&s.keydown, ev)
	return ev
}

// Handlers reports the number of registered submit and keydown handlers.
func (s *SearchBox) Handlers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.submit) + len(s.keydown)
}

func (s *SearchBox) add(set *map[int]func(mapsync.UIEvent), fn func(mapsync.UIEvent)) mapsync.Subscription {
	if fn == nil {
		return mapsync.SubscriptionFunc(nil)
	}
	s.mu.Lock()
	if *set == nil {
		*set = make(map[int]func(mapsync.UIEvent))
	}
	id := s.nextID
	s.nextID++
	(*set)[id] = fn
	s.mu.Unlock()
	return mapsync.SubscriptionFunc(func() {
		s.mu.Lock()
		delete(*set, id)
		s.mu.Unlock()
	})
}

func (s *SearchBox) fire(set *map[int]func(mapsync.UIEvent), ev *UIEvent) {
	s.mu.Lock()
	handlers := make([]func(mapsync.UIEvent), 0, len(*set))
	for _, fn := range *set {
		handlers = append(handlers, fn)
	}
	s.mu.Unlock()
	for _, fn := range handlers {
		fn(ev)
	}
}

// Observer is an in-memory mapsync.ContainerObserver. Activate simulates a
// container becoming visible.
type Observer struct {
	mu       sync.Mutex
	nextID   int
	handlers map[int]func(mapsync.Host)
}

var _ mapsync.ContainerObserver = (*Observer)(nil)

// OnActivate implements mapsync.ContainerObserver.
func (o *Observer) OnActivate(fn func(mapsync.Host)) mapsync.Subscription {
	if fn == nil {
		return mapsync.SubscriptionFunc(nil)
	}
	o.mu.Lock()
	if o.handlers == nil {
		o.handlers = make(map[int]func(mapsync.Host))
	}
	id := o.nextID
	o.nextID++
	o.handlers[id] = fn
	o.mu.Unlock()
	return mapsync.SubscriptionFunc(func() {
		o.mu.Lock()
		delete(o.handlers, id)
		o.mu.Unlock()
	})
}

// Activate notifies every subscriber that host became active.
func (o *Observer) Activate(host mapsync.Host) {
	o.mu.Lock()
	handlers := make([]func(mapsync.Host), 0, len(o.handlers))
	for _, fn := range o.handlers {
		handlers = append(handlers, fn)
	}
	o.mu.Unlock()
	for _, fn := range handlers {
		fn(host)
	}
}
