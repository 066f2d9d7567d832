package mapsync

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Binder creates one Controller per host and initialises it when the host's
// container is activated. Activations that arrive before Ready (the provider
// API is still loading) are queued and flushed by Ready.
type Binder struct {
	ctx      context.Context
	provider Provider
	opts     []Option
	cfg      config

	mu          sync.Mutex
	ready       bool
	pending     []Host
	controllers map[string]*Controller
	subs        []Subscription
}

// NewBinder returns a binder creating controllers with opts.
func NewBinder(ctx context.Context, provider Provider, opts ...Option) *Binder {
	if ctx == nil {
		ctx = context.Background()
	}
	return &Binder{
		ctx:         ctx,
		provider:    provider,
		opts:        opts,
		cfg:         newConfig(opts),
		controllers: make(map[string]*Controller),
	}
}

// Watch subscribes to activation notifications from observer. Activations
// run on the binder's dispatcher.
func (b *Binder) Watch(observer ContainerObserver) Subscription {
	if observer == nil {
		return SubscriptionFunc(nil)
	}
	sub := observer.OnActivate(func(host Host) {
		b.cfg.dispatcher.Do(func() {
			_, _ = b.Activate(host)
		})
	})
	if sub == nil {
		return SubscriptionFunc(nil)
	}
	b.mu.Lock()
	b.subs = append(b.subs, sub)
	b.mu.Unlock()
	return sub
}

// Activate returns the controller bound to host, creating and initialising
// it on first use. Before Ready the host is queued and (nil, nil) returned.
// Re-activating an initialised host is a no-op.
func (b *Binder) Activate(host Host) (*Controller, error) {
	if host == nil {
		return nil, ErrNoHost
	}
	b.mu.Lock()
	if !b.ready {
		b.pending = append(b.pending, host)
		b.mu.Unlock()
		b.cfg.logger.Debug("geofield activation queued until provider is ready", zap.String("field", host.ID()))
		return nil, nil
	}
	ctrl, ok := b.controllers[host.ID()]
	if !ok {
		created, err := NewController(host, b.provider, b.opts...)
		if err != nil {
			b.mu.Unlock()
			return nil, err
		}
		ctrl = created
		b.controllers[host.ID()] = ctrl
	}
	b.mu.Unlock()

	if err := ctrl.Init(b.ctx); err != nil {
		return ctrl, err
	}
	return ctrl, nil
}

// Ready marks the provider as loaded and activates every queued host. It
// returns the initialisation errors of the flushed hosts.
func (b *Binder) Ready() []error {
	b.mu.Lock()
	b.ready = true
	pending := b.pending
	b.pending = nil
	b.mu.Unlock()

	var errs []error
	for _, host := range pending {
		if _, err := b.Activate(host); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

// Controller returns the controller bound to a host id.
func (b *Binder) Controller(id string) (*Controller, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	ctrl, ok := b.controllers[id]
	return ctrl, ok
}

// Close stops watching observers and closes every controller.
func (b *Binder) Close() {
	b.mu.Lock()
	subs := b.subs
	b.subs = nil
	controllers := make([]*Controller, 0, len(b.controllers))
	for _, ctrl := range b.controllers {
		controllers = append(controllers, ctrl)
	}
	b.mu.Unlock()

	for _, sub := range subs {
		sub.Remove()
	}
	for _, ctrl := range controllers {
		ctrl.Close()
	}
}
