package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"github.com/xraph/mint/asset"
	"github.com/xraph/mint/subscription"
	"github.com/xraph/mint/txbuild"
)

// DefaultHookTimeout bounds a single plugin call.
const DefaultHookTimeout = 5 * time.Second

// Registry manages all registered plugins and provides efficient dispatch.
// It uses type-cached discovery for O(1) dispatch performance.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
	logger  *slog.Logger
	timeout time.Duration

	// Type-cached plugin lists for efficient dispatch
	onInit                  []OnInit
	onShutdown              []OnShutdown
	onEnvelopeBuilt         []OnEnvelopeBuilt
	onEnvelopeSubmitted     []OnEnvelopeSubmitted
	onSubmissionFailed      []OnSubmissionFailed
	onAssetIssued           []OnAssetIssued
	onAssetActivated        []OnAssetActivated
	onRedeemed              []OnRedeemed
	onClawedBack            []OnClawedBack
	onSubscriptionActivated []OnSubscriptionActivated
	onSubscriptionExpired   []OnSubscriptionExpired
	onVanityExpired         []OnVanityExpired
}

// NewRegistry creates a new plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		logger:  slog.Default(),
		timeout: DefaultHookTimeout,
	}
}

// WithLogger sets the logger for the registry.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// WithTimeout sets how long a single hook may run.
func (r *Registry) WithTimeout(d time.Duration) *Registry {
	if d > 0 {
		r.timeout = d
	}
	return r
}

// Register adds a plugin to the registry and caches its interfaces.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Check for duplicate
	for _, existing := range r.plugins {
		if existing.Name() == p.Name() {
			return fmt.Errorf("plugin: duplicate registration: %s", p.Name())
		}
	}

	r.plugins = append(r.plugins, p)

	// Type-switch to cache interfaces
	if v, ok := p.(OnInit); ok {
		r.onInit = append(r.onInit, v)
	}
	if v, ok := p.(OnShutdown); ok {
		r.onShutdown = append(r.onShutdown, v)
	}
	if v, ok := p.(OnEnvelopeBuilt); ok {
		r.onEnvelopeBuilt = append(r.onEnvelopeBuilt, v)
	}
	if v, ok := p.(OnEnvelopeSubmitted); ok {
		r.onEnvelopeSubmitted = append(r.onEnvelopeSubmitted, v)
	}
	if v, ok := p.(OnSubmissionFailed); ok {
		r.onSubmissionFailed = append(r.onSubmissionFailed, v)
	}
	if v, ok := p.(OnAssetIssued); ok {
		r.onAssetIssued = append(r.onAssetIssued, v)
	}
	if v, ok := p.(OnAssetActivated); ok {
		r.onAssetActivated = append(r.onAssetActivated, v)
	}
	if v, ok := p.(OnRedeemed); ok {
		r.onRedeemed = append(r.onRedeemed, v)
	}
	if v, ok := p.(OnClawedBack); ok {
		r.onClawedBack = append(r.onClawedBack, v)
	}
	if v, ok := p.(OnSubscriptionActivated); ok {
		r.onSubscriptionActivated = append(r.onSubscriptionActivated, v)
	}
	if v, ok := p.(OnSubscriptionExpired); ok {
		r.onSubscriptionExpired = append(r.onSubscriptionExpired, v)
	}
	if v, ok := p.(OnVanityExpired); ok {
		r.onVanityExpired = append(r.onVanityExpired, v)
	}

	r.logger.Info("plugin registered",
		"name", p.Name(),
		"interfaces", implementedInterfaces(p),
	)

	return nil
}

var hookTypes = []struct {
	name string
	typ  reflect.Type
}{
	{"OnInit", reflect.TypeFor[OnInit]()},
	{"OnShutdown", reflect.TypeFor[OnShutdown]()},
	{"OnEnvelopeBuilt", reflect.TypeFor[OnEnvelopeBuilt]()},
	{"OnEnvelopeSubmitted", reflect.TypeFor[OnEnvelopeSubmitted]()},
	{"OnSubmissionFailed", reflect.TypeFor[OnSubmissionFailed]()},
	{"OnAssetIssued", reflect.TypeFor[OnAssetIssued]()},
	{"OnAssetActivated", reflect.TypeFor[OnAssetActivated]()},
	{"OnRedeemed", reflect.TypeFor[OnRedeemed]()},
	{"OnClawedBack", reflect.TypeFor[OnClawedBack]()},
	{"OnSubscriptionActivated", reflect.TypeFor[OnSubscriptionActivated]()},
	{"OnSubscriptionExpired", reflect.TypeFor[OnSubscriptionExpired]()},
	{"OnVanityExpired", reflect.TypeFor[OnVanityExpired]()},
}

// implementedInterfaces returns the hook names the plugin implements.
func implementedInterfaces(p Plugin) []string {
	var interfaces []string
	v := reflect.TypeOf(p)
	for _, h := range hookTypes {
		if v.Implements(h.typ) {
			interfaces = append(interfaces, h.name)
		}
	}
	return interfaces
}

// Get returns a plugin by name.
func (r *Registry) Get(name string) Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.plugins {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// List returns all registered plugins.
func (r *Registry) List() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Plugin, len(r.plugins))
	copy(result, r.plugins)
	return result
}

// Count returns the number of registered plugins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// ──────────────────────────────────────────────────
// Event emission methods
// ──────────────────────────────────────────────────

// emit runs call for every cached plugin of one hook. Failures are logged
// and never returned.
func emit[T Plugin](ctx context.Context, r *Registry, hook string, cached func() []T, call func(T) error) {
	r.mu.RLock()
	plugins := cached()
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return call(p)
		}); err != nil {
			r.logger.Warn("plugin "+hook+" failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitInit calls OnInit for all plugins that implement it.
func (r *Registry) EmitInit(ctx context.Context, engine interface{}) {
	emit(ctx, r, "OnInit", func() []OnInit { return r.onInit }, func(p OnInit) error {
		return p.OnInit(ctx, engine)
	})
}

// EmitShutdown calls OnShutdown for all plugins that implement it.
func (r *Registry) EmitShutdown(ctx context.Context) {
	emit(ctx, r, "OnShutdown", func() []OnShutdown { return r.onShutdown }, func(p OnShutdown) error {
		return p.OnShutdown(ctx)
	})
}

// EmitEnvelopeBuilt emits an envelope built event.
func (r *Registry) EmitEnvelopeBuilt(ctx context.Context, env *txbuild.Envelope) {
	emit(ctx, r, "OnEnvelopeBuilt", func() []OnEnvelopeBuilt { return r.onEnvelopeBuilt }, func(p OnEnvelopeBuilt) error {
		return p.OnEnvelopeBuilt(ctx, env)
	})
}

// EmitEnvelopeSubmitted emits an envelope submitted event.
func (r *Registry) EmitEnvelopeSubmitted(ctx context.Context, env *txbuild.Envelope, hash string, ledger int32, elapsed time.Duration) {
	emit(ctx, r, "OnEnvelopeSubmitted", func() []OnEnvelopeSubmitted { return r.onEnvelopeSubmitted }, func(p OnEnvelopeSubmitted) error {
		return p.OnEnvelopeSubmitted(ctx, env, hash, ledger, elapsed)
	})
}

// EmitSubmissionFailed emits a submission failed event.
func (r *Registry) EmitSubmissionFailed(ctx context.Context, env *txbuild.Envelope, cause error) {
	emit(ctx, r, "OnSubmissionFailed", func() []OnSubmissionFailed { return r.onSubmissionFailed }, func(p OnSubmissionFailed) error {
		return p.OnSubmissionFailed(ctx, env, cause)
	})
}

// EmitAssetIssued emits an asset issued event.
func (r *Registry) EmitAssetIssued(ctx context.Context, rec *asset.Record) {
	emit(ctx, r, "OnAssetIssued", func() []OnAssetIssued { return r.onAssetIssued }, func(p OnAssetIssued) error {
		return p.OnAssetIssued(ctx, rec)
	})
}

// EmitAssetActivated emits an asset activated event.
func (r *Registry) EmitAssetActivated(ctx context.Context, rec *asset.Record) {
	emit(ctx, r, "OnAssetActivated", func() []OnAssetActivated { return r.onAssetActivated }, func(p OnAssetActivated) error {
		return p.OnAssetActivated(ctx, rec)
	})
}

// EmitRedeemed emits a redemption event.
func (r *Registry) EmitRedeemed(ctx context.Context, rec *asset.Record, user string) {
	emit(ctx, r, "OnRedeemed", func() []OnRedeemed { return r.onRedeemed }, func(p OnRedeemed) error {
		return p.OnRedeemed(ctx, rec, user)
	})
}

// EmitClawedBack emits a clawback event.
func (r *Registry) EmitClawedBack(ctx context.Context, rec *asset.Record) {
	emit(ctx, r, "OnClawedBack", func() []OnClawedBack { return r.onClawedBack }, func(p OnClawedBack) error {
		return p.OnClawedBack(ctx, rec)
	})
}

// EmitSubscriptionActivated emits a subscription activated event.
func (r *Registry) EmitSubscriptionActivated(ctx context.Context, sub *subscription.Subscription) {
	emit(ctx, r, "OnSubscriptionActivated", func() []OnSubscriptionActivated { return r.onSubscriptionActivated }, func(p OnSubscriptionActivated) error {
		return p.OnSubscriptionActivated(ctx, sub)
	})
}

// EmitSubscriptionExpired emits a subscription expired event.
func (r *Registry) EmitSubscriptionExpired(ctx context.Context, sub *subscription.Subscription) {
	emit(ctx, r, "OnSubscriptionExpired", func() []OnSubscriptionExpired { return r.onSubscriptionExpired }, func(p OnSubscriptionExpired) error {
		return p.OnSubscriptionExpired(ctx, sub)
	})
}

// EmitVanityExpired emits a vanity URL expired event.
func (r *Registry) EmitVanityExpired(ctx context.Context, v *subscription.Vanity) {
	emit(ctx, r, "OnVanityExpired", func() []OnVanityExpired { return r.onVanityExpired }, func(p OnVanityExpired) error {
		return p.OnVanityExpired(ctx, v)
	})
}

// callWithTimeout calls a plugin function with a timeout.
// Plugins should never block envelope submission.
func (r *Registry) callWithTimeout(ctx context.Context, pluginName string, fn func() error) error {
	done := make(chan error, 1)

	go func() {
		done <- fn()
	}()

	timer := time.NewTimer(r.timeout)
	defer timer.Stop()

	select {
	case err := <-done:
		return err
	case <-timer.C:
		return fmt.Errorf("plugin timeout: %s", pluginName)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ──────────────────────────────────────────────────
// Event adapter
// ──────────────────────────────────────────────────

// Events adapts the registry to the notification interfaces of the
// lifecycle manager and the renewal sweeper.
type Events struct{ r *Registry }

// Events returns the registry's adapter.
func (r *Registry) Events() Events { return Events{r: r} }

func (e Events) AssetIssued(ctx context.Context, rec *asset.Record)    { e.r.EmitAssetIssued(ctx, rec) }
func (e Events) AssetActivated(ctx context.Context, rec *asset.Record) { e.r.EmitAssetActivated(ctx, rec) }
func (e Events) ClawedBack(ctx context.Context, rec *asset.Record)     { e.r.EmitClawedBack(ctx, rec) }

func (e Events) Redeemed(ctx context.Context, rec *asset.Record, user string) {
	e.r.EmitRedeemed(ctx, rec, user)
}

func (e Events) SubscriptionActivated(ctx context.Context, sub *subscription.Subscription) {
	e.r.EmitSubscriptionActivated(ctx, sub)
}

func (e Events) SubscriptionExpired(ctx context.Context, sub *subscription.Subscription) {
	e.r.EmitSubscriptionExpired(ctx, sub)
}

func (e Events) VanityExpired(ctx context.Context, v *subscription.Vanity) {
	e.r.EmitVanityExpired(ctx, v)
}
