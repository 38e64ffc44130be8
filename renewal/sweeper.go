// Package renewal periodically expires lapsed subscriptions, vanity URLs
// and stale intents.
package renewal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/xraph/mint/subscription"
)

// Store is the subset of persistence the sweeper touches.
type Store interface {
	ListDueSubscriptions(ctx context.Context, before time.Time) ([]*subscription.Subscription, error)
	UpdateSubscription(ctx context.Context, s *subscription.Subscription) error
	ListDueVanities(ctx context.Context, before time.Time) ([]*subscription.Vanity, error)
	UpdateVanity(ctx context.Context, v *subscription.Vanity) error
}

// Revoker withdraws access granted by an expired subscription, for example
// by clawing back the fan's tokens. It reports whether anything was
// actually withdrawn.
type Revoker interface {
	Revoke(ctx context.Context, sub *subscription.Subscription) (bool, error)
}

// IntentExpirer abandons intents still pending at cutoff.
type IntentExpirer interface {
	ExpireIntents(ctx context.Context, cutoff time.Time) (int, error)
}

// Events is notified of each expiry.
type Events interface {
	SubscriptionExpired(ctx context.Context, sub *subscription.Subscription)
	VanityExpired(ctx context.Context, v *subscription.Vanity)
}

// Config controls the schedule.
type Config struct {
	// Schedule is a cron spec; "@every 1m" by default.
	Schedule string
	// IntentTTL is how long an intent may stay pending. Zero disables
	// intent expiry.
	IntentTTL time.Duration
}

// Result counts what one sweep changed.
type Result struct {
	Subscriptions int
	Vanities      int
	Intents       int
	Revoked       int
}

// Sweeper runs Sweep on a cron schedule. Runs never overlap.
type Sweeper struct {
	cfg     Config
	store   Store
	intents IntentExpirer
	revoker Revoker
	events  Events
	logger  *slog.Logger
	now     func() time.Time

	cron    *cron.Cron
	mu      sync.Mutex // serializes sweeps
	stop    chan struct{}
	started bool
}

// New creates a sweeper. intents, revoker and events may be nil.
func New(cfg Config, store Store, intents IntentExpirer, revoker Revoker, events Events, logger *slog.Logger) *Sweeper {
	if cfg.Schedule == "" {
		cfg.Schedule = "@every 1m"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{
		cfg:     cfg,
		store:   store,
		intents: intents,
		revoker: revoker,
		events:  events,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
		cron:    cron.New(),
		stop:    make(chan struct{}),
	}
}

// Start schedules the sweep. ctx bounds every run.
func (s *Sweeper) Start(ctx context.Context) error {
	if s.started {
		return errors.New("renewal: already started")
	}
	ctx, cancel := context.WithCancel(ctx)
	_, err := s.cron.AddFunc(s.cfg.Schedule, func() {
		select {
		case <-s.stop:
			return
		default:
		}
		if !s.mu.TryLock() {
			s.logger.Debug("sweep skipped, previous run still active")
			return
		}
		defer s.mu.Unlock()
		if _, err := s.sweep(ctx); err != nil {
			s.logger.Error("renewal sweep failed", "error", err)
		}
	})
	if err != nil {
		cancel()
		return fmt.Errorf("renewal: schedule %q: %w", s.cfg.Schedule, err)
	}
	go func() {
		<-s.stop
		cancel()
	}()
	s.cron.Start()
	s.started = true
	s.logger.Info("renewal sweeper started", "schedule", s.cfg.Schedule, "intent_ttl", s.cfg.IntentTTL)
	return nil
}

// Stop halts the schedule and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	select {
	case <-s.stop:
		return
	default:
		close(s.stop)
	}
	<-s.cron.Stop().Done()
}

// Sweep runs one pass immediately.
func (s *Sweeper) Sweep(ctx context.Context) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sweep(ctx)
}

func (s *Sweeper) sweep(ctx context.Context) (Result, error) {
	var res Result
	now := s.now()

	subs, err := s.store.ListDueSubscriptions(ctx, now)
	if err != nil {
		return res, fmt.Errorf("renewal: list subscriptions: %w", err)
	}
	for _, sub := range subs {
		sub.Status = subscription.StatusExpired
		sub.Touch()
		if err := s.store.UpdateSubscription(ctx, sub); err != nil {
			s.logger.Warn("subscription expiry failed", "subscription_id", sub.ID.String(), "error", err)
			continue
		}
		res.Subscriptions++
		if s.events != nil {
			s.events.SubscriptionExpired(ctx, sub)
		}
		if s.revoker != nil {
			revoked, err := s.revoker.Revoke(ctx, sub)
			if err != nil {
				s.logger.Warn("subscription revoke failed", "subscription_id", sub.ID.String(), "error", err)
				continue
			}
			if revoked {
				res.Revoked++
			}
		}
	}

	vanities, err := s.store.ListDueVanities(ctx, now)
	if err != nil {
		return res, fmt.Errorf("renewal: list vanities: %w", err)
	}
	for _, v := range vanities {
		v.Status = subscription.StatusExpired
		v.Touch()
		if err := s.store.UpdateVanity(ctx, v); err != nil {
			s.logger.Warn("vanity expiry failed", "slug", v.Slug, "error", err)
			continue
		}
		res.Vanities++
		if s.events != nil {
			s.events.VanityExpired(ctx, v)
		}
	}

	if s.intents != nil && s.cfg.IntentTTL > 0 {
		n, err := s.intents.ExpireIntents(ctx, now.Add(-s.cfg.IntentTTL))
		if err != nil {
			return res, fmt.Errorf("renewal: expire intents: %w", err)
		}
		res.Intents = n
	}

	if res != (Result{}) {
		s.logger.Info("renewal sweep",
			"subscriptions", res.Subscriptions,
			"vanities", res.Vanities,
			"intents", res.Intents,
			"revoked", res.Revoked,
		)
	}
	return res, nil
}
