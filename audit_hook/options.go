package audithook

import "log/slog"

// Option configures an Extension.
type Option func(*Extension)

// WithLogger sets the logger used when the recorder fails.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Extension) { e.logger = logger }
}

// WithEnabledActions records only the given actions.
func WithEnabledActions(actions ...string) Option {
	return func(e *Extension) { e.enabled = set(actions) }
}

// WithDisabledActions records every action except the given ones.
func WithDisabledActions(actions ...string) Option {
	return func(e *Extension) {
		if e.enabled == nil {
			e.enabled = set(allActions())
		}
		for _, a := range actions {
			delete(e.enabled, a)
		}
	}
}

// WithCategories records only events in the given categories, e.g.
// CategoryCustody for a custody-only trail.
func WithCategories(categories ...string) Option {
	return func(e *Extension) { e.categories = set(categories) }
}

// WithFailuresOnly drops successful outcomes.
func WithFailuresOnly() Option {
	return func(e *Extension) { e.failures = true }
}

func set(keys []string) map[string]bool {
	m := make(map[string]bool, len(keys))
	for _, k := range keys {
		m[k] = true
	}
	return m
}

func allActions() []string {
	return []string{
		ActionEnvelopeBuilt,
		ActionEnvelopeSubmitted,
		ActionSubmissionFailed,
		ActionAssetIssued,
		ActionAssetActivated,
		ActionAssetRedeemed,
		ActionAssetClawedBack,
		ActionSubscriptionActivated,
		ActionSubscriptionExpired,
		ActionVanityExpired,
	}
}
