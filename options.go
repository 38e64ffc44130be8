package mint

import (
	"log/slog"
	"time"

	"github.com/xraph/mint/asset"
	"github.com/xraph/mint/custody"
	"github.com/xraph/mint/fee"
	"github.com/xraph/mint/plugin"
	"github.com/xraph/mint/price"
	"github.com/xraph/mint/signing"
	"github.com/xraph/mint/submit"
)

// Option configures an Engine instance.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
		e.plugins.WithLogger(logger)
	}
}

// WithPlugin registers a plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Engine) {
		_ = e.plugins.Register(p) //nolint:errcheck // best-effort plugin registration during init
	}
}

// WithHookTimeout bounds each plugin hook call.
func WithHookTimeout(d time.Duration) Option {
	return func(e *Engine) {
		e.plugins.WithTimeout(d)
	}
}

// WithPassphrase sets the network passphrase. Testnet by default.
func WithPassphrase(passphrase string) Option {
	return func(e *Engine) {
		e.passphrase = passphrase
	}
}

// WithPlatform sets the platform signer. Its address sources every
// envelope.
func WithPlatform(s signing.PlatformSigner) Option {
	return func(e *Engine) {
		e.platform = s
	}
}

// WithPlatformAsset sets the platform token fees may be paid in.
func WithPlatformAsset(a asset.Asset) Option {
	return func(e *Engine) {
		e.platformAsset = a
	}
}

// WithSchedule replaces the default fee schedule.
func WithSchedule(s fee.Schedule) Option {
	return func(e *Engine) {
		e.schedule = s
	}
}

// WithPrices sets the rate provider used for fee conversion.
func WithPrices(p price.Provider) Option {
	return func(e *Engine) {
		e.prices = p
	}
}

// WithVault sets the vault custodied secrets are sealed with.
func WithVault(v *custody.Vault) Option {
	return func(e *Engine) {
		e.vault = v
	}
}

// WithIdentityResolver enables identity-backed user signing.
func WithIdentityResolver(r signing.IdentityResolver) Option {
	return func(e *Engine) {
		e.identities = r
	}
}

// WithLocker replaces the in-process source lock, for example with a
// submit.RedisLocker shared by several processes.
func WithLocker(l submit.Locker) Option {
	return func(e *Engine) {
		e.locker = l
	}
}

// WithLockIssuer locks the issuer of assets issued without clawback.
func WithLockIssuer(lock bool) Option {
	return func(e *Engine) {
		e.lockIssuer = lock
	}
}

// WithDefaultPeriod sets the period of subscriptions that name none.
func WithDefaultPeriod(d time.Duration) Option {
	return func(e *Engine) {
		e.defaultPeriod = d
	}
}

// WithSweepConfig configures the renewal sweeper.
func WithSweepConfig(schedule string, intentTTL time.Duration) Option {
	return func(e *Engine) {
		e.sweep.Schedule = schedule
		e.sweep.IntentTTL = intentTTL
	}
}

// WithoutMigrate skips store migration on Start.
func WithoutMigrate() Option {
	return func(e *Engine) {
		e.migrate = false
	}
}
