package extension

import (
	"time"

	"github.com/xraph/mint"
	"github.com/xraph/mint/plugin"
	"github.com/xraph/mint/store"
)

// Option configures the Mint Forge extension.
type Option func(*Extension)

// WithStore sets the store for the mint engine.
func WithStore(s store.Store) Option {
	return func(e *Extension) {
		e.store = s
	}
}

// WithLedger sets the ledger the engine talks to instead of a client for
// HorizonURL.
func WithLedger(l mint.Ledger) Option {
	return func(e *Extension) {
		e.ledger = l
	}
}

// WithMintOption passes a mint.Option through to the underlying engine.
func WithMintOption(opt mint.Option) Option {
	return func(e *Extension) {
		e.mintOpts = append(e.mintOpts, opt)
	}
}

// WithPlugin registers a mint plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Extension) {
		e.mintOpts = append(e.mintOpts, mint.WithPlugin(p))
	}
}

// WithConfig sets the Forge extension configuration.
func WithConfig(cfg Config) Option {
	return func(e *Extension) { e.config = cfg }
}

// WithDisableMigrate prevents auto-migration on start.
func WithDisableMigrate() Option {
	return func(e *Extension) { e.config.DisableMigrate = true }
}

// WithRequireConfig requires config to be present in YAML files.
// If true and no config is found, Register returns an error.
func WithRequireConfig(require bool) Option {
	return func(e *Extension) { e.config.RequireConfig = require }
}

// WithHorizonURL sets the ledger API root.
func WithHorizonURL(url string) Option {
	return func(e *Extension) { e.config.HorizonURL = url }
}

// WithNetworkPassphrase sets the ledger network passphrase.
func WithNetworkPassphrase(passphrase string) Option {
	return func(e *Extension) { e.config.NetworkPassphrase = passphrase }
}

// WithPlatformSecret sets the platform account seed.
func WithPlatformSecret(seed string) Option {
	return func(e *Extension) { e.config.PlatformSecret = seed }
}

// WithPlatformAsset sets the platform token.
func WithPlatformAsset(code, issuer string) Option {
	return func(e *Extension) {
		e.config.PlatformAssetCode = code
		e.config.PlatformAssetIssuer = issuer
	}
}

// WithVaultKey sets the base64 custody vault key.
func WithVaultKey(key string) Option {
	return func(e *Extension) { e.config.VaultKey = key }
}

// WithFixedPrices uses constant conversion rates.
func WithFixedPrices(usdPerNative, nativePerToken string) Option {
	return func(e *Extension) {
		e.config.Price.Mode = "fixed"
		e.config.Price.USDPerNative = usdPerNative
		e.config.Price.NativePerToken = nativePerToken
	}
}

// WithRedisLock serializes submissions through redis at addr.
func WithRedisLock(addr string) Option {
	return func(e *Extension) {
		e.config.Lock.Backend = "redis"
		e.config.Lock.RedisAddr = addr
	}
}

// WithSweepSchedule sets the renewal sweeper's cron spec.
func WithSweepSchedule(spec string) Option {
	return func(e *Extension) { e.config.SweepSchedule = spec }
}

// WithIntentTTL sets how long an intent may stay pending.
func WithIntentTTL(d time.Duration) Option {
	return func(e *Extension) { e.config.IntentTTL = d }
}
