// Package extension provides the Forge extension adapter for Mint.
//
// It implements the forge.Extension interface to integrate Mint
// into a Forge application with automatic dependency discovery,
// DI registration, and lifecycle management.
//
// Configuration can be provided programmatically via Option functions
// or via YAML configuration files under "extensions.mint" or "mint" keys.
package extension

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/xraph/forge"
	"github.com/xraph/vessel"

	"github.com/xraph/mint"
	"github.com/xraph/mint/asset"
	"github.com/xraph/mint/custody"
	"github.com/xraph/mint/fee"
	"github.com/xraph/mint/ledgerclient"
	"github.com/xraph/mint/price"
	"github.com/xraph/mint/signing"
	"github.com/xraph/mint/store"
	"github.com/xraph/mint/store/memory"
	"github.com/xraph/mint/submit"
	"github.com/xraph/mint/types"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "mint"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "Creator-token ledger transaction orchestration"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts Mint as a Forge extension.
type Extension struct {
	*forge.BaseExtension

	config   Config
	engine   *mint.Engine
	store    store.Store
	ledger   mint.Ledger
	redis    *redis.Client
	mintOpts []mint.Option
}

// New creates a new Mint Forge extension with the given options.
func New(opts ...Option) *Extension {
	e := &Extension{
		BaseExtension: forge.NewBaseExtension(ExtensionName, ExtensionVersion, ExtensionDescription),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Engine returns the underlying Mint engine.
// This is nil until Register is called.
func (e *Extension) Engine() *mint.Engine { return e.engine }

// Register implements [forge.Extension]. It loads configuration,
// initializes the mint engine, and registers it in the DI container.
func (e *Extension) Register(fapp forge.App) error {
	if err := e.BaseExtension.Register(fapp); err != nil {
		return err
	}

	if err := e.loadConfiguration(); err != nil {
		return err
	}

	// Use memory store if no store was provided programmatically.
	if e.store == nil {
		e.store = memory.New()
	}

	if e.ledger == nil {
		e.ledger = ledgerclient.NewForURL(e.config.HorizonURL, ledgerclient.Config{
			Timeout:        e.config.LedgerTimeout,
			BreakerTimeout: e.config.BreakerTimeout,
		}, nil)
	}

	opts, err := e.buildMintOpts()
	if err != nil {
		return err
	}

	eng, err := mint.New(e.store, e.ledger, opts...)
	if err != nil {
		return fmt.Errorf("mint: build engine: %w", err)
	}
	e.engine = eng

	return vessel.Provide(fapp.Container(), func() (*mint.Engine, error) {
		return e.engine, nil
	})
}

// Start implements [forge.Extension].
func (e *Extension) Start(ctx context.Context) error {
	if e.engine == nil {
		return errors.New("mint: extension not initialized")
	}

	if err := e.engine.Start(ctx); err != nil {
		return err
	}

	e.MarkStarted()
	return nil
}

// Stop implements [forge.Extension].
func (e *Extension) Stop(_ context.Context) error {
	var errs []error
	if e.engine != nil {
		if err := e.engine.Stop(); err != nil {
			errs = append(errs, err)
		}
	}
	if e.redis != nil {
		if err := e.redis.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	e.MarkStopped()
	return errors.Join(errs...)
}

// Health implements [forge.Extension].
func (e *Extension) Health(ctx context.Context) error {
	if e.store == nil {
		return errors.New("mint: store not initialized")
	}
	return e.store.Ping(ctx)
}

// buildMintOpts constructs mint.Option values from the resolved config.
func (e *Extension) buildMintOpts() ([]mint.Option, error) {
	cfg := e.config
	opts := make([]mint.Option, 0, len(e.mintOpts)+10)

	if cfg.PlatformSecret == "" {
		return nil, types.ValidationError{Field: "platform_secret", Message: "is required"}
	}
	signer, err := signing.NewSeedSigner(cfg.PlatformSecret)
	if err != nil {
		return nil, err
	}
	token, err := asset.New(cfg.PlatformAssetCode, cfg.PlatformAssetIssuer)
	if err != nil {
		return nil, err
	}
	vault, err := custody.NewVaultFromBase64(cfg.VaultKey)
	if err != nil {
		return nil, err
	}
	schedule, err := buildSchedule(cfg)
	if err != nil {
		return nil, err
	}
	rates, err := e.buildPrices(token)
	if err != nil {
		return nil, err
	}
	locker, err := e.buildLocker()
	if err != nil {
		return nil, err
	}

	opts = append(opts,
		mint.WithPassphrase(cfg.NetworkPassphrase),
		mint.WithPlatform(signer),
		mint.WithPlatformAsset(token),
		mint.WithVault(vault),
		mint.WithSchedule(schedule),
		mint.WithPrices(rates),
		mint.WithLocker(locker),
		mint.WithLockIssuer(cfg.LockIssuer),
		mint.WithSweepConfig(cfg.SweepSchedule, cfg.IntentTTL),
	)
	if cfg.DisableMigrate {
		opts = append(opts, mint.WithoutMigrate())
	}

	// Append any pass-through mint options.
	opts = append(opts, e.mintOpts...)

	return opts, nil
}

func buildSchedule(cfg Config) (fee.Schedule, error) {
	s := fee.DefaultSchedule()
	s.BaseFeePerOperation = cfg.BaseFeePerOperation

	amounts := []struct {
		field string
		value string
		unit  types.Unit
		dst   *types.Money
	}{
		{"platform_fee", cfg.PlatformFee, types.UnitPlatform, &s.PlatformFeeFlat},
		{"trustline_reserve", cfg.TrustlineReserve, types.UnitNative, &s.TrustlineReserve},
		{"distributor_funding", cfg.DistributorFunding, types.UnitNative, &s.DistributorFunding},
		{"issuer_starting_balance", cfg.IssuerStartingBalance, types.UnitNative, &s.IssuerStartingBalance},
	}
	for _, a := range amounts {
		m, err := types.ParseMoney(a.value, a.unit)
		if err != nil {
			return fee.Schedule{}, fmt.Errorf("mint: %s: %w", a.field, err)
		}
		*a.dst = m
	}
	return s, s.Validate()
}

// buildPrices returns fixed rates, or live feeds: CoinGecko backed by the
// ledger DEX for USD, and the DEX for the platform token.
func (e *Extension) buildPrices(token asset.Asset) (price.Provider, error) {
	cfg := e.config.Price
	switch price.Mode(cfg.Mode) {
	case price.ModeFixed:
		fixed, err := price.NewFixed(cfg.USDPerNative, cfg.NativePerToken)
		if err != nil {
			return nil, err
		}
		return fixed, nil
	case price.ModeLive:
	default:
		return nil, types.ValidationError{Field: "price.mode", Message: fmt.Sprintf("unknown mode %q", cfg.Mode)}
	}

	trades, ok := e.ledger.(price.TradeSource)
	if !ok {
		return nil, types.ValidationError{Field: "price.mode", Message: "live prices need a ledger client that serves trades"}
	}

	cg := price.NewCoinGecko(cfg.CoinGeckoAPIKey, cfg.CoinGeckoDemo)
	if cfg.Timeout > 0 {
		cg.Client.Timeout = cfg.Timeout
	}
	usdFeeds := []price.Feed{cg}
	if cfg.USDAsset != "" {
		usd, err := asset.Parse(cfg.USDAsset)
		if err != nil {
			return nil, err
		}
		usdFeeds = append(usdFeeds, &price.HorizonTrades{Source: trades, Base: asset.Native, Counter: usd})
	}

	return &price.Live{
		USD:   price.NewLayered(nil, usdFeeds...),
		Token: &price.HorizonTrades{Source: trades, Base: token, Counter: asset.Native},
	}, nil
}

func (e *Extension) buildLocker() (submit.Locker, error) {
	lc := e.config.Lock
	switch lc.Backend {
	case "", "local":
		return submit.NewLocalLocker(), nil
	case "redis":
		if lc.RedisAddr == "" {
			return nil, types.ValidationError{Field: "lock.redis_addr", Message: "is required for the redis backend"}
		}
		e.redis = redis.NewClient(&redis.Options{Addr: lc.RedisAddr})
		opts := submit.DefaultLockOptions()
		if lc.Expiry > 0 {
			opts.Expiry = lc.Expiry
		}
		return submit.NewRedisLocker(e.redis, opts, nil), nil
	default:
		return nil, types.ValidationError{Field: "lock.backend", Message: fmt.Sprintf("unknown backend %q", lc.Backend)}
	}
}

// --- Config Loading (mirrors grove/shield extension pattern) ---

// loadConfiguration loads config from YAML files or programmatic sources.
func (e *Extension) loadConfiguration() error {
	programmaticConfig := e.config

	// Try loading from config file.
	fileConfig, configLoaded := e.tryLoadFromConfigFile()

	if !configLoaded {
		if programmaticConfig.RequireConfig {
			return errors.New("mint: configuration is required but not found in config files; " +
				"ensure 'extensions.mint' or 'mint' key exists in your config")
		}

		// Use programmatic config merged with defaults.
		e.config = mergeWithDefaults(programmaticConfig)
	} else {
		// Config loaded from YAML -- merge with programmatic options.
		e.config = mergeConfigurations(fileConfig, programmaticConfig)
	}

	e.Logger().Debug("mint: configuration loaded",
		forge.F("disable_migrate", e.config.DisableMigrate),
		forge.F("horizon_url", e.config.HorizonURL),
		forge.F("platform_asset", e.config.PlatformAssetCode),
		forge.F("price_mode", e.config.Price.Mode),
		forge.F("lock_backend", e.config.Lock.Backend),
		forge.F("sweep_schedule", e.config.SweepSchedule),
		forge.F("intent_ttl", e.config.IntentTTL),
	)

	return nil
}

// tryLoadFromConfigFile attempts to load config from YAML files.
func (e *Extension) tryLoadFromConfigFile() (Config, bool) {
	cm := e.App().Config()
	var cfg Config

	// Try "extensions.mint" first (namespaced pattern).
	if cm.IsSet("extensions.mint") {
		if err := cm.Bind("extensions.mint", &cfg); err == nil {
			e.Logger().Debug("mint: loaded config from file",
				forge.F("key", "extensions.mint"),
			)
			return cfg, true
		}
		e.Logger().Warn("mint: failed to bind extensions.mint config",
			forge.F("error", "bind failed"),
		)
	}

	// Try legacy "mint" key.
	if cm.IsSet("mint") {
		if err := cm.Bind("mint", &cfg); err == nil {
			e.Logger().Debug("mint: loaded config from file",
				forge.F("key", "mint"),
			)
			return cfg, true
		}
		e.Logger().Warn("mint: failed to bind mint config",
			forge.F("error", "bind failed"),
		)
	}

	return Config{}, false
}

// mergeWithDefaults fills zero-valued fields with defaults.
func mergeWithDefaults(cfg Config) Config {
	d := DefaultConfig()
	fill := func(dst *string, def string) {
		if *dst == "" {
			*dst = def
		}
	}
	fill(&cfg.NetworkPassphrase, d.NetworkPassphrase)
	fill(&cfg.HorizonURL, d.HorizonURL)
	fill(&cfg.PlatformFee, d.PlatformFee)
	fill(&cfg.TrustlineReserve, d.TrustlineReserve)
	fill(&cfg.DistributorFunding, d.DistributorFunding)
	fill(&cfg.IssuerStartingBalance, d.IssuerStartingBalance)
	fill(&cfg.Price.Mode, d.Price.Mode)
	fill(&cfg.Lock.Backend, d.Lock.Backend)
	fill(&cfg.SweepSchedule, d.SweepSchedule)

	if cfg.BaseFeePerOperation == 0 {
		cfg.BaseFeePerOperation = d.BaseFeePerOperation
	}
	if cfg.Price.Timeout == 0 {
		cfg.Price.Timeout = d.Price.Timeout
	}
	if cfg.LedgerTimeout == 0 {
		cfg.LedgerTimeout = d.LedgerTimeout
	}
	if cfg.BreakerTimeout == 0 {
		cfg.BreakerTimeout = d.BreakerTimeout
	}
	if cfg.Lock.Expiry == 0 {
		cfg.Lock.Expiry = d.Lock.Expiry
	}
	if cfg.IntentTTL == 0 {
		cfg.IntentTTL = d.IntentTTL
	}
	return cfg
}

// mergeConfigurations merges YAML config with programmatic options.
// YAML config takes precedence for most fields; programmatic values fill gaps.
func mergeConfigurations(yamlConfig, programmaticConfig Config) Config {
	return mergeWithDefaults(mergeConfigs(yamlConfig, programmaticConfig))
}

func mergeConfigs(y, p Config) Config {
	// Programmatic bool flags override when true.
	if p.DisableMigrate {
		y.DisableMigrate = true
	}
	if p.LockIssuer {
		y.LockIssuer = true
	}
	if p.Price.CoinGeckoDemo {
		y.Price.CoinGeckoDemo = true
	}

	// String fields: YAML takes precedence.
	gap := func(dst *string, src string) {
		if *dst == "" && src != "" {
			*dst = src
		}
	}
	gap(&y.NetworkPassphrase, p.NetworkPassphrase)
	gap(&y.HorizonURL, p.HorizonURL)
	gap(&y.PlatformSecret, p.PlatformSecret)
	gap(&y.PlatformAssetCode, p.PlatformAssetCode)
	gap(&y.PlatformAssetIssuer, p.PlatformAssetIssuer)
	gap(&y.VaultKey, p.VaultKey)
	gap(&y.PlatformFee, p.PlatformFee)
	gap(&y.TrustlineReserve, p.TrustlineReserve)
	gap(&y.DistributorFunding, p.DistributorFunding)
	gap(&y.IssuerStartingBalance, p.IssuerStartingBalance)
	gap(&y.Price.Mode, p.Price.Mode)
	gap(&y.Price.USDPerNative, p.Price.USDPerNative)
	gap(&y.Price.NativePerToken, p.Price.NativePerToken)
	gap(&y.Price.CoinGeckoAPIKey, p.Price.CoinGeckoAPIKey)
	gap(&y.Price.USDAsset, p.Price.USDAsset)
	gap(&y.Lock.Backend, p.Lock.Backend)
	gap(&y.Lock.RedisAddr, p.Lock.RedisAddr)
	gap(&y.SweepSchedule, p.SweepSchedule)

	// Duration/int fields: YAML takes precedence, programmatic fills gaps.
	if y.BaseFeePerOperation == 0 {
		y.BaseFeePerOperation = p.BaseFeePerOperation
	}
	if y.Price.Timeout == 0 {
		y.Price.Timeout = p.Price.Timeout
	}
	if y.LedgerTimeout == 0 {
		y.LedgerTimeout = p.LedgerTimeout
	}
	if y.BreakerTimeout == 0 {
		y.BreakerTimeout = p.BreakerTimeout
	}
	if y.Lock.Expiry == 0 {
		y.Lock.Expiry = p.Lock.Expiry
	}
	if y.IntentTTL == 0 {
		y.IntentTTL = p.IntentTTL
	}
	return y
}
