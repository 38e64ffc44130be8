package extension

import (
	"time"

	"github.com/stellar/go/network"
)

// Config holds the Mint extension configuration.
// Fields can be set programmatically via Option functions or loaded from
// YAML configuration files (under "extensions.mint" or "mint" keys).
type Config struct {
	// DisableMigrate prevents auto-migration on start.
	DisableMigrate bool `json:"disable_migrate" mapstructure:"disable_migrate" yaml:"disable_migrate"`

	// NetworkPassphrase selects the ledger network (default: testnet).
	NetworkPassphrase string `json:"network_passphrase" mapstructure:"network_passphrase" yaml:"network_passphrase"`

	// HorizonURL is the ledger API root.
	HorizonURL string `json:"horizon_url" mapstructure:"horizon_url" yaml:"horizon_url"`

	// PlatformSecret is the secret seed of the platform account that
	// sources every envelope.
	PlatformSecret string `json:"platform_secret" mapstructure:"platform_secret" yaml:"platform_secret"`

	// PlatformAssetCode and PlatformAssetIssuer identify the platform token.
	PlatformAssetCode   string `json:"platform_asset_code" mapstructure:"platform_asset_code" yaml:"platform_asset_code"`
	PlatformAssetIssuer string `json:"platform_asset_issuer" mapstructure:"platform_asset_issuer" yaml:"platform_asset_issuer"`

	// VaultKey is the base64 32-byte key custodied secrets are sealed with.
	VaultKey string `json:"vault_key" mapstructure:"vault_key" yaml:"vault_key"`

	// Fee schedule. Amounts are decimal strings with up to 7 digits.
	BaseFeePerOperation   int64  `json:"base_fee_per_operation" mapstructure:"base_fee_per_operation" yaml:"base_fee_per_operation"`
	PlatformFee           string `json:"platform_fee" mapstructure:"platform_fee" yaml:"platform_fee"`
	TrustlineReserve      string `json:"trustline_reserve" mapstructure:"trustline_reserve" yaml:"trustline_reserve"`
	DistributorFunding    string `json:"distributor_funding" mapstructure:"distributor_funding" yaml:"distributor_funding"`
	IssuerStartingBalance string `json:"issuer_starting_balance" mapstructure:"issuer_starting_balance" yaml:"issuer_starting_balance"`

	// LockIssuer locks the issuer of assets issued without clawback.
	LockIssuer bool `json:"lock_issuer" mapstructure:"lock_issuer" yaml:"lock_issuer"`

	// Price configures fee conversion rates.
	Price PriceConfig `json:"price" mapstructure:"price" yaml:"price"`

	// LedgerTimeout bounds each ledger API call (default: 15s).
	LedgerTimeout time.Duration `json:"ledger_timeout" mapstructure:"ledger_timeout" yaml:"ledger_timeout"`

	// BreakerTimeout is how long the ledger breaker stays open (default: 30s).
	BreakerTimeout time.Duration `json:"breaker_timeout" mapstructure:"breaker_timeout" yaml:"breaker_timeout"`

	// Lock configures the per-source submission lock.
	Lock LockConfig `json:"lock" mapstructure:"lock" yaml:"lock"`

	// SweepSchedule is the cron spec of the renewal sweeper (default: "@every 1m").
	SweepSchedule string `json:"sweep_schedule" mapstructure:"sweep_schedule" yaml:"sweep_schedule"`

	// IntentTTL is how long an intent may stay pending before it expires
	// (default: 15m).
	IntentTTL time.Duration `json:"intent_ttl" mapstructure:"intent_ttl" yaml:"intent_ttl"`

	// RequireConfig requires config to be present in YAML files.
	// If true and no config is found, Register returns an error.
	RequireConfig bool `json:"-" yaml:"-"`
}

// PriceConfig selects the rate source.
type PriceConfig struct {
	// Mode is "fixed" or "live" (default: fixed).
	Mode string `json:"mode" mapstructure:"mode" yaml:"mode"`

	// Fixed rates.
	USDPerNative   string `json:"usd_per_native" mapstructure:"usd_per_native" yaml:"usd_per_native"`
	NativePerToken string `json:"native_per_token" mapstructure:"native_per_token" yaml:"native_per_token"`

	// Live feeds.
	CoinGeckoAPIKey string `json:"coingecko_api_key" mapstructure:"coingecko_api_key" yaml:"coingecko_api_key"`
	CoinGeckoDemo   bool   `json:"coingecko_demo" mapstructure:"coingecko_demo" yaml:"coingecko_demo"`
	// USDAsset ("CODE:ISSUER") backs CoinGecko with the ledger DEX.
	USDAsset string        `json:"usd_asset" mapstructure:"usd_asset" yaml:"usd_asset"`
	Timeout  time.Duration `json:"timeout" mapstructure:"timeout" yaml:"timeout"`
}

// LockConfig selects the submission lock backend.
type LockConfig struct {
	// Backend is "local" or "redis" (default: local).
	Backend   string        `json:"backend" mapstructure:"backend" yaml:"backend"`
	RedisAddr string        `json:"redis_addr" mapstructure:"redis_addr" yaml:"redis_addr"`
	Expiry    time.Duration `json:"expiry" mapstructure:"expiry" yaml:"expiry"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		NetworkPassphrase:     network.TestNetworkPassphrase,
		HorizonURL:            "https://horizon-testnet.stellar.org",
		BaseFeePerOperation:   100,
		PlatformFee:           "1",
		TrustlineReserve:      "0.5",
		DistributorFunding:    "2",
		IssuerStartingBalance: "2",
		Price: PriceConfig{
			Mode:    "fixed",
			Timeout: 10 * time.Second,
		},
		LedgerTimeout:  15 * time.Second,
		BreakerTimeout: 30 * time.Second,
		Lock: LockConfig{
			Backend: "local",
			Expiry:  30 * time.Second,
		},
		SweepSchedule: "@every 1m",
		IntentTTL:     15 * time.Minute,
	}
}
