package extension

import (
	"crypto/rand"
	"encoding/base64"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stellar/go/keypair"
	"github.com/stellar/go/network"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/mint/asset"
	"github.com/xraph/mint/ledgerclient"
	"github.com/xraph/mint/price"
	"github.com/xraph/mint/submit"
	"github.com/xraph/mint/types"
)

func vaultKey(t *testing.T) string {
	t.Helper()
	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)
	return base64.StdEncoding.EncodeToString(key)
}

func validConfig(t *testing.T) Config {
	t.Helper()
	platform := keypair.MustRandom()
	issuer := keypair.MustRandom()
	cfg := mergeWithDefaults(Config{
		PlatformSecret:      platform.Seed(),
		PlatformAssetCode:   "MINT",
		PlatformAssetIssuer: issuer.Address(),
		VaultKey:            vaultKey(t),
	})
	cfg.Price.USDPerNative = "0.1"
	cfg.Price.NativePerToken = "0.25"
	return cfg
}

func TestMergeWithDefaults(t *testing.T) {
	cfg := mergeWithDefaults(Config{SweepSchedule: "@every 5m", IntentTTL: time.Hour})

	assert.Equal(t, network.TestNetworkPassphrase, cfg.NetworkPassphrase)
	assert.Equal(t, "https://horizon-testnet.stellar.org", cfg.HorizonURL)
	assert.Equal(t, int64(100), cfg.BaseFeePerOperation)
	assert.Equal(t, "fixed", cfg.Price.Mode)
	assert.Equal(t, "local", cfg.Lock.Backend)
	assert.Equal(t, 30*time.Second, cfg.Lock.Expiry)

	// Explicit values survive.
	assert.Equal(t, "@every 5m", cfg.SweepSchedule)
	assert.Equal(t, time.Hour, cfg.IntentTTL)
}

func TestMergeConfigurationsPrefersYAML(t *testing.T) {
	yaml := Config{HorizonURL: "https://horizon.example", IntentTTL: time.Minute}
	prog := Config{
		HorizonURL:     "https://ignored.example",
		PlatformSecret: "SSECRET",
		DisableMigrate: true,
		LockIssuer:     true,
		IntentTTL:      time.Hour,
		BreakerTimeout: time.Second,
	}

	cfg := mergeConfigurations(yaml, prog)

	assert.Equal(t, "https://horizon.example", cfg.HorizonURL)
	assert.Equal(t, time.Minute, cfg.IntentTTL)
	// Gaps are filled from programmatic options.
	assert.Equal(t, "SSECRET", cfg.PlatformSecret)
	assert.Equal(t, time.Second, cfg.BreakerTimeout)
	// Programmatic flags win when set.
	assert.True(t, cfg.DisableMigrate)
	assert.True(t, cfg.LockIssuer)
}

func TestBuildSchedule(t *testing.T) {
	cfg := validConfig(t)
	cfg.PlatformFee = "2.5"

	s, err := buildSchedule(cfg)
	require.NoError(t, err)
	assert.Equal(t, types.UnitPlatform, s.PlatformFeeFlat.Unit)
	assert.Equal(t, int64(25_000_000), s.PlatformFeeFlat.Amount)
	assert.Equal(t, types.UnitNative, s.TrustlineReserve.Unit)
	assert.Equal(t, int64(5_000_000), s.TrustlineReserve.Amount)

	cfg.TrustlineReserve = "0"
	_, err = buildSchedule(cfg)
	require.ErrorIs(t, err, types.ErrValidation)

	cfg.TrustlineReserve = "abc"
	_, err = buildSchedule(cfg)
	require.Error(t, err)
}

func TestBuildMintOpts(t *testing.T) {
	e := New(WithConfig(validConfig(t)), WithDisableMigrate())
	e.config = mergeWithDefaults(e.config)

	opts, err := e.buildMintOpts()
	require.NoError(t, err)
	assert.NotEmpty(t, opts)
}

func TestBuildMintOptsRequiresPlatformSecret(t *testing.T) {
	cfg := validConfig(t)
	cfg.PlatformSecret = ""
	e := New(WithConfig(cfg))

	_, err := e.buildMintOpts()
	require.ErrorIs(t, err, types.ErrValidation)
}

func TestBuildPrices(t *testing.T) {
	token, err := asset.New("MINT", keypair.MustRandom().Address())
	require.NoError(t, err)

	t.Run("fixed", func(t *testing.T) {
		e := New(WithConfig(validConfig(t)))
		p, err := e.buildPrices(token)
		require.NoError(t, err)
		assert.IsType(t, &price.Fixed{}, p)
	})

	t.Run("fixed without rates", func(t *testing.T) {
		cfg := validConfig(t)
		cfg.Price.USDPerNative = ""
		e := New(WithConfig(cfg))
		_, err := e.buildPrices(token)
		require.Error(t, err)
	})

	t.Run("live", func(t *testing.T) {
		cfg := validConfig(t)
		cfg.Price.Mode = string(price.ModeLive)
		cfg.Price.USDAsset = "USDC:" + keypair.MustRandom().Address()
		e := New(WithConfig(cfg))
		e.ledger = ledgerclient.NewForURL(cfg.HorizonURL, ledgerclient.DefaultConfig(), nil)

		p, err := e.buildPrices(token)
		require.NoError(t, err)
		live, ok := p.(*price.Live)
		require.True(t, ok)
		assert.NotNil(t, live.USD)
		assert.NotNil(t, live.Token)
	})

	t.Run("unknown mode", func(t *testing.T) {
		cfg := validConfig(t)
		cfg.Price.Mode = "oracle"
		e := New(WithConfig(cfg))
		_, err := e.buildPrices(token)
		require.ErrorIs(t, err, types.ErrValidation)
	})
}

func TestBuildLocker(t *testing.T) {
	e := New(WithConfig(validConfig(t)))
	l, err := e.buildLocker()
	require.NoError(t, err)
	assert.IsType(t, &submit.LocalLocker{}, l)

	mr := miniredis.RunT(t)
	e = New(WithConfig(validConfig(t)), WithRedisLock(mr.Addr()))
	l, err = e.buildLocker()
	require.NoError(t, err)
	assert.IsType(t, &submit.RedisLocker{}, l)
	require.NotNil(t, e.redis)
	require.NoError(t, e.redis.Close())

	cfg := validConfig(t)
	cfg.Lock.Backend = "redis"
	e = New(WithConfig(cfg))
	_, err = e.buildLocker()
	require.ErrorIs(t, err, types.ErrValidation)
}
