package observability

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/xraph/mint/asset"
	"github.com/xraph/mint/txbuild"
	"github.com/xraph/mint/types"
)

type counter struct{ n float64 }

func (c *counter) Inc()          { c.n++ }
func (c *counter) Add(v float64) { c.n += v }

type histogram struct{ obs []float64 }

func (h *histogram) Observe(v float64) { h.obs = append(h.obs, v) }

type factory struct {
	counters   map[string]*counter
	histograms map[string]*histogram
}

func newFactory() *factory {
	return &factory{counters: map[string]*counter{}, histograms: map[string]*histogram{}}
}

func (f *factory) Counter(name string) Counter {
	c := &counter{}
	f.counters[name] = c
	return c
}

func (f *factory) Histogram(name string) Histogram {
	h := &histogram{}
	f.histograms[name] = h
	return h
}

func TestEnvelopeMetrics(t *testing.T) {
	f := newFactory()
	m := NewMetricsExtension(f)
	ctx := context.Background()

	env := &txbuild.Envelope{
		Fee:        types.Money{Amount: 300, Unit: types.UnitNative},
		Operations: make([]txbuild.Operation, 3),
	}
	assert.NoError(t, m.OnEnvelopeBuilt(ctx, env))
	assert.NoError(t, m.OnEnvelopeSubmitted(ctx, env, "abc", 12, 250*time.Millisecond))

	assert.Equal(t, 1.0, f.counters["mint.envelope.built"].n)
	assert.Equal(t, []float64{3}, f.histograms["mint.envelope.operations"].obs)
	assert.Equal(t, []float64{300}, f.histograms["mint.envelope.fee_stroops"].obs)
	assert.Equal(t, []float64{250}, f.histograms["mint.envelope.submit.latency_ms"].obs)
}

func TestSubmissionFailureClassification(t *testing.T) {
	f := newFactory()
	m := NewMetricsExtension(f)
	ctx := context.Background()
	env := &txbuild.Envelope{}

	for _, err := range []error{
		fmt.Errorf("submit: %w", types.ErrSequenceConflict),
		types.ErrLedgerUnavailable,
		types.ErrLedgerRejected,
		errors.New("insufficient balance"),
	} {
		assert.NoError(t, m.OnSubmissionFailed(ctx, env, err))
	}

	assert.Equal(t, 4.0, f.counters["mint.submission.failed"].n)
	assert.Equal(t, 1.0, f.counters["mint.submission.sequence_conflict"].n)
	assert.Equal(t, 1.0, f.counters["mint.submission.unavailable"].n)
	assert.Equal(t, 1.0, f.counters["mint.submission.rejected"].n)
	assert.Equal(t, 1.0, f.counters["mint.submission.preflight"].n)
}

func TestAssetMetrics(t *testing.T) {
	f := newFactory()
	m := NewMetricsExtension(f)
	ctx := context.Background()
	rec := &asset.Record{}

	assert.NoError(t, m.OnAssetIssued(ctx, rec))
	assert.NoError(t, m.OnRedeemed(ctx, rec, "GUSER"))
	assert.NoError(t, m.OnRedeemed(ctx, rec, "GOTHER"))

	assert.Equal(t, 1.0, f.counters["mint.asset.issued"].n)
	assert.Equal(t, 2.0, f.counters["mint.asset.redeemed"].n)
	assert.Equal(t, 0.0, f.counters["mint.asset.clawed_back"].n)
}
