package payment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flockcore/internal/config"
)

func TestSelectFollowsPaymentMode(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Demo.SimulatedPaymentDelay = "0s"
	p, err := Select(cfg, nil)
	require.NoError(t, err)
	assert.IsType(t, &SimulatedProvider{}, p)

	cfg.Demo.Enabled = false
	cfg.Demo.MockPayments = true
	_, err = Select(cfg, nil)
	require.NoError(t, err, "mock payments alone selects the simulator")

	cfg.Demo.MockPayments = false
	_, err = Select(cfg, nil)
	require.ErrorIs(t, err, ErrGatewayUnavailable)
}

func TestSimulatedChargeApproves(t *testing.T) {
	p, err := NewSimulatedProvider(config.DemoConfig{Seed: 7}, "usd", nil)
	require.NoError(t, err)
	r, err := p.Charge(context.Background(), Charge{Amount: 499, Purpose: PurposeSubscription})
	require.NoError(t, err)
	assert.True(t, r.Simulated)
	assert.Equal(t, "USD", r.Currency)
	assert.Equal(t, int64(499), r.Amount)
	assert.Contains(t, r.ID, "sim_")
}

func TestSimulatedChargeDeclinesDeterministically(t *testing.T) {
	demo := config.DemoConfig{Seed: 42, SimulatedFailureRate: 0.5}
	run := func() []bool {
		p, err := NewSimulatedProvider(demo, "USD", nil)
		require.NoError(t, err)
		out := make([]bool, 20)
		for i := range out {
			_, err := p.Charge(context.Background(), Charge{Amount: 100})
			out[i] = errors.Is(err, ErrDeclined)
		}
		return out
	}
	first, second := run(), run()
	assert.Equal(t, first, second, "same seed yields same outcomes")
	assert.Contains(t, first, true)
	assert.Contains(t, first, false)

	always, err := NewSimulatedProvider(config.DemoConfig{SimulatedFailureRate: 1}, "USD", nil)
	require.NoError(t, err)
	_, err = always.Charge(context.Background(), Charge{Amount: 1})
	require.ErrorIs(t, err, ErrDeclined)
}

func TestSimulatedChargeHonoursDelayAndContext(t *testing.T) {
	p, err := NewSimulatedProvider(config.DemoConfig{SimulatedPaymentDelay: "20ms"}, "USD", nil)
	require.NoError(t, err)
	start := time.Now()
	_, err = p.Charge(context.Background(), Charge{Amount: 1})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)

	slow, err := NewSimulatedProvider(config.DemoConfig{SimulatedPaymentDelay: "1h"}, "USD", nil)
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = slow.Charge(ctx, Charge{Amount: 1})
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestChargeValidation(t *testing.T) {
	p, err := NewSimulatedProvider(config.DemoConfig{}, "USD", nil)
	require.NoError(t, err)
	_, err = p.Charge(context.Background(), Charge{Amount: 0})
	require.ErrorIs(t, err, ErrInvalidCharge)

	_, err = NewSimulatedProvider(config.DemoConfig{SimulatedPaymentDelay: "soon"}, "USD", nil)
	require.Error(t, err)
}

func TestFees(t *testing.T) {
	pricing := config.DefaultConfig().Pricing
	assert.Equal(t, int64(99), ListingFee(pricing))
	assert.Equal(t, int64(25), TransactionFee(pricing, 1000))
	assert.Equal(t, int64(3), TransactionFee(pricing, 100), "2.5 rounds half up")
	assert.Zero(t, TransactionFee(pricing, 0))

	monthly, err := SubscriptionPrice(pricing, "Monthly")
	require.NoError(t, err)
	assert.Equal(t, int64(499), monthly)
	yearly, err := SubscriptionPrice(pricing, "annual")
	require.NoError(t, err)
	assert.Equal(t, int64(4999), yearly)
	_, err = SubscriptionPrice(pricing, "lifetime")
	require.ErrorIs(t, err, ErrInvalidCharge)
}

func TestCollectWaivesZeroAmount(t *testing.T) {
	r, err := Collect(context.Background(), nil, Charge{Amount: 0, Currency: "usd", Purpose: PurposeListing})
	require.NoError(t, err, "a waived fee needs no provider")
	assert.Empty(t, r.ID)
	assert.Zero(t, r.Amount)
	assert.Equal(t, "USD", r.Currency)

	_, err = Collect(context.Background(), nil, Charge{Amount: 99})
	require.ErrorIs(t, err, ErrGatewayUnavailable)

	p, err := NewSimulatedProvider(config.DemoConfig{Seed: 7}, "usd", nil)
	require.NoError(t, err)
	r, err = Collect(context.Background(), p, Charge{Amount: 99})
	require.NoError(t, err)
	assert.Equal(t, int64(99), r.Amount)
	assert.Contains(t, r.ID, "sim_")
}
