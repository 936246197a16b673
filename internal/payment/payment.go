// Package payment charges marketplace and subscription purchases. Demo builds
// route every charge through SimulatedProvider; real gateways are not wired.
package payment

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"flockcore/internal/config"
)

// Purpose describes what a charge pays for.
type Purpose string

// Charge purposes.
const (
	PurposeListing      Purpose = "listing"
	PurposePurchase     Purpose = "purchase"
	PurposeSubscription Purpose = "subscription"
)

var (
	// ErrGatewayUnavailable is returned by Select when simulated payments are off.
	ErrGatewayUnavailable = errors.New("payment gateway not configured")
	// ErrDeclined is returned for a declined charge.
	ErrDeclined = errors.New("payment declined")
	// ErrInvalidCharge is returned for malformed charge requests.
	ErrInvalidCharge = errors.New("invalid charge")
)

// Charge is a request to collect Amount minor units.
type Charge struct {
	Amount      int64   `json:"amount"`
	Currency    string  `json:"currency"`
	Purpose     Purpose `json:"purpose"`
	Description string  `json:"description"`
	// Reference ties the charge to a listing or subscription.
	Reference string `json:"reference"`
}

// Receipt confirms a successful charge.
type Receipt struct {
	ID        string    `json:"id"`
	Amount    int64     `json:"amount"`
	Currency  string    `json:"currency"`
	Simulated bool      `json:"simulated"`
	ChargedAt time.Time `json:"charged_at"`
}

// Provider collects payments.
type Provider interface {
	Charge(ctx context.Context, c Charge) (Receipt, error)
}

// Collect charges c through p. A zero amount is waived without contacting
// the provider and yields a receipt with an empty ID.
func Collect(ctx context.Context, p Provider, c Charge) (Receipt, error) {
	if c.Amount == 0 {
		return Receipt{Currency: strings.ToUpper(c.Currency), ChargedAt: time.Now().UTC()}, nil
	}
	if p == nil {
		return Receipt{}, ErrGatewayUnavailable
	}
	return p.Charge(ctx, c)
}

// SimulatedProvider pretends to charge after a fixed delay, declining a
// deterministic fraction of requests.
type SimulatedProvider struct {
	delay       time.Duration
	failureRate float64
	currency    string
	log         *zap.Logger
	now         func() time.Time

	mu  sync.Mutex
	rng *rand.Rand
}

// NewSimulatedProvider builds a provider from demo settings.
func NewSimulatedProvider(demo config.DemoConfig, currency string, logger *zap.Logger) (*SimulatedProvider, error) {
	var delay time.Duration
	if demo.SimulatedPaymentDelay != "" {
		d, err := time.ParseDuration(demo.SimulatedPaymentDelay)
		if err != nil {
			return nil, fmt.Errorf("simulated payment delay: %w", err)
		}
		delay = d
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	seed := uint64(demo.Seed)
	return &SimulatedProvider{
		delay:       delay,
		failureRate: demo.SimulatedFailureRate,
		currency:    currency,
		log:         logger.Named("payment"),
		now:         time.Now,
		rng:         rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}, nil
}

// Charge waits for the configured delay, then approves or declines.
func (p *SimulatedProvider) Charge(ctx context.Context, c Charge) (Receipt, error) {
	if c.Amount <= 0 {
		return Receipt{}, fmt.Errorf("%w: amount must be positive", ErrInvalidCharge)
	}
	if c.Currency == "" {
		c.Currency = p.currency
	}
	if p.delay > 0 {
		timer := time.NewTimer(p.delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return Receipt{}, ctx.Err()
		case <-timer.C:
		}
	}
	p.mu.Lock()
	roll := p.rng.Float64()
	p.mu.Unlock()
	if roll < p.failureRate {
		p.log.Info("simulated charge declined", zap.Int64("amount", c.Amount), zap.String("reference", c.Reference))
		return Receipt{}, ErrDeclined
	}
	r := Receipt{
		ID:        "sim_" + uuid.NewString(),
		Amount:    c.Amount,
		Currency:  strings.ToUpper(c.Currency),
		Simulated: true,
		ChargedAt: p.now().UTC(),
	}
	p.log.Info("simulated charge approved", zap.String("receipt", r.ID), zap.Int64("amount", r.Amount))
	return r, nil
}

// Select returns the provider for the configured payment mode.
func Select(cfg *config.Config, logger *zap.Logger) (Provider, error) {
	if cfg.PaymentMode() != config.PaymentSimulated {
		return nil, ErrGatewayUnavailable
	}
	return NewSimulatedProvider(cfg.Demo, cfg.Pricing.Currency, logger)
}

// ListingFee is the flat fee for publishing a listing.
func ListingFee(p config.PricingConfig) int64 { return p.ListingFee }

// TransactionFee is the marketplace cut of a sale, rounded half up to the
// nearest minor unit.
func TransactionFee(p config.PricingConfig, salePrice int64) int64 {
	if salePrice <= 0 || p.TransactionFeePercent <= 0 {
		return 0
	}
	return int64(math.Round(float64(salePrice) * p.TransactionFeePercent / 100))
}

// SubscriptionPrice returns the premium price for a plan name ("monthly" or "yearly").
func SubscriptionPrice(p config.PricingConfig, plan string) (int64, error) {
	switch strings.ToLower(plan) {
	case "monthly":
		return p.PremiumMonthly, nil
	case "yearly", "annual":
		return p.PremiumYearly, nil
	default:
		return 0, fmt.Errorf("%w: unknown plan %q", ErrInvalidCharge, plan)
	}
}
