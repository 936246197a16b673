package api

import (
	"time"

	"flockcore/internal/config"
	"flockcore/internal/payment"
	"flockcore/pkg/domain"
)

// FowlRequest is the body of POST /v1/fowls and PUT /v1/fowls/:id. Sale
// state is only set through the listing route.
type FowlRequest struct {
	Name        string     `json:"name" binding:"required,max=120"`
	Breed       string     `json:"breed" binding:"max=80"`
	Bloodline   string     `json:"bloodline" binding:"max=80"`
	Sex         string     `json:"sex" binding:"omitempty,oneof=male female unknown"`
	Stage       string     `json:"stage" binding:"omitempty,oneof=chick juvenile adult breeder retired deceased"`
	HatchedAt   *time.Time `json:"hatched_at"`
	SireID      string     `json:"sire_id"`
	DamID       string     `json:"dam_id"`
	OwnerID     string     `json:"owner_id"`
	WeightGrams float64    `json:"weight_grams" binding:"gte=0"`
	GrowthRate  float64    `json:"growth_rate" binding:"gte=0"`
	Traits      []string   `json:"traits" binding:"omitempty,max=32,dive,required,max=60"`
	Health      string     `json:"health" binding:"omitempty,oneof=healthy monitoring quarantined sick"`
}

func (r FowlRequest) toDomain(id string) domain.Fowl {
	return domain.Fowl{
		Base:        domain.Base{ID: id},
		Name:        r.Name,
		Breed:       r.Breed,
		Bloodline:   r.Bloodline,
		Sex:         domain.Sex(r.Sex),
		Stage:       domain.LifecycleStage(r.Stage),
		HatchedAt:   r.HatchedAt,
		SireID:      r.SireID,
		DamID:       r.DamID,
		OwnerID:     r.OwnerID,
		WeightGrams: r.WeightGrams,
		GrowthRate:  r.GrowthRate,
		Traits:      r.Traits,
		Health:      domain.HealthStatus(r.Health),
	}
}

// SearchQuery binds GET /v1/fowls/search.
type SearchQuery struct {
	Q string `form:"q" binding:"required,max=120"`
}

// TreeQuery binds GET /v1/fowls/:id/tree.
type TreeQuery struct {
	Depth int `form:"depth" binding:"gte=0,lte=10"`
}

// RecommendQuery binds GET /v1/fowls/:id/recommendations.
type RecommendQuery struct {
	Limit int `form:"limit" binding:"gte=0,lte=50"`
}

// ListingRequest is the body of POST /v1/fowls/:id/listing.
type ListingRequest struct {
	AskingPrice int64 `json:"asking_price" binding:"required,gt=0"`
}

// ListingResponse confirms a published listing.
type ListingResponse struct {
	Fowl           domain.Fowl     `json:"fowl"`
	Receipt        payment.Receipt `json:"receipt"`
	TransactionFee int64           `json:"transaction_fee"`
}

// ListResponse wraps collection results.
type ListResponse struct {
	Fowls []domain.Fowl `json:"fowls"`
	Count int           `json:"count"`
}

// DemoResponse describes the active demo-mode settings.
type DemoResponse struct {
	DemoMode        bool                 `json:"demo_mode"`
	MockPayments    bool                 `json:"mock_payments"`
	PaymentMode     config.PaymentMode   `json:"payment_mode"`
	PaymentDelayMS  int64                `json:"payment_delay_ms"`
	Pricing         config.PricingConfig `json:"pricing"`
	Features        config.FeatureFlags  `json:"features"`
	OfflineFallback bool                 `json:"offline_fallback"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error       string                    `json:"error"`
	Code        string                    `json:"code"`
	Severity    domain.NavigationSeverity `json:"severity"`
	Action      domain.NavigationAction   `json:"action,omitempty"`
	ActionLabel string                    `json:"action_label,omitempty"`
	// Redirect is set for authentication failures.
	Redirect string `json:"redirect,omitempty"`
}

// HealthResponse is the body of GET /healthz.
type HealthResponse struct {
	Status string `json:"status"`
}
