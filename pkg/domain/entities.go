// Package domain defines the persistent fowl records, the derived breeding and
// analytics value types, and the rule primitives used by flockcore.
package domain

import (
	"strings"
	"time"
)

// EntityType identifies the type of record stored in the core domain.
type EntityType string

// Supported entity type identifiers used in violations and document collections.
const (
	// EntityFowl identifies an individual bird or marketplace listing.
	EntityFowl EntityType = "fowl"
	// EntityBloodline identifies a lineage grouping.
	EntityBloodline EntityType = "bloodline"
)

// LifecycleStage represents the canonical stages a bird moves through.
type LifecycleStage string

// Canonical lifecycle stages used for analytics and breeding eligibility.
const (
	StageChick    LifecycleStage = "chick"
	StageJuvenile LifecycleStage = "juvenile"
	StageAdult    LifecycleStage = "adult"
	// StageBreeder marks an adult actively enrolled in a breeding program.
	StageBreeder  LifecycleStage = "breeder"
	StageRetired  LifecycleStage = "retired"
	StageDeceased LifecycleStage = "deceased"
)

// LifecycleStages lists every stage in lifecycle order.
func LifecycleStages() []LifecycleStage {
	return []LifecycleStage{StageChick, StageJuvenile, StageAdult, StageBreeder, StageRetired, StageDeceased}
}

// Valid reports whether s is a known lifecycle stage.
func (s LifecycleStage) Valid() bool {
	for _, known := range LifecycleStages() {
		if s == known {
			return true
		}
	}
	return false
}

// Sex of a bird.
type Sex string

// Recognised sexes. Unsexed chicks use SexUnknown.
const (
	SexMale    Sex = "male"
	SexFemale  Sex = "female"
	SexUnknown Sex = "unknown"
)

// Valid reports whether s is a known sex value.
func (s Sex) Valid() bool {
	return s == SexMale || s == SexFemale || s == SexUnknown
}

// Opposite returns the complementary sex for pairing, or SexUnknown.
func (s Sex) Opposite() Sex {
	switch s {
	case SexMale:
		return SexFemale
	case SexFemale:
		return SexMale
	default:
		return SexUnknown
	}
}

// HealthStatus captures the last recorded health assessment.
type HealthStatus string

// Health statuses consulted by breeding risk analysis.
const (
	HealthHealthy     HealthStatus = "healthy"
	HealthMonitoring  HealthStatus = "monitoring"
	HealthQuarantined HealthStatus = "quarantined"
	HealthSick        HealthStatus = "sick"
)

// Severity captures rule outcomes.
type Severity string

// Rule evaluation severities determine whether a write proceeds.
const (
	// SeverityBlock rejects the write.
	SeverityBlock Severity = "block"
	// SeverityWarn logs a warning but allows the write.
	SeverityWarn Severity = "warn"
	SeverityLog  Severity = "log"
)

// Base contains common fields for all persisted records.
type Base struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Fowl represents an individual bird tracked by the system. A fowl marked for
// sale doubles as a marketplace listing.
type Fowl struct {
	Base
	Name        string         `json:"name"`
	Breed       string         `json:"breed"`
	Bloodline   string         `json:"bloodline"`
	Sex         Sex            `json:"sex"`
	Stage       LifecycleStage `json:"stage"`
	HatchedAt   *time.Time     `json:"hatched_at,omitempty"`
	SireID      string         `json:"sire_id,omitempty"`
	DamID       string         `json:"dam_id,omitempty"`
	OwnerID     string         `json:"owner_id"`
	WeightGrams float64        `json:"weight_grams"`
	GrowthRate  float64        `json:"growth_rate"`
	Traits      []string       `json:"traits"`
	Health      HealthStatus   `json:"health"`
	ForSale     bool           `json:"for_sale"`
	AskingPrice int64          `json:"asking_price"`
}

// ParentIDs returns the non-empty sire and dam identifiers, sire first.
func (f Fowl) ParentIDs() []string {
	out := make([]string, 0, 2)
	if id := strings.TrimSpace(f.SireID); id != "" {
		out = append(out, id)
	}
	if id := strings.TrimSpace(f.DamID); id != "" {
		out = append(out, id)
	}
	return out
}

// Alive reports whether the bird has not been recorded as deceased.
func (f Fowl) Alive() bool {
	return f.Stage != StageDeceased
}

// BreedingEligible reports whether the bird may be proposed as a mate.
func (f Fowl) BreedingEligible() bool {
	return f.Stage == StageAdult || f.Stage == StageBreeder
}

// Clone returns a deep copy so callers cannot mutate shared slices.
func (f Fowl) Clone() Fowl {
	cp := f
	if f.Traits != nil {
		cp.Traits = append([]string(nil), f.Traits...)
	}
	if f.HatchedAt != nil {
		t := *f.HatchedAt
		cp.HatchedAt = &t
	}
	return cp
}

// Violation captures a rule outcome.
type Violation struct {
	Rule     string     `json:"rule"`
	Severity Severity   `json:"severity"`
	Message  string     `json:"message"`
	Entity   EntityType `json:"entity"`
	EntityID string     `json:"entity_id"`
	// Field names the offending input field, when there is one.
	Field    string     `json:"field,omitempty"`
}

// RuleResult aggregates violations produced during rule evaluation.
type RuleResult struct {
	Violations []Violation `json:"violations,omitempty"`
}

// Merge appends violations from another result.
func (r *RuleResult) Merge(other RuleResult) {
	if len(other.Violations) == 0 {
		return
	}
	r.Violations = append(r.Violations, other.Violations...)
}

// HasBlocking returns true if any violation is blocking.
func (r RuleResult) HasBlocking() bool {
	_, ok := r.FirstBlocking()
	return ok
}

// FirstBlocking returns the first blocking violation.
func (r RuleResult) FirstBlocking() (Violation, bool) {
	for _, v := range r.Violations {
		if v.Severity == SeverityBlock {
			return v, true
		}
	}
	return Violation{}, false
}

// RuleViolationError is returned when blocking violations are present.
type RuleViolationError struct {
	Result RuleResult
}

func (e RuleViolationError) Error() string {
	if v, ok := e.Result.FirstBlocking(); ok {
		return "write blocked by rules: " + v.Message
	}
	return "write blocked by rules"
}
