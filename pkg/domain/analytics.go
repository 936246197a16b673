package domain

// FamilyTreeData is the lineage view around a single bird. Ancestors and
// descendants are ordered nearest generation first.
type FamilyTreeData struct {
	Fowl        Fowl   `json:"fowl"`
	Ancestors   []Fowl `json:"ancestors"`
	Descendants []Fowl `json:"descendants"`
}

// CompatibilityCategory buckets a numeric compatibility score.
type CompatibilityCategory string

// Compatibility categories, best first.
const (
	CompatibilityExcellent CompatibilityCategory = "excellent"
	CompatibilityGood      CompatibilityCategory = "good"
	CompatibilityFair      CompatibilityCategory = "fair"
	CompatibilityPoor      CompatibilityCategory = "poor"
)

// CategorizeCompatibility maps a 0-100 score onto a category.
func CategorizeCompatibility(score float64) CompatibilityCategory {
	switch {
	case score >= 85:
		return CompatibilityExcellent
	case score >= 70:
		return CompatibilityGood
	case score >= 50:
		return CompatibilityFair
	default:
		return CompatibilityPoor
	}
}

// BreedingRecommendation proposes a mate for a bird.
type BreedingRecommendation struct {
	MateID             string                `json:"mate_id"`
	CompatibilityScore float64               `json:"compatibility_score"`
	Compatibility      CompatibilityCategory `json:"compatibility"`
	ExpectedTraits     []string              `json:"expected_traits"`
	RiskFactors        []string              `json:"risk_factors"`
}

// LifecycleAnalytics is an aggregate snapshot over a flock.
type LifecycleAnalytics struct {
	TotalCount        int                    `json:"total_count"`
	ActiveBreeders    int                    `json:"active_breeders"`
	StageCounts       map[LifecycleStage]int `json:"stage_counts"`
	AverageGrowthRate float64                `json:"average_growth_rate"`
	SurvivalRate      float64                `json:"survival_rate"`
	TopBloodlines     []string               `json:"top_bloodlines"`
}

// BloodlineStrength classifies the health of a bloodline.
type BloodlineStrength string

// Bloodline strengths.
const (
	BloodlineStrong   BloodlineStrength = "strong"
	BloodlineModerate BloodlineStrength = "moderate"
	BloodlineWeak     BloodlineStrength = "weak"
)

// BloodlineAnalytics summarises one bloodline.
type BloodlineAnalytics struct {
	Bloodline         string            `json:"bloodline"`
	Strength          BloodlineStrength `json:"strength"`
	Diversified       bool              `json:"diversified"`
	PerformanceRating float64           `json:"performance_rating"`
}
