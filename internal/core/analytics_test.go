package core

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flockcore/pkg/domain"
)

// seedPedigree builds three generations:
//
//	gs x gd -> sire;  ms x md -> dam;  sire x dam -> kid1, kid2
func seedPedigree(t *testing.T, repo *FowlRepository) {
	t.Helper()
	mustAdd(t, repo, "gs", rooster("Grandsire"))
	mustAdd(t, repo, "gd", hen("Granddam"))
	mustAdd(t, repo, "ms", rooster("Maternal Sire"))
	mustAdd(t, repo, "md", hen("Maternal Dam"))
	s := rooster("Sire")
	s.SireID, s.DamID = "gs", "gd"
	mustAdd(t, repo, "sire", s)
	d := hen("Dam")
	d.SireID, d.DamID = "ms", "md"
	mustAdd(t, repo, "dam", d)
	k1 := hen("Kid One")
	k1.SireID, k1.DamID = "sire", "dam"
	mustAdd(t, repo, "kid1", k1)
	k2 := rooster("Kid Two")
	k2.SireID, k2.DamID = "sire", "dam"
	mustAdd(t, repo, "kid2", k2)
}

func ids(fs []domain.Fowl) []string {
	out := make([]string, len(fs))
	for i, f := range fs {
		out[i] = f.ID
	}
	return out
}

func TestFamilyTree(t *testing.T) {
	fx := newFixture(t)
	seedPedigree(t, fx.repo)
	ctx := context.Background()

	tree, err := fx.repo.FamilyTree(ctx, "kid1", 0)
	require.NoError(t, err)
	assert.Equal(t, "kid1", tree.Fowl.ID)
	assert.Equal(t, []string{"sire", "dam", "gs", "gd", "ms", "md"}, ids(tree.Ancestors))
	assert.Empty(t, tree.Descendants)

	tree, err = fx.repo.FamilyTree(ctx, "gs", 1)
	require.NoError(t, err)
	assert.Empty(t, tree.Ancestors)
	assert.Equal(t, []string{"sire"}, ids(tree.Descendants))

	tree, err = fx.repo.FamilyTree(ctx, "gs", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"sire", "kid1", "kid2"}, ids(tree.Descendants))

	_, err = fx.repo.FamilyTree(ctx, "nobody", 2)
	var nf domain.ErrNotFound
	require.ErrorAs(t, err, &nf)

	_, err = fx.repo.FamilyTree(ctx, "kid1", -1)
	require.ErrorIs(t, err, ErrValidation)
}

func TestFamilyTreeToleratesCycles(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	// Written straight to the remote store to bypass lineage rules.
	for _, doc := range []string{
		`{"id":"a","name":"A","sire_id":"b","stage":"adult","sex":"male"}`,
		`{"id":"b","name":"B","sire_id":"a","stage":"adult","sex":"male"}`,
	} {
		id := string(doc[7])
		require.NoError(t, fx.remote.Store.Put(ctx, domain.Document{Collection: FowlCollection, ID: id, Data: []byte(doc)}))
	}
	tree, err := fx.repo.FamilyTree(ctx, "a", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, ids(tree.Ancestors))
	assert.Equal(t, []string{"b"}, ids(tree.Descendants))
}

func TestFamilyTreeFallsBackToCache(t *testing.T) {
	fx := newFixture(t)
	seedPedigree(t, fx.repo)
	fx.remote.setDown(true)
	tree, err := fx.repo.FamilyTree(context.Background(), "kid2", 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"sire", "dam"}, ids(tree.Ancestors))
}

func TestRecommendMates(t *testing.T) {
	fx := newFixture(t)
	seedPedigree(t, fx.repo)
	ctx := context.Background()

	outsider := hen("Outsider")
	outsider.Bloodline = "Lavender"
	outsider.Traits = []string{"broody", "Docile"}
	mustAdd(t, fx.repo, "out", outsider)

	sickly := hen("Sickly")
	sickly.Bloodline = "Lavender"
	sickly.Health = domain.HealthSick
	mustAdd(t, fx.repo, "sick", sickly)

	old := hen("Old Girl")
	old.Bloodline = "Lavender"
	hatched := fixedNow.Add(-6 * 365 * 24 * time.Hour)
	old.HatchedAt = &hatched
	mustAdd(t, fx.repo, "old", old)

	other := hen("Other Breed")
	other.Breed = "Silkie"
	mustAdd(t, fx.repo, "silkie", other)

	young := hen("Pullet")
	young.Stage = domain.StageJuvenile
	mustAdd(t, fx.repo, "pullet", young)

	kid2 := rooster("Kid Two")
	kid2.ID, kid2.SireID, kid2.DamID = "kid2", "sire", "dam"
	kid2.Traits = []string{"docile", "large comb"}
	require.True(t, fx.repo.UpdateFowl(ctx, kid2).OK())

	recs, err := fx.repo.RecommendMates(ctx, "kid2", 10)
	require.NoError(t, err)
	require.Greater(t, len(recs), 5, "every eligible hen fits under the explicit limit")
	got := map[string]domain.BreedingRecommendation{}
	var order []string
	for _, r := range recs {
		got[r.MateID] = r
		order = append(order, r.MateID)
	}
	assert.NotContains(t, got, "silkie", "different breed excluded")
	assert.NotContains(t, got, "pullet", "juvenile excluded")
	assert.NotContains(t, got, "kid2")

	require.Contains(t, got, "out")
	assert.Equal(t, 100.0, got["out"].CompatibilityScore)
	assert.Equal(t, domain.CompatibilityExcellent, got["out"].Compatibility)
	assert.Equal(t, []string{"broody", "docile", "large comb"}, got["out"].ExpectedTraits)
	assert.Empty(t, got["out"].RiskFactors)
	assert.Equal(t, "out", order[0])

	assert.Equal(t, 95.0, got["old"].CompatibilityScore)
	assert.Contains(t, got["old"].RiskFactors, "mate past prime breeding age")
	assert.Equal(t, 75.0, got["sick"].CompatibilityScore)
	assert.Equal(t, domain.CompatibilityGood, got["sick"].Compatibility)

	// Full sibling shares all six ancestors: 90 - 60 (capped) - 5 (same bloodline).
	require.Contains(t, got, "kid1")
	assert.Equal(t, 25.0, got["kid1"].CompatibilityScore)
	assert.Equal(t, domain.CompatibilityPoor, got["kid1"].Compatibility)
	assert.Contains(t, got["kid1"].RiskFactors, "inbreeding: 6 shared ancestors")

	// Own dam is a direct relation.
	require.Contains(t, got, "dam")
	assert.Contains(t, got["dam"].RiskFactors, "direct lineage relation")

	// Ties at 25 break by ID, so the default limit cuts kid1.
	defaulted, err := fx.repo.RecommendMates(ctx, "kid2", 0)
	require.NoError(t, err)
	assert.Len(t, defaulted, 5)
	assert.Equal(t, order[:5], idsOf(defaulted))

	limited, err := fx.repo.RecommendMates(ctx, "kid2", 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	unknown := domain.Fowl{Name: "Mystery", Sex: domain.SexUnknown, Stage: domain.StageAdult}
	unknown.ID = "mystery"
	mustAdd(t, fx.repo, "mystery", unknown)
	none, err := fx.repo.RecommendMates(ctx, "mystery", 0)
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = fx.repo.RecommendMates(ctx, "ghost", 0)
	require.Error(t, err)
}

func TestLifecycleAnalytics(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	add := func(id, owner, bloodline string, stage domain.LifecycleStage, growth float64) {
		f := hen(id)
		f.OwnerID, f.Bloodline, f.Stage, f.GrowthRate = owner, bloodline, stage, growth
		mustAdd(t, fx.repo, id, f)
	}
	add("a", "o1", "Buff", domain.StageBreeder, 20)
	add("b", "o1", "Buff", domain.StageAdult, 10)
	add("c", "o1", "Lav", domain.StageDeceased, 0)
	add("d", "o1", "Blue", domain.StageChick, 30)
	add("e", "o1", "Lav", domain.StageBreeder, 0)
	add("f", "o2", "Splash", domain.StageAdult, 5)

	stats, err := fx.repo.LifecycleAnalytics(ctx, "o1")
	require.NoError(t, err)
	assert.Equal(t, 5, stats.TotalCount)
	assert.Equal(t, 2, stats.ActiveBreeders)
	assert.Equal(t, 0.8, stats.SurvivalRate)
	assert.Equal(t, 20.0, stats.AverageGrowthRate)
	assert.Equal(t, 2, stats.StageCounts[domain.StageBreeder])
	assert.Equal(t, 0, stats.StageCounts[domain.StageRetired])
	assert.Len(t, stats.StageCounts, len(domain.LifecycleStages()))
	assert.Equal(t, []string{"Buff", "Lav", "Blue"}, stats.TopBloodlines)

	all, err := fx.repo.LifecycleAnalytics(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 6, all.TotalCount)

	empty, err := fx.repo.LifecycleAnalytics(ctx, "nobody")
	require.NoError(t, err)
	assert.Zero(t, empty.TotalCount)
	assert.Zero(t, empty.SurvivalRate)
	assert.Empty(t, empty.TopBloodlines)
}

func TestBloodlineAnalytics(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	for i, id := range []string{"s1", "s2", "s3", "s4", "s5", "s6", "s7", "s8", "s9", "s10"} {
		f := hen(id)
		f.Bloodline = "Strong Line"
		f.GrowthRate = 30
		if i%2 == 0 {
			f.Breed = "Wyandotte"
		}
		mustAdd(t, fx.repo, id, f)
	}
	strong, err := fx.repo.BloodlineAnalytics(ctx, "strong line")
	require.NoError(t, err)
	assert.Equal(t, domain.BloodlineStrong, strong.Strength)
	assert.Equal(t, 100.0, strong.PerformanceRating)
	assert.True(t, strong.Diversified)

	for _, id := range []string{"w1", "w2"} {
		f := hen(id)
		f.Bloodline = "Fading"
		f.Stage = domain.StageDeceased
		mustAdd(t, fx.repo, id, f)
	}
	weak, err := fx.repo.BloodlineAnalytics(ctx, "Fading")
	require.NoError(t, err)
	assert.Equal(t, domain.BloodlineWeak, weak.Strength)
	assert.Zero(t, weak.PerformanceRating)
	assert.False(t, weak.Diversified)

	for i, id := range []string{"m1", "m2", "m3", "m4"} {
		f := hen(id)
		f.Bloodline = "Middling"
		f.GrowthRate = float64(10 + i)
		mustAdd(t, fx.repo, id, f)
	}
	mid, err := fx.repo.BloodlineAnalytics(ctx, "Middling")
	require.NoError(t, err)
	assert.Equal(t, domain.BloodlineModerate, mid.Strength)

	_, err = fx.repo.BloodlineAnalytics(ctx, "Unknown")
	var nf domain.ErrNotFound
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, domain.EntityBloodline, nf.Entity)

	_, err = fx.repo.BloodlineAnalytics(ctx, " ")
	require.ErrorIs(t, err, ErrValidation)
}

func idsOf(recs []domain.BreedingRecommendation) []string {
	out := make([]string, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.MateID)
	}
	return out
}
