package core

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"flockcore/pkg/domain"
)

// Analytics operation names.
const (
	OpFamilyTree         = "family_tree"
	OpRecommendMates     = "recommend_mates"
	OpLifecycleAnalytics = "lifecycle_analytics"
	OpBloodlineAnalytics = "bloodline_analytics"
)

const (
	defaultTreeDepth       = 3
	maxTreeDepth           = 10
	defaultRecommendations = 5
	// inbreedingDepth is how many generations are compared for shared ancestors.
	inbreedingDepth      = 4
	sharedAncestorCost   = 15.0
	maxInbreedingPenalty = 60.0
	// benchmarkGrowthRate is the grams/day treated as full marks.
	benchmarkGrowthRate = 25.0
	seniorAge           = 5 * 365 * 24 * time.Hour
)

// flock is an indexed snapshot of every known bird.
type flock struct {
	byID     map[string]domain.Fowl
	children map[string][]domain.Fowl
}

func newFlock(all []domain.Fowl) flock {
	fl := flock{byID: make(map[string]domain.Fowl, len(all)), children: make(map[string][]domain.Fowl)}
	for _, f := range all {
		fl.byID[f.ID] = f
	}
	for _, f := range all {
		for _, p := range f.ParentIDs() {
			fl.children[p] = append(fl.children[p], f)
		}
	}
	for id := range fl.children {
		sortByName(fl.children[id])
	}
	return fl
}

// snapshot loads the whole flock, preferring the remote store.
func (r *FowlRepository) snapshot(ctx context.Context, op string) (flock, error) {
	all, err := r.listRemote(ctx)
	if err != nil {
		cached, cerr := r.cache.List(ctx)
		if cerr != nil {
			return flock{}, err
		}
		r.noteFallback(op, err)
		all = cached
	}
	return newFlock(all), nil
}

// FamilyTree returns the ancestors and descendants of id up to depth
// generations in each direction. Depth 0 selects the default of three.
func (r *FowlRepository) FamilyTree(ctx context.Context, id string, depth int) (tree domain.FamilyTreeData, err error) {
	ctx, done := r.instrument(ctx, OpFamilyTree)
	defer func() { done(err) }()
	if depth < 0 {
		return tree, fmt.Errorf("%w: depth cannot be negative", ErrValidation)
	}
	if depth == 0 {
		depth = defaultTreeDepth
	}
	depth = min(depth, maxTreeDepth)
	fl, err := r.snapshot(ctx, OpFamilyTree)
	if err != nil {
		return tree, err
	}
	root, ok := fl.byID[id]
	if !ok {
		return tree, domain.ErrNotFound{Entity: domain.EntityFowl, ID: id}
	}
	tree.Fowl = root
	tree.Ancestors = fl.walk(root, depth, func(f domain.Fowl) []domain.Fowl {
		var out []domain.Fowl
		for _, p := range f.ParentIDs() {
			if parent, ok := fl.byID[p]; ok {
				out = append(out, parent)
			}
		}
		return out
	})
	tree.Descendants = fl.walk(root, depth, func(f domain.Fowl) []domain.Fowl {
		return fl.children[f.ID]
	})
	return tree, nil
}

// walk is a breadth-first traversal from root that visits each bird once.
func (fl flock) walk(root domain.Fowl, depth int, next func(domain.Fowl) []domain.Fowl) []domain.Fowl {
	out := []domain.Fowl{}
	seen := map[string]struct{}{root.ID: {}}
	frontier := []domain.Fowl{root}
	for gen := 0; gen < depth && len(frontier) > 0; gen++ {
		var upcoming []domain.Fowl
		for _, f := range frontier {
			for _, n := range next(f) {
				if _, dup := seen[n.ID]; dup {
					continue
				}
				seen[n.ID] = struct{}{}
				out = append(out, n)
				upcoming = append(upcoming, n)
			}
		}
		frontier = upcoming
	}
	return out
}

// ancestors returns the IDs of id's ancestors within depth generations.
func (fl flock) ancestors(id string, depth int) map[string]struct{} {
	out := make(map[string]struct{})
	root, ok := fl.byID[id]
	if !ok {
		return out
	}
	frontier := root.ParentIDs()
	for gen := 0; gen < depth && len(frontier) > 0; gen++ {
		var upcoming []string
		for _, p := range frontier {
			if _, dup := out[p]; dup || p == id {
				continue
			}
			out[p] = struct{}{}
			if parent, ok := fl.byID[p]; ok {
				upcoming = append(upcoming, parent.ParentIDs()...)
			}
		}
		frontier = upcoming
	}
	return out
}

// RecommendMates ranks breeding-eligible birds of the opposite sex and same
// breed as a partner for id. A limit of 0 selects five.
func (r *FowlRepository) RecommendMates(ctx context.Context, id string, limit int) (recs []domain.BreedingRecommendation, err error) {
	ctx, done := r.instrument(ctx, OpRecommendMates)
	defer func() { done(err) }()
	if limit < 0 {
		return nil, fmt.Errorf("%w: limit cannot be negative", ErrValidation)
	}
	if limit == 0 {
		limit = defaultRecommendations
	}
	fl, err := r.snapshot(ctx, OpRecommendMates)
	if err != nil {
		return nil, err
	}
	subject, ok := fl.byID[id]
	if !ok {
		return nil, domain.ErrNotFound{Entity: domain.EntityFowl, ID: id}
	}
	want := subject.Sex.Opposite()
	recs = []domain.BreedingRecommendation{}
	if want == domain.SexUnknown {
		return recs, nil
	}
	subjectAncestors := fl.ancestors(subject.ID, inbreedingDepth)
	now := r.opts.clock.Now()
	for _, mate := range fl.byID {
		if mate.ID == subject.ID || mate.Sex != want || !mate.BreedingEligible() {
			continue
		}
		if !strings.EqualFold(mate.Breed, subject.Breed) {
			continue
		}
		recs = append(recs, scorePairing(fl, subject, subjectAncestors, mate, now))
	}
	sort.Slice(recs, func(i, j int) bool {
		if recs[i].CompatibilityScore != recs[j].CompatibilityScore {
			return recs[i].CompatibilityScore > recs[j].CompatibilityScore
		}
		return recs[i].MateID < recs[j].MateID
	})
	if len(recs) > limit {
		recs = recs[:limit]
	}
	return recs, nil
}

func scorePairing(fl flock, subject domain.Fowl, subjectAncestors map[string]struct{}, mate domain.Fowl, now time.Time) domain.BreedingRecommendation {
	score := 90.0
	var risks []string

	mateAncestors := fl.ancestors(mate.ID, inbreedingDepth)
	_, mateIsAncestor := subjectAncestors[mate.ID]
	_, subjectIsAncestor := mateAncestors[subject.ID]
	shared := 0
	for a := range mateAncestors {
		if _, ok := subjectAncestors[a]; ok {
			shared++
		}
	}
	switch {
	case mateIsAncestor || subjectIsAncestor:
		score -= maxInbreedingPenalty
		risks = append(risks, "direct lineage relation")
	case shared > 0:
		score -= math.Min(float64(shared)*sharedAncestorCost, maxInbreedingPenalty)
		risks = append(risks, fmt.Sprintf("inbreeding: %d shared ancestors", shared))
	}

	switch {
	case subject.Bloodline != "" && mate.Bloodline != "" && !strings.EqualFold(subject.Bloodline, mate.Bloodline):
		score += 10
	case subject.Bloodline != "" && strings.EqualFold(subject.Bloodline, mate.Bloodline):
		score -= 5
		risks = append(risks, "same bloodline")
	}

	switch mate.Health {
	case domain.HealthMonitoring:
		score -= 10
		risks = append(risks, "mate health under monitoring")
	case domain.HealthQuarantined, domain.HealthSick:
		score -= 25
		risks = append(risks, fmt.Sprintf("mate health: %s", mate.Health))
	}
	if mate.HatchedAt != nil && now.Sub(*mate.HatchedAt) > seniorAge {
		score -= 5
		risks = append(risks, "mate past prime breeding age")
	}

	score = math.Max(0, math.Min(100, score))
	return domain.BreedingRecommendation{
		MateID:             mate.ID,
		CompatibilityScore: score,
		Compatibility:      domain.CategorizeCompatibility(score),
		ExpectedTraits:     unionTraits(subject.Traits, mate.Traits),
		RiskFactors:        append([]string{}, risks...),
	}
}

func unionTraits(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	out := []string{}
	for _, list := range [][]string{a, b} {
		for _, t := range list {
			t = strings.TrimSpace(t)
			key := strings.ToLower(t)
			if t == "" {
				continue
			}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, t)
		}
	}
	sort.Strings(out)
	return out
}

// LifecycleAnalytics aggregates stage counts, growth and survival for the
// birds owned by ownerID, or for the whole flock when ownerID is empty.
func (r *FowlRepository) LifecycleAnalytics(ctx context.Context, ownerID string) (stats domain.LifecycleAnalytics, err error) {
	ctx, done := r.instrument(ctx, OpLifecycleAnalytics)
	defer func() { done(err) }()
	fl, err := r.snapshot(ctx, OpLifecycleAnalytics)
	if err != nil {
		return stats, err
	}
	stats.StageCounts = make(map[domain.LifecycleStage]int, len(domain.LifecycleStages()))
	for _, s := range domain.LifecycleStages() {
		stats.StageCounts[s] = 0
	}
	bloodlines := make(map[string]int)
	var growthSum float64
	var growthN, alive int
	for _, f := range fl.byID {
		if ownerID != "" && f.OwnerID != ownerID {
			continue
		}
		stats.TotalCount++
		stats.StageCounts[f.Stage]++
		if f.Stage == domain.StageBreeder {
			stats.ActiveBreeders++
		}
		if f.Alive() {
			alive++
		}
		if f.GrowthRate > 0 {
			growthSum += f.GrowthRate
			growthN++
		}
		if f.Bloodline != "" {
			bloodlines[f.Bloodline]++
		}
	}
	if growthN > 0 {
		stats.AverageGrowthRate = round2(growthSum / float64(growthN))
	}
	if stats.TotalCount > 0 {
		stats.SurvivalRate = round2(float64(alive) / float64(stats.TotalCount))
	}
	stats.TopBloodlines = topKeys(bloodlines, 3)
	return stats, nil
}

// BloodlineAnalytics rates one bloodline from its members' survival and growth.
func (r *FowlRepository) BloodlineAnalytics(ctx context.Context, bloodline string) (out domain.BloodlineAnalytics, err error) {
	ctx, done := r.instrument(ctx, OpBloodlineAnalytics)
	defer func() { done(err) }()
	bloodline = strings.TrimSpace(bloodline)
	if bloodline == "" {
		return out, fmt.Errorf("%w: bloodline is required", ErrValidation)
	}
	fl, err := r.snapshot(ctx, OpBloodlineAnalytics)
	if err != nil {
		return out, err
	}
	var members, alive, growthN int
	var growthSum float64
	breeds := make(map[string]struct{})
	parents := make(map[string]struct{})
	for _, f := range fl.byID {
		if !strings.EqualFold(f.Bloodline, bloodline) {
			continue
		}
		members++
		if f.Alive() {
			alive++
		}
		if f.GrowthRate > 0 {
			growthSum += f.GrowthRate
			growthN++
		}
		if f.Breed != "" {
			breeds[strings.ToLower(f.Breed)] = struct{}{}
		}
		for _, p := range f.ParentIDs() {
			parents[p] = struct{}{}
		}
	}
	if members == 0 {
		return out, domain.ErrNotFound{Entity: domain.EntityBloodline, ID: bloodline}
	}
	survival := float64(alive) / float64(members)
	growth := 0.0
	if growthN > 0 {
		growth = math.Min(growthSum/float64(growthN)/benchmarkGrowthRate, 1)
	}
	rating := round2(survival*40 + growth*60)
	out = domain.BloodlineAnalytics{
		Bloodline:         bloodline,
		Diversified:       len(breeds) > 1 || len(parents) >= 4,
		PerformanceRating: rating,
	}
	switch {
	case alive >= 10 && rating >= 70:
		out.Strength = domain.BloodlineStrong
	case alive >= 4 && rating >= 50:
		out.Strength = domain.BloodlineModerate
	default:
		out.Strength = domain.BloodlineWeak
	}
	return out, nil
}

func topKeys(counts map[string]int, n int) []string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})
	if len(keys) > n {
		keys = keys[:n]
	}
	return keys
}

func sortByName(fs []domain.Fowl) {
	sort.SliceStable(fs, func(i, j int) bool {
		a, b := strings.ToLower(fs[i].Name), strings.ToLower(fs[j].Name)
		if a != b {
			return a < b
		}
		return fs[i].ID < fs[j].ID
	})
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
