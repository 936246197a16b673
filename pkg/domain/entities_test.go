package domain

import (
	"encoding/json"
	"testing"
	"time"
)

func TestFowlParentIDs(t *testing.T) {
	cases := []struct {
		name string
		fowl Fowl
		want []string
	}{
		{"none", Fowl{}, []string{}},
		{"sire only", Fowl{SireID: "s"}, []string{"s"}},
		{"dam only", Fowl{DamID: " d "}, []string{"d"}},
		{"both", Fowl{SireID: "s", DamID: "d"}, []string{"s", "d"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := tc.fowl.ParentIDs()
			if len(got) != len(tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
			for i := range got {
				if got[i] != tc.want[i] {
					t.Fatalf("expected %v, got %v", tc.want, got)
				}
			}
		})
	}
}

func TestFowlCloneIsolatesSlices(t *testing.T) {
	hatched := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	orig := Fowl{Traits: []string{"pea comb"}, HatchedAt: &hatched}
	cp := orig.Clone()
	cp.Traits[0] = "rose comb"
	*cp.HatchedAt = hatched.Add(time.Hour)
	if orig.Traits[0] != "pea comb" {
		t.Fatalf("clone shares traits slice")
	}
	if !orig.HatchedAt.Equal(hatched) {
		t.Fatalf("clone shares hatch time")
	}
}

func TestStageAndSexHelpers(t *testing.T) {
	for _, stage := range LifecycleStages() {
		if !stage.Valid() {
			t.Fatalf("stage %s should be valid", stage)
		}
	}
	if LifecycleStage("egg").Valid() {
		t.Fatalf("unknown stage accepted")
	}
	if SexMale.Opposite() != SexFemale || SexFemale.Opposite() != SexMale || SexUnknown.Opposite() != SexUnknown {
		t.Fatalf("unexpected opposite mapping")
	}
	if Sex("capon").Valid() {
		t.Fatalf("unknown sex accepted")
	}
	if !(Fowl{Stage: StageBreeder}).BreedingEligible() || (Fowl{Stage: StageChick}).BreedingEligible() {
		t.Fatalf("unexpected breeding eligibility")
	}
	if (Fowl{Stage: StageDeceased}).Alive() {
		t.Fatalf("deceased bird reported alive")
	}
}

func TestFowlJSONFieldNames(t *testing.T) {
	data, err := json.Marshal(Fowl{Base: Base{ID: "f1"}, SireID: "s1", ForSale: true, AskingPrice: 2500})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, key := range []string{"id", "sire_id", "for_sale", "asking_price", "owner_id", "stage"} {
		if _, ok := raw[key]; !ok {
			t.Fatalf("expected key %s in %s", key, data)
		}
	}
	if _, ok := raw["dam_id"]; ok {
		t.Fatalf("empty dam_id should be omitted")
	}
}

func TestCategorizeCompatibility(t *testing.T) {
	cases := map[float64]CompatibilityCategory{
		100: CompatibilityExcellent,
		85:  CompatibilityExcellent,
		84:  CompatibilityGood,
		70:  CompatibilityGood,
		50:  CompatibilityFair,
		49:  CompatibilityPoor,
		0:   CompatibilityPoor,
	}
	for score, want := range cases {
		if got := CategorizeCompatibility(score); got != want {
			t.Fatalf("score %v: expected %s, got %s", score, want, got)
		}
	}
}
