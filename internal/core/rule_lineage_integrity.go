package core

import (
	"context"
	"fmt"

	"flockcore/pkg/domain"
)

const lineageRuleName = "lineage_integrity"

// maxAncestorWalk caps the ancestor search used for cycle detection.
const maxAncestorWalk = 64

// LineageIntegrityRule enforces parentage constraints on a fowl before it is
// written: a bird cannot be its own parent, sire and dam must differ, a known
// sire must not be female and a known dam must not be male, and a parent
// cannot also be a descendant. Parents absent from the view only warn since
// the local cache may lag the remote store.
func LineageIntegrityRule() domain.Rule {
	return lineageIntegrityRule{}
}

type lineageIntegrityRule struct{}

func (lineageIntegrityRule) Name() string { return lineageRuleName }

func (lineageIntegrityRule) Evaluate(_ context.Context, view domain.RuleView, f domain.Fowl) (domain.RuleResult, error) {
	var res domain.RuleResult
	block := func(field, msg string, args ...any) {
		res.Violations = append(res.Violations, lineageViolation(f.ID, field, domain.SeverityBlock, fmt.Sprintf(msg, args...)))
	}
	warn := func(field, msg string, args ...any) {
		res.Violations = append(res.Violations, lineageViolation(f.ID, field, domain.SeverityWarn, fmt.Sprintf(msg, args...)))
	}

	parents := f.ParentIDs()
	if len(parents) == 2 && parents[0] == parents[1] {
		block("dam_id", "fowl %s lists %s as both sire and dam", f.ID, parents[0])
		return res, nil
	}
	check := func(role, parentID string, forbidden domain.Sex) {
		if parentID == "" {
			return
		}
		field := role + "_id"
		if f.ID != "" && parentID == f.ID {
			block(field, "fowl %s references itself as %s", f.ID, role)
			return
		}
		parent, ok := view.FindFowl(parentID)
		if !ok {
			warn(field, "fowl %s references unknown %s %s", f.ID, role, parentID)
			return
		}
		if parent.Sex == forbidden {
			block(field, "fowl %s %s %s is %s", f.ID, role, parentID, parent.Sex)
		}
		if f.ID != "" && descendsFrom(view, parentID, f.ID) {
			block(field, "fowl %s cannot have descendant %s as %s", f.ID, parentID, role)
		}
	}
	check("sire", f.SireID, domain.SexFemale)
	check("dam", f.DamID, domain.SexMale)
	return res, nil
}

// descendsFrom reports whether ancestorID appears among id's ancestors.
func descendsFrom(view domain.RuleView, id, ancestorID string) bool {
	seen := map[string]struct{}{id: {}}
	queue := []string{id}
	for steps := 0; len(queue) > 0 && steps < maxAncestorWalk; steps++ {
		cur := queue[0]
		queue = queue[1:]
		f, ok := view.FindFowl(cur)
		if !ok {
			continue
		}
		for _, p := range f.ParentIDs() {
			if p == ancestorID {
				return true
			}
			if _, dup := seen[p]; !dup {
				seen[p] = struct{}{}
				queue = append(queue, p)
			}
		}
	}
	return false
}

func lineageViolation(entityID, field string, sev domain.Severity, message string) domain.Violation {
	return domain.Violation{
		Rule:     lineageRuleName,
		Severity: sev,
		Message:  message,
		Entity:   domain.EntityFowl,
		EntityID: entityID,
		Field:    field,
	}
}
