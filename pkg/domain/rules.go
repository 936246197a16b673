package domain

import "context"

// RuleView provides read-only access to known fowl for rule evaluation.
type RuleView interface {
	FindFowl(id string) (Fowl, bool)
}

// Rule defines an evaluation executed before a fowl write is accepted.
type Rule interface {
	Name() string
	Evaluate(ctx context.Context, view RuleView, candidate Fowl) (RuleResult, error)
}

// RulesEngine orchestrates rule evaluation.
type RulesEngine struct {
	rules []Rule
}

// NewRulesEngine constructs an engine instance.
func NewRulesEngine() *RulesEngine {
	return &RulesEngine{}
}

// Register appends a rule to the engine.
func (e *RulesEngine) Register(rule Rule) {
	e.rules = append(e.rules, rule)
}

// Rules returns the registered rules in evaluation order.
func (e *RulesEngine) Rules() []Rule {
	out := make([]Rule, len(e.rules))
	copy(out, e.rules)
	return out
}

// Evaluate executes all registered rules and aggregates their results.
func (e *RulesEngine) Evaluate(ctx context.Context, view RuleView, candidate Fowl) (RuleResult, error) {
	var combined RuleResult
	for _, rule := range e.rules {
		res, err := rule.Evaluate(ctx, view, candidate)
		if err != nil {
			return RuleResult{}, err
		}
		combined.Merge(res)
	}
	return combined, nil
}
