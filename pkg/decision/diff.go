package decision

import (
	"github.com/macropower/pick/pkg/resolver"
)

// Diff lists the module-level changes between two consecutive plans for the
// same project. Added follows the new plan's order, Removed the old plan's.
type Diff struct {
	Added   []string `json:"added,omitempty"`
	Removed []string `json:"removed,omitempty"`
}

// Empty reports whether the diff carries no changes.
func (d Diff) Empty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0
}

// diffPlans computes the module delta from old to new. A nil old plan (first
// resolution for the project) yields an empty diff.
func diffPlans(oldPlan, newPlan *resolver.Plan) Diff {
	if oldPlan == nil {
		return Diff{}
	}

	var d Diff

	for _, e := range newPlan.Entries {
		if !oldPlan.Has(e.ID) {
			d.Added = append(d.Added, e.ID)
		}
	}

	for _, e := range oldPlan.Entries {
		if !newPlan.Has(e.ID) {
			d.Removed = append(d.Removed, e.ID)
		}
	}

	return d
}
