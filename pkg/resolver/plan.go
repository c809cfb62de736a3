package resolver

import (
	"slices"
)

// ReasonKind classifies why a module was selected.
type ReasonKind string

const (
	// ReasonCore marks an unconditionally selected core module.
	ReasonCore ReasonKind = "core"
	// ReasonTrackMatch marks the winning member of a track group, whether
	// it won by predicate, by override, or as the designated default.
	ReasonTrackMatch ReasonKind = "track-match"
	// ReasonFeaturePredicate marks a feature module whose predicate held.
	ReasonFeaturePredicate ReasonKind = "feature-predicate"
	// ReasonDependency marks a module force-selected because a selected
	// module requires it.
	ReasonDependency ReasonKind = "dependency-of"
)

// Reason records why a module is in the plan. For [ReasonDependency],
// Dependent names the first selected module that required it.
type Reason struct {
	Kind      ReasonKind `json:"kind"`
	Dependent string     `json:"dependent,omitempty"`
}

func (r Reason) String() string {
	if r.Kind == ReasonDependency {
		return string(ReasonDependency) + ":" + r.Dependent
	}

	return string(r.Kind)
}

// MarshalYAML encodes the reason in its compact string form,
// e.g. "dependency-of:web".
func (r Reason) MarshalYAML() (any, error) {
	return r.String(), nil
}

// Entry is one selected module with the reason it was selected.
type Entry struct {
	ID     string `json:"id"`
	Reason Reason `json:"reason"`
}

// Plan is the deterministic, ordered output of one resolution. Every module
// appears after all of its dependencies. A plan is immutable once built;
// later resolutions supersede it, they never mutate it.
type Plan struct {
	// Entries lists the selected modules in dependency order.
	Entries []Entry `json:"modules"`
	// SignalHash is the structural hash of the signal set the plan was
	// resolved against.
	SignalHash string `json:"signalHash"`
}

// ModuleIDs returns the selected module IDs in plan order.
func (p *Plan) ModuleIDs() []string {
	ids := make([]string, len(p.Entries))
	for i, e := range p.Entries {
		ids[i] = e.ID
	}

	return ids
}

// Has reports whether the plan contains the given module.
func (p *Plan) Has(id string) bool {
	return slices.ContainsFunc(p.Entries, func(e Entry) bool {
		return e.ID == id
	})
}

// Reason returns the selection reason for a module in the plan.
func (p *Plan) Reason(id string) (Reason, bool) {
	for _, e := range p.Entries {
		if e.ID == id {
			return e.Reason, true
		}
	}

	return Reason{}, false
}
