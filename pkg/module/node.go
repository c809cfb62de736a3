// Package module defines the catalog of selectable guidance modules.
//
// A [Node] describes one module: its category, the predicate that triggers
// it, and its dependency and conflict edges. [Load] validates a node list and
// produces an immutable [Registry] that is shared read-only by every
// resolution.
package module

import (
	"github.com/macropower/pick/pkg/predicate"
)

// Category classifies how a module is selected. The set is closed so the
// resolver can handle every case exhaustively.
type Category string

const (
	// CategoryCore modules are always selected.
	CategoryCore Category = "core"
	// CategoryTrack modules are grouped into named tracks; exactly one
	// member of each track is selected per resolution.
	CategoryTrack Category = "track"
	// CategoryFeature modules are selected iff their predicate is true.
	CategoryFeature Category = "feature"
)

// AllCategories contains every valid category.
var AllCategories = []Category{CategoryCore, CategoryTrack, CategoryFeature}

// Node is one selectable module.
type Node struct {
	// ID uniquely identifies the module.
	ID string `json:"id" jsonschema:"title=Module ID"`
	// Category determines how the module is selected.
	Category Category `json:"category" jsonschema:"title=Category,enum=core,enum=track,enum=feature"`
	// Track names the mutually-exclusive group a track module belongs to.
	Track string `json:"track,omitempty" jsonschema:"title=Track Group"`
	// Default marks the track member selected when no member's predicate
	// matches. Exactly one member of each track must be the default.
	Default bool `json:"default,omitempty" jsonschema:"title=Track Default"`
	// When triggers selection of track and feature modules. Core modules
	// must omit it; they are unconditionally selected.
	When *predicate.Predicate `json:"when,omitempty" jsonschema:"title=Predicate"`
	// Requires lists modules that must also be selected whenever this
	// module is selected, regardless of their own predicates.
	Requires []string `json:"requires,omitempty" jsonschema:"title=Dependencies"`
	// ConflictsWith lists modules that must never be selected together
	// with this one.
	ConflictsWith []string `json:"conflictsWith,omitempty" jsonschema:"title=Conflicts"`
	// Description is a short human-readable summary.
	Description string `json:"description,omitempty" jsonschema:"title=Description"`

	priority int
}

// Priority is the node's declaration order in the registry. It is used only
// to break ties in output ordering.
func (n *Node) Priority() int {
	return n.priority
}

// TrackGroup is a named set of mutually exclusive track modules, members in
// declaration order.
type TrackGroup struct {
	Name    string
	Members []*Node
}

// Default returns the group's designated fallback member.
func (g TrackGroup) Default() *Node {
	for _, m := range g.Members {
		if m.Default {
			return m
		}
	}

	// Load guarantees exactly one default per group.
	return nil
}
