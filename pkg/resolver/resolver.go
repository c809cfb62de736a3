// Package resolver computes which modules apply to a project.
//
// [Resolve] is a pure function of its inputs: the same registry and signal
// set always yield a byte-identical plan. It never blocks, performs no I/O,
// and may run concurrently from any number of goroutines.
package resolver

import (
	"errors"
	"fmt"

	"github.com/dominikbraun/graph"

	"github.com/macropower/pick/pkg/module"
	"github.com/macropower/pick/pkg/signal"
)

// TrackOverridePrefix prefixes signal keys that force a track group's
// winner. See [TrackOverrideKey].
const TrackOverridePrefix = "track."

// TrackOverrideKey returns the signal key that forces the winner of a track
// group. The signal's string value names the member to select. Overrides are
// ordinary signals so that forced resolutions stay deterministic and
// reproducible from the signal set alone.
func TrackOverrideKey(group string) string {
	return TrackOverridePrefix + group
}

// ConflictError reports two selected modules that declare a conflict with
// each other. There is no precedence between conflicting modules; resolution
// fails fast and the caller must remove a triggering signal or edit the
// registry.
type ConflictError struct {
	A string
	B string
}

func (e ConflictError) Error() string {
	return fmt.Sprintf("conflict unresolved: modules %q and %q are both selected", e.A, e.B)
}

// Resolve computes the plan for one signal set against a registry.
//
// Selection proceeds in category order: every core module, then exactly one
// member per track group, then every feature module whose predicate holds.
// Dependencies of selected modules are force-selected transitively; a
// dependency's own false predicate does not exempt it, since a dependent's
// declared need overrides the dependency's trigger condition. A selection
// containing a conflict edge fails with [ConflictError].
//
// The plan lists every module after all of its dependencies; ties between
// incomparable modules break by declaration order, so the output is a total
// order.
func Resolve(reg *module.Registry, signals *signal.Set) (*Plan, error) {
	reasons := make(map[string]Reason, reg.Len())

	for _, n := range reg.AllNodes() {
		if n.Category == module.CategoryCore {
			reasons[n.ID] = Reason{Kind: ReasonCore}
		}
	}

	for _, g := range reg.TrackGroups() {
		winner := trackWinner(g, signals)
		reasons[winner.ID] = Reason{Kind: ReasonTrackMatch}
	}

	for _, n := range reg.AllNodes() {
		if n.Category == module.CategoryFeature && n.When.Eval(signals) {
			reasons[n.ID] = Reason{Kind: ReasonFeaturePredicate}
		}
	}

	err := propagateDependencies(reg, reasons)
	if err != nil {
		return nil, err
	}

	err = checkConflicts(reg, reasons)
	if err != nil {
		return nil, err
	}

	entries, err := orderSelection(reg, reasons)
	if err != nil {
		return nil, err
	}

	return &Plan{
		Entries:    entries,
		SignalHash: signals.Hash(),
	}, nil
}

// trackWinner picks the selected member of one track group: an explicit
// override signal wins, otherwise the first member in declaration order
// whose predicate holds, otherwise the designated default. First match is
// the policy, not most-specific match.
func trackWinner(g module.TrackGroup, signals *signal.Set) *module.Node {
	if v, ok := signals.Get(TrackOverrideKey(g.Name)); ok && v.Kind == signal.KindString {
		for _, m := range g.Members {
			if m.ID == v.String {
				return m
			}
		}
		// An override naming no member falls through to normal matching.
	}

	for _, m := range g.Members {
		if m.When != nil && m.When.Eval(signals) {
			return m
		}
	}

	return g.Default()
}

// propagateDependencies force-selects the transitive dependencies of every
// selected module. The first reason assigned to a module wins; a module
// already selected on its own merit keeps that reason.
func propagateDependencies(reg *module.Registry, reasons map[string]Reason) error {
	queue := selectedInOrder(reg, reasons)

	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]

		for _, dep := range n.Requires {
			depNode, ok := reg.Node(dep)
			if !ok {
				// Load rejects unknown references; re-checked so a broken
				// registry can never produce a partial plan.
				return module.UnknownReferenceError{From: n.ID, To: dep}
			}

			if _, ok := reasons[dep]; ok {
				continue
			}

			reasons[dep] = Reason{Kind: ReasonDependency, Dependent: n.ID}
			queue = append(queue, depNode)
		}
	}

	return nil
}

func checkConflicts(reg *module.Registry, reasons map[string]Reason) error {
	for _, n := range selectedInOrder(reg, reasons) {
		for _, c := range n.ConflictsWith {
			if _, ok := reasons[c]; !ok {
				continue
			}

			other, _ := reg.Node(c)
			if other.Priority() < n.Priority() {
				return ConflictError{A: other.ID, B: n.ID}
			}

			return ConflictError{A: n.ID, B: other.ID}
		}
	}

	return nil
}

// orderSelection topologically sorts the selection by the dependency
// relation, breaking ties between incomparable modules by declaration order.
func orderSelection(reg *module.Registry, reasons map[string]Reason) ([]Entry, error) {
	selected := selectedInOrder(reg, reasons)

	g := graph.New(graph.StringHash, graph.Directed())

	for _, n := range selected {
		err := g.AddVertex(n.ID)
		if err != nil {
			return nil, fmt.Errorf("add vertex %q: %w", n.ID, err)
		}
	}

	for _, n := range selected {
		for _, dep := range n.Requires {
			// Dependency before dependent.
			err := g.AddEdge(dep, n.ID)
			if errors.Is(err, graph.ErrEdgeAlreadyExists) {
				continue
			}

			if err != nil {
				return nil, fmt.Errorf("add edge %q -> %q: %w", dep, n.ID, err)
			}
		}
	}

	order, err := graph.StableTopologicalSort(g, func(a, b string) bool {
		na, _ := reg.Node(a)
		nb, _ := reg.Node(b)

		return na.Priority() < nb.Priority()
	})
	if err != nil {
		return nil, fmt.Errorf("order selection: %w", err)
	}

	entries := make([]Entry, len(order))
	for i, id := range order {
		entries[i] = Entry{ID: id, Reason: reasons[id]}
	}

	return entries, nil
}

func selectedInOrder(reg *module.Registry, reasons map[string]Reason) []*module.Node {
	nodes := make([]*module.Node, 0, len(reasons))

	for _, n := range reg.AllNodes() {
		if _, ok := reasons[n.ID]; ok {
			nodes = append(nodes, n)
		}
	}

	return nodes
}
