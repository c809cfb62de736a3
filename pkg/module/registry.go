package module

import (
	"errors"
	"fmt"
	"slices"

	"github.com/dominikbraun/graph"
)

// Registry is an immutable, validated module catalog. It is built once by
// [Load] and safely shared for concurrent reads; resolution correctness
// depends on the registry never changing mid-resolution.
type Registry struct {
	nodes  map[string]*Node
	order  []*Node
	groups []TrackGroup
}

// Load validates the node list and builds a [Registry]. Nodes are copied;
// the caller's slice may be reused. Declaration order defines priority.
//
// Load fails with [DuplicateIDError], [UnknownReferenceError],
// [TrackGroupError], [NodeError], or [CycleError]. All are fatal; a registry
// is never built from a partially valid node set.
func Load(nodes []*Node) (*Registry, error) {
	r := &Registry{
		nodes: make(map[string]*Node, len(nodes)),
		order: make([]*Node, 0, len(nodes)),
	}

	for i, n := range nodes {
		if n.ID == "" {
			return nil, NodeError{ID: n.ID, Err: errors.New("missing id")}
		}

		if _, ok := r.nodes[n.ID]; ok {
			return nil, DuplicateIDError{ID: n.ID}
		}

		cp := *n
		cp.Requires = slices.Clone(n.Requires)
		cp.ConflictsWith = slices.Clone(n.ConflictsWith)
		cp.priority = i

		err := validateNode(&cp)
		if err != nil {
			return nil, err
		}

		r.nodes[cp.ID] = &cp
		r.order = append(r.order, &cp)
	}

	err := r.checkReferences()
	if err != nil {
		return nil, err
	}

	err = r.buildTrackGroups()
	if err != nil {
		return nil, err
	}

	err = r.checkCycles()
	if err != nil {
		return nil, err
	}

	return r, nil
}

// MustLoad builds a [Registry] and panics on error.
func MustLoad(nodes []*Node) *Registry {
	r, err := Load(nodes)
	if err != nil {
		panic(err)
	}

	return r
}

// Node returns the node with the given ID.
func (r *Registry) Node(id string) (*Node, bool) {
	n, ok := r.nodes[id]

	return n, ok
}

// AllNodes returns every node in declaration order. The slice is a copy;
// the nodes are shared and must not be mutated.
func (r *Registry) AllNodes() []*Node {
	return slices.Clone(r.order)
}

// TrackGroups returns every track group, in order of first member
// declaration, members in declaration order.
func (r *Registry) TrackGroups() []TrackGroup {
	groups := make([]TrackGroup, len(r.groups))
	for i, g := range r.groups {
		groups[i] = TrackGroup{Name: g.Name, Members: slices.Clone(g.Members)}
	}

	return groups
}

// Len returns the number of nodes in the registry.
func (r *Registry) Len() int {
	return len(r.order)
}

func validateNode(n *Node) error {
	switch n.Category {
	case CategoryCore:
		if n.When != nil {
			return NodeError{ID: n.ID, Err: errors.New("core modules are always selected and must not declare a predicate")}
		}

		if n.Track != "" || n.Default {
			return NodeError{ID: n.ID, Err: errors.New("core modules cannot belong to a track")}
		}

	case CategoryTrack:
		if n.Track == "" {
			return NodeError{ID: n.ID, Err: errors.New("track modules must name a track group")}
		}

	case CategoryFeature:
		if n.Track != "" || n.Default {
			return NodeError{ID: n.ID, Err: errors.New("feature modules cannot belong to a track")}
		}

		if n.When == nil {
			return NodeError{ID: n.ID, Err: errors.New("feature modules must declare a predicate")}
		}

	default:
		return NodeError{ID: n.ID, Err: fmt.Errorf("unknown category %q", n.Category)}
	}

	if n.When != nil {
		err := n.When.Validate()
		if err != nil {
			return NodeError{ID: n.ID, Err: err}
		}
	}

	return nil
}

func (r *Registry) checkReferences() error {
	for _, n := range r.order {
		for _, dep := range n.Requires {
			if _, ok := r.nodes[dep]; !ok {
				return UnknownReferenceError{From: n.ID, To: dep}
			}
		}

		for _, c := range n.ConflictsWith {
			if _, ok := r.nodes[c]; !ok {
				return UnknownReferenceError{From: n.ID, To: c}
			}
		}
	}

	return nil
}

func (r *Registry) buildTrackGroups() error {
	byName := make(map[string]int)

	for _, n := range r.order {
		if n.Category != CategoryTrack {
			continue
		}

		idx, ok := byName[n.Track]
		if !ok {
			idx = len(r.groups)
			byName[n.Track] = idx
			r.groups = append(r.groups, TrackGroup{Name: n.Track})
		}

		r.groups[idx].Members = append(r.groups[idx].Members, n)
	}

	for _, g := range r.groups {
		if len(g.Members) < 2 {
			return TrackGroupError{Group: g.Name, Reason: "must have at least two members"}
		}

		defaults := 0
		for _, m := range g.Members {
			if m.Default {
				defaults++
			}
		}

		if defaults != 1 {
			return TrackGroupError{
				Group:  g.Name,
				Reason: fmt.Sprintf("must designate exactly one default member, found %d", defaults),
			}
		}
	}

	return nil
}

// checkCycles rejects any cycle in the dependency graph. Conflict edges are
// not part of the graph.
func (r *Registry) checkCycles() error {
	g := graph.New(graph.StringHash, graph.Directed(), graph.PreventCycles())

	for _, n := range r.order {
		err := g.AddVertex(n.ID)
		if err != nil {
			return fmt.Errorf("add vertex %q: %w", n.ID, err)
		}
	}

	for _, n := range r.order {
		for _, dep := range n.Requires {
			err := g.AddEdge(n.ID, dep)
			if err == nil || errors.Is(err, graph.ErrEdgeAlreadyExists) {
				continue
			}

			if errors.Is(err, graph.ErrEdgeCreatesCycle) {
				return CycleError{IDs: cyclePath(g, dep, n.ID)}
			}

			return fmt.Errorf("add edge %q -> %q: %w", n.ID, dep, err)
		}
	}

	return nil
}

// cyclePath recovers the modules on a rejected cycle: the path from the
// dependency back to the dependent, which the new edge would have closed.
func cyclePath(g graph.Graph[string, string], from, to string) []string {
	if from == to {
		return []string{from}
	}

	path, err := graph.ShortestPath(g, from, to)
	if err != nil {
		return []string{from, to}
	}

	return path
}
