// Package decision keeps the last resolution per project and reports
// module-level deltas as signals change.
//
// The cache is the only mutable state around the resolver. Entries for
// different projects are independent; updates to one entry are serialized so
// concurrent resolutions for the same project cannot race to divergent
// diffs.
package decision

import (
	"sync"

	"github.com/macropower/pick/pkg/module"
	"github.com/macropower/pick/pkg/resolver"
	"github.com/macropower/pick/pkg/signal"
)

// Cache stores the last plan per project identity.
type Cache struct {
	entries map[string]*entry
	mu      sync.Mutex
}

type entry struct {
	plan *resolver.Plan
	mu   sync.Mutex
}

// NewCache creates an empty [Cache].
func NewCache() *Cache {
	return &Cache{
		entries: make(map[string]*entry),
	}
}

// Resolve returns the plan for a project and the diff against the previous
// plan.
//
// If the project's cached plan was resolved from a signal set with the same
// hash, the cached plan is returned with an empty diff and the resolver does
// not run: identical repeated calls never recompute, and signal churn that
// does not change the set is never reported as a module-level change. The
// diff is also empty on a project's first resolution.
//
// A resolution error leaves any prior entry untouched.
func (c *Cache) Resolve(projectID string, reg *module.Registry, signals *signal.Set) (*resolver.Plan, Diff, error) {
	e := c.entry(projectID)

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.plan != nil && e.plan.SignalHash == signals.Hash() {
		return e.plan, Diff{}, nil
	}

	plan, err := resolver.Resolve(reg, signals)
	if err != nil {
		return nil, Diff{}, err
	}

	diff := diffPlans(e.plan, plan)
	e.plan = plan

	return plan, diff, nil
}

// Plan returns the last stored plan for a project, if any.
func (c *Cache) Plan(projectID string) (*resolver.Plan, bool) {
	c.mu.Lock()
	e, ok := c.entries[projectID]
	c.mu.Unlock()

	if !ok {
		return nil, false
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.plan == nil {
		return nil, false
	}

	return e.plan, true
}

// Invalidate drops a project's entry, forcing full recomputation on the next
// [Cache.Resolve].
func (c *Cache) Invalidate(projectID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, projectID)
}

func (c *Cache) entry(projectID string) *entry {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[projectID]
	if !ok {
		e = &entry{}
		c.entries[projectID] = e
	}

	return e
}
