package decision_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/macropower/pick/pkg/decision"
	"github.com/macropower/pick/pkg/module"
	"github.com/macropower/pick/pkg/predicate"
	"github.com/macropower/pick/pkg/resolver"
	"github.com/macropower/pick/pkg/signal"
)

func testRegistry(t *testing.T) *module.Registry {
	t.Helper()

	reg, err := module.Load([]*module.Node{
		{ID: "conventions", Category: module.CategoryCore},
		{
			ID:       "web",
			Category: module.CategoryFeature,
			When:     predicate.Equal("hasWebFramework", signal.NewBool(true)),
			Requires: []string{"serialization"},
		},
		{
			ID:       "serialization",
			Category: module.CategoryFeature,
			When:     predicate.Equal("needsSerde", signal.NewBool(true)),
		},
	})
	require.NoError(t, err)

	return reg
}

func TestCache_Resolve(t *testing.T) {
	t.Parallel()

	reg := testRegistry(t)
	cache := decision.NewCache()

	// First resolution: full plan, empty diff.
	plan, diff, err := cache.Resolve("svc", reg, signal.NewSet(map[string]signal.Value{
		"hasWebFramework": signal.NewBool(true),
	}))
	require.NoError(t, err)
	assert.Equal(t, []string{"conventions", "serialization", "web"}, plan.ModuleIDs())
	assert.True(t, diff.Empty())

	// Same signals again: cached plan, no recomputation observable, empty
	// diff.
	again, diff, err := cache.Resolve("svc", reg, signal.NewSet(map[string]signal.Value{
		"hasWebFramework": signal.NewBool(true),
	}))
	require.NoError(t, err)
	assert.Same(t, plan, again)
	assert.True(t, diff.Empty())

	// Signal removed: web and its forced dependency drop out.
	plan, diff, err = cache.Resolve("svc", reg, signal.Empty())
	require.NoError(t, err)
	assert.Equal(t, []string{"conventions"}, plan.ModuleIDs())
	assert.Empty(t, diff.Added)
	assert.Equal(t, []string{"serialization", "web"}, diff.Removed)

	// Signal back: the same modules return as additions, in plan order.
	_, diff, err = cache.Resolve("svc", reg, signal.NewSet(map[string]signal.Value{
		"hasWebFramework": signal.NewBool(true),
	}))
	require.NoError(t, err)
	assert.Equal(t, []string{"serialization", "web"}, diff.Added)
	assert.Empty(t, diff.Removed)
}

func TestCache_ProjectsAreIndependent(t *testing.T) {
	t.Parallel()

	reg := testRegistry(t)
	cache := decision.NewCache()

	_, _, err := cache.Resolve("a", reg, signal.NewSet(map[string]signal.Value{
		"hasWebFramework": signal.NewBool(true),
	}))
	require.NoError(t, err)

	// A differing plan for another project must not produce a diff against
	// project a's entry.
	plan, diff, err := cache.Resolve("b", reg, signal.Empty())
	require.NoError(t, err)
	assert.Equal(t, []string{"conventions"}, plan.ModuleIDs())
	assert.True(t, diff.Empty())

	stored, ok := cache.Plan("a")
	require.True(t, ok)
	assert.True(t, stored.Has("web"))
}

func TestCache_Plan(t *testing.T) {
	t.Parallel()

	reg := testRegistry(t)
	cache := decision.NewCache()

	_, ok := cache.Plan("svc")
	assert.False(t, ok)

	want, _, err := cache.Resolve("svc", reg, signal.Empty())
	require.NoError(t, err)

	got, ok := cache.Plan("svc")
	require.True(t, ok)
	assert.Same(t, want, got)
}

func TestCache_Invalidate(t *testing.T) {
	t.Parallel()

	reg := testRegistry(t)
	cache := decision.NewCache()

	signals := signal.NewSet(map[string]signal.Value{
		"needsSerde": signal.NewBool(true),
	})

	_, _, err := cache.Resolve("svc", reg, signals)
	require.NoError(t, err)

	cache.Invalidate("svc")

	_, ok := cache.Plan("svc")
	assert.False(t, ok)

	// After invalidation the next resolution is treated as the first: the
	// diff is empty even though the plan is recomputed.
	plan, diff, err := cache.Resolve("svc", reg, signals)
	require.NoError(t, err)
	assert.Equal(t, []string{"conventions", "serialization"}, plan.ModuleIDs())
	assert.True(t, diff.Empty())
}

func TestCache_ErrorKeepsPriorPlan(t *testing.T) {
	t.Parallel()

	reg, err := module.Load([]*module.Node{
		{
			ID:       "light",
			Category: module.CategoryFeature,
			When:     predicate.Equal("wantLight", signal.NewBool(true)),
		},
		{
			ID:            "heavy",
			Category:      module.CategoryFeature,
			When:          predicate.Equal("wantHeavy", signal.NewBool(true)),
			ConflictsWith: []string{"light"},
		},
	})
	require.NoError(t, err)

	cache := decision.NewCache()

	want, _, err := cache.Resolve("svc", reg, signal.NewSet(map[string]signal.Value{
		"wantLight": signal.NewBool(true),
	}))
	require.NoError(t, err)

	_, _, err = cache.Resolve("svc", reg, signal.NewSet(map[string]signal.Value{
		"wantLight": signal.NewBool(true),
		"wantHeavy": signal.NewBool(true),
	}))

	var conflictErr resolver.ConflictError

	require.ErrorAs(t, err, &conflictErr)

	got, ok := cache.Plan("svc")
	require.True(t, ok)
	assert.Same(t, want, got)
}

func TestCache_ConcurrentResolve(t *testing.T) {
	t.Parallel()

	reg := testRegistry(t)
	cache := decision.NewCache()

	signals := signal.NewSet(map[string]signal.Value{
		"hasWebFramework": signal.NewBool(true),
	})

	var wg sync.WaitGroup

	for i := range 32 {
		projectID := "even"
		if i%2 == 1 {
			projectID = "odd"
		}

		wg.Add(1)

		go func() {
			defer wg.Done()

			plan, _, err := cache.Resolve(projectID, reg, signals)

			assert.NoError(t, err)
			assert.Equal(t, []string{"conventions", "serialization", "web"}, plan.ModuleIDs())
		}()
	}

	wg.Wait()
}

func TestDiff_Empty(t *testing.T) {
	t.Parallel()

	assert.True(t, decision.Diff{}.Empty())
	assert.False(t, decision.Diff{Added: []string{"web"}}.Empty())
	assert.False(t, decision.Diff{Removed: []string{"web"}}.Empty())
}
