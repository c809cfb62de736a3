package signal

import (
	"fmt"
	"slices"

	"github.com/mitchellh/hashstructure/v2"
)

// Set is an immutable snapshot of signals for one resolution. The values are
// copied on construction; a Set is safe for concurrent reads.
type Set struct {
	values map[string]Value
	hash   string
}

// NewSet creates a [Set] from the given values. The input map is copied and
// may be reused by the caller. A nil map yields an empty set.
func NewSet(values map[string]Value) *Set {
	vs := make(map[string]Value, len(values))
	for k, v := range values {
		vs[k] = v
	}

	h, err := hashstructure.Hash(vs, hashstructure.FormatV2, nil)
	if err != nil {
		// Shape is map[string]Value with scalar fields only; hashing cannot
		// fail for it.
		panic(fmt.Errorf("hash signal set: %w", err))
	}

	return &Set{
		values: vs,
		hash:   fmt.Sprintf("%016x", h),
	}
}

// Empty returns a [Set] with no signals.
func Empty() *Set {
	return NewSet(nil)
}

// Get returns the value for key and whether it is present.
func (s *Set) Get(key string) (Value, bool) {
	v, ok := s.values[key]

	return v, ok
}

// Len returns the number of signals in the set.
func (s *Set) Len() int {
	return len(s.values)
}

// Keys returns the signal keys in sorted order.
func (s *Set) Keys() []string {
	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}

	slices.Sort(keys)

	return keys
}

// Hash returns a deterministic structural hash of the set. Two sets with
// equal keys and values always produce the same hash, independent of
// insertion order.
func (s *Set) Hash() string {
	return s.hash
}

// Equal reports whether two sets contain the same signals. A nil set equals
// nothing.
func (s *Set) Equal(other *Set) bool {
	if other == nil {
		return false
	}

	return s.hash == other.hash && len(s.values) == len(other.values)
}
