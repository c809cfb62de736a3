package module

import (
	"fmt"
	"strings"
)

// DuplicateIDError reports an ID collision in the node set.
type DuplicateIDError struct {
	ID string
}

func (e DuplicateIDError) Error() string {
	return fmt.Sprintf("duplicate module id %q", e.ID)
}

// UnknownReferenceError reports a dependency or conflict edge pointing at an
// ID that is not in the node set.
type UnknownReferenceError struct {
	From string
	To   string
}

func (e UnknownReferenceError) Error() string {
	return fmt.Sprintf("module %q references unknown module %q", e.From, e.To)
}

// CycleError reports a cycle in the dependency graph. IDs lists the modules
// on the cycle in dependency order.
type CycleError struct {
	IDs []string
}

func (e CycleError) Error() string {
	return fmt.Sprintf("dependency cycle: %s", strings.Join(e.IDs, " -> "))
}

// TrackGroupError reports an invalid track group.
type TrackGroupError struct {
	Group  string
	Reason string
}

func (e TrackGroupError) Error() string {
	return fmt.Sprintf("track group %q: %s", e.Group, e.Reason)
}

// NodeError reports an invalid node definition.
type NodeError struct {
	ID  string
	Err error
}

func (e NodeError) Error() string {
	return fmt.Sprintf("module %q: %v", e.ID, e.Err)
}

func (e NodeError) Unwrap() error {
	return e.Err
}
