// Package predicate implements the boolean expression grammar used to decide
// whether a module applies to a project.
//
// A predicate is a small tree: leaves compare one signal against a literal,
// and interior nodes combine children with all (AND), any (OR), or not.
// Evaluation against a [signal.Set] is pure and total. An atom that
// references a missing signal evaluates to false, never an error; a project
// simply lacking a signal must not halt resolution. The same policy applies
// to kind-mismatched comparisons.
//
// The grammar is deliberately closed. Predicates are data: they can be
// authored in YAML, checked against a schema, and enumerated by tooling,
// which an embedded expression language would not allow.
package predicate

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/macropower/pick/pkg/signal"
)

// Op compares a signal value against a literal.
type Op string

const (
	OpEqual          Op = "eq"
	OpNotEqual       Op = "ne"
	OpGreaterThan    Op = "gt"
	OpGreaterOrEqual Op = "ge"
	OpLessThan       Op = "lt"
	OpLessOrEqual    Op = "le"
	OpIn             Op = "in"
	OpMatches        Op = "matches"
)

// AllOps contains every valid comparator.
var AllOps = []Op{
	OpEqual,
	OpNotEqual,
	OpGreaterThan,
	OpGreaterOrEqual,
	OpLessThan,
	OpLessOrEqual,
	OpIn,
	OpMatches,
}

var errInvalidPredicate = errors.New("invalid predicate")

// Predicate is one node of the expression tree. Exactly one form must be
// populated: an atom (Key and Op, with Value or Values depending on the
// comparator), All, Any, or Not.
type Predicate struct {
	// Key is the signal key an atom reads.
	Key string `json:"key,omitempty" jsonschema:"title=Signal Key"`
	// Op is the comparator applied to the signal value.
	Op Op `json:"op,omitempty" jsonschema:"title=Comparator,enum=eq,enum=ne,enum=gt,enum=ge,enum=lt,enum=le,enum=in,enum=matches"`
	// Value is the literal compared against, for all comparators except "in".
	Value *signal.Value `json:"value,omitempty" jsonschema:"title=Literal"`
	// Values lists the accepted literals for the "in" comparator.
	Values []signal.Value `json:"values,omitempty" jsonschema:"title=Literals"`

	// All is true iff every child predicate is true.
	All []*Predicate `json:"all,omitempty" jsonschema:"title=All Of"`
	// Any is true iff at least one child predicate is true.
	Any []*Predicate `json:"any,omitempty" jsonschema:"title=Any Of"`
	// Not negates its child predicate.
	Not *Predicate `json:"not,omitempty" jsonschema:"title=Not"`

	re *regexp.Regexp
}

// Atom creates a leaf predicate comparing one signal against a literal.
func Atom(key string, op Op, value signal.Value) *Predicate {
	return &Predicate{Key: key, Op: op, Value: &value}
}

// Equal creates an equality atom.
func Equal(key string, value signal.Value) *Predicate {
	return Atom(key, OpEqual, value)
}

// GreaterThan creates a numeric greater-than atom.
func GreaterThan(key string, value float64) *Predicate {
	return Atom(key, OpGreaterThan, signal.NewNumber(value))
}

// AllOf combines predicates with AND.
func AllOf(ps ...*Predicate) *Predicate {
	return &Predicate{All: ps}
}

// AnyOf combines predicates with OR.
func AnyOf(ps ...*Predicate) *Predicate {
	return &Predicate{Any: ps}
}

// Not negates a predicate.
func Not(p *Predicate) *Predicate {
	return &Predicate{Not: p}
}

// Validate checks that exactly one form is populated and that the comparator
// matches its operands, and compiles any "matches" patterns. It must be
// called before concurrent use of [Predicate.Eval].
func (p *Predicate) Validate() error {
	forms := 0
	if p.Key != "" || p.Op != "" || p.Value != nil || len(p.Values) > 0 {
		forms++
	}

	if len(p.All) > 0 {
		forms++
	}

	if len(p.Any) > 0 {
		forms++
	}

	if p.Not != nil {
		forms++
	}

	if forms != 1 {
		return fmt.Errorf("%w: exactly one of key/op, all, any, not must be set", errInvalidPredicate)
	}

	switch {
	case len(p.All) > 0:
		return validateChildren(p.All)

	case len(p.Any) > 0:
		return validateChildren(p.Any)

	case p.Not != nil:
		return p.Not.Validate()
	}

	return p.validateAtom()
}

func validateChildren(ps []*Predicate) error {
	for i, child := range ps {
		err := child.Validate()
		if err != nil {
			return fmt.Errorf("child %d: %w", i, err)
		}
	}

	return nil
}

func (p *Predicate) validateAtom() error {
	if p.Key == "" {
		return fmt.Errorf("%w: atom is missing a signal key", errInvalidPredicate)
	}

	switch p.Op {
	case OpIn:
		if p.Value != nil || len(p.Values) == 0 {
			return fmt.Errorf("%w: comparator %q requires values", errInvalidPredicate, p.Op)
		}

	case OpEqual, OpNotEqual, OpGreaterThan, OpGreaterOrEqual, OpLessThan, OpLessOrEqual:
		if p.Value == nil || len(p.Values) > 0 {
			return fmt.Errorf("%w: comparator %q requires a single value", errInvalidPredicate, p.Op)
		}

	case OpMatches:
		if p.Value == nil || p.Value.Kind != signal.KindString {
			return fmt.Errorf("%w: comparator %q requires a string pattern", errInvalidPredicate, p.Op)
		}

		re, err := regexp.Compile(p.Value.String)
		if err != nil {
			return fmt.Errorf("%w: compile pattern: %w", errInvalidPredicate, err)
		}

		p.re = re

	default:
		return fmt.Errorf("%w: unknown comparator %q", errInvalidPredicate, p.Op)
	}

	return nil
}

// Eval evaluates the predicate against a signal set. A nil predicate is
// always true, matching the always-true predicate of core modules.
func (p *Predicate) Eval(set *signal.Set) bool {
	if p == nil {
		return true
	}

	switch {
	case len(p.All) > 0:
		for _, child := range p.All {
			if !child.Eval(set) {
				return false
			}
		}

		return true

	case len(p.Any) > 0:
		for _, child := range p.Any {
			if child.Eval(set) {
				return true
			}
		}

		return false

	case p.Not != nil:
		return !p.Not.Eval(set)
	}

	return p.evalAtom(set)
}

func (p *Predicate) evalAtom(set *signal.Set) bool {
	v, ok := set.Get(p.Key)
	if !ok {
		return false
	}

	switch p.Op {
	case OpEqual:
		return p.Value != nil && v.Equal(*p.Value)

	case OpNotEqual:
		// A kind mismatch is a non-match, not an inverted match.
		return p.Value != nil && v.Kind == p.Value.Kind && !v.Equal(*p.Value)

	case OpGreaterThan, OpGreaterOrEqual, OpLessThan, OpLessOrEqual:
		if p.Value == nil || v.Kind != signal.KindNumber || p.Value.Kind != signal.KindNumber {
			return false
		}

		return compareNumbers(p.Op, v.Number, p.Value.Number)

	case OpIn:
		for _, want := range p.Values {
			if v.Equal(want) {
				return true
			}
		}

		return false

	case OpMatches:
		if v.Kind != signal.KindString || p.Value == nil {
			return false
		}

		re := p.re
		if re == nil {
			// Not compiled via Validate; compile without caching to keep
			// Eval safe for concurrent use.
			var err error

			re, err = regexp.Compile(p.Value.String)
			if err != nil {
				return false
			}
		}

		return re.MatchString(v.String)
	}

	return false
}

func compareNumbers(op Op, got, want float64) bool {
	switch op {
	case OpGreaterThan:
		return got > want
	case OpGreaterOrEqual:
		return got >= want
	case OpLessThan:
		return got < want
	case OpLessOrEqual:
		return got <= want
	}

	return false
}
