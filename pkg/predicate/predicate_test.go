package predicate_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/macropower/pick/pkg/predicate"
	"github.com/macropower/pick/pkg/signal"
)

func TestPredicate_Eval(t *testing.T) {
	t.Parallel()

	signals := signal.NewSet(map[string]signal.Value{
		"hasWebFramework": signal.NewBool(true),
		"hasGrpc":         signal.NewBool(false),
		"locCount":        signal.NewNumber(12000),
		"database":        signal.NewString("postgres"),
		"language":        signal.NewString("go1.25"),
	})

	tcs := map[string]struct {
		pred *predicate.Predicate
		want bool
	}{
		"nil predicate is always true": {
			pred: nil,
			want: true,
		},
		"eq bool match": {
			pred: predicate.Equal("hasWebFramework", signal.NewBool(true)),
			want: true,
		},
		"eq bool mismatch": {
			pred: predicate.Equal("hasGrpc", signal.NewBool(true)),
			want: false,
		},
		"eq missing key is false": {
			pred: predicate.Equal("hasCli", signal.NewBool(true)),
			want: false,
		},
		"eq kind mismatch is false": {
			pred: predicate.Equal("locCount", signal.NewString("12000")),
			want: false,
		},
		"ne differing value": {
			pred: predicate.Atom("database", predicate.OpNotEqual, signal.NewString("sqlite")),
			want: true,
		},
		"ne kind mismatch is false not inverted": {
			pred: predicate.Atom("database", predicate.OpNotEqual, signal.NewNumber(1)),
			want: false,
		},
		"ne missing key is false": {
			pred: predicate.Atom("missing", predicate.OpNotEqual, signal.NewString("x")),
			want: false,
		},
		"gt": {
			pred: predicate.GreaterThan("locCount", 10000),
			want: true,
		},
		"gt equal boundary": {
			pred: predicate.GreaterThan("locCount", 12000),
			want: false,
		},
		"ge equal boundary": {
			pred: predicate.Atom("locCount", predicate.OpGreaterOrEqual, signal.NewNumber(12000)),
			want: true,
		},
		"lt": {
			pred: predicate.Atom("locCount", predicate.OpLessThan, signal.NewNumber(10000)),
			want: false,
		},
		"le": {
			pred: predicate.Atom("locCount", predicate.OpLessOrEqual, signal.NewNumber(12000)),
			want: true,
		},
		"numeric op on non-number is false": {
			pred: predicate.GreaterThan("database", 0),
			want: false,
		},
		"in member": {
			pred: &predicate.Predicate{
				Key: "database",
				Op:  predicate.OpIn,
				Values: []signal.Value{
					signal.NewString("postgres"),
					signal.NewString("sqlite"),
				},
			},
			want: true,
		},
		"in non-member": {
			pred: &predicate.Predicate{
				Key: "database",
				Op:  predicate.OpIn,
				Values: []signal.Value{
					signal.NewString("mysql"),
				},
			},
			want: false,
		},
		"matches": {
			pred: predicate.Atom("language", predicate.OpMatches, signal.NewString(`^go1\.`)),
			want: true,
		},
		"matches against non-string is false": {
			pred: predicate.Atom("locCount", predicate.OpMatches, signal.NewString(`.*`)),
			want: false,
		},
		"all": {
			pred: predicate.AllOf(
				predicate.Equal("hasWebFramework", signal.NewBool(true)),
				predicate.GreaterThan("locCount", 10000),
			),
			want: true,
		},
		"all short-circuits false": {
			pred: predicate.AllOf(
				predicate.Equal("hasGrpc", signal.NewBool(true)),
				predicate.Equal("hasWebFramework", signal.NewBool(true)),
			),
			want: false,
		},
		"any": {
			pred: predicate.AnyOf(
				predicate.Equal("hasGrpc", signal.NewBool(true)),
				predicate.Equal("hasWebFramework", signal.NewBool(true)),
			),
			want: true,
		},
		"any all false": {
			pred: predicate.AnyOf(
				predicate.Equal("hasGrpc", signal.NewBool(true)),
				predicate.Equal("hasCli", signal.NewBool(true)),
			),
			want: false,
		},
		"not": {
			pred: predicate.Not(predicate.Equal("hasGrpc", signal.NewBool(true))),
			want: true,
		},
		"not of missing key is true": {
			pred: predicate.Not(predicate.Equal("missing", signal.NewBool(true))),
			want: true,
		},
		"nested": {
			pred: predicate.AllOf(
				predicate.AnyOf(
					predicate.Equal("database", signal.NewString("postgres")),
					predicate.Equal("database", signal.NewString("sqlite")),
				),
				predicate.Not(predicate.GreaterThan("locCount", 100000)),
			),
			want: true,
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			if tc.pred != nil {
				require.NoError(t, tc.pred.Validate())
			}

			assert.Equal(t, tc.want, tc.pred.Eval(signals))
		})
	}
}

func TestPredicate_Validate(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		pred    *predicate.Predicate
		errMsg  string
		wantErr bool
	}{
		"valid atom": {
			pred: predicate.Equal("a", signal.NewBool(true)),
		},
		"valid in": {
			pred: &predicate.Predicate{
				Key:    "a",
				Op:     predicate.OpIn,
				Values: []signal.Value{signal.NewString("x")},
			},
		},
		"valid matches": {
			pred: predicate.Atom("a", predicate.OpMatches, signal.NewString(`^v\d+$`)),
		},
		"empty predicate": {
			pred:    &predicate.Predicate{},
			wantErr: true,
			errMsg:  "exactly one of",
		},
		"atom and all together": {
			pred: &predicate.Predicate{
				Key:   "a",
				Op:    predicate.OpEqual,
				Value: ptr(signal.NewBool(true)),
				All:   []*predicate.Predicate{predicate.Equal("b", signal.NewBool(true))},
			},
			wantErr: true,
			errMsg:  "exactly one of",
		},
		"atom missing key": {
			pred: &predicate.Predicate{
				Op:    predicate.OpEqual,
				Value: ptr(signal.NewBool(true)),
			},
			wantErr: true,
			errMsg:  "missing a signal key",
		},
		"unknown comparator": {
			pred: &predicate.Predicate{
				Key:   "a",
				Op:    "like",
				Value: ptr(signal.NewString("x")),
			},
			wantErr: true,
			errMsg:  `unknown comparator "like"`,
		},
		"in without values": {
			pred: &predicate.Predicate{
				Key:   "a",
				Op:    predicate.OpIn,
				Value: ptr(signal.NewString("x")),
			},
			wantErr: true,
			errMsg:  "requires values",
		},
		"eq with values list": {
			pred: &predicate.Predicate{
				Key:    "a",
				Op:     predicate.OpEqual,
				Values: []signal.Value{signal.NewString("x")},
			},
			wantErr: true,
			errMsg:  "requires a single value",
		},
		"matches with non-string pattern": {
			pred:    predicate.Atom("a", predicate.OpMatches, signal.NewNumber(1)),
			wantErr: true,
			errMsg:  "requires a string pattern",
		},
		"matches with invalid regexp": {
			pred:    predicate.Atom("a", predicate.OpMatches, signal.NewString(`([`)),
			wantErr: true,
			errMsg:  "compile pattern",
		},
		"invalid child in all": {
			pred: predicate.AllOf(
				predicate.Equal("a", signal.NewBool(true)),
				&predicate.Predicate{},
			),
			wantErr: true,
			errMsg:  "child 1",
		},
		"invalid child in not": {
			pred:    predicate.Not(&predicate.Predicate{}),
			wantErr: true,
			errMsg:  "exactly one of",
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			err := tc.pred.Validate()

			if tc.wantErr {
				require.ErrorContains(t, err, tc.errMsg)

				return
			}

			require.NoError(t, err)
		})
	}
}

func ptr[T any](v T) *T {
	return &v
}
