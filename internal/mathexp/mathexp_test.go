package mathexp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var intEnv = Env{
	Symbols: map[string]Type{"a": TypeInteger, "b": TypeInteger, "f": TypeInteger, "p": TypeBoolean},
	ForAll:  map[string]Type{"x": TypeInteger, "y": TypeInteger},
}

func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		src  string
		want string
		typ  Type
	}{
		{"equality", "x + 0 == x", "(x + 0) = x", TypeBoolean},
		{"inequality", "a != b", "a /= b", TypeBoolean},
		{"logic keywords", "p and not p", "p and not(p)", TypeBoolean},
		{"logic symbols", "p || !p", "p or not(p)", TypeBoolean},
		{"implication", "implies(a <= b, b >= a)", "(a <= b) implies (b >= a)", TypeBoolean},
		{"function call", "f(a, 1)", "f(a, 1)", TypeInteger},
		{"selector", "S.Length + 1", "S.Length + 1", TypeEntity},
		{"nested selector", "S.Top.Length", "S.Top.Length", TypeEntity},
		{"literal", "true", "true", TypeBoolean},
		{"negation", "-a", "-(a)", TypeInteger},
		{"conditional", "p ? a : b", "{{a if p; b otherwise}}", TypeInteger},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			e, err := Parse(tt.src, intEnv)
			require.NoError(t, err)
			assert.Equal(t, tt.want, e.String())
			assert.Equal(t, tt.typ, e.Type())
		})
	}
}

func TestParseErrors(t *testing.T) {
	t.Parallel()

	for _, src := range []string{"x +", "a ?? b", `"text"`} {
		_, err := Parse(src, intEnv)
		assert.Error(t, err, src)
	}
}

func TestParseQuantifiers(t *testing.T) {
	t.Parallel()

	e := MustParse("x + y == y + x", intEnv)
	vars := QuantifiedVariables(e)
	require.Len(t, vars, 2)
	assert.Equal(t, "x", vars[0].Name)
	assert.Equal(t, "y", vars[1].Name)
	assert.Equal(t, QuantForAll, vars[0].Quant)

	assert.Empty(t, QuantifiedVariables(MustParse("a + 0 == a", intEnv)))
}

func TestSplitIntoConjuncts(t *testing.T) {
	t.Parallel()

	e := MustParse("p and (a == b and b == 1) and a <= b", intEnv)
	parts := SplitIntoConjuncts(e)
	require.Len(t, parts, 4)
	assert.Equal(t, "p", parts[0].String())
	assert.Equal(t, "a = b", parts[1].String())
	assert.Equal(t, "b = 1", parts[2].String())
	assert.Equal(t, "a <= b", parts[3].String())

	single := SplitIntoConjuncts(MustParse("p or a == b", intEnv))
	assert.Len(t, single, 1)
	assert.Len(t, SplitIntoDisjuncts(single[0]), 2)
}

func TestSubstitute(t *testing.T) {
	t.Parallel()

	e := MustParse("x + 0 == x", intEnv)
	got := Substitute(e, map[string]Exp{"x": Sym("a", TypeInteger)})
	assert.Equal(t, "(a + 0) = a", got.String())
	assert.Empty(t, QuantifiedVariables(got))

	// whole sub-expressions can be replaced too
	got = Substitute(e, map[string]Exp{"x + 0": Sym("c", TypeInteger)})
	assert.Equal(t, "c = x", got.String())

	// lambda parameters shadow
	lam := Lambda{Params: []Symbol{Sym("x", TypeInteger)}, Body: Sym("x", TypeInteger), Typ: TypeInteger}
	assert.Equal(t, lam.String(), Substitute(lam, map[string]Exp{"x": Sym("a", TypeInteger)}).String())
}

func TestLiterals(t *testing.T) {
	t.Parallel()

	assert.True(t, IsLiteralTrue(True))
	assert.True(t, IsLiteralFalse(False))
	assert.False(t, IsLiteralTrue(Var("true", TypeBoolean)))
	assert.False(t, IsLiteralTrue(Eq(True, True)))
	assert.True(t, IsTrivialEquality(Eq(Sym("a", TypeInteger), Sym("a", TypeInteger))))
	assert.False(t, IsTrivialEquality(MustParse("a + 0 == a", intEnv)))
}

func TestSidesPanicsOnNonCall(t *testing.T) {
	t.Parallel()
	assert.Panics(t, func() { Sides(Sym("a", TypeInteger)) })
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		src     string
		integer bool
		want    string
	}{
		{"not", "not p", false, "p = false"},
		{"disequality", "a != b", false, "(a = b) = false"},
		{"greater or equal", "a >= b", false, "b <= a"},
		{"greater", "a > b", false, "b < a"},
		{"strict less without sorts", "a < b", false, "a < b"},
		{"strict less with sorts", "a < b", true, "(a + 1) <= b"},
		{"greater with sorts", "a > b", true, "(b + 1) <= a"},
		{"nested", "p and not (a >= b)", false, "p and ((b <= a) = false)"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			n := Normalizer{IntegerSorts: tt.integer}
			assert.Equal(t, tt.want, n.Normalize(MustParse(tt.src, intEnv)).String())
		})
	}
}

func TestSymbolNames(t *testing.T) {
	t.Parallel()
	names := SymbolNames(MustParse("f(a, x) == a + 0", intEnv))
	assert.Equal(t, []string{"=", "f", "a", "x", "+", "0"}, names)
}
