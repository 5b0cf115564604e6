package prover

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnolang/vcprove/internal/congruence"
	"github.com/gnolang/vcprove/internal/mathexp"
	"github.com/gnolang/vcprove/internal/types"
)

var env = mathexp.Env{
	Symbols: map[string]mathexp.Type{
		"a": mathexp.TypeInteger, "b": mathexp.TypeInteger,
		"c": mathexp.TypeInteger, "d": mathexp.TypeInteger,
		"f": mathexp.TypeInteger, "g": mathexp.TypeInteger, "h": mathexp.TypeInteger,
		"p": mathexp.TypeBoolean, "q": mathexp.TypeBoolean,
		"flag": mathexp.TypeBoolean,
	},
	ForAll: map[string]mathexp.Type{"x": mathexp.TypeInteger, "y": mathexp.TypeInteger},
}

type fakeSource struct {
	theorems []types.TheoremSymbol
	err      error
	symbols  map[string]types.MathSymbol
}

func (s *fakeSource) Theorems(string, types.ImportStrategy, types.FacilityStrategy) ([]types.TheoremSymbol, error) {
	return s.theorems, s.err
}

func (s *fakeSource) LookupMathSymbol(_, name string) (types.MathSymbol, bool) {
	sym, ok := s.symbols[name]
	return sym, ok
}

func theorem(name, src string) types.TheoremSymbol {
	return types.TheoremSymbol{Name: name, Module: "Test", Assertion: mathexp.MustParse(src, env)}
}

func vc(id int, left, right []string) types.VC {
	var seq types.Sequent
	for _, l := range left {
		seq.Left = append(seq.Left, mathexp.MustParse(l, env))
	}
	for _, r := range right {
		seq.Right = append(seq.Right, mathexp.MustParse(r, env))
	}
	return types.VC{ID: id, Explanation: "test", Sequent: seq}
}

type step struct {
	theorem string
	fact    string
}

type recordingListener struct {
	mu       sync.Mutex
	started  []int
	steps    []step
	finished []types.Result
}

func (l *recordingListener) ObligationStarted(id, _ int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.started = append(l.started, id)
}

func (l *recordingListener) StepApplied(_ int, theorem, fact string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.steps = append(l.steps, step{theorem, fact})
}

func (l *recordingListener) ObligationFinished(res types.Result, _ int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.finished = append(l.finished, res)
}

func quickConfig() Config {
	cfg := DefaultConfig()
	cfg.Timeout = time.Second
	return cfg
}

func TestProveScenarios(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		theorems []types.TheoremSymbol
		vc       types.VC
		status   types.Status
		steps    int
	}{
		{
			name:   "trivial self equality",
			vc:     vc(1, nil, []string{"a == a"}),
			status: types.Proved,
			steps:  0,
		},
		{
			name:     "one step rewrite",
			theorems: []types.TheoremSymbol{theorem("Zero_Additive", "x + 0 == x")},
			vc:       vc(2, nil, []string{"a + 0 == a"}),
			status:   types.Proved,
			steps:    1,
		},
		{
			name:     "vacuous truth",
			theorems: []types.TheoremSymbol{theorem("Zero_Additive", "x + 0 == x")},
			vc:       vc(3, []string{"flag == true", "flag == false"}, []string{"a == b"}),
			status:   types.FalseAssumption,
			steps:    0,
		},
		{
			name:   "antecedent gives goal",
			vc:     vc(4, []string{"a == b", "b == c"}, []string{"a == c"}),
			status: types.Proved,
			steps:  0,
		},
		{
			name:     "implication",
			theorems: []types.TheoremSymbol{theorem("P_Implies_Q", "implies(p(x), q(x))")},
			vc:       vc(5, []string{"p(a)"}, []string{"q(a)"}),
			status:   types.Proved,
			steps:    1,
		},
		{
			name:   "disjunctive goal",
			vc:     vc(6, []string{"a == b"}, []string{"c == d or a == b"}),
			status: types.Proved,
		},
		{
			name:   "out of theorems",
			vc:     vc(7, nil, []string{"a == b"}),
			status: types.StillEvaluating,
		},
		{
			name:   "negated antecedent",
			vc:     vc(8, []string{"not flag", "flag"}, []string{"a == b"}),
			status: types.FalseAssumption,
		},
		{
			name:     "equation written left to right",
			theorems: []types.TheoremSymbol{theorem("F_Zero", "(f(x) == 0) == (x == a)")},
			vc:       vc(9, []string{"b == a"}, []string{"f(b) == 0"}),
			status:   types.Proved,
			steps:    1,
		},
		{
			name:     "equation written right to left",
			theorems: []types.TheoremSymbol{theorem("F_Zero", "(f(x) == 0) == (x == a)")},
			vc:       vc(10, []string{"b == a"}, []string{"0 == f(b)"}),
			status:   types.Proved,
			steps:    1,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p, err := New("Test", []types.VC{tt.vc}, &fakeSource{theorems: tt.theorems}, quickConfig())
			require.NoError(t, err)

			results, err := p.Start(context.Background())
			require.NoError(t, err)
			require.Len(t, results, 1)
			assert.Equal(t, tt.status, results[0].Status)
			assert.Equal(t, tt.steps, results[0].Steps)
			assert.Equal(t, tt.vc.ID, results[0].ID)
		})
	}
}

func TestOneStepRewriteBindsVariable(t *testing.T) {
	t.Parallel()

	listener := &recordingListener{}
	source := &fakeSource{theorems: []types.TheoremSymbol{theorem("Zero_Additive", "x + 0 == x")}}
	p, err := New("Test", []types.VC{vc(1, nil, []string{"a + 0 == a"})}, source, quickConfig(),
		WithListener(listener))
	require.NoError(t, err)

	results, err := p.Start(context.Background())
	require.NoError(t, err)
	assert.Equal(t, types.Proved, results[0].Status)

	require.Len(t, listener.steps, 1)
	assert.Equal(t, "Zero_Additive_left", listener.steps[0].theorem)
	assert.Equal(t, "(a + 0) = a", listener.steps[0].fact)
	assert.Equal(t, []int{1}, listener.started)
	require.Len(t, listener.finished, 1)
	assert.Equal(t, int64(1), p.Metrics().ProofsConsidered())
	assert.Contains(t, results[0].Trace, "[0]Zero_Additive_left")
	assert.Contains(t, results[0].Trace, "{x=a")
}

func TestTimeoutSafety(t *testing.T) {
	t.Parallel()

	source := &fakeSource{theorems: []types.TheoremSymbol{theorem("Grow", "f(x) == f(x + 1)")}}
	cfg := DefaultConfig()
	cfg.Timeout = 100 * time.Millisecond

	p, err := New("Test", []types.VC{vc(1, []string{"f(a) == b"}, []string{"a == c"})}, source, cfg)
	require.NoError(t, err)

	start := time.Now()
	results, err := p.Start(context.Background())
	require.NoError(t, err)

	assert.Equal(t, types.StillEvaluating, results[0].Status)
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Positive(t, results[0].Steps)
}

func TestTheoremIdempotence(t *testing.T) {
	t.Parallel()

	assertion := mathexp.MustParse("f(x) == h(x)", env)
	lhs, rhs := mathexp.Sides(assertion)
	th := newTheorem("F_H", assertion, lhs, rhs, assertion, false, false, true)

	ob := NewObligation(vc(1, []string{"f(a) == b"}, []string{"h(a) == b"}), mathexp.Normalizer{})
	deadline := time.Now().Add(time.Minute)

	require.Equal(t, 1, th.ApplyTo(ob, deadline))
	cand := th.Next(ob)
	require.NotNil(t, cand)
	assert.Equal(t, "b = h(a)", cand.Exp.String())
	assert.Equal(t, "a", cand.Binding["x"])
	assert.Nil(t, th.Next(ob))

	assert.NotEmpty(t, ob.Model().AddExpression(cand.Exp))
	assert.Equal(t, types.Proved, ob.Status())

	assert.Equal(t, 0, th.ApplyTo(ob, deadline))
	assert.Nil(t, th.Next(ob))

	th.forget(ob.ID())
	assert.Equal(t, 1, th.ApplyTo(ob, deadline), "a forgotten obligation starts over")
}

func TestBindingCachePerObligation(t *testing.T) {
	t.Parallel()

	assertion := mathexp.MustParse("f(x) == h(x)", env)
	lhs, rhs := mathexp.Sides(assertion)
	th := newTheorem("F_H", assertion, lhs, rhs, assertion, false, false, true)
	deadline := time.Now().Add(time.Minute)

	first := NewObligation(vc(1, []string{"f(a) == b"}, nil), mathexp.Normalizer{})
	second := NewObligation(vc(2, []string{"f(a) == b"}, nil), mathexp.Normalizer{})

	require.Equal(t, 1, th.ApplyTo(first, deadline))
	require.NotNil(t, th.Next(first))
	assert.Equal(t, 1, th.ApplyTo(second, deadline))
	assert.NotNil(t, th.Next(second))
}

func TestQuantifierOrdering(t *testing.T) {
	t.Parallel()

	assertion := mathexp.MustParse("g(f(x, y)) == x", env)
	lhs, rhs := mathexp.Sides(assertion)
	th := newTheorem("Nested", assertion, lhs, rhs, assertion, false, false, true)

	facts := th.MatchRequired()
	require.Len(t, facts, 2)
	reg := th.PatternRegistry()
	for i := 1; i < len(facts); i++ {
		assert.LessOrEqual(t, facts[i-1].Atom.Quantifiers(reg), facts[i].Atom.Quantifiers(reg))
	}
	assert.Equal(t, 0, facts[0].Atom.Quantifiers(reg))
	assert.Equal(t, 2, facts[1].Atom.Quantifiers(reg))
}

func TestQuantifierOrderingThreeAtoms(t *testing.T) {
	t.Parallel()

	local := mathexp.Env{
		ForAll: map[string]mathexp.Type{"x": mathexp.TypeInteger, "y": mathexp.TypeInteger, "z": mathexp.TypeInteger},
	}
	assertion := mathexp.MustParse("implies(p(x) and h(x, y, z) and q(x, y), r(x))", local)
	ant, cons := mathexp.Sides(assertion)
	th := newTheorem("Chain", assertion, ant, cons, cons, true, false, false)

	facts := th.MatchRequired()
	reg := th.PatternRegistry()
	var ops []string
	var counts []int
	for _, f := range facts {
		ops = append(ops, reg.SymbolForIndex(reg.Root(f.Atom.Operator)))
		counts = append(counts, f.Atom.Quantifiers(reg))
	}
	assert.Equal(t, []string{"p", "q", "h"}, ops, "declared as p, h, q")
	assert.Equal(t, []int{1, 2, 3}, counts)
}

func TestPrioritizerHelperSymbols(t *testing.T) {
	t.Parallel()

	source := &fakeSource{theorems: []types.TheoremSymbol{
		theorem("Missing", "d == c"),
		theorem("Present", "a == b"),
		theorem("Zero_Additive", "x + 0 == x"),
	}}
	p, err := New("Test", []types.VC{vc(1, []string{"a == b"}, []string{"a + 0 == b"})}, source, quickConfig())
	require.NoError(t, err)

	ob := p.Obligations()[0]
	queue := newPrioritizer(p.Rules(), map[string]int{}, ob, p.nonQuantified)
	var order []string
	scores := make(map[string]int)
	for queue.Len() > 0 {
		next := queue.pop()
		order = append(order, next.theorem.Name())
		scores[next.theorem.Name()] = next.score
	}
	assert.Equal(t, []string{"Present", "Zero_Additive_left", "Missing"}, order)
	assert.Equal(t, unmatchablePenalty, scores["Missing"], "none of c and d occur in the obligation")
	assert.Zero(t, scores["Present"])
}

func TestScoreMonotonicity(t *testing.T) {
	t.Parallel()

	reg := congruence.NewRegistry()
	reg.AddSymbol("a", mathexp.TypeInteger, congruence.UsageLiteral)
	reg.AddSymbol("b", mathexp.TypeInteger, congruence.UsageLiteral)
	fresh := reg.MakeSymbol(mathexp.TypeInteger)

	old := scoreBinding(reg, congruence.Binding{"x": "a", "y": "b"})
	introduced := scoreBinding(reg, congruence.Binding{"x": "a", "y": fresh})
	assert.LessOrEqual(t, old, introduced)

	shared := scoreBinding(reg, congruence.Binding{"x": "b", "y": "b"})
	distinct := scoreBinding(reg, congruence.Binding{"x": "b", "y": "a"})
	assert.Less(t, distinct, shared, "values sharing a class rank behind distinct ones")

	assert.Equal(t, 0, scoreBinding(reg, congruence.Binding{"x": ""}))
}

func TestRuleSplitting(t *testing.T) {
	t.Parallel()

	source := &fakeSource{theorems: []types.TheoremSymbol{
		theorem("Zero_Additive", "x + 0 == x"),
		theorem("Comm", "f(x, y) == f(y, x)"),
		theorem("P_Implies_Q", "implies(p(x), q(x))"),
		theorem("Fact", "f(a, b) == c"),
	}}
	p, err := New("Test", nil, source, quickConfig())
	require.NoError(t, err)

	var names []string
	for _, r := range p.Rules() {
		names = append(names, r.Name())
	}
	assert.Equal(t, []string{
		"Zero_Additive_left",
		"Comm_left", "Comm_right",
		"P_Implies_Q_goalSearch", "P_Implies_Q",
		"Fact",
	}, names)
	assert.Equal(t, []string{"a", "b", "c", "f", "p", "q"}, p.NonQuantifiedSymbols())
}

func TestSmallEndEquations(t *testing.T) {
	t.Parallel()

	source := &fakeSource{theorems: []types.TheoremSymbol{theorem("Expand", "g(x) == f(h(x), x)")}}
	p, err := New("Test", nil, source, quickConfig())
	require.NoError(t, err)

	rules := p.Rules()
	require.Len(t, rules, 2)
	assert.True(t, rules[0].smallEnd, "matching g(x) rewrites towards the larger side")
	assert.False(t, rules[1].smallEnd)
}

func TestNewErrors(t *testing.T) {
	t.Parallel()

	t.Run("duplicate vc", func(t *testing.T) {
		t.Parallel()
		_, err := New("Test", []types.VC{vc(1, nil, nil), vc(1, nil, nil)}, &fakeSource{}, quickConfig())
		assert.ErrorIs(t, err, types.ErrDuplicateSymbol)
	})

	t.Run("partial theorems", func(t *testing.T) {
		t.Parallel()
		source := &fakeSource{
			theorems: []types.TheoremSymbol{theorem("Zero_Additive", "x + 0 == x")},
			err:      errors.Join(types.ErrNoSuchModule, types.ErrUnknownSymbol),
		}
		p, err := New("Test", nil, source, quickConfig())
		require.NoError(t, err)
		assert.Len(t, p.Rules(), 1)
	})
}

func TestBaseSorts(t *testing.T) {
	t.Parallel()

	source := &fakeSource{symbols: map[string]types.MathSymbol{
		"Z": {Name: "Z", Type: mathexp.TypeInteger},
		"N": {Name: "N", Type: mathexp.TypeNatural},
	}}
	p, err := New("Test", []types.VC{vc(1, nil, []string{"a < b"})}, source, quickConfig())
	require.NoError(t, err)
	assert.True(t, p.norm.IntegerSorts)
	assert.Equal(t, "{} ==> {a < b}", p.Obligations()[0].String())

	p, err = New("Test", nil, &fakeSource{}, quickConfig())
	require.NoError(t, err)
	assert.False(t, p.norm.IntegerSorts)
}

func TestTryBudget(t *testing.T) {
	t.Parallel()

	cfg := quickConfig()
	cfg.Tries = 1
	vcs := []types.VC{
		vc(1, nil, []string{"a == b"}),
		vc(2, nil, []string{"a == a"}),
		vc(3, nil, []string{"c == d"}),
	}
	p, err := New("Test", vcs, &fakeSource{}, cfg)
	require.NoError(t, err)

	results, err := p.Start(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.False(t, results[0].Skipped)
	assert.Equal(t, types.StillEvaluating, results[0].Status)
	assert.True(t, results[1].Skipped)
	assert.True(t, results[2].Skipped)

	summary := p.Summary(results)
	assert.Contains(t, summary, "1 Out of theorems, or timed out time:")
	assert.Contains(t, summary, "2 skipped\n")
	assert.Contains(t, summary, "Elapsed time from construction:")
}

func TestParallelJobs(t *testing.T) {
	t.Parallel()

	cfg := quickConfig()
	cfg.Jobs = 4
	source := &fakeSource{theorems: []types.TheoremSymbol{theorem("Zero_Additive", "x + 0 == x")}}

	var vcs []types.VC
	for i := 1; i <= 8; i++ {
		if i%2 == 0 {
			vcs = append(vcs, vc(i, nil, []string{"a + 0 == a"}))
		} else {
			vcs = append(vcs, vc(i, nil, []string{"b + 0 == b"}))
		}
	}
	p, err := New("Test", vcs, source, cfg)
	require.NoError(t, err)

	results, err := p.Start(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 8)
	for i, res := range results {
		assert.Equal(t, i+1, res.ID, "results keep input order")
		assert.Equal(t, types.Proved, res.Status)
		assert.Equal(t, 1, res.Steps)
	}
	assert.Equal(t, int64(8), p.Metrics().ProofsConsidered())
}

func TestCancellation(t *testing.T) {
	t.Parallel()

	t.Run("canceller", func(t *testing.T) {
		t.Parallel()
		c := NewCanceller()
		c.Cancel()
		source := &fakeSource{theorems: []types.TheoremSymbol{theorem("Zero_Additive", "x + 0 == x")}}
		p, err := New("Test", []types.VC{vc(1, nil, []string{"a + 0 == a"})}, source, quickConfig(),
			WithCanceller(c))
		require.NoError(t, err)

		results, err := p.Start(context.Background())
		require.NoError(t, err)
		assert.Equal(t, types.StillEvaluating, results[0].Status)
		assert.Equal(t, 0, results[0].Steps)
	})

	t.Run("context", func(t *testing.T) {
		t.Parallel()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		p, err := New("Test", []types.VC{vc(1, nil, []string{"a == b"})}, &fakeSource{}, quickConfig())
		require.NoError(t, err)

		results, err := p.Start(ctx)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Len(t, results, 1)
	})

	t.Run("nil canceller", func(t *testing.T) {
		t.Parallel()
		var c *Canceller
		assert.True(t, c.Running())
	})
}

func TestDivLine(t *testing.T) {
	t.Parallel()

	line := divLine("Summary")
	assert.Len(t, line, 81)
	assert.True(t, strings.HasPrefix(line, "===="))
	assert.Contains(t, line, " Summary ")
	assert.Equal(t, 36, strings.Index(line, " Summary "))

	long := divLine(strings.Repeat("x", 200))
	assert.Len(t, long, 81)
}

func TestStatusText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		res  types.Result
		want string
	}{
		{types.Result{Status: types.Proved}, "Proved"},
		{types.Result{Status: types.FalseAssumption}, "Proved (Assumption(s) false)"},
		{types.Result{Status: types.StillEvaluating}, "Out of theorems, or timed out"},
		{types.Result{Skipped: true}, "skipped"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StatusText(tt.res))
	}
}

func TestProofFile(t *testing.T) {
	t.Parallel()

	assert.Equal(t, filepath.Join("dir", "Stack.proof"), ProofFilePath(filepath.Join("dir", "Stack.vc")))
	assert.Equal(t, "Stack.proof", ProofFilePath("Stack"))

	dir := t.TempDir()
	path := filepath.Join(dir, "Stack.proof")
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, os.WriteFile(path, []byte("old"), 0o644))
	require.NoError(t, WriteProofFile(path, "Stack_Template", now, "body"))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(content), "Proofs for Stack_Template generated Wed, 01 May 2024 12:00:00 UTC\n\n"))
	assert.Contains(t, string(content), "body")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temporary file is left behind")

	err = WriteProofFile(filepath.Join(dir, "missing", "x.proof"), "M", now, "")
	assert.Error(t, err)
}

func TestReport(t *testing.T) {
	t.Parallel()

	cfg := quickConfig()
	cfg.PrintVCEachStep = true
	source := &fakeSource{theorems: []types.TheoremSymbol{theorem("Zero_Additive", "x + 0 == x")}}
	p, err := New("Test", []types.VC{
		vc(1, nil, []string{"a + 0 == a"}),
		vc(2, nil, []string{"c == d"}),
	}, source, cfg)
	require.NoError(t, err)

	results, err := p.Start(context.Background())
	require.NoError(t, err)

	report := p.Report(results)
	assert.Contains(t, report, "Before application of theorems: {} ==> {(a + 0) = a}")
	assert.Contains(t, report, "Iter:0.0")
	assert.Contains(t, report, "Could not find any matches for Zero_Additive_left")
	assert.Contains(t, report, "Final model:")
	assert.Contains(t, report, "1 Proved time:")
	assert.True(t, strings.HasSuffix(report, divLine("Summary")))
}
