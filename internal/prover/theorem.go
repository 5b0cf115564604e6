package prover

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gnolang/vcprove/internal/congruence"
	"github.com/gnolang/vcprove/internal/mathexp"
)

// goalVar is the variable through which goal-searching rules receive the
// goal they work backwards from.
const goalVar = "_g"

// Theorem is one rewrite rule derived from a global theorem: a pattern that
// must be found in an obligation model, and an expression to insert once the
// pattern's variables are bound.
//
// A Theorem is immutable apart from its binding caches, which are kept per
// obligation id so one rule can serve several obligations at once.
type Theorem struct {
	name   string
	entire mathexp.Exp
	insert mathexp.Exp

	reg             *congruence.Registry
	matchRequired   []congruence.Fact
	noMatchRequired []congruence.Fact
	vars            []string
	insertVars      []mathexp.Symbol
	// symbols names every symbol of the source theorem
	symbols []string

	noQuants        bool
	isEquality      bool
	allowNewSymbols bool
	// smallEnd marks rules that rewrite towards a larger term.
	smallEnd bool

	mu     sync.Mutex
	states map[int]*bindingState
}

type bindingState struct {
	pending  []scoredBinding
	selected map[string]bool
	used     bool
}

type scoredBinding struct {
	binding congruence.Binding
	key     string
	score   int
}

// Candidate is a fact a theorem proposes to insert into an obligation.
type Candidate struct {
	Theorem string
	Exp     mathexp.Exp
	Binding congruence.Binding
	Score   int
}

func (c *Candidate) String() string {
	if len(c.Binding) == 0 {
		return c.Exp.String()
	}
	return c.Exp.String() + " " + c.Binding.String()
}

func newTheorem(
	name string,
	entire, mustMatch, restOfExp, toInsert mathexp.Exp,
	enterAsTrue, allowNewSymbols, isEquality bool,
) *Theorem {
	reg := congruence.NewRegistry()
	pattern := congruence.NewConjunction(reg)
	t := &Theorem{
		name:            name,
		entire:          entire,
		insert:          toInsert,
		reg:             reg,
		insertVars:      mathexp.QuantifiedVariables(toInsert),
		symbols:         mathexp.SymbolNames(entire),
		noQuants:        len(mathexp.QuantifiedVariables(entire)) == 0,
		isEquality:      isEquality,
		allowNewSymbols: allowNewSymbols,
		states:          make(map[int]*bindingState),
	}

	if mathexp.IsApply(mustMatch) {
		if enterAsTrue {
			pattern.AddExpression(mustMatch)
		} else {
			pattern.AddFormula(mustMatch)
		}
	}
	t.matchRequired = pattern.Facts()
	congruence.SortByQuantifiers(t.matchRequired, reg)

	if !mathexp.Equal(mustMatch, restOfExp) && mathexp.IsApply(restOfExp) &&
		(!coversVars(mustMatch, restOfExp) || !mathexp.IsApply(mustMatch)) {
		pattern.AddFormula(restOfExp)
	}

	for _, v := range mathexp.QuantifiedVariables(entire) {
		reg.AddSymbol(v.Name, v.Typ, congruence.UsageForAll)
	}
	t.vars = reg.Variables()

	required := make(map[string]bool, len(t.matchRequired))
	for _, f := range t.matchRequired {
		required[factKey(f, reg)] = true
	}
	insertNames := make(map[string]bool, len(t.insertVars))
	for _, v := range t.insertVars {
		insertNames[v.Name] = true
	}
	for _, f := range pattern.Facts() {
		if required[factKey(f, reg)] {
			continue
		}
		syms := f.Atom.Symbols(reg)
		if containsName(syms, goalVar) || !mentionsAny(syms, insertNames) {
			continue
		}
		t.noMatchRequired = append(t.noMatchRequired, f)
	}
	congruence.SortByQuantifiers(t.noMatchRequired, reg)
	return t
}

func factKey(f congruence.Fact, reg *congruence.Registry) string {
	return f.Atom.String(reg) + "=" + reg.SymbolForIndex(f.Result)
}

// coversVars reports whether every quantified variable of b also occurs in a.
func coversVars(a, b mathexp.Exp) bool {
	have := make(map[string]bool)
	for _, v := range mathexp.QuantifiedVariables(a) {
		have[v.Name] = true
	}
	for _, v := range mathexp.QuantifiedVariables(b) {
		if !have[v.Name] {
			return false
		}
	}
	return true
}

func containsName(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}

func mentionsAny(names []string, set map[string]bool) bool {
	for _, n := range names {
		if set[n] {
			return true
		}
	}
	return false
}

func (t *Theorem) Name() string {
	return t.name
}

// Assertion returns the theorem the rule was derived from.
func (t *Theorem) Assertion() mathexp.Exp {
	return t.entire
}

// MatchRequired returns the pattern facts in the order they are joined.
func (t *Theorem) MatchRequired() []congruence.Fact {
	return append([]congruence.Fact(nil), t.matchRequired...)
}

// PatternRegistry returns the registry the pattern facts are written over.
func (t *Theorem) PatternRegistry() *congruence.Registry {
	return t.reg
}

func (t *Theorem) String() string {
	var sb strings.Builder
	sb.WriteString(t.name)
	sb.WriteString(": ")
	sb.WriteString(t.entire.String())
	if len(t.matchRequired) > 0 {
		sb.WriteString("\n  match:  ")
		parts := make([]string, len(t.matchRequired))
		for i, f := range t.matchRequired {
			parts[i] = f.Atom.String(t.reg) + " = " + t.reg.SymbolForIndex(f.Result)
		}
		sb.WriteString(strings.Join(parts, ", "))
	}
	sb.WriteString("\n  insert: ")
	sb.WriteString(t.insert.String())
	return sb.String()
}

func (t *Theorem) state(id int) *bindingState {
	t.mu.Lock()
	defer t.mu.Unlock()
	st, ok := t.states[id]
	if !ok {
		st = &bindingState{selected: make(map[string]bool)}
		t.states[id] = st
	}
	return st
}

// forget drops the binding cache kept for an obligation.
func (t *Theorem) forget(id int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.states, id)
}

// ApplyTo recomputes the candidate bindings of t against ob and returns how
// many are available. Bindings already consumed on ob are not offered again.
// Matching stops early once deadline has passed.
func (t *Theorem) ApplyTo(ob *Obligation, deadline time.Time) int {
	st := t.state(ob.ID())
	st.pending = nil
	if t.noQuants {
		return 1
	}

	var found []congruence.Binding
	if len(t.matchRequired) == 0 ||
		(t.allowNewSymbols && t.isEquality && len(t.reg.ForAlls()) == 1) {
		found = t.findValidBindingsByType(ob)
	} else {
		found = t.findValidBindings(ob, deadline)
	}

	reg := ob.Model().Registry()
	seen := make(map[string]bool)
	for _, b := range found {
		if !t.bindsInsertVars(b) {
			continue
		}
		k := t.bindingKey(reg, b)
		if st.selected[k] || seen[k] {
			continue
		}
		seen[k] = true
		st.pending = append(st.pending, scoredBinding{binding: b, key: k, score: scoreBinding(reg, b)})
	}
	sort.SliceStable(st.pending, func(i, j int) bool {
		return st.pending[i].score < st.pending[j].score
	})
	return len(st.pending)
}

func (t *Theorem) findValidBindings(ob *Obligation, deadline time.Time) []congruence.Binding {
	model := ob.Model()
	var bindings []congruence.Binding
	if t.reg.IsSymbol(goalVar) {
		for _, g := range ob.Goals() {
			b := congruence.NewBinding(t.vars)
			b[goalVar] = g
			bindings = append(bindings, b)
		}
	} else {
		bindings = []congruence.Binding{congruence.NewBinding(t.vars)}
	}

	for _, f := range t.matchRequired {
		if len(bindings) == 0 || time.Now().After(deadline) {
			return nil
		}
		bindings = model.MatchesForOverrideSet(f, t.reg, bindings)
	}
	for _, f := range t.noMatchRequired {
		if time.Now().After(deadline) {
			break
		}
		if widened := model.MatchesForOverrideSet(f, t.reg, bindings); len(widened) > 0 {
			bindings = widened
		}
	}
	return bindings
}

// findValidBindingsByType binds the single universal variable to every class
// of a fitting type.
func (t *Theorem) findValidBindingsByType(ob *Obligation) []congruence.Binding {
	foralls := t.reg.ForAlls()
	if len(foralls) != 1 {
		return nil
	}
	wild := foralls[0]
	typ := t.reg.TypeByIndex(t.reg.IndexForSymbol(wild))

	var out []congruence.Binding
	for _, actual := range ob.Model().Registry().ParentsByType(typ) {
		if actual == wild {
			continue
		}
		b := congruence.NewBinding(t.vars)
		b[wild] = actual
		out = append(out, b)
	}
	return out
}

// lookupVar returns the value bound to name, falling back to the pattern
// class representative name was merged into.
func (t *Theorem) lookupVar(b congruence.Binding, name string) string {
	if v := b[name]; v != "" {
		return v
	}
	if t.reg.IsSymbol(name) {
		return b[t.reg.RootSymbol(name)]
	}
	return ""
}

func (t *Theorem) bindsInsertVars(b congruence.Binding) bool {
	for _, v := range t.insertVars {
		if t.lookupVar(b, v.Name) == "" {
			return false
		}
	}
	return true
}

// bindingKey identifies a binding by the model classes of its quantified
// variables, so that rebinding a pattern's internal symbols does not make an
// old match look new.
func (t *Theorem) bindingKey(reg *congruence.Registry, b congruence.Binding) string {
	var sb strings.Builder
	for _, v := range t.reg.Variables() {
		if !t.reg.Usage(v).IsQuantified() {
			continue
		}
		val := t.lookupVar(b, v)
		if val != "" && reg.IsSymbol(val) {
			val = reg.RootSymbol(val)
		}
		sb.WriteString(v)
		sb.WriteByte('=')
		sb.WriteString(val)
		sb.WriteByte(';')
	}
	return sb.String()
}

// scoreBinding ranks a binding against the model registry; lower is better.
// Four fifths of the weight goes to the average age of the bound classes and
// the rest to how many bound values share a class.
func scoreBinding(reg *congruence.Registry, b congruence.Binding) int {
	size := float64(reg.Size())
	roots := make(map[int]bool)
	age, n := 0.0, 0
	for _, v := range b {
		if v == "" {
			continue
		}
		i, ok := reg.Lookup(v)
		if !ok {
			continue
		}
		root := reg.Root(i)
		age += float64(root)
		roots[root] = true
		n++
	}
	if n == 0 {
		return 0
	}
	avgAge := age / float64(n)
	diversity := 1.0 - float64(len(roots))/float64(n)
	return int(80.0*(avgAge/size+.01) + 20.0*(diversity+.01))
}

// Next returns the best remaining candidate for ob, or nil when none is
// left. A rule without quantifiers yields its insert expression once.
func (t *Theorem) Next(ob *Obligation) *Candidate {
	st := t.state(ob.ID())
	if t.noQuants {
		if st.used {
			return nil
		}
		st.used = true
		return &Candidate{Theorem: t.name, Exp: t.insert}
	}

	for len(st.pending) > 0 {
		next := st.pending[0]
		st.pending = st.pending[1:]
		st.selected[next.key] = true

		subst := make(map[string]mathexp.Exp, len(t.insertVars))
		for _, v := range t.insertVars {
			subst[v.Name] = mathexp.Symbol{Name: t.lookupVar(next.binding, v.Name), Typ: v.Typ}
		}
		exp := ob.Model().Find(mathexp.Substitute(t.insert, subst))
		if mathexp.IsTrivialEquality(exp) {
			continue
		}
		return &Candidate{Theorem: t.name, Exp: exp, Binding: next.binding, Score: next.score}
	}
	return nil
}
