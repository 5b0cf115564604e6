package congruence

import (
	"fmt"
	"sort"
	"strings"

	"github.com/gnolang/vcprove/internal/mathexp"
)

// Conjunction is a set of facts over one registry, closed under congruence:
// whenever two facts have the same operator and operand roots their results
// share a class. It only grows.
type Conjunction struct {
	reg   *Registry
	facts []*entry
	// table maps the canonical key of every live fact to its position
	table map[string]int
	// uses lists, per class root, the facts that mention a member of the class
	uses    map[int][]int
	pending [][2]int

	contradiction bool
	merges        int
}

type entry struct {
	atom   Atom
	result int
	key    string
	live   bool
}

func NewConjunction(reg *Registry) *Conjunction {
	return &Conjunction{
		reg:   reg,
		table: make(map[string]int),
		uses:  make(map[int][]int),
	}
}

func (c *Conjunction) Registry() *Registry {
	return c.reg
}

// EvaluatesToFalse reports whether true and false have been merged.
func (c *Conjunction) EvaluatesToFalse() bool {
	return c.contradiction
}

// Len returns the number of live facts.
func (c *Conjunction) Len() int {
	return len(c.table)
}

// AddExpression asserts e and propagates the consequences. The returned
// text summarises what changed and is empty when the model is unchanged.
func (c *Conjunction) AddExpression(e mathexp.Exp) string {
	facts, merges := len(c.facts), c.merges
	c.assert(e)
	c.propagate()

	added, merged := len(c.facts)-facts, c.merges-merges
	if added == 0 && merged == 0 {
		return ""
	}
	return fmt.Sprintf("%d new atoms, %d merges", added, merged)
}

// AddFormula interns e without asserting it and returns the root index of
// the class that represents it.
func (c *Conjunction) AddFormula(e mathexp.Exp) int {
	i := c.intern(e)
	c.propagate()
	return c.reg.Root(i)
}

func (c *Conjunction) assert(e mathexp.Exp) {
	switch {
	case mathexp.IsLiteralTrue(e):
		return
	case mathexp.IsLiteralFalse(e):
		c.enqueue(IndexTrue, IndexFalse)
		return
	}

	switch mathexp.Operator(e) {
	case mathexp.OpAnd:
		for _, arg := range e.(mathexp.Apply).Args {
			c.assert(arg)
		}
		return
	case mathexp.OpEq:
		if args := e.(mathexp.Apply).Args; len(args) == 2 {
			l := c.intern(args[0])
			r := c.intern(args[1])
			c.enqueue(l, r)
			return
		}
	}
	c.enqueue(c.intern(e), IndexTrue)
}

func usageOf(s mathexp.Symbol, function bool) Usage {
	if s.Quant != mathexp.QuantForAll {
		return UsageLiteral
	}
	if function {
		return UsageHasArgsForAll
	}
	return UsageForAll
}

func (c *Conjunction) intern(e mathexp.Exp) int {
	switch e := e.(type) {
	case mathexp.Symbol:
		return c.reg.Root(c.reg.AddSymbol(e.Name, e.Typ, usageOf(e, false)))
	case mathexp.Apply:
		var op int
		if fn, ok := e.Func.(mathexp.Symbol); ok {
			op = c.reg.AddSymbol(fn.Name, fn.Typ, usageOf(fn, true))
		} else {
			op = c.intern(e.Func)
		}
		args := make([]int, len(e.Args))
		for i, arg := range e.Args {
			args[i] = c.intern(arg)
		}
		return c.internAtom(Atom{Operator: op, Operands: args}, e.Typ)
	default:
		// lambdas and alternatives are opaque constants to the model
		return c.reg.Root(c.reg.AddSymbol(e.String(), e.Type(), UsageLiteral))
	}
}

func (c *Conjunction) internAtom(a Atom, typ mathexp.Type) int {
	if i, ok := c.table[a.key(c.reg)]; ok {
		return c.reg.Root(c.facts[i].result)
	}
	res := c.reg.IndexForSymbol(c.reg.MakeSymbol(typ))
	c.insert(a, res)
	c.propagate()
	return c.reg.Root(res)
}

func (c *Conjunction) insert(a Atom, result int) {
	i := len(c.facts)
	k := a.key(c.reg)
	c.facts = append(c.facts, &entry{atom: a, result: result, key: k, live: true})
	c.table[k] = i

	r := c.reg
	c.uses[r.Root(a.Operator)] = append(c.uses[r.Root(a.Operator)], i)
	for _, o := range a.Operands {
		c.uses[r.Root(o)] = append(c.uses[r.Root(o)], i)
	}
	c.uses[r.Root(result)] = append(c.uses[r.Root(result)], i)

	c.check(i)
}

func (c *Conjunction) enqueue(a, b int) {
	if c.reg.Root(a) != c.reg.Root(b) {
		c.pending = append(c.pending, [2]int{a, b})
	}
}

// propagate drains the pending merges until the model is closed again.
func (c *Conjunction) propagate() {
	for len(c.pending) > 0 {
		p := c.pending[len(c.pending)-1]
		c.pending = c.pending[:len(c.pending)-1]
		c.union(p[0], p[1])
	}
}

func (c *Conjunction) union(a, b int) {
	ra, rb := c.reg.Root(a), c.reg.Root(b)
	if ra == rb {
		return
	}
	winner := c.reg.Merge(ra, rb)
	loser := rb
	if winner == rb {
		loser = ra
	}
	c.merges++
	if c.reg.Root(IndexTrue) == c.reg.Root(IndexFalse) {
		c.contradiction = true
	}

	moved := c.uses[loser]
	delete(c.uses, loser)
	c.uses[winner] = append(c.uses[winner], moved...)
	for _, i := range moved {
		c.rehash(i)
	}
}

func (c *Conjunction) rehash(i int) {
	f := c.facts[i]
	if !f.live {
		return
	}
	if j, ok := c.table[f.key]; ok && j == i {
		delete(c.table, f.key)
	}
	k := f.atom.key(c.reg)
	if j, ok := c.table[k]; ok && j != i {
		f.live = false
		c.enqueue(f.result, c.facts[j].result)
		return
	}
	c.table[k] = i
	f.key = k
	c.check(i)
}

// check applies the boolean evaluation rules to fact i.
func (c *Conjunction) check(i int) {
	f := c.facts[i]
	r := c.reg
	t, fl := r.Root(IndexTrue), r.Root(IndexFalse)
	res := r.Root(f.result)
	args := f.atom.Canonical(r).Operands

	every := func(root int) bool {
		for _, a := range args {
			if a != root {
				return false
			}
		}
		return len(args) > 0
	}
	some := func(root int) bool {
		for _, a := range args {
			if a == root {
				return true
			}
		}
		return false
	}

	switch r.SymbolForIndex(r.Root(f.atom.Operator)) {
	case mathexp.OpEq:
		if len(args) != 2 {
			return
		}
		if args[0] == args[1] {
			c.enqueue(res, t)
		}
		if res == t {
			c.enqueue(args[0], args[1])
		}
	case mathexp.OpAnd:
		if res == t {
			for _, a := range args {
				c.enqueue(a, t)
			}
		}
		if some(fl) {
			c.enqueue(res, fl)
		}
		if every(t) {
			c.enqueue(res, t)
		}
	case mathexp.OpOr:
		if some(t) {
			c.enqueue(res, t)
		}
		if res == fl {
			for _, a := range args {
				c.enqueue(a, fl)
			}
		}
		if every(fl) {
			c.enqueue(res, fl)
		}
	case mathexp.OpImplies:
		if len(args) != 2 {
			return
		}
		if res == t && args[0] == t {
			c.enqueue(args[1], t)
		}
		if args[0] == fl || args[1] == t {
			c.enqueue(res, t)
		}
	}
}

// Facts returns the live facts through current roots, oldest first.
func (c *Conjunction) Facts() []Fact {
	out := make([]Fact, 0, len(c.table))
	for _, f := range c.facts {
		if f.live {
			out = append(out, Fact{Atom: f.atom.Canonical(c.reg), Result: c.reg.Root(f.result)})
		}
	}
	return out
}

func (c *Conjunction) lookup(e mathexp.Exp) (int, bool) {
	switch e := e.(type) {
	case mathexp.Apply:
		var op int
		if fn, ok := e.Func.(mathexp.Symbol); ok {
			i, ok := c.reg.Lookup(fn.Name)
			if !ok {
				return 0, false
			}
			op = i
		} else {
			i, ok := c.lookup(e.Func)
			if !ok {
				return 0, false
			}
			op = i
		}
		args := make([]int, len(e.Args))
		for i, arg := range e.Args {
			a, ok := c.lookup(arg)
			if !ok {
				return 0, false
			}
			args[i] = a
		}
		j, ok := c.table[Atom{Operator: op, Operands: args}.key(c.reg)]
		if !ok {
			return 0, false
		}
		return c.reg.Root(c.facts[j].result), true
	default:
		i, ok := c.reg.Lookup(e.String())
		if !ok {
			return 0, false
		}
		return c.reg.Root(i), true
	}
}

// Find rewrites e so that every symbol and known sub-application whose class
// is represented by an input symbol is replaced by that symbol.
func (c *Conjunction) Find(e mathexp.Exp) mathexp.Exp {
	switch e := e.(type) {
	case mathexp.Symbol:
		i, ok := c.reg.Lookup(e.Name)
		if !ok {
			return e
		}
		root := c.reg.Root(i)
		if c.reg.UsageByIndex(root) != UsageLiteral {
			return e
		}
		return mathexp.Symbol{Name: c.reg.SymbolForIndex(root), Typ: e.Typ}
	case mathexp.Apply:
		args := make([]mathexp.Exp, len(e.Args))
		for i, arg := range e.Args {
			args[i] = c.Find(arg)
		}
		out := mathexp.Apply{Func: e.Func, Args: args, Typ: e.Typ}
		if root, ok := c.lookup(out); ok && c.reg.UsageByIndex(root) == UsageLiteral {
			return mathexp.Symbol{Name: c.reg.SymbolForIndex(root), Typ: c.reg.TypeByIndex(root)}
		}
		return out
	default:
		return e
	}
}

// MatchesForOverrideSet extends each binding in bindings with every way the
// pattern fact, written over the registry src, unifies with a live fact of c.
// Variable symbols of src bind to, or must agree with, model roots; every
// other pattern symbol must name the same class in the model. Binary
// commutative facts match in either operand order.
func (c *Conjunction) MatchesForOverrideSet(pattern Fact, src *Registry, bindings []Binding) []Binding {
	opName := src.SymbolForIndex(src.Root(pattern.Atom.Operator))
	fixedOp := -1
	if !src.Usage(opName).IsVariable() {
		i, ok := c.reg.Lookup(opName)
		if !ok {
			return nil
		}
		fixedOp = c.reg.Root(i)
	}

	var out []Binding
	seen := make(map[string]bool)
	for _, b := range bindings {
		for _, f := range c.facts {
			if !f.live || len(f.atom.Operands) != len(pattern.Atom.Operands) {
				continue
			}
			op := c.reg.Root(f.atom.Operator)
			if fixedOp >= 0 && op != fixedOp {
				continue
			}

			orders := [][]int{f.atom.Operands}
			if len(f.atom.Operands) == 2 && commutative[c.reg.SymbolForIndex(op)] {
				orders = append(orders, []int{f.atom.Operands[1], f.atom.Operands[0]})
			}
			for _, operands := range orders {
				next, ok := c.unifyFact(src, pattern, op, operands, f.result, b)
				if !ok {
					continue
				}
				if k := next.Key(); !seen[k] {
					seen[k] = true
					out = append(out, next)
				}
			}
		}
	}
	return out
}

// unifyFact extends a copy of b so that pattern matches the fact op(operands)
// = result.
func (c *Conjunction) unifyFact(src *Registry, pattern Fact, op int, operands []int, result int, b Binding) (Binding, bool) {
	next := b.Clone()
	if !c.unify(src, pattern.Atom.Operator, op, next) {
		return nil, false
	}
	for i, p := range pattern.Atom.Operands {
		if !c.unify(src, p, c.reg.Root(operands[i]), next) {
			return nil, false
		}
	}
	if !c.unify(src, pattern.Result, c.reg.Root(result), next) {
		return nil, false
	}
	return next, true
}

func (c *Conjunction) unify(src *Registry, p, actual int, b Binding) bool {
	name := src.SymbolForIndex(src.Root(p))
	if src.Usage(name).IsVariable() {
		bound := b[name]
		if bound == "" {
			b[name] = c.reg.SymbolForIndex(actual)
			return true
		}
		i, ok := c.reg.Lookup(bound)
		return ok && c.reg.Root(i) == actual
	}
	i, ok := c.reg.Lookup(name)
	return ok && c.reg.Root(i) == actual
}

// String lists the live facts, one per line, in a stable order.
func (c *Conjunction) String() string {
	lines := make([]string, 0, len(c.table))
	for _, f := range c.Facts() {
		lines = append(lines, f.Atom.String(c.reg)+" = "+c.reg.SymbolForIndex(f.Result))
	}
	sort.Strings(lines)
	return strings.Join(lines, "\n")
}
