package congruence

import (
	"sort"
	"strconv"
	"strings"
)

// Atom is one flattened function application: an operator and its operands,
// all given as registry indices.
type Atom struct {
	Operator int
	Operands []int
}

// Fact states that an atom evaluates to the symbol at index Result.
type Fact struct {
	Atom   Atom
	Result int
}

// commutative operators have their operands ordered when an atom is keyed.
var commutative = map[string]bool{"=": true, "and": true, "or": true}

// Canonical rewrites a through the current roots of reg.
func (a Atom) Canonical(reg *Registry) Atom {
	ops := make([]int, len(a.Operands))
	for i, o := range a.Operands {
		ops[i] = reg.Root(o)
	}
	return Atom{Operator: reg.Root(a.Operator), Operands: ops}
}

// key identifies the congruence class of a under the current roots of reg.
func (a Atom) key(reg *Registry) string {
	c := a.Canonical(reg)
	if commutative[reg.SymbolForIndex(c.Operator)] {
		sort.Ints(c.Operands)
	}
	var sb strings.Builder
	sb.WriteString(strconv.Itoa(c.Operator))
	sb.WriteByte('(')
	for i, o := range c.Operands {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.Itoa(o))
	}
	sb.WriteByte(')')
	return sb.String()
}

// Quantifiers counts the operator and operand positions held by quantified
// symbols of reg.
func (a Atom) Quantifiers(reg *Registry) int {
	n := 0
	if reg.UsageByIndex(reg.Root(a.Operator)).IsQuantified() {
		n++
	}
	for _, o := range a.Operands {
		if reg.UsageByIndex(reg.Root(o)).IsQuantified() {
			n++
		}
	}
	return n
}

// Symbols returns the root names of the operator and operands.
func (a Atom) Symbols(reg *Registry) []string {
	out := []string{reg.SymbolForIndex(reg.Root(a.Operator))}
	for _, o := range a.Operands {
		out = append(out, reg.SymbolForIndex(reg.Root(o)))
	}
	return out
}

// String renders a as op(arg, ...) using root names.
func (a Atom) String(reg *Registry) string {
	syms := a.Symbols(reg)
	return syms[0] + "(" + strings.Join(syms[1:], ", ") + ")"
}

// SortByQuantifiers stably orders facts by ascending Quantifiers.
func SortByQuantifiers(facts []Fact, reg *Registry) {
	sort.SliceStable(facts, func(i, j int) bool {
		return facts[i].Atom.Quantifiers(reg) < facts[j].Atom.Quantifiers(reg)
	})
}
