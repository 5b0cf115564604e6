package prover

import (
	"sort"

	"github.com/gnolang/vcprove/internal/congruence"
	"github.com/gnolang/vcprove/internal/mathexp"
)

// excludedSymbols are never tracked as non-quantified helper symbols.
var excludedSymbols = map[string]bool{
	mathexp.OpEq: true, mathexp.OpAnd: true, mathexp.OpOr: true,
	mathexp.OpImplies: true, mathexp.OpNeq: true, mathexp.OpPlus: true,
	"true": true, "false": true, "Empty_String": true,
	"0": true, "1": true, "2": true, "3": true, "4": true,
	"5": true, "6": true, "7": true, "8": true, "9": true,
}

// unmatchablePenalty ranks rules naming symbols the obligation lacks behind
// every rule that could still fire.
const unmatchablePenalty = 100

type rankedTheorem struct {
	theorem *Theorem
	score   int
}

// prioritizer orders the rules for one round of the proof loop.
type prioritizer struct {
	queue []rankedTheorem
}

// newPrioritizer ranks rules for ob. helpers holds the non-quantified
// symbols of every theorem; a rule whose helpers are all missing from the
// obligation can only fire once another rule introduces them.
func newPrioritizer(rules []*Theorem, applied map[string]int, ob *Obligation, helpers map[string]bool) *prioritizer {
	reg := ob.Model().Registry()
	p := &prioritizer{queue: make([]rankedTheorem, 0, len(rules))}
	for _, t := range rules {
		score := applied[t.name]
		if t.smallEnd {
			score++
		}
		if unmatchable(t, reg) || !helpersPresent(t, helpers, reg) {
			score += unmatchablePenalty
		}
		p.queue = append(p.queue, rankedTheorem{theorem: t, score: score})
	}
	sort.SliceStable(p.queue, func(i, j int) bool {
		return p.queue[i].score < p.queue[j].score
	})
	return p
}

// unmatchable reports whether a required pattern operator is a constant the
// obligation does not know.
func unmatchable(t *Theorem, reg *congruence.Registry) bool {
	for _, f := range t.matchRequired {
		name := t.reg.SymbolForIndex(t.reg.Root(f.Atom.Operator))
		if !t.reg.Usage(name).IsVariable() && !reg.IsSymbol(name) {
			return true
		}
	}
	return false
}

// helpersPresent reports whether the obligation knows at least one helper
// symbol of t. Rules without helpers always pass.
func helpersPresent(t *Theorem, helpers map[string]bool, reg *congruence.Registry) bool {
	mentioned := false
	for _, name := range t.symbols {
		if !helpers[name] {
			continue
		}
		if reg.IsSymbol(name) {
			return true
		}
		mentioned = true
	}
	return !mentioned
}

func (p *prioritizer) Len() int {
	return len(p.queue)
}

func (p *prioritizer) peekScore() int {
	return p.queue[0].score
}

func (p *prioritizer) pop() rankedTheorem {
	next := p.queue[0]
	p.queue = p.queue[1:]
	return next
}
