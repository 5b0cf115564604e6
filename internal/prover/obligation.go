package prover

import (
	"github.com/gnolang/vcprove/internal/congruence"
	"github.com/gnolang/vcprove/internal/mathexp"
	"github.com/gnolang/vcprove/internal/types"
)

// seedAxioms ground the boolean connectives in every obligation model.
var seedAxioms = []mathexp.Exp{
	mathexp.Eq(mathexp.Eq(mathexp.True, mathexp.False), mathexp.False),
	mathexp.Eq(mathexp.And(mathexp.True, mathexp.True), mathexp.True),
	mathexp.Eq(mathexp.And(mathexp.True, mathexp.False), mathexp.False),
	mathexp.Eq(mathexp.And(mathexp.False, mathexp.False), mathexp.False),
}

// Obligation is the working model of one VC: its antecedent asserted into a
// congruence model, and its consequent registered as goals.
type Obligation struct {
	vc    types.VC
	model *congruence.Conjunction
	// goals holds one group per consequent conjunct. A group is met when
	// any of its symbols shares a class with true.
	goals [][]string
}

// NewObligation builds the model for vc. Formulas are normalized with norm
// before they reach the model.
func NewObligation(vc types.VC, norm mathexp.Normalizer) *Obligation {
	ob := &Obligation{
		vc:    vc,
		model: congruence.NewConjunction(congruence.NewRegistry()),
	}

	for _, r := range vc.Sequent.Right {
		for _, conjunct := range mathexp.SplitIntoConjuncts(norm.Normalize(r)) {
			var group []int
			for _, branch := range mathexp.SplitIntoDisjuncts(conjunct) {
				group = append(group, ob.model.AddFormula(branch))
			}
			ob.addGoalGroup(group)
		}
	}

	for _, l := range vc.Sequent.Left {
		for _, conjunct := range mathexp.SplitIntoConjuncts(norm.Normalize(l)) {
			ob.model.AddExpression(conjunct)
			if ob.model.EvaluatesToFalse() {
				break
			}
		}
	}

	for _, axiom := range seedAxioms {
		ob.model.AddExpression(axiom)
	}
	return ob
}

func (ob *Obligation) ID() int {
	return ob.vc.ID
}

func (ob *Obligation) VC() types.VC {
	return ob.vc
}

// Model exposes the congruence model. Only the proof loop of the owning
// prover may modify it.
func (ob *Obligation) Model() *congruence.Conjunction {
	return ob.model
}

// AddGoal registers the class of index as a goal of its own.
func (ob *Obligation) AddGoal(index int) {
	ob.addGoalGroup([]int{index})
}

func (ob *Obligation) addGoalGroup(indices []int) {
	reg := ob.model.Registry()
	seen := make(map[string]bool)
	var group []string
	for _, i := range indices {
		name := reg.SymbolForIndex(reg.Root(i))
		if !seen[name] {
			seen[name] = true
			group = append(group, name)
		}
	}
	ob.goals = append(ob.goals, group)
}

// Goals returns the current root symbols of every unmet goal, deduplicated.
func (ob *Obligation) Goals() []string {
	reg := ob.model.Registry()
	seen := make(map[string]bool)
	var out []string
	for _, group := range ob.goals {
		if ob.met(group) {
			continue
		}
		for _, g := range group {
			root := reg.RootSymbol(g)
			if !seen[root] {
				seen[root] = true
				out = append(out, root)
			}
		}
	}
	return out
}

func (ob *Obligation) met(group []string) bool {
	reg := ob.model.Registry()
	t := reg.Root(congruence.IndexTrue)
	for _, g := range group {
		if reg.Root(reg.IndexForSymbol(g)) == t {
			return true
		}
	}
	return false
}

// Status reports FalseAssumption once the antecedent has collapsed, Proved
// once every goal group is met, and StillEvaluating otherwise.
func (ob *Obligation) Status() types.Status {
	if ob.model.EvaluatesToFalse() {
		return types.FalseAssumption
	}
	if len(ob.goals) == 0 {
		return types.StillEvaluating
	}
	for _, group := range ob.goals {
		if !ob.met(group) {
			return types.StillEvaluating
		}
	}
	return types.Proved
}

func (ob *Obligation) String() string {
	return ob.vc.Sequent.String()
}
