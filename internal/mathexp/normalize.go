package mathexp

// Normalizer rewrites formulas into the reduced operator set the prover
// reasons about: negation and disequality become equations with false, and
// the greater-than family is flipped onto the less-than family.
type Normalizer struct {
	// IntegerSorts enables the base-sort hook that turns strict integer
	// comparisons into non-strict ones: a < b becomes a + 1 <= b.
	IntegerSorts bool
}

func (n Normalizer) Normalize(e Exp) Exp {
	switch e := e.(type) {
	case Symbol:
		return e
	case Apply:
		return n.normalizeApply(e)
	case Lambda:
		return Lambda{Params: e.Params, Body: n.Normalize(e.Body), Typ: e.Typ}
	case Alternatives:
		branches := make([]Branch, len(e.Branches))
		for i, b := range e.Branches {
			branches[i] = Branch{Result: n.Normalize(b.Result), Condition: n.Normalize(b.Condition)}
		}
		return Alternatives{Branches: branches, Otherwise: n.Normalize(e.Otherwise), Typ: e.Typ}
	default:
		return e
	}
}

func (n Normalizer) normalizeApply(e Apply) Exp {
	args := make([]Exp, len(e.Args))
	for i, arg := range e.Args {
		args[i] = n.Normalize(arg)
	}
	op := Operator(e)

	switch {
	case op == OpNot && len(args) == 1:
		return Eq(args[0], False)
	case op == OpNeq && len(args) == 2:
		return Eq(Eq(args[0], args[1]), False)
	case op == OpGe && len(args) == 2:
		return Call(OpLe, TypeBoolean, args[1], args[0])
	case op == OpGt && len(args) == 2:
		return n.strictLess(args[1], args[0])
	case op == OpLt && len(args) == 2:
		return n.strictLess(args[0], args[1])
	}
	return Apply{Func: e.Func, Args: args, Typ: e.Typ}
}

func (n Normalizer) strictLess(a, b Exp) Exp {
	if n.IntegerSorts && a.Type().Numeric() && b.Type().Numeric() {
		one := Symbol{Name: "1", Typ: TypeInteger}
		return Call(OpLe, TypeBoolean, Call(OpPlus, a.Type(), a, one), b)
	}
	return Call(OpLt, TypeBoolean, a, b)
}
