package mathexp

import "fmt"

// Operator returns the name of e's top-level function, or "" when e is not
// an application of a named function.
func Operator(e Exp) string {
	app, ok := e.(Apply)
	if !ok {
		return ""
	}
	if s, ok := app.Func.(Symbol); ok {
		return s.Name
	}
	return ""
}

// IsApply reports whether e is a function application with at least one
// argument, i.e. whether it has subterms a pattern can match against.
func IsApply(e Exp) bool {
	app, ok := e.(Apply)
	return ok && len(app.Args) > 0
}

// SubExpressions returns the immediate children of e.
func SubExpressions(e Exp) []Exp {
	switch e := e.(type) {
	case Symbol:
		return nil
	case Apply:
		return e.Args
	case Lambda:
		return []Exp{e.Body}
	case Alternatives:
		out := make([]Exp, 0, 2*len(e.Branches)+1)
		for _, b := range e.Branches {
			out = append(out, b.Result, b.Condition)
		}
		return append(out, e.Otherwise)
	default:
		panic(fmt.Sprintf("mathexp: unknown expression %T", e))
	}
}

// SplitIntoConjuncts flattens nested top-level conjunctions.
func SplitIntoConjuncts(e Exp) []Exp {
	return splitOn(e, OpAnd)
}

// SplitIntoDisjuncts flattens nested top-level disjunctions.
func SplitIntoDisjuncts(e Exp) []Exp {
	return splitOn(e, OpOr)
}

func splitOn(e Exp, op string) []Exp {
	if Operator(e) != op {
		return []Exp{e}
	}
	var out []Exp
	for _, arg := range e.(Apply).Args {
		out = append(out, splitOn(arg, op)...)
	}
	return out
}

func IsLiteralTrue(e Exp) bool {
	s, ok := e.(Symbol)
	return ok && s.Name == True.Name && s.Quant == QuantNone
}

func IsLiteralFalse(e Exp) bool {
	s, ok := e.(Symbol)
	return ok && s.Name == False.Name && s.Quant == QuantNone
}

// Equal compares two expressions by their printed form.
func Equal(a, b Exp) bool {
	return a.String() == b.String()
}

// Sides returns the two arguments of a binary application.
// Calling it on anything else is a programming error.
func Sides(e Exp) (Exp, Exp) {
	app, ok := e.(Apply)
	if !ok || len(app.Args) != 2 {
		panic(fmt.Sprintf("mathexp: %q is not a binary call form", e))
	}
	return app.Args[0], app.Args[1]
}

// IsTrivialEquality reports whether e is an equation whose sides print alike.
func IsTrivialEquality(e Exp) bool {
	if Operator(e) != OpEq || len(e.(Apply).Args) != 2 {
		return false
	}
	l, r := Sides(e)
	return Equal(l, r)
}

// Substitute replaces every sub-expression whose printed form is a key of m.
// Lambda parameters shadow keys that name them.
func Substitute(e Exp, m map[string]Exp) Exp {
	if len(m) == 0 {
		return e
	}
	if r, ok := m[e.String()]; ok {
		return r
	}
	switch e := e.(type) {
	case Symbol:
		return e
	case Apply:
		args := make([]Exp, len(e.Args))
		for i, arg := range e.Args {
			args[i] = Substitute(arg, m)
		}
		return Apply{Func: Substitute(e.Func, m), Args: args, Typ: e.Typ}
	case Lambda:
		inner := m
		for _, p := range e.Params {
			if _, ok := m[p.Name]; ok {
				inner = without(inner, p.Name)
			}
		}
		return Lambda{Params: e.Params, Body: Substitute(e.Body, inner), Typ: e.Typ}
	case Alternatives:
		branches := make([]Branch, len(e.Branches))
		for i, b := range e.Branches {
			branches[i] = Branch{Result: Substitute(b.Result, m), Condition: Substitute(b.Condition, m)}
		}
		return Alternatives{Branches: branches, Otherwise: Substitute(e.Otherwise, m), Typ: e.Typ}
	default:
		panic(fmt.Sprintf("mathexp: unknown expression %T", e))
	}
}

func without(m map[string]Exp, key string) map[string]Exp {
	out := make(map[string]Exp, len(m))
	for k, v := range m {
		if k != key {
			out[k] = v
		}
	}
	return out
}

// QuantifiedVariables returns the universally quantified symbols of e,
// function positions included, in order of first occurrence.
func QuantifiedVariables(e Exp) []Symbol {
	var out []Symbol
	seen := make(map[string]bool)
	walkSymbols(e, func(s Symbol) {
		if s.Quant == QuantForAll && !seen[s.Name] {
			seen[s.Name] = true
			out = append(out, s)
		}
	})
	return out
}

// SymbolNames returns every distinct symbol name in e, operators included.
func SymbolNames(e Exp) []string {
	var out []string
	seen := make(map[string]bool)
	walkSymbols(e, func(s Symbol) {
		if !seen[s.Name] {
			seen[s.Name] = true
			out = append(out, s.Name)
		}
	})
	return out
}

func walkSymbols(e Exp, fn func(Symbol)) {
	switch e := e.(type) {
	case Symbol:
		fn(e)
	case Apply:
		walkSymbols(e.Func, fn)
		for _, arg := range e.Args {
			walkSymbols(arg, fn)
		}
	case Lambda:
		walkSymbols(e.Body, fn)
	case Alternatives:
		for _, b := range e.Branches {
			walkSymbols(b.Result, fn)
			walkSymbols(b.Condition, fn)
		}
		walkSymbols(e.Otherwise, fn)
	}
}
