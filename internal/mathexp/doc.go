// Package mathexp defines the mathematical expression tree consumed by the
// prover, together with the handful of structural operations the prover needs:
// sub-expression enumeration, conjunct splitting, substitution and literal
// tests.
//
// An expression is one of four closed variants:
//
//	Symbol       - a variable, constant or literal (x, 0, true, S.Length)
//	Apply        - a function application, including infix operators
//	Lambda       - an anonymous function
//	Alternatives - a piecewise definition ({{a if c; b otherwise}})
//
// Expressions are values. Nothing in this package mutates an expression in
// place; operations such as Substitute and Normalize return new trees.
//
// Formulas are usually produced by Parse, which accepts expr-lang's expression
// syntax and maps it onto the variants above:
//
//	exp, err := mathexp.Parse("x + 0 == x", mathexp.Env{
//	    ForAll: map[string]mathexp.Type{"x": mathexp.TypeInteger},
//	})
package mathexp
