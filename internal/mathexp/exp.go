package mathexp

import "strings"

// Type is the mathematical classification of an expression ("B", "Z", ...).
type Type string

const (
	TypeBoolean Type = "B"
	TypeInteger Type = "Z"
	TypeNatural Type = "N"
	// TypeEntity is the classification of anything left undeclared.
	// It is compatible with every other type.
	TypeEntity Type = "Entity"
)

// Accepts reports whether a value classified as other may stand where t is
// expected.
func (t Type) Accepts(other Type) bool {
	return t == other || t == TypeEntity || other == TypeEntity
}

// Numeric reports whether t is one of the integer base sorts.
func (t Type) Numeric() bool {
	return t == TypeInteger || t == TypeNatural
}

// Quantification marks how a symbol is bound.
type Quantification int

const (
	QuantNone Quantification = iota
	QuantForAll
	QuantExists
)

func (q Quantification) String() string {
	switch q {
	case QuantNone:
		return "None"
	case QuantForAll:
		return "ForAll"
	case QuantExists:
		return "Exists"
	default:
		return "?"
	}
}

// Operator names shared by the parser, the normalizer and the prover.
const (
	OpEq      = "="
	OpNeq     = "/="
	OpAnd     = "and"
	OpOr      = "or"
	OpNot     = "not"
	OpImplies = "implies"
	OpLe      = "<="
	OpLt      = "<"
	OpGe      = ">="
	OpGt      = ">"
	OpPlus    = "+"
	OpMinus   = "-"
	OpTimes   = "*"
)

var infixOps = map[string]bool{
	OpEq: true, OpNeq: true, OpAnd: true, OpOr: true, OpImplies: true,
	OpLe: true, OpLt: true, OpGe: true, OpGt: true,
	OpPlus: true, OpMinus: true, OpTimes: true, "/": true, "%": true,
}

// Exp is a mathematical expression.
type Exp interface {
	isExp()
	Type() Type
	String() string
}

// Symbol is a named leaf: a variable, a constant or a literal.
type Symbol struct {
	Name  string
	Typ   Type
	Quant Quantification
}

func (Symbol) isExp()           {}
func (s Symbol) Type() Type     { return s.Typ }
func (s Symbol) String() string { return s.Name }

// Apply is a function application. Infix operators are applications whose
// Func is the operator symbol.
type Apply struct {
	Func Exp
	Args []Exp
	Typ  Type
}

func (Apply) isExp()       {}
func (a Apply) Type() Type { return a.Typ }

func (a Apply) String() string {
	name := a.Func.String()
	if len(a.Args) == 2 && infixOps[name] {
		return operand(a.Args[0]) + " " + name + " " + operand(a.Args[1])
	}
	parts := make([]string, len(a.Args))
	for i, arg := range a.Args {
		parts[i] = arg.String()
	}
	return name + "(" + strings.Join(parts, ", ") + ")"
}

func operand(e Exp) string {
	if app, ok := e.(Apply); ok && len(app.Args) == 2 && infixOps[app.Func.String()] {
		return "(" + e.String() + ")"
	}
	return e.String()
}

// Lambda is an anonymous function over typed parameters.
type Lambda struct {
	Params []Symbol
	Body   Exp
	Typ    Type
}

func (Lambda) isExp()       {}
func (l Lambda) Type() Type { return l.Typ }

func (l Lambda) String() string {
	params := make([]string, len(l.Params))
	for i, p := range l.Params {
		params[i] = p.Name + ": " + string(p.Typ)
	}
	return "lambda(" + strings.Join(params, ", ") + ").(" + l.Body.String() + ")"
}

// Branch is one guarded result of an Alternatives expression.
type Branch struct {
	Result    Exp
	Condition Exp
}

// Alternatives is a piecewise expression with a mandatory fallback.
type Alternatives struct {
	Branches  []Branch
	Otherwise Exp
	Typ       Type
}

func (Alternatives) isExp()       {}
func (a Alternatives) Type() Type { return a.Typ }

func (a Alternatives) String() string {
	var sb strings.Builder
	sb.WriteString("{{")
	for _, b := range a.Branches {
		sb.WriteString(b.Result.String())
		sb.WriteString(" if ")
		sb.WriteString(b.Condition.String())
		sb.WriteString("; ")
	}
	sb.WriteString(a.Otherwise.String())
	sb.WriteString(" otherwise}}")
	return sb.String()
}

// Literal truth values.
var (
	True  = Symbol{Name: "true", Typ: TypeBoolean}
	False = Symbol{Name: "false", Typ: TypeBoolean}
)

// Helper constructors

func Sym(name string, typ Type) Symbol {
	return Symbol{Name: name, Typ: typ}
}

func Var(name string, typ Type) Symbol {
	return Symbol{Name: name, Typ: typ, Quant: QuantForAll}
}

// Call applies the operator named op to args.
func Call(op string, typ Type, args ...Exp) Apply {
	return Apply{Func: Symbol{Name: op, Typ: typ}, Args: args, Typ: typ}
}

func Eq(a, b Exp) Apply      { return Call(OpEq, TypeBoolean, a, b) }
func And(a, b Exp) Apply     { return Call(OpAnd, TypeBoolean, a, b) }
func Or(a, b Exp) Apply      { return Call(OpOr, TypeBoolean, a, b) }
func Not(p Exp) Apply        { return Call(OpNot, TypeBoolean, p) }
func Implies(p, q Exp) Apply { return Call(OpImplies, TypeBoolean, p, q) }
