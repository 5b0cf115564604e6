package mathexp

import (
	"fmt"
	"strconv"

	"github.com/expr-lang/expr/ast"
	"github.com/expr-lang/expr/parser"
)

// Env supplies the classifications the parser attaches to symbols.
type Env struct {
	// Symbols maps declared constants to their type and functions to their
	// result type.
	Symbols map[string]Type
	// ForAll maps universally quantified variables to their type.
	ForAll map[string]Type
}

var binaryOps = map[string]string{
	"==":  OpEq,
	"!=":  OpNeq,
	"and": OpAnd,
	"&&":  OpAnd,
	"or":  OpOr,
	"||":  OpOr,
	"<=":  OpLe,
	"<":   OpLt,
	">=":  OpGe,
	">":   OpGt,
	"+":   OpPlus,
	"-":   OpMinus,
	"*":   OpTimes,
	"/":   "/",
	"%":   "%",
}

// Parse reads one formula written in expr-lang syntax.
func Parse(src string, env Env) (Exp, error) {
	tree, err := parser.Parse(src)
	if err != nil {
		return nil, fmt.Errorf("parse %q: %w", src, err)
	}
	e, err := env.convert(tree.Node)
	if err != nil {
		return nil, fmt.Errorf("parse %q: %w", src, err)
	}
	return e, nil
}

// MustParse is like Parse but panics on error. It is meant for tests and
// fixed formulas.
func MustParse(src string, env Env) Exp {
	e, err := Parse(src, env)
	if err != nil {
		panic(err)
	}
	return e
}

func (env Env) symbol(name string) Symbol {
	if t, ok := env.ForAll[name]; ok {
		return Symbol{Name: name, Typ: t, Quant: QuantForAll}
	}
	if t, ok := env.Symbols[name]; ok {
		return Symbol{Name: name, Typ: t}
	}
	return Symbol{Name: name, Typ: TypeEntity}
}

func (env Env) convert(node ast.Node) (Exp, error) {
	switch n := node.(type) {
	case *ast.BoolNode:
		if n.Value {
			return True, nil
		}
		return False, nil

	case *ast.IntegerNode:
		return Symbol{Name: strconv.Itoa(n.Value), Typ: TypeInteger}, nil

	case *ast.IdentifierNode:
		return env.symbol(n.Value), nil

	case *ast.MemberNode:
		name, err := selectorName(n)
		if err != nil {
			return nil, err
		}
		return env.symbol(name), nil

	case *ast.UnaryNode:
		operand, err := env.convert(n.Node)
		if err != nil {
			return nil, err
		}
		switch n.Operator {
		case "not", "!":
			return Not(operand), nil
		case "-":
			return Call(OpMinus, operand.Type(), operand), nil
		case "+":
			return operand, nil
		}
		return nil, fmt.Errorf("unsupported unary operator %q", n.Operator)

	case *ast.BinaryNode:
		op, ok := binaryOps[n.Operator]
		if !ok {
			return nil, fmt.Errorf("unsupported operator %q", n.Operator)
		}
		left, err := env.convert(n.Left)
		if err != nil {
			return nil, err
		}
		right, err := env.convert(n.Right)
		if err != nil {
			return nil, err
		}
		typ := TypeBoolean
		switch op {
		case OpPlus, OpMinus, OpTimes, "/", "%":
			typ = left.Type()
		}
		return Call(op, typ, left, right), nil

	case *ast.CallNode:
		callee, ok := n.Callee.(*ast.IdentifierNode)
		if !ok {
			return nil, fmt.Errorf("unsupported callee %s", n.Callee.String())
		}
		return env.call(callee.Value, n.Arguments)

	case *ast.BuiltinNode:
		return env.call(n.Name, n.Arguments)

	case *ast.ConditionalNode:
		cond, err := env.convert(n.Cond)
		if err != nil {
			return nil, err
		}
		then, err := env.convert(n.Exp1)
		if err != nil {
			return nil, err
		}
		otherwise, err := env.convert(n.Exp2)
		if err != nil {
			return nil, err
		}
		return Alternatives{
			Branches:  []Branch{{Result: then, Condition: cond}},
			Otherwise: otherwise,
			Typ:       then.Type(),
		}, nil
	}
	return nil, fmt.Errorf("unsupported expression %s", node.String())
}

func (env Env) call(name string, nodes []ast.Node) (Exp, error) {
	args := make([]Exp, len(nodes))
	for i, a := range nodes {
		e, err := env.convert(a)
		if err != nil {
			return nil, err
		}
		args[i] = e
	}
	if name == OpImplies && len(args) == 2 {
		return Implies(args[0], args[1]), nil
	}
	fn := env.symbol(name)
	return Apply{Func: fn, Args: args, Typ: fn.Typ}, nil
}

// selectorName flattens S.Length into the single symbol "S.Length".
func selectorName(n *ast.MemberNode) (string, error) {
	prop, ok := n.Property.(*ast.StringNode)
	if !ok {
		return "", fmt.Errorf("unsupported member access %s", n.String())
	}
	switch base := n.Node.(type) {
	case *ast.IdentifierNode:
		return base.Value + "." + prop.Value, nil
	case *ast.MemberNode:
		prefix, err := selectorName(base)
		if err != nil {
			return "", err
		}
		return prefix + "." + prop.Value, nil
	}
	return "", fmt.Errorf("unsupported member access %s", n.String())
}
