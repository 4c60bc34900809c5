package codegen

import (
	"fmt"

	"github.com/merl-lang/merl/ast"
	"github.com/merl-lang/merl/internal/wasm"
)

// patternNode is one step of a compiled pattern: a guard, the projections it
// unlocks, the names it binds and the sub-patterns matching the projected
// values. Compilation builds the tree; translate emits Wasm from it.
type patternNode struct {
	// condition leaves a 32-bit integer on the stack, non-zero iff the
	// match succeeds. Empty means the node always matches.
	condition wasm.CodeBuffer

	// assignments project sub-values of the scrutinee into fresh locals.
	// They only run after condition succeeded, so downcasts in here cannot
	// trap.
	assignments wasm.CodeBuffer

	// bindings enter the enclosing environment when the node matches.
	bindings []patternBinding

	// nested matches the projected locals, in field order.
	nested []*patternNode
}

type patternBinding struct {
	name  string
	local LocalID
}

// compilePattern builds the match tree for a pattern against the scrutinee
// local. No instructions are emitted into the function body here.
func (fc *funcContext) compilePattern(p ast.Pattern, subject LocalID, env *Environment) (*patternNode, error) {
	node := &patternNode{}

	switch pat := p.(type) {
	case *ast.VariablePattern:
		// The scrutinee local itself carries the value; no projection.
		node.bindings = append(node.bindings, patternBinding{name: pat.Name, local: subject})

	case *ast.DiscardPattern:

	case *ast.IntPattern:
		node.condition.LocalGet(wasm.Index(subject))
		intConst(&node.condition, parseInteger(pat.Value))
		intEq(&node.condition)

	case *ast.FloatPattern:
		node.condition.LocalGet(wasm.Index(subject))
		node.condition.F64Const(parseFloat(pat.Value))
		node.condition.F64Eq()

	case *ast.ConstructorPattern:
		return fc.compileConstructorPattern(pat, subject, env)

	default:
		return nil, unsupportedf("pattern %T", p)
	}

	return node, nil
}

func (fc *funcContext) compileConstructorPattern(pat *ast.ConstructorPattern, subject LocalID, env *Environment) (*patternNode, error) {
	binding, ok := env.Get(pat.Name)
	if !ok {
		panic(fmt.Sprintf("BUG: pattern constructor %s not in the environment", pat.Name))
	}

	node := &patternNode{}
	switch b := binding.(type) {
	case NilBinding:
		node.condition.LocalGet(wasm.Index(subject))
		intConst(&node.condition, 0)
		intEq(&node.condition)

	case BooleanBinding:
		node.condition.LocalGet(wasm.Index(subject))
		if b.Value {
			intConst(&node.condition, 1)
		} else {
			intConst(&node.condition, 0)
		}
		intEq(&node.condition)

	case ProductBinding:
		product := fc.table.Product(b.ID)
		productType := fc.table.Type(product.TypeID).ID

		// An instance of the product's concrete struct type necessarily
		// carries the product's tag, so one reference test discriminates.
		node.condition.LocalGet(wasm.Index(subject))
		node.condition.RefTest(productType)

		for i, arg := range pat.Arguments {
			field := product.Fields[i]
			local := fc.locals.NewTemp("#pat#", field.Type)

			node.assignments.LocalGet(wasm.Index(subject))
			node.assignments.RefCast(productType)
			// Field 0 is the tag.
			node.assignments.StructGet(productType, field.Index+1)
			node.assignments.LocalSet(wasm.Index(local))

			child, err := fc.compilePattern(arg.Value, local, env)
			if err != nil {
				return nil, err
			}
			node.nested = append(node.nested, child)
		}

	default:
		return nil, unsupportedf("pattern constructor %s resolved to a %T", pat.Name, binding)
	}

	return node, nil
}

// translate linearises the tree breadth-first into buf. Each condition is
// followed by a branch out of the enclosing block on failure; projections
// and bindings follow, then the node's children.
//
// When checked is false the pattern is statically irrefutable and the
// conditions are skipped entirely.
//
// The caller provides the enclosing block: depth 0 must be the block to
// leave when the match fails.
func (n *patternNode) translate(buf *wasm.CodeBuffer, env *Environment, checked bool) {
	queue := []*patternNode{n}
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]

		if checked && len(node.condition.Bytes()) > 0 {
			buf.AppendBuffer(&node.condition)
			buf.I32Eqz()
			buf.BrIf(0)
		}
		buf.AppendBuffer(&node.assignments)
		for _, b := range node.bindings {
			env.Set(b.name, LocalBinding{ID: b.local})
		}

		queue = append(queue, node.nested...)
	}
}
