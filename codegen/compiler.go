package codegen

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/merl-lang/merl/ast"
	"github.com/merl-lang/merl/internal/wasm"
	"github.com/merl-lang/merl/types"
)

// constructModule assembles the in-memory Wasm module in three passes over
// the definitions:
//
//  1. declare: reserve an ID per definition and bind its name, so bodies and
//     signatures may reference definitions in any order;
//  2. synthesise: sum headers first, then signatures, product structs,
//     constructors and the globals backing zero-arity variants;
//  3. emit: lower every function and constructor body.
func constructModule(module *ast.Module, logger logrus.FieldLogger) (*wasm.Module, error) {
	table := NewSymbolTable()
	env := NewEnvironment()

	// Prelude bindings. Nil, True and False are values of builtin types, not
	// data constructors, and lower to i32 constants.
	env.Set("Nil", NilBinding{})
	env.Set("True", BooleanBinding{Value: true})
	env.Set("False", BooleanBinding{Value: false})

	if err := declareDefinitions(module, table, env); err != nil {
		return nil, err
	}
	if err := synthesiseSumHeaders(module, table, env); err != nil {
		return nil, err
	}
	if err := synthesiseSignatures(module, table, env); err != nil {
		return nil, err
	}

	functions, err := emitBodies(module, table, env, logger)
	if err != nil {
		return nil, err
	}

	globals := make([]*wasm.Global, 0, len(table.Constants()))
	for _, c := range table.Constants() {
		globals = append(globals, &wasm.Global{
			Name:        c.Name,
			GlobalIndex: wasm.Index(c.ID),
			TypeIndex:   table.Type(c.TypeID).ID,
			Initializer: c.Initializer,
		})
	}

	return &wasm.Module{
		Types:     table.Types(),
		Functions: functions,
		Globals:   globals,
	}, nil
}

// declareDefinitions is the first pass: IDs and names only, so that
// signatures and bodies can resolve mutual and self references.
func declareDefinitions(module *ast.Module, table *SymbolTable, env *Environment) error {
	for _, definition := range module.Definitions {
		switch d := definition.(type) {
		case *ast.Function:
			env.Set(d.Name, FunctionBinding{ID: table.ReserveFunction()})
		case *ast.CustomType:
			if len(d.Parameters) > 0 {
				return unsupportedf("generic custom type %s", d.Name)
			}
			env.Set(d.Name, SumBinding{ID: table.ReserveSum()})
		case *ast.TypeAlias:
			return unsupportedf("type alias %s", d.Name)
		case *ast.Import:
			return unsupportedf("import of %s", d.Module)
		case *ast.ModuleConstant:
			return unsupportedf("module constant %s", d.Name)
		default:
			return unsupportedf("definition %T", definition)
		}
	}
	return nil
}

// synthesiseSumHeaders gives every custom type its sum struct type and a
// complete Sum entity before any field of any variant is looked at, so
// variants and signatures may reference custom types declared later.
func synthesiseSumHeaders(module *ast.Module, table *SymbolTable, env *Environment) error {
	for _, definition := range module.Definitions {
		d, ok := definition.(*ast.CustomType)
		if !ok {
			continue
		}
		binding, _ := env.Get(d.Name)
		sumID := binding.(SumBinding).ID

		sumTypeID := table.ReserveType()
		table.DefineType(sumTypeID, &wasm.Type{
			Name:       d.Name,
			ID:         wasm.Index(sumTypeID),
			Definition: wasm.SumTypeDefinition{},
		})

		variants := make([]ProductID, 0, len(d.Variants))
		for range d.Variants {
			variants = append(variants, table.ReserveProduct())
		}
		table.DefineSum(sumID, &Sum{
			ID:       sumID,
			Name:     d.Name,
			TypeID:   sumTypeID,
			Variants: variants,
		})
	}
	return nil
}

// synthesiseSignatures is the remainder of the second pass: function
// signature types, product structs, constructor signatures and entities,
// and the singleton globals of zero-arity variants.
func synthesiseSignatures(module *ast.Module, table *SymbolTable, env *Environment) error {
	for _, definition := range module.Definitions {
		switch d := definition.(type) {
		case *ast.Function:
			binding, _ := env.Get(d.Name)
			functionID := binding.(FunctionBinding).ID

			typeID := table.ReserveType()
			functionType, err := typeFromFunction(d, d.Name, typeID, env, table)
			if err != nil {
				return err
			}
			table.DefineType(typeID, functionType)
			table.DefineFunction(functionID, &Function{
				ID:     functionID,
				Name:   d.Name,
				TypeID: typeID,
				Arity:  uint32(len(d.Arguments)),
			})

		case *ast.CustomType:
			binding, _ := env.Get(d.Name)
			sum := table.Sum(binding.(SumBinding).ID)
			if err := synthesiseVariants(d, sum, table, env); err != nil {
				return err
			}
		}
	}
	return nil
}

func synthesiseVariants(d *ast.CustomType, sum *Sum, table *SymbolTable, env *Environment) error {
	for tag, variant := range d.Variants {
		productID := sum.Variants[tag]
		productTypeID := table.ReserveType()
		constructorID := table.ReserveFunction()
		constructorTypeID := table.ReserveType()

		productType, err := typeFromProduct(variant, variant.Name, productTypeID,
			uint32(tag), table.Type(sum.TypeID).ID, env, table)
		if err != nil {
			return err
		}
		table.DefineType(productTypeID, productType)

		constructorType, err := typeFromProductConstructor(variant, "new@"+variant.Name,
			productType.ID, constructorTypeID, env, table)
		if err != nil {
			return err
		}
		table.DefineType(constructorTypeID, constructorType)

		fieldTypes := productType.Definition.(wasm.ProductTypeDefinition).Fields
		fields := make([]ProductField, 0, len(fieldTypes))
		for i, ft := range fieldTypes {
			label := variant.Arguments[i].Label
			if label == "" {
				label = fmt.Sprintf("arg%d", i)
			}
			fields = append(fields, ProductField{Label: label, Index: uint32(i), Type: ft})
		}

		product := &Product{
			ID:            productID,
			Name:          variant.Name,
			TypeID:        productTypeID,
			SumID:         sum.ID,
			Tag:           uint32(tag),
			ConstructorID: constructorID,
			Kind:          ProductComposite,
			Fields:        fields,
		}

		if len(fields) == 0 {
			// A zero-arity variant has one instance for the whole program,
			// held in a global the start function initialises.
			product.Kind = ProductSimple
			constantID := table.ReserveConstant()
			product.GlobalID = constantID

			var initializer wasm.CodeBuffer
			initializer.Call(wasm.Index(constructorID))
			table.DefineConstant(constantID, &Constant{
				ID:          constantID,
				Name:        variant.Name,
				TypeID:      productTypeID,
				Initializer: initializer.Bytes(),
			})
		}

		table.DefineProduct(productID, product)
		table.DefineFunction(constructorID, &Function{
			ID:     constructorID,
			Name:   variant.Name,
			TypeID: constructorTypeID,
			Arity:  uint32(len(fields)),
		})
		env.Set(variant.Name, ProductBinding{ID: productID})
	}
	return nil
}

// emitBodies is the third pass: function bodies and constructor bodies.
func emitBodies(module *ast.Module, table *SymbolTable, env *Environment, logger logrus.FieldLogger) ([]*wasm.Function, error) {
	var functions []*wasm.Function
	var nextSum SumID
	for _, definition := range module.Definitions {
		switch d := definition.(type) {
		case *ast.Function:
			binding, _ := env.Get(d.Name)
			fn := table.Function(binding.(FunctionBinding).ID)
			logger.WithField("function", d.Name).Debug("lowering function")
			emitted, err := emitFunction(d, fn, table, env)
			if err != nil {
				return nil, err
			}
			functions = append(functions, emitted)

		case *ast.CustomType:
			// The declaration pass reserved sums in definition order. The
			// type's name is not looked up here: a variant of the same name
			// (`type Box { Box(Int) }`) has shadowed it by now.
			sum := table.Sum(nextSum)
			nextSum++
			for _, productID := range sum.Variants {
				product := table.Product(productID)
				logger.WithField("constructor", product.Name).Debug("emitting constructor")
				functions = append(functions, emitConstructor(product, table))
			}
		}
	}
	return functions, nil
}

// funcContext is the per-function state threaded through lowering. Each
// function gets its own; nothing here survives the function.
type funcContext struct {
	table  *SymbolTable
	locals *localAllocator
}

func emitFunction(f *ast.Function, fn *Function, table *SymbolTable, moduleEnv *Environment) (*wasm.Function, error) {
	env := moduleEnv.Enclose()
	locals := newLocalAllocator()

	argumentNames := make([]string, 0, len(f.Arguments))
	for _, arg := range f.Arguments {
		vt, err := valueTypeFromSource(arg.Type, env, table)
		if err != nil {
			return nil, err
		}
		if arg.Name == "" {
			locals.NewTemp("#", vt)
		} else {
			id := locals.New(arg.Name, vt)
			env.Set(arg.Name, LocalBinding{ID: id})
		}
		argumentNames = append(argumentNames, arg.Name)
	}

	fc := &funcContext{table: table, locals: locals}
	var buf wasm.CodeBuffer
	if err := fc.emitStatementList(f.Body, env, &buf); err != nil {
		return nil, fmt.Errorf("in function %s: %w", f.Name, err)
	}
	buf.End()

	return &wasm.Function{
		Name:          f.Name,
		FunctionIndex: wasm.Index(fn.ID),
		TypeIndex:     table.Type(fn.TypeID).ID,
		Body:          buf.Bytes(),
		Locals:        locals.BodyLocals(len(f.Arguments)),
		ArgumentNames: argumentNames,
	}, nil
}

// emitConstructor synthesises a variant constructor's body: the tag, then
// every argument, then one struct allocation.
func emitConstructor(product *Product, table *SymbolTable) *wasm.Function {
	var buf wasm.CodeBuffer
	intConst(&buf, int32(product.Tag))
	for i := range product.Fields {
		buf.LocalGet(wasm.Index(i))
	}
	buf.StructNew(table.Type(product.TypeID).ID)
	buf.End()

	fn := table.Function(product.ConstructorID)
	argumentNames := make([]string, 0, len(product.Fields))
	for _, field := range product.Fields {
		argumentNames = append(argumentNames, field.Label)
	}

	return &wasm.Function{
		Name:          product.Name,
		FunctionIndex: wasm.Index(fn.ID),
		TypeIndex:     table.Type(fn.TypeID).ID,
		Body:          buf.Bytes(),
		ArgumentNames: argumentNames,
	}
}

// emitStatementList lowers statements, dropping every value but the last:
// the list's value is its final statement's.
func (fc *funcContext) emitStatementList(statements []ast.Statement, env *Environment, buf *wasm.CodeBuffer) error {
	for i, statement := range statements {
		if err := fc.emitStatement(statement, env, buf); err != nil {
			return err
		}
		if i < len(statements)-1 {
			buf.Drop()
		}
	}
	return nil
}

func (fc *funcContext) emitStatement(statement ast.Statement, env *Environment, buf *wasm.CodeBuffer) error {
	switch s := statement.(type) {
	case *ast.ExpressionStatement:
		return fc.emitExpression(s.Expression, env, buf)
	case *ast.Assignment:
		return fc.emitAssignment(s, env, buf)
	default:
		return unsupportedf("statement %T", statement)
	}
}

// emitAssignment stores the value in a fresh local and runs the pattern
// against it. A `let` is statically irrefutable so only projections are
// emitted; a `let assert` wraps the checks in two blocks, trapping when the
// pattern rejects the value. Either way the assignment's own value is the
// scrutinee, re-loaded at the end.
func (fc *funcContext) emitAssignment(a *ast.Assignment, env *Environment, buf *wasm.CodeBuffer) error {
	vt, err := valueTypeFromSource(a.Value.Type(), env, fc.table)
	if err != nil {
		return err
	}

	if err := fc.emitExpression(a.Value, env, buf); err != nil {
		return err
	}
	scrutinee := fc.locals.NewTemp("#assign#", vt)
	buf.LocalSet(wasm.Index(scrutinee))

	tree, err := fc.compilePattern(a.Pattern, scrutinee, env)
	if err != nil {
		return err
	}

	switch a.Kind {
	case ast.AssignmentLet:
		tree.translate(buf, env, false)
	case ast.AssignmentAssert:
		// The inner block is the failure target: falling through it hits
		// unreachable. Success branches over it, out of the outer block.
		buf.Block(wasm.BlockTypeEmpty)
		buf.Block(wasm.BlockTypeEmpty)
		tree.translate(buf, env, true)
		buf.Br(1)
		buf.End()
		buf.Unreachable()
		buf.End()
	}

	buf.LocalGet(wasm.Index(scrutinee))
	return nil
}

func (fc *funcContext) emitExpression(expression ast.Expression, env *Environment, buf *wasm.CodeBuffer) error {
	switch e := expression.(type) {
	case *ast.IntLiteral:
		intConst(buf, parseInteger(e.Value))
		return nil

	case *ast.FloatLiteral:
		buf.F64Const(parseFloat(e.Value))
		return nil

	case *ast.NegateInt:
		if err := fc.emitExpression(e.Value, env, buf); err != nil {
			return err
		}
		intConst(buf, -1)
		intMul(buf)
		return nil

	case *ast.NegateBool:
		if err := fc.emitExpression(e.Value, env, buf); err != nil {
			return err
		}
		buf.I32Eqz()
		return nil

	case *ast.Block:
		return fc.emitStatementList(e.Statements, env.Enclose(), buf)

	case *ast.BinOp:
		return fc.emitBinaryOperation(e, env, buf)

	case *ast.Variable:
		return fc.emitVariable(e, env, buf)

	case *ast.Call:
		return fc.emitCall(e, env, buf)

	case *ast.Case:
		return fc.emitCase(e, env, buf)

	case *ast.Todo:
		return unsupportedf("todo expression")

	case *ast.Panic:
		return unsupportedf("panic expression")

	default:
		return unsupportedf("expression %T", expression)
	}
}

func (fc *funcContext) emitVariable(e *ast.Variable, env *Environment, buf *wasm.CodeBuffer) error {
	binding, ok := env.Get(e.Name)
	if !ok {
		panic(fmt.Sprintf("BUG: variable %s not in the environment", e.Name))
	}

	switch b := binding.(type) {
	case LocalBinding:
		buf.LocalGet(wasm.Index(b.ID))
		return nil

	case ProductBinding:
		product := fc.table.Product(b.ID)
		if product.Kind != ProductSimple {
			return unsupportedf("bare reference to constructor %s", product.Name)
		}
		// The singleton is declared nullable only so the start function can
		// fill it in; by the time user code runs it never is.
		buf.GlobalGet(wasm.Index(product.GlobalID))
		buf.RefAsNonNull()
		return nil

	case NilBinding:
		intConst(buf, 0)
		return nil

	case BooleanBinding:
		if b.Value {
			intConst(buf, 1)
		} else {
			intConst(buf, 0)
		}
		return nil

	case FunctionBinding:
		return unsupportedf("function %s used as a value", e.Name)

	default:
		panic(fmt.Sprintf("BUG: variable %s resolved to a %T", e.Name, binding))
	}
}

// emitCall lowers the arguments in declared order, then calls the resolved
// function or constructor. Labelled arguments were already normalised into
// declaration order by the type checker.
func (fc *funcContext) emitCall(e *ast.Call, env *Environment, buf *wasm.CodeBuffer) error {
	fun, ok := e.Fun.(*ast.Variable)
	if !ok {
		return unsupportedf("call through a %T", e.Fun)
	}
	binding, ok := env.Get(fun.Name)
	if !ok {
		panic(fmt.Sprintf("BUG: called function %s not in the environment", fun.Name))
	}

	var target FunctionID
	switch b := binding.(type) {
	case FunctionBinding:
		target = b.ID
	case ProductBinding:
		target = fc.table.Product(b.ID).ConstructorID
	default:
		return unsupportedf("call of %s, a %T", fun.Name, binding)
	}

	for _, arg := range e.Arguments {
		if err := fc.emitExpression(arg.Value, env, buf); err != nil {
			return err
		}
	}
	buf.Call(wasm.Index(target))
	return nil
}

func (fc *funcContext) emitCase(e *ast.Case, env *Environment, buf *wasm.CodeBuffer) error {
	// Subjects are evaluated once, left to right, into fresh locals.
	subjects := make([]LocalID, 0, len(e.Subjects))
	for _, subject := range e.Subjects {
		vt, err := valueTypeFromSource(subject.Type(), env, fc.table)
		if err != nil {
			return err
		}
		if err := fc.emitExpression(subject, env, buf); err != nil {
			return err
		}
		id := fc.locals.NewTemp("#case#", vt)
		buf.LocalSet(wasm.Index(id))
		subjects = append(subjects, id)
	}

	result, err := valueTypeFromSource(e.Typ, env, fc.table)
	if err != nil {
		return err
	}

	buf.Block(wasm.BlockResultType(result))
	for _, clause := range e.Clauses {
		// One block per clause: pattern failure branches to its end, falling
		// through to the next clause.
		buf.Block(wasm.BlockTypeEmpty)
		clauseEnv := env.Enclose()
		for i, pattern := range clause.Patterns {
			tree, err := fc.compilePattern(pattern, subjects[i], clauseEnv)
			if err != nil {
				return err
			}
			tree.translate(buf, clauseEnv, true)
		}
		if err := fc.emitExpression(clause.Body, clauseEnv, buf); err != nil {
			return err
		}
		buf.Br(1)
		buf.End()
	}
	// The checker proved the clauses exhaustive; falling out of every clause
	// is impossible.
	buf.Unreachable()
	buf.End()
	return nil
}

func (fc *funcContext) emitBinaryOperation(e *ast.BinOp, env *Environment, buf *wasm.CodeBuffer) error {
	emitBoth := func() error {
		if err := fc.emitExpression(e.Left, env, buf); err != nil {
			return err
		}
		return fc.emitExpression(e.Right, env, buf)
	}

	switch e.Op {
	case ast.AddInt, ast.SubInt, ast.MultInt:
		if err := emitBoth(); err != nil {
			return err
		}
		switch e.Op {
		case ast.AddInt:
			intAdd(buf)
		case ast.SubInt:
			intSub(buf)
		case ast.MultInt:
			intMul(buf)
		}
		return nil

	case ast.DivInt, ast.RemainderInt:
		return fc.emitTotalIntDivision(e, env, buf)

	case ast.AddFloat, ast.SubFloat, ast.MultFloat:
		if err := emitBoth(); err != nil {
			return err
		}
		switch e.Op {
		case ast.AddFloat:
			buf.F64Add()
		case ast.SubFloat:
			buf.F64Sub()
		case ast.MultFloat:
			buf.F64Mul()
		}
		return nil

	case ast.DivFloat:
		return fc.emitTotalFloatDivision(e, env, buf)

	case ast.And:
		// Right operand only runs when the left was true.
		if err := fc.emitExpression(e.Left, env, buf); err != nil {
			return err
		}
		buf.If(wasm.BlockResultType(wasm.ValueTypeBool))
		if err := fc.emitExpression(e.Right, env, buf); err != nil {
			return err
		}
		buf.Else()
		intConst(buf, 0)
		buf.End()
		return nil

	case ast.Or:
		if err := fc.emitExpression(e.Left, env, buf); err != nil {
			return err
		}
		buf.If(wasm.BlockResultType(wasm.ValueTypeBool))
		intConst(buf, 1)
		buf.Else()
		if err := fc.emitExpression(e.Right, env, buf); err != nil {
			return err
		}
		buf.End()
		return nil

	case ast.Eq, ast.NotEq:
		if err := emitBoth(); err != nil {
			return err
		}
		if err := fc.emitEquality(e, buf); err != nil {
			return err
		}
		if e.Op == ast.NotEq {
			buf.I32Eqz()
		}
		return nil

	case ast.LtInt, ast.LtEqInt, ast.GtInt, ast.GtEqInt:
		if err := emitBoth(); err != nil {
			return err
		}
		switch e.Op {
		case ast.LtInt:
			intLt(buf)
		case ast.LtEqInt:
			intLtEq(buf)
		case ast.GtInt:
			intGt(buf)
		case ast.GtEqInt:
			intGtEq(buf)
		}
		return nil

	case ast.LtFloat, ast.LtEqFloat, ast.GtFloat, ast.GtEqFloat:
		if err := emitBoth(); err != nil {
			return err
		}
		switch e.Op {
		case ast.LtFloat:
			buf.F64Lt()
		case ast.LtEqFloat:
			buf.F64Le()
		case ast.GtFloat:
			buf.F64Gt()
		case ast.GtEqFloat:
			buf.F64Ge()
		}
		return nil

	default:
		return unsupportedf("binary operator %d", e.Op)
	}
}

// emitEquality dispatches == on the operand type.
func (fc *funcContext) emitEquality(e *ast.BinOp, buf *wasm.CodeBuffer) error {
	left := resolveLinks(e.Left.Type())
	right := resolveLinks(e.Right.Type())

	switch {
	case types.IsInt(left), types.IsBool(left), types.IsNil(left):
		if !sameBuiltin(left, right) {
			panic("BUG: equality between differently typed operands")
		}
		intEq(buf)
		return nil
	case types.IsFloat(left):
		if !types.IsFloat(right) {
			panic("BUG: equality between differently typed operands")
		}
		buf.F64Eq()
		return nil
	default:
		return unsupportedf("equality on %T operands", left)
	}
}

// emitTotalIntDivision lowers / and % with the divide-by-zero policy: when
// the divisor is zero the result is the divisor, keeping both operators
// total without trapping.
func (fc *funcContext) emitTotalIntDivision(e *ast.BinOp, env *Environment, buf *wasm.CodeBuffer) error {
	if err := fc.emitExpression(e.Left, env, buf); err != nil {
		return err
	}
	if err := fc.emitExpression(e.Right, env, buf); err != nil {
		return err
	}

	divisor := fc.locals.NewTemp("#div#", wasm.ValueTypeInt)
	buf.LocalTee(wasm.Index(divisor))
	intConst(buf, 0)
	intEq(buf)
	buf.If(wasm.BlockResultType(wasm.ValueTypeInt))
	buf.Drop() // the dividend
	buf.LocalGet(wasm.Index(divisor))
	buf.Else()
	buf.LocalGet(wasm.Index(divisor))
	if e.Op == ast.DivInt {
		intDiv(buf)
	} else {
		intRem(buf)
	}
	buf.End()
	return nil
}

func (fc *funcContext) emitTotalFloatDivision(e *ast.BinOp, env *Environment, buf *wasm.CodeBuffer) error {
	if err := fc.emitExpression(e.Left, env, buf); err != nil {
		return err
	}
	if err := fc.emitExpression(e.Right, env, buf); err != nil {
		return err
	}

	divisor := fc.locals.NewTemp("#div#", wasm.ValueTypeFloat)
	buf.LocalTee(wasm.Index(divisor))
	buf.F64Const(0)
	buf.F64Eq()
	buf.If(wasm.BlockResultType(wasm.ValueTypeFloat))
	buf.Drop() // the dividend
	buf.LocalGet(wasm.Index(divisor))
	buf.Else()
	buf.LocalGet(wasm.Index(divisor))
	buf.F64Div()
	buf.End()
	return nil
}

// parseFloat parses a float literal as written in the source. Like integer
// literals, malformed input cannot get past the lexer.
func parseFloat(value string) float64 {
	val := strings.ReplaceAll(value, "_", "")
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		panic(fmt.Sprintf("BUG: invalid float literal %q: %v", value, err))
	}
	return f
}

// resolveLinks unwraps solved type variables.
func resolveLinks(t types.Type) types.Type {
	for {
		v, ok := t.(*types.Var)
		if !ok {
			return t
		}
		if v.Link == nil {
			panic("BUG: unresolved type variable reached the backend")
		}
		t = v.Link
	}
}

func sameBuiltin(left, right types.Type) bool {
	switch {
	case types.IsInt(left):
		return types.IsInt(right)
	case types.IsBool(left):
		return types.IsBool(right)
	case types.IsNil(left):
		return types.IsNil(right)
	}
	return false
}
