package codegen

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/merl-lang/merl/ast"
	"github.com/merl-lang/merl/internal/wasm"
	"github.com/merl-lang/merl/types"
)

// boxFixture builds the table and environment of `type Box { Box(Int) }`
// without running the assembler, so pattern compilation can be probed in
// isolation.
func boxFixture(t *testing.T) (*funcContext, *Environment) {
	t.Helper()
	table := NewSymbolTable()

	sumTypeID := table.ReserveType()
	table.DefineType(sumTypeID, &wasm.Type{Name: "Box", ID: wasm.Index(sumTypeID), Definition: wasm.SumTypeDefinition{}})
	sumID := table.ReserveSum()
	productID := table.ReserveProduct()

	productTypeID := table.ReserveType()
	table.DefineType(productTypeID, &wasm.Type{
		Name: "Box",
		ID:   wasm.Index(productTypeID),
		Definition: wasm.ProductTypeDefinition{
			SupertypeIndex: wasm.Index(sumTypeID),
			Fields:         []wasm.ValueType{wasm.ValueTypeInt},
		},
	})
	constructorID := table.ReserveFunction()

	table.DefineSum(sumID, &Sum{ID: sumID, Name: "Box", TypeID: sumTypeID, Variants: []ProductID{productID}})
	table.DefineProduct(productID, &Product{
		ID:            productID,
		Name:          "Box",
		TypeID:        productTypeID,
		SumID:         sumID,
		ConstructorID: constructorID,
		Kind:          ProductComposite,
		Fields:        []ProductField{{Label: "arg0", Index: 0, Type: wasm.ValueTypeInt}},
	})

	env := NewEnvironment()
	env.Set("Box", ProductBinding{ID: productID})
	env.Set("True", BooleanBinding{Value: true})

	return &funcContext{table: table, locals: newLocalAllocator()}, env
}

func TestCompilePattern_Variable(t *testing.T) {
	fc, env := boxFixture(t)
	subject := fc.locals.NewTemp("#case#", wasm.ValueTypeInt)

	node, err := fc.compilePattern(&ast.VariablePattern{Name: "x", Typ: types.IntType}, subject, env)
	require.NoError(t, err)

	require.Empty(t, node.condition.Bytes())
	require.Empty(t, node.assignments.Bytes())
	require.Equal(t, []patternBinding{{name: "x", local: subject}}, node.bindings)
	require.Empty(t, node.nested)
}

func TestCompilePattern_Discard(t *testing.T) {
	fc, env := boxFixture(t)
	subject := fc.locals.NewTemp("#case#", wasm.ValueTypeInt)

	node, err := fc.compilePattern(&ast.DiscardPattern{Name: "_"}, subject, env)
	require.NoError(t, err)

	require.Empty(t, node.condition.Bytes())
	require.Empty(t, node.assignments.Bytes())
	require.Empty(t, node.bindings)
}

func TestCompilePattern_IntLiteral(t *testing.T) {
	fc, env := boxFixture(t)
	subject := fc.locals.NewTemp("#case#", wasm.ValueTypeInt)

	node, err := fc.compilePattern(&ast.IntPattern{Value: "7"}, subject, env)
	require.NoError(t, err)

	require.Equal(t, []byte{
		wasm.OpcodeLocalGet, 0x00,
		wasm.OpcodeI32Const, 0x07,
		wasm.OpcodeI32Eq,
	}, node.condition.Bytes())
	require.Empty(t, node.assignments.Bytes())
}

func TestCompilePattern_BooleanBuiltin(t *testing.T) {
	fc, env := boxFixture(t)
	subject := fc.locals.NewTemp("#case#", wasm.ValueTypeBool)

	node, err := fc.compilePattern(&ast.ConstructorPattern{Name: "True", Typ: types.BoolType}, subject, env)
	require.NoError(t, err)

	require.Equal(t, []byte{
		wasm.OpcodeLocalGet, 0x00,
		wasm.OpcodeI32Const, 0x01,
		wasm.OpcodeI32Eq,
	}, node.condition.Bytes())
}

func TestCompilePattern_Constructor(t *testing.T) {
	fc, env := boxFixture(t)
	subject := fc.locals.NewTemp("#case#", wasm.StructRefType(0)) // the Box sum type

	node, err := fc.compilePattern(&ast.ConstructorPattern{
		Name:      "Box",
		Arguments: []ast.PatternArg{{Value: &ast.VariablePattern{Name: "x", Typ: types.IntType}}},
		Typ:       &types.Named{Module: "m", Name: "Box"},
	}, subject, env)
	require.NoError(t, err)

	// Discrimination is one reference test against the product struct type.
	require.Equal(t, []byte{
		wasm.OpcodeLocalGet, 0x00,
		wasm.OpcodeGCPrefix, wasm.OpcodeGCRefTest, 0x01,
	}, node.condition.Bytes())

	// The field is projected past the tag into a fresh local.
	require.Equal(t, []byte{
		wasm.OpcodeLocalGet, 0x00,
		wasm.OpcodeGCPrefix, wasm.OpcodeGCRefCast, 0x01,
		wasm.OpcodeGCPrefix, wasm.OpcodeGCStructGet, 0x01, 0x01,
		wasm.OpcodeLocalSet, 0x01,
	}, node.assignments.Bytes())

	require.Len(t, node.nested, 1)
	require.Equal(t, []patternBinding{{name: "x", local: 1}}, node.nested[0].bindings)
}

func TestTranslate_ChecksThenProjects(t *testing.T) {
	fc, env := boxFixture(t)
	subject := fc.locals.NewTemp("#case#", wasm.StructRefType(0))

	node, err := fc.compilePattern(&ast.ConstructorPattern{
		Name:      "Box",
		Arguments: []ast.PatternArg{{Value: &ast.VariablePattern{Name: "x", Typ: types.IntType}}},
		Typ:       &types.Named{Module: "m", Name: "Box"},
	}, subject, env)
	require.NoError(t, err)

	clauseEnv := env.Enclose()
	var buf wasm.CodeBuffer
	node.translate(&buf, clauseEnv, true)

	require.Equal(t, []byte{
		// condition, then leave the clause when it failed
		wasm.OpcodeLocalGet, 0x00,
		wasm.OpcodeGCPrefix, wasm.OpcodeGCRefTest, 0x01,
		wasm.OpcodeI32Eqz,
		wasm.OpcodeBrIf, 0x00,
		// projection
		wasm.OpcodeLocalGet, 0x00,
		wasm.OpcodeGCPrefix, wasm.OpcodeGCRefCast, 0x01,
		wasm.OpcodeGCPrefix, wasm.OpcodeGCStructGet, 0x01, 0x01,
		wasm.OpcodeLocalSet, 0x01,
	}, buf.Bytes())

	// The nested variable pattern bound the projected local.
	b, ok := clauseEnv.Get("x")
	require.True(t, ok)
	require.Equal(t, LocalBinding{ID: 1}, b)
}

func TestTranslate_IrrefutableSkipsConditions(t *testing.T) {
	fc, env := boxFixture(t)
	subject := fc.locals.NewTemp("#case#", wasm.StructRefType(0))

	node, err := fc.compilePattern(&ast.ConstructorPattern{
		Name:      "Box",
		Arguments: []ast.PatternArg{{Value: &ast.VariablePattern{Name: "x", Typ: types.IntType}}},
		Typ:       &types.Named{Module: "m", Name: "Box"},
	}, subject, env)
	require.NoError(t, err)

	var buf wasm.CodeBuffer
	node.translate(&buf, env.Enclose(), false)

	require.Equal(t, []byte{
		wasm.OpcodeLocalGet, 0x00,
		wasm.OpcodeGCPrefix, wasm.OpcodeGCRefCast, 0x01,
		wasm.OpcodeGCPrefix, wasm.OpcodeGCStructGet, 0x01, 0x01,
		wasm.OpcodeLocalSet, 0x01,
	}, buf.Bytes())
}
