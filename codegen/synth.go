package codegen

import (
	"fmt"

	"github.com/merl-lang/merl/ast"
	"github.com/merl-lang/merl/internal/wasm"
	"github.com/merl-lang/merl/types"
)

// valueTypeFromSource maps a source type to the Wasm value type values of
// that type are represented as.
func valueTypeFromSource(t types.Type, env *Environment, table *SymbolTable) (wasm.ValueType, error) {
	switch {
	case types.IsInt(t):
		return wasm.ValueTypeInt, nil
	case types.IsBool(t):
		return wasm.ValueTypeBool, nil
	case types.IsNil(t):
		return wasm.ValueTypeNil, nil
	case types.IsFloat(t):
		return wasm.ValueTypeFloat, nil
	}

	switch typ := t.(type) {
	case *types.Named:
		if len(typ.Args) > 0 {
			return wasm.ValueType{}, unsupportedf("generic type %s", typ.Name)
		}
		binding, ok := env.Get(typ.Name)
		if !ok {
			panic(fmt.Sprintf("BUG: named type %s not in the environment", typ.Name))
		}
		switch b := binding.(type) {
		case ProductBinding:
			product := table.Product(b.ID)
			return wasm.StructRefType(table.Type(product.TypeID).ID), nil
		case SumBinding:
			sum := table.Sum(b.ID)
			return wasm.StructRefType(table.Type(sum.TypeID).ID), nil
		default:
			return wasm.ValueType{}, unsupportedf("type %s resolved to a %T", typ.Name, binding)
		}
	case *types.Var:
		if typ.Link == nil {
			panic("BUG: unresolved type variable reached the backend")
		}
		return valueTypeFromSource(typ.Link, env, table)
	default:
		return wasm.ValueType{}, unsupportedf("type %T", t)
	}
}

// typeFromFunction synthesises a function's signature type.
func typeFromFunction(f *ast.Function, name string, id TypeID, env *Environment, table *SymbolTable) (*wasm.Type, error) {
	params := make([]wasm.ValueType, 0, len(f.Arguments))
	for _, arg := range f.Arguments {
		vt, err := valueTypeFromSource(arg.Type, env, table)
		if err != nil {
			return nil, err
		}
		params = append(params, vt)
	}

	result, err := valueTypeFromSource(f.ReturnType, env, table)
	if err != nil {
		return nil, err
	}

	return &wasm.Type{
		Name: name,
		ID:   wasm.Index(id),
		Definition: wasm.FunctionTypeDefinition{
			Params: params,
			Result: result,
		},
	}, nil
}

// typeFromProduct synthesises the struct type of one variant: the tag field
// is implicit in the definition, the variant's fields follow it.
func typeFromProduct(variant *ast.RecordConstructor, name string, typeID TypeID, tag uint32,
	supertypeIndex wasm.Index, env *Environment, table *SymbolTable) (*wasm.Type, error) {
	fields, err := variantFieldTypes(variant, env, table)
	if err != nil {
		return nil, err
	}

	return &wasm.Type{
		Name: name,
		ID:   wasm.Index(typeID),
		Definition: wasm.ProductTypeDefinition{
			SupertypeIndex: supertypeIndex,
			Tag:            tag,
			Fields:         fields,
		},
	}, nil
}

// typeFromProductConstructor synthesises the signature of a variant's
// constructor function: one parameter per field, returning a reference to
// the product struct.
func typeFromProductConstructor(variant *ast.RecordConstructor, name string,
	productTypeIndex wasm.Index, constructorTypeID TypeID, env *Environment, table *SymbolTable) (*wasm.Type, error) {
	fields, err := variantFieldTypes(variant, env, table)
	if err != nil {
		return nil, err
	}

	return &wasm.Type{
		Name: name,
		ID:   wasm.Index(constructorTypeID),
		Definition: wasm.FunctionTypeDefinition{
			Params: fields,
			Result: wasm.StructRefType(productTypeIndex),
		},
	}, nil
}

func variantFieldTypes(variant *ast.RecordConstructor, env *Environment, table *SymbolTable) ([]wasm.ValueType, error) {
	var fields []wasm.ValueType
	for _, arg := range variant.Arguments {
		vt, err := valueTypeFromSource(arg.Type, env, table)
		if err != nil {
			return nil, err
		}
		fields = append(fields, vt)
	}
	return fields, nil
}
