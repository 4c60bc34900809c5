package codegen

import (
	"fmt"

	"github.com/merl-lang/merl/internal/wasm"
)

// Typed identifiers into the symbol table. Each kind has its own dense,
// zero-origin index space.
type (
	TypeID     uint32
	FunctionID uint32
	ProductID  uint32
	SumID      uint32
	ConstantID uint32
	LocalID    uint32
)

// Function is a callable entity: a user function or a generated constructor.
// Its FunctionID doubles as the final Wasm function index.
type Function struct {
	ID     FunctionID
	Name   string
	TypeID TypeID
	Arity  uint32
}

// ProductKind distinguishes zero-argument variants, which are backed by a
// singleton global, from variants carrying fields.
type ProductKind int

const (
	ProductSimple ProductKind = iota
	ProductComposite
)

// ProductField is one constructor argument of a composite product.
type ProductField struct {
	// Label is the source label, or the generated `arg<i>` when absent.
	Label string
	// Index is the field's position among the constructor arguments. The
	// struct field index is one higher, after the tag.
	Index uint32
	Type  wasm.ValueType
}

// Product is one variant of a sum.
type Product struct {
	ID            ProductID
	Name          string
	TypeID        TypeID
	SumID         SumID
	Tag           uint32
	ConstructorID FunctionID
	Kind          ProductKind
	Fields        []ProductField

	// GlobalID is the singleton instance, only valid for ProductSimple.
	GlobalID ConstantID
}

// Sum is a user-declared custom type.
type Sum struct {
	ID       SumID
	Name     string
	TypeID   TypeID
	Variants []ProductID
}

// Constant is a module global. Its ConstantID doubles as the final Wasm
// global index.
type Constant struct {
	ID   ConstantID
	Name string
	// TypeID is the product struct type the global holds.
	TypeID TypeID
	// Initializer is run by the start function, see the binary encoder.
	Initializer []byte
}

// SymbolTable stores every entity synthesised while assembling a module,
// behind the IDs its allocators issue. Entities are reserved in one pass and
// defined in a later one, which is what lets signatures reference functions
// and types that appear later in the source. Nothing is ever removed.
type SymbolTable struct {
	typeIndexes     indexAllocator
	functionIndexes indexAllocator
	productIndexes  indexAllocator
	sumIndexes      indexAllocator
	constantIndexes indexAllocator

	types     []*wasm.Type
	functions []*Function
	products  []*Product
	sums      []*Sum
	constants []*Constant
}

func NewSymbolTable() *SymbolTable {
	return &SymbolTable{}
}

func (t *SymbolTable) ReserveType() TypeID {
	t.types = append(t.types, nil)
	return TypeID(t.typeIndexes.Next())
}

func (t *SymbolTable) DefineType(id TypeID, typ *wasm.Type) {
	t.types[id] = typ
}

func (t *SymbolTable) Type(id TypeID) *wasm.Type {
	if typ := t.types[id]; typ != nil {
		return typ
	}
	panic(fmt.Sprintf("BUG: type %d reserved but never defined", id))
}

// Types returns every defined type ascending by ID.
func (t *SymbolTable) Types() []*wasm.Type {
	return t.types
}

func (t *SymbolTable) ReserveFunction() FunctionID {
	t.functions = append(t.functions, nil)
	return FunctionID(t.functionIndexes.Next())
}

func (t *SymbolTable) DefineFunction(id FunctionID, f *Function) {
	t.functions[id] = f
}

func (t *SymbolTable) Function(id FunctionID) *Function {
	if f := t.functions[id]; f != nil {
		return f
	}
	panic(fmt.Sprintf("BUG: function %d reserved but never defined", id))
}

func (t *SymbolTable) Functions() []*Function {
	return t.functions
}

func (t *SymbolTable) ReserveProduct() ProductID {
	t.products = append(t.products, nil)
	return ProductID(t.productIndexes.Next())
}

func (t *SymbolTable) DefineProduct(id ProductID, p *Product) {
	t.products[id] = p
}

func (t *SymbolTable) Product(id ProductID) *Product {
	if p := t.products[id]; p != nil {
		return p
	}
	panic(fmt.Sprintf("BUG: product %d reserved but never defined", id))
}

func (t *SymbolTable) ReserveSum() SumID {
	t.sums = append(t.sums, nil)
	return SumID(t.sumIndexes.Next())
}

func (t *SymbolTable) DefineSum(id SumID, s *Sum) {
	t.sums[id] = s
}

func (t *SymbolTable) Sum(id SumID) *Sum {
	if s := t.sums[id]; s != nil {
		return s
	}
	panic(fmt.Sprintf("BUG: sum %d reserved but never defined", id))
}

func (t *SymbolTable) ReserveConstant() ConstantID {
	t.constants = append(t.constants, nil)
	return ConstantID(t.constantIndexes.Next())
}

func (t *SymbolTable) DefineConstant(id ConstantID, c *Constant) {
	t.constants[id] = c
}

func (t *SymbolTable) Constant(id ConstantID) *Constant {
	if c := t.constants[id]; c != nil {
		return c
	}
	panic(fmt.Sprintf("BUG: constant %d reserved but never defined", id))
}

func (t *SymbolTable) Constants() []*Constant {
	return t.constants
}

// Local is a function-body local or argument.
type Local struct {
	ID   LocalID
	Name string
	Type wasm.ValueType
}

// localAllocator issues the locals of one function. Arguments occupy the
// first slots; IDs are the final local indices.
type localAllocator struct {
	indexes indexAllocator
	locals  []Local
}

func newLocalAllocator() *localAllocator {
	return &localAllocator{}
}

func (a *localAllocator) New(name string, t wasm.ValueType) LocalID {
	id := LocalID(a.indexes.Next())
	a.locals = append(a.locals, Local{ID: id, Name: name, Type: t})
	return id
}

// NewTemp allocates a generated local named prefix plus its own index, e.g.
// `#assign#3`.
func (a *localAllocator) NewTemp(prefix string, t wasm.ValueType) LocalID {
	id := LocalID(a.indexes.Next())
	a.locals = append(a.locals, Local{ID: id, Name: fmt.Sprintf("%s%d", prefix, id), Type: t})
	return id
}

// BodyLocals returns the locals after the first arity argument slots, in
// allocation order, as the module representation wants them.
func (a *localAllocator) BodyLocals(arity int) []wasm.Local {
	var out []wasm.Local
	for _, l := range a.locals[arity:] {
		out = append(out, wasm.Local{Name: l.Name, Type: l.Type})
	}
	return out
}
