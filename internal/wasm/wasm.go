// Package wasm holds the in-memory representation of the WebAssembly module
// produced by the code generator, alongside the opcode constants and the
// instruction buffer used to build function bodies.
//
// The representation targets the GC and typed function references proposals:
// user-defined data types become struct types related by subtyping.
package wasm

// Index is the zero-origin offset of an entity in its index space, e.g. a
// function index or type index.
//
// See https://www.w3.org/TR/2019/REC-wasm-core-1-20191205/#binary-index
type Index = uint32

// Module is the output of the module assembler and the input of the binary
// encoder. Unlike a general-purpose module representation it only carries
// the spaces this compiler emits: types, functions and globals. The start
// function which initialises the globals is synthesised during encoding and
// is deliberately absent here.
type Module struct {
	// Functions carry encoded bodies. The encoder sorts by FunctionIndex,
	// which must be dense starting at zero.
	Functions []*Function

	// Globals back zero-arity data constructors. The encoder sorts by
	// GlobalIndex, which must be dense starting at zero.
	Globals []*Global

	// Types are sorted by ID during encoding and must be dense starting at
	// zero. Products must appear after the sum they subtype.
	Types []*Type
}

// Function is one code entry: a user function or a generated constructor.
type Function struct {
	// Name appears in the name section.
	Name string

	// FunctionIndex is this function's position in the function index space.
	FunctionIndex Index

	// TypeIndex refers to this function's signature in the type section.
	TypeIndex Index

	// Body holds the encoded instructions, terminated by OpcodeEnd.
	Body []byte

	// Locals are the body locals in allocation order, excluding arguments.
	Locals []Local

	// ArgumentNames name the first len(ArgumentNames) locals. An empty
	// string means the argument had no name in the source.
	ArgumentNames []string
}

// Local is a function-body local together with its name-section name.
type Local struct {
	Name string
	Type ValueType
}

// Global is a module global backing one zero-arity constructor instance.
//
// Globals of concrete reference type cannot reference a function in their
// initialiser, so each is declared nullable and mutable, initialised to
// ref.null, and assigned its real value by the synthesised start function.
type Global struct {
	// Name appears in the name section.
	Name string

	// GlobalIndex is this global's position in the global index space.
	GlobalIndex Index

	// TypeIndex is the product struct type this global holds.
	TypeIndex Index

	// Initializer holds encoded instructions run by the start function,
	// without a trailing OpcodeEnd. The start function appends
	// global.set GlobalIndex after them.
	Initializer []byte
}

// Type is one entry in the type section.
type Type struct {
	// Name appears in the name section.
	Name string

	// ID is this type's position in the type index space.
	ID Index

	Definition TypeDefinition
}

// TypeDefinition is one of FunctionTypeDefinition, SumTypeDefinition or
// ProductTypeDefinition.
type TypeDefinition interface {
	isTypeDefinition()
}

// FunctionTypeDefinition is a function signature. Results are always exactly
// one value in this compiler.
type FunctionTypeDefinition struct {
	Params []ValueType
	Result ValueType
}

// SumTypeDefinition is the opaque supertype of a custom type: a non-final
// struct holding only the variant tag.
type SumTypeDefinition struct{}

// ProductTypeDefinition is one variant of a custom type: a final struct
// subtyping its sum, whose fields are the tag followed by the constructor
// arguments.
type ProductTypeDefinition struct {
	// SupertypeIndex is the type index of the parent sum.
	SupertypeIndex Index

	// Tag is this variant's ordinal among the sum's variants.
	Tag uint32

	// Fields excludes the implicit leading tag field.
	Fields []ValueType
}

func (FunctionTypeDefinition) isTypeDefinition() {}
func (SumTypeDefinition) isTypeDefinition()      {}
func (ProductTypeDefinition) isTypeDefinition()  {}
