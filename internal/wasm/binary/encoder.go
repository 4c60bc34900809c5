// Package binary serialises the generator's module representation into the
// WebAssembly binary format, including the GC composite types and the name
// section.
package binary

import (
	"sort"

	"github.com/merl-lang/merl/internal/leb128"
	"github.com/merl-lang/merl/internal/wasm"
)

var magic = []byte{0x00, 0x61, 0x73, 0x6D} // magic header = \0asm
var version = []byte{0x01, 0x00, 0x00, 0x00}

// Names synthesised for the start function which initialises the globals,
// and for its `() -> ()` signature.
const (
	startFunctionName = "init@"
	startTypeName     = "typ@init"
)

// EncodeModule implements the encoding of a module in the WebAssembly binary
// format, one section per index space this generator populates, in the order
// type, function, global, start, element, code, name.
//
// The start function is synthesised here: its type is appended after the
// user types, its index follows the user functions, and its body assigns
// every global its initializer value.
//
// See https://www.w3.org/TR/2019/REC-wasm-core-1-20191205/#binary-module
func EncodeModule(m *wasm.Module) []byte {
	types := sortedTypes(m)
	functions := sortedFunctions(m)
	globals := sortedGlobals(m)

	startTypeIndex := wasm.Index(len(types))
	startFunctionIndex := wasm.Index(len(functions))

	buf := append(magic, version...)
	buf = append(buf, encodeTypeSection(types)...)
	buf = append(buf, EncodeFunctionSection(functions, startTypeIndex)...)
	buf = append(buf, encodeGlobalSection(globals)...)
	buf = append(buf, EncodeStartSection(startFunctionIndex)...)
	buf = append(buf, encodeElementSection(functions)...)
	buf = append(buf, encodeCodeSection(functions, globals)...)
	buf = append(buf, encodeNameSection(types, functions, globals, startTypeIndex, startFunctionIndex)...)
	return buf
}

// sortedTypes returns the types ascending by ID, leaving the input order
// intact. Type IDs are dense, so after sorting the slice position equals the
// type index.
func sortedTypes(m *wasm.Module) []*wasm.Type {
	types := make([]*wasm.Type, len(m.Types))
	copy(types, m.Types)
	sort.Slice(types, func(i, j int) bool { return types[i].ID < types[j].ID })
	return types
}

func sortedFunctions(m *wasm.Module) []*wasm.Function {
	functions := make([]*wasm.Function, len(m.Functions))
	copy(functions, m.Functions)
	sort.Slice(functions, func(i, j int) bool {
		return functions[i].FunctionIndex < functions[j].FunctionIndex
	})
	return functions
}

func sortedGlobals(m *wasm.Module) []*wasm.Global {
	globals := make([]*wasm.Global, len(m.Globals))
	copy(globals, m.Globals)
	sort.Slice(globals, func(i, j int) bool {
		return globals[i].GlobalIndex < globals[j].GlobalIndex
	})
	return globals
}

// encodeTypeSection encodes the user types ascending by ID, then the
// synthesised `() -> ()` start function type.
func encodeTypeSection(types []*wasm.Type) []byte {
	contents := leb128.EncodeUint32(uint32(len(types)) + 1)
	for _, t := range types {
		contents = append(contents, encodeTypeDefinition(t.Definition)...)
	}
	contents = append(contents, encodeStartFunctionType()...)
	return encodeSection(wasm.SectionIDType, contents)
}

// EncodeFunctionSection encodes the type index of each function ascending by
// function index, then the start function's.
func EncodeFunctionSection(functions []*wasm.Function, startTypeIndex wasm.Index) []byte {
	contents := leb128.EncodeUint32(uint32(len(functions)) + 1)
	for _, f := range functions {
		contents = append(contents, leb128.EncodeUint32(f.TypeIndex)...)
	}
	contents = append(contents, leb128.EncodeUint32(startTypeIndex)...)
	return encodeSection(wasm.SectionIDFunction, contents)
}

func encodeGlobalSection(globals []*wasm.Global) []byte {
	contents := leb128.EncodeUint32(uint32(len(globals)))
	for _, g := range globals {
		contents = append(contents, encodeGlobal(g)...)
	}
	return encodeSection(wasm.SectionIDGlobal, contents)
}

// encodeGlobal encodes a global declaration: a nullable, mutable reference
// initialised to ref.null so that the start function can assign the real
// instance once constructors exist.
func encodeGlobal(g *wasm.Global) []byte {
	buf := wasm.EncodeNullableRef(g.TypeIndex)
	buf = append(buf, 0x01) // mutable
	var init wasm.CodeBuffer
	init.RefNull(g.TypeIndex)
	init.End()
	return append(buf, init.Bytes()...)
}

// EncodeStartSection encodes the index of the function run at instantiation.
func EncodeStartSection(funcidx wasm.Index) []byte {
	return encodeSection(wasm.SectionIDStart, leb128.EncodeUint32(funcidx))
}

const elementSegmentModeDeclared = 0x03

// encodeElementSection encodes a single declared segment listing every user
// function, which makes their indices legal operands of reference-forming
// instructions without reserving table slots.
func encodeElementSection(functions []*wasm.Function) []byte {
	contents := leb128.EncodeUint32(1) // one segment
	contents = append(contents, elementSegmentModeDeclared)
	contents = append(contents, 0x00) // elemkind: funcref
	contents = append(contents, leb128.EncodeUint32(uint32(len(functions)))...)
	for i := range functions {
		contents = append(contents, leb128.EncodeUint32(uint32(i))...)
	}
	return encodeSection(wasm.SectionIDElement, contents)
}

func encodeCodeSection(functions []*wasm.Function, globals []*wasm.Global) []byte {
	contents := leb128.EncodeUint32(uint32(len(functions)) + 1)
	for _, f := range functions {
		contents = append(contents, encodeCode(f)...)
	}
	contents = append(contents, encodeStartFunctionCode(globals)...)
	return encodeSection(wasm.SectionIDCode, contents)
}

// encodeCode returns the size-prefixed code entry of a function: its body
// locals as run-length pairs in allocation order, then its body.
func encodeCode(f *wasm.Function) []byte {
	// Locals are encoded one run-length pair per local. Merging adjacent
	// same-typed locals would be legal, but one pair each keeps the local
	// indices in the name section trivially aligned.
	entry := leb128.EncodeUint32(uint32(len(f.Locals)))
	for _, l := range f.Locals {
		entry = append(entry, leb128.EncodeUint32(1)...)
		entry = append(entry, l.Type.Encode()...)
	}
	entry = append(entry, f.Body...)
	return encodeSizePrefixed(entry)
}

// encodeStartFunctionCode synthesises the start function body: each global's
// initializer followed by global.set, in global index order.
func encodeStartFunctionCode(globals []*wasm.Global) []byte {
	var body wasm.CodeBuffer
	for _, g := range globals {
		body.AppendBytes(g.Initializer)
		body.GlobalSet(g.GlobalIndex)
	}
	body.End()
	entry := leb128.EncodeUint32(0) // no locals
	entry = append(entry, body.Bytes()...)
	return encodeSizePrefixed(entry)
}

// encodeStartFunctionType encodes the `() -> ()` signature of the start
// function. The user types all return a value, so this type never collides
// with one of theirs.
func encodeStartFunctionType() []byte {
	return []byte{functionTypeTag, 0x00, 0x00}
}
