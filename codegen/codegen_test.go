package codegen

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/merl-lang/merl/ast"
	"github.com/merl-lang/merl/fsys"
	"github.com/merl-lang/merl/internal/leb128"
	"github.com/merl-lang/merl/internal/wasm"
)

func TestEmitModule_Deterministic(t *testing.T) {
	first, err := EmitModule(testLogger(), colorModule())
	require.NoError(t, err)
	second, err := EmitModule(testLogger(), colorModule())
	require.NoError(t, err)
	require.Equal(t, first, second)
}

// Sections appear exactly once each, in the order the binary format
// requires: type, function, global, start, element, code, then the custom
// name section.
func TestEmitModule_SectionOrder(t *testing.T) {
	for _, c := range []struct {
		name   string
		module *ast.Module
	}{
		{name: "enum", module: colorModule()},
		{name: "record", module: boxModule()},
	} {
		encoded, err := EmitModule(testLogger(), c.module)
		require.NoError(t, err, c.name)

		require.Equal(t, []byte{0x00, 0x61, 0x73, 0x6D, 0x01, 0x00, 0x00, 0x00}, encoded[:8], c.name)

		var order []wasm.SectionID
		pos := 8
		for pos < len(encoded) {
			id := encoded[pos]
			pos++
			size, n, err := leb128.LoadUint32(encoded[pos:])
			require.NoError(t, err, c.name)
			pos += int(n) + int(size)
			order = append(order, id)
		}
		require.Equal(t, pos, len(encoded), c.name)
		require.Equal(t, []wasm.SectionID{
			wasm.SectionIDType,
			wasm.SectionIDFunction,
			wasm.SectionIDGlobal,
			wasm.SectionIDStart,
			wasm.SectionIDElement,
			wasm.SectionIDCode,
			wasm.SectionIDCustom,
		}, order, c.name)
	}
}

// For every entity kind the emitted indices form 0..N with no gaps.
func TestIndexDensity(t *testing.T) {
	for _, module := range []*ast.Module{colorModule(), boxModule()} {
		m, err := constructModule(module, testLogger())
		require.NoError(t, err)

		seenTypes := map[wasm.Index]bool{}
		for _, typ := range m.Types {
			seenTypes[typ.ID] = true
		}
		require.Len(t, seenTypes, len(m.Types))
		for i := 0; i < len(m.Types); i++ {
			require.True(t, seenTypes[wasm.Index(i)], "missing type index %d", i)
		}

		seenFunctions := map[wasm.Index]bool{}
		for _, f := range m.Functions {
			seenFunctions[f.FunctionIndex] = true
		}
		require.Len(t, seenFunctions, len(m.Functions))
		for i := 0; i < len(m.Functions); i++ {
			require.True(t, seenFunctions[wasm.Index(i)], "missing function index %d", i)
		}

		seenGlobals := map[wasm.Index]bool{}
		for _, g := range m.Globals {
			seenGlobals[g.GlobalIndex] = true
		}
		require.Len(t, seenGlobals, len(m.Globals))
		for i := 0; i < len(m.Globals); i++ {
			require.True(t, seenGlobals[wasm.Index(i)], "missing global index %d", i)
		}
	}
}

// Every product subtypes its sum, and the tags are the declaration-order
// ordinals.
func TestSubtypeCoherenceAndTagOrdinals(t *testing.T) {
	m, err := constructModule(colorModule(), testLogger())
	require.NoError(t, err)

	var sumID wasm.Index
	found := false
	for _, typ := range m.Types {
		if _, ok := typ.Definition.(wasm.SumTypeDefinition); ok {
			require.False(t, found, "exactly one sum expected")
			sumID = typ.ID
			found = true
		}
	}
	require.True(t, found)

	tags := map[uint32]string{}
	for _, typ := range m.Types {
		product, ok := typ.Definition.(wasm.ProductTypeDefinition)
		if !ok {
			continue
		}
		require.Equal(t, sumID, product.SupertypeIndex, typ.Name)
		tags[product.Tag] = typ.Name
	}
	require.Equal(t, map[uint32]string{0: "Red", 1: "Green", 2: "Blue"}, tags)
}

func TestModule_WritesArtifact(t *testing.T) {
	fs := afero.NewMemMapFs()
	err := Module(fsys.AferoWriter{Fs: fs}, testLogger(), colorModule())
	require.NoError(t, err)

	written, err := afero.ReadFile(fs, OutputPath)
	require.NoError(t, err)

	expected, err := EmitModule(testLogger(), colorModule())
	require.NoError(t, err)
	require.Equal(t, expected, written)
}

// Nothing reaches the writer when generation fails.
func TestModule_NoPartialArtifact(t *testing.T) {
	fs := afero.NewMemMapFs()
	module := &ast.Module{
		Name:        "broken",
		Definitions: []ast.Definition{&ast.Import{Module: "other"}},
	}

	err := Module(fsys.AferoWriter{Fs: fs}, testLogger(), module)
	require.ErrorIs(t, err, ErrUnsupported)

	exists, err := afero.Exists(fs, OutputPath)
	require.NoError(t, err)
	require.False(t, exists)
}
