package codegen

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/merl-lang/merl/internal/wasm"
)

func TestSymbolTable_ReserveThenDefine(t *testing.T) {
	table := NewSymbolTable()

	// Reservation order fixes the IDs, definition may happen later.
	f0 := table.ReserveFunction()
	f1 := table.ReserveFunction()
	require.Equal(t, FunctionID(0), f0)
	require.Equal(t, FunctionID(1), f1)

	table.DefineFunction(f1, &Function{ID: f1, Name: "second"})
	table.DefineFunction(f0, &Function{ID: f0, Name: "first"})

	require.Equal(t, "first", table.Function(f0).Name)
	require.Equal(t, "second", table.Function(f1).Name)
}

func TestSymbolTable_GetUndefinedPanics(t *testing.T) {
	table := NewSymbolTable()
	id := table.ReserveType()
	require.Panics(t, func() { table.Type(id) })
}

func TestSymbolTable_TypesAscending(t *testing.T) {
	table := NewSymbolTable()
	for i := 0; i < 4; i++ {
		id := table.ReserveType()
		table.DefineType(id, &wasm.Type{ID: wasm.Index(id), Definition: wasm.SumTypeDefinition{}})
	}

	listed := table.Types()
	require.Len(t, listed, 4)
	for i, typ := range listed {
		require.Equal(t, wasm.Index(i), typ.ID)
	}
}

func TestLocalAllocator(t *testing.T) {
	locals := newLocalAllocator()

	// Arguments first.
	a := locals.New("a", wasm.ValueTypeInt)
	b := locals.New("b", wasm.ValueTypeFloat)
	require.Equal(t, LocalID(0), a)
	require.Equal(t, LocalID(1), b)

	tmp := locals.NewTemp("#assign#", wasm.ValueTypeInt)
	require.Equal(t, LocalID(2), tmp)

	body := locals.BodyLocals(2)
	require.Equal(t, []wasm.Local{{Name: "#assign#2", Type: wasm.ValueTypeInt}}, body)
}

func TestLocalAllocator_NoBodyLocals(t *testing.T) {
	locals := newLocalAllocator()
	locals.New("x", wasm.ValueTypeInt)
	require.Empty(t, locals.BodyLocals(1))
}
