package codegen

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEnvironment_GetWalksParents(t *testing.T) {
	root := NewEnvironment()
	root.Set("f", FunctionBinding{ID: 3})

	child := root.Enclose()
	grandchild := child.Enclose()

	b, ok := grandchild.Get("f")
	require.True(t, ok)
	require.Equal(t, FunctionBinding{ID: 3}, b)

	_, ok = grandchild.Get("missing")
	require.False(t, ok)
}

func TestEnvironment_SetShadows(t *testing.T) {
	root := NewEnvironment()
	root.Set("x", FunctionBinding{ID: 1})

	child := root.Enclose()
	child.Set("x", LocalBinding{ID: 7})

	b, _ := child.Get("x")
	require.Equal(t, LocalBinding{ID: 7}, b)

	// The parent is untouched.
	b, _ = root.Get("x")
	require.Equal(t, FunctionBinding{ID: 1}, b)
}

func TestEnvironment_Builtins(t *testing.T) {
	env := NewEnvironment()
	env.Set("Nil", NilBinding{})
	env.Set("True", BooleanBinding{Value: true})
	env.Set("False", BooleanBinding{Value: false})

	b, _ := env.Get("True")
	require.Equal(t, BooleanBinding{Value: true}, b)
	b, _ = env.Get("False")
	require.Equal(t, BooleanBinding{Value: false}, b)
	b, _ = env.Get("Nil")
	require.Equal(t, NilBinding{}, b)
}
