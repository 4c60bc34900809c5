// Package types carries the source-language type representation attached to
// the typed AST by the inferencer. The backend only inspects it; inference
// happens upstream.
package types

// BuiltinModule is the module the prelude types belong to.
const BuiltinModule = "merl"

// Type is one of *Named, *Var or *Fn.
type Type interface {
	isType()
}

// Named is a concrete named type, builtin or user-defined.
type Named struct {
	Module string
	Name   string
	// Args are the applied type parameters. The backend rejects non-empty
	// Args: generic user types are monomorphised nowhere and unsupported.
	Args []Type
}

// Var is a type variable. After inference every Var reachable from a typed
// module links to a concrete type; an unlinked Var reaching the backend is
// an upstream bug.
type Var struct {
	Link Type
}

// Fn is a function type.
type Fn struct {
	Args   []Type
	Return Type
}

func (*Named) isType() {}
func (*Var) isType()   {}
func (*Fn) isType()    {}

// Prelude types.
var (
	IntType   = &Named{Module: BuiltinModule, Name: "Int"}
	FloatType = &Named{Module: BuiltinModule, Name: "Float"}
	BoolType  = &Named{Module: BuiltinModule, Name: "Bool"}
	NilType   = &Named{Module: BuiltinModule, Name: "Nil"}
)

func isBuiltin(t Type, name string) bool {
	n, ok := t.(*Named)
	return ok && n.Module == BuiltinModule && n.Name == name && len(n.Args) == 0
}

func IsInt(t Type) bool   { return isBuiltin(t, "Int") }
func IsFloat(t Type) bool { return isBuiltin(t, "Float") }
func IsBool(t Type) bool  { return isBuiltin(t, "Bool") }
func IsNil(t Type) bool   { return isBuiltin(t, "Nil") }
