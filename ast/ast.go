// Package ast defines the typed module tree the backend consumes: names are
// resolved, types inferred and patterns ready for compilation. The parser
// and type checker producing it live upstream.
package ast

import "github.com/merl-lang/merl/types"

// Module is a fully type-checked module.
type Module struct {
	Name        string
	Definitions []Definition
}

// Definition is one of *Function, *CustomType, *TypeAlias, *Import or
// *ModuleConstant. Only the first two are supported by the backend.
type Definition interface {
	isDefinition()
}

// Function is a top-level function definition.
type Function struct {
	Name       string
	Arguments  []Arg
	ReturnType types.Type
	Body       []Statement
}

// Arg is a function parameter. Name is empty when the parameter is
// discarded in the source.
type Arg struct {
	Name string
	Type types.Type
}

// CustomType declares a sum of record variants.
type CustomType struct {
	Name string
	// Parameters are generic type parameters; the backend rejects them.
	Parameters []string
	Variants   []*RecordConstructor
}

// RecordConstructor is one variant of a custom type.
type RecordConstructor struct {
	Name      string
	Arguments []RecordConstructorArg
}

// RecordConstructorArg is a constructor field. Label is empty for
// positional-only fields.
type RecordConstructorArg struct {
	Label string
	Type  types.Type
}

// TypeAlias, Import and ModuleConstant reach the backend only to be rejected
// as unsupported.
type TypeAlias struct{ Name string }
type Import struct{ Module string }
type ModuleConstant struct{ Name string }

func (*Function) isDefinition()       {}
func (*CustomType) isDefinition()     {}
func (*TypeAlias) isDefinition()      {}
func (*Import) isDefinition()         {}
func (*ModuleConstant) isDefinition() {}

// Statement is one of *ExpressionStatement or *Assignment.
type Statement interface {
	isStatement()
}

// ExpressionStatement evaluates an expression for its value.
type ExpressionStatement struct {
	Expression Expression
}

// AssignmentKind distinguishes `let` from `let assert`.
type AssignmentKind int

const (
	AssignmentLet AssignmentKind = iota
	AssignmentAssert
)

// Assignment binds a pattern against a value.
type Assignment struct {
	Kind    AssignmentKind
	Pattern Pattern
	Value   Expression
}

func (*ExpressionStatement) isStatement() {}
func (*Assignment) isStatement()          {}

// Expression is a typed expression node.
type Expression interface {
	// Type is the inferred result type.
	Type() types.Type
	isExpression()
}

// IntLiteral keeps the literal text as written, underscores and base prefix
// included; parsing happens in the backend's integer primitives.
type IntLiteral struct {
	Value string
}

type FloatLiteral struct {
	Value string
}

// Variable references a binding by name: a local, a function, a data
// constructor or a prelude builtin.
type Variable struct {
	Name string
	Typ  types.Type
}

// Call applies a function or data constructor. Labelled arguments are
// already normalised into declaration order by the type checker.
type Call struct {
	Fun       Expression
	Arguments []CallArg
	Typ       types.Type
}

type CallArg struct {
	Label string
	Value Expression
}

// BinaryOperator enumerates the typed binary operators.
type BinaryOperator int

const (
	AddInt BinaryOperator = iota
	SubInt
	MultInt
	DivInt
	RemainderInt
	AddFloat
	SubFloat
	MultFloat
	DivFloat
	And
	Or
	Eq
	NotEq
	LtInt
	LtEqInt
	GtInt
	GtEqInt
	LtFloat
	LtEqFloat
	GtFloat
	GtEqFloat
)

type BinOp struct {
	Op    BinaryOperator
	Left  Expression
	Right Expression
	Typ   types.Type
}

// NegateInt is arithmetic negation of an integer expression.
type NegateInt struct {
	Value Expression
}

// NegateBool is logical negation of a boolean expression.
type NegateBool struct {
	Value Expression
}

// Block evaluates statements in a child scope; its value is the last
// statement's value.
type Block struct {
	Statements []Statement
	Typ        types.Type
}

// Case is a multi-subject match expression. Exhaustiveness was proven
// upstream.
type Case struct {
	Subjects []Expression
	Clauses  []*Clause
	Typ      types.Type
}

// Clause pairs one pattern per subject with a body.
type Clause struct {
	Patterns []Pattern
	Body     Expression
}

// Todo and Panic are placeholders the backend rejects.
type Todo struct{ Typ types.Type }
type Panic struct{ Typ types.Type }

func (e *IntLiteral) Type() types.Type   { return types.IntType }
func (e *FloatLiteral) Type() types.Type { return types.FloatType }
func (e *Variable) Type() types.Type     { return e.Typ }
func (e *Call) Type() types.Type         { return e.Typ }
func (e *BinOp) Type() types.Type        { return e.Typ }
func (e *NegateInt) Type() types.Type    { return types.IntType }
func (e *NegateBool) Type() types.Type   { return types.BoolType }
func (e *Block) Type() types.Type        { return e.Typ }
func (e *Case) Type() types.Type         { return e.Typ }
func (e *Todo) Type() types.Type         { return e.Typ }
func (e *Panic) Type() types.Type        { return e.Typ }

func (*IntLiteral) isExpression()   {}
func (*FloatLiteral) isExpression() {}
func (*Variable) isExpression()     {}
func (*Call) isExpression()         {}
func (*BinOp) isExpression()        {}
func (*NegateInt) isExpression()    {}
func (*NegateBool) isExpression()   {}
func (*Block) isExpression()        {}
func (*Case) isExpression()         {}
func (*Todo) isExpression()         {}
func (*Panic) isExpression()        {}

// Pattern is a typed pattern node.
type Pattern interface {
	isPattern()
}

// VariablePattern binds the whole scrutinee to a name.
type VariablePattern struct {
	Name string
	Typ  types.Type
}

// DiscardPattern matches anything and binds nothing.
type DiscardPattern struct {
	Name string
}

type IntPattern struct {
	Value string
}

type FloatPattern struct {
	Value string
}

// ConstructorPattern matches one variant of a custom type, or a prelude
// builtin (True, False, Nil).
type ConstructorPattern struct {
	Name      string
	Arguments []PatternArg
	Typ       types.Type
}

type PatternArg struct {
	Label string
	Value Pattern
}

func (*VariablePattern) isPattern()    {}
func (*DiscardPattern) isPattern()     {}
func (*IntPattern) isPattern()         {}
func (*FloatPattern) isPattern()       {}
func (*ConstructorPattern) isPattern() {}
