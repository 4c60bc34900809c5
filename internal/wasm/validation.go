package wasm

import (
	"fmt"

	"github.com/merl-lang/merl/internal/leb128"
)

// ValidateFunction checks the stack discipline of an encoded function body:
// executed from an empty operand stack it must leave exactly one value, and
// no instruction may pop below its enclosing block's base.
//
// This intentionally tracks stack heights, not value types; the generator
// already knows the types and the check exists to catch instructions emitted
// with the wrong arity or blocks closed at the wrong depth.
func (m *Module) ValidateFunction(f *Function) error {
	if err := m.validateBody(f.Body, 1); err != nil {
		return fmt.Errorf("invalid function %q: %w", f.Name, err)
	}
	return nil
}

// ValidateGlobal checks that a global's initializer leaves exactly one value.
// Initializers are encoded without a trailing end, so one is appended here
// the same way the start function's encoder does.
func (m *Module) ValidateGlobal(g *Global) error {
	body := make([]byte, 0, len(g.Initializer)+1)
	body = append(body, g.Initializer...)
	body = append(body, OpcodeEnd)
	if err := m.validateBody(body, 1); err != nil {
		return fmt.Errorf("invalid global %q: %w", g.Name, err)
	}
	return nil
}

type controlFrame struct {
	// height is the operand stack depth at block entry.
	height int
	// resultArity is how many values the block leaves.
	resultArity int
	// unreachable is set after br or unreachable until the frame closes.
	unreachable bool
	// isIf is set for frames opened by OpcodeIf, which may contain an else.
	isIf bool
}

func (m *Module) validateBody(body []byte, resultArity int) error {
	stack := 0
	frames := []*controlFrame{{resultArity: resultArity}}

	pop := func(n int) error {
		f := frames[len(frames)-1]
		for i := 0; i < n; i++ {
			if stack == f.height {
				if f.unreachable {
					continue // polymorphic stack after a dead instruction
				}
				return fmt.Errorf("stack underflow")
			}
			stack--
		}
		return nil
	}

	pc := 0
	readUint32 := func() (uint32, error) {
		v, n, err := leb128.LoadUint32(body[pc:])
		pc += int(n)
		return v, err
	}
	readInt64 := func() (int64, error) {
		v, n, err := leb128.LoadInt64(body[pc:])
		pc += int(n)
		return v, err
	}

	for pc < len(body) {
		op := body[pc]
		pc++
		switch op {
		case OpcodeUnreachable:
			f := frames[len(frames)-1]
			f.unreachable = true
			stack = f.height
		case OpcodeNop:
		case OpcodeBlock:
			bt, n, err := decodeBlockType(body[pc:])
			if err != nil {
				return err
			}
			pc += n
			frames = append(frames, &controlFrame{height: stack, resultArity: bt})
		case OpcodeIf:
			bt, n, err := decodeBlockType(body[pc:])
			if err != nil {
				return err
			}
			pc += n
			if err := pop(1); err != nil {
				return err
			}
			frames = append(frames, &controlFrame{height: stack, resultArity: bt, isIf: true})
		case OpcodeElse:
			f := frames[len(frames)-1]
			if !f.isIf {
				return fmt.Errorf("else outside if")
			}
			if !f.unreachable && stack != f.height+f.resultArity {
				return fmt.Errorf("then arm left %d values, expected %d", stack-f.height, f.resultArity)
			}
			stack = f.height
			f.unreachable = false
		case OpcodeEnd:
			f := frames[len(frames)-1]
			if !f.unreachable && stack != f.height+f.resultArity {
				return fmt.Errorf("block left %d values, expected %d", stack-f.height, f.resultArity)
			}
			stack = f.height + f.resultArity
			frames = frames[:len(frames)-1]
			if len(frames) == 0 {
				if pc != len(body) {
					return fmt.Errorf("%d trailing bytes after final end", len(body)-pc)
				}
				return nil
			}
		case OpcodeBr:
			if _, err := readUint32(); err != nil {
				return err
			}
			f := frames[len(frames)-1]
			f.unreachable = true
			stack = f.height
		case OpcodeBrIf:
			if _, err := readUint32(); err != nil {
				return err
			}
			if err := pop(1); err != nil {
				return err
			}
		case OpcodeCall:
			idx, err := readUint32()
			if err != nil {
				return err
			}
			sig, err := m.functionSignature(idx)
			if err != nil {
				return err
			}
			if err := pop(len(sig.Params)); err != nil {
				return err
			}
			stack++
		case OpcodeDrop:
			if err := pop(1); err != nil {
				return err
			}
		case OpcodeLocalGet, OpcodeGlobalGet:
			if _, err := readUint32(); err != nil {
				return err
			}
			stack++
		case OpcodeLocalSet, OpcodeGlobalSet:
			if _, err := readUint32(); err != nil {
				return err
			}
			if err := pop(1); err != nil {
				return err
			}
		case OpcodeLocalTee:
			if _, err := readUint32(); err != nil {
				return err
			}
			if err := pop(1); err != nil {
				return err
			}
			stack++
		case OpcodeI32Const:
			_, n, err := leb128.LoadInt32(body[pc:])
			if err != nil {
				return err
			}
			pc += int(n)
			stack++
		case OpcodeF64Const:
			pc += 8
			stack++
		case OpcodeI32Eqz, OpcodeRefAsNonNull:
			if err := pop(1); err != nil {
				return err
			}
			stack++
		case OpcodeI32Eq, OpcodeI32Ne, OpcodeI32LtS, OpcodeI32GtS, OpcodeI32LeS, OpcodeI32GeS,
			OpcodeI32Add, OpcodeI32Sub, OpcodeI32Mul, OpcodeI32DivS, OpcodeI32RemS,
			OpcodeF64Eq, OpcodeF64Ne, OpcodeF64Lt, OpcodeF64Gt, OpcodeF64Le, OpcodeF64Ge,
			OpcodeF64Add, OpcodeF64Sub, OpcodeF64Mul, OpcodeF64Div:
			if err := pop(2); err != nil {
				return err
			}
			stack++
		case OpcodeRefNull:
			if _, err := readInt64(); err != nil {
				return err
			}
			stack++
		case OpcodeGCPrefix:
			if pc >= len(body) {
				return fmt.Errorf("truncated gc opcode")
			}
			gcOp := body[pc]
			pc++
			switch gcOp {
			case OpcodeGCStructNew:
				idx, err := readUint32()
				if err != nil {
					return err
				}
				product, err := m.productDefinition(idx)
				if err != nil {
					return err
				}
				// tag plus the declared fields
				if err := pop(len(product.Fields) + 1); err != nil {
					return err
				}
				stack++
			case OpcodeGCStructGet:
				if _, err := readUint32(); err != nil {
					return err
				}
				if _, err := readUint32(); err != nil {
					return err
				}
				if err := pop(1); err != nil {
					return err
				}
				stack++
			case OpcodeGCRefTest, OpcodeGCRefCast:
				if _, err := readInt64(); err != nil {
					return err
				}
				if err := pop(1); err != nil {
					return err
				}
				stack++
			default:
				return fmt.Errorf("unknown gc opcode 0x%x", gcOp)
			}
		default:
			return fmt.Errorf("unknown opcode 0x%x", op)
		}
	}
	return fmt.Errorf("body not terminated by end")
}

// decodeBlockType returns the result arity of a block type immediate and the
// number of bytes it occupies.
func decodeBlockType(r []byte) (arity, length int, err error) {
	if len(r) == 0 {
		return 0, 0, fmt.Errorf("truncated block type")
	}
	if r[0] == blockTypeEmpty {
		return 0, 1, nil
	}
	switch r[0] {
	case valueTypeI32, valueTypeF64:
		return 1, 1, nil
	case refTypePrefix, refTypeNullablePrefix:
		_, n, err := leb128.LoadInt33AsInt64(r[1:])
		if err != nil {
			return 0, 0, err
		}
		return 1, 1 + int(n), nil
	}
	return 0, 0, fmt.Errorf("unknown block type 0x%x", r[0])
}

func (m *Module) functionSignature(idx Index) (*FunctionTypeDefinition, error) {
	for _, f := range m.Functions {
		if f.FunctionIndex == idx {
			typ, err := m.typeByID(f.TypeIndex)
			if err != nil {
				return nil, err
			}
			sig, ok := typ.Definition.(FunctionTypeDefinition)
			if !ok {
				return nil, fmt.Errorf("call of non-function type %d", f.TypeIndex)
			}
			return &sig, nil
		}
	}
	return nil, fmt.Errorf("call of unknown function %d", idx)
}

func (m *Module) productDefinition(idx Index) (*ProductTypeDefinition, error) {
	typ, err := m.typeByID(idx)
	if err != nil {
		return nil, err
	}
	def, ok := typ.Definition.(ProductTypeDefinition)
	if !ok {
		return nil, fmt.Errorf("struct.new of non-product type %d", idx)
	}
	return &def, nil
}

func (m *Module) typeByID(id Index) (*Type, error) {
	for _, t := range m.Types {
		if t.ID == id {
			return t, nil
		}
	}
	return nil, fmt.Errorf("unknown type %d", id)
}
