// Package codegen lowers a type-checked module to a WebAssembly binary
// using the GC and typed function references proposals.
//
// Generation is synchronous and single-threaded: the symbol table and root
// environment are owned by the driver for the duration of the three passes,
// and per-function state travels by explicit parameter. Nothing here is
// process-global, so independent compilations never share state.
package codegen

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/merl-lang/merl/ast"
	"github.com/merl-lang/merl/fsys"
	"github.com/merl-lang/merl/internal/wasm"
	"github.com/merl-lang/merl/internal/wasm/binary"
)

// OutputPath is where the compiled module is written, relative to the
// writer's root.
const OutputPath = "out.wasm"

// Module compiles a type-checked module and writes the binary to OutputPath
// through the writer. Either the whole module is encoded and written, or an
// error is returned and nothing is.
func Module(writer fsys.Writer, logger logrus.FieldLogger, module *ast.Module) error {
	encoded, err := EmitModule(logger, module)
	if err != nil {
		return err
	}
	return writer.WriteBytes(OutputPath, encoded)
}

// EmitModule compiles a type-checked module to binary without writing it.
func EmitModule(logger logrus.FieldLogger, module *ast.Module) ([]byte, error) {
	if logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		logger = l
	}
	logger = logger.WithField("module", module.Name)

	wasmModule, err := constructModule(module, logger)
	if err != nil {
		return nil, fmt.Errorf("compiling module %s: %w", module.Name, err)
	}
	if err := validateModule(wasmModule); err != nil {
		return nil, err
	}
	return binary.EncodeModule(wasmModule), nil
}

// validateModule re-checks the stack discipline of every emitted body. A
// failure here is a generator bug caught before it can reach disk.
func validateModule(m *wasm.Module) error {
	for _, f := range m.Functions {
		if err := m.ValidateFunction(f); err != nil {
			return fmt.Errorf("BUG: generated invalid code: %w", err)
		}
	}
	for _, g := range m.Globals {
		if err := m.ValidateGlobal(g); err != nil {
			return fmt.Errorf("BUG: generated invalid code: %w", err)
		}
	}
	return nil
}
