package codegen

import (
	"errors"
	"fmt"
)

// ErrUnsupported marks source features the Wasm backend does not implement
// yet: imports, aliases, constants, generics, strings, lists, tuples and the
// rest of the higher prelude. Encountering one aborts generation; nothing is
// written.
//
// Invariant violations (unresolved names, unlinked type variables) are a
// different animal: they mean the upstream type checker is broken, and they
// panic instead.
var ErrUnsupported = errors.New("unsupported by the wasm backend")

func unsupportedf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrUnsupported, fmt.Sprintf(format, args...))
}
