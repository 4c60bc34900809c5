// Package fsys abstracts how compiled artifacts reach disk, so the code
// generator can be driven against an in-memory filesystem in tests.
package fsys

import (
	"fmt"

	"github.com/spf13/afero"
)

// Writer persists compiler output. All errors are fatal to the compilation;
// the generator never retries or emits partial artifacts.
type Writer interface {
	WriteBytes(path string, data []byte) error
}

// AferoWriter writes through an afero filesystem.
type AferoWriter struct {
	Fs afero.Fs
}

// NewOsWriter returns a Writer backed by the host filesystem.
func NewOsWriter() AferoWriter {
	return AferoWriter{Fs: afero.NewOsFs()}
}

func (w AferoWriter) WriteBytes(path string, data []byte) error {
	if err := afero.WriteFile(w.Fs, path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
