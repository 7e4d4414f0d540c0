package ingest

import (
	"context"
	"os"
	"strings"

	"github.com/ontoforge/ontoforge/internal/model"
	oferrors "github.com/ontoforge/ontoforge/pkg/errors"
)

// Manager routes a source path to the loader for its detected format.
type Manager struct {
	loaders map[Format]Loader
	api     *APILoader
}

// NewManager returns a manager over the built-in loaders.
func NewManager() *Manager {
	return &Manager{
		loaders: map[Format]Loader{
			FormatCSV:   &CSVLoader{},
			FormatJSON:  &JSONLoader{},
			FormatJSONL: &JSONLLoader{},
			FormatXLSX:  &XLSXLoader{},
		},
		api: NewAPILoader(),
	}
}

// Load detects the format of path and materializes its records. Sources
// with an http or https scheme are fetched from the portal API instead of
// the filesystem. An empty file yields an empty batch, not an error.
func (m *Manager) Load(ctx context.Context, path string) ([]*model.Record, error) {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return m.api.Load(ctx, path)
	}
	if _, err := os.Stat(path); err != nil {
		return nil, oferrors.FileNotFound(path)
	}

	format, err := DetectFormat(path)
	if err != nil {
		return nil, oferrors.Wrap(err, oferrors.CodeEncodingError, "sampling source file").
			WithContext("path", path)
	}

	loader, ok := m.loaders[format]
	if !ok {
		return nil, oferrors.New(oferrors.CodeInvalidFormat, "no loader for file format").
			WithContext("path", path).
			WithContext("format", format.String())
	}
	return loader.Load(ctx, path)
}
