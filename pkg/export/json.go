// Package export writes pipeline outputs: ontology records, provenance
// metadata, and dataset profiles.
package export

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/ontoforge/ontoforge/internal/model"
	oferrors "github.com/ontoforge/ontoforge/pkg/errors"
)

// WriteJSON writes any marshalable payload as indented JSON, atomically:
// write to a temp file, rename into place on success.
func WriteJSON(path string, payload interface{}) error {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return oferrors.Wrap(err, oferrors.CodeExportFailed, "encoding json payload").
			WithContext("path", path)
	}
	data = append(data, '\n')

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return oferrors.Wrap(err, oferrors.CodeWriteFailed, "creating output directory").
			WithContext("path", path)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return oferrors.Wrap(err, oferrors.CodeWriteFailed, "writing temp file").
			WithContext("path", tmp)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return oferrors.Wrap(err, oferrors.CodeWriteFailed, "renaming temp file").
			WithContext("path", path)
	}
	return nil
}

// WriteRecordsJSON writes a record batch as a JSON array, preserving each
// record's column order.
func WriteRecordsJSON(path string, records []*model.Record) error {
	if records == nil {
		records = []*model.Record{}
	}
	return WriteJSON(path, records)
}
