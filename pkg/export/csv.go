package export

import (
	"encoding/csv"
	"os"
	"path/filepath"

	"github.com/ontoforge/ontoforge/internal/model"
	oferrors "github.com/ontoforge/ontoforge/pkg/errors"
)

// WriteRecordsCSV writes a batch as CSV. The header is the union of column
// names in first-seen order across the batch; absent and null cells are empty.
// The write is atomic via a temp file rename.
func WriteRecordsCSV(path string, records []*model.Record) error {
	var order []string
	seen := make(map[string]struct{})
	for _, rec := range records {
		for _, name := range rec.Columns() {
			if _, ok := seen[name]; !ok {
				seen[name] = struct{}{}
				order = append(order, name)
			}
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return oferrors.Wrap(err, oferrors.CodeWriteFailed, "creating output directory")
	}

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return oferrors.Wrap(err, oferrors.CodeWriteFailed, "creating csv file")
	}

	w := csv.NewWriter(f)
	if err := w.Write(order); err != nil {
		f.Close()
		os.Remove(tmp)
		return oferrors.Wrap(err, oferrors.CodeExportFailed, "writing csv header")
	}

	row := make([]string, len(order))
	for _, rec := range records {
		for i, name := range order {
			row[i] = ""
			if v, ok := rec.Get(name); ok && !v.IsMissing() {
				row[i] = stringCell(v)
			}
		}
		if err := w.Write(row); err != nil {
			f.Close()
			os.Remove(tmp)
			return oferrors.Wrap(err, oferrors.CodeExportFailed, "writing csv row")
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		os.Remove(tmp)
		return oferrors.Wrap(err, oferrors.CodeExportFailed, "flushing csv")
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return oferrors.Wrap(err, oferrors.CodeWriteFailed, "closing csv file")
	}
	return os.Rename(tmp, path)
}
