package ingest

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"io"
	"os"
	"sort"

	"github.com/ontoforge/ontoforge/internal/model"
	oferrors "github.com/ontoforge/ontoforge/pkg/errors"
)

// Loader reads one file format into a record batch.
type Loader interface {
	Load(ctx context.Context, path string) ([]*model.Record, error)
}

// CSVLoader reads a comma-separated file with a header row. Every cell is
// kept as a string; short rows pad with null.
type CSVLoader struct{}

func (l *CSVLoader) Load(ctx context.Context, path string) ([]*model.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, oferrors.FileNotFound(path)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	header, err := r.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, oferrors.Wrap(err, oferrors.CodeBadHeader, "reading csv header").
			WithContext("path", path)
	}

	var records []*model.Record
	row := 1
	for {
		if err := ctx.Err(); err != nil {
			return nil, oferrors.Wrap(err, oferrors.CodeContextCanceled, "csv load canceled")
		}
		fields, err := r.Read()
		if err == io.EOF {
			break
		}
		row++
		if err != nil {
			return nil, oferrors.ParseFailure("csv", row, err).WithContext("path", path)
		}

		rec := model.NewRecord()
		for i, name := range header {
			if i < len(fields) {
				rec.Set(name, model.String(fields[i]))
			} else {
				rec.Set(name, model.Null)
			}
		}
		records = append(records, rec)
	}
	return records, nil
}

// JSONLoader reads a file holding a JSON array of objects.
type JSONLoader struct{}

func (l *JSONLoader) Load(ctx context.Context, path string) ([]*model.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, oferrors.FileNotFound(path)
	}
	if len(data) == 0 {
		return nil, nil
	}

	var rows []map[string]interface{}
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, oferrors.ParseFailure("json", 0, err).WithContext("path", path)
	}
	return mapsToRecords(rows), nil
}

// JSONLLoader reads newline-delimited JSON objects.
type JSONLLoader struct{}

func (l *JSONLLoader) Load(ctx context.Context, path string) ([]*model.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, oferrors.FileNotFound(path)
	}
	defer f.Close()

	dec := json.NewDecoder(f)
	var records []*model.Record
	row := 0
	for {
		if err := ctx.Err(); err != nil {
			return nil, oferrors.Wrap(err, oferrors.CodeContextCanceled, "jsonl load canceled")
		}
		var obj map[string]interface{}
		if err := dec.Decode(&obj); err == io.EOF {
			break
		} else if err != nil {
			return nil, oferrors.ParseFailure("jsonl", row+1, err).WithContext("path", path)
		}
		row++
		records = append(records, mapToRecord(obj))
	}
	return records, nil
}

func mapsToRecords(rows []map[string]interface{}) []*model.Record {
	records := make([]*model.Record, 0, len(rows))
	for _, row := range rows {
		records = append(records, mapToRecord(row))
	}
	return records
}

func mapToRecord(row map[string]interface{}) *model.Record {
	rec := model.NewRecord()
	for _, key := range sortedKeys(row) {
		rec.Set(key, model.FromInterface(row[key]))
	}
	return rec
}

// sortedKeys gives JSON objects a stable column order, since Go map
// iteration would otherwise shuffle the schema fingerprint between runs.
func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
