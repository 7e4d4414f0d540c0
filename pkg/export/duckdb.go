package export

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/marcboeker/go-duckdb"

	"github.com/ontoforge/ontoforge/internal/model"
	oferrors "github.com/ontoforge/ontoforge/pkg/errors"
)

// DuckDBSink loads record batches into a DuckDB database file so results
// can be queried with SQL without another tool in between.
type DuckDBSink struct {
	db *sql.DB
}

// NewDuckDBSink opens (or creates) the database at path.
func NewDuckDBSink(path string) (*DuckDBSink, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, oferrors.Wrap(err, oferrors.CodeWriteFailed, "creating output directory").
			WithContext("path", path)
	}
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, oferrors.Wrap(err, oferrors.CodeStorageBackend, "opening duckdb").
			WithContext("path", path)
	}
	return &DuckDBSink{db: db}, nil
}

// Close releases the database handle.
func (s *DuckDBSink) Close() error {
	return s.db.Close()
}

// WriteRecords replaces the named table with the batch. Column types follow
// the same inference the Parquet sink uses.
func (s *DuckDBSink) WriteRecords(table string, records []*model.Record) error {
	if len(records) == 0 {
		return oferrors.New(oferrors.CodeEmptyDataset, "no records to export").
			WithContext("table", table)
	}
	if !validIdentifier(table) {
		return oferrors.New(oferrors.CodeExportFailed, "invalid table name").
			WithContext("table", table)
	}

	columns := records[0].Columns()
	colTypes := make([]string, len(columns))
	colDefs := make([]string, 0, len(columns))
	for i, name := range columns {
		colTypes[i] = duckType(records, name)
		colDefs = append(colDefs, fmt.Sprintf("%s %s", quoteIdent(name), colTypes[i]))
	}

	tx, err := s.db.Begin()
	if err != nil {
		return oferrors.Wrap(err, oferrors.CodeStorageBackend, "beginning transaction")
	}
	defer tx.Rollback()

	if _, err := tx.Exec(fmt.Sprintf("DROP TABLE IF EXISTS %s", quoteIdent(table))); err != nil {
		return oferrors.Wrap(err, oferrors.CodeStorageBackend, "dropping stale table").
			WithContext("table", table)
	}
	create := fmt.Sprintf("CREATE TABLE %s (%s)", quoteIdent(table), strings.Join(colDefs, ", "))
	if _, err := tx.Exec(create); err != nil {
		return oferrors.Wrap(err, oferrors.CodeStorageBackend, "creating table").
			WithContext("table", table)
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ")
	insert, err := tx.Prepare(fmt.Sprintf("INSERT INTO %s VALUES (%s)", quoteIdent(table), placeholders))
	if err != nil {
		return oferrors.Wrap(err, oferrors.CodeStorageBackend, "preparing insert")
	}
	defer insert.Close()

	args := make([]interface{}, len(columns))
	for _, rec := range records {
		for i, name := range columns {
			args[i] = sqlCell(rec, name, colTypes[i])
		}
		if _, err := insert.Exec(args...); err != nil {
			return oferrors.Wrap(err, oferrors.CodeWriteFailed, "inserting record").
				WithContext("table", table)
		}
	}
	return tx.Commit()
}

func duckType(records []*model.Record, name string) string {
	for _, rec := range records {
		v, ok := rec.Get(name)
		if !ok || v.IsMissing() {
			continue
		}
		switch v.Kind() {
		case model.KindNumber:
			return "DOUBLE"
		case model.KindBool:
			return "BOOLEAN"
		default:
			return "VARCHAR"
		}
	}
	return "VARCHAR"
}

// sqlCell converts a value to the driver type of its column. A value whose
// kind disagrees with the column type is stored as its string form or null.
func sqlCell(rec *model.Record, name, colType string) interface{} {
	v, ok := rec.Get(name)
	if !ok || v.IsMissing() {
		return nil
	}
	switch colType {
	case "DOUBLE":
		if f, okNum := v.AsFloat(); okNum {
			return f
		}
		return nil
	case "BOOLEAN":
		if v.Kind() == model.KindBool {
			return v.Bool()
		}
		return nil
	default:
		return stringCell(v)
	}
}

func validIdentifier(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		ok := r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
		if !ok {
			return false
		}
	}
	return true
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
