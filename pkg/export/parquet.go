package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/apache/arrow/go/v14/arrow"
	"github.com/apache/arrow/go/v14/arrow/array"
	"github.com/apache/arrow/go/v14/arrow/memory"
	"github.com/apache/arrow/go/v14/parquet"
	"github.com/apache/arrow/go/v14/parquet/compress"
	"github.com/apache/arrow/go/v14/parquet/pqarrow"

	"github.com/ontoforge/ontoforge/internal/model"
	oferrors "github.com/ontoforge/ontoforge/pkg/errors"
)

// ParquetSink writes record batches to a Parquet file. Writes are atomic:
// the file lands under a temp name and is renamed on successful close.
type ParquetSink struct {
	Compression string
}

// WriteRecords writes the whole batch as one row group. The schema comes
// from the first record's columns; later records contribute only columns the
// first one declared. Nested values are serialized to their canonical string.
func (s *ParquetSink) WriteRecords(path string, records []*model.Record) error {
	if len(records) == 0 {
		return oferrors.New(oferrors.CodeEmptyDataset, "no records to export").
			WithContext("path", path)
	}

	schema := inferSchema(records)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return oferrors.Wrap(err, oferrors.CodeWriteFailed, "creating output directory").
			WithContext("path", path)
	}

	tmpPath := fmt.Sprintf("%s.tmp.%d", path, time.Now().UnixNano())
	file, err := os.Create(tmpPath)
	if err != nil {
		return oferrors.Wrap(err, oferrors.CodeWriteFailed, "creating temp parquet file").
			WithContext("path", tmpPath)
	}

	writerProps := parquet.NewWriterProperties(
		parquet.WithCompression(compressionCodec(s.Compression)),
		parquet.WithCreatedBy("ontoforge"),
	)
	arrowProps := pqarrow.NewArrowWriterProperties(pqarrow.WithStoreSchema())

	writer, err := pqarrow.NewFileWriter(schema, file, writerProps, arrowProps)
	if err != nil {
		file.Close()
		os.Remove(tmpPath)
		return oferrors.Wrap(err, oferrors.CodeWriteFailed, "creating parquet writer").
			WithContext("path", path)
	}

	rec := buildArrowRecord(schema, records)
	writeErr := writer.Write(rec)
	rec.Release()

	if err := writer.Close(); err != nil && writeErr == nil {
		writeErr = err
	}
	if writeErr != nil {
		os.Remove(tmpPath)
		return oferrors.Wrap(writeErr, oferrors.CodeWriteFailed, "writing parquet").
			WithContext("path", path)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return oferrors.Wrap(err, oferrors.CodeWriteFailed, "renaming parquet file").
			WithContext("path", path)
	}
	return nil
}

// inferSchema types each of the first record's columns from the first
// non-missing value seen for it anywhere in the batch. Numbers map to
// float64, bools to boolean, everything else to string.
func inferSchema(records []*model.Record) *arrow.Schema {
	columns := records[0].Columns()
	fields := make([]arrow.Field, 0, len(columns))
	for _, name := range columns {
		fields = append(fields, arrow.Field{
			Name:     name,
			Type:     columnType(records, name),
			Nullable: true,
		})
	}
	return arrow.NewSchema(fields, nil)
}

func columnType(records []*model.Record, name string) arrow.DataType {
	for _, rec := range records {
		v, ok := rec.Get(name)
		if !ok || v.IsMissing() {
			continue
		}
		switch v.Kind() {
		case model.KindNumber:
			return arrow.PrimitiveTypes.Float64
		case model.KindBool:
			return arrow.FixedWidthTypes.Boolean
		default:
			return arrow.BinaryTypes.String
		}
	}
	return arrow.BinaryTypes.String
}

func buildArrowRecord(schema *arrow.Schema, records []*model.Record) arrow.Record {
	builder := array.NewRecordBuilder(memory.DefaultAllocator, schema)
	defer builder.Release()

	for i, field := range schema.Fields() {
		for _, rec := range records {
			v, ok := rec.Get(field.Name)
			if !ok || v.IsMissing() {
				builder.Field(i).AppendNull()
				continue
			}
			switch fb := builder.Field(i).(type) {
			case *array.Float64Builder:
				if f, okNum := v.AsFloat(); okNum {
					fb.Append(f)
				} else {
					fb.AppendNull()
				}
			case *array.BooleanBuilder:
				if v.Kind() == model.KindBool {
					fb.Append(v.Bool())
				} else {
					fb.AppendNull()
				}
			case *array.StringBuilder:
				fb.Append(stringCell(v))
			default:
				builder.Field(i).AppendNull()
			}
		}
	}
	return builder.NewRecord()
}

func stringCell(v model.Value) string {
	switch v.Kind() {
	case model.KindString:
		return v.Str()
	case model.KindNumber:
		return strconv.FormatFloat(v.Number(), 'f', -1, 64)
	case model.KindBool:
		return strconv.FormatBool(v.Bool())
	default:
		return v.Canonical()
	}
}

func compressionCodec(name string) compress.Compression {
	switch name {
	case "zstd":
		return compress.Codecs.Zstd
	case "gzip":
		return compress.Codecs.Gzip
	case "none":
		return compress.Codecs.Uncompressed
	default:
		return compress.Codecs.Snappy
	}
}
