package ingest

import (
	"context"

	"github.com/xuri/excelize/v2"

	"github.com/ontoforge/ontoforge/internal/model"
	oferrors "github.com/ontoforge/ontoforge/pkg/errors"
)

// XLSXLoader reads the first sheet of a workbook, treating row one as the
// header. Uses the streaming row reader so large exports do not load whole.
type XLSXLoader struct{}

func (l *XLSXLoader) Load(ctx context.Context, path string) ([]*model.Record, error) {
	xl, err := excelize.OpenFile(path)
	if err != nil {
		return nil, oferrors.Wrap(err, oferrors.CodeInvalidFormat, "opening xlsx").
			WithContext("path", path)
	}
	defer xl.Close()

	sheet := xl.GetSheetName(0)
	if sheet == "" {
		sheets := xl.GetSheetList()
		if len(sheets) == 0 {
			return nil, nil
		}
		sheet = sheets[0]
	}

	rows, err := xl.Rows(sheet)
	if err != nil {
		return nil, oferrors.ParseFailure("xlsx", 0, err).WithContext("path", path)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, nil
	}
	header, err := rows.Columns()
	if err != nil {
		return nil, oferrors.Wrap(err, oferrors.CodeBadHeader, "reading xlsx header").
			WithContext("path", path)
	}

	var records []*model.Record
	for rows.Next() {
		if err := ctx.Err(); err != nil {
			return nil, oferrors.Wrap(err, oferrors.CodeContextCanceled, "xlsx load canceled")
		}
		cols, err := rows.Columns()
		if err != nil {
			continue
		}
		rec := model.NewRecord()
		for i, name := range header {
			if i < len(cols) {
				rec.Set(name, model.String(cols[i]))
			} else {
				rec.Set(name, model.Null)
			}
		}
		records = append(records, rec)
	}
	return records, nil
}
