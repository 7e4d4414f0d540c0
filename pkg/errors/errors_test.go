package errors

import (
	"errors"
	"os"
	"strings"
	"testing"
)

func TestErrorMessageIncludesCode(t *testing.T) {
	err := New(CodeEmptyDataset, "no rows in batch")
	if !strings.Contains(err.Error(), "E103") {
		t.Errorf("Error() = %q, want code E103", err.Error())
	}
	if !strings.Contains(err.Error(), "no rows in batch") {
		t.Errorf("Error() = %q, want message", err.Error())
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := os.ErrNotExist
	err := Wrap(cause, CodeFileNotFound, "opening dataset")

	if !errors.Is(err, cause) {
		t.Error("wrapped error should match its cause")
	}

	var coded *Error
	if !errors.As(err, &coded) {
		t.Fatal("expected *Error in chain")
	}
	if coded.Code != CodeFileNotFound {
		t.Errorf("Code = %s, want %s", coded.Code, CodeFileNotFound)
	}
}

func TestIsMatchesByCode(t *testing.T) {
	a := New(CodeParseFailed, "row 3")
	b := New(CodeParseFailed, "different message")
	if !errors.Is(a, b) {
		t.Error("errors with the same code should match")
	}

	c := New(CodeWriteFailed, "row 3")
	if errors.Is(a, c) {
		t.Error("errors with different codes should not match")
	}
}

func TestConstructors(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		code Code
	}{
		{"file not found", FileNotFound("/tmp/x.csv"), CodeFileNotFound},
		{"parse failure", ParseFailure("csv", 7, errors.New("bad quote")), CodeParseFailed},
		{"model corrupt", ModelCorrupt("/tmp/model.json", errors.New("eof")), CodeModelCorrupt},
		{"ensemble missing", EnsembleMissing("/tmp/model.json"), CodeEnsembleMissing},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Code != tt.code {
				t.Errorf("Code = %s, want %s", tt.err.Code, tt.code)
			}
		})
	}
}

func TestWithContext(t *testing.T) {
	err := New(CodeExportFailed, "parquet write").WithContext("path", "/out/x.parquet")
	if err.Context["path"] != "/out/x.parquet" {
		t.Errorf("Context = %v", err.Context)
	}
}
