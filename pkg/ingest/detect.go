// Package ingest materializes raw open-data files into record batches. It is
// deliberately dumb plumbing: loaders read everything as strings and leave
// interpretation to normalization and profiling.
package ingest

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
)

// Format identifies a supported input file format.
type Format uint8

const (
	FormatUnknown Format = iota
	FormatCSV
	FormatJSON
	FormatJSONL
	FormatXLSX
)

func (f Format) String() string {
	switch f {
	case FormatCSV:
		return "csv"
	case FormatJSON:
		return "json"
	case FormatJSONL:
		return "jsonl"
	case FormatXLSX:
		return "xlsx"
	default:
		return "unknown"
	}
}

// sniffLen bounds how much of the file the detector reads.
const sniffLen = 8192

// DetectFormat identifies the file format from magic bytes, then extension,
// then a content sniff.
func DetectFormat(path string) (Format, error) {
	sample, err := readSample(path)
	if err != nil {
		return FormatUnknown, err
	}
	return detectFormat(path, sample), nil
}

func readSample(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	buf := make([]byte, sniffLen)
	n, _ := f.Read(buf)
	return buf[:n], nil
}

func detectFormat(path string, sample []byte) Format {
	// XLSX is a zip container: PK magic.
	if len(sample) >= 2 && sample[0] == 0x50 && sample[1] == 0x4B {
		return FormatXLSX
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return FormatCSV
	case ".json":
		return FormatJSON
	case ".jsonl", ".ndjson":
		return FormatJSONL
	case ".xlsx":
		return FormatXLSX
	}

	content := sample
	if len(content) >= 3 && content[0] == 0xEF && content[1] == 0xBB && content[2] == 0xBF {
		content = content[3:]
	}
	content = bytes.TrimLeft(content, " \t\r\n")

	if len(content) > 0 && (content[0] == '{' || content[0] == '[') {
		if isJSONL(content) {
			return FormatJSONL
		}
		return FormatJSON
	}
	if bytes.Contains(sample, []byte(",")) || bytes.Contains(sample, []byte("\n")) {
		return FormatCSV
	}
	return FormatUnknown
}

// isJSONL reports whether the sample looks like one JSON object per line.
func isJSONL(sample []byte) bool {
	lines := bytes.Split(sample, []byte("\n"))
	if len(lines) < 2 {
		return false
	}

	objects := 0
	for i, line := range lines {
		if i >= 5 {
			break
		}
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		if line[0] == '{' && line[len(line)-1] == '}' {
			objects++
		}
	}
	return objects >= 2
}
