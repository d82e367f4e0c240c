// Package spreadsheet turns uploaded spreadsheet bytes into header-mapped rows.
package spreadsheet

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Media types accepted for spreadsheets
const (
	MediaTypeCSV       = "text/csv"
	MediaTypeTSV       = "text/tab-separated-values"
	MediaTypePlainText = "text/plain"
	MediaTypeODS       = "application/vnd.oasis.opendocument.spreadsheet"
	MediaTypeXLSX      = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// ErrUnsupported is returned for media types no decoder handles
var ErrUnsupported = errors.New("unsupported spreadsheet format")

type format int

const (
	formatUnknown format = iota
	formatDelimited
	formatODS
	formatXLSX
)

var formats = map[string]format{
	"application/csv":  formatDelimited,
	MediaTypeCSV:       formatDelimited,
	MediaTypePlainText: formatDelimited,
	MediaTypeTSV:       formatDelimited,
	MediaTypeODS:       formatODS,
	MediaTypeXLSX:      formatXLSX,
}

var zipMagic = []byte("PK\x03\x04")

// DetectMediaType returns the declared media type, or sniffs the content when
// the declaration is missing, generic, or contradicted by a zip payload.
func DetectMediaType(content []byte, declared string) string {
	declared = essence(declared)
	generic := declared == "" || declared == "application/octet-stream"
	if !generic && !(formats[declared] == formatDelimited && bytes.HasPrefix(content, zipMagic)) {
		return declared
	}
	return essence(mimetype.Detect(content).String())
}

// Decode reads every row of the first (or active) sheet. Cells are trimmed and
// rows holding only empty cells are removed.
func Decode(content []byte, declared string) ([][]string, error) {
	mediaType := DetectMediaType(content, declared)

	var rows [][]string
	var err error
	switch formats[mediaType] {
	case formatDelimited:
		rows, err = decodeDelimited(content)
	case formatXLSX:
		rows, err = withTempFile(content, ".xlsx", decodeXLSX)
	case formatODS:
		rows, err = withTempFile(content, ".ods", decodeODS)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, mediaType)
	}
	if err != nil {
		return nil, err
	}
	return cleanRows(rows), nil
}

func decodeDelimited(content []byte) ([][]string, error) {
	// Strips a byte order mark and decodes UTF-16 when one announces it
	decoded, _, err := transform.Bytes(unicode.BOMOverride(unicode.UTF8.NewDecoder()), content)
	if err != nil {
		return nil, fmt.Errorf("decode text: %w", err)
	}
	text := strings.ToValidUTF8(string(decoded), "")

	if strings.Contains(text, "\t") {
		var rows [][]string
		for _, line := range strings.Split(text, "\n") {
			rows = append(rows, strings.Split(strings.TrimRight(line, "\r"), "\t"))
		}
		return rows, nil
	}

	reader := csv.NewReader(strings.NewReader(text))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var rows [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse csv: %w", err)
		}
		rows = append(rows, record)
	}
	return rows, nil
}

func decodeXLSX(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(f.GetActiveSheetIndex())
	if sheet == "" {
		list := f.GetSheetList()
		if len(list) == 0 {
			return nil, nil
		}
		sheet = list[0]
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheet, err)
	}
	return rows, nil
}

// withTempFile hands the content to a decoder that needs a file on disk. The
// file is removed on every exit path.
func withTempFile(content []byte, ext string, decode func(path string) ([][]string, error)) ([][]string, error) {
	tmp, err := os.CreateTemp("", "spreadsheet-*"+ext)
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("close temp file: %w", err)
	}
	return decode(tmp.Name())
}

func cleanRows(rows [][]string) [][]string {
	out := make([][]string, 0, len(rows))
	for _, row := range rows {
		empty := true
		cells := make([]string, len(row))
		for i, cell := range row {
			cells[i] = strings.TrimSpace(cell)
			if cells[i] != "" {
				empty = false
			}
		}
		if !empty {
			out = append(out, cells)
		}
	}
	return out
}

func essence(mediaType string) string {
	if mediaType == "" {
		return ""
	}
	parsed, _, err := mime.ParseMediaType(mediaType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(mediaType))
	}
	return parsed
}
