package spreadsheet

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Column names of the timeline spreadsheet template
const (
	ColYear           = "Year"
	ColMonth          = "Month"
	ColDay            = "Day"
	ColTime           = "Time"
	ColEndYear        = "End Year"
	ColEndMonth       = "End Month"
	ColEndDay         = "End Day"
	ColEndTime        = "End Time"
	ColDisplayDate    = "Display Date"
	ColHeadline       = "Headline"
	ColText           = "Text"
	ColMedia          = "Media"
	ColMediaCredit    = "Media Credit"
	ColMediaCaption   = "Media Caption"
	ColMediaThumbnail = "Media Thumbnail"
	ColAltText        = "Alt Text"
	ColType           = "Type"
	ColGroup          = "Group"
	ColBackground     = "Background"
)

// Columns is the exact header row, in template order
var Columns = []string{
	ColYear, ColMonth, ColDay, ColTime,
	ColEndYear, ColEndMonth, ColEndDay, ColEndTime,
	ColDisplayDate, ColHeadline, ColText, ColMedia,
	ColMediaCredit, ColMediaCaption, ColMediaThumbnail, ColAltText,
	ColType, ColGroup, ColBackground,
}

// ErrSchema is matched by header problems that abort the whole batch
var ErrSchema = errors.New("invalid spreadsheet headers")

// SchemaError describes a header row that does not match the template
type SchemaError struct {
	Missing    []string
	Unexpected []string
	Duplicated []string
}

func (e *SchemaError) Error() string {
	if len(e.Duplicated) > 0 {
		return fmt.Sprintf("some headers are duplicated: %s", quoteAll(e.Duplicated))
	}
	return fmt.Sprintf("the exact list of %d headers should be used, check: %s",
		len(Columns), quoteAll(e.Difference()))
}

// Is makes errors.Is(err, ErrSchema) match
func (e *SchemaError) Is(target error) bool { return target == ErrSchema }

// Difference returns the symmetric difference between the header row and the template
func (e *SchemaError) Difference() []string {
	out := append([]string(nil), e.Missing...)
	return append(out, e.Unexpected...)
}

// Row is one data line mapped by header name. Index is 1-based and counts
// data rows after the header.
type Row struct {
	Index  int
	values map[string]string
}

// Get returns the cell under a header, empty when absent
func (r Row) Get(column string) string {
	return r.values[column]
}

// NewRow builds a row from header/value pairs
func NewRow(index int, values map[string]string) Row {
	return Row{Index: index, values: values}
}

// Table checks the header row and zips every data row to it. Only the first
// len(Columns) headers are compared; extra columns are ignored.
func Table(rows [][]string) ([]Row, error) {
	if len(rows) == 0 {
		return nil, nil
	}

	header := trimTrailingEmpty(rows[0])
	if err := checkHeader(header); err != nil {
		return nil, err
	}

	data := make([]Row, 0, len(rows)-1)
	for i, cells := range rows[1:] {
		if len(cells) < len(header) {
			cells = append(cells, make([]string, len(header)-len(cells))...)
		}
		values := make(map[string]string, len(Columns))
		for col, name := range header {
			values[name] = strings.TrimSpace(cells[col])
		}
		data = append(data, Row{Index: i + 1, values: values})
	}
	return data, nil
}

func checkHeader(header []string) error {
	compared := header
	if len(compared) > len(Columns) {
		compared = compared[:len(Columns)]
	}

	present := make(map[string]bool, len(compared))
	for _, name := range compared {
		present[name] = true
	}
	required := make(map[string]bool, len(Columns))
	schemaErr := &SchemaError{}
	for _, name := range Columns {
		required[name] = true
		if !present[name] {
			schemaErr.Missing = append(schemaErr.Missing, name)
		}
	}
	seen := make(map[string]bool)
	for _, name := range compared {
		if !required[name] && !seen[name] {
			schemaErr.Unexpected = append(schemaErr.Unexpected, name)
		}
		seen[name] = true
	}
	if len(schemaErr.Missing) > 0 || len(schemaErr.Unexpected) > 0 {
		return schemaErr
	}

	counts := make(map[string]int, len(header))
	for _, name := range header {
		if name != "" {
			counts[name]++
		}
	}
	for name, n := range counts {
		if n > 1 {
			schemaErr.Duplicated = append(schemaErr.Duplicated, name)
		}
	}
	if len(schemaErr.Duplicated) > 0 {
		sort.Strings(schemaErr.Duplicated)
		return schemaErr
	}
	return nil
}

func quoteAll(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = fmt.Sprintf("%q", n)
	}
	return strings.Join(quoted, ", ")
}
