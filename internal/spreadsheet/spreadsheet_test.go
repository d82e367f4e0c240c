package spreadsheet

import (
	"archive/zip"
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/xuri/excelize/v2"

	"github.com/timeline-exhibit-api/internal/datetoken"
	"github.com/timeline-exhibit-api/internal/models"
)

var headerCSV = strings.Join(Columns, ",")

func TestDecode_CSV(t *testing.T) {
	content := "\xEF\xBB\xBF" + headerCSV + "\n" +
		`1900,5,3,,,,,,,"Hello, world",,,,,,,event,,` + "\r\n" +
		",,,,,,,,,,,,,,,,,,\n" +
		"\n" +
		"-300,,,,,,,,,B,,,,,,,,,\n"

	rows, err := Decode([]byte(content), "text/csv")
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("Expected 3 rows (header + 2), got %d: %v", len(rows), rows)
	}
	if rows[0][0] != "Year" {
		t.Errorf("Expected BOM to be stripped, got %q", rows[0][0])
	}
	if rows[1][9] != "Hello, world" {
		t.Errorf("Expected quoted cell, got %q", rows[1][9])
	}
	if rows[2][0] != "-300" {
		t.Errorf("Expected -300, got %q", rows[2][0])
	}
}

func TestDecode_TSV(t *testing.T) {
	content := strings.Join(Columns, "\t") + "\n" +
		"1900\t\t\t\t\t\t\t\t\t\"Quoted\"\n"

	rows, err := Decode([]byte(content), "")
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("Expected 2 rows, got %d", len(rows))
	}
	// No quoting in tab separated files
	if rows[1][9] != `"Quoted"` {
		t.Errorf("Expected quotes to be kept, got %q", rows[1][9])
	}
}

func TestDecode_Unsupported(t *testing.T) {
	_, err := Decode([]byte("%PDF-1.4 binary"), "application/pdf")
	if !errors.Is(err, ErrUnsupported) {
		t.Errorf("Expected ErrUnsupported, got %v", err)
	}
}

func TestDetectMediaType(t *testing.T) {
	zipped := append([]byte("PK\x03\x04"), make([]byte, 64)...)

	tests := []struct {
		name     string
		content  []byte
		declared string
		want     string
	}{
		{name: "declared wins", content: []byte("a,b\n"), declared: "text/csv; charset=utf-8", want: "text/csv"},
		{name: "declared ods", content: zipped, declared: MediaTypeODS, want: MediaTypeODS},
		{name: "sniffed text", content: []byte("hello"), declared: "", want: "text/plain"},
		{name: "octet stream is sniffed", content: []byte("hello"), declared: "application/octet-stream", want: "text/plain"},
		{name: "zip declared as csv", content: zipped, declared: "text/csv", want: "application/zip"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectMediaType(tt.content, tt.declared); got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestDecode_XLSX(t *testing.T) {
	t.Setenv("TMPDIR", t.TempDir())
	f := excelize.NewFile()
	defer f.Close()
	for i, name := range Columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue("Sheet1", cell, name)
	}
	f.SetCellValue("Sheet1", "A2", "1900")
	f.SetCellValue("Sheet1", "J2", "Headline A")
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("WriteToBuffer failed: %v", err)
	}

	before := countTempSpreadsheets(t)
	rows, err := Decode(buf.Bytes(), MediaTypeXLSX)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("Expected 2 rows, got %d", len(rows))
	}
	if rows[1][0] != "1900" || rows[1][9] != "Headline A" {
		t.Errorf("Unexpected data row: %v", rows[1])
	}
	if after := countTempSpreadsheets(t); after != before {
		t.Errorf("Expected temp file to be removed, had %d now %d", before, after)
	}
}

func TestDecode_XLSXCorruptRemovesTempFile(t *testing.T) {
	t.Setenv("TMPDIR", t.TempDir())
	before := countTempSpreadsheets(t)
	_, err := Decode(append([]byte("PK\x03\x04"), []byte("not really a zip")...), MediaTypeXLSX)
	if err == nil {
		t.Fatal("Expected decode failure for corrupt xlsx")
	}
	if after := countTempSpreadsheets(t); after != before {
		t.Errorf("Expected temp file to be removed on failure, had %d now %d", before, after)
	}
}

func TestDecode_ODS(t *testing.T) {
	var cells strings.Builder
	for _, name := range Columns {
		cells.WriteString(`<table:table-cell office:value-type="string"><text:p>` + name + `</text:p></table:table-cell>`)
	}
	content := `<?xml version="1.0" encoding="UTF-8"?>
<office:document-content xmlns:office="urn:oasis:names:tc:opendocument:xmlns:office:1.0" xmlns:table="urn:oasis:names:tc:opendocument:xmlns:table:1.0" xmlns:text="urn:oasis:names:tc:opendocument:xmlns:text:1.0"><office:body><office:spreadsheet>` +
		`<table:table table:name="Sheet1">` +
		`<table:table-row>` + cells.String() + `<table:table-cell table:number-columns-repeated="1000"/></table:table-row>` +
		`<table:table-row><table:table-cell><text:p>1900</text:p></table:table-cell><table:table-cell table:number-columns-repeated="8"/><table:table-cell><text:p>Two</text:p><text:p>lines</text:p></table:table-cell></table:table-row>` +
		`<table:table-row table:number-rows-repeated="1048000"><table:table-cell table:number-columns-repeated="1024"/></table:table-row>` +
		`</table:table><table:table table:name="Sheet2"><table:table-row><table:table-cell><text:p>ignored</text:p></table:table-cell></table:table-row></table:table>` +
		`</office:spreadsheet></office:body></office:document-content>`

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, _ := zw.Create("content.xml")
	w.Write([]byte(content))
	zw.Close()

	rows, err := Decode(buf.Bytes(), MediaTypeODS)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("Expected header + 1 row, got %d", len(rows))
	}
	if diff := cmp.Diff(Columns, rows[0]); diff != "" {
		t.Errorf("Header mismatch (-want +got):\n%s", diff)
	}
	if rows[1][0] != "1900" || rows[1][9] != "Two\nlines" {
		t.Errorf("Unexpected data row: %q", rows[1])
	}
}

func TestTable(t *testing.T) {
	rows := [][]string{
		append(append([]string{}, Columns...), "Extra", ""),
		{"1900", "5"},
		append(make([]string, 25), "overflow"),
	}
	rows[1] = append(rows[1], make([]string, 6)...)
	rows[1] = append(rows[1], "Display", "Headline")

	data, err := Table(rows)
	if err != nil {
		t.Fatalf("Table failed: %v", err)
	}
	if len(data) != 2 {
		t.Fatalf("Expected 2 data rows, got %d", len(data))
	}
	if data[0].Index != 1 || data[1].Index != 2 {
		t.Errorf("Expected 1-based indexes, got %d and %d", data[0].Index, data[1].Index)
	}
	if data[0].Get(ColYear) != "1900" || data[0].Get(ColMonth) != "5" {
		t.Errorf("Unexpected date cells: %q %q", data[0].Get(ColYear), data[0].Get(ColMonth))
	}
	if data[0].Get(ColHeadline) != "Headline" || data[0].Get(ColBackground) != "" {
		t.Errorf("Unexpected padded cells: %q %q", data[0].Get(ColHeadline), data[0].Get(ColBackground))
	}
}

func TestTable_PermutedHeaderAccepted(t *testing.T) {
	header := append([]string{}, Columns...)
	header[0], header[18] = header[18], header[0]
	cells := make([]string, len(Columns))
	cells[0], cells[18] = "#fff", "1900"
	data, err := Table([][]string{header, cells})
	if err != nil {
		t.Fatalf("Expected permuted header to be accepted, got %v", err)
	}
	if data[0].Get(ColYear) != "1900" || data[0].Get(ColBackground) != "#fff" {
		t.Errorf("Expected cells zipped by name, got year %q background %q", data[0].Get(ColYear), data[0].Get(ColBackground))
	}
}

func TestTable_SchemaErrors(t *testing.T) {
	renamed := append([]string{}, Columns...)
	renamed[9] = "Title"

	short := append([]string{}, Columns[:18]...)

	duplicated := append(append([]string{}, Columns...), "Year")

	tests := []struct {
		name      string
		header    []string
		wantDiff  []string
		wantDupes []string
	}{
		{name: "renamed column", header: renamed, wantDiff: []string{"Headline", "Title"}},
		{name: "missing column", header: short, wantDiff: []string{"Background"}},
		{name: "lowercase", header: append([]string{"year"}, Columns[1:]...), wantDiff: []string{"Year", "year"}},
		{name: "duplicate beyond template", header: duplicated, wantDupes: []string{"Year"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := Table([][]string{tt.header, {"1900"}})
			if data != nil {
				t.Errorf("Expected no rows, got %d", len(data))
			}
			var schemaErr *SchemaError
			if !errors.As(err, &schemaErr) || !errors.Is(err, ErrSchema) {
				t.Fatalf("Expected SchemaError, got %v", err)
			}
			if tt.wantDiff != nil {
				if diff := cmp.Diff(tt.wantDiff, schemaErr.Difference()); diff != "" {
					t.Errorf("Difference mismatch (-want +got):\n%s", diff)
				}
			}
			if tt.wantDupes != nil {
				if diff := cmp.Diff(tt.wantDupes, schemaErr.Duplicated); diff != "" {
					t.Errorf("Duplicated mismatch (-want +got):\n%s", diff)
				}
			}
		})
	}
}

func countTempSpreadsheets(t *testing.T) int {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(os.TempDir(), "spreadsheet-*"))
	if err != nil {
		t.Fatalf("Glob failed: %v", err)
	}
	return len(matches)
}

func TestSlideRow(t *testing.T) {
	headline, caption, group := "Founding", "line1\nline2", "antiquity"
	slide := models.Slide{
		Kind:       models.SlideKindEra,
		Start:      datetoken.Token{Negative: true, Year: "300", Month: "05", Day: "03", Hour: "10", Minute: "30"},
		End:        datetoken.Token{Year: "1900"},
		Headline:   &headline,
		Caption:    &caption,
		Group:      &group,
		Media:      models.AssetRef(42),
		Background: models.ResourceRef(7),
	}

	want := make([]string, len(Columns))
	want[0], want[1], want[2], want[3] = "-300", "05", "03", "10:30"
	want[4] = "1900"
	want[9] = "Founding"
	want[11] = "asset/42"
	want[13] = "line1\nline2"
	want[16] = "era"
	want[17] = "antiquity"
	want[18] = "7"

	if diff := cmp.Diff(want, SlideRow(slide)); diff != "" {
		t.Errorf("Unexpected row (-want +got):\n%s", diff)
	}

	color := SlideRow(models.Slide{Background: models.ColorRef("#fafafa")})
	if color[18] != "#fafafa" {
		t.Errorf("Expected color background, got %q", color[18])
	}
}

func TestWriteXLSX(t *testing.T) {
	t.Setenv("TMPDIR", t.TempDir())
	a, b := "A", "B"
	slides := []models.Slide{
		{Kind: models.SlideKindEvent, Start: datetoken.Token{Year: "1900"}, Headline: &a, Media: models.ResourceRef(5)},
		{Kind: models.SlideKindTitle, Headline: &b},
	}

	var buf bytes.Buffer
	if err := WriteXLSX(&buf, slides); err != nil {
		t.Fatalf("WriteXLSX failed: %v", err)
	}

	rows, err := Decode(buf.Bytes(), MediaTypeXLSX)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	table, err := Table(rows)
	if err != nil {
		t.Fatalf("Table failed: %v", err)
	}
	if len(table) != 2 {
		t.Fatalf("Expected 2 rows, got %d", len(table))
	}
	if table[0].Get(ColYear) != "1900" || table[0].Get(ColMedia) != "5" || table[0].Get(ColType) != "event" {
		t.Errorf("Unexpected first row: year %q media %q type %q", table[0].Get(ColYear), table[0].Get(ColMedia), table[0].Get(ColType))
	}
	if table[1].Get(ColHeadline) != "B" || table[1].Get(ColType) != "title" {
		t.Errorf("Unexpected second row: headline %q type %q", table[1].Get(ColHeadline), table[1].Get(ColType))
	}
}

func TestDecode_ODSActiveTableAndAnnotations(t *testing.T) {
	var header strings.Builder
	for _, name := range Columns {
		header.WriteString(`<table:table-cell><text:p>` + name + `</text:p></table:table-cell>`)
	}
	content := `<?xml version="1.0" encoding="UTF-8"?>
<office:document-content xmlns:office="urn:oasis:names:tc:opendocument:xmlns:office:1.0" xmlns:table="urn:oasis:names:tc:opendocument:xmlns:table:1.0" xmlns:text="urn:oasis:names:tc:opendocument:xmlns:text:1.0"><office:body><office:spreadsheet>` +
		`<table:table table:name="Notes"><table:table-row><table:table-cell><text:p>scratch</text:p></table:table-cell></table:table-row></table:table>` +
		`<table:table table:name="Slides"><table:table-row>` + header.String() + `</table:table-row>` +
		`<table:table-row><table:table-cell><office:annotation><text:p>check this year</text:p></office:annotation><text:p>1900</text:p></table:table-cell></table:table-row>` +
		`</table:table></office:spreadsheet></office:body></office:document-content>`
	settings := `<?xml version="1.0" encoding="UTF-8"?>
<office:document-settings xmlns:office="urn:oasis:names:tc:opendocument:xmlns:office:1.0" xmlns:config="urn:oasis:names:tc:opendocument:xmlns:config:1.0"><office:settings><config:config-item-set config:name="ooo:view-settings"><config:config-item-map-indexed config:name="Views"><config:config-item-map-entry>` +
		`<config:config-item config:name="ViewId" config:type="string">view1</config:config-item>` +
		`<config:config-item config:name="ActiveTable" config:type="string">Slides</config:config-item>` +
		`</config:config-item-map-entry></config:config-item-map-indexed></config:config-item-set></office:settings></office:document-settings>`

	tests := []struct {
		name     string
		settings string
		wantRows int
		wantCell string
	}{
		{name: "active table", settings: settings, wantRows: 2, wantCell: "1900"},
		{name: "no settings reads the first table", settings: "", wantRows: 1, wantCell: "scratch"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			zw := zip.NewWriter(&buf)
			w, _ := zw.Create("content.xml")
			w.Write([]byte(content))
			if tt.settings != "" {
				w, _ = zw.Create("settings.xml")
				w.Write([]byte(tt.settings))
			}
			zw.Close()

			rows, err := Decode(buf.Bytes(), MediaTypeODS)
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			if len(rows) != tt.wantRows {
				t.Fatalf("Expected %d rows, got %d", tt.wantRows, len(rows))
			}
			if got := rows[len(rows)-1][0]; got != tt.wantCell {
				t.Errorf("Expected %q, got %q", tt.wantCell, got)
			}
		})
	}
}
