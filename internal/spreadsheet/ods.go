package spreadsheet

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Repeat attributes may describe a million blank cells up to the sheet edge
const maxRepeat = 1024

func decodeODS(path string) ([][]string, error) {
	archive, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open ods: %w", err)
	}
	defer archive.Close()

	var content, settings *zip.File
	for _, file := range archive.File {
		switch file.Name {
		case "content.xml":
			content = file
		case "settings.xml":
			settings = file
		}
	}
	if content == nil {
		return nil, fmt.Errorf("open ods: content.xml missing")
	}

	active := ""
	if settings != nil {
		if rc, err := settings.Open(); err == nil {
			active = readODSActiveTable(rc)
			rc.Close()
		}
	}

	rc, err := content.Open()
	if err != nil {
		return nil, fmt.Errorf("open ods content: %w", err)
	}
	defer rc.Close()
	return readODSContent(rc, active)
}

// readODSActiveTable returns the name of the sheet that was open when the
// document was saved, empty when settings.xml does not say
func readODSActiveTable(r io.Reader) string {
	decoder := xml.NewDecoder(r)
	for {
		tok, err := decoder.Token()
		if err != nil {
			return ""
		}
		el, ok := tok.(xml.StartElement)
		if !ok || el.Name.Local != "config-item" || attr(el, "name") != "ActiveTable" {
			continue
		}
		var name string
		if err := decoder.DecodeElement(&name, &el); err != nil {
			return ""
		}
		return strings.TrimSpace(name)
	}
}

// readODSContent streams the named table of an OpenDocument content.xml, or
// the first table when active is empty or names no table
func readODSContent(r io.Reader, active string) ([][]string, error) {
	decoder := xml.NewDecoder(r)

	var (
		rows       [][]string
		first      [][]string
		seenFirst  bool
		tableName  string
		row        []string
		rowRepeat  int
		cell       strings.Builder
		cellRepeat int
		inTable    bool
		inCell     bool
		paragraphs int
	)

	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			return first, nil
		}
		if err != nil {
			return nil, fmt.Errorf("parse ods content: %w", err)
		}

		switch el := tok.(type) {
		case xml.StartElement:
			switch el.Name.Local {
			case "table":
				inTable = true
				tableName = attr(el, "name")
				rows = nil
			case "annotation":
				// Comments are not cell values
				if err := decoder.Skip(); err != nil {
					return nil, fmt.Errorf("parse ods content: %w", err)
				}
			case "table-row":
				if inTable {
					row = row[:0]
					rowRepeat = repeatAttr(el, "number-rows-repeated")
				}
			case "table-cell", "covered-table-cell":
				if inTable {
					inCell = true
					cell.Reset()
					paragraphs = 0
					cellRepeat = repeatAttr(el, "number-columns-repeated")
				}
			case "p":
				if inCell {
					if paragraphs > 0 {
						cell.WriteByte('\n')
					}
					paragraphs++
				}
			case "s":
				if inCell {
					cell.WriteString(strings.Repeat(" ", repeatAttr(el, "c")))
				}
			case "tab":
				if inCell {
					cell.WriteByte('\t')
				}
			case "line-break":
				if inCell {
					cell.WriteByte('\n')
				}
			}
		case xml.CharData:
			if inCell {
				cell.Write(el)
			}
		case xml.EndElement:
			switch el.Name.Local {
			case "table-cell", "covered-table-cell":
				if inCell {
					value := cell.String()
					for i := 0; i < cellRepeat; i++ {
						row = append(row, value)
					}
					inCell = false
				}
			case "table-row":
				if inTable {
					trimmed := trimTrailingEmpty(row)
					repeat := rowRepeat
					if len(trimmed) == 0 {
						repeat = 1
					}
					for i := 0; i < repeat; i++ {
						rows = append(rows, append([]string(nil), trimmed...))
					}
				}
			case "table":
				inTable = false
				if active == "" || tableName == active {
					return rows, nil
				}
				if !seenFirst {
					first, seenFirst = rows, true
				}
			}
		}
	}
}

func attr(el xml.StartElement, local string) string {
	for _, a := range el.Attr {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}

func repeatAttr(el xml.StartElement, local string) int {
	for _, attr := range el.Attr {
		if attr.Name.Local != local {
			continue
		}
		n, err := strconv.Atoi(attr.Value)
		if err != nil || n < 1 {
			return 1
		}
		if n > maxRepeat {
			return maxRepeat
		}
		return n
	}
	return 1
}

func trimTrailingEmpty(row []string) []string {
	end := len(row)
	for end > 0 && strings.TrimSpace(row[end-1]) == "" {
		end--
	}
	return row[:end]
}
