package spreadsheet

import (
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/timeline-exhibit-api/internal/datetoken"
	"github.com/timeline-exhibit-api/internal/models"
)

// SlideRow lays a slide out in template column order, so an exported sheet
// can be imported again
func SlideRow(s models.Slide) []string {
	row := make([]string, len(Columns))
	startYear, startMonth, startDay, startTime := tokenCells(s.Start)
	endYear, endMonth, endDay, endTime := tokenCells(s.End)

	row[0], row[1], row[2], row[3] = startYear, startMonth, startDay, startTime
	row[4], row[5], row[6], row[7] = endYear, endMonth, endDay, endTime
	row[8] = deref(s.DisplayDateStart)
	row[9] = deref(s.Headline)
	row[10] = deref(s.BodyHTML)
	row[11] = referenceCell(s.Media)
	row[12] = deref(s.Credit)
	row[13] = deref(s.Caption)
	row[16] = string(s.Kind)
	row[17] = deref(s.Group)
	row[18] = referenceCell(s.Background)
	return row
}

// WriteXLSX writes slides as a single sheet workbook with the template header
func WriteXLSX(w io.Writer, slides []models.Slide) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	if err := writeSheetRow(f, sheet, 1, Columns); err != nil {
		return err
	}
	for i := range slides {
		if err := writeSheetRow(f, sheet, i+2, SlideRow(slides[i])); err != nil {
			return err
		}
	}
	_, err := f.WriteTo(w)
	return err
}

func writeSheetRow(f *excelize.File, sheet string, n int, values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, n)
	if err != nil {
		return err
	}
	row := make([]interface{}, len(values))
	for i, v := range values {
		row[i] = v
	}
	return f.SetSheetRow(sheet, cell, &row)
}

func tokenCells(t datetoken.Token) (year, month, day, clock string) {
	if t.IsZero() {
		return "", "", "", ""
	}
	year = t.Year
	if t.Negative {
		year = "-" + year
	}
	if t.Hour != "" {
		clock = t.Hour
		if t.Minute != "" {
			clock += ":" + t.Minute
			if t.Second != "" {
				clock += ":" + t.Second
			}
		}
	}
	return year, t.Month, t.Day, clock
}

func referenceCell(r models.Reference) string {
	switch r.Kind {
	case models.ReferenceResource:
		return strconv.FormatInt(r.ID, 10)
	case models.ReferenceAsset:
		return "asset/" + strconv.FormatInt(r.ID, 10)
	default:
		return r.Value
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
