package models

// ErrorRecord is an ingestion problem reported back to the editor. Row is the
// 1-based data row of a spreadsheet and 0 for errors not tied to a row.
type ErrorRecord struct {
	Row     int         `json:"row,omitempty"`
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
}

// Error fields for problems that are not about a single column
const (
	FieldSpreadsheet = "spreadsheet"
	FieldSource      = "source"
)
