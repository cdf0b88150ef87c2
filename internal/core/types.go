package core

import (
	"time"

	"github.com/google/uuid"
)

// Mime types of the downloadable outputs.
const (
	MimeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	MimeZIP  = "application/zip"
)

// Candidates are the delimiters considered by DetectDelimiter, in
// tie-break preference order.
var Candidates = []rune{',', ';', '\t', '|'}

// UploadedFile is one file received in a request.
// Size is the declared length; Data may be nil when Size is over the limit.
type UploadedFile struct {
	Name string
	Data []byte
	Size int64
}

// Table is a parsed delimited file. Every row has len(Columns) cells.
type Table struct {
	Columns []string
	Rows    [][]string
}

// SummaryStats describes a parsed Table.
type SummaryStats struct {
	RowCount     int `json:"row_count"`
	ColumnCount  int `json:"column_count"`
	MissingCount int `json:"missing_count"`
}

// ConversionResult is a downloadable output.
type ConversionResult struct {
	FileName string
	Data     []byte
	MimeType string
}

// ArchiveEntry is one member of the bulk archive.
type ArchiveEntry struct {
	Name string
	Data []byte
}

// Status of one file in a batch.
type Status string

const (
	StatusConverted Status = "converted"
	StatusSkipped   Status = "skipped"
	StatusFailed    Status = "failed"
)

// FileOutcome is the result of one uploaded file.
type FileOutcome struct {
	Index     int
	Name      string
	Size      int64
	Status    Status
	Err       *FileError
	Delimiter rune
	Summary   SummaryStats
	Preview   *Table
	Result    *ConversionResult
}

// DelimiterName returns a printable name for the detected delimiter.
func (o FileOutcome) DelimiterName() string {
	return DelimiterName(o.Delimiter)
}

// BatchResult is the result of one conversion request.
type BatchResult struct {
	ID         uuid.UUID
	StartedAt  time.Time
	Duration   time.Duration
	Files      []FileOutcome
	Archive    *ConversionResult
	ArchiveErr *FileError
}

// Converted returns the outcomes that produced an XLSX file.
func (b *BatchResult) Converted() []FileOutcome {
	return b.filter(StatusConverted)
}

// Failed returns the outcomes that failed.
func (b *BatchResult) Failed() []FileOutcome {
	return b.filter(StatusFailed)
}

// Skipped returns the outcomes that were skipped with a warning.
func (b *BatchResult) Skipped() []FileOutcome {
	return b.filter(StatusSkipped)
}

func (b *BatchResult) filter(s Status) []FileOutcome {
	var out []FileOutcome
	for _, f := range b.Files {
		if f.Status == s {
			out = append(out, f)
		}
	}
	return out
}
