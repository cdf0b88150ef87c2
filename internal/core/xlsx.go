package core

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"time"
	"unicode/utf8"

	"github.com/klauspost/compress/zip"
	"github.com/xuri/excelize/v2"
)

// SheetName is the name of the single worksheet written by EncodeXLSX.
const SheetName = "Sheet1"

const (
	textNumFmt     = 49 // built-in "@"
	widthSampleRow = 100
	minColWidth    = 8
	maxColWidth    = 60
)

// partTime is stamped on every part of the encoded workbook.
var partTime = time.Date(1980, 1, 1, 0, 0, 0, 0, time.UTC)

// EncodeXLSX writes t as a single-sheet workbook. Every non-empty cell is a
// text cell, so values like "007" are never reinterpreted. The output is
// byte-identical for equal tables.
func EncodeXLSX(t *Table) ([]byte, error) {
	if err := checkEncodable(t); err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()

	textStyle, err := f.NewStyle(&excelize.Style{NumFmt: textNumFmt})
	if err != nil {
		return nil, fmt.Errorf("create text style: %w", err)
	}
	headerStyle, err := f.NewStyle(&excelize.Style{
		NumFmt: textNumFmt,
		Font:   &excelize.Font{Bold: true},
	})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}

	sw, err := f.NewStreamWriter(SheetName)
	if err != nil {
		return nil, fmt.Errorf("create stream writer: %w", err)
	}

	for i, w := range columnWidths(t) {
		if err := sw.SetColWidth(i+1, i+1, w); err != nil {
			return nil, fmt.Errorf("set column width: %w", err)
		}
	}

	if err := sw.SetRow("A1", cellRow(t.Columns, headerStyle)); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	for i, row := range t.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := sw.SetRow(cell, cellRow(row, textStyle)); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	if err := sw.Flush(); err != nil {
		return nil, fmt.Errorf("flush sheet: %w", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return canonicalizeZip(buf.Bytes())
}

func cellRow(values []string, style int) []interface{} {
	row := make([]interface{}, len(values))
	for i, v := range values {
		if v == "" {
			continue
		}
		row[i] = excelize.Cell{StyleID: style, Value: v}
	}
	return row
}

// columnWidths sizes each column from the header and a sample of rows.
func columnWidths(t *Table) []float64 {
	widths := make([]float64, len(t.Columns))
	measure := func(i int, v string) {
		w := float64(utf8.RuneCountInString(v) + 2)
		if w > widths[i] {
			widths[i] = w
		}
	}

	for i, c := range t.Columns {
		measure(i, c)
	}
	for r, row := range t.Rows {
		if r >= widthSampleRow {
			break
		}
		for i, v := range row {
			if i < len(widths) {
				measure(i, v)
			}
		}
	}

	for i := range widths {
		widths[i] = min(max(widths[i], minColWidth), maxColWidth)
	}
	return widths
}

func checkEncodable(t *Table) error {
	if t == nil {
		return fmt.Errorf("nil table")
	}
	if len(t.Columns) > excelize.MaxColumns {
		return fmt.Errorf("%d columns exceeds the sheet limit of %d", len(t.Columns), excelize.MaxColumns)
	}
	if len(t.Rows) > excelize.TotalRows-1 {
		return fmt.Errorf("%d rows exceeds the sheet limit of %d", len(t.Rows), excelize.TotalRows-1)
	}

	check := func(row int, col int, v string) error {
		if utf8.RuneCountInString(v) > excelize.TotalCellChars {
			return fmt.Errorf("row %d column %d: value longer than %d characters", row, col+1, excelize.TotalCellChars)
		}
		for _, r := range v {
			if isIllegalXMLChar(r) {
				return fmt.Errorf("row %d column %d: control character U+%04X is not allowed", row, col+1, r)
			}
		}
		return nil
	}

	for i, c := range t.Columns {
		if err := check(0, i, c); err != nil {
			return err
		}
	}
	for r, row := range t.Rows {
		for i, v := range row {
			if err := check(r+1, i, v); err != nil {
				return err
			}
		}
	}
	return nil
}

func isIllegalXMLChar(r rune) bool {
	if r == '\t' || r == '\n' || r == '\r' {
		return false
	}
	return r < 0x20 || r == 0xFFFE || r == 0xFFFF
}

// canonicalizeZip rewrites a zip with its parts sorted by name and a fixed
// modification time.
func canonicalizeZip(data []byte) ([]byte, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("read workbook: %w", err)
	}

	files := append([]*zip.File(nil), zr.File...)
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })

	var out bytes.Buffer
	zw := zip.NewWriter(&out)
	for _, zf := range files {
		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:     zf.Name,
			Method:   zip.Deflate,
			Modified: partTime,
		})
		if err != nil {
			return nil, fmt.Errorf("write part %s: %w", zf.Name, err)
		}
		rc, err := zf.Open()
		if err != nil {
			return nil, fmt.Errorf("open part %s: %w", zf.Name, err)
		}
		_, err = io.Copy(w, rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("copy part %s: %w", zf.Name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close workbook: %w", err)
	}
	return out.Bytes(), nil
}
