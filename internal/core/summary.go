package core

// DefaultPreviewRows is how many data rows Preview keeps by default.
const DefaultPreviewRows = 5

// Summarize computes row, column and missing-cell counts for t.
// A missing cell is a data cell equal to "".
func Summarize(t *Table) SummaryStats {
	if t == nil {
		return SummaryStats{}
	}

	stats := SummaryStats{
		RowCount:    len(t.Rows),
		ColumnCount: len(t.Columns),
	}
	for _, row := range t.Rows {
		for _, v := range row {
			if v == "" {
				stats.MissingCount++
			}
		}
	}
	return stats
}

// Preview returns a Table holding the header and the first n rows of t.
// Rows are shared with t, not copied.
func Preview(t *Table, n int) *Table {
	if t == nil {
		return nil
	}
	if n <= 0 {
		n = DefaultPreviewRows
	}
	if n > len(t.Rows) {
		n = len(t.Rows)
	}
	return &Table{Columns: t.Columns, Rows: t.Rows[:n]}
}
