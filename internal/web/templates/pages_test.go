package templates

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/JonMunkholm/csvxlsx/internal/core"
)

func renderString(t *testing.T, page func(*bytes.Buffer) error) string {
	t.Helper()
	var buf bytes.Buffer
	if err := page(&buf); err != nil {
		t.Fatalf("render: %v", err)
	}
	return buf.String()
}

func TestIndexPage(t *testing.T) {
	html := renderString(t, func(b *bytes.Buffer) error {
		return IndexPage(IndexData{MaxFileSize: 5 << 20, MaxFiles: 20}).Render(context.Background(), b)
	})

	for _, want := range []string{`name="password"`, `name="files"`, "multiple", "5.0 MiB", "Up to 20 files"} {
		if !strings.Contains(html, want) {
			t.Errorf("index page missing %q", want)
		}
	}
	if strings.Contains(html, `role="alert"`) {
		t.Error("index page without notice should not render an alert")
	}
}

func TestIndexPage_Notice(t *testing.T) {
	html := renderString(t, func(b *bytes.Buffer) error {
		return IndexPage(IndexData{Notice: "Incorrect password"}).Render(context.Background(), b)
	})
	if !strings.Contains(html, "Incorrect password") {
		t.Errorf("notice not rendered: %s", html)
	}
}

func TestResultPage(t *testing.T) {
	batch := &core.BatchResult{
		Files: []core.FileOutcome{
			{
				Name:      "<script>.csv",
				Status:    core.StatusConverted,
				Delimiter: ';',
				Summary:   core.SummaryStats{RowCount: 1, ColumnCount: 1},
				Preview:   &core.Table{Columns: []string{"a&b"}, Rows: [][]string{{"<b>x</b>"}}},
				Result:    &core.ConversionResult{FileName: "out.xlsx", Data: []byte("PK"), MimeType: core.MimeXLSX},
			},
			{
				Name:   "bad.csv",
				Status: core.StatusFailed,
				Err:    &core.FileError{Kind: core.KindParse, File: "bad.csv", Err: errors.New("line 3: expected 2 fields, saw 3")},
			},
		},
		Archive: &core.ConversionResult{FileName: "converted_files.zip", Data: []byte("PK"), MimeType: core.MimeZIP},
	}

	html := renderString(t, func(b *bytes.Buffer) error {
		return ResultPage(batch).Render(context.Background(), b)
	})

	checks := []string{
		"&lt;script&gt;.csv",
		"a&amp;b",
		"&lt;b&gt;x&lt;/b&gt;",
		`download="out.xlsx"`,
		"data:" + core.MimeXLSX + ";base64,UEs=",
		`download="converted_files.zip"`,
		"Delimiter: semicolon",
		"FILE002",
		"expected 2 fields, saw 3",
	}
	for _, want := range checks {
		if !strings.Contains(html, want) {
			t.Errorf("result page missing %q", want)
		}
	}
	if strings.Contains(html, "<script>") {
		t.Error("file name was not escaped")
	}
}

func TestErrorPage(t *testing.T) {
	html := renderString(t, func(b *bytes.Buffer) error {
		return ErrorPage(core.UserMessage{Message: "Busy", Action: "Retry", Code: "UPL002"}).Render(context.Background(), b)
	})
	if !strings.Contains(html, "UPL002") || !strings.Contains(html, "Retry") {
		t.Errorf("error page = %s", html)
	}
}

func TestHumanBytes(t *testing.T) {
	tests := map[int64]string{
		512:     "512 B",
		2048:    "2.0 KiB",
		5 << 20: "5.0 MiB",
	}
	for in, want := range tests {
		if got := humanBytes(in); got != want {
			t.Errorf("humanBytes(%d) = %q, want %q", in, got, want)
		}
	}
}
