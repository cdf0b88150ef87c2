package templates

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"strings"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/csvxlsx/internal/core"
)

// IndexData is the state of the upload form.
type IndexData struct {
	Notice      string // gate notice, e.g. "Incorrect password"
	Error       string // request-level problem, e.g. no files selected
	MaxFileSize int64
	MaxFiles    int
}

// IndexPage renders the password and upload form.
func IndexPage(d IndexData) templ.Component {
	body := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b strings.Builder
		b.WriteString(`<h1>CSV to XLSX</h1>`)
		if err := notice(&b, "notice", d.Notice); err != nil {
			return err
		}
		if err := notice(&b, "notice", d.Error); err != nil {
			return err
		}
		fmt.Fprintf(&b, `<form method="post" action="/convert" enctype="multipart/form-data">`+
			`<label>Password <input type="password" name="password" autocomplete="current-password" required></label>`+
			`<label>CSV files <input type="file" name="files" accept=".csv,.tsv,.txt,text/csv" multiple required></label>`+
			`<small>Up to %d files, %s each.</small>`+
			`<button type="submit">Convert</button></form>`,
			d.MaxFiles, humanBytes(d.MaxFileSize))
		_, err := io.WriteString(w, b.String())
		return err
	})
	return Layout("CSV to XLSX", body)
}

// ResultPage renders one card per uploaded file plus the bulk download.
func ResultPage(batch *core.BatchResult) templ.Component {
	body := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b strings.Builder
		b.WriteString(`<h1>Conversion results</h1>`)

		if batch.Archive != nil {
			fmt.Fprintf(&b, `<p>%s</p>`, downloadLink(batch.Archive, "Download all as ZIP"))
		}
		if batch.ArchiveErr != nil {
			if err := notice(&b, "notice", core.FormatUserError(batch.ArchiveErr)); err != nil {
				return err
			}
		}

		for _, f := range batch.Files {
			fileCard(&b, f)
		}
		b.WriteString(`<p><a href="/">Convert more files</a></p>`)

		_, err := io.WriteString(w, b.String())
		return err
	})
	return Layout("Conversion results", body)
}

// ErrorPage renders a request-level failure.
func ErrorPage(msg core.UserMessage) templ.Component {
	body := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w, `<h1>Something went wrong</h1><p class="notice">%s</p><p>%s</p>`+
			`<p><small>Code: %s</small></p><p><a href="/">Back</a></p>`,
			templ.EscapeString(msg.Message), templ.EscapeString(msg.Action), templ.EscapeString(msg.Code))
		return err
	})
	return Layout("Error", body)
}

func fileCard(b *strings.Builder, f core.FileOutcome) {
	fmt.Fprintf(b, `<section class="card"><h2>%s</h2>`, templ.EscapeString(f.Name))

	switch f.Status {
	case core.StatusSkipped:
		_ = notice(b, "notice warn", "Skipped: "+core.FormatUserError(f.Err))
	case core.StatusFailed:
		_ = notice(b, "notice", "Failed: "+core.FormatUserError(f.Err)+" "+f.Err.Detail())
	}

	if f.Preview != nil {
		fmt.Fprintf(b, `<div class="stats"><span>Rows: %d</span><span>Columns: %d</span>`+
			`<span>Missing values: %d</span><span>Delimiter: %s</span></div>`,
			f.Summary.RowCount, f.Summary.ColumnCount, f.Summary.MissingCount,
			templ.EscapeString(f.DelimiterName()))
		previewTable(b, f.Preview)
	}

	if f.Result != nil {
		fmt.Fprintf(b, `<p>%s</p>`, downloadLink(f.Result, "Download "+f.Result.FileName))
	}
	b.WriteString(`</section>`)
}

func previewTable(b *strings.Builder, t *core.Table) {
	b.WriteString(`<table><thead><tr>`)
	for _, c := range t.Columns {
		fmt.Fprintf(b, `<th>%s</th>`, templ.EscapeString(c))
	}
	b.WriteString(`</tr></thead><tbody>`)
	for _, row := range t.Rows {
		b.WriteString(`<tr>`)
		for _, v := range row {
			fmt.Fprintf(b, `<td>%s</td>`, templ.EscapeString(v))
		}
		b.WriteString(`</tr>`)
	}
	b.WriteString(`</tbody></table>`)
}

// downloadLink embeds the file in a data URI so nothing is kept server side.
func downloadLink(res *core.ConversionResult, label string) string {
	return fmt.Sprintf(`<a class="button" download="%s" href="data:%s;base64,%s">%s</a>`,
		templ.EscapeString(res.FileName),
		res.MimeType,
		base64.StdEncoding.EncodeToString(res.Data),
		templ.EscapeString(label))
}

func humanBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
