// Package templates renders the HTML pages of the converter.
//
// Components are templ.Components so handlers can serve them through
// templ.Handler like any generated template.
package templates

import (
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"
)

const style = `
body{font-family:system-ui,sans-serif;max-width:60rem;margin:2rem auto;padding:0 1rem;color:#1f2933}
h1{font-size:1.5rem}
form{display:flex;flex-direction:column;gap:.75rem;max-width:28rem}
.notice{padding:.5rem .75rem;border-radius:4px;background:#fdecea;color:#8a1c12}
.warn{background:#fff4e5;color:#7a4b00}
.card{border:1px solid #d9e2ec;border-radius:6px;padding:1rem;margin:1rem 0}
.stats{display:flex;gap:1.5rem;font-size:.9rem;color:#52606d}
table{border-collapse:collapse;font-size:.85rem;margin:.5rem 0;display:block;overflow-x:auto}
th,td{border:1px solid #d9e2ec;padding:.25rem .5rem;text-align:left;white-space:pre}
th{background:#f0f4f8}
a.button{display:inline-block;padding:.4rem .8rem;background:#2f6fed;color:#fff;border-radius:4px;text-decoration:none}
`

// Layout wraps body in the page chrome.
func Layout(title string, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := fmt.Fprintf(w, `<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">`+
			`<meta name="viewport" content="width=device-width, initial-scale=1">`+
			`<title>%s</title><style>%s</style></head><body>`,
			templ.EscapeString(title), style); err != nil {
			return err
		}
		if err := body.Render(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, `</body></html>`)
		return err
	})
}

// notice renders a message box; an empty text renders nothing.
func notice(w io.Writer, class, text string) error {
	if text == "" {
		return nil
	}
	_, err := fmt.Fprintf(w, `<p class="%s" role="alert">%s</p>`, class, templ.EscapeString(text))
	return err
}
