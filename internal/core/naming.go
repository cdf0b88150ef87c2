package core

import (
	"fmt"
	"path"
	"strings"
	"time"
)

// TimestampLayout is the token appended to output names.
const TimestampLayout = "20060102_150405"

// OutputName derives the XLSX name for source: base name, extension
// replaced, timestamp appended. seq > 1 adds a "_seq" suffix.
func OutputName(source string, ts time.Time, seq int) string {
	base := baseName(source)
	if ext := path.Ext(base); ext != "" && ext != base {
		base = strings.TrimSuffix(base, ext)
	}
	if base == "" {
		base = "converted"
	}

	name := base + "_" + ts.Format(TimestampLayout)
	if seq > 1 {
		name = fmt.Sprintf("%s_%d", name, seq)
	}
	return name + ".xlsx"
}

// ArchiveName is the name of the bulk download for a batch started at ts.
func ArchiveName(ts time.Time) string {
	return "converted_files_" + ts.Format(TimestampLayout) + ".zip"
}

func baseName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = path.Base(strings.TrimSpace(name))
	if name == "." || name == "/" {
		return ""
	}
	return name
}

// Namer issues unique output names within one batch. Not safe for
// concurrent use.
type Namer struct {
	ts     time.Time
	counts map[string]int
	issued map[string]struct{}
}

// NewNamer returns a Namer stamping names with ts.
func NewNamer(ts time.Time) *Namer {
	return &Namer{
		ts:     ts,
		counts: make(map[string]int),
		issued: make(map[string]struct{}),
	}
}

// Next returns the output name for source. Repeats of the same derived
// name get _2, _3, ... in call order.
func (n *Namer) Next(source string) string {
	key := OutputName(source, n.ts, 0)
	for {
		n.counts[key]++
		name := OutputName(source, n.ts, n.counts[key])
		if _, taken := n.issued[name]; !taken {
			n.issued[name] = struct{}{}
			return name
		}
	}
}
