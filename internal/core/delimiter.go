package core

import (
	"log/slog"
	"strings"
)

// DefaultSniffSize is how many leading bytes DetectDelimiter inspects.
const DefaultSniffSize = 2048

// DetectDelimiter guesses the delimiter of data from its first
// DefaultSniffSize bytes. It never fails; ',' is the fallback.
func DetectDelimiter(data []byte) rune {
	return detectDelimiter(data, DefaultSniffSize)
}

func detectDelimiter(data []byte, sniff int) (delim rune) {
	defer func() {
		if r := recover(); r != nil {
			slog.Warn("delimiter detection panicked, using comma", "panic", r)
			delim = ','
		}
	}()

	if sniff <= 0 {
		sniff = DefaultSniffSize
	}
	truncated := len(data) > sniff
	if truncated {
		data = data[:sniff]
	}

	records := splitRecords(lossyText(data), truncated)
	if len(records) < 2 {
		return ','
	}

	best, bestCount := ',', 0
	for _, c := range Candidates {
		n, ok := consistentCount(records, c)
		if ok && n > bestCount {
			best, bestCount = c, n
		}
	}
	return best
}

// consistentCount returns the per-record count of c when it is the same,
// non-zero, in every record.
func consistentCount(records []string, c rune) (int, bool) {
	want := -1
	for _, rec := range records {
		n := countOutsideQuotes(rec, c)
		if n == 0 {
			return 0, false
		}
		if want >= 0 && n != want {
			return 0, false
		}
		want = n
	}
	return want, true
}

// splitRecords splits text into records on newlines outside double quotes.
// Blank records are dropped. When partial is set the last record is
// assumed cut off by the sample boundary and discarded.
func splitRecords(text string, partial bool) []string {
	var (
		records []string
		cur     strings.Builder
		inQuote bool
	)
	flush := func() {
		rec := strings.TrimRight(cur.String(), "\r")
		if strings.TrimSpace(rec) != "" {
			records = append(records, rec)
		}
		cur.Reset()
	}

	for _, r := range text {
		switch {
		case r == '"':
			inQuote = !inQuote
			cur.WriteRune(r)
		case r == '\n' && !inQuote:
			flush()
		default:
			cur.WriteRune(r)
		}
	}

	tail := cur.String()
	if !partial && strings.TrimSpace(tail) != "" {
		flush()
	}
	return records
}

func countOutsideQuotes(rec string, c rune) int {
	n := 0
	inQuote := false
	for _, r := range rec {
		switch {
		case r == '"':
			inQuote = !inQuote
		case r == c && !inQuote:
			n++
		}
	}
	return n
}

// DelimiterName returns a printable name for a delimiter.
func DelimiterName(r rune) string {
	switch r {
	case ',':
		return "comma"
	case ';':
		return "semicolon"
	case '\t':
		return "tab"
	case '|':
		return "pipe"
	case 0:
		return ""
	default:
		return string(r)
	}
}
