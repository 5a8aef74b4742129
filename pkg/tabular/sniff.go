package tabular

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/rosterhq/roster/internal/logger"
	"github.com/rosterhq/roster/pkg/objstore"
)

// sniffWindow bounds how many bytes of the object are fetched for layout
// detection. 64 KiB comfortably covers twenty lines of any realistic export.
const sniffWindow = 64 * 1024

// maxSniffLines bounds how many lines are considered when locating the
// header row.
const maxSniffLines = 20

// Layout is the detection result persisted on an upload job so that
// processing, and any later resume, tokenize the file identically.
type Layout struct {
	// HeaderRow is the zero-based physical line holding the column names.
	HeaderRow int

	// Delimiter is the detected field separator (',' or '\t').
	Delimiter byte

	// Headers are the decoded column names. Positions that decode to the
	// empty string are named Column_{i} (1-based).
	Headers []string
}

// Sniff detects the header row, delimiter and column names of a stored
// file by examining its first sniffWindow bytes.
//
// expected carries the header names the caller believes are present
// (typically the values of a field mapping); the header row is the lowest
// line containing any of them as a substring, quoted or not. Without a
// match the first line is assumed, which covers files whose headers the
// caller did not predict.
func Sniff(ctx context.Context, src objstore.Store, key string, expected []string) (Layout, error) {
	rc, err := src.GetRange(ctx, key, 0, sniffWindow-1)
	if err != nil {
		return Layout{}, fmt.Errorf("failed to open sniff window for %s: %w", key, err)
	}
	defer rc.Close()

	buf, err := io.ReadAll(io.LimitReader(rc, sniffWindow))
	if err != nil {
		return Layout{}, fmt.Errorf("failed to read sniff window for %s: %w", key, err)
	}
	if len(buf) == 0 {
		return Layout{}, fmt.Errorf("cannot detect layout of %s: object is empty", key)
	}

	lines := splitSniffLines(buf)

	row, matched := headerRow(lines, expected)
	if !matched && len(expected) > 0 {
		logger.Warn("No line matched the supplied header names, assuming first line",
			"key", key,
			logger.KeyHeaderRow, row,
		)
	}

	delim := DetectDelimiter(lines[row])

	headers, err := headerFields(lines[row], delim)
	if err != nil {
		return Layout{}, fmt.Errorf("failed to tokenize header line %d of %s: %w", row, key, err)
	}

	return Layout{HeaderRow: row, Delimiter: delim, Headers: headers}, nil
}

// splitSniffLines splits the sniff window into at most maxSniffLines
// physical lines. A final fragment cut mid-line by the window boundary is
// kept: it is still useful for substring and separator counting.
func splitSniffLines(buf []byte) []string {
	raw := bytes.Split(buf, []byte{'\n'})
	n := min(len(raw), maxSniffLines)

	lines := make([]string, 0, n)
	for _, b := range raw[:n] {
		lines = append(lines, string(bytes.TrimSuffix(b, []byte{'\r'})))
	}
	return lines
}

// headerRow returns the lowest-indexed line containing any non-empty
// expected value as a substring. Substring matching covers both bare and
// double-quoted header cells.
func headerRow(lines, expected []string) (int, bool) {
	values := make([]string, 0, len(expected))
	for _, v := range expected {
		if v = strings.TrimSpace(v); v != "" {
			values = append(values, v)
		}
	}
	if len(values) == 0 {
		return 0, false
	}

	for i, line := range lines {
		for _, v := range values {
			if strings.Contains(line, v) {
				return i, true
			}
		}
	}
	return 0, false
}

// DetectDelimiter chooses between tab and comma by counting separators
// outside double-quoted regions. Tabs win at 1.5x commas or more, which
// tolerates TSV exports whose text columns contain prose commas. A line
// with neither separator is treated as single-column CSV.
func DetectDelimiter(line string) byte {
	var tabs, commas int
	inQuotes := false
	for i := 0; i < len(line); i++ {
		switch line[i] {
		case '"':
			inQuotes = !inQuotes
		case '\t':
			if !inQuotes {
				tabs++
			}
		case ',':
			if !inQuotes {
				commas++
			}
		}
	}

	if tabs > 0 && 2*tabs >= 3*commas {
		return '\t'
	}
	return ','
}

// headerFields tokenizes the header line with the record parser, so header
// cells get the same trim/de-quote/de-BOM treatment as data cells, and
// names the unnamed positions.
func headerFields(line string, delim byte) ([]string, error) {
	p := NewParser(strings.NewReader(line), Options{Delimiter: delim})
	fields, err := p.Next()
	if err != nil {
		return nil, err
	}

	headers := make([]string, len(fields))
	for i, f := range fields {
		if f == "" {
			f = fmt.Sprintf("Column_%d", i+1)
		}
		headers[i] = f
	}
	return headers, nil
}
