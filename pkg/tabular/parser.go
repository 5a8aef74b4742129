// Package tabular provides streaming CSV/TSV parsing and header detection
// for uploaded candidate files.
//
// The parser is a pull-based, byte-oriented tokenizer: callers ask for one
// record at a time, so a multi-gigabyte file is processed with O(row) memory.
// It is deliberately lenient — real-world exports contain stray quotes,
// inconsistent arity and preamble chatter — and leaves arity enforcement to
// the caller.
package tabular

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
)

// DefaultMaxFieldBytes caps a single field unless overridden in Options.
// A field this large almost always means an unterminated quote swallowing
// the rest of the file.
const DefaultMaxFieldBytes = 1 << 20 // 1 MiB

// ErrFieldTooLong is returned when a single field exceeds the configured
// maximum. The stream cannot be trusted past this point.
var ErrFieldTooLong = errors.New("field exceeds maximum length")

// utf8BOM is stripped when present at the very start of the stream.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Tokenizer states.
const (
	stateField         = iota // accumulating an unquoted field
	stateQuoted               // inside a double-quoted region
	stateQuoteInQuoted        // just saw a quote inside a quoted region
)

// Options configures a Parser.
type Options struct {
	// Delimiter is the field separator. Default: ','
	Delimiter byte

	// SkipLeadingLines discards the first N records (quote-aware, so a
	// quoted embedded newline does not count as a boundary). Used to skip
	// preamble, the header line, and already-processed rows on resume.
	SkipLeadingLines int

	// MaxFieldBytes caps a single field. Default: DefaultMaxFieldBytes.
	MaxFieldBytes int
}

// Parser tokenizes a byte stream into records.
//
// Every physical line produces exactly one record with length equal to the
// number of delimiters outside quotes plus one; empty lines produce a
// single-field record containing "". Fields are emitted with surrounding
// ASCII whitespace trimmed, structural quotes stripped, and "" unescaped
// to a literal quote. Not safe for concurrent use.
type Parser struct {
	r     *bufio.Reader
	delim byte

	skip     int
	maxField int

	started bool // BOM check done
	done    bool
}

// NewParser creates a parser over r with the given options.
func NewParser(r io.Reader, opts Options) *Parser {
	if opts.Delimiter == 0 {
		opts.Delimiter = ','
	}
	if opts.MaxFieldBytes <= 0 {
		opts.MaxFieldBytes = DefaultMaxFieldBytes
	}
	return &Parser{
		r:        bufio.NewReaderSize(r, 64*1024),
		delim:    opts.Delimiter,
		skip:     opts.SkipLeadingLines,
		maxField: opts.MaxFieldBytes,
	}
}

// Next returns the next record, or io.EOF when the stream is exhausted.
// Any other error is terminal; the parser must not be used afterwards.
func (p *Parser) Next() ([]string, error) {
	if p.done {
		return nil, io.EOF
	}

	if !p.started {
		p.started = true
		if err := p.stripBOM(); err != nil {
			p.done = true
			return nil, err
		}
	}

	for p.skip > 0 {
		if err := p.skipRecord(); err != nil {
			p.done = true
			return nil, err
		}
		p.skip--
	}

	rec, err := p.readRecord()
	if err != nil {
		p.done = true
		return nil, err
	}
	return rec, nil
}

// stripBOM removes a UTF-8 byte order mark at the start of the stream.
func (p *Parser) stripBOM() error {
	head, err := p.r.Peek(len(utf8BOM))
	if err != nil {
		// Short or empty stream; nothing to strip. io.EOF surfaces from
		// the first read instead.
		return nil //nolint:nilerr
	}
	if bytes.Equal(head, utf8BOM) {
		if _, err := p.r.Discard(len(utf8BOM)); err != nil {
			return err
		}
	}
	return nil
}

// readRecord consumes one record from the stream.
func (p *Parser) readRecord() ([]string, error) {
	var (
		fields []string
		field  bytes.Buffer
		state  = stateField
		read   = false // at least one byte consumed
	)

	emit := func() {
		fields = append(fields, trimASCII(field.String()))
		field.Reset()
	}

	for {
		b, err := p.r.ReadByte()
		if err == io.EOF {
			if !read {
				return nil, io.EOF
			}
			// Stream ended mid-record (no trailing newline)
			emit()
			return fields, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read source stream: %w", err)
		}
		read = true

		switch state {
		case stateField:
			switch b {
			case p.delim:
				emit()
			case '\n':
				emit()
				return fields, nil
			case '\r':
				// CRLF terminates the record; a lone CR is field data
				next, err := p.r.Peek(1)
				if err == nil && next[0] == '\n' {
					_, _ = p.r.Discard(1)
					emit()
					return fields, nil
				}
				field.WriteByte(b)
			case '"':
				state = stateQuoted
			default:
				field.WriteByte(b)
			}

		case stateQuoted:
			switch b {
			case '"':
				state = stateQuoteInQuoted
			default:
				// Delimiters and newlines are literal inside quotes
				field.WriteByte(b)
			}

		case stateQuoteInQuoted:
			switch b {
			case '"':
				// Escaped quote ("" -> ")
				field.WriteByte(b)
				state = stateQuoted
			case p.delim:
				// The previous quote closed the region
				state = stateField
				emit()
			case '\n':
				state = stateField
				emit()
				return fields, nil
			case '\r':
				state = stateField
				next, err := p.r.Peek(1)
				if err == nil && next[0] == '\n' {
					_, _ = p.r.Discard(1)
					emit()
					return fields, nil
				}
				field.WriteByte(b)
			default:
				state = stateField
				field.WriteByte(b)
			}
		}

		if field.Len() > p.maxField {
			return nil, fmt.Errorf("%w (%d bytes)", ErrFieldTooLong, field.Len())
		}
	}
}

// skipRecord consumes one record without materializing fields. It runs the
// same state transitions as readRecord so quoted newlines are honored.
func (p *Parser) skipRecord() error {
	var (
		state = stateField
		size  = 0
	)

	for {
		b, err := p.r.ReadByte()
		if err == io.EOF {
			// Skipping past the end of the stream is not an error; the
			// next read reports io.EOF
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read source stream: %w", err)
		}

		switch state {
		case stateField:
			switch b {
			case p.delim:
				size = 0
			case '\n':
				return nil
			case '\r':
				next, err := p.r.Peek(1)
				if err == nil && next[0] == '\n' {
					_, _ = p.r.Discard(1)
					return nil
				}
				size++
			case '"':
				state = stateQuoted
			default:
				size++
			}

		case stateQuoted:
			if b == '"' {
				state = stateQuoteInQuoted
			} else {
				size++
			}

		case stateQuoteInQuoted:
			switch b {
			case '"':
				state = stateQuoted
				size++
			case p.delim:
				state = stateField
				size = 0
			case '\n':
				return nil
			case '\r':
				state = stateField
				next, err := p.r.Peek(1)
				if err == nil && next[0] == '\n' {
					_, _ = p.r.Discard(1)
					return nil
				}
				size++
			default:
				state = stateField
				size++
			}
		}

		if size > p.maxField {
			return fmt.Errorf("%w (%d bytes)", ErrFieldTooLong, size)
		}
	}
}

// trimASCII trims surrounding ASCII whitespace from a field.
func trimASCII(s string) string {
	start := 0
	for start < len(s) && isASCIISpace(s[start]) {
		start++
	}
	end := len(s)
	for end > start && isASCIISpace(s[end-1]) {
		end--
	}
	return s[start:end]
}

func isASCIISpace(b byte) bool {
	switch b {
	case ' ', '\t', '\n', '\r', '\v', '\f':
		return true
	}
	return false
}
