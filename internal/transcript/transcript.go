// Package transcript reads the flat "file(locator): code" listing produced by
// the find tool.
package transcript

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/phobologic/impactscan/internal/model"
	"github.com/phobologic/impactscan/internal/textenc"
)

// BannerMarker identifies tool-generated banner lines.
const BannerMarker = "Searching for"

const maxLineBytes = 4 * 1024 * 1024

// Parse splits one transcript line into file, locator and code. The locator
// is a balanced parenthesis group, optionally followed by a balanced bracket
// group; both may nest. It returns ErrInvalidFormat for anything else.
func Parse(line string) (model.SourceLine, error) {
	s := strings.TrimSpace(line)

	open := strings.IndexByte(s, '(')
	if open <= 0 {
		return model.SourceLine{}, model.ErrInvalidFormat
	}
	file := strings.TrimSpace(s[:open])
	if file == "" {
		return model.SourceLine{}, model.ErrInvalidFormat
	}

	closeParen := matchClose(s, open, '(', ')')
	if closeParen < 0 {
		return model.SourceLine{}, model.ErrInvalidFormat
	}
	locator := strings.TrimSpace(s[open+1 : closeParen])
	if locator == "" {
		return model.SourceLine{}, model.ErrInvalidFormat
	}

	pos := closeParen + 1
	if pos < len(s) && s[pos] == '[' {
		closeBracket := matchClose(s, pos, '[', ']')
		if closeBracket < 0 {
			return model.SourceLine{}, model.ErrInvalidFormat
		}
		if sub := strings.TrimSpace(s[pos+1 : closeBracket]); sub != "" {
			locator += "[" + sub + "]"
		}
		pos = closeBracket + 1
	}

	for pos < len(s) && (s[pos] == ' ' || s[pos] == '\t') {
		pos++
	}
	if pos >= len(s) || s[pos] != ':' {
		return model.SourceLine{}, model.ErrInvalidFormat
	}

	return model.SourceLine{
		File:    file,
		Locator: locator,
		Code:    strings.TrimSpace(s[pos+1:]),
	}, nil
}

// matchClose returns the index of the bracket closing the one at s[start],
// or -1 if it is never closed.
func matchClose(s string, start int, open, close byte) int {
	depth := 0
	for i := start; i < len(s); i++ {
		switch s[i] {
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// IsNoise reports whether a raw line is a banner or blank line.
func IsNoise(line string) bool {
	return strings.TrimSpace(line) == "" || strings.Contains(line, BannerMarker)
}

// Record is one non-noise transcript line. Err is ErrInvalidFormat when the
// line could not be parsed.
type Record struct {
	LineNo int
	Raw    string
	Line   model.SourceLine
	Err    error
}

// Reader yields transcript records in input order.
type Reader struct {
	sc      *bufio.Scanner
	lineNo  int
	skipped int
}

// NewReader decodes r with the named charset and returns a Reader over it.
func NewReader(r io.Reader, encoding string) (*Reader, error) {
	dec, err := textenc.NewReader(r, encoding)
	if err != nil {
		return nil, err
	}
	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 64*1024), maxLineBytes)
	return &Reader{sc: sc}, nil
}

// Next returns the next non-noise record. ok is false at end of input.
func (r *Reader) Next() (rec Record, ok bool) {
	for r.sc.Scan() {
		r.lineNo++
		raw := strings.TrimRight(r.sc.Text(), "\r")
		if IsNoise(raw) {
			r.skipped++
			continue
		}
		line, err := Parse(raw)
		return Record{LineNo: r.lineNo, Raw: raw, Line: line, Err: err}, true
	}
	return Record{}, false
}

// Err returns the first read error, if any.
func (r *Reader) Err() error {
	if err := r.sc.Err(); err != nil {
		return fmt.Errorf("reading transcript line %d: %w", r.lineNo+1, err)
	}
	return nil
}

// LinesRead returns the number of physical lines consumed so far.
func (r *Reader) LinesRead() int { return r.lineNo }

// Skipped returns the number of banner and blank lines consumed so far.
func (r *Reader) Skipped() int { return r.skipped }
