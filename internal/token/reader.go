package token

import (
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// ScanError reports a byte-level scan failure with the offset it occurred at.
// Callers translate the offset to line/column via Reader.LineCol.
type ScanError struct {
	Offset int
	Msg    string
}

func (e *ScanError) Error() string {
	return fmt.Sprintf("token: %s at offset %d", e.Msg, e.Offset)
}

// Reader scans primitives out of a fully materialized input. It never decodes
// to an intermediate wide representation; sub-slices of the input feed
// strconv directly.
type Reader struct {
	src []byte
	pos int
}

// NewReader wraps the whole input.
func NewReader(src []byte) *Reader {
	return &Reader{src: src}
}

// Offset reports the current cursor position.
func (r *Reader) Offset() int { return r.pos }

// EOF reports whether the cursor is past the last byte.
func (r *Reader) EOF() bool { return r.pos >= len(r.src) }

func (r *Reader) errf(format string, args ...any) *ScanError {
	return &ScanError{Offset: r.pos, Msg: fmt.Sprintf(format, args...)}
}

// SkipSpace advances over insignificant whitespace and ';' comments.
func (r *Reader) SkipSpace() {
	for r.pos < len(r.src) {
		c := r.src[r.pos]
		switch {
		case c == ' ' || c == '\t' || c == '\r' || c == '\n' || c == '\f':
			r.pos++
		case c == ';':
			for r.pos < len(r.src) && r.src[r.pos] != '\n' {
				r.pos++
			}
		default:
			return
		}
	}
}

// Peek returns the byte under the cursor after skipping insignificant input.
func (r *Reader) Peek() (byte, bool) {
	r.SkipSpace()
	if r.EOF() {
		return 0, false
	}
	return r.src[r.pos], true
}

// Next consumes and returns the next significant byte.
func (r *Reader) Next() (byte, error) {
	c, ok := r.Peek()
	if !ok {
		return 0, r.errf("unexpected end of input")
	}
	r.pos++
	return c, nil
}

// Expect consumes the next significant byte and fails unless it equals want.
func (r *Reader) Expect(want byte) error {
	c, ok := r.Peek()
	if !ok {
		return r.errf("unexpected end of input, expected %q", want)
	}
	if c != want {
		return r.errf("expected %q, found %q", want, c)
	}
	r.pos++
	return nil
}

// bare consumes a run of bare-safe bytes and returns the sub-slice of the
// input. No allocation happens here.
func (r *Reader) bare() ([]byte, error) {
	r.SkipSpace()
	start := r.pos
	for r.pos < len(r.src) && bareSafe(r.src[r.pos]) {
		r.pos++
	}
	if r.pos == start {
		if r.EOF() {
			return nil, r.errf("unexpected end of input")
		}
		return nil, r.errf("unexpected character %q", r.src[r.pos])
	}
	return r.src[start:r.pos], nil
}

// Name scans a bare identifier token (field or type name) and returns the
// underlying input bytes.
func (r *Reader) Name() ([]byte, error) {
	return r.bare()
}

// Bool scans true or false.
func (r *Reader) Bool() (bool, error) {
	tok, err := r.bare()
	if err != nil {
		return false, err
	}
	switch string(tok) {
	case "true":
		return true, nil
	case "false":
		return false, nil
	}
	return false, &ScanError{Offset: r.pos - len(tok), Msg: fmt.Sprintf("invalid bool %q", tok)}
}

// Int scans a signed decimal integer of the given bit size.
func (r *Reader) Int(bitSize int) (int64, error) {
	tok, err := r.bare()
	if err != nil {
		return 0, err
	}
	v, perr := strconv.ParseInt(string(tok), 10, bitSize)
	if perr != nil {
		return 0, &ScanError{Offset: r.pos - len(tok), Msg: fmt.Sprintf("invalid integer %q", tok)}
	}
	return v, nil
}

// Uint scans an unsigned decimal integer of the given bit size.
func (r *Reader) Uint(bitSize int) (uint64, error) {
	tok, err := r.bare()
	if err != nil {
		return 0, err
	}
	v, perr := strconv.ParseUint(string(tok), 10, bitSize)
	if perr != nil {
		return 0, &ScanError{Offset: r.pos - len(tok), Msg: fmt.Sprintf("invalid unsigned integer %q", tok)}
	}
	return v, nil
}

// Float scans a floating point number of the given bit size.
func (r *Reader) Float(bitSize int) (float64, error) {
	tok, err := r.bare()
	if err != nil {
		return 0, err
	}
	v, perr := strconv.ParseFloat(string(tok), bitSize)
	if perr != nil {
		return 0, &ScanError{Offset: r.pos - len(tok), Msg: fmt.Sprintf("invalid number %q", tok)}
	}
	return v, nil
}

// String scans either a quoted string (no escape sequences; the closing quote
// terminates it) or a bare token.
func (r *Reader) String() (string, error) {
	c, ok := r.Peek()
	if !ok {
		return "", r.errf("unexpected end of input")
	}
	if c != '"' {
		tok, err := r.bare()
		if err != nil {
			return "", err
		}
		return string(tok), nil
	}
	r.pos++
	start := r.pos
	for r.pos < len(r.src) {
		if r.src[r.pos] == '"' {
			s := string(r.src[start:r.pos])
			r.pos++
			return s, nil
		}
		r.pos++
	}
	return "", &ScanError{Offset: start - 1, Msg: "unterminated string"}
}

// UUID scans a canonical hyphenated UUID.
func (r *Reader) UUID() (uuid.UUID, error) {
	tok, err := r.bare()
	if err != nil {
		return uuid.UUID{}, err
	}
	u, perr := uuid.ParseBytes(tok)
	if perr != nil {
		return uuid.UUID{}, &ScanError{Offset: r.pos - len(tok), Msg: fmt.Sprintf("invalid uuid %q", tok)}
	}
	return u, nil
}

// Time scans a quoted RFC 3339 timestamp.
func (r *Reader) Time() (time.Time, error) {
	r.SkipSpace()
	at := r.pos
	s, err := r.String()
	if err != nil {
		return time.Time{}, err
	}
	t, perr := time.Parse(TimeLayout, s)
	if perr != nil {
		return time.Time{}, &ScanError{Offset: at, Msg: fmt.Sprintf("invalid time %q", s)}
	}
	return t, nil
}

// Hex scans a lowercase or uppercase hex token into raw bytes.
func (r *Reader) Hex() ([]byte, error) {
	tok, err := r.bare()
	if err != nil {
		return nil, err
	}
	if len(tok)%2 != 0 {
		return nil, &ScanError{Offset: r.pos - len(tok), Msg: "odd-length hex token"}
	}
	out := make([]byte, len(tok)/2)
	for i := 0; i < len(out); i++ {
		hi, ok1 := hexNibble(tok[2*i])
		lo, ok2 := hexNibble(tok[2*i+1])
		if !ok1 || !ok2 {
			return nil, &ScanError{Offset: r.pos - len(tok), Msg: fmt.Sprintf("invalid hex token %q", tok)}
		}
		out[i] = hi<<4 | lo
	}
	return out, nil
}

func hexNibble(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}

// LineCol translates a byte offset into a 1-based line and column.
func (r *Reader) LineCol(offset int) (line, col int) {
	return LineCol(r.src, offset)
}

// LineCol translates a byte offset within src into a 1-based line and column.
func LineCol(src []byte, offset int) (line, col int) {
	if offset > len(src) {
		offset = len(src)
	}
	line, col = 1, 1
	for i := 0; i < offset; i++ {
		if src[i] == '\n' {
			line++
			col = 1
		} else {
			col++
		}
	}
	return line, col
}
