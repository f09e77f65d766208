// Package token implements the byte-level grammar of graver documents:
// primitive emitters over a growable buffer, span scanners over a fully
// materialized input, and the readability reformat pass.
//
// Structural characters are { } [ ] < > ( ) : = " and comments run from ';'
// to end of line. Whitespace between tokens is insignificant.
package token

import (
	"encoding/hex"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TimeLayout is the on-wire time format. Times are normalized to UTC.
const TimeLayout = time.RFC3339Nano

// Writer formats primitives directly into a growable byte buffer. All Append*
// style formatting goes through strconv to avoid intermediate string
// allocation; the buffer doubles on overflow.
type Writer struct {
	buf []byte
}

// NewWriter returns a writer with a small initial buffer.
func NewWriter() *Writer {
	return &Writer{buf: make([]byte, 0, 256)}
}

// Bytes returns the written bytes. The slice aliases the internal buffer.
func (w *Writer) Bytes() []byte { return w.buf }

// Len reports the number of bytes written so far.
func (w *Writer) Len() int { return len(w.buf) }

// Byte appends a single byte.
func (w *Writer) Byte(c byte) { w.buf = append(w.buf, c) }

// Raw appends bytes verbatim.
func (w *Writer) Raw(b []byte) { w.buf = append(w.buf, b...) }

// RawString appends a string verbatim, with no quoting decision.
func (w *Writer) RawString(s string) { w.buf = append(w.buf, s...) }

// Newline appends a line break for the reformat pass to work with.
func (w *Writer) Newline() { w.buf = append(w.buf, '\n') }

// Space appends a single separating space.
func (w *Writer) Space() { w.buf = append(w.buf, ' ') }

// Comment writes text as a '; ' prefixed comment block, one marker per line.
// Only valid as a file-leading preamble.
func (w *Writer) Comment(text string) {
	for _, line := range strings.Split(text, "\n") {
		w.buf = append(w.buf, ';', ' ')
		w.buf = append(w.buf, line...)
		w.buf = append(w.buf, '\n')
	}
}

// Label writes a field name followed by the ': ' separator.
func (w *Writer) Label(name string) {
	w.buf = append(w.buf, name...)
	w.buf = append(w.buf, ':', ' ')
}

// Bool writes true or false.
func (w *Writer) Bool(v bool) {
	if v {
		w.buf = append(w.buf, "true"...)
	} else {
		w.buf = append(w.buf, "false"...)
	}
}

// Int writes a signed integer in decimal.
func (w *Writer) Int(v int64) { w.buf = strconv.AppendInt(w.buf, v, 10) }

// Uint writes an unsigned integer in decimal.
func (w *Writer) Uint(v uint64) { w.buf = strconv.AppendUint(w.buf, v, 10) }

// Float writes a float in shortest round-trip form. bitSize is 32 or 64.
func (w *Writer) Float(v float64, bitSize int) {
	w.buf = strconv.AppendFloat(w.buf, v, 'g', -1, bitSize)
}

// UUID writes the canonical hyphenated form without going through a string.
func (w *Writer) UUID(u uuid.UUID) {
	var b [36]byte
	hex.Encode(b[0:8], u[0:4])
	b[8] = '-'
	hex.Encode(b[9:13], u[4:6])
	b[13] = '-'
	hex.Encode(b[14:18], u[6:8])
	b[18] = '-'
	hex.Encode(b[19:23], u[8:10])
	b[23] = '-'
	hex.Encode(b[24:36], u[10:16])
	w.buf = append(w.buf, b[:]...)
}

// Time writes an RFC 3339 timestamp normalized to UTC. The stamp is always
// quoted: ':' is a structural character, so the token cannot stand bare.
func (w *Writer) Time(t time.Time) {
	w.buf = append(w.buf, '"')
	w.buf = t.UTC().AppendFormat(w.buf, TimeLayout)
	w.buf = append(w.buf, '"')
}

// Hex writes raw bytes as a lowercase hex token.
func (w *Writer) Hex(b []byte) {
	n := len(w.buf)
	w.buf = append(w.buf, make([]byte, hex.EncodedLen(len(b)))...)
	hex.Encode(w.buf[n:], b)
}

// String writes s bare when every byte is safe, otherwise wrapped in double
// quotes. Embedded double quotes are downgraded to single quotes: the format
// carries no escape sequences, a deliberate compatibility trade-off.
func (w *Writer) String(s string) {
	if !needsQuote(s) {
		w.buf = append(w.buf, s...)
		return
	}
	w.buf = append(w.buf, '"')
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '"' {
			c = '\''
		}
		w.buf = append(w.buf, c)
	}
	w.buf = append(w.buf, '"')
}

// needsQuote reports whether s contains a byte outside the safe printable
// ASCII range or any structural character. Empty strings always quote so they
// survive as a token at all.
func needsQuote(s string) bool {
	if len(s) == 0 {
		return true
	}
	for i := 0; i < len(s); i++ {
		if !bareSafe(s[i]) {
			return true
		}
	}
	return false
}

// BareSafeString reports whether s can stand as an unquoted token. The
// registry uses it to validate enum and type names at registration time.
func BareSafeString(s string) bool { return !needsQuote(s) }

// bareSafe reports whether c may appear in an unquoted token.
func bareSafe(c byte) bool {
	if c <= ' ' || c > '~' {
		return false
	}
	switch c {
	case '\'', '"', ':', '(', '[', '{', '}', ']', ')', '=', '<', '>', ';':
		return false
	}
	return true
}
