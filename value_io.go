package graver

import (
	"time"

	"github.com/google/uuid"
	"github.com/gravertext/graver/internal/token"
)

// ValueWriter is the primitive-emission surface handed to domain-primitive
// write routines. It forwards to the engine's token writer.
type ValueWriter struct {
	w *token.Writer
}

func (v *ValueWriter) Bool(b bool)      { v.w.Bool(b) }
func (v *ValueWriter) Int(n int64)      { v.w.Int(n) }
func (v *ValueWriter) Uint(n uint64)    { v.w.Uint(n) }
func (v *ValueWriter) Float(f float64)  { v.w.Float(f, 64) }
func (v *ValueWriter) String(s string)  { v.w.String(s) }
func (v *ValueWriter) UUID(u uuid.UUID) { v.w.UUID(u) }
func (v *ValueWriter) Time(t time.Time) { v.w.Time(t) }
func (v *ValueWriter) Hex(b []byte)     { v.w.Hex(b) }

// ValueReader is the primitive-scanning surface handed to domain-primitive
// read routines.
type ValueReader struct {
	r *token.Reader
}

func (v *ValueReader) Bool() (bool, error)      { return v.r.Bool() }
func (v *ValueReader) Int() (int64, error)      { return v.r.Int(64) }
func (v *ValueReader) Uint() (uint64, error)    { return v.r.Uint(64) }
func (v *ValueReader) Float() (float64, error)  { return v.r.Float(64) }
func (v *ValueReader) String() (string, error)  { return v.r.String() }
func (v *ValueReader) UUID() (uuid.UUID, error) { return v.r.UUID() }
func (v *ValueReader) Time() (time.Time, error) { return v.r.Time() }
func (v *ValueReader) Hex() ([]byte, error)     { return v.r.Hex() }
