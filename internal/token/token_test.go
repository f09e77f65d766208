package token

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestWriterPrimitives(t *testing.T) {
	w := NewWriter()
	w.Bool(true)
	w.Space()
	w.Int(-42)
	w.Space()
	w.Uint(7)
	w.Space()
	w.Float(1.5, 64)
	w.Space()
	w.Hex([]byte{0xde, 0xad})
	got := string(w.Bytes())
	want := "true -42 7 1.5 dead"
	if got != want {
		t.Fatalf("wrote %q, want %q", got, want)
	}
}

func TestWriterStringQuoting(t *testing.T) {
	cases := []struct {
		in, out string
	}{
		{"Door", "Door"},
		{"door-42_x", "door-42_x"},
		{"two words", `"two words"`},
		{"", `""`},
		{"a:b", `"a:b"`},
		{"list[0]", `"list[0]"`},
		{"läge", `"läge"`},
		{"semi;colon", `"semi;colon"`},
		// No escape mechanism: embedded double quotes downgrade to single.
		{`say "hi"`, `"say 'hi'"`},
	}
	for _, c := range cases {
		w := NewWriter()
		w.String(c.in)
		if got := string(w.Bytes()); got != c.out {
			t.Errorf("String(%q) = %q, want %q", c.in, got, c.out)
		}
	}
}

func TestWriterUUIDAndTime(t *testing.T) {
	u := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	w := NewWriter()
	w.UUID(u)
	if got := string(w.Bytes()); got != u.String() {
		t.Fatalf("UUID wrote %q, want %q", got, u.String())
	}

	ts := time.Date(2026, 8, 27, 10, 30, 0, 0, time.UTC)
	w = NewWriter()
	w.Time(ts)
	// Timestamps contain ':', so they must be written quoted to survive the
	// bare-token stop set.
	if got := string(w.Bytes()); got != `"2026-08-27T10:30:00Z"` {
		t.Fatalf("Time wrote %q", got)
	}
	r := NewReader(w.Bytes())
	back, err := r.Time()
	if err != nil {
		t.Fatal(err)
	}
	if !back.Equal(ts) {
		t.Fatalf("time round trip: %v != %v", back, ts)
	}

	r = NewReader([]byte(`"not-a-time"`))
	if _, err := r.Time(); err == nil {
		t.Fatal("invalid timestamp must fail")
	}
}

func TestReaderScalars(t *testing.T) {
	r := NewReader([]byte("  true -42 7 1.5 dead \"two words\" bare"))
	if v, err := r.Bool(); err != nil || !v {
		t.Fatalf("Bool: %v %v", v, err)
	}
	if v, err := r.Int(64); err != nil || v != -42 {
		t.Fatalf("Int: %v %v", v, err)
	}
	if v, err := r.Uint(64); err != nil || v != 7 {
		t.Fatalf("Uint: %v %v", v, err)
	}
	if v, err := r.Float(64); err != nil || v != 1.5 {
		t.Fatalf("Float: %v %v", v, err)
	}
	if v, err := r.Hex(); err != nil || len(v) != 2 || v[0] != 0xde || v[1] != 0xad {
		t.Fatalf("Hex: %x %v", v, err)
	}
	if v, err := r.String(); err != nil || v != "two words" {
		t.Fatalf("quoted String: %q %v", v, err)
	}
	if v, err := r.String(); err != nil || v != "bare" {
		t.Fatalf("bare String: %q %v", v, err)
	}
	r.SkipSpace()
	if !r.EOF() {
		t.Fatal("expected EOF")
	}
}

func TestReaderSkipsComments(t *testing.T) {
	r := NewReader([]byte("; preamble line\n; another\n42"))
	v, err := r.Int(64)
	if err != nil || v != 42 {
		t.Fatalf("Int after comments: %v %v", v, err)
	}
}

func TestReaderIntOverflow(t *testing.T) {
	r := NewReader([]byte("300"))
	if _, err := r.Int(8); err == nil {
		t.Fatal("300 must overflow int8")
	}
}

func TestReaderUnterminatedString(t *testing.T) {
	r := NewReader([]byte(`"never closed`))
	if _, err := r.String(); err == nil {
		t.Fatal("unterminated string must fail")
	}
}

func TestReaderName(t *testing.T) {
	r := NewReader([]byte("Width: 36"))
	name, err := r.Name()
	if err != nil || string(name) != "Width" {
		t.Fatalf("Name: %q %v", name, err)
	}
	if err := r.Expect(':'); err != nil {
		t.Fatal(err)
	}
}

func TestLineCol(t *testing.T) {
	src := []byte("ab\ncd\nef")
	line, col := LineCol(src, 0)
	if line != 1 || col != 1 {
		t.Fatalf("offset 0 -> %d:%d", line, col)
	}
	line, col = LineCol(src, 4)
	if line != 2 || col != 2 {
		t.Fatalf("offset 4 -> %d:%d, want 2:2", line, col)
	}
	line, col = LineCol(src, 6)
	if line != 3 || col != 1 {
		t.Fatalf("offset 6 -> %d:%d, want 3:1", line, col)
	}
}
