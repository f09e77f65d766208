package graver

import (
	"sort"
	"strconv"

	"github.com/gravertext/graver/internal/token"
)

// TypeTagKey is the reserved key a loose parse stores a '(TypeName)' override
// under, since generic maps have nowhere else to keep it.
const TypeTagKey = "(type)"

// ParseLoose reads a document without a registry or manifest, producing
// generic values: map[string]any for classes, []any for lists,
// map[string]any keyed by the written key token for dictionaries, and
// bool/int64/float64/string for scalar tokens. Tooling (the CLI, the JSON
// bridge) uses it to inspect documents whose types are not linked in.
func ParseLoose(data []byte) (any, error) {
	st := &readState{r: token.NewReader(data)}
	v, err := st.readLoose()
	if err != nil {
		return nil, st.wrap(err)
	}
	st.r.SkipSpace()
	if !st.r.EOF() {
		return nil, st.issueHere(CodeParseError, "trailing content after document root")
	}
	return v, nil
}

func (st *readState) readLoose() (any, error) {
	c, ok := st.r.Peek()
	if !ok {
		return nil, st.issueHere(CodeUnterminated, "unexpected end of input")
	}
	typeTag := ""
	if c == '(' {
		_, _ = st.r.Next()
		name, err := st.r.Name()
		if err != nil {
			return nil, err
		}
		if err := st.r.Expect(')'); err != nil {
			return nil, err
		}
		typeTag = string(name)
		if c, ok = st.r.Peek(); !ok {
			return nil, st.issueHere(CodeUnterminated, "value missing after type tag")
		}
	}
	switch c {
	case '{':
		return st.readLooseObject(typeTag)
	case '[':
		return st.readLooseList()
	case '<':
		return st.readLooseDict()
	case '"':
		s, err := st.r.String()
		if err != nil {
			return nil, err
		}
		return withTag(typeTag, s), nil
	default:
		return st.readLooseScalar(typeTag)
	}
}

func (st *readState) readLooseObject(typeTag string) (any, error) {
	if err := st.r.Expect('{'); err != nil {
		return nil, err
	}
	out := make(map[string]any)
	if typeTag != "" {
		out[TypeTagKey] = typeTag
	}
	for {
		c, ok := st.r.Peek()
		if !ok {
			return nil, st.issueHere(CodeUnterminated, "unterminated class body")
		}
		if c == '}' {
			_, _ = st.r.Next()
			return out, nil
		}
		at := st.r.Offset()
		name, err := st.r.Name()
		if err != nil {
			return nil, err
		}
		if err := st.r.Expect(':'); err != nil {
			return nil, err
		}
		v, err := st.readLoose()
		if err != nil {
			return nil, err
		}
		key := string(name)
		if _, dup := out[key]; dup {
			return nil, st.issueAt(CodeDuplicateKey, at, "field "+key+" appears twice")
		}
		out[key] = v
	}
}

func (st *readState) readLooseList() (any, error) {
	if err := st.r.Expect('['); err != nil {
		return nil, err
	}
	out := []any{}
	for {
		c, ok := st.r.Peek()
		if !ok {
			return nil, st.issueHere(CodeUnterminated, "unterminated list")
		}
		if c == ']' {
			_, _ = st.r.Next()
			return out, nil
		}
		v, err := st.readLoose()
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
}

func (st *readState) readLooseDict() (any, error) {
	if err := st.r.Expect('<'); err != nil {
		return nil, err
	}
	out := make(map[string]any)
	for {
		c, ok := st.r.Peek()
		if !ok {
			return nil, st.issueHere(CodeUnterminated, "unterminated dictionary")
		}
		if c == '>' {
			_, _ = st.r.Next()
			return out, nil
		}
		at := st.r.Offset()
		k, err := st.r.String()
		if err != nil {
			return nil, err
		}
		if err := st.r.Expect('='); err != nil {
			return nil, err
		}
		v, err := st.readLoose()
		if err != nil {
			return nil, err
		}
		if _, dup := out[k]; dup {
			return nil, st.issueAt(CodeDuplicateKey, at, "duplicate dictionary key "+k)
		}
		out[k] = v
	}
}

// readLooseScalar classifies a bare token by shape: bool words, then integer,
// then float, falling back to string.
func (st *readState) readLooseScalar(typeTag string) (any, error) {
	tok, err := st.r.Name()
	if err != nil {
		return nil, err
	}
	s := string(tok)
	switch s {
	case "true":
		return withTag(typeTag, true), nil
	case "false":
		return withTag(typeTag, false), nil
	}
	if n, perr := strconv.ParseInt(s, 10, 64); perr == nil {
		return withTag(typeTag, n), nil
	}
	if f, perr := strconv.ParseFloat(s, 64); perr == nil {
		return withTag(typeTag, f), nil
	}
	return withTag(typeTag, s), nil
}

// withTag wraps a scalar in a one-entry map when a type tag was present, so
// the tag survives a generic round trip.
func withTag(typeTag string, v any) any {
	if typeTag == "" {
		return v
	}
	return map[string]any{TypeTagKey: typeTag, "value": v}
}

// looseWrite emits generic values back into document form, the inverse of
// ParseLoose up to formatting.
func looseWrite(v any) ([]byte, error) {
	w := token.NewWriter()
	if err := looseEmit(w, v); err != nil {
		return nil, err
	}
	w.Newline()
	return token.Indent(w.Bytes()), nil
}

func looseEmit(w *token.Writer, v any) error {
	switch t := v.(type) {
	case bool:
		w.Bool(t)
	case int64:
		w.Int(t)
	case int:
		w.Int(int64(t))
	case float64:
		w.Float(t, 64)
	case string:
		w.String(t)
	case []any:
		w.Byte('[')
		w.Newline()
		for _, e := range t {
			if err := looseEmit(w, e); err != nil {
				return err
			}
			w.Newline()
		}
		w.Byte(']')
	case map[string]any:
		// A tagged scalar wrapper turns back into '(Tag) value'.
		if tag, ok := t[TypeTagKey].(string); ok {
			if val, scalar := t["value"]; scalar && len(t) == 2 {
				w.Byte('(')
				w.RawString(tag)
				w.Byte(')')
				w.Space()
				return looseEmit(w, val)
			}
			w.Byte('(')
			w.RawString(tag)
			w.Byte(')')
		}
		w.Byte('{')
		w.Newline()
		keys := make([]string, 0, len(t))
		for k := range t {
			if k != TypeTagKey {
				keys = append(keys, k)
			}
		}
		sort.Strings(keys)
		for _, k := range keys {
			if !token.BareSafeString(k) {
				return issuef(CodeUnsupportedType, "key %q cannot be a field label", k)
			}
			w.Label(k)
			if err := looseEmit(w, t[k]); err != nil {
				return err
			}
			w.Newline()
		}
		w.Byte('}')
	case nil:
		return singleIssue(CodeUnsupportedType, "null has no document representation")
	default:
		return issuef(CodeUnsupportedType, "cannot emit %T loosely", v)
	}
	return nil
}
