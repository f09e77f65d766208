package graver

import (
	"bytes"
	"reflect"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/gravertext/graver/internal/token"
	"github.com/gravertext/graver/tactic"
)

// WriteOpt bundles write-time options. The last option passed wins.
type WriteOpt struct {
	// Comment becomes a '; ' prefixed preamble at the top of the document.
	Comment string
	// Compact skips the readability reformat pass.
	Compact bool
}

// WriteToBytes serializes v into the graver text form. The nominal type of
// the document root is v's runtime type.
func (r *Registry) WriteToBytes(v any, opts ...WriteOpt) ([]byte, error) {
	var opt WriteOpt
	if len(opts) > 0 {
		opt = opts[len(opts)-1]
	}
	if v == nil {
		return nil, singleIssue(CodeUnsupportedType, "cannot write nil")
	}
	rv := reflect.ValueOf(v)
	return r.writeRoot(rv, rv.Type(), opt)
}

func (r *Registry) writeRoot(rv reflect.Value, nominal reflect.Type, opt WriteOpt) ([]byte, error) {
	w := token.NewWriter()
	if opt.Comment != "" {
		w.Comment(opt.Comment)
	}
	st := &writeState{reg: r, w: w}
	if err := st.write(rv, nominal); err != nil {
		return nil, err
	}
	w.Newline()
	if opt.Compact {
		return w.Bytes(), nil
	}
	return token.Indent(w.Bytes()), nil
}

type writeState struct {
	reg *Registry
	w   *token.Writer
}

// write emits one value against the statically expected (nominal) type,
// tagging the actual runtime type when the two differ.
func (st *writeState) write(v reflect.Value, nominal reflect.Type) error {
	if v.Kind() == reflect.Interface {
		if v.IsNil() {
			return singleIssue(CodeUnsupportedType, "cannot write a nil polymorphic value")
		}
		v = v.Elem()
	}
	actual := v.Type()
	desc, err := st.reg.descriptorOf(actual)
	if err != nil {
		return err
	}
	if actual != nominal {
		st.w.Byte('(')
		st.w.RawString(desc.Name)
		st.w.Byte(')')
	}
	switch desc.Kind {
	case KindPrimitive:
		return st.writePrimitive(v)
	case KindDomainPrim:
		return desc.dom.write(&ValueWriter{w: st.w}, v.Interface())
	case KindEnum:
		return st.writeEnum(v, desc)
	case KindList:
		return st.writeList(v, desc)
	case KindDict:
		return st.writeDict(v, desc)
	case KindStruct:
		return st.writeObject(v, desc)
	case KindClass:
		if v.IsNil() {
			return singleIssue(CodeUnsupportedType, "cannot write a nil "+desc.Name)
		}
		return st.writeObject(v.Elem(), desc)
	case KindPolyRoot, KindInvalid:
		return issuef(CodeUnsupportedType, "cannot write value of kind %s (%s)", desc.Kind, actual)
	default:
		return issuef(CodeUnsupportedType, "unhandled kind %s", desc.Kind)
	}
}

// writeObject emits '{' Label Value ... '}' over the struct value sv in rank
// order. Fields equal to their skip value are omitted; Uplink fields are
// never written, the reader recomputes them from context.
func (st *writeState) writeObject(sv reflect.Value, desc *TypeDescriptor) error {
	st.w.Byte('{')
	st.w.Newline()
	for i := range desc.Fields {
		f := &desc.Fields[i]
		if f.Tactic == tactic.Uplink {
			continue
		}
		fv := sv.FieldByIndex(f.index)
		if fv.IsZero() {
			continue
		}
		if f.Tactic == tactic.ByName {
			nm, ok := fv.Interface().(Namer)
			if !ok {
				return issuef(CodeUnresolvedName, "%s.%s is ByName but %s does not implement Namer", desc.Name, f.Name, fv.Type())
			}
			st.w.Label(f.Name)
			st.w.String(nm.GraverName())
			st.w.Newline()
			continue
		}
		st.w.Label(f.Name)
		if err := st.write(fv, f.Type); err != nil {
			return err
		}
		st.w.Newline()
	}
	st.w.Byte('}')
	return nil
}

// writeList emits '[' Value ... ']'. Scalar element kinds take a fast path
// that skips the nominal-vs-actual dispatch, one less indirection per
// element.
func (st *writeState) writeList(v reflect.Value, desc *TypeDescriptor) error {
	st.w.Byte('[')
	st.w.Newline()
	n := v.Len()
	elemDesc, err := st.reg.descriptorOf(desc.Elem)
	if err != nil {
		return err
	}
	if isScalarKind(elemDesc.Kind) {
		for i := 0; i < n; i++ {
			if err := st.writeScalar(v.Index(i), elemDesc); err != nil {
				return err
			}
			st.w.Newline()
		}
	} else {
		for i := 0; i < n; i++ {
			if err := st.write(v.Index(i), desc.Elem); err != nil {
				return err
			}
			st.w.Newline()
		}
	}
	st.w.Byte(']')
	return nil
}

// writeDict emits '<' Key '=' Value ... '>'. Map iteration order is not
// deterministic in Go, so pairs are sorted by the formatted key token.
func (st *writeState) writeDict(v reflect.Value, desc *TypeDescriptor) error {
	st.w.Byte('<')
	st.w.Newline()
	type kv struct {
		tok []byte
		key reflect.Value
	}
	keys := make([]kv, 0, v.Len())
	for _, k := range v.MapKeys() {
		scratch := token.NewWriter()
		sub := &writeState{reg: st.reg, w: scratch}
		if err := sub.write(k, desc.Key); err != nil {
			return err
		}
		keys = append(keys, kv{tok: append([]byte(nil), scratch.Bytes()...), key: k})
	}
	sort.Slice(keys, func(i, j int) bool { return bytes.Compare(keys[i].tok, keys[j].tok) < 0 })
	for _, e := range keys {
		st.w.Raw(e.tok)
		st.w.RawString(" = ")
		if err := st.write(v.MapIndex(e.key), desc.Elem); err != nil {
			return err
		}
		st.w.Newline()
	}
	st.w.Byte('>')
	return nil
}

func isScalarKind(k Kind) bool {
	switch k {
	case KindPrimitive, KindDomainPrim, KindEnum:
		return true
	default:
		return false
	}
}

func (st *writeState) writeScalar(v reflect.Value, desc *TypeDescriptor) error {
	switch desc.Kind {
	case KindPrimitive:
		return st.writePrimitive(v)
	case KindDomainPrim:
		return desc.dom.write(&ValueWriter{w: st.w}, v.Interface())
	case KindEnum:
		return st.writeEnum(v, desc)
	default:
		return issuef(CodeUnsupportedType, "writeScalar on kind %s", desc.Kind)
	}
}

func (st *writeState) writeEnum(v reflect.Value, desc *TypeDescriptor) error {
	var ord int64
	switch v.Kind() {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		ord = int64(v.Uint())
	default:
		ord = v.Int()
	}
	name, ok := desc.enum.names[ord]
	if !ok {
		return issuef(CodeInvalidToken, "enum %s has no name for value %d", desc.Name, ord)
	}
	st.w.RawString(name)
	return nil
}

func (st *writeState) writePrimitive(v reflect.Value) error {
	t := v.Type()
	switch t {
	case uuidType:
		st.w.UUID(v.Interface().(uuid.UUID))
		return nil
	case timeType:
		st.w.Time(v.Interface().(time.Time))
		return nil
	}
	switch v.Kind() {
	case reflect.Bool:
		st.w.Bool(v.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		st.w.Int(v.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		st.w.Uint(v.Uint())
	case reflect.Float32:
		st.w.Float(v.Float(), 32)
	case reflect.Float64:
		st.w.Float(v.Float(), 64)
	case reflect.String:
		st.w.String(v.String())
	case reflect.Slice:
		st.w.Hex(v.Bytes())
	default:
		return issuef(CodeUnsupportedType, "not a primitive: %s", t)
	}
	return nil
}
