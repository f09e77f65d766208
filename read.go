package graver

import (
	"errors"
	"reflect"

	"github.com/gravertext/graver/internal/token"
	"github.com/gravertext/graver/tactic"
)

// FromBytes reconstructs a T from a graver document. T is the nominal type of
// the document root; a leading type override may substitute any registered
// type assignable to it.
func FromBytes[T any](r *Registry, data []byte) (T, error) {
	var zero T
	nominal := reflect.TypeOf(&zero).Elem()
	v, err := r.readRoot(data, nominal)
	if err != nil {
		return zero, err
	}
	return v.Interface().(T), nil
}

func (r *Registry) readRoot(data []byte, nominal reflect.Type) (reflect.Value, error) {
	st := &readState{reg: r, r: token.NewReader(data)}
	v, err := st.read(nominal)
	if err != nil {
		return reflect.Value{}, st.wrap(err)
	}
	st.r.SkipSpace()
	if !st.r.EOF() {
		return reflect.Value{}, st.issueHere(CodeParseError, "trailing content after document root")
	}
	return v, nil
}

// readState is the per-invocation reader context. ancestors holds the
// partially constructed objects of the current traversal, outermost first; it
// is discarded when the call returns.
type readState struct {
	reg       *Registry
	r         *token.Reader
	ancestors []reflect.Value
}

func (st *readState) wrap(err error) error {
	if err == nil {
		return nil
	}
	if iss, ok := AsIssues(err); ok {
		return iss
	}
	var se *token.ScanError
	if errors.As(err, &se) {
		line, col := st.r.LineCol(se.Offset)
		return Issues{Issue{Code: CodeParseError, Message: se.Msg, Offset: int64(se.Offset), Line: line, Col: col}}
	}
	return Issues{Issue{Code: CodeParseError, Message: err.Error(), Offset: -1}}
}

// issueAt raises an issue with the line/column of the given byte offset.
func (st *readState) issueAt(code string, offset int, msg string) Issues {
	line, col := st.r.LineCol(offset)
	return Issues{Issue{Code: code, Message: msg, Offset: int64(offset), Line: line, Col: col}}
}

func (st *readState) issueHere(code, msg string) Issues {
	return st.issueAt(code, st.r.Offset(), msg)
}

// read consumes one value of the given nominal type, honoring a leading
// '(TypeName)' override.
func (st *readState) read(nominal reflect.Type) (reflect.Value, error) {
	c, ok := st.r.Peek()
	if !ok {
		return reflect.Value{}, st.issueHere(CodeUnterminated, "unexpected end of input")
	}
	var desc *TypeDescriptor
	if c == '(' {
		d, err := st.readOverride(nominal)
		if err != nil {
			return reflect.Value{}, err
		}
		desc = d
	} else {
		d, err := st.reg.descriptorOf(nominal)
		if err != nil {
			return reflect.Value{}, err
		}
		desc = d
	}
	switch desc.Kind {
	case KindPrimitive:
		return st.readPrimitive(desc.Type)
	case KindDomainPrim:
		return st.readDomainPrim(desc)
	case KindEnum:
		return st.readEnum(desc)
	case KindList:
		return st.readList(desc)
	case KindDict:
		return st.readDict(desc)
	case KindStruct:
		ptr, err := st.readObject(desc)
		if err != nil {
			return reflect.Value{}, err
		}
		return ptr.Elem(), nil
	case KindClass:
		return st.readObject(desc)
	case KindPolyRoot:
		return reflect.Value{}, st.issueHere(CodeUnresolvedType, "polymorphic value requires a (TypeName) tag")
	case KindInvalid:
		return reflect.Value{}, st.issueHere(CodeUnsupportedType, "cannot read type "+desc.Type.String())
	default:
		return reflect.Value{}, st.issueHere(CodeUnsupportedType, "unhandled kind "+desc.Kind.String())
	}
}

// readOverride consumes '(TypeName)' and resolves the named descriptor, which
// must describe a type assignable to the nominal one.
func (st *readState) readOverride(nominal reflect.Type) (*TypeDescriptor, error) {
	if err := st.r.Expect('('); err != nil {
		return nil, err
	}
	at := st.r.Offset()
	name, err := st.r.Name()
	if err != nil {
		return nil, err
	}
	if err := st.r.Expect(')'); err != nil {
		return nil, err
	}
	d, ok := st.reg.descriptorByName(name)
	if !ok {
		return nil, st.issueAt(CodeUnresolvedType, at, "unknown type "+string(name))
	}
	if nominal.Kind() != reflect.Interface && d.Type != nominal {
		return nil, st.issueAt(CodeUnresolvedType, at, "type "+string(name)+" does not match expected "+nominal.String())
	}
	if nominal.Kind() == reflect.Interface && !d.Type.AssignableTo(nominal) {
		return nil, st.issueAt(CodeUnresolvedType, at, "type "+string(name)+" is not assignable to "+nominal.String())
	}
	return d, nil
}

// readObject constructs a blank instance, resolves its Uplink fields from the
// ancestor stack, pushes it, reads the '{ field: value }' body, pops it.
func (st *readState) readObject(desc *TypeDescriptor) (reflect.Value, error) {
	ptr := desc.newInstance()
	if err := st.resolveUplinks(ptr, desc); err != nil {
		return reflect.Value{}, err
	}
	st.ancestors = append(st.ancestors, ptr)
	defer func() { st.ancestors = st.ancestors[:len(st.ancestors)-1] }()

	if err := st.r.Expect('{'); err != nil {
		return reflect.Value{}, err
	}
	for {
		c, ok := st.r.Peek()
		if !ok {
			return reflect.Value{}, st.issueHere(CodeUnterminated, "unterminated "+desc.Name+" body")
		}
		if c == '}' {
			_, _ = st.r.Next()
			return ptr, nil
		}
		at := st.r.Offset()
		name, err := st.r.Name()
		if err != nil {
			return reflect.Value{}, err
		}
		f, known := desc.fieldByNameBytes(name)
		if !known {
			return reflect.Value{}, st.issueAt(CodeUnknownField, at, desc.Name+" has no field "+string(name))
		}
		if err := st.r.Expect(':'); err != nil {
			return reflect.Value{}, err
		}
		fv := ptr.Elem().FieldByIndex(f.index)
		switch f.Tactic {
		case tactic.ByName:
			if err := st.readByName(fv, f); err != nil {
				return reflect.Value{}, err
			}
		case tactic.Uplink:
			return reflect.Value{}, st.issueAt(CodeInvalidToken, at, "uplink field "+f.Name+" cannot appear in a document")
		case tactic.Std:
			v, err := st.read(f.Type)
			if err != nil {
				return reflect.Value{}, err
			}
			fv.Set(v)
		default:
			return reflect.Value{}, st.issueAt(CodeInvalidToken, at, "unhandled tactic for field "+f.Name)
		}
	}
}

func (st *readState) readByName(fv reflect.Value, f *FieldDescriptor) error {
	at := st.r.Offset()
	name, err := st.r.String()
	if err != nil {
		return err
	}
	scope := &Scope{reg: st.reg, ancestors: st.ancestors}
	v, ok := scope.resolve(f.Type, name)
	if !ok {
		return st.issueAt(CodeUnresolvedName, at, "no "+f.Type.String()+" named "+name+" in scope")
	}
	fv.Set(v)
	return nil
}

// resolveUplinks fills every Uplink field by scanning the ancestor stack
// innermost-first for the nearest object assignable to the field's declared
// type. A field whose type cannot hold nil fails when no ancestor matches.
func (st *readState) resolveUplinks(ptr reflect.Value, desc *TypeDescriptor) error {
	for i := range desc.Fields {
		f := &desc.Fields[i]
		if f.Tactic != tactic.Uplink {
			continue
		}
		fv := ptr.Elem().FieldByIndex(f.index)
		found := false
		for j := len(st.ancestors) - 1; j >= 0; j-- {
			a := st.ancestors[j]
			if a.Type().AssignableTo(f.Type) {
				fv.Set(a)
				found = true
				break
			}
		}
		if !found && !canBeNil(f.Type) {
			return st.issueHere(CodeUplinkUnresolved, "no ancestor for uplink field "+desc.Name+"."+f.Name)
		}
	}
	return nil
}

func canBeNil(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func:
		return true
	default:
		return false
	}
}

func (st *readState) readList(desc *TypeDescriptor) (reflect.Value, error) {
	if err := st.r.Expect('['); err != nil {
		return reflect.Value{}, err
	}
	isArray := desc.Type.Kind() == reflect.Array
	var out reflect.Value
	if isArray {
		out = reflect.New(desc.Type).Elem()
	} else {
		out = reflect.MakeSlice(desc.Type, 0, 8)
	}
	n := 0
	for {
		c, ok := st.r.Peek()
		if !ok {
			return reflect.Value{}, st.issueHere(CodeUnterminated, "unterminated list")
		}
		if c == ']' {
			_, _ = st.r.Next()
			return out, nil
		}
		ev, err := st.read(desc.Elem)
		if err != nil {
			return reflect.Value{}, err
		}
		if isArray {
			if n >= out.Len() {
				return reflect.Value{}, st.issueHere(CodeParseError, "too many elements for "+desc.Type.String())
			}
			out.Index(n).Set(ev)
		} else {
			out = reflect.Append(out, ev)
		}
		n++
	}
}

func (st *readState) readDict(desc *TypeDescriptor) (reflect.Value, error) {
	if err := st.r.Expect('<'); err != nil {
		return reflect.Value{}, err
	}
	out := reflect.MakeMap(desc.Type)
	for {
		c, ok := st.r.Peek()
		if !ok {
			return reflect.Value{}, st.issueHere(CodeUnterminated, "unterminated dictionary")
		}
		if c == '>' {
			_, _ = st.r.Next()
			return out, nil
		}
		at := st.r.Offset()
		kv, err := st.read(desc.Key)
		if err != nil {
			return reflect.Value{}, err
		}
		if err := st.r.Expect('='); err != nil {
			return reflect.Value{}, err
		}
		vv, err := st.read(desc.Elem)
		if err != nil {
			return reflect.Value{}, err
		}
		if out.MapIndex(kv).IsValid() {
			return reflect.Value{}, st.issueAt(CodeDuplicateKey, at, "duplicate dictionary key")
		}
		out.SetMapIndex(kv, vv)
	}
}

func (st *readState) readEnum(desc *TypeDescriptor) (reflect.Value, error) {
	at := st.r.Offset()
	tok, err := st.r.Name()
	if err != nil {
		return reflect.Value{}, err
	}
	ord, ok := desc.enum.values[string(tok)]
	if !ok {
		return reflect.Value{}, st.issueAt(CodeInvalidToken, at, "enum "+desc.Name+" has no value named "+string(tok))
	}
	rv := reflect.New(desc.Type).Elem()
	switch desc.Type.Kind() {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		rv.SetUint(uint64(ord))
	default:
		rv.SetInt(ord)
	}
	return rv, nil
}

func (st *readState) readDomainPrim(desc *TypeDescriptor) (reflect.Value, error) {
	at := st.r.Offset()
	v, err := desc.dom.read(&ValueReader{r: st.r})
	if err != nil {
		return reflect.Value{}, err
	}
	rv := reflect.ValueOf(v)
	if !rv.IsValid() || !rv.Type().AssignableTo(desc.Type) {
		return reflect.Value{}, st.issueAt(CodeInvalidToken, at, "domain primitive routine for "+desc.Name+" returned the wrong type")
	}
	return rv, nil
}

func (st *readState) readPrimitive(t reflect.Type) (reflect.Value, error) {
	switch t {
	case uuidType:
		u, err := st.r.UUID()
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(u), nil
	case timeType:
		tv, err := st.r.Time()
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(tv), nil
	}
	rv := reflect.New(t).Elem()
	switch t.Kind() {
	case reflect.Bool:
		b, err := st.r.Bool()
		if err != nil {
			return reflect.Value{}, err
		}
		rv.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := st.r.Int(t.Bits())
		if err != nil {
			return reflect.Value{}, err
		}
		rv.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := st.r.Uint(t.Bits())
		if err != nil {
			return reflect.Value{}, err
		}
		rv.SetUint(n)
	case reflect.Float32, reflect.Float64:
		f, err := st.r.Float(t.Bits())
		if err != nil {
			return reflect.Value{}, err
		}
		rv.SetFloat(f)
	case reflect.String:
		s, err := st.r.String()
		if err != nil {
			return reflect.Value{}, err
		}
		rv.SetString(s)
	case reflect.Slice:
		b, err := st.r.Hex()
		if err != nil {
			return reflect.Value{}, err
		}
		rv.SetBytes(b)
	default:
		return reflect.Value{}, st.issueHere(CodeUnsupportedType, "not a primitive: "+t.String())
	}
	return rv, nil
}
