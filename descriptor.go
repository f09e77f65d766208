package graver

import (
	"reflect"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/gravertext/graver/internal/bytetab"
	"github.com/gravertext/graver/tactic"
)

var (
	uuidType   = reflect.TypeOf(uuid.UUID{})
	timeType   = reflect.TypeOf(time.Time{})
	signalType = reflect.TypeOf(Signal{})
)

// FieldDescriptor describes one serializable field of a Struct/Class type.
// Owned exclusively by its parent TypeDescriptor.
type FieldDescriptor struct {
	Name   string // Stream-facing label (tag override applied).
	Tactic tactic.Tactic
	Rank   int          // Manifest declaration order; fixes emission order.
	Type   reflect.Type // Declared field type.

	index []int // reflect index path through embedded ancestors
}

// TypeDescriptor is the immutable runtime description of one type. Instances
// are built lazily on first encounter and memoized per Registry; they are
// never mutated afterwards.
type TypeDescriptor struct {
	Kind Kind
	Type reflect.Type
	Name string

	// Struct/Class only.
	Fields   []FieldDescriptor
	fieldIdx *bytetab.Table[int] // field name bytes -> index into Fields

	// List element / Dictionary key and value types.
	Elem reflect.Type
	Key  reflect.Type

	enum *enumDesc
	dom  *domainPrim
}

// structType returns the underlying struct type (deref for Class).
func (d *TypeDescriptor) structType() reflect.Type {
	if d.Kind == KindClass {
		return d.Type.Elem()
	}
	return d.Type
}

// newInstance constructs a blank addressable instance and returns the pointer
// to it. For Class descriptors the pointer is the value itself.
func (d *TypeDescriptor) newInstance() reflect.Value {
	return reflect.New(d.structType())
}

// fieldByNameBytes resolves a scanned field label without allocating.
func (d *TypeDescriptor) fieldByNameBytes(name []byte) (*FieldDescriptor, bool) {
	i, ok := d.fieldIdx.TryGetValue(name)
	if !ok {
		return nil, false
	}
	return &d.Fields[i], true
}

// fieldValue walks the index path of f within the struct pointed to by ptr.
func (f *FieldDescriptor) fieldValue(ptr reflect.Value) reflect.Value {
	return ptr.Elem().FieldByIndex(f.index)
}

type enumDesc struct {
	names  map[int64]string
	values map[string]int64
}

// classify maps a runtime type onto the closed Kind set. Registered domain
// primitives and enums take precedence over the built-in primitive check
// because their Go representation is itself a primitive-kinded named type.
func (r *Registry) classify(t reflect.Type) Kind {
	if _, ok := r.doms[t]; ok {
		return KindDomainPrim
	}
	if _, ok := r.enums[t]; ok {
		return KindEnum
	}
	if isPrimitiveType(t) {
		return KindPrimitive
	}
	switch t.Kind() {
	case reflect.Slice, reflect.Array:
		return KindList
	case reflect.Map:
		return KindDict
	case reflect.Interface:
		return KindPolyRoot
	case reflect.Pointer:
		if t.Elem().Kind() == reflect.Struct {
			return KindClass
		}
		return KindInvalid
	case reflect.Struct:
		return KindStruct
	default:
		return KindInvalid
	}
}

func isPrimitiveType(t reflect.Type) bool {
	if t == uuidType || t == timeType {
		return true
	}
	switch t.Kind() {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	case reflect.Slice:
		return t.Elem().Kind() == reflect.Uint8 && t.Elem() == reflect.TypeOf(byte(0))
	default:
		return false
	}
}

// descriptorOf returns the memoized descriptor for t, building it on first
// encounter. Concurrent first-use is serialized by the registry mutex; the
// returned descriptor is immutable.
func (r *Registry) descriptorOf(t reflect.Type) (*TypeDescriptor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.descriptorOfLocked(t)
}

func (r *Registry) descriptorOfLocked(t reflect.Type) (*TypeDescriptor, error) {
	if d, ok := r.descs[t]; ok {
		return d, nil
	}
	d, err := r.buildDescriptor(t)
	if err != nil {
		return nil, err
	}
	r.descs[t] = d
	// Make the type resolvable by name for overrides. Lazily built types that
	// were never registered still get a name so the writer can tag them; the
	// reader additionally requires Register for the reverse lookup.
	if d.Name != "" {
		if _, taken := r.byName.TryGetValue([]byte(d.Name)); !taken {
			r.byName.MustAdd([]byte(d.Name), d)
		}
	}
	return d, nil
}

func (r *Registry) buildDescriptor(t reflect.Type) (*TypeDescriptor, error) {
	kind := r.classify(t)
	d := &TypeDescriptor{Kind: kind, Type: t, Name: r.typeNameOf(t)}
	switch kind {
	case KindInvalid:
		return nil, issuef(CodeUnsupportedType, "cannot serialize type %s", t)
	case KindPrimitive, KindPolyRoot:
		return d, nil
	case KindDomainPrim:
		d.dom = r.doms[t]
		return d, nil
	case KindEnum:
		d.enum = r.enums[t]
		return d, nil
	case KindList:
		d.Elem = t.Elem()
		return d, nil
	case KindDict:
		d.Key = t.Key()
		d.Elem = t.Elem()
		return d, nil
	case KindStruct, KindClass:
		if err := r.gatherFields(d); err != nil {
			return nil, err
		}
		return d, nil
	default:
		return nil, issuef(CodeUnsupportedType, "unhandled kind %s for %s", kind, t)
	}
}

// typeNameOf returns the registered override name when present, else the bare
// Go type name (deref once for pointer-to-struct types).
func (r *Registry) typeNameOf(t reflect.Type) string {
	if n, ok := r.typeNames[t]; ok {
		return n
	}
	if t.Kind() == reflect.Pointer {
		return t.Elem().Name()
	}
	return t.Name()
}

// gatherFields walks the struct's ancestry (embedded value structs, base
// first at each level) and resolves every remaining field against the tactic
// manifest. A field the manifest does not declare is an incomplete-schema
// failure: schema drift is caught here, not by silently dropping data.
func (r *Registry) gatherFields(d *TypeDescriptor) error {
	st := d.structType()
	var fields []FieldDescriptor
	var missing Issues
	r.walkFields(st, nil, &fields, &missing)
	if len(missing) > 0 {
		return missing
	}
	sort.SliceStable(fields, func(i, j int) bool { return fields[i].Rank < fields[j].Rank })
	idx := bytetab.New[int]()
	for i, f := range fields {
		if err := idx.Add([]byte(f.Name), i); err != nil {
			return issuef(CodeDuplicateKey, "type %s declares field %s more than once", d.Name, f.Name)
		}
	}
	d.Fields = fields
	d.fieldIdx = idx
	return nil
}

func (r *Registry) walkFields(st reflect.Type, prefix []int, out *[]FieldDescriptor, missing *Issues) {
	ownerName := st.Name()
	for i := 0; i < st.NumField(); i++ {
		sf := st.Field(i)
		index := append(append([]int(nil), prefix...), i)
		if sf.Anonymous && sf.Type.Kind() == reflect.Struct && sf.Type != signalType {
			// Embedded value struct: an ancestor level of its own.
			r.walkFields(sf.Type, index, out, missing)
			continue
		}
		if sf.PkgPath != "" {
			continue // unexported: the reserved internal marker in Go terms
		}
		if sf.Type == signalType || sf.Type == reflect.PointerTo(signalType) {
			continue // notification primitive, never serialized
		}
		name := sf.Name
		if tag, ok := sf.Tag.Lookup("graver"); ok {
			if tag == "-" {
				continue
			}
			if tag != "" {
				name = tag
			}
		}
		entry, ok := r.manifest.Lookup(ownerName, name)
		if !ok {
			*missing = AppendIssues(*missing, Issue{
				Code:    CodeIncompleteSchema,
				Path:    "/" + ownerName + "/" + name,
				Message: "field has no tactic manifest entry",
				Offset:  -1,
			})
			continue
		}
		if entry.Tactic == tactic.Skip {
			continue
		}
		*out = append(*out, FieldDescriptor{
			Name:   name,
			Tactic: entry.Tactic,
			Rank:   entry.Rank,
			Type:   sf.Type,
			index:  index,
		})
	}
}
