package graver

import (
	"reflect"
	"sync"

	"github.com/gravertext/graver/internal/bytetab"
	"github.com/gravertext/graver/internal/token"
	"github.com/gravertext/graver/tactic"
)

// Registry is the single explicit home of all serialization state: the tactic
// manifest, the memoized type descriptors, enum and domain-primitive
// registrations, and the global name table. Construct one at startup, share
// it between writers and readers. Registration happens during setup;
// descriptor building afterwards is guarded by a mutex, so concurrent
// first-use from several goroutines is safe.
type Registry struct {
	mu       sync.Mutex
	manifest *tactic.Manifest

	descs     map[reflect.Type]*TypeDescriptor
	byName    *bytetab.Table[*TypeDescriptor] // type name bytes -> descriptor
	typeNames map[reflect.Type]string

	enums   map[reflect.Type]*enumDesc
	doms    map[reflect.Type]*domainPrim
	lookups map[reflect.Type]LookupFunc
	objects map[string]any // globally registered named objects
}

// NewRegistry returns a registry driven by the given tactic manifest.
func NewRegistry(m *tactic.Manifest) *Registry {
	return &Registry{
		manifest:  m,
		descs:     make(map[reflect.Type]*TypeDescriptor),
		byName:    bytetab.New[*TypeDescriptor](),
		typeNames: make(map[reflect.Type]string),
		enums:     make(map[reflect.Type]*enumDesc),
		doms:      make(map[reflect.Type]*domainPrim),
		lookups:   make(map[reflect.Type]LookupFunc),
		objects:   make(map[string]any),
	}
}

// Register builds descriptors for the given sample values' types up front and
// makes them resolvable by name. Every concrete type that can appear behind a
// type override in a document must be registered before reading.
func (r *Registry) Register(vals ...any) error {
	for _, v := range vals {
		if v == nil {
			return singleIssue(CodeUnsupportedType, "cannot register nil")
		}
		if _, err := r.descriptorOf(reflect.TypeOf(v)); err != nil {
			return err
		}
	}
	return nil
}

// RegisterAs registers val's type under an explicit stream name instead of
// the Go type name.
func (r *Registry) RegisterAs(name string, val any) error {
	if val == nil || name == "" {
		return singleIssue(CodeUnsupportedType, "RegisterAs needs a name and a value")
	}
	t := reflect.TypeOf(val)
	r.mu.Lock()
	if _, built := r.descs[t]; built {
		r.mu.Unlock()
		return issuef(CodeDuplicateKey, "type %s already has a descriptor", t)
	}
	r.typeNames[t] = name
	r.mu.Unlock()
	_, err := r.descriptorOf(t)
	return err
}

// RegisterEnum declares a named integer type as an enumeration with the given
// value-to-name table. Enum values appear in documents as bare name tokens.
func (r *Registry) RegisterEnum(val any, names map[int64]string) error {
	t := reflect.TypeOf(val)
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
	default:
		return issuef(CodeUnsupportedType, "enum type %s must have an integer underlying type", t)
	}
	values := make(map[string]int64, len(names))
	for v, n := range names {
		if !token.BareSafeString(n) {
			return issuef(CodeUnsupportedType, "enum %s: name %q is not a bare token", t, n)
		}
		if _, dup := values[n]; dup {
			return issuef(CodeDuplicateKey, "enum %s: name %s mapped twice", t, n)
		}
		values[n] = v
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.enums[t]; dup {
		return issuef(CodeDuplicateKey, "enum %s registered twice", t)
	}
	if _, built := r.descs[t]; built {
		return issuef(CodeDuplicateKey, "type %s already classified, register enums before first use", t)
	}
	r.enums[t] = &enumDesc{names: names, values: values}
	return nil
}

// DomainWriteFunc formats a domain-primitive value into the stream.
type DomainWriteFunc func(w *ValueWriter, v any) error

// DomainReadFunc scans a domain-primitive value back out of the stream.
type DomainReadFunc func(r *ValueReader) (any, error)

type domainPrim struct {
	write DomainWriteFunc
	read  DomainReadFunc
}

// RegisterDomainPrim declares val's type as a self-describing leaf value with
// explicit write and read routines. Registration is explicit; no method-set
// scanning happens.
func (r *Registry) RegisterDomainPrim(val any, write DomainWriteFunc, read DomainReadFunc) error {
	if write == nil || read == nil {
		return singleIssue(CodeUnsupportedType, "domain primitive needs both write and read routines")
	}
	t := reflect.TypeOf(val)
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.doms[t]; dup {
		return issuef(CodeDuplicateKey, "domain primitive %s registered twice", t)
	}
	if _, built := r.descs[t]; built {
		return issuef(CodeDuplicateKey, "type %s already classified, register domain primitives before first use", t)
	}
	r.doms[t] = &domainPrim{write: write, read: read}
	return nil
}

// LookupFunc resolves a by-name reference for one declared type.
type LookupFunc func(scope *Scope, name string) (any, bool)

// RegisterLookup installs the by-name resolution routine consulted when a
// field of val's type is read with the ByName tactic. Without one, resolution
// falls back to scanning the ancestor stack for a NameResolver and then the
// global name table.
func (r *Registry) RegisterLookup(val any, fn LookupFunc) error {
	if fn == nil {
		return singleIssue(CodeUnsupportedType, "nil lookup routine")
	}
	t := reflect.TypeOf(val)
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.lookups[t]; dup {
		return issuef(CodeDuplicateKey, "lookup for %s registered twice", t)
	}
	r.lookups[t] = fn
	return nil
}

// RegisterNamedObject adds obj to the global name table consulted as the last
// resort of by-name resolution (shared styles, default materials and the
// like).
func (r *Registry) RegisterNamedObject(name string, obj any) error {
	if name == "" || obj == nil {
		return singleIssue(CodeUnsupportedType, "RegisterNamedObject needs a name and a value")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.objects[name]; dup {
		return issuef(CodeDuplicateKey, "named object %s registered twice", name)
	}
	r.objects[name] = obj
	return nil
}

// descriptorByName resolves a type-override tag scanned out of a document.
func (r *Registry) descriptorByName(name []byte) (*TypeDescriptor, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byName.TryGetValue(name)
}

func (r *Registry) lookupFor(t reflect.Type) (LookupFunc, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn, ok := r.lookups[t]
	return fn, ok
}

func (r *Registry) namedObject(name string) (any, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.objects[name]
	return v, ok
}

// Namer is implemented by values that can be serialized by name. A field with
// the ByName tactic requires its value to implement Namer at write time.
type Namer interface {
	GraverName() string
}

// NameResolver is implemented by container objects that can resolve by-name
// references for their descendants. During a read, the ancestor stack is
// scanned innermost-first for a NameResolver before the global table is
// consulted.
type NameResolver interface {
	ResolveGraverName(name string) (any, bool)
}

// Scope is the resolution context handed to by-name lookups during a read. It
// exposes the partially constructed ancestor objects, innermost first.
type Scope struct {
	reg       *Registry
	ancestors []reflect.Value // outermost first internally
}

// Ancestors returns the objects currently under construction, innermost
// first. Entries are pointers to partially read objects; their remaining
// fields may still be zero.
func (s *Scope) Ancestors() []any {
	out := make([]any, 0, len(s.ancestors))
	for i := len(s.ancestors) - 1; i >= 0; i-- {
		out = append(out, s.ancestors[i].Interface())
	}
	return out
}

// NamedObject consults the registry's global name table.
func (s *Scope) NamedObject(name string) (any, bool) {
	return s.reg.namedObject(name)
}

// resolve runs the default by-name resolution order: per-type lookup routine,
// then ancestor NameResolvers innermost-first, then the global table. The
// result must be assignable to want.
func (s *Scope) resolve(want reflect.Type, name string) (reflect.Value, bool) {
	if fn, ok := s.reg.lookupFor(want); ok {
		if v, found := fn(s, name); found {
			rv := reflect.ValueOf(v)
			if rv.IsValid() && rv.Type().AssignableTo(want) {
				return rv, true
			}
		}
		return reflect.Value{}, false
	}
	for i := len(s.ancestors) - 1; i >= 0; i-- {
		res, ok := s.ancestors[i].Interface().(NameResolver)
		if !ok {
			continue
		}
		v, found := res.ResolveGraverName(name)
		if !found {
			continue
		}
		rv := reflect.ValueOf(v)
		if rv.IsValid() && rv.Type().AssignableTo(want) {
			return rv, true
		}
	}
	if v, ok := s.reg.namedObject(name); ok {
		rv := reflect.ValueOf(v)
		if rv.IsValid() && rv.Type().AssignableTo(want) {
			return rv, true
		}
	}
	return reflect.Value{}, false
}
