// Package tactic loads the per-field serialization policy manifest that
// drives descriptor construction. The manifest is a flat mapping from
// "TypeName.FieldName" to a tactic and a declaration rank; the rank fixes
// field emission order deterministically across runs.
//
// The plain-text form is line oriented: a line with no leading whitespace
// names the current type, indented lines carry whitespace-separated field
// tokens. A token's sigil selects the tactic:
//
//	-Field      Skip    field is excluded from serialization entirely
//	^Field      Uplink  never written; filled from the ancestor stack on read
//	Field.Name  ByName  written as the referenced value's name string
//	Field       Std     ordinary nested serialization
//
// ';' comment lines and blank lines are ignored.
package tactic

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Tactic is the per-field serialization policy.
type Tactic int

const (
	Std Tactic = iota
	Skip
	ByName
	Uplink
)

// String returns the manifest-facing name of the tactic.
func (t Tactic) String() string {
	switch t {
	case Std:
		return "std"
	case Skip:
		return "skip"
	case ByName:
		return "byname"
	case Uplink:
		return "uplink"
	default:
		return fmt.Sprintf("tactic(%d)", int(t))
	}
}

// Entry is one manifest declaration.
type Entry struct {
	Tactic Tactic
	Rank   int // Declaration order within the owning type, starting at 1.
}

// Manifest is the loaded, read-only tactic table.
type Manifest struct {
	entries map[string]Entry
}

// Lookup resolves "typeName.fieldName". The second result is false when the
// field is not declared; callers treat that as an incomplete-schema failure.
func (m *Manifest) Lookup(typeName, fieldName string) (Entry, bool) {
	if m == nil {
		return Entry{}, false
	}
	e, ok := m.entries[typeName+"."+fieldName]
	return e, ok
}

// Len reports the number of declared fields.
func (m *Manifest) Len() int {
	if m == nil {
		return 0
	}
	return len(m.entries)
}

// Keys returns all declared "Type.Field" keys in sorted order, for tooling.
func (m *Manifest) Keys() []string {
	ks := make([]string, 0, len(m.entries))
	for k := range m.entries {
		ks = append(ks, k)
	}
	sort.Strings(ks)
	return ks
}

// Parse reads the plain-text manifest form.
func Parse(data []byte) (*Manifest, error) {
	m := &Manifest{entries: make(map[string]Entry)}
	curType := ""
	rank := 0
	for ln, line := range strings.Split(string(data), "\n") {
		indented := strings.HasPrefix(line, " ") || strings.HasPrefix(line, "\t")
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, ";") {
			continue
		}
		if !indented {
			curType = trimmed
			rank = 0
			continue
		}
		if curType == "" {
			return nil, fmt.Errorf("tactic: line %d: field tokens before any type name", ln+1)
		}
		for _, tok := range strings.Fields(trimmed) {
			name, tac, err := classifyToken(tok)
			if err != nil {
				return nil, fmt.Errorf("tactic: line %d: %w", ln+1, err)
			}
			rank++
			if err := m.add(curType, name, Entry{Tactic: tac, Rank: rank}); err != nil {
				return nil, fmt.Errorf("tactic: line %d: %w", ln+1, err)
			}
		}
	}
	return m, nil
}

// ParseYAML reads the YAML authoring form: a mapping from type name to a list
// of field tokens carrying the same sigils as the text form.
func ParseYAML(data []byte) (*Manifest, error) {
	var doc map[string][]string
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("tactic: %w", err)
	}
	m := &Manifest{entries: make(map[string]Entry)}
	// Deterministic over map iteration for stable duplicate reporting.
	types := make([]string, 0, len(doc))
	for t := range doc {
		types = append(types, t)
	}
	sort.Strings(types)
	for _, typeName := range types {
		for i, tok := range doc[typeName] {
			name, tac, err := classifyToken(strings.TrimSpace(tok))
			if err != nil {
				return nil, fmt.Errorf("tactic: type %s: %w", typeName, err)
			}
			if err := m.add(typeName, name, Entry{Tactic: tac, Rank: i + 1}); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}

// Load reads a manifest file, dispatching on the extension: .yaml/.yml use
// the YAML form, anything else the plain-text form.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("tactic: %w", err)
	}
	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		return ParseYAML(data)
	}
	return Parse(data)
}

// Merge combines manifests into one. A field declared in more than one input
// is an error, the same rule as a duplicate within a single file.
func Merge(ms ...*Manifest) (*Manifest, error) {
	out := &Manifest{entries: make(map[string]Entry)}
	for _, m := range ms {
		if m == nil {
			continue
		}
		for _, k := range m.Keys() {
			if _, dup := out.entries[k]; dup {
				return nil, fmt.Errorf("tactic: duplicate declaration of %s across manifests", k)
			}
			out.entries[k] = m.entries[k]
		}
	}
	return out, nil
}

func (m *Manifest) add(typeName, fieldName string, e Entry) error {
	key := typeName + "." + fieldName
	if _, dup := m.entries[key]; dup {
		return fmt.Errorf("tactic: duplicate declaration of %s", key)
	}
	m.entries[key] = e
	return nil
}

func classifyToken(tok string) (name string, t Tactic, err error) {
	switch {
	case tok == "" || tok == "-" || tok == "^":
		return "", Std, fmt.Errorf("empty field token %q", tok)
	case strings.HasPrefix(tok, "-"):
		return tok[1:], Skip, nil
	case strings.HasPrefix(tok, "^"):
		return tok[1:], Uplink, nil
	case strings.HasSuffix(tok, ".Name"):
		name = strings.TrimSuffix(tok, ".Name")
		if name == "" {
			return "", Std, fmt.Errorf("empty field token %q", tok)
		}
		return name, ByName, nil
	default:
		if strings.ContainsAny(tok, ".-^") {
			return "", Std, fmt.Errorf("malformed field token %q", tok)
		}
		return tok, Std, nil
	}
}
