package graver_test

import (
	"bytes"
	"fmt"
	"math"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gravertext/graver"
	"github.com/gravertext/graver/tactic"
)

// The test model is a miniature drawing document: a Drawing owns shared line
// styles and walls, walls own doors, doors link back up to their wall and
// drawing and reference a style by name.

type Material int

const (
	MaterialWood Material = iota
	MaterialSteel
	MaterialGlass
)

type Shape interface{ Area() float64 }

type Circle struct{ Radius float64 }

func (c *Circle) Area() float64 { return math.Pi * c.Radius * c.Radius }

type Box struct{ W, H float64 }

func (b *Box) Area() float64 { return b.W * b.H }

type LineStyle struct {
	Name  string
	Width float64
}

func (s *LineStyle) GraverName() string { return s.Name }

type Drawing struct {
	Name   string
	Styles []*LineStyle
	Walls  []*Wall
	Extras map[string]int
}

func (d *Drawing) ResolveGraverName(name string) (any, bool) {
	for _, s := range d.Styles {
		if s.Name == name {
			return s, true
		}
	}
	return nil, false
}

type Wall struct {
	Changed  graver.Signal
	Width    float64
	Height   float64
	Material Material
	Doors    []*Door
}

type Door struct {
	Parent *Wall
	Doc    *Drawing
	Name   string
	Width  int
	Tags   []string
	Style  *LineStyle
	Cut    Shape
}

type Group struct {
	Label    string
	Children []*Group
	Items    []*Item
}

type Item struct {
	Owner *Group
	Label string
}

type RGB struct{ R, G, B uint8 }

type Paint struct {
	Label string
	Color RGB
}

type Stamp struct {
	Id    uuid.UUID
	At    time.Time
	Blob  []byte
	Label string
}

const manifestText = `
; test model tactics
Drawing
  Name Styles Walls Extras
LineStyle
  Name Width
Wall
  Width Height Material Doors
Door
  ^Parent ^Doc Name Width Tags Style.Name Cut
Circle
  Radius
Box
  W H
Group
  Label Children Items
Item
  ^Owner Label
Paint
  Label Color
Stamp
  Id At Blob Label
Gadget
  A
`

func newManifest(t *testing.T) *tactic.Manifest {
	t.Helper()
	m, err := tactic.Parse([]byte(manifestText))
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func newTestRegistry(t *testing.T) *graver.Registry {
	t.Helper()
	reg := graver.NewRegistry(newManifest(t))
	if err := reg.RegisterEnum(Material(0), map[int64]string{
		0: "Wood", 1: "Steel", 2: "Glass",
	}); err != nil {
		t.Fatal(err)
	}
	err := reg.RegisterDomainPrim(RGB{},
		func(w *graver.ValueWriter, v any) error {
			c := v.(RGB)
			w.String(fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B))
			return nil
		},
		func(r *graver.ValueReader) (any, error) {
			s, err := r.String()
			if err != nil {
				return nil, err
			}
			var c RGB
			if _, err := fmt.Sscanf(s, "#%02x%02x%02x", &c.R, &c.G, &c.B); err != nil {
				return nil, fmt.Errorf("bad color %q: %w", s, err)
			}
			return c, nil
		})
	if err != nil {
		t.Fatal(err)
	}
	if err := reg.Register(&Drawing{}, &Wall{}, &Door{}, &LineStyle{}, &Circle{}, &Box{}, &Group{}, &Item{}, &Paint{}, &Stamp{}); err != nil {
		t.Fatal(err)
	}
	return reg
}

func newTestDrawing() *Drawing {
	thin := &LineStyle{Name: "thin", Width: 0.25}
	doc := &Drawing{
		Name:   "plan",
		Styles: []*LineStyle{thin},
		Extras: map[string]int{"rooms": 4, "floors": 2},
	}
	wall := &Wall{Width: 240, Height: 120, Material: MaterialSteel}
	door := &Door{
		Name:  "Door",
		Width: 36,
		Tags:  []string{"A", "B"},
		Style: thin,
		Cut:   &Circle{Radius: 0.5},
	}
	wall.Doors = append(wall.Doors, door)
	doc.Walls = append(doc.Walls, wall)
	return doc
}

func TestRoundTrip(t *testing.T) {
	reg := newTestRegistry(t)
	data, err := reg.WriteToBytes(newTestDrawing())
	if err != nil {
		t.Fatal(err)
	}
	got, err := graver.FromBytes[*Drawing](reg, data)
	if err != nil {
		t.Fatalf("read back: %v\ndocument:\n%s", err, data)
	}

	if got.Name != "plan" {
		t.Errorf("Name = %q", got.Name)
	}
	if !reflect.DeepEqual(got.Extras, map[string]int{"rooms": 4, "floors": 2}) {
		t.Errorf("Extras = %v", got.Extras)
	}
	if len(got.Walls) != 1 {
		t.Fatalf("Walls = %v", got.Walls)
	}
	w := got.Walls[0]
	if w.Width != 240 || w.Height != 120 || w.Material != MaterialSteel {
		t.Errorf("wall = %+v", w)
	}
	if len(w.Doors) != 1 {
		t.Fatalf("Doors = %v", w.Doors)
	}
	d := w.Doors[0]
	if d.Name != "Door" || d.Width != 36 {
		t.Errorf("door = %+v", d)
	}
	if !reflect.DeepEqual(d.Tags, []string{"A", "B"}) {
		t.Errorf("Tags = %v", d.Tags)
	}

	// Uplinks point at the enclosing instances, not copies.
	if d.Parent != w {
		t.Error("door.Parent is not the enclosing wall")
	}
	if d.Doc != got {
		t.Error("door.Doc is not the enclosing drawing")
	}
	// The by-name reference resolves to the drawing's own style instance.
	if len(got.Styles) != 1 || d.Style != got.Styles[0] {
		t.Error("door.Style is not the shared style instance")
	}

	c, ok := d.Cut.(*Circle)
	if !ok || c.Radius != 0.5 {
		t.Errorf("Cut = %#v", d.Cut)
	}
}

func TestWrittenForm(t *testing.T) {
	reg := newTestRegistry(t)
	data, err := reg.WriteToBytes(newTestDrawing())
	if err != nil {
		t.Fatal(err)
	}
	s := string(data)

	if !strings.Contains(s, "(Circle)") {
		t.Errorf("polymorphic field not tagged:\n%s", s)
	}
	if !strings.Contains(s, "Style: thin") {
		t.Errorf("by-name field not written as a name token:\n%s", s)
	}
	for _, absent := range []string{"Parent", "Doc:", "Changed"} {
		if strings.Contains(s, absent) {
			t.Errorf("%q must not appear in the document:\n%s", absent, s)
		}
	}
}

func TestSkipValuesOmitted(t *testing.T) {
	reg := newTestRegistry(t)
	data, err := reg.WriteToBytes(&Wall{Width: 240})
	if err != nil {
		t.Fatal(err)
	}
	s := string(data)
	for _, absent := range []string{"Height", "Material", "Doors"} {
		if strings.Contains(s, absent) {
			t.Errorf("default-valued field %q written:\n%s", absent, s)
		}
	}
	got, err := graver.FromBytes[*Wall](reg, data)
	if err != nil {
		t.Fatal(err)
	}
	if got.Height != 0 || got.Material != MaterialWood || got.Doors != nil {
		t.Errorf("read back %+v", got)
	}
}

func TestDeterministicOutput(t *testing.T) {
	reg := newTestRegistry(t)
	a, err := reg.WriteToBytes(newTestDrawing())
	if err != nil {
		t.Fatal(err)
	}
	b, err := reg.WriteToBytes(newTestDrawing())
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(a, b) {
		t.Fatalf("two writes differ:\n%s\n---\n%s", a, b)
	}
}

func TestCompactOption(t *testing.T) {
	reg := newTestRegistry(t)
	data, err := reg.WriteToBytes(newTestDrawing(), graver.WriteOpt{Compact: true})
	if err != nil {
		t.Fatal(err)
	}
	got, err := graver.FromBytes[*Drawing](reg, data)
	if err != nil {
		t.Fatal(err)
	}
	if got.Walls[0].Doors[0].Width != 36 {
		t.Errorf("compact round trip lost data: %+v", got)
	}
}

func TestPolymorphicRoot(t *testing.T) {
	reg := newTestRegistry(t)
	data, err := graver.WriteToBytesAs[Shape](reg, &Circle{Radius: 2})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(strings.TrimSpace(string(data)), "(Circle)") {
		t.Fatalf("root override missing:\n%s", data)
	}
	got, err := graver.FromBytes[Shape](reg, data)
	if err != nil {
		t.Fatal(err)
	}
	c, ok := got.(*Circle)
	if !ok || c.Radius != 2 {
		t.Fatalf("got %#v", got)
	}
}

func TestUplinkPicksNearestAncestor(t *testing.T) {
	reg := newTestRegistry(t)
	outer := &Group{Label: "outer"}
	inner := &Group{Label: "inner", Items: []*Item{{Label: "leaf"}}}
	outer.Children = append(outer.Children, inner)

	data, err := reg.WriteToBytes(outer)
	if err != nil {
		t.Fatal(err)
	}
	got, err := graver.FromBytes[*Group](reg, data)
	if err != nil {
		t.Fatal(err)
	}
	leaf := got.Children[0].Items[0]
	if leaf.Owner != got.Children[0] {
		t.Errorf("leaf.Owner = %+v, want the inner group", leaf.Owner)
	}
}

func TestUplinkNilAtDocumentRoot(t *testing.T) {
	reg := newTestRegistry(t)
	got, err := graver.FromBytes[*Item](reg, []byte("{ Label: solo }"))
	if err != nil {
		t.Fatal(err)
	}
	if got.Owner != nil {
		t.Errorf("Owner = %+v, want nil with no ancestors", got.Owner)
	}
	if got.Label != "solo" {
		t.Errorf("Label = %q", got.Label)
	}
}

func TestDomainPrimitiveRoundTrip(t *testing.T) {
	reg := newTestRegistry(t)
	data, err := reg.WriteToBytes(&Paint{Label: "trim", Color: RGB{R: 255, G: 128, B: 8}})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "Color: \"#ff8008\"") && !strings.Contains(string(data), "Color: #ff8008") {
		t.Fatalf("domain primitive form:\n%s", data)
	}
	got, err := graver.FromBytes[*Paint](reg, data)
	if err != nil {
		t.Fatal(err)
	}
	if got.Color != (RGB{R: 255, G: 128, B: 8}) {
		t.Errorf("Color = %+v", got.Color)
	}
}

func TestBuiltinPrimitiveRoundTrip(t *testing.T) {
	reg := newTestRegistry(t)
	in := &Stamp{
		Id:    uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8"),
		At:    time.Date(2026, 8, 27, 10, 30, 0, 0, time.UTC),
		Blob:  []byte{0xde, 0xad, 0xbe, 0xef},
		Label: "now",
	}
	data, err := reg.WriteToBytes(in)
	if err != nil {
		t.Fatal(err)
	}
	s := string(data)
	if !strings.Contains(s, `At: "2026-08-27T10:30:00Z"`) {
		t.Errorf("timestamp form:\n%s", s)
	}
	if !strings.Contains(s, "Blob: deadbeef") {
		t.Errorf("hex form:\n%s", s)
	}
	got, err := graver.FromBytes[*Stamp](reg, data)
	if err != nil {
		t.Fatalf("read back: %v\ndocument:\n%s", err, data)
	}
	if got.Id != in.Id {
		t.Errorf("Id = %s", got.Id)
	}
	if !got.At.Equal(in.At) {
		t.Errorf("At = %v, want %v", got.At, in.At)
	}
	if !bytes.Equal(got.Blob, in.Blob) {
		t.Errorf("Blob = %x", got.Blob)
	}
	if got.Label != "now" {
		t.Errorf("Label = %q", got.Label)
	}
}

func TestGlobalNamedObjectFallback(t *testing.T) {
	reg := newTestRegistry(t)
	def := &LineStyle{Name: "default", Width: 1}
	if err := reg.RegisterNamedObject("default", def); err != nil {
		t.Fatal(err)
	}
	got, err := graver.FromBytes[*Door](reg, []byte("{ Name: D Style: default }"))
	if err != nil {
		t.Fatal(err)
	}
	if got.Style != def {
		t.Errorf("Style = %+v, want the registered object", got.Style)
	}
}

func TestRegisteredLookupWinsOverAncestors(t *testing.T) {
	reg := newTestRegistry(t)
	canned := &LineStyle{Name: "L1", Width: 3}
	err := reg.RegisterLookup((*LineStyle)(nil), func(scope *graver.Scope, name string) (any, bool) {
		if name == "L1" {
			return canned, true
		}
		return nil, false
	})
	if err != nil {
		t.Fatal(err)
	}
	got, err := graver.FromBytes[*Door](reg, []byte("{ Name: D Style: L1 }"))
	if err != nil {
		t.Fatal(err)
	}
	if got.Style != canned {
		t.Errorf("Style = %+v, want the lookup result", got.Style)
	}
}

func TestRegisterAsRenamesTypeTag(t *testing.T) {
	reg := graver.NewRegistry(newManifest(t))
	if err := reg.RegisterAs("Disc", &Circle{}); err != nil {
		t.Fatal(err)
	}
	data, err := graver.WriteToBytesAs[Shape](reg, &Circle{Radius: 2})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "(Disc)") {
		t.Fatalf("renamed tag missing:\n%s", data)
	}
	got, err := graver.FromBytes[Shape](reg, data)
	if err != nil {
		t.Fatal(err)
	}
	if c, ok := got.(*Circle); !ok || c.Radius != 2 {
		t.Fatalf("got %#v", got)
	}
}

func TestCommentPreamble(t *testing.T) {
	reg := newTestRegistry(t)
	data, err := reg.WriteToBytes(&Wall{Width: 1}, graver.WriteOpt{Comment: "floor plan v4"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "; floor plan v4\n") {
		t.Fatalf("preamble missing:\n%s", data)
	}
	if _, err := graver.FromBytes[*Wall](reg, data); err != nil {
		t.Fatalf("commented document must read back: %v", err)
	}
}
