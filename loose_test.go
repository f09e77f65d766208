package graver_test

import (
	"testing"

	gojson "github.com/goccy/go-json"
	"github.com/gravertext/graver"
)

func TestParseLoose(t *testing.T) {
	doc := []byte(`{ Name: "Door" Width: 36 Open: true Tags: [ "A" "B" ] Cut: (Circle){ Radius: 0.5 } }`)
	v, err := graver.ParseLoose(doc)
	if err != nil {
		t.Fatal(err)
	}
	m, ok := v.(map[string]any)
	if !ok {
		t.Fatalf("got %T", v)
	}
	if m["Name"] != "Door" || m["Width"] != int64(36) || m["Open"] != true {
		t.Errorf("scalars = %v", m)
	}
	tags, ok := m["Tags"].([]any)
	if !ok || len(tags) != 2 || tags[0] != "A" || tags[1] != "B" {
		t.Errorf("Tags = %v", m["Tags"])
	}
	cut, ok := m["Cut"].(map[string]any)
	if !ok || cut[graver.TypeTagKey] != "Circle" || cut["Radius"] != 0.5 {
		t.Errorf("Cut = %v", m["Cut"])
	}
}

func TestParseLooseDictionary(t *testing.T) {
	v, err := graver.ParseLoose([]byte(`< a = 1 b = "two" >`))
	if err != nil {
		t.Fatal(err)
	}
	m := v.(map[string]any)
	if m["a"] != int64(1) || m["b"] != "two" {
		t.Errorf("dict = %v", m)
	}
}

func TestParseLooseDuplicateField(t *testing.T) {
	_, err := graver.ParseLoose([]byte("{ A: 1 A: 2 }"))
	it := firstIssue(t, err)
	if it.Code != graver.CodeDuplicateKey {
		t.Errorf("code = %s", it.Code)
	}
}

func TestJSONBridge(t *testing.T) {
	doc := []byte(`{ Name: "Door" Width: 36 Tags: [ "A" "B" ] }`)
	js, err := graver.ToJSON(doc)
	if err != nil {
		t.Fatal(err)
	}
	var m map[string]any
	if err := gojson.Unmarshal(js, &m); err != nil {
		t.Fatal(err)
	}
	if m["Name"] != "Door" || m["Width"] != float64(36) {
		t.Errorf("json = %v", m)
	}

	back, err := graver.FromJSON(js)
	if err != nil {
		t.Fatal(err)
	}
	v, err := graver.ParseLoose(back)
	if err != nil {
		t.Fatalf("regenerated document does not parse: %v\n%s", err, back)
	}
	got := v.(map[string]any)
	if got["Width"] != int64(36) || got["Name"] != "Door" {
		t.Errorf("round trip = %v", got)
	}
	tags := got["Tags"].([]any)
	if len(tags) != 2 || tags[0] != "A" {
		t.Errorf("Tags = %v", got["Tags"])
	}
}

func TestJSONBridgeKeepsTypeTag(t *testing.T) {
	js, err := graver.ToJSON([]byte(`(Circle){ Radius: 2 }`))
	if err != nil {
		t.Fatal(err)
	}
	back, err := graver.FromJSON(js)
	if err != nil {
		t.Fatal(err)
	}
	v, err := graver.ParseLoose(back)
	if err != nil {
		t.Fatal(err)
	}
	m := v.(map[string]any)
	if m[graver.TypeTagKey] != "Circle" {
		t.Errorf("type tag lost: %v", m)
	}
}
