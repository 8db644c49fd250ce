package jsonenc

import (
	"encoding/json"
	"testing"
)

func TestValuePassthrough(t *testing.T) {
	cases := []any{"str", int64(5), 3.14, nil, true}
	for _, c := range cases {
		if got := Value(c); got != c {
			t.Errorf("Value(%#v) = %#v, want unchanged", c, got)
		}
	}
}

func TestValueUTF8Bytes(t *testing.T) {
	got := Value([]byte("hello"))
	s, ok := got.(string)
	if !ok || s != "hello" {
		t.Errorf("Value([]byte(\"hello\")) = %#v, want string \"hello\"", got)
	}
}

func TestValueBinaryFallback(t *testing.T) {
	raw := []byte{0xff, 0xfe, 0x00, 0x80}
	got := Value(raw)
	bv, ok := got.(BinaryValue)
	if !ok {
		t.Fatalf("Value(invalid utf8) = %#v, want BinaryValue", got)
	}
	if !bv.Base64 {
		t.Error("BinaryValue.Base64 should be true")
	}
	encoded, err := json.Marshal(bv)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(encoded, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded["$base64"] != true {
		t.Errorf("want $base64 true, got %v", decoded["$base64"])
	}
	if _, ok := decoded["encoded"].(string); !ok {
		t.Errorf("want encoded string field, got %v", decoded["encoded"])
	}
}

func TestRow(t *testing.T) {
	in := []any{"a", []byte("b"), int64(3)}
	out := Row(in)
	if len(out) != 3 {
		t.Fatalf("len = %d, want 3", len(out))
	}
	if out[1] != "b" {
		t.Errorf("out[1] = %#v, want \"b\"", out[1])
	}
}

func TestRowObject(t *testing.T) {
	cols := []string{"id", "name"}
	vals := []any{int64(1), "bob"}
	obj := RowObject(cols, vals)
	if obj["id"] != int64(1) || obj["name"] != "bob" {
		t.Errorf("RowObject = %#v", obj)
	}
}

func TestRowObjectShorterColumns(t *testing.T) {
	cols := []string{"id"}
	vals := []any{int64(1), "extra"}
	obj := RowObject(cols, vals)
	if len(obj) != 1 {
		t.Fatalf("len = %d, want 1", len(obj))
	}
}
