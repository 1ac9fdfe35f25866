package smileconf

import (
	"encoding/json"
	"slices"
	"testing"
)

func TestParseValue(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		wantKind  ValueKind
		wantItems []string
	}{
		{"scalar", "a", KindScalar, []string{"a"}},
		{"empty scalar", "", KindScalar, []string{""}},
		{"array", "a;b;c", KindArray, []string{"a", "b", "c"}},
		{"array with spaces", "a ; b;  c", KindArray, []string{"a", "b", "c"}},
		{"trailing separator", "a;", KindArray, []string{"a", ""}},
		{"scalar with inner spaces", "hello world", KindScalar, []string{"hello world"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := ParseValue(tt.raw)
			if v.Kind() != tt.wantKind {
				t.Errorf("ParseValue(%q).Kind() = %v, want %v", tt.raw, v.Kind(), tt.wantKind)
			}
			if got := v.Items(); !slices.Equal(got, tt.wantItems) {
				t.Errorf("ParseValue(%q).Items() = %q, want %q", tt.raw, got, tt.wantItems)
			}
		})
	}
}

func TestValueString(t *testing.T) {
	if got := Scalar("wave").String(); got != "wave" {
		t.Errorf("Scalar.String() = %q, want %q", got, "wave")
	}
	if got := Array("a", "b").String(); got != "a;b" {
		t.Errorf("Array.String() = %q, want %q", got, "a;b")
	}
}

func TestValueItemsIsCopy(t *testing.T) {
	v := Array("a", "b")
	items := v.Items()
	items[0] = "mutated"
	if v.Items()[0] != "a" {
		t.Error("Items() should return a copy")
	}
}

func TestValueEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b Value
		want bool
	}{
		{"same scalar", Scalar("a"), Scalar("a"), true},
		{"different scalar", Scalar("a"), Scalar("b"), false},
		{"same array", Array("a", "b"), Array("a", "b"), true},
		{"different order", Array("a", "b"), Array("b", "a"), false},
		{"scalar vs array", Scalar("a"), Array("a"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Equal(tt.b); got != tt.want {
				t.Errorf("Equal() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestValueJSON(t *testing.T) {
	data, err := json.Marshal(map[string]Value{"s": Scalar("x"), "a": Array("p", "q")})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	want := `{"a":["p","q"],"s":"x"}`
	if string(data) != want {
		t.Errorf("Marshal = %s, want %s", data, want)
	}

	var got map[string]Value
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !got["s"].Equal(Scalar("x")) || !got["a"].Equal(Array("p", "q")) {
		t.Errorf("Unmarshal = %v", got)
	}
}
