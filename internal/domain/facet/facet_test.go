package facet

import (
	"reflect"
	"testing"
)

func TestAncestors(t *testing.T) {
	tests := []struct {
		token string
		want  []string
	}{
		{"0/a/", nil},
		{"1/a/b/", []string{"0/a/"}},
		{"2/a/b/c/", []string{"0/a/", "1/a/b/"}},
		{"0/a/b/", []string{"0/a/"}},
		{"plain", nil},
		{"x/a/b/", nil},
		{"", nil},
	}
	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			got := Ancestors(tt.token)
			if len(got) == 0 && len(tt.want) == 0 {
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Ancestors(%q) = %v, want %v", tt.token, got, tt.want)
			}
		})
	}
}

func TestAccumulator_SortedStable(t *testing.T) {
	a := NewAccumulator([]Count{{"x", 2}, {"y", 5}})
	a.Add("z", 2)
	a.Add("x", 0)

	got := a.Sorted()
	want := []Count{{"y", 5}, {"x", 2}, {"z", 2}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Sorted() = %v, want %v", got, want)
	}
	if a.Len() != 3 {
		t.Errorf("Len() = %d, want 3", a.Len())
	}
}

func TestAccumulator_DuplicateSeed(t *testing.T) {
	a := NewAccumulator([]Count{{"x", 1}, {"x", 4}})
	if a.Get("x") != 5 {
		t.Errorf("Get(x) = %d, want 5", a.Get("x"))
	}
	if a.Get("missing") != 0 {
		t.Error("missing value should count 0")
	}
}

func TestSet_CloneIsDeep(t *testing.T) {
	s := Set{"format": {{"book", 1}}}
	c := s.Clone()
	c["format"][0].Count = 99
	if s["format"][0].Count != 1 {
		t.Error("Clone shares backing arrays")
	}
}

func TestSet_Fields(t *testing.T) {
	s := Set{"b": nil, "a": nil}
	if got := s.Fields(); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("Fields() = %v", got)
	}
}

func TestRule_MapValue(t *testing.T) {
	flat := Rule{Primary: "format", Secondary: "type", Values: map[string]string{"Book": "0/Book/"}}
	if got := flat.MapValue("Book"); got != "0/Book/" {
		t.Errorf("mapped = %q", got)
	}
	if got := flat.MapValue("Video"); got != "Video" {
		t.Errorf("unmapped flat = %q", got)
	}

	hier := Rule{Primary: "building", Secondary: "source", Hierarchical: true}
	if got := hier.MapValue("lib"); got != "0/lib/" {
		t.Errorf("hierarchical = %q", got)
	}
}

func TestRule_UnmapValue(t *testing.T) {
	r := Rule{
		Primary: "format", Secondary: "type", Hierarchical: true,
		Values: map[string]string{"eBook": "0/Book/", "Book": "0/Book/"},
	}
	if got, ok := r.UnmapValue("0/Book/"); !ok || got != "Book" {
		t.Errorf("UnmapValue(0/Book/) = %q, %v", got, ok)
	}
	if got, ok := r.UnmapValue("0/Map/"); !ok || got != "Map" {
		t.Errorf("UnmapValue(0/Map/) = %q, %v", got, ok)
	}
	if _, ok := r.UnmapValue("1/Map/Old/"); ok {
		t.Error("deep token should not unmap")
	}
}

func TestTable_Lookup(t *testing.T) {
	tbl := Table{
		{Primary: "", Secondary: "type"},
		{Primary: "format", Secondary: "type"},
		{Primary: "format2", Secondary: "type"},
	}
	r, ok := tbl.BySecondary("type")
	if !ok || r.Primary != "format" {
		t.Errorf("BySecondary = %+v, %v", r, ok)
	}
	if _, ok := tbl.BySecondary("other"); ok {
		t.Error("expected no rule")
	}
	r, ok = tbl.ByPrimary("format2")
	if !ok || r.Secondary != "type" {
		t.Errorf("ByPrimary = %+v, %v", r, ok)
	}
}

func TestNewRule_Validation(t *testing.T) {
	if _, err := NewRule("", "b", nil, false); err == nil {
		t.Error("expected error for empty primary")
	}
	if _, err := NewRule("a", "", nil, false); err == nil {
		t.Error("expected error for empty secondary")
	}
	if _, err := NewRule("a", "b", nil, true); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
