package path

import (
	"reflect"
	"testing"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

func TestRecListDropsNullsAndNonStrings(t *testing.T) {
	// collect() over an OPTIONAL MATCH yields [null] for courses with no
	// edges; those rows must come back as empty lists, not ["<nil>"].
	rec := &neo4j.Record{
		Keys:   []string{"taught", "required", "broken"},
		Values: []any{[]any{"s1", nil, "", "s2"}, []any{nil}, "not-a-list"},
	}

	taught, ok := recList(rec, "taught")
	if !ok {
		t.Fatalf("taught column must decode")
	}
	if want := []string{"s1", "s2"}; !reflect.DeepEqual(taught, want) {
		t.Fatalf("want %v, got %v", want, taught)
	}

	required, ok := recList(rec, "required")
	if !ok {
		t.Fatalf("required column must decode")
	}
	if len(required) != 0 {
		t.Fatalf("all-null collect must yield an empty list, got %v", required)
	}

	if _, ok := recList(rec, "broken"); ok {
		t.Fatalf("non-list column must not decode")
	}
	if _, ok := recList(rec, "missing"); ok {
		t.Fatalf("absent column must not decode")
	}
}
