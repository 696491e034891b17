package uuid

import (
	"testing"

	guuid "github.com/google/uuid"
)

func TestNewIDIsParseableAndUnique(t *testing.T) {
	t.Parallel()

	gen := New()
	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		id, err := gen.NewID()
		if err != nil {
			t.Fatalf("NewID() error = %v", err)
		}
		if _, err := guuid.Parse(id); err != nil {
			t.Fatalf("NewID() produced unparseable id %q: %v", id, err)
		}
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = struct{}{}
	}
}
