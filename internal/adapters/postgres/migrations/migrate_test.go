package migrations

import (
	"strings"
	"testing"
)

func TestNames_SortedAndNonEmpty(t *testing.T) {
	t.Parallel()

	names, err := Names()
	if err != nil {
		t.Fatalf("Names() err=%v", err)
	}
	want := []string{"0001_activities.sql", "0002_idempotency_keys.sql"}
	if strings.Join(names, ",") != strings.Join(want, ",") {
		t.Fatalf("Names()=%v, want %v", names, want)
	}
	for _, n := range names {
		b, err := migrationFiles.ReadFile(n)
		if err != nil {
			t.Fatalf("ReadFile(%s) err=%v", n, err)
		}
		if strings.TrimSpace(string(b)) == "" {
			t.Fatalf("migration %s is empty", n)
		}
	}
}
