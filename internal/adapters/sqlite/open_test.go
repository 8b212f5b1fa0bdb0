package sqlite

import (
	"context"
	"testing"
)

func TestOpen_RequiresPath(t *testing.T) {
	t.Parallel()

	if _, err := Open(context.Background(), "  "); err == nil {
		t.Fatalf("Open(blank) err=nil, want error")
	}
}
