package catalogfile

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/mergington/activities-api/internal/domain"
)

func TestParse_HCL(t *testing.T) {
	t.Parallel()

	src := []byte(`
activity "Chess Club" {
  description      = "Learn strategies"
  schedule         = "Fridays, 3:30 PM - 5:00 PM"
  max_participants = 2
  participants     = [" Michael@Mergington.edu "]
}

activity "Robotics" {
  schedule         = "Mondays"
  max_participants = 8
}
`)
	got, err := Parse(src, "activities.hcl")
	if err != nil {
		t.Fatalf("Parse() err=%v", err)
	}
	want := []domain.Activity{
		{Name: "Chess Club", Description: "Learn strategies", Schedule: "Fridays, 3:30 PM - 5:00 PM", MaxParticipants: 2, Participants: []domain.ParticipantID{"Michael@mergington.edu"}},
		{Name: "Robotics", Schedule: "Mondays", MaxParticipants: 8, Participants: []domain.ParticipantID{}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Parse() mismatch (-want +got):\n%s", diff)
	}
}

func TestParse_JSONKeepsOrder(t *testing.T) {
	t.Parallel()

	src := []byte(`[
  {"name": "Zoology", "description": "z", "schedule": "Tue", "max_participants": 3, "participants": []},
  {"name": "Art Club", "description": "a", "schedule": "Wed", "max_participants": 1, "participants": ["maya@mergington.edu"]}
]`)
	got, err := Parse(src, "catalog.JSON")
	if err != nil {
		t.Fatalf("Parse() err=%v", err)
	}
	if len(got) != 2 || got[0].Name != "Zoology" || got[1].Name != "Art Club" {
		t.Fatalf("Parse()=%+v", got)
	}
	if !got[1].IsFull() {
		t.Fatalf("Art Club should be full: %+v", got[1])
	}
}

func TestParse_Rejects(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		filename string
		src      string
		want     error
	}{
		{"unknown extension", "catalog.yaml", "", ErrUnsupportedFormat},
		{"over capacity", "c.json", `[{"name":"A","schedule":"s","max_participants":1,"participants":["a@x.com","b@x.com"]}]`, domain.ErrInvalidActivity},
		{"zero capacity", "c.json", `[{"name":"A","schedule":"s","max_participants":0}]`, domain.ErrInvalidActivity},
		{"duplicate name", "c.json", `[{"name":"A","schedule":"s","max_participants":1},{"name":" A ","schedule":"s","max_participants":1}]`, domain.ErrInvalidActivity},
		{"duplicate participant", "c.json", `[{"name":"A","schedule":"s","max_participants":3,"participants":["a@x.com","a@X.com"]}]`, domain.ErrInvalidActivity},
		{"bad participant", "c.json", `[{"name":"A","schedule":"s","max_participants":3,"participants":["nope"]}]`, domain.ErrInvalidParticipantID},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := Parse([]byte(tc.src), tc.filename)
			if !errors.Is(err, tc.want) {
				t.Fatalf("Parse() err=%v, want %v", err, tc.want)
			}
		})
	}
}

func TestParse_MalformedInput(t *testing.T) {
	t.Parallel()

	if _, err := Parse([]byte(`activity "A" {`), "c.hcl"); err == nil {
		t.Fatalf("Parse(bad hcl) err=nil")
	}
	if _, err := Parse([]byte(`activity "A" { schedule = "s" }`), "c.hcl"); err == nil {
		t.Fatalf("Parse(missing max_participants) err=nil")
	}
	if _, err := Parse([]byte(`[{"name":"A","capacity":3}]`), "c.json"); err == nil {
		t.Fatalf("Parse(unknown field) err=nil")
	}
}

func TestLoad_ReadsFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "activities.hcl")
	if err := os.WriteFile(path, []byte(`activity "Chess Club" {
  schedule         = "Fridays"
  max_participants = 12
}
`), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load() err=%v", err)
	}
	if len(got) != 1 || got[0].Name != "Chess Club" || got[0].MaxParticipants != 12 {
		t.Fatalf("Load()=%+v", got)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.hcl")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("Load(missing) err=%v, want ErrNotExist", err)
	}
}

func TestDefault_IsValidAndFresh(t *testing.T) {
	t.Parallel()

	a := Default()
	if len(a) != 9 || a[0].Name != "Chess Club" || a[1].Name != "Programming Class" {
		t.Fatalf("Default() names=%v", a)
	}
	for _, act := range a {
		if err := act.Validate(); err != nil {
			t.Fatalf("Validate(%q) err=%v", act.Name, err)
		}
	}

	a[0].Participants[0] = "mutated@x.com"
	if Default()[0].Participants[0] != "michael@mergington.edu" {
		t.Fatalf("Default() shares slices between calls")
	}
}
