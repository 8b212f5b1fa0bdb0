// Package catalogfile loads the activity catalog an administrator provisions at startup.
//
// Two formats are accepted, chosen by file extension:
//
//	# activities.hcl
//	activity "Chess Club" {
//	  description      = "Learn strategies and compete in chess tournaments"
//	  schedule         = "Fridays, 3:30 PM - 5:00 PM"
//	  max_participants = 12
//	  participants     = ["michael@mergington.edu"]
//	}
//
// and a JSON array of {"name", "description", "schedule", "max_participants", "participants"}
// objects. Entry order is provisioning order.
package catalogfile

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/mergington/activities-api/internal/domain"
)

// ErrUnsupportedFormat is returned for files that are neither .hcl nor .json.
var ErrUnsupportedFormat = errors.New("unsupported catalog format")

type hclCatalogFile struct {
	Activities []*hclActivity `hcl:"activity,block"`
}

type hclActivity struct {
	Name            string   `hcl:"name,label"`
	Description     string   `hcl:"description,optional"`
	Schedule        string   `hcl:"schedule"`
	MaxParticipants int      `hcl:"max_participants"`
	Participants    []string `hcl:"participants,optional"`
}

type jsonActivity struct {
	Name            string   `json:"name"`
	Description     string   `json:"description"`
	Schedule        string   `json:"schedule"`
	MaxParticipants int      `json:"max_participants"`
	Participants    []string `json:"participants"`
}

// Load reads and validates the catalog at path.
func Load(path string) ([]domain.Activity, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	return Parse(src, path)
}

// Parse decodes src, using filename's extension to pick the format.
func Parse(src []byte, filename string) ([]domain.Activity, error) {
	var (
		raw []jsonActivity
		err error
	)
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".hcl":
		raw, err = decodeHCL(src, filename)
	case ".json":
		raw, err = decodeJSON(src, filename)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filename)
	}
	if err != nil {
		return nil, err
	}
	return toActivities(raw, filename)
}

func decodeHCL(src []byte, filename string) ([]jsonActivity, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", filename, diags)
	}

	var parsed hclCatalogFile
	if diags := gohcl.DecodeBody(file.Body, nil, &parsed); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL file %s: %w", filename, diags)
	}

	out := make([]jsonActivity, 0, len(parsed.Activities))
	for _, a := range parsed.Activities {
		out = append(out, jsonActivity(*a))
	}
	return out, nil
}

func decodeJSON(src []byte, filename string) ([]jsonActivity, error) {
	dec := json.NewDecoder(bytes.NewReader(src))
	dec.DisallowUnknownFields()
	var out []jsonActivity
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode JSON file %s: %w", filename, err)
	}
	return out, nil
}

func toActivities(raw []jsonActivity, filename string) ([]domain.Activity, error) {
	seen := make(map[domain.ActivityName]struct{}, len(raw))
	out := make([]domain.Activity, 0, len(raw))
	for _, r := range raw {
		a := domain.Activity{
			Name:            domain.ActivityName(domain.NormalizeHumanName(r.Name)),
			Description:     strings.TrimSpace(r.Description),
			Schedule:        strings.TrimSpace(r.Schedule),
			MaxParticipants: r.MaxParticipants,
			Participants:    make([]domain.ParticipantID, 0, len(r.Participants)),
		}
		for _, p := range r.Participants {
			id, err := domain.NormalizeParticipantID(p)
			if err != nil {
				return nil, fmt.Errorf("%s: activity %q: participant %q: %w", filename, a.Name, p, err)
			}
			a.Participants = append(a.Participants, id)
		}
		if err := a.Validate(); err != nil {
			return nil, fmt.Errorf("%s: %w", filename, err)
		}
		if _, dup := seen[a.Name]; dup {
			return nil, fmt.Errorf("%s: %w: activity %q defined twice", filename, domain.ErrInvalidActivity, a.Name)
		}
		seen[a.Name] = struct{}{}
		out = append(out, a)
	}
	return out, nil
}
