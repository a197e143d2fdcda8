package activities

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Activity is the public view of one catalog entry and its roster.
type Activity struct {
	Description     string   `json:"description"`
	Schedule        string   `json:"schedule"`
	MaxParticipants int      `json:"max_participants"`
	Participants    []string `json:"participants"`
}

// Definition describes an activity in the catalog, including the participants
// it starts with.
type Definition struct {
	Name            string   `yaml:"name"`
	Description     string   `yaml:"description"`
	Schedule        string   `yaml:"schedule"`
	MaxParticipants int      `yaml:"max_participants"`
	Participants    []string `yaml:"participants"`
}

// activity returns the Activity for this definition with the given roster.
// A nil roster is returned as an empty slice so it encodes as [].
func (d Definition) activity(roster []string) Activity {
	if roster == nil {
		roster = []string{}
	}
	return Activity{
		Description:     d.Description,
		Schedule:        d.Schedule,
		MaxParticipants: d.MaxParticipants,
		Participants:    roster,
	}
}

// ValidateCatalog checks that every definition has a non-empty, unique name and
// that no definition seeds the same participant twice.
func ValidateCatalog(defs []Definition) error {
	var errs []error
	seen := make(map[string]bool, len(defs))
	for i, d := range defs {
		if strings.TrimSpace(d.Name) == "" {
			errs = append(errs, fmt.Errorf("activity %d: name is required", i))
			continue
		}
		if seen[d.Name] {
			errs = append(errs, fmt.Errorf("activity %q: duplicate name", d.Name))
		}
		seen[d.Name] = true

		sorted := slices.Clone(d.Participants)
		slices.Sort(sorted)
		if len(slices.Compact(sorted)) != len(d.Participants) {
			errs = append(errs, fmt.Errorf("activity %q: duplicate participant", d.Name))
		}
	}
	return errors.Join(errs...)
}
