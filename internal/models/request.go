package models

import (
	"fmt"
	"strings"

	"github.com/desertthunder/passtheaux/internal/shared"
)

// MaxUsernames is the most listeners a single mix can blend.
const MaxUsernames = 3

// Request is one user-initiated "generate" action.
type Request struct {
	Usernames []string `json:"usernames"`
	Mood      Mood     `json:"mood"`
	DryRun    bool     `json:"dry_run,omitempty"`
}

// Normalize trims usernames, drops blanks and case-insensitive duplicates, and enforces 1 to [MaxUsernames] names.
func (r *Request) Normalize() error {
	seen := make(map[string]struct{}, len(r.Usernames))
	names := make([]string, 0, len(r.Usernames))
	for _, raw := range r.Usernames {
		name := strings.TrimSpace(raw)
		if name == "" {
			continue
		}
		key := strings.ToLower(name)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		names = append(names, name)
	}

	if len(names) == 0 {
		return fmt.Errorf("%w: at least one username is required", shared.ErrMissingArgument)
	}
	if len(names) > MaxUsernames {
		return fmt.Errorf("%w: got %d, at most %d", shared.ErrTooManyUsers, len(names), MaxUsernames)
	}
	if r.Mood.String() == "" {
		return fmt.Errorf("%w: mood is required", shared.ErrInvalidMood)
	}

	r.Usernames = names
	return nil
}

// MixSignature ends the description of every generated playlist.
const MixSignature = "Made with Pass the Aux"

// PlaylistDescription lists participants the way generated playlists are described.
func PlaylistDescription(usernames []string) string {
	return strings.Join(usernames, " x ") + " | " + MixSignature
}
