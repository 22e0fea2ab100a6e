package tasks

import (
	"fmt"
	"strings"

	"github.com/desertthunder/passtheaux/internal/models"
)

// ProgressUpdate represents a progress event during a pipeline run.
//
// Used to send real-time updates to the CLI or HTTP layer for display.
type ProgressUpdate struct {
	Phase   Phase  `json:"phase" yaml:"phase"`
	Step    int    `json:"step" yaml:"step"`       // Current step number within phase
	Total   int    `json:"total" yaml:"total"`     // Total steps in this phase
	Message string `json:"message" yaml:"message"` // Human-readable message for display
	Data    any    `json:"-" yaml:"-"`             // Optional phase-specific data
}

// Pipeline phase enumeration
type Phase int

const (
	PhaseAggregate Phase = iota
	PhaseCurate
	PhaseResolveIDs
	PhaseResolveURIs
	PhaseCreatePlaylist
	PhaseAddTracks
	PhaseComplete
)

func (p Phase) String() string {
	switch p {
	case PhaseAggregate:
		return "aggregate"
	case PhaseCurate:
		return "curate"
	case PhaseResolveIDs:
		return "resolve_ids"
	case PhaseResolveURIs:
		return "resolve_uris"
	case PhaseCreatePlaylist:
		return "create_playlist"
	case PhaseAddTracks:
		return "add_tracks"
	case PhaseComplete:
		return "complete"
	default:
		return ""
	}
}

// MarshalText implements [encoding.TextMarshaler].
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements [encoding.TextUnmarshaler].
func (p *Phase) UnmarshalText(b []byte) error {
	for candidate := PhaseAggregate; candidate <= PhaseComplete; candidate++ {
		if candidate.String() == string(b) {
			*p = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown phase %q", b)
}

func aggregateStartUpdate(usernames []string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   PhaseAggregate,
		Step:    0,
		Total:   len(usernames) * len(models.Facets()),
		Message: fmt.Sprintf("Fetching listening history for %s...", strings.Join(usernames, ", ")),
	}
}

func aggregateDoneUpdate(agg *AggregateResult) ProgressUpdate {
	total := len(agg.Facets)
	ok := total - len(agg.Degraded())
	return ProgressUpdate{
		Phase:   PhaseAggregate,
		Step:    ok,
		Total:   total,
		Message: fmt.Sprintf("Found %d candidate tracks (%d/%d history lists)", len(agg.Descriptors), ok, total),
		Data:    agg,
	}
}

func curateStartUpdate(mood models.Mood, want int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   PhaseCurate,
		Step:    0,
		Total:   1,
		Message: fmt.Sprintf("Curating %d tracks for a %s mix...", want, strings.ToLower(mood.String())),
	}
}

func curateDoneUpdate(cur *Curation) ProgressUpdate {
	msg := fmt.Sprintf("Curated %d tracks", len(cur.Entries))
	if flags := cur.Shape.Flags(); len(flags) > 0 {
		msg += fmt.Sprintf(" (%s)", strings.Join(flags, ", "))
	}
	return ProgressUpdate{
		Phase:   PhaseCurate,
		Step:    1,
		Total:   1,
		Message: msg,
		Data:    cur,
	}
}

func resolveIDsStartUpdate(total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   PhaseResolveIDs,
		Step:    0,
		Total:   total,
		Message: "Searching Spotify for curated tracks...",
	}
}

func resolveIDsDoneUpdate(found, total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   PhaseResolveIDs,
		Step:    found,
		Total:   total,
		Message: fmt.Sprintf("Successfully got Spotify IDs! (%d/%d)", found, total),
	}
}

func resolveURIsStartUpdate(total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   PhaseResolveURIs,
		Step:    0,
		Total:   total,
		Message: "Looking up track URIs...",
	}
}

func resolveURIsDoneUpdate(found, total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   PhaseResolveURIs,
		Step:    found,
		Total:   total,
		Message: fmt.Sprintf("Successfully got Spotify URIs! (%d/%d)", found, total),
	}
}

func dryRunUpdate(resolved int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   PhaseComplete,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Dry run: %d tracks resolved, no playlist created", resolved),
	}
}

func createStartUpdate(mood models.Mood) ProgressUpdate {
	return ProgressUpdate{
		Phase:   PhaseCreatePlaylist,
		Step:    0,
		Total:   1,
		Message: fmt.Sprintf("Creating playlist %q...", mood.PlaylistName()),
	}
}

func createDoneUpdate(pl *models.Playlist) ProgressUpdate {
	return ProgressUpdate{
		Phase:   PhaseCreatePlaylist,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Playlist created! %s (ID: %s)", pl.Name, pl.ID),
		Data:    pl,
	}
}

func addTracksDoneUpdate(asm *Assembly) ProgressUpdate {
	msg := fmt.Sprintf("Added %d tracks to %s", asm.Added, asm.Playlist.Name)
	if asm.Dropped > 0 {
		msg += fmt.Sprintf(" (%d duplicates dropped)", asm.Dropped)
	}
	return ProgressUpdate{
		Phase:   PhaseAddTracks,
		Step:    asm.Added,
		Total:   asm.Added + asm.Dropped,
		Message: msg,
		Data:    asm,
	}
}
