package models

import (
	"fmt"
	"time"
)

// RunStatus is the terminal state of a pipeline run.
type RunStatus string

const (
	RunSucceeded RunStatus = "succeeded"
	RunPartial   RunStatus = "partial" // playlist created but tracks could not be added
	RunFailed    RunStatus = "failed"
	RunDryRun    RunStatus = "dry_run"
)

// Run is the persisted summary of one generation run.
type Run struct {
	ID          string     `json:"id" yaml:"id"`
	Sequence    int        `json:"-" yaml:"-"`
	SubjectID   string     `json:"subject_id" yaml:"subject_id"`
	Mood        Mood       `json:"mood" yaml:"mood"`
	Usernames   []string   `json:"usernames" yaml:"usernames"`
	PlaylistID  string     `json:"playlist_id,omitempty" yaml:"playlist_id,omitempty"`
	PlaylistURL string     `json:"playlist_url,omitempty" yaml:"playlist_url,omitempty"`
	Candidates  int        `json:"candidates" yaml:"candidates"`
	Curated     int        `json:"curated" yaml:"curated"`
	Resolved    int        `json:"resolved" yaml:"resolved"`
	Added       int        `json:"added" yaml:"added"`
	DryRun      bool       `json:"dry_run" yaml:"dry_run"`
	Status      RunStatus  `json:"status" yaml:"status"`
	Error       string     `json:"error,omitempty" yaml:"error,omitempty"`
	StartedAt   time.Time  `json:"started_at" yaml:"started_at"`
	FinishedAt  *time.Time `json:"finished_at,omitempty" yaml:"finished_at,omitempty"`
	Tracks      []RunTrack `json:"tracks,omitempty" yaml:"tracks,omitempty"`
}

// RunTrack is one resolved track of a run.
type RunTrack struct {
	Position   int    `json:"position" yaml:"position"`
	Descriptor string `json:"descriptor" yaml:"descriptor"`
	TrackID    string `json:"track_id" yaml:"track_id"`
	URI        string `json:"uri" yaml:"uri"`
}

// Validate checks the fields required to persist a run.
func (r *Run) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("run id is required")
	}
	if r.SubjectID == "" {
		return fmt.Errorf("subject id is required")
	}
	if r.Mood.String() == "" {
		return fmt.Errorf("mood is required")
	}
	switch r.Status {
	case RunSucceeded, RunPartial, RunFailed, RunDryRun:
	default:
		return fmt.Errorf("invalid run status %q", r.Status)
	}
	return nil
}
