package tasks

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/passtheaux/internal/models"
	"github.com/desertthunder/passtheaux/internal/shared"
)

const entrySeparator = "*"

// listMarker matches a leading "1. ", "2) ", "- " or "• " the generator was told not to emit.
// The trailing space is required so titles such as "99.9% ..." are left intact.
var listMarker = regexp.MustCompile(`^(?:\d+[.)]|[-•])\s+`)

// Curation is the generator's selection for a mood.
type Curation struct {
	Mood    models.Mood
	Prompt  string
	Raw     string
	Entries []string // "Title Artist", in the generator's order
	Shape   CurationShape
}

// CurationShape reports how far a curation response deviated from the requested form.
type CurationShape struct {
	Count      int
	Want       int
	Numbered   bool     // at least one entry carried a list marker
	Duplicates []string // entries repeated case-insensitively, first spelling kept
}

// OK reports whether the response had the requested count and no list markers.
func (s CurationShape) OK() bool {
	return s.Count == s.Want && !s.Numbered
}

// Flags names each deviation, for logging and metrics.
func (s CurationShape) Flags() []string {
	var flags []string
	if s.Count != s.Want {
		flags = append(flags, "count_mismatch")
	}
	if s.Numbered {
		flags = append(flags, "numbered")
	}
	if len(s.Duplicates) > 0 {
		flags = append(flags, "duplicates")
	}
	return flags
}

// Preamble is the system instruction sent with every curation request.
func Preamble(want int) string {
	return fmt.Sprintf(
		"You are an AI assistant trained to assist users by responding only in an array of strings of size %d, separated by %s. "+
			"Do not add numbers or bullets to the list and keep it on one line. Do not include a numbered or bullet list.",
		want, entrySeparator,
	)
}

// BuildPrompt renders the curation request for descriptors and mood.
func BuildPrompt(descriptors []models.Descriptor, mood models.Mood, want int) string {
	candidates := make([]string, len(descriptors))
	for i, d := range descriptors {
		candidates[i] = d.String()
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Create a playlist of %d songs for a %s situation separated by %s. ", want, mood.Clause(), entrySeparator)
	b.WriteString("The format is 'Song Title Artist Name'. ")
	if users := sources(descriptors); len(users) > 1 {
		fmt.Fprintf(&b, "Ensure variety from each user (%s) so every listener is represented equally. ", strings.Join(users, ", "))
	}
	b.WriteString("Do not include duplicate songs. ")
	b.WriteString("Do not include white noise, brown noise, pink noise or other noise tracks. ")
	fmt.Fprintf(&b, "Use the provided list of songs as a base for the playlist: %s. ", strings.Join(candidates, ", "))
	label := strings.ToLower(mood.String())
	fmt.Fprintf(&b, "If any songs from the list fit well with the %s situation, include them. ", label)
	fmt.Fprintf(&b, "If they do not fit the %s situation, suggest new songs that align with the overall music taste shown in the list and suit the %s situation. ", label, label)
	b.WriteString("Ensure the final playlist is a blend of familiar songs and fresh suggestions that fit the mood. ")
	fmt.Fprintf(&b, "Do not number the list as it is separated by %s.", entrySeparator)
	return b.String()
}

// sources lists the distinct descriptor sources in first-seen order.
func sources(descriptors []models.Descriptor) []string {
	seen := make(map[string]struct{})
	var users []string
	for _, d := range descriptors {
		if d.Source == "" {
			continue
		}
		if _, ok := seen[d.Source]; ok {
			continue
		}
		seen[d.Source] = struct{}{}
		users = append(users, d.Source)
	}
	return users
}

// ParseCuration splits a generator response on "*", trims each segment and drops empty ones.
//
// List markers are stripped and flagged. Duplicates are kept and flagged. Nothing is truncated.
// An empty result returns [shared.ErrEmptyCuration].
func ParseCuration(text string, want int) ([]string, CurationShape, error) {
	shape := CurationShape{Want: want}
	seen := make(map[string]struct{})

	var entries []string
	for _, segment := range strings.Split(text, entrySeparator) {
		entry := strings.TrimSpace(segment)
		if stripped := listMarker.ReplaceAllString(entry, ""); stripped != entry {
			shape.Numbered = true
			entry = strings.TrimSpace(stripped)
		}
		if entry == "" {
			continue
		}

		key := shared.NormalizeKey(entry)
		if _, dup := seen[key]; dup {
			shape.Duplicates = append(shape.Duplicates, entry)
		}
		seen[key] = struct{}{}
		entries = append(entries, entry)
	}

	shape.Count = len(entries)
	if len(entries) == 0 {
		return nil, shape, shared.ErrEmptyCuration
	}
	return entries, shape, nil
}

// Curate implements [Generator].
func (e *PlaylistEngine) Curate(ctx context.Context, descriptors []models.Descriptor, mood models.Mood) (*Curation, error) {
	return e.curate(ctx, e.logger, descriptors, mood)
}

func (e *PlaylistEngine) curate(ctx context.Context, logger *log.Logger, descriptors []models.Descriptor, mood models.Mood) (*Curation, error) {
	if len(descriptors) == 0 {
		return nil, shared.ErrNoCandidates
	}
	if mood.Clause() == "" {
		return nil, fmt.Errorf("%w: %d", shared.ErrInvalidMood, int(mood))
	}

	want := e.opts.TrackCount
	cur := &Curation{Mood: mood, Prompt: BuildPrompt(descriptors, mood, want)}

	raw, err := e.generator.Generate(ctx, Preamble(want), cur.Prompt)
	if err != nil {
		e.metrics.RecordStepFailure(PhaseCurate.String(), kindLabel(err))
		return cur, fmt.Errorf("curation request failed: %w", err)
	}
	cur.Raw = raw

	entries, shape, err := ParseCuration(raw, want)
	cur.Entries = entries
	cur.Shape = shape
	if err != nil {
		return cur, err
	}

	for _, flag := range shape.Flags() {
		e.metrics.RecordCurationFlag(flag)
	}
	if !shape.OK() || len(shape.Duplicates) > 0 {
		logger.Warn("curation shape deviated", "count", shape.Count, "want", shape.Want, "numbered", shape.Numbered, "duplicates", len(shape.Duplicates))
	}
	if e.opts.StrictCuration && !shape.OK() {
		return cur, fmt.Errorf("%w: got %d entries (want %d), numbered=%t", shared.ErrCurationShape, shape.Count, shape.Want, shape.Numbered)
	}
	return cur, nil
}
