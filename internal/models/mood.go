package models

import (
	"fmt"
	"strings"

	"github.com/desertthunder/passtheaux/internal/shared"
)

// Mood is the listening situation a playlist is generated for.
type Mood int

const (
	Party Mood = iota + 1
	Driving
	Chill
)

var moodClauses = map[Mood]string{
	Party:   "party (high danceability, high energy, high BPM/tempo. no low energy, low BPM/tempo, low danceability songs allowed)",
	Driving: "driving (steady medium/high energy, medium/high BPM/tempo, sing-along friendly. no sleepy, ambient or very low energy songs allowed)",
	Chill:   "chill (low danceability, medium/low energy, medium/low BPM/tempo. no high energy, high BPM, high danceability songs allowed)",
}

// Moods returns every mood in display order.
func Moods() []Mood {
	return []Mood{Party, Driving, Chill}
}

// ParseMood resolves a label case-insensitively.
func ParseMood(label string) (Mood, error) {
	needle := strings.TrimSpace(label)
	for _, m := range Moods() {
		if strings.EqualFold(m.String(), needle) {
			return m, nil
		}
	}
	return 0, fmt.Errorf("%w: %q (want one of party, driving, chill)", shared.ErrInvalidMood, label)
}

func (m Mood) String() string {
	switch m {
	case Party:
		return "Party"
	case Driving:
		return "Driving"
	case Chill:
		return "Chill"
	default:
		return ""
	}
}

// Clause returns the descriptive clause substituted for the mood in the curation prompt.
func (m Mood) Clause() string {
	return moodClauses[m]
}

// PlaylistName is the name given to playlists generated for this mood.
func (m Mood) PlaylistName() string {
	return m.String() + " Mix"
}

// MarshalText implements [encoding.TextMarshaler].
func (m Mood) MarshalText() ([]byte, error) {
	if m.String() == "" {
		return nil, fmt.Errorf("%w: %d", shared.ErrInvalidMood, int(m))
	}
	return []byte(m.String()), nil
}

// UnmarshalText implements [encoding.TextUnmarshaler].
func (m *Mood) UnmarshalText(b []byte) error {
	parsed, err := ParseMood(string(b))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
