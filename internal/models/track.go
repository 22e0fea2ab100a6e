package models

import (
	"fmt"
	"strings"
)

// Descriptor is a human-readable "Title by Artist" candidate.
//
// Descriptors have no identity beyond their text; duplicates are possible.
type Descriptor struct {
	Text   string
	Source string // username the entry came from, empty for curated entries
}

func (d Descriptor) String() string {
	if d.Source == "" {
		return d.Text
	}
	return fmt.Sprintf("%s (from %s)", d.Text, d.Source)
}

// NewDescriptor formats a title and artist as a descriptor tagged with its source.
func NewDescriptor(title, artist, source string) Descriptor {
	return Descriptor{Text: fmt.Sprintf("%s by %s", title, artist), Source: source}
}

// Facet is one slice of a user's scrobble history.
type Facet int

const (
	TopTracks Facet = iota
	LovedTracks
	RecentTracks
)

// Facets returns the history facets in the order they are merged.
func Facets() []Facet {
	return []Facet{TopTracks, LovedTracks, RecentTracks}
}

func (f Facet) String() string {
	switch f {
	case TopTracks:
		return "top"
	case LovedTracks:
		return "loved"
	case RecentTracks:
		return "recent"
	default:
		return ""
	}
}

// Method returns the Last.fm API method for the facet.
func (f Facet) Method() string {
	switch f {
	case TopTracks:
		return "user.getTopTracks"
	case LovedTracks:
		return "user.getLovedTracks"
	case RecentTracks:
		return "user.getRecentTracks"
	default:
		return ""
	}
}

// Playlist represents a playlist on the streaming service.
type Playlist struct {
	ID          string `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	URI         string `json:"uri,omitempty" yaml:"uri,omitempty"`
	URL         string `json:"url,omitempty" yaml:"url,omitempty"`
	Owner       string `json:"owner,omitempty" yaml:"owner,omitempty"`
	TrackCount  int    `json:"track_count" yaml:"track_count"`
	Public      bool   `json:"public" yaml:"public"`
}

// IsMix reports whether the playlist was generated by this tool, judged by its description.
func (p Playlist) IsMix() bool {
	return strings.HasSuffix(strings.TrimSpace(p.Description), MixSignature)
}
