// Package torrentextra implements the per-torrent metadata tagged union
// and its base64url-JSON encoding into a torrent's opaque category field.
// The category is the only free-form per-torrent field the subprocess
// offers, so it carries all of our state.
package torrentextra

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/omnicloud/mediacore/internal/series"
)

// Metadata is the user-supplied per-media title/thumbnail pair carried by
// every TorrentExtra variant.
type Metadata struct {
	Title        string `json:"title"`
	ThumbnailURL string `json:"thumbnailURL"`
}

// Kind distinguishes the two TorrentExtra variants.
type Kind int

const (
	Movie Kind = iota
	Series
)

// Extra is the tagged union carried in a torrent's category field: a Movie
// has no file mapping and is process-ready as soon as the torrent
// completes; a Series carries an optional validated file mapping and is
// process-ready only once FileMapping is non-nil.
type Extra struct {
	Kind        Kind
	Metadata    Metadata
	FileMapping series.FileMapping // only meaningful when Kind == Series; nil means "not yet attached"
}

// NewMovie builds a process-ready Movie extra.
func NewMovie(meta Metadata) Extra { return Extra{Kind: Movie, Metadata: meta} }

// NewSeries builds a Series extra with no file mapping attached yet.
func NewSeries(meta Metadata) Extra { return Extra{Kind: Series, Metadata: meta} }

// NeedsFileMapping reports whether this is a Series extra still missing its
// file mapping; a Movie never needs one.
func (e Extra) NeedsFileMapping() bool {
	return e.Kind == Series && e.FileMapping == nil
}

// WithFileMapping returns a copy of e with a validated file mapping
// attached. It is only meaningful for Series extras.
func (e Extra) WithFileMapping(m series.ValidMapping) Extra {
	e.FileMapping = m.FileMapping
	return e
}

// wireMovie and wireSeries give the category payload an externally-tagged
// JSON shape: {"Movie":{...}} or {"Series":{...}}.
type wireMovie struct {
	Metadata Metadata `json:"metadata"`
}

type wireSeries struct {
	Metadata     Metadata                            `json:"metadata"`
	FilesMapping map[string]series.EpisodeIdentifier `json:"files_mapping"`
}

type wireEnvelope struct {
	Movie  *wireMovie  `json:"Movie,omitempty"`
	Series *wireSeries `json:"Series,omitempty"`
}

// MarshalJSON encodes Extra in the externally-tagged enum shape.
func (e Extra) MarshalJSON() ([]byte, error) {
	switch e.Kind {
	case Movie:
		return json.Marshal(wireEnvelope{Movie: &wireMovie{Metadata: e.Metadata}})
	case Series:
		var mapping map[string]series.EpisodeIdentifier
		if e.FileMapping != nil {
			mapping = e.FileMapping
		}
		return json.Marshal(wireEnvelope{Series: &wireSeries{Metadata: e.Metadata, FilesMapping: mapping}})
	default:
		return nil, fmt.Errorf("torrentextra: unknown kind %d", e.Kind)
	}
}

// UnmarshalJSON decodes the externally-tagged enum shape back into Extra.
func (e *Extra) UnmarshalJSON(data []byte) error {
	var env wireEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}
	switch {
	case env.Movie != nil:
		*e = Extra{Kind: Movie, Metadata: env.Movie.Metadata}
	case env.Series != nil:
		*e = Extra{Kind: Series, Metadata: env.Series.Metadata, FileMapping: series.FileMapping(env.Series.FilesMapping)}
	default:
		return fmt.Errorf("torrentextra: neither Movie nor Series tag present")
	}
	return nil
}

// Encode serializes extra to JSON and base64url-encodes the result, for
// storage in a torrent's category field.
func Encode(extra Extra) (string, error) {
	data, err := json.Marshal(extra)
	if err != nil {
		return "", fmt.Errorf("torrentextra: marshal: %w", err)
	}
	return base64.URLEncoding.EncodeToString(data), nil
}

// Decode reverses Encode. Decode failures (bad base64, invalid JSON, or a
// shape matching neither variant) are reported distinctly so callers can
// treat the torrent as having no usable extra.
func Decode(category string) (Extra, error) {
	data, err := base64.URLEncoding.DecodeString(category)
	if err != nil {
		return Extra{}, fmt.Errorf("torrentextra: base64 decode: %w", err)
	}
	var e Extra
	if err := json.Unmarshal(data, &e); err != nil {
		return Extra{}, fmt.Errorf("torrentextra: json decode: %w", err)
	}
	return e, nil
}
