package model

import (
	"encoding/json"
	"fmt"
	"iter"
	"log/slog"
)

// Album is an ordered list of songs, in the order the source lists them.
type Album struct {
	title  string
	artist string
	year   int
	songs  []Song
}

// Option configures the construction of an Album or a Discography.
type Option func(*buildOptions)

type buildOptions struct {
	logger *slog.Logger
}

// WithLogger sets the logger that reports title collisions.
func WithLogger(logger *slog.Logger) Option {
	return func(o *buildOptions) {
		o.logger = logger
	}
}

func newBuildOptions(opts []Option) buildOptions {
	o := buildOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// NewAlbum creates an Album. Year is 0 when the release year is unknown.
//
// Each song's Artist and Album fields are rewritten to match the album, and
// songs whose title was already seen are dropped; the first one wins and the
// collision is logged.
func NewAlbum(title, artist string, year int, songs []Song, opts ...Option) *Album {
	o := newBuildOptions(opts)

	seen := make(map[string]bool, len(songs))
	kept := make([]Song, 0, len(songs))
	for _, s := range songs {
		if seen[s.Title] {
			o.logger.Warn("duplicate song title dropped",
				"artist", artist,
				"album", title,
				"song", s.Title,
			)
			continue
		}
		seen[s.Title] = true
		s.Artist = artist
		s.Album = title
		kept = append(kept, s)
	}

	return &Album{
		title:  title,
		artist: artist,
		year:   year,
		songs:  kept,
	}
}

// Title returns the album title.
func (a *Album) Title() string { return a.title }

// Artist returns the album artist.
func (a *Album) Artist() string { return a.artist }

// Year returns the release year, or 0 when unknown.
func (a *Album) Year() int { return a.year }

// Len returns the number of songs.
func (a *Album) Len() int { return len(a.songs) }

// At returns the i-th song. Negative indices address from the end.
func (a *Album) At(i int) (Song, bool) {
	return at(a.songs, i)
}

// Slice returns songs[start:end]. Negative bounds address from the end and
// out-of-range bounds are clamped.
func (a *Album) Slice(start, end int) []Song {
	return slice(a.songs, start, end)
}

// Songs returns a copy of all songs in listing order.
func (a *Album) Songs() []Song {
	return slice(a.songs, 0, len(a.songs))
}

// All iterates over the songs in listing order.
func (a *Album) All() iter.Seq2[int, Song] {
	return func(yield func(int, Song) bool) {
		for i, s := range a.songs {
			if !yield(i, s) {
				return
			}
		}
	}
}

// Backward iterates over the songs from last to first.
func (a *Album) Backward() iter.Seq2[int, Song] {
	return func(yield func(int, Song) bool) {
		for i := len(a.songs) - 1; i >= 0; i-- {
			if !yield(i, a.songs[i]) {
				return
			}
		}
	}
}

// Song returns the song with the given title.
func (a *Album) Song(title string) (Song, bool) {
	for _, s := range a.songs {
		if s.Title == title {
			return s, true
		}
	}
	return Song{}, false
}

// LyricsCount returns how many songs have lyrics.
func (a *Album) LyricsCount() int {
	n := 0
	for _, s := range a.songs {
		if s.HasLyrics() {
			n++
		}
	}
	return n
}

// withArtist returns a copy of the album attributed to artist.
func (a *Album) withArtist(artist string) *Album {
	if a.artist == artist {
		return a
	}
	songs := make([]Song, len(a.songs))
	for i, s := range a.songs {
		s.Artist = artist
		songs[i] = s
	}
	return &Album{title: a.title, artist: artist, year: a.year, songs: songs}
}

// String implements fmt.Stringer.
func (a *Album) String() string {
	return fmt.Sprintf("Album(%s, %s)", a.title, a.artist)
}

type albumJSON struct {
	Title  string `json:"title"`
	Artist string `json:"artist"`
	Year   int    `json:"year,omitempty"`
	Songs  []Song `json:"songs"`
}

// MarshalJSON implements json.Marshaler.
func (a *Album) MarshalJSON() ([]byte, error) {
	return json.Marshal(albumJSON{
		Title:  a.title,
		Artist: a.artist,
		Year:   a.year,
		Songs:  a.Songs(),
	})
}

func (*Album) isResult() {}
