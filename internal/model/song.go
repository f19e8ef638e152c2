package model

import "fmt"

// Song is one song and its lyrics.
// Lyrics is empty when the page could not be fetched or parsed; the song is
// still present so that the tree mirrors what the source advertised.
type Song struct {
	Title   string `json:"title"`
	Artist  string `json:"artist"`
	Album   string `json:"album"`
	Lyrics  string `json:"lyrics"`
	Writers string `json:"writers,omitempty"`
}

// SongKey identifies a song within a library.
type SongKey struct {
	Artist string
	Album  string
	Title  string
}

// Key returns the identity of the song.
func (s Song) Key() SongKey {
	return SongKey{Artist: s.Artist, Album: s.Album, Title: s.Title}
}

// HasLyrics reports whether lyrics were retrieved for the song.
func (s Song) HasLyrics() bool {
	return s.Lyrics != ""
}

// String implements fmt.Stringer.
func (s Song) String() string {
	return fmt.Sprintf("Song(%s, %s, %s)", s.Title, s.Album, s.Artist)
}

func (Song) isResult() {}
