package model

import (
	"encoding/json"
	"fmt"
	"iter"
)

// Discography is every album fetched for one artist, in listing order.
type Discography struct {
	artist string
	albums []*Album
}

// NewDiscography creates a Discography. Albums whose title was already seen
// are dropped (first one wins, the collision is logged), and albums credited
// to another artist name are re-attributed to artist.
func NewDiscography(artist string, albums []*Album, opts ...Option) *Discography {
	o := newBuildOptions(opts)

	seen := make(map[string]bool, len(albums))
	kept := make([]*Album, 0, len(albums))
	for _, a := range albums {
		if a == nil {
			continue
		}
		if seen[a.title] {
			o.logger.Warn("duplicate album title dropped",
				"artist", artist,
				"album", a.title,
			)
			continue
		}
		seen[a.title] = true
		kept = append(kept, a.withArtist(artist))
	}

	return &Discography{artist: artist, albums: kept}
}

// Artist returns the artist name.
func (d *Discography) Artist() string { return d.artist }

// Len returns the number of albums.
func (d *Discography) Len() int { return len(d.albums) }

// At returns the i-th album. Negative indices address from the end.
func (d *Discography) At(i int) (*Album, bool) {
	return at(d.albums, i)
}

// Slice returns albums[start:end], clamped like Album.Slice.
func (d *Discography) Slice(start, end int) []*Album {
	return slice(d.albums, start, end)
}

// Albums returns a copy of the album list in listing order.
func (d *Discography) Albums() []*Album {
	return slice(d.albums, 0, len(d.albums))
}

// All iterates over the albums in listing order.
func (d *Discography) All() iter.Seq2[int, *Album] {
	return func(yield func(int, *Album) bool) {
		for i, a := range d.albums {
			if !yield(i, a) {
				return
			}
		}
	}
}

// Backward iterates over the albums from last to first.
func (d *Discography) Backward() iter.Seq2[int, *Album] {
	return func(yield func(int, *Album) bool) {
		for i := len(d.albums) - 1; i >= 0; i-- {
			if !yield(i, d.albums[i]) {
				return
			}
		}
	}
}

// Album returns the album with the given title.
func (d *Discography) Album(title string) (*Album, bool) {
	for _, a := range d.albums {
		if a.title == title {
			return a, true
		}
	}
	return nil, false
}

// SongCount returns the total number of songs across all albums.
func (d *Discography) SongCount() int {
	n := 0
	for _, a := range d.albums {
		n += a.Len()
	}
	return n
}

// String implements fmt.Stringer.
func (d *Discography) String() string {
	return fmt.Sprintf("Discography(%s)", d.artist)
}

// MarshalJSON implements json.Marshaler.
func (d *Discography) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Artist string   `json:"artist"`
		Albums []*Album `json:"albums"`
	}{
		Artist: d.artist,
		Albums: d.Albums(),
	})
}

func (*Discography) isResult() {}
