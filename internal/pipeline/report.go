package pipeline

import (
	"fmt"
	"time"

	"github.com/samber/lo"

	"github.com/nao1215/lyricsmaster/internal/model"
)

// Failure is one thing that went wrong during a fetch. Album and Song are
// empty when the failure is not tied to them, as for the artist index.
type Failure struct {
	Album string
	Song  string
	URL   string
	Err   error
}

// Kind returns the error kind of the failure, such as model.ErrNotFound.
func (f Failure) Kind() error {
	return model.Kind(f.Err)
}

// String implements fmt.Stringer.
func (f Failure) String() string {
	switch {
	case f.Song != "":
		return fmt.Sprintf("%s / %s: %v", f.Album, f.Song, f.Err)
	case f.Album != "":
		return fmt.Sprintf("%s: %v", f.Album, f.Err)
	default:
		return fmt.Sprint(f.Err)
	}
}

// Report summarizes one GetLyrics call.
type Report struct {
	Provider string
	Artist   string

	// Album and Song repeat the requested scope.
	Album string
	Song  string

	// AlbumsListed is the number of albums on the artist index after
	// scope filtering.
	AlbumsListed int

	// AlbumsFetched is the number of albums whose song list loaded.
	AlbumsFetched int

	// SongsFetched is the number of songs that ended up with lyrics,
	// including CachedSongs.
	SongsFetched int

	// CachedSongs is the number of songs served from the cache.
	CachedSongs int

	// Rotations is the number of identity rotations that succeeded.
	Rotations int

	Failures []Failure

	StartedAt time.Time
	Elapsed   time.Duration
}

func newReport(providerName string, req Request) *Report {
	return &Report{
		Provider:  providerName,
		Artist:    req.Artist,
		Album:     req.Album,
		Song:      req.Song,
		Failures:  []Failure{},
		StartedAt: time.Now(),
	}
}

// Failed reports whether no album could be fetched at all, which includes
// an artist the provider does not know.
func (r *Report) Failed() bool {
	return r.AlbumsFetched == 0
}

// CountByKind returns the number of failures per error kind. Failures of
// no known kind are counted under nil.
func (r *Report) CountByKind() map[error]int {
	return lo.CountValuesBy(r.Failures, Failure.Kind)
}

func (r *Report) addFailure(f Failure) {
	r.Failures = append(r.Failures, f)
}

func (r *Report) merge(o albumOutcome) {
	if o.listed {
		r.AlbumsFetched++
	}
	r.SongsFetched += o.songsFetched
	r.CachedSongs += o.cachedSongs
	r.Failures = append(r.Failures, o.failures...)
}
