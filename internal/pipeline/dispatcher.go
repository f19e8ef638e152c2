package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/nao1215/lyricsmaster/internal/model"
	"github.com/nao1215/lyricsmaster/internal/provider"
)

const (
	// DefaultWorkers is the default number of pages fetched at once.
	DefaultWorkers = 25

	// albumWorkers bounds the albums processed at once when no rotation is
	// configured. Their requests share the workers limit.
	albumWorkers = 4
)

// Rotator gives the fetch a fresh network identity. *tor.Controller
// satisfies it.
type Rotator interface {
	Rotate(ctx context.Context) error
}

// readiness is implemented by rotators that can tell, without network
// activity, whether Rotate can work at all.
type readiness interface {
	Ready() error
}

// IdleCloser drops pooled connections so that requests after a rotation use
// new circuits. *transport.Client satisfies it.
type IdleCloser interface {
	CloseIdleConnections()
}

// Cache serves songs fetched earlier. *database.LibraryDB satisfies it.
type Cache interface {
	// Lookup returns the stored song, and false when there is none.
	Lookup(ctx context.Context, providerName string, key model.SongKey) (model.Song, bool, error)
}

// Dispatcher runs lyrics fetches against one provider.
type Dispatcher struct {
	provider   provider.Provider
	fetcher    provider.Fetcher
	workers    int
	rotator    Rotator
	idleCloser IdleCloser
	cache      Cache
	logger     *slog.Logger
	sequential bool
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithWorkers sets the number of pages fetched at once across all albums.
// Non-positive values keep DefaultWorkers.
func WithWorkers(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.workers = n
		}
	}
}

// WithRotator rotates the identity before every album.
func WithRotator(r Rotator) Option {
	return func(d *Dispatcher) {
		d.rotator = r
	}
}

// WithIdleCloser sets what is told to drop connections after a rotation.
// It defaults to the fetcher when the fetcher is an IdleCloser.
func WithIdleCloser(c IdleCloser) Option {
	return func(d *Dispatcher) {
		d.idleCloser = c
	}
}

// WithCache serves songs with stored lyrics without a request.
func WithCache(c Cache) Option {
	return func(d *Dispatcher) {
		d.cache = c
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// WithSequentialAlbums processes one album at a time even when no rotation
// is configured.
func WithSequentialAlbums() Option {
	return func(d *Dispatcher) {
		d.sequential = true
	}
}

// NewDispatcher creates a Dispatcher that reads indexes and lyrics from p and
// downloads song pages with fetcher.
func NewDispatcher(p provider.Provider, fetcher provider.Fetcher, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		provider: p,
		fetcher:  fetcher,
		workers:  DefaultWorkers,
	}
	if c, ok := fetcher.(IdleCloser); ok {
		d.idleCloser = c
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.logger == nil {
		d.logger = slog.Default()
	}
	return d
}

// GetLyrics fetches what req asks for. The result is a *model.Discography,
// a *model.Album or a *model.Song depending on the scope of req.
//
// Only configuration errors are returned, and they are detected before any
// request is sent. Everything else is recorded in the Report and shows up as
// empty content in the result.
func (d *Dispatcher) GetLyrics(ctx context.Context, req Request) (model.Result, *Report, error) {
	if err := d.validate(req); err != nil {
		return nil, nil, err
	}
	req.Artist = strings.TrimSpace(req.Artist)

	report := newReport(d.provider.Name(), req)
	defer func() { report.Elapsed = time.Since(report.StartedAt) }()

	d.logger.Info("fetching lyrics",
		"provider", report.Provider,
		"artist", req.Artist,
		"album", req.Album,
		"song", req.Song,
	)

	refs, err := d.provider.ListAlbums(ctx, req.Artist)
	switch {
	case err != nil:
		d.logger.Warn("artist index unavailable", "artist", req.Artist, "error", err)
		report.addFailure(Failure{Err: fmt.Errorf("artist index: %w", err)})
		refs = nil
	case len(refs) == 0:
		d.logger.Warn("artist not found", "artist", req.Artist)
		report.addFailure(Failure{Err: fmt.Errorf("%w: artist %q", model.ErrNotFound, req.Artist)})
	}

	if req.Album != "" && len(refs) > 0 {
		matched := matchTitles(refs, req.Album, albumTitle)
		if len(matched) == 0 {
			report.addFailure(Failure{
				Album: req.Album,
				Err:   fmt.Errorf("%w: album %q", model.ErrNotFound, req.Album),
			})
		}
		refs = matched[:min(len(matched), 1)]
	}
	report.AlbumsListed = len(refs)

	outcomes := d.fetchAlbums(ctx, req, refs, report, semaphore.NewWeighted(int64(d.workers)))
	albums := make([]*model.Album, len(outcomes))
	for i, o := range outcomes {
		report.merge(o)
		albums[i] = o.album
	}

	d.logger.Info("lyrics fetched",
		"provider", report.Provider,
		"artist", req.Artist,
		"albums", report.AlbumsFetched,
		"songs", report.SongsFetched,
		"failures", len(report.Failures),
	)

	return d.result(req, albums, report), report, nil
}

func (d *Dispatcher) validate(req Request) error {
	if strings.TrimSpace(req.Artist) == "" {
		return ErrNoArtist
	}
	if d.provider == nil {
		return ErrNoProvider
	}
	if d.fetcher == nil {
		return ErrNoFetcher
	}
	if r, ok := d.rotator.(readiness); ok {
		if err := r.Ready(); err != nil {
			return fmt.Errorf("identity rotation: %w", err)
		}
	}
	return nil
}

// fetchAlbums processes albums in listing order. With a rotator the albums
// run strictly one after another, so a rotation always finishes before the
// next album's first song is requested. Every request of the fetch holds a
// slot of limit.
func (d *Dispatcher) fetchAlbums(ctx context.Context, req Request, refs []provider.AlbumRef, report *Report, limit *semaphore.Weighted) []albumOutcome {
	if d.rotator != nil || d.sequential {
		outcomes := make([]albumOutcome, len(refs))
		for i, ref := range refs {
			if d.rotator != nil && d.rotate(ctx, ref, report) {
				report.Rotations++
			}
			outcomes[i] = d.fetchAlbum(ctx, req, ref, limit)
		}
		return outcomes
	}

	return runBatch(ctx, albumWorkers, len(refs), func(ctx context.Context, i int) albumOutcome {
		return d.fetchAlbum(ctx, req, refs[i], limit)
	})
}

// rotate requests a fresh identity before ref is fetched. A failed rotation
// is recorded and the album is fetched anyway.
func (d *Dispatcher) rotate(ctx context.Context, ref provider.AlbumRef, report *Report) bool {
	err := d.rotator.Rotate(ctx)
	if d.idleCloser != nil {
		d.idleCloser.CloseIdleConnections()
	}
	if err != nil {
		if !errors.Is(err, model.ErrRotation) {
			err = fmt.Errorf("%w: %w", model.ErrRotation, err)
		}
		d.logger.Warn("identity rotation failed, continuing with the current identity",
			"album", ref.Title,
			"error", err,
		)
		report.addFailure(Failure{Album: ref.Title, Err: err})
		return false
	}
	d.logger.Debug("identity rotated", "album", ref.Title)
	return true
}

// albumOutcome is the result of one album, merged into the Report in
// listing order.
type albumOutcome struct {
	album        *model.Album
	listed       bool
	songsFetched int
	cachedSongs  int
	failures     []Failure
}

func (d *Dispatcher) fetchAlbum(ctx context.Context, req Request, ref provider.AlbumRef, limit *semaphore.Weighted) albumOutcome {
	out := albumOutcome{}
	fail := func(f Failure) {
		d.logger.Warn("lyrics fetch failed",
			"album", f.Album,
			"song", f.Song,
			"url", f.URL,
			"error", f.Err,
		)
		out.failures = append(out.failures, f)
	}

	if err := ctx.Err(); err != nil {
		fail(Failure{Album: ref.Title, URL: ref.URL, Err: err})
		out.album = d.newAlbum(req, ref, nil)
		return out
	}

	if err := limit.Acquire(ctx, 1); err != nil {
		fail(Failure{Album: ref.Title, URL: ref.URL, Err: err})
		out.album = d.newAlbum(req, ref, nil)
		return out
	}
	read, err := provider.ReadAlbum(ctx, d.provider, ref)
	limit.Release(1)
	if err != nil {
		fail(Failure{Album: ref.Title, URL: ref.URL, Err: fmt.Errorf("song list: %w", err)})
		out.album = d.newAlbum(req, ref, nil)
		return out
	}
	ref = read
	out.listed = true
	songRefs := matchTitles(ref.Songs, req.Song, songTitle)

	d.logger.Debug("fetching album",
		"album", ref.Title,
		"songs", len(songRefs),
		"workers", d.workers,
	)

	results := runBatch(ctx, d.workers, len(songRefs), func(ctx context.Context, i int) songOutcome {
		return d.fetchSong(ctx, req.Artist, ref.Title, songRefs[i], limit)
	})

	songs := make([]model.Song, len(results))
	for i, r := range results {
		songs[i] = r.song
		if r.song.HasLyrics() {
			out.songsFetched++
		}
		if r.cached {
			out.cachedSongs++
		}
		if r.failure != nil {
			fail(*r.failure)
		}
	}
	out.album = d.newAlbum(req, ref, songs)
	return out
}

func (d *Dispatcher) newAlbum(req Request, ref provider.AlbumRef, songs []model.Song) *model.Album {
	return model.NewAlbum(ref.Title, req.Artist, ref.Year, songs, model.WithLogger(d.logger))
}

type songOutcome struct {
	song    model.Song
	cached  bool
	failure *Failure
}

func (d *Dispatcher) fetchSong(ctx context.Context, artist, album string, ref provider.SongRef, limit *semaphore.Weighted) songOutcome {
	song := model.Song{Title: ref.Title, Artist: artist, Album: album}
	failed := func(err error) songOutcome {
		return songOutcome{
			song:    song,
			failure: &Failure{Album: album, Song: ref.Title, URL: ref.URL, Err: err},
		}
	}

	if d.cache != nil {
		cached, ok, err := d.cache.Lookup(ctx, d.provider.Name(), song.Key())
		switch {
		case err != nil:
			d.logger.Debug("cache lookup failed", "song", ref.Title, "error", err)
		case ok && cached.HasLyrics():
			song.Lyrics, song.Writers = cached.Lyrics, cached.Writers
			return songOutcome{song: song, cached: true}
		}
	}

	if err := ctx.Err(); err != nil {
		return failed(err)
	}
	if ref.URL == "" {
		return failed(fmt.Errorf("%w: no lyrics page", model.ErrNotFound))
	}

	if err := limit.Acquire(ctx, 1); err != nil {
		return failed(err)
	}
	page, err := d.fetcher.Fetch(ctx, ref.URL)
	limit.Release(1)
	if err != nil {
		return failed(err)
	}
	if page.NotFound() {
		return failed(fmt.Errorf("%w: %s returned %d", model.ErrNotFound, ref.URL, page.StatusCode))
	}

	lyrics, err := d.provider.ParseLyrics(page.Body)
	if err != nil {
		return failed(err)
	}
	song.Lyrics, song.Writers = lyrics.Text, lyrics.Writers

	d.logger.Debug("song fetched", "album", album, "song", ref.Title)
	return songOutcome{song: song}
}

// result narrows the albums to the requested scope.
func (d *Dispatcher) result(req Request, albums []*model.Album, report *Report) model.Result {
	if !req.scoped() {
		return model.NewDiscography(req.Artist, albums, model.WithLogger(d.logger))
	}

	if req.Song == "" {
		if len(albums) == 0 {
			return model.NewAlbum(req.Album, req.Artist, 0, nil)
		}
		return albums[0]
	}

	var candidates []model.Song
	for _, a := range albums {
		candidates = append(candidates, a.Songs()...)
	}
	if matched := matchTitles(candidates, req.Song, func(s model.Song) string { return s.Title }); len(matched) > 0 {
		song := matched[0]
		return &song
	}

	report.addFailure(Failure{
		Album: req.Album,
		Song:  req.Song,
		Err:   fmt.Errorf("%w: song %q", model.ErrNotFound, req.Song),
	})
	albumName := req.Album
	if len(albums) > 0 {
		albumName = albums[0].Title()
	}
	return &model.Song{Title: req.Song, Artist: req.Artist, Album: albumName}
}

func albumTitle(a provider.AlbumRef) string { return a.Title }

func songTitle(s provider.SongRef) string { return s.Title }
