package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nao1215/lyricsmaster/internal/model"
	"github.com/nao1215/lyricsmaster/internal/provider"
	"github.com/nao1215/lyricsmaster/internal/transport"
)

// songServer serves "lyrics of <path>" for every path, except /fail which
// always answers 500 and /slow/N which waits N milliseconds first. It logs
// every request path together with rotations, in arrival order.
type songServer struct {
	*httptest.Server

	mu     sync.Mutex
	events []string
}

func newSongServer(t *testing.T) *songServer {
	t.Helper()

	s := &songServer{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.record(r.URL.Path)
		if r.URL.Path == "/fail" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		var delay int
		if _, err := fmt.Sscanf(r.URL.Path, "/slow/%d", &delay); err == nil {
			time.Sleep(time.Duration(delay) * time.Millisecond)
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		fmt.Fprintf(w, "lyrics of %s", r.URL.Path)
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *songServer) record(event string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

func (s *songServer) log() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.events...)
}

func (s *songServer) requests() int {
	n := 0
	for _, e := range s.log() {
		if strings.HasPrefix(e, "/") {
			n++
		}
	}
	return n
}

// fakeProvider lists fixed albums. Song pages are plain text and become the
// lyrics verbatim.
type fakeProvider struct {
	albums    []provider.AlbumRef
	songs     map[string][]provider.SongRef
	indexErr  error
	songsErrs map[string]error

	mu         sync.Mutex
	indexCalls int
}

func (p *fakeProvider) Name() string { return "Fake" }

func (p *fakeProvider) ListAlbums(_ context.Context, _ string) ([]provider.AlbumRef, error) {
	p.mu.Lock()
	p.indexCalls++
	p.mu.Unlock()
	if p.indexErr != nil {
		return nil, p.indexErr
	}
	return p.albums, nil
}

func (p *fakeProvider) ListSongs(_ context.Context, album provider.AlbumRef) ([]provider.SongRef, error) {
	if err := p.songsErrs[album.Title]; err != nil {
		return nil, err
	}
	return p.songs[album.Title], nil
}

func (p *fakeProvider) ParseLyrics(page []byte) (provider.Lyrics, error) {
	if len(page) == 0 {
		return provider.Lyrics{}, fmt.Errorf("%w: empty page", model.ErrParse)
	}
	return provider.Lyrics{Text: string(page), Writers: "Fake Writer"}, nil
}

func (p *fakeProvider) calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.indexCalls
}

// twoAlbums returns a provider with albums "First" (three songs) and
// "Second" (one song) served by srv.
func twoAlbums(srv *songServer) *fakeProvider {
	return &fakeProvider{
		albums: []provider.AlbumRef{
			{Title: "First", Year: 2001},
			{Title: "Second", Year: 2003},
		},
		songs: map[string][]provider.SongRef{
			"First": {
				{Title: "One", URL: srv.URL + "/first/one"},
				{Title: "Two", URL: srv.URL + "/first/two"},
				{Title: "Three", URL: srv.URL + "/first/three"},
			},
			"Second": {
				{Title: "Four", URL: srv.URL + "/second/four"},
			},
		},
	}
}

func newTestFetcher(t *testing.T) *transport.Client {
	t.Helper()

	client, err := transport.NewClient(transport.WithRetryBackoff(time.Millisecond))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return client
}

// fakeRotator records every rotation in the server log.
type fakeRotator struct {
	srv      *songServer
	delay    time.Duration
	err      error
	readyErr error

	mu    sync.Mutex
	count int
}

func (r *fakeRotator) Rotate(_ context.Context) error {
	r.mu.Lock()
	r.count++
	n := r.count
	r.mu.Unlock()

	time.Sleep(r.delay)
	if r.srv != nil {
		r.srv.record(fmt.Sprintf("rotate %d", n))
	}
	return r.err
}

func (r *fakeRotator) Ready() error { return r.readyErr }

type countingCloser struct {
	mu    sync.Mutex
	count int
}

func (c *countingCloser) CloseIdleConnections() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.count++
}

type mapCache map[model.SongKey]model.Song

func (c mapCache) Lookup(_ context.Context, _ string, key model.SongKey) (model.Song, bool, error) {
	s, ok := c[key]
	return s, ok, nil
}

func mustDiscography(t *testing.T, result model.Result) *model.Discography {
	t.Helper()

	d, ok := result.(*model.Discography)
	if !ok {
		t.Fatalf("result is %T, expected *model.Discography", result)
	}
	return d
}

// TestGetLyricsEndToEnd tests a full discography fetch.
func TestGetLyricsEndToEnd(t *testing.T) {
	t.Parallel()

	srv := newSongServer(t)
	d := NewDispatcher(twoAlbums(srv), newTestFetcher(t), WithWorkers(2))

	result, report, err := d.GetLyrics(context.Background(), Request{Artist: "Band"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	disco := mustDiscography(t, result)

	if disco.Artist() != "Band" || disco.Len() != 2 {
		t.Fatalf("discography = %v", disco)
	}
	first, _ := disco.At(0)
	second, _ := disco.At(1)
	if first.Title() != "First" || first.Len() != 3 || first.Year() != 2001 {
		t.Errorf("first album = %v", first)
	}
	if second.Title() != "Second" || second.Len() != 1 {
		t.Errorf("second album = %v", second)
	}

	song, _ := first.At(1)
	if song.Title != "Two" || song.Lyrics != "lyrics of /first/two" || song.Writers != "Fake Writer" {
		t.Errorf("song = %+v", song)
	}
	if song.Artist != "Band" || song.Album != "First" {
		t.Errorf("song belongs to %q / %q", song.Artist, song.Album)
	}

	if report.AlbumsListed != 2 || report.AlbumsFetched != 2 || report.SongsFetched != 4 {
		t.Errorf("report = %+v", report)
	}
	if len(report.Failures) != 0 || report.Failed() {
		t.Errorf("unexpected failures: %v", report.Failures)
	}
	if report.Provider != "Fake" {
		t.Errorf("Provider = %q", report.Provider)
	}
}

// TestGetLyricsWithLyricWiki runs the dispatcher against a LyricWiki page
// served by a local server.
func TestGetLyricsWithLyricWiki(t *testing.T) {
	t.Parallel()

	pages := map[string]string{
		"/wiki/Band": `<html><body>
<h2><span class="mw-headline" id="First_.282001.29">First (2001)</span></h2>
<ol>
<li><a href="/wiki/Band:One" title="Band:One">One</a></li>
<li><a href="/wiki/Band:Two" title="Band:Two">Two</a></li>
<li><a href="/wiki/Band:Three" title="Band:Three">Three</a></li>
</ol>
<h2><span class="mw-headline" id="Second_.282003.29">Second (2003)</span></h2>
<ol><li><a href="/wiki/Band:Four" title="Band:Four">Four</a></li></ol>
</body></html>`,
	}
	for _, title := range []string{"One", "Two", "Three", "Four"} {
		pages["/wiki/Band:"+title] = `<html><body><div class="lyricbox">` + title + ` verse<br>` + title + ` chorus</div></body></html>`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := pages[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		fmt.Fprint(w, body)
	}))
	defer srv.Close()

	fetcher := newTestFetcher(t)
	d := NewDispatcher(provider.NewLyricWiki(fetcher, provider.WithBaseURL(srv.URL)), fetcher)

	result, report, err := d.GetLyrics(context.Background(), Request{Artist: "Band"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	disco := mustDiscography(t, result)
	if disco.Len() != 2 || disco.SongCount() != 4 {
		t.Fatalf("discography = %v", disco)
	}
	album, _ := disco.At(-1)
	song, _ := album.At(0)
	if album.Year() != 2003 || song.Lyrics != "Four verse\nFour chorus" {
		t.Errorf("last album = %v, song = %+v", album, song)
	}
	if report.SongsFetched != 4 {
		t.Errorf("SongsFetched = %d, expected 4", report.SongsFetched)
	}
}

// TestGetLyricsUnknownArtist tests that an unknown artist yields an empty
// discography and a failed report.
func TestGetLyricsUnknownArtist(t *testing.T) {
	t.Parallel()

	d := NewDispatcher(&fakeProvider{}, newTestFetcher(t))

	result, report, err := d.GetLyrics(context.Background(), Request{Artist: "Nobody"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if disco := mustDiscography(t, result); disco.Len() != 0 {
		t.Errorf("expected zero albums, got %d", disco.Len())
	}
	if !report.Failed() {
		t.Error("expected the report to be failed")
	}
	if len(report.Failures) != 1 || !errors.Is(report.Failures[0].Err, model.ErrNotFound) {
		t.Errorf("failures = %v", report.Failures)
	}
}

// TestGetLyricsIndexError tests that an unreadable artist index is reported
// and not returned.
func TestGetLyricsIndexError(t *testing.T) {
	t.Parallel()

	indexErr := fmt.Errorf("%w: index timed out", model.ErrTransientNetwork)
	d := NewDispatcher(&fakeProvider{indexErr: indexErr}, newTestFetcher(t))

	result, report, err := d.GetLyrics(context.Background(), Request{Artist: "Band"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if disco := mustDiscography(t, result); disco.Len() != 0 {
		t.Errorf("expected zero albums, got %d", disco.Len())
	}
	if len(report.Failures) != 1 || report.Failures[0].Kind() != model.ErrTransientNetwork {
		t.Errorf("failures = %v", report.Failures)
	}
}

// TestGetLyricsSongFailure tests that a song failing twice with 500 keeps
// its place with empty lyrics while its siblings are populated.
func TestGetLyricsSongFailure(t *testing.T) {
	t.Parallel()

	srv := newSongServer(t)
	p := twoAlbums(srv)
	p.songs["First"][1].URL = srv.URL + "/fail"
	d := NewDispatcher(p, newTestFetcher(t))

	result, report, err := d.GetLyrics(context.Background(), Request{Artist: "Band"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	first, _ := mustDiscography(t, result).At(0)
	if first.Len() != 3 {
		t.Fatalf("failed song was dropped: %v", first.Songs())
	}
	for i, s := range first.Songs() {
		if s.HasLyrics() == (i == 1) {
			t.Errorf("song %d (%s) HasLyrics() = %v", i, s.Title, s.HasLyrics())
		}
	}

	fails := 0
	for _, e := range srv.log() {
		if e == "/fail" {
			fails++
		}
	}
	if fails != 2 {
		t.Errorf("failing page requested %d times, expected 2", fails)
	}

	if len(report.Failures) != 1 {
		t.Fatalf("failures = %v", report.Failures)
	}
	f := report.Failures[0]
	if f.Album != "First" || f.Song != "Two" || f.Kind() != model.ErrTransientNetwork {
		t.Errorf("failure = %+v", f)
	}
	if report.SongsFetched != 3 || report.Failed() {
		t.Errorf("report = %+v", report)
	}
	if got := report.CountByKind()[model.ErrTransientNetwork]; got != 1 {
		t.Errorf("CountByKind()[transient] = %d, expected 1", got)
	}
}

// TestGetLyricsMissingSongs covers songs without a page and albums whose
// song list cannot be read.
func TestGetLyricsMissingSongs(t *testing.T) {
	t.Parallel()

	srv := newSongServer(t)
	p := twoAlbums(srv)
	p.songs["First"][0].URL = ""
	p.songsErrs = map[string]error{"Second": fmt.Errorf("%w: no track list", model.ErrParse)}
	d := NewDispatcher(p, newTestFetcher(t), WithSequentialAlbums())

	result, report, err := d.GetLyrics(context.Background(), Request{Artist: "Band"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	disco := mustDiscography(t, result)
	first, _ := disco.At(0)
	second, _ := disco.At(1)

	if song, _ := first.At(0); song.Title != "One" || song.HasLyrics() {
		t.Errorf("song without page = %+v", song)
	}
	if second.Title() != "Second" || second.Len() != 0 {
		t.Errorf("album with unreadable song list = %v", second)
	}
	if report.AlbumsFetched != 1 {
		t.Errorf("AlbumsFetched = %d, expected 1", report.AlbumsFetched)
	}

	kinds := report.CountByKind()
	if kinds[model.ErrNotFound] != 1 || kinds[model.ErrParse] != 1 {
		t.Errorf("CountByKind() = %v", kinds)
	}
}

// TestGetLyricsDeterministic tests that song order does not depend on the
// number of workers or on response timing.
func TestGetLyricsDeterministic(t *testing.T) {
	t.Parallel()

	srv := newSongServer(t)
	p := &fakeProvider{
		albums: []provider.AlbumRef{{Title: "Only"}},
		songs:  map[string][]provider.SongRef{"Only": {}},
	}
	var want []string
	for i := range 8 {
		title := fmt.Sprintf("Song %d", i)
		want = append(want, title)
		p.songs["Only"] = append(p.songs["Only"], provider.SongRef{
			Title: title,
			URL:   fmt.Sprintf("%s/slow/%d", srv.URL, (8-i)*5),
		})
	}

	for _, workers := range []int{1, 2, 8} {
		t.Run(fmt.Sprintf("%d workers", workers), func(t *testing.T) {
			t.Parallel()

			d := NewDispatcher(p, newTestFetcher(t), WithWorkers(workers))
			result, _, err := d.GetLyrics(context.Background(), Request{Artist: "Band"})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			album, _ := mustDiscography(t, result).At(0)

			var got []string
			for _, s := range album.All() {
				got = append(got, s.Title)
			}
			if strings.Join(got, ",") != strings.Join(want, ",") {
				t.Errorf("order = %v, expected %v", got, want)
			}
		})
	}
}

// TestGetLyricsRotationBarrier tests that every album starts with a
// completed rotation and that no song of an album is requested before it.
func TestGetLyricsRotationBarrier(t *testing.T) {
	t.Parallel()

	srv := newSongServer(t)
	rotator := &fakeRotator{srv: srv, delay: 30 * time.Millisecond}
	closer := &countingCloser{}
	d := NewDispatcher(twoAlbums(srv), newTestFetcher(t),
		WithRotator(rotator),
		WithIdleCloser(closer),
		WithWorkers(8),
	)

	_, report, err := d.GetLyrics(context.Background(), Request{Artist: "Band"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	events := srv.log()
	if len(events) != 6 {
		t.Fatalf("events = %v", events)
	}
	if events[0] != "rotate 1" || events[4] != "rotate 2" {
		t.Fatalf("rotations out of place: %v", events)
	}
	for _, e := range events[1:4] {
		if !strings.HasPrefix(e, "/first/") {
			t.Errorf("request %q between the first and second rotation", e)
		}
	}
	if events[5] != "/second/four" {
		t.Errorf("request %q after the second rotation", events[5])
	}

	if report.Rotations != 2 {
		t.Errorf("Rotations = %d, expected 2", report.Rotations)
	}
	if closer.count != 2 {
		t.Errorf("idle connections closed %d times, expected 2", closer.count)
	}
}

// TestGetLyricsRotationFailure tests that a failed rotation is recorded and
// the album is fetched anyway.
func TestGetLyricsRotationFailure(t *testing.T) {
	t.Parallel()

	srv := newSongServer(t)
	rotator := &fakeRotator{err: errors.New("551 NEWNYM refused")}
	d := NewDispatcher(twoAlbums(srv), newTestFetcher(t), WithRotator(rotator))

	result, report, err := d.GetLyrics(context.Background(), Request{Artist: "Band"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := mustDiscography(t, result).SongCount(); got != 4 {
		t.Errorf("SongCount() = %d, expected 4", got)
	}
	if report.Rotations != 0 || report.SongsFetched != 4 {
		t.Errorf("report = %+v", report)
	}
	if got := report.CountByKind()[model.ErrRotation]; got != 2 {
		t.Errorf("rotation failures = %d, expected 2", got)
	}
}

// TestGetLyricsConfigurationErrors tests the errors GetLyrics returns
// before any network activity.
func TestGetLyricsConfigurationErrors(t *testing.T) {
	t.Parallel()

	notConnected := fmt.Errorf("%w: not connected", model.ErrConfiguration)

	tests := []struct {
		name string
		d    func(t *testing.T, p *fakeProvider) *Dispatcher
		req  Request
		want error
	}{
		{
			name: "empty artist",
			d: func(t *testing.T, p *fakeProvider) *Dispatcher {
				return NewDispatcher(p, newTestFetcher(t))
			},
			req:  Request{Artist: "  "},
			want: ErrNoArtist,
		},
		{
			name: "no provider",
			d: func(t *testing.T, _ *fakeProvider) *Dispatcher {
				return NewDispatcher(nil, newTestFetcher(t))
			},
			req:  Request{Artist: "Band"},
			want: ErrNoProvider,
		},
		{
			name: "no fetcher",
			d: func(t *testing.T, p *fakeProvider) *Dispatcher {
				t.Helper()
				return NewDispatcher(p, nil)
			},
			req:  Request{Artist: "Band"},
			want: ErrNoFetcher,
		},
		{
			name: "rotator not connected",
			d: func(t *testing.T, p *fakeProvider) *Dispatcher {
				return NewDispatcher(p, newTestFetcher(t), WithRotator(&fakeRotator{readyErr: notConnected}))
			},
			req:  Request{Artist: "Band"},
			want: notConnected,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p := &fakeProvider{}
			result, report, err := tt.d(t, p).GetLyrics(context.Background(), tt.req)
			if !errors.Is(err, tt.want) || !errors.Is(err, model.ErrConfiguration) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
			if result != nil || report != nil {
				t.Errorf("expected no result, got %v, %v", result, report)
			}
			if p.calls() != 0 {
				t.Error("the artist index was read despite a configuration error")
			}
		})
	}
}

// TestGetLyricsScope tests that the result type narrows with the scope.
func TestGetLyricsScope(t *testing.T) {
	t.Parallel()

	srv := newSongServer(t)
	d := NewDispatcher(twoAlbums(srv), newTestFetcher(t))

	t.Run("album", func(t *testing.T) {
		t.Parallel()

		result, report, err := d.GetLyrics(context.Background(), Request{Artist: "Band", Album: "sec"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		album, ok := result.(*model.Album)
		if !ok {
			t.Fatalf("result is %T, expected *model.Album", result)
		}
		if album.Title() != "Second" || album.Len() != 1 || album.LyricsCount() != 1 {
			t.Errorf("album = %v", album)
		}
		if report.AlbumsListed != 1 {
			t.Errorf("AlbumsListed = %d, expected 1", report.AlbumsListed)
		}
	})

	t.Run("album not found", func(t *testing.T) {
		t.Parallel()

		result, report, err := d.GetLyrics(context.Background(), Request{Artist: "Band", Album: "Third"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		album, ok := result.(*model.Album)
		if !ok {
			t.Fatalf("result is %T, expected *model.Album", result)
		}
		if album.Title() != "Third" || album.Len() != 0 {
			t.Errorf("album = %v", album)
		}
		if !report.Failed() || report.CountByKind()[model.ErrNotFound] != 1 {
			t.Errorf("report = %+v", report)
		}
	})

	t.Run("song", func(t *testing.T) {
		t.Parallel()

		result, _, err := d.GetLyrics(context.Background(), Request{Artist: "Band", Song: "THREE"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		song, ok := result.(*model.Song)
		if !ok {
			t.Fatalf("result is %T, expected *model.Song", result)
		}
		if song.Title != "Three" || song.Album != "First" || song.Lyrics != "lyrics of /first/three" {
			t.Errorf("song = %+v", song)
		}
	})

	t.Run("exact song title wins over a substring", func(t *testing.T) {
		t.Parallel()

		p := twoAlbums(srv)
		p.songs["First"][0].Title = "One More Time"
		p.songs["Second"][0].Title = "One"
		result, _, err := NewDispatcher(p, newTestFetcher(t)).GetLyrics(context.Background(), Request{Artist: "Band", Song: "one"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if song := result.(*model.Song); song.Title != "One" || song.Album != "Second" {
			t.Errorf("song = %+v", song)
		}
	})

	t.Run("song within album", func(t *testing.T) {
		t.Parallel()

		result, _, err := d.GetLyrics(context.Background(), Request{Artist: "Band", Album: "First", Song: "two"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if song, ok := result.(*model.Song); !ok || song.Title != "Two" {
			t.Errorf("result = %v", result)
		}
	})

	t.Run("song not found", func(t *testing.T) {
		t.Parallel()

		result, report, err := d.GetLyrics(context.Background(), Request{Artist: "Band", Song: "Five"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		song, ok := result.(*model.Song)
		if !ok {
			t.Fatalf("result is %T, expected *model.Song", result)
		}
		if song.Title != "Five" || song.HasLyrics() {
			t.Errorf("song = %+v", song)
		}
		if report.CountByKind()[model.ErrNotFound] != 1 {
			t.Errorf("failures = %v", report.Failures)
		}
	})
}

// TestGetLyricsCache tests that cached songs skip the network.
func TestGetLyricsCache(t *testing.T) {
	t.Parallel()

	srv := newSongServer(t)
	cache := mapCache{
		{Artist: "Band", Album: "First", Title: "One"}: {Title: "One", Lyrics: "cached words", Writers: "Someone"},
		{Artist: "Band", Album: "First", Title: "Two"}: {Title: "Two"},
	}
	d := NewDispatcher(twoAlbums(srv), newTestFetcher(t), WithCache(cache))

	result, report, err := d.GetLyrics(context.Background(), Request{Artist: "Band", Album: "First"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	album := result.(*model.Album)
	if song, _ := album.At(0); song.Lyrics != "cached words" || song.Writers != "Someone" || song.Album != "First" {
		t.Errorf("cached song = %+v", song)
	}
	if srv.requests() != 2 {
		t.Errorf("made %d requests, expected 2", srv.requests())
	}
	if report.CachedSongs != 1 || report.SongsFetched != 3 {
		t.Errorf("report = %+v", report)
	}
}

// TestGetLyricsCanceled tests that a canceled fetch keeps every album node.
func TestGetLyricsCanceled(t *testing.T) {
	t.Parallel()

	srv := newSongServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d := NewDispatcher(twoAlbums(srv), newTestFetcher(t))
	result, report, err := d.GetLyrics(ctx, Request{Artist: "Band"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if disco := mustDiscography(t, result); disco.Len() != 2 {
		t.Errorf("expected both albums, got %v", disco)
	}
	if srv.requests() != 0 {
		t.Errorf("made %d requests after cancellation", srv.requests())
	}
	if len(report.Failures) != 2 || !errors.Is(report.Failures[0].Err, context.Canceled) {
		t.Errorf("failures = %v", report.Failures)
	}
}

// TestNewDispatcher tests option handling.
func TestNewDispatcher(t *testing.T) {
	t.Parallel()

	fetcher := newTestFetcher(t)

	d := NewDispatcher(&fakeProvider{}, fetcher, WithWorkers(0))
	if d.workers != DefaultWorkers {
		t.Errorf("workers = %d, expected %d", d.workers, DefaultWorkers)
	}
	if d.idleCloser != fetcher {
		t.Error("expected the fetcher to be used as idle closer")
	}
	if d.logger == nil {
		t.Error("expected a default logger")
	}

	d = NewDispatcher(&fakeProvider{}, fetcher, WithWorkers(3), WithSequentialAlbums())
	if d.workers != 3 || !d.sequential {
		t.Errorf("options not applied: workers=%d sequential=%v", d.workers, d.sequential)
	}
}

// inflightFetcher answers every URL after a short pause and records the
// highest number of calls it served at once.
type inflightFetcher struct {
	mu       sync.Mutex
	inflight int
	peak     int
}

func (f *inflightFetcher) Fetch(_ context.Context, url string) (*transport.Page, error) {
	f.mu.Lock()
	f.inflight++
	f.peak = max(f.peak, f.inflight)
	f.mu.Unlock()

	time.Sleep(5 * time.Millisecond)

	f.mu.Lock()
	f.inflight--
	f.mu.Unlock()
	return &transport.Page{URL: url, StatusCode: http.StatusOK, Body: []byte("lyrics of " + url)}, nil
}

func (f *inflightFetcher) maxInflight() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.peak
}

// TestGetLyricsWorkerLimitSpansAlbums tests that albums fetched in parallel
// share one worker limit.
func TestGetLyricsWorkerLimitSpansAlbums(t *testing.T) {
	t.Parallel()

	p := &fakeProvider{songs: map[string][]provider.SongRef{}}
	for a := range 4 {
		title := fmt.Sprintf("Album %d", a)
		p.albums = append(p.albums, provider.AlbumRef{Title: title})
		for s := range 3 {
			p.songs[title] = append(p.songs[title], provider.SongRef{
				Title: fmt.Sprintf("Song %d", s),
				URL:   fmt.Sprintf("http://lyrics.test/%d/%d", a, s),
			})
		}
	}

	for _, workers := range []int{1, 2, 5} {
		t.Run(fmt.Sprintf("%d workers", workers), func(t *testing.T) {
			t.Parallel()

			fetcher := &inflightFetcher{}
			d := NewDispatcher(p, fetcher, WithWorkers(workers))
			result, report, err := d.GetLyrics(context.Background(), Request{Artist: "Band"})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := fetcher.maxInflight(); got > workers {
				t.Errorf("peak concurrent fetches = %d, expected at most %d", got, workers)
			}
			if report.SongsFetched != 12 {
				t.Errorf("SongsFetched = %d, expected 12", report.SongsFetched)
			}
			if n := mustDiscography(t, result).SongCount(); n != 12 {
				t.Errorf("SongCount() = %d, expected 12", n)
			}
		})
	}
}

// readingProvider learns years and tracks only from album pages, and counts
// how many album pages it read.
type readingProvider struct {
	*fakeProvider

	readMu sync.Mutex
	reads  []string
}

func (p *readingProvider) ReadAlbum(_ context.Context, album provider.AlbumRef) (provider.AlbumRef, error) {
	p.readMu.Lock()
	p.reads = append(p.reads, album.Title)
	p.readMu.Unlock()

	album.Year = 2012
	album.Songs = p.songs[album.Title]
	return album, nil
}

func (p *readingProvider) albumReads() []string {
	p.readMu.Lock()
	defer p.readMu.Unlock()
	return append([]string(nil), p.reads...)
}

// TestGetLyricsReadsOnlyScopedAlbums tests that album details come from the
// album reader, and only for albums inside the scope.
func TestGetLyricsReadsOnlyScopedAlbums(t *testing.T) {
	t.Parallel()

	srv := newSongServer(t)
	p := &readingProvider{fakeProvider: twoAlbums(srv)}

	d := NewDispatcher(p, newTestFetcher(t))
	result, _, err := d.GetLyrics(context.Background(), Request{Artist: "Band", Album: "second"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	album, ok := result.(*model.Album)
	if !ok {
		t.Fatalf("result is %T, expected *model.Album", result)
	}
	if album.Year() != 2012 {
		t.Errorf("Year() = %d, expected 2012", album.Year())
	}
	if album.Len() != 1 {
		t.Errorf("Len() = %d, expected 1", album.Len())
	}
	if reads := p.albumReads(); len(reads) != 1 || reads[0] != "Second" {
		t.Errorf("album pages read = %v, expected [Second]", reads)
	}
}
