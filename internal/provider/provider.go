package provider

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"golang.org/x/net/html"

	"github.com/nao1215/lyricsmaster/internal/model"
	"github.com/nao1215/lyricsmaster/internal/transport"
)

// Provider is one lyrics source.
type Provider interface {
	// Name returns the display name of the source.
	Name() string

	// ListAlbums returns the artist's albums in source listing order.
	// An artist the source does not know yields an empty slice and a nil
	// error; an error means the index could not be read.
	ListAlbums(ctx context.Context, artist string) ([]AlbumRef, error)

	// ListSongs returns the songs of album in listing order. When the index
	// page already listed them, no request is made.
	ListSongs(ctx context.Context, album AlbumRef) ([]SongRef, error)

	// ParseLyrics extracts the lyrics from a song page. A page without a
	// lyrics block yields an error wrapping model.ErrParse, and a page that
	// says the song is missing yields one wrapping model.ErrNotFound.
	ParseLyrics(page []byte) (Lyrics, error)
}

// AlbumReader is implemented by providers whose index lacks album details
// such as the release year. ReadAlbum returns album with Year and Songs
// filled in from the album page. Callers that know about it use it instead
// of ListSongs, so only albums that are actually fetched cost a request.
type AlbumReader interface {
	ReadAlbum(ctx context.Context, album AlbumRef) (AlbumRef, error)
}

// ReadAlbum completes album with p, using AlbumReader when p implements it
// and ListSongs otherwise.
func ReadAlbum(ctx context.Context, p Provider, album AlbumRef) (AlbumRef, error) {
	if r, ok := p.(AlbumReader); ok {
		return r.ReadAlbum(ctx, album)
	}
	songs, err := p.ListSongs(ctx, album)
	if err != nil {
		return album, err
	}
	album.Songs = songs
	return album, nil
}

// Fetcher downloads pages. *transport.Client satisfies it.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*transport.Page, error)
}

// AlbumRef is an album as listed on the artist index.
type AlbumRef struct {
	Title string
	URL   string

	// Year is the release year, or 0 when the source does not give one.
	Year int

	// Songs is set when the index page already lists the tracks.
	Songs []SongRef
}

// SongRef is a song link on an album listing.
type SongRef struct {
	Title string

	// URL is empty when the source lists the song without a lyrics page.
	URL string
}

// Lyrics is the content of a song page.
type Lyrics struct {
	Text    string
	Writers string
}

// Option configures a provider.
type Option func(*options)

type options struct {
	baseURL   string
	searchURL string
	logger    *slog.Logger
}

// WithBaseURL points the provider at another host, such as a test server.
// Search endpoints move along with it unless WithSearchURL is given.
func WithBaseURL(baseURL string) Option {
	return func(o *options) {
		o.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithSearchURL overrides the search endpoint of providers that resolve
// artists through a search page. The query is appended to it.
func WithSearchURL(searchURL string) Option {
	return func(o *options) {
		o.searchURL = searchURL
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// base holds what every variant shares.
type base struct {
	name      string
	fetcher   Fetcher
	baseURL   string
	searchURL string
	logger    *slog.Logger
}

// newBase applies opts. searchPath is appended to an overridden base URL
// when no search URL is given; defaultSearch is used otherwise.
func newBase(name, defaultBase, defaultSearch, searchPath string, fetcher Fetcher, opts []Option) base {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	b := base{
		name:      name,
		fetcher:   fetcher,
		baseURL:   defaultBase,
		searchURL: defaultSearch,
		logger:    o.logger,
	}
	if o.baseURL != "" {
		b.baseURL = o.baseURL
		if searchPath != "" {
			b.searchURL = o.baseURL + searchPath
		}
	}
	if o.searchURL != "" {
		b.searchURL = o.searchURL
	}
	return b
}

// Name returns the display name.
func (b *base) Name() string {
	return b.name
}

// document is a fetched and parsed page.
type document struct {
	url  string
	page *transport.Page
	root *html.Node
}

func (b *base) fetchDocument(ctx context.Context, rawURL string) (*document, error) {
	page, err := b.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	root, err := parseHTML(page.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", model.ErrParse, rawURL, err)
	}
	return &document{url: rawURL, page: page, root: root}, nil
}

// resolve turns href into an absolute URL relative to the page it was found
// on. Links that cannot be parsed resolve to "".
func (d *document) resolve(href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	pageURL, err := url.Parse(d.url)
	if err != nil {
		return ""
	}
	return pageURL.ResolveReference(ref).String()
}

func parseError(provider, what string) error {
	return fmt.Errorf("%w: %s: %s not found", model.ErrParse, provider, what)
}

func notFoundError(provider string) error {
	return fmt.Errorf("%w: %s has no lyrics on this page", model.ErrNotFound, provider)
}
