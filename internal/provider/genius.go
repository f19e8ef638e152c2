package provider

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/nao1215/lyricsmaster/internal/model"
)

const geniusBaseURL = "https://genius.com"

var (
	geniusLower = cases.Lower(language.Und)
	geniusUpper = cases.Upper(language.Und)
)

// Genius reads genius.com. The artist page links to an album listing, and
// each album page carries the release date and the track list.
type Genius struct {
	base
}

// NewGenius creates a Genius provider.
func NewGenius(fetcher Fetcher, opts ...Option) *Genius {
	return &Genius{base: newBase("Genius", geniusBaseURL, "", "", fetcher, opts)}
}

// CleanString builds the artist slug: the normalized name in lower case
// with only the first letter capitalized.
func (*Genius) CleanString(text string) string {
	slug := geniusLower.String(model.Normalize(text))
	first, size := utf8.DecodeRuneInString(slug)
	if first == utf8.RuneError {
		return slug
	}
	return geniusUpper.String(string(first)) + slug[size:]
}

// ListAlbums implements Provider. Years and tracks are only on album
// pages, which ReadAlbum fetches.
func (p *Genius) ListAlbums(ctx context.Context, artist string) ([]AlbumRef, error) {
	doc, err := p.fetchDocument(ctx, p.baseURL+"/artists/"+p.CleanString(artist))
	if err != nil {
		return nil, err
	}
	if doc.page.NotFound() || find(doc.root, tag("div", hasClass("render_404"))) != nil {
		return []AlbumRef{}, nil
	}

	button := find(doc.root, tag("a", hasClass("full_width_button")))
	if button == nil {
		return []AlbumRef{}, nil
	}
	listingURL := doc.resolve(strings.Replace(getAttr(button, "href"), "songs?", "albums?", 1))

	listing, err := p.fetchDocument(ctx, listingURL)
	if err != nil {
		return nil, err
	}

	albums := []AlbumRef{}
	for _, link := range findAll(listing.root, tag("a", hasClass("album_link"))) {
		albums = append(albums, AlbumRef{
			Title: strings.TrimSpace(textOf(link)),
			URL:   listing.resolve(getAttr(link, "href")),
		})
	}
	return albums, nil
}

// ReadAlbum implements AlbumReader.
func (p *Genius) ReadAlbum(ctx context.Context, album AlbumRef) (AlbumRef, error) {
	if album.Songs != nil {
		return album, nil
	}
	doc, err := p.fetchDocument(ctx, album.URL)
	if err != nil {
		return album, err
	}
	if doc.page.NotFound() {
		return album, fmt.Errorf("%w: %s album page %s", model.ErrNotFound, p.name, album.URL)
	}
	album.Year = p.releaseYear(doc)
	album.Songs = p.tracks(doc)
	return album, nil
}

func (p *Genius) releaseYear(doc *document) int {
	scope := find(doc.root, tag("div", hasClass("header_with_cover_art-primary_info")))
	if scope == nil {
		scope = doc.root
	}
	for _, unit := range findAll(scope, tag("div", hasClass("metadata_unit"))) {
		text := strings.TrimSpace(textOf(unit))
		if strings.HasPrefix(text, "Released") {
			return parseYear(text)
		}
	}
	return 0
}

func (p *Genius) tracks(doc *document) []SongRef {
	songs := []SongRef{}
	for _, row := range findAll(doc.root, tag("div", hasClass("chart_row"))) {
		link := find(row, tag("a"))
		if link == nil {
			continue
		}
		songs = append(songs, SongRef{
			Title: firstLine(textOf(link)),
			URL:   doc.resolve(getAttr(link, "href")),
		})
	}
	return songs
}

// firstLine returns the first non-blank line of text, trimmed. Genius puts
// the song title and a "Lyrics" label on separate lines of one link.
func firstLine(text string) string {
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return ""
}

// ListSongs implements Provider.
func (p *Genius) ListSongs(ctx context.Context, album AlbumRef) ([]SongRef, error) {
	album, err := p.ReadAlbum(ctx, album)
	if err != nil {
		return nil, err
	}
	return album.Songs, nil
}

// ParseLyrics implements Provider.
func (p *Genius) ParseLyrics(page []byte) (Lyrics, error) {
	root, err := parseHTML(page)
	if err != nil {
		return Lyrics{}, err
	}
	if find(root, tag("div", hasClass("song_body-lyrics"))) == nil {
		return Lyrics{}, notFoundError(p.name)
	}

	box := find(root, tag("div", hasClass("lyrics")))
	if box == nil {
		return Lyrics{}, parseError(p.name, "lyrics block")
	}

	lyrics := Lyrics{Text: strings.TrimSpace(textOf(box))}
	for _, label := range findAll(root, tag("span", hasClass("metadata_unit-label"))) {
		if strings.TrimSpace(textOf(label)) != "Written By" {
			continue
		}
		if info := nextSibling(label, tag("span", hasClass("metadata_unit-info"))); info != nil {
			lyrics.Writers = strings.TrimSpace(textOf(info))
		}
		break
	}
	return lyrics, nil
}
