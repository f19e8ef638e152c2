package provider

import (
	"context"
	"net/url"
	"strings"
)

const musixMatchBaseURL = "https://www.musixmatch.com"

var musixMatchReplacer = strings.NewReplacer(" ", "-", ".", "-")

// MusixMatch reads musixmatch.com. Artist pages link to an album listing;
// album pages list the tracks.
type MusixMatch struct {
	base
}

// NewMusixMatch creates a MusixMatch provider.
func NewMusixMatch(fetcher Fetcher, opts ...Option) *MusixMatch {
	return &MusixMatch{base: newBase("MusixMatch", musixMatchBaseURL, "", "", fetcher, opts)}
}

// CleanString builds the artist slug: spaces and dots become "-" and a
// trailing "-" is dropped.
func (*MusixMatch) CleanString(text string) string {
	return strings.TrimSuffix(musixMatchReplacer.Replace(text), "-")
}

// ListAlbums implements Provider.
func (p *MusixMatch) ListAlbums(ctx context.Context, artist string) ([]AlbumRef, error) {
	doc, err := p.fetchDocument(ctx, p.baseURL+"/artist/"+url.PathEscape(p.CleanString(artist)))
	if err != nil {
		return nil, err
	}
	if find(doc.root, tag("div", hasClass("artist-page", "main-wrapper"))) == nil {
		return []AlbumRef{}, nil
	}

	link := find(find(doc.root, tag("li", hasID("albums"))), tag("a"))
	if link == nil {
		return []AlbumRef{}, nil
	}
	listing, err := p.fetchDocument(ctx, doc.resolve(getAttr(link, "href")))
	if err != nil {
		return nil, err
	}

	albums := []AlbumRef{}
	for _, card := range findAll(listing.root, tag("div", hasClass("media-card-text"))) {
		heading := find(card, tag("h2"))
		if heading == nil {
			continue
		}
		album := AlbumRef{Title: strings.TrimSpace(textOf(heading))}
		if date := find(card, tag("h3")); date != nil {
			album.Year = parseYear(textOf(date))
		}
		if a := find(card, tag("a")); a != nil {
			album.URL = listing.resolve(getAttr(a, "href"))
		}
		albums = append(albums, album)
	}
	return albums, nil
}

// ListSongs implements Provider.
func (p *MusixMatch) ListSongs(ctx context.Context, album AlbumRef) ([]SongRef, error) {
	if album.Songs != nil {
		return album.Songs, nil
	}
	if album.URL == "" {
		return []SongRef{}, nil
	}
	doc, err := p.fetchDocument(ctx, album.URL)
	if err != nil {
		return nil, err
	}
	tracks := find(doc.root, tag("div", hasClass("mxm-album__tracks")))
	if tracks == nil {
		return nil, parseError(p.name, "track list")
	}

	songs := []SongRef{}
	for _, item := range findAll(tracks, tag("li", classPrefix("mui-collection__item"))) {
		link := find(item, tag("a"))
		if link == nil {
			continue
		}
		songs = append(songs, SongRef{
			Title: strings.TrimSpace(textOf(link)),
			URL:   doc.resolve(getAttr(link, "href")),
		})
	}
	return songs, nil
}

// ParseLyrics implements Provider. Long lyrics are split over several
// paragraphs, which are joined in order.
func (p *MusixMatch) ParseLyrics(page []byte) (Lyrics, error) {
	root, err := parseHTML(page)
	if err != nil {
		return Lyrics{}, err
	}
	paragraphs := findAll(root, tag("p", classPrefix("mxm-lyrics__content")))
	if len(paragraphs) == 0 {
		return Lyrics{}, notFoundError(p.name)
	}

	parts := make([]string, 0, len(paragraphs))
	for _, para := range paragraphs {
		parts = append(parts, joinLines(textStrings(para)))
	}

	lyrics := Lyrics{Text: strings.Join(parts, "\n")}
	if credits := find(root, tag("p", classPrefix("mxm-lyrics__copyright"))); credits != nil {
		lyrics.Writers = strings.TrimSpace(textOf(credits))
	}
	return lyrics, nil
}
