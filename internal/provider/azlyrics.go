package provider

import (
	"context"
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

const (
	azLyricsBaseURL   = "https://www.azlyrics.com"
	azLyricsSearchURL = "https://search.azlyrics.com/search.php?q="
)

// AzLyrics reads azlyrics.com. Artists are found through the search page,
// and the artist page lists every album with its songs, so ListSongs never
// needs a request.
type AzLyrics struct {
	base
}

// NewAzLyrics creates an AzLyrics provider.
func NewAzLyrics(fetcher Fetcher, opts ...Option) *AzLyrics {
	return &AzLyrics{base: newBase("AzLyrics", azLyricsBaseURL, azLyricsSearchURL, "/search.php?q=", fetcher, opts)}
}

// CleanString builds the search query: a leading "the" is dropped and
// words are joined with "+".
func (*AzLyrics) CleanString(text string) string {
	words := strings.Fields(text)
	if len(words) > 1 && strings.EqualFold(words[0], "the") {
		words = words[1:]
	}
	for i, w := range words {
		words[i] = url.QueryEscape(w)
	}
	return strings.Join(words, "+")
}

// ListAlbums implements Provider.
func (p *AzLyrics) ListAlbums(ctx context.Context, artist string) ([]AlbumRef, error) {
	artistURL, err := p.search(ctx, artist)
	if err != nil {
		return nil, err
	}
	if artistURL == "" {
		return []AlbumRef{}, nil
	}

	doc, err := p.fetchDocument(ctx, artistURL)
	if err != nil {
		return nil, err
	}
	list := find(doc.root, tag("div", hasID("listAlbum")))
	if list == nil {
		return []AlbumRef{}, nil
	}
	return p.albums(doc, list), nil
}

// search returns the first artist result, or "" when there is none.
func (p *AzLyrics) search(ctx context.Context, artist string) (string, error) {
	doc, err := p.fetchDocument(ctx, p.searchURL+p.CleanString(artist))
	if err != nil {
		return "", err
	}

	for _, heading := range findAll(doc.root, tag("div", hasClass("panel-heading"))) {
		label := find(heading, tag("b"))
		if label == nil || strings.TrimSpace(textOf(label)) != "Artist results:" {
			continue
		}
		table := nextSibling(heading, tag("table"))
		if table == nil {
			return "", nil
		}
		if link := find(table, tag("a")); link != nil {
			return doc.resolve(getAttr(link, "href")), nil
		}
	}
	return "", nil
}

// albums walks the album list: every div.album starts an album and the
// links that follow it are its songs.
func (p *AzLyrics) albums(doc *document, list *html.Node) []AlbumRef {
	albums := []AlbumRef{}
	for _, n := range findAll(list, func(n *html.Node) bool {
		return tag("div", hasClass("album"))(n) || tag("a")(n)
	}) {
		if n.Data == "div" {
			text := strings.TrimSpace(textOf(n))
			title := strings.TrimSuffix(text, ":")
			if m := quotedPattern.FindStringSubmatch(text); m != nil {
				title = m[1]
			}
			albums = append(albums, AlbumRef{
				Title: title,
				URL:   doc.url,
				Year:  parseYear(parenthesized(text)),
				Songs: []SongRef{},
			})
			continue
		}

		href := getAttr(n, "href")
		if href == "" || len(albums) == 0 || isAlbumHeader(n.Parent) {
			continue
		}
		current := &albums[len(albums)-1]
		current.Songs = append(current.Songs, SongRef{
			Title: strings.TrimSpace(textOf(n)),
			URL:   doc.resolve(href),
		})
	}
	return albums
}

func isAlbumHeader(n *html.Node) bool {
	return n != nil && tag("div", hasClass("album"))(n)
}

// ListSongs implements Provider. The artist page already lists every song.
func (p *AzLyrics) ListSongs(_ context.Context, album AlbumRef) ([]SongRef, error) {
	if album.Songs == nil {
		return []SongRef{}, nil
	}
	return album.Songs, nil
}

// ParseLyrics implements Provider.
func (p *AzLyrics) ParseLyrics(page []byte) (Lyrics, error) {
	root, err := parseHTML(page)
	if err != nil {
		return Lyrics{}, err
	}
	header := find(root, tag("div", hasClass("lyricsh")))
	if header == nil {
		return Lyrics{}, notFoundError(p.name)
	}

	// The lyrics sit in the innermost div without a class or an id.
	var box *html.Node
	for _, div := range findAll(root, tag("div", bare())) {
		if find(div, tag("div")) == nil && strings.TrimSpace(textOf(div)) != "" {
			box = div
			break
		}
	}
	if box == nil {
		return Lyrics{}, parseError(p.name, "lyrics block")
	}

	lyrics := Lyrics{Text: strings.TrimSpace(textOf(box))}
	if credits := find(root, tag("div", hasClass("smt"))); credits != nil {
		lyrics.Writers = strings.TrimSpace(textOf(credits))
	}
	return lyrics, nil
}
