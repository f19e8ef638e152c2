package provider

import (
	"context"
	"strings"
	"unicode"

	"golang.org/x/net/html"
)

const (
	lyrics007BaseURL    = "https://www.lyrics007.com"
	lyrics007SearchPath = "/search.php?category=artist&q="
)

// Lyrics007 reads lyrics007.com. The artist page lists albums as
// "date: title" items, each followed by a list of song links.
type Lyrics007 struct {
	base
}

// NewLyrics007 creates a Lyrics007 provider.
func NewLyrics007(fetcher Fetcher, opts ...Option) *Lyrics007 {
	return &Lyrics007{base: newBase("Lyrics007", lyrics007BaseURL, lyrics007BaseURL+lyrics007SearchPath, lyrics007SearchPath, fetcher, opts)}
}

// CleanString builds the search query: every character that is not a
// letter, a digit or a dot becomes "+".
func (*Lyrics007) CleanString(text string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '.' {
			return r
		}
		return '+'
	}, text)
}

// ListAlbums implements Provider.
func (p *Lyrics007) ListAlbums(ctx context.Context, artist string) ([]AlbumRef, error) {
	results, err := p.fetchDocument(ctx, p.searchURL+p.CleanString(artist))
	if err != nil {
		return nil, err
	}
	link := find(find(results.root, tag("div", hasID("search_result"))), tag("a"))
	if link == nil {
		return []AlbumRef{}, nil
	}
	artistURL := results.resolve(getAttr(link, "href"))
	if artistURL == "" {
		return []AlbumRef{}, nil
	}

	doc, err := p.fetchDocument(ctx, artistURL)
	if err != nil {
		return nil, err
	}
	if find(doc.root, tag("ul", hasClass("song_title"))) == nil {
		return []AlbumRef{}, nil
	}

	albums := []AlbumRef{}
	for _, item := range findAll(doc.root, tag("li")) {
		if find(item, tag("b")) == nil {
			continue
		}
		text := strings.TrimSpace(textOf(item))
		date, title, found := strings.Cut(text, ": ")
		if !found {
			title, date = text, ""
		}
		albums = append(albums, AlbumRef{
			Title: strings.TrimSpace(title),
			URL:   doc.url,
			Year:  parseYear(date),
			Songs: p.songsAfter(doc, item),
		})
	}
	return albums, nil
}

// songsAfter reads the list of links that follows an album item.
func (p *Lyrics007) songsAfter(doc *document, item *html.Node) []SongRef {
	list := nextSibling(item, tag("ul"))
	if list == nil && item.Parent != nil {
		list = nextSibling(item.Parent, tag("ul"))
	}
	songs := []SongRef{}
	if list == nil {
		return songs
	}
	for _, li := range findAll(list, tag("li")) {
		link := find(li, tag("a"))
		if link == nil {
			continue
		}
		songs = append(songs, SongRef{
			Title: strings.TrimSpace(textOf(link)),
			URL:   doc.resolve(getAttr(link, "href")),
		})
	}
	return songs
}

// ListSongs implements Provider. The artist page already lists every song.
func (p *Lyrics007) ListSongs(_ context.Context, album AlbumRef) ([]SongRef, error) {
	if album.Songs == nil {
		return []SongRef{}, nil
	}
	return album.Songs, nil
}

// ParseLyrics implements Provider.
func (p *Lyrics007) ParseLyrics(page []byte) (Lyrics, error) {
	root, err := parseHTML(page)
	if err != nil {
		return Lyrics{}, err
	}
	box := find(root, tag("div", hasClass("lyrics")))
	if box == nil {
		return Lyrics{}, notFoundError(p.name)
	}

	lyrics := Lyrics{Text: joinLines(textStrings(box))}
	for _, s := range textStrings(root) {
		lower := strings.ToLower(strings.TrimSpace(s))
		if strings.HasPrefix(lower, "writers:") || strings.HasPrefix(lower, "writer:") {
			lyrics.Writers = strings.TrimSpace(s)
			break
		}
	}
	return lyrics, nil
}
