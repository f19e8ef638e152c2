package provider

import (
	"context"
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

const lyricWikiBaseURL = "http://lyrics.wikia.com"

// lyricWikiSkipped lists section headlines on artist pages that are not
// albums.
var lyricWikiSkipped = map[string]bool{
	"Additional_information": true,
	"External_links":         true,
}

var lyricWikiReplacer = strings.NewReplacer(
	"#", "Number_",
	"[", "(",
	"]", ")",
	"{", "(",
	"}", ")",
	" ", "_",
)

// LyricWiki reads the LyricWiki MediaWiki site. Artist pages list every
// album as a section headline followed by an ordered list of song links.
type LyricWiki struct {
	base
}

// NewLyricWiki creates a LyricWiki provider.
func NewLyricWiki(fetcher Fetcher, opts ...Option) *LyricWiki {
	return &LyricWiki{base: newBase("LyricWiki", lyricWikiBaseURL, "", "", fetcher, opts)}
}

// CleanString turns a title into a LyricWiki page name.
func (*LyricWiki) CleanString(text string) string {
	return lyricWikiReplacer.Replace(text)
}

func (p *LyricWiki) pageURL(name string) string {
	return p.baseURL + "/wiki/" + url.PathEscape(name)
}

// ListAlbums implements Provider.
func (p *LyricWiki) ListAlbums(ctx context.Context, artist string) ([]AlbumRef, error) {
	doc, err := p.fetchDocument(ctx, p.pageURL(p.CleanString(artist)))
	if err != nil {
		return nil, err
	}
	if find(doc.root, tag("div", hasClass("noarticletext"))) != nil {
		return []AlbumRef{}, nil
	}

	albums := []AlbumRef{}
	for _, headline := range findAll(doc.root, tag("span", hasClass("mw-headline"))) {
		if lyricWikiSkipped[getAttr(headline, "id")] {
			continue
		}

		text := strings.TrimSpace(textOf(headline))
		title := text
		if i := strings.Index(text, " ("); i >= 0 {
			title = text[:i]
		}

		albums = append(albums, AlbumRef{
			Title: title,
			URL:   p.pageURL(p.CleanString(artist) + ":" + p.CleanString(title)),
			Year:  parseYear(parenthesized(text)),
			Songs: p.songsAfter(doc, headline),
		})
	}
	return albums, nil
}

// songsAfter reads the ordered list that follows the headline's heading.
// A following heading ends the search, so an album without a track list
// does not borrow the next album's songs.
func (p *LyricWiki) songsAfter(doc *document, headline *html.Node) []SongRef {
	heading := headline.Parent
	if heading == nil {
		return []SongRef{}
	}
	for s := heading.NextSibling; s != nil; s = s.NextSibling {
		if s.Type != html.ElementNode {
			continue
		}
		switch s.Data {
		case "ol":
			return p.songLinks(doc, s)
		case "h2", "h3":
			return []SongRef{}
		}
	}
	return []SongRef{}
}

func (p *LyricWiki) songLinks(doc *document, list *html.Node) []SongRef {
	songs := []SongRef{}
	for _, li := range findAll(list, tag("li")) {
		link := find(li, tag("a"))
		if link == nil {
			continue
		}

		title := getAttr(link, "title")
		if i := strings.Index(title, ":"); i >= 0 {
			title = title[i+1:]
		}
		if title == "" {
			title = textOf(link)
		}

		songURL := doc.resolve(getAttr(link, "href"))
		// Red links point at pages nobody has written yet.
		if i := strings.Index(title, " (page does not exist"); i >= 0 {
			title = title[:i]
			songURL = ""
		}

		songs = append(songs, SongRef{Title: strings.TrimSpace(title), URL: songURL})
	}
	return songs
}

// ListSongs implements Provider.
func (p *LyricWiki) ListSongs(ctx context.Context, album AlbumRef) ([]SongRef, error) {
	if album.Songs != nil {
		return album.Songs, nil
	}
	doc, err := p.fetchDocument(ctx, album.URL)
	if err != nil {
		return nil, err
	}
	if find(doc.root, tag("div", hasClass("noarticletext"))) != nil {
		return []SongRef{}, nil
	}
	list := find(doc.root, tag("ol"))
	if list == nil {
		return []SongRef{}, nil
	}
	return p.songLinks(doc, list), nil
}

// ParseLyrics implements Provider.
func (p *LyricWiki) ParseLyrics(page []byte) (Lyrics, error) {
	root, err := parseHTML(page)
	if err != nil {
		return Lyrics{}, err
	}
	if find(root, tag("div", hasClass("noarticletext"))) != nil {
		return Lyrics{}, notFoundError(p.name)
	}

	box := find(root, tag("div", hasClass("lyricbox")))
	if box == nil {
		return Lyrics{}, parseError(p.name, "lyricbox")
	}

	lyrics := Lyrics{Text: joinLines(textStrings(box))}
	if credits := find(root, tag("table", hasClass("song-credit-box"))); credits != nil {
		if paragraphs := findAll(credits, tag("p")); len(paragraphs) > 0 {
			lyrics.Writers = strings.TrimSpace(textOf(paragraphs[len(paragraphs)-1]))
		}
	}
	return lyrics, nil
}
