package provider

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/nao1215/lyricsmaster/internal/model"
)

const lyrics007SearchPage = `<html><body>
<div id="search_result"><a href="/artist/Reba_McEntire/TVRWOTc5Mjk=">Reba McEntire Lyrics</a></div>
</body></html>`

const lyrics007ArtistPage = `<html><body><div class="content">
<ul class="song_title">
<li><b>1983-01-01: Behind The Scene</b></li>
<ul>
<li><a href="/Reba_McEntire_Lyrics/Behind_The_Scene.html">Behind The Scene</a></li>
<li><a href="/Reba_McEntire_Lyrics/Love_Isnt_Love.html">Love Isn't Love</a></li>
</ul>
<li><b>Singles</b></li>
<ul>
<li><a href="/Reba_McEntire_Lyrics/Fancy.html">Fancy</a></li>
</ul>
</ul>
</div></body></html>`

const lyrics007SongPage = `<html><body>
<div class="lyrics">Here's your one chance, Fancy<br>don't let me down</div>
<div class="credits"><p>Writers: Bobbie Gentry</p></div>
</body></html>`

// TestLyrics007CleanString tests search query construction.
func TestLyrics007CleanString(t *testing.T) {
	t.Parallel()

	p := NewLyrics007(nil)
	tests := map[string]string{
		"Reba McEntire": "Reba+McEntire",
		"R.E.M.":        "R.E.M.",
		"AC/DC":         "AC+DC",
		"Mötley Crüe":   "Mötley+Crüe",
	}
	for in, want := range tests {
		if got := p.CleanString(in); got != want {
			t.Errorf("CleanString(%q) = %q, expected %q", in, got, want)
		}
	}
}

// TestLyrics007ListAlbums tests artist search and the album list.
func TestLyrics007ListAlbums(t *testing.T) {
	t.Parallel()

	site, srv := newFixtureSite(t, map[string]string{
		"/search.php?category=artist&q=Reba+McEntire": lyrics007SearchPage,
		"/artist/Reba_McEntire/TVRWOTc5Mjk=":          lyrics007ArtistPage,
	})
	p := NewLyrics007(newFetcher(t), WithBaseURL(srv.URL))

	t.Run("albums follow the search result", func(t *testing.T) {
		albums, err := p.ListAlbums(context.Background(), "Reba McEntire")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := albumTitles(albums); got != "Behind The Scene|Singles" {
			t.Fatalf("albums = %q", got)
		}
		if albums[0].Year != 1983 || albums[1].Year != 0 {
			t.Errorf("years = %d, %d", albums[0].Year, albums[1].Year)
		}
		if got := songTitles(albums[0].Songs); got != "Behind The Scene|Love Isn't Love" {
			t.Errorf("songs = %q", got)
		}
		if got := songTitles(albums[1].Songs); got != "Fancy" {
			t.Errorf("songs = %q", got)
		}
		if !strings.HasSuffix(albums[1].Songs[0].URL, "/Reba_McEntire_Lyrics/Fancy.html") {
			t.Errorf("song URL = %q", albums[1].Songs[0].URL)
		}

		before := site.requestCount()
		if _, err := p.ListSongs(context.Background(), albums[1]); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if site.requestCount() != before {
			t.Error("ListSongs made a request for a listed album")
		}
	})

	t.Run("no search result", func(t *testing.T) {
		albums, err := p.ListAlbums(context.Background(), "Nobody")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(albums) != 0 {
			t.Errorf("expected no albums, got %v", albums)
		}
	})
}

// TestLyrics007ParseLyrics tests lyrics extraction.
func TestLyrics007ParseLyrics(t *testing.T) {
	t.Parallel()

	p := NewLyrics007(nil)

	t.Run("lyrics and writers", func(t *testing.T) {
		t.Parallel()

		lyrics, err := p.ParseLyrics([]byte(lyrics007SongPage))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if lyrics.Text != "Here's your one chance, Fancy\ndon't let me down" {
			t.Errorf("Text = %q", lyrics.Text)
		}
		if lyrics.Writers != "Writers: Bobbie Gentry" {
			t.Errorf("Writers = %q", lyrics.Writers)
		}
	})

	t.Run("no lyrics block", func(t *testing.T) {
		t.Parallel()

		_, err := p.ParseLyrics([]byte("<html><body><p>Sorry</p></body></html>"))
		if !errors.Is(err, model.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}
