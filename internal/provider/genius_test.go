package provider

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/nao1215/lyricsmaster/internal/model"
)

const geniusArtistPage = `<html><body>
<div class="profile_header"><h1>Kendrick Lamar</h1></div>
<a class="full_width_button" href="/artists/songs?for_artist_page=1421&amp;id=Kendrick-lamar">Show all songs by Kendrick Lamar</a>
</body></html>`

const geniusListingURI = "/artists/albums?for_artist_page=1421&id=Kendrick-lamar"

const geniusAlbumListing = `<html><body><ul class="album_list">
<li><a class="album_link" href="/albums/Kendrick-lamar/Good-kid-m-a-a-d-city">good kid, m.A.A.d city</a></li>
<li><a class="album_link" href="/albums/Kendrick-lamar/Unreleased">Unreleased</a></li>
</ul></body></html>`

const geniusAlbumPage = `<html><body>
<div class="header_with_cover_art-primary_info">
<h1>good kid, m.A.A.d city</h1>
<div class="metadata_unit">Released October 22, 2012</div>
</div>
<div class="chart_row"><div class="chart_row-content"><a href="/Kendrick-lamar-sherane-aka-master-splinters-daughter-lyrics" class="u-display_block">
  Sherane a.k.a Master Splinter's Daughter
  Lyrics
</a></div></div>
<div class="chart_row"><div class="chart_row-content"><a href="/Kendrick-lamar-bitch-dont-kill-my-vibe-lyrics" class="u-display_block">
  Bitch, Don't Kill My Vibe
  Lyrics
</a></div></div>
</body></html>`

const geniusSongPage = `<html><body>
<div class="song_body column_layout"><div class="song_body-lyrics"><div class="lyrics"><p>
I am a sinner<br>
Who's probably gonna sin again
</p></div></div></div>
<div class="metadata_unit metadata_unit--table_row"><span class="metadata_unit-label">Produced By</span><span class="metadata_unit-info">Tha Bizness</span></div>
<div class="metadata_unit metadata_unit--table_row"><span class="metadata_unit-label">Written By</span><span class="metadata_unit-info"><a>Kendrick Lamar</a>, <a>Sounwave</a></span></div>
</body></html>`

// TestGeniusCleanString tests artist slug construction.
func TestGeniusCleanString(t *testing.T) {
	t.Parallel()

	p := NewGenius(nil)
	tests := map[string]string{
		"Kendrick Lamar": "Kendrick-lamar",
		"the weeknd":     "The-weeknd",
		"Sigur Rós":      "Sigur-rós",
		"":               "Untitled",
	}
	for in, want := range tests {
		if got := p.CleanString(in); got != want {
			t.Errorf("CleanString(%q) = %q, expected %q", in, got, want)
		}
	}
}

// TestGeniusListAlbums tests the album listing.
func TestGeniusListAlbums(t *testing.T) {
	t.Parallel()

	site, srv := newFixtureSite(t, map[string]string{
		"/artists/Kendrick-lamar":                      geniusArtistPage,
		geniusListingURI:                               geniusAlbumListing,
		"/albums/Kendrick-lamar/Good-kid-m-a-a-d-city": geniusAlbumPage,
	})
	p := NewGenius(newFetcher(t), WithBaseURL(srv.URL))

	t.Run("albums without their pages", func(t *testing.T) {
		before := site.requestCount()
		albums, err := p.ListAlbums(context.Background(), "Kendrick Lamar")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := albumTitles(albums); got != "good kid, m.A.A.d city|Unreleased" {
			t.Fatalf("albums = %q", got)
		}
		if !strings.HasSuffix(albums[0].URL, "/albums/Kendrick-lamar/Good-kid-m-a-a-d-city") {
			t.Errorf("album URL = %q", albums[0].URL)
		}
		if albums[0].Year != 0 || albums[0].Songs != nil {
			t.Errorf("expected album details to be left for ReadAlbum, got %+v", albums[0])
		}
		if n := site.requestCount() - before; n != 2 {
			t.Errorf("expected 2 requests (artist page and listing), got %d", n)
		}
	})

	t.Run("unknown artist", func(t *testing.T) {
		albums, err := p.ListAlbums(context.Background(), "Nobody")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(albums) != 0 {
			t.Errorf("expected no albums, got %v", albums)
		}
	})
}

// TestGeniusReadAlbum tests that the album page yields the year and tracks.
func TestGeniusReadAlbum(t *testing.T) {
	t.Parallel()

	site, srv := newFixtureSite(t, map[string]string{
		"/albums/Kendrick-lamar/Good-kid-m-a-a-d-city": geniusAlbumPage,
	})
	p := NewGenius(newFetcher(t), WithBaseURL(srv.URL))
	ref := AlbumRef{Title: "good kid, m.A.A.d city", URL: srv.URL + "/albums/Kendrick-lamar/Good-kid-m-a-a-d-city"}

	t.Run("year and tracks", func(t *testing.T) {
		album, err := ReadAlbum(context.Background(), p, ref)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if album.Year != 2012 {
			t.Errorf("Year = %d, expected 2012", album.Year)
		}
		if got := songTitles(album.Songs); got != "Sherane a.k.a Master Splinter's Daughter|Bitch, Don't Kill My Vibe" {
			t.Errorf("songs = %q", got)
		}
		if !strings.HasSuffix(album.Songs[1].URL, "/Kendrick-lamar-bitch-dont-kill-my-vibe-lyrics") {
			t.Errorf("song URL = %q", album.Songs[1].URL)
		}

		before := site.requestCount()
		if _, err := p.ReadAlbum(context.Background(), album); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if site.requestCount() != before {
			t.Error("ReadAlbum refetched a complete album")
		}
	})

	t.Run("list songs", func(t *testing.T) {
		songs, err := p.ListSongs(context.Background(), ref)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(songs) != 2 {
			t.Errorf("expected 2 songs, got %v", songs)
		}
	})

	t.Run("missing album page", func(t *testing.T) {
		_, err := p.ReadAlbum(context.Background(), AlbumRef{Title: "Unreleased", URL: srv.URL + "/albums/Kendrick-lamar/Unreleased"})
		if !errors.Is(err, model.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}

// TestGeniusParseLyrics tests lyrics extraction.
func TestGeniusParseLyrics(t *testing.T) {
	t.Parallel()

	p := NewGenius(nil)

	t.Run("lyrics and writers", func(t *testing.T) {
		t.Parallel()

		lyrics, err := p.ParseLyrics([]byte(geniusSongPage))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if lyrics.Text != "I am a sinner\nWho's probably gonna sin again" {
			t.Errorf("Text = %q", lyrics.Text)
		}
		if lyrics.Writers != "Kendrick Lamar, Sounwave" {
			t.Errorf("Writers = %q", lyrics.Writers)
		}
	})

	t.Run("no song body", func(t *testing.T) {
		t.Parallel()

		_, err := p.ParseLyrics([]byte(`<html><body><div class="render_404">Page not found</div></body></html>`))
		if !errors.Is(err, model.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("song body without lyrics", func(t *testing.T) {
		t.Parallel()

		_, err := p.ParseLyrics([]byte(`<html><body><div class="song_body-lyrics"></div></body></html>`))
		if !errors.Is(err, model.ErrParse) {
			t.Errorf("expected ErrParse, got %v", err)
		}
	})
}
