// Package main provides the entry point for the lyricsmaster CLI.
//
// lyricsmaster downloads the lyrics of an artist's discography from one of
// several lyrics sites, optionally through Tor with a new identity per album.
//
// Usage:
//
//	lyricsmaster get "Reba McEntire"
//	lyricsmaster get --album "Rumor Has It" --tor "Reba McEntire"
//
// See --help for all available options.
package main

// main is the entry point for lyricsmaster.
func main() {
	Execute()
}
