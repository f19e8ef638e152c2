// Package database provides the SQLite lyrics library of lyricsmaster.
//
// The library keeps every song fetched with lyrics, keyed by provider,
// artist, album and title, and a history of fetches. It doubles as the
// cache of the fetch pipeline: a song already in the library is not
// downloaded again.
//
// The database is a single file opened through modernc.org/sqlite, which
// needs no cgo, with WAL journaling.
package database
