package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/lyricsmaster/internal/model"
)

// FileName is the name of the library database inside its directory.
const FileName = "lyricsmaster.db"

// LibraryDB stores fetched lyrics and the history of fetches in SQLite.
// Songs are keyed by provider, artist, album and title, so the same song
// from two providers is stored twice.
type LibraryDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures LibraryDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a LibraryDB in dbDir.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*LibraryDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// mode=rw refuses to create a missing file, mode=rwc allows it.
	var dsn string
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	} else {
		dsn = dbPath + "?mode=rw"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite supports a single writer. Song lookups from the worker pool
	// queue on this one connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	ldb := &LibraryDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := ldb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return ldb, nil
}

// Path returns the database file path.
func (ldb *LibraryDB) Path() string {
	return ldb.dbPath
}

// Close closes the database connection.
func (ldb *LibraryDB) Close() error {
	return ldb.db.Close()
}

func (ldb *LibraryDB) createTables() error {
	schema := `
	-- One row per song and provider; refetching a song replaces its row
	CREATE TABLE IF NOT EXISTS songs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		provider TEXT NOT NULL,
		artist TEXT NOT NULL,
		album TEXT NOT NULL,
		title TEXT NOT NULL,
		lyrics TEXT NOT NULL,
		writers TEXT NOT NULL DEFAULT '',
		fetched_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(provider, artist, album, title)
	);

	CREATE INDEX IF NOT EXISTS idx_songs_artist ON songs(artist);

	-- Fetch history, one row per lyricsmaster get
	CREATE TABLE IF NOT EXISTS fetches (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		provider TEXT NOT NULL,
		artist TEXT NOT NULL,
		scope TEXT NOT NULL DEFAULT '',
		albums INTEGER NOT NULL DEFAULT 0,
		songs INTEGER NOT NULL DEFAULT 0,
		failures INTEGER NOT NULL DEFAULT 0,
		started_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_fetches_artist ON fetches(artist);
	CREATE INDEX IF NOT EXISTS idx_fetches_started ON fetches(started_at);
	`

	_, err := ldb.db.ExecContext(context.Background(), schema)
	return err
}

const upsertSong = `
	INSERT INTO songs (provider, artist, album, title, lyrics, writers)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(provider, artist, album, title) DO UPDATE SET
		lyrics = excluded.lyrics,
		writers = excluded.writers,
		fetched_at = CURRENT_TIMESTAMP
	`

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func storeSong(ctx context.Context, db execer, provider string, song model.Song) error {
	_, err := db.ExecContext(ctx, upsertSong,
		provider,
		song.Artist,
		song.Album,
		song.Title,
		song.Lyrics,
		song.Writers,
	)
	if err != nil {
		return fmt.Errorf("failed to store song %q: %w", song.Title, err)
	}
	return nil
}

// StoreSong inserts or replaces a song.
func (ldb *LibraryDB) StoreSong(ctx context.Context, provider string, song model.Song) error {
	return storeSong(ctx, ldb.db, provider, song)
}

// LookupSong returns the stored song, or nil when there is none.
func (ldb *LibraryDB) LookupSong(ctx context.Context, provider string, key model.SongKey) (*model.Song, error) {
	query := `
	SELECT title, artist, album, lyrics, writers
	FROM songs
	WHERE provider = ? AND artist = ? AND album = ? AND title = ?
	`

	var song model.Song
	err := ldb.db.QueryRowContext(ctx, query, provider, key.Artist, key.Album, key.Title).Scan(
		&song.Title,
		&song.Artist,
		&song.Album,
		&song.Lyrics,
		&song.Writers,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up song: %w", err)
	}
	return &song, nil
}

// Lookup implements the pipeline cache.
func (ldb *LibraryDB) Lookup(ctx context.Context, provider string, key model.SongKey) (model.Song, bool, error) {
	song, err := ldb.LookupSong(ctx, provider, key)
	if err != nil || song == nil {
		return model.Song{}, false, err
	}
	return *song, true, nil
}

// SaveResult stores every song of result that has lyrics, in one
// transaction, and returns how many were stored.
func (ldb *LibraryDB) SaveResult(ctx context.Context, provider string, result model.Result) (int, error) {
	var songs []model.Song
	switch r := result.(type) {
	case *model.Song:
		songs = []model.Song{*r}
	case *model.Album:
		songs = r.Songs()
	case *model.Discography:
		for _, album := range r.All() {
			songs = append(songs, album.Songs()...)
		}
	case nil:
		return 0, nil
	default:
		return 0, fmt.Errorf("unsupported result type %T", result)
	}

	tx, err := ldb.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stored := 0
	for _, song := range songs {
		if !song.HasLyrics() {
			continue
		}
		if err := storeSong(ctx, tx, provider, song); err != nil {
			return 0, err
		}
		stored++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit songs: %w", err)
	}
	return stored, nil
}

// CountSongs returns the number of stored songs. Empty arguments match
// every provider or artist.
func (ldb *LibraryDB) CountSongs(ctx context.Context, provider, artist string) (int, error) {
	query := "SELECT COUNT(*) FROM songs WHERE 1=1"
	args := make([]any, 0, 2)

	if provider != "" {
		query += " AND provider = ?"
		args = append(args, provider)
	}
	if artist != "" {
		query += " AND artist = ?"
		args = append(args, artist)
	}

	var count int
	if err := ldb.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count songs: %w", err)
	}
	return count, nil
}

// FetchRecord is one entry of the fetch history.
type FetchRecord struct {
	ID       int64
	Provider string
	Artist   string

	// Scope is empty for a whole discography, or names the album or song.
	Scope string

	Albums    int
	Songs     int
	Failures  int
	StartedAt time.Time
}

// RecordFetch appends r to the fetch history and returns its ID.
// A zero StartedAt records the current time.
func (ldb *LibraryDB) RecordFetch(ctx context.Context, r FetchRecord) (int64, error) {
	startedAt := r.StartedAt
	if startedAt.IsZero() {
		startedAt = time.Now()
	}

	query := `
	INSERT INTO fetches (provider, artist, scope, albums, songs, failures, started_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	result, err := ldb.db.ExecContext(ctx, query,
		r.Provider,
		r.Artist,
		r.Scope,
		r.Albums,
		r.Songs,
		r.Failures,
		startedAt.UTC().Format(storedTimeFormat),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to record fetch: %w", err)
	}
	return result.LastInsertId()
}

// History returns the most recent fetches first. An empty artist returns
// the history of every artist; a non-positive limit returns everything.
func (ldb *LibraryDB) History(ctx context.Context, artist string, limit int) ([]FetchRecord, error) {
	query := `
	SELECT id, provider, artist, scope, albums, songs, failures, started_at
	FROM fetches
	WHERE 1=1
	`
	args := make([]any, 0, 2)

	if artist != "" {
		query += " AND artist = ?"
		args = append(args, artist)
	}
	query += " ORDER BY started_at DESC, id DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := ldb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query fetch history: %w", err)
	}
	defer rows.Close()

	var records []FetchRecord
	for rows.Next() {
		var r FetchRecord
		var startedAt string

		err := rows.Scan(
			&r.ID,
			&r.Provider,
			&r.Artist,
			&r.Scope,
			&r.Albums,
			&r.Songs,
			&r.Failures,
			&startedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan fetch record: %w", err)
		}

		r.StartedAt = parseTimestamp(startedAt)
		records = append(records, r)
	}

	return records, rows.Err()
}

// storedTimeFormat is fixed width so that timestamps sort as text.
const storedTimeFormat = "2006-01-02 15:04:05.000000"

// timestampFormats contains the timestamp formats that SQLite may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	storedTimeFormat,       // written by RecordFetch
	"2006-01-02 15:04:05",  // SQLite default datetime format
	"2006-01-02T15:04:05Z", // ISO 8601 with Z suffix
	"2006-01-02T15:04:05",  // ISO 8601 without timezone
	time.RFC3339Nano,       // time.Time values scanned into a string
	time.RFC3339,
}

// parseTimestamp tries every known format and returns the zero time when
// none matches.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
