package report

import (
	"encoding/json"
	"io"
	"time"

	"github.com/nao1215/lyricsmaster/internal/model"
	"github.com/nao1215/lyricsmaster/internal/pipeline"
)

// JSONWriter outputs the fetched lyrics and the fetch summary as JSON.
type JSONWriter struct {
	baseWriter

	// version is recorded in every document.
	version string

	// indent enables pretty-printed JSON output.
	// When false, output is compact (no extra whitespace).
	indent bool

	// indentPrefix is the prefix for each line in indented output.
	indentPrefix string

	// indentString is the indentation string (typically "  " or "\t").
	indentString string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables pretty-printed JSON output.
// The prefix is prepended to each line, and indent is used for each level.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint enables pretty-printed JSON with default indentation.
// This is a convenience wrapper for WithIndent("", "  ").
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// WithVersion sets the lyricsmaster version recorded in the document.
func WithVersion(version string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.version = version
	}
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs result and report as one JSONReport document.
func (w *JSONWriter) Write(result model.Result, report *pipeline.Report) (int, error) {
	return w.writeJSON(NewJSONReport(result, report, w.version))
}

// writeJSON marshals the given value to JSON and writes it to the output.
func (w *JSONWriter) writeJSON(v any) (int, error) {
	var data []byte
	var err error

	if w.indent {
		data, err = json.MarshalIndent(v, w.indentPrefix, w.indentString)
	} else {
		data, err = json.Marshal(v)
	}

	if err != nil {
		return 0, err
	}

	// Add trailing newline for better terminal output
	data = append(data, '\n')

	return w.output.Write(data)
}

// JSONReport is the document written by JSONWriter.
type JSONReport struct {
	// Version is the lyricsmaster version that generated this report.
	Version string `json:"version"`

	// Result is the fetched song, album or discography.
	Result model.Result `json:"result"`

	// Summary describes how the fetch went.
	Summary *Summary `json:"summary,omitempty"`
}

// NewJSONReport creates a JSONReport wrapper with version information.
func NewJSONReport(result model.Result, report *pipeline.Report, version string) *JSONReport {
	return &JSONReport{
		Version: version,
		Result:  result,
		Summary: NewSummary(report),
	}
}

// Summary is the JSON form of a pipeline.Report.
type Summary struct {
	Provider      string           `json:"provider"`
	Artist        string           `json:"artist"`
	Album         string           `json:"album,omitempty"`
	Song          string           `json:"song,omitempty"`
	AlbumsListed  int              `json:"albums_listed"`
	AlbumsFetched int              `json:"albums_fetched"`
	SongsFetched  int              `json:"songs_fetched"`
	CachedSongs   int              `json:"cached_songs"`
	Rotations     int              `json:"rotations"`
	Failures      []FailureSummary `json:"failures"`
	StartedAt     time.Time        `json:"started_at"`
	ElapsedMillis int64            `json:"elapsed_ms"`
}

// FailureSummary is the JSON form of a pipeline.Failure.
type FailureSummary struct {
	Album string `json:"album,omitempty"`
	Song  string `json:"song,omitempty"`
	URL   string `json:"url,omitempty"`
	Kind  string `json:"kind"`
	Error string `json:"error"`
}

// NewSummary converts report. It returns nil for a nil report.
func NewSummary(report *pipeline.Report) *Summary {
	if report == nil {
		return nil
	}

	failures := make([]FailureSummary, len(report.Failures))
	for i, f := range report.Failures {
		failures[i] = FailureSummary{
			Album: f.Album,
			Song:  f.Song,
			URL:   f.URL,
			Kind:  kindName(f.Err),
			Error: f.Err.Error(),
		}
	}

	return &Summary{
		Provider:      report.Provider,
		Artist:        report.Artist,
		Album:         report.Album,
		Song:          report.Song,
		AlbumsListed:  report.AlbumsListed,
		AlbumsFetched: report.AlbumsFetched,
		SongsFetched:  report.SongsFetched,
		CachedSongs:   report.CachedSongs,
		Rotations:     report.Rotations,
		Failures:      failures,
		StartedAt:     report.StartedAt,
		ElapsedMillis: report.Elapsed.Milliseconds(),
	}
}
