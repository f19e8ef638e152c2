package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/nao1215/lyricsmaster/internal/model"
	"github.com/nao1215/lyricsmaster/internal/pipeline"
)

// SimpleWriter outputs human-readable text for terminal display.
type SimpleWriter struct {
	baseWriter

	// showEmpty controls whether sections with nothing to list are shown.
	showEmpty bool

	// verbose lists every song and every failure.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithShowEmpty configures the writer to show empty sections.
func WithShowEmpty(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showEmpty = show
	}
}

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the report in human-readable format.
func (w *SimpleWriter) Write(result model.Result, report *pipeline.Report) (int, error) {
	var sb strings.Builder
	albums := albumsOf(result)

	w.writeHeader(&sb, report)
	w.writeSummary(&sb, albums, report)
	w.writeAlbums(&sb, albums)
	w.writeFailures(&sb, report)

	sb.WriteString(strings.Repeat("=", 70) + "\n")

	return io.WriteString(w.output, sb.String())
}

func (w *SimpleWriter) writeHeader(sb *strings.Builder, report *pipeline.Report) {
	sb.WriteString(strings.Repeat("=", 70) + "\n")
	sb.WriteString("LYRICSMASTER REPORT\n")
	sb.WriteString(strings.Repeat("=", 70) + "\n\n")

	fmt.Fprintf(sb, "Artist:   %s\n", report.Artist)
	fmt.Fprintf(sb, "Provider: %s\n", report.Provider)
	fmt.Fprintf(sb, "Scope:    %s\n", scopeOf(report))
	if !report.StartedAt.IsZero() {
		fmt.Fprintf(sb, "Started:  %s\n", report.StartedAt.Format("2006-01-02 15:04:05"))
	}
	fmt.Fprintf(sb, "Elapsed:  %s\n", report.Elapsed.Round(time.Millisecond))
	sb.WriteString("\n")

	if report.Failed() {
		sb.WriteString("STATUS: FAILED - no album could be fetched\n\n")
	} else {
		sb.WriteString("STATUS: OK\n\n")
	}
}

func (w *SimpleWriter) writeSummary(sb *strings.Builder, albums []*model.Album, report *pipeline.Report) {
	sb.WriteString("SUMMARY\n")
	sb.WriteString(strings.Repeat("-", 40) + "\n")

	songs, withLyrics := 0, 0
	for _, album := range albums {
		songs += album.Len()
		withLyrics += album.LyricsCount()
	}

	fmt.Fprintf(sb, "  Albums:       %d fetched of %d listed\n", report.AlbumsFetched, report.AlbumsListed)
	fmt.Fprintf(sb, "  Songs:        %d\n", songs)
	fmt.Fprintf(sb, "  With lyrics:  %d\n", withLyrics)
	if report.CachedSongs > 0 || w.showEmpty {
		fmt.Fprintf(sb, "  From cache:   %d\n", report.CachedSongs)
	}
	if report.Rotations > 0 || w.showEmpty {
		fmt.Fprintf(sb, "  Rotations:    %d\n", report.Rotations)
	}
	fmt.Fprintf(sb, "  Failures:     %d\n", len(report.Failures))
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeAlbums(sb *strings.Builder, albums []*model.Album) {
	if len(albums) == 0 && !w.showEmpty {
		return
	}

	sb.WriteString("ALBUMS\n")
	sb.WriteString(strings.Repeat("-", 40) + "\n")

	if len(albums) == 0 {
		sb.WriteString("  (none)\n\n")
		return
	}

	for _, album := range albums {
		fmt.Fprintf(sb, "  %s (%s) - %d/%d songs with lyrics\n",
			album.Title(), yearText(album.Year()), album.LyricsCount(), album.Len())

		if !w.verbose {
			continue
		}
		for _, song := range album.All() {
			mark := " "
			if song.HasLyrics() {
				mark = "*"
			}
			fmt.Fprintf(sb, "    [%s] %s\n", mark, song.Title)
		}
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeFailures(sb *strings.Builder, report *pipeline.Report) {
	if len(report.Failures) == 0 {
		if w.showEmpty {
			sb.WriteString("FAILURES\n")
			sb.WriteString(strings.Repeat("-", 40) + "\n")
			sb.WriteString("  (none)\n\n")
		}
		return
	}

	sb.WriteString("FAILURES\n")
	sb.WriteString(strings.Repeat("-", 40) + "\n")

	counts := report.CountByKind()
	for _, kind := range failureKinds {
		if n := counts[kind]; n > 0 {
			fmt.Fprintf(sb, "  %-26s %d\n", kind.Error()+":", n)
		}
	}
	if n := counts[nil]; n > 0 {
		fmt.Fprintf(sb, "  %-26s %d\n", "other:", n)
	}

	if w.verbose {
		sb.WriteString("\n")
		for _, f := range report.Failures {
			fmt.Fprintf(sb, "  - %s\n", f)
			if f.URL != "" {
				fmt.Fprintf(sb, "    URL: %s\n", f.URL)
			}
		}
	}
	sb.WriteString("\n")
}

// failureKinds is the display order of error kinds.
var failureKinds = []error{
	model.ErrConfiguration,
	model.ErrNotFound,
	model.ErrTransientNetwork,
	model.ErrParse,
	model.ErrRotation,
}
