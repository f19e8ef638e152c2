package report

import (
	"io"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/lyricsmaster/internal/model"
	"github.com/nao1215/lyricsmaster/internal/pipeline"
)

// MarkdownWriter outputs a Markdown document with the album list, a chart of
// lyrics coverage and the failures. Lyrics are folded into details blocks
// per album.
type MarkdownWriter struct {
	baseWriter

	// lyrics includes the full lyrics of every song.
	lyrics bool
}

// MarkdownWriterOption configures a MarkdownWriter.
type MarkdownWriterOption func(*MarkdownWriter)

// WithLyrics includes the lyrics of every song in the document.
func WithLyrics(include bool) MarkdownWriterOption {
	return func(w *MarkdownWriter) {
		w.lyrics = include
	}
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer, opts ...MarkdownWriterOption) *MarkdownWriter {
	w := &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the report in Markdown format.
func (w *MarkdownWriter) Write(result model.Result, report *pipeline.Report) (int, error) {
	md := markdown.NewMarkdown(w.output)
	albums := albumsOf(result)

	w.writeHeader(md, albums, report)
	w.writeAlbums(md, albums)
	w.writeFailures(md, report)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the fetch information, the coverage chart and an alert.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, albums []*model.Album, report *pipeline.Report) {
	md.H1("Lyrics Report: " + report.Artist)
	md.PlainText("")

	elapsed := report.Elapsed.String()
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Artist", report.Artist},
			{"Provider", report.Provider},
			{"Scope", scopeOf(report)},
			{"Started", report.StartedAt.Format("2006-01-02 15:04:05")},
			{"Elapsed", elapsed},
			{"Albums", strconv.Itoa(report.AlbumsFetched) + " / " + strconv.Itoa(report.AlbumsListed)},
			{"Rotations", strconv.Itoa(report.Rotations)},
		},
	})
	md.PlainText("")

	songs, withLyrics := 0, 0
	for _, album := range albums {
		songs += album.Len()
		withLyrics += album.LyricsCount()
	}

	if songs > 0 {
		w.writePieChart(md, withLyrics, songs-withLyrics)
	}
	w.writeAlert(md, report, songs, withLyrics)
}

// writePieChart writes a mermaid pie chart of lyrics coverage.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, withLyrics, without int) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Lyrics Coverage"),
		piechart.WithShowData(true),
	)

	if withLyrics > 0 {
		chart.LabelAndIntValue("With lyrics", uint64(withLyrics))
	}
	if without > 0 {
		chart.LabelAndIntValue("Missing", uint64(without))
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeAlert writes an alert that matches how complete the fetch was.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, report *pipeline.Report, songs, withLyrics int) {
	switch {
	case report.Failed():
		md.Cautionf("No album of %s could be fetched from %s.", report.Artist, report.Provider)
	case withLyrics < songs:
		md.Warningf("Lyrics are missing for %d of %d song(s).", songs-withLyrics, songs)
	case len(report.Failures) > 0:
		md.Note("Every song has lyrics, but some requests failed.")
	default:
		md.Tip("Lyrics were retrieved for every song.")
	}
	md.PlainText("")
}

// writeAlbums writes one table row per album and, with WithLyrics, the lyrics.
func (w *MarkdownWriter) writeAlbums(md *markdown.Markdown, albums []*model.Album) {
	md.H2("Albums")
	md.PlainText("")

	if len(albums) == 0 {
		md.PlainText("No albums fetched.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(albums))
	for i, album := range albums {
		rows[i] = []string{
			album.Title(),
			yearText(album.Year()),
			strconv.Itoa(album.Len()),
			strconv.Itoa(album.LyricsCount()),
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Album", "Year", "Songs", "With lyrics"},
		Rows:   rows,
	})
	md.PlainText("")

	for _, album := range albums {
		titles := make([]string, 0, album.Len())
		for _, song := range album.All() {
			if song.HasLyrics() {
				titles = append(titles, song.Title)
			} else {
				titles = append(titles, song.Title+" (no lyrics)")
			}
		}
		if len(titles) == 0 {
			continue
		}

		md.H3(album.Title())
		md.PlainText("")
		md.BulletList(titles...)
		md.PlainText("")

		if !w.lyrics {
			continue
		}
		for _, song := range album.All() {
			if song.HasLyrics() {
				md.Details(song.Title, song.Lyrics)
			}
		}
		md.PlainText("")
	}
}

// writeFailures writes a table of failed requests.
func (w *MarkdownWriter) writeFailures(md *markdown.Markdown, report *pipeline.Report) {
	if len(report.Failures) == 0 {
		return
	}

	md.H2("Failures")
	md.PlainText("")

	rows := make([][]string, len(report.Failures))
	for i, f := range report.Failures {
		rows[i] = []string{
			orDash(f.Album),
			orDash(f.Song),
			kindName(f.Err),
			truncateString(f.Err.Error(), 80),
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Album", "Song", "Kind", "Error"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [lyricsmaster](https://github.com/nao1215/lyricsmaster)*")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// truncateString truncates a string to maxLen characters with ellipsis.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
