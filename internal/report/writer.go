package report

import (
	"io"
	"strconv"

	"github.com/nao1215/lyricsmaster/internal/model"
	"github.com/nao1215/lyricsmaster/internal/pipeline"
)

// Writer renders a fetch result and its report.
type Writer interface {
	// Write outputs result and report to the configured destination.
	// Returns the number of bytes written and any error encountered.
	Write(result model.Result, report *pipeline.Report) (int, error)
}

// MultiWriter writes to multiple Writers in turn.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs to all configured Writers and returns the total bytes
// written. It stops on the first error.
func (m *MultiWriter) Write(result model.Result, report *pipeline.Report) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(result, report)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// albumsOf flattens a result into albums. A single song is shown as an
// album of one.
func albumsOf(result model.Result) []*model.Album {
	switch r := result.(type) {
	case *model.Discography:
		return r.Albums()
	case *model.Album:
		return []*model.Album{r}
	case *model.Song:
		return []*model.Album{model.NewAlbum(r.Album, r.Artist, 0, []model.Song{*r})}
	default:
		return nil
	}
}

// scopeOf describes what was requested.
func scopeOf(report *pipeline.Report) string {
	switch {
	case report.Song != "" && report.Album != "":
		return "song " + report.Song + " on " + report.Album
	case report.Song != "":
		return "song " + report.Song
	case report.Album != "":
		return "album " + report.Album
	default:
		return "discography"
	}
}

// kindName names the error kind of err for display.
func kindName(err error) string {
	kind := model.Kind(err)
	if kind == nil {
		return "error"
	}
	return kind.Error()
}

func yearText(year int) string {
	if year == 0 {
		return "-"
	}
	return strconv.Itoa(year)
}
