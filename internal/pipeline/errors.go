package pipeline

import (
	"fmt"

	"github.com/nao1215/lyricsmaster/internal/model"
)

var (
	// ErrNoArtist is returned when the request has no artist.
	ErrNoArtist = fmt.Errorf("%w: artist name is required", model.ErrConfiguration)

	// ErrNoProvider is returned when the dispatcher has no provider.
	ErrNoProvider = fmt.Errorf("%w: no lyrics provider configured", model.ErrConfiguration)

	// ErrNoFetcher is returned when the dispatcher has no fetcher.
	ErrNoFetcher = fmt.Errorf("%w: no fetcher configured", model.ErrConfiguration)
)
