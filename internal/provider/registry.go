package provider

import (
	"fmt"
	"strings"

	"github.com/nao1215/lyricsmaster/internal/model"
)

// Default is the provider used when none is requested.
const Default = "lyricwiki"

// ErrUnknownProvider is returned by New for a name that is not registered.
var ErrUnknownProvider = fmt.Errorf("%w: unknown provider", model.ErrConfiguration)

// Names returns the registered provider names in display order.
func Names() []string {
	return []string{"lyricwiki", "azlyrics", "genius", "lyrics007", "musixmatch"}
}

// New returns the provider registered under name. Names are matched
// case-insensitively.
func New(name string, fetcher Fetcher, opts ...Option) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "lyricwiki":
		return NewLyricWiki(fetcher, opts...), nil
	case "azlyrics":
		return NewAzLyrics(fetcher, opts...), nil
	case "genius":
		return NewGenius(fetcher, opts...), nil
	case "lyrics007":
		return NewLyrics007(fetcher, opts...), nil
	case "musixmatch":
		return NewMusixMatch(fetcher, opts...), nil
	default:
		return nil, fmt.Errorf("%w %q (available: %s)", ErrUnknownProvider, name, strings.Join(Names(), ", "))
	}
}

// Known reports whether name is a registered provider.
func Known(name string) bool {
	for _, n := range Names() {
		if strings.EqualFold(n, strings.TrimSpace(name)) {
			return true
		}
	}
	return false
}
