package pipeline

import (
	"strings"

	"github.com/samber/lo"
)

// Request names what to fetch. Album and Song narrow the result: with Album
// set GetLyrics returns one *model.Album, with Song set one *model.Song, and
// otherwise a *model.Discography.
type Request struct {
	Artist string
	Album  string
	Song   string
}

// scoped reports whether the request asks for less than a discography.
func (r Request) scoped() bool {
	return r.Album != "" || r.Song != ""
}

// matchTitles returns the items whose title contains query, ignoring case.
// When some titles are equal to query, only those are returned. An empty
// query keeps every item.
func matchTitles[T any](items []T, query string, title func(T) string) []T {
	if query == "" {
		return items
	}
	query = strings.ToLower(strings.TrimSpace(query))

	exact := lo.Filter(items, func(item T, _ int) bool {
		return strings.ToLower(strings.TrimSpace(title(item))) == query
	})
	if len(exact) > 0 {
		return exact
	}
	return lo.Filter(items, func(item T, _ int) bool {
		return strings.Contains(strings.ToLower(title(item)), query)
	})
}
