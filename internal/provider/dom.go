package provider

import (
	"bytes"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

// matcher selects element nodes.
type matcher func(*html.Node) bool

func parseHTML(body []byte) (*html.Node, error) {
	return html.Parse(bytes.NewReader(body))
}

// tag matches elements by name, optionally requiring every extra matcher.
func tag(name string, extra ...matcher) matcher {
	return func(n *html.Node) bool {
		if n.Type != html.ElementNode || n.Data != name {
			return false
		}
		for _, m := range extra {
			if !m(n) {
				return false
			}
		}
		return true
	}
}

// hasClass matches elements whose class list contains every given class.
func hasClass(classes ...string) matcher {
	return func(n *html.Node) bool {
		have := strings.Fields(getAttr(n, "class"))
		for _, want := range classes {
			found := false
			for _, c := range have {
				if c == want {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		}
		return true
	}
}

// classPrefix matches elements with a class that starts with prefix.
func classPrefix(prefix string) matcher {
	return func(n *html.Node) bool {
		for _, c := range strings.Fields(getAttr(n, "class")) {
			if strings.HasPrefix(c, prefix) {
				return true
			}
		}
		return false
	}
}

func hasID(id string) matcher {
	return func(n *html.Node) bool {
		return getAttr(n, "id") == id
	}
}

// bare matches elements that carry neither a class nor an id.
func bare() matcher {
	return func(n *html.Node) bool {
		return !hasAttr(n, "class") && !hasAttr(n, "id")
	}
}

// find returns the first descendant of n, in document order, that matches.
func find(n *html.Node, m matcher) *html.Node {
	if n == nil {
		return nil
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if m(c) {
			return c
		}
		if found := find(c, m); found != nil {
			return found
		}
	}
	return nil
}

// findAll returns every descendant of n that matches, in document order.
func findAll(n *html.Node, m matcher) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if m(c) {
				out = append(out, c)
			}
			walk(c)
		}
	}
	if n != nil {
		walk(n)
	}
	return out
}

// nextSibling returns the first following element sibling that matches.
func nextSibling(n *html.Node, m matcher) *html.Node {
	for s := n.NextSibling; s != nil; s = s.NextSibling {
		if m(s) {
			return s
		}
	}
	return nil
}

// textOf returns the concatenated text of n and its descendants.
func textOf(n *html.Node) string {
	return strings.Join(textStrings(n), "")
}

// textStrings returns every text node below n in document order, without
// trimming.
func textStrings(n *html.Node) []string {
	var out []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			out = append(out, n.Data)
			return
		}
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	if n != nil {
		walk(n)
	}
	return out
}

// getAttr retrieves an attribute value from an HTML node.
func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

func hasAttr(n *html.Node, key string) bool {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return true
		}
	}
	return false
}

var (
	yearPattern   = regexp.MustCompile(`\b(1[89]\d{2}|20\d{2})\b`)
	parenPattern  = regexp.MustCompile(`\(([^()]+)\)`)
	quotedPattern = regexp.MustCompile(`"([^"]*)"`)
)

// parseYear returns the first plausible four digit year in text, or 0.
func parseYear(text string) int {
	m := yearPattern.FindString(text)
	if m == "" {
		return 0
	}
	year, err := strconv.Atoi(m)
	if err != nil {
		return 0
	}
	return year
}

// parenthesized returns the text inside the first pair of parentheses.
func parenthesized(text string) string {
	if m := parenPattern.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	return ""
}

// joinLines joins text nodes with newlines, dropping the blank nodes that
// markup whitespace produces at either end.
func joinLines(parts []string) string {
	return strings.Trim(strings.Join(parts, "\n"), "\n \t\r")
}
