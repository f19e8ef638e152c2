// Package report renders the outcome of a lyrics fetch.
//
// This package contains writers for different output formats:
//   - SimpleWriter: human-readable text for the terminal
//   - MarkdownWriter: a Markdown document with tables and a chart
//   - JSONWriter: the fetched lyrics and the fetch summary as JSON
//
// Every writer receives the fetched model.Result together with the
// pipeline.Report that describes how the fetch went.
package report
