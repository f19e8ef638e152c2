// Package transport fetches provider pages over HTTP.
//
// A Client issues GET requests, optionally through a SOCKS5 proxy such as
// Tor, retries once on transient failures, and returns the body decoded to
// UTF-8. Many lyrics sites declare one character set and send another, so
// the decoder falls back to a fixed list of encodings when the declared one
// produces replacement characters or mojibake.
package transport
