// Package provider turns lyrics websites into one contract.
//
// Every source lists an artist's albums, lists the songs of an album and
// extracts lyrics from a song page. Each variant knows its own URL slug
// rules and markup; the pipeline only sees the Provider interface and asks
// the registry for a variant by name.
//
// Providers never fetch song pages themselves. The pipeline downloads them
// concurrently and hands the bodies to ParseLyrics.
package provider
