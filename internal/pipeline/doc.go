// Package pipeline fetches the lyrics of an artist from one provider.
//
// A Dispatcher reads the artist index once, narrows it to the requested
// album or song, and then walks the albums in listing order. When a Rotator
// is configured, each album starts with a fresh Tor identity and no song of
// the next album is requested before that rotation has finished. The song
// pages of one album are downloaded by a bounded worker pool and put back in
// listing order, so the result does not depend on the number of workers.
//
// Failures below the configuration level never abort a fetch. A song that
// cannot be fetched keeps its place with empty lyrics, and the cause is
// recorded in the Report.
package pipeline
