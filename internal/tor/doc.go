// Package tor manages the Tor daemon that lyricsmaster routes its traffic
// through.
//
// A Controller verifies that the SOCKS proxy answers, and rotates the exit
// identity between albums by sending SIGNAL NEWNYM over the control port.
// Rotate blocks until Tor reports a freshly built circuit, so that no
// request issued afterwards can ride on the previous identity.
//
// EmbeddedTor starts a private daemon through tornago for users who do not
// run Tor themselves.
package tor
