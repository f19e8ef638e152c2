// Package model defines the Artist→Album→Song hierarchy produced by a fetch.
//
// The three types are plain aggregates. The dispatcher builds them once, and
// nothing mutates them afterwards: Album and Discography keep their sequences
// unexported and hand out copies, and Song is a small value type.
//
// Album and Discography support integer indexing and slicing. Negative
// indices count from the end, and out-of-range or reversed slice bounds
// produce an empty result rather than an error.
//
// The package also holds the error taxonomy shared by all layers (errors.go)
// and the on-disk text layout used by Save (save.go).
package model
