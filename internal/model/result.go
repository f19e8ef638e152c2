package model

// Result is what a lyrics fetch returns: a *Discography, an *Album or a
// *Song, depending on how narrow the request was. Callers switch on the
// concrete type.
type Result interface {
	// Save writes the lyrics below dir. An empty dir selects DefaultSaveDir.
	Save(dir string) error

	isResult()
}

var (
	_ Result = (*Song)(nil)
	_ Result = (*Album)(nil)
	_ Result = (*Discography)(nil)
)
