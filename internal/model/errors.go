package model

import "errors"

// Error kinds shared by every layer of the fetch pipeline.
// Packages wrap these with fmt.Errorf("...: %w", kind) or with their own
// sentinels so that callers can classify any failure with errors.Is.
var (
	// ErrConfiguration covers bad proxy or provider setup. It is the only kind
	// that aborts a whole fetch, and it is detected before network activity.
	ErrConfiguration = errors.New("configuration error")

	// ErrNotFound means the artist, album or song is absent at the source.
	// It yields an empty result at that level.
	ErrNotFound = errors.New("not found")

	// ErrTransientNetwork is a timeout, reset or 5xx that survived one retry.
	ErrTransientNetwork = errors.New("transient network error")

	// ErrParse means the page markup did not have the expected shape.
	ErrParse = errors.New("unexpected page markup")

	// ErrRotation means an identity rotation failed. The fetch continues
	// without a fresh identity.
	ErrRotation = errors.New("identity rotation failed")
)

// Kind returns the taxonomy sentinel that err wraps, or nil when err does not
// belong to any known kind.
func Kind(err error) error {
	for _, kind := range []error{ErrConfiguration, ErrNotFound, ErrTransientNetwork, ErrParse, ErrRotation} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}
