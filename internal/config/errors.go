package config

import (
	"fmt"

	"github.com/nao1215/lyricsmaster/internal/model"
)

// Configuration validation errors.
// These errors are returned by Config.Validate() and provide specific
// information about what is wrong with the configuration. Every one of them
// wraps model.ErrConfiguration.
var (
	// ErrNoArtist is returned when no artist is given.
	ErrNoArtist = fmt.Errorf("%w: no artist specified", model.ErrConfiguration)

	// ErrUnknownProvider is returned when the provider name is not registered.
	ErrUnknownProvider = fmt.Errorf("%w: unknown provider", model.ErrConfiguration)

	// ErrInvalidTimeout is returned when the timeout is not positive.
	ErrInvalidTimeout = fmt.Errorf("%w: invalid timeout: must be positive", model.ErrConfiguration)

	// ErrInvalidWorkers is returned when the worker count is not positive.
	ErrInvalidWorkers = fmt.Errorf("%w: invalid workers: must be positive", model.ErrConfiguration)

	// ErrInvalidProxyAddress is returned when the SOCKS address is not host:port.
	ErrInvalidProxyAddress = fmt.Errorf("%w: invalid proxy address: expected host:port", model.ErrConfiguration)

	// ErrControlWithoutTor is returned when control port settings are given
	// but Tor is not enabled.
	ErrControlWithoutTor = fmt.Errorf("%w: control port settings require --tor", model.ErrConfiguration)

	// ErrConflictingReportFormats is returned when both --json and --markdown
	// are specified. Only one output format can be used at a time.
	ErrConflictingReportFormats = fmt.Errorf("%w: conflicting report formats: --json and --markdown cannot be used together", model.ErrConfiguration)

	// ErrInvalidMaxBodySize is returned when the max body size is negative.
	// A negative body size is invalid; use 0 to use the default limit.
	ErrInvalidMaxBodySize = fmt.Errorf("%w: invalid max body size: must be non-negative", model.ErrConfiguration)
)
