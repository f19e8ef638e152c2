package tor

import (
	"errors"
	"fmt"

	"github.com/nao1215/lyricsmaster/internal/model"
)

// Proxy errors. They are configuration errors: the fetch cannot start
// without a working proxy.
var (
	// ErrProxyNotTor is returned when the proxy address answers but does not
	// speak SOCKS5 without authentication.
	ErrProxyNotTor = fmt.Errorf("%w: proxy is not a Tor SOCKS5 proxy", model.ErrConfiguration)

	// ErrProxyCannotConnect is returned when no TCP connection can be made
	// to the proxy. Tor is usually not running.
	ErrProxyCannotConnect = fmt.Errorf("%w: cannot connect to Tor proxy", model.ErrConfiguration)

	// ErrProxyTimeout is returned when the proxy handshake times out.
	ErrProxyTimeout = fmt.Errorf("%w: timeout connecting to Tor proxy", model.ErrConfiguration)

	// ErrNotConnected is returned by Rotate before Connect succeeded or
	// after Disconnect.
	ErrNotConnected = fmt.Errorf("%w: Tor controller is not connected", model.ErrConfiguration)
)

// Rotation errors. They are reported to the caller but do not stop a fetch.
var (
	// ErrControlDisabled is returned by Rotate when no control address is
	// configured.
	ErrControlDisabled = fmt.Errorf("%w: Tor control port is not configured", model.ErrRotation)

	// ErrAuthentication is returned when the control port rejects every
	// authentication method we can offer.
	ErrAuthentication = fmt.Errorf("%w: Tor control authentication failed", model.ErrRotation)

	// ErrControlClosed is returned when the control connection drops while
	// a command is in flight.
	ErrControlClosed = fmt.Errorf("%w: Tor control connection closed", model.ErrRotation)

	// ErrControlCommand is returned when the control port cannot be reached
	// or rejects a command other than AUTHENTICATE.
	ErrControlCommand = fmt.Errorf("%w: Tor control command failed", model.ErrRotation)

	// ErrRotationCanceled is returned when the context ends while Rotate
	// waits for the rate limit or for a new circuit.
	ErrRotationCanceled = fmt.Errorf("%w: rotation canceled", model.ErrRotation)

	// ErrEmbeddedNotRunning is returned when a controller is requested from
	// an embedded daemon that has not been started.
	ErrEmbeddedNotRunning = errors.New("embedded Tor daemon is not running")
)

// ReplyError is a non-success reply from the control port.
type ReplyError struct {
	// Code is the three digit status code, for example 515 or 552.
	Code int

	// Text is the reply text after the code.
	Text string
}

// Error implements the error interface.
func (e *ReplyError) Error() string {
	return fmt.Sprintf("tor control reply %d %s", e.Code, e.Text)
}

// ProxyStatus is the result of a SOCKS5 proxy check.
type ProxyStatus int

const (
	// ProxyStatusOK indicates a working SOCKS5 proxy.
	ProxyStatusOK ProxyStatus = iota

	// ProxyStatusWrongType indicates that something answered but it is not
	// an unauthenticated SOCKS5 proxy.
	ProxyStatusWrongType

	// ProxyStatusCannotConnect indicates the TCP connection failed.
	ProxyStatusCannotConnect

	// ProxyStatusTimeout indicates the handshake timed out.
	ProxyStatusTimeout
)

// String returns a human-readable description of the proxy status.
func (s ProxyStatus) String() string {
	switch s {
	case ProxyStatusOK:
		return "OK"
	case ProxyStatusWrongType:
		return "wrong type (not Tor)"
	case ProxyStatusCannotConnect:
		return "cannot connect"
	case ProxyStatusTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// Error returns the error for this status, or nil if OK.
func (s ProxyStatus) Error() error {
	switch s {
	case ProxyStatusOK:
		return nil
	case ProxyStatusWrongType:
		return ErrProxyNotTor
	case ProxyStatusCannotConnect:
		return ErrProxyCannotConnect
	case ProxyStatusTimeout:
		return ErrProxyTimeout
	default:
		return fmt.Errorf("%w: unknown proxy status", model.ErrConfiguration)
	}
}
