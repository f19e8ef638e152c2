package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"

	"github.com/nao1215/lyricsmaster/internal/pipeline"
	"github.com/nao1215/lyricsmaster/internal/provider"
	"github.com/nao1215/lyricsmaster/internal/tor"
	"github.com/nao1215/lyricsmaster/internal/transport"
)

// Default configuration values.
const (
	// DefaultProvider is the lyrics site used when none is chosen.
	DefaultProvider = provider.Default

	// DefaultWorkers is the number of songs fetched in parallel.
	DefaultWorkers = pipeline.DefaultWorkers

	// DefaultTimeout bounds one HTTP request. Tor circuits are slow, so it
	// is generous.
	DefaultTimeout = transport.DefaultTimeout

	// DefaultRetryBackoff is the pause before a failed request is retried.
	DefaultRetryBackoff = transport.DefaultRetryBackoff

	// DefaultSocksAddress is the standard Tor SOCKS5 proxy address.
	// We use 127.0.0.1 instead of localhost to avoid DNS resolution overhead
	// and potential issues with IPv6 resolution on some systems.
	DefaultSocksAddress = "127.0.0.1:9050"

	// DefaultRotationTimeout bounds the wait for a new circuit.
	DefaultRotationTimeout = tor.DefaultRotationTimeout

	// DefaultTorStartupTimeout is the maximum time to wait for the embedded
	// Tor daemon to bootstrap.
	DefaultTorStartupTimeout = tor.DefaultStartupTimeout

	// DefaultUserAgent is sent with every request.
	DefaultUserAgent = transport.DefaultUserAgent

	// DefaultMaxBodySize limits the size of a page body.
	DefaultMaxBodySize = transport.DefaultMaxBodySize

	// AppName is the application name used for XDG directory paths.
	AppName = "lyricsmaster"
)

// Config holds all configuration options for lyricsmaster.
// It is populated from the config file and CLI flags and passed through
// the application rather than kept in global state.
type Config struct {
	// Artist is the artist whose lyrics are fetched. Required.
	Artist string

	// Album narrows the fetch to the first album whose title matches.
	Album string

	// Song narrows the fetch to one song.
	Song string

	// Provider is the registered name of the lyrics site.
	Provider string

	// SaveDir is the directory lyrics are saved below, with "LyricsMaster"
	// appended. Empty selects the user's documents directory.
	SaveDir string

	// NoSave disables writing lyrics files.
	NoSave bool

	// Workers is the number of songs fetched in parallel.
	Workers int

	// Timeout bounds each HTTP request.
	Timeout time.Duration

	// RetryBackoff is the pause before a transient failure is retried.
	RetryBackoff time.Duration

	// UserAgent is the User-Agent header sent with HTTP requests.
	UserAgent string

	// MaxBodySize is the maximum response body size in bytes to read.
	// Set to 0 to use the default (5MB).
	MaxBodySize int64

	// Tor routes every request through a Tor SOCKS5 proxy.
	Tor bool

	// SocksAddress is the Tor SOCKS5 proxy in "host:port" format.
	SocksAddress string

	// ControlAddress is the Tor control port. It enables identity rotation
	// between albums. A bare port means 127.0.0.1:PORT and a path is a unix
	// socket.
	ControlAddress string

	// ControlPassword authenticates to the control port.
	ControlPassword string

	// CookieFile overrides the cookie file announced by the control port.
	CookieFile string

	// RotationTimeout bounds the wait for a new circuit after a rotation.
	RotationTimeout time.Duration

	// EmbeddedTor starts a private Tor daemon instead of using a running one.
	// It implies Tor and enables rotation.
	EmbeddedTor bool

	// TorStartupTimeout is the maximum time to wait for the embedded daemon.
	TorStartupTimeout time.Duration

	// Cache serves songs already in the library without a request.
	Cache bool

	// DBDir is the directory of the library database.
	// Defaults to XDG data directory (~/.local/share/lyricsmaster on Linux).
	DBDir string

	// JSONReport selects the JSON report. Mutually exclusive with
	// MarkdownReport.
	JSONReport bool

	// MarkdownReport selects the Markdown report.
	MarkdownReport bool

	// ReportFile is the output file path for the report.
	// When set, the report is written to this file instead of stdout.
	ReportFile string

	// ConfigFilePath is the path to the configuration file.
	// If empty, FindConfigFile searches the usual places.
	ConfigFilePath string

	// Verbose enables detailed log output using slog.LevelDebug.
	Verbose bool

	// LogFile additionally writes logs to a rotating file.
	LogFile string
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		Provider:          DefaultProvider,
		Workers:           DefaultWorkers,
		Timeout:           DefaultTimeout,
		RetryBackoff:      DefaultRetryBackoff,
		UserAgent:         DefaultUserAgent,
		MaxBodySize:       DefaultMaxBodySize,
		SocksAddress:      DefaultSocksAddress,
		RotationTimeout:   DefaultRotationTimeout,
		TorStartupTimeout: DefaultTorStartupTimeout,
		DBDir:             XDGDataDir(),
	}
}

// XDGDataDir returns the XDG data directory for lyricsmaster.
// On Linux: ~/.local/share/lyricsmaster
// On macOS: ~/Library/Application Support/lyricsmaster
// On Windows: %LOCALAPPDATA%\lyricsmaster
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for lyricsmaster.
// On Linux: ~/.config/lyricsmaster
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// UsesTor reports whether requests go through Tor.
func (c *Config) UsesTor() bool {
	return c.Tor || c.EmbeddedTor
}

// Scope describes the requested album or song, or returns "" for a whole
// discography.
func (c *Config) Scope() string {
	switch {
	case c.Song != "":
		return "song:" + c.Song
	case c.Album != "":
		return "album:" + c.Album
	default:
		return ""
	}
}

// Validate checks if the configuration is valid.
// It returns the first problem found. Every error wraps
// model.ErrConfiguration.
func (c *Config) Validate() error {
	if c.Artist == "" {
		return ErrNoArtist
	}

	if !provider.Known(c.Provider) {
		return ErrUnknownProvider
	}

	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.Workers <= 0 {
		return ErrInvalidWorkers
	}

	// The embedded daemon picks its own addresses.
	if c.Tor && !c.EmbeddedTor && !transport.ValidProxyAddress(c.SocksAddress) {
		return ErrInvalidProxyAddress
	}

	if !c.UsesTor() && (c.ControlAddress != "" || c.ControlPassword != "" || c.CookieFile != "") {
		return ErrControlWithoutTor
	}

	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}

	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}

	return nil
}
