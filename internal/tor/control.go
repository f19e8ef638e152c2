package tor

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/samber/lo"
)

const (
	// DefaultRotationTimeout bounds the wait for a new circuit after NEWNYM.
	DefaultRotationTimeout = 30 * time.Second

	// DefaultNewnymInterval is Tor's rate limit for SIGNAL NEWNYM. Tor
	// accepts signals sent earlier but delays them silently.
	DefaultNewnymInterval = 10 * time.Second

	quitTimeout = 2 * time.Second
)

// State is the lifecycle state of a Controller.
type State int32

const (
	// StateDisconnected is the initial and final state.
	StateDisconnected State = iota
	// StateConnected means the SOCKS proxy was verified.
	StateConnected
	// StateRotating means a Rotate call is in progress.
	StateRotating
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnected:
		return "connected"
	case StateRotating:
		return "rotating"
	default:
		return "unknown"
	}
}

// Controller owns the relationship with one Tor daemon: the SOCKS proxy that
// transport uses and the control port that rotates identities.
//
// Rotate is serialized internally, but the pipeline only calls it from its
// sequential album loop anyway.
type Controller struct {
	socksAddr       string
	controlNetwork  string
	controlAddr     string
	password        string
	cookieFile      string
	rotationTimeout time.Duration
	newnymInterval  time.Duration
	logger          *slog.Logger
	dialer          Dialer

	state atomic.Int32

	mu         sync.Mutex
	session    *session
	lastNewnym time.Time
	rotations  int
}

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithControlAddr enables identity rotation through the control port at
// address. It accepts "host:port", a bare port meaning 127.0.0.1, an
// absolute unix socket path, or "unix:/path".
func WithControlAddr(address string) ControllerOption {
	return func(c *Controller) {
		c.controlNetwork, c.controlAddr = ParseControlAddr(address)
	}
}

// WithPassword authenticates with HashedControlPassword.
func WithPassword(password string) ControllerOption {
	return func(c *Controller) {
		c.password = password
	}
}

// WithCookieFile reads the authentication cookie from path instead of the
// location reported by PROTOCOLINFO.
func WithCookieFile(path string) ControllerOption {
	return func(c *Controller) {
		c.cookieFile = path
	}
}

// WithRotationTimeout bounds the wait for a new circuit.
func WithRotationTimeout(timeout time.Duration) ControllerOption {
	return func(c *Controller) {
		c.rotationTimeout = timeout
	}
}

// WithNewnymInterval sets the minimum spacing between two NEWNYM signals.
func WithNewnymInterval(interval time.Duration) ControllerOption {
	return func(c *Controller) {
		c.newnymInterval = interval
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ControllerOption {
	return func(c *Controller) {
		c.logger = logger
	}
}

// WithDialer replaces the dialer used for the proxy check and the control
// connection.
func WithDialer(dialer Dialer) ControllerOption {
	return func(c *Controller) {
		c.dialer = dialer
	}
}

// NewController creates a disconnected Controller for the Tor SOCKS proxy at
// socksAddr. Without WithControlAddr, Rotate fails with ErrControlDisabled.
func NewController(socksAddr string, opts ...ControllerOption) *Controller {
	c := &Controller{
		socksAddr:       socksAddr,
		rotationTimeout: DefaultRotationTimeout,
		newnymInterval:  DefaultNewnymInterval,
		logger:          slog.Default(),
		dialer:          &net.Dialer{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ParseControlAddr splits a control address into a network and an address
// for net.Dial.
func ParseControlAddr(address string) (network, addr string) {
	switch {
	case address == "":
		return "", ""
	case strings.HasPrefix(address, "unix:"):
		return "unix", strings.TrimPrefix(address, "unix:")
	case strings.HasPrefix(address, "/"):
		return "unix", address
	case isPort(address):
		return "tcp", net.JoinHostPort("127.0.0.1", address)
	default:
		return "tcp", address
	}
}

func isPort(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// SocksAddr returns the SOCKS proxy address.
func (c *Controller) SocksAddr() string {
	return c.socksAddr
}

// ControlEnabled reports whether a control address is configured.
func (c *Controller) ControlEnabled() bool {
	return c.controlAddr != ""
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	return State(c.state.Load())
}

// Ready returns ErrNotConnected unless Connect has succeeded and Disconnect
// has not been called since.
func (c *Controller) Ready() error {
	if c.State() == StateDisconnected {
		return ErrNotConnected
	}
	return nil
}

// Rotations returns the number of NEWNYM signals Tor accepted.
func (c *Controller) Rotations() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rotations
}

// Connect verifies the SOCKS proxy and moves the controller to Connected.
// An unreachable or non-SOCKS5 proxy is a configuration error.
// Calling Connect on a connected controller is a no-op.
func (c *Controller) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.State() != StateDisconnected {
		return nil
	}

	status := CheckProxy(ctx, c.dialer, c.socksAddr)
	if err := status.Error(); err != nil {
		return fmt.Errorf("tor proxy %s: %w", c.socksAddr, err)
	}

	c.state.Store(int32(StateConnected))
	c.logger.Debug("tor proxy verified", "socks", c.socksAddr)
	return nil
}

// Rotate asks Tor for a new identity and blocks until a new circuit is built
// or the rotation timeout elapses. A timeout is logged and still counts as a
// rotation, since Tor has accepted the signal and will not reuse old
// circuits for new streams.
//
// Rotate fails at once with ErrNotConnected when the controller is not
// connected, and with ErrControlDisabled when no control address is set.
func (c *Controller) Rotate(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.state.CompareAndSwap(int32(StateConnected), int32(StateRotating)) {
		return ErrNotConnected
	}
	defer c.state.Store(int32(StateConnected))

	if c.controlAddr == "" {
		return ErrControlDisabled
	}

	sess, err := c.openSession(ctx)
	if err != nil {
		return err
	}

	if err := c.waitNewnymAvailable(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrRotationCanceled, err)
	}

	sess.drainEvents()
	rep, err := sess.command(ctx, "SIGNAL NEWNYM")
	if err != nil {
		c.dropSession()
		return fmt.Errorf("%w: SIGNAL NEWNYM: %w", ErrControlCommand, err)
	}
	if !rep.ok() {
		return fmt.Errorf("%w: SIGNAL NEWNYM: %w", ErrControlCommand, rep.err())
	}
	c.lastNewnym = time.Now()
	c.rotations++

	return c.waitCircuit(ctx, sess)
}

// Disconnect closes the control session and returns to Disconnected.
// It is idempotent.
func (c *Controller) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var err error
	if c.session != nil {
		ctx, cancel := context.WithTimeout(context.Background(), quitTimeout)
		_, _ = c.session.command(ctx, "QUIT") //nolint:errcheck // best effort before close
		cancel()
		err = c.session.close()
		c.session = nil
	}
	c.state.Store(int32(StateDisconnected))
	return err
}

// openSession returns the authenticated session, dialing on first use.
// Must be called with c.mu held.
func (c *Controller) openSession(ctx context.Context) (*session, error) {
	if c.session != nil {
		select {
		case <-c.session.done:
			c.dropSession()
		default:
			return c.session, nil
		}
	}

	conn, err := c.dialer.DialContext(ctx, c.controlNetwork, c.controlAddr)
	if err != nil {
		return nil, fmt.Errorf("%w: dial control port %s: %w", ErrControlCommand, c.controlAddr, err)
	}
	sess := newSession(conn)

	if err := c.authenticate(ctx, sess); err != nil {
		_ = sess.close() //nolint:errcheck // already failing
		return nil, err
	}

	rep, err := sess.command(ctx, "SETEVENTS CIRC")
	if err == nil {
		err = rep.err()
	}
	if err != nil {
		_ = sess.close() //nolint:errcheck // already failing
		return nil, fmt.Errorf("%w: SETEVENTS: %w", ErrControlCommand, err)
	}

	c.session = sess
	c.logger.Debug("tor control session opened", "control", c.controlAddr)
	return sess, nil
}

func (c *Controller) dropSession() {
	if c.session != nil {
		_ = c.session.close() //nolint:errcheck // connection is already unusable
		c.session = nil
	}
}

// authenticate picks a method from PROTOCOLINFO: the password when one is
// configured, then the cookie, then NULL.
func (c *Controller) authenticate(ctx context.Context, sess *session) error {
	rep, err := sess.command(ctx, "PROTOCOLINFO 1")
	if err == nil {
		err = rep.err()
	}
	if err != nil {
		return fmt.Errorf("%w: PROTOCOLINFO: %w", ErrAuthentication, err)
	}
	info, err := parseProtocolInfo(rep)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrAuthentication, err)
	}

	var line string
	switch {
	case c.password != "" && info.methods["HASHEDPASSWORD"]:
		line = "AUTHENTICATE " + quoteString(c.password)
	case info.methods["COOKIE"]:
		path := c.cookieFile
		if path == "" {
			path = info.cookieFile
		}
		cookie, err := os.ReadFile(path) //nolint:gosec // path comes from Tor or the user
		if err != nil {
			return fmt.Errorf("%w: read auth cookie: %w", ErrAuthentication, err)
		}
		line = "AUTHENTICATE " + hex.EncodeToString(cookie)
	case info.methods["NULL"]:
		line = "AUTHENTICATE"
	default:
		return fmt.Errorf("%w: no supported method in %v", ErrAuthentication, lo.Keys(info.methods))
	}

	rep, err = sess.command(ctx, line)
	if err == nil {
		err = rep.err()
	}
	if err != nil {
		return fmt.Errorf("%w: %w", ErrAuthentication, err)
	}
	return nil
}

// waitNewnymAvailable sleeps until the NEWNYM interval has passed since the
// previous signal.
func (c *Controller) waitNewnymAvailable(ctx context.Context) error {
	if c.lastNewnym.IsZero() {
		return nil
	}
	wait := c.newnymInterval - time.Since(c.lastNewnym)
	if wait <= 0 {
		return nil
	}

	c.logger.Debug("waiting for NEWNYM rate limit", "wait", wait)
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// waitCircuit blocks until a CIRC BUILT event arrives.
func (c *Controller) waitCircuit(ctx context.Context, sess *session) error {
	timer := time.NewTimer(c.rotationTimeout)
	defer timer.Stop()

	for {
		select {
		case event := <-sess.events:
			if circuitBuilt(event) {
				c.logger.Debug("tor identity rotated", "event", event)
				return nil
			}
		case <-timer.C:
			c.logger.Warn("no new circuit reported after NEWNYM",
				"timeout", c.rotationTimeout,
			)
			return nil
		case <-sess.done:
			c.dropSession()
			return fmt.Errorf("%w: %w", ErrControlClosed, sess.readErr)
		case <-ctx.Done():
			return fmt.Errorf("%w: %w", ErrRotationCanceled, ctx.Err())
		}
	}
}
