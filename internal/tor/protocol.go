package tor

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"net/textproto"
	"strconv"
	"strings"
	"sync"
)

// reply is one complete control-port reply.
// Lines holds the text of every line, without the status code and separator.
type reply struct {
	code  int
	lines []string
}

func (r reply) ok() bool {
	return r.code == 250
}

func (r reply) err() error {
	if r.ok() {
		return nil
	}
	return &ReplyError{Code: r.code, Text: strings.Join(r.lines, " ")}
}

// session is one open control connection.
// A reader goroutine splits the stream into synchronous replies and
// asynchronous 650 events.
type session struct {
	conn    net.Conn
	w       *textproto.Writer
	replies chan reply
	events  chan string
	done    chan struct{}
	closed  chan struct{}

	closeOnce sync.Once
	readErr   error
}

func newSession(conn net.Conn) *session {
	s := &session{
		conn:    conn,
		w:       textproto.NewWriter(bufio.NewWriter(conn)),
		replies: make(chan reply, 1),
		events:  make(chan string, 64),
		done:    make(chan struct{}),
		closed:  make(chan struct{}),
	}
	go s.readLoop(textproto.NewReader(bufio.NewReader(conn)))
	return s
}

func (s *session) readLoop(r *textproto.Reader) {
	defer close(s.done)

	for {
		rep, err := readReply(r)
		if err != nil {
			s.readErr = err
			return
		}
		if rep.code == 650 {
			for _, line := range rep.lines {
				select {
				case s.events <- line:
				default:
					// Nobody waits for old circuit events.
				}
			}
			continue
		}
		select {
		case s.replies <- rep:
		case <-s.closed:
			return
		}
	}
}

// readReply reads lines until the end line "NNN text".
// "NNN-text" continues the reply and "NNN+text" opens a data block that
// ends with a single ".".
func readReply(r *textproto.Reader) (reply, error) {
	var rep reply
	for {
		line, err := r.ReadLine()
		if err != nil {
			return reply{}, err
		}
		if len(line) < 4 {
			return reply{}, fmt.Errorf("malformed control reply %q", line)
		}
		code, err := strconv.Atoi(line[:3])
		if err != nil {
			return reply{}, fmt.Errorf("malformed control reply %q", line)
		}
		rep.code = code
		rep.lines = append(rep.lines, line[4:])

		switch line[3] {
		case ' ':
			return rep, nil
		case '-':
		case '+':
			data, err := r.ReadDotLines()
			if err != nil {
				return reply{}, err
			}
			rep.lines = append(rep.lines, data...)
		default:
			return reply{}, fmt.Errorf("malformed control reply %q", line)
		}
	}
}

// command sends one line and waits for its reply.
func (s *session) command(ctx context.Context, line string) (reply, error) {
	if err := s.w.PrintfLine("%s", line); err != nil {
		return reply{}, fmt.Errorf("%w: %w", ErrControlClosed, err)
	}
	select {
	case rep := <-s.replies:
		return rep, nil
	case <-s.done:
		return reply{}, fmt.Errorf("%w: %w", ErrControlClosed, s.readErr)
	case <-ctx.Done():
		return reply{}, ctx.Err()
	}
}

// drainEvents discards buffered events so that a wait only sees events that
// follow the next command.
func (s *session) drainEvents() {
	for {
		select {
		case <-s.events:
		default:
			return
		}
	}
}

func (s *session) close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.closed)
		err = s.conn.Close()
	})
	return err
}

// protocolInfo is the parsed PROTOCOLINFO reply.
type protocolInfo struct {
	methods    map[string]bool
	cookieFile string
}

// parseProtocolInfo reads the AUTH line:
//
//	AUTH METHODS=COOKIE,HASHEDPASSWORD COOKIEFILE="/run/tor/control.authcookie"
func parseProtocolInfo(rep reply) (protocolInfo, error) {
	info := protocolInfo{methods: map[string]bool{}}
	for _, line := range rep.lines {
		rest, found := strings.CutPrefix(line, "AUTH ")
		if !found {
			continue
		}
		for rest != "" {
			var key, value string
			key, rest, _ = strings.Cut(strings.TrimLeft(rest, " "), "=")
			if strings.HasPrefix(rest, `"`) {
				quoted, err := strconv.QuotedPrefix(rest)
				if err != nil {
					return info, fmt.Errorf("malformed PROTOCOLINFO value: %w", err)
				}
				value, err = strconv.Unquote(quoted)
				if err != nil {
					return info, fmt.Errorf("malformed PROTOCOLINFO value: %w", err)
				}
				rest = rest[len(quoted):]
			} else {
				value, rest, _ = strings.Cut(rest, " ")
			}

			switch key {
			case "METHODS":
				for _, m := range strings.Split(value, ",") {
					info.methods[m] = true
				}
			case "COOKIEFILE":
				info.cookieFile = value
			}
		}
	}
	return info, nil
}

// quoteString writes s as a control-protocol QuotedString.
func quoteString(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		if r == '"' || r == '\\' {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	b.WriteByte('"')
	return b.String()
}

// circuitBuilt reports whether event is "CIRC <id> BUILT ...".
func circuitBuilt(event string) bool {
	fields := strings.Fields(event)
	return len(fields) >= 3 && fields[0] == "CIRC" && fields[2] == "BUILT"
}
