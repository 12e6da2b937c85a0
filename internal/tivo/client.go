package tivo

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/hartleigh/tivod/internal/infrastructure/logging"
)

// readBufferSize is large enough for any single box reply.
const readBufferSize = 1024

// channelRe extracts the zero-padded channel number from a CH_STATUS
// line, e.g. "CH_STATUS 0105 LOCAL".
var channelRe = regexp.MustCompile(`\d{4}`)

// Status is one observation of the box: the tuned channel, or no
// signal when the box is in standby or not showing live TV.
type Status struct {
	Channel int
	Live    bool
}

// Client is a connection to one set-top box.
//
// The box pushes a CH_STATUS line on connect and after every channel
// change; commands are single text lines. Connections are short-lived:
// callers connect, exchange, and close around each operation or poll
// tick. All methods are safe for concurrent use; commands against one
// box are serialized.
type Client struct {
	host           string
	port           int
	connectTimeout time.Duration
	commandTimeout time.Duration
	logger         *logging.Logger

	mu   sync.Mutex
	conn net.Conn

	// Channel history survives reconnects. Zero means none observed.
	current  int
	previous int
}

// NewClient creates a client for one box. Timeouts of zero fall back
// to one second each, matching how briskly the box normally answers.
func NewClient(host string, port int, connectTimeout, commandTimeout time.Duration, logger *logging.Logger) *Client {
	if connectTimeout <= 0 {
		connectTimeout = time.Second
	}
	if commandTimeout <= 0 {
		commandTimeout = time.Second
	}
	return &Client{
		host:           host,
		port:           port,
		connectTimeout: connectTimeout,
		commandTimeout: commandTimeout,
		logger:         logger.With("component", "tivo", "host", host),
	}
}

// Connect opens the control connection.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		return nil
	}

	dialer := net.Dialer{Timeout: c.connectTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(c.host, fmt.Sprintf("%d", c.port)))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrConnect, err)
	}
	c.conn = conn
	c.logger.Debug("connected")
	return nil
}

// Close drops the control connection. The box tolerates abrupt
// disconnects, so errors here are advisory.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	c.logger.Debug("disconnected")
	return err
}

// Connected reports whether the control connection is open.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// ChannelNumber returns the last observed channel, zero when none.
func (c *Client) ChannelNumber() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// PreviousChannelNumber returns the channel observed before the
// current one, zero when none.
func (c *Client) PreviousChannelNumber() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.previous
}

// SendIRCode sends an IR code. The code must be in the enumerated set;
// unknown codes fail with ErrInvalidCode before any transport call.
// waitReply should be false when the box is idle or off, where no
// status line will come back.
func (c *Client) SendIRCode(ctx context.Context, code string, waitReply bool) error {
	if !ValidIRCode(code) {
		return fmt.Errorf("%w: ircode %q", ErrInvalidCode, code)
	}
	err := c.send(ctx, "ircode "+code, waitReply)
	if errors.Is(err, ErrInvalidKey) {
		return fmt.Errorf("%w: ircode %q", ErrInvalidKey, code)
	}
	return err
}

// SendKeyboard sends a keyboard code.
func (c *Client) SendKeyboard(ctx context.Context, code string, waitReply bool) error {
	if !ValidKeyboardCode(code) {
		return fmt.Errorf("%w: keyboard %q", ErrInvalidCode, code)
	}
	err := c.send(ctx, "keyboard "+code, waitReply)
	if errors.Is(err, ErrInvalidKey) {
		return fmt.Errorf("%w: keyboard %q", ErrInvalidKey, code)
	}
	return err
}

// SendTeleport jumps to a named screen.
func (c *Client) SendTeleport(ctx context.Context, code string) error {
	if !ValidTeleportCode(code) {
		return fmt.Errorf("%w: teleport %q", ErrInvalidCode, code)
	}
	err := c.send(ctx, "teleport "+code, true)
	if errors.Is(err, ErrInvalidCommand) {
		return fmt.Errorf("%w: teleport %q", ErrInvalidCommand, code)
	}
	return err
}

// SetChannel tunes the box to a channel number.
func (c *Client) SetChannel(ctx context.Context, number int) error {
	if number <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidChannel, number)
	}
	return c.send(ctx, fmt.Sprintf("setch %d", number), true)
}

// PollStatus reads the status line the box pushes on connect. A silent
// box means nothing live is showing; that is reported as a no-signal
// Status, not an error.
func (c *Client) PollStatus(ctx context.Context) (Status, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	err := c.readReply(ctx)
	switch {
	case err == nil:
		return Status{Channel: c.current, Live: c.current > 0}, nil
	case errors.Is(err, ErrCommandTimeout):
		return Status{}, nil
	default:
		return Status{}, err
	}
}

// send writes one command line and optionally waits for the reply.
// The wire format is the uppercased command followed by CR.
func (c *Client) send(ctx context.Context, command string, waitReply bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return ErrNotConnected
	}

	line := strings.ToUpper(command) + "\r"
	if deadline, ok := ctx.Deadline(); ok {
		_ = c.conn.SetWriteDeadline(deadline) //nolint:errcheck // Deadline errors surface on Write
	}
	if _, err := c.conn.Write([]byte(line)); err != nil {
		return fmt.Errorf("%w: %v", ErrConnectionReset, err)
	}
	c.logger.Debug("command sent", "command", strings.Fields(command)[0])

	if !waitReply {
		return nil
	}
	return c.readReply(ctx)
}

// readReply reads and interprets one reply from the box. Callers must
// hold c.mu.
func (c *Client) readReply(ctx context.Context) error {
	if c.conn == nil {
		return ErrNotConnected
	}

	deadline := time.Now().Add(c.commandTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := c.conn.SetReadDeadline(deadline); err != nil {
		return fmt.Errorf("%w: %v", ErrConnectionReset, err)
	}

	buf := make([]byte, readBufferSize)
	n, err := c.conn.Read(buf)
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			// Silence from the box: nothing live is showing.
			c.setChannel(0)
			return ErrCommandTimeout
		}
		if errors.Is(err, os.ErrDeadlineExceeded) {
			c.setChannel(0)
			return ErrCommandTimeout
		}
		c.setChannel(0)
		return fmt.Errorf("%w: %v", ErrConnectionReset, err)
	}
	if n == 0 {
		c.setChannel(0)
		return ErrConnectionReset
	}

	data := strings.TrimSpace(string(buf[:n]))
	c.logger.Debug("reply received", "data", data)

	switch {
	case strings.HasPrefix(data, "CH_STATUS"):
		if m := channelRe.FindString(data); m != "" {
			var number int
			fmt.Sscanf(m, "%d", &number) //nolint:errcheck // Regexp guarantees digits
			c.setChannel(number)
		}
		return nil
	case strings.HasPrefix(data, "CH_FAILED"):
		fields := strings.Fields(data)
		reason := fields[len(fields)-1]
		switch reason {
		case "NO_LIVE":
			return ErrNotLive
		case "INVALID_CHANNEL":
			return ErrInvalidChannel
		default:
			return fmt.Errorf("%w: %s", ErrInvalidCommand, reason)
		}
	case data == "INVALID_KEY":
		return ErrInvalidKey
	case data == "INVALID_COMMAND":
		return ErrInvalidCommand
	}
	return nil
}

// setChannel records an observation, moving the old value to previous
// when it changes. Callers must hold c.mu.
func (c *Client) setChannel(number int) {
	if number != c.current {
		c.previous = c.current
		c.current = number
	}
}
