package tivo

import (
	"context"
	"errors"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/hartleigh/tivod/internal/infrastructure/config"
	"github.com/hartleigh/tivod/internal/infrastructure/logging"
)

func tivoLogger() *logging.Logger {
	return logging.New(config.LoggingConfig{Level: "error", Format: "text", Output: "stderr"}, "test")
}

// fakeBox simulates the remote-control service on a local listener.
// On connect it optionally pushes a CH_STATUS line, then answers
// commands according to a canned reply table.
type fakeBox struct {
	listener net.Listener

	// statusOnConnect is pushed as soon as a client connects; empty
	// means the box stays silent, as it does when not showing live TV.
	statusOnConnect string

	// replies maps a command prefix (upper case) to the raw reply.
	replies map[string]string
}

func newFakeBox(t *testing.T, statusOnConnect string, replies map[string]string) *fakeBox {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("starting fake box: %v", err)
	}
	box := &fakeBox{listener: l, statusOnConnect: statusOnConnect, replies: replies}
	t.Cleanup(func() { l.Close() }) //nolint:errcheck // Test cleanup

	go func() {
		for {
			conn, err := l.Accept()
			if err != nil {
				return
			}
			go box.serve(conn)
		}
	}()
	return box
}

func (b *fakeBox) serve(conn net.Conn) {
	defer conn.Close() //nolint:errcheck // Test server

	if b.statusOnConnect != "" {
		conn.Write([]byte(b.statusOnConnect + "\r")) //nolint:errcheck // Test server
	}

	buf := make([]byte, 1024)
	for {
		n, err := conn.Read(buf)
		if err != nil {
			return
		}
		command := strings.TrimSpace(string(buf[:n]))
		for prefix, reply := range b.replies {
			if strings.HasPrefix(command, prefix) {
				conn.Write([]byte(reply + "\r")) //nolint:errcheck // Test server
				break
			}
		}
	}
}

func (b *fakeBox) addr() (string, int) {
	addr := b.listener.Addr().(*net.TCPAddr)
	return addr.IP.String(), addr.Port
}

func connectedClient(t *testing.T, box *fakeBox) *Client {
	t.Helper()
	host, port := box.addr()
	c := NewClient(host, port, time.Second, 200*time.Millisecond, tivoLogger())
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	t.Cleanup(func() { c.Close() }) //nolint:errcheck // Test cleanup
	return c
}

func TestClientPollStatus(t *testing.T) {
	box := newFakeBox(t, "CH_STATUS 0105 LOCAL", nil)
	c := connectedClient(t, box)

	status, err := c.PollStatus(context.Background())
	if err != nil {
		t.Fatalf("PollStatus() error = %v", err)
	}
	if !status.Live || status.Channel != 105 {
		t.Errorf("status = %+v, want live channel 105", status)
	}
	if c.ChannelNumber() != 105 {
		t.Errorf("ChannelNumber() = %d, want 105", c.ChannelNumber())
	}
}

func TestClientPollStatusSilentBox(t *testing.T) {
	// A silent box means no signal, not an error.
	box := newFakeBox(t, "", nil)
	c := connectedClient(t, box)

	status, err := c.PollStatus(context.Background())
	if err != nil {
		t.Fatalf("PollStatus() error = %v", err)
	}
	if status.Live {
		t.Errorf("status = %+v, want no signal", status)
	}
}

func TestClientPreviousChannelTracking(t *testing.T) {
	box := newFakeBox(t, "CH_STATUS 0105 LOCAL", map[string]string{
		"SETCH 110": "CH_STATUS 0110 LOCAL",
	})
	c := connectedClient(t, box)

	if _, err := c.PollStatus(context.Background()); err != nil {
		t.Fatalf("PollStatus() error = %v", err)
	}
	if err := c.SetChannel(context.Background(), 110); err != nil {
		t.Fatalf("SetChannel() error = %v", err)
	}

	if c.ChannelNumber() != 110 {
		t.Errorf("ChannelNumber() = %d, want 110", c.ChannelNumber())
	}
	if c.PreviousChannelNumber() != 105 {
		t.Errorf("PreviousChannelNumber() = %d, want 105", c.PreviousChannelNumber())
	}
}

func TestClientSetChannelFailures(t *testing.T) {
	box := newFakeBox(t, "", map[string]string{
		"SETCH 9999": "CH_FAILED INVALID_CHANNEL",
		"SETCH 200":  "CH_FAILED NO_LIVE",
	})
	c := connectedClient(t, box)

	if err := c.SetChannel(context.Background(), 9999); !errors.Is(err, ErrInvalidChannel) {
		t.Errorf("SetChannel(9999) error = %v, want ErrInvalidChannel", err)
	}
	if err := c.SetChannel(context.Background(), 200); !errors.Is(err, ErrNotLive) {
		t.Errorf("SetChannel(200) error = %v, want ErrNotLive", err)
	}
	if err := c.SetChannel(context.Background(), 0); !errors.Is(err, ErrInvalidChannel) {
		t.Errorf("SetChannel(0) error = %v, want ErrInvalidChannel", err)
	}
}

func TestClientSendIRCode(t *testing.T) {
	box := newFakeBox(t, "", map[string]string{
		"IRCODE STANDBY": "CH_STATUS 0105 LOCAL",
	})
	c := connectedClient(t, box)

	if err := c.SendIRCode(context.Background(), "standby", true); err != nil {
		t.Fatalf("SendIRCode() error = %v", err)
	}
}

func TestClientSendIRCodeRejectedBeforeTransport(t *testing.T) {
	// No box at all: validation must fail before any dial or write.
	c := NewClient("127.0.0.1", 1, time.Second, time.Second, tivoLogger())

	if err := c.SendIRCode(context.Background(), "warp_factor_9", true); !errors.Is(err, ErrInvalidCode) {
		t.Errorf("SendIRCode() error = %v, want ErrInvalidCode", err)
	}
	if err := c.SendTeleport(context.Background(), "narnia"); !errors.Is(err, ErrInvalidCode) {
		t.Errorf("SendTeleport() error = %v, want ErrInvalidCode", err)
	}
	if err := c.SendKeyboard(context.Background(), "ctrl_alt_del", true); !errors.Is(err, ErrInvalidCode) {
		t.Errorf("SendKeyboard() error = %v, want ErrInvalidCode", err)
	}
}

func TestClientInvalidKeyReply(t *testing.T) {
	box := newFakeBox(t, "", map[string]string{
		"IRCODE": "INVALID_KEY",
	})
	c := connectedClient(t, box)

	if err := c.SendIRCode(context.Background(), "select", true); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("SendIRCode() error = %v, want ErrInvalidKey", err)
	}
}

func TestClientNotConnected(t *testing.T) {
	c := NewClient("127.0.0.1", 1, time.Second, time.Second, tivoLogger())
	if err := c.SendIRCode(context.Background(), "select", true); !errors.Is(err, ErrNotConnected) {
		t.Errorf("SendIRCode() error = %v, want ErrNotConnected", err)
	}
}

func TestClientConnectRefused(t *testing.T) {
	c := NewClient("127.0.0.1", 1, 200*time.Millisecond, time.Second, tivoLogger())
	if err := c.Connect(context.Background()); !errors.Is(err, ErrConnect) {
		t.Errorf("Connect() error = %v, want ErrConnect", err)
	}
}

func TestValidCodes(t *testing.T) {
	tests := []struct {
		name  string
		check func(string) bool
		code  string
		want  bool
	}{
		{"ircode standby", ValidIRCode, "standby", true},
		{"ircode case insensitive", ValidIRCode, "ChannelUp", true},
		{"ircode unknown", ValidIRCode, "bogus", false},
		{"keyboard letter", ValidKeyboardCode, "a", true},
		{"keyboard digit", ValidKeyboardCode, "7", true},
		{"keyboard num digit", ValidKeyboardCode, "num3", true},
		{"keyboard nav", ValidKeyboardCode, "select", true},
		{"keyboard unknown", ValidKeyboardCode, "escape_hatch", false},
		{"teleport tivo", ValidTeleportCode, "TIVO", true},
		{"teleport unknown", ValidTeleportCode, "home", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.check(tt.code); got != tt.want {
				t.Errorf("check(%q) = %v, want %v", tt.code, got, tt.want)
			}
		})
	}
}
