package session

import (
	"context"
	"fmt"

	"github.com/hartleigh/tivod/internal/tivo"
)

// withTransport runs fn against a connected transport under the command
// lock, so commands never interleave with a poll tick on the wire.
func (s *Session) withTransport(ctx context.Context, fn func(Transport) error) error {
	s.cmdMu.Lock()
	defer s.cmdMu.Unlock()

	if err := s.transport.Connect(ctx); err != nil {
		return err
	}
	defer s.transport.Close() //nolint:errcheck // Short-lived connection

	return fn(s.transport)
}

// waitReply reports whether a send should block for the box's reply.
// A box that is not live never answers, so waiting would only burn the
// command timeout.
func (s *Session) waitReply() bool {
	return s.State() == StateOn
}

// SendIRCode sends a remote control code. Codes are validated before
// the transport is touched.
func (s *Session) SendIRCode(ctx context.Context, code string) error {
	if !tivo.ValidIRCode(code) {
		return fmt.Errorf("%w: %q", tivo.ErrInvalidCode, code)
	}
	s.logger.Debug("sending ircode", "code", code)
	return s.withTransport(ctx, func(t Transport) error {
		return t.SendIRCode(ctx, code, s.waitReply())
	})
}

// SendKeyCode sends a keyboard code, including single letters and
// digits for text entry.
func (s *Session) SendKeyCode(ctx context.Context, code string) error {
	if !tivo.ValidKeyboardCode(code) {
		return fmt.Errorf("%w: %q", tivo.ErrInvalidCode, code)
	}
	s.logger.Debug("sending keycode", "code", code)
	return s.withTransport(ctx, func(t Transport) error {
		return t.SendKeyboard(ctx, code, s.waitReply())
	})
}

// SendTeleport jumps to a named screen such as the guide or live TV.
func (s *Session) SendTeleport(ctx context.Context, code string) error {
	if !tivo.ValidTeleportCode(code) {
		return fmt.Errorf("%w: %q", tivo.ErrInvalidCode, code)
	}
	s.logger.Debug("sending teleport", "code", code)
	return s.withTransport(ctx, func(t Transport) error {
		return t.SendTeleport(ctx, code)
	})
}

// SelectChannelNumber tunes the box to a channel number. The box itself
// rejects the request when it is not on live TV.
func (s *Session) SelectChannelNumber(ctx context.Context, number int) error {
	if number <= 0 {
		return fmt.Errorf("%w: channel %d", tivo.ErrInvalidCode, number)
	}
	s.logger.Debug("selecting channel", "number", number)
	return s.withTransport(ctx, func(t Transport) error {
		return t.SetChannel(ctx, number)
	})
}

// SelectChannelName resolves a channel name through the directory and
// tunes to its number. HD variants win when both definitions carry the
// same name.
func (s *Session) SelectChannelName(ctx context.Context, name string) error {
	if s.directory == nil {
		return ErrUnknownChannel
	}
	dir, err := s.directory.Directory(ctx)
	if err != nil {
		return fmt.Errorf("session: resolving channel name: %w", err)
	}
	entry, found := dir.ByName(name)
	if !found {
		return fmt.Errorf("%w: %q", ErrUnknownChannel, name)
	}
	if !entry.Controllable() {
		return fmt.Errorf("%w: %q", ErrNotControllable, name)
	}
	return s.SelectChannelNumber(ctx, entry.Number)
}

// TurnOn wakes a box that is off or idle with a single standby press.
func (s *Session) TurnOn(ctx context.Context) error {
	if s.State() == StateOn {
		return fmt.Errorf("%w: already on", ErrWrongState)
	}
	s.logger.Info("turning device on")
	return s.withTransport(ctx, func(t Transport) error {
		return t.SendIRCode(ctx, tivo.IRCodeStandby, false)
	})
}

// TurnOff puts a live box into standby. The first press drops to the
// standby screen, the second switches the box off, so both are sent.
func (s *Session) TurnOff(ctx context.Context) error {
	if s.State() != StateOn {
		return fmt.Errorf("%w: not on", ErrWrongState)
	}
	s.logger.Info("turning device off")
	return s.withTransport(ctx, func(t Transport) error {
		if err := t.SendIRCode(ctx, tivo.IRCodeStandby, true); err != nil {
			return err
		}
		return t.SendIRCode(ctx, tivo.IRCodeStandby, false)
	})
}
