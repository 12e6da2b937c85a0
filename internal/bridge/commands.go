package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/hartleigh/tivod/internal/cache"
	"github.com/hartleigh/tivod/internal/session"
)

// commandTimeout bounds one MQTT-initiated command exchange.
const commandTimeout = 10 * time.Second

// commandPayload is the body accepted on every command topic. Which
// fields matter depends on the operation segment in the topic.
type commandPayload struct {
	Code   string `json:"code,omitempty"`   // ircode, keycode, teleport
	Number int    `json:"number,omitempty"` // channel
	Name   string `json:"name,omitempty"`   // channel
	State  string `json:"state,omitempty"`  // power: "on" or "off"
	Tier   string `json:"tier,omitempty"`   // cache_clear
}

// commandResult is published on the result topic after each command.
type commandResult struct {
	DeviceID string `json:"device_id"`
	Op       string `json:"op"`
	Status   string `json:"status"` // "ok" or "error"
	Error    string `json:"error,omitempty"`
}

// handleCommand dispatches one inbound command message. Topic shape:
// tivod/command/{device_id}/{op}.
func (b *Bridge) handleCommand(topic string, payload []byte) error {
	parts := strings.Split(topic, "/")
	if len(parts) != 4 {
		return fmt.Errorf("bridge: malformed command topic %q", topic)
	}
	deviceID, op := parts[2], parts[3]

	var cmd commandPayload
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &cmd); err != nil {
			b.publishResult(deviceID, op, fmt.Errorf("invalid payload: %w", err))
			return nil
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	err := b.dispatch(ctx, deviceID, op, cmd)
	if err != nil {
		b.logger.Warn("command failed", "device", deviceID, "op", op, "error", err)
	}
	b.publishResult(deviceID, op, err)
	return nil
}

// dispatch routes an operation to the device's session.
func (b *Bridge) dispatch(ctx context.Context, deviceID, op string, cmd commandPayload) error {
	sess, err := b.devices.Get(deviceID)
	if err != nil {
		return err
	}

	switch op {
	case "ircode":
		return sess.SendIRCode(ctx, cmd.Code)
	case "keycode":
		return sess.SendKeyCode(ctx, cmd.Code)
	case "teleport":
		return sess.SendTeleport(ctx, cmd.Code)
	case "channel":
		switch {
		case cmd.Number > 0 && cmd.Name != "":
			return fmt.Errorf("bridge: set either number or name, not both")
		case cmd.Number > 0:
			return sess.SelectChannelNumber(ctx, cmd.Number)
		case cmd.Name != "":
			return sess.SelectChannelName(ctx, cmd.Name)
		default:
			return fmt.Errorf("bridge: channel command needs number or name")
		}
	case "power":
		switch cmd.State {
		case "on":
			return sess.TurnOn(ctx)
		case "off":
			return sess.TurnOff(ctx)
		default:
			return fmt.Errorf("bridge: power state must be on or off")
		}
	case "refresh":
		if b.channels == nil {
			return fmt.Errorf("bridge: channel directory is disabled")
		}
		_, err := b.channels.Refresh(ctx)
		return err
	case "cache_clear":
		if b.cache == nil {
			return fmt.Errorf("bridge: cache is not configured")
		}
		if err := b.cache.InvalidateTier(ctx, cmd.Tier); err != nil {
			return err
		}
		// Clearing the channels tier also drops the in-memory
		// directory, matching the HTTP handler.
		if cmd.Tier == cache.TierChannels && b.channels != nil {
			return b.channels.Invalidate(ctx)
		}
		return nil
	default:
		return fmt.Errorf("bridge: unknown operation %q", op)
	}
}

// publishResult acknowledges a command on the result topic.
func (b *Bridge) publishResult(deviceID, op string, cmdErr error) {
	result := commandResult{
		DeviceID: deviceID,
		Op:       op,
		Status:   "ok",
	}
	if cmdErr != nil {
		result.Status = "error"
		result.Error = cmdErr.Error()
	}

	payload, err := json.Marshal(result)
	if err != nil {
		return
	}
	topic := b.topics.DeviceCommandResult(deviceID, op)
	if err := b.bus.Publish(topic, payload, b.qos, false); err != nil {
		b.logger.Debug("result publish failed", "topic", topic, "error", err)
	}
}

var _ session.Sink = (*Bridge)(nil)
