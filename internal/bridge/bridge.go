// Package bridge connects device sessions to the MQTT bus. It mirrors
// the HTTP API's command surface on command topics and publishes state
// snapshots to retained state topics, so automation systems can follow
// and control boxes without polling the REST API.
package bridge

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hartleigh/tivod/internal/channels"
	"github.com/hartleigh/tivod/internal/infrastructure/logging"
	"github.com/hartleigh/tivod/internal/infrastructure/mqtt"
	"github.com/hartleigh/tivod/internal/session"
)

// Bus is the MQTT surface the bridge uses. *mqtt.Client implements it.
type Bus interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
}

// ChannelRefresher rebuilds and invalidates the channel directory.
// *channels.Service implements it. Nil when the directory subsystem is
// disabled.
type ChannelRefresher interface {
	Refresh(ctx context.Context) (*channels.Directory, error)
	Invalidate(ctx context.Context) error
}

// CacheInvalidator clears one persisted cache tier. *cache.Store
// implements it.
type CacheInvalidator interface {
	InvalidateTier(ctx context.Context, tier string) error
}

// Bridge relays device state to MQTT and device commands from it.
type Bridge struct {
	bus      Bus
	devices  *session.Manager
	channels ChannelRefresher
	cache    CacheInvalidator
	qos      byte
	topics   mqtt.Topics
	logger   *logging.Logger
}

// New creates a bridge. Start() must be called to begin receiving
// commands; PublishState works immediately.
func New(bus Bus, devices *session.Manager, channels ChannelRefresher, cache CacheInvalidator, qos byte, logger *logging.Logger) *Bridge {
	return &Bridge{
		bus:      bus,
		devices:  devices,
		channels: channels,
		cache:    cache,
		qos:      qos,
		logger:   logger.With("component", "bridge"),
	}
}

// PublishState publishes a device snapshot to its retained state topic.
// It satisfies the session sink interface.
func (b *Bridge) PublishState(_ context.Context, snap session.Snapshot) {
	payload, err := json.Marshal(snap)
	if err != nil {
		b.logger.Error("failed to marshal state snapshot", "device", snap.DeviceID, "error", err)
		return
	}

	topic := b.topics.DeviceState(snap.DeviceID)
	if err := b.bus.Publish(topic, payload, b.qos, true); err != nil {
		b.logger.Warn("state publish failed", "topic", topic, "error", err)
	}
}

// Start subscribes to the command topics.
func (b *Bridge) Start() error {
	topic := b.topics.AllDeviceCommands()
	if err := b.bus.Subscribe(topic, b.qos, b.handleCommand); err != nil {
		return fmt.Errorf("bridge: subscribing to commands: %w", err)
	}
	b.logger.Info("command subscription active", "topic", topic)
	return nil
}
