// Package telemetry records device state transitions to time-series
// storage. It sits between the session layer and the InfluxDB client
// as a state sink.
package telemetry

import (
	"context"

	"github.com/hartleigh/tivod/internal/session"
)

// StateWriter is the time-series surface the recorder writes to.
// *influxdb.Client implements it.
type StateWriter interface {
	WriteDeviceState(deviceID, state string, channel int, channelName string)
	WriteProgram(deviceID, stationID, title string)
}

// Recorder forwards device snapshots to time-series storage.
type Recorder struct {
	writer StateWriter
}

// NewRecorder creates a recorder around a state writer.
func NewRecorder(writer StateWriter) *Recorder {
	return &Recorder{writer: writer}
}

// PublishState writes one snapshot. It satisfies the session sink
// interface; writes are fire-and-forget because the underlying client
// batches asynchronously.
func (r *Recorder) PublishState(_ context.Context, snap session.Snapshot) {
	r.writer.WriteDeviceState(snap.DeviceID, string(snap.State), snap.ChannelNumber, snap.ChannelName)

	if snap.Program != nil && snap.Program.Title != "" && snap.StationID != "" {
		r.writer.WriteProgram(snap.DeviceID, snap.StationID, snap.Program.Title)
	}
}

var _ session.Sink = (*Recorder)(nil)
