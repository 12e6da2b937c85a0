package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteDeviceState records a device state observation.
//
// This is the primary method for recording box telemetry. The write is
// non-blocking; data is batched and sent asynchronously.
//
// Parameters:
//   - deviceID: The configured device identifier (e.g., "lounge")
//   - state: The session state ("on", "idle", "off")
//   - channel: The observed channel number (0 when unknown)
//   - channelName: The resolved channel name ("" when unknown)
//
// Example:
//
//	client.WriteDeviceState("lounge", "on", 101, "BBC One")
func (c *Client) WriteDeviceState(deviceID, state string, channel int, channelName string) {
	if !c.IsConnected() {
		return
	}

	on := 0.0
	if state == "on" {
		on = 1.0
	}

	fields := map[string]interface{}{
		"state": state,
		"on":    on,
	}
	if channel > 0 {
		fields["channel"] = channel
	}
	if channelName != "" {
		fields["channel_name"] = channelName
	}

	point := write.NewPoint(
		"device_state",
		map[string]string{
			"device_id": deviceID,
		},
		fields,
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteProgram records the programme airing on a device's channel.
// Tagged by device and station so viewing history can be grouped either
// way.
func (c *Client) WriteProgram(deviceID, stationID, title string) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"programme",
		map[string]string{
			"device_id":  deviceID,
			"station_id": stationID,
		},
		map[string]interface{}{
			"title": title,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for custom measurements that don't fit the helper methods.
//
// Parameters:
//   - measurement: The measurement name (table)
//   - tags: Key-value pairs for indexing (low cardinality)
//   - fields: Key-value pairs for the actual data
//
// Example:
//
//	client.WritePoint("system_stats",
//	    map[string]string{"host": "tivod-01"},
//	    map[string]interface{}{"cpu_percent": 45.2, "memory_mb": 512})
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}

// WritePointWithTime writes a custom point with a specific timestamp.
//
// Use this when the timestamp is not "now" (e.g., delayed data).
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, timestamp)
	c.writeAPI.WritePoint(point)
}
