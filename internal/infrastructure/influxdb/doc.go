// Package influxdb provides InfluxDB connectivity for tivod.
//
// It wraps the official influxdb-client-go v2 library with connection
// management, state writing, and health monitoring.
//
// # Purpose
//
// This package handles time-series storage for:
//   - Device power state transitions (on, idle, off)
//   - Channel changes and viewing history
//   - Programme titles per station
//
// # Usage
//
//	cfg := config.InfluxDBConfig{
//	    URL:    "http://localhost:8086",
//	    Token:  "your-token",
//	    Org:    "home",
//	    Bucket: "tivod",
//	}
//
//	client, err := influxdb.Connect(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	client.WriteDeviceState("lounge", "on", 101, "BBC One")
//
// # Thread Safety
//
// All methods are safe for concurrent use from multiple goroutines.
// The underlying write API uses non-blocking batched writes.
//
// # Error Handling
//
// Write operations are non-blocking and batch errors are logged via a callback.
// Connection and health check errors are returned directly.
//
// # Performance
//
// Writes are batched according to config.yaml settings (batch_size, flush_interval).
// This reduces network overhead for frequent state polling.
package influxdb
