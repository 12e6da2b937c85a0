// Package session turns raw box telemetry into user-facing device
// state. Each configured box gets a polling loop that feeds a small
// state machine (on, idle, off) with time-based hysteresis, consults
// the channel directory for display detail, and fans state changes out
// to the configured sinks. It also carries the command surface: code
// validation, reverse channel lookup and power handling sit here,
// in front of the transport.
package session
