// Package guide talks to the platform TV guide API: the multi-step
// web login, the per-account channel listing and per-station programme
// schedules. It supplies the platform side of the directory merge and
// the EPG detail for the current channel.
package guide
