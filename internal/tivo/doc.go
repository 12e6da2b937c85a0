// Package tivo implements the TCP remote-control protocol spoken by
// the set-top box on port 31339. The box accepts plain-text commands
// (IRCODE, KEYBOARD, TELEPORT, SETCH) and pushes CH_STATUS lines with
// the currently tuned channel; when nothing live is showing it simply
// stays silent, which callers observe as a read timeout.
package tivo
