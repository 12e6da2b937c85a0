package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"

	"github.com/hartleigh/tivod/internal/session"
	"github.com/hartleigh/tivod/internal/tivo"
)

// ircodeRequest is the body for POST /devices/{id}/ircode and keycode
// and teleport.
type codeRequest struct {
	Code string `json:"code"`
}

// channelRequest is the body for POST /devices/{id}/channel. Exactly
// one of Number or Name must be set.
type channelRequest struct {
	Number int    `json:"number,omitempty"`
	Name   string `json:"name,omitempty"`
}

// powerRequest is the body for POST /devices/{id}/power.
type powerRequest struct {
	State string `json:"state"` // "on" or "off"
}

// handleListDevices returns the current snapshot of every device.
func (s *Server) handleListDevices(w http.ResponseWriter, _ *http.Request) {
	snaps := s.devices.Snapshots()
	sort.Slice(snaps, func(i, j int) bool { return snaps[i].DeviceID < snaps[j].DeviceID })
	writeJSON(w, http.StatusOK, map[string]any{
		"devices": snaps,
		"count":   len(snaps),
	})
}

// handleGetDevice returns one device's snapshot.
func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.deviceSession(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sess.Snapshot())
}

// handleSendIRCode sends a remote control code to a device.
func (s *Server) handleSendIRCode(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.deviceSession(w, r)
	if !ok {
		return
	}
	var req codeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	s.writeCommandResult(w, sess.SendIRCode(r.Context(), req.Code))
}

// handleSendKeyCode sends a keyboard code to a device.
func (s *Server) handleSendKeyCode(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.deviceSession(w, r)
	if !ok {
		return
	}
	var req codeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	s.writeCommandResult(w, sess.SendKeyCode(r.Context(), req.Code))
}

// handleSendTeleport jumps a device to a named screen.
func (s *Server) handleSendTeleport(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.deviceSession(w, r)
	if !ok {
		return
	}
	var req codeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	s.writeCommandResult(w, sess.SendTeleport(r.Context(), req.Code))
}

// handleSelectChannel tunes a device by channel number or name.
func (s *Server) handleSelectChannel(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.deviceSession(w, r)
	if !ok {
		return
	}
	var req channelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	switch {
	case req.Number > 0 && req.Name != "":
		writeBadRequest(w, "set either number or name, not both")
	case req.Number > 0:
		s.writeCommandResult(w, sess.SelectChannelNumber(r.Context(), req.Number))
	case req.Name != "":
		s.writeCommandResult(w, sess.SelectChannelName(r.Context(), req.Name))
	default:
		writeBadRequest(w, "number or name is required")
	}
}

// handlePower turns a device on or off.
func (s *Server) handlePower(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.deviceSession(w, r)
	if !ok {
		return
	}
	var req powerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	switch req.State {
	case "on":
		s.writeCommandResult(w, sess.TurnOn(r.Context()))
	case "off":
		s.writeCommandResult(w, sess.TurnOff(r.Context()))
	default:
		writeBadRequest(w, "state must be \"on\" or \"off\"")
	}
}

// deviceSession resolves the {id} URL parameter to a session, writing
// a 404 on miss.
func (s *Server) deviceSession(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	id := chi.URLParam(r, "id")
	sess, err := s.devices.Get(id)
	if err != nil {
		writeNotFound(w, "device not found: "+id)
		return nil, false
	}
	return sess, true
}

// writeCommandResult maps a command error to an HTTP response.
func (s *Server) writeCommandResult(w http.ResponseWriter, err error) {
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
	case errors.Is(err, tivo.ErrInvalidCode):
		writeBadRequest(w, err.Error())
	case errors.Is(err, session.ErrUnknownChannel):
		writeNotFound(w, err.Error())
	case errors.Is(err, session.ErrNotControllable),
		errors.Is(err, session.ErrWrongState),
		errors.Is(err, tivo.ErrNotLive),
		errors.Is(err, tivo.ErrInvalidChannel):
		writeError(w, http.StatusConflict, ErrCodeConflict, err.Error())
	case errors.Is(err, tivo.ErrConnect),
		errors.Is(err, tivo.ErrCommandTimeout),
		errors.Is(err, tivo.ErrConnectionReset):
		writeError(w, http.StatusBadGateway, ErrCodeDeviceUnreachable, err.Error())
	default:
		s.logger.Error("command failed", "error", err)
		writeInternalError(w, "command failed")
	}
}
