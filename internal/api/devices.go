package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gray-logic-edge/internal/device"
)

// idParam parses the {id} route parameter.
func idParam(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil && id > 0
}

// devicePayload is the create/update body for a device.
type devicePayload struct {
	Name         string         `json:"name"`
	DeviceType   string         `json:"device_type"`
	CustomData   map[string]any `json:"custom_data"`
	ProtocolName string         `json:"protocol_name"`
}

// handleListDevices returns all devices without their points.
func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	// Optional filter by owning protocol.
	var (
		devices []device.Device
		err     error
	)
	if proto := r.URL.Query().Get("protocol"); proto != "" {
		devices, err = s.devices.ListDevicesByProtocol(r.Context(), proto)
	} else {
		devices, err = s.devices.ListDevices(r.Context())
	}
	if err != nil {
		writeDomainError(w, err)
		return
	}

	if devices == nil {
		devices = []device.Device{}
	}
	writeJSON(w, http.StatusOK, devices)
}

// handleCreateDevice creates a device.
func (s *Server) handleCreateDevice(w http.ResponseWriter, r *http.Request) {
	var req devicePayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	d := device.Device{
		Name:         req.Name,
		DeviceType:   req.DeviceType,
		CustomData:   req.CustomData,
		ProtocolName: req.ProtocolName,
	}
	if err := s.devices.CreateDevice(r.Context(), &d); err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, d)
}

// handleGetDevice returns one device without points.
func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		writeBadRequest(w, "invalid device id")
		return
	}

	d, err := s.devices.GetDevice(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// handleDeviceDetails returns one device with its points.
func (s *Server) handleDeviceDetails(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		writeBadRequest(w, "invalid device id")
		return
	}

	d, err := s.devices.GetDeviceDetails(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// handleUpdateDevice replaces a device's mutable fields.
func (s *Server) handleUpdateDevice(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		writeBadRequest(w, "invalid device id")
		return
	}

	var req devicePayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	d := device.Device{
		ID:           id,
		Name:         req.Name,
		DeviceType:   req.DeviceType,
		CustomData:   req.CustomData,
		ProtocolName: req.ProtocolName,
	}
	if err := s.devices.UpdateDevice(r.Context(), &d); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// handleDeleteDevice removes a device and its points.
func (s *Server) handleDeleteDevice(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		writeBadRequest(w, "invalid device id")
		return
	}

	if err := s.devices.DeleteDevice(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleListDevicePoints returns the points of one device.
func (s *Server) handleListDevicePoints(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		writeBadRequest(w, "invalid device id")
		return
	}

	// 404 for unknown devices rather than an empty list.
	if _, err := s.devices.GetDevice(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}

	points, err := s.devices.ListDevicePoints(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if points == nil {
		points = []device.Point{}
	}
	writeJSON(w, http.StatusOK, points)
}
