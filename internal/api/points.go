package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/nerrad567/gray-logic-edge/internal/device"
	"github.com/nerrad567/gray-logic-edge/protocol"
)

// pointPayload is the create/update body for a point.
type pointPayload struct {
	DeviceID    int64   `json:"device_id"`
	Name        string  `json:"name"`
	Address     string  `json:"address"`
	DataType    string  `json:"data_type"`
	AccessMode  string  `json:"access_mode"`
	Multiplier  float64 `json:"multiplier"`
	Precision   int     `json:"precision"`
	Description string  `json:"description"`
	PartNumber  *string `json:"part_number"`
}

func (p pointPayload) toPoint(id int64) device.Point {
	return device.Point{
		ID:          id,
		DeviceID:    p.DeviceID,
		Name:        p.Name,
		Address:     p.Address,
		DataType:    protocol.DataType(p.DataType),
		AccessMode:  protocol.AccessMode(p.AccessMode),
		Multiplier:  p.Multiplier,
		Precision:   p.Precision,
		Description: p.Description,
		PartNumber:  p.PartNumber,
	}
}

// handleCreatePoint creates a point under an existing device.
func (s *Server) handleCreatePoint(w http.ResponseWriter, r *http.Request) {
	var req pointPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	p := req.toPoint(0)
	if err := s.devices.CreatePoint(r.Context(), &p); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// handleGetPoint returns one point's metadata.
func (s *Server) handleGetPoint(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		writeBadRequest(w, "invalid point id")
		return
	}

	p, err := s.devices.GetPoint(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// handleUpdatePoint replaces a point's mutable fields.
func (s *Server) handleUpdatePoint(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		writeBadRequest(w, "invalid point id")
		return
	}

	var req pointPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	p := req.toPoint(id)
	if err := s.devices.UpdatePoint(r.Context(), &p); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// handleDeletePoint removes a point. Any shadow entry for it is dropped
// so a recreated point with the same id starts cold.
func (s *Server) handleDeletePoint(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		writeBadRequest(w, "invalid point id")
		return
	}

	if err := s.devices.DeletePoint(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}
	s.engine.Shadow().Delete(id)
	w.WriteHeader(http.StatusNoContent)
}

// pointValueResponse carries a point value read or write result.
type pointValueResponse struct {
	PointID int64          `json:"point_id"`
	Value   protocol.Value `json:"value"`
}

// handleReadPointValue reads a point value through the dispatch engine.
// The shadow cache is consulted unless ?live=true is given.
func (s *Server) handleReadPointValue(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		writeBadRequest(w, "invalid point id")
		return
	}

	live, _ := strconv.ParseBool(r.URL.Query().Get("live")) //nolint:errcheck // Absent or malformed means false

	v, err := s.engine.ReadPoint(r.Context(), id, !live)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pointValueResponse{PointID: id, Value: v})
}

// writeValueRequest is the PUT /points/{id}/value payload.
type writeValueRequest struct {
	Value protocol.Value `json:"value"`
}

// handleWritePointValue writes a point value through the dispatch engine
// and returns the committed (readback) value.
func (s *Server) handleWritePointValue(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		writeBadRequest(w, "invalid point id")
		return
	}

	var req writeValueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Value.IsNull() {
		writeBadRequest(w, "value is required")
		return
	}

	v, err := s.engine.WritePoint(r.Context(), id, req.Value)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pointValueResponse{PointID: id, Value: v})
}
