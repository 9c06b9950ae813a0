package server

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/raterudder/pvcast/pkg/log"
	"github.com/raterudder/pvcast/pkg/types"
)

const defaultInverterEffPct = 98.5

// uploadRequest is the payload devices post to /upload.
type uploadRequest struct {
	DeviceID       string   `json:"device_id"`
	StringVoltageV float64  `json:"string_voltage_v"`
	StringCurrentA float64  `json:"string_current_a"`
	InverterEffPct *float64 `json:"inverter_eff_pct"`
	GenKWH         float64  `json:"gen_kwh"`
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// Limit body size to 1MB to prevent DoS
	r.Body = http.MaxBytesReader(w, r.Body, 1048576)
	var req uploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Ctx(ctx).WarnContext(ctx, "failed to decode upload", slog.Any("error", err))
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.DeviceID == "" {
		writeJSONError(w, "device_id is required", http.StatusBadRequest)
		return
	}
	eff := defaultInverterEffPct
	if req.InverterEffPct != nil {
		eff = *req.InverterEffPct
	}
	reading := types.Reading{
		DeviceID:       req.DeviceID,
		Timestamp:      s.now(),
		VoltageV:       req.StringVoltageV,
		CurrentA:       req.StringCurrentA,
		GenKWH:         req.GenKWH,
		InverterEffPct: eff,
	}
	if err := reading.Validate(); err != nil {
		log.Ctx(ctx).WarnContext(ctx, "rejecting upload", slog.String("deviceID", req.DeviceID), slog.Any("error", err))
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.storage.InsertReading(ctx, reading); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to insert reading", slog.String("deviceID", req.DeviceID), slog.Any("error", err))
		writeJSONError(w, "failed to save reading", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, msgResponse{Msg: "success"})
}
