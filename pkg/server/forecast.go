package server

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/raterudder/pvcast/pkg/forecast"
	"github.com/raterudder/pvcast/pkg/log"
)

type msgResponse struct {
	Msg string `json:"msg"`
}

func (s *Server) handleRealtime(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, s.engine.Realtime(r.Context(), s.now()))
}

func (s *Server) handleForecast(w http.ResponseWriter, r *http.Request) {
	weather := r.URL.Query().Get("weather")
	series := s.engine.Simulate(r.Context(), s.now(), weather)
	writeJSON(w, http.StatusOK, struct {
		Data []float64 `json:"data"`
	}{Data: series})
}

func (s *Server) handleModelStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, s.engine.ModelStatus(r.Context(), s.now()))
}

func (s *Server) handleOptimize(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	factor, err := s.engine.Optimize(ctx, s.now())
	switch {
	case errors.Is(err, forecast.ErrPowerTooLow):
		writeJSON(w, http.StatusBadRequest, msgResponse{Msg: err.Error()})
		return
	case errors.Is(err, forecast.ErrCalibrationConflict):
		log.Ctx(ctx).WarnContext(ctx, "calibration conflict", slog.Any("error", err))
		writeJSON(w, http.StatusConflict, msgResponse{Msg: err.Error()})
		return
	case err != nil:
		log.Ctx(ctx).ErrorContext(ctx, "failed to optimize", slog.Any("error", err))
		writeJSONError(w, "failed to optimize", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, msgResponse{Msg: fmt.Sprintf("optimized future trend, factor: %v", factor)})
}

func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	record, err := s.engine.RecordAudit(ctx, s.now())
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to record audit", slog.Any("error", err))
		writeJSONError(w, "failed to record audit", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Date         string  `json:"date"`
		DeviationPct float64 `json:"deviation_pct"`
		Status       string  `json:"status"`
	}{
		Date:         record.Date.Format("2006-01-02"),
		DeviationPct: record.DeviationPct,
		Status:       string(forecast.Classify(record.DeviationPct)),
	})
}
