package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/md-rashed-zaman/clinicbook/libs/httpx"
	otelx "github.com/md-rashed-zaman/clinicbook/libs/otel"
	"github.com/md-rashed-zaman/clinicbook/services/availability-service/internal/api"
)

type AvailabilityHandler struct {
	engine api.Engine
	logger *slog.Logger
}

func NewAvailabilityHandler(engine api.Engine, logger *slog.Logger) *AvailabilityHandler {
	return &AvailabilityHandler{engine: engine, logger: logger}
}

func (h *AvailabilityHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/v1/availability/slots", h.Slots)
	mux.HandleFunc("/api/v1/availability/conflicts", h.Conflicts)
	mux.HandleFunc("/api/v1/availability/validate", h.Validate)
}

func (h *AvailabilityHandler) Slots(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	q := r.URL.Query()
	req := api.SlotsRequest{
		Date:      strings.TrimSpace(q.Get("date")),
		ServiceID: strings.TrimSpace(q.Get("service_id")),
	}
	var ok bool
	if req.DurationMinutes, ok = queryInt(w, q.Get("duration_minutes"), "duration_minutes"); !ok {
		return
	}
	if req.StepMinutes, ok = queryInt(w, q.Get("step_minutes"), "step_minutes"); !ok {
		return
	}

	resp, err := api.ListSlots(r.Context(), h.engine, req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *AvailabilityHandler) Conflicts(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeCandidate(w, r)
	if !ok {
		return
	}
	resp, err := api.CheckConflict(r.Context(), h.engine, req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *AvailabilityHandler) Validate(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeCandidate(w, r)
	if !ok {
		return
	}
	resp, err := api.ValidateBooking(r.Context(), h.engine, req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func decodeCandidate(w http.ResponseWriter, r *http.Request) (api.CandidateRequest, bool) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return api.CandidateRequest{}, false
	}
	var req api.CandidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return api.CandidateRequest{}, false
	}
	return req, true
}

func queryInt(w http.ResponseWriter, raw, name string) (int, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		http.Error(w, "invalid "+name, http.StatusBadRequest)
		return 0, false
	}
	return v, true
}

func (h *AvailabilityHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind, msg := api.Classify(err)
	code := http.StatusInternalServerError
	switch kind {
	case api.KindBadRequest:
		code = http.StatusBadRequest
	case api.KindNotFound:
		code = http.StatusNotFound
	case api.KindUnavailable:
		code = http.StatusServiceUnavailable
	}
	if code >= http.StatusInternalServerError {
		attrs := append([]any{
			"path", r.URL.Path,
			"status", code,
			"request_id", httpx.RequestIDFromContext(r.Context()),
			"err", err,
		}, otelx.LogFields(r.Context())...)
		h.logger.Error("availability request failed", attrs...)
	}
	http.Error(w, msg, code)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
