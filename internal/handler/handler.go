package handler

import (
	"context"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/actuallystonmai/course-recommender/internal/logger"
	"github.com/actuallystonmai/course-recommender/internal/service"
)

// Pinger is a dependency checked by /health.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	service *service.Service
	checks  map[string]Pinger
	log     *logger.Logger
}

func NewHandler(svc *service.Service, checks map[string]Pinger, log *logger.Logger) *Handler {
	return &Handler{service: svc, checks: checks, log: log}
}

// write JSON response
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writes JSON error response.
func writeError(w http.ResponseWriter, status int, errCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Error:   errCode,
		Message: message,
	})
}

// writePipelineError maps a recommendation pipeline error onto a status code.
func (h *Handler) writePipelineError(w http.ResponseWriter, err error) {
	code, msg := service.CategorizeError(err)
	switch code {
	case "completion_unavailable", "request_timeout":
		writeError(w, http.StatusServiceUnavailable, code, msg)
	case "completion_invalid", "completion_failed":
		writeError(w, http.StatusBadGateway, code, msg)
	default:
		h.log.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, code, msg)
	}
}
