package handler

import (
	"net/http"

	"github.com/goccy/go-json"

	"github.com/actuallystonmai/course-recommender/internal/domain"
	"github.com/actuallystonmai/course-recommender/internal/validation"
)

const maxBatchBody = 1 << 20

type BatchItemRequest struct {
	Query string `json:"query" validate:"required"`
	Limit int    `json:"limit" validate:"omitempty,min=1,max=25"`
	Skip  int    `json:"skip" validate:"min=0"`
}

type BatchRequest struct {
	Requests []BatchItemRequest `json:"requests" validate:"required,min=1,max=20,dive"`
}

// POST /recommendations/batch
func (h *Handler) GetBatchRecommendations(w http.ResponseWriter, r *http.Request) {
	var body BatchRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBatchBody)).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_parameter", "Invalid request body")
		return
	}
	if err := validation.Struct(&body); err != nil {
		writeValidationError(w, err)
		return
	}

	reqs := make([]domain.RecommendationRequest, 0, len(body.Requests))
	for _, item := range body.Requests {
		limit := item.Limit
		if limit == 0 {
			limit = defaultLimit
		}
		reqs = append(reqs, domain.RecommendationRequest{Query: item.Query, Limit: limit, Skip: item.Skip})
	}

	writeJSON(w, http.StatusOK, h.service.GetBatchRecommendations(r.Context(), reqs))
}
