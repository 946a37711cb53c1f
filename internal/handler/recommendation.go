package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/actuallystonmai/course-recommender/internal/domain"
	"github.com/actuallystonmai/course-recommender/internal/validation"
)

const defaultLimit = 10

type recommendationParams struct {
	Query string `json:"q" validate:"required"`
	Skip  int    `json:"skip" validate:"min=0"`
	Limit int    `json:"limit" validate:"min=1,max=25"`
}

// GET /recommendations
func (h *Handler) GetRecommendations(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	params := recommendationParams{Query: q.Get("q"), Limit: defaultLimit}

	if skipStr := q.Get("skip"); skipStr != "" {
		parsed, err := strconv.Atoi(skipStr)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_parameter", "Invalid skip parameter")
			return
		}
		params.Skip = parsed
	}
	if limitStr := q.Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_parameter", "Invalid limit parameter")
			return
		}
		params.Limit = parsed
	}

	if err := validation.Struct(&params); err != nil {
		writeValidationError(w, err)
		return
	}

	result, err := h.service.Recommend(r.Context(), domain.RecommendationRequest{
		Query: params.Query,
		Limit: params.Limit,
		Skip:  params.Skip,
	})
	if err != nil {
		h.writePipelineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// GET /categories
func (h *Handler) GetCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.service.Categories(r.Context())
	if err != nil {
		h.writePipelineError(w, err)
		return
	}
	if cats == nil {
		cats = []domain.Category{}
	}
	writeJSON(w, http.StatusOK, CategoriesResponse{Categories: cats})
}

func writeValidationError(w http.ResponseWriter, err error) {
	var reqErr *validation.RequestError
	if errors.As(err, &reqErr) {
		writeError(w, http.StatusBadRequest, "invalid_parameter", reqErr.Error())
		return
	}
	writeError(w, http.StatusBadRequest, "invalid_parameter", "Invalid request")
}
