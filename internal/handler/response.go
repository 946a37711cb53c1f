package handler

import "github.com/actuallystonmai/course-recommender/internal/domain"

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type CategoriesResponse struct {
	Categories []domain.Category `json:"categories"`
}

type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}
