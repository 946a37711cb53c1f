package domain

import (
	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

const (
	// MaxLimit bounds every retrieval and every returned page.
	MaxLimit = 25
	// RankingWeakThreshold splits small and large ranking responses.
	RankingWeakThreshold = 3
	// MinConfidence is the score at which a ranked course counts as a confident match.
	MinConfidence = 0.5
)

type Notice string

const (
	NoticeQueryInvalid    Notice = "QUERY_INVALID"
	NoticeQueryAmbiguous  Notice = "QUERY_AMBIGUOUS"
	NoticeFallbackUsed    Notice = "FALLBACK_USED"
	NoticeRankingWeak     Notice = "RANKING_WEAK"
	NoticeFiltersInferred Notice = "FILTERS_INFERRED"
)

type RecommendationRequest struct {
	Query string
	Limit int
	Skip  int
}

// PageLimit is the requested page size capped at MaxLimit.
func (r RecommendationRequest) PageLimit() int {
	return min(MaxLimit, r.Limit)
}

type RecommendationResult struct {
	Notices []Notice `json:"notices"`
	Courses []Course `json:"courses"`
	Skip    int      `json:"skip"`
}

// InferredFilter is the structured filter extracted from a free-text query.
// Everything except IsDecisive is optional and means "unconstrained" when nil.
type InferredFilter struct {
	IsDecisive          bool     `json:"is_decisive"`
	CategoryNames       []string `json:"category_names"`
	Format              *Format  `json:"format"`
	MaxDurationHours    *int     `json:"max_duration_hours"`
	CertificateRequired *bool    `json:"certificate_required"`
}

// UnmarshalJSON treats a missing is_decisive as true.
func (f *InferredFilter) UnmarshalJSON(b []byte) error {
	type plain InferredFilter
	p := plain{IsDecisive: true}
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*f = InferredFilter(p)
	return nil
}

type RankedItem struct {
	CourseID   uuid.UUID `json:"course_id"`
	Confidence float64   `json:"confidence"`
}

type RankingResponse struct {
	Courses []RankedItem `json:"courses"`
}

type NamedText struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
}

// RankingCandidate is the slimmed course projection sent to the completion service.
type RankingCandidate struct {
	CourseID    uuid.UUID   `json:"course_id"`
	Name        string      `json:"name"`
	Description *string     `json:"description"`
	Categories  []string    `json:"categories"`
	Skills      []NamedText `json:"skills"`
	Sections    []NamedText `json:"sections"`
}

func NewRankingCandidate(c Course) RankingCandidate {
	rc := RankingCandidate{
		CourseID:    c.ID,
		Name:        c.Name,
		Description: c.Description,
		Categories:  make([]string, 0, len(c.Categories)),
		Skills:      make([]NamedText, 0, len(c.AcquiredSkills)),
		Sections:    make([]NamedText, 0, len(c.Sections)),
	}
	for _, cat := range c.Categories {
		rc.Categories = append(rc.Categories, cat.Name)
	}
	for _, s := range c.AcquiredSkills {
		rc.Skills = append(rc.Skills, NamedText{Name: s.Name, Description: s.Description})
	}
	for _, s := range c.Sections {
		rc.Sections = append(rc.Sections, NamedText{Name: s.Name, Description: s.Description})
	}
	return rc
}

type BatchStatus string

const (
	StatusSuccess BatchStatus = "success"
	StatusFailed  BatchStatus = "failed"
)

type BatchItemResult struct {
	Index   int                   `json:"index"`
	Query   string                `json:"query"`
	Status  BatchStatus           `json:"status"`
	Result  *RecommendationResult `json:"result,omitempty"`
	Error   string                `json:"error,omitempty"`
	Message string                `json:"message,omitempty"`
}

type BatchSummary struct {
	SuccessCount     int   `json:"success_count"`
	FailedCount      int   `json:"failed_count"`
	ProcessingTimeMs int64 `json:"processing_time_ms"`
}

type BatchResponse struct {
	Results []BatchItemResult `json:"results"`
	Summary BatchSummary      `json:"summary"`
}
