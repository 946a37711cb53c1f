package domain

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

type Format string

const (
	FormatOnline  Format = "online"
	FormatOffline Format = "offline"
	FormatMixed   Format = "mixed"
)

func (f Format) Valid() bool {
	switch f {
	case FormatOnline, FormatOffline, FormatMixed:
		return true
	}
	return false
}

type CourseStatus string

const (
	StatusActive    CourseStatus = "active"
	StatusEnrolling CourseStatus = "enrolling"
	StatusArchived  CourseStatus = "archived"
	StatusDraft     CourseStatus = "draft"
)

type CertificateType string

const (
	CertificateCertificate CertificateType = "certificate"
	CertificateDiploma     CertificateType = "diploma"
	CertificateAttestation CertificateType = "attestation"
	CertificateNone        CertificateType = "none"
)

type Category struct {
	ID          uuid.UUID `json:"category_id"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
}

type Skill struct {
	ID          uuid.UUID `json:"skill_id"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
}

type Lecturer struct {
	ID       uuid.UUID `json:"lecturer_id"`
	Name     string    `json:"name"`
	Position *string   `json:"position"`
	Bio      *string   `json:"bio"`
	PhotoURL *string   `json:"photo_url"`
}

type Section struct {
	ID          uuid.UUID `json:"section_id"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	OrderNum    int       `json:"order_num"`
	Hours       *int      `json:"hours"`
}

// Course is the enriched read projection of a catalog course.
type Course struct {
	ID              uuid.UUID       `json:"course_id"`
	Name            string          `json:"name"`
	Description     *string         `json:"description"`
	Format          Format          `json:"format"`
	DurationHours   int             `json:"duration_hours"`
	Cost            float64         `json:"cost"`
	DiscountedCost  *float64        `json:"discounted_cost"`
	StartDate       *time.Time      `json:"start_date"`
	EndDate         *time.Time      `json:"end_date"`
	CertificateType CertificateType `json:"certificate_type"`
	Status          CourseStatus    `json:"status"`
	IsPublished     bool            `json:"is_published"`
	Locations       []string        `json:"locations"`
	Categories      []Category      `json:"categories"`
	Tags            []string        `json:"tags"`
	AcquiredSkills  []Skill         `json:"acquired_skills"`
	Lecturers       []Lecturer      `json:"lecturers"`
	Sections        []Section       `json:"sections"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// CourseFilter is the deterministic filter applied by the read repository.
// Nil fields do not constrain the query.
type CourseFilter struct {
	Categories          []string
	Format              *Format
	MaxDurationHours    *int
	CertificateRequired *bool
	Limit               int
	Skip                int
}

// CategoryNames is a case-sensitive set of known category names.
type CategoryNames map[string]struct{}

func NewCategoryNames(cats []Category) CategoryNames {
	names := make(CategoryNames, len(cats))
	for _, c := range cats {
		names[c.Name] = struct{}{}
	}
	return names
}

func (n CategoryNames) Has(name string) bool {
	_, ok := n[name]
	return ok
}

// Sorted returns the names in lexical order.
func (n CategoryNames) Sorted() []string {
	out := make([]string, 0, len(n))
	for name := range n {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
