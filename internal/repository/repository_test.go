package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/actuallystonmai/course-recommender/internal/domain"
)

func courseRow(id uuid.UUID, name string) []any {
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return []any{
		id, name, ptr("about " + name), "online", 24,
		float64(15000), nil, ptr(created.AddDate(0, 1, 0)), nil, "certificate",
		"active", true, []string{"Moscow"}, created, created,
	}
}

func TestListCategories(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	db := &fakeDB{results: map[string][][]any{
		"FROM categories": {
			{a, "Analytics", nil},
			{b, "Programming", ptr("Code")},
		},
	}}

	cats, err := NewRepository(db).ListCategories(context.Background())

	require.NoError(t, err)
	require.Len(t, cats, 2)
	assert.Equal(t, domain.Category{ID: a, Name: "Analytics"}, cats[0])
	assert.Equal(t, "Code", *cats[1].Description)
}

func TestListCategoriesError(t *testing.T) {
	db := &fakeDB{errs: map[string]error{"FROM categories": errors.New("conn reset")}}

	_, err := NewRepository(db).ListCategories(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "query categories")
}

func TestFilterCoursesEnriches(t *testing.T) {
	c1, c2 := uuid.New(), uuid.New()
	catID, skillID, lecturerID, sectionID := uuid.New(), uuid.New(), uuid.New(), uuid.New()

	db := &fakeDB{results: map[string][][]any{
		"FROM courses c": {courseRow(c1, "Go"), courseRow(c2, "Rust")},
		"FROM course_categories cc": {
			{c1, catID, "Programming", nil},
			{c2, catID, "Programming", nil},
		},
		"FROM course_tags ct":      {{c1, "practice"}},
		"FROM course_skills cs":    {{c2, skillID, "Ownership", nil}},
		"FROM course_lecturers cl": {{c1, lecturerID, "Anna", nil, nil, nil}},
		"FROM course_sections":     {{c1, sectionID, "Intro", nil, 1, ptr(4)}},
	}}

	courses, err := NewRepository(db).FilterCourses(context.Background(), domain.CourseFilter{
		Categories: []string{"Programming"},
		Limit:      25,
	})

	require.NoError(t, err)
	require.Len(t, courses, 2)

	goCourse := courses[0]
	assert.Equal(t, c1, goCourse.ID)
	assert.Equal(t, domain.FormatOnline, goCourse.Format)
	assert.Equal(t, domain.StatusActive, goCourse.Status)
	assert.Equal(t, domain.CertificateCertificate, goCourse.CertificateType)
	assert.Equal(t, []string{"practice"}, goCourse.Tags)
	assert.Equal(t, "Anna", goCourse.Lecturers[0].Name)
	assert.Equal(t, 4, *goCourse.Sections[0].Hours)
	assert.Empty(t, goCourse.AcquiredSkills)
	assert.NotNil(t, goCourse.AcquiredSkills)

	rust := courses[1]
	assert.Equal(t, "Ownership", rust.AcquiredSkills[0].Name)
	assert.Equal(t, "Programming", rust.Categories[0].Name)
	assert.Empty(t, rust.Tags)

	// one course query plus five batched enrichment queries
	require.Len(t, db.queries, 6)
	assert.Equal(t, []any{[]string{c1.String(), c2.String()}}, db.args[1])
}

func TestListCoursesEmptySkipsEnrichment(t *testing.T) {
	db := &fakeDB{}

	courses, err := NewRepository(db).ListCourses(context.Background(), 25)

	require.NoError(t, err)
	assert.Empty(t, courses)
	assert.Len(t, db.queries, 1)
	assert.Contains(t, db.queries[0], "ORDER BY c.course_id ASC")
}

func TestListCoursesEnrichmentError(t *testing.T) {
	db := &fakeDB{
		results: map[string][][]any{"FROM courses c": {courseRow(uuid.New(), "Go")}},
		errs:    map[string]error{"FROM course_tags ct": errors.New("timeout")},
	}

	_, err := NewRepository(db).ListCourses(context.Background(), 25)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "load course tags")
}
