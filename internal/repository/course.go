package repository

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/actuallystonmai/course-recommender/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var courseColumns = []string{
	"c.course_id", "c.name", "c.description", "c.format", "c.duration_hours",
	"c.cost", "c.discounted_cost", "c.start_date", "c.end_date", "c.certificate_type",
	"c.status", "c.is_published", "c.locations", "c.created_at", "c.updated_at",
}

// visibleCourses selects catalog rows a visitor is allowed to see.
func visibleCourses() sq.SelectBuilder {
	return psql.Select(courseColumns...).
		From("courses c").
		Where(sq.Eq{"c.status": string(domain.StatusActive)}).
		Where(sq.Eq{"c.is_published": true})
}

func buildFilterQuery(f domain.CourseFilter) sq.SelectBuilder {
	q := visibleCourses()

	if f.Format != nil {
		q = q.Where(sq.Eq{"c.format": string(*f.Format)})
	}
	if f.MaxDurationHours != nil {
		q = q.Where(sq.LtOrEq{"c.duration_hours": *f.MaxDurationHours})
	}
	if f.CertificateRequired != nil && *f.CertificateRequired {
		q = q.Where(sq.NotEq{"c.certificate_type": string(domain.CertificateNone)})
	}
	if len(f.Categories) > 0 {
		q = q.Where(sq.Expr(
			`EXISTS (SELECT 1 FROM course_categories cc
				JOIN categories cat ON cat.category_id = cc.category_id
				WHERE cc.course_id = c.course_id AND cat.name = ANY(?))`,
			f.Categories,
		))
	}

	return q.
		OrderBy("c.start_date ASC NULLS LAST", "c.duration_hours ASC", "c.course_id ASC").
		Limit(uint64(max(f.Limit, 0))).
		Offset(uint64(max(f.Skip, 0)))
}

func buildListQuery(limit int) sq.SelectBuilder {
	return visibleCourses().
		OrderBy("c.course_id ASC").
		Limit(uint64(max(limit, 0)))
}

// Deterministic filtered page of visible courses
func (r *Repository) FilterCourses(ctx context.Context, f domain.CourseFilter) ([]domain.Course, error) {
	query, args, err := buildFilterQuery(f).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build course filter query: %w", err)
	}
	courses, err := r.queryCourses(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("filter courses: %w", err)
	}
	return courses, nil
}

// Unfiltered page of visible courses
func (r *Repository) ListCourses(ctx context.Context, limit int) ([]domain.Course, error) {
	query, args, err := buildListQuery(limit).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build course list query: %w", err)
	}
	courses, err := r.queryCourses(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	return courses, nil
}

func (r *Repository) queryCourses(ctx context.Context, query string, args ...any) ([]domain.Course, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query courses: %w", err)
	}
	defer rows.Close()

	var items []domain.Course
	for rows.Next() {
		c, err := scanCourse(rows)
		if err != nil {
			return nil, fmt.Errorf("scan course: %w", err)
		}
		items = append(items, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate over courses: %w", err)
	}

	if len(items) == 0 {
		return items, nil
	}
	if err := r.enrich(ctx, items); err != nil {
		return nil, err
	}
	return items, nil
}

func scanCourse(row pgx.Row) (domain.Course, error) {
	var (
		c                           domain.Course
		format, certificate, status string
	)
	err := row.Scan(
		&c.ID, &c.Name, &c.Description, &format, &c.DurationHours,
		&c.Cost, &c.DiscountedCost, &c.StartDate, &c.EndDate, &certificate,
		&status, &c.IsPublished, &c.Locations, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return c, err
	}
	c.Format = domain.Format(format)
	c.CertificateType = domain.CertificateType(certificate)
	c.Status = domain.CourseStatus(status)
	return c, nil
}

func courseIDs(courses []domain.Course) []string {
	ids := make([]string, len(courses))
	for i, c := range courses {
		ids[i] = c.ID.String()
	}
	return ids
}

// enrich loads the nested collections of every course in a handful of batched queries.
func (r *Repository) enrich(ctx context.Context, courses []domain.Course) error {
	idx := make(map[uuid.UUID]*domain.Course, len(courses))
	for i := range courses {
		c := &courses[i]
		c.Categories = []domain.Category{}
		c.Tags = []string{}
		c.AcquiredSkills = []domain.Skill{}
		c.Lecturers = []domain.Lecturer{}
		c.Sections = []domain.Section{}
		if c.Locations == nil {
			c.Locations = []string{}
		}
		idx[c.ID] = c
	}
	ids := courseIDs(courses)

	if err := r.forEachRow(ctx, `SELECT cc.course_id, cat.category_id, cat.name, cat.description
		FROM course_categories cc
		JOIN categories cat ON cat.category_id = cc.category_id
		WHERE cc.course_id = ANY($1::uuid[])
		ORDER BY cat.name`, ids,
		func(rows pgx.Rows) error {
			var courseID uuid.UUID
			var cat domain.Category
			if err := rows.Scan(&courseID, &cat.ID, &cat.Name, &cat.Description); err != nil {
				return err
			}
			if c, ok := idx[courseID]; ok {
				c.Categories = append(c.Categories, cat)
			}
			return nil
		}); err != nil {
		return fmt.Errorf("load course categories: %w", err)
	}

	if err := r.forEachRow(ctx, `SELECT ct.course_id, t.name
		FROM course_tags ct
		JOIN tags t ON t.tag_id = ct.tag_id
		WHERE ct.course_id = ANY($1::uuid[])
		ORDER BY t.name`, ids,
		func(rows pgx.Rows) error {
			var courseID uuid.UUID
			var name string
			if err := rows.Scan(&courseID, &name); err != nil {
				return err
			}
			if c, ok := idx[courseID]; ok {
				c.Tags = append(c.Tags, name)
			}
			return nil
		}); err != nil {
		return fmt.Errorf("load course tags: %w", err)
	}

	if err := r.forEachRow(ctx, `SELECT cs.course_id, s.skill_id, s.name, s.description
		FROM course_skills cs
		JOIN skills s ON s.skill_id = cs.skill_id
		WHERE cs.course_id = ANY($1::uuid[])
		ORDER BY s.name`, ids,
		func(rows pgx.Rows) error {
			var courseID uuid.UUID
			var s domain.Skill
			if err := rows.Scan(&courseID, &s.ID, &s.Name, &s.Description); err != nil {
				return err
			}
			if c, ok := idx[courseID]; ok {
				c.AcquiredSkills = append(c.AcquiredSkills, s)
			}
			return nil
		}); err != nil {
		return fmt.Errorf("load course skills: %w", err)
	}

	if err := r.forEachRow(ctx, `SELECT cl.course_id, l.lecturer_id, l.name, l.position, l.bio, l.photo_url
		FROM course_lecturers cl
		JOIN lecturers l ON l.lecturer_id = cl.lecturer_id
		WHERE cl.course_id = ANY($1::uuid[])
		ORDER BY l.name`, ids,
		func(rows pgx.Rows) error {
			var courseID uuid.UUID
			var l domain.Lecturer
			if err := rows.Scan(&courseID, &l.ID, &l.Name, &l.Position, &l.Bio, &l.PhotoURL); err != nil {
				return err
			}
			if c, ok := idx[courseID]; ok {
				c.Lecturers = append(c.Lecturers, l)
			}
			return nil
		}); err != nil {
		return fmt.Errorf("load course lecturers: %w", err)
	}

	if err := r.forEachRow(ctx, `SELECT course_id, section_id, name, description, order_num, hours
		FROM course_sections
		WHERE course_id = ANY($1::uuid[])
		ORDER BY course_id, order_num`, ids,
		func(rows pgx.Rows) error {
			var courseID uuid.UUID
			var s domain.Section
			if err := rows.Scan(&courseID, &s.ID, &s.Name, &s.Description, &s.OrderNum, &s.Hours); err != nil {
				return err
			}
			if c, ok := idx[courseID]; ok {
				c.Sections = append(c.Sections, s)
			}
			return nil
		}); err != nil {
		return fmt.Errorf("load course sections: %w", err)
	}

	return nil
}

func (r *Repository) forEachRow(ctx context.Context, query string, ids []string, fn func(pgx.Rows) error) error {
	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		if err := fn(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}
