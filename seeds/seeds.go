package seeds

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/actuallystonmai/course-recommender/internal/domain"
	"github.com/actuallystonmai/course-recommender/internal/logger"
)

// Execer is the write access the seeder needs.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type seedCategory struct {
	name        string
	description string
	skills      []string
	topics      []string
}

var seedCategories = []seedCategory{
	{
		name:        "Programming",
		description: "Software development and programming languages",
		skills:      []string{"Go", "Python", "SQL", "Testing", "Concurrency"},
		topics:      []string{"Go for backend developers", "Python from scratch", "Practical SQL", "Test-driven development", "Concurrent programming"},
	},
	{
		name:        "Design",
		description: "Product, interface and graphic design",
		skills:      []string{"Figma", "Typography", "User research", "Prototyping"},
		topics:      []string{"UX fundamentals", "Interface design in Figma", "Typography basics", "Design systems"},
	},
	{
		name:        "Analytics",
		description: "Data analysis and business intelligence",
		skills:      []string{"Excel", "Statistics", "Data visualization", "A/B testing"},
		topics:      []string{"Excel for analysts", "Applied statistics", "Dashboards that work", "Product analytics"},
	},
	{
		name:        "Management",
		description: "Team and project management",
		skills:      []string{"Scrum", "Planning", "Negotiation", "Leadership"},
		topics:      []string{"Project management essentials", "Agile teams", "Leading people", "Negotiation practice"},
	},
	{
		name:        "Marketing",
		description: "Digital marketing and promotion",
		skills:      []string{"SEO", "Copywriting", "Targeted advertising"},
		topics:      []string{"Digital marketing basics", "SEO in practice", "Copywriting for the web"},
	},
	{
		name:        "Languages",
		description: "Foreign language courses",
		skills:      []string{"English", "Business communication"},
		topics:      []string{"Business English", "English for IT", "Public speaking"},
	},
}

var (
	seedFormats      = []domain.Format{domain.FormatOnline, domain.FormatOffline, domain.FormatMixed}
	seedCertificates = []domain.CertificateType{domain.CertificateNone, domain.CertificateCertificate, domain.CertificateDiploma, domain.CertificateAttestation}
	seedCities       = []string{"Moscow", "Saint Petersburg", "Kazan", "Novosibirsk"}
	seedLecturers    = []string{"Anna Petrova", "Ivan Smirnov", "Maria Volkova", "Dmitry Orlov", "Elena Sokolova"}
	seedTags         = []string{"beginner", "advanced", "practice", "career"}
)

type catalogRow struct {
	table   string
	columns []string
	values  [][]any
}

// catalog is the whole seed data set, one entry per table in insert order.
type catalog struct {
	rows []catalogRow
}

func (c *catalog) add(table string, columns []string, values ...any) {
	for i := range c.rows {
		if c.rows[i].table == table {
			c.rows[i].values = append(c.rows[i].values, values)
			return
		}
	}
	c.rows = append(c.rows, catalogRow{table: table, columns: columns, values: [][]any{values}})
}

func (c *catalog) count(table string) int {
	for _, r := range c.rows {
		if r.table == table {
			return len(r.values)
		}
	}
	return 0
}

// Setup truncates the catalog and inserts a deterministic data set.
func Setup(ctx context.Context, db Execer, log *logger.Logger) error {
	rng := rand.New(rand.NewSource(42))
	cat := buildCatalog(rng, time.Date(2026, time.January, 12, 0, 0, 0, 0, time.UTC))

	log.Info("seed: truncating existing data")
	if _, err := db.Exec(ctx, `
		TRUNCATE course_lecturers, lecturers, course_skills, skills, course_tags, tags,
			course_categories, course_sections, courses, categories CASCADE
	`); err != nil {
		return fmt.Errorf("truncate: %w", err)
	}

	for _, r := range cat.rows {
		log.Info("seed: inserting", "table", r.table, "rows", len(r.values))
		if err := insertRows(ctx, db, r); err != nil {
			return fmt.Errorf("seed %s: %w", r.table, err)
		}
	}

	log.Info("seed: complete")
	return nil
}

func newID(rng *rand.Rand) uuid.UUID {
	id, err := uuid.NewRandomFromReader(rng)
	if err != nil {
		// math/rand never fails to read
		panic(err)
	}
	return id
}

func buildCatalog(rng *rand.Rand, now time.Time) *catalog {
	cat := &catalog{}

	lecturerIDs := make([]uuid.UUID, len(seedLecturers))
	for i, name := range seedLecturers {
		lecturerIDs[i] = newID(rng)
		cat.add("lecturers", []string{"lecturer_id", "name", "position", "bio", "photo_url"},
			lecturerIDs[i], name, "Senior lecturer", fmt.Sprintf("%s has taught for %d years.", name, rng.Intn(15)+3), nil)
	}

	tagIDs := make([]uuid.UUID, len(seedTags))
	for i, tag := range seedTags {
		tagIDs[i] = newID(rng)
		cat.add("tags", []string{"tag_id", "name"}, tagIDs[i], tag)
	}

	for ci, sc := range seedCategories {
		categoryID := newID(rng)
		cat.add("categories", []string{"category_id", "name", "description"}, categoryID, sc.name, sc.description)

		skillIDs := make([]uuid.UUID, len(sc.skills))
		for i, skill := range sc.skills {
			skillIDs[i] = newID(rng)
			cat.add("skills", []string{"skill_id", "name", "description"},
				skillIDs[i], skill, fmt.Sprintf("Hands-on %s", strings.ToLower(skill)))
		}

		for ti, topic := range sc.topics {
			courseID := newID(rng)
			format := seedFormats[rng.Intn(len(seedFormats))]
			duration := (rng.Intn(12) + 1) * 6
			cost := float64(rng.Intn(90)+10) * 1000
			start := now.AddDate(0, 0, rng.Intn(120)-30)
			end := start.AddDate(0, 0, duration/2+7)

			var locations []string
			if format != domain.FormatOnline {
				locations = []string{seedCities[rng.Intn(len(seedCities))]}
			} else {
				locations = []string{}
			}

			// every seventh course is hidden to exercise visibility filtering
			status, published := domain.StatusActive, true
			if (ci*len(sc.topics)+ti)%7 == 6 {
				status, published = domain.StatusArchived, false
			}

			var discounted any
			if rng.Intn(3) == 0 {
				discounted = cost * 0.8
			}

			cat.add("courses", []string{
				"course_id", "name", "description", "format", "duration_hours", "cost", "discounted_cost",
				"start_date", "end_date", "certificate_type", "status", "is_published", "locations",
				"created_at", "updated_at",
			},
				courseID, topic, fmt.Sprintf("%s: a %s course on %s.", topic, format, strings.ToLower(sc.name)),
				string(format), duration, cost, discounted,
				start, end, string(seedCertificates[rng.Intn(len(seedCertificates))]), string(status), published, locations,
				now, now,
			)

			cat.add("course_categories", []string{"course_id", "category_id"}, courseID, categoryID)

			picked := rng.Perm(len(skillIDs))[:min(len(skillIDs), rng.Intn(3)+1)]
			for _, si := range picked {
				cat.add("course_skills", []string{"course_id", "skill_id"}, courseID, skillIDs[si])
			}

			cat.add("course_tags", []string{"course_id", "tag_id"}, courseID, tagIDs[rng.Intn(len(tagIDs))])
			cat.add("course_lecturers", []string{"course_id", "lecturer_id"}, courseID, lecturerIDs[rng.Intn(len(lecturerIDs))])

			sections := rng.Intn(3) + 2
			for n := 1; n <= sections; n++ {
				cat.add("course_sections", []string{"section_id", "course_id", "name", "description", "order_num", "hours"},
					newID(rng), courseID, fmt.Sprintf("%s, part %d", topic, n), nil, n, duration/sections)
			}
		}
	}

	return cat
}

func insertRows(ctx context.Context, db Execer, r catalogRow) error {
	if len(r.values) == 0 {
		return nil
	}

	rows := make([]string, 0, len(r.values))
	args := make([]any, 0, len(r.values)*len(r.columns))
	for _, vals := range r.values {
		placeholders := make([]string, len(vals))
		for i := range vals {
			placeholders[i] = fmt.Sprintf("$%d", len(args)+i+1)
		}
		rows = append(rows, "("+strings.Join(placeholders, ", ")+")")
		args = append(args, vals...)
	}

	query := "INSERT INTO " + r.table + " (" + strings.Join(r.columns, ", ") + ") VALUES " +
		strings.Join(rows, ", ")

	_, err := db.Exec(ctx, query, args...)
	return err
}
