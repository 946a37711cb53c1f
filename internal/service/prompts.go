package service

import (
	"strings"
	"text/template"
)

// fallbackRankingQuery replaces the user goal when the catalog could not be filtered.
const fallbackRankingQuery = `Suggest courses ordered by their expected demand among a broad audience.

Criteria:
- universality
- relevance
- applied value
- not niche`

// noCategoriesMarker stands in for the category list when the catalog has none.
const noCategoriesMarker = "none"

var filterPrompt = template.Must(template.New("filter").Parse(`You are an assistant that helps people pick educational courses.

User request:
"{{.Query}}"

Available categories:
{{.Categories}}

Return JSON with the fields:
- is_decisive: bool
- category_names: list[str] | null
- format: "online" | "offline" | "mixed" | null
- max_duration_hours: int | null
- certificate_required: bool | null

Rules for is_decisive:
Return true if the request is meaningful and written in natural language,
even if it is broad or needs clarification.
Return false if the request is not a meaningful user request:
* it consists of random characters or numbers
* it contains only punctuation
* it is too short to carry any meaning

If is_decisive is false, return null for every other field.

If a parameter is not stated explicitly, return null.
Only the available categories may be used, if there are any.
If several categories fit, return all of them in category_names.
If no category fits, return null for category_names.
Category names are case-sensitive.
`))

var rankingPrompt = template.Must(template.New("ranking").Parse(`User goal:
"{{.Goal}}"

Courses:
{{.Courses}}

Return JSON:
- courses: list[{"course_id": UUID, "confidence": float}]

Sort the courses from the most to the least suitable and leave out the ones that do not fit at all.
A course MUST be left out of the list if:
- none of its categories relate to the goal
- AND none of its skills relate to the goal
- AND neither its description nor its sections mention terms related to the goal

Missing information counts as a sign that the course does not fit.
Confidence examples:
- 0.0 - does not fit the user goal at all
- 0.25 - weak match, the course is barely related to the request
- 0.5 - moderately relevant, may be useful
- 0.75 - fits well, the match is noticeable
- 1.0 - perfect fit, the course fully matches the goal
`))

func render(t *template.Template, data any) (string, error) {
	var sb strings.Builder
	if err := t.Execute(&sb, data); err != nil {
		return "", err
	}
	return sb.String(), nil
}
