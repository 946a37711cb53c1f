package llm

// FilterSchema describes domain.InferredFilter. Fields are optional so that a
// missing is_decisive falls back to true.
var FilterSchema = MustSchema("course_filter", false, map[string]any{
	"type":                 "object",
	"additionalProperties": false,
	"properties": map[string]any{
		"is_decisive": map[string]any{"type": "boolean"},
		"category_names": map[string]any{
			"type":  []any{"array", "null"},
			"items": map[string]any{"type": "string"},
		},
		"format": map[string]any{
			"type": []any{"string", "null"},
			"enum": []any{"online", "offline", "mixed", nil},
		},
		"max_duration_hours":   map[string]any{"type": []any{"integer", "null"}},
		"certificate_required": map[string]any{"type": []any{"boolean", "null"}},
	},
})

// RankingSchema describes domain.RankingResponse.
var RankingSchema = MustSchema("course_ranking", true, map[string]any{
	"type":                 "object",
	"additionalProperties": false,
	"required":             []any{"courses"},
	"properties": map[string]any{
		"courses": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type":                 "object",
				"additionalProperties": false,
				"required":             []any{"course_id", "confidence"},
				"properties": map[string]any{
					"course_id":  map[string]any{"type": "string", "format": "uuid"},
					"confidence": map[string]any{"type": "number"},
				},
			},
		},
	},
})
