package sanitize

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docuform/internal/schema"
)

func TestSanitizeJSON_ClampsConfidences(t *testing.T) {
	candidate := `{
		"documentStructure": {
			"type": "worksheet",
			"confidence": 3.7,
			"sections": [
				{"content": "Read the text below.", "confidence": -2},
				{"content": "What is an atom?", "confidence": "0.8"}
			]
		},
		"extractedQuestions": [
			{"content": "Name three planets.", "confidence": 99}
		]
	}`
	a, _ := SanitizeJSON(candidate, Context{})

	assert.Equal(t, 1.0, a.DocumentStructure.Confidence)
	require.Len(t, a.DocumentStructure.Sections, 2)
	assert.Equal(t, 0.0, a.DocumentStructure.Sections[0].Confidence)
	assert.Equal(t, 0.8, a.DocumentStructure.Sections[1].Confidence)
	require.Len(t, a.ExtractedQuestions, 1)
	assert.Equal(t, 1.0, a.ExtractedQuestions[0].Confidence)

	for _, s := range a.DocumentStructure.Sections {
		assert.GreaterOrEqual(t, s.Confidence, 0.0)
		assert.LessOrEqual(t, s.Confidence, 1.0)
	}
}

func TestSanitizeJSON_MissingConfidenceDefaults(t *testing.T) {
	a, _ := SanitizeJSON(`{"documentStructure":{"type":"quiz","sections":[{"content":"hello"}]}}`, Context{})
	assert.Equal(t, 0.5, a.DocumentStructure.Confidence)
	assert.Equal(t, 0.5, a.DocumentStructure.Sections[0].Confidence)
}

func TestSanitizeJSON_DemotesUnderfilledMultipleChoice(t *testing.T) {
	candidate := `{"extractedQuestions":[{"content":"Pick one.","type":"multiple_choice","options":["A"]}]}`
	a, warnings := SanitizeJSON(candidate, Context{})

	require.Len(t, a.ExtractedQuestions, 1)
	q := a.ExtractedQuestions[0]
	assert.Equal(t, schema.QuestionShortAnswer, q.Type)
	assert.Nil(t, q.Options)
	assert.NotEmpty(t, warnings)

	// The serialized form must not carry an options field.
	raw, err := json.Marshal(q)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "options")
}

func TestSanitizeJSON_StripsEmptyOptions(t *testing.T) {
	candidate := `{"extractedQuestions":[{"content":"Pick one.","type":"multiple_choice","options":["A","  ","B",""]}]}`
	a, _ := SanitizeJSON(candidate, Context{})

	require.Len(t, a.ExtractedQuestions, 1)
	assert.Equal(t, []string{"A", "B"}, a.ExtractedQuestions[0].Options)
	assert.Equal(t, schema.QuestionMultipleChoice, a.ExtractedQuestions[0].Type)
}

func TestSanitizeJSON_MultipleChoiceAlwaysHasTwoOptions(t *testing.T) {
	candidates := []string{
		`{"extractedQuestions":[{"content":"q","type":"multiple_choice","options":["A","B","C"]}]}`,
		`{"extractedQuestions":[{"content":"q","type":"multiple_choice","options":[""]}]}`,
		`{"extractedQuestions":[{"content":"q","type":"multiple_choice"}]}`,
	}
	for _, c := range candidates {
		a, _ := SanitizeJSON(c, Context{})
		for _, q := range a.ExtractedQuestions {
			if q.Type == schema.QuestionMultipleChoice {
				assert.GreaterOrEqual(t, len(q.Options), 2)
			}
		}
	}
}

func TestSanitizeJSON_DropsEmptyContent(t *testing.T) {
	candidate := `{
		"documentStructure": {"sections": [{"content": "   "}, {"content": "kept"}]},
		"extractedQuestions": [{"content": ""}, {"content": "kept too"}]
	}`
	a, warnings := SanitizeJSON(candidate, Context{})

	require.Len(t, a.DocumentStructure.Sections, 1)
	assert.Equal(t, "kept", a.DocumentStructure.Sections[0].Content)
	require.Len(t, a.ExtractedQuestions, 1)
	assert.Len(t, warnings, 2)
}

func TestSanitizeJSON_SectionClassification(t *testing.T) {
	tests := []struct {
		content string
		want    string
	}{
		{"What is the capital of France?", schema.SectionQuestion},
		{"Write your name at the top of the page.", schema.SectionInstruction},
		{"Circle the correct answers below.", schema.SectionInstruction},
		{"The water cycle moves water through the atmosphere.", schema.SectionContent},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ClassifySection(tt.content), "content: %s", tt.content)
	}
}

func TestSanitizeJSON_SynthesizesIDsAndTitles(t *testing.T) {
	candidate := `{"documentStructure":{"sections":[{"content":"Photosynthesis converts light into chemical energy for the plant."}]}}`
	a, _ := SanitizeJSON(candidate, Context{})

	sec := a.DocumentStructure.Sections[0]
	assert.Equal(t, "section-1", sec.ID)
	assert.Equal(t, "Photosynthesis converts light into chemical energy", sec.Title)
}

func TestSanitizeJSON_PositionClamping(t *testing.T) {
	candidate := `{"documentStructure":{"sections":[{"content":"x","position":{"page":0,"x":-5,"y":120,"width":250,"height":-1}}]}}`
	a, _ := SanitizeJSON(candidate, Context{})

	pos := a.DocumentStructure.Sections[0].Position
	assert.Equal(t, 1, pos.Page)
	assert.Equal(t, 0.0, pos.X)
	assert.Equal(t, 100.0, pos.Y)
	assert.Equal(t, 100.0, pos.Width)
	assert.Equal(t, 0.0, pos.Height)
}

func TestSanitizeJSON_CorrectAnswerAndPoints(t *testing.T) {
	candidate := `{"extractedQuestions":[
		{"content":"a","correctAnswer":"", "points": -3},
		{"content":"b","correctAnswer":"42", "points": 2},
		{"content":"c","correctAnswer": 7, "points": "not a number"}
	]}`
	a, _ := SanitizeJSON(candidate, Context{})
	require.Len(t, a.ExtractedQuestions, 3)

	assert.Empty(t, a.ExtractedQuestions[0].CorrectAnswer)
	assert.Zero(t, a.ExtractedQuestions[0].Points)
	assert.Equal(t, "42", a.ExtractedQuestions[1].CorrectAnswer)
	assert.Equal(t, 2.0, a.ExtractedQuestions[1].Points)
	assert.Empty(t, a.ExtractedQuestions[2].CorrectAnswer)
	assert.Zero(t, a.ExtractedQuestions[2].Points)
}

func TestSanitizeJSON_DefaultTitle(t *testing.T) {
	a, _ := SanitizeJSON(`{}`, Context{})
	assert.Equal(t, "Untitled Document", a.ExtractedContent.Title)

	a, _ = SanitizeJSON(`{}`, Context{SourceName: "unit-3-quiz.pdf"})
	assert.Equal(t, "unit-3-quiz.pdf", a.ExtractedContent.Title)
}

func TestSanitizeJSON_UnparseableYieldsFallback(t *testing.T) {
	a, warnings := SanitizeJSON("{not json", Context{SourceName: "scan.pdf"})
	require.NotNil(t, a)
	assert.Equal(t, "scan.pdf", a.ExtractedContent.Title)
	assert.Equal(t, "unknown", a.DocumentStructure.Type)
	assert.NotEmpty(t, warnings)
	assert.NotNil(t, a.ExtractedQuestions)
}

func TestSanitizeJSON_Idempotent(t *testing.T) {
	candidate := `{
		"documentStructure": {
			"type": "quiz",
			"subject": "biology",
			"confidence": 1.4,
			"sections": [
				{"content": "Answer every question.", "type": "bogus"},
				{"content": "Which organelle produces energy?"}
			]
		},
		"extractedQuestions": [
			{"content": "Which organelle produces energy?", "type": "multiple_choice",
			 "options": ["Mitochondria", "Nucleus", ""], "correctAnswer": "Mitochondria", "points": 1}
		],
		"extractedContent": {"title": "Cell Biology Quiz"}
	}`
	once, _ := SanitizeJSON(candidate, Context{})

	reserialized, err := json.Marshal(once)
	require.NoError(t, err)
	twice, warnings := SanitizeJSON(string(reserialized), Context{})

	assert.Equal(t, once, twice)
	assert.Empty(t, warnings, "canonical input needs no repairs")
}

func TestFallback_Shape(t *testing.T) {
	a := Fallback("service unavailable", Context{})
	assert.Equal(t, "Untitled Document", a.ExtractedContent.Title)
	assert.NotNil(t, a.DocumentStructure.Sections)
	assert.NotNil(t, a.ExtractedQuestions)
	assert.Equal(t, 0.0, a.DocumentStructure.Confidence)
	assert.Equal(t, "service unavailable", a.DocumentStructure.Metadata["fallbackReason"])
}
