// Package sanitize normalizes extracted model output into a canonical
// DocumentAnalysis. It never fails: malformed fields are coerced, defaulted,
// or dropped, and every repair is recorded as a warning. The returned
// analysis always satisfies the schema invariants (clamped confidences,
// multiple_choice questions with at least two options, non-empty titles).
package sanitize

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"docuform/internal/schema"
)

const defaultConfidence = 0.5

// Context carries request-scoped hints used while sanitizing.
type Context struct {
	// SourceName is the uploaded file's display name, used as the document
	// title when the model did not extract one.
	SourceName string
}

// rawAnalysis mirrors the expected completion shape with loose field types,
// so one decode pass absorbs whatever the model produced and the typed
// normalization below makes all decisions explicitly.
type rawAnalysis struct {
	DocumentStructure  *rawStructure `json:"documentStructure"`
	ExtractedQuestions []rawQuestion `json:"extractedQuestions"`
	ExtractedContent   *rawContent   `json:"extractedContent"`
}

type rawStructure struct {
	Type       any            `json:"type"`
	Subject    any            `json:"subject"`
	Confidence any            `json:"confidence"`
	Sections   []rawSection   `json:"sections"`
	Metadata   map[string]any `json:"metadata"`
}

type rawSection struct {
	ID         any          `json:"id"`
	Title      any          `json:"title"`
	Type       any          `json:"type"`
	Content    any          `json:"content"`
	Position   *rawPosition `json:"position"`
	Confidence any          `json:"confidence"`
}

type rawPosition struct {
	Page   any `json:"page"`
	X      any `json:"x"`
	Y      any `json:"y"`
	Width  any `json:"width"`
	Height any `json:"height"`
}

type rawQuestion struct {
	ID            any   `json:"id"`
	Number        any   `json:"number"`
	Content       any   `json:"content"`
	Type          any   `json:"type"`
	Options       []any `json:"options"`
	CorrectAnswer any   `json:"correctAnswer"`
	Points        any   `json:"points"`
	Difficulty    any   `json:"difficulty"`
	Confidence    any   `json:"confidence"`
}

type rawContent struct {
	Title    any `json:"title"`
	Subtitle any `json:"subtitle"`
	Summary  any `json:"summary"`
}

// SanitizeJSON parses a candidate JSON string and sanitizes it. A string that
// does not parse yields the fallback analysis, never an error.
func SanitizeJSON(candidate string, reqCtx Context) (*schema.DocumentAnalysis, []string) {
	var raw rawAnalysis
	if err := json.Unmarshal([]byte(candidate), &raw); err != nil {
		a := Fallback("response was not valid JSON", reqCtx)
		return a, []string{fmt.Sprintf("unparseable response: %v", err)}
	}
	return sanitize(&raw, reqCtx)
}

// sanitize normalizes a decoded response into a canonical DocumentAnalysis.
func sanitize(raw *rawAnalysis, reqCtx Context) (*schema.DocumentAnalysis, []string) {
	var warnings []string

	out := &schema.DocumentAnalysis{
		ExtractedQuestions: []schema.ExtractedQuestion{},
	}

	out.DocumentStructure, warnings = sanitizeStructure(raw.DocumentStructure, warnings)

	for i, q := range raw.ExtractedQuestions {
		cleaned, w, ok := sanitizeQuestion(q, i)
		warnings = append(warnings, w...)
		if ok {
			out.ExtractedQuestions = append(out.ExtractedQuestions, cleaned)
		}
	}

	out.ExtractedContent = sanitizeContent(raw.ExtractedContent, reqCtx)
	return out, warnings
}

// Fallback builds the degraded analysis returned when extraction or parsing
// produced nothing usable.
func Fallback(reason string, reqCtx Context) *schema.DocumentAnalysis {
	title := strings.TrimSpace(reqCtx.SourceName)
	if title == "" {
		title = "Untitled Document"
	}
	return &schema.DocumentAnalysis{
		DocumentStructure: schema.DocumentStructure{
			Type:       "unknown",
			Confidence: 0,
			Sections:   []schema.Section{},
			Metadata:   map[string]string{"fallbackReason": reason},
		},
		ExtractedQuestions: []schema.ExtractedQuestion{},
		ExtractedContent:   schema.ExtractedContent{Title: title},
	}
}

func sanitizeStructure(raw *rawStructure, warnings []string) (schema.DocumentStructure, []string) {
	out := schema.DocumentStructure{
		Type:     "unknown",
		Sections: []schema.Section{},
	}
	if raw == nil {
		warnings = append(warnings, "missing documentStructure")
		return out, warnings
	}
	if t := asString(raw.Type); t != "" {
		out.Type = t
	}
	out.Subject = asString(raw.Subject)
	out.Confidence = confidence(raw.Confidence)
	if md := asMetadata(raw.Metadata); len(md) > 0 {
		out.Metadata = md
	}

	for i, s := range raw.Sections {
		cleaned, w, ok := sanitizeSection(s, i)
		warnings = append(warnings, w...)
		if ok {
			out.Sections = append(out.Sections, cleaned)
		}
	}
	return out, warnings
}

func sanitizeSection(raw rawSection, index int) (schema.Section, []string, bool) {
	content := strings.TrimSpace(asString(raw.Content))
	if content == "" {
		return schema.Section{}, []string{fmt.Sprintf("dropped section %d: empty content", index+1)}, false
	}

	var warnings []string
	out := schema.Section{
		ID:         asString(raw.ID),
		Title:      strings.TrimSpace(asString(raw.Title)),
		Content:    content,
		Confidence: confidence(raw.Confidence),
	}
	if out.ID == "" {
		out.ID = fmt.Sprintf("section-%d", index+1)
	}
	if out.Title == "" {
		out.Title = titleFromContent(content)
	}

	out.Type = asString(raw.Type)
	if !validSectionType(out.Type) {
		inferred := ClassifySection(content)
		if out.Type != "" {
			warnings = append(warnings, fmt.Sprintf("section %s: unknown type %q, classified as %q", out.ID, out.Type, inferred))
		}
		out.Type = inferred
	}

	out.Position = sanitizePosition(raw.Position)
	return out, warnings, true
}

func sanitizePosition(raw *rawPosition) schema.Position {
	out := schema.Position{Page: 1, Width: 100, Height: 10}
	if raw == nil {
		return out
	}
	if p := int(asFloat(raw.Page, 1)); p >= 1 {
		out.Page = p
	}
	out.X = schema.ClampPercent(asFloat(raw.X, 0))
	out.Y = schema.ClampPercent(asFloat(raw.Y, 0))
	out.Width = schema.ClampPercent(asFloat(raw.Width, 100))
	out.Height = schema.ClampPercent(asFloat(raw.Height, 10))
	return out
}

func sanitizeQuestion(raw rawQuestion, index int) (schema.ExtractedQuestion, []string, bool) {
	content := strings.TrimSpace(asString(raw.Content))
	if content == "" {
		return schema.ExtractedQuestion{}, []string{fmt.Sprintf("dropped question %d: empty content", index+1)}, false
	}

	var warnings []string
	out := schema.ExtractedQuestion{
		ID:         asString(raw.ID),
		Content:    content,
		Confidence: confidence(raw.Confidence),
		Difficulty: asString(raw.Difficulty),
	}
	if out.ID == "" {
		out.ID = fmt.Sprintf("question-%d", index+1)
	}
	out.Number = int(asFloat(raw.Number, float64(index+1)))
	if out.Number < 1 {
		out.Number = index + 1
	}

	out.Type = asString(raw.Type)
	if !validQuestionType(out.Type) {
		if out.Type != "" {
			warnings = append(warnings, fmt.Sprintf("question %s: unknown type %q, defaulted to %s", out.ID, out.Type, schema.QuestionShortAnswer))
		}
		out.Type = schema.QuestionShortAnswer
	}

	if out.Type == schema.QuestionMultipleChoice {
		options := make([]string, 0, len(raw.Options))
		for _, o := range raw.Options {
			if s := strings.TrimSpace(asString(o)); s != "" {
				options = append(options, s)
			}
		}
		if len(options) < 2 {
			warnings = append(warnings, fmt.Sprintf("question %s: fewer than 2 options, demoted to %s", out.ID, schema.QuestionShortAnswer))
			out.Type = schema.QuestionShortAnswer
		} else {
			out.Options = options
		}
	}

	if s, ok := raw.CorrectAnswer.(string); ok && strings.TrimSpace(s) != "" {
		out.CorrectAnswer = strings.TrimSpace(s)
	}
	if p, ok := asNumber(raw.Points); ok && p > 0 {
		out.Points = p
	}
	return out, warnings, true
}

func sanitizeContent(raw *rawContent, reqCtx Context) schema.ExtractedContent {
	out := schema.ExtractedContent{}
	if raw != nil {
		out.Title = strings.TrimSpace(asString(raw.Title))
		out.Subtitle = strings.TrimSpace(asString(raw.Subtitle))
		out.Summary = strings.TrimSpace(asString(raw.Summary))
	}
	if out.Title == "" {
		out.Title = strings.TrimSpace(reqCtx.SourceName)
	}
	if out.Title == "" {
		out.Title = "Untitled Document"
	}
	return out
}

// ClassifySection infers a section type from its content when the model did
// not supply a usable one.
func ClassifySection(content string) string {
	if strings.Contains(content, "?") {
		return schema.SectionQuestion
	}
	first := strings.ToLower(firstWord(content))
	if imperativeVerbs[first] {
		return schema.SectionInstruction
	}
	return schema.SectionContent
}

var imperativeVerbs = map[string]bool{
	"answer": true, "calculate": true, "choose": true, "circle": true,
	"complete": true, "describe": true, "draw": true, "explain": true,
	"fill": true, "list": true, "match": true, "name": true, "read": true,
	"select": true, "solve": true, "underline": true, "write": true,
}

func firstWord(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return strings.Trim(fields[0], ".,:;!")
}

func titleFromContent(content string) string {
	words := strings.Fields(content)
	if len(words) > 6 {
		words = words[:6]
	}
	return strings.Join(words, " ")
}

func validSectionType(t string) bool {
	switch t {
	case schema.SectionHeader, schema.SectionQuestion, schema.SectionAnswer,
		schema.SectionInstruction, schema.SectionContent:
		return true
	}
	return false
}

func validQuestionType(t string) bool {
	switch t {
	case schema.QuestionMultipleChoice, schema.QuestionShortAnswer,
		schema.QuestionEssay, schema.QuestionFillBlank, schema.QuestionTrueFalse:
		return true
	}
	return false
}

// confidence coerces a confidence-like value, defaulting when missing or
// non-numeric and clamping into [0,1].
func confidence(v any) float64 {
	n, ok := asNumber(v)
	if !ok {
		return defaultConfidence
	}
	return schema.ClampConfidence(n)
}

func asString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(s)
	default:
		return ""
	}
}

func asNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func asFloat(v any, def float64) float64 {
	if n, ok := asNumber(v); ok {
		return n
	}
	return def
}

func asMetadata(m map[string]any) map[string]string {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		if s := asString(v); s != "" {
			out[k] = s
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
