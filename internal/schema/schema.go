// Package schema holds the canonical data model shared by every pipeline
// stage: the structured interpretation of a source document produced by the
// sanitizer, and the positioned template produced by the layout synthesizer.
package schema

// Section types recognized in a document structure.
const (
	SectionHeader      = "header"
	SectionQuestion    = "question"
	SectionAnswer      = "answer"
	SectionInstruction = "instruction"
	SectionContent     = "content"
)

// Question types recognized by the sanitizer and validator.
const (
	QuestionMultipleChoice = "multiple_choice"
	QuestionShortAnswer    = "short_answer"
	QuestionEssay          = "essay"
	QuestionFillBlank      = "fill_blank"
	QuestionTrueFalse      = "true_false"
)

// Element types placed on template pages.
const (
	ElementTitle         = "title"
	ElementSubtitle      = "subtitle"
	ElementMetadata      = "metadata"
	ElementHeading       = "heading"
	ElementText          = "text"
	ElementQuestion      = "question"
	ElementQuestionGroup = "question_group"
	ElementImage         = "image"
)

// DocumentAnalysis is the canonical structured interpretation of a source
// document. It is created once per pipeline run by the sanitizer and is
// read-only afterwards.
type DocumentAnalysis struct {
	DocumentStructure  DocumentStructure   `json:"documentStructure"`
	ExtractedQuestions []ExtractedQuestion `json:"extractedQuestions"`
	ExtractedContent   ExtractedContent    `json:"extractedContent"`
}

// DocumentStructure describes the overall shape of the analyzed document.
type DocumentStructure struct {
	Type       string            `json:"type"`
	Subject    string            `json:"subject,omitempty"`
	Confidence float64           `json:"confidence"`
	Sections   []Section         `json:"sections"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// Position locates a section on its source page in percentage coordinates.
type Position struct {
	Page   int     `json:"page"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Section is one content block of the source document.
type Section struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	Type       string   `json:"type"`
	Content    string   `json:"content"`
	Position   Position `json:"position"`
	Confidence float64  `json:"confidence"`
}

// ExtractedQuestion is a detected assessment question. Options is present
// only for multiple_choice questions and then always holds at least two
// entries.
type ExtractedQuestion struct {
	ID            string   `json:"id"`
	Number        int      `json:"number"`
	Content       string   `json:"content"`
	Type          string   `json:"type"`
	Options       []string `json:"options,omitempty"`
	CorrectAnswer string   `json:"correctAnswer,omitempty"`
	Points        float64  `json:"points,omitempty"`
	Difficulty    string   `json:"difficulty,omitempty"`
	Confidence    float64  `json:"confidence"`
}

// ExtractedContent carries document-level text that is not tied to a single
// section.
type ExtractedContent struct {
	Title    string `json:"title"`
	Subtitle string `json:"subtitle,omitempty"`
	Summary  string `json:"summary,omitempty"`
}

// Point is a template-page coordinate in absolute page units.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Size is an element extent in absolute page units.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// ElementStyle carries the rendering hints the validator inspects.
type ElementStyle struct {
	FontSize        float64 `json:"fontSize,omitempty"`
	TextColor       string  `json:"textColor,omitempty"`
	BackgroundColor string  `json:"backgroundColor,omitempty"`
	AltText         string  `json:"altText,omitempty"`
}

// PositionedElement is one placed content unit within a template page. IDs
// are unique per page and an element belongs to exactly one page.
type PositionedElement struct {
	ID              string        `json:"id"`
	Type            string        `json:"type"`
	Content         string        `json:"content"`
	Position        Point         `json:"position"`
	Size            Size          `json:"size"`
	DataBindingPath string        `json:"dataBindingPath,omitempty"`
	Style           *ElementStyle `json:"style,omitempty"`
}

// TemplatePage is one ordered page of positioned elements.
type TemplatePage struct {
	Number   int                 `json:"number"`
	Width    float64             `json:"width"`
	Height   float64             `json:"height"`
	Elements []PositionedElement `json:"elements"`
}

// Template is the renderer-facing artifact: ordered pages of positioned,
// styled content elements.
type Template struct {
	ID       string         `json:"id"`
	PageSize string         `json:"pageSize"`
	Pages    []TemplatePage `json:"pages"`
}

// DataBinding maps a path into DocumentAnalysis onto a template element so a
// renderer can re-populate content with fresh data without re-running
// synthesis.
type DataBinding struct {
	Path            string `json:"path"`
	TargetElementID string `json:"targetElementId"`
	FallbackValue   string `json:"fallbackValue,omitempty"`
}

// StageTiming records how long one pipeline stage took.
type StageTiming struct {
	Name       string `json:"name"`
	DurationMS int64  `json:"duration_ms"`
}

// AnalysisResult is the envelope every pipeline run returns. Success is false
// for degraded runs; Analysis is never nil on a returned result.
type AnalysisResult struct {
	Success      bool              `json:"success"`
	Analysis     *DocumentAnalysis `json:"analysis"`
	Warnings     []string          `json:"warnings,omitempty"`
	ErrorMessage string            `json:"errorMessage,omitempty"`
	Suggestions  []string          `json:"suggestions,omitempty"`
	TokenCount   int32             `json:"tokenCount,omitempty"`
	Attempts     int               `json:"attempts,omitempty"`
	Stages       []StageTiming     `json:"stages,omitempty"`
}

// ClampConfidence forces a confidence-like value into [0,1]. Non-finite or
// missing values should be defaulted by the caller before clamping.
func ClampConfidence(v float64) float64 {
	return clamp(v, 0, 1)
}

// ClampPercent forces a percentage coordinate into [0,100].
func ClampPercent(v float64) float64 {
	return clamp(v, 0, 100)
}

func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
