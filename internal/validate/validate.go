// Package validate scores a synthesized template for structural, overlap,
// educational-content, and accessibility problems. Validation never mutates
// the template; the separate AutoFix pass repairs the structural defects a
// renderer cannot tolerate.
package validate

import (
	"fmt"
	"strconv"
	"strings"

	"docuform/internal/schema"
)

// Severity levels, in decreasing score cost.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
	SeverityInfo    = "info"
)

// Score deductions per issue severity.
const (
	errorCost   = 15
	warningCost = 5
	infoCost    = 1
)

const (
	minOptions          = 2
	maxOptions          = 8
	minReadableFontSize = 10
	lowConfidence       = 0.5
)

// Issue is one detected problem.
type Issue struct {
	Code      string `json:"code"`
	Severity  string `json:"severity"`
	ElementID string `json:"elementId,omitempty"`
	Page      int    `json:"page,omitempty"`
	Message   string `json:"message"`
}

// Report is the validation outcome. Valid means no error-severity issues;
// Score starts at 100 and loses points per issue, floored at 0.
type Report struct {
	Valid  bool    `json:"valid"`
	Score  int     `json:"score"`
	Issues []Issue `json:"issues"`
}

// Validate checks a template against the analysis it was synthesized from.
// The analysis supplies the question semantics behind question elements; it
// may be nil, which skips the educational checks.
func Validate(t *schema.Template, a *schema.DocumentAnalysis) Report {
	v := &visitor{analysis: a}
	for _, page := range t.Pages {
		v.structural(page)
		v.overlap(page)
		v.accessibility(page)
		v.educational(page)
	}

	score := 100
	valid := true
	for _, is := range v.issues {
		switch is.Severity {
		case SeverityError:
			score -= errorCost
			valid = false
		case SeverityWarning:
			score -= warningCost
		default:
			score -= infoCost
		}
	}
	if score < 0 {
		score = 0
	}
	if v.issues == nil {
		v.issues = []Issue{}
	}
	return Report{Valid: valid, Score: score, Issues: v.issues}
}

type visitor struct {
	analysis *schema.DocumentAnalysis
	issues   []Issue
}

func (v *visitor) add(code, severity, elementID string, page int, format string, args ...any) {
	v.issues = append(v.issues, Issue{
		Code:      code,
		Severity:  severity,
		ElementID: elementID,
		Page:      page,
		Message:   fmt.Sprintf(format, args...),
	})
}

// structural requires every element to declare a type, a position, and
// positive extents, and enforces per-page id uniqueness.
func (v *visitor) structural(page schema.TemplatePage) {
	seen := make(map[string]bool, len(page.Elements))
	for _, el := range page.Elements {
		if el.Type == "" {
			v.add("missing_type", SeverityError, el.ID, page.Number, "element has no type")
		}
		if el.Size.Width <= 0 || el.Size.Height <= 0 {
			v.add("nonpositive_size", SeverityError, el.ID, page.Number,
				"element size %gx%g is not positive", el.Size.Width, el.Size.Height)
		}
		if el.ID == "" {
			v.add("missing_id", SeverityError, "", page.Number, "element has no id")
		} else if seen[el.ID] {
			v.add("duplicate_id", SeverityError, el.ID, page.Number, "element id repeats on page")
		}
		seen[el.ID] = true
	}
}

// overlap flags every pair of elements on a page whose bounding boxes
// intersect. Overlaps are reported, never auto-corrected.
func (v *visitor) overlap(page schema.TemplatePage) {
	els := page.Elements
	for i := 0; i < len(els); i++ {
		for j := i + 1; j < len(els); j++ {
			if intersects(els[i], els[j]) {
				v.add("overlap", SeverityWarning, els[i].ID, page.Number,
					"element overlaps %s", els[j].ID)
			}
		}
	}
}

func intersects(a, b schema.PositionedElement) bool {
	return a.Position.X < b.Position.X+b.Size.Width &&
		b.Position.X < a.Position.X+a.Size.Width &&
		a.Position.Y < b.Position.Y+b.Size.Height &&
		b.Position.Y < a.Position.Y+a.Size.Height
}

// accessibility flags unreadable font sizes, invisible text, and images
// without alternative text.
func (v *visitor) accessibility(page schema.TemplatePage) {
	for _, el := range page.Elements {
		// An image with no style block has no alt text either.
		if el.Type == schema.ElementImage && (el.Style == nil || el.Style.AltText == "") {
			v.add("missing_alt_text", SeverityWarning, el.ID, page.Number,
				"image element has no alternative text")
		}
		if el.Style == nil {
			continue
		}
		if el.Style.FontSize > 0 && el.Style.FontSize < minReadableFontSize {
			v.add("small_font", SeverityWarning, el.ID, page.Number,
				"font size %g is below %d", el.Style.FontSize, minReadableFontSize)
		}
		if el.Style.TextColor != "" && el.Style.TextColor == el.Style.BackgroundColor {
			v.add("invisible_text", SeverityError, el.ID, page.Number,
				"text and background share color %s", el.Style.TextColor)
		}
	}
}

// educational checks the question semantics behind question elements.
func (v *visitor) educational(page schema.TemplatePage) {
	if v.analysis == nil {
		return
	}
	for _, el := range page.Elements {
		q, ok := boundQuestion(v.analysis, el.DataBindingPath)
		if !ok {
			continue
		}
		if q.Type == schema.QuestionMultipleChoice {
			switch {
			case len(q.Options) < minOptions:
				v.add("too_few_options", SeverityError, el.ID, page.Number,
					"multiple_choice question %s has %d options, needs at least %d", q.ID, len(q.Options), minOptions)
			case len(q.Options) > maxOptions:
				v.add("too_many_options", SeverityWarning, el.ID, page.Number,
					"multiple_choice question %s has %d options, more than %d", q.ID, len(q.Options), maxOptions)
			}
			if q.CorrectAnswer != "" && !containsOption(q.Options, q.CorrectAnswer) {
				v.add("answer_not_an_option", SeverityError, el.ID, page.Number,
					"correct answer for question %s is not one of its options", q.ID)
			}
		}
		if q.Points < 0 {
			v.add("negative_points", SeverityWarning, el.ID, page.Number,
				"question %s has negative points", q.ID)
		}
		if q.Confidence < lowConfidence {
			v.add("low_confidence", SeverityInfo, el.ID, page.Number,
				"question %s was extracted with confidence %.2f", q.ID, q.Confidence)
		}
	}
}

func containsOption(options []string, answer string) bool {
	for _, o := range options {
		if strings.EqualFold(strings.TrimSpace(o), strings.TrimSpace(answer)) {
			return true
		}
	}
	return false
}

// boundQuestion resolves an extractedQuestions[i] binding path back to its
// question.
func boundQuestion(a *schema.DocumentAnalysis, path string) (schema.ExtractedQuestion, bool) {
	const prefix = "extractedQuestions["
	if !strings.HasPrefix(path, prefix) {
		return schema.ExtractedQuestion{}, false
	}
	rest := path[len(prefix):]
	end := strings.IndexByte(rest, ']')
	if end < 0 {
		return schema.ExtractedQuestion{}, false
	}
	i, err := strconv.Atoi(rest[:end])
	if err != nil || i < 0 || i >= len(a.ExtractedQuestions) {
		return schema.ExtractedQuestion{}, false
	}
	return a.ExtractedQuestions[i], true
}
