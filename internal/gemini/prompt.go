package gemini

import (
	"fmt"
	"strings"
)

// PromptBuilder constructs the document-analysis prompt.
type PromptBuilder struct{}

// BuildAnalysisPrompt asks the model for the canonical analysis JSON for one
// attached document.
func (pb *PromptBuilder) BuildAnalysisPrompt(sourceName string) string {
	var sb strings.Builder
	sb.WriteString("Role: Document Analyst. Task: Analyze the attached educational document and return its structure as JSON.\n\n")
	if sourceName != "" {
		fmt.Fprintf(&sb, "The document file is named %q.\n\n", sourceName)
	}
	sb.WriteString("Return ONLY a single JSON object with this exact shape:\n")
	sb.WriteString(`{
  "documentStructure": {
    "type": "worksheet|quiz|exam|handout|other",
    "subject": "detected subject area",
    "confidence": 0.0,
    "sections": [
      {
        "id": "section-1",
        "title": "short section title",
        "type": "header|question|answer|instruction|content",
        "content": "full section text",
        "position": {"page": 1, "x": 0, "y": 0, "width": 100, "height": 10},
        "confidence": 0.0
      }
    ],
    "metadata": {"grade": "...", "language": "..."}
  },
  "extractedQuestions": [
    {
      "id": "question-1",
      "number": 1,
      "content": "question text",
      "type": "multiple_choice|short_answer|essay|fill_blank|true_false",
      "options": ["only for multiple_choice, at least 2"],
      "correctAnswer": "optional",
      "points": 1,
      "difficulty": "easy|medium|hard",
      "confidence": 0.0
    }
  ],
  "extractedContent": {"title": "document title", "subtitle": "optional", "summary": "optional"}
}`)
	sb.WriteString("\n\nRules:\n")
	sb.WriteString("- position values are percentages of the page, confidence values are between 0 and 1.\n")
	sb.WriteString("- include options only for multiple_choice questions.\n")
	sb.WriteString("- do not wrap the JSON in prose or markdown fences.\n")
	return sb.String()
}
