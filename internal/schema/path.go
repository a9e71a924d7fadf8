package schema

import (
	"fmt"
	"strconv"
	"strings"
)

// MetadataPath binds the composite summary line placed under the title. It
// resolves through MetadataLine rather than a single field.
const MetadataPath = "documentStructure.metadata"

// ResolvePath evaluates a data-binding path against an analysis and returns
// the bound text. Supported paths are the ones the synthesizer emits:
//
//	extractedContent.title
//	extractedContent.subtitle
//	documentStructure.subject
//	documentStructure.metadata
//	documentStructure.sections[i].content
//	extractedQuestions[i].content
//
// The boolean is false when the path does not resolve, in which case the
// caller should substitute the binding's fallback value.
func ResolvePath(a *DocumentAnalysis, path string) (string, bool) {
	if a == nil {
		return "", false
	}
	switch path {
	case "extractedContent.title":
		return a.ExtractedContent.Title, true
	case "extractedContent.subtitle":
		return a.ExtractedContent.Subtitle, true
	case "documentStructure.subject":
		return a.DocumentStructure.Subject, true
	case MetadataPath:
		return MetadataLine(a), true
	}

	head, idx, tail, ok := splitIndexed(path)
	if !ok {
		return "", false
	}
	switch {
	case head == "documentStructure.sections" && tail == "content":
		if idx < 0 || idx >= len(a.DocumentStructure.Sections) {
			return "", false
		}
		return a.DocumentStructure.Sections[idx].Content, true
	case head == "extractedQuestions" && tail == "content":
		if idx < 0 || idx >= len(a.ExtractedQuestions) {
			return "", false
		}
		return a.ExtractedQuestions[idx].Content, true
	}
	return "", false
}

// MetadataLine composes the summary line a metadata element displays:
// subject, document type, and question count, dot-separated.
func MetadataLine(a *DocumentAnalysis) string {
	parts := []string{}
	if a.DocumentStructure.Subject != "" {
		parts = append(parts, a.DocumentStructure.Subject)
	}
	if a.DocumentStructure.Type != "" && a.DocumentStructure.Type != "unknown" {
		parts = append(parts, a.DocumentStructure.Type)
	}
	if n := len(a.ExtractedQuestions); n > 0 {
		parts = append(parts, fmt.Sprintf("%d questions", n))
	}
	return strings.Join(parts, " · ")
}

// SectionPath builds the binding path for the i-th section.
func SectionPath(i int) string {
	return fmt.Sprintf("documentStructure.sections[%d].content", i)
}

// QuestionPath builds the binding path for the i-th extracted question.
func QuestionPath(i int) string {
	return fmt.Sprintf("extractedQuestions[%d].content", i)
}

// splitIndexed decomposes "head[idx].tail" into its parts.
func splitIndexed(path string) (head string, idx int, tail string, ok bool) {
	open := strings.IndexByte(path, '[')
	close := strings.IndexByte(path, ']')
	if open < 0 || close < open+2 || close+1 >= len(path) || path[close+1] != '.' {
		return "", 0, "", false
	}
	n, err := strconv.Atoi(path[open+1 : close])
	if err != nil {
		return "", 0, "", false
	}
	return path[:open], n, path[close+2:], true
}
