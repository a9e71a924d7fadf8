// Package layout converts a DocumentAnalysis into a template of positioned
// elements. Synthesis is a single-column pass: one vertical cursor walks down
// the page placing title, subtitle, metadata, sections, and questions in
// fixed order, estimating each block's height from its text length.
package layout

import (
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"

	"docuform/internal/config"
	"docuform/internal/schema"
)

// Height and spacing heuristics. Headers are a fixed multiple of their font
// size; body blocks derive from estimated line counts. Spacing narrows as
// content gets denser down the page.
const (
	headerHeightFactor = 1.5
	avgGlyphFactor     = 0.5 // average glyph width as a fraction of font size

	titleSpacing    = 18.0
	headingSpacing  = 12.0
	sectionSpacing  = 10.0
	questionSpacing = 8.0

	groupPadding = 8.0
)

// Result is the synthesizer output: the template, the bindings that map each
// element back to its source in the analysis, and any layout warnings.
type Result struct {
	Template schema.Template
	Bindings []schema.DataBinding
	Warnings []string
}

// Synthesizer builds templates for one page geometry.
type Synthesizer struct {
	cfg  config.LayoutConfig
	page config.PagePreset
}

// NewSynthesizer resolves the configured page preset.
func NewSynthesizer(cfg config.LayoutConfig) (*Synthesizer, error) {
	preset, err := config.Preset(cfg.PageSize)
	if err != nil {
		return nil, err
	}
	return &Synthesizer{cfg: cfg, page: preset}, nil
}

// Synthesize lays out one analysis. The analysis is read-only; all output is
// freshly allocated.
func (s *Synthesizer) Synthesize(a *schema.DocumentAnalysis) *Result {
	b := &builder{
		syn:    s,
		cursor: s.cfg.Margin,
		page: schema.TemplatePage{
			Number:   1,
			Width:    s.page.Width,
			Height:   s.page.Height,
			Elements: []schema.PositionedElement{},
		},
	}

	title := a.ExtractedContent.Title
	b.place(schema.ElementTitle, title, "extractedContent.title",
		s.headerHeight(s.cfg.TitleFontSize), s.cfg.TitleFontSize, titleSpacing)

	if sub := a.ExtractedContent.Subtitle; sub != "" {
		b.place(schema.ElementSubtitle, sub, "extractedContent.subtitle",
			s.headerHeight(s.cfg.HeadingFontSize), s.cfg.HeadingFontSize, headingSpacing)
	}

	if meta := schema.MetadataLine(a); meta != "" {
		b.place(schema.ElementMetadata, meta, schema.MetadataPath,
			s.textHeight(meta, s.cfg.BodyFontSize), s.cfg.BodyFontSize, headingSpacing)
	}

	for i, sec := range a.DocumentStructure.Sections {
		if sec.Type == schema.SectionHeader {
			b.place(schema.ElementHeading, sec.Content, schema.SectionPath(i),
				s.headerHeight(s.cfg.HeadingFontSize), s.cfg.HeadingFontSize, headingSpacing)
			continue
		}
		b.place(schema.ElementText, sec.Content, schema.SectionPath(i),
			s.textHeight(sec.Content, s.cfg.BodyFontSize), s.cfg.BodyFontSize, sectionSpacing)
	}

	for i, q := range a.ExtractedQuestions {
		content := fmt.Sprintf("%d. %s", q.Number, q.Content)
		if q.Type == schema.QuestionMultipleChoice {
			// One grouped element holds the question and all its options, so
			// the renderer keeps the block together.
			b.place(schema.ElementQuestionGroup, groupContent(content, q.Options),
				schema.QuestionPath(i), s.groupHeight(content, len(q.Options)),
				s.cfg.BodyFontSize, questionSpacing)
			continue
		}
		b.place(schema.ElementQuestion, content, schema.QuestionPath(i),
			s.textHeight(content, s.cfg.BodyFontSize), s.cfg.BodyFontSize, questionSpacing)
	}

	b.finish()
	return &Result{
		Template: schema.Template{
			ID:       uuid.NewString(),
			PageSize: s.page.Name,
			Pages:    b.pages,
		},
		Bindings: b.bindings,
		Warnings: b.warnings,
	}
}

// builder tracks the cursor and accumulates pages while elements are placed.
type builder struct {
	syn      *Synthesizer
	cursor   float64
	page     schema.TemplatePage
	pages    []schema.TemplatePage
	bindings []schema.DataBinding
	warnings []string
	seq      int
	overflow bool
}

func (b *builder) place(elemType, content, bindingPath string, height, fontSize, spacing float64) {
	s := b.syn
	bottom := s.page.Height - s.cfg.Margin
	if b.cursor+height > bottom && len(b.page.Elements) > 0 {
		if s.cfg.AllowOverflowPages {
			b.pages = append(b.pages, b.page)
			b.page = schema.TemplatePage{
				Number:   b.page.Number + 1,
				Width:    s.page.Width,
				Height:   s.page.Height,
				Elements: []schema.PositionedElement{},
			}
			b.cursor = s.cfg.Margin
			b.seq = 0
		} else if !b.overflow {
			b.overflow = true
			b.warnings = append(b.warnings,
				fmt.Sprintf("content overflows the %s page; enable allow_overflow_pages to paginate", s.page.Name))
		}
	}

	b.seq++
	el := schema.PositionedElement{
		ID:              fmt.Sprintf("p%d-e%d", b.page.Number, b.seq),
		Type:            elemType,
		Content:         content,
		Position:        schema.Point{X: s.cfg.Margin, Y: b.cursor},
		Size:            schema.Size{Width: s.contentWidth(), Height: height},
		DataBindingPath: bindingPath,
		Style:           &schema.ElementStyle{FontSize: fontSize},
	}
	b.page.Elements = append(b.page.Elements, el)
	b.bindings = append(b.bindings, schema.DataBinding{
		Path:            bindingPath,
		TargetElementID: el.ID,
		FallbackValue:   content,
	})
	b.cursor += height + spacing
}

func (b *builder) finish() {
	b.pages = append(b.pages, b.page)
}

func (s *Synthesizer) contentWidth() float64 {
	return s.page.Width - 2*s.cfg.Margin
}

// headerHeight is the fixed-multiple estimate used for single-line headers.
func (s *Synthesizer) headerHeight(fontSize float64) float64 {
	return fontSize * headerHeightFactor
}

// charsPerLine derives from the available content width and an average
// glyph-width heuristic.
func (s *Synthesizer) charsPerLine(fontSize float64) int {
	n := int(s.contentWidth() / (fontSize * avgGlyphFactor))
	if n < 1 {
		n = 1
	}
	return n
}

// textHeight estimates a body block's height from its character count.
func (s *Synthesizer) textHeight(content string, fontSize float64) float64 {
	return textHeightFor(content, fontSize, s.cfg.LineHeightFactor, s.charsPerLine(fontSize))
}

func textHeightFor(content string, fontSize, lineHeightFactor float64, charsPerLine int) float64 {
	lines := math.Ceil(float64(len(content)) / float64(charsPerLine))
	if lines < 1 {
		lines = 1
	}
	h := lines * fontSize * lineHeightFactor
	if min := fontSize * lineHeightFactor; h < min {
		h = min
	}
	return h
}

// groupHeight sizes a grouped multiple-choice element: one line per option
// plus the question header.
func (s *Synthesizer) groupHeight(question string, optionCount int) float64 {
	perOption := s.cfg.BodyFontSize * s.cfg.LineHeightFactor
	headerPad := s.textHeight(question, s.cfg.BodyFontSize) + groupPadding
	return float64(optionCount)*perOption + headerPad
}

func groupContent(question string, options []string) string {
	var sb strings.Builder
	sb.WriteString(question)
	for i, o := range options {
		fmt.Fprintf(&sb, "\n%c) %s", 'A'+i, o)
	}
	return sb.String()
}
