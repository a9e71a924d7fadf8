package layout

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docuform/internal/config"
	"docuform/internal/schema"
	"docuform/internal/validate"
)

func testLayoutConfig() config.LayoutConfig {
	return config.LayoutConfig{
		PageSize:         "a4",
		Margin:           20,
		TitleFontSize:    24,
		HeadingFontSize:  16,
		BodyFontSize:     12,
		LineHeightFactor: 1.4,
	}
}

func testAnalysis(sections int, questions []schema.ExtractedQuestion) *schema.DocumentAnalysis {
	a := &schema.DocumentAnalysis{
		DocumentStructure: schema.DocumentStructure{
			Type:       "worksheet",
			Subject:    "math",
			Confidence: 0.9,
		},
		ExtractedQuestions: questions,
		ExtractedContent:   schema.ExtractedContent{Title: "Fractions Review"},
	}
	for i := 0; i < sections; i++ {
		a.DocumentStructure.Sections = append(a.DocumentStructure.Sections, schema.Section{
			ID:         "section-" + string(rune('a'+i)),
			Title:      "Section",
			Type:       schema.SectionContent,
			Content:    strings.Repeat("content ", i+3),
			Position:   schema.Position{Page: 1, Width: 100, Height: 10},
			Confidence: 0.8,
		})
	}
	return a
}

func TestTextHeight_LineEstimate(t *testing.T) {
	// 800 characters at 80 chars per line is 10 lines.
	content := strings.Repeat("x", 800)
	h := textHeightFor(content, 12, 1.4, 80)
	assert.InDelta(t, 10*12*1.4, h, 1e-9)
}

func TestTextHeight_MinimumOneLine(t *testing.T) {
	h := textHeightFor("hi", 12, 1.4, 80)
	assert.InDelta(t, 12*1.4, h, 1e-9)
}

func TestSynthesize_SingleColumnHasNoOverlap(t *testing.T) {
	syn, err := NewSynthesizer(testLayoutConfig())
	require.NoError(t, err)

	res := syn.Synthesize(testAnalysis(5, nil))
	report := validate.Validate(&res.Template, nil)

	for _, issue := range report.Issues {
		assert.NotEqual(t, "overlap", issue.Code, "single-column layout must not overlap: %s", issue.Message)
	}
	assert.True(t, report.Valid)
}

func TestSynthesize_FixedBlockOrder(t *testing.T) {
	syn, err := NewSynthesizer(testLayoutConfig())
	require.NoError(t, err)

	a := testAnalysis(2, []schema.ExtractedQuestion{
		{ID: "q1", Number: 1, Content: "What is 1/2 + 1/4?", Type: schema.QuestionShortAnswer, Confidence: 0.9},
	})
	a.ExtractedContent.Subtitle = "Unit 3"
	res := syn.Synthesize(a)

	require.Len(t, res.Template.Pages, 1)
	els := res.Template.Pages[0].Elements
	require.Len(t, els, 6)
	assert.Equal(t, schema.ElementTitle, els[0].Type)
	assert.Equal(t, schema.ElementSubtitle, els[1].Type)
	assert.Equal(t, schema.ElementMetadata, els[2].Type)
	assert.Equal(t, schema.ElementText, els[3].Type)
	assert.Equal(t, schema.ElementText, els[4].Type)
	assert.Equal(t, schema.ElementQuestion, els[5].Type)

	// Cursor only moves down.
	for i := 1; i < len(els); i++ {
		assert.Greater(t, els[i].Position.Y, els[i-1].Position.Y)
	}
}

func TestSynthesize_ElementGeometry(t *testing.T) {
	cfg := testLayoutConfig()
	syn, err := NewSynthesizer(cfg)
	require.NoError(t, err)

	res := syn.Synthesize(testAnalysis(1, nil))
	page := res.Template.Pages[0]
	assert.Equal(t, 595.0, page.Width)
	assert.Equal(t, 842.0, page.Height)

	for _, el := range page.Elements {
		assert.Equal(t, cfg.Margin, el.Position.X)
		assert.Equal(t, 595.0-2*cfg.Margin, el.Size.Width)
		assert.Greater(t, el.Size.Height, 0.0)
	}
	assert.Equal(t, cfg.Margin, page.Elements[0].Position.Y, "first element starts at the top margin")
}

func TestSynthesize_MultipleChoiceIsOneGroupedElement(t *testing.T) {
	syn, err := NewSynthesizer(testLayoutConfig())
	require.NoError(t, err)

	options := []string{"1/2", "3/4", "1", "2"}
	a := testAnalysis(0, []schema.ExtractedQuestion{
		{ID: "q1", Number: 1, Content: "What is 1/2 + 1/4?", Type: schema.QuestionMultipleChoice,
			Options: options, Confidence: 0.9},
	})
	res := syn.Synthesize(a)

	var groups []schema.PositionedElement
	for _, el := range res.Template.Pages[0].Elements {
		if el.Type == schema.ElementQuestionGroup {
			groups = append(groups, el)
		}
	}
	require.Len(t, groups, 1, "question and options form one grouped element")
	for _, o := range options {
		assert.Contains(t, groups[0].Content, o)
	}

	// Group height is option rows plus the question header.
	perOption := 12.0 * 1.4
	headerPad := syn.textHeight("1. What is 1/2 + 1/4?", 12) + groupPadding
	assert.InDelta(t, 4*perOption+headerPad, groups[0].Size.Height, 1e-9)
}

func TestSynthesize_BindingsMapElementsToSources(t *testing.T) {
	syn, err := NewSynthesizer(testLayoutConfig())
	require.NoError(t, err)

	a := testAnalysis(2, []schema.ExtractedQuestion{
		{ID: "q1", Number: 1, Content: "First?", Type: schema.QuestionShortAnswer, Confidence: 0.9},
		{ID: "q2", Number: 2, Content: "Second?", Type: schema.QuestionShortAnswer, Confidence: 0.9},
	})
	res := syn.Synthesize(a)

	els := res.Template.Pages[0].Elements
	require.Len(t, res.Bindings, len(els), "one binding per element")

	byTarget := map[string]schema.DataBinding{}
	for _, b := range res.Bindings {
		byTarget[b.TargetElementID] = b
	}
	for _, el := range els {
		b, ok := byTarget[el.ID]
		require.True(t, ok, "element %s has a binding", el.ID)
		assert.Equal(t, el.DataBindingPath, b.Path)
		assert.Equal(t, el.Content, b.FallbackValue)
	}

	// Paths resolve back into the analysis.
	title := byTarget[els[0].ID]
	got, ok := schema.ResolvePath(a, title.Path)
	require.True(t, ok)
	assert.Equal(t, "Fractions Review", got)

	last := byTarget[els[len(els)-1].ID]
	got, ok = schema.ResolvePath(a, last.Path)
	require.True(t, ok)
	assert.Equal(t, "Second?", got)
}

func TestSynthesize_MetadataBindingResolvesCompositeLine(t *testing.T) {
	syn, err := NewSynthesizer(testLayoutConfig())
	require.NoError(t, err)

	a := testAnalysis(0, []schema.ExtractedQuestion{
		{ID: "q1", Number: 1, Content: "First?", Type: schema.QuestionShortAnswer, Confidence: 0.9},
	})
	res := syn.Synthesize(a)

	var meta *schema.PositionedElement
	for i, el := range res.Template.Pages[0].Elements {
		if el.Type == schema.ElementMetadata {
			meta = &res.Template.Pages[0].Elements[i]
		}
	}
	require.NotNil(t, meta)
	assert.Equal(t, "math · worksheet · 1 questions", meta.Content)

	// Re-populating through the binding reproduces the full line, not just
	// one of its fields.
	got, ok := schema.ResolvePath(a, meta.DataBindingPath)
	require.True(t, ok)
	assert.Equal(t, meta.Content, got)
}

func TestSynthesize_UniqueElementIDsPerPage(t *testing.T) {
	syn, err := NewSynthesizer(testLayoutConfig())
	require.NoError(t, err)

	res := syn.Synthesize(testAnalysis(8, nil))
	for _, page := range res.Template.Pages {
		seen := map[string]bool{}
		for _, el := range page.Elements {
			assert.False(t, seen[el.ID], "duplicate id %s", el.ID)
			seen[el.ID] = true
		}
	}
}

func TestSynthesize_OverflowWarnsByDefault(t *testing.T) {
	syn, err := NewSynthesizer(testLayoutConfig())
	require.NoError(t, err)

	res := syn.Synthesize(testAnalysis(60, nil))
	require.Len(t, res.Template.Pages, 1)
	require.NotEmpty(t, res.Warnings)
	assert.Contains(t, res.Warnings[0], "overflows")
}

func TestSynthesize_OverflowPaginatesWhenEnabled(t *testing.T) {
	cfg := testLayoutConfig()
	cfg.AllowOverflowPages = true
	syn, err := NewSynthesizer(cfg)
	require.NoError(t, err)

	res := syn.Synthesize(testAnalysis(60, nil))
	assert.Empty(t, res.Warnings)
	require.Greater(t, len(res.Template.Pages), 1)

	for i, page := range res.Template.Pages {
		assert.Equal(t, i+1, page.Number)
		for _, el := range page.Elements {
			assert.LessOrEqual(t, el.Position.Y+el.Size.Height, page.Height-cfg.Margin+1e-9,
				"element %s fits its page", el.ID)
		}
	}
}

func TestNewSynthesizer_UnknownPreset(t *testing.T) {
	cfg := testLayoutConfig()
	cfg.PageSize = "tabloid"
	_, err := NewSynthesizer(cfg)
	assert.Error(t, err)
}
