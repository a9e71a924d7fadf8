package gemini

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"docuform/internal/config"
)

// genaiTransport is the production transport. The wire envelope it produces
// and consumes is the Gemini generateContent shape and must stay that way for
// drop-in compatibility:
//
//	request:  contents[].parts[] with one text part and one
//	          inlineData{mimeType, data} part, plus generationConfig
//	          {temperature, maxOutputTokens, responseMimeType}
//	response: candidates[].content.parts[].text and
//	          usageMetadata.totalTokenCount
//
// The SDK owns the base64 encoding of inlineData.data.
type genaiTransport struct {
	client *genai.Client
	model  string
}

func newGenaiTransport(ctx context.Context, cfg config.ClientConfig) (*genaiTransport, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return &genaiTransport{client: client, model: cfg.Model}, nil
}

func (t *genaiTransport) generateContent(ctx context.Context, req AnalyzeRequest) (string, int32, error) {
	contents := []*genai.Content{{
		Role: genai.RoleUser,
		Parts: []*genai.Part{
			{Text: req.Prompt},
			{InlineData: &genai.Blob{MIMEType: req.MimeType, Data: req.Data}},
		},
	}}

	genCfg := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	}
	if req.Temperature > 0 {
		genCfg.Temperature = genai.Ptr(req.Temperature)
	}
	if req.MaxOutputTokens > 0 {
		genCfg.MaxOutputTokens = req.MaxOutputTokens
	}

	resp, err := t.client.Models.GenerateContent(ctx, t.model, contents, genCfg)
	if err != nil {
		return "", 0, err
	}

	text := resp.Text()
	if text == "" {
		return "", 0, fmt.Errorf("completion contained no candidate text")
	}
	var tokens int32
	if resp.UsageMetadata != nil {
		tokens = resp.UsageMetadata.TotalTokenCount
	}
	return text, tokens, nil
}
