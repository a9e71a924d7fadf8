package gemini

import "fmt"

// AnalyzeRequest is one inference call: a text prompt plus an inline binary
// attachment. Data is raw bytes; the transport base64-encodes it into the
// service's inlineData envelope.
type AnalyzeRequest struct {
	Prompt          string
	Data            []byte
	MimeType        string
	SourceName      string
	Temperature     float32
	MaxOutputTokens int32
}

var supportedMimeTypes = map[string]bool{
	"application/pdf": true,
	"image/png":       true,
	"image/jpeg":      true,
	"image/webp":      true,
}

// Validate checks the request before any network activity. Violations are
// non-retryable and fail the call immediately.
func (r *AnalyzeRequest) Validate(maxPayloadBytes int64) *AnalysisError {
	if len(r.Data) == 0 {
		return newError(CodeValidation, false, "request payload is empty", nil)
	}
	if r.MimeType == "" {
		return newError(CodeValidation, false, "request payload has no MIME type", nil)
	}
	if !supportedMimeTypes[r.MimeType] {
		return newError(CodeUnsupportedFormat, false,
			fmt.Sprintf("unsupported document format %q", r.MimeType), nil)
	}
	if maxPayloadBytes > 0 && int64(len(r.Data)) > maxPayloadBytes {
		return newError(CodeFileTooLarge, false,
			fmt.Sprintf("payload is %d bytes, maximum is %d", len(r.Data), maxPayloadBytes), nil)
	}
	return nil
}
