// Package pipeline composes the analysis stages: inference, extraction,
// sanitization, layout synthesis, and validation. Apart from the client's
// I/O and timing side effects every stage is a pure function of its input,
// so a run is a straight composition with warnings accumulating along the
// way. Data-quality problems degrade the result; only the network stage can
// abort a run.
package pipeline

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"docuform/internal/config"
	"docuform/internal/extract"
	"docuform/internal/gemini"
	"docuform/internal/layout"
	"docuform/internal/sanitize"
	"docuform/internal/schema"
	"docuform/internal/validate"
)

// Completer is the inference client surface the pipeline needs.
type Completer interface {
	Complete(ctx context.Context, req gemini.AnalyzeRequest, sink gemini.Sink) (*gemini.Completion, error)
	Health() gemini.Health
}

// RunResult bundles everything one pipeline run produces.
type RunResult struct {
	Result   *schema.AnalysisResult `json:"result"`
	Template *schema.Template       `json:"template,omitempty"`
	Bindings []schema.DataBinding   `json:"bindings,omitempty"`
	Report   *validate.Report       `json:"report,omitempty"`
}

// Pipeline is the explicit context object holding every collaborator; it is
// constructed once and passed by reference, there is no global state.
type Pipeline struct {
	cfg     *config.Config
	client  Completer
	syn     *layout.Synthesizer
	prompts gemini.PromptBuilder
	log     *zap.Logger
}

// New wires a pipeline from its collaborators.
func New(cfg *config.Config, client Completer, log *zap.Logger) (*Pipeline, error) {
	if log == nil {
		log = zap.NewNop()
	}
	syn, err := layout.NewSynthesizer(cfg.Layout)
	if err != nil {
		return nil, err
	}
	return &Pipeline{cfg: cfg, client: client, syn: syn, log: log}, nil
}

// Health exposes the client health view.
func (p *Pipeline) Health() gemini.Health { return p.client.Health() }

// Run executes one request end to end. On cancellation all partial output is
// discarded and only the context error returns. A degraded run still carries
// a usable analysis; the error is non-nil only when the failure must surface
// to the caller.
func (p *Pipeline) Run(ctx context.Context, req gemini.AnalyzeRequest, sink gemini.Sink) (*RunResult, error) {
	if req.Prompt == "" {
		req.Prompt = p.prompts.BuildAnalysisPrompt(req.SourceName)
	}
	reqCtx := sanitize.Context{SourceName: req.SourceName}
	var stages []schema.StageTiming

	start := time.Now()
	completion, err := p.client.Complete(ctx, req, sink)
	stages = p.record(stages, "inference", start)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return p.failed(err, reqCtx, stages)
	}

	start = time.Now()
	var analysis *schema.DocumentAnalysis
	var warnings []string
	candidate, exErr := extract.Extract(completion.Text)
	if exErr != nil {
		// Extraction misses never abort the pipeline; the sanitizer's
		// total-failure fallback keeps the run alive.
		analysis = sanitize.Fallback("no JSON found in completion", reqCtx)
		warnings = append(warnings, "completion contained no extractable JSON")
	} else {
		analysis, warnings = sanitize.SanitizeJSON(candidate, reqCtx)
	}
	stages = p.record(stages, "extract_sanitize", start)
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	start = time.Now()
	laid := p.syn.Synthesize(analysis)
	warnings = append(warnings, laid.Warnings...)
	stages = p.record(stages, "synthesize", start)

	start = time.Now()
	report := validate.Validate(&laid.Template, analysis)
	stages = p.record(stages, "validate", start)
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	p.log.Info("pipeline run complete",
		zap.Int("sections", len(analysis.DocumentStructure.Sections)),
		zap.Int("questions", len(analysis.ExtractedQuestions)),
		zap.Int("score", report.Score),
		zap.Int32("tokens", completion.TokenCount))

	return &RunResult{
		Result: &schema.AnalysisResult{
			Success:    true,
			Analysis:   analysis,
			Warnings:   warnings,
			TokenCount: completion.TokenCount,
			Attempts:   completion.Attempts,
			Stages:     stages,
		},
		Template: &laid.Template,
		Bindings: laid.Bindings,
		Report:   &report,
	}, nil
}

// failed builds the degraded envelope for a client failure. Retryable
// failures that exhausted their attempts are absorbed when fallback is
// enabled; everything else surfaces alongside the best-effort result.
func (p *Pipeline) failed(err error, reqCtx sanitize.Context, stages []schema.StageTiming) (*RunResult, error) {
	var aerr *gemini.AnalysisError
	if !errors.As(err, &aerr) {
		aerr = gemini.Classify(err)
	}

	analysis := sanitize.Fallback(aerr.Message, reqCtx)
	res := &RunResult{
		Result: &schema.AnalysisResult{
			Success:      false,
			Analysis:     analysis,
			Warnings:     []string{"analysis degraded: " + aerr.Message},
			ErrorMessage: aerr.Error(),
			Suggestions:  aerr.Suggestions,
			Stages:       stages,
		},
	}

	fallbackOn := p.cfg.Client.EnableFallback != nil && *p.cfg.Client.EnableFallback
	if fallbackOn && aerr.Retryable {
		p.log.Warn("retries exhausted, returning degraded analysis", zap.Error(aerr))
		return res, nil
	}
	return res, aerr
}

func (p *Pipeline) record(stages []schema.StageTiming, name string, start time.Time) []schema.StageTiming {
	d := time.Since(start)
	p.log.Debug("stage finished", zap.String("stage", name), zap.Duration("duration", d))
	return append(stages, schema.StageTiming{Name: name, DurationMS: d.Milliseconds()})
}
