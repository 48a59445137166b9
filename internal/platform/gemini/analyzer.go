package gemini

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"text/template"
	"time"

	"github.com/phrazzld/tahfidz-api/internal/analysis"
	"github.com/phrazzld/tahfidz-api/internal/config"
	"github.com/phrazzld/tahfidz-api/internal/domain"
	"github.com/phrazzld/tahfidz-api/internal/platform/logger"
	"github.com/phrazzld/tahfidz-api/internal/redact"
	"google.golang.org/genai"
)

const defaultTimeout = 60 * time.Second

// contentGenerator is the part of *genai.Models the analyzer uses.
type contentGenerator interface {
	GenerateContent(
		ctx context.Context,
		model string,
		contents []*genai.Content,
		config *genai.GenerateContentConfig,
	) (*genai.GenerateContentResponse, error)
}

// Analyzer implements analysis.Analyzer using the Gemini API.
type Analyzer struct {
	logger   *slog.Logger
	models   contentGenerator
	model    string
	template *template.Template
	timeout  time.Duration
}

var _ analysis.Analyzer = (*Analyzer)(nil)

// NewAnalyzer creates a Gemini client from cfg and returns an analyzer
// using it. If logger is nil, a default logger will be used.
func NewAnalyzer(ctx context.Context, logger *slog.Logger, cfg config.LLMConfig) (*Analyzer, error) {
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("%w: gemini API key cannot be empty", analysis.ErrInvalidConfig)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v", analysis.ErrInvalidConfig, err)
	}

	return newAnalyzer(logger, client.Models, cfg)
}

func newAnalyzer(logger *slog.Logger, models contentGenerator, cfg config.LLMConfig) (*Analyzer, error) {
	if models == nil {
		return nil, fmt.Errorf("%w: content generator cannot be nil", analysis.ErrInvalidConfig)
	}
	if cfg.ModelName == "" {
		return nil, fmt.Errorf("%w: model name cannot be empty", analysis.ErrInvalidConfig)
	}
	if logger == nil {
		logger = slog.Default()
	}

	tmpl, err := loadTemplate(cfg.PromptTemplatePath)
	if err != nil {
		return nil, err
	}

	timeout := defaultTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}

	return &Analyzer{
		logger:   logger.With(slog.String("component", "gemini_analyzer")),
		models:   models,
		model:    cfg.ModelName,
		template: tmpl,
		timeout:  timeout,
	}, nil
}

// Analyze implements analysis.Analyzer. It makes exactly one model call.
func (a *Analyzer) Analyze(ctx context.Context, req analysis.Request) (*domain.Analysis, error) {
	log := logger.FromContextOrDefault(ctx, a.logger)

	if req.Range == nil || req.Range.Ref == nil {
		return nil, fmt.Errorf("%w: range is required", analysis.ErrInvalidRequest)
	}
	if req.Recitation.Empty() {
		return nil, fmt.Errorf("%w: %w", analysis.ErrInvalidRequest, domain.ErrEmptyRecitation)
	}

	prompt, err := renderPrompt(a.template, newPromptData(req))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", analysis.ErrAnalysisFailed, err)
	}

	parts := []*genai.Part{genai.NewPartFromText(prompt)}
	if len(req.Recitation.Audio) > 0 {
		mimeType := req.Recitation.MimeType
		if mimeType == "" {
			mimeType = "audio/webm"
		}
		parts = append(parts, genai.NewPartFromBytes(req.Recitation.Audio, mimeType))
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	temperature := float32(0.2)
	genConfig := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		Temperature:      &temperature,
	}

	callCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	started := time.Now()
	log.InfoContext(ctx, "calling gemini",
		slog.String("model", a.model),
		slog.String("range", req.Range.Key().String()),
		slog.Bool("has_audio", len(req.Recitation.Audio) > 0),
		slog.Int("prompt_length", len(prompt)))

	resp, err := a.models.GenerateContent(callCtx, a.model, contents, genConfig)
	if err != nil {
		log.ErrorContext(ctx, "gemini call failed",
			slog.String("error", redact.Error(err)),
			slog.Duration("elapsed", time.Since(started)))
		return nil, fmt.Errorf("%w: %v", analysis.ErrAnalysisFailed, redact.Error(err))
	}

	text, err := responseText(resp)
	if err != nil {
		log.WarnContext(ctx, "unusable gemini response", slog.String("error", err.Error()))
		return nil, err
	}

	parsed, err := parseResponse(text)
	if err != nil {
		log.WarnContext(ctx, "failed to parse gemini response",
			slog.String("error", err.Error()),
			slog.Int("response_length", len(text)))
		return nil, err
	}

	result := parsed.toAnalysis(req.Recitation.Transcript)
	log.InfoContext(ctx, "gemini analysis complete",
		slog.Float64("score", result.Score),
		slog.Int("errors", len(result.Errors)),
		slog.Duration("elapsed", time.Since(started)))

	return result, nil
}

// responseText returns the concatenated text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil {
		return "", fmt.Errorf("%w: nil response", analysis.ErrInvalidResponse)
	}
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return "", fmt.Errorf("%w: prompt blocked (%s)", analysis.ErrContentBlocked, resp.PromptFeedback.BlockReason)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0] == nil {
		return "", fmt.Errorf("%w: no content generated", analysis.ErrInvalidResponse)
	}

	candidate := resp.Candidates[0]
	if candidate.FinishReason == genai.FinishReasonSafety {
		return "", fmt.Errorf("%w: content blocked by safety filters", analysis.ErrContentBlocked)
	}
	if candidate.Content == nil {
		return "", fmt.Errorf("%w: empty content in response", analysis.ErrInvalidResponse)
	}

	var sb strings.Builder
	for _, part := range candidate.Content.Parts {
		if part != nil {
			sb.WriteString(part.Text)
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("%w: response has no text", analysis.ErrInvalidResponse)
	}
	return sb.String(), nil
}
