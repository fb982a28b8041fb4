package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"google.golang.org/genai"

	"github.com/phrazzld/scry-materials/internal/config"
	"github.com/phrazzld/scry-materials/internal/domain"
	"github.com/phrazzld/scry-materials/internal/generation"
	"github.com/phrazzld/scry-materials/internal/platform/logger"
)

// contentClient is the slice of *genai.Models the generator uses.
type contentClient interface {
	GenerateContent(
		ctx context.Context,
		model string,
		contents []*genai.Content,
		config *genai.GenerateContentConfig,
	) (*genai.GenerateContentResponse, error)
}

// Generator implements the generation.Generator interface using
// Google's Gemini API to generate learning materials from a transcript.
type Generator struct {
	// logger is used when the context carries no logger
	logger *slog.Logger

	// config contains LLM-specific configuration
	config config.LLMConfig

	prompts *promptSet
	schemas schemaSet

	// client issues GenerateContent calls
	client contentClient

	// counter estimates prompt size before a call is made
	counter generation.TokenCounter
}

var _ generation.Generator = (*Generator)(nil)

// NewGenerator creates a Generator backed by the Gemini API.
//
// counter is used for the pre-flight input budget check and for usage
// estimates when the response carries no usage metadata. A nil counter
// falls back to generation.ApproxCounter.
func NewGenerator(
	ctx context.Context,
	logger *slog.Logger,
	cfg config.LLMConfig,
	counter generation.TokenCounter,
) (*Generator, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	if err := validateConfig(ctx, logger, cfg); err != nil {
		return nil, err
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v", generation.ErrInvalidConfig, err)
	}

	return newGenerator(logger, cfg, client.Models, counter)
}

func newGenerator(
	logger *slog.Logger,
	cfg config.LLMConfig,
	client contentClient,
	counter generation.TokenCounter,
) (*Generator, error) {
	if client == nil {
		return nil, ErrNilClient
	}

	prompts, err := loadPrompts(cfg.PromptDir)
	if err != nil {
		return nil, err
	}

	schemas, err := loadSchemas()
	if err != nil {
		return nil, err
	}

	if counter == nil {
		counter = generation.ApproxCounter{}
	}

	return &Generator{
		logger:  logger,
		config:  cfg,
		prompts: prompts,
		schemas: schemas,
		client:  client,
		counter: counter,
	}, nil
}

// Generate issues one GenerateContent call for the given kinds, or for every
// kind when kinds is empty. A bundle response may come back with some kinds
// missing; callers compare the returned Materials with what they asked for.
func (g *Generator) Generate(
	ctx context.Context,
	transcript domain.Transcript,
	kinds []domain.ArtifactKind,
) (*generation.Result, error) {
	if transcript.IsEmpty() {
		return nil, generation.ErrEmptyTranscript
	}

	kinds = domain.NormalizeKinds(kinds)
	log := logger.FromContextOrDefault(ctx, g.logger).With(
		slog.Any("artifact_kinds", kinds),
		slog.String("model", g.config.ModelName))

	prompt, err := g.prompts.render(transcript, kinds)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", generation.ErrGenerationFailed, err)
	}

	promptTokens := g.counter.CountTokens(prompt)
	if limit := g.config.MaxInputTokens; limit > 0 && promptTokens > limit {
		log.WarnContext(ctx, "Prompt exceeds input token budget",
			"prompt_tokens", promptTokens,
			"max_input_tokens", limit)
		// Token counts stay out of the message; digits such as "429" would
		// be misread by the classifier.
		return nil, errors.New("prompt exceeds maximum context length")
	}

	log.DebugContext(ctx, "Making Gemini API call", "prompt_tokens", promptTokens)
	start := time.Now()

	resp, err := g.client.GenerateContent(ctx, g.config.ModelName, genai.Text(prompt), g.generateConfig())
	if err != nil {
		log.WarnContext(ctx, "Gemini API call failed",
			"error", err,
			"duration", time.Since(start))
		return nil, fmt.Errorf("gemini generate content: %w", err)
	}

	text, err := responseText(resp)
	if err != nil {
		log.WarnContext(ctx, "Gemini response rejected", "error", err)
		return nil, err
	}

	usage := g.usage(resp, promptTokens, text)

	materials, dropped, err := decodeMaterials(text, kinds, g.schemas)
	if err != nil {
		log.WarnContext(ctx, "Failed to decode Gemini response", "error", err)
		return nil, err
	}
	for _, d := range dropped {
		log.WarnContext(ctx, "Discarding artifact that failed validation", "error", d)
	}

	if materials.Len() == 0 {
		if len(dropped) > 0 {
			return nil, errors.Join(dropped...)
		}
		return nil, fmt.Errorf("%w: response carried none of the requested kinds", generation.ErrMissingArtifact)
	}

	log.InfoContext(ctx, "Gemini API call successful",
		"generated_kinds", materials.Kinds(),
		"prompt_tokens", usage.PromptTokens,
		"completion_tokens", usage.CompletionTokens,
		"duration", time.Since(start))

	return &generation.Result{Materials: materials, Usage: usage}, nil
}

func (g *Generator) generateConfig() *genai.GenerateContentConfig {
	return &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		Temperature:      genai.Ptr(g.config.Temperature),
	}
}

// usage prefers the counts reported by the API and estimates otherwise.
func (g *Generator) usage(resp *genai.GenerateContentResponse, promptTokens int, text string) generation.Usage {
	if md := resp.UsageMetadata; md != nil && (md.PromptTokenCount > 0 || md.CandidatesTokenCount > 0) {
		return generation.Usage{
			PromptTokens:     int(md.PromptTokenCount),
			CompletionTokens: int(md.CandidatesTokenCount),
		}
	}
	return generation.Usage{
		PromptTokens:     promptTokens,
		CompletionTokens: g.counter.CountTokens(text),
	}
}

// responseText returns the text of the first candidate, or an error naming
// why the model produced no usable output.
func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil {
		return "", fmt.Errorf("%w: nil response", generation.ErrInvalidResponse)
	}

	if fb := resp.PromptFeedback; fb != nil &&
		fb.BlockReason != "" && fb.BlockReason != genai.BlockedReasonUnspecified {
		return "", fmt.Errorf("%w: prompt blocked: %s", generation.ErrContentBlocked, fb.BlockReason)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0] == nil {
		return "", fmt.Errorf("%w: no content generated", generation.ErrInvalidResponse)
	}

	candidate := resp.Candidates[0]
	switch candidate.FinishReason {
	case genai.FinishReasonSafety, genai.FinishReasonProhibitedContent,
		genai.FinishReasonBlocklist, genai.FinishReasonSPII:
		return "", fmt.Errorf("%w: finish reason %s", generation.ErrContentBlocked, candidate.FinishReason)
	case genai.FinishReasonRecitation:
		return "", generation.ErrRecitation
	case genai.FinishReasonMaxTokens:
		return "", generation.ErrOutputTruncated
	}

	if candidate.Content == nil {
		return "", fmt.Errorf("%w: empty content in response", generation.ErrInvalidResponse)
	}

	var text string
	for _, part := range candidate.Content.Parts {
		if part == nil || part.Thought {
			continue
		}
		text += part.Text
	}
	return text, nil
}
