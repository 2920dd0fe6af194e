// Package extract holds the local receipt scanning engines: Document AI expense parsing,
// Vision OCR completed by ChatGPT, and Gemini multimodal extraction.
//
// Every engine implements scan.Scanner and returns a models.ScanResult with the same keys
// as the remote bill-scan service, so scan.Normalize treats them alike.
package extract

import (
	"context"
	"fmt"
	"io"

	"github.com/sashabaranov/go-openai"

	"fintrack/internal/api"
	"fintrack/internal/categorize"
	"fintrack/internal/config"
	"fintrack/internal/ocr"
	"fintrack/internal/scan"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// NewScanner builds the engine selected by cfg.ScanEngine. The returned closer releases
// any Google Cloud clients the engine holds.
func NewScanner(ctx context.Context, cfg *config.Config, client *api.Client) (scan.Scanner, io.Closer, error) {
	const op = "NewScanner"

	categorizer := NewCategorizer(cfg)

	switch cfg.ScanEngine {
	case config.EngineRemote, "":
		return scan.NewRemoteScanner(client), nopCloser{}, nil

	case config.EngineVision:
		reader, err := ocr.NewVisionReader(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", op, err)
		}
		completionCfg := DefaultCompletionConfig()
		completionCfg.Model = cfg.OpenAIModel
		engine := NewCompletion(reader, openai.NewClient(cfg.OpenAIAPIKey), completionCfg, categorizer)
		return engine, reader, nil

	case config.EngineDocumentAI:
		engine, err := NewDocumentAI(ctx, DocumentAIConfig{
			ProjectID:   cfg.GoogleCloudProject,
			Location:    cfg.GoogleCloudLocation,
			ProcessorID: cfg.DocumentAIProcessorID,
		}, categorizer)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", op, err)
		}
		return engine, engine, nil

	case config.EngineGemini:
		engine, err := NewGemini(ctx, GeminiConfig{
			Model:    cfg.GeminiModel,
			Project:  cfg.GoogleCloudProject,
			Location: cfg.GoogleCloudLocation,
		}, categorizer)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", op, err)
		}
		return engine, nopCloser{}, nil
	}

	return nil, nil, fmt.Errorf("%s: %w: unknown engine %q", op, ErrInvalidConfiguration, cfg.ScanEngine)
}

// NewCategorizer prefers the model when an OpenAI key is configured and always falls
// back to keyword rules.
func NewCategorizer(cfg *config.Config) categorize.Categorizer {
	if cfg.OpenAIAPIKey == "" {
		return categorize.NewKeywords()
	}
	return categorize.Chain{
		categorize.NewOpenAI(openai.NewClient(cfg.OpenAIAPIKey), cfg.OpenAIModel),
		categorize.NewKeywords(),
	}
}
