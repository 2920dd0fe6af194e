package extract

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/genai"

	"fintrack/internal/categorize"
	"fintrack/internal/logger"
	"fintrack/internal/scan"
	"fintrack/pkg/models"
)

const engineGemini = "gemini"

// ContentGenerator is the part of the genai client used here.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiConfig selects the model and, for Vertex AI, the project.
type GeminiConfig struct {
	Model string

	// Project and Location switch the client to the Vertex AI backend. Without them
	// the Gemini API key from GOOGLE_API_KEY or GEMINI_API_KEY is used.
	Project  string
	Location string
}

// Gemini sends the receipt bytes inline to a multimodal model.
type Gemini struct {
	models      ContentGenerator
	model       string
	categorizer categorize.Categorizer
	now         func() time.Time
	log         zerolog.Logger
}

// NewGemini creates a Gemini engine.
func NewGemini(ctx context.Context, config GeminiConfig, categorizer categorize.Categorizer) (*Gemini, error) {
	const op = "NewGemini"

	cc := &genai.ClientConfig{HTTPOptions: genai.HTTPOptions{APIVersion: "v1"}}
	if config.Project != "" {
		cc.Backend = genai.BackendVertexAI
		cc.Project = config.Project
		cc.Location = config.Location
		if cc.Location == "" || cc.Location == "us" {
			cc.Location = "us-central1"
		}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, WrapExtractionError(engineGemini, op, err, "create genai client")
	}
	return NewGeminiWithModels(client.Models, config.Model, categorizer), nil
}

// NewGeminiWithModels wraps an existing generator.
func NewGeminiWithModels(gen ContentGenerator, model string, categorizer categorize.Categorizer) *Gemini {
	if model == "" {
		model = "gemini-2.5-flash"
	}
	return &Gemini{
		models:      gen,
		model:       model,
		categorizer: categorizer,
		now:         time.Now,
		log:         logger.WithComponent("gemini"),
	}
}

// Scan implements scan.Scanner.
func (g *Gemini) Scan(ctx context.Context, f scan.File) (models.ScanResult, error) {
	const op = "Scan"

	prompt := "Analyze the attached document.\n" + receiptPrompt + "\n" + categoryInstruction() + "\n" + jsonInstruction
	contents := []*genai.Content{{
		Role: "user",
		Parts: []*genai.Part{
			{Text: prompt},
			{InlineData: &genai.Blob{MIMEType: f.ContentType, Data: f.Data}},
		},
	}}
	temperature := float32(0.1)

	resp, err := g.models.GenerateContent(ctx, g.model, contents, &genai.GenerateContentConfig{
		Temperature:      &temperature,
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		return nil, WrapExtractionError(engineGemini, op, err, "generate content")
	}

	raw := resp.Text()
	if raw == "" {
		return nil, WrapExtractionError(engineGemini, op, ErrInvalidResponse, "empty response from model")
	}
	result, err := decodeModelJSON(raw)
	if err != nil {
		return nil, WrapExtractionError(engineGemini, op, err, fmt.Sprintf("raw response: %.200s", raw))
	}
	tidy(result)
	fillCategory(ctx, g.categorizer, result, "")
	stamp(result, f, g.now())

	g.log.Info().
		Str("file", f.Name).
		Str("model", g.model).
		Str("merchant", result.StringOr("merchantName", "")).
		Msg("Gemini extraction completed")

	return result, nil
}
