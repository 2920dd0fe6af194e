package extract

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"

	"fintrack/internal/categorize"
	"fintrack/internal/logger"
	"fintrack/internal/ocr"
	"fintrack/internal/scan"
	"fintrack/pkg/models"
)

const engineVision = "vision"

// CompletionConfig tunes the OCR plus ChatGPT engine.
type CompletionConfig struct {
	Model       string
	Temperature float32
	MaxRetries  int

	// OCRConfidenceMin only logs a warning; low-confidence text is still sent.
	OCRConfidenceMin float32
}

// DefaultCompletionConfig returns the defaults used by the CLI.
func DefaultCompletionConfig() CompletionConfig {
	return CompletionConfig{
		Model:       "gpt-4o-mini",
		Temperature: 0.1,
		MaxRetries:  3,
	}
}

// Completion reads receipt text with OCR and has a chat model turn it into receipt fields.
type Completion struct {
	reader      ocr.TextReader
	chat        categorize.ChatCompleter
	config      CompletionConfig
	categorizer categorize.Categorizer
	now         func() time.Time
	log         zerolog.Logger
}

// NewCompletion wires an OCR reader and an OpenAI client into an engine.
func NewCompletion(reader ocr.TextReader, chat categorize.ChatCompleter, config CompletionConfig, categorizer categorize.Categorizer) *Completion {
	if config.MaxRetries <= 0 {
		config.MaxRetries = 1
	}
	if config.Model == "" {
		config.Model = DefaultCompletionConfig().Model
	}
	return &Completion{
		reader:      reader,
		chat:        chat,
		config:      config,
		categorizer: categorizer,
		now:         time.Now,
		log:         logger.WithComponent("receipt-completion"),
	}
}

// Scan implements scan.Scanner.
func (c *Completion) Scan(ctx context.Context, f scan.File) (models.ScanResult, error) {
	const op = "Scan"

	text, err := c.reader.ReadText(ctx, f.Data, f.ContentType)
	if err != nil {
		return nil, WrapExtractionError(engineVision, op, err, "OCR failed")
	}
	if text.Confidence < c.config.OCRConfidenceMin {
		c.log.Warn().
			Float32("confidence", text.Confidence).
			Float32("minimum", c.config.OCRConfidenceMin).
			Msg("OCR confidence below minimum threshold")
	}

	result, err := c.complete(ctx, text.Text)
	if err != nil {
		return nil, WrapExtractionError(engineVision, op, err, "")
	}

	if _, ok := result.String("aiConfidence"); !ok && text.Confidence > 0 {
		result["aiConfidence"] = percent(float64(text.Confidence))
	}
	result["extractedText"] = text.Text
	fillCategory(ctx, c.categorizer, result, text.Text)
	stamp(result, f, c.now())

	c.log.Info().
		Str("file", f.Name).
		Str("merchant", result.StringOr("merchantName", "")).
		Str("amount", result.StringOr("amount", "")).
		Msg("Receipt completion successful")

	return result, nil
}

// complete sends the OCR text to the model, retrying on transport errors and
// unparseable answers.
func (c *Completion) complete(ctx context.Context, ocrText string) (models.ScanResult, error) {
	const op = "complete"

	prompt := buildCompletionPrompt(ocrText)
	c.log.Debug().
		Int("prompt_length", len(prompt)).
		Str("model", c.config.Model).
		Msg("Sending completion request to ChatGPT")

	var lastErr error
	for attempt := 1; attempt <= c.config.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		resp, err := c.chat.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:       c.config.Model,
			Temperature: c.config.Temperature,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: completionSystemPrompt},
				{Role: openai.ChatMessageRoleUser, Content: prompt},
			},
			ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
			MaxTokens:      1000,
		})
		if err != nil {
			lastErr = err
			c.log.Warn().Err(err).Int("attempt", attempt).Int("max_retries", c.config.MaxRetries).Msg("ChatGPT request failed, retrying")
			continue
		}
		if len(resp.Choices) == 0 {
			lastErr = fmt.Errorf("no response choices from ChatGPT")
			continue
		}

		content := resp.Choices[0].Message.Content
		result, err := decodeModelJSON(content)
		if err != nil {
			lastErr = err
			c.log.Warn().Err(err).Str("response", content).Int("attempt", attempt).Msg("Failed to parse ChatGPT response, retrying")
			continue
		}
		return tidy(result), nil
	}

	return nil, fmt.Errorf("%s: all %d attempts failed, last error: %w", op, c.config.MaxRetries, lastErr)
}

const completionSystemPrompt = "You read OCR text of shop receipts, invoices and bills and return their key fields as strict JSON."

func buildCompletionPrompt(ocrText string) string {
	var b strings.Builder
	b.WriteString(receiptPrompt)
	b.WriteString("\n")
	b.WriteString(categoryInstruction())
	b.WriteString("\n")
	b.WriteString(jsonInstruction)
	b.WriteString("\n\nOCR text:\n")
	b.WriteString(ocrText)
	return b.String()
}
