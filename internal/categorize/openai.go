package categorize

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"

	"fintrack/internal/logger"
)

// ErrUnknownCategory is returned when the model answers with a category outside the list.
var ErrUnknownCategory = errors.New("model returned an unknown category")

// ChatCompleter is the part of the OpenAI client used here.
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAI asks a chat model to pick one of ExpenseCategories.
type OpenAI struct {
	client ChatCompleter
	model  string
	log    zerolog.Logger
}

// NewOpenAI creates a model-backed categorizer.
func NewOpenAI(client ChatCompleter, model string) *OpenAI {
	return &OpenAI{client: client, model: model, log: logger.WithComponent("categorize")}
}

// Categorize implements Categorizer.
func (o *OpenAI) Categorize(ctx context.Context, in Input) (string, error) {
	const op = "OpenAI.Categorize"

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       o.model,
		Temperature: 0.1,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt()},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt(in)},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
		MaxTokens:      100,
	})
	if err != nil {
		return "", fmt.Errorf("%s: ChatGPT request failed: %w", op, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%s: no response choices from ChatGPT", op)
	}

	var answer struct {
		Category string `json:"category"`
	}
	content := resp.Choices[0].Message.Content
	if err := json.Unmarshal([]byte(content), &answer); err != nil {
		return "", fmt.Errorf("%s: failed to parse ChatGPT JSON response: %w (response: %s)", op, err, content)
	}
	category, ok := Known(answer.Category, "expense")
	if !ok {
		return "", fmt.Errorf("%s: %w: %q", op, ErrUnknownCategory, answer.Category)
	}

	o.log.Debug().Str("merchant", in.Merchant).Str("category", category).Msg("Category chosen by model")
	return category, nil
}

func systemPrompt() string {
	return "You classify receipts into spending categories. Choose exactly one of: " +
		strings.Join(ExpenseCategories, ", ") +
		".\nAnswer ONLY with a JSON object of the form {\"category\": \"<name>\"}."
}

func userPrompt(in Input) string {
	var b strings.Builder
	if in.Merchant != "" {
		fmt.Fprintf(&b, "Merchant: %s\n", in.Merchant)
	}
	if in.Description != "" {
		fmt.Fprintf(&b, "Description: %s\n", in.Description)
	}
	if len(in.Items) > 0 {
		fmt.Fprintf(&b, "Items: %s\n", strings.Join(in.Items, "; "))
	}
	if in.Text != "" {
		text := in.Text
		if len(text) > 2000 {
			text = text[:2000]
		}
		fmt.Fprintf(&b, "Receipt text:\n%s\n", text)
	}
	return b.String()
}
