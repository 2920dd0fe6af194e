package extract

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/sashabaranov/go-openai"
	"google.golang.org/genai"

	"fintrack/internal/categorize"
	"fintrack/internal/ocr"
	"fintrack/internal/scan"
)

type fakeReader struct {
	result *ocr.Result
	err    error
}

func (f fakeReader) ReadText(context.Context, []byte, string) (*ocr.Result, error) {
	return f.result, f.err
}

// scriptedChat answers with the queued replies in order.
type scriptedChat struct {
	replies []string
	errs    []error
	calls   int
	last    openai.ChatCompletionRequest
}

func (s *scriptedChat) CreateChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	i := s.calls
	s.calls++
	s.last = req
	if i < len(s.errs) && s.errs[i] != nil {
		return openai.ChatCompletionResponse{}, s.errs[i]
	}
	content := ""
	if i < len(s.replies) {
		content = s.replies[i]
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Content: content}}},
	}, nil
}

var receiptFile = scan.File{Name: "cafe.jpg", ContentType: "image/jpeg", Data: []byte{0xff, 0xd8, 0xff}}

func TestCompletion_Scan(t *testing.T) {
	reader := fakeReader{result: &ocr.Result{Text: "CAFE CENTRAL\nTOTAL 12,50 EUR", Confidence: 0.87}}
	chat := &scriptedChat{
		errs:    []error{errors.New("temporary")},
		replies: []string{"", "not json", `{"merchantName":"Cafe Central","amount":"12,50","currency":"€","transactionDate":"15.03.2024","category":""}`},
	}

	engine := NewCompletion(reader, chat, CompletionConfig{Model: "gpt-4o-mini", MaxRetries: 3}, categorize.NewKeywords())
	r, err := engine.Scan(context.Background(), receiptFile)
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if chat.calls != 3 {
		t.Errorf("chat calls = %d, want 3", chat.calls)
	}
	if !strings.Contains(chat.last.Messages[1].Content, "TOTAL 12,50 EUR") {
		t.Error("prompt does not carry the OCR text")
	}

	if amount, _ := r.Float("amount"); amount != 12.5 {
		t.Errorf("amount = %v", r["amount"])
	}
	if r["currency"] != "EUR" || r["transactionDate"] != "2024-03-15" {
		t.Errorf("currency/date = %v/%v", r["currency"], r["transactionDate"])
	}
	if r["category"] != "Food & Dining" {
		t.Errorf("category = %v, want keyword fallback", r["category"])
	}
	if r["aiConfidence"] != "87%" {
		t.Errorf("aiConfidence = %v", r["aiConfidence"])
	}
	if r["fileName"] != "cafe.jpg" || r["extractedText"] == nil {
		t.Errorf("metadata missing: %v", r)
	}
}

func TestCompletion_AllAttemptsFail(t *testing.T) {
	reader := fakeReader{result: &ocr.Result{Text: "text"}}
	chat := &scriptedChat{replies: []string{"no", "still no"}}

	_, err := NewCompletion(reader, chat, CompletionConfig{MaxRetries: 2}, nil).Scan(context.Background(), receiptFile)
	if !errors.Is(err, ErrInvalidResponse) {
		t.Fatalf("Scan() error = %v, want ErrInvalidResponse", err)
	}
	var extractErr *ExtractionError
	if !errors.As(err, &extractErr) || extractErr.Engine != "vision" {
		t.Errorf("error = %v, want vision ExtractionError", err)
	}
	if chat.calls != 2 {
		t.Errorf("chat calls = %d, want 2", chat.calls)
	}
}

func TestCompletion_OCRFailure(t *testing.T) {
	reader := fakeReader{err: ocr.WrapOCRError("ReadText", ocr.ErrEmptyDocument, "")}
	chat := &scriptedChat{}

	_, err := NewCompletion(reader, chat, DefaultCompletionConfig(), nil).Scan(context.Background(), receiptFile)
	if !errors.Is(err, ocr.ErrEmptyDocument) {
		t.Fatalf("Scan() error = %v, want ErrEmptyDocument", err)
	}
	if chat.calls != 0 {
		t.Errorf("chat called %d times after OCR failure", chat.calls)
	}
}

type fakeGenerator struct {
	text  string
	err   error
	model string
	parts []*genai.Part
}

func (f *fakeGenerator) GenerateContent(_ context.Context, model string, contents []*genai.Content, _ *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.model = model
	f.parts = contents[0].Parts
	if f.err != nil {
		return nil, f.err
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: &genai.Content{Parts: []*genai.Part{{Text: f.text}}}}},
	}, nil
}

func TestGemini_Scan(t *testing.T) {
	gen := &fakeGenerator{text: "```json\n{\"merchantName\":\"Shell\",\"amount\":60,\"items\":[\"Diesel\"]}\n```"}

	r, err := NewGeminiWithModels(gen, "", categorize.NewKeywords()).Scan(context.Background(), receiptFile)
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if gen.model != "gemini-2.5-flash" {
		t.Errorf("model = %q", gen.model)
	}
	if len(gen.parts) != 2 || gen.parts[1].InlineData == nil || gen.parts[1].InlineData.MIMEType != "image/jpeg" {
		t.Errorf("request parts = %+v", gen.parts)
	}
	if r["merchantName"] != "Shell" {
		t.Errorf("merchantName = %v", r["merchantName"])
	}
	if items := r.Items(); len(items) != 1 || items[0].Name != "Diesel" {
		t.Errorf("items = %+v", items)
	}
	if r["category"] != "Other" {
		t.Errorf("category = %v", r["category"])
	}
}

func TestGemini_Errors(t *testing.T) {
	tests := []struct {
		name string
		gen  *fakeGenerator
		want error
	}{
		{name: "empty answer", gen: &fakeGenerator{}, want: ErrInvalidResponse},
		{name: "bad json", gen: &fakeGenerator{text: "I cannot read this"}, want: ErrInvalidResponse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewGeminiWithModels(tt.gen, "m", nil).Scan(context.Background(), receiptFile)
			if !errors.Is(err, tt.want) {
				t.Errorf("Scan() error = %v, want %v", err, tt.want)
			}
		})
	}

	upstream := errors.New("quota")
	_, err := NewGeminiWithModels(&fakeGenerator{err: upstream}, "m", nil).Scan(context.Background(), receiptFile)
	if !errors.Is(err, upstream) {
		t.Errorf("Scan() error = %v, want wrapped upstream error", err)
	}
}
