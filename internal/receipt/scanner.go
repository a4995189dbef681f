// Package receipt turns receipt images into transaction suggestions using a
// generative model. Suggestions are validated but never stored here.
package receipt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Veraticus/spice-ledger/internal/common"
	"github.com/Veraticus/spice-ledger/internal/service"
	"github.com/Veraticus/spice-ledger/internal/validation"
	"google.golang.org/genai"
)

// DefaultModel is the Gemini model used when none is configured.
const DefaultModel = "gemini-2.5-flash"

const scanPrompt = "You read shop receipts and invoices.\n\n" +
	"Task:\n" +
	"- Extract the single purchase shown in the attached image or document.\n" +
	"- Output STRICT JSON only: one object, no comments, no extra text.\n\n" +
	"The object may have these fields; omit any you cannot determine:\n" +
	"- \"title\": string, merchant or short description\n" +
	"- \"amount\": number, the total paid, always positive\n" +
	"- \"date\": string, ISO format \"YYYY-MM-DD\"\n" +
	"- \"category\": string, e.g. Food, Transport, Shopping, Utilities\n" +
	"- \"description\": string, notable line items\n" +
	"- \"paymentMethod\": one of CARD, BANK_TRANSFER, MOBILE_PAYMENT, AUTO_DEBIT, CASH, OTHER\n" +
	"- \"type\": INCOME or EXPENSE, EXPENSE for ordinary receipts\n\n" +
	"Do NOT wrap the response in code fences.\n" +
	"Output must begin with \"{\" and end with \"}\".\n"

// guessFields are the fields a scan may suggest.
var guessFields = []string{
	validation.FieldTitle,
	validation.FieldAmount,
	validation.FieldDate,
	validation.FieldCategory,
	validation.FieldDescription,
	validation.FieldPaymentMethod,
	validation.FieldType,
}

// Scanner extracts a best-effort raw record from a receipt file.
type Scanner interface {
	Scan(ctx context.Context, data []byte, mimeType string) (validation.RawRecord, error)
}

// ContentGenerator is the part of the genai client the scanner uses.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiConfig configures a GeminiScanner. An empty APIKey lets the genai
// client read GOOGLE_API_KEY or GEMINI_API_KEY from the environment.
type GeminiConfig struct {
	APIKey string
	Model  string
	Retry  service.RetryOptions
}

// GeminiScanner reads receipts with a Gemini model.
type GeminiScanner struct {
	models ContentGenerator
	model  string
	retry  service.RetryOptions
}

// NewGeminiScanner creates a scanner backed by the Gemini API.
func NewGeminiScanner(ctx context.Context, cfg GeminiConfig) (*GeminiScanner, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      cfg.APIKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return NewGeminiScannerWith(client.Models, cfg), nil
}

// NewGeminiScannerWith creates a scanner over an existing generator.
func NewGeminiScannerWith(models ContentGenerator, cfg GeminiConfig) *GeminiScanner {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = service.RetryOptions{
			MaxAttempts:  3,
			InitialDelay: time.Second,
			MaxDelay:     10 * time.Second,
			Multiplier:   2.0,
		}
	}
	return &GeminiScanner{models: models, model: cfg.Model, retry: cfg.Retry}
}

// Scan sends the file to the model and returns the fields it recognized.
// Every failure wraps common.ErrScanFailed.
func (s *GeminiScanner) Scan(ctx context.Context, data []byte, mimeType string) (validation.RawRecord, error) {
	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: scanPrompt},
				{InlineData: &genai.Blob{MIMEType: mimeType, Data: data}},
			},
		},
	}

	var guess validation.RawRecord
	err := common.WithRetry(ctx, func() error {
		resp, genErr := s.models.GenerateContent(ctx, s.model, contents, nil)
		if genErr != nil {
			return genErr
		}

		text := resp.Text()
		if text == "" {
			return common.Permanent(fmt.Errorf("empty response from model"))
		}

		parsed, parseErr := parseGuess(text)
		if parseErr != nil {
			return common.Permanent(parseErr)
		}
		guess = parsed
		return nil
	}, s.retry)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrScanFailed, err)
	}

	slog.Debug("Scanned receipt", "model", s.model, "fields", len(guess))
	return guess, nil
}

// parseGuess decodes the model's JSON object, keeping known non-null fields.
// Numbers stay json.Number so amounts keep their precision.
func parseGuess(text string) (validation.RawRecord, error) {
	clean := cleanModelJSON(text)

	dec := json.NewDecoder(bytes.NewReader([]byte(clean)))
	dec.UseNumber()

	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return nil, fmt.Errorf("failed to decode model output: %w", err)
	}

	guess := make(validation.RawRecord, len(guessFields))
	for _, field := range guessFields {
		v, ok := obj[field]
		if !ok || v == nil {
			continue
		}
		if str, isString := v.(string); isString {
			trimmed := strings.TrimSpace(str)
			if trimmed == "" {
				continue
			}
			v = trimmed
		}
		guess[field] = v
	}
	return guess, nil
}

// cleanModelJSON strips Markdown fences and any text around the object.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		}
	}
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}
	s = strings.TrimSpace(s)

	if start := strings.Index(s, "{"); start != -1 {
		if end := strings.LastIndex(s, "}"); end > start {
			s = s[start : end+1]
		}
	}
	return s
}
