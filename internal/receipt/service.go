package receipt

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/Veraticus/spice-ledger/internal/common"
	"github.com/Veraticus/spice-ledger/internal/model"
	"github.com/Veraticus/spice-ledger/internal/validation"
)

// ErrUnsupportedFile is returned for files that are not images or PDFs.
var ErrUnsupportedFile = errors.New("unsupported receipt file type")

// Result is a validated scan suggestion. Draft is nil when the guess has
// issues; the caller can correct the guess and validate it again.
type Result struct {
	Guess    validation.RawRecord
	Draft    *model.TransactionDraft
	MIMEType string
	Issues   []validation.Issue
}

// Valid reports whether the guess passed validation.
func (r *Result) Valid() bool {
	return r.Draft != nil
}

// Service runs scans through validation.
type Service struct {
	scanner Scanner
}

// NewService creates a receipt service using scanner.
func NewService(scanner Scanner) *Service {
	return &Service{scanner: scanner}
}

// Scan reads a receipt and validates the suggestion. The type defaults to
// EXPENSE when the scanner did not recognize one. An empty mimeType is
// detected from the content.
func (s *Service) Scan(ctx context.Context, data []byte, mimeType string) (*Result, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty file", common.ErrScanFailed)
	}
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}
	mimeType, _, _ = strings.Cut(mimeType, ";")
	if !supportedMIME(mimeType) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFile, mimeType)
	}

	guess, err := s.scanner.Scan(ctx, data, mimeType)
	if err != nil {
		return nil, err
	}
	if guess == nil {
		guess = validation.RawRecord{}
	}
	if _, ok := guess[validation.FieldType]; !ok {
		guess[validation.FieldType] = string(model.TypeExpense)
	}

	res := &Result{Guess: guess, MIMEType: mimeType}
	draft, err := validation.Validate(guess)
	if err != nil {
		var verr *validation.Error
		if !errors.As(err, &verr) {
			return nil, err
		}
		res.Issues = verr.Issues
		return res, nil
	}
	res.Draft = &draft
	return res, nil
}

func supportedMIME(mimeType string) bool {
	return strings.HasPrefix(mimeType, "image/") || mimeType == "application/pdf"
}
