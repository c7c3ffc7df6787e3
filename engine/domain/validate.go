// Package domain holds the request types shared by the scoring API and its
// validation rules.
package domain

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// DefaultMaxTextChars bounds each text field of an analyze request, in runes.
const DefaultMaxTextChars = 20000

// AnalyzeRequest is the body of an analyze call.
type AnalyzeRequest struct {
	Resume string `json:"resume"`
	Job    string `json:"job"`
}

// Validate checks that both texts are present and within maxChars runes
// (DefaultMaxTextChars if maxChars <= 0). It returns the first failure as a
// *ValidationError.
func (r AnalyzeRequest) Validate(maxChars int) error {
	if maxChars <= 0 {
		maxChars = DefaultMaxTextChars
	}
	if err := validateText("resume", r.Resume, maxChars); err != nil {
		return err
	}
	return validateText("job", r.Job, maxChars)
}

func validateText(field, text string, maxChars int) error {
	if strings.TrimSpace(text) == "" {
		return NewValidationError(field, "", ErrEmptyText)
	}
	if n := utf8.RuneCountInString(text); n > maxChars {
		return NewValidationError(field, fmt.Sprintf("%d > %d characters", n, maxChars), ErrTextTooLong)
	}
	return nil
}
