package workflow

import (
	"fmt"
	"time"
	"unicode/utf8"

	"quill/api/internal/store"
)

const (
	minBodyLength    = 100
	shortBodyLength  = 500
	shortTitleLength = 10
)

var supportedLanguages = map[string]struct{}{
	"en": {},
	"es": {},
	"fr": {},
	"de": {},
	"it": {},
	"pt": {},
}

// Validate applies the submission rules in order. Errors reject the item,
// warnings are advisory only.
func Validate(item store.ContentItem) store.ValidationResult {
	result := store.ValidationResult{
		Errors:      []string{},
		Warnings:    []string{},
		ValidatedAt: time.Now(),
	}

	// Lengths are character counts, not byte counts, so multi-byte
	// languages are measured the same as English.
	bodyLength := utf8.RuneCountInString(item.Body)
	if bodyLength < minBodyLength {
		result.Errors = append(result.Errors,
			fmt.Sprintf("body must be at least %d characters, got %d", minBodyLength, bodyLength))
	}
	if _, ok := supportedLanguages[item.Language]; !ok {
		result.Errors = append(result.Errors,
			fmt.Sprintf("language %q is not supported", item.Language))
	}
	if utf8.RuneCountInString(item.Title) < shortTitleLength {
		result.Warnings = append(result.Warnings, "title is very short; consider a more descriptive title")
	}
	if bodyLength < shortBodyLength {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("body under %d characters may be too thin for analysis", shortBodyLength))
	}

	result.IsValid = len(result.Errors) == 0
	return result
}
