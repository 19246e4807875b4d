package ai

import (
	"errors"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// ErrorKind classifies one failed AI call for the retry policy.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindTransient
	KindRateLimited
	KindAuthFailure
	KindConfig
)

// GenerateError is the terminal outcome of a failed generation. Its message
// is user-facing; callers render it directly instead of unwrapping anything.
type GenerateError struct {
	Kind    ErrorKind
	Message string
}

func (e *GenerateError) Error() string { return e.Message }

// classify maps a transport failure onto a retry class. Structured status
// codes from the API error are authoritative; the substring rules below cover
// transports that only surface flat error text.
func classify(err error) ErrorKind {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case 401, 403:
			return KindAuthFailure
		case 429:
			return KindRateLimited
		case 500, 502, 503, 504:
			return KindTransient
		}
	}

	text := strings.ToLower(err.Error())
	switch {
	case strings.Contains(text, "503"), strings.Contains(text, "unavailable"), strings.Contains(text, "overloaded"):
		return KindTransient
	case strings.Contains(text, "401"), strings.Contains(text, "403"), strings.Contains(text, "api key"):
		return KindAuthFailure
	case strings.Contains(text, "429"), strings.Contains(text, "rate limit"):
		return KindRateLimited
	}
	return KindUnknown
}
