package ai

import (
	"errors"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"api 401", &openai.APIError{HTTPStatusCode: 401}, KindAuthFailure},
		{"api 403", &openai.APIError{HTTPStatusCode: 403}, KindAuthFailure},
		{"api 429", &openai.APIError{HTTPStatusCode: 429}, KindRateLimited},
		{"api 500", &openai.APIError{HTTPStatusCode: 500}, KindTransient},
		{"api 503", &openai.APIError{HTTPStatusCode: 503}, KindTransient},
		{"text 503", errors.New("UNAVAILABLE 503"), KindTransient},
		{"text overloaded", errors.New("the model is Overloaded right now"), KindTransient},
		{"text api key", errors.New("incorrect API key provided"), KindAuthFailure},
		{"text 401", errors.New("status 401 from upstream"), KindAuthFailure},
		{"text rate limit", errors.New("rate limit exceeded, slow down"), KindRateLimited},
		{"text 429", errors.New("got 429 from gateway"), KindRateLimited},
		{"plain failure", errors.New("connection reset by peer"), KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classify(tt.err))
		})
	}
}
