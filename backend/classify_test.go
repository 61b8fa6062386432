package backend

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Class
	}{
		{"nil", nil, ClassTransient},
		{"timeout", errors.New("context deadline exceeded while dialing"), ClassTransient},
		{"connection reset", errors.New("read tcp: connection reset by peer"), ClassTransient},
		{"server overload", errors.New("HTTP 503 service unavailable"), ClassTransient},
		{"quota", errors.New("HTTP 429 too many requests"), ClassTransient},
		{"invalid input", errors.New("invalid request payload"), ClassPermanent},
		{"unauthorized", errors.New("401 unauthorized"), ClassPermanent},
		{"forbidden", errors.New("403 Forbidden"), ClassPermanent},
		{"model missing", errors.New("model 'gemma3:4b' not found"), ClassPermanent},
		{"bad api key", errors.New("API key expired"), ClassPermanent},
		{"safety block", errors.New("response blocked by safety settings"), ClassPermanent},
		{"wrapped permanent", fmt.Errorf("call failed: %w", errors.New("401 Unauthorized")), ClassPermanent},
		{"typed permanent", &PermanentError{Provider: "mock", Err: errors.New("boom")}, ClassPermanent},
		{"empty completion", ErrNoText, ClassPermanent},
		{"canceled context", context.Canceled, ClassTransient},
		{"rate limited locally", ErrRateLimited, ClassTransient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.err); got != tt.want {
				t.Errorf("Classify(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestClassifyIsCaseInsensitive(t *testing.T) {
	if Classify(errors.New("INVALID ARGUMENT")) != ClassPermanent {
		t.Error("upper-case permanent error not recognized")
	}
}
