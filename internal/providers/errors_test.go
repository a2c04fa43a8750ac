package providers

import (
	"errors"
	"fmt"
	"testing"
)

func TestClassifyError(t *testing.T) {
	cases := map[string]ErrorType{
		"insufficient_quota": ErrorQuota,
		"429 rate":           ErrorRate,
		"context too long":   ErrorContext,
		"timeout":            ErrorTransient,
		"bad request":        ErrorPermanent,
	}
	for msg, want := range cases {
		if got := ClassifyError(errors.New(msg)); got != want {
			t.Fatalf("classify %q: got %s want %s", msg, got, want)
		}
	}
}

func TestClassifyStatusError(t *testing.T) {
	if got := ClassifyError(fmt.Errorf("openai embedding %w", &StatusError{Code: 503, Body: "busy"})); got != ErrorTransient {
		t.Fatalf("expected transient, got %s", got)
	}
	if got := ClassifyError(&StatusError{Code: 429}); got != ErrorRate {
		t.Fatalf("expected rate, got %s", got)
	}
}
