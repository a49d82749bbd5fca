package services_test

import (
	"errors"
	"testing"

	"scribe/internal/services"
)

func TestWrapTagsMarker(t *testing.T) {
	underlying := errors.New("connect: connection refused")
	err := services.Wrap(services.ErrRemoteUnavailable, "ytdlp", "probe", "metadata fetch", underlying)
	if !errors.Is(err, services.ErrRemoteUnavailable) {
		t.Fatalf("expected remote-unavailable marker, got %v", err)
	}
	if !errors.Is(err, underlying) {
		t.Fatal("expected wrapped cause to survive")
	}
}

func TestClassifyRemote(t *testing.T) {
	cases := []struct {
		name   string
		output string
		marker error
	}{
		{"http 429", "ERROR: HTTP Error 429: Too Many Requests", services.ErrRateLimited},
		{"unavailable", "ERROR: Video unavailable", services.ErrRateLimited},
		{"age gate", "ERROR: Sign in to confirm your age", services.ErrAuthRequired},
		{"private", "ERROR: Private video", services.ErrAuthRequired},
		{"generic", "ERROR: unable to resolve host", services.ErrRemoteUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := services.ClassifyRemote(tc.output); !errors.Is(got, tc.marker) {
				t.Fatalf("ClassifyRemote(%q) = %v, want %v", tc.output, got, tc.marker)
			}
		})
	}
}

func TestIsGPUFailure(t *testing.T) {
	if !services.IsGPUFailure(errors.New("RuntimeError: CUDA out of memory")) {
		t.Fatal("expected CUDA error to classify as GPU failure")
	}
	if services.IsGPUFailure(errors.New("file not found")) {
		t.Fatal("unrelated error misclassified as GPU failure")
	}
}

func TestIsRetryable(t *testing.T) {
	if !services.IsRetryable(services.Wrap(services.ErrRateLimited, "ytdlp", "download", "", nil)) {
		t.Fatal("rate limited should be retryable")
	}
	if services.IsRetryable(services.Wrap(services.ErrInputInvalid, "cli", "parse", "", nil)) {
		t.Fatal("invalid input should not be retryable")
	}
}
