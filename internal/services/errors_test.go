package services_test

import (
	"errors"
	"strings"
	"testing"

	"aerial/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrExternalTool, "probing", "head", "failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"probing", "head", "failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapNilMarkerDefaultsTransient(t *testing.T) {
	err := services.Wrap(nil, "ingest", "fetch", "unavailable", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"configuration", services.Wrap(services.ErrConfiguration, "ingest", "load", "no sources", nil), "configuration"},
		{"validation", services.Wrap(services.ErrValidation, "select", "resolve", "bad snapshot", nil), "validation"},
		{"external tool", services.Wrap(services.ErrExternalTool, "probe", "ffprobe", "exit 1", nil), "external_tool"},
		{"timeout", services.Wrap(services.ErrTimeout, "probe", "get", "deadline", nil), "timeout"},
		{"plain", errors.New("boom"), "transient"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := services.Classify(tc.err); got != tc.want {
				t.Fatalf("Classify = %q, want %q", got, tc.want)
			}
		})
	}
}
