package logs_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"aerial/internal/logs"
)

func writeLines(t *testing.T, path string, lines string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(lines), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}
}

func TestTailLastLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "aerial.log")
	writeLines(t, path, "one\ntwo\nthree\nfour\n")

	result, err := logs.Tail(context.Background(), path, logs.Options{Offset: -1, Lines: 2})
	if err != nil {
		t.Fatalf("Tail: %v", err)
	}
	if len(result.Lines) != 2 || result.Lines[0] != "three" || result.Lines[1] != "four" {
		t.Fatalf("unexpected lines: %v", result.Lines)
	}
	if result.Offset <= 0 {
		t.Fatalf("expected positive resume offset, got %d", result.Offset)
	}
}

func TestTailResumesFromOffset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "aerial.log")
	writeLines(t, path, "one\ntwo\n")

	first, err := logs.Tail(context.Background(), path, logs.Options{Offset: -1, Lines: 10})
	if err != nil {
		t.Fatalf("Tail: %v", err)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open append: %v", err)
	}
	if _, err := f.WriteString("three\n"); err != nil {
		t.Fatalf("append: %v", err)
	}
	f.Close()

	second, err := logs.Tail(context.Background(), path, logs.Options{Offset: first.Offset})
	if err != nil {
		t.Fatalf("Tail resume: %v", err)
	}
	if len(second.Lines) != 1 || second.Lines[0] != "three" {
		t.Fatalf("unexpected resumed lines: %v", second.Lines)
	}
}

func TestTailMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.log")

	result, err := logs.Tail(context.Background(), path, logs.Options{Offset: -1, Lines: 5})
	if err != nil {
		t.Fatalf("Tail: %v", err)
	}
	if len(result.Lines) != 0 || result.Offset != 0 {
		t.Fatalf("expected empty result, got %+v", result)
	}
}

func TestTailRestartsAfterTruncation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "aerial.log")
	writeLines(t, path, "one\ntwo\nthree\n")

	first, err := logs.Tail(context.Background(), path, logs.Options{Offset: -1, Lines: 10})
	if err != nil {
		t.Fatalf("Tail: %v", err)
	}

	writeLines(t, path, "new\n")

	second, err := logs.Tail(context.Background(), path, logs.Options{Offset: first.Offset})
	if err != nil {
		t.Fatalf("Tail after truncate: %v", err)
	}
	if len(second.Lines) != 1 || second.Lines[0] != "new" {
		t.Fatalf("expected restart from top, got %v", second.Lines)
	}
}

func TestTailWaitPicksUpAppendedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "aerial.log")
	writeLines(t, path, "")

	go func() {
		time.Sleep(300 * time.Millisecond)
		f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return
		}
		defer f.Close()
		f.WriteString("late\n")
	}()

	start := time.Now()
	result, err := logs.Tail(context.Background(), path, logs.Options{Offset: 0, Wait: 2 * time.Second})
	if err != nil {
		t.Fatalf("Tail wait: %v", err)
	}
	if len(result.Lines) != 1 || result.Lines[0] != "late" {
		t.Fatalf("expected appended line, got %v", result.Lines)
	}
	if time.Since(start) > 2*time.Second {
		t.Fatal("wait exceeded deadline")
	}
}
