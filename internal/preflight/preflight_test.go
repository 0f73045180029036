package preflight

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"forge/internal/config"
)

func TestCheckDirectoryAccess(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("Data directory", dir)
	if !result.Passed {
		t.Fatalf("expected writable temp dir to pass, got %+v", result)
	}

	missing := CheckDirectoryAccess("Data directory", filepath.Join(dir, "nope"))
	if missing.Passed {
		t.Fatalf("expected missing dir to fail, got %+v", missing)
	}

	file := filepath.Join(dir, "file")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	notDir := CheckDirectoryAccess("Data directory", file)
	if notDir.Passed {
		t.Fatalf("expected file path to fail, got %+v", notDir)
	}
}

func TestCheckLLMWithoutKey(t *testing.T) {
	result := CheckLLM(context.Background(), "LLM API", config.LLMConfig{})
	if result.Passed {
		t.Fatalf("expected missing key to fail, got %+v", result)
	}
	if result.Detail != "API key missing" {
		t.Fatalf("unexpected detail %q", result.Detail)
	}
}

func TestRunAllCoversDirectoriesAndLLM(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.DataDir = t.TempDir()
	cfg.Paths.LogDir = t.TempDir()

	results := RunAll(context.Background(), &cfg)
	if len(results) != 3 {
		t.Fatalf("expected 3 checks, got %d", len(results))
	}
	if !results[0].Passed || !results[1].Passed {
		t.Fatalf("expected directory checks to pass, got %+v", results[:2])
	}
	if results[2].Passed {
		t.Fatalf("expected LLM check to fail without a key, got %+v", results[2])
	}
}
