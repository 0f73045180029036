package logs

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeLog(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}
}

func TestReadMissingFileIsEmpty(t *testing.T) {
	chunk, err := Read(context.Background(), filepath.Join(t.TempDir(), "forge.log"), Options{Offset: -1, Limit: 10})
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(chunk.Lines) != 0 || chunk.Offset != 0 {
		t.Fatalf("expected empty chunk, got %+v", chunk)
	}
}

func TestReadLastLinesBounded(t *testing.T) {
	path := filepath.Join(t.TempDir(), "forge.log")
	writeLog(t, path, "one\ntwo\nthree\nfour\n")

	chunk, err := Read(context.Background(), path, Options{Offset: -1, Limit: 2})
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(chunk.Lines) != 2 || chunk.Lines[0] != "three" || chunk.Lines[1] != "four" {
		t.Fatalf("unexpected lines %v", chunk.Lines)
	}
	if chunk.Offset == 0 {
		t.Fatal("expected non-zero resume offset")
	}
}

func TestReadResumesFromOffset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "forge.log")
	writeLog(t, path, "one\ntwo\n")

	first, err := Read(context.Background(), path, Options{Offset: -1, Limit: 10})
	if err != nil {
		t.Fatalf("initial read: %v", err)
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open for append: %v", err)
	}
	if _, err := file.WriteString("three\n"); err != nil {
		t.Fatalf("append: %v", err)
	}
	file.Close()

	second, err := Read(context.Background(), path, Options{Offset: first.Offset})
	if err != nil {
		t.Fatalf("resume read: %v", err)
	}
	if len(second.Lines) != 1 || second.Lines[0] != "three" {
		t.Fatalf("unexpected resumed lines %v", second.Lines)
	}
}

func TestReadFollowWaitsForAppendedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "forge.log")
	writeLog(t, path, "seed\n")

	first, err := Read(context.Background(), path, Options{Offset: -1, Limit: 10})
	if err != nil {
		t.Fatalf("initial read: %v", err)
	}

	go func() {
		time.Sleep(300 * time.Millisecond)
		file, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return
		}
		defer file.Close()
		_, _ = file.WriteString("fresh\n")
	}()

	chunk, err := Read(context.Background(), path, Options{
		Offset: first.Offset,
		Follow: true,
		Wait:   3 * time.Second,
	})
	if err != nil {
		t.Fatalf("follow read: %v", err)
	}
	if len(chunk.Lines) != 1 || chunk.Lines[0] != "fresh" {
		t.Fatalf("unexpected followed lines %v", chunk.Lines)
	}
}

func TestReadOffsetPastEndClamps(t *testing.T) {
	path := filepath.Join(t.TempDir(), "forge.log")
	writeLog(t, path, "one\n")

	chunk, err := Read(context.Background(), path, Options{Offset: 10_000})
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(chunk.Lines) != 0 {
		t.Fatalf("expected no lines past end, got %v", chunk.Lines)
	}
}
