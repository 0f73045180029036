package main

import (
	"strings"
	"testing"

	"github.com/jedib0t/go-pretty/v6/text"
)

func TestRenderStatusLine(t *testing.T) {
	plain := renderStatusLine("Forge", healthOK, "Running (pid 42, 2 workers)", false)
	if !strings.Contains(plain, "Forge:") || !strings.Contains(plain, "[OK] Running (pid 42, 2 workers)") {
		t.Fatalf("unexpected plain line: %q", plain)
	}
	if strings.Contains(plain, "\x1b[") {
		t.Fatalf("plain line should carry no escape codes: %q", plain)
	}

	bare := renderStatusLine("Database", healthInfo, "", false)
	if !strings.Contains(bare, "[INFO]") || strings.Contains(bare, "[INFO] ") {
		t.Fatalf("expected bare tag without trailing message, got %q", bare)
	}

	// Color emission depends on the package-level switch, which is off when
	// stdout is not a terminal.
	text.EnableColors()
	defer text.DisableColors()
	colored := renderStatusLine("Forge", healthWarn, "degraded", true)
	if !strings.Contains(colored, "\x1b[") || !strings.Contains(colored, "[WARN] degraded") {
		t.Fatalf("expected colored WARN line, got %q", colored)
	}
}

func TestRenderSectionHeaderRuleMatchesWidth(t *testing.T) {
	lines := renderSectionHeader("Topics", false)
	if len(lines) != 2 {
		t.Fatalf("expected header and rule, got %d lines", len(lines))
	}
	if lines[0] != "== Topics ==" {
		t.Fatalf("unexpected header: %q", lines[0])
	}
	if len(lines[1]) != len(lines[0]) || strings.Trim(lines[1], "-") != "" {
		t.Fatalf("expected a dash rule matching the header width, got %q", lines[1])
	}
}
