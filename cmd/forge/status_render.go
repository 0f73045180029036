package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
)

// healthState classifies a line of `forge status` or `forge db health`
// output: informational, healthy, degraded, or broken.
type healthState int

const (
	healthInfo healthState = iota
	healthOK
	healthWarn
	healthError
)

func (h healthState) label() string {
	switch h {
	case healthOK:
		return "OK"
	case healthWarn:
		return "WARN"
	case healthError:
		return "ERROR"
	default:
		return "INFO"
	}
}

func (h healthState) color() text.Color {
	switch h {
	case healthOK:
		return text.FgGreen
	case healthWarn:
		return text.FgYellow
	case healthError:
		return text.FgRed
	default:
		return text.FgBlue
	}
}

const healthLabelWidth = 16

func renderStatusLine(label string, state healthState, message string, colorize bool) string {
	tag := "[" + state.label() + "]"
	if message != "" {
		tag += " " + message
	}
	line := fmt.Sprintf("  %-*s %s", healthLabelWidth, label+":", tag)
	if colorize {
		return state.color().Sprint(line)
	}
	return line
}

func renderSectionHeader(title string, colorize bool) []string {
	header := fmt.Sprintf("== %s ==", strings.TrimSpace(title))
	rule := strings.Repeat("-", len(header))
	if colorize {
		return []string{text.FgBlue.Sprint(header), text.FgBlue.Sprint(rule)}
	}
	return []string{header, rule}
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(file.Fd()) || isatty.IsCygwinTerminal(file.Fd())
}
