package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var titleCaser = cases.Title(language.English)

// parsePositiveID parses a command argument as a positive entity ID.
func parsePositiveID(arg string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(arg), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", arg)
	}
	return id, nil
}

// humanizeStatus turns machine status strings like "in_progress" into
// display form ("In Progress").
func humanizeStatus(value string) string {
	cleaned := strings.ReplaceAll(strings.TrimSpace(value), "_", " ")
	if cleaned == "" {
		return ""
	}
	return titleCaser.String(cleaned)
}

// truncate shortens s to max runes, appending an ellipsis when cut.
func truncate(s string, max int) string {
	if max <= 3 {
		max = 3
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}

// sortedCountRows renders a status-count map as stable table rows.
func sortedCountRows(counts map[string]int) [][]string {
	keys := make([]string, 0, len(counts))
	for key := range counts {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	rows := make([][]string, 0, len(keys))
	for _, key := range keys {
		rows = append(rows, []string{humanizeStatus(key), strconv.Itoa(counts[key])})
	}
	return rows
}

func progressText(current, total int, statusText string) string {
	if total <= 0 {
		return strings.TrimSpace(statusText)
	}
	if strings.TrimSpace(statusText) == "" {
		return fmt.Sprintf("%d/%d", current, total)
	}
	return fmt.Sprintf("%d/%d %s", current, total, statusText)
}
