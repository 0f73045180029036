// Package sources filters and verifies research source URLs.
package sources

import (
	"strings"

	"forge/internal/config"
)

// Mode selects how the configured source list is interpreted.
type Mode string

const (
	ModeWhitelist Mode = "whitelist"
	ModeBlacklist Mode = "blacklist"
	ModeAllowAll  Mode = "allow_all"
)

// Policy decides which source URLs research may cite.
type Policy struct {
	mode    Mode
	entries []string
}

// NewPolicy builds a policy from configuration. Entries are lowercased once
// at construction.
func NewPolicy(cfg config.SourcePolicy) *Policy {
	entries := make([]string, 0, len(cfg.Sources))
	for _, entry := range cfg.Sources {
		entry = strings.ToLower(strings.TrimSpace(entry))
		if entry != "" {
			entries = append(entries, entry)
		}
	}
	return &Policy{mode: Mode(cfg.Mode), entries: entries}
}

// Mode returns the policy's configured mode.
func (p *Policy) Mode() Mode {
	return p.mode
}

// IsUsable reports whether a source URL passes the policy.
//
// Matching is substring containment against the extracted host, not suffix
// matching on registrable domains. A whitelist entry "bbc.com" therefore
// also matches "evilbbc.com" and "bbc.com.attacker.net". Tightening this
// would change which sources existing configurations accept, so the
// behavior is kept as documented.
func (p *Policy) IsUsable(rawURL string) bool {
	if p.mode == ModeAllowAll {
		return true
	}

	domain := extractDomain(rawURL)
	if domain == "" {
		return p.mode == ModeBlacklist
	}

	matched := false
	for _, entry := range p.entries {
		if strings.Contains(domain, entry) {
			matched = true
			break
		}
	}

	switch p.mode {
	case ModeWhitelist:
		return matched
	case ModeBlacklist:
		return !matched
	default:
		return false
	}
}

// Filter returns the usable subset of urls in input order, capped at max
// when max is positive.
func (p *Policy) Filter(urls []string, max int) []string {
	var usable []string
	for _, u := range urls {
		if !p.IsUsable(u) {
			continue
		}
		usable = append(usable, u)
		if max > 0 && len(usable) >= max {
			break
		}
	}
	return usable
}

// extractDomain pulls the host portion out of a URL by position: whenever
// the input splits into more than two slash-separated segments, the third
// segment is taken as the host, otherwise the whole string is used. A
// schemeless URL with a deep path ("bbc.com/news/x") therefore yields a path
// segment rather than its host; policy entries are expected to be bare
// domains or scheme-prefixed URLs.
func extractDomain(rawURL string) string {
	trimmed := strings.ToLower(strings.TrimSpace(rawURL))
	if trimmed == "" {
		return ""
	}
	parts := strings.Split(trimmed, "/")
	if len(parts) > 2 {
		return parts[2]
	}
	return trimmed
}
