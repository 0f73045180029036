package sources

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"forge/internal/config"
)

func whitelistPolicy(entries ...string) *Policy {
	return NewPolicy(config.SourcePolicy{Mode: "whitelist", Sources: entries})
}

func TestWhitelistAcceptsListedDomains(t *testing.T) {
	policy := whitelistPolicy("bbc.com", "reuters.com")

	cases := map[string]bool{
		"https://www.bbc.com/news/technology-1234":   true,
		"https://reuters.com/markets/deal":           true,
		"http://bbc.com":                             true,
		"bbc.com/news":                               true,
		"https://example.org/story":                  false,
		"https://www.theguardian.com/world/article":  false,
		"":                                           false,
	}
	for url, want := range cases {
		if got := policy.IsUsable(url); got != want {
			t.Errorf("IsUsable(%q) = %v, want %v", url, got, want)
		}
	}
}

func TestWhitelistMatchingIsCaseInsensitive(t *testing.T) {
	policy := whitelistPolicy("BBC.com")
	if !policy.IsUsable("https://www.bbc.COM/news") {
		t.Fatal("expected case-insensitive match")
	}
}

func TestSubstringMatchAcceptsLookalikeDomains(t *testing.T) {
	policy := whitelistPolicy("bbc.com")

	// Containment matching means hosts that merely embed a listed domain
	// pass the whitelist.
	lookalikes := []string{
		"https://evilbbc.com/story",
		"https://bbc.com.attacker.net/phish",
	}
	for _, url := range lookalikes {
		if !policy.IsUsable(url) {
			t.Errorf("expected lookalike %q to pass containment matching", url)
		}
	}
}

func TestBlacklistRejectsListedDomains(t *testing.T) {
	policy := NewPolicy(config.SourcePolicy{Mode: "blacklist", Sources: []string{"tabloid.example"}})

	if policy.IsUsable("https://tabloid.example/gossip") {
		t.Fatal("expected blacklisted domain to be rejected")
	}
	if !policy.IsUsable("https://reuters.com/article") {
		t.Fatal("expected unlisted domain to pass a blacklist")
	}
}

func TestAllowAllAcceptsEverything(t *testing.T) {
	policy := NewPolicy(config.SourcePolicy{Mode: "allow_all"})
	if !policy.IsUsable("https://anything.example/whatever") {
		t.Fatal("expected allow_all to accept any URL")
	}
}

func TestFilterPreservesOrderAndCap(t *testing.T) {
	policy := whitelistPolicy("bbc.com", "reuters.com", "apnews.com")
	input := []string{
		"https://bbc.com/1",
		"https://blocked.example/x",
		"https://reuters.com/2",
		"https://apnews.com/3",
	}

	filtered := policy.Filter(input, 2)
	if len(filtered) != 2 {
		t.Fatalf("expected cap of 2, got %d", len(filtered))
	}
	if filtered[0] != "https://bbc.com/1" || filtered[1] != "https://reuters.com/2" {
		t.Fatalf("expected input order to be preserved, got %v", filtered)
	}

	unlimited := policy.Filter(input, 0)
	if len(unlimited) != 3 {
		t.Fatalf("expected 3 usable sources without a cap, got %d", len(unlimited))
	}
}

func TestSchemelessDeepPathExtractsPathSegment(t *testing.T) {
	policy := whitelistPolicy("bbc.com")

	// Positional extraction takes the third slash-separated segment, so a
	// schemeless URL with two path segments is judged by "x", not its host.
	if policy.IsUsable("bbc.com/news/x") {
		t.Fatal(`expected "bbc.com/news/x" to be rejected`)
	}
	if !policy.IsUsable("bbc.com/news") {
		t.Fatal(`expected "bbc.com/news" to pass via whole-string fallback`)
	}
}

func TestExtractDomain(t *testing.T) {
	cases := map[string]string{
		"https://www.bbc.com/news": "www.bbc.com",
		"http://reuters.com":       "reuters.com",
		"bbc.com/news":             "bbc.com/news",
		"bbc.com/news/x":           "x",
		"not a url":                "not a url",
		"":                         "",
	}
	for input, want := range cases {
		if got := extractDomain(input); got != want {
			t.Errorf("extractDomain(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestVerifierReportsTitleAndDegrades(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/good":
			_, _ = w.Write([]byte("<html><head><title>Breaking Coverage</title></head><body></body></html>"))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	verifier := NewVerifier(nil).WithHTTPClient(server.Client())
	results := verifier.Verify(context.Background(), []string{
		server.URL + "/good",
		server.URL + "/missing",
	})
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if !results[0].Verified || results[0].Title != "Breaking Coverage" {
		t.Fatalf("expected first source verified with title, got %+v", results[0])
	}
	if results[1].Verified {
		t.Fatalf("expected second source to degrade unverified, got %+v", results[1])
	}
}
