package textutil

import "testing"

func TestCosineSimilarityRanksNearDuplicates(t *testing.T) {
	base := NewFingerprint("The hidden cost of serverless cold starts")
	nearDup := NewFingerprint("Hidden costs of serverless cold starts")
	unrelated := NewFingerprint("Kubernetes networking deep dive")

	dupScore := CosineSimilarity(base, nearDup)
	otherScore := CosineSimilarity(base, unrelated)

	if dupScore <= otherScore {
		t.Fatalf("expected near-duplicate to score higher: dup=%.3f other=%.3f", dupScore, otherScore)
	}
	if dupScore < 0.7 {
		t.Fatalf("expected high similarity for near-duplicate, got %.3f", dupScore)
	}
}

func TestCosineSimilarityHandlesDegenerateInput(t *testing.T) {
	if got := CosineSimilarity(nil, NewFingerprint("anything at all")); got != 0 {
		t.Fatalf("nil fingerprint should score 0, got %.3f", got)
	}
	if fp := NewFingerprint("a b"); fp != nil {
		t.Fatal("expected nil fingerprint for text with only short tokens")
	}
}

func TestSlug(t *testing.T) {
	cases := map[string]string{
		"The Hidden Cost of Cold Starts!": "the-hidden-cost-of-cold-starts",
		"  CDN / Edge: a primer  ":        "cdn-edge-a-primer",
		"":                                "untitled",
		"!!!":                             "untitled",
	}
	for input, want := range cases {
		if got := Slug(input); got != want {
			t.Errorf("Slug(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestSanitizeFileName(t *testing.T) {
	if got := SanitizeFileName(`post: a/b*c?`); got != "post- a-b-c" {
		t.Fatalf("unexpected sanitized name %q", got)
	}
	if got := SanitizeFileName("   "); got != "" {
		t.Fatalf("expected empty result for whitespace, got %q", got)
	}
}
