package sources

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"forge/internal/logging"
)

// Verifier fetches candidate source URLs and confirms they resolve to a
// readable page. Verification is best effort: an unreachable source is
// reported unverified, never treated as an error.
type Verifier struct {
	client *http.Client
	logger *slog.Logger
}

// VerifiedSource is the outcome of checking one URL.
type VerifiedSource struct {
	URL      string
	Title    string
	Verified bool
}

// NewVerifier builds a verifier with a bounded request timeout.
func NewVerifier(logger *slog.Logger) *Verifier {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Verifier{
		client: &http.Client{Timeout: 10 * time.Second},
		logger: logger.With(logging.String(logging.FieldComponent, "source-verifier")),
	}
}

// WithHTTPClient replaces the HTTP client, primarily for tests.
func (v *Verifier) WithHTTPClient(client *http.Client) *Verifier {
	v.client = client
	return v
}

// Verify checks each URL and returns per-URL outcomes in input order.
func (v *Verifier) Verify(ctx context.Context, urls []string) []VerifiedSource {
	results := make([]VerifiedSource, 0, len(urls))
	for _, u := range urls {
		result := VerifiedSource{URL: u}
		title, err := v.fetchTitle(ctx, u)
		if err != nil {
			v.logger.Debug("source verification failed",
				logging.String("url", u),
				logging.Error(err))
		} else {
			result.Title = title
			result.Verified = true
		}
		results = append(results, result)
	}
	return results
}

func (v *Verifier) fetchTitle(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "forge/1.0 (+https://github.com/five82/forge)")

	resp, err := v.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch source: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("fetch source: status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", fmt.Errorf("parse source page: %w", err)
	}
	title := strings.TrimSpace(doc.Find("title").First().Text())
	if title == "" {
		return "", fmt.Errorf("source page has no title")
	}
	return title, nil
}
