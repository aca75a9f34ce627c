package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	fetchDefaultMaxChars = 50_000
	fetchMaxRedirects    = 3
	fetchTimeout         = 30 * time.Second
	fetchCacheSize       = 100
	fetchCacheTTL        = 15 * time.Minute
	fetchUserAgent       = "idearium/1.0 (+https://github.com/nextlevelbuilder/idearium)"
)

// WebFetch retrieves a URL and returns its text content, with private-range
// protection on the target and every redirect hop. Responses are cached
// briefly so repeated calls within a turn don't refetch.
type WebFetch struct {
	maxChars int
	client   *http.Client
	cache    *expirable.LRU[string, string]
}

func NewWebFetch(maxChars int) *WebFetch {
	if maxChars <= 0 {
		maxChars = fetchDefaultMaxChars
	}
	return &WebFetch{
		maxChars: maxChars,
		client: &http.Client{
			Timeout: fetchTimeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) > fetchMaxRedirects {
					return fmt.Errorf("stopped after %d redirects", fetchMaxRedirects)
				}
				return checkFetchTarget(req.URL.String())
			},
		},
		cache: expirable.NewLRU[string, string](fetchCacheSize, nil, fetchCacheTTL),
	}
}

func (t *WebFetch) Name() string { return "web_fetch" }

func (t *WebFetch) Description() string {
	return "Fetch an http(s) URL and return its content as plain text. HTML is stripped to text, JSON is pretty-printed."
}

func (t *WebFetch) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"url": map[string]interface{}{
				"type":        "string",
				"description": "HTTP or HTTPS URL to fetch",
			},
			"max_chars": map[string]interface{}{
				"type":        "integer",
				"description": "Maximum characters to return",
			},
		},
		"required": []interface{}{"url"},
	}
}

func (t *WebFetch) Execute(ctx context.Context, args map[string]interface{}) *Result {
	rawURL, _ := args["url"].(string)
	if rawURL == "" {
		return ErrorResult("url is required")
	}
	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return ErrorResult("only http and https URLs are supported")
	}
	if err := checkFetchTarget(rawURL); err != nil {
		return ErrorResult("fetch blocked: " + err.Error()).WithError(err)
	}

	maxChars := t.maxChars
	if v, ok := args["max_chars"].(float64); ok && v >= 100 {
		maxChars = int(v)
	}

	cacheKey := fmt.Sprintf("%s|%d", rawURL, maxChars)
	if cached, ok := t.cache.Get(cacheKey); ok {
		return NewResult(cached)
	}

	text, err := t.fetch(ctx, rawURL, maxChars)
	if err != nil {
		return ErrorResult("fetch failed: " + err.Error()).WithError(err)
	}

	wrapped := wrapExternalContent(rawURL, text)
	t.cache.Add(cacheKey, wrapped)
	return NewResult(wrapped)
}

func (t *WebFetch) fetch(ctx context.Context, rawURL string, maxChars int) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", fetchUserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/json;q=0.9,*/*;q=0.8")

	resp, err := t.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	// Read extra beyond the char limit: HTML collapses a lot when stripped.
	body, err := io.ReadAll(io.LimitReader(resp.Body, int64(maxChars)*4))
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}

	var text string
	contentType := resp.Header.Get("Content-Type")
	switch {
	case strings.Contains(contentType, "application/json"):
		text = prettyJSON(body)
	case strings.Contains(contentType, "text/html"),
		strings.Contains(contentType, "application/xhtml"):
		text = htmlToText(string(body))
	default:
		text = string(body)
	}

	if len(text) > maxChars {
		text = text[:maxChars] + "\n[truncated]"
	}
	return fmt.Sprintf("URL: %s\nStatus: %d\n\n%s", resp.Request.URL, resp.StatusCode, text), nil
}

func prettyJSON(body []byte) string {
	var data interface{}
	if err := json.Unmarshal(body, &data); err != nil {
		return string(body)
	}
	formatted, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return string(body)
	}
	return string(formatted)
}

var (
	reNonContent = regexp.MustCompile(`(?is)<(script|style|nav|footer|header)[\s\S]*?</\w+>|<!--[\s\S]*?-->`)
	reBlockTag   = regexp.MustCompile(`(?i)</?(p|div|br|li|tr|h[1-6]|blockquote|pre)[^>]*>`)
	reAnyTag     = regexp.MustCompile(`<[^>]+>`)
	reBlankRuns  = regexp.MustCompile(`\n{3,}`)
)

var htmlEntities = strings.NewReplacer(
	"&amp;", "&", "&lt;", "<", "&gt;", ">", "&quot;", `"`,
	"&#39;", "'", "&apos;", "'", "&nbsp;", " ",
)

// htmlToText strips markup and collapses whitespace. Not a readability
// engine; good enough to hand page text to a model.
func htmlToText(html string) string {
	s := reNonContent.ReplaceAllString(html, "")
	s = reBlockTag.ReplaceAllString(s, "\n")
	s = reAnyTag.ReplaceAllString(s, "")
	s = htmlEntities.Replace(s)

	lines := strings.Split(s, "\n")
	clean := lines[:0]
	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			clean = append(clean, line)
		}
	}
	return reBlankRuns.ReplaceAllString(strings.Join(clean, "\n"), "\n\n")
}
