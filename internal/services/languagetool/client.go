// Package languagetool is a client for the LanguageTool proofreading API.
package languagetool

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/siteaudit/internal/resilient"
)

// DefaultEndpoint is the public LanguageTool check endpoint.
const DefaultEndpoint = "https://api.languagetool.org/v2/check"

// Match is one issue reported for a piece of text.
type Match struct {
	Message      string `json:"message"`
	Offset       int    `json:"offset"`
	Length       int    `json:"length"`
	Replacements []struct {
		Value string `json:"value"`
	} `json:"replacements"`
	Context struct {
		Text   string `json:"text"`
		Offset int    `json:"offset"`
		Length int    `json:"length"`
	} `json:"context"`
	Rule struct {
		ID        string `json:"id"`
		IssueType string `json:"issueType"`
		Category  struct {
			ID string `json:"id"`
		} `json:"category"`
	} `json:"rule"`
}

// Word returns the flagged span of the match context.
func (m Match) Word() string {
	text := []rune(m.Context.Text)
	start, end := m.Context.Offset, m.Context.Offset+m.Context.Length
	if start < 0 || end > len(text) || start >= end {
		return ""
	}
	return string(text[start:end])
}

// Suggestion returns the first replacement, if any.
func (m Match) Suggestion() string {
	if len(m.Replacements) == 0 {
		return ""
	}
	return m.Replacements[0].Value
}

// IsSpelling reports whether the match is a spelling issue rather than
// grammar or style.
func (m Match) IsSpelling() bool {
	t := strings.ToLower(m.Rule.IssueType)
	return strings.Contains(t, "spell") || strings.Contains(t, "misspelling")
}

// Config configures the client.
type Config struct {
	Endpoint string
	Language string
}

// Client submits text for proofreading.
type Client struct {
	cfg Config
	rc  *resilient.Client
}

// New builds a client.
func New(cfg Config, httpClient *http.Client, policy resilient.Policy, logger *zap.Logger) *Client {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Language == "" {
		cfg.Language = "en-US"
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{cfg: cfg, rc: resilient.New("languagetool", httpClient, policy, logger)}
}

// Check returns the matches for text. An error means the service could not
// be reached or answered with something other than a match list.
func (c *Client) Check(ctx context.Context, text string) ([]Match, error) {
	form := url.Values{}
	form.Set("text", text)
	form.Set("language", c.cfg.Language)
	encoded := form.Encode()

	resp, err := c.rc.Do(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, strings.NewReader(encoded))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set("Accept", "application/json")
		return req, nil
	})
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("languagetool: status %d", resp.StatusCode)
	}
	var payload struct {
		Matches []Match `json:"matches"`
	}
	if err := json.Unmarshal(resp.Body, &payload); err != nil {
		return nil, fmt.Errorf("decode languagetool response: %w", err)
	}
	return payload.Matches, nil
}
