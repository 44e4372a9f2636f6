package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

type Client struct {
	APIKey  string
	BaseURL string
	Model   string
	http    *http.Client
}

func New(apiKey, baseURL, model string) *Client {
	if baseURL == "" {
		baseURL = "https://api.anthropic.com"
	}
	if model == "" {
		model = "claude-haiku-4-5-20251001"
	}
	return &Client{APIKey: apiKey, BaseURL: strings.TrimRight(baseURL, "/"), Model: model, http: &http.Client{Timeout: 20 * time.Second}}
}

func (c *Client) Words(ctx context.Context, category string, exclude []string, count int) ([]string, error) {
	if c.APIKey == "" {
		return nil, errors.New("missing ANTHROPIC_API_KEY")
	}
	if count <= 0 {
		return nil, nil
	}
	prompt := fmt.Sprintf("Give me %d words related to the category '%s' that would work for a word-guessing game. The words should be specific enough to hint at but not too obvious.", count, category)
	if len(exclude) > 0 {
		prompt += fmt.Sprintf(" Do not use these words: %s.", strings.Join(exclude, ", "))
	}
	prompt += " Return only the words, one per line, nothing else."

	payload := map[string]any{
		"model":       c.Model,
		"max_tokens":  200,
		"temperature": 1.0,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
	}
	b, _ := json.Marshal(payload)
	req, _ := http.NewRequestWithContext(ctx, "POST", c.BaseURL+"/v1/messages", bytes.NewReader(b))
	req.Header.Set("x-api-key", c.APIKey)
	req.Header.Set("anthropic-version", "2023-06-01")
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("anthropic status %d", resp.StatusCode)
	}
	var out struct {
		Content []struct {
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	if len(out.Content) == 0 {
		return nil, errors.New("no content")
	}
	return parseLines(out.Content[0].Text, exclude, count), nil
}

// parseLines splits the model output into words, re-applying the exclusion
// list locally since the model does not always honor it.
func parseLines(text string, exclude []string, count int) []string {
	excluded := make(map[string]bool, len(exclude))
	for _, w := range exclude {
		excluded[strings.ToLower(w)] = true
	}
	var words []string
	for _, line := range strings.Split(text, "\n") {
		w := strings.TrimSpace(line)
		if w == "" || excluded[strings.ToLower(w)] {
			continue
		}
		words = append(words, w)
		if len(words) == count {
			break
		}
	}
	return words
}
