// Package chatbot proxies user questions to a hosted generative model.
package chatbot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/suenolabs/sueno-api/pkg/apperr"
)

// Client calls the Gemini generateContent API.
type Client struct {
	apiKey  string
	model   string
	baseURL string
	http    *http.Client
}

// NewClient creates a chatbot client. baseURL is overridable for tests.
func NewClient(apiKey, model, baseURL string, timeout time.Duration) *Client {
	return &Client{
		apiKey:  apiKey,
		model:   model,
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

// Enabled reports whether an API key is configured.
func (c *Client) Enabled() bool {
	return c.apiKey != ""
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// Ask sends a question to the model and returns its text answer.
func (c *Client) Ask(ctx context.Context, question string) (string, error) {
	if !c.Enabled() {
		return "", apperr.New(apperr.Upstream, "chatbot is not configured")
	}

	payload := generateRequest{
		Contents: []content{{Parts: []part{{Text: question}}}},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", apperr.Wrap(apperr.Upstream, "chatbot request failed", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.baseURL, c.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", apperr.Wrap(apperr.Upstream, "chatbot request failed", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", apperr.Wrap(apperr.Upstream, "chatbot is unavailable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		cause := fmt.Errorf("chatbot status %d: %s", resp.StatusCode, string(detail))
		return "", apperr.Wrap(apperr.Upstream, "chatbot is unavailable", cause)
	}

	var result generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", apperr.Wrap(apperr.Upstream, "chatbot returned malformed data", err)
	}
	if len(result.Candidates) == 0 || len(result.Candidates[0].Content.Parts) == 0 {
		return "", apperr.New(apperr.Upstream, "chatbot returned no answer")
	}

	return result.Candidates[0].Content.Parts[0].Text, nil
}
