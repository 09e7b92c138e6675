// Package generate produces physics data models in several target languages
// through an OpenAI-compatible chat-completions endpoint.
package generate

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/vbsocial/vbsocial/internal/httpx"
	"github.com/vbsocial/vbsocial/internal/logger"
)

// Request describes one data-model generation.
type Request struct {
	Problem  string
	Language string

	// Solution gives the model physics context; empty is allowed.
	Solution string

	// ReferenceCode plus ReferenceLanguage pin naming to an existing model
	// in another language.
	ReferenceCode     string
	ReferenceLanguage string
}

// Options configures the upstream model endpoint.
type Options struct {
	APIKey  string
	BaseURL string
	Model   string
}

// Client calls a chat-completions endpoint to generate code.
type Client struct {
	http *http.Client
	opts Options
}

// New returns a generation client. BaseURL and Model fall back to the
// OpenAI defaults when empty.
func New(httpClient *http.Client, opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = "https://api.openai.com/v1"
	}
	if opts.Model == "" {
		opts.Model = "gpt-4o-mini"
	}
	return &Client{http: httpClient, opts: opts}
}

// SupportedLanguages lists the target languages in sorted order.
func SupportedLanguages() []string {
	out := make([]string, 0, len(languages))
	for name := range languages {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Supported reports whether lang is a known target language.
func Supported(lang string) bool {
	_, ok := languages[lang]
	return ok
}

// FileExtension returns the conventional file extension for a language,
// falling back to the language name itself.
func FileExtension(lang string) string {
	if cfg, ok := languages[lang]; ok {
		return cfg.Extension
	}
	return lang
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Generate produces the data model and returns the cleaned code.
func (c *Client) Generate(ctx context.Context, req Request) (string, error) {
	cfg, ok := languages[req.Language]
	if !ok {
		return "", fmt.Errorf("unsupported language %q, use one of: %s",
			req.Language, strings.Join(SupportedLanguages(), ", "))
	}
	if c.opts.APIKey == "" {
		return "", fmt.Errorf("missing API key, set OPENAI_API_KEY_10X or OPENAI_API_KEY")
	}
	if strings.TrimSpace(req.Problem) == "" {
		return "", fmt.Errorf("problem description is empty")
	}

	solution := req.Solution
	if solution == "" {
		solution = "(no solution provided)"
	}

	title := strings.ToUpper(req.Language[:1]) + req.Language[1:]
	var userPrompt string
	if req.ReferenceCode != "" && req.ReferenceLanguage != "" {
		userPrompt = fmt.Sprintf(userTemplateWithReference,
			title, req.Problem, solution, req.ReferenceLanguage, req.ReferenceCode)
	} else {
		userPrompt = fmt.Sprintf(userTemplate, title, req.Problem, solution)
	}

	payload := chatRequest{
		Model: c.opts.Model,
		Messages: []chatMessage{
			{Role: "system", Content: cfg.Prompt},
			{Role: "user", Content: userPrompt},
		},
	}

	headers := map[string]string{"Authorization": "Bearer " + c.opts.APIKey}
	endpoint := strings.TrimSuffix(c.opts.BaseURL, "/") + "/chat/completions"

	var resp chatResponse
	if err := httpx.PostJSON(ctx, c.http, endpoint, headers, payload, &resp); err != nil {
		return "", fmt.Errorf("generation failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("generation returned no choices")
	}

	code := CleanOutput(resp.Choices[0].Message.Content, req.Language)
	logger.Debug("datamodel generated", "language", req.Language, "bytes", len(code))
	return code, nil
}

// CleanOutput strips markdown code fences the model sometimes wraps around
// the code despite the prompt.
func CleanOutput(result, lang string) string {
	fence := lang
	if cfg, ok := languages[lang]; ok {
		fence = cfg.FenceTag
	}

	if tagged := "```" + fence; strings.Contains(result, tagged) {
		result = strings.SplitN(result, tagged, 2)[1]
		result = strings.SplitN(result, "```", 2)[0]
	} else if strings.Contains(result, "```") {
		parts := strings.SplitN(result, "```", 3)
		if len(parts) >= 2 {
			result = parts[1]
			// Drop a bare language tag on the fence line.
			if idx := strings.IndexByte(result, '\n'); idx >= 0 && !strings.ContainsAny(result[:idx], " \t{};") {
				result = result[idx+1:]
			}
		}
	}
	return strings.TrimSpace(result)
}
