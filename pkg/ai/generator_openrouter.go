package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const defaultOpenRouterBaseURL = "https://openrouter.ai/api/v1"

// OpenRouterGenerator calls an OpenAI-compatible /chat/completions endpoint.
// Works with OpenRouter, vLLM, LiteLLM, LocalAI, and self-hosted models.
type OpenRouterGenerator struct {
	baseURL    string
	apiKey     string
	model      string
	referer    string
	title      string
	httpClient *http.Client
}

// NewOpenRouterGenerator builds an OpenAI-compatible TextGenerator.
// baseURL should include the /v1 prefix; empty defaults to OpenRouter.
// referer and title populate the attribution headers OpenRouter expects.
func NewOpenRouterGenerator(baseURL, apiKey, model, referer, title string, timeout time.Duration) *OpenRouterGenerator {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = defaultOpenRouterBaseURL
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &OpenRouterGenerator{
		baseURL: baseURL,
		apiKey:  strings.TrimSpace(apiKey),
		model:   strings.TrimSpace(model),
		referer: strings.TrimSpace(referer),
		title:   strings.TrimSpace(title),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// GenerateText implements TextGenerator using the chat completions API.
func (g *OpenRouterGenerator) GenerateText(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if g.model == "" {
		return "", fmt.Errorf("generation model required")
	}
	messages := make([]oaiMessage, 0, 2)
	if strings.TrimSpace(systemPrompt) != "" {
		messages = append(messages, oaiMessage{Role: "system", Content: systemPrompt})
	}
	messages = append(messages, oaiMessage{Role: "user", Content: userPrompt})

	reqBody := oaiChatRequest{
		Model:    g.model,
		Messages: messages,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	url := g.baseURL + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if g.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.apiKey)
	}
	if g.referer != "" {
		req.Header.Set("HTTP-Referer", g.referer)
	}
	if g.title != "" {
		req.Header.Set("X-Title", g.title)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("chat completion request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp oaiErrorResponse
		_ = json.NewDecoder(resp.Body).Decode(&errResp)
		if errResp.Error.Message != "" {
			return "", fmt.Errorf("chat completion api error: %s", errResp.Error.Message)
		}
		return "", fmt.Errorf("chat completion api error: %s", resp.Status)
	}

	var chatResp oaiChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", fmt.Errorf("chat completion decode: %w", err)
	}
	if len(chatResp.Choices) == 0 {
		return "", nil
	}
	return strings.TrimSpace(chatResp.Choices[0].Message.Content), nil
}

// OpenAI-compatible request/response types.

type oaiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type oaiChatRequest struct {
	Model    string       `json:"model"`
	Messages []oaiMessage `json:"messages"`
}

type oaiChatResponse struct {
	Choices []struct {
		Message oaiMessage `json:"message"`
	} `json:"choices"`
}

type oaiErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}
