package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/spherical/source-ingest/internal/domain"
	"github.com/spherical/source-ingest/internal/retry"
)

const (
	openRouterBaseURL = "https://openrouter.ai/api/v1"
	openAIBaseURL     = "https://api.openai.com/v1"
	defaultModel      = "openai/gpt-4o-mini"

	maxErrorBody = 4 << 10
)

// Client talks to an OpenAI-compatible chat completions API (OpenRouter or OpenAI).
type Client struct {
	apiKey      string
	model       string
	baseURL     string
	provider    string
	temperature float32
	httpClient  *http.Client
}

// ClientOption customizes a Client.
type ClientOption func(*Client)

// WithBaseURL points the client at another API root, e.g. https://api.openai.com/v1.
func WithBaseURL(url string) ClientOption {
	return func(c *Client) {
		if url != "" {
			c.baseURL = strings.TrimRight(url, "/")
		}
	}
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithProvider sets the provider label used in logs and metrics.
func WithProvider(name string) ClientOption {
	return func(c *Client) { c.provider = name }
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float32) ClientOption {
	return func(c *Client) { c.temperature = t }
}

// Message represents a chat message
type Message struct {
	Role    string        `json:"role"`
	Content []ContentPart `json:"content"`
}

// ContentPart represents a part of message content (text or image)
type ContentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

// ImageURL represents an image URL in the message
type ImageURL struct {
	URL string `json:"url"`
}

// ResponseFormat asks the API for schema-conforming JSON output.
type ResponseFormat struct {
	Type       string            `json:"type"`
	JSONSchema *JSONSchemaFormat `json:"json_schema,omitempty"`
}

// JSONSchemaFormat names and carries the response schema.
type JSONSchemaFormat struct {
	Name   string `json:"name"`
	Strict bool   `json:"strict"`
	Schema any    `json:"schema"`
}

// Request represents the API request structure
type Request struct {
	Model          string          `json:"model"`
	Messages       []Message       `json:"messages"`
	Stream         bool            `json:"stream"`
	Temperature    float32         `json:"temperature"`
	ResponseFormat *ResponseFormat `json:"response_format,omitempty"`
}

// Response represents the API response structure
type Response struct {
	ID      string    `json:"id"`
	Choices []Choice  `json:"choices"`
	Error   *APIFault `json:"error,omitempty"`
}

// APIFault is an error reported inside a 200 response body.
type APIFault struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Choice represents a single completion choice
type Choice struct {
	Message      Delta  `json:"message"`
	FinishReason string `json:"finish_reason"`
}

// Delta represents a message in the response
type Delta struct {
	Content string `json:"content"`
	Role    string `json:"role"`
}

// NewClient creates a new LLM client
func NewClient(apiKey, model string, opts ...ClientOption) *Client {
	if model == "" {
		model = defaultModel
	}

	c := &Client{
		apiKey:     apiKey,
		model:      model,
		baseURL:    openRouterBaseURL,
		provider:   "openrouter",
		httpClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name returns the provider label.
func (c *Client) Name() string { return c.provider }

// Model returns the model identifier.
func (c *Client) Model() string { return c.model }

// Generate sends one image with prompt and returns the raw message content.
// It makes exactly one HTTP attempt; retries belong to the caller.
func (c *Client) Generate(ctx context.Context, prompt string, img domain.EncodedImage) (string, error) {
	body, err := json.Marshal(c.buildRequest(prompt, img))
	if err != nil {
		return "", domain.APIError("Failed to marshal request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", domain.APIError("Failed to build request", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("HTTP-Referer", "https://github.com/spherical/source-ingest")
	req.Header.Set("X-Title", "Source Ingest")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", retry.TransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return "", retry.StatusError(resp.StatusCode, string(bodyBytes))
	}

	var parsed Response
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", domain.InvalidModelResponseError("decode completion response", err)
	}

	if parsed.Error != nil {
		if parsed.Error.Code > 0 {
			return "", retry.StatusError(parsed.Error.Code, parsed.Error.Message)
		}
		return "", domain.APIError(parsed.Error.Message, nil)
	}

	if len(parsed.Choices) == 0 {
		return "", domain.InvalidModelResponseError("completion has no choices", nil)
	}

	return parsed.Choices[0].Message.Content, nil
}

// buildRequest constructs the API request with the image
func (c *Client) buildRequest(prompt string, img domain.EncodedImage) *Request {
	msg := Message{
		Role: "user",
		Content: []ContentPart{
			{
				Type: "text",
				Text: prompt,
			},
			{
				Type: "image_url",
				ImageURL: &ImageURL{
					URL: img.DataURL(),
				},
			},
		},
	}

	return &Request{
		Model:       c.model,
		Messages:    []Message{msg},
		Stream:      false,
		Temperature: c.temperature,
		ResponseFormat: &ResponseFormat{
			Type: "json_schema",
			JSONSchema: &JSONSchemaFormat{
				Name:   "image_text",
				Strict: true,
				Schema: ResponseSchema(),
			},
		},
	}
}

func (c *Client) String() string {
	return fmt.Sprintf("%s(%s)", c.provider, c.model)
}
