package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/genai"

	"github.com/spherical/source-ingest/internal/domain"
	"github.com/spherical/source-ingest/internal/retry"
)

const defaultGeminiModel = "gemini-2.5-flash"

// GeminiClient calls the Gemini API through the genai SDK.
type GeminiClient struct {
	client      *genai.Client
	model       string
	temperature float32
}

// GeminiConfig holds the settings for NewGeminiClient.
type GeminiConfig struct {
	APIKey      string
	Model       string
	BaseURL     string
	Temperature float32
	HTTPClient  *http.Client
}

// NewGeminiClient creates a Gemini API client.
func NewGeminiClient(ctx context.Context, cfg GeminiConfig) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, domain.ConfigError("gemini API key is required", nil)
	}

	model := cfg.Model
	if model == "" {
		model = defaultGeminiModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: cfg.HTTPClient,
		HTTPOptions: genai.HTTPOptions{
			BaseURL: cfg.BaseURL,
		},
	})
	if err != nil {
		return nil, domain.ConfigError("create gemini client", err)
	}

	return &GeminiClient{
		client:      client,
		model:       model,
		temperature: cfg.Temperature,
	}, nil
}

// Name returns the provider label.
func (g *GeminiClient) Name() string { return "gemini" }

// Model returns the model identifier.
func (g *GeminiClient) Model() string { return g.model }

// Generate sends one image with prompt and returns the raw response text.
func (g *GeminiClient) Generate(ctx context.Context, prompt string, img domain.EncodedImage) (string, error) {
	mime := img.MIMEType
	if mime == "" {
		mime = "image/jpeg"
	}

	parts := []*genai.Part{
		genai.NewPartFromText(prompt),
		genai.NewPartFromBytes(img.Data, mime),
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, &genai.GenerateContentConfig{
		ResponseMIMEType:   "application/json",
		ResponseJsonSchema: ResponseSchema(),
		Temperature:        genai.Ptr(g.temperature),
	})
	if err != nil {
		return "", classifyGeminiError(err)
	}

	if resp == nil || len(resp.Candidates) == 0 {
		return "", domain.InvalidModelResponseError("gemini returned no candidates", nil)
	}

	return resp.Text(), nil
}

func classifyGeminiError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return retry.StatusError(apiErr.Code, fmt.Sprintf("%s %s", apiErr.Status, apiErr.Message))
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return retry.TransportError(err)
}
