package gemini

import (
	"context"
	"fmt"
	"os"

	"github.com/google/generative-ai-go/genai"
	"github.com/lehigh-university-libraries/pricer/internal/providers"
	"google.golang.org/api/option"
)

// Gemini is a provider for Google Gemini
type Gemini struct {
	APIKey string
	// Schema, when set, constrains JSON responses
	Schema *genai.Schema
}

// New returns a new Gemini provider using GEMINI_API_KEY, or API_KEY as a fallback
func New() *Gemini {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		apiKey = os.Getenv("API_KEY")
	}
	return &Gemini{APIKey: apiKey, Schema: ProductListSchema()}
}

func (g *Gemini) Name() string {
	return "gemini"
}

func (g *Gemini) CheckCredentials() error {
	if g.APIKey == "" {
		return fmt.Errorf("%w: GEMINI_API_KEY environment variable not set", providers.ErrMissingCredential)
	}
	return nil
}

// ProductListSchema describes the array of products expected from a catalog page
func ProductListSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeArray,
		Items: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"name":          {Type: genai.TypeString},
				"originalPrice": {Type: genai.TypeInteger},
				"boundingBox": {
					Type:        genai.TypeArray,
					Items:       &genai.Schema{Type: genai.TypeNumber},
					Description: "ymin, xmin, ymax, xmax",
				},
			},
			Required: []string{"name", "originalPrice", "boundingBox"},
		},
	}
}

// ExtractText sends the prompt and optional image to Gemini
func (g *Gemini) ExtractText(ctx context.Context, config providers.Config) (string, error) {
	if err := g.CheckCredentials(); err != nil {
		return "", err
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(g.APIKey))
	if err != nil {
		return "", fmt.Errorf("failed to create new gemini client: %w", err)
	}
	defer client.Close()

	model := client.GenerativeModel(config.Model)
	model.SetTemperature(float32(config.Temperature))
	if config.JSON {
		model.ResponseMIMEType = "application/json"
		model.ResponseSchema = g.Schema
	}

	parts := []genai.Part{}
	if len(config.Image) > 0 {
		parts = append(parts, genai.ImageData("jpeg", config.Image))
	}
	parts = append(parts, genai.Text(config.Prompt))

	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no candidates returned from Gemini")
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", fmt.Errorf("empty content returned from Gemini")
	}

	if txt, ok := candidate.Content.Parts[0].(genai.Text); ok {
		return string(txt), nil
	}

	return "", fmt.Errorf("unexpected response format from Gemini")
}
