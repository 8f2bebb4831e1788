// Package extraction asks a vision model for the products printed on a
// catalog page and turns its answer into validated candidates.
package extraction

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/lehigh-university-libraries/pricer/internal/gemini"
	"github.com/lehigh-university-libraries/pricer/internal/models"
	"github.com/lehigh-university-libraries/pricer/internal/ollama"
	"github.com/lehigh-university-libraries/pricer/internal/openai"
	"github.com/lehigh-university-libraries/pricer/internal/providers"
)

const defaultTemperature = 0.1

const pagePrompt = `Analyze this image of a Paraguayan perfume catalog.
Identify all products listed.
For each product, extract:
1. Name
2. Price in Guaraníes (convert "120.000" to integer 120000).
3. The bounding box of the PERFUME BOTTLE image associated with that price.
   If there are multiple products, be precise matching the photo to the text.

Format: Return a JSON array of objects with the fields "name" (string),
"originalPrice" (integer) and "boundingBox" ([ymin, xmin, ymax, xmax] normalized 0-1).
If the answer must be a JSON object, return {"products": [...]} holding that array.`

// NewProvider returns the provider registered under name. An empty name
// falls back to PRICER_PROVIDER and then gemini.
func NewProvider(name string) (providers.Provider, error) {
	if name == "" {
		name = os.Getenv("PRICER_PROVIDER")
	}
	switch name {
	case "", "gemini":
		return gemini.New(), nil
	case "openai":
		return openai.New(), nil
	case "ollama":
		return ollama.New(), nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", name)
	}
}

// DefaultModel returns the model for provider, honouring <PROVIDER>_MODEL
func DefaultModel(provider string) string {
	switch provider {
	case "gemini":
		if model := os.Getenv("GEMINI_MODEL"); model != "" {
			return model
		}
		return "gemini-2.5-flash"
	case "openai":
		if model := os.Getenv("OPENAI_MODEL"); model != "" {
			return model
		}
		return "gpt-4o"
	case "ollama":
		if model := os.Getenv("OLLAMA_MODEL"); model != "" {
			return model
		}
		return "mistral-small3.2:24b"
	default:
		return ""
	}
}

// Client extracts product candidates from page images
type Client struct {
	provider    providers.Provider
	model       string
	temperature float64
}

// NewClient wraps provider; an empty model selects the provider default
func NewClient(provider providers.Provider, model string) *Client {
	if model == "" {
		model = DefaultModel(provider.Name())
	}
	return &Client{
		provider:    provider,
		model:       model,
		temperature: defaultTemperature,
	}
}

// Model is the model name sent to the provider
func (c *Client) Model() string {
	return c.model
}

// Ready reports a configuration error, such as a missing API key
func (c *Client) Ready() error {
	return c.provider.CheckCredentials()
}

// Extract returns the products found on one JPEG page. Any failure is
// logged and yields no candidates so the remaining pages still get processed.
func (c *Client) Extract(ctx context.Context, page []byte) []models.Candidate {
	if len(page) == 0 {
		slog.Warn("Invalid image data provided for extraction")
		return nil
	}

	raw, err := c.provider.ExtractText(ctx, providers.Config{
		Model:       c.model,
		Temperature: c.temperature,
		Prompt:      pagePrompt,
		Image:       page,
		JSON:        true,
	})
	if err != nil {
		slog.Error("Page analysis failed", "provider", c.provider.Name(), "model", c.model, "err", err)
		return nil
	}

	candidates, err := ParseCandidates(raw)
	if err != nil {
		slog.Error("Unable to parse page analysis", "provider", c.provider.Name(), "err", err, "length", len(raw))
		return nil
	}

	slog.Debug("Page analyzed", "provider", c.provider.Name(), "candidates", len(candidates))
	return candidates
}

// ParseCandidates validates a model response. It accepts a JSON array, or an
// object holding the array under "products", optionally wrapped in markdown
// code fences.
func ParseCandidates(response string) ([]models.Candidate, error) {
	response = stripCodeFences(response)
	if response == "" {
		return nil, nil
	}

	var payload interface{}
	if err := json.Unmarshal([]byte(response), &payload); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}

	var items []interface{}
	switch v := payload.(type) {
	case []interface{}:
		items = v
	case map[string]interface{}:
		list, ok := productList(v)
		if !ok {
			return nil, fmt.Errorf("response object has no product list")
		}
		items = list
	default:
		return nil, fmt.Errorf("unexpected response type %T", payload)
	}

	candidates := make([]models.Candidate, 0, len(items))
	for i, item := range items {
		obj, ok := item.(map[string]interface{})
		if !ok {
			slog.Warn("Dropping malformed product", "index", i)
			continue
		}
		candidates = append(candidates, models.Candidate{
			Name:          parseName(obj["name"]),
			OriginalPrice: parsePrice(obj["originalPrice"]),
			BoundingBox:   parseBox(obj["boundingBox"]),
		})
	}
	return candidates, nil
}

// productList finds the products inside a JSON object. JSON-only modes force
// an object, so the array may sit under "products" or any other key; an object
// that is itself a product counts as a list of one.
func productList(obj map[string]interface{}) ([]interface{}, bool) {
	if list, ok := obj["products"].([]interface{}); ok {
		return list, true
	}

	keys := make([]string, 0, len(obj))
	for key := range obj {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if list, ok := obj[key].([]interface{}); ok && key != "boundingBox" {
			return list, true
		}
	}

	_, hasName := obj["name"]
	_, hasPrice := obj["originalPrice"]
	if hasName || hasPrice {
		return []interface{}{obj}, true
	}
	return nil, false
}

func stripCodeFences(s string) string {
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}

func parseName(v interface{}) string {
	name, _ := v.(string)
	name = strings.TrimSpace(name)
	if name == "" {
		return models.DefaultProductName
	}
	return name
}

// parsePrice accepts numbers and price strings written the local way:
// "120.000", "Gs. 120.000" or "120.000,50". Anything else, including
// negative amounts, yields 0.
func parsePrice(v interface{}) int64 {
	var price float64
	switch p := v.(type) {
	case float64:
		price = p
	case string:
		f, ok := parsePriceString(p)
		if !ok {
			slog.Debug("Ignoring unparsable price", "price", p)
			return 0
		}
		price = f
	default:
		return 0
	}
	if math.IsNaN(price) || math.IsInf(price, 0) || price < 0 {
		return 0
	}
	return int64(math.Round(price))
}

var (
	groupedPrice = regexp.MustCompile(`^\d{1,3}(\.\d{3})+(,\d+)?$`)
	plainPrice   = regexp.MustCompile(`^\d+([.,]\d+)?$`)
)

func parsePriceString(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	for _, prefix := range []string{"Gs.", "Gs", "₲"} {
		s = strings.TrimSpace(strings.TrimPrefix(s, prefix))
	}
	s = strings.ReplaceAll(s, " ", "")

	switch {
	case groupedPrice.MatchString(s):
		s = strings.ReplaceAll(s, ".", "")
	case plainPrice.MatchString(s):
	default:
		return 0, false
	}

	f, err := strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// parseBox keeps the box only when every element is a number. A box of the
// wrong length is returned as is so cropping can reject it.
func parseBox(v interface{}) []float64 {
	list, ok := v.([]interface{})
	if !ok {
		return nil
	}
	box := make([]float64, 0, len(list))
	for _, item := range list {
		f, ok := item.(float64)
		if !ok {
			return nil
		}
		box = append(box, f)
	}
	return box
}
