package providers

import (
	"context"
	"errors"
)

// ErrMissingCredential is returned when a provider has no API key configured
var ErrMissingCredential = errors.New("API key missing")

// Config represents the configuration for an LLM provider
type Config struct {
	Model       string
	Temperature float64
	Prompt      string
	Image       []byte // JPEG sent alongside the prompt
	JSON        bool   // ask the provider for a JSON-only response
}

// Provider defines the interface for an LLM provider
type Provider interface {
	Name() string
	// CheckCredentials fails with ErrMissingCredential before any request is attempted
	CheckCredentials() error
	ExtractText(ctx context.Context, config Config) (string, error)
}
