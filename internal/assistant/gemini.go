package assistant

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"
)

const (
	defaultModelName = "gemini-2.0-flash"

	errorMessageMissingAPIKey = "assistant: missing api key"
	errorMessageEmptyReply    = "assistant: empty reply"

	systemPromptPattern = "You are the website assistant for %s. Answer visitor " +
		"questions about %s's background, services, and programs in a short, " +
		"friendly tone. If a question is unrelated to the site, politely steer " +
		"the visitor back. Never invent contact details or prices."
)

// ErrMissingAPIKey indicates a completer was requested without an API key.
var ErrMissingAPIKey = errors.New(errorMessageMissingAPIKey)

// Config captures settings for the Gemini completer pool.
type Config struct {
	APIKeys   []string
	ModelName string
	OwnerName string
}

// Completer answers one message with a single Gemini API key.
type Completer struct {
	client       *genai.Client
	modelName    string
	systemPrompt string
}

// NewCompleter creates a completer bound to one API key.
func NewCompleter(ctx context.Context, apiKey string, modelName string, systemPrompt string) (*Completer, error) {
	trimmedKey := strings.TrimSpace(apiKey)
	if trimmedKey == "" {
		return nil, ErrMissingAPIKey
	}
	if modelName == "" {
		modelName = defaultModelName
	}

	client, clientErr := genai.NewClient(ctx, &genai.ClientConfig{APIKey: trimmedKey})
	if clientErr != nil {
		return nil, fmt.Errorf("assistant: create client: %w", clientErr)
	}

	return &Completer{
		client:       client,
		modelName:    modelName,
		systemPrompt: systemPrompt,
	}, nil
}

// NewCompleterPool creates one completer per configured key, preserving the
// configured failover order.
func NewCompleterPool(ctx context.Context, configuration Config) ([]*Completer, error) {
	prompt := SystemPrompt(configuration.OwnerName)

	completers := make([]*Completer, 0, len(configuration.APIKeys))
	for _, apiKey := range configuration.APIKeys {
		if strings.TrimSpace(apiKey) == "" {
			continue
		}
		completer, completerErr := NewCompleter(ctx, apiKey, configuration.ModelName, prompt)
		if completerErr != nil {
			return nil, completerErr
		}
		completers = append(completers, completer)
	}
	return completers, nil
}

// Complete sends one chat completion request and returns the reply text.
func (completer *Completer) Complete(ctx context.Context, message string) (string, error) {
	response, generateErr := completer.client.Models.GenerateContent(
		ctx,
		completer.modelName,
		genai.Text(message),
		&genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(completer.systemPrompt, genai.RoleUser),
		},
	)
	if generateErr != nil {
		return "", fmt.Errorf("assistant: generate content: %w", generateErr)
	}

	reply := strings.TrimSpace(response.Text())
	if reply == "" {
		return "", errors.New(errorMessageEmptyReply)
	}
	return reply, nil
}

// SystemPrompt builds the fixed persona prompt for the site owner.
func SystemPrompt(ownerName string) string {
	trimmedOwner := strings.TrimSpace(ownerName)
	if trimmedOwner == "" {
		trimmedOwner = "the site owner"
	}
	return fmt.Sprintf(systemPromptPattern, trimmedOwner, trimmedOwner)
}

// IsRateLimited reports whether an upstream failure is a rate-limit class
// error worth retrying on the next API key.
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}

	var apiError genai.APIError
	if errors.As(err, &apiError) {
		return apiError.Code == http.StatusTooManyRequests
	}

	return strings.Contains(err.Error(), "429")
}
