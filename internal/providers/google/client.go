// Package google exposes Gemini models as reader candidates through the
// google.golang.org/genai SDK and discovers the models an API key can use.
package google

import (
	"context"
	"errors"
	"net/http"
	"os"
	"slices"
	"strings"

	"google.golang.org/genai"

	pkgerrors "github.com/agentstation/cardmap/pkg/errors"
	"github.com/agentstation/cardmap/pkg/reader"
)

// ProviderName labels errors raised by this package.
const ProviderName = "google"

// DefaultModels is the preferred candidate order: newest fast models first,
// older ones as fallbacks for keys without access.
var DefaultModels = []string{
	"gemini-2.5-flash",
	"gemini-2.0-flash",
	"gemini-1.5-flash",
	"gemini-2.0-flash-lite",
}

// APIKeyEnvVars are checked in order by APIKeyFromEnv.
var APIKeyEnvVars = []string{"GEMINI_API_KEY", "GOOGLE_API_KEY"}

// APIKeyFromEnv returns the first non-empty API key variable.
func APIKeyFromEnv() string {
	for _, name := range APIKeyEnvVars {
		if v := strings.TrimSpace(os.Getenv(name)); v != "" {
			return v
		}
	}
	return ""
}

// modelsAPI is the subset of genai.Models used here.
type modelsAPI interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
	List(ctx context.Context, config *genai.ListModelsConfig) (genai.Page[genai.Model], error)
}

// Client talks to the Gemini API.
type Client struct {
	models   modelsAPI
	jsonMode bool
}

// Option customizes the client.
type Option func(*Client)

// WithJSONMode asks the model for an application/json response. Models that
// reject the setting fail as unsupported and are skipped by the reader.
func WithJSONMode(enabled bool) Option {
	return func(c *Client) {
		c.jsonMode = enabled
	}
}

// NewClient creates a Gemini API client for apiKey.
func NewClient(ctx context.Context, apiKey string, opts ...Option) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, &pkgerrors.AuthenticationError{
			Provider: ProviderName,
			Method:   "api_key",
			Message:  "set GEMINI_API_KEY or GOOGLE_API_KEY",
			Err:      pkgerrors.ErrAPIKeyRequired,
		}
	}

	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, pkgerrors.NewConfigError(ProviderName, "create genai client", err)
	}
	return newClient(gc.Models, opts...), nil
}

func newClient(models modelsAPI, opts ...Option) *Client {
	c := &Client{models: models}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Candidates returns one reader candidate per model, in order.
func (c *Client) Candidates(models []string) []reader.Candidate {
	out := make([]reader.Candidate, 0, len(models))
	for _, m := range models {
		out = append(out, &candidate{client: c, model: m})
	}
	return out
}

type candidate struct {
	client *Client
	model  string
}

func (m *candidate) Name() string { return m.model }

func (m *candidate) Generate(ctx context.Context, prompt string) (string, error) {
	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr[float32](0),
	}
	if m.client.jsonMode {
		cfg.ResponseMIMEType = "application/json"
	}

	resp, err := m.client.models.GenerateContent(ctx, m.model, genai.Text(prompt), cfg)
	if err != nil {
		return "", translateError(m.model, err)
	}
	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", &pkgerrors.APIError{
			Provider: ProviderName,
			Model:    m.model,
			Message:  "empty response",
		}
	}
	return text, nil
}

// translateError maps SDK errors onto pkg/errors.APIError so the reader can
// classify them by status.
func translateError(model string, err error) error {
	if ctxErr := contextError(err); ctxErr != nil {
		return ctxErr
	}

	var apiErr genai.APIError
	var apiErrPtr *genai.APIError
	switch {
	case errors.As(err, &apiErr):
	case errors.As(err, &apiErrPtr) && apiErrPtr != nil:
		apiErr = *apiErrPtr
	default:
		return &pkgerrors.APIError{Provider: ProviderName, Model: model, Message: err.Error(), Err: err}
	}

	status := apiErr.Status
	if status == "" && apiErr.Code == http.StatusTooManyRequests {
		status = "RESOURCE_EXHAUSTED"
	}
	return &pkgerrors.APIError{
		Provider:   ProviderName,
		Model:      model,
		StatusCode: apiErr.Code,
		Status:     status,
		Message:    apiErr.Message,
		Err:        err,
	}
}

func contextError(err error) error {
	switch {
	case errors.Is(err, context.Canceled):
		return context.Canceled
	case errors.Is(err, context.DeadlineExceeded):
		return context.DeadlineExceeded
	}
	return nil
}

// Discover lists the base models that support generateContent and look
// suitable for short text tasks. Names are returned without the "models/"
// prefix, in API order.
func (c *Client) Discover(ctx context.Context) ([]string, error) {
	var found []string
	pageToken := ""
	for {
		cfg := &genai.ListModelsConfig{
			QueryBase: genai.Ptr(true),
			PageSize:  100,
		}
		if pageToken != "" {
			cfg.PageToken = pageToken
		}

		page, err := c.models.List(ctx, cfg)
		if err != nil {
			return found, translateError("", err)
		}
		for _, m := range page.Items {
			if m == nil || !usable(m) {
				continue
			}
			found = append(found, strings.TrimPrefix(m.Name, "models/"))
		}

		if page.NextPageToken == "" {
			break
		}
		pageToken = page.NextPageToken
	}
	return found, nil
}

var excludedFamilies = []string{"embedding", "tts", "image", "audio", "live", "aqa", "vision"}

func usable(m *genai.Model) bool {
	name := strings.ToLower(m.Name)
	if !strings.Contains(name, "gemini") {
		return false
	}
	for _, family := range excludedFamilies {
		if strings.Contains(name, family) {
			return false
		}
	}
	return slices.Contains(m.SupportedActions, "generateContent")
}

// MergeModels appends discovered models that are not already preferred.
func MergeModels(preferred, discovered []string) []string {
	out := make([]string, 0, len(preferred)+len(discovered))
	seen := make(map[string]bool, cap(out))
	for _, list := range [][]string{preferred, discovered} {
		for _, m := range list {
			m = strings.TrimPrefix(strings.TrimSpace(m), "models/")
			if m == "" || seen[m] {
				continue
			}
			seen[m] = true
			out = append(out, m)
		}
	}
	return out
}
