package google

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	pkgerrors "github.com/agentstation/cardmap/pkg/errors"
)

type fakeModels struct {
	generate func(model string) (*genai.GenerateContentResponse, error)
	pages    []genai.Page[genai.Model]
	err      error

	lastConfig *genai.GenerateContentConfig
	listCalls  []*genai.ListModelsConfig
}

func (f *fakeModels) GenerateContent(_ context.Context, model string, _ []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.lastConfig = config
	return f.generate(model)
}

func (f *fakeModels) List(_ context.Context, config *genai.ListModelsConfig) (genai.Page[genai.Model], error) {
	f.listCalls = append(f.listCalls, config)
	if f.err != nil {
		return genai.Page[genai.Model]{}, f.err
	}
	page := f.pages[0]
	f.pages = f.pages[1:]
	return page, nil
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{{Text: text}}},
		}},
	}
}

func TestCandidateGenerate(t *testing.T) {
	fake := &fakeModels{generate: func(model string) (*genai.GenerateContentResponse, error) {
		return textResponse(`{"龍": "リュウ"}`), nil
	}}
	client := newClient(fake, WithJSONMode(true))

	cands := client.Candidates([]string{"gemini-2.5-flash", "gemini-2.0-flash"})
	require.Len(t, cands, 2)
	assert.Equal(t, "gemini-2.5-flash", cands[0].Name())

	text, err := cands[0].Generate(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Equal(t, `{"龍": "リュウ"}`, text)
	assert.Equal(t, "application/json", fake.lastConfig.ResponseMIMEType)
	require.NotNil(t, fake.lastConfig.Temperature)
	assert.Zero(t, *fake.lastConfig.Temperature)
}

func TestCandidateGenerateErrors(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		rateLimited bool
		notFound    bool
	}{
		{"quota", genai.APIError{Code: 429, Status: "RESOURCE_EXHAUSTED", Message: "quota"}, true, false},
		{"quota pointer", &genai.APIError{Code: 429, Message: "quota"}, true, false},
		{"missing model", genai.APIError{Code: 404, Status: "NOT_FOUND", Message: "models/x is not found"}, false, true},
		{"wrapped", fmt.Errorf("call: %w", genai.APIError{Code: 503, Status: "UNAVAILABLE"}), false, false},
		{"plain", fmt.Errorf("dial tcp: timeout"), false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeModels{generate: func(string) (*genai.GenerateContentResponse, error) {
				return nil, tt.err
			}}
			_, err := newClient(fake).Candidates([]string{"gemini-x"})[0].Generate(context.Background(), "p")
			require.Error(t, err)

			var apiErr *pkgerrors.APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, "gemini-x", apiErr.Model)
			assert.Equal(t, tt.rateLimited, pkgerrors.IsRateLimited(err))
			assert.Equal(t, tt.notFound, pkgerrors.IsNotFound(err))
		})
	}

	t.Run("context", func(t *testing.T) {
		fake := &fakeModels{generate: func(string) (*genai.GenerateContentResponse, error) {
			return nil, fmt.Errorf("request: %w", context.DeadlineExceeded)
		}}
		_, err := newClient(fake).Candidates([]string{"m"})[0].Generate(context.Background(), "p")
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("empty response", func(t *testing.T) {
		fake := &fakeModels{generate: func(string) (*genai.GenerateContentResponse, error) {
			return &genai.GenerateContentResponse{}, nil
		}}
		_, err := newClient(fake).Candidates([]string{"m"})[0].Generate(context.Background(), "p")
		assert.Error(t, err)
	})
}

func TestDiscover(t *testing.T) {
	gen := []string{"generateContent", "countTokens"}
	fake := &fakeModels{pages: []genai.Page[genai.Model]{
		{
			Items: []*genai.Model{
				{Name: "models/gemini-2.5-pro", SupportedActions: gen},
				{Name: "models/text-embedding-004", SupportedActions: []string{"embedContent"}},
				{Name: "models/gemini-embedding-001", SupportedActions: gen},
			},
			NextPageToken: "next",
		},
		{
			Items: []*genai.Model{
				{Name: "models/gemini-2.5-flash-preview-tts", SupportedActions: gen},
				{Name: "models/gemini-2.5-flash-lite", SupportedActions: gen},
				{Name: "models/gemma-3-27b-it", SupportedActions: gen},
			},
		},
	}}

	models, err := newClient(fake).Discover(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"gemini-2.5-pro", "gemini-2.5-flash-lite"}, models)

	require.Len(t, fake.listCalls, 2)
	assert.Equal(t, "next", fake.listCalls[1].PageToken)
	assert.True(t, *fake.listCalls[0].QueryBase)
}

func TestDiscoverError(t *testing.T) {
	fake := &fakeModels{err: genai.APIError{Code: 403, Message: "permission denied"}}
	_, err := newClient(fake).Discover(context.Background())
	var apiErr *pkgerrors.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 403, apiErr.StatusCode)
}

func TestMergeModels(t *testing.T) {
	got := MergeModels(DefaultModels, []string{"models/gemini-2.5-pro", "gemini-2.0-flash", "", "gemini-2.5-pro"})
	assert.Equal(t, []string{
		"gemini-2.5-flash", "gemini-2.0-flash", "gemini-1.5-flash", "gemini-2.0-flash-lite", "gemini-2.5-pro",
	}, got)
}

func TestNewClientRequiresKey(t *testing.T) {
	_, err := NewClient(context.Background(), "  ")
	assert.True(t, pkgerrors.IsAPIKeyError(err))
}

func TestAPIKeyFromEnv(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GOOGLE_API_KEY", "from-google")
	assert.Equal(t, "from-google", APIKeyFromEnv())

	t.Setenv("GEMINI_API_KEY", "from-gemini")
	assert.Equal(t, "from-gemini", APIKeyFromEnv())
}
