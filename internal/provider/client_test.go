package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/openai/openai-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hugo-lorenzo-mato/splitmind/internal/core"
)

// recorder answers every request with a non-retryable 400 and keeps the first one.
type recorder struct {
	mu    sync.Mutex
	first *http.Request
}

func (rec *recorder) server(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.mu.Lock()
		if rec.first == nil {
			rec.first = r.Clone(context.Background())
		}
		rec.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"invalid_request_error","message":"rejected by test"}}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func (rec *recorder) request(t *testing.T) *http.Request {
	t.Helper()
	rec.mu.Lock()
	defer rec.mu.Unlock()
	require.NotNil(t, rec.first, "no request reached the server")
	return rec.first
}

func TestNewAnthropicClient_UsesEndpoint(t *testing.T) {
	rec := &recorder{}
	srv := rec.server(t)

	ep, err := ResolveEndpoint(configFor("anthropic", "sk-ant-REDACTED", srv.URL+"/v1", ""), nil)
	require.NoError(t, err)
	client, err := NewAnthropicClient(ep, ClientOptions{HTTPClient: srv.Client()})
	require.NoError(t, err)

	_, err = client.Messages.New(context.Background(), anthropic.MessageNewParams{
		Model:     anthropic.Model(ep.Model),
		MaxTokens: 16,
		Messages:  []anthropic.MessageParam{anthropic.NewUserMessage(anthropic.NewTextBlock("plan"))},
	})
	require.Error(t, err)

	req := rec.request(t)
	assert.Equal(t, "/v1/messages", req.URL.Path)
	assert.Equal(t, "sk-ant-REDACTED", req.Header.Get("X-Api-Key"))
}

func TestNewOpenAIClient_UsesEndpoint(t *testing.T) {
	rec := &recorder{}
	srv := rec.server(t)

	cfg := configFor("openai", "sk-abcdefghijklmnopqrstu", srv.URL+"/v1", "")
	cfg.APIModel = "gpt-4"
	ep, err := ResolveEndpoint(cfg, nil)
	require.NoError(t, err)
	client, err := NewOpenAIClient(ep, ClientOptions{HTTPClient: srv.Client()})
	require.NoError(t, err)

	_, err = client.Chat.Completions.New(context.Background(), openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(ep.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{openai.UserMessage("plan")},
	})
	require.Error(t, err)

	req := rec.request(t)
	assert.Equal(t, "/v1/chat/completions", req.URL.Path)
	assert.Equal(t, "Bearer sk-abcdefghijklmnopqrstu", req.Header.Get("Authorization"))
}

func TestNewOpenAIClient_Azure(t *testing.T) {
	rec := &recorder{}
	srv := rec.server(t)

	cfg := configFor("azure", "0123456789abc", srv.URL, "")
	cfg.APIModel = "gpt-4"
	ep, err := ResolveEndpoint(cfg, nil)
	require.NoError(t, err)
	client, err := NewOpenAIClient(ep, ClientOptions{HTTPClient: srv.Client()})
	require.NoError(t, err)

	_, err = client.Chat.Completions.New(context.Background(), openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(ep.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{openai.UserMessage("plan")},
	})
	require.Error(t, err)

	req := rec.request(t)
	assert.Contains(t, req.URL.Path, "/openai/deployments/gpt-4/chat/completions")
	assert.Equal(t, "2024-05-01-preview", req.URL.Query().Get("api-version"))
	assert.Equal(t, "0123456789abc", req.Header.Get("Api-Key"))
}

func TestClientFactories_Reject(t *testing.T) {
	anth, err := ResolveEndpoint(configFor("anthropic", "", "", ""), nil)
	require.NoError(t, err)
	oai, err := ResolveEndpoint(configFor("openai", "sk-abcdefghijklmnopqrstu", "", ""), nil)
	require.NoError(t, err)
	ali, err := ResolveEndpoint(configFor("aliyun", "sk-dashscope", "", ""), nil)
	require.NoError(t, err)

	_, err = NewAnthropicClient(anth, ClientOptions{})
	assert.True(t, core.IsCategory(err, core.ErrCatValidation), "missing key: %v", err)

	_, err = NewAnthropicClient(oai, ClientOptions{})
	assert.ErrorContains(t, err, CodeProtocolMismatch)

	_, err = NewOpenAIClient(ali, ClientOptions{})
	assert.ErrorContains(t, err, CodeProtocolMismatch)
}

func TestAnthropicSDKBase(t *testing.T) {
	assert.Equal(t, "https://api.anthropic.com/", anthropicSDKBase("https://api.anthropic.com/v1"))
	assert.Equal(t, "https://proxy.local/", anthropicSDKBase("https://proxy.local"))
}
