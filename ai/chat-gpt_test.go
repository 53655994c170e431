package ai

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Relay/core"
)

func testConfig(baseURL string) *core.Config {
	conf := &core.Config{}
	conf.OpenAI.ApiKey = "sk-test"
	conf.OpenAI.BaseURL = baseURL
	conf.OpenAI.Model = "gpt-4"
	return conf
}

func testChat(conf *core.Config) *ChatGPT {
	return NewChat(conf, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestCompleteOpenAI(t *testing.T) {
	var got GPTRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, openAIPath, r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = io.WriteString(w, `{"model":"gpt-4","choices":[{"message":{"role":"assistant","content":"World"}}],"usage":{"prompt_tokens":5,"completion_tokens":1}}`)
	}))
	defer srv.Close()

	answer, err := testChat(testConfig(srv.URL)).Complete(context.Background(), "\n---\nHello")
	require.NoError(t, err)
	assert.Equal(t, "World", answer)
	assert.Equal(t, "gpt-4", got.Model)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, Message{Role: "user", Content: "\n---\nHello"}, got.Messages[0])
}

func TestCompleteAzure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/openai/deployments/gpt-4-128k/chat/completions", r.URL.Path)
		assert.Equal(t, "2023-03-15-preview", r.URL.Query().Get("api-version"))
		assert.Equal(t, "sk-test", r.Header.Get("api-key"))
		assert.Empty(t, r.Header.Get("Authorization"))
		_, _ = io.WriteString(w, `{"choices":[{"message":{"role":"assistant","content":"ok"}}]}`)
	}))
	defer srv.Close()

	conf := testConfig(srv.URL + "/")
	conf.OpenAI.ApiVersion = "2023-03-15-preview"
	conf.OpenAI.Deployment = "gpt-4-128k"

	answer, err := testChat(conf).Complete(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "ok", answer)
}

func TestCompleteFailures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"api error", http.StatusUnauthorized, `{"error":{"message":"bad key","code":"invalid_api_key"}}`, "bad key"},
		{"empty choices", http.StatusOK, `{"choices":[]}`, "empty choices"},
		{"not json", http.StatusBadGateway, `<html>bad gateway</html>`, "decoding response"},
		{"status without error body", http.StatusInternalServerError, `{}`, "status"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			_, err := testChat(testConfig(srv.URL)).Complete(context.Background(), "hi")
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestCompleteCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := testChat(testConfig(srv.URL)).Complete(ctx, "hi")
	assert.ErrorIs(t, err, context.Canceled)
}
