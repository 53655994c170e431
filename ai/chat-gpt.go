package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"Relay/core"
	"Relay/lib/sl"
)

const openAIPath = "/v1/chat/completions"

type ChatGPT struct {
	conf       *core.Config
	log        *slog.Logger
	httpClient *http.Client
	endpoint   string
}

func NewChat(conf *core.Config, log *slog.Logger) *ChatGPT {
	c := &ChatGPT{
		conf: conf,
		log:  log.With(sl.Module("chat-gpt")),
		httpClient: &http.Client{
			Timeout: conf.OpenAI.Timeout,
		},
	}
	c.endpoint = c.composeEndpoint()
	c.log.With(
		slog.String("endpoint", c.endpoint),
		slog.String("model", conf.OpenAI.Model),
		sl.Secret(conf.OpenAI.ApiKey),
	).Debug("completion client")
	return c
}

func (c *ChatGPT) composeEndpoint() string {
	base := strings.TrimRight(c.conf.OpenAI.BaseURL, "/")
	if !c.conf.IsAzure() {
		return base + openAIPath
	}
	return fmt.Sprintf("%s/openai/deployments/%s/chat/completions?api-version=%s",
		base, url.PathEscape(c.conf.OpenAI.Deployment), url.QueryEscape(c.conf.OpenAI.ApiVersion))
}

// Complete sends the prompt as a single user message and returns the first choice.
// Errors are logged here and returned to the caller.
func (c *ChatGPT) Complete(ctx context.Context, prompt string) (string, error) {
	response, err := c.complete(ctx, prompt)
	if err != nil {
		c.log.Error("completion failed", sl.Err(err))
		return "", err
	}
	return response, nil
}

func (c *ChatGPT) complete(ctx context.Context, prompt string) (string, error) {
	request := NewRequest(prompt, c.conf.OpenAI.Model)
	jsonBytes, err := json.Marshal(request)
	if err != nil {
		return "", fmt.Errorf("marshalling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(jsonBytes))
	if err != nil {
		return "", fmt.Errorf("making request: %w", err)
	}
	if c.conf.IsAzure() {
		req.Header.Set("api-key", c.conf.OpenAI.ApiKey)
	} else {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.conf.OpenAI.ApiKey))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("getting response: %w", err)
	}
	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			c.log.Warn("closing response body", sl.Err(err))
		}
	}(resp.Body)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response body: %w", err)
	}
	c.log.With(
		slog.Int("status", resp.StatusCode),
		sl.Clip("body", string(body)),
	).Debug("response body")

	var chatCompletion ChatCompletion
	if err = json.Unmarshal(body, &chatCompletion); err != nil {
		return "", fmt.Errorf("decoding response (status %d): %w", resp.StatusCode, err)
	}
	if chatCompletion.Error != nil {
		return "", fmt.Errorf("completion api: %s", chatCompletion.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("completion api: status %s", resp.Status)
	}
	if len(chatCompletion.Choices) == 0 {
		return "", fmt.Errorf("chat completion: empty choices")
	}

	logger := c.log.With(
		slog.String("model", chatCompletion.Model),
		slog.Int("choices", len(chatCompletion.Choices)),
	)
	if chatCompletion.Usage != nil {
		logger = logger.With(
			slog.Int("prompt_tokens", chatCompletion.Usage.PromptTokens),
			slog.Int("completion_tokens", chatCompletion.Usage.CompletionTokens),
		)
	}
	logger.Info("chat completion")

	return chatCompletion.Choices[0].Message.Content, nil
}
