package metrics

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestServerExposesCounters(t *testing.T) {
	Actions.WithLabelValues("Send").Inc()
	Events.WithLabelValues("text").Inc()
	Failures.WithLabelValues("fetch").Inc()
	ContextTokens.Observe(42)

	s := NewServer("127.0.0.1:0", discardLogger())
	require.NoError(t, s.Start())
	defer func() { assert.NoError(t, s.Stop(context.Background())) }()

	resp, err := http.Get("http://" + s.Addr().String() + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `relay_actions_total{action="Send"}`)
	assert.Contains(t, string(body), `relay_events_total{kind="text"}`)
	assert.Contains(t, string(body), `relay_failures_total{stage="fetch"}`)
	assert.Contains(t, string(body), "relay_context_tokens_bucket")
}

func TestServerBadBind(t *testing.T) {
	s := NewServer("not-an-address", discardLogger())
	assert.Error(t, s.Start())
	assert.Nil(t, s.Addr())
}
