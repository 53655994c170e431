package relay

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	"Relay/core"
	"Relay/holder"
	"Relay/storage"
	"Relay/tokens"
)

var errFake = errors.New("fake failure")

type fakePages struct {
	bodies map[string]string
	calls  []string
}

func (f *fakePages) Fetch(_ context.Context, url string) (string, error) {
	f.calls = append(f.calls, url)
	body, ok := f.bodies[url]
	if !ok {
		return "", errFake
	}
	return body, nil
}

type fakeDocuments struct {
	files map[string]string
}

func (f *fakeDocuments) Load(_ context.Context, fileId string) (string, error) {
	content, ok := f.files[fileId]
	if !ok {
		return "", core.ErrFileNotSupported
	}
	return content, nil
}

type fakeCompletion struct {
	mu      sync.Mutex
	answer  string
	err     error
	prompts []string
}

func (f *fakeCompletion) Complete(_ context.Context, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", f.err
	}
	return f.answer, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newContexts() *holder.ContextManager {
	return holder.NewContextManager(storage.NewMemoryStorage(), tokens.Estimate{}, 0)
}
