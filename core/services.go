package core

import "context"

// CompletionService turns a prompt into model output. One request, no retry.
type CompletionService interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Tokenizer counts model tokens in a text. Implementations must be pure.
type Tokenizer interface {
	Count(text string) int
}

// PageFetcher returns the textual body found at url.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// DocumentLoader downloads an attachment and returns its decoded text.
// Content that is not UTF-8 yields ErrFileNotSupported.
type DocumentLoader interface {
	Load(ctx context.Context, fileId string) (string, error)
}

// FileLocator resolves a chat platform file id into a download URL.
type FileLocator interface {
	FileURL(fileId string) (string, error)
}
