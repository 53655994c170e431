package relay

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"

	"Relay/core"
	"Relay/holder"
	"Relay/lib/sl"
)

// The URL ends at any Unicode whitespace, not only ASCII.
var urlPattern = regexp.MustCompile(`https?://[^\s\v\p{Z}\x{85}\x{1c}-\x{1f}]+`)

// FindURL returns the first http(s) URL in text, or "".
func FindURL(text string) string {
	return urlPattern.FindString(text)
}

// Accumulator merges inbound messages into the sender's context.
type Accumulator struct {
	contexts  *holder.ContextManager
	pages     core.PageFetcher
	documents core.DocumentLoader
	log       *slog.Logger
}

func NewAccumulator(contexts *holder.ContextManager, pages core.PageFetcher, documents core.DocumentLoader, log *slog.Logger) *Accumulator {
	return &Accumulator{
		contexts:  contexts,
		pages:     pages,
		documents: documents,
		log:       log.With(sl.Module("accumulator")),
	}
}

// Accumulate appends every fragment of the event, or nothing when any
// fragment fails, and reports the resulting usage.
func (a *Accumulator) Accumulate(ctx context.Context, event Event) (holder.Usage, error) {
	unlock := a.contexts.Lock(event.UserId)
	defer unlock()

	fragments, err := a.Fragments(ctx, event)
	if err != nil {
		return holder.Usage{}, err
	}
	a.contexts.Append(event.UserId, fragments...)

	usage := a.contexts.Usage(event.UserId)
	a.log.With(
		sl.User(event.UserId),
		slog.String("kind", event.Kind()),
		slog.Int("fragments", len(fragments)),
		slog.Int("tokens", usage.Tokens),
	).Info("context updated")
	if usage.Exceeded() {
		a.log.With(sl.User(event.UserId), slog.Int("limit", usage.Limit)).Warn("context exceeds model limit")
	}
	return usage, nil
}

// Fragments lists, in merge order, the texts an event contributes.
func (a *Accumulator) Fragments(ctx context.Context, event Event) ([]string, error) {
	if event.IsDocument() {
		return a.documentFragments(ctx, event)
	}
	return a.textFragments(ctx, event)
}

func (a *Accumulator) textFragments(ctx context.Context, event Event) ([]string, error) {
	var fragments []string
	if event.Text != "" {
		fragments = append(fragments, event.Text)
	}

	if url := FindURL(event.Text); url != "" {
		body, err := a.pages.Fetch(ctx, url)
		if err != nil {
			return nil, fmt.Errorf("fetching url: %w", err)
		}
		fragments = append(fragments, url+":\n"+body)
	}

	if event.ReplyText != "" {
		fragments = append(fragments, event.ReplyText)
	}

	if event.ReplyDocument != nil {
		content, err := a.loadDocument(ctx, event.ReplyDocument)
		if err != nil {
			return nil, err
		}
		fragments = append(fragments, content)
	}
	return fragments, nil
}

func (a *Accumulator) documentFragments(ctx context.Context, event Event) ([]string, error) {
	var fragments []string
	if event.Caption != "" {
		fragments = append(fragments, event.Caption)
	}
	content, err := a.loadDocument(ctx, event.Document)
	if err != nil {
		return nil, err
	}
	return append(fragments, content), nil
}

func (a *Accumulator) loadDocument(ctx context.Context, doc *Document) (string, error) {
	content, err := a.documents.Load(ctx, doc.FileId)
	if err != nil {
		return "", fmt.Errorf("loading document %q: %w", doc.FileName, err)
	}
	return content, nil
}
