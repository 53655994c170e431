package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"Relay/lib/sl"
)

// Web fetches pages referenced in user messages.
type Web struct {
	client    *http.Client
	log       *slog.Logger
	stripHTML bool
}

func NewWeb(client *http.Client, stripHTML bool, log *slog.Logger) *Web {
	if client == nil {
		client = &http.Client{}
	}
	return &Web{
		client:    client,
		log:       log.With(sl.Module("fetch-web")),
		stripHTML: stripHTML,
	}
}

// Fetch returns the body at url. With stripHTML set, HTML pages are reduced
// to the visible text of their body.
func (w *Web) Fetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("making request: %w", err)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("getting %s: %w", url, err)
	}
	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			w.log.Warn("closing body", sl.Err(err))
		}
	}(resp.Body)

	// error pages are still page content
	if resp.StatusCode >= http.StatusBadRequest {
		w.log.With(slog.String("url", url), slog.Int("status", resp.StatusCode)).Warn("page status")
	}

	if w.stripHTML && isHTML(resp.Header.Get("Content-Type")) {
		doc, err := goquery.NewDocumentFromReader(resp.Body)
		if err != nil {
			return "", fmt.Errorf("parsing html: %w", err)
		}
		doc.Find("script, style, noscript").Remove()
		text := strings.Join(strings.Fields(doc.Find("body").Text()), " ")
		w.log.With(slog.String("url", url), slog.Int("length", len(text))).Debug("page text")
		return text, nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading body: %w", err)
	}
	w.log.With(slog.String("url", url), slog.Int("length", len(body))).Debug("page body")
	return string(body), nil
}

func isHTML(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "text/html" || mediaType == "application/xhtml+xml"
}
