package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"unicode/utf8"

	"Relay/core"
	"Relay/lib/sl"
)

const tempPattern = "relay-doc-*"

// newlines folds \r\n and lone \r into \n, as text-mode reads do.
var newlines = strings.NewReplacer("\r\n", "\n", "\r", "\n")

// Documents downloads chat attachments through a temporary file and
// decodes them as UTF-8 text.
type Documents struct {
	client  *http.Client
	locator core.FileLocator
	tempDir string
	log     *slog.Logger
}

func NewDocuments(client *http.Client, locator core.FileLocator, log *slog.Logger) *Documents {
	if client == nil {
		client = &http.Client{}
	}
	return &Documents{
		client:  client,
		locator: locator,
		log:     log.With(sl.Module("fetch-doc")),
	}
}

// SetTempDir overrides the directory for downloads, os.TempDir by default.
func (d *Documents) SetTempDir(dir string) {
	d.tempDir = dir
}

func (d *Documents) Load(ctx context.Context, fileId string) (string, error) {
	url, err := d.locator.FileURL(fileId)
	if err != nil {
		return "", fmt.Errorf("locating file: %w", err)
	}

	file, err := os.CreateTemp(d.tempDir, tempPattern)
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	defer func() {
		_ = file.Close()
		if err := os.Remove(file.Name()); err != nil {
			d.log.Warn("removing temp file", slog.String("path", file.Name()), sl.Err(err))
		}
	}()

	if err = d.download(ctx, url, file); err != nil {
		return "", err
	}
	if _, err = file.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("rewinding temp file: %w", err)
	}
	data, err := io.ReadAll(file)
	if err != nil {
		return "", fmt.Errorf("reading temp file: %w", err)
	}

	if !utf8.Valid(data) {
		return "", fmt.Errorf("%w: %s is not utf-8", core.ErrFileNotSupported, fileId)
	}
	d.log.With(slog.String("file", fileId), slog.Int("size", len(data))).Debug("document loaded")
	return newlines.Replace(string(data)), nil
}

func (d *Documents) download(ctx context.Context, url string, dst io.Writer) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("making request: %w", err)
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("downloading file: %w", err)
	}
	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			d.log.Warn("closing body", sl.Err(err))
		}
	}(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("downloading file: status %s", resp.Status)
	}
	if _, err = io.Copy(dst, resp.Body); err != nil {
		return fmt.Errorf("saving file: %w", err)
	}
	return nil
}
