// Package webhook posts rendered documents to a chat webhook.
package webhook

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"time"

	"golang.org/x/time/rate"

	"github.com/example/gendbuntu/internal/ports/secondary"
)

// Options configures a Notifier.
type Options struct {
	URL           string
	Timeout       time.Duration
	RatePerSecond float64
	Burst         int
}

// Notifier implements secondary.Notifier with a multipart POST.
// An empty URL disables it.
type Notifier struct {
	url     string
	client  *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewNotifier creates a Notifier.
func NewNotifier(opts Options, logger *slog.Logger) *Notifier {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.RatePerSecond <= 0 {
		opts.RatePerSecond = 1
	}
	if opts.Burst < 1 {
		opts.Burst = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{
		url:     opts.URL,
		client:  &http.Client{Timeout: opts.Timeout},
		limiter: rate.NewLimiter(rate.Limit(opts.RatePerSecond), opts.Burst),
		logger:  logger.With("component", "webhook"),
	}
}

// Enabled reports whether a webhook URL is configured.
func (n *Notifier) Enabled() bool {
	return n.url != ""
}

// Notify sends the document as the "file" part and the caption as "content".
// Any non-2xx answer is an error.
func (n *Notifier) Notify(ctx context.Context, msg secondary.Notification) error {
	if !n.Enabled() {
		return nil
	}
	if err := n.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("webhook rate limit: %w", err)
	}

	body, contentType, err := encode(msg)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, body)
	if err != nil {
		return fmt.Errorf("failed to build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("webhook answered %d: %s", resp.StatusCode, bytes.TrimSpace(snippet))
	}
	_, _ = io.Copy(io.Discard, resp.Body)

	n.logger.Debug("webhook delivered", "file", msg.FileName, "status", resp.StatusCode)
	return nil
}

func encode(msg secondary.Notification) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, msg.FileName))
	h.Set("Content-Type", "application/pdf")
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", fmt.Errorf("failed to encode webhook file: %w", err)
	}
	if _, err := part.Write(msg.File); err != nil {
		return nil, "", fmt.Errorf("failed to encode webhook file: %w", err)
	}
	if err := w.WriteField("content", msg.Caption); err != nil {
		return nil, "", fmt.Errorf("failed to encode webhook caption: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to encode webhook body: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}

var _ secondary.Notifier = (*Notifier)(nil)
