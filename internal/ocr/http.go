package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"

	"github.com/ignite/cardscan/internal/capture"
	"github.com/ignite/cardscan/internal/pkg/httpretry"
)

// HTTPExtractor sends the image to a remote OCR service as a multipart
// upload (field "image") and expects {"text": "..."} back.
type HTTPExtractor struct {
	endpoint string
	client   httpretry.HTTPDoer
}

// NewHTTPExtractor creates an extractor for endpoint. A nil client gets a
// RetryClient with default settings.
func NewHTTPExtractor(endpoint string, client httpretry.HTTPDoer) *HTTPExtractor {
	if client == nil {
		client = httpretry.NewRetryClient(nil, 2)
	}
	return &HTTPExtractor{endpoint: endpoint, client: client}
}

func (e *HTTPExtractor) Name() string { return "http" }

// Endpoint returns the configured service URL.
func (e *HTTPExtractor) Endpoint() string { return e.endpoint }

type httpResponse struct {
	Text  string `json:"text"`
	Error string `json:"error"`
}

func (e *HTTPExtractor) Extract(ctx context.Context, asset *capture.Asset) (string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename="%s.png"`, asset.ID))
	h.Set("Content-Type", "image/png")
	part, err := mw.CreatePart(h)
	if err != nil {
		return "", err
	}
	if _, err := part.Write(asset.PNG); err != nil {
		return "", err
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	payload := body.Bytes()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build ocr request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("%w: read response: %v", ErrUnavailable, err)
	}
	var out httpResponse
	if err := json.Unmarshal(raw, &out); err != nil && resp.StatusCode < 300 {
		return "", fmt.Errorf("%w: decode response: %v", ErrUnavailable, err)
	}
	if resp.StatusCode >= 300 {
		msg := out.Error
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return "", fmt.Errorf("%w: status %d: %s", ErrUnavailable, resp.StatusCode, msg)
	}
	return out.Text, nil
}

// Ping checks the service responds at all. Used by readiness checks.
func (e *HTTPExtractor) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, e.endpoint, nil)
	if err != nil {
		return err
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	if resp.StatusCode >= 500 {
		return fmt.Errorf("ocr service returned %d", resp.StatusCode)
	}
	return nil
}
