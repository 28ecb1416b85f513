// Package ocr talks to the external LaTeX-OCR service that converts images
// of math problems into LaTeX.
package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

const defaultTimeout = 30 * time.Second

// Client posts images to the recognizer and returns the LaTeX text.
type Client struct {
	baseURL string
	httpc   *http.Client
}

// NewClient builds a client for the recognizer at baseURL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   &http.Client{Timeout: timeout},
	}
}

// Recognize uploads the image bytes and returns the recognized LaTeX.
func (c *Client) Recognize(ctx context.Context, filename string, image []byte) (string, error) {
	if c.baseURL == "" {
		return "", errors.New("ocr service not configured")
	}
	if len(image) == 0 {
		return "", errors.New("image is empty")
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("build upload form: %w", err)
	}
	if _, err := part.Write(image); err != nil {
		return "", fmt.Errorf("build upload form: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("build upload form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/predict/", &body)
	if err != nil {
		return "", fmt.Errorf("build ocr request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpc.Do(req)
	if err != nil {
		return "", fmt.Errorf("call ocr service: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read ocr response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ocr service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(payload)))
	}

	// The recognizer replies with a JSON-encoded string.
	var latex string
	if err := json.Unmarshal(payload, &latex); err != nil {
		return "", fmt.Errorf("decode ocr response: %w", err)
	}
	if strings.TrimSpace(latex) == "" {
		return "", errors.New("ocr service returned no text")
	}
	return latex, nil
}
