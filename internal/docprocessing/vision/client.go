// Package vision calls the hosted vision inference service that turns
// document photos into text, driven by per-kind prompts.
package vision

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/motorlog/motorlog-backend/internal/docprocessing/domain"
	"github.com/motorlog/motorlog-backend/pkg/config"
)

// JPEG and PNG magic bytes for image detection
var (
	jpegMagic = []byte{0xFF, 0xD8, 0xFF}
	pngMagic  = []byte{0x89, 0x50, 0x4E, 0x47}
)

// Client sends document images to the vision service for analysis.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a vision client from configuration.
func NewClient(cfg *config.VisionConfig) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second // Vision inference can take 10-20s
	}
	return &Client{
		baseURL:    cfg.URL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// analyzeResponse mirrors the vision service response model.
type analyzeResponse struct {
	Text             string `json:"text"`
	Model            string `json:"model"`
	ProcessingTimeMs int64  `json:"processing_time_ms"`
}

// Analyze sends an image with the processor's prompt and model hints and
// returns the raw model output. The caller owns the image data and is
// responsible for zeroing it after processing.
func (c *Client) Analyze(ctx context.Context, imageData []byte, meta domain.Metadata, kind domain.DocumentKind) (string, error) {
	if !isImageData(imageData) {
		return "", fmt.Errorf("vision: data is not a JPEG or PNG image")
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", "document.bin")
	if err != nil {
		return "", fmt.Errorf("vision: create form file: %w", err)
	}
	if _, err := part.Write(imageData); err != nil {
		return "", fmt.Errorf("vision: write image data: %w", err)
	}
	fields := map[string]string{
		"kind":        string(kind),
		"prompt":      meta.Prompt,
		"model":       meta.Model,
		"max_tokens":  strconv.Itoa(meta.MaxTokens),
		"temperature": strconv.FormatFloat(meta.Temperature, 'f', -1, 64),
	}
	for name, value := range fields {
		if err := writer.WriteField(name, value); err != nil {
			return "", fmt.Errorf("vision: write %s field: %w", name, err)
		}
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("vision: close multipart writer: %w", err)
	}

	url := c.baseURL + "/api/v1/analyze"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return "", fmt.Errorf("vision: create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("vision: service request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("vision: read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("vision: service returned %d: %s", resp.StatusCode, string(respBody))
	}

	var analyzed analyzeResponse
	if err := json.Unmarshal(respBody, &analyzed); err != nil {
		return "", fmt.Errorf("vision: parse response: %w", err)
	}

	return analyzed.Text, nil
}

// isImageData checks for JPEG or PNG magic bytes at the start of the data.
func isImageData(data []byte) bool {
	if len(data) < 4 {
		return false
	}
	return bytes.HasPrefix(data, jpegMagic) || bytes.HasPrefix(data, pngMagic)
}
