package processor

import (
	"encoding/json"
	"strings"

	"github.com/motorlog/motorlog-backend/internal/docprocessing/domain"
)

// errorPayload is checked before kind-specific decoding: the vision
// service reports an absent document as {"error": "..."} rather than
// returning partial fields.
type errorPayload struct {
	Error string `json:"error"`
}

// parseVisionJSON decodes structured vision output into dst. It
// distinguishes three failure modes: the model correctly reporting no
// document (ErrNoDocument), output that is not parseable JSON at all
// (MalformedPayloadError), and downstream missing-field checks which the
// caller handles after a clean parse.
func parseVisionJSON(kind domain.DocumentKind, raw string, dst interface{}) error {
	text := strings.TrimSpace(raw)
	if text == "" || text == "NOT_FOUND" {
		return domain.ErrNoDocument
	}

	text = stripJSONFences(text)

	var sentinel errorPayload
	if err := json.Unmarshal([]byte(text), &sentinel); err != nil {
		return &domain.MalformedPayloadError{DocumentKind: kind, Err: err}
	}
	if sentinel.Error != "" {
		return domain.ErrNoDocument
	}

	if err := json.Unmarshal([]byte(text), dst); err != nil {
		return &domain.MalformedPayloadError{DocumentKind: kind, Err: err}
	}
	return nil
}

// stripJSONFences removes markdown code fences that vision models wrap
// around JSON output, then trims to the outermost object braces.
func stripJSONFences(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
		text = strings.TrimSpace(text)
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		return text[start : end+1]
	}
	return text
}
