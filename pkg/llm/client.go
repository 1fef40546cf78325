// Package llm abstracts the LLM as a completion capability returning
// structured JSON (spec §1): a vendor-agnostic Client interface matching
// the shape of the teacher's agent.LLMClient, flattened to a single
// blocking call since nothing downstream needs streamed chunks.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// ErrMissingCredential names the case of a required API key being absent
// with mock mode not enabled (spec §6.4). No function in this module
// returns it; config's RequireLLMCredential reports that case with its own
// formatted error.
var ErrMissingCredential = errors.New("llm: missing credential and mock mode not enabled")

// Request is one completion call.
type Request struct {
	SystemPrompt    string
	UserPrompt      string
	Model           string
	EstimatedTokens int // used by the rate limiter before the call is made
	Timeout         time.Duration
}

// Response is the raw completion text; callers (extraction, orchestrator)
// parse it against their own schema.
type Response struct {
	Text       string
	TokensUsed int
}

// Client is the completion capability every pipeline depends on.
type Client interface {
	Complete(ctx context.Context, req Request) (Response, error)
}

// ParseJSON unmarshals resp.Text into out, tolerating a ```json fenced
// block around the payload (a common completion-model quirk).
func ParseJSON(resp Response, out any) error {
	text := stripFence(resp.Text)
	return json.Unmarshal([]byte(text), out)
}

func stripFence(s string) string {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "```") {
		return s
	}
	trimmed = strings.TrimPrefix(trimmed, "```")
	if nl := strings.IndexByte(trimmed, '\n'); nl >= 0 {
		firstLine := strings.TrimSpace(trimmed[:nl])
		if firstLine == "" || strings.EqualFold(firstLine, "json") {
			trimmed = trimmed[nl+1:]
		}
	}
	if end := strings.LastIndex(trimmed, "```"); end >= 0 {
		trimmed = trimmed[:end]
	}
	return trimmed
}
