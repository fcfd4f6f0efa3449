// Package completion turns a prompt into schema-validated JSON using an LLM.
package completion

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/brasilintel/internal/resilience"
	"github.com/sells-group/brasilintel/pkg/anthropic"
)

// ErrMalformedResponse is the root of every error caused by model output
// that is not valid JSON or does not satisfy the request schema.
var ErrMalformedResponse = errors.New("completion: malformed response")

// Request is a single structured completion call.
type Request struct {
	System string
	User   string
	// Schema validates the decoded response. Nil skips validation.
	Schema *Schema
	// Phase labels cost logging.
	Phase string
}

// Service performs structured completions.
type Service interface {
	Complete(ctx context.Context, req Request) (json.RawMessage, error)
}

// AnthropicConfig configures AnthropicService.
type AnthropicConfig struct {
	Model     string
	MaxTokens int64
}

// AnthropicService implements Service on top of the Messages API. Calls are
// deterministic (temperature 0).
type AnthropicService struct {
	client anthropic.Client
	cfg    AnthropicConfig
}

// NewAnthropicService creates a completion service.
func NewAnthropicService(client anthropic.Client, cfg AnthropicConfig) *AnthropicService {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 1024
	}
	return &AnthropicService{client: client, cfg: cfg}
}

// Complete sends the prompt and returns the validated JSON object. Errors are
// classified for the retry policy: retryable API statuses become
// resilience.TransientError, malformed output and other API rejections become
// resilience.PermanentError.
func (s *AnthropicService) Complete(ctx context.Context, req Request) (json.RawMessage, error) {
	temp := 0.0
	msgReq := anthropic.MessageRequest{
		Model:       s.cfg.Model,
		MaxTokens:   s.cfg.MaxTokens,
		Messages:    []anthropic.Message{{Role: "user", Content: req.User}},
		Temperature: &temp,
	}
	if req.System != "" {
		msgReq.System = []anthropic.SystemBlock{{Text: req.System}}
	}

	resp, err := s.client.CreateMessage(ctx, msgReq)
	if err != nil {
		return nil, classify(err)
	}
	resp.Usage.LogCost(s.cfg.Model, req.Phase)

	return Decode(resp.Text(), req.Schema)
}

// Decode extracts the JSON object from raw model text and validates it
// against schema.
func Decode(text string, schema *Schema) (json.RawMessage, error) {
	cleaned := cleanJSON(text)
	if cleaned == "" {
		return nil, malformed("empty response")
	}
	if !json.Valid([]byte(cleaned)) {
		return nil, malformed("response is not valid JSON")
	}
	if schema != nil {
		if err := schema.Validate([]byte(cleaned)); err != nil {
			return nil, resilience.NewPermanentError(eris.Wrapf(ErrMalformedResponse, "schema: %v", err))
		}
	}
	return json.RawMessage(cleaned), nil
}

func malformed(reason string) error {
	return resilience.NewPermanentError(eris.Wrap(ErrMalformedResponse, reason))
}

func classify(err error) error {
	code := anthropic.StatusCode(err)
	switch {
	case code == 0:
		// Transport-level failure; resilience.IsTransient inspects the chain.
		return err
	case resilience.IsTransientHTTPStatus(code):
		return resilience.NewTransientError(err, code)
	default:
		return resilience.NewPermanentError(err)
	}
}

// cleanJSON extracts a JSON object from text that may contain markdown code
// fences or surrounding prose.
func cleanJSON(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}

	return strings.TrimSpace(text)
}

// ErrorKind names the failure class of err for telemetry and reasoning text.
func ErrorKind(err error) string {
	var transient *resilience.TransientError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrMalformedResponse):
		return "MalformedResponse"
	case errors.Is(err, resilience.ErrCircuitOpen):
		return "CircuitOpen"
	case errors.Is(err, context.DeadlineExceeded):
		return "Timeout"
	case errors.Is(err, context.Canceled):
		return "Canceled"
	case errors.As(err, &transient) && transient.StatusCode == 429:
		return "RateLimited"
	case anthropic.StatusCode(err) != 0:
		return "APIError"
	case resilience.IsTransient(err):
		return "TransportError"
	default:
		return "Error"
	}
}
