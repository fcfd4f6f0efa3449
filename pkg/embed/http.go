package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// HTTPEncoder calls an OpenAI-compatible /v1/embeddings endpoint, which
// covers hosted APIs and local sentence-transformer servers alike.
type HTTPEncoder struct {
	endpoint string
	apiKey   string
	model    string
	http     *http.Client
}

// HTTPOption configures an HTTPEncoder.
type HTTPOption func(*HTTPEncoder)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) HTTPOption {
	return func(e *HTTPEncoder) { e.http = hc }
}

// DefaultHTTPModel is the sentence-transformer model served locally.
const DefaultHTTPModel = "all-MiniLM-L6-v2"

// NewHTTPEncoder creates an encoder for endpoint. A bare host gets
// "/v1/embeddings" appended.
func NewHTTPEncoder(endpoint, apiKey, model string, timeout time.Duration, opts ...HTTPOption) *HTTPEncoder {
	if model == "" {
		model = DefaultHTTPModel
	}
	if timeout <= 0 {
		timeout = 45 * time.Second
	}
	e := &HTTPEncoder{
		endpoint: normalizeEndpoint(endpoint),
		apiKey:   apiKey,
		model:    model,
		http:     &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func normalizeEndpoint(endpoint string) string {
	endpoint = strings.TrimRight(strings.TrimSpace(endpoint), "/")
	if strings.HasSuffix(endpoint, "/embeddings") {
		return endpoint
	}
	return endpoint + "/v1/embeddings"
}

// Model implements Encoder.
func (e *HTTPEncoder) Model() string { return e.model }

type embeddingsRequest struct {
	Input []string `json:"input"`
	Model string   `json:"model"`
}

type embeddingsResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// StatusError is a non-2xx response from the embeddings endpoint.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("embed: endpoint returned %d: %s", e.StatusCode, e.Body)
}

// Encode implements Encoder.
func (e *HTTPEncoder) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	body, err := json.Marshal(embeddingsRequest{Input: texts, Model: e.model})
	if err != nil {
		return nil, eris.Wrap(err, "embed: marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "embed: create request")
	}
	req.Header.Set("Content-Type", "application/json")
	if e.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.apiKey)
	}

	resp, err := e.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "embed: request")
	}
	defer resp.Body.Close() //nolint:errcheck

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 64<<20))
	if err != nil {
		return nil, eris.Wrap(err, "embed: read response")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet := string(payload)
		if len(snippet) > 200 {
			snippet = snippet[:200]
		}
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: snippet}
	}

	var parsed embeddingsResponse
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return nil, eris.Wrap(err, "embed: decode response")
	}
	if len(parsed.Data) != len(texts) {
		return nil, eris.Errorf("embed: endpoint returned %d embeddings for %d texts", len(parsed.Data), len(texts))
	}

	sort.Slice(parsed.Data, func(i, j int) bool { return parsed.Data[i].Index < parsed.Data[j].Index })
	out := make([][]float32, len(parsed.Data))
	for i, d := range parsed.Data {
		out[i] = d.Embedding
	}
	return out, nil
}
