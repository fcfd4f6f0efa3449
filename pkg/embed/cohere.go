package embed

import (
	"context"
	"net/http"
	"time"

	cohere "github.com/cohere-ai/cohere-go/v2"
	cohereclient "github.com/cohere-ai/cohere-go/v2/client"
	"github.com/rotisserie/eris"
)

// DefaultCohereModel handles Portuguese text.
const DefaultCohereModel = "embed-multilingual-v3.0"

// CohereEncoder embeds texts with the Cohere v2 Embed API.
type CohereEncoder struct {
	client *cohereclient.Client
	model  string
}

// CohereOption configures a CohereEncoder.
type CohereOption func(*cohereOptions)

type cohereOptions struct {
	baseURL string
	timeout time.Duration
}

// WithCohereBaseURL overrides the API host (for testing).
func WithCohereBaseURL(url string) CohereOption {
	return func(o *cohereOptions) { o.baseURL = url }
}

// WithCohereTimeout sets the HTTP client timeout.
func WithCohereTimeout(d time.Duration) CohereOption {
	return func(o *cohereOptions) { o.timeout = d }
}

// NewCohereEncoder creates a Cohere-backed encoder. An empty model selects
// DefaultCohereModel.
func NewCohereEncoder(apiKey, model string, opts ...CohereOption) *CohereEncoder {
	o := cohereOptions{timeout: 60 * time.Second}
	for _, opt := range opts {
		opt(&o)
	}
	if model == "" {
		model = DefaultCohereModel
	}

	hc := &http.Client{Timeout: o.timeout}
	var client *cohereclient.Client
	if o.baseURL != "" {
		client = cohereclient.NewClient(
			cohereclient.WithToken(apiKey),
			cohereclient.WithHTTPClient(hc),
			cohereclient.WithBaseURL(o.baseURL),
		)
	} else {
		client = cohereclient.NewClient(
			cohereclient.WithToken(apiKey),
			cohereclient.WithHTTPClient(hc),
		)
	}
	return &CohereEncoder{client: client, model: model}
}

// Model implements Encoder.
func (c *CohereEncoder) Model() string { return c.model }

// Encode implements Encoder.
func (c *CohereEncoder) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	resp, err := c.client.V2.Embed(ctx, &cohere.V2EmbedRequest{
		Texts:          texts,
		Model:          c.model,
		InputType:      cohere.EmbedInputTypeClustering,
		EmbeddingTypes: []cohere.EmbeddingType{cohere.EmbeddingTypeFloat},
	})
	if err != nil {
		return nil, eris.Wrap(err, "embed: cohere request")
	}
	if resp == nil || resp.Embeddings == nil || resp.Embeddings.Float == nil {
		return nil, eris.New("embed: cohere returned no float embeddings")
	}

	floats := resp.Embeddings.Float
	if len(floats) != len(texts) {
		return nil, eris.Errorf("embed: cohere returned %d embeddings for %d texts", len(floats), len(texts))
	}

	out := make([][]float32, len(floats))
	for i, vec := range floats {
		fv := make([]float32, len(vec))
		for j, v := range vec {
			fv[j] = float32(v)
		}
		out[i] = fv
	}
	return out, nil
}
