package embed

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Image inputs are sent as data URIs with an extra "modality" body field, the
// convention used by CLIP servers exposing the embeddings API.
const (
	modalityField = "modality"
	modalityImage = "image"
	modalityText  = "text"
)

// ErrDimensionMismatch is returned when the server answers with vectors of a
// different length than configured or previously observed.
var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

type client struct {
	api   openai.Client
	model string
	cfg   Config
	mu    sync.Mutex
	dim   int
}

func newClient(cfg Config) *client {
	key := cfg.APIKey
	if key == "" {
		key = "unused"
	}
	opts := []option.RequestOption{
		option.WithAPIKey(key),
		option.WithBaseURL(ensureTrailingSlash(cfg.Endpoint)),
		option.WithRequestTimeout(cfg.Timeout),
		option.WithMaxRetries(cfg.MaxRetries),
	}
	return &client{
		api:   openai.NewClient(opts...),
		model: cfg.Model,
		cfg:   cfg,
		dim:   cfg.Dimension,
	}
}

func ensureTrailingSlash(u string) string {
	if strings.HasSuffix(u, "/") {
		return u
	}
	return u + "/"
}

func (c *client) EncodeImage(ctx context.Context, jpeg []byte) ([]float32, error) {
	if len(jpeg) == 0 {
		return nil, errors.New("empty image")
	}
	uri := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(jpeg)
	return c.embed(ctx, uri, modalityImage)
}

func (c *client) EncodeText(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("empty text")
	}
	return c.embed(ctx, text, modalityText)
}

func (c *client) embed(ctx context.Context, input, modality string) ([]float32, error) {
	resp, err := c.api.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input:          openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: []string{input}},
		Model:          openai.EmbeddingModel(c.model),
		EncodingFormat: openai.EmbeddingNewParamsEncodingFormatFloat,
	}, option.WithJSONSet(modalityField, modality))
	if err != nil {
		return nil, fmt.Errorf("embed %s: %w", modality, err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("embed %s: no embeddings returned", modality)
	}

	raw := resp.Data[0].Embedding
	vec := make([]float32, len(raw))
	for i, v := range raw {
		vec[i] = float32(v)
	}
	if err := c.checkDimension(len(vec)); err != nil {
		return nil, err
	}
	return vec, nil
}

func (c *client) checkDimension(n int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.dim == 0 {
		c.dim = n
		c.cfg.Logger.Info("Detected embedding dimension", "dimension", n, "model", c.model)
		return nil
	}
	if n != c.dim {
		return fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, n, c.dim)
	}
	return nil
}

func (c *client) Dimension() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dim
}

func (c *client) Model() string { return c.model }
