// Package embed converts video frames and query text into vectors in a shared
// image/text space served by an OpenAI-compatible embeddings endpoint running a
// CLIP-family model.
//
//	enc := embed.New(embed.Config{
//	    Endpoint: "http://127.0.0.1:8003/v1/",
//	    Model:    "clip-vit-b-32",
//	})
//	q, err := enc.EncodeText(ctx, "waves crashing on rocks")
package embed

import (
	"context"
	"log/slog"
	"time"
)

// Encoder produces raw, unnormalized embeddings.
type Encoder interface {
	// EncodeImage embeds one JPEG-encoded frame.
	EncodeImage(ctx context.Context, jpeg []byte) ([]float32, error)
	EncodeText(ctx context.Context, text string) ([]float32, error)
	// Dimension is 0 until the first response when not configured.
	Dimension() int
	Model() string
}

// Config configures the encoder.
type Config struct {
	// Endpoint is the API base URL including the version segment. Empty
	// selects the zero-vector encoder.
	Endpoint  string        `json:"endpoint" yaml:"endpoint"`
	Model     string        `json:"model" yaml:"model"`
	Dimension int           `json:"dimension" yaml:"dimension"`
	APIKey    string        `json:"-" yaml:"-"`
	Timeout   time.Duration `json:"timeout" yaml:"timeout"`
	// MaxRetries applies to transport failures and 5xx responses.
	MaxRetries int          `json:"max_retries" yaml:"max_retries"`
	Logger     *slog.Logger `json:"-" yaml:"-"`
}

const (
	DefaultModel     = "clip-vit-b-32"
	DefaultDimension = 512
)

func (c *Config) defaults() {
	if c.Model == "" {
		c.Model = DefaultModel
	}
	if c.Timeout <= 0 {
		c.Timeout = 60 * time.Second
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// New returns an Encoder for cfg. Without an endpoint it returns an encoder
// that yields zero vectors of the configured dimension.
func New(cfg Config) Encoder {
	cfg.defaults()
	if cfg.Endpoint == "" {
		dim := cfg.Dimension
		if dim <= 0 {
			dim = DefaultDimension
		}
		cfg.Logger.Warn("No embedding endpoint configured, every score will be 0")
		return &noopEncoder{dim: dim, model: cfg.Model}
	}
	return newClient(cfg)
}

type noopEncoder struct {
	dim   int
	model string
}

func (n *noopEncoder) EncodeImage(_ context.Context, _ []byte) ([]float32, error) {
	return make([]float32, n.dim), nil
}

func (n *noopEncoder) EncodeText(_ context.Context, _ string) ([]float32, error) {
	return make([]float32, n.dim), nil
}

func (n *noopEncoder) Dimension() int { return n.dim }
func (n *noopEncoder) Model() string  { return n.model }
