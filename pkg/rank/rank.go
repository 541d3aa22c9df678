// Package rank orders local video files by visual similarity to a text query.
package rank

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/28jackiiee/video-scraping/pkg/embed"
	"github.com/28jackiiee/video-scraping/pkg/video"
)

// DefaultFrames is the number of frames sampled per video.
const DefaultFrames = 8

// FrameSource probes and decodes video frames.
type FrameSource interface {
	FrameCount(ctx context.Context, path string) (int, error)
	Frame(ctx context.Context, path string, index int) ([]byte, error)
}

// Result is one ranked video. Index is the position of Path in the input.
type Result struct {
	Path  string  `json:"path" yaml:"path"`
	Score float64 `json:"score" yaml:"score"`
	Index int     `json:"index" yaml:"index"`
	// Unrankable is set when no frame could be embedded.
	Unrankable bool `json:"unrankable,omitempty" yaml:"unrankable,omitempty"`
}

// Ranker embeds videos and queries with one encoder.
type Ranker struct {
	frames  FrameSource
	enc     embed.Encoder
	samples int
	logger  *slog.Logger
}

// Option customizes a Ranker.
type Option func(*Ranker)

// WithFrames sets the number of sampled frames per video.
func WithFrames(n int) Option {
	return func(r *Ranker) {
		if n > 0 {
			r.samples = n
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(r *Ranker) {
		if l != nil {
			r.logger = l
		}
	}
}

func New(frames FrameSource, enc embed.Encoder, opts ...Option) *Ranker {
	r := &Ranker{
		frames:  frames,
		enc:     enc,
		samples: DefaultFrames,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Ranker) zero() []float32 {
	return make([]float32, r.enc.Dimension())
}

// EmbedVideo returns the mean of the L2-normalized embeddings of evenly spaced
// frames. The mean is not re-normalized. A video that cannot be probed or has
// no embeddable frame yields a zero vector; only context errors are returned.
func (r *Ranker) EmbedVideo(ctx context.Context, path string) ([]float32, error) {
	log := r.logger.With("path", path)

	total, err := r.frames.FrameCount(ctx, path)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		log.Warn("Cannot open video", "error", err)
		return r.zero(), nil
	}
	if total <= 0 {
		log.Warn("Video has no frames")
		return r.zero(), nil
	}

	var embeddings [][]float32
	for _, idx := range video.FrameIndices(total, r.samples) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		img, err := r.frames.Frame(ctx, path, idx)
		if err != nil {
			log.Debug("Frame decode failed", "frame", idx, "error", err)
			continue
		}
		vec, err := r.enc.EncodeImage(ctx, img)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			log.Warn("Frame embedding failed", "frame", idx, "error", err)
			continue
		}
		embeddings = append(embeddings, embed.Normalize(vec))
	}

	mean := embed.Mean(embeddings)
	if mean == nil {
		log.Warn("No frame could be embedded", "frames", total)
		return r.zero(), nil
	}
	return mean, nil
}

// EmbedText returns the L2-normalized embedding of query.
func (r *Ranker) EmbedText(ctx context.Context, query string) ([]float32, error) {
	vec, err := r.enc.EncodeText(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query %q: %w", query, err)
	}
	return embed.Normalize(vec), nil
}

// Similarity is the cosine similarity of a and b, or 0 when either is zero or
// their lengths differ.
func Similarity(a, b []float32) float64 {
	return embed.Cosine(a, b)
}

// Score embeds each video and scores it against an embedded query, keeping
// input order.
func (r *Ranker) Score(ctx context.Context, paths []string, query []float32) ([]Result, error) {
	results := make([]Result, 0, len(paths))
	for i, p := range paths {
		vec, err := r.EmbedVideo(ctx, p)
		if err != nil {
			return results, err
		}
		res := Result{Path: p, Index: i, Score: Similarity(vec, query)}
		res.Unrankable = embed.Norm(vec) == 0
		r.logger.Debug("Scored video", "path", p, "score", res.Score)
		results = append(results, res)
	}
	return results, nil
}

// Rank embeds query once, scores every video and returns the topK best.
// topK <= 0 or larger than the input returns every video.
func (r *Ranker) Rank(ctx context.Context, paths []string, query string, topK int) ([]Result, error) {
	q, err := r.EmbedText(ctx, query)
	if err != nil {
		return nil, err
	}
	r.logger.Info("Ranking videos", "query", query, "videos", len(paths), "top_k", topK)

	results, err := r.Score(ctx, paths, q)
	if err != nil {
		return nil, err
	}
	return TopK(results, topK), nil
}

// TopK sorts results by descending score, ties kept in input order, and
// returns the first k. The input slice is not modified.
func TopK(results []Result, k int) []Result {
	out := append([]Result(nil), results...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	if k > 0 && k < len(out) {
		out = out[:k]
	}
	return out
}
