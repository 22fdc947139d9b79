package segmenter

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/alqutdigital/doc-chunker/internal/chunker"
	"github.com/alqutdigital/doc-chunker/internal/llm"
)

// MinOracleTokens is the estimated size below which a document is never sent to the oracle.
const MinOracleTokens = 50

// SegmentCache stores segmentations of previously seen documents.
type SegmentCache interface {
	GetSegments(ctx context.Context, key string) ([]chunker.RawSegment, bool)
	SetSegments(ctx context.Context, key string, segs []chunker.RawSegment)
}

// OracleConfig holds the tunables of the semantic segmentation client.
type OracleConfig struct {
	// MinTokens is the eligibility floor. Defaults to MinOracleTokens.
	MinTokens int
	// TypedFallback returns {text, title, chunk_type} instead of a bare span on failure. Raw shape
	// only; Normalize maps both to the same segment.
	TypedFallback bool
	// RequestsPerMinute caps the request rate. Zero disables the limiter.
	RequestsPerMinute int
	MaxTokens         int
	Temperature       float64
}

// OracleClient asks an LLM to split a document into logical sections. It never returns an error:
// every failure degrades to a single segment holding the whole text.
type OracleClient struct {
	provider llm.Provider
	cache    SegmentCache
	limiter  *rate.Limiter
	config   OracleConfig
	logger   *slog.Logger
}

// OracleOption configures an OracleClient.
type OracleOption func(*OracleClient)

// WithSegmentCache enables caching of successful segmentations.
func WithSegmentCache(cache SegmentCache) OracleOption {
	return func(c *OracleClient) {
		c.cache = cache
	}
}

// NewOracleClient creates a client around provider. Credentials and model are bound to the
// provider.
func NewOracleClient(provider llm.Provider, cfg OracleConfig, logger *slog.Logger, opts ...OracleOption) *OracleClient {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MinTokens <= 0 {
		cfg.MinTokens = MinOracleTokens
	}

	c := &OracleClient{
		provider: provider,
		config:   cfg,
		logger:   logger.With("component", "oracle_client", "model", provider.Model()),
	}
	if cfg.RequestsPerMinute > 0 {
		c.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), 1)
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Segment returns the raw segments of text.
func (c *OracleClient) Segment(ctx context.Context, text, title string) []chunker.RawSegment {
	segs, _ := c.segment(ctx, text, title)
	return segs
}

// segment also reports whether a request was actually sent.
func (c *OracleClient) segment(ctx context.Context, text, title string) ([]chunker.RawSegment, bool) {
	if chunker.EstimateTokens(text) < c.config.MinTokens {
		return []chunker.RawSegment{chunker.BareSegment(text)}, false
	}

	key := CacheKey(c.provider.Model(), title, text)
	if c.cache != nil {
		if segs, ok := c.cache.GetSegments(ctx, key); ok {
			c.logger.Debug("segmentation cache hit", "title", title)
			return segs, false
		}
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return c.fallback(text, title, "rate limiter wait aborted", err), false
		}
	}

	resp, err := c.provider.Chat(ctx, llm.ChatRequest{
		SystemPrompt: SystemPrompt,
		Messages:     []llm.Message{llm.NewTextMessage(llm.RoleUser, BuildPrompt(title, text))},
		MaxTokens:    c.config.MaxTokens,
		Temperature:  c.config.Temperature,
	})
	if err != nil {
		return c.fallback(text, title, "oracle request failed", err), true
	}

	segs, err := ParseSegments(resp.GetText())
	if err != nil {
		return c.fallback(text, title, "oracle reply not parseable", err), true
	}

	c.logger.Debug("oracle segmentation complete",
		"title", title,
		"segments", len(segs),
		"input_tokens", resp.Usage.InputTokens,
		"output_tokens", resp.Usage.OutputTokens,
	)

	if c.cache != nil {
		c.cache.SetSegments(ctx, key, segs)
	}
	return segs, true
}

func (c *OracleClient) fallback(text, title, reason string, err error) []chunker.RawSegment {
	c.logger.Warn("falling back to whole-document segment",
		"reason", reason,
		"title", title,
		"error", err,
	)
	if c.config.TypedFallback {
		return []chunker.RawSegment{chunker.TypedSegment(text, title, chunker.ChunkTypeConcept)}
	}
	return []chunker.RawSegment{chunker.BareSegment(text)}
}

// CacheKey identifies a segmentation request by model, title and text.
func CacheKey(model, title, text string) string {
	h := sha256.New()
	h.Write([]byte(model))
	h.Write([]byte{0})
	h.Write([]byte(title))
	h.Write([]byte{0})
	h.Write([]byte(text))
	return "segments:" + hex.EncodeToString(h.Sum(nil))
}

// OracleSegmenter adapts an OracleClient to the Strategy interface.
type OracleSegmenter struct {
	client *OracleClient
}

// NewOracleSegmenter wraps client.
func NewOracleSegmenter(client *OracleClient) *OracleSegmenter {
	return &OracleSegmenter{client: client}
}

// Name returns the strategy name.
func (s *OracleSegmenter) Name() string {
	return ModeAI
}

// Segment asks the oracle to segment doc.
func (s *OracleSegmenter) Segment(ctx context.Context, doc chunker.Document) Outcome {
	segs, called := s.client.segment(ctx, doc.Text, doc.Title)
	return Outcome{Segments: segs, CalledOracle: called}
}
