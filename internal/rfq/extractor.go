package rfq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hyperjump/rfqrocket/internal/llm"
	"github.com/hyperjump/rfqrocket/internal/models"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"go.uber.org/zap"
)

const (
	defaultTemperature = 0.2
	defaultMaxTokens   = 4000
)

// ErrNotObject is recorded when the service returns JSON that is not an object.
var ErrNotObject = errors.New("response is not a JSON object")

// Result is the outcome of extracting one chunk. Record is never nil; on
// failure it is empty and Err says why.
type Result struct {
	Index  int
	Record models.Record
	Err    error
}

// ChunkExtractor turns one chunk into a partial record.
type ChunkExtractor interface {
	Extract(ctx context.Context, chunk models.Chunk) Result
}

// Recorder receives pipeline observations. It must be safe for concurrent use.
type Recorder interface {
	ObserveChunk(ok bool, elapsed time.Duration)
	ObserveGeneration(chunks, failed int, elapsed time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) ObserveChunk(bool, time.Duration)          {}
func (nopRecorder) ObserveGeneration(int, int, time.Duration) {}

// Extractor calls the extraction service once per chunk and never fails:
// service errors and unparseable answers become an empty partial record.
type Extractor struct {
	client      llm.Client
	schema      *jsonschema.Schema
	temperature float64
	maxTokens   int
	logger      *zap.Logger
	recorder    Recorder
}

// ExtractorOption configures an Extractor.
type ExtractorOption func(*Extractor)

// WithExtractorLogger sets the logger for per-chunk failures.
func WithExtractorLogger(l *zap.Logger) ExtractorOption {
	return func(e *Extractor) { e.logger = l }
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) ExtractorOption {
	return func(e *Extractor) { e.recorder = r }
}

// WithSampling overrides temperature and max tokens. A nil temperature or a
// non-positive maxTokens keeps the default; a temperature of 0 is sent as is.
func WithSampling(temperature *float64, maxTokens int) ExtractorOption {
	return func(e *Extractor) {
		if temperature != nil {
			e.temperature = *temperature
		}
		if maxTokens > 0 {
			e.maxTokens = maxTokens
		}
	}
}

// NewExtractor returns an Extractor backed by client.
func NewExtractor(client llm.Client, opts ...ExtractorOption) (*Extractor, error) {
	schema, err := compilePartialSchema()
	if err != nil {
		return nil, err
	}
	e := &Extractor{
		client:      client,
		schema:      schema,
		temperature: defaultTemperature,
		maxTokens:   defaultMaxTokens,
		logger:      zap.NewNop(),
		recorder:    nopRecorder{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Extract returns the partial record for chunk.
func (e *Extractor) Extract(ctx context.Context, chunk models.Chunk) Result {
	start := time.Now()
	rec, err := e.extract(ctx, chunk)
	e.recorder.ObserveChunk(err == nil, time.Since(start))
	if err != nil {
		e.logger.Warn("chunk extraction failed",
			zap.Int("chunk", chunk.Index),
			zap.Int("length", chunk.ApproxLength),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err),
		)
		return Result{Index: chunk.Index, Record: models.Record{}, Err: err}
	}
	e.logger.Debug("chunk extracted",
		zap.Int("chunk", chunk.Index),
		zap.Int("sections", len(rec)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return Result{Index: chunk.Index, Record: rec}
}

func (e *Extractor) extract(ctx context.Context, chunk models.Chunk) (rec models.Record, err error) {
	defer func() {
		if r := recover(); r != nil {
			rec, err = nil, fmt.Errorf("extraction panic: %v", r)
		}
	}()

	content, err := e.client.Complete(ctx, llm.Request{
		System:      systemPrompt,
		User:        buildPrompt(chunk.Content),
		Temperature: e.temperature,
		MaxTokens:   e.maxTokens,
		JSON:        true,
	})
	if err != nil {
		return nil, fmt.Errorf("complete: %w", err)
	}
	rec, err = ParsePartial(content)
	if err != nil {
		return nil, err
	}
	if verr := e.schema.Validate(map[string]any(rec)); verr != nil {
		// Shape mismatches are left for the merger to tolerate.
		e.logger.Debug("partial record does not match schema",
			zap.Int("chunk", chunk.Index),
			zap.Error(verr),
		)
	}
	return rec, nil
}

// ParsePartial decodes a service answer into a partial record. Markdown code
// fences around the JSON are tolerated.
func ParsePartial(content string) (models.Record, error) {
	s := stripFences(content)
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, fmt.Errorf("decode partial record: %w", err)
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, ErrNotObject
	}
	return models.Record(obj), nil
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
