package rfq

import (
	"context"
	"sync"
	"time"

	"github.com/hyperjump/rfqrocket/internal/models"
	"go.uber.org/zap"
)

// DefaultWorkers is the worker pool size used when none is configured.
const DefaultWorkers = 4

// Stats describes one Generate call.
type Stats struct {
	Chunks   int           `json:"chunks"`
	Failed   int           `json:"failed"`
	Duration time.Duration `json:"duration"`
}

type task struct {
	ctx   context.Context
	chunk models.Chunk
	out   chan Result
}

// Generator runs the pipeline over whole documents. Its worker pool is
// started once by NewGenerator and shared by every Generate call until Close.
type Generator struct {
	extractor ChunkExtractor
	maxLength int
	workers   int
	logger    *zap.Logger
	recorder  Recorder

	tasks  chan task
	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool
}

// GeneratorOption configures a Generator.
type GeneratorOption func(*Generator)

// WithWorkers sets the worker pool size.
func WithWorkers(n int) GeneratorOption {
	return func(g *Generator) {
		if n > 0 {
			g.workers = n
		}
	}
}

// WithMaxChunkLength sets the chunk bound in characters.
func WithMaxChunkLength(n int) GeneratorOption {
	return func(g *Generator) {
		if n > 0 {
			g.maxLength = n
		}
	}
}

// WithLogger sets a logger for generation summaries.
func WithLogger(l *zap.Logger) GeneratorOption {
	return func(g *Generator) { g.logger = l }
}

// WithGenerationRecorder sets the metrics recorder for whole generations.
func WithGenerationRecorder(r Recorder) GeneratorOption {
	return func(g *Generator) { g.recorder = r }
}

// NewGenerator starts the worker pool and returns a Generator using extractor.
func NewGenerator(extractor ChunkExtractor, opts ...GeneratorOption) *Generator {
	g := &Generator{
		extractor: extractor,
		maxLength: DefaultMaxChunkLength,
		workers:   DefaultWorkers,
		logger:    zap.NewNop(),
		recorder:  nopRecorder{},
	}
	for _, opt := range opts {
		opt(g)
	}
	g.tasks = make(chan task)
	for i := 0; i < g.workers; i++ {
		g.wg.Add(1)
		go g.work()
	}
	return g
}

func (g *Generator) work() {
	defer g.wg.Done()
	for t := range g.tasks {
		t.out <- g.extractor.Extract(t.ctx, t.chunk)
	}
}

// Generate chunks text, extracts every chunk on the pool, and merges the
// partial records in chunk order. It never fails: chunks whose extraction
// failed contribute nothing, and empty text yields an empty record.
func (g *Generator) Generate(ctx context.Context, text string) (models.Record, Stats) {
	start := time.Now()
	chunks := Split(text, g.maxLength)

	futures := g.submit(ctx, chunks)
	partials := make([]models.Record, len(futures))
	failed := 0
	// Await in submission order so the merge is deterministic.
	for i, f := range futures {
		res := <-f
		if res.Err != nil {
			failed++
		}
		partials[i] = res.Record
	}
	rec := Merge(partials)

	stats := Stats{Chunks: len(chunks), Failed: failed, Duration: time.Since(start)}
	g.recorder.ObserveGeneration(stats.Chunks, stats.Failed, stats.Duration)
	g.logger.Info("rfq generation completed",
		zap.Int("chunks", stats.Chunks),
		zap.Int("failed", stats.Failed),
		zap.Duration("elapsed", stats.Duration),
	)
	return rec, stats
}

// submit hands every chunk to the pool and returns one future per chunk, in
// chunk order. After Close the chunks are extracted inline instead.
func (g *Generator) submit(ctx context.Context, chunks []models.Chunk) []chan Result {
	futures := make([]chan Result, len(chunks))
	g.mu.RLock()
	defer g.mu.RUnlock()
	for i, ch := range chunks {
		out := make(chan Result, 1)
		futures[i] = out
		if g.closed {
			out <- g.extractor.Extract(ctx, ch)
			continue
		}
		g.tasks <- task{ctx: ctx, chunk: ch, out: out}
	}
	return futures
}

// Close stops accepting work and waits for in-flight extractions to finish.
func (g *Generator) Close() error {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return nil
	}
	g.closed = true
	close(g.tasks)
	g.mu.Unlock()
	g.wg.Wait()
	return nil
}
