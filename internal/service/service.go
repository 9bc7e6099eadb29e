// Package service runs the end-to-end RFQ workflow: extract text from an
// uploaded solicitation, generate the record, render and persist it, and
// deliver the rendered document.
package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hyperjump/rfqrocket/internal/extract"
	"github.com/hyperjump/rfqrocket/internal/fileid"
	"github.com/hyperjump/rfqrocket/internal/keyword"
	"github.com/hyperjump/rfqrocket/internal/mail"
	"github.com/hyperjump/rfqrocket/internal/models"
	"github.com/hyperjump/rfqrocket/internal/render"
	"github.com/hyperjump/rfqrocket/internal/rfq"
	"github.com/hyperjump/rfqrocket/internal/storage"
	"go.uber.org/zap"
)

var (
	// ErrNoText is returned when no text could be extracted from the source.
	ErrNoText = errors.New("could not extract text from file")
	// ErrNotFound is returned for unknown generations or output documents.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyProcessed is returned by ProcessFile for sources seen before.
	ErrAlreadyProcessed = errors.New("source already processed")
	// ErrNoGenerator is returned by Process on a Service built without a Generator.
	ErrNoGenerator = errors.New("no generator configured")
)

// Generator produces a final record from document text.
type Generator interface {
	Generate(ctx context.Context, text string) (models.Record, rfq.Stats)
}

// Config holds the service's file locations and defaults.
type Config struct {
	ProcessedDir  string
	DefaultFormat string
	// DatabasePath and IndexPath are only used to report disk usage.
	DatabasePath string
	IndexPath    string
}

// Service coordinates extraction, generation, rendering, persistence and delivery.
type Service struct {
	cfg       Config
	extractor *extract.Extractor
	generator Generator
	store     storage.Storage
	index     keyword.Index
	sender    mail.Sender
	logger    *zap.Logger
	now       func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithIndex enables full-text indexing and search of generations.
func WithIndex(idx keyword.Index) Option {
	return func(s *Service) { s.index = idx }
}

// WithSender enables email delivery.
func WithSender(sender mail.Sender) Option {
	return func(s *Service) { s.sender = sender }
}

// WithClock overrides the time source used for output names.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New returns a Service and creates the processed directory. gen may be nil
// for a Service that only lists, searches and deletes stored runs.
func New(gen Generator, store storage.Storage, cfg Config, opts ...Option) (*Service, error) {
	if cfg.DefaultFormat == "" {
		cfg.DefaultFormat = render.FormatDOCX
	}
	if _, err := render.ForFormat(cfg.DefaultFormat); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.ProcessedDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create processed directory: %w", err)
	}
	s := &Service{
		cfg:       cfg,
		extractor: extract.NewExtractor(),
		generator: gen,
		store:     store,
		logger:    zap.NewNop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Input is one source document to process.
type Input struct {
	SourceName string
	Content    []byte
	// Ext overrides the extension taken from SourceName.
	Ext string
	// Format selects the output format; empty uses the configured default.
	Format string
}

// Process extracts text from in, generates the RFQ record, renders it into
// the processed directory, and stores the run. Failed chunk extractions do
// not fail the run; a source without text does.
func (s *Service) Process(ctx context.Context, in Input) (*models.Generation, error) {
	if s.generator == nil {
		return nil, ErrNoGenerator
	}
	start := time.Now()
	ext := in.Ext
	if ext == "" {
		ext = extract.Ext(in.SourceName)
	}
	format := in.Format
	if format == "" {
		format = s.cfg.DefaultFormat
	}
	renderer, err := render.ForFormat(format)
	if err != nil {
		return nil, err
	}

	text, err := s.extractor.ExtractBytes(in.Content, ext)
	if errors.Is(err, extract.ErrUnsupportedFormat) {
		return nil, fmt.Errorf("extract %s: %w", in.SourceName, err)
	}
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w: %w", in.SourceName, ErrNoText, err)
	}
	if text == "" {
		return nil, ErrNoText
	}

	rec, stats := s.generator.Generate(ctx, text)
	if rec.IsEmpty() {
		s.logger.Warn("generation produced an empty record",
			zap.String("source", in.SourceName),
			zap.Int("chunks", stats.Chunks),
			zap.Int("failed", stats.Failed),
		)
	}

	now := s.now()
	outputName, err := s.writeOutput(renderer, rec, render.Meta{SourceName: in.SourceName, GeneratedAt: now})
	if err != nil {
		return nil, err
	}

	gen := &models.Generation{
		ID:           uuid.NewString(),
		SourceName:   in.SourceName,
		SourceID:     fileid.SourceID(in.Content),
		OutputName:   outputName,
		Format:       renderer.Ext(),
		ChunkCount:   stats.Chunks,
		FailedChunks: stats.Failed,
		DurationMS:   time.Since(start).Milliseconds(),
		Record:       rec,
		CreatedAt:    now,
	}
	if err := s.store.CreateGeneration(ctx, gen); err != nil {
		_ = os.Remove(filepath.Join(s.cfg.ProcessedDir, outputName))
		return nil, fmt.Errorf("store generation: %w", err)
	}
	if s.index != nil {
		if err := s.index.Index(ctx, gen); err != nil {
			s.logger.Warn("failed to index generation", zap.String("id", gen.ID), zap.Error(err))
		}
	}

	s.logger.Info("rfq generated",
		zap.String("id", gen.ID),
		zap.String("source", in.SourceName),
		zap.String("output", outputName),
		zap.Int("chunks", gen.ChunkCount),
		zap.Int("failed", gen.FailedChunks),
		zap.Int64("elapsed_ms", gen.DurationMS),
	)
	return gen, nil
}

// ProcessFile processes the file at path unless identical content has been
// processed before, in which case it returns ErrAlreadyProcessed.
func (s *Service) ProcessFile(ctx context.Context, path, format string) (*models.Generation, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	sourceID := fileid.SourceID(content)
	done, err := s.store.IsSourceProcessed(ctx, sourceID)
	if err != nil {
		return nil, fmt.Errorf("check source: %w", err)
	}
	if done {
		return nil, ErrAlreadyProcessed
	}
	gen, err := s.Process(ctx, Input{SourceName: filepath.Base(path), Content: content, Format: format})
	if err != nil {
		return nil, err
	}
	if err := s.store.MarkSourceProcessed(ctx, sourceID, gen.ID); err != nil {
		return gen, fmt.Errorf("mark source: %w", err)
	}
	return gen, nil
}

// writeOutput renders rec into a new file in the processed directory. Names
// taken in the same second get a numeric suffix.
func (s *Service) writeOutput(r render.Renderer, rec models.Record, meta render.Meta) (string, error) {
	base := render.OutputName(r.Ext(), meta.GeneratedAt)
	name := base
	for i := 2; ; i++ {
		path := filepath.Join(s.cfg.ProcessedDir, name)
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if errors.Is(err, os.ErrExist) {
			name = fmt.Sprintf("%s_%d.%s", strings.TrimSuffix(base, "."+r.Ext()), i, r.Ext())
			continue
		}
		if err != nil {
			return "", fmt.Errorf("create output: %w", err)
		}
		if err := r.Render(f, rec, meta); err != nil {
			f.Close()
			_ = os.Remove(path)
			return "", fmt.Errorf("render %s: %w", r.Ext(), err)
		}
		if err := f.Close(); err != nil {
			_ = os.Remove(path)
			return "", fmt.Errorf("close output: %w", err)
		}
		return name, nil
	}
}

// OutputPath resolves name inside the processed directory. Names that are
// not plain file names, or that do not exist, yield ErrNotFound.
func (s *Service) OutputPath(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return "", ErrNotFound
	}
	path := filepath.Join(s.cfg.ProcessedDir, name)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return "", ErrNotFound
	}
	return path, nil
}

// Email sends the rendered document outputName to the address to.
func (s *Service) Email(ctx context.Context, to, outputName string) error {
	path, err := s.OutputPath(outputName)
	if err != nil {
		return err
	}
	if s.sender == nil {
		return mail.ErrNotConfigured
	}
	if err := s.sender.Send(ctx, mail.DefaultMessage(to, path, s.now())); err != nil {
		s.logger.Error("failed to send email", zap.String("to", to), zap.String("file", outputName), zap.Error(err))
		return fmt.Errorf("send email: %w", err)
	}
	return nil
}

// Get returns one generation.
func (s *Service) Get(ctx context.Context, id string) (*models.Generation, error) {
	gen, err := s.store.GetGeneration(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrNotFound
	}
	return gen, err
}

// List returns a page of generation summaries, newest first, and the total count.
func (s *Service) List(ctx context.Context, offset, limit int) ([]*models.GenerationSummary, int64, error) {
	gens, err := s.store.ListGenerations(ctx, offset, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("list generations: %w", err)
	}
	total, err := s.store.CountGenerations(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("count generations: %w", err)
	}
	out := make([]*models.GenerationSummary, len(gens))
	for i, g := range gens {
		out[i] = g.Summary()
	}
	return out, total, nil
}

// Search runs a full-text query over past generations.
func (s *Service) Search(ctx context.Context, query *models.SearchQuery) (*models.SearchResponse, error) {
	start := time.Now()
	if err := query.Validate(); err != nil {
		return nil, err
	}
	if s.index == nil {
		return nil, errors.New("search index is not configured")
	}
	hits, err := s.index.Search(ctx, query.Query, query.Limit, nil)
	if err != nil {
		return nil, fmt.Errorf("keyword search failed: %w", err)
	}

	results := make([]*models.SearchResult, 0, len(hits))
	for _, hit := range hits {
		gen, err := s.store.GetGeneration(ctx, hit.ID)
		if errors.Is(err, storage.ErrNotFound) {
			s.logger.Debug("index hit without stored generation", zap.String("id", hit.ID))
			continue
		}
		if err != nil {
			return nil, err
		}
		results = append(results, &models.SearchResult{
			Generation: gen.Summary(),
			Score:      hit.Score,
			Rank:       len(results) + 1,
		})
	}
	return &models.SearchResponse{
		Results:   results,
		Total:     len(results),
		QueryTime: time.Since(start).Milliseconds(),
		Query:     query.Query,
	}, nil
}

// Delete removes a generation, its index entry and its rendered document.
func (s *Service) Delete(ctx context.Context, id string) error {
	gen, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteGeneration(ctx, id); err != nil {
		return fmt.Errorf("delete generation: %w", err)
	}
	if s.index != nil {
		if err := s.index.Delete(ctx, id); err != nil {
			s.logger.Warn("failed to remove generation from index", zap.String("id", id), zap.Error(err))
		}
	}
	if err := os.Remove(filepath.Join(s.cfg.ProcessedDir, gen.OutputName)); err != nil && !os.IsNotExist(err) {
		s.logger.Warn("failed to remove output", zap.String("file", gen.OutputName), zap.Error(err))
	}
	return nil
}

// Status summarizes the service's stored data.
type Status struct {
	Generations int64         `json:"generations"`
	Indexed     uint64        `json:"indexed"`
	Usage       storage.Usage `json:"disk_usage"`
}

// Status reports generation counts and disk usage.
func (s *Service) Status(ctx context.Context) (*Status, error) {
	n, err := s.store.CountGenerations(ctx)
	if err != nil {
		return nil, err
	}
	st := &Status{Generations: n}
	if s.index != nil {
		if st.Indexed, err = s.index.DocCount(); err != nil {
			return nil, err
		}
	}
	if st.Usage, err = storage.MeasureUsage(s.cfg.DatabasePath, s.cfg.IndexPath, s.cfg.ProcessedDir); err != nil {
		return nil, err
	}
	return st, nil
}
