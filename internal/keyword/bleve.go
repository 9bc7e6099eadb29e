package keyword

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	blevequery "github.com/blevesearch/bleve/v2/search/query"
	"github.com/hyperjump/rfqrocket/internal/models"
)

const defaultTitleBoost = 3.0

// document is the indexed form of a generation.
type document struct {
	Title        string `json:"title"`
	Agency       string `json:"agency"`
	Solicitation string `json:"solicitation"`
	Content      string `json:"content"`
	Format       string `json:"format"`
}

func newDocument(gen *models.Generation) document {
	info := gen.Record.Object(models.GeneralInformation)
	return document{
		Title:        gen.SourceName,
		Agency:       lookup(info, "agency", "issuing_office", "department"),
		Solicitation: lookup(info, "solicitation", "rfq_number", "number", "title"),
		Content:      gen.Record.Text(),
		Format:       gen.Format,
	}
}

// lookup returns the first string value whose key contains one of hints.
func lookup(obj map[string]any, hints ...string) string {
	for _, hint := range hints {
		for k, v := range obj {
			if !strings.Contains(strings.ToLower(k), hint) {
				continue
			}
			if s, ok := v.(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}

// BleveIndex implements Index using Bleve.
type BleveIndex struct {
	index bleve.Index
}

// NewBleveIndex creates or opens a Bleve index at path.
// If you change the index mapping in code, remove the index directory to force a re-index.
func NewBleveIndex(path string) (*BleveIndex, error) {
	if _, err := os.Stat(path); err == nil {
		index, openErr := bleve.Open(path)
		if openErr != nil {
			return nil, fmt.Errorf("failed to open Bleve index: %w", openErr)
		}
		return &BleveIndex{index: index}, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create index directory: %w", err)
	}
	index, err := bleve.New(path, newMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create Bleve index: %w", err)
	}
	return &BleveIndex{index: index}, nil
}

// NewMemBleveIndex returns an index that lives only in memory.
func NewMemBleveIndex() (*BleveIndex, error) {
	index, err := bleve.NewMemOnly(newMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create Bleve index: %w", err)
	}
	return &BleveIndex{index: index}, nil
}

func newMapping() mapping.IndexMapping {
	im := bleve.NewIndexMapping()

	docMapping := bleve.NewDocumentMapping()
	// Standard analyzer (lowercase + tokenize, no stemming) keeps solicitation
	// numbers and agency acronyms intact.
	textFieldMapping := bleve.NewTextFieldMapping()
	textFieldMapping.Analyzer = standard.Name
	for _, field := range []string{"title", "agency", "solicitation", "content"} {
		docMapping.AddFieldMappingsAt(field, textFieldMapping)
	}
	docMapping.AddFieldMappingsAt("format", bleve.NewKeywordFieldMapping())
	im.AddDocumentMapping("generation", docMapping)
	im.DefaultType = "generation"
	im.DefaultMapping = docMapping
	return im
}

// Index indexes gen under its ID, replacing any previous version.
func (b *BleveIndex) Index(ctx context.Context, gen *models.Generation) error {
	return b.index.Index(gen.ID, newDocument(gen))
}

// Search runs a match query across content and the boosted title fields and
// returns up to limit hits, best first.
func (b *BleveIndex) Search(ctx context.Context, query string, limit int, opts *SearchOptions) ([]Hit, error) {
	titleBoost := defaultTitleBoost
	fuzziness := 0
	if opts != nil {
		if opts.TitleBoost > 0 {
			titleBoost = opts.TitleBoost
		}
		fuzziness = opts.Fuzziness
	}
	if limit <= 0 {
		limit = 10
	}

	fieldQuery := func(field string, boost float64) blevequery.Query {
		q := bleve.NewMatchQuery(query)
		q.SetField(field)
		if fuzziness > 0 {
			q.SetFuzziness(fuzziness)
		}
		if boost != 1 {
			q.SetBoost(boost)
		}
		return q
	}
	q := bleve.NewDisjunctionQuery(
		fieldQuery("content", 1),
		fieldQuery("title", titleBoost),
		fieldQuery("agency", titleBoost),
		fieldQuery("solicitation", titleBoost),
	)

	req := bleve.NewSearchRequest(q)
	req.Size = limit
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	results, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("Bleve search failed: %w", err)
	}
	out := make([]Hit, len(results.Hits))
	for i, hit := range results.Hits {
		out[i] = Hit{ID: hit.ID, Score: hit.Score}
	}
	return out, nil
}

// Delete removes a generation from the index.
func (b *BleveIndex) Delete(ctx context.Context, id string) error {
	return b.index.Delete(id)
}

// DocCount returns the total number of generations in the index.
func (b *BleveIndex) DocCount() (uint64, error) {
	return b.index.DocCount()
}

// Close closes the Bleve index.
func (b *BleveIndex) Close() error {
	return b.index.Close()
}
