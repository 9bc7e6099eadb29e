// Package keyword provides full-text search over generated RFQ records.
package keyword

import (
	"context"

	"github.com/hyperjump/rfqrocket/internal/models"
)

// SearchOptions optional parameters for keyword search. Nil means use defaults.
type SearchOptions struct {
	// TitleBoost multiplies the score contribution from matches in the source
	// name, agency and solicitation fields. Use 1.0 for no boost.
	TitleBoost float64
	// Fuzziness is the maximum Levenshtein edit distance for fuzzy matching (0, 1 or 2).
	Fuzziness int
}

// Index defines keyword search operations over generations.
type Index interface {
	Index(ctx context.Context, gen *models.Generation) error
	Search(ctx context.Context, query string, limit int, opts *SearchOptions) ([]Hit, error)
	Delete(ctx context.Context, id string) error
	// DocCount returns the total number of generations in the index.
	DocCount() (uint64, error)
	Close() error
}

// Hit is a single keyword search hit.
type Hit struct {
	ID    string  `json:"id"`
	Score float64 `json:"score"`
}
