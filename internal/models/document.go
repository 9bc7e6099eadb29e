// Package models defines core data structures for chunks, RFQ records, and generation runs.
package models

import "time"

// Chunk is a contiguous run of whole lines cut from the source text.
type Chunk struct {
	Index        int    `json:"index"`
	Content      string `json:"content"`
	ApproxLength int    `json:"approx_length"`
}

// Generation is one persisted run of the RFQ pipeline over a source document.
type Generation struct {
	ID           string    `json:"id" db:"id"`
	SourceName   string    `json:"source_name" db:"source_name"`
	SourceID     string    `json:"source_id,omitempty" db:"source_id"`
	OutputName   string    `json:"output_name" db:"output_name"`
	Format       string    `json:"format" db:"format"`
	ChunkCount   int       `json:"chunk_count" db:"chunk_count"`
	FailedChunks int       `json:"failed_chunks" db:"failed_chunks"`
	DurationMS   int64     `json:"duration_ms" db:"duration_ms"`
	Record       Record    `json:"record" db:"record"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// GenerationSummary is a Generation without its record, for listings.
type GenerationSummary struct {
	ID           string    `json:"id"`
	SourceName   string    `json:"source_name"`
	OutputName   string    `json:"output_name"`
	Format       string    `json:"format"`
	ChunkCount   int       `json:"chunk_count"`
	FailedChunks int       `json:"failed_chunks"`
	CreatedAt    time.Time `json:"created_at"`
}

// Summary strips the record from g.
func (g *Generation) Summary() *GenerationSummary {
	return &GenerationSummary{
		ID:           g.ID,
		SourceName:   g.SourceName,
		OutputName:   g.OutputName,
		Format:       g.Format,
		ChunkCount:   g.ChunkCount,
		FailedChunks: g.FailedChunks,
		CreatedAt:    g.CreatedAt,
	}
}
