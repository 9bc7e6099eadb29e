// Package cli provides CLI output helpers for RFQ Rocket.
package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/hyperjump/rfqrocket/internal/models"
	"github.com/hyperjump/rfqrocket/internal/render"
	"github.com/hyperjump/rfqrocket/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// WriteRecord writes a final record to w in the given format.
func WriteRecord(w io.Writer, rec models.Record, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, rec)
	}
	for _, f := range models.Fields {
		fmt.Fprintf(w, "== %s ==\n", f.Title())
		if models.Schema[f] == models.KindList {
			items := render.Items(rec.List(f))
			if len(items) == 0 {
				fmt.Fprintln(w, "  (none)")
			}
			for _, item := range items {
				fmt.Fprintf(w, "  - %s\n", item)
			}
		} else {
			entries := render.Entries(rec.Object(f))
			if len(entries) == 0 {
				fmt.Fprintln(w, "  (none)")
			}
			for _, e := range entries {
				fmt.Fprintf(w, "  %s: %s\n", e.Key, e.Value)
			}
		}
		fmt.Fprintln(w)
	}
	return nil
}

// WriteGeneration writes a generation summary line block, or the whole
// generation as JSON.
func WriteGeneration(w io.Writer, gen *models.Generation, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, gen)
	}
	fmt.Fprintf(w, "Generated %s from %s\n", gen.OutputName, gen.SourceName)
	fmt.Fprintf(w, "ID: %s | Chunks: %d (failed: %d) | %dms\n", gen.ID, gen.ChunkCount, gen.FailedChunks, gen.DurationMS)
	if gen.ChunkCount > 0 && gen.FailedChunks == gen.ChunkCount {
		fmt.Fprintln(w, "Warning: every chunk failed extraction; the document is empty.")
	}
	return nil
}

// WriteGenerations writes a listing of generation summaries.
func WriteGenerations(w io.Writer, gens []*models.GenerationSummary, total int64, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, map[string]any{"generations": gens, "total": total})
	}
	fmt.Fprintf(w, "%d of %d generations\n", len(gens), total)
	for _, g := range gens {
		fmt.Fprintf(w, "%s  %-28s  %-40s  chunks=%d failed=%d\n",
			g.CreatedAt.Format("2006-01-02 15:04:05"), g.OutputName, utils.Truncate(g.SourceName, 37), g.ChunkCount, g.FailedChunks)
	}
	return nil
}

// WriteSearchResults writes search results to w in the given format.
func WriteSearchResults(w io.Writer, response *models.SearchResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, response)
	}
	fmt.Fprintf(w, "\nFound %d results in %dms\n\n", response.Total, response.QueryTime)
	for _, result := range response.Results {
		fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
		fmt.Fprintf(w, "Rank: %d | Score: %.4f\n", result.Rank, result.Score)
		fmt.Fprintf(w, "ID: %s\n", result.Generation.ID)
		fmt.Fprintf(w, "Source: %s\n", result.Generation.SourceName)
		fmt.Fprintf(w, "Output: %s\n\n", result.Generation.OutputName)
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
