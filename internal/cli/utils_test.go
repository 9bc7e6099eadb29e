package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/hyperjump/rfqrocket/internal/models"
)

func sampleRecord() models.Record {
	rec := models.NewRecord()
	rec[string(models.GeneralInformation)] = map[string]any{"agency": "NASA", "solicitation_number": "80NSSC24"}
	rec[string(models.Deliverables)] = []any{"Monthly status report", "Final report"}
	return rec
}

func TestWriteRecord_Text(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteRecord(&buf, sampleRecord(), OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{
		"== General Information ==\n  Agency: NASA\n  Solicitation Number: 80NSSC24\n",
		"== Deliverables ==\n  - Monthly status report\n  - Final report\n",
		"== Requirements ==\n  (none)\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Index(out, "General Information") > strings.Index(out, "Contact Information") {
		t.Error("sections out of order")
	}
}

func TestWriteRecord_JSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteRecord(&buf, sampleRecord(), OutputJSON); err != nil {
		t.Fatal(err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, buf.String())
	}
	if len(decoded) != len(models.Fields) {
		t.Errorf("got %d keys, want %d", len(decoded), len(models.Fields))
	}
}

func TestWriteGeneration(t *testing.T) {
	gen := &models.Generation{ID: "g1", SourceName: "rfp.pdf", OutputName: "RFQ_1.docx", ChunkCount: 2, FailedChunks: 2}
	var buf bytes.Buffer
	if err := WriteGeneration(&buf, gen, OutputText); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "Generated RFQ_1.docx from rfp.pdf") {
		t.Errorf("got %q", buf.String())
	}
	if !strings.Contains(buf.String(), "every chunk failed") {
		t.Errorf("expected total failure warning, got %q", buf.String())
	}
}

func TestWriteGenerations(t *testing.T) {
	gens := []*models.GenerationSummary{{
		ID: "g1", SourceName: strings.Repeat("long-name-", 10) + ".pdf", OutputName: "RFQ_1.docx",
		CreatedAt: time.Date(2024, 1, 31, 15, 45, 2, 0, time.UTC),
	}}
	var buf bytes.Buffer
	if err := WriteGenerations(&buf, gens, 5, OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.HasPrefix(out, "1 of 5 generations\n") || !strings.Contains(out, "2024-01-31 15:45:02") {
		t.Errorf("got %q", out)
	}
	if !strings.Contains(out, "...") {
		t.Errorf("long source name should be truncated: %q", out)
	}
}

func TestWriteSearchResults_JSON(t *testing.T) {
	response := &models.SearchResponse{
		Query:     "nasa",
		QueryTime: 42,
		Total:     1,
		Results: []*models.SearchResult{{
			Rank:       1,
			Score:      0.9,
			Generation: &models.GenerationSummary{ID: "g1", SourceName: "rfp.pdf", OutputName: "RFQ_1.docx"},
		}},
	}
	var buf bytes.Buffer
	if err := WriteSearchResults(&buf, response, OutputJSON); err != nil {
		t.Fatal(err)
	}
	var decoded models.SearchResponse
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, buf.String())
	}
	if decoded.Query != "nasa" || len(decoded.Results) != 1 || decoded.Results[0].Generation.ID != "g1" {
		t.Errorf("decoded: %+v", decoded)
	}

	buf.Reset()
	if err := WriteSearchResults(&buf, response, OutputText); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "Found 1 results in 42ms") || !strings.Contains(buf.String(), "Output: RFQ_1.docx") {
		t.Errorf("text output: %q", buf.String())
	}
}
