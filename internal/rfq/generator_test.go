package rfq

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hyperjump/rfqrocket/internal/llm"
	"github.com/hyperjump/rfqrocket/internal/models"
	"go.uber.org/goleak"
)

// stubExtractor answers each chunk with a record derived from its content,
// sleeping longer for earlier chunks so completion order is reversed.
type stubExtractor struct {
	total    int
	delay    time.Duration
	failWhen func(models.Chunk) bool
	inFlight int32
	maxSeen  int32
}

func (s *stubExtractor) Extract(_ context.Context, c models.Chunk) Result {
	n := atomic.AddInt32(&s.inFlight, 1)
	for {
		m := atomic.LoadInt32(&s.maxSeen)
		if n <= m || atomic.CompareAndSwapInt32(&s.maxSeen, m, n) {
			break
		}
	}
	defer atomic.AddInt32(&s.inFlight, -1)
	if s.delay > 0 {
		time.Sleep(s.delay * time.Duration(s.total-c.Index))
	}
	if s.failWhen != nil && s.failWhen(c) {
		return Result{Index: c.Index, Record: models.Record{}, Err: fmt.Errorf("chunk %d failed", c.Index)}
	}
	return Result{Index: c.Index, Record: models.Record{
		"GENERAL_INFORMATION": map[string]any{"last_chunk": float64(c.Index), fmt.Sprintf("seen_%d", c.Index): true},
		"REQUIREMENTS":        []any{fmt.Sprintf("req-%d", c.Index)},
	}}
}

func lines(n, width int) string {
	out := make([]string, n)
	for i := range out {
		out[i] = strings.Repeat(string(rune('a'+i%26)), width)
	}
	return strings.Join(out, "\n")
}

func TestGenerator_OrderedMergeRegardlessOfCompletion(t *testing.T) {
	defer goleak.VerifyNone(t)

	text := lines(6, 90) // one line per chunk at max 100
	stub := &stubExtractor{total: 6, delay: 5 * time.Millisecond}
	g := NewGenerator(stub, WithWorkers(4), WithMaxChunkLength(100))
	defer g.Close()

	rec, stats := g.Generate(context.Background(), text)
	if stats.Chunks != 6 || stats.Failed != 0 {
		t.Fatalf("stats = %+v", stats)
	}
	want := []any{"req-0", "req-1", "req-2", "req-3", "req-4", "req-5"}
	if got := rec.List(models.Requirements); !reflect.DeepEqual(got, want) {
		t.Errorf("requirements = %v, want %v", got, want)
	}
	if got := rec.Object(models.GeneralInformation)["last_chunk"]; got != 5.0 {
		t.Errorf("last_chunk = %v, want 5 (later chunk wins)", got)
	}
	if m := atomic.LoadInt32(&stub.maxSeen); m > 4 {
		t.Errorf("observed %d concurrent extractions, pool size 4", m)
	}
}

func TestGenerator_ConcurrentMatchesSequential(t *testing.T) {
	defer goleak.VerifyNone(t)

	paras := make([]string, 6)
	for i := range paras {
		paras[i] = strings.Repeat(string(rune('a'+i)), 1999)
	}
	text := strings.Join(paras, "\n")

	chunks := Split(text, 5000)
	if len(chunks) != 3 {
		t.Fatalf("got %d chunks, want 3", len(chunks))
	}
	stub := &stubExtractor{total: len(chunks), delay: 3 * time.Millisecond}
	sequential := make([]models.Record, len(chunks))
	for i, c := range chunks {
		sequential[i] = stub.Extract(context.Background(), c).Record
	}
	want := Merge(sequential)

	g := NewGenerator(stub, WithWorkers(4), WithMaxChunkLength(5000))
	defer g.Close()
	got, _ := g.Generate(context.Background(), text)
	if !reflect.DeepEqual(got, want) {
		t.Errorf("concurrent merge differs from sequential:\n got %v\nwant %v", got, want)
	}
}

func TestGenerator_PartialFailureTolerated(t *testing.T) {
	defer goleak.VerifyNone(t)

	stub := &stubExtractor{total: 4, failWhen: func(c models.Chunk) bool { return c.Index == 1 }}
	g := NewGenerator(stub, WithWorkers(2), WithMaxChunkLength(100))
	defer g.Close()

	rec, stats := g.Generate(context.Background(), lines(4, 90))
	if stats.Failed != 1 {
		t.Errorf("failed = %d, want 1", stats.Failed)
	}
	want := []any{"req-0", "req-2", "req-3"}
	if got := rec.List(models.Requirements); !reflect.DeepEqual(got, want) {
		t.Errorf("requirements = %v, want %v", got, want)
	}
}

func TestGenerator_AllChunksFail(t *testing.T) {
	defer goleak.VerifyNone(t)

	mock := &llm.MockClient{Err: fmt.Errorf("service unavailable")}
	e, err := NewExtractor(mock)
	if err != nil {
		t.Fatal(err)
	}
	g := NewGenerator(e, WithMaxChunkLength(100))
	defer g.Close()

	rec, stats := g.Generate(context.Background(), lines(3, 90))
	if stats.Failed != 3 {
		t.Errorf("failed = %d, want 3", stats.Failed)
	}
	if !reflect.DeepEqual(rec, models.NewRecord()) || !rec.IsEmpty() {
		t.Errorf("expected schema defaults, got %v", rec)
	}
}

func TestGenerator_EmptyText(t *testing.T) {
	defer goleak.VerifyNone(t)

	mock := &llm.MockClient{Response: `{}`}
	e, err := NewExtractor(mock)
	if err != nil {
		t.Fatal(err)
	}
	g := NewGenerator(e)
	defer g.Close()

	rec, stats := g.Generate(context.Background(), "")
	if stats.Chunks != 0 {
		t.Errorf("chunks = %d, want 0", stats.Chunks)
	}
	if !reflect.DeepEqual(rec, models.NewRecord()) {
		t.Errorf("got %v, want schema defaults", rec)
	}
	if len(mock.Calls()) != 0 {
		t.Errorf("service called %d times for empty text", len(mock.Calls()))
	}
}

func TestGenerator_EndToEndWithMockService(t *testing.T) {
	defer goleak.VerifyNone(t)

	mock := &llm.MockClient{Respond: func(_ context.Context, req llm.Request) (string, error) {
		switch {
		case strings.Contains(req.User, "Document Text:\nSOLICITATION"):
			return `{"GENERAL_INFORMATION":{"title":"Janitorial Services","agency":"GSA"},"REQUIREMENTS":["Weekly cleaning"]}`, nil
		case strings.Contains(req.User, "Document Text:\nEVALUATION"):
			return "```json\n{\"EVALUATION_CRITERIA\":[\"Lowest price technically acceptable\"],\"REQUIREMENTS\":\"Carpet care\"}\n```", nil
		default:
			b, _ := json.Marshal(map[string]any{"CONTACT_INFORMATION": map[string]any{"name": "J. Smith"}})
			return string(b), nil
		}
	}}
	e, err := NewExtractor(mock)
	if err != nil {
		t.Fatal(err)
	}
	g := NewGenerator(e, WithMaxChunkLength(25))
	defer g.Close()

	text := "SOLICITATION 47QSWA\nEVALUATION factors\nPOC J. Smith"
	rec, stats := g.Generate(context.Background(), text)
	if stats.Chunks != 3 || stats.Failed != 0 {
		t.Fatalf("stats = %+v", stats)
	}
	if got := rec.List(models.Requirements); !reflect.DeepEqual(got, []any{"Weekly cleaning", "Carpet care"}) {
		t.Errorf("requirements = %v", got)
	}
	if got := rec.Object(models.GeneralInformation)["agency"]; got != "GSA" {
		t.Errorf("agency = %v", got)
	}
	if got := rec.Object(models.ContactInformation)["name"]; got != "J. Smith" {
		t.Errorf("contact = %v", got)
	}
}

func TestGenerator_ConcurrentGenerateCalls(t *testing.T) {
	defer goleak.VerifyNone(t)

	stub := &stubExtractor{total: 5, delay: time.Millisecond}
	g := NewGenerator(stub, WithWorkers(3), WithMaxChunkLength(100))
	defer g.Close()

	var wg sync.WaitGroup
	results := make([]models.Record, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = g.Generate(context.Background(), lines(5, 90))
		}(i)
	}
	wg.Wait()
	for i := 1; i < len(results); i++ {
		if !reflect.DeepEqual(results[0], results[i]) {
			t.Errorf("result %d differs from result 0", i)
		}
	}
}

func TestGenerator_CloseDrainsAndFallsBackInline(t *testing.T) {
	defer goleak.VerifyNone(t)

	stub := &stubExtractor{total: 2}
	g := NewGenerator(stub, WithMaxChunkLength(100))
	if err := g.Close(); err != nil {
		t.Fatal(err)
	}
	if err := g.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	rec, stats := g.Generate(context.Background(), lines(2, 90))
	if stats.Chunks != 2 || len(rec.List(models.Requirements)) != 2 {
		t.Errorf("inline generate after close: stats=%+v rec=%v", stats, rec)
	}
}

func TestGenerator_RecordsGeneration(t *testing.T) {
	defer goleak.VerifyNone(t)

	rec := &countingRecorder{}
	g := NewGenerator(&stubExtractor{total: 1}, WithGenerationRecorder(rec))
	defer g.Close()
	g.Generate(context.Background(), "x")
	if rec.generations != 1 {
		t.Errorf("generations = %d, want 1", rec.generations)
	}
}
