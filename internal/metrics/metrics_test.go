package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveChunk(t *testing.T) {
	m := New()
	m.ObserveChunk(true, 100*time.Millisecond)
	m.ObserveChunk(true, 200*time.Millisecond)
	m.ObserveChunk(false, time.Second)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.chunks.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.chunks.WithLabelValues("failed")))
}

func TestObserveGeneration_outcomes(t *testing.T) {
	m := New()
	m.ObserveGeneration(3, 0, time.Second)
	m.ObserveGeneration(3, 1, time.Second)
	m.ObserveGeneration(2, 2, time.Second)
	m.ObserveGeneration(0, 0, 0)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.generations.WithLabelValues("complete")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.generations.WithLabelValues("partial")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.generations.WithLabelValues("empty")))
}

func TestObserveUploadAndEmail(t *testing.T) {
	m := New()
	m.ObserveUpload(http.StatusOK)
	m.ObserveUpload(http.StatusBadRequest)
	m.ObserveEmail(false)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.uploads.WithLabelValues("OK")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.uploads.WithLabelValues("Bad Request")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.emails.WithLabelValues("failed")))
}

func TestHandler(t *testing.T) {
	m := New()
	m.ObserveChunk(true, time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `rfq_chunk_extractions_total{result="ok"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}
