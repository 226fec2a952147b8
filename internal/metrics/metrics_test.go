package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"
)

func counterValue(t *testing.T, c *Collector, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := c.Registry().Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	for _, fam := range families {
		if fam.GetName() != name {
			continue
		}
		for _, m := range fam.GetMetric() {
			if matchLabels(m, labels) {
				return m.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func matchLabels(m *dto.Metric, labels map[string]string) bool {
	if len(m.GetLabel()) != len(labels) {
		return false
	}
	for _, lp := range m.GetLabel() {
		if labels[lp.GetName()] != lp.GetValue() {
			return false
		}
	}
	return true
}

func TestNewCollector_DefaultNamespace(t *testing.T) {
	c := NewCollector("")
	c.RecordSubmission(nil)
	if got := counterValue(t, c, "ledger_client_submissions_total", map[string]string{"result": "success"}); got != 1 {
		t.Fatalf("expected 1 success, got %v", got)
	}
}

func TestCollector_SubmissionMetrics(t *testing.T) {
	c := NewCollector("test")

	c.RecordSubmission(nil)
	c.RecordSubmission(errors.New("boom"))
	c.RecordSubmitAttempt("node-a:50211", "busy", 5*time.Millisecond)
	c.RecordSubmitAttempt("node-a:50211", "busy", 5*time.Millisecond)
	c.RecordSubmitAttempt("node-b:50211", "ok", 3*time.Millisecond)
	c.RecordPrecheck("BUSY")
	c.RecordReceiptPoll("UNKNOWN")
	c.RecordConfirmation(time.Second)
	c.RecordChunkSegment(nil)

	if got := counterValue(t, c, "test_client_submissions_total", map[string]string{"result": "error"}); got != 1 {
		t.Fatalf("expected 1 error submission, got %v", got)
	}
	if got := counterValue(t, c, "test_client_submit_attempts_total", map[string]string{"endpoint": "node-a:50211", "outcome": "busy"}); got != 2 {
		t.Fatalf("expected 2 busy attempts, got %v", got)
	}
}

func TestCollector_StreamMetrics(t *testing.T) {
	c := NewCollector("test")
	c.RecordStreamRecord(3)
	c.RecordStreamRecord(2)
	c.RecordStreamTermination("completed")

	if got := counterValue(t, c, "test_stream_records_total", map[string]string{}); got != 2 {
		t.Fatalf("expected 2 records, got %v", got)
	}
	if got := counterValue(t, c, "test_stream_terminations_total", map[string]string{"state": "completed"}); got != 1 {
		t.Fatalf("expected 1 termination, got %v", got)
	}
}

func TestCollector_NilSafe(t *testing.T) {
	var c *Collector
	// Should not panic
	c.RecordSubmission(nil)
	c.RecordSubmitAttempt("x", "ok", time.Millisecond)
	c.RecordPrecheck("OK")
	c.RecordReceiptPoll("SUCCESS")
	c.RecordConfirmation(time.Millisecond)
	c.RecordChunkSegment(nil)
	c.RecordStreamRecord(1)
	c.RecordStreamTermination("cancelled")
	if c.Registry() != nil {
		t.Fatal("nil collector should have no registry")
	}
}

func TestCollector_Handler(t *testing.T) {
	c := NewCollector("test")
	c.RecordPrecheck("BUSY")

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `test_client_precheck_codes_total{code="BUSY"} 1`) {
		t.Fatalf("missing precheck counter in output:\n%s", rec.Body.String())
	}
}
