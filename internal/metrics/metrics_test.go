package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordFetch_CountsPerResourceAndResult(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordFetchSuccess("contacts")
	c.RecordFetchSuccess("contacts")
	c.RecordFetchFailure("quotes")

	if got := testutil.ToFloat64(c.fetchTotal.WithLabelValues("contacts", "success")); got != 2 {
		t.Errorf("contacts success = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.fetchTotal.WithLabelValues("quotes", "failure")); got != 1 {
		t.Errorf("quotes failure = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.fetchTotal.WithLabelValues("quotes", "success")); got != 0 {
		t.Errorf("quotes success = %v, want 0", got)
	}
}

func TestRecordHTTPStatus_LabelsByCode(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordHTTPStatus(200)
	c.RecordHTTPStatus(503)
	c.RecordHTTPStatus(503)

	if got := testutil.ToFloat64(c.httpStatus.WithLabelValues("503")); got != 2 {
		t.Errorf("503 count = %v, want 2", got)
	}
}

func TestRecordWriteAndLogin(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordWrite("delete", true)
	c.RecordWrite("delete", false)
	c.RecordLogin(false)

	if got := testutil.ToFloat64(c.writeTotal.WithLabelValues("delete", "failure")); got != 1 {
		t.Errorf("delete failure = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.loginTotal.WithLabelValues("failure")); got != 1 {
		t.Errorf("login failure = %v, want 1", got)
	}
}

func TestSetOpenViews(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.SetOpenViews(3)
	c.SetOpenViews(1)

	if got := testutil.ToFloat64(c.openViews); got != 1 {
		t.Errorf("open views = %v, want 1", got)
	}
}

func TestRecordRequestLatency(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordRequestLatency("GET", 150*time.Millisecond)

	if got := testutil.CollectAndCount(c.requestLatency); got != 1 {
		t.Errorf("latency series = %d, want 1", got)
	}
}

// TestHandler_ServesMetrics はスクレイプでメトリクスが返ることを検証する。
func TestHandler_ServesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.RecordFetchSuccess("blog")

	w := httptest.NewRecorder()
	Handler(reg).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
	body, _ := io.ReadAll(w.Body)
	if !strings.Contains(string(body), `chabakapro_admin_backend_fetch_total{resource="blog",result="success"} 1`) {
		t.Errorf("metric not found in body:\n%s", body)
	}
}

func TestNewCollector_DuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewCollector(reg)

	defer func() {
		if recover() == nil {
			t.Error("同じレジストリへの二重登録はpanicするべき")
		}
	}()
	NewCollector(reg)
}
