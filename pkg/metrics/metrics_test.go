package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestCollector_Handler(t *testing.T) {
	c := NewCollector("vaidya-api")
	c.PrescriptionsTotal.WithLabelValues("create").Inc()

	w := httptest.NewRecorder()
	c.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body, _ := io.ReadAll(w.Body)
	if !strings.Contains(string(body), `vaidya_api_clinical_prescriptions_total{operation="create"} 1`) {
		t.Errorf("expected prescription counter in exposition, got:\n%s", body)
	}
}

func TestNewCollector_Independent(t *testing.T) {
	// Two collectors in one process must not collide on registration.
	a := NewCollector("svc")
	b := NewCollector("svc")
	a.AuditBufferDropped.Inc()
	if a == b {
		t.Fatal("expected distinct collectors")
	}
}
