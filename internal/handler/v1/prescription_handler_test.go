package v1

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"slices"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/TeamVaidya/prescription/internal/config"
	"github.com/TeamVaidya/prescription/internal/domain"
	"github.com/TeamVaidya/prescription/internal/domain/patient"
	"github.com/TeamVaidya/prescription/internal/domain/prescription"
	"github.com/TeamVaidya/prescription/internal/domain/slot"
	"github.com/TeamVaidya/prescription/internal/repository/memory"
	"github.com/TeamVaidya/prescription/internal/service"
	"github.com/TeamVaidya/prescription/pkg/metrics"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testEnv struct {
	router *gin.Engine
	logs   *observer.ObservedLogs

	userID, slotID, patientID int64
}

type brokenList struct {
	*memory.PrescriptionRepository
}

func (brokenList) List(context.Context) ([]*prescription.Prescription, error) {
	return nil, errors.New("connection reset by peer")
}

type brokenDelete struct {
	*memory.PrescriptionRepository
}

func (brokenDelete) Delete(context.Context, int64) error {
	return errors.New("deadlock detected")
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Name: "vaidya-api", Environment: "development"},
		CORS: config.CORSConfig{
			AllowedOrigins: []string{"http://localhost:5173"},
			AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Content-Type"},
			MaxAge:         time.Hour,
		},
	}
}

func newTestEnv(t *testing.T, opts ...func(*service.PrescriptionDeps)) *testEnv {
	t.Helper()
	ctx := context.Background()

	core, logs := observer.New(zapcore.InfoLevel)
	log := zap.New(core)
	store := memory.New()
	m := metrics.NewCollector("vaidya-test")
	audit := service.NewAuditService(store.Audit, m, log)
	t.Cleanup(audit.Shutdown)

	u := &domain.User{Name: "Dr. Iyer", Email: "iyer@example.com", Role: domain.RoleDoctor}
	if err := store.Users.Create(ctx, u); err != nil {
		t.Fatal(err)
	}
	sl := &slot.Slot{UserID: u.ID, StartsAt: time.Now().UTC(), DurationMins: 20, Status: slot.StatusBooked}
	if err := store.Slots.Create(ctx, sl); err != nil {
		t.Fatal(err)
	}
	pat := &patient.Patient{Name: "Ravi", NationalID: 987654321098, Age: 41, UserID: u.ID, SlotID: sl.ID}
	if err := store.Patients.Create(ctx, pat); err != nil {
		t.Fatal(err)
	}

	deps := service.PrescriptionDeps{
		Prescriptions: store.Prescriptions,
		Patients:      store.Patients,
		Slots:         store.Slots,
		Users:         store.Users,
		Audit:         audit,
		Metrics:       m,
		Log:           log,
	}
	for _, opt := range opts {
		opt(&deps)
	}

	router := NewRouter(RouterDeps{
		Config:  testConfig(),
		Service: service.NewPrescriptionService(deps),
		Metrics: m,
		Log:     log,
	})

	return &testEnv{router: router, logs: logs, userID: u.ID, slotID: sl.ID, patientID: pat.ID}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		if err := json.NewEncoder(&buf).Encode(b); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) body(date string, medicines ...string) map[string]any {
	return map[string]any{
		"fever":      98.6,
		"bp":         "118/76",
		"date":       date,
		"medicines":  medicines,
		"tests":      []string{"CBC", "LFT"},
		"user_id":    e.userID,
		"slot_id":    e.slotID,
		"patient_id": e.patientID,
	}
}

func (e *testEnv) create(t *testing.T, body any) PrescriptionResponse {
	t.Helper()
	w := e.do(t, http.MethodPost, "/api/prescriptions/post", body)
	if w.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var resp PrescriptionResponse
	decode(t, w, &resp)
	return resp
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("decoding %q: %v", w.Body.String(), err)
	}
}

func TestCreate_RoundTripPreservesListOrder(t *testing.T) {
	env := newTestEnv(t)

	created := env.create(t, env.body("2024-03-01", "X", "Y"))
	if created.ID <= 0 {
		t.Fatalf("expected assigned id, got %d", created.ID)
	}

	w := env.do(t, http.MethodGet, "/api/prescriptions/user/"+itoa(env.userID)+"/date/2024-03-01", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var list []PrescriptionResponse
	decode(t, w, &list)
	if len(list) != 1 {
		t.Fatalf("expected 1 prescription, got %d", len(list))
	}
	if got := list[0].Medicines; len(got) != 2 || got[0] != "X" || got[1] != "Y" {
		t.Errorf("expected medicines [X Y], got %v", got)
	}
	if list[0].Date != "2024-03-01" {
		t.Errorf("expected date 2024-03-01, got %s", list[0].Date)
	}
	if list[0].History == nil {
		t.Error("expected history to be an array, got null")
	}
}

func TestCreate_IgnoresClientIDAndAssignsDistinctIDs(t *testing.T) {
	env := newTestEnv(t)

	body := env.body("2024-03-01", "A")
	body["id"] = 77
	a := env.create(t, body)
	b := env.create(t, env.body("2024-03-01", "B"))

	if a.ID == 77 {
		t.Error("client-supplied id must be ignored")
	}
	if a.ID == b.ID {
		t.Errorf("expected distinct ids, both %d", a.ID)
	}
}

func TestCreate_Failures(t *testing.T) {
	env := newTestEnv(t)

	t.Run("storage failure is 424", func(t *testing.T) {
		body := env.body("2024-03-01", "A")
		body["attachment_key"] = "scans/missing.pdf"
		w := env.do(t, http.MethodPost, "/api/prescriptions/post", body)
		if w.Code != http.StatusFailedDependency {
			t.Fatalf("expected 424, got %d: %s", w.Code, w.Body.String())
		}
		var resp ErrorResponse
		decode(t, w, &resp)
		if !strings.HasPrefix(resp.Message, "Prescription file not found: ") {
			t.Errorf("unexpected message %q", resp.Message)
		}
		if resp.Error != "Failed Dependency" || resp.Status != http.StatusFailedDependency {
			t.Errorf("unexpected envelope %+v", resp)
		}
	})

	t.Run("unknown patient is 500", func(t *testing.T) {
		body := env.body("2024-03-01", "A")
		body["patient_id"] = 4242
		w := env.do(t, http.MethodPost, "/api/prescriptions/post", body)
		if w.Code != http.StatusInternalServerError {
			t.Fatalf("expected 500, got %d", w.Code)
		}
		var resp ErrorResponse
		decode(t, w, &resp)
		if !strings.HasPrefix(resp.Message, "An error occurred while creating the prescription. ") {
			t.Errorf("unexpected message %q", resp.Message)
		}
	})

	t.Run("malformed json is 400", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/api/prescriptions/post", `{"fever": "hot"`)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", w.Code)
		}
	})

	t.Run("bad body date is 400", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/api/prescriptions/post", env.body("01/03/2024", "A"))
		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", w.Code)
		}
	})
}

func TestCreate_RoundTripByID(t *testing.T) {
	env := newTestEnv(t)

	created := env.create(t, map[string]any{
		"tests":      []string{"CBC", "X-Ray"},
		"medicines":  []string{"Paracetamol"},
		"history":    []string{"Allergic to penicillin"},
		"user_id":    env.userID,
		"slot_id":    env.slotID,
		"patient_id": env.patientID,
	})

	w := env.do(t, http.MethodGet, "/api/prescriptions/"+itoa(created.ID), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var got PrescriptionResponse
	decode(t, w, &got)

	want := map[string][]string{
		"tests":     {"CBC", "X-Ray"},
		"medicines": {"Paracetamol"},
		"history":   {"Allergic to penicillin"},
	}
	lists := map[string][]string{"tests": got.Tests, "medicines": got.Medicines, "history": got.History}
	for name, expected := range want {
		if !slices.Equal(lists[name], expected) {
			t.Errorf("%s: expected %q, got %q", name, expected, lists[name])
		}
	}
}

func TestUnknownID_Returns404(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		method string
		path   string
		body   any
	}{
		{http.MethodGet, "/api/prescriptions/999", nil},
		{http.MethodPut, "/api/prescriptions/999", env.body("2024-03-01", "A")},
		{http.MethodDelete, "/api/prescriptions/999", nil},
		{http.MethodGet, "/api/prescriptions/999/detail", nil},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := env.do(t, tt.method, tt.path, tt.body)
			if w.Code != http.StatusNotFound {
				t.Fatalf("expected 404, got %d: %s", w.Code, w.Body.String())
			}
			var resp ErrorResponse
			decode(t, w, &resp)
			if resp.Error != "Not Found" {
				t.Errorf("expected reason phrase Not Found, got %q", resp.Error)
			}
			if resp.Message != "prescription not found with id 999" {
				t.Errorf("unexpected message %q", resp.Message)
			}
			if resp.Timestamp.IsZero() {
				t.Error("expected timestamp to be set")
			}
		})
	}
}

func TestUpdate_ReplacesRecord(t *testing.T) {
	env := newTestEnv(t)
	created := env.create(t, env.body("2024-03-01", "A", "B"))

	next := env.body("2024-03-02", "C")
	delete(next, "fever")
	w := env.do(t, http.MethodPut, "/api/prescriptions/"+itoa(created.ID), next)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var updated PrescriptionResponse
	decode(t, w, &updated)
	if updated.ID != created.ID || updated.Date != "2024-03-02" || updated.Fever != nil {
		t.Errorf("unexpected update result %+v", updated)
	}

	w = env.do(t, http.MethodGet, "/api/prescriptions/"+itoa(created.ID), nil)
	var fetched PrescriptionResponse
	decode(t, w, &fetched)
	if len(fetched.Medicines) != 1 || fetched.Medicines[0] != "C" {
		t.Errorf("expected medicines [C], got %v", fetched.Medicines)
	}
}

func TestUpdate_Failures(t *testing.T) {
	env := newTestEnv(t)
	created := env.create(t, env.body("2024-03-01", "A"))
	path := "/api/prescriptions/" + itoa(created.ID)

	t.Run("unknown patient is 500", func(t *testing.T) {
		body := env.body("2024-03-01", "A")
		body["patient_id"] = 4242
		w := env.do(t, http.MethodPut, path, body)
		if w.Code != http.StatusInternalServerError {
			t.Fatalf("expected 500, got %d: %s", w.Code, w.Body.String())
		}
		var resp ErrorResponse
		decode(t, w, &resp)
		if !strings.HasPrefix(resp.Message, "Error updating prescription. ") {
			t.Errorf("unexpected message %q", resp.Message)
		}
	})

	t.Run("missing attachment is 424", func(t *testing.T) {
		body := env.body("2024-03-01", "A")
		body["attachment_key"] = "scans/missing.pdf"
		w := env.do(t, http.MethodPut, path, body)
		if w.Code != http.StatusFailedDependency {
			t.Fatalf("expected 424, got %d: %s", w.Code, w.Body.String())
		}
		var resp ErrorResponse
		decode(t, w, &resp)
		if !strings.HasPrefix(resp.Message, "Prescription file not found: ") {
			t.Errorf("unexpected message %q", resp.Message)
		}
	})

	w := env.do(t, http.MethodGet, path, nil)
	var fetched PrescriptionResponse
	decode(t, w, &fetched)
	if fetched.PatientID != env.patientID || fetched.AttachmentKey != nil {
		t.Errorf("failed updates must not change the record, got %+v", fetched)
	}
}

func TestDelete_Failure(t *testing.T) {
	env := newTestEnv(t, func(d *service.PrescriptionDeps) {
		d.Prescriptions = brokenDelete{d.Prescriptions.(*memory.PrescriptionRepository)}
	})

	w := env.do(t, http.MethodDelete, "/api/prescriptions/1", nil)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	var resp ErrorResponse
	decode(t, w, &resp)
	if resp.Message != "Error deleting prescription. deadlock detected" {
		t.Errorf("unexpected message %q", resp.Message)
	}
}

func TestDelete_ThenGetIs404(t *testing.T) {
	env := newTestEnv(t)
	created := env.create(t, env.body("2024-03-01", "A"))

	w := env.do(t, http.MethodDelete, "/api/prescriptions/"+itoa(created.ID), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var msg MessageResponse
	decode(t, w, &msg)
	if msg.Message != "Prescription deleted successfully." {
		t.Errorf("unexpected message %q", msg.Message)
	}

	w = env.do(t, http.MethodGet, "/api/prescriptions/"+itoa(created.ID), nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404 after delete, got %d", w.Code)
	}
}

func TestGetByUserAndDate(t *testing.T) {
	env := newTestEnv(t)

	t.Run("invalid calendar date is 400", func(t *testing.T) {
		w := env.do(t, http.MethodGet, "/api/prescriptions/user/1/date/2024-13-40", nil)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", w.Code)
		}
		var resp ErrorResponse
		decode(t, w, &resp)
		if !strings.HasPrefix(resp.Message, "Invalid date format or request. ") {
			t.Errorf("unexpected message %q", resp.Message)
		}
	})

	t.Run("non numeric user is 400", func(t *testing.T) {
		w := env.do(t, http.MethodGet, "/api/prescriptions/user/abc/date/2024-03-01", nil)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", w.Code)
		}
	})

	t.Run("no matches is 204 with empty body", func(t *testing.T) {
		w := env.do(t, http.MethodGet, "/api/prescriptions/user/1/date/2030-01-01", nil)
		if w.Code != http.StatusNoContent {
			t.Fatalf("expected 204, got %d", w.Code)
		}
		if w.Body.Len() != 0 {
			t.Errorf("expected empty body, got %q", w.Body.String())
		}
		if env.logs.FilterMessage("No prescriptions found for the given user and date.").Len() != 1 {
			t.Error("expected the empty result to be logged")
		}
	})
}

func TestGetAll(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/prescriptions", nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204 for empty store, got %d", w.Code)
	}

	first := env.create(t, env.body("2024-03-01", "A"))
	second := env.create(t, env.body("2024-03-02", "B"))

	w = env.do(t, http.MethodGet, "/api/prescriptions", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var list []PrescriptionResponse
	decode(t, w, &list)
	if len(list) != 2 || list[0].ID != first.ID || list[1].ID != second.ID {
		t.Errorf("unexpected list %+v", list)
	}
}

func TestGetAll_Failure(t *testing.T) {
	env := newTestEnv(t, func(d *service.PrescriptionDeps) {
		d.Prescriptions = brokenList{d.Prescriptions.(*memory.PrescriptionRepository)}
	})

	w := env.do(t, http.MethodGet, "/api/prescriptions", nil)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	var resp ErrorResponse
	decode(t, w, &resp)
	if resp.Message != "Error fetching prescriptions. connection reset by peer" {
		t.Errorf("unexpected message %q", resp.Message)
	}
}

func TestGetDetail(t *testing.T) {
	env := newTestEnv(t)
	created := env.create(t, env.body("2024-03-01", "A"))

	w := env.do(t, http.MethodGet, "/api/prescriptions/"+itoa(created.ID)+"/detail", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var d DetailResponse
	decode(t, w, &d)
	if d.User == nil || d.User.ID != env.userID || d.Patient == nil || d.Patient.ID != env.patientID {
		t.Errorf("unexpected detail %+v", d)
	}
	if d.Slot == nil || d.Slot.ID != env.slotID || !d.Slot.EndsAt.Equal(d.Slot.StartsAt.Add(20*time.Minute)) {
		t.Errorf("unexpected slot %+v", d.Slot)
	}
}

func TestOpenAPIDocument(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/prescriptions/openapi.json", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var doc struct {
		OpenAPI string                    `json:"openapi"`
		Paths   map[string]map[string]any `json:"paths"`
	}
	decode(t, w, &doc)
	if doc.OpenAPI != "3.0.3" {
		t.Errorf("unexpected openapi version %q", doc.OpenAPI)
	}

	want := map[string][]string{
		"/post":                      {"post"},
		"/":                          {"get"},
		"/{id}":                      {"get", "put", "delete"},
		"/{id}/detail":               {"get"},
		"/user/{userId}/date/{date}": {"get"},
	}
	for path, methods := range want {
		for _, m := range methods {
			if _, ok := doc.Paths[path][m]; !ok {
				t.Errorf("missing %s %s", m, path)
			}
		}
	}
}

func TestInvalidPathID(t *testing.T) {
	env := newTestEnv(t)

	for _, path := range []string{"/api/prescriptions/abc", "/api/prescriptions/-3"} {
		w := env.do(t, http.MethodGet, path, nil)
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", path, w.Code)
		}
	}
}

func TestCORS_AllowsConfiguredOrigin(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/prescriptions", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Errorf("expected allowed origin header, got %q", got)
	}

	req = httptest.NewRequest(http.MethodOptions, "/api/prescriptions", nil)
	req.Header.Set("Origin", "http://evil.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	w = httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("expected no allow-origin for unknown origin, got %q", got)
	}
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
