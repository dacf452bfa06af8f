package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/companychat/crm-backend-go/internal/domain"
	"github.com/companychat/crm-backend-go/internal/handler"
	"github.com/companychat/crm-backend-go/internal/infra/observability"
	"github.com/companychat/crm-backend-go/internal/service"
	"github.com/companychat/crm-backend-go/internal/store"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

var testSecret = []byte("router-test-secret")

// ============================================================
// Fakes
// ============================================================

type fakeDB struct {
	rows []domain.ClientRow
}

func (f *fakeDB) ListByOwner(ctx context.Context, ownerID string) ([]domain.ClientRow, error) {
	out := make([]domain.ClientRow, 0, len(f.rows))
	for _, r := range f.rows {
		if r.UserID == ownerID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeDB) Insert(ctx context.Context, row domain.ClientRow) (*domain.ClientRow, error) {
	f.rows = append(f.rows, row)
	return &row, nil
}

func (f *fakeDB) UpdatePatch(ctx context.Context, id, ownerID string, patch map[string]any) error {
	return nil
}

func (f *fakeDB) Delete(ctx context.Context, id, ownerID string) error {
	for i, r := range f.rows {
		if r.ID == id && r.UserID == ownerID {
			f.rows = append(f.rows[:i], f.rows[i+1:]...)
			break
		}
	}
	return nil
}

type memorySettingsDB struct {
	saved *domain.Settings
}

func (m *memorySettingsDB) Load(ctx context.Context) (*domain.Settings, error) { return m.saved, nil }
func (m *memorySettingsDB) Save(ctx context.Context, s *domain.Settings) error {
	cp := *s
	m.saved = &cp
	return nil
}

type nopPublisher struct{}

func (nopPublisher) Publish(ctx context.Context, ev domain.ClientEvent) {}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	logger := zap.NewNop()
	metrics := observability.NewMetrics()

	settings := store.NewSettingsStore(&memorySettingsDB{}, logger)
	if err := settings.Load(context.Background()); err != nil {
		t.Fatalf("load settings: %v", err)
	}

	db := &fakeDB{}
	stores := store.NewManager(db, time.Minute, metrics, logger)

	return handler.NewRouter(handler.Deps{
		Clients:   service.NewClientService(stores, settings, nopPublisher{}, metrics, logger),
		Reporting: service.NewReportingService(stores, logger),
		Settings:  service.NewSettingsService(settings, logger),
		Sessions:  service.NewSessionService(testSecret),
		DB:        db,
		Metrics:   metrics,
		Logger:    logger,
	})
}

func bearerToken(t *testing.T, sub string) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub": sub,
		"exp": time.Now().Add(time.Hour).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSecret)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return "Bearer " + signed
}

func doRequest(t *testing.T, router http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

// ============================================================
// Operational endpoints
// ============================================================

func TestHealthz(t *testing.T) {
	rec := doRequest(t, newTestRouter(t), http.MethodGet, "/healthz", "", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestReadyz(t *testing.T) {
	rec := doRequest(t, newTestRouter(t), http.MethodGet, "/readyz", "", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestMetrics(t *testing.T) {
	rec := doRequest(t, newTestRouter(t), http.MethodGet, "/metrics", "", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestPing(t *testing.T) {
	rec := doRequest(t, newTestRouter(t), http.MethodGet, "/ping", "", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

// ============================================================
// Auth
// ============================================================

func TestV1_RequiresToken(t *testing.T) {
	router := newTestRouter(t)

	paths := []string{"/v1/clients", "/v1/dashboard", "/v1/reports", "/v1/settings/products"}
	for _, path := range paths {
		rec := doRequest(t, router, http.MethodGet, path, "", nil)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s without token: expected 401, got %d", path, rec.Code)
		}
	}
}

func TestV1_RejectsMalformedToken(t *testing.T) {
	rec := doRequest(t, newTestRouter(t), http.MethodGet, "/v1/clients", "Bearer nope", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

// ============================================================
// Client CRUD over HTTP
// ============================================================

func TestClientLifecycle(t *testing.T) {
	router := newTestRouter(t)
	token := bearerToken(t, "owner-1")

	newClient := map[string]any{
		"companyName":      "ACME Ltda",
		"responsibleName":  "Maria Silva",
		"responsiblePhone": "11999990000",
		"email":            "maria@acme.com",
		"niche":            "Saúde",
		"product":          "Plano PRO",
		"monthlyValue":     397,
		"paymentMethod":    "pix",
		"dueDate":          10,
	}

	rec := doRequest(t, router, http.MethodPost, "/v1/clients", token, newClient)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}
	var created domain.Client
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode created: %v", err)
	}
	if created.ID == "" || created.Status != domain.StatusActive {
		t.Fatalf("unexpected created client: %+v", created)
	}

	rec = doRequest(t, router, http.MethodGet, "/v1/clients", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list: expected 200, got %d", rec.Code)
	}
	var listed []domain.Client
	if err := json.Unmarshal(rec.Body.Bytes(), &listed); err != nil {
		t.Fatal(err)
	}
	if len(listed) != 1 {
		t.Fatalf("expected 1 client, got %d", len(listed))
	}

	rec = doRequest(t, router, http.MethodPatch, "/v1/clients/"+created.ID+"/status", token,
		map[string]string{"status": "cancelled"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status: expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}

	rec = doRequest(t, router, http.MethodGet, "/v1/dashboard", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("dashboard: expected 200, got %d", rec.Code)
	}
	var dash domain.DashboardSummary
	if err := json.Unmarshal(rec.Body.Bytes(), &dash); err != nil {
		t.Fatal(err)
	}
	if dash.TotalClients != 1 || dash.MonthlyRevenue != 0 {
		t.Errorf("dashboard after cancel: %+v", dash)
	}

	rec = doRequest(t, router, http.MethodDelete, "/v1/clients/"+created.ID, token, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete: expected 204, got %d", rec.Code)
	}

	rec = doRequest(t, router, http.MethodGet, "/v1/clients/"+created.ID, token, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("get deleted: expected 404, got %d", rec.Code)
	}
}

func TestCreateClient_ValidationError(t *testing.T) {
	router := newTestRouter(t)
	token := bearerToken(t, "owner-1")

	rec := doRequest(t, router, http.MethodPost, "/v1/clients", token, map[string]any{
		"companyName": "Missing Everything",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestOwnersAreIsolated(t *testing.T) {
	router := newTestRouter(t)

	newClient := map[string]any{
		"companyName":      "Isolada",
		"responsibleName":  "Resp",
		"responsiblePhone": "11999990000",
		"email":            "resp@isolada.com",
		"dueDate":          5,
	}
	rec := doRequest(t, router, http.MethodPost, "/v1/clients", bearerToken(t, "owner-1"), newClient)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: %d", rec.Code)
	}

	rec = doRequest(t, router, http.MethodGet, "/v1/clients", bearerToken(t, "owner-2"), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list as other owner: %d", rec.Code)
	}
	var listed []domain.Client
	if err := json.Unmarshal(rec.Body.Bytes(), &listed); err != nil {
		t.Fatal(err)
	}
	if len(listed) != 0 {
		t.Errorf("owner-2 sees %d of owner-1's clients", len(listed))
	}
}

// ============================================================
// Settings over HTTP
// ============================================================

func TestSettingsEndpoints(t *testing.T) {
	router := newTestRouter(t)
	token := bearerToken(t, "owner-1")

	rec := doRequest(t, router, http.MethodGet, "/v1/settings/products", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list products: %d", rec.Code)
	}
	var products []domain.Product
	if err := json.Unmarshal(rec.Body.Bytes(), &products); err != nil {
		t.Fatal(err)
	}
	if len(products) != 4 {
		t.Fatalf("expected 4 seed products, got %d", len(products))
	}

	// duplicate name rejected
	rec = doRequest(t, router, http.MethodPost, "/v1/settings/products", token,
		map[string]any{"name": "Plano PRO"})
	if rec.Code != http.StatusConflict {
		t.Errorf("duplicate product: expected 409, got %d", rec.Code)
	}

	// delete of a product in use is a conflict
	rec = doRequest(t, router, http.MethodPost, "/v1/clients", token, map[string]any{
		"companyName":      "Uso",
		"responsibleName":  "Resp",
		"responsiblePhone": "1199",
		"email":            "a@b.co",
		"product":          products[0].Name,
		"dueDate":          1,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create client: %d (%s)", rec.Code, rec.Body.String())
	}

	rec = doRequest(t, router, http.MethodDelete, "/v1/settings/products/"+products[0].ID, token, nil)
	if rec.Code != http.StatusConflict {
		t.Errorf("in-use delete: expected 409, got %d (%s)", rec.Code, rec.Body.String())
	}

	// integrations
	rec = doRequest(t, router, http.MethodPatch, "/v1/settings/integrations/n8n", token,
		map[string]any{"connected": true, "webhookUrl": "https://hooks.example/n8n"})
	if rec.Code != http.StatusOK {
		t.Fatalf("update integration: %d (%s)", rec.Code, rec.Body.String())
	}
	var ints domain.Integrations
	if err := json.Unmarshal(rec.Body.Bytes(), &ints); err != nil {
		t.Fatal(err)
	}
	if !ints.N8N.Connected {
		t.Error("integration not updated")
	}

	rec = doRequest(t, router, http.MethodPatch, "/v1/settings/integrations/slack", token,
		map[string]any{"connected": true})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("unknown integration: expected 400, got %d", rec.Code)
	}
}

func TestMetricsSummary(t *testing.T) {
	router := newTestRouter(t)
	token := bearerToken(t, "owner-1")

	rec := doRequest(t, router, http.MethodGet, "/v1/metrics/summary", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics summary: %d", rec.Code)
	}
	var snapshot domain.OpsMetrics
	if err := json.Unmarshal(rec.Body.Bytes(), &snapshot); err != nil {
		t.Fatal(err)
	}
}
