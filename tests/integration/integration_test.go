package integration_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/companychat/crm-backend-go/internal/domain"
	"github.com/companychat/crm-backend-go/internal/handler"
	"github.com/companychat/crm-backend-go/internal/infra/observability"
	"github.com/companychat/crm-backend-go/internal/infra/resilience"
	"github.com/companychat/crm-backend-go/internal/infra/sqlite"
	"github.com/companychat/crm-backend-go/internal/infra/supabase"
	"github.com/companychat/crm-backend-go/internal/infra/webhook"
	"github.com/companychat/crm-backend-go/internal/service"
	"github.com/companychat/crm-backend-go/internal/store"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var testSecret = []byte("integration-secret")

// fakePostgREST emulates the subset of the Supabase REST API the CRM uses:
// GET/POST/PATCH/DELETE on /rest/v1/clients with eq. filters.
type fakePostgREST struct {
	mu   sync.Mutex
	rows []domain.ClientRow
}

func eqParam(r *http.Request, key string) string {
	v := r.URL.Query().Get(key)
	return strings.TrimPrefix(v, "eq.")
}

func (f *fakePostgREST) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/rest/v1/clients") {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("apikey") == "" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		f.mu.Lock()
		defer f.mu.Unlock()

		ownerID := eqParam(r, "user_id")
		id := eqParam(r, "id")

		switch r.Method {
		case http.MethodGet:
			out := []domain.ClientRow{}
			for _, row := range f.rows {
				if row.UserID == ownerID {
					out = append(out, row)
				}
			}
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(out)

		case http.MethodPost:
			var row domain.ClientRow
			if err := json.NewDecoder(r.Body).Decode(&row); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			// column defaults, like the real table
			if row.ID == "" {
				row.ID = uuid.New().String()
			}
			if row.CreatedAt == "" {
				row.CreatedAt = time.Now().UTC().Format(time.RFC3339)
			}
			f.rows = append(f.rows, row)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusCreated)
			json.NewEncoder(w).Encode([]domain.ClientRow{row})

		case http.MethodPatch:
			var patch map[string]any
			if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			for i := range f.rows {
				if f.rows[i].ID == id && f.rows[i].UserID == ownerID {
					if s, ok := patch["status"].(string); ok {
						f.rows[i].Status = s
					}
					if v, ok := patch["monthly_value"].(float64); ok {
						f.rows[i].MonthlyValue = v
					}
				}
			}
			w.WriteHeader(http.StatusNoContent)

		case http.MethodDelete:
			kept := f.rows[:0]
			for _, row := range f.rows {
				if !(row.ID == id && row.UserID == ownerID) {
					kept = append(kept, row)
				}
			}
			f.rows = kept
			w.WriteHeader(http.StatusNoContent)

		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	}
}

func buildStack(t *testing.T, backendURL string) http.Handler {
	t.Helper()
	logger := zap.NewNop()
	metrics := observability.NewMetrics()
	httpClient := &http.Client{Timeout: 5 * time.Second}

	settingsDB, err := sqlite.Open(":memory:", logger)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { settingsDB.Close() })

	settingsStore := store.NewSettingsStore(settingsDB, logger)
	if err := settingsStore.Load(context.Background()); err != nil {
		t.Fatalf("load settings: %v", err)
	}

	cb := resilience.NewCircuitBreaker("integration")
	supabaseClient := supabase.NewClient(httpClient, backendURL, "anon-key", "service-key", cb, logger)
	stores := store.NewManager(supabaseClient, time.Minute, metrics, logger)

	dispatcher := webhook.NewDispatcher(
		httpClient,
		settingsStore,
		resilience.Config{MaxRetries: 1, InitialBackoff: 10 * time.Millisecond, MaxConcurrency: 4},
		5*time.Second,
		metrics,
		logger,
	)

	return handler.NewRouter(handler.Deps{
		Clients:   service.NewClientService(stores, settingsStore, dispatcher, metrics, logger),
		Reporting: service.NewReportingService(stores, logger),
		Settings:  service.NewSettingsService(settingsStore, logger),
		Sessions:  service.NewSessionService(testSecret),
		DB:        supabaseClient,
		Metrics:   metrics,
		Logger:    logger,
	})
}

func bearerToken(t *testing.T, sub string) string {
	t.Helper()
	claims := jwt.MapClaims{"sub": sub, "exp": time.Now().Add(time.Hour).Unix()}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSecret)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return "Bearer " + signed
}

func doJSON(t *testing.T, router http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

// TestIntegration_FullFlow exercises the whole stack against an emulated
// Supabase backend: create, list, report, transition and delete a client.
func TestIntegration_FullFlow(t *testing.T) {
	backend := &fakePostgREST{}
	backendSrv := httptest.NewServer(backend.handler())
	defer backendSrv.Close()

	router := buildStack(t, backendSrv.URL)
	token := bearerToken(t, "owner-int-1")

	// Create
	rec := doJSON(t, router, http.MethodPost, "/v1/clients", token, map[string]any{
		"companyName":      "Empresa Integration",
		"responsibleName":  "Maria Silva",
		"responsiblePhone": "11999990000",
		"email":            "maria@integration.com",
		"niche":            "Tecnologia",
		"product":          "Plano PRO",
		"monthlyValue":     397,
		"paymentMethod":    "pix",
		"dueDate":          15,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}
	var created domain.Client
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatal(err)
	}

	// The row actually landed in the backend
	if len(backend.rows) != 1 || backend.rows[0].UserID != "owner-int-1" {
		t.Fatalf("backend rows: %+v", backend.rows)
	}

	// Reports see the new revenue
	rec = doJSON(t, router, http.MethodGet, "/v1/reports", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("reports: %d", rec.Code)
	}
	var report domain.ReportSummary
	if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
		t.Fatal(err)
	}
	if report.MRR != 397 || report.ARR != 397*12 {
		t.Errorf("MRR=%v ARR=%v, want 397 / %v", report.MRR, report.ARR, 397*12)
	}

	// Cancel and verify the backend saw the patch
	rec = doJSON(t, router, http.MethodPatch, "/v1/clients/"+created.ID+"/status", token,
		map[string]string{"status": "cancelled"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status: %d (%s)", rec.Code, rec.Body.String())
	}
	if backend.rows[0].Status != "cancelled" {
		t.Errorf("backend status = %q, want cancelled", backend.rows[0].Status)
	}

	// Delete
	rec = doJSON(t, router, http.MethodDelete, "/v1/clients/"+created.ID, token, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete: %d", rec.Code)
	}
	if len(backend.rows) != 0 {
		t.Errorf("backend still holds %d rows after delete", len(backend.rows))
	}
}

// TestIntegration_WebhookDelivery connects an integration and checks that a
// confirmed client mutation reaches its webhook URL.
func TestIntegration_WebhookDelivery(t *testing.T) {
	backend := &fakePostgREST{}
	backendSrv := httptest.NewServer(backend.handler())
	defer backendSrv.Close()

	var mu sync.Mutex
	var delivered []domain.ClientEvent
	hookSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var ev domain.ClientEvent
		_ = json.NewDecoder(r.Body).Decode(&ev)
		mu.Lock()
		delivered = append(delivered, ev)
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer hookSrv.Close()

	router := buildStack(t, backendSrv.URL)
	token := bearerToken(t, "owner-int-2")

	rec := doJSON(t, router, http.MethodPatch, "/v1/settings/integrations/n8n", token,
		map[string]any{"connected": true, "webhookUrl": hookSrv.URL})
	if rec.Code != http.StatusOK {
		t.Fatalf("connect integration: %d (%s)", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, router, http.MethodPost, "/v1/clients", token, map[string]any{
		"companyName":      "Webhook Cliente",
		"responsibleName":  "Resp",
		"responsiblePhone": "1199",
		"email":            "hook@test.com",
		"dueDate":          1,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: %d (%s)", rec.Code, rec.Body.String())
	}

	// delivery is asynchronous
	deadline := time.Now().Add(2 * time.Second)
	for {
		mu.Lock()
		n := len(delivered)
		mu.Unlock()
		if n > 0 || time.Now().After(deadline) {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(delivered) != 1 {
		t.Fatalf("expected 1 webhook delivery, got %d", len(delivered))
	}
	if delivered[0].Type != domain.EventClientCreated || delivered[0].OwnerID != "owner-int-2" {
		t.Errorf("unexpected event: %+v", delivered[0])
	}
}
