package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/companychat/crm-backend-go/internal/domain"
	"github.com/companychat/crm-backend-go/internal/infra/observability"
	"github.com/companychat/crm-backend-go/internal/service"
	"github.com/companychat/crm-backend-go/internal/store"

	"go.uber.org/zap"
)

// ============================================================
// Fakes
// ============================================================

type fakeDB struct {
	mu   sync.Mutex
	rows []domain.ClientRow

	insertErr error
}

func (f *fakeDB) ListByOwner(ctx context.Context, ownerID string) ([]domain.ClientRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.ClientRow, 0, len(f.rows))
	for _, r := range f.rows {
		if r.UserID == ownerID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeDB) Insert(ctx context.Context, row domain.ClientRow) (*domain.ClientRow, error) {
	if f.insertErr != nil {
		return nil, f.insertErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows = append(f.rows, row)
	return &row, nil
}

func (f *fakeDB) UpdatePatch(ctx context.Context, id, ownerID string, patch map[string]any) error {
	return nil
}

func (f *fakeDB) Delete(ctx context.Context, id, ownerID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, r := range f.rows {
		if r.ID == id && r.UserID == ownerID {
			f.rows = append(f.rows[:i], f.rows[i+1:]...)
			break
		}
	}
	return nil
}

type memorySettingsDB struct {
	mu    sync.Mutex
	saved *domain.Settings
}

func (m *memorySettingsDB) Load(ctx context.Context) (*domain.Settings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saved, nil
}

func (m *memorySettingsDB) Save(ctx context.Context, s *domain.Settings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.saved = &cp
	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.ClientEvent
}

func (p *recordingPublisher) Publish(ctx context.Context, ev domain.ClientEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
}

func (p *recordingPublisher) all() []domain.ClientEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domain.ClientEvent(nil), p.events...)
}

// ============================================================
// Test harness
// ============================================================

type harness struct {
	svc      *service.ClientService
	settings *store.SettingsStore
	db       *fakeDB
	events   *recordingPublisher
}

func newHarness(t *testing.T, db *fakeDB) *harness {
	t.Helper()
	logger := zap.NewNop()
	metrics := observability.NewMetrics()

	settings := store.NewSettingsStore(&memorySettingsDB{}, logger)
	if err := settings.Load(context.Background()); err != nil {
		t.Fatalf("load settings: %v", err)
	}

	stores := store.NewManager(db, time.Minute, metrics, logger)
	events := &recordingPublisher{}
	return &harness{
		svc:      service.NewClientService(stores, settings, events, metrics, logger),
		settings: settings,
		db:       db,
		events:   events,
	}
}

func validClient() domain.Client {
	return domain.Client{
		CompanyName:      "ACME Ltda",
		ResponsibleName:  "Maria Silva",
		ResponsiblePhone: "11999990000",
		Email:            "maria@acme.com",
		Niche:            "Saúde",
		Product:          "Plano PRO",
		MonthlyValue:     397,
		PaymentMethod:    domain.PaymentPix,
		DueDate:          10,
	}
}

// ============================================================
// Add
// ============================================================

func TestAdd_RejectsInvalidInput(t *testing.T) {
	h := newHarness(t, &fakeDB{})

	cases := []struct {
		name   string
		mutate func(*domain.Client)
	}{
		{"missing company name", func(c *domain.Client) { c.CompanyName = " " }},
		{"missing responsible name", func(c *domain.Client) { c.ResponsibleName = "" }},
		{"missing phone", func(c *domain.Client) { c.ResponsiblePhone = "" }},
		{"malformed email", func(c *domain.Client) { c.Email = "not-an-email" }},
		{"short document", func(c *domain.Client) { c.Document = "123" }},
		{"due date zero", func(c *domain.Client) { c.DueDate = 0 }},
		{"due date 32", func(c *domain.Client) { c.DueDate = 32 }},
		{"negative value", func(c *domain.Client) { c.MonthlyValue = -1 }},
		{"bad status", func(c *domain.Client) { c.Status = "paused" }},
		{"unknown payment method", func(c *domain.Client) { c.PaymentMethod = "barter" }},
		{"inactive niche", func(c *domain.Client) { c.Niche = "Astrologia" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := validClient()
			tc.mutate(&c)

			_, err := h.svc.Add(context.Background(), "owner-1", c)
			var validation *domain.ErrValidation
			if !errors.As(err, &validation) {
				t.Fatalf("expected validation error, got %v", err)
			}
			// validation fires before anything reaches the backend
			if len(h.db.rows) != 0 {
				t.Error("invalid input must never reach persistence")
			}
		})
	}
}

func TestAdd_AcceptsConfiguredPaymentMethod(t *testing.T) {
	h := newHarness(t, &fakeDB{})

	c := validClient()
	c.PaymentMethod = "PIX" // active configured method, not a builtin enum value
	if _, err := h.svc.Add(context.Background(), "owner-1", c); err != nil {
		t.Fatalf("configured payment method rejected: %v", err)
	}
}

func TestAdd_PublishesEventAndRecomputesUsage(t *testing.T) {
	h := newHarness(t, &fakeDB{})

	created, err := h.svc.Add(context.Background(), "owner-1", validClient())
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	events := h.events.all()
	if len(events) != 1 || events[0].Type != domain.EventClientCreated {
		t.Fatalf("expected one client.created event, got %v", events)
	}
	if events[0].ClientID != created.ID || events[0].OwnerID != "owner-1" {
		t.Errorf("event payload: %+v", events[0])
	}

	// usage counters follow the client list
	for _, p := range h.settings.Products() {
		if p.Name == "Plano PRO" && p.ClientsUsing != 1 {
			t.Errorf("Plano PRO usage = %d, want 1", p.ClientsUsing)
		}
	}
}

func TestAdd_PersistenceFailureSurfacesError(t *testing.T) {
	h := newHarness(t, &fakeDB{insertErr: errors.New("supabase down")})

	if _, err := h.svc.Add(context.Background(), "owner-1", validClient()); err == nil {
		t.Fatal("expected persistence error")
	}
	if len(h.events.all()) != 0 {
		t.Error("failed add must not publish events")
	}
}

// ============================================================
// UpdateStatus / Delete
// ============================================================

func TestUpdateStatus(t *testing.T) {
	h := newHarness(t, &fakeDB{})
	created, err := h.svc.Add(context.Background(), "owner-1", validClient())
	if err != nil {
		t.Fatal(err)
	}

	if err := h.svc.UpdateStatus(context.Background(), "owner-1", created.ID, domain.StatusOverdue); err != nil {
		t.Fatalf("update status: %v", err)
	}

	got, err := h.svc.Get(context.Background(), "owner-1", created.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != domain.StatusOverdue {
		t.Errorf("status = %q, want overdue", got.Status)
	}

	events := h.events.all()
	last := events[len(events)-1]
	if last.Type != domain.EventClientStatusChanged || last.Status != domain.StatusOverdue {
		t.Errorf("expected status_changed event, got %+v", last)
	}
}

func TestUpdateStatus_InvalidStatus(t *testing.T) {
	h := newHarness(t, &fakeDB{})

	err := h.svc.UpdateStatus(context.Background(), "owner-1", "any", "archived")
	var validation *domain.ErrValidation
	if !errors.As(err, &validation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestUpdateStatus_NotFound(t *testing.T) {
	h := newHarness(t, &fakeDB{})

	err := h.svc.UpdateStatus(context.Background(), "owner-1", "missing", domain.StatusActive)
	var notFound *domain.ErrNotFound
	if !errors.As(err, &notFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	h := newHarness(t, &fakeDB{})
	created, err := h.svc.Add(context.Background(), "owner-1", validClient())
	if err != nil {
		t.Fatal(err)
	}

	if err := h.svc.Delete(context.Background(), "owner-1", created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if _, err := h.svc.Get(context.Background(), "owner-1", created.ID); err == nil {
		t.Error("deleted client still readable")
	}

	events := h.events.all()
	last := events[len(events)-1]
	if last.Type != domain.EventClientDeleted {
		t.Errorf("expected deleted event, got %+v", last)
	}
}

// ============================================================
// List / Update
// ============================================================

func TestList_FilterAndSearch(t *testing.T) {
	h := newHarness(t, &fakeDB{})
	ctx := context.Background()

	a := validClient()
	a.CompanyName = "ACME Ltda"
	b := validClient()
	b.CompanyName = "Beta Imóveis"
	b.Email = "beta@beta.com"

	if _, err := h.svc.Add(ctx, "owner-1", a); err != nil {
		t.Fatal(err)
	}
	created, err := h.svc.Add(ctx, "owner-1", b)
	if err != nil {
		t.Fatal(err)
	}
	if err := h.svc.UpdateStatus(ctx, "owner-1", created.ID, domain.StatusInactive); err != nil {
		t.Fatal(err)
	}

	all, err := h.svc.List(ctx, "owner-1", "", "all")
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Fatalf("list all = %d, want 2", len(all))
	}

	active, err := h.svc.List(ctx, "owner-1", "", "active")
	if err != nil {
		t.Fatal(err)
	}
	if len(active) != 1 || active[0].CompanyName != "ACME Ltda" {
		t.Errorf("active filter: %+v", active)
	}

	found, err := h.svc.List(ctx, "owner-1", "acme", "")
	if err != nil {
		t.Fatal(err)
	}
	if len(found) != 1 || found[0].CompanyName != "ACME Ltda" {
		t.Errorf("search: %+v", found)
	}
}

func TestUpdate_EmptyPatchRejected(t *testing.T) {
	h := newHarness(t, &fakeDB{})

	_, err := h.svc.Update(context.Background(), "owner-1", "any", domain.ClientPatch{})
	var validation *domain.ErrValidation
	if !errors.As(err, &validation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestUpdate_AppliesPatch(t *testing.T) {
	h := newHarness(t, &fakeDB{})
	created, err := h.svc.Add(context.Background(), "owner-1", validClient())
	if err != nil {
		t.Fatal(err)
	}

	value := 997.0
	updated, err := h.svc.Update(context.Background(), "owner-1", created.ID, domain.ClientPatch{MonthlyValue: &value})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.MonthlyValue != 997 {
		t.Errorf("monthlyValue = %v, want 997", updated.MonthlyValue)
	}
	if updated.CompanyName != created.CompanyName {
		t.Error("untouched fields must survive a sparse patch")
	}
}
