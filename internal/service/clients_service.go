package service

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/companychat/crm-backend-go/internal/analytics"
	"github.com/companychat/crm-backend-go/internal/domain"
	"github.com/companychat/crm-backend-go/internal/infra/observability"
	"github.com/companychat/crm-backend-go/internal/port"
	"github.com/companychat/crm-backend-go/internal/store"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var crmTracer = otel.Tracer("crm-service")

var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ClientService orchestrates client CRUD: validation, the per-owner mirror,
// usage counter recomputation and lifecycle events.
type ClientService struct {
	stores   *store.Manager
	settings *store.SettingsStore
	events   port.EventPublisher
	metrics  *observability.Metrics
	logger   *zap.Logger
}

func NewClientService(stores *store.Manager, settings *store.SettingsStore, events port.EventPublisher, metrics *observability.Metrics, logger *zap.Logger) *ClientService {
	return &ClientService{
		stores:   stores,
		settings: settings,
		events:   events,
		metrics:  metrics,
		logger:   logger,
	}
}

// ============================================================
// List — GET /v1/clients
// ============================================================

// List returns the owner's clients, newest first, optionally narrowed by a
// free-text query and a status ("all" or empty means every status).
func (s *ClientService) List(ctx context.Context, ownerID, query, status string) ([]domain.Client, error) {
	ctx, span := crmTracer.Start(ctx, "ClientService.List")
	defer span.End()
	start := time.Now()

	st, err := s.stores.ForOwner(ctx, ownerID)
	if err != nil {
		s.fail("list", err)
		return nil, err
	}

	clients := st.Clients()
	if query != "" {
		clients = analytics.Search(clients, query)
	}
	if status != "" {
		clients = analytics.FilterByStatus(clients, status)
	}

	s.metrics.IncrClientOp("list", "success")
	s.metrics.RecordRequestDuration("list", time.Since(start))
	span.SetAttributes(attribute.Int("clients.count", len(clients)))
	return clients, nil
}

// Get returns one client by id.
func (s *ClientService) Get(ctx context.Context, ownerID, id string) (*domain.Client, error) {
	ctx, span := crmTracer.Start(ctx, "ClientService.Get")
	defer span.End()

	st, err := s.stores.ForOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	c, ok := st.Get(id)
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "client", ID: id}
	}
	return &c, nil
}

// ============================================================
// Add — POST /v1/clients
// ============================================================

func (s *ClientService) Add(ctx context.Context, ownerID string, c domain.Client) (*domain.Client, error) {
	ctx, span := crmTracer.Start(ctx, "ClientService.Add")
	defer span.End()
	start := time.Now()

	if err := s.validateNewClient(c); err != nil {
		return nil, err
	}

	st, err := s.stores.ForOwner(ctx, ownerID)
	if err != nil {
		s.fail("add", err)
		return nil, err
	}

	created, err := st.Add(ctx, c)
	if err != nil {
		s.fail("add", err)
		return nil, err
	}

	s.afterMutation(ctx, st)
	s.events.Publish(ctx, domain.ClientEvent{
		Type:       domain.EventClientCreated,
		OwnerID:    ownerID,
		ClientID:   created.ID,
		Status:     created.Status,
		OccurredAt: time.Now().UTC(),
	})

	s.metrics.IncrClientOp("add", "success")
	s.metrics.RecordRequestDuration("add", time.Since(start))
	s.logger.Info("client created",
		zap.String("owner_id", ownerID),
		zap.String("client_id", created.ID),
		zap.String("product", created.Product),
	)
	return created, nil
}

// ============================================================
// Update — PATCH /v1/clients/{id}
// ============================================================

func (s *ClientService) Update(ctx context.Context, ownerID, id string, patch domain.ClientPatch) (*domain.Client, error) {
	ctx, span := crmTracer.Start(ctx, "ClientService.Update")
	defer span.End()
	start := time.Now()

	if patch.IsZero() {
		return nil, &domain.ErrValidation{Field: "body", Message: "nenhum campo para atualizar"}
	}
	if err := s.validatePatch(patch); err != nil {
		return nil, err
	}

	st, err := s.stores.ForOwner(ctx, ownerID)
	if err != nil {
		s.fail("update", err)
		return nil, err
	}
	if _, ok := st.Get(id); !ok {
		return nil, &domain.ErrNotFound{Resource: "client", ID: id}
	}

	if err := st.Update(ctx, id, patch); err != nil {
		s.fail("update", err)
		return nil, err
	}

	s.afterMutation(ctx, st)
	s.events.Publish(ctx, domain.ClientEvent{
		Type:       domain.EventClientUpdated,
		OwnerID:    ownerID,
		ClientID:   id,
		OccurredAt: time.Now().UTC(),
	})

	s.metrics.IncrClientOp("update", "success")
	s.metrics.RecordRequestDuration("update", time.Since(start))

	updated, _ := st.Get(id)
	return &updated, nil
}

// ============================================================
// UpdateStatus — PATCH /v1/clients/{id}/status
// ============================================================

// UpdateStatus is the transition used by both the edit form and kanban drag.
func (s *ClientService) UpdateStatus(ctx context.Context, ownerID, id string, status domain.ClientStatus) error {
	ctx, span := crmTracer.Start(ctx, "ClientService.UpdateStatus")
	defer span.End()
	start := time.Now()

	if !status.Valid() {
		return &domain.ErrValidation{Field: "status", Message: "status inválido: " + string(status)}
	}

	st, err := s.stores.ForOwner(ctx, ownerID)
	if err != nil {
		s.fail("update_status", err)
		return err
	}
	if _, ok := st.Get(id); !ok {
		return &domain.ErrNotFound{Resource: "client", ID: id}
	}

	if err := st.UpdateStatus(ctx, id, status); err != nil {
		s.fail("update_status", err)
		return err
	}

	s.afterMutation(ctx, st)
	s.events.Publish(ctx, domain.ClientEvent{
		Type:       domain.EventClientStatusChanged,
		OwnerID:    ownerID,
		ClientID:   id,
		Status:     status,
		OccurredAt: time.Now().UTC(),
	})

	s.metrics.IncrClientOp("update_status", "success")
	s.metrics.RecordRequestDuration("update_status", time.Since(start))
	return nil
}

// ============================================================
// Delete — DELETE /v1/clients/{id}
// ============================================================

func (s *ClientService) Delete(ctx context.Context, ownerID, id string) error {
	ctx, span := crmTracer.Start(ctx, "ClientService.Delete")
	defer span.End()
	start := time.Now()

	st, err := s.stores.ForOwner(ctx, ownerID)
	if err != nil {
		s.fail("delete", err)
		return err
	}
	if _, ok := st.Get(id); !ok {
		return &domain.ErrNotFound{Resource: "client", ID: id}
	}

	if err := st.Delete(ctx, id); err != nil {
		s.fail("delete", err)
		return err
	}

	s.afterMutation(ctx, st)
	s.events.Publish(ctx, domain.ClientEvent{
		Type:       domain.EventClientDeleted,
		OwnerID:    ownerID,
		ClientID:   id,
		OccurredAt: time.Now().UTC(),
	})

	s.metrics.IncrClientOp("delete", "success")
	s.metrics.RecordRequestDuration("delete", time.Since(start))
	return nil
}

// fail counts a failed operation, tagging remote failures separately.
func (s *ClientService) fail(op string, err error) {
	s.metrics.IncrClientOp(op, "error")
	var ext *domain.ErrExternalService
	var open *domain.ErrCircuitOpen
	if errors.As(err, &ext) || errors.As(err, &open) {
		s.metrics.IncrExternalError("supabase")
	}
}

// afterMutation rebuilds the clientsUsing counters from the fresh mirror.
// A failed recompute is logged but never fails the mutation that caused it.
func (s *ClientService) afterMutation(ctx context.Context, st *store.ClientStore) {
	if err := s.settings.RecomputeUsage(ctx, st.Clients()); err != nil {
		s.logger.Warn("usage recompute failed", zap.Error(err))
	}
}

// ============================================================
// Validation
// ============================================================

func (s *ClientService) validateNewClient(c domain.Client) error {
	if strings.TrimSpace(c.CompanyName) == "" {
		return &domain.ErrValidation{Field: "companyName", Message: "obrigatório"}
	}
	if strings.TrimSpace(c.ResponsibleName) == "" {
		return &domain.ErrValidation{Field: "responsibleName", Message: "obrigatório"}
	}
	if strings.TrimSpace(c.ResponsiblePhone) == "" {
		return &domain.ErrValidation{Field: "responsiblePhone", Message: "obrigatório"}
	}
	if !emailRe.MatchString(c.Email) {
		return &domain.ErrValidation{Field: "email", Message: "email inválido"}
	}
	if err := validateDocument(c.Document); err != nil {
		return err
	}
	if c.DueDate < 1 || c.DueDate > 31 {
		return &domain.ErrValidation{Field: "dueDate", Message: "dia de vencimento deve estar entre 1 e 31"}
	}
	if c.MonthlyValue < 0 {
		return &domain.ErrValidation{Field: "monthlyValue", Message: "valor mensal não pode ser negativo"}
	}
	if c.Connections < 0 {
		return &domain.ErrValidation{Field: "connections", Message: "conexões não pode ser negativo"}
	}
	if c.Status != "" && !c.Status.Valid() {
		return &domain.ErrValidation{Field: "status", Message: "status inválido: " + string(c.Status)}
	}
	if err := s.validatePaymentMethod(c.PaymentMethod); err != nil {
		return err
	}
	if c.Niche != "" && !s.settings.ActiveNiche(c.Niche) {
		return &domain.ErrValidation{Field: "niche", Message: "nicho inativo ou inexistente: " + c.Niche}
	}
	return nil
}

func (s *ClientService) validatePatch(p domain.ClientPatch) error {
	if p.CompanyName != nil && strings.TrimSpace(*p.CompanyName) == "" {
		return &domain.ErrValidation{Field: "companyName", Message: "obrigatório"}
	}
	if p.ResponsibleName != nil && strings.TrimSpace(*p.ResponsibleName) == "" {
		return &domain.ErrValidation{Field: "responsibleName", Message: "obrigatório"}
	}
	if p.ResponsiblePhone != nil && strings.TrimSpace(*p.ResponsiblePhone) == "" {
		return &domain.ErrValidation{Field: "responsiblePhone", Message: "obrigatório"}
	}
	if p.Email != nil && !emailRe.MatchString(*p.Email) {
		return &domain.ErrValidation{Field: "email", Message: "email inválido"}
	}
	if p.Document != nil {
		if err := validateDocument(*p.Document); err != nil {
			return err
		}
	}
	if p.DueDate != nil && (*p.DueDate < 1 || *p.DueDate > 31) {
		return &domain.ErrValidation{Field: "dueDate", Message: "dia de vencimento deve estar entre 1 e 31"}
	}
	if p.MonthlyValue != nil && *p.MonthlyValue < 0 {
		return &domain.ErrValidation{Field: "monthlyValue", Message: "valor mensal não pode ser negativo"}
	}
	if p.Connections != nil && *p.Connections < 1 {
		return &domain.ErrValidation{Field: "connections", Message: "mínimo de 1 conexão"}
	}
	if p.Status != nil && !p.Status.Valid() {
		return &domain.ErrValidation{Field: "status", Message: "status inválido: " + string(*p.Status)}
	}
	if p.PaymentMethod != nil {
		if err := s.validatePaymentMethod(*p.PaymentMethod); err != nil {
			return err
		}
	}
	return nil
}

// validatePaymentMethod accepts the built-in enum values or any active
// configured method, matched by name.
func (s *ClientService) validatePaymentMethod(m domain.PaymentMethod) error {
	if m == "" || m.Builtin() {
		return nil
	}
	if s.settings.ActivePaymentMethod(string(m)) {
		return nil
	}
	return &domain.ErrValidation{Field: "paymentMethod", Message: "forma de pagamento inválida: " + string(m)}
}

// validateDocument checks an optional CPF (11 digits) or CNPJ (14 digits)
// after stripping punctuation. Digit verification is left to the frontend.
func validateDocument(doc string) error {
	if doc == "" {
		return nil
	}
	digits := 0
	for _, r := range doc {
		if r >= '0' && r <= '9' {
			digits++
		}
	}
	if digits != 11 && digits != 14 {
		return &domain.ErrValidation{Field: "document", Message: "documento deve ser um CPF ou CNPJ válido"}
	}
	return nil
}
