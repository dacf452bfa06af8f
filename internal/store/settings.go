package store

import (
	"context"
	"sync"
	"time"

	"github.com/companychat/crm-backend-go/internal/analytics"
	"github.com/companychat/crm-backend-go/internal/domain"
	"github.com/companychat/crm-backend-go/internal/port"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SettingsStore owns the configuration blob: products, niches, payment
// methods, company profile and integration credentials.
//
// The blob is read once at startup and rewritten in full on every mutation.
// Mutations are applied to memory only after the blob persists, so a failed
// write leaves the in-memory state unchanged.
//
// The clientsUsing counters are a materialized view over the client list,
// recomputed via RecomputeUsage — they are never mutated independently.
type SettingsStore struct {
	mu       sync.RWMutex
	db       port.SettingsPersistence
	logger   *zap.Logger
	settings domain.Settings
}

// NewSettingsStore creates a store; call Load before first use.
func NewSettingsStore(db port.SettingsPersistence, logger *zap.Logger) *SettingsStore {
	return &SettingsStore{db: db, logger: logger}
}

// Load reads the persisted blob. A missing blob (first run) seeds and saves
// the factory defaults. A corrupt blob surfaces as an error instead of being
// silently replaced, so the stored data stays inspectable.
func (s *SettingsStore) Load(ctx context.Context) error {
	stored, err := s.db.Load(ctx)
	if err != nil {
		return err
	}
	if stored == nil {
		stored = domain.DefaultSettings()
		if err := s.db.Save(ctx, stored); err != nil {
			return err
		}
		s.logger.Info("settings: seeded factory defaults")
	}

	s.mu.Lock()
	s.settings = *stored
	s.mu.Unlock()
	return nil
}

// persist writes next as the full blob and commits it to memory on success.
func (s *SettingsStore) persist(ctx context.Context, next domain.Settings) error {
	if err := s.db.Save(ctx, &next); err != nil {
		s.logger.Error("settings: save failed", zap.Error(err))
		return err
	}
	s.mu.Lock()
	s.settings = next
	s.mu.Unlock()
	return nil
}

// snapshot returns a deep-enough copy for mutation: slices are cloned.
func (s *SettingsStore) snapshot() domain.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	next := s.settings
	next.Products = append([]domain.Product(nil), s.settings.Products...)
	next.Niches = append([]domain.Niche(nil), s.settings.Niches...)
	next.PaymentMethods = append([]domain.PaymentMethodSetting(nil), s.settings.PaymentMethods...)
	return next
}

// ============================================================
// Read access
// ============================================================

func (s *SettingsStore) Products() []domain.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Product(nil), s.settings.Products...)
}

func (s *SettingsStore) Niches() []domain.Niche {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Niche(nil), s.settings.Niches...)
}

func (s *SettingsStore) PaymentMethods() []domain.PaymentMethodSetting {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.PaymentMethodSetting(nil), s.settings.PaymentMethods...)
}

func (s *SettingsStore) CompanyInfo() domain.CompanyInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings.CompanyInfo
}

func (s *SettingsStore) Integrations() domain.Integrations {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings.Integrations
}

// ActiveNiche reports whether an active niche with the given name exists.
func (s *SettingsStore) ActiveNiche(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, n := range s.settings.Niches {
		if n.Active && n.Name == name {
			return true
		}
	}
	return false
}

// ActivePaymentMethod reports whether an active configured payment method
// with the given name exists.
func (s *SettingsStore) ActivePaymentMethod(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, m := range s.settings.PaymentMethods {
		if m.Active && m.Name == name {
			return true
		}
	}
	return false
}

// ============================================================
// Products
// ============================================================

func (s *SettingsStore) AddProduct(ctx context.Context, p domain.Product) (*domain.Product, error) {
	p.ID = uuid.New().String()
	p.ClientsUsing = 0
	p.CreatedAt = time.Now()

	next := s.snapshot()
	next.Products = append(next.Products, p)
	if err := s.persist(ctx, next); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *SettingsStore) UpdateProduct(ctx context.Context, id string, patch domain.ProductPatch) error {
	next := s.snapshot()
	found := false
	for i := range next.Products {
		if next.Products[i].ID != id {
			continue
		}
		found = true
		if patch.Name != nil {
			next.Products[i].Name = *patch.Name
		}
		if patch.DefaultValue != nil {
			next.Products[i].DefaultValue = *patch.DefaultValue
		}
		if patch.Description != nil {
			next.Products[i].Description = *patch.Description
		}
		if patch.Active != nil {
			next.Products[i].Active = *patch.Active
		}
	}
	if !found {
		return &domain.ErrNotFound{Resource: "product", ID: id}
	}
	return s.persist(ctx, next)
}

// DeleteProduct removes a product unless any client references it. The bool
// tells whether the delete went through; callers must check it. An unknown
// id is ErrNotFound, mirroring UpdateProduct.
func (s *SettingsStore) DeleteProduct(ctx context.Context, id string) (bool, error) {
	next := s.snapshot()
	found := false
	for _, p := range next.Products {
		if p.ID != id {
			continue
		}
		found = true
		if p.ClientsUsing > 0 {
			return false, nil
		}
	}
	if !found {
		return false, &domain.ErrNotFound{Resource: "product", ID: id}
	}
	next.Products = removeByID(next.Products, id, func(p domain.Product) string { return p.ID })
	if err := s.persist(ctx, next); err != nil {
		return false, err
	}
	return true, nil
}

// ============================================================
// Niches
// ============================================================

func (s *SettingsStore) AddNiche(ctx context.Context, n domain.Niche) (*domain.Niche, error) {
	n.ID = uuid.New().String()
	n.ClientsUsing = 0

	next := s.snapshot()
	next.Niches = append(next.Niches, n)
	if err := s.persist(ctx, next); err != nil {
		return nil, err
	}
	return &n, nil
}

func (s *SettingsStore) UpdateNiche(ctx context.Context, id string, patch domain.NichePatch) error {
	next := s.snapshot()
	found := false
	for i := range next.Niches {
		if next.Niches[i].ID != id {
			continue
		}
		found = true
		if patch.Name != nil {
			next.Niches[i].Name = *patch.Name
		}
		if patch.Emoji != nil {
			next.Niches[i].Emoji = *patch.Emoji
		}
		if patch.Color != nil {
			next.Niches[i].Color = *patch.Color
		}
		if patch.Active != nil {
			next.Niches[i].Active = *patch.Active
		}
	}
	if !found {
		return &domain.ErrNotFound{Resource: "niche", ID: id}
	}
	return s.persist(ctx, next)
}

func (s *SettingsStore) DeleteNiche(ctx context.Context, id string) (bool, error) {
	next := s.snapshot()
	found := false
	for _, n := range next.Niches {
		if n.ID != id {
			continue
		}
		found = true
		if n.ClientsUsing > 0 {
			return false, nil
		}
	}
	if !found {
		return false, &domain.ErrNotFound{Resource: "niche", ID: id}
	}
	next.Niches = removeByID(next.Niches, id, func(n domain.Niche) string { return n.ID })
	if err := s.persist(ctx, next); err != nil {
		return false, err
	}
	return true, nil
}

// ============================================================
// Payment methods
// ============================================================

func (s *SettingsStore) AddPaymentMethod(ctx context.Context, m domain.PaymentMethodSetting) (*domain.PaymentMethodSetting, error) {
	m.ID = uuid.New().String()
	m.ClientsUsing = 0

	next := s.snapshot()
	next.PaymentMethods = append(next.PaymentMethods, m)
	if err := s.persist(ctx, next); err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *SettingsStore) UpdatePaymentMethod(ctx context.Context, id string, patch domain.PaymentMethodPatch) error {
	next := s.snapshot()
	found := false
	for i := range next.PaymentMethods {
		if next.PaymentMethods[i].ID != id {
			continue
		}
		found = true
		if patch.Name != nil {
			next.PaymentMethods[i].Name = *patch.Name
		}
		if patch.Icon != nil {
			next.PaymentMethods[i].Icon = *patch.Icon
		}
		if patch.Observation != nil {
			next.PaymentMethods[i].Observation = *patch.Observation
		}
		if patch.Active != nil {
			next.PaymentMethods[i].Active = *patch.Active
		}
	}
	if !found {
		return &domain.ErrNotFound{Resource: "payment method", ID: id}
	}
	return s.persist(ctx, next)
}

func (s *SettingsStore) DeletePaymentMethod(ctx context.Context, id string) (bool, error) {
	next := s.snapshot()
	found := false
	for _, m := range next.PaymentMethods {
		if m.ID != id {
			continue
		}
		found = true
		if m.ClientsUsing > 0 {
			return false, nil
		}
	}
	if !found {
		return false, &domain.ErrNotFound{Resource: "payment method", ID: id}
	}
	next.PaymentMethods = removeByID(next.PaymentMethods, id, func(m domain.PaymentMethodSetting) string { return m.ID })
	if err := s.persist(ctx, next); err != nil {
		return false, err
	}
	return true, nil
}

// ============================================================
// Company profile & integrations
// ============================================================

func (s *SettingsStore) UpdateCompanyInfo(ctx context.Context, patch domain.CompanyInfoPatch) error {
	next := s.snapshot()
	if patch.Name != nil {
		next.CompanyInfo.Name = *patch.Name
	}
	if patch.CNPJ != nil {
		next.CompanyInfo.CNPJ = *patch.CNPJ
	}
	if patch.Email != nil {
		next.CompanyInfo.Email = *patch.Email
	}
	if patch.Phone != nil {
		next.CompanyInfo.Phone = *patch.Phone
	}
	if patch.Address != nil {
		next.CompanyInfo.Address = *patch.Address
	}
	if patch.Logo != nil {
		next.CompanyInfo.Logo = *patch.Logo
	}
	return s.persist(ctx, next)
}

func (s *SettingsStore) UpdateIntegration(ctx context.Context, key string, patch domain.IntegrationPatch) error {
	next := s.snapshot()

	var target *domain.Integration
	switch key {
	case domain.IntegrationN8N:
		target = &next.Integrations.N8N
	case domain.IntegrationMake:
		target = &next.Integrations.Make
	case domain.IntegrationZapier:
		target = &next.Integrations.Zapier
	case domain.IntegrationEvolutionAPI:
		target = &next.Integrations.EvolutionAPI
	default:
		return &domain.ErrValidation{Field: "integration", Message: "integração desconhecida: " + key}
	}

	if patch.Connected != nil {
		target.Connected = *patch.Connected
	}
	if patch.APIURL != nil {
		target.APIURL = *patch.APIURL
	}
	if patch.APIKey != nil {
		target.APIKey = *patch.APIKey
	}
	if patch.WebhookURL != nil {
		target.WebhookURL = *patch.WebhookURL
	}
	if patch.Instance != nil {
		target.Instance = *patch.Instance
	}
	return s.persist(ctx, next)
}

// ============================================================
// Usage counters
// ============================================================

// RecomputeUsage rebuilds every clientsUsing counter by scanning the client
// list and counting name matches. Callers invoke it after every confirmed
// client mutation; it is not subscribed automatically.
func (s *SettingsStore) RecomputeUsage(ctx context.Context, clients []domain.Client) error {
	byProduct := analytics.CountByDimension(clients, analytics.DimensionProduct)
	byNiche := analytics.CountByDimension(clients, analytics.DimensionNiche)
	byMethod := analytics.CountByDimension(clients, analytics.DimensionPaymentMethod)

	next := s.snapshot()
	for i := range next.Products {
		next.Products[i].ClientsUsing = byProduct[next.Products[i].Name]
	}
	for i := range next.Niches {
		next.Niches[i].ClientsUsing = byNiche[next.Niches[i].Name]
	}
	for i := range next.PaymentMethods {
		next.PaymentMethods[i].ClientsUsing = byMethod[next.PaymentMethods[i].Name]
	}
	return s.persist(ctx, next)
}

func removeByID[T any](items []T, id string, idOf func(T) string) []T {
	out := items[:0]
	for _, it := range items {
		if idOf(it) != id {
			out = append(out, it)
		}
	}
	return out
}
