package service

import (
	"context"
	"strings"

	"github.com/companychat/crm-backend-go/internal/domain"
	"github.com/companychat/crm-backend-go/internal/store"

	"go.uber.org/zap"
)

// SettingsService fronts the configuration store with the validation the
// settings screen relies on: required names, per-category name uniqueness
// and the in-use delete guard.
type SettingsService struct {
	settings *store.SettingsStore
	logger   *zap.Logger
}

func NewSettingsService(settings *store.SettingsStore, logger *zap.Logger) *SettingsService {
	return &SettingsService{settings: settings, logger: logger}
}

// ============================================================
// Products
// ============================================================

func (s *SettingsService) ListProducts(ctx context.Context) []domain.Product {
	return s.settings.Products()
}

func (s *SettingsService) AddProduct(ctx context.Context, p domain.Product) (*domain.Product, error) {
	ctx, span := crmTracer.Start(ctx, "SettingsService.AddProduct")
	defer span.End()

	if strings.TrimSpace(p.Name) == "" {
		return nil, &domain.ErrValidation{Field: "name", Message: "obrigatório"}
	}
	if p.DefaultValue < 0 {
		return nil, &domain.ErrValidation{Field: "defaultValue", Message: "valor não pode ser negativo"}
	}
	if s.productNameTaken(p.Name, "") {
		return nil, &domain.ErrConflict{Message: "já existe um produto com esse nome"}
	}
	return s.settings.AddProduct(ctx, p)
}

func (s *SettingsService) UpdateProduct(ctx context.Context, id string, patch domain.ProductPatch) error {
	ctx, span := crmTracer.Start(ctx, "SettingsService.UpdateProduct")
	defer span.End()

	if patch.Name != nil {
		if strings.TrimSpace(*patch.Name) == "" {
			return &domain.ErrValidation{Field: "name", Message: "obrigatório"}
		}
		if s.productNameTaken(*patch.Name, id) {
			return &domain.ErrConflict{Message: "já existe um produto com esse nome"}
		}
	}
	if patch.DefaultValue != nil && *patch.DefaultValue < 0 {
		return &domain.ErrValidation{Field: "defaultValue", Message: "valor não pode ser negativo"}
	}
	return s.settings.UpdateProduct(ctx, id, patch)
}

func (s *SettingsService) DeleteProduct(ctx context.Context, id string) error {
	ctx, span := crmTracer.Start(ctx, "SettingsService.DeleteProduct")
	defer span.End()

	ok, err := s.settings.DeleteProduct(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return &domain.ErrConflict{Message: "produto em uso por clientes"}
	}
	return nil
}

// ============================================================
// Niches
// ============================================================

func (s *SettingsService) ListNiches(ctx context.Context) []domain.Niche {
	return s.settings.Niches()
}

func (s *SettingsService) AddNiche(ctx context.Context, n domain.Niche) (*domain.Niche, error) {
	ctx, span := crmTracer.Start(ctx, "SettingsService.AddNiche")
	defer span.End()

	if strings.TrimSpace(n.Name) == "" {
		return nil, &domain.ErrValidation{Field: "name", Message: "obrigatório"}
	}
	if s.nicheNameTaken(n.Name, "") {
		return nil, &domain.ErrConflict{Message: "já existe um nicho com esse nome"}
	}
	return s.settings.AddNiche(ctx, n)
}

func (s *SettingsService) UpdateNiche(ctx context.Context, id string, patch domain.NichePatch) error {
	ctx, span := crmTracer.Start(ctx, "SettingsService.UpdateNiche")
	defer span.End()

	if patch.Name != nil {
		if strings.TrimSpace(*patch.Name) == "" {
			return &domain.ErrValidation{Field: "name", Message: "obrigatório"}
		}
		if s.nicheNameTaken(*patch.Name, id) {
			return &domain.ErrConflict{Message: "já existe um nicho com esse nome"}
		}
	}
	return s.settings.UpdateNiche(ctx, id, patch)
}

func (s *SettingsService) DeleteNiche(ctx context.Context, id string) error {
	ctx, span := crmTracer.Start(ctx, "SettingsService.DeleteNiche")
	defer span.End()

	ok, err := s.settings.DeleteNiche(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return &domain.ErrConflict{Message: "nicho em uso por clientes"}
	}
	return nil
}

// ============================================================
// Payment methods
// ============================================================

func (s *SettingsService) ListPaymentMethods(ctx context.Context) []domain.PaymentMethodSetting {
	return s.settings.PaymentMethods()
}

func (s *SettingsService) AddPaymentMethod(ctx context.Context, m domain.PaymentMethodSetting) (*domain.PaymentMethodSetting, error) {
	ctx, span := crmTracer.Start(ctx, "SettingsService.AddPaymentMethod")
	defer span.End()

	if strings.TrimSpace(m.Name) == "" {
		return nil, &domain.ErrValidation{Field: "name", Message: "obrigatório"}
	}
	if s.methodNameTaken(m.Name, "") {
		return nil, &domain.ErrConflict{Message: "já existe uma forma de pagamento com esse nome"}
	}
	return s.settings.AddPaymentMethod(ctx, m)
}

func (s *SettingsService) UpdatePaymentMethod(ctx context.Context, id string, patch domain.PaymentMethodPatch) error {
	ctx, span := crmTracer.Start(ctx, "SettingsService.UpdatePaymentMethod")
	defer span.End()

	if patch.Name != nil {
		if strings.TrimSpace(*patch.Name) == "" {
			return &domain.ErrValidation{Field: "name", Message: "obrigatório"}
		}
		if s.methodNameTaken(*patch.Name, id) {
			return &domain.ErrConflict{Message: "já existe uma forma de pagamento com esse nome"}
		}
	}
	return s.settings.UpdatePaymentMethod(ctx, id, patch)
}

func (s *SettingsService) DeletePaymentMethod(ctx context.Context, id string) error {
	ctx, span := crmTracer.Start(ctx, "SettingsService.DeletePaymentMethod")
	defer span.End()

	ok, err := s.settings.DeletePaymentMethod(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return &domain.ErrConflict{Message: "forma de pagamento em uso por clientes"}
	}
	return nil
}

// ============================================================
// Company profile & integrations
// ============================================================

func (s *SettingsService) CompanyInfo(ctx context.Context) domain.CompanyInfo {
	return s.settings.CompanyInfo()
}

func (s *SettingsService) UpdateCompanyInfo(ctx context.Context, patch domain.CompanyInfoPatch) (domain.CompanyInfo, error) {
	ctx, span := crmTracer.Start(ctx, "SettingsService.UpdateCompanyInfo")
	defer span.End()

	if err := s.settings.UpdateCompanyInfo(ctx, patch); err != nil {
		return domain.CompanyInfo{}, err
	}
	return s.settings.CompanyInfo(), nil
}

func (s *SettingsService) Integrations(ctx context.Context) domain.Integrations {
	return s.settings.Integrations()
}

func (s *SettingsService) UpdateIntegration(ctx context.Context, key string, patch domain.IntegrationPatch) (domain.Integrations, error) {
	ctx, span := crmTracer.Start(ctx, "SettingsService.UpdateIntegration")
	defer span.End()

	if err := s.settings.UpdateIntegration(ctx, key, patch); err != nil {
		return domain.Integrations{}, err
	}
	s.logger.Info("integration updated", zap.String("integration", key))
	return s.settings.Integrations(), nil
}

// ============================================================
// Name uniqueness (case-insensitive, per category)
// ============================================================

func (s *SettingsService) productNameTaken(name, excludeID string) bool {
	for _, p := range s.settings.Products() {
		if p.ID != excludeID && strings.EqualFold(p.Name, name) {
			return true
		}
	}
	return false
}

func (s *SettingsService) nicheNameTaken(name, excludeID string) bool {
	for _, n := range s.settings.Niches() {
		if n.ID != excludeID && strings.EqualFold(n.Name, name) {
			return true
		}
	}
	return false
}

func (s *SettingsService) methodNameTaken(name, excludeID string) bool {
	for _, m := range s.settings.PaymentMethods() {
		if m.ID != excludeID && strings.EqualFold(m.Name, name) {
			return true
		}
	}
	return false
}
