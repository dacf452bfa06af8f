package service

import (
	"context"
	"sort"

	"github.com/companychat/crm-backend-go/internal/analytics"
	"github.com/companychat/crm-backend-go/internal/domain"
	"github.com/companychat/crm-backend-go/internal/store"

	"go.uber.org/zap"
)

// statusLabels are the card titles shown on the dashboard.
var statusLabels = map[domain.ClientStatus]string{
	domain.StatusActive:    "Ativos",
	domain.StatusOverdue:   "Inadimplentes",
	domain.StatusInactive:  "Inativos",
	domain.StatusCancelled: "Cancelados",
}

// ReportingService computes dashboard and report aggregates on demand.
// Nothing here is cached or persisted; every call recomputes from the
// owner's in-memory client list.
type ReportingService struct {
	stores *store.Manager
	logger *zap.Logger
}

func NewReportingService(stores *store.Manager, logger *zap.Logger) *ReportingService {
	return &ReportingService{stores: stores, logger: logger}
}

// ============================================================
// Dashboard — GET /v1/dashboard
// ============================================================

func (s *ReportingService) Dashboard(ctx context.Context, ownerID string) (*domain.DashboardSummary, error) {
	ctx, span := crmTracer.Start(ctx, "ReportingService.Dashboard")
	defer span.End()

	st, err := s.stores.ForOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	clients := st.Clients()

	counts := analytics.StatusCounts(clients)
	cards := make([]domain.MetricCard, 0, len(domain.AllStatuses))
	for _, status := range domain.AllStatuses {
		cards = append(cards, domain.MetricCard{
			Label:      statusLabels[status],
			Value:      counts[status],
			Status:     status,
			Percentage: analytics.Percentage(counts[status], len(clients)),
		})
	}

	byProduct := analytics.CountByDimension(clients, analytics.DimensionProduct)
	products := make([]domain.ProductCount, 0, len(byProduct))
	for name, n := range byProduct {
		products = append(products, domain.ProductCount{Name: name, Clients: n})
	}
	sort.Slice(products, func(a, b int) bool {
		if products[a].Clients != products[b].Clients {
			return products[a].Clients > products[b].Clients
		}
		return products[a].Name < products[b].Name
	})

	return &domain.DashboardSummary{
		Cards:          cards,
		TotalClients:   len(clients),
		MonthlyRevenue: analytics.TotalRecurringRevenue(clients),
		AvgConnections: analytics.AvgConnections(clients),
		AvgTicket:      analytics.AvgTicket(clients),
		ProductCounts:  products,
	}, nil
}

// ============================================================
// Reports — GET /v1/reports
// ============================================================

func (s *ReportingService) Reports(ctx context.Context, ownerID string) (*domain.ReportSummary, error) {
	ctx, span := crmTracer.Start(ctx, "ReportingService.Reports")
	defer span.End()

	st, err := s.stores.ForOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	clients := st.Clients()

	mrr := analytics.TotalRecurringRevenue(clients)
	return &domain.ReportSummary{
		MRR:             mrr,
		ARR:             mrr * 12,
		AvgTicket:       analytics.AvgTicket(clients),
		ActiveRate:      analytics.ActiveRate(clients),
		ByProduct:       analytics.RevenueByDimension(clients, analytics.DimensionProduct),
		ByNiche:         analytics.RevenueByDimension(clients, analytics.DimensionNiche),
		ByPaymentMethod: analytics.RevenueByDimension(clients, analytics.DimensionPaymentMethod),
	}, nil
}
