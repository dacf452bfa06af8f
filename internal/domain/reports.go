package domain

// ============================================================
// Dashboard & report aggregates (derived, never persisted)
// ============================================================

// MetricCard is one status card on the dashboard.
type MetricCard struct {
	Label      string       `json:"label"`
	Value      int          `json:"value"`
	Status     ClientStatus `json:"status"`
	Percentage int          `json:"percentage"`
}

// ProductCount is a per-product client count for the dashboard breakdown.
type ProductCount struct {
	Name    string `json:"name"`
	Clients int    `json:"clients"`
}

// DashboardSummary feeds the main dashboard page.
type DashboardSummary struct {
	Cards          []MetricCard   `json:"cards"`
	TotalClients   int            `json:"totalClients"`
	MonthlyRevenue float64        `json:"monthlyRevenue"`
	AvgConnections float64        `json:"avgConnections"`
	AvgTicket      float64        `json:"avgTicket"`
	ProductCounts  []ProductCount `json:"productCounts"`
}

// RevenueSlice is one entry of a per-dimension revenue breakdown.
// Percentage is relative to total recurring revenue.
type RevenueSlice struct {
	Name       string  `json:"name"`
	Clients    int     `json:"clients"`
	Revenue    float64 `json:"revenue"`
	AvgTicket  float64 `json:"avgTicket"`
	Percentage int     `json:"percentage"`
}

// ReportSummary feeds the reports page.
type ReportSummary struct {
	MRR             float64        `json:"mrr"`
	ARR             float64        `json:"arr"`
	AvgTicket       float64        `json:"avgTicket"`
	ActiveRate      int            `json:"activeRate"`
	ByProduct       []RevenueSlice `json:"byProduct"`
	ByNiche         []RevenueSlice `json:"byNiche"`
	ByPaymentMethod []RevenueSlice `json:"byPaymentMethod"`
}

// OpsMetrics is a point-in-time snapshot of service counters, exposed on
// GET /v1/metrics/summary for the frontend's status widget.
type OpsMetrics struct {
	TotalRequests    int64   `json:"total_requests"`
	ErrorRate        float64 `json:"error_rate"`
	CacheHitRate     float64 `json:"cache_hit_rate"`
	WebhookFailures  int64   `json:"webhook_failures"`
	ExternalFailures int64   `json:"external_failures"`
	Period           string  `json:"period"`
}
