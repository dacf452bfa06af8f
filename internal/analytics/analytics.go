// Package analytics computes derived aggregates over a client list.
// Every function is pure: inputs are never mutated and no state is kept,
// so the dashboard can recompute on every request.
package analytics

import (
	"math"
	"sort"
	"strings"

	"github.com/companychat/crm-backend-go/internal/domain"
)

// Dimension selects the grouping field of a breakdown.
type Dimension string

const (
	DimensionProduct       Dimension = "product"
	DimensionNiche         Dimension = "niche"
	DimensionPaymentMethod Dimension = "paymentMethod"
)

// Valid reports whether d is a known breakdown dimension.
func (d Dimension) Valid() bool {
	switch d {
	case DimensionProduct, DimensionNiche, DimensionPaymentMethod:
		return true
	}
	return false
}

func dimensionValue(c domain.Client, d Dimension) string {
	switch d {
	case DimensionProduct:
		return c.Product
	case DimensionNiche:
		return c.Niche
	case DimensionPaymentMethod:
		return string(c.PaymentMethod)
	}
	return ""
}

// Search returns the clients whose company name, responsible name, email or
// niche contains query, case-insensitively. Short-circuiting an empty query
// is the caller's job.
func Search(clients []domain.Client, query string) []domain.Client {
	q := strings.ToLower(query)
	out := make([]domain.Client, 0, len(clients))
	for _, c := range clients {
		if strings.Contains(strings.ToLower(c.CompanyName), q) ||
			strings.Contains(strings.ToLower(c.ResponsibleName), q) ||
			strings.Contains(strings.ToLower(c.Email), q) ||
			strings.Contains(strings.ToLower(c.Niche), q) {
			out = append(out, c)
		}
	}
	return out
}

// FilterByStatus returns the clients with exactly the given status.
// The sentinel "all" returns the input unchanged.
func FilterByStatus(clients []domain.Client, status string) []domain.Client {
	if status == "all" {
		return clients
	}
	out := make([]domain.Client, 0, len(clients))
	for _, c := range clients {
		if string(c.Status) == status {
			out = append(out, c)
		}
	}
	return out
}

// TotalRecurringRevenue sums monthlyValue over active clients (MRR).
// Non-active statuses contribute zero.
func TotalRecurringRevenue(clients []domain.Client) float64 {
	var total float64
	for _, c := range clients {
		if c.Status == domain.StatusActive {
			total += c.MonthlyValue
		}
	}
	return total
}

// StatusCounts maps every lifecycle status to its count. Statuses with no
// members are present with value 0.
func StatusCounts(clients []domain.Client) map[domain.ClientStatus]int {
	counts := make(map[domain.ClientStatus]int, len(domain.AllStatuses))
	for _, s := range domain.AllStatuses {
		counts[s] = 0
	}
	for _, c := range clients {
		counts[c.Status]++
	}
	return counts
}

// Percentage returns round(part/total*100), or 0 when total is 0.
func Percentage(part, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(part) / float64(total) * 100))
}

// RevenueByDimension groups the monthly value of active clients by the given
// dimension, sorted by revenue descending. Ties keep first-encountered order.
// Slice percentages are relative to total recurring revenue.
func RevenueByDimension(clients []domain.Client, d Dimension) []domain.RevenueSlice {
	mrr := TotalRecurringRevenue(clients)

	index := make(map[string]int)
	slices := make([]domain.RevenueSlice, 0)
	for _, c := range clients {
		if c.Status != domain.StatusActive {
			continue
		}
		name := dimensionValue(c, d)
		i, ok := index[name]
		if !ok {
			i = len(slices)
			index[name] = i
			slices = append(slices, domain.RevenueSlice{Name: name})
		}
		slices[i].Clients++
		slices[i].Revenue += c.MonthlyValue
	}

	for i := range slices {
		if slices[i].Clients > 0 {
			slices[i].AvgTicket = math.Round(slices[i].Revenue / float64(slices[i].Clients))
		}
		if mrr > 0 {
			slices[i].Percentage = int(math.Round(slices[i].Revenue / mrr * 100))
		}
	}

	sort.SliceStable(slices, func(a, b int) bool {
		return slices[a].Revenue > slices[b].Revenue
	})
	return slices
}

// CountByDimension counts all clients (regardless of status) grouped by the
// given dimension. Used to recompute config-entity usage and the dashboard
// product breakdown.
func CountByDimension(clients []domain.Client, d Dimension) map[string]int {
	counts := make(map[string]int)
	for _, c := range clients {
		counts[dimensionValue(c, d)]++
	}
	return counts
}

// AvgTicket is the rounded mean monthly value over active clients.
func AvgTicket(clients []domain.Client) float64 {
	var sum float64
	var n int
	for _, c := range clients {
		if c.Status == domain.StatusActive {
			sum += c.MonthlyValue
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return math.Round(sum / float64(n))
}

// AvgConnections is the mean connection count over all clients, rounded to
// one decimal place.
func AvgConnections(clients []domain.Client) float64 {
	if len(clients) == 0 {
		return 0
	}
	var sum int
	for _, c := range clients {
		sum += c.Connections
	}
	return math.Round(float64(sum)/float64(len(clients))*10) / 10
}

// ActiveRate is the rounded percentage of clients that are active.
func ActiveRate(clients []domain.Client) int {
	return Percentage(StatusCounts(clients)[domain.StatusActive], len(clients))
}
