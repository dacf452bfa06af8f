package store

import (
	"time"

	"github.com/companychat/crm-backend-go/internal/domain"
)

// ============================================================
// Row mapper — clients table row <-> application record
// ============================================================
//
// Both directions are total and side-effect free. Validation happens in the
// service layer before anything reaches here.

// ClientFromRow translates a persisted row into the application record,
// filling defaults for NULL optional columns.
func ClientFromRow(row domain.ClientRow) domain.Client {
	c := domain.Client{
		ID:               row.ID,
		CompanyName:      row.CompanyName,
		ResponsibleName:  row.ResponsibleName,
		ResponsiblePhone: row.ResponsiblePhone,
		Email:            row.Email,
		Document:         row.Document,
		Niche:            row.Niche,
		Connections:      row.Connections,
		Product:          row.Product,
		MonthlyValue:     row.MonthlyValue,
		PaymentMethod:    domain.PaymentMethod(row.PaymentMethod),
		DueDate:          row.DueDate,
		Status:           domain.ClientStatus(row.Status),
		Tags:             row.Tags,
	}
	if row.ResponsibleEmail != nil {
		c.ResponsibleEmail = *row.ResponsibleEmail
	}
	if row.ResponsibleRole != nil {
		c.ResponsibleRole = *row.ResponsibleRole
	}
	if row.Notes != nil {
		c.Notes = *row.Notes
	}
	if row.CompanyPhone != nil {
		c.CompanyPhone = *row.CompanyPhone
	}
	c.CreatedAt = parseTimestamp(row.CreatedAt)
	return c
}

// RowFromClient translates a full record into its persisted row shape for
// insertion. ownerID, when non-empty, becomes the row's user_id.
func RowFromClient(c domain.Client, ownerID string) domain.ClientRow {
	row := domain.ClientRow{
		ID:               c.ID,
		CompanyName:      c.CompanyName,
		ResponsibleName:  c.ResponsibleName,
		ResponsiblePhone: c.ResponsiblePhone,
		Email:            c.Email,
		Document:         c.Document,
		Niche:            c.Niche,
		Connections:      c.Connections,
		Product:          c.Product,
		MonthlyValue:     c.MonthlyValue,
		PaymentMethod:    string(c.PaymentMethod),
		DueDate:          c.DueDate,
		Status:           string(c.Status),
		Tags:             c.Tags,
		UserID:           ownerID,
	}
	if c.ResponsibleEmail != "" {
		row.ResponsibleEmail = &c.ResponsibleEmail
	}
	if c.ResponsibleRole != "" {
		row.ResponsibleRole = &c.ResponsibleRole
	}
	if c.CompanyPhone != "" {
		row.CompanyPhone = &c.CompanyPhone
	}
	notes := c.Notes
	row.Notes = &notes
	if !c.CreatedAt.IsZero() {
		row.CreatedAt = c.CreatedAt.UTC().Format(time.RFC3339)
	}
	return row
}

// PatchToRow translates a sparse patch into column assignments. Only fields
// present in the patch produce keys, so absent fields are never overwritten.
func PatchToRow(p domain.ClientPatch) map[string]any {
	row := make(map[string]any)
	if p.CompanyName != nil {
		row["company_name"] = *p.CompanyName
	}
	if p.ResponsibleName != nil {
		row["responsible_name"] = *p.ResponsibleName
	}
	if p.ResponsiblePhone != nil {
		row["responsible_phone"] = *p.ResponsiblePhone
	}
	if p.ResponsibleEmail != nil {
		row["responsible_email"] = *p.ResponsibleEmail
	}
	if p.ResponsibleRole != nil {
		row["responsible_role"] = *p.ResponsibleRole
	}
	if p.Email != nil {
		row["email"] = *p.Email
	}
	if p.Document != nil {
		row["document"] = *p.Document
	}
	if p.Niche != nil {
		row["niche"] = *p.Niche
	}
	if p.Connections != nil {
		row["connections"] = *p.Connections
	}
	if p.Product != nil {
		row["product"] = *p.Product
	}
	if p.MonthlyValue != nil {
		row["monthly_value"] = *p.MonthlyValue
	}
	if p.PaymentMethod != nil {
		row["payment_method"] = string(*p.PaymentMethod)
	}
	if p.DueDate != nil {
		row["due_date"] = *p.DueDate
	}
	if p.Notes != nil {
		row["notes"] = *p.Notes
	}
	if p.Status != nil {
		row["status"] = string(*p.Status)
	}
	if p.Tags != nil {
		row["tags"] = *p.Tags
	}
	if p.CompanyPhone != nil {
		row["company_phone"] = *p.CompanyPhone
	}
	return row
}

// applyPatch applies a sparse patch to an in-memory record.
func applyPatch(c *domain.Client, p domain.ClientPatch) {
	if p.CompanyName != nil {
		c.CompanyName = *p.CompanyName
	}
	if p.ResponsibleName != nil {
		c.ResponsibleName = *p.ResponsibleName
	}
	if p.ResponsiblePhone != nil {
		c.ResponsiblePhone = *p.ResponsiblePhone
	}
	if p.ResponsibleEmail != nil {
		c.ResponsibleEmail = *p.ResponsibleEmail
	}
	if p.ResponsibleRole != nil {
		c.ResponsibleRole = *p.ResponsibleRole
	}
	if p.Email != nil {
		c.Email = *p.Email
	}
	if p.Document != nil {
		c.Document = *p.Document
	}
	if p.Niche != nil {
		c.Niche = *p.Niche
	}
	if p.Connections != nil {
		c.Connections = *p.Connections
	}
	if p.Product != nil {
		c.Product = *p.Product
	}
	if p.MonthlyValue != nil {
		c.MonthlyValue = *p.MonthlyValue
	}
	if p.PaymentMethod != nil {
		c.PaymentMethod = *p.PaymentMethod
	}
	if p.DueDate != nil {
		c.DueDate = *p.DueDate
	}
	if p.Notes != nil {
		c.Notes = *p.Notes
	}
	if p.Status != nil {
		c.Status = *p.Status
	}
	if p.Tags != nil {
		c.Tags = *p.Tags
	}
	if p.CompanyPhone != nil {
		c.CompanyPhone = *p.CompanyPhone
	}
}

// parseTimestamp accepts RFC3339 or a bare date, like PostgREST emits.
func parseTimestamp(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		t, _ = time.Parse("2006-01-02", s)
	}
	return t
}
