package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/companychat/crm-backend-go/internal/domain"

	"go.opentelemetry.io/otel/attribute"
)

// ============================================================
// clients table — implements port.ClientPersistence
// ============================================================

// ListByOwner fetches every client row for an owner, newest first.
func (c *Client) ListByOwner(ctx context.Context, ownerID string) ([]domain.ClientRow, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListByOwner")
	defer span.End()
	span.SetAttributes(attribute.String("owner.id", ownerID))

	path := fmt.Sprintf("clients?user_id=eq.%s&order=created_at.desc", url.QueryEscape(ownerID))
	body, err := c.doJSON(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "supabase/clients", Err: err}
	}
	if body == nil {
		return []domain.ClientRow{}, nil
	}

	var rows []domain.ClientRow
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, &domain.ErrExternalService{Service: "supabase/clients", Err: fmt.Errorf("decode clients: %w", err)}
	}
	return rows, nil
}

// Insert creates one client row and returns the stored representation.
func (c *Client) Insert(ctx context.Context, row domain.ClientRow) (*domain.ClientRow, error) {
	ctx, span := tracer.Start(ctx, "Supabase.Insert")
	defer span.End()
	span.SetAttributes(attribute.String("owner.id", row.UserID))

	body, err := c.doJSON(ctx, http.MethodPost, "clients", row)
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "supabase/clients", Err: err}
	}
	if body == nil {
		return nil, nil
	}

	// return=representation yields an array with the inserted row
	var rows []domain.ClientRow
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, &domain.ErrExternalService{Service: "supabase/clients", Err: fmt.Errorf("decode inserted client: %w", err)}
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

// UpdatePatch applies a sparse column patch scoped to (id, owner).
func (c *Client) UpdatePatch(ctx context.Context, id, ownerID string, patch map[string]any) error {
	ctx, span := tracer.Start(ctx, "Supabase.UpdatePatch")
	defer span.End()
	span.SetAttributes(
		attribute.String("owner.id", ownerID),
		attribute.String("client.id", id),
	)

	path := fmt.Sprintf("clients?id=eq.%s&user_id=eq.%s", url.QueryEscape(id), url.QueryEscape(ownerID))
	if _, err := c.doJSON(ctx, http.MethodPatch, path, patch); err != nil {
		return &domain.ErrExternalService{Service: "supabase/clients", Err: err}
	}
	return nil
}

// Delete removes one client row scoped to (id, owner).
func (c *Client) Delete(ctx context.Context, id, ownerID string) error {
	ctx, span := tracer.Start(ctx, "Supabase.Delete")
	defer span.End()
	span.SetAttributes(
		attribute.String("owner.id", ownerID),
		attribute.String("client.id", id),
	)

	path := fmt.Sprintf("clients?id=eq.%s&user_id=eq.%s", url.QueryEscape(id), url.QueryEscape(ownerID))
	if _, err := c.doJSON(ctx, http.MethodDelete, path, nil); err != nil {
		return &domain.ErrExternalService{Service: "supabase/clients", Err: err}
	}
	return nil
}
