package handler

import (
	"encoding/json"
	"net/http"

	"github.com/companychat/crm-backend-go/internal/domain"
	"github.com/companychat/crm-backend-go/internal/service"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Clients — /v1/clients
// ============================================================

func listClientsHandler(svc *service.ClientService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/clients")
		defer span.End()

		ownerID := OwnerIDFromContext(ctx)
		query := r.URL.Query().Get("q")
		status := r.URL.Query().Get("status")

		clients, err := svc.List(ctx, ownerID, query, status)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		span.SetAttributes(attribute.Int("clients.count", len(clients)))
		writeJSON(w, http.StatusOK, clients)
	}
}

func getClientHandler(svc *service.ClientService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/clients/{clientID}")
		defer span.End()

		ownerID := OwnerIDFromContext(ctx)
		clientID := chi.URLParam(r, "clientID")
		span.SetAttributes(attribute.String("client.id", clientID))

		c, err := svc.Get(ctx, ownerID, clientID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, c)
	}
}

func addClientHandler(svc *service.ClientService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/clients")
		defer span.End()

		ownerID := OwnerIDFromContext(ctx)

		var req domain.Client
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		created, err := svc.Add(ctx, ownerID, req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, created)
	}
}

func updateClientHandler(svc *service.ClientService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PATCH /v1/clients/{clientID}")
		defer span.End()

		ownerID := OwnerIDFromContext(ctx)
		clientID := chi.URLParam(r, "clientID")
		span.SetAttributes(attribute.String("client.id", clientID))

		var patch domain.ClientPatch
		if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		updated, err := svc.Update(ctx, ownerID, clientID, patch)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, updated)
	}
}

func updateClientStatusHandler(svc *service.ClientService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PATCH /v1/clients/{clientID}/status")
		defer span.End()

		ownerID := OwnerIDFromContext(ctx)
		clientID := chi.URLParam(r, "clientID")
		span.SetAttributes(attribute.String("client.id", clientID))

		var req struct {
			Status domain.ClientStatus `json:"status"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		if err := svc.UpdateStatus(ctx, ownerID, clientID, req.Status); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{
			"id":     clientID,
			"status": string(req.Status),
		})
	}
}

func deleteClientHandler(svc *service.ClientService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/clients/{clientID}")
		defer span.End()

		ownerID := OwnerIDFromContext(ctx)
		clientID := chi.URLParam(r, "clientID")
		span.SetAttributes(attribute.String("client.id", clientID))

		if err := svc.Delete(ctx, ownerID, clientID); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// ============================================================
// Dashboard & reports
// ============================================================

func dashboardHandler(svc *service.ReportingService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/dashboard")
		defer span.End()

		summary, err := svc.Dashboard(ctx, OwnerIDFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, summary)
	}
}

func reportsHandler(svc *service.ReportingService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/reports")
		defer span.End()

		summary, err := svc.Reports(ctx, OwnerIDFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, summary)
	}
}
