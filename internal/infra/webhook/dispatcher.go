// Package webhook delivers client lifecycle events to the automation
// platforms configured on the integrations screen (n8n, Make, Zapier,
// Evolution API).
//
// Delivery is fire-and-forget: the CRUD call that raised the event never
// waits for it and never sees its failure. Unlike the persistence path,
// redelivering an event is harmless, so this is the one place that retries.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/companychat/crm-backend-go/internal/domain"
	"github.com/companychat/crm-backend-go/internal/infra/observability"
	"github.com/companychat/crm-backend-go/internal/infra/resilience"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// IntegrationSource yields the current integration configuration.
type IntegrationSource interface {
	Integrations() domain.Integrations
}

// Dispatcher fans client events out to every connected integration.
type Dispatcher struct {
	httpClient *http.Client
	source     IntegrationSource
	cfg        resilience.Config
	bulkhead   *resilience.Bulkhead
	timeout    time.Duration
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// NewDispatcher creates a dispatcher. timeout bounds one full delivery
// round, retries included.
func NewDispatcher(httpClient *http.Client, source IntegrationSource, cfg resilience.Config, timeout time.Duration, metrics *observability.Metrics, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		httpClient: httpClient,
		source:     source,
		cfg:        cfg,
		bulkhead:   resilience.NewBulkhead(cfg.MaxConcurrency),
		timeout:    timeout,
		metrics:    metrics,
		logger:     logger,
	}
}

// Publish delivers ev asynchronously. Detached from the caller's context so
// a finished HTTP request does not cancel in-flight deliveries.
func (d *Dispatcher) Publish(_ context.Context, ev domain.ClientEvent) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()
		d.Dispatch(ctx, ev)
	}()
}

// Dispatch delivers ev to every connected integration and blocks until all
// deliveries finish. Exported for synchronous use in tests.
func (d *Dispatcher) Dispatch(ctx context.Context, ev domain.ClientEvent) {
	targets := d.targets()
	if len(targets) == 0 {
		return
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		d.logger.Error("webhook: encode event", zap.Error(err))
		return
	}

	g, ctx := errgroup.WithContext(ctx)
	for name, webhookURL := range targets {
		name, webhookURL := name, webhookURL
		g.Go(func() error {
			if err := d.bulkhead.Acquire(ctx); err != nil {
				return nil
			}
			defer d.bulkhead.Release()

			err := resilience.RetryWithBackoff(ctx, d.cfg, func() error {
				return d.post(ctx, webhookURL, payload)
			})
			if err != nil {
				d.metrics.IncrWebhookDelivery(name, "error")
				d.logger.Warn("webhook: delivery failed",
					zap.String("integration", name),
					zap.String("event", ev.Type),
					zap.String("client_id", ev.ClientID),
					zap.Error(err),
				)
				return nil // one failed integration never blocks the others
			}
			d.metrics.IncrWebhookDelivery(name, "success")
			d.logger.Debug("webhook: delivered",
				zap.String("integration", name),
				zap.String("event", ev.Type),
			)
			return nil
		})
	}
	_ = g.Wait()
}

// targets maps integration key to webhook URL for connected integrations.
func (d *Dispatcher) targets() map[string]string {
	ints := d.source.Integrations()
	out := make(map[string]string, 4)
	add := func(key string, i domain.Integration) {
		if i.Connected && i.WebhookURL != "" {
			out[key] = i.WebhookURL
		}
	}
	add(domain.IntegrationN8N, ints.N8N)
	add(domain.IntegrationMake, ints.Make)
	add(domain.IntegrationZapier, ints.Zapier)
	add(domain.IntegrationEvolutionAPI, ints.EvolutionAPI)
	return out
}

func (d *Dispatcher) post(ctx context.Context, url string, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "companychat-crm/1.0")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned %d", resp.StatusCode)
	}
	return nil
}
