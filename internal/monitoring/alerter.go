package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/docextract/internal/config"
)

// AlertType identifies the kind of alert.
type AlertType string

const (
	AlertFallbackRate AlertType = "fallback_rate"
	AlertCircuitOpen  AlertType = "circuit_open"
)

// Alert represents a single alert to be sent.
type Alert struct {
	Type      AlertType      `json:"type"`
	Severity  string         `json:"severity"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Alerter evaluates a MetricsSnapshot against configured thresholds
// and sends alerts via webhook when thresholds are breached.
type Alerter struct {
	cfg    config.MonitoringConfig
	client *http.Client
}

// NewAlerter creates a new Alerter with the given monitoring config.
func NewAlerter(cfg config.MonitoringConfig) *Alerter {
	return &Alerter{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Evaluate checks the snapshot against thresholds and returns any alerts.
func (a *Alerter) Evaluate(snap *MetricsSnapshot) []Alert {
	var alerts []Alert
	now := time.Now().UTC()

	minRuns := a.cfg.MinExtractions
	if minRuns <= 0 {
		minRuns = 5
	}
	if a.cfg.FallbackRateThreshold > 0 && snap.Remote >= minRuns && snap.FallbackRate > a.cfg.FallbackRateThreshold {
		alerts = append(alerts, Alert{
			Type:     AlertFallbackRate,
			Severity: "high",
			Message: fmt.Sprintf(
				"Provider fallback rate %.1f%% exceeds threshold %.1f%% (%d fallbacks / %d remote extractions)",
				snap.FallbackRate*100, a.cfg.FallbackRateThreshold*100,
				snap.Fallback, snap.Remote,
			),
			Details: map[string]any{
				"fallback_rate": snap.FallbackRate,
				"threshold":     a.cfg.FallbackRateThreshold,
				"fallback":      snap.Fallback,
				"remote":        snap.Remote,
			},
			Timestamp: now,
		})
	}

	if len(snap.OpenCircuits) > 0 {
		alerts = append(alerts, Alert{
			Type:     AlertCircuitOpen,
			Severity: "medium",
			Message:  "Circuit open for provider(s): " + strings.Join(snap.OpenCircuits, ", "),
			Details: map[string]any{
				"providers": snap.OpenCircuits,
			},
			Timestamp: now,
		})
	}

	return alerts
}

// SendAlerts delivers alerts to the configured webhook URL. Without a webhook
// the alerts are only logged. Returns the number of alerts successfully sent.
func (a *Alerter) SendAlerts(ctx context.Context, alerts []Alert) int {
	if len(alerts) == 0 {
		return 0
	}
	if a.cfg.WebhookURL == "" {
		for _, alert := range alerts {
			zap.L().Warn("monitoring: alert",
				zap.String("type", string(alert.Type)),
				zap.String("message", alert.Message),
			)
		}
		return 0
	}

	sent := 0
	for _, alert := range alerts {
		if err := a.sendWebhook(ctx, alert); err != nil {
			zap.L().Error("monitoring: failed to send alert",
				zap.String("type", string(alert.Type)),
				zap.Error(err),
			)
			continue
		}
		zap.L().Info("monitoring: alert sent",
			zap.String("type", string(alert.Type)),
			zap.String("severity", alert.Severity),
		)
		sent++
	}
	return sent
}

func (a *Alerter) sendWebhook(ctx context.Context, alert Alert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return eris.Wrap(err, "monitoring: marshal alert")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.WebhookURL, bytes.NewReader(payload))
	if err != nil {
		return eris.Wrap(err, "monitoring: create webhook request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return eris.Wrap(err, "monitoring: webhook request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 400 {
		return eris.Errorf("monitoring: webhook returned status %d", resp.StatusCode)
	}
	return nil
}
