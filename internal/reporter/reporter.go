// Package reporter pushes blocked-message events to external sinks: a
// JSON webhook and any number of shoutrrr notification URLs. Delivery
// is asynchronous and throttled so an attack burst cannot flood the
// operator's channels, and failures are logged and swallowed; message
// handling never depends on a sink being up.
package reporter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/containrrr/shoutrrr"
	"golang.org/x/time/rate"

	"github.com/chatguard/chatguard/internal/eventlog"
)

const (
	// DefaultPerMinute caps notifications sent per minute.
	DefaultPerMinute = 6

	burst          = 3
	webhookTimeout = 10 * time.Second
)

// Reporter fans events out to the configured sinks.
type Reporter struct {
	webhookURL string
	notifyURLs []string
	client     *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
	wg         sync.WaitGroup
}

// New builds a reporter. A non-positive perMinute falls back to
// DefaultPerMinute. With no sinks configured the reporter is inert.
func New(webhookURL string, notifyURLs []string, perMinute int, logger *slog.Logger) *Reporter {
	if perMinute <= 0 {
		perMinute = DefaultPerMinute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Reporter{
		webhookURL: webhookURL,
		notifyURLs: notifyURLs,
		client:     &http.Client{Timeout: webhookTimeout},
		limiter:    rate.NewLimiter(rate.Limit(float64(perMinute)/60), burst),
		logger:     logger,
	}
}

// Report queues ev for delivery. Events over the rate cap are dropped
// silently; the in-memory log and audit file still have them.
func (r *Reporter) Report(ev eventlog.Event) {
	if r == nil {
		return
	}
	if r.webhookURL == "" && len(r.notifyURLs) == 0 {
		return
	}
	if !r.limiter.Allow() {
		return
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.send(ev)
	}()
}

// Close waits for in-flight deliveries.
func (r *Reporter) Close() {
	if r == nil {
		return
	}
	r.wg.Wait()
}

func (r *Reporter) send(ev eventlog.Event) {
	if r.webhookURL != "" {
		if err := r.postWebhook(ev); err != nil {
			r.logger.Warn("webhook delivery failed", "url", r.webhookURL, "error", err)
		}
	}

	if len(r.notifyURLs) == 0 {
		return
	}
	msg := message(ev)
	for _, url := range r.notifyURLs {
		if err := shoutrrr.Send(url, msg); err != nil {
			r.logger.Warn("notification failed", "error", err)
		}
	}
}

func (r *Reporter) postWebhook(ev eventlog.Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	resp, err := r.client.Post(r.webhookURL, "application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return nil
}

func message(ev eventlog.Event) string {
	msg := fmt.Sprintf("blocked %s content (%d chars)", ev.Category, ev.ContentLength)
	if ev.Identity != "" {
		msg += " from " + ev.Identity
	}
	return msg
}
