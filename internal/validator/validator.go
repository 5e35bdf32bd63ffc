// Package validator composes the threat catalog, structural limits,
// rate limiter, and event log into the single entry point that accepts
// or rejects a candidate chat message.
//
// Checks fail fast in a fixed order: rate limit, then structure, then
// pattern scan. Only pattern rejections are recorded as security
// events; rate and structural rejections are ordinary backpressure and
// would let one noisy client wash real attack evidence out of the
// bounded ring.
package validator

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/chatguard/chatguard/internal/audit"
	"github.com/chatguard/chatguard/internal/eventlog"
	"github.com/chatguard/chatguard/internal/observability"
	"github.com/chatguard/chatguard/internal/policy"
	"github.com/chatguard/chatguard/internal/ratelimit"
	"github.com/chatguard/chatguard/internal/remote"
	"github.com/chatguard/chatguard/internal/strikes"
	"github.com/chatguard/chatguard/internal/structural"
	"github.com/chatguard/chatguard/internal/threat"
)

// Scanner yields the first threat finding for a text, if any.
type Scanner interface {
	First(text string) (threat.Finding, bool)
}

// Notifier receives recorded security events for external delivery.
type Notifier interface {
	Report(ev eventlog.Event)
}

// Config assembles a validator. Nil or zero fields fall back to
// package defaults; Audit, Metrics, Remote, and Notifier are optional
// and disabled when nil.
type Config struct {
	Catalog Scanner
	Limits  structural.Limits
	Limiter *ratelimit.Limiter
	Events  *eventlog.Log
	Strikes *strikes.Tracker
	Mode    policy.Mode
	Logger  *slog.Logger
	Now     func() time.Time

	Audit    *audit.Logger
	Metrics  *observability.Metrics
	Remote   *remote.Client
	Notifier Notifier
}

// Validator is the message validation pipeline. Safe for concurrent
// use.
type Validator struct {
	catalog Scanner
	limits  structural.Limits
	limiter *ratelimit.Limiter
	events  *eventlog.Log
	strikes *strikes.Tracker
	mode    policy.Mode
	logger  *slog.Logger
	now     func() time.Time

	audit    *audit.Logger
	metrics  *observability.Metrics
	remote   *remote.Client
	notifier Notifier
}

// New builds a validator from cfg.
func New(cfg Config) (*Validator, error) {
	mode, err := policy.ParseMode(string(cfg.Mode))
	if err != nil {
		return nil, err
	}

	v := &Validator{
		catalog:  cfg.Catalog,
		limits:   cfg.Limits,
		limiter:  cfg.Limiter,
		events:   cfg.Events,
		strikes:  cfg.Strikes,
		mode:     mode,
		logger:   cfg.Logger,
		now:      cfg.Now,
		audit:    cfg.Audit,
		metrics:  cfg.Metrics,
		remote:   cfg.Remote,
		notifier: cfg.Notifier,
	}

	if v.catalog == nil {
		v.catalog = threat.DefaultCatalog()
	}
	if v.limits == (structural.Limits{}) {
		v.limits = structural.DefaultLimits()
	}
	if v.limiter == nil {
		v.limiter = ratelimit.NewLimiter(ratelimit.DefaultPolicy())
	}
	if v.events == nil {
		v.events = eventlog.NewLog(eventlog.DefaultCapacity)
	}
	if v.strikes == nil {
		tracker, err := strikes.NewTracker(0, 0)
		if err != nil {
			return nil, err
		}
		v.strikes = tracker
	}
	if v.logger == nil {
		v.logger = slog.Default()
	}
	if v.now == nil {
		v.now = time.Now
	}
	return v, nil
}

// Validate runs the local pipeline and returns the trimmed message on
// acceptance. Rejections come back as *RateLimitError, *ContentError,
// *structural.Violation, or structural.ErrInvalidInput.
func (v *Validator) Validate(text, identity string) (string, error) {
	return v.run(context.Background(), text, identity, false)
}

// ValidateRemoteFirst consults the remote endpoint before the local
// content checks. Rate limiting always runs locally first. When the
// endpoint is unreachable, times out, or is not configured, the local
// pipeline decides; a late remote response is abandoned with the
// request context.
func (v *Validator) ValidateRemoteFirst(ctx context.Context, text, identity string) (string, error) {
	return v.run(ctx, text, identity, true)
}

// RateStatus reports the identity's current window without consuming
// an attempt.
func (v *Validator) RateStatus(identity string) ratelimit.Result {
	return v.limiter.Status(identity, v.now())
}

// ThreatLevel grades the identity by its recent strikes.
func (v *Validator) ThreatLevel(identity string) strikes.Level {
	if identity == "" {
		return strikes.LevelLow
	}
	return v.strikes.Level(identity, v.now())
}

func (v *Validator) run(ctx context.Context, text, identity string, useRemote bool) (string, error) {
	start := v.now()
	requestID := audit.RequestIDFromContext(ctx)

	if res := v.limiter.Check(identity, start); !res.Allowed {
		v.metrics.RateLimitDenied()
		v.observe(audit.Record{
			RequestID: requestID,
			Identity:  identity,
			Outcome:   audit.OutcomeRateLimited,
		}, start)
		v.logger.Info("rate limit exceeded", "identity", identity, "reset_at", res.ResetAt)
		return "", &RateLimitError{ResetAt: res.ResetAt}
	}

	if useRemote && v.remote != nil {
		verdict, err := v.remote.Check(ctx, remote.Request{
			Input: text,
			Context: remote.Context{
				Identity:  identity,
				Timestamp: start.UnixMilli(),
			},
		})
		switch {
		case err != nil:
			v.logger.Warn("remote validation unavailable, using local checks", "error", err)
			v.metrics.RemoteFallback()
		case verdict.IsValid:
			out := strings.TrimSpace(verdict.SanitizedInput)
			if out == "" {
				out = strings.TrimSpace(text)
			}
			v.observe(audit.Record{
				RequestID: requestID,
				Identity:  identity,
				Outcome:   audit.OutcomeAccepted,
			}, start)
			return out, nil
		default:
			v.logger.Info("remote validation rejected message", "identity", identity, "reason", verdict.Reason)
			return v.handleThreat(threat.CategorySuspicious, verdict.Reason,
				strings.TrimSpace(text), identity, requestID, audit.OutcomeRemote, start)
		}
	}

	return v.local(text, identity, requestID, start)
}

func (v *Validator) local(text, identity, requestID string, start time.Time) (string, error) {
	trimmed := strings.TrimSpace(text)

	if err := v.limits.Check(trimmed); err != nil {
		kind := "empty_input"
		var viol *structural.Violation
		if errors.As(err, &viol) {
			kind = string(viol.Kind)
		}
		v.observe(audit.Record{
			RequestID: requestID,
			Identity:  identity,
			Outcome:   audit.OutcomeStructural,
			Kind:      kind,
		}, start)
		return "", err
	}

	finding, matched := v.catalog.First(trimmed)
	if !matched {
		v.observe(audit.Record{
			RequestID: requestID,
			Identity:  identity,
			Outcome:   audit.OutcomeAccepted,
		}, start)
		return trimmed, nil
	}

	return v.handleThreat(finding.Category, finding.Evidence,
		trimmed, identity, requestID, audit.OutcomeBlocked, start)
}

// handleThreat records the event, strikes the identity, notifies
// sinks, and applies the policy mode. rejectedOutcome names the audit
// outcome used when the mode rejects.
func (v *Validator) handleThreat(category threat.Category, evidence, trimmed, identity, requestID, rejectedOutcome string, start time.Time) (string, error) {
	ev, evicted := v.events.Record(category, trimmed, identity)
	if evicted {
		v.metrics.EventDropped()
	}

	var level strikes.Level
	if identity != "" {
		level = v.strikes.Strike(identity, start)
	}

	if v.notifier != nil {
		v.notifier.Report(ev)
	}

	rec := audit.Record{
		RequestID:   requestID,
		Identity:    identity,
		Category:    string(category),
		ThreatLevel: string(level),
		Preview:     ev.ContentPreview,
	}

	if policy.DecideAction(v.mode, true) == policy.ActionAllowLogged {
		rec.Outcome = audit.OutcomeMonitored
		v.observe(rec, start)
		v.logger.Info("threat allowed in monitor mode",
			"category", category, "identity", identity, "level", level, "evidence", evidence)
		return trimmed, nil
	}

	rec.Outcome = rejectedOutcome
	v.observe(rec, start)
	v.logger.Warn("message blocked",
		"category", category, "identity", identity, "level", level, "evidence", evidence)
	return "", &ContentError{Category: category, Evidence: evidence}
}

func (v *Validator) observe(rec audit.Record, start time.Time) {
	duration := v.now().Sub(start)
	rec.Timestamp = start
	rec.Mode = string(v.mode)
	rec.DurationUS = duration.Microseconds()

	if v.audit != nil {
		if err := v.audit.Log(rec); err != nil {
			v.logger.Error("audit write failed", "error", err)
		}
	}
	v.metrics.ObserveValidation(rec.Outcome, rec.Category, duration)
}
