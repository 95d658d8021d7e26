// Package capture wraps a logger so every line is both written locally and
// forwarded to the ingest endpoint tagged with the active trace identity.
// Local logging must never be degraded by capture: forwarding happens in a
// goroutine with its own timeout, and any failure is swallowed into a
// diagnostic sink that bypasses the shim entirely.
package capture

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"tracehub/internal/models"
	"tracehub/internal/trace"
	"tracehub/internal/utils"
)

// Config controls the capture shim.
type Config struct {
	// IngestURL is the endpoint events are POSTed to. Empty disables
	// forwarding; local logging is unaffected.
	IngestURL string
	// System tags forwarded events with their originating subsystem.
	System models.System
	// Timeout bounds a single forward attempt. There are no retries.
	Timeout time.Duration
}

// Shim intercepts log calls, writes them locally, and forwards a copy to
// the ingest endpoint. The diag logger must not itself be wrapped by a
// shim, otherwise a forwarding failure would recurse.
type Shim struct {
	local      *utils.Logger
	diag       *utils.Logger
	identity   *trace.Identity
	cfg        Config
	httpClient *http.Client
	inflight   sync.WaitGroup
}

// NewShim wraps local. diag receives forwarding failures; pass nil to
// discard them silently.
func NewShim(local *utils.Logger, diag *utils.Logger, identity *trace.Identity, cfg Config) *Shim {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.System == "" {
		cfg.System = models.SystemManual
	}
	return &Shim{
		local:      local,
		diag:       diag,
		identity:   identity,
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

func (s *Shim) Debug(msg string, keyvals ...any) { s.log(models.LevelDebug, msg, keyvals...) }
func (s *Shim) Info(msg string, keyvals ...any)  { s.log(models.LevelInfo, msg, keyvals...) }
func (s *Shim) Warn(msg string, keyvals ...any)  { s.log(models.LevelWarn, msg, keyvals...) }
func (s *Shim) Error(msg string, keyvals ...any) { s.log(models.LevelError, msg, keyvals...) }

func (s *Shim) log(level models.Level, msg string, keyvals ...any) {
	// Local output first, always synchronous.
	switch level {
	case models.LevelDebug:
		s.local.Debug(msg, keyvals...)
	case models.LevelWarn:
		s.local.Warn(msg, keyvals...)
	case models.LevelError:
		s.local.Error(msg, keyvals...)
	default:
		s.local.Info(msg, keyvals...)
	}

	if s.cfg.IngestURL == "" || !s.identity.Enabled() {
		return
	}

	event := models.LogEvent{
		Timestamp: time.Now().UTC(),
		System:    s.cfg.System,
		TraceID:   s.identity.TraceID(),
		UserID:    s.identity.UserID(),
		Level:     level,
		Message:   msg,
		Context:   keyvalsToContext(keyvals),
	}

	// Fire and forget. One attempt, bounded by the client timeout.
	s.inflight.Add(1)
	go s.forward(event)
}

// Flush blocks until in-flight forwards finish or the timeout elapses.
// Short-lived processes call this before exiting so queued events are not
// dropped on the floor.
func (s *Shim) Flush(timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}

func (s *Shim) forward(event models.LogEvent) {
	defer s.inflight.Done()
	defer func() {
		if r := recover(); r != nil {
			s.diagError("capture forward panicked", "panic", r)
		}
	}()

	body, err := json.Marshal(event)
	if err != nil {
		s.diagError("capture marshal failed", "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.IngestURL, bytes.NewReader(body))
	if err != nil {
		s.diagError("capture request build failed", "error", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		s.diagError("capture forward failed", "error", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		s.diagError("capture forward rejected", "status", resp.StatusCode)
	}
}

func (s *Shim) diagError(msg string, keyvals ...any) {
	if s.diag != nil {
		s.diag.Error(msg, keyvals...)
	}
}

func keyvalsToContext(keyvals []any) models.JSONB {
	if len(keyvals) == 0 {
		return nil
	}
	fields := make(models.JSONB, len(keyvals)/2)
	for i := 0; i+1 < len(keyvals); i += 2 {
		fields[fmt.Sprintf("%v", keyvals[i])] = keyvals[i+1]
	}
	return fields
}
