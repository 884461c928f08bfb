package service

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/teresa-solution/owner-console/internal/store"
)

// AuditEntry is one owner action queued for the audit trail.
type AuditEntry struct {
	Action   string
	Module   string
	Resource string
	Severity string
	User     string
	Details  map[string]any
}

// AuditRecorder writes audit entries to the audit_logs collection from a
// background worker so owner writes never wait on, or fail because of,
// the audit trail.
type AuditRecorder struct {
	store   store.RecordStore
	entries chan AuditEntry
	done    chan struct{}
	mu      sync.RWMutex
	closed  bool
	timeout time.Duration
}

// NewAuditRecorder starts the worker. Close drains the queue.
func NewAuditRecorder(rs store.RecordStore, buffer int) *AuditRecorder {
	if buffer <= 0 {
		buffer = 10
	}
	a := &AuditRecorder{
		store:   rs,
		entries: make(chan AuditEntry, buffer),
		done:    make(chan struct{}),
		timeout: 5 * time.Second,
	}
	go a.startWorker()
	return a
}

func (a *AuditRecorder) startWorker() {
	defer close(a.done)
	for entry := range a.entries {
		if err := a.write(entry); err != nil {
			log.Error().Err(err).Str("action", entry.Action).Str("resource", entry.Resource).Msg("Audit log write failed")
		}
	}
}

func (a *AuditRecorder) write(e AuditEntry) error {
	ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
	defer cancel()

	details := make(map[string]any, len(e.Details)+1)
	for k, v := range e.Details {
		details[k] = v
	}
	if e.Resource != "" {
		details["resource_id"] = e.Resource
	}
	_, err := a.store.Create(ctx, collAuditLogs, store.Record{
		"action":     e.Action,
		"user":       e.User,
		"details":    details,
		"ip_address": "-",
		"module":     e.Module,
		"severity":   e.Severity,
	})
	return err
}

// Record queues an entry. A nil recorder discards it; a full queue drops it
// with a warning rather than blocking the caller.
func (a *AuditRecorder) Record(e AuditEntry) {
	if a == nil {
		return
	}
	if e.User == "" {
		e.User = "system"
	}
	if e.Severity == "" {
		e.Severity = "info"
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return
	}
	select {
	case a.entries <- e:
	default:
		log.Warn().Str("action", e.Action).Msg("Audit queue full, dropping entry")
	}
}

// Close stops accepting entries and waits for queued ones to be written.
func (a *AuditRecorder) Close() {
	if a == nil {
		return
	}
	a.mu.Lock()
	if !a.closed {
		a.closed = true
		close(a.entries)
	}
	a.mu.Unlock()
	<-a.done
}
