package authgate

import (
	"context"
	"time"

	"github.com/calmisko/authgate/internal/audit"
	"github.com/calmisko/authgate/internal/rate"
	"github.com/calmisko/authgate/internal/stores"
	"github.com/calmisko/authgate/password"
	"github.com/calmisko/authgate/token"
)

// Engine is the authentication core. It is immutable after Build and
// safe for concurrent use; all state lives in the directory and Redis.
type Engine struct {
	config     Config
	directory  Directory
	notifier   Notifier
	tokens     *token.Manager
	passwords  *password.Hasher
	totp       *totpManager
	resetStore *stores.ResetStore
	limiter    *rate.Limiter
	audit      *audit.Dispatcher
	metrics    *Metrics

	// now is injectable for tests; nil means time.Now.
	now func() time.Time
}

// Close drains the audit dispatcher. Safe to call on a nil engine.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped reports events lost to a full audit buffer.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot copies the engine's counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) clock() time.Time {
	if e.now != nil {
		return e.now()
	}
	return time.Now()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) emitAudit(ctx context.Context, eventType string, accountID int64, success bool, errCode string, meta map[string]string) {
	if e == nil || e.audit == nil {
		return
	}
	e.audit.Emit(ctx, AuditEvent{
		Timestamp: e.clock(),
		EventType: eventType,
		AccountID: accountID,
		IP:        clientIPFromContext(ctx),
		Success:   success,
		Error:     errCode,
		Metadata:  meta,
	})
}
