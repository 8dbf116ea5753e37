package authgate

import (
	"io"

	"github.com/calmisko/authgate/internal/audit"
)

// AuditEvent is a single structured audit record emitted by the engine.
type AuditEvent = audit.Event

// AuditSink receives audit events. Implementations must be safe for
// concurrent use; Emit must not block indefinitely.
type AuditSink = audit.Sink

// NoOpSink discards every event.
type NoOpSink = audit.NoOpSink

// ChannelSink buffers events on a channel for the host application to
// drain.
type ChannelSink = audit.ChannelSink

// JSONWriterSink writes one JSON object per line to an io.Writer.
type JSONWriterSink = audit.JSONWriterSink

// NewChannelSink builds a ChannelSink with the given buffer size.
func NewChannelSink(buffer int) *ChannelSink {
	return audit.NewChannelSink(buffer)
}

// NewJSONWriterSink builds a JSONWriterSink over w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return audit.NewJSONWriterSink(w)
}

const (
	auditEventSignInSuccess      = "sign_in_success"
	auditEventSignInFailure      = "sign_in_failure"
	auditEventSignInThrottled    = "sign_in_throttled"
	auditEventSignUpSuccess      = "sign_up_success"
	auditEventSignUpDuplicate    = "sign_up_duplicate"
	auditEventPreAuthIssued      = "pre_auth_issued"
	auditEventTwoFactorEnrolled  = "two_factor_enrolled"
	auditEventTwoFactorConfirmed = "two_factor_confirmed"
	auditEventTwoFactorDisabled  = "two_factor_disabled"
	auditEventCodeSuccess        = "code_success"
	auditEventCodeFailure        = "code_failure"
	auditEventCodeThrottled      = "code_throttled"
	auditEventResetRequested     = "password_reset_requested"
	auditEventResetRedeemed      = "password_reset_redeemed"
	auditEventResetRejected      = "password_reset_rejected"
	auditEventPasswordChanged    = "password_changed"
)
