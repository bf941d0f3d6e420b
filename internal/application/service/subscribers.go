package service

import (
	"context"

	"github.com/workflowos/approval-engine/internal/application/dispatcher"
	"github.com/workflowos/approval-engine/internal/domain/event"
)

// TransitionRecorder counts accepted workflow events
type TransitionRecorder interface {
	RecordTransition(eventType string)
}

// AuditLogHandler writes one structured log line per workflow event
func AuditLogHandler(logger Logger) dispatcher.Handler {
	return func(ctx context.Context, evt *event.Event) error {
		kv := []interface{}{
			"event_id", evt.ID,
			"event_type", evt.Type.String(),
			"workflow_id", evt.WorkflowID,
			"actor_id", evt.ActorID,
			"version", evt.GetPayloadUint(event.KeyVersion),
		}
		if from := evt.GetPayloadString(event.KeyPreviousStatus); from != "" {
			kv = append(kv, "from", from)
		}
		if to := evt.GetPayloadString(event.KeyNewStatus); to != "" {
			kv = append(kv, "to", to)
		}
		if comment := evt.GetPayloadString(event.KeyComment); comment != "" {
			kv = append(kv, "comment", comment)
		}
		logger.Info("Workflow audit", kv...)
		return nil
	}
}

// MetricsHandler increments the transition counter for every workflow event
func MetricsHandler(recorder TransitionRecorder) dispatcher.Handler {
	return func(ctx context.Context, evt *event.Event) error {
		recorder.RecordTransition(evt.Type.String())
		return nil
	}
}

// RegisterSubscribers wires the audit log and metrics handlers onto d
func RegisterSubscribers(d dispatcher.Dispatcher, logger Logger, recorder TransitionRecorder) {
	d.SubscribeNamed(dispatcher.AnyType, "audit-log", AuditLogHandler(logger))
	if recorder != nil {
		d.SubscribeNamed(dispatcher.AnyType, "transition-metrics", MetricsHandler(recorder))
	}
}
