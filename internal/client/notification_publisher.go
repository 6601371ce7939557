package client

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	natsclient "github.com/voltora-energy/be-install-workflow/internal/platform/nats"
)

// NotificationPublisher publishes workflow events to NATS JetStream for
// consumption by the notifications service.
//
// Subject convention: notifications.install.<event_type>
// Event types: phase_advanced, qc_requested, qc_approved, qc_rejected,
//              installation_completed, survey_completed,
//              quotation_submitted, quotation_approved, quotation_rejected,
//              quotation_final_approved
//
// All publish operations are non-fatal: errors are logged but never
// propagated, so notification failures never interrupt workflow operations.
type NotificationPublisher struct {
	nats          *natsclient.Client
	subjectPrefix string
	log           zerolog.Logger
}

// WorkflowEvent is the JSON schema published to NATS.
type WorkflowEvent struct {
	EventType  string                 `json:"event_type"`
	CustomerID string                 `json:"customer_id"`
	ActorID    string                 `json:"actor_id"`
	Severity   string                 `json:"severity,omitempty"`
	Category   string                 `json:"category,omitempty"`
	Payload    map[string]interface{} `json:"payload,omitempty"`
}

// NewNotificationPublisher creates a publisher backed by the given NATS
// client. A nil client disables publishing (local development without NATS).
func NewNotificationPublisher(nats *natsclient.Client, subjectPrefix string, log zerolog.Logger) *NotificationPublisher {
	return &NotificationPublisher{nats: nats, subjectPrefix: subjectPrefix, log: log}
}

// PublishWorkflowEvent publishes one installation workflow event.
// Subject: <prefix>.<eventType>
func (p *NotificationPublisher) PublishWorkflowEvent(ctx context.Context, eventType, customerID, actorID string, payload map[string]interface{}) {
	if p.nats == nil {
		return
	}

	event := &WorkflowEvent{
		EventType:  eventType,
		CustomerID: customerID,
		ActorID:    actorID,
		Severity:   "info",
		Category:   "installation_workflow",
		Payload:    payload,
	}

	data, err := json.Marshal(event)
	if err != nil {
		p.log.Warn().Err(err).Str("event_type", eventType).Msg("notification: failed to marshal event")
		return
	}

	subject := fmt.Sprintf("%s.%s", p.subjectPrefix, eventType)
	if err := p.nats.Publish(ctx, subject, data); err != nil {
		p.log.Warn().Err(err).
			Str("subject", subject).
			Str("customer_id", customerID).
			Msg("notification: failed to publish NATS event (non-fatal)")
		return
	}

	p.log.Debug().
		Str("subject", subject).
		Str("customer_id", customerID).
		Msg("notification: event published")
}
