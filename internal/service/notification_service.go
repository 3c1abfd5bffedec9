package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/sla-engine/internal/events"
)

// NotificationService turns engine events into outbound notifications.
// Delivery is best-effort; a failed notification never rolls back the
// transition that produced it.
type NotificationService struct {
	logger *zap.Logger
}

// NewNotificationService constructs the service.
func NewNotificationService(logger *zap.Logger) *NotificationService {
	return &NotificationService{logger: logger}
}

// RegisterHandlers subscribes to every event type the engine emits.
func (s *NotificationService) RegisterHandlers(dispatcher events.Dispatcher) {
	for _, eventType := range []events.EventType{
		events.EventTicketCreated,
		events.EventTicketAssigned,
		events.EventTicketStatusChanged,
		events.EventTicketPriorityChanged,
		events.EventTicketEscalated,
		events.EventTicketSlaAtRisk,
		events.EventResolutionSubmitted,
		events.EventResolutionApproved,
		events.EventResolutionRejected,
		events.EventTicketClosed,
	} {
		dispatcher.Subscribe(eventType, s.handle)
	}
}

func (s *NotificationService) handle(ctx context.Context, event events.Event) error {
	switch event.Type {
	case events.EventTicketEscalated:
		s.logger.Warn("ticket escalated",
			zap.String("ticket_id", event.TicketID),
			zap.Any("payload", event.Payload),
		)
	case events.EventTicketSlaAtRisk:
		s.logger.Warn("ticket sla at risk",
			zap.String("ticket_id", event.TicketID),
			zap.Any("payload", event.Payload),
		)
	default:
		s.logger.Info("ticket event",
			zap.String("event_type", string(event.Type)),
			zap.String("ticket_id", event.TicketID),
		)
	}
	// TODO: plug in the email/webhook sender once the delivery channel
	// settles; today notifications surface through logs only.
	return nil
}
