package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"github.com/whatsorder/whatsorder-server/internal/gateway"
	"github.com/whatsorder/whatsorder-server/internal/models"
	"github.com/whatsorder/whatsorder-server/internal/router"
	"github.com/whatsorder/whatsorder-server/internal/storage"
)

// Subjects for order lifecycle events
const (
	SubjectOrderStatus = "order.*.status"
	SubjectTenantSend  = "tenant.*.send"
)

// StatusEvent is published when an order's status changes
type StatusEvent struct {
	TenantID string `json:"tenantID"`
	OrderID  string `json:"orderID"`
	Status   string `json:"status"`
}

// SendEvent is published when an operator wants a free-text message delivered
type SendEvent struct {
	TenantID  string `json:"tenantID"`
	Recipient string `json:"recipient"`
	Text      string `json:"text"`
}

// NATSSubscriber delivers customer notifications for events published on the
// message bus
type NATSSubscriber struct {
	nc         *nats.Conn
	store      storage.Store
	router     *router.Router
	dispatcher gateway.Dispatcher
	subs       []*nats.Subscription
}

// NewNATSSubscriber creates NATS subscriber
func NewNATSSubscriber(nc *nats.Conn, store storage.Store, rt *router.Router, dispatcher gateway.Dispatcher) *NATSSubscriber {
	return &NATSSubscriber{
		nc:         nc,
		store:      store,
		router:     rt,
		dispatcher: dispatcher,
		subs:       make([]*nats.Subscription, 0),
	}
}

// Start starts subscriptions and blocks until ctx is cancelled
func (s *NATSSubscriber) Start(ctx context.Context) error {
	sub1, err := s.nc.Subscribe(SubjectOrderStatus, s.handleOrderStatus)
	if err != nil {
		return fmt.Errorf("subscribe order status: %w", err)
	}
	s.subs = append(s.subs, sub1)

	sub2, err := s.nc.Subscribe(SubjectTenantSend, s.handleTenantSend)
	if err != nil {
		return fmt.Errorf("subscribe tenant send: %w", err)
	}
	s.subs = append(s.subs, sub2)

	log.Info().
		Int("subscriptions", len(s.subs)).
		Msg("NATS subscriber started")

	<-ctx.Done()

	for _, sub := range s.subs {
		sub.Unsubscribe()
	}

	return ctx.Err()
}

// handleOrderStatus composes and dispatches the customer notification for an
// order status change. The status itself was already persisted by the
// publisher.
func (s *NATSSubscriber) handleOrderStatus(msg *nats.Msg) {
	log.Debug().
		Str("subject", msg.Subject).
		Int("size", len(msg.Data)).
		Msg("Received order status event")

	var event StatusEvent
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		log.Error().Err(err).Msg("Failed to unmarshal order status event")
		return
	}

	orderID, err := uuid.Parse(event.OrderID)
	if err != nil {
		log.Error().Err(err).Str("orderID", event.OrderID).Msg("Invalid order ID")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		log.Error().Err(err).Str("orderID", event.OrderID).Msg("Failed to get order")
		return
	}

	notification, tenant, err := s.router.ComposeStatusNotification(ctx, order, models.OrderStatus(event.Status))
	if err != nil {
		log.Error().Err(err).Str("orderID", event.OrderID).Msg("Failed to compose notification")
		return
	}

	if err := s.dispatcher.SendText(ctx, tenant.SessionID, notification.Recipient, notification.Text); err != nil {
		log.Error().Err(err).
			Str("orderNumber", order.OrderNumber).
			Str("recipient", notification.Recipient).
			Msg("Failed to send status notification")
		return
	}

	log.Info().
		Str("orderNumber", order.OrderNumber).
		Str("status", event.Status).
		Str("recipient", notification.Recipient).
		Msg("Order status notification sent")
}

// handleTenantSend delivers an operator-authored message to a customer
func (s *NATSSubscriber) handleTenantSend(msg *nats.Msg) {
	log.Debug().
		Str("subject", msg.Subject).
		Msg("Received tenant send event")

	var event SendEvent
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		log.Error().Err(err).Msg("Failed to unmarshal tenant send event")
		return
	}

	tenantID, err := uuid.Parse(event.TenantID)
	if err != nil {
		log.Error().Err(err).Str("tenantID", event.TenantID).Msg("Invalid tenant ID")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	tenant, err := s.store.GetTenant(ctx, tenantID)
	if err != nil {
		log.Error().Err(err).Str("tenantID", event.TenantID).Msg("Failed to get tenant")
		return
	}

	if err := s.dispatcher.SendText(ctx, tenant.SessionID, event.Recipient, event.Text); err != nil {
		log.Error().Err(err).
			Str("tenant", tenant.BusinessName).
			Str("recipient", event.Recipient).
			Msg("Failed to send message")
		return
	}

	log.Info().
		Str("tenant", tenant.BusinessName).
		Str("recipient", event.Recipient).
		Msg("Message sent")
}

// PublishStatusEvent publishes an order status change to the bus. Returns an
// error only when NATS is configured and publishing fails.
func PublishStatusEvent(nc *nats.Conn, tenantID, orderID uuid.UUID, status models.OrderStatus) error {
	if nc == nil {
		return nil
	}
	event := StatusEvent{
		TenantID: tenantID.String(),
		OrderID:  orderID.String(),
		Status:   string(status),
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal status event: %w", err)
	}
	subject := fmt.Sprintf("order.%s.status", orderID)
	return nc.Publish(subject, data)
}

// PublishSendEvent publishes an operator message request to the bus
func PublishSendEvent(nc *nats.Conn, tenantID uuid.UUID, recipient, text string) error {
	if nc == nil {
		return nil
	}
	event := SendEvent{
		TenantID:  tenantID.String(),
		Recipient: recipient,
		Text:      text,
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal send event: %w", err)
	}
	subject := fmt.Sprintf("tenant.%s.send", tenantID)
	return nc.Publish(subject, data)
}
