package storage

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/whatsorder/whatsorder-server/internal/models"
)

// LogInteraction records one inbound/outbound message pair
func (s *PostgresStore) LogInteraction(ctx context.Context, entry *models.InteractionLog) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	entry.CreatedAt = time.Now()

	query := `
		INSERT INTO interaction_logs (id, created_at, tenant_id, customer_phone, incoming_message, outgoing_message)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := s.getDB().ExecContext(ctx, query,
		entry.ID, entry.CreatedAt, entry.TenantID, entry.CustomerPhone,
		entry.IncomingMessage, entry.OutgoingMessage,
	)

	return err
}

// LogActivity records a tenant-scoped business event
func (s *PostgresStore) LogActivity(ctx context.Context, entry *models.ActivityLog) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	entry.CreatedAt = time.Now()

	query := `
		INSERT INTO activity_logs (id, created_at, tenant_id, action, details)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := s.getDB().ExecContext(ctx, query,
		entry.ID, entry.CreatedAt, entry.TenantID, entry.Action, entry.Details,
	)

	return err
}
