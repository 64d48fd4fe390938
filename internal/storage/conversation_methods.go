package storage

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/whatsorder/whatsorder-server/internal/models"
)

// GetConversationState gets the dialogue state for a (tenant, customer) key
func (s *PostgresStore) GetConversationState(ctx context.Context, tenantID uuid.UUID, customerPhone string) (*models.ConversationState, error) {
	query := `
		SELECT tenant_id, customer_phone, current_step, items, total, updated_at
		FROM conversation_states
		WHERE tenant_id = $1 AND customer_phone = $2`

	state := &models.ConversationState{}
	err := s.getDB().QueryRowContext(ctx, query, tenantID, customerPhone).Scan(
		&state.TenantID, &state.CustomerPhone, &state.CurrentStep,
		&state.Items, &state.Total, &state.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}

	return state, err
}

// SaveConversationState upserts the dialogue state for its (tenant, customer) key
func (s *PostgresStore) SaveConversationState(ctx context.Context, state *models.ConversationState) error {
	state.UpdatedAt = time.Now()

	query := `
		INSERT INTO conversation_states (tenant_id, customer_phone, current_step, items, total, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (tenant_id, customer_phone) DO UPDATE SET
			current_step = EXCLUDED.current_step,
			items = EXCLUDED.items,
			total = EXCLUDED.total,
			updated_at = EXCLUDED.updated_at`

	_, err := s.getDB().ExecContext(ctx, query,
		state.TenantID, state.CustomerPhone, state.CurrentStep,
		state.Items, state.Total, state.UpdatedAt,
	)

	return err
}

// ClearConversationState removes the dialogue state for a (tenant, customer) key.
// Clearing an absent state is not an error.
func (s *PostgresStore) ClearConversationState(ctx context.Context, tenantID uuid.UUID, customerPhone string) error {
	_, err := s.getDB().ExecContext(ctx,
		`DELETE FROM conversation_states WHERE tenant_id = $1 AND customer_phone = $2`,
		tenantID, customerPhone)
	return err
}
