// internal/repository/postgres/history_repo.go
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"wardpulse-service/internal/domain/notification"

	"github.com/jackc/pgx/v5/pgxpool"
)

// HistoryRepository is the notification-history persistence collaborator:
// append-only message and delivery-record writes for the broker, read
// endpoints for the history API.
type HistoryRepository struct {
	db *pgxpool.Pool
}

func NewHistoryRepository(db *pgxpool.Pool) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// SaveMessage appends a published message to history.
func (r *HistoryRepository) SaveMessage(ctx context.Context, msg *notification.Message) error {
	query := `
		INSERT INTO notifications (id, identity, type, priority, title, body, payload, department, requires_ack, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO NOTHING
	`

	var payloadJSON []byte
	if msg.Payload != nil {
		var err error
		payloadJSON, err = json.Marshal(msg.Payload)
		if err != nil {
			return fmt.Errorf("failed to marshal payload: %w", err)
		}
	}

	_, err := r.db.Exec(ctx, query,
		msg.ID, msg.TargetIdentity, msg.Type, msg.Priority, msg.Title, msg.Body,
		payloadJSON, nullable(msg.Department), msg.RequiresAck, msg.CreatedAt, msg.ExpiresAt,
	)
	return err
}

// RecordDelivery appends one channel-attempt record.
func (r *HistoryRepository) RecordDelivery(ctx context.Context, rec *notification.DeliveryRecord) error {
	query := `
		INSERT INTO delivery_records (message_id, identity, channel, status, attempted_at, failure_reason)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.Exec(ctx, query,
		rec.MessageID, rec.Identity, rec.Channel, rec.Status, rec.AttemptedAt, nullable(rec.FailureReason),
	)
	return err
}

// List returns a page of the identity's notifications, newest first.
func (r *HistoryRepository) List(ctx context.Context, identity string, filters *notification.HistoryFilters) ([]notification.HistoryEntry, int64, error) {
	conditions := []string{"identity = $1", "(expires_at IS NULL OR expires_at > NOW())"}
	args := []interface{}{identity}
	argPos := 2

	if filters.Unread != nil {
		conditions = append(conditions, fmt.Sprintf("is_read = $%d", argPos))
		args = append(args, !*filters.Unread)
		argPos++
	}
	if filters.Type != nil {
		conditions = append(conditions, fmt.Sprintf("type = $%d", argPos))
		args = append(args, *filters.Type)
		argPos++
	}

	whereClause := strings.Join(conditions, " AND ")

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM notifications WHERE %s", whereClause)
	var total int64
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count notifications: %w", err)
	}

	offset := (filters.Page - 1) * filters.PageSize
	listQuery := fmt.Sprintf(`
		SELECT id, identity, type, priority, title, body, payload, is_read, created_at, read_at
		FROM notifications
		WHERE %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d
	`, whereClause, argPos, argPos+1)
	args = append(args, filters.PageSize, offset)

	rows, err := r.db.Query(ctx, listQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	var entries []notification.HistoryEntry
	for rows.Next() {
		var e notification.HistoryEntry
		var payloadJSON []byte
		if err := rows.Scan(&e.ID, &e.Identity, &e.Type, &e.Priority, &e.Title, &e.Body,
			&payloadJSON, &e.IsRead, &e.CreatedAt, &e.ReadAt); err != nil {
			return nil, 0, fmt.Errorf("failed to scan notification: %w", err)
		}
		if len(payloadJSON) > 0 {
			if err := json.Unmarshal(payloadJSON, &e.Payload); err != nil {
				return nil, 0, fmt.Errorf("failed to unmarshal payload: %w", err)
			}
		}
		entries = append(entries, e)
	}
	return entries, total, rows.Err()
}

// UnreadCount returns the identity's unread, unexpired notification count.
func (r *HistoryRepository) UnreadCount(ctx context.Context, identity string) (int, error) {
	query := `
		SELECT COUNT(*) FROM notifications
		WHERE identity = $1 AND is_read = FALSE AND (expires_at IS NULL OR expires_at > NOW())
	`
	var count int
	err := r.db.QueryRow(ctx, query, identity).Scan(&count)
	return count, err
}

// MarkRead flags one notification read, scoped to the owning identity.
func (r *HistoryRepository) MarkRead(ctx context.Context, identity, messageID string) error {
	query := `
		UPDATE notifications SET is_read = TRUE, read_at = NOW()
		WHERE id = $1 AND identity = $2 AND is_read = FALSE
	`
	tag, err := r.db.Exec(ctx, query, messageID, identity)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("notification %s not found or already read", messageID)
	}
	return nil
}

// MarkAllRead flags every unread notification read for the identity.
func (r *HistoryRepository) MarkAllRead(ctx context.Context, identity string) error {
	query := `UPDATE notifications SET is_read = TRUE, read_at = NOW() WHERE identity = $1 AND is_read = FALSE`
	_, err := r.db.Exec(ctx, query, identity)
	return err
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
