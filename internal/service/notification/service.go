// internal/service/notification/service.go
package notification

import (
	"context"
	"fmt"

	"wardpulse-service/internal/broker"
	"wardpulse-service/internal/domain/notification"

	"go.uber.org/zap"
)

// HistoryReader is the read side of the notification history store.
type HistoryReader interface {
	List(ctx context.Context, identity string, filters *notification.HistoryFilters) ([]notification.HistoryEntry, int64, error)
	UnreadCount(ctx context.Context, identity string) (int, error)
	MarkRead(ctx context.Context, identity, messageID string) error
	MarkAllRead(ctx context.Context, identity string) error
}

// Service serves notification history reads on top of the persistence
// collaborator and pushes unread-count updates over the live transport.
type Service struct {
	repo   HistoryReader
	brk    *broker.Broker
	logger *zap.Logger
}

func NewService(repo HistoryReader, brk *broker.Broker, logger *zap.Logger) *Service {
	return &Service{repo: repo, brk: brk, logger: logger}
}

// History returns a page of the identity's persisted notifications.
func (s *Service) History(ctx context.Context, identity string, filters *notification.HistoryFilters) (*notification.HistoryPage, error) {
	if filters.Page < 1 {
		filters.Page = 1
	}
	if filters.PageSize < 1 {
		filters.PageSize = 20
	}
	if filters.PageSize > 100 {
		filters.PageSize = 100
	}

	entries, total, err := s.repo.List(ctx, identity, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}

	totalPages := int(total) / filters.PageSize
	if int(total)%filters.PageSize > 0 {
		totalPages++
	}

	return &notification.HistoryPage{
		Entries:    entries,
		Total:      total,
		Page:       filters.Page,
		PageSize:   filters.PageSize,
		TotalPages: totalPages,
	}, nil
}

// UnreadCount returns the number of unread persisted notifications.
func (s *Service) UnreadCount(ctx context.Context, identity string) (int, error) {
	return s.repo.UnreadCount(ctx, identity)
}

// MarkRead marks one notification read and pushes the fresh unread count
// to the identity's live connections. Returns the new count.
func (s *Service) MarkRead(ctx context.Context, identity, messageID string) (int, error) {
	if err := s.repo.MarkRead(ctx, identity, messageID); err != nil {
		return 0, fmt.Errorf("failed to mark as read: %w", err)
	}

	count, err := s.repo.UnreadCount(ctx, identity)
	if err != nil {
		s.logger.Warn("unread count lookup failed after mark-read",
			zap.Error(err),
			zap.String("identity", identity),
		)
		return 0, nil
	}

	s.brk.PushUnreadCount(identity, count)
	return count, nil
}

// MarkAllRead marks every notification read and pushes a zero count.
func (s *Service) MarkAllRead(ctx context.Context, identity string) error {
	if err := s.repo.MarkAllRead(ctx, identity); err != nil {
		return fmt.Errorf("failed to mark all as read: %w", err)
	}
	s.brk.PushUnreadCount(identity, 0)
	return nil
}
