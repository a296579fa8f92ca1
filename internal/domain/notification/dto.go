// internal/domain/notification/dto.go
package notification

import "time"

// PublishRequest creates and delivers a single-target notification.
type PublishRequest struct {
	TargetIdentity string                 `json:"target_identity" binding:"required"`
	Type           MessageType            `json:"type" binding:"required"`
	Priority       Priority               `json:"priority"`
	Title          string                 `json:"title" binding:"required,max=255"`
	Body           string                 `json:"body" binding:"required"`
	Payload        map[string]interface{} `json:"payload,omitempty"`
	Department     string                 `json:"department,omitempty"`
	ExpiresAt      *time.Time             `json:"expires_at,omitempty"`
	RequiresAck    bool                   `json:"requires_ack"`
}

// BroadcastCriteria selects the target identities of a broadcast.
// Exactly one of Identities, Department/Role, or AllConnected applies;
// Identities wins when set, AllConnected is the fallback.
type BroadcastCriteria struct {
	Identities   []string `json:"identities,omitempty"`
	Department   string   `json:"department,omitempty"`
	Role         string   `json:"role,omitempty"`
	AllConnected bool     `json:"all_connected,omitempty"`
}

// BroadcastRequest creates one notification per resolved identity.
type BroadcastRequest struct {
	Type        MessageType            `json:"type" binding:"required"`
	Priority    Priority               `json:"priority"`
	Title       string                 `json:"title" binding:"required,max=255"`
	Body        string                 `json:"body" binding:"required"`
	Payload     map[string]interface{} `json:"payload,omitempty"`
	Department  string                 `json:"department,omitempty"`
	ExpiresAt   *time.Time             `json:"expires_at,omitempty"`
	RequiresAck bool                   `json:"requires_ack"`
	Criteria    BroadcastCriteria      `json:"criteria"`
}

// HistoryFilters narrows notification history reads.
type HistoryFilters struct {
	Unread   *bool        `form:"unread"`
	Type     *MessageType `form:"type"`
	Page     int          `form:"page"`
	PageSize int          `form:"page_size"`
}

// HistoryEntry is a persisted notification as read back from history.
type HistoryEntry struct {
	ID        string                 `json:"id"`
	Identity  string                 `json:"identity"`
	Type      MessageType            `json:"type"`
	Priority  Priority               `json:"priority"`
	Title     string                 `json:"title"`
	Body      string                 `json:"body"`
	Payload   map[string]interface{} `json:"payload,omitempty"`
	IsRead    bool                   `json:"is_read"`
	CreatedAt time.Time              `json:"created_at"`
	ReadAt    *time.Time             `json:"read_at,omitempty"`
}

// HistoryPage is a paged history listing.
type HistoryPage struct {
	Entries    []HistoryEntry `json:"entries"`
	Total      int64          `json:"total"`
	Page       int            `json:"page"`
	PageSize   int            `json:"page_size"`
	TotalPages int            `json:"total_pages"`
}

// BrokerStats is the statistics readout exposed by the broker.
type BrokerStats struct {
	ConnectedIdentityCount int `json:"connected_identity_count"`
	ConnectionCount        int `json:"connection_count"`
	QueuedMessageCount     int `json:"queued_message_count"`
}
