// internal/domain/subscription/entity.go
package subscription

import (
	"time"

	"wardpulse-service/internal/domain/notification"
)

// Channel is a delivery channel. ChannelWebSocket is the live transport;
// the rest are side channels handled by the dispatcher.
type Channel string

const (
	ChannelWebSocket Channel = "websocket"
	ChannelEmail     Channel = "email"
	ChannelSMS       Channel = "sms"
	ChannelPush      Channel = "push"
)

func (c Channel) IsValid() bool {
	switch c {
	case ChannelWebSocket, ChannelEmail, ChannelSMS, ChannelPush:
		return true
	}
	return false
}

// QuietHours is a local-time window during which non-critical messages are
// suppressed. Start and End are minutes since midnight; the window wraps
// midnight when Start > End. Start == End means no suppression.
type QuietHours struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Contains reports whether t falls inside the half-open window [Start, End).
func (q QuietHours) Contains(t time.Time) bool {
	if q.Start == q.End {
		return false
	}
	minute := t.Hour()*60 + t.Minute()
	if q.Start < q.End {
		return minute >= q.Start && minute < q.End
	}
	// Wraps midnight, e.g. 22:00-06:00.
	return minute >= q.Start || minute < q.End
}

// Subscription holds one identity's notification preferences. The channel
// list is the single source of truth for channel enablement; the boolean
// accessors below are computed, never stored.
type Subscription struct {
	Identity     string                            `json:"identity"`
	MessageTypes map[notification.MessageType]bool `json:"message_types"`
	Departments  map[string]bool                   `json:"departments,omitempty"`
	Channels     []Channel                         `json:"channels"`
	QuietHours   *QuietHours                       `json:"quiet_hours,omitempty"`
	SoundEnabled bool                              `json:"sound_enabled"`
	PopupEnabled bool                              `json:"popup_enabled"`
	UpdatedAt    time.Time                         `json:"updated_at"`
}

// Default returns the subscription applied to an identity that has never
// stored preferences: every message type, live transport only, no
// department filter, no quiet hours.
func Default(identity string) *Subscription {
	types := make(map[notification.MessageType]bool, 12)
	for _, t := range notification.AllMessageTypes() {
		types[t] = true
	}
	return &Subscription{
		Identity:     identity,
		MessageTypes: types,
		Channels:     []Channel{ChannelWebSocket},
		SoundEnabled: true,
		PopupEnabled: true,
	}
}

// HasChannel reports whether ch is in the channel list.
func (s *Subscription) HasChannel(ch Channel) bool {
	for _, c := range s.Channels {
		if c == ch {
			return true
		}
	}
	return false
}

// Computed channel toggles, kept as accessors so the channel list stays
// the only stored representation.

func (s *Subscription) LiveEnabled() bool  { return s.HasChannel(ChannelWebSocket) }
func (s *Subscription) EmailEnabled() bool { return s.HasChannel(ChannelEmail) }
func (s *Subscription) SMSEnabled() bool   { return s.HasChannel(ChannelSMS) }
func (s *Subscription) PushEnabled() bool  { return s.HasChannel(ChannelPush) }

// SideChannels returns the configured channels other than the live
// transport, in list order.
func (s *Subscription) SideChannels() []Channel {
	out := make([]Channel, 0, len(s.Channels))
	for _, c := range s.Channels {
		if c != ChannelWebSocket {
			out = append(out, c)
		}
	}
	return out
}

// Clone returns a deep copy, so callers can hand subscriptions across
// goroutines without aliasing registry state.
func (s *Subscription) Clone() *Subscription {
	cp := *s
	cp.MessageTypes = make(map[notification.MessageType]bool, len(s.MessageTypes))
	for k, v := range s.MessageTypes {
		cp.MessageTypes[k] = v
	}
	if s.Departments != nil {
		cp.Departments = make(map[string]bool, len(s.Departments))
		for k, v := range s.Departments {
			cp.Departments[k] = v
		}
	}
	cp.Channels = append([]Channel(nil), s.Channels...)
	if s.QuietHours != nil {
		qh := *s.QuietHours
		cp.QuietHours = &qh
	}
	return &cp
}
