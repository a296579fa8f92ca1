// internal/domain/subscription/dto.go
package subscription

import (
	"fmt"

	"wardpulse-service/internal/domain/notification"
)

// UpdateRequest carries a partial subscription update. Nil fields are left
// untouched (merge semantics); there is deliberately no full-replace path.
type UpdateRequest struct {
	MessageTypes *[]notification.MessageType `json:"message_types,omitempty"`
	Departments  *[]string                   `json:"departments,omitempty"`
	Channels     *[]Channel                  `json:"channels,omitempty"`
	QuietHours   *QuietHours                 `json:"quiet_hours,omitempty"`
	ClearQuiet   bool                        `json:"clear_quiet_hours,omitempty"`
	SoundEnabled *bool                       `json:"sound_enabled,omitempty"`
	PopupEnabled *bool                       `json:"popup_enabled,omitempty"`
}

// Validate rejects unknown enum values before they reach the registry.
func (r *UpdateRequest) Validate() error {
	if r.MessageTypes != nil {
		for _, t := range *r.MessageTypes {
			if !t.IsValid() {
				return fmt.Errorf("unknown message type %q", t)
			}
		}
	}
	if r.Channels != nil {
		for _, c := range *r.Channels {
			if !c.IsValid() {
				return fmt.Errorf("unknown channel %q", c)
			}
		}
	}
	if r.QuietHours != nil {
		if r.QuietHours.Start < 0 || r.QuietHours.Start >= 24*60 ||
			r.QuietHours.End < 0 || r.QuietHours.End >= 24*60 {
			return fmt.Errorf("quiet hours out of range")
		}
	}
	return nil
}

// ApplyTo merges the request into s in place.
func (r *UpdateRequest) ApplyTo(s *Subscription) {
	if r.MessageTypes != nil {
		types := make(map[notification.MessageType]bool, len(*r.MessageTypes))
		for _, t := range *r.MessageTypes {
			types[t] = true
		}
		s.MessageTypes = types
	}
	if r.Departments != nil {
		if len(*r.Departments) == 0 {
			s.Departments = nil
		} else {
			depts := make(map[string]bool, len(*r.Departments))
			for _, d := range *r.Departments {
				depts[d] = true
			}
			s.Departments = depts
		}
	}
	if r.Channels != nil {
		s.Channels = append([]Channel(nil), *r.Channels...)
	}
	if r.ClearQuiet {
		s.QuietHours = nil
	} else if r.QuietHours != nil {
		qh := *r.QuietHours
		s.QuietHours = &qh
	}
	if r.SoundEnabled != nil {
		s.SoundEnabled = *r.SoundEnabled
	}
	if r.PopupEnabled != nil {
		s.PopupEnabled = *r.PopupEnabled
	}
}
