// internal/broker/matcher.go
package broker

import (
	"time"

	"wardpulse-service/internal/domain/notification"
	"wardpulse-service/internal/domain/subscription"
)

// ShouldDeliver decides whether a message reaches a subscription. Pure
// function; the same check gates both live-transport delivery and
// side-channel dispatch.
//
// Checks run in order and the first failure rejects:
//  1. the message type must be subscribed;
//  2. if the subscription filters by department, the message must carry
//     one of the allowed departments (allow-list, so a department-less
//     message is rejected for a department-filtering subscriber);
//  3. inside quiet hours only critical-priority messages pass.
func ShouldDeliver(msg *notification.Message, sub *subscription.Subscription, now time.Time) bool {
	if !sub.MessageTypes[msg.Type] {
		return false
	}

	if len(sub.Departments) > 0 {
		if msg.Department == "" || !sub.Departments[msg.Department] {
			return false
		}
	}

	if sub.QuietHours != nil && sub.QuietHours.Contains(now) &&
		msg.Priority != notification.PriorityCritical {
		return false
	}

	return true
}
