package broker

import (
	"testing"
	"time"

	"wardpulse-service/internal/domain/notification"
	"wardpulse-service/internal/domain/subscription"
)

func testMessage(t notification.MessageType, priority notification.Priority) *notification.Message {
	return &notification.Message{
		ID:       "msg-1",
		Type:     t,
		Priority: priority,
		Title:    "test",
		Body:     "test body",
	}
}

func TestShouldDeliverTypeFilter(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	t.Run("SubscribedTypePasses", func(t *testing.T) {
		sub := subscription.Default("nurse-1")
		msg := testMessage(notification.TypeLabResult, notification.PriorityNormal)
		if !ShouldDeliver(msg, sub, now) {
			t.Error("subscribed type should be delivered")
		}
	})

	t.Run("UnsubscribedTypeRejected", func(t *testing.T) {
		sub := subscription.Default("nurse-1")
		sub.MessageTypes = map[notification.MessageType]bool{
			notification.TypeEmergency: true,
		}
		msg := testMessage(notification.TypeLabResult, notification.PriorityCritical)
		if ShouldDeliver(msg, sub, now) {
			t.Error("unsubscribed type must be rejected regardless of priority")
		}
	})
}

func TestShouldDeliverDepartmentFilter(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	sub := subscription.Default("nurse-1")
	sub.Departments = map[string]bool{"icu": true}

	t.Run("MatchingDepartmentPasses", func(t *testing.T) {
		msg := testMessage(notification.TypeAdmission, notification.PriorityNormal)
		msg.Department = "icu"
		if !ShouldDeliver(msg, sub, now) {
			t.Error("matching department should pass")
		}
	})

	t.Run("OtherDepartmentRejected", func(t *testing.T) {
		msg := testMessage(notification.TypeAdmission, notification.PriorityNormal)
		msg.Department = "radiology"
		if ShouldDeliver(msg, sub, now) {
			t.Error("non-matching department must be rejected")
		}
	})

	t.Run("MissingDepartmentRejected", func(t *testing.T) {
		// Department filtering is an allow-list: a message without a
		// department does not pass through.
		msg := testMessage(notification.TypeAdmission, notification.PriorityNormal)
		if ShouldDeliver(msg, sub, now) {
			t.Error("department-less message must be rejected by a filtering subscriber")
		}
	})

	t.Run("NoFilterAcceptsAnyDepartment", func(t *testing.T) {
		open := subscription.Default("nurse-2")
		msg := testMessage(notification.TypeAdmission, notification.PriorityNormal)
		msg.Department = "radiology"
		if !ShouldDeliver(msg, open, now) {
			t.Error("empty department filter should accept all")
		}
	})
}

func TestShouldDeliverQuietHours(t *testing.T) {
	sub := subscription.Default("nurse-1")
	sub.QuietHours = &subscription.QuietHours{Start: 22 * 60, End: 6 * 60} // 22:00-06:00

	inside := time.Date(2026, 3, 10, 23, 30, 0, 0, time.UTC)
	insideAfterMidnight := time.Date(2026, 3, 11, 2, 0, 0, 0, time.UTC)
	outside := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	t.Run("NormalSuppressedInside", func(t *testing.T) {
		msg := testMessage(notification.TypeLabResult, notification.PriorityNormal)
		if ShouldDeliver(msg, sub, inside) {
			t.Error("normal priority must be suppressed inside quiet hours")
		}
		if ShouldDeliver(msg, sub, insideAfterMidnight) {
			t.Error("quiet hours window must wrap midnight")
		}
	})

	t.Run("CriticalBypassesQuietHours", func(t *testing.T) {
		msg := testMessage(notification.TypeVitalSignAlert, notification.PriorityCritical)
		if !ShouldDeliver(msg, sub, inside) {
			t.Error("critical priority must bypass quiet hours")
		}
	})

	t.Run("NormalPassesOutside", func(t *testing.T) {
		msg := testMessage(notification.TypeLabResult, notification.PriorityNormal)
		if !ShouldDeliver(msg, sub, outside) {
			t.Error("normal priority should pass outside quiet hours")
		}
	})

	t.Run("BoundaryIsHalfOpen", func(t *testing.T) {
		msg := testMessage(notification.TypeLabResult, notification.PriorityNormal)
		atStart := time.Date(2026, 3, 10, 22, 0, 0, 0, time.UTC)
		atEnd := time.Date(2026, 3, 11, 6, 0, 0, 0, time.UTC)
		if ShouldDeliver(msg, sub, atStart) {
			t.Error("window start is inclusive")
		}
		if !ShouldDeliver(msg, sub, atEnd) {
			t.Error("window end is exclusive")
		}
	})
}

func TestQuietHoursEmptyWindow(t *testing.T) {
	qh := subscription.QuietHours{Start: 480, End: 480}
	if qh.Contains(time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)) {
		t.Error("zero-length window must never contain any time")
	}
}
