package broker

import (
	"testing"

	"wardpulse-service/internal/domain/notification"
	"wardpulse-service/internal/domain/subscription"
)

func TestSubscriptionRegistryDefault(t *testing.T) {
	r := NewSubscriptionRegistry()

	sub := r.Get("nurse-1")
	if len(sub.MessageTypes) != len(notification.AllMessageTypes()) {
		t.Errorf("default subscribes to %d types, want all %d",
			len(sub.MessageTypes), len(notification.AllMessageTypes()))
	}
	if !sub.LiveEnabled() {
		t.Error("default must enable live delivery")
	}
	if sub.EmailEnabled() || sub.SMSEnabled() || sub.PushEnabled() {
		t.Error("default must not enable side channels")
	}
	if sub.QuietHours != nil {
		t.Error("default must have no quiet hours")
	}
	if len(sub.Departments) != 0 {
		t.Error("default must not filter departments")
	}
}

func TestSubscriptionRegistryUpsertMerge(t *testing.T) {
	r := NewSubscriptionRegistry()

	types := []notification.MessageType{notification.TypeEmergency, notification.TypeLabResult}
	r.Upsert("nurse-1", &subscription.UpdateRequest{MessageTypes: &types})

	// A later update to channels must not disturb the type filter.
	channels := []subscription.Channel{subscription.ChannelWebSocket, subscription.ChannelEmail}
	updated := r.Upsert("nurse-1", &subscription.UpdateRequest{Channels: &channels})

	if len(updated.MessageTypes) != 2 {
		t.Errorf("type filter lost on merge, have %d types", len(updated.MessageTypes))
	}
	if !updated.EmailEnabled() {
		t.Error("email channel not applied")
	}

	got := r.Get("nurse-1")
	if !got.MessageTypes[notification.TypeEmergency] || got.MessageTypes[notification.TypeAdmission] {
		t.Error("stored type filter does not match the update")
	}
}

func TestSubscriptionRegistryQuietHours(t *testing.T) {
	r := NewSubscriptionRegistry()

	qh := subscription.QuietHours{Start: 22 * 60, End: 6 * 60}
	sub := r.Upsert("nurse-1", &subscription.UpdateRequest{QuietHours: &qh})
	if sub.QuietHours == nil || sub.QuietHours.Start != 22*60 {
		t.Fatal("quiet hours not stored")
	}

	sub = r.Upsert("nurse-1", &subscription.UpdateRequest{ClearQuiet: true})
	if sub.QuietHours != nil {
		t.Error("clear flag must remove quiet hours")
	}
}

func TestSubscriptionRegistryReadIsolation(t *testing.T) {
	r := NewSubscriptionRegistry()
	types := []notification.MessageType{notification.TypeEmergency}
	r.Upsert("nurse-1", &subscription.UpdateRequest{MessageTypes: &types})

	leaked := r.Get("nurse-1")
	leaked.MessageTypes[notification.TypeAdmission] = true
	leaked.Channels = append(leaked.Channels, subscription.ChannelSMS)

	fresh := r.Get("nurse-1")
	if fresh.MessageTypes[notification.TypeAdmission] {
		t.Error("mutating a returned subscription must not affect the registry")
	}
	if fresh.HasChannel(subscription.ChannelSMS) {
		t.Error("channel list must be copied on read")
	}
}

func TestUpdateRequestValidate(t *testing.T) {
	t.Run("UnknownType", func(t *testing.T) {
		bad := []notification.MessageType{"pager_duty"}
		req := &subscription.UpdateRequest{MessageTypes: &bad}
		if err := req.Validate(); err == nil {
			t.Error("unknown message type must fail validation")
		}
	})

	t.Run("UnknownChannel", func(t *testing.T) {
		bad := []subscription.Channel{"fax"}
		req := &subscription.UpdateRequest{Channels: &bad}
		if err := req.Validate(); err == nil {
			t.Error("unknown channel must fail validation")
		}
	})

	t.Run("QuietHoursOutOfRange", func(t *testing.T) {
		req := &subscription.UpdateRequest{QuietHours: &subscription.QuietHours{Start: 1500, End: 300}}
		if err := req.Validate(); err == nil {
			t.Error("minutes past 1439 must fail validation")
		}
	})
}
