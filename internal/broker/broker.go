// internal/broker/broker.go
package broker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"wardpulse-service/internal/domain/notification"
	"wardpulse-service/internal/domain/subscription"
	wstypes "wardpulse-service/internal/domain/websocket"
	xerrors "wardpulse-service/internal/pkg/errors"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

// History is the external persistence collaborator. Both calls are
// fire-and-forget from the broker's point of view: failures are logged,
// never propagated to publishers.
type History interface {
	SaveMessage(ctx context.Context, msg *notification.Message) error
	RecordDelivery(ctx context.Context, rec *notification.DeliveryRecord) error
}

// Config carries broker tunables. Zero values fall back to defaults.
type Config struct {
	QueueCap          int
	DispatchWorkers   int
	DispatchQueueSize int
	HistoryTimeout    time.Duration
	AckRetention      time.Duration
	PendingAckTTL     time.Duration
}

func (c Config) withDefaults() Config {
	if c.QueueCap <= 0 {
		c.QueueCap = DefaultQueueCap
	}
	if c.HistoryTimeout <= 0 {
		c.HistoryTimeout = 5 * time.Second
	}
	if c.AckRetention <= 0 {
		c.AckRetention = 10 * time.Minute
	}
	if c.PendingAckTTL <= 0 {
		c.PendingAckTTL = 24 * time.Hour
	}
	return c
}

// ackEntry is the broker-owned ack state for one requires-ack message.
// The state lives here, never on the Message, so published messages stay
// immutable and safe to marshal from any goroutine.
type ackEntry struct {
	msg   *notification.Message
	state notification.AckState
}

// Broker routes published messages to live connections, falls back to the
// offline queue, and triggers side-channel dispatch. Constructed once at
// process start and shut down explicitly; multiple independent brokers can
// coexist in one process.
type Broker struct {
	cfg        Config
	registry   *ConnectionRegistry
	subs       *SubscriptionRegistry
	queue      *OfflineQueue
	dispatcher *Dispatcher
	history    History
	logger     *zap.Logger

	// now is swappable for tests.
	now func() time.Time

	ackMu       sync.Mutex
	pendingAcks map[string]*ackEntry
}

func New(cfg Config, senders []ChannelSender, history History, logger *zap.Logger) *Broker {
	cfg = cfg.withDefaults()

	b := &Broker{
		cfg:         cfg,
		registry:    NewConnectionRegistry(),
		subs:        NewSubscriptionRegistry(),
		queue:       NewOfflineQueue(cfg.QueueCap),
		history:     history,
		logger:      logger,
		now:         time.Now,
		pendingAcks: make(map[string]*ackEntry),
	}
	b.dispatcher = NewDispatcher(senders, cfg.DispatchWorkers, cfg.DispatchQueueSize, b.recordDelivery, logger)
	// Registry timestamps follow the broker's clock.
	b.registry.now = func() time.Time { return b.now() }
	return b
}

// Publish delivers a single-target message. It returns the message id as
// soon as the live-transport attempt is decided; history persistence and
// side-channel dispatch complete in the background. Only genuinely invalid
// input produces an error; downstream delivery failures never do.
func (b *Broker) Publish(msg *notification.Message) (string, error) {
	if msg.TargetIdentity == "" {
		return "", xerrors.Wrap(xerrors.ErrInvalidInput, "message has no target identity")
	}
	if !msg.Type.IsValid() {
		return "", xerrors.Wrap(xerrors.ErrInvalidInput, fmt.Sprintf("unknown message type %q", msg.Type))
	}
	if msg.Priority == "" {
		msg.Priority = notification.PriorityNormal
	} else if !msg.Priority.IsValid() {
		return "", xerrors.Wrap(xerrors.ErrInvalidInput, fmt.Sprintf("unknown priority %q", msg.Priority))
	}

	now := b.now()
	if msg.ID == "" {
		msg.ID = ulid.Make().String()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = now
	}

	if msg.RequiresAck {
		b.ackMu.Lock()
		b.pendingAcks[msg.ID] = &ackEntry{msg: msg}
		b.ackMu.Unlock()
	}

	// History write never blocks or fails delivery.
	go b.persistMessage(msg)

	identity := msg.TargetIdentity
	sub := b.subs.Get(identity)
	accepted := ShouldDeliver(msg, sub, now)
	conns := b.registry.ConnectionsFor(identity)

	deliveredLive := false
	if accepted {
		deliveredLive = b.sendLive(conns, msg)
	}

	// Queue only when the identity was offline, not when the matcher
	// filtered the message out or a live send failed mid-flight.
	if accepted && !deliveredLive && len(conns) == 0 && sub.LiveEnabled() {
		b.queue.Enqueue(identity, msg)
		b.logger.Debug("message queued for offline identity",
			zap.String("message_id", msg.ID),
			zap.String("identity", identity),
		)
	}

	if accepted {
		for _, ch := range sub.SideChannels() {
			b.dispatcher.Dispatch(identity, ch, msg)
		}
	}

	return msg.ID, nil
}

// Broadcast resolves target identities from the criteria as a snapshot at
// call time, then publishes one message per identity. Identities that
// connect after resolution are not included.
func (b *Broker) Broadcast(template *notification.Message, criteria notification.BroadcastCriteria) []string {
	identities := b.resolveTargets(criteria)

	ids := make([]string, 0, len(identities))
	for _, identity := range identities {
		msg := *template
		msg.ID = ""
		msg.TargetIdentity = identity
		if msg.Payload != nil {
			payload := make(map[string]interface{}, len(template.Payload))
			for k, v := range template.Payload {
				payload[k] = v
			}
			msg.Payload = payload
		}

		id, err := b.Publish(&msg)
		if err != nil {
			b.logger.Warn("broadcast publish failed",
				zap.Error(err),
				zap.String("identity", identity),
			)
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

func (b *Broker) resolveTargets(criteria notification.BroadcastCriteria) []string {
	if len(criteria.Identities) > 0 {
		return criteria.Identities
	}
	if criteria.Department != "" || criteria.Role != "" {
		return b.registry.IdentitiesWhere(func(meta ConnMetadata) bool {
			if criteria.Department != "" && meta.Department != criteria.Department {
				return false
			}
			if criteria.Role != "" && meta.Role != criteria.Role {
				return false
			}
			return true
		})
	}
	return b.registry.AllIdentities()
}

// OnConnect registers a verified transport and replays the identity's
// offline queue over it. Queued messages are re-matched against the
// current subscription: a filter tightened since enqueue correctly drops
// them.
func (b *Broker) OnConnect(identity string, transport Transport, meta ConnMetadata) string {
	conn := b.registry.Register(identity, transport, meta)
	now := b.now()
	sub := b.subs.Get(identity)

	if frame, err := wstypes.NewFrame(wstypes.FrameTypeConnectionEstablished, map[string]interface{}{
		"connection_id": conn.ID,
		"subscription":  sub,
	}); err == nil {
		if err := conn.Send(frame); err != nil {
			b.logger.Warn("welcome frame send failed",
				zap.Error(err),
				zap.String("connection_id", conn.ID),
			)
		}
	}

	drained := b.queue.Drain(identity, now)
	for _, msg := range drained {
		if !ShouldDeliver(msg, sub, now) {
			continue
		}
		b.sendLive([]*Connection{conn}, msg)
	}

	b.logger.Info("connection registered",
		zap.String("connection_id", conn.ID),
		zap.String("identity", identity),
		zap.Int("replayed", len(drained)),
		zap.Int("total_connections", b.registry.ConnectionCount()),
	)
	return conn.ID
}

// OnDisconnect removes the connection. Safe to call for ids the sweeper
// already pruned.
func (b *Broker) OnDisconnect(connectionID string) {
	if b.registry.Unregister(connectionID) {
		b.logger.Info("connection unregistered",
			zap.String("connection_id", connectionID),
			zap.Int("total_connections", b.registry.ConnectionCount()),
		)
	}
}

// Heartbeat refreshes a connection's liveness.
func (b *Broker) Heartbeat(connectionID string) {
	b.registry.Touch(connectionID)
}

// Acknowledge marks a requires-ack message acknowledged. First caller
// wins; unknown ids and repeat calls return false.
func (b *Broker) Acknowledge(messageID, identity string) bool {
	b.ackMu.Lock()
	defer b.ackMu.Unlock()

	entry, ok := b.pendingAcks[messageID]
	if !ok || entry.state.Acknowledged {
		return false
	}

	now := b.now()
	entry.state = notification.AckState{Acknowledged: true, By: identity, At: &now}

	go b.recordDelivery(&notification.DeliveryRecord{
		MessageID:   messageID,
		Identity:    identity,
		Channel:     string(subscription.ChannelWebSocket),
		Status:      notification.StatusDelivered,
		AttemptedAt: now,
	})
	return true
}

// GetSubscription returns the identity's effective subscription.
func (b *Broker) GetSubscription(identity string) *subscription.Subscription {
	return b.subs.Get(identity)
}

// UpdateSubscription merges a partial update into the identity's
// subscription.
func (b *Broker) UpdateSubscription(identity string, req *subscription.UpdateRequest) *subscription.Subscription {
	updated := b.subs.Upsert(identity, req)
	b.logger.Info("subscription updated", zap.String("identity", identity))
	return updated
}

// PushUnreadCount sends an unread-count frame to every connection of the
// identity. Best effort.
func (b *Broker) PushUnreadCount(identity string, count int) {
	frame, err := wstypes.NewFrame(wstypes.FrameTypeUnreadCount, map[string]int{"unread_count": count})
	if err != nil {
		return
	}
	for _, conn := range b.registry.ConnectionsFor(identity) {
		if err := conn.Send(frame); err != nil {
			b.logger.Debug("unread count push failed",
				zap.Error(err),
				zap.String("connection_id", conn.ID),
			)
		}
	}
}

// Stats returns the broker's statistics readout.
func (b *Broker) Stats() notification.BrokerStats {
	return notification.BrokerStats{
		ConnectedIdentityCount: b.registry.IdentityCount(),
		ConnectionCount:        b.registry.ConnectionCount(),
		QueuedMessageCount:     b.queue.Len(),
	}
}

// Shutdown stops the dispatcher and closes every live connection.
func (b *Broker) Shutdown() {
	b.dispatcher.Stop()
	b.registry.CloseAll()
	b.logger.Info("broker shut down")
}

// sendLive attempts the notification frame on every given connection and
// reports whether at least one send succeeded. Per-connection failures
// are isolated and recorded.
func (b *Broker) sendLive(conns []*Connection, msg *notification.Message) bool {
	if len(conns) == 0 {
		return false
	}

	frame, err := wstypes.NewFrame(wstypes.FrameTypeNotification, msg)
	if err != nil {
		b.logger.Error("notification frame marshal failed",
			zap.Error(err),
			zap.String("message_id", msg.ID),
		)
		return false
	}

	delivered := false
	for _, conn := range conns {
		rec := &notification.DeliveryRecord{
			MessageID:   msg.ID,
			Identity:    conn.Identity,
			Channel:     string(subscription.ChannelWebSocket),
			AttemptedAt: b.now(),
		}
		if err := conn.Send(frame); err != nil {
			rec.Status = notification.StatusFailed
			rec.FailureReason = err.Error()
			b.logger.Warn("live send failed",
				zap.Error(err),
				zap.String("message_id", msg.ID),
				zap.String("connection_id", conn.ID),
			)
		} else {
			rec.Status = notification.StatusSent
			delivered = true
		}
		go b.recordDelivery(rec)
	}
	return delivered
}

func (b *Broker) persistMessage(msg *notification.Message) {
	if b.history == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), b.cfg.HistoryTimeout)
	defer cancel()

	if err := b.history.SaveMessage(ctx, msg); err != nil {
		b.logger.Error("history persist failed",
			zap.Error(err),
			zap.String("message_id", msg.ID),
			zap.String("identity", msg.TargetIdentity),
		)
	}
}

func (b *Broker) recordDelivery(rec *notification.DeliveryRecord) {
	if b.history == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), b.cfg.HistoryTimeout)
	defer cancel()

	if err := b.history.RecordDelivery(ctx, rec); err != nil {
		b.logger.Error("delivery record write failed",
			zap.Error(err),
			zap.String("message_id", rec.MessageID),
			zap.String("identity", rec.Identity),
			zap.String("channel", rec.Channel),
		)
	}
}

// pruneAcks drops acknowledged entries past retention and unacknowledged
// entries whose message expired or aged past the pending TTL, so a
// stream of never-acked messages cannot grow the table without bound.
// Called from the sweeper.
func (b *Broker) pruneAcks(now time.Time) {
	b.ackMu.Lock()
	defer b.ackMu.Unlock()

	for id, entry := range b.pendingAcks {
		if entry.state.Acknowledged {
			if now.Sub(*entry.state.At) > b.cfg.AckRetention {
				delete(b.pendingAcks, id)
			}
			continue
		}
		if entry.msg.Expired(now) || now.Sub(entry.msg.CreatedAt) > b.cfg.PendingAckTTL {
			delete(b.pendingAcks, id)
		}
	}
}
