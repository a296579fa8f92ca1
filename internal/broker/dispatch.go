// internal/broker/dispatch.go
package broker

import (
	"context"
	"time"

	"wardpulse-service/internal/domain/notification"
	"wardpulse-service/internal/domain/subscription"

	"go.uber.org/zap"
)

// ChannelSender delivers a message over one side channel (email, SMS,
// push). Implementations resolve the identity's contact details
// themselves; retries, if any, are theirs too. The dispatcher attempts
// each task exactly once.
type ChannelSender interface {
	Channel() subscription.Channel
	Send(ctx context.Context, identity string, msg *notification.Message) error
}

type dispatchTask struct {
	identity string
	channel  subscription.Channel
	msg      *notification.Message
}

// Dispatcher fans side-channel sends out to a fixed worker pool. Dispatch
// never blocks the publish path: when the task queue is full the task is
// dropped and logged. Per-task failures are logged and isolated.
type Dispatcher struct {
	senders map[subscription.Channel]ChannelSender
	tasks   chan dispatchTask
	done    chan struct{}
	record  func(rec *notification.DeliveryRecord)
	timeout time.Duration
	logger  *zap.Logger
}

// NewDispatcher builds a dispatcher over the given senders. record is
// invoked with the outcome of every attempt; it must not block.
func NewDispatcher(senders []ChannelSender, workers, queueSize int, record func(*notification.DeliveryRecord), logger *zap.Logger) *Dispatcher {
	if workers <= 0 {
		workers = 4
	}
	if queueSize <= 0 {
		queueSize = 256
	}

	byChannel := make(map[subscription.Channel]ChannelSender, len(senders))
	for _, s := range senders {
		byChannel[s.Channel()] = s
	}

	d := &Dispatcher{
		senders: byChannel,
		tasks:   make(chan dispatchTask, queueSize),
		done:    make(chan struct{}),
		record:  record,
		timeout: 10 * time.Second,
		logger:  logger,
	}
	for i := 0; i < workers; i++ {
		go d.worker()
	}
	return d
}

// Dispatch enqueues a fire-and-forget send. Unconfigured channels are
// skipped silently; a full queue drops the task with a log line.
func (d *Dispatcher) Dispatch(identity string, channel subscription.Channel, msg *notification.Message) {
	if _, ok := d.senders[channel]; !ok {
		return
	}

	select {
	case d.tasks <- dispatchTask{identity: identity, channel: channel, msg: msg}:
	case <-d.done:
	default:
		d.logger.Warn("dispatch queue full, dropping task",
			zap.String("message_id", msg.ID),
			zap.String("identity", identity),
			zap.String("channel", string(channel)),
		)
	}
}

// Stop drains no further tasks and releases the workers.
func (d *Dispatcher) Stop() {
	close(d.done)
}

func (d *Dispatcher) worker() {
	for {
		select {
		case <-d.done:
			return
		case task := <-d.tasks:
			d.run(task)
		}
	}
}

func (d *Dispatcher) run(task dispatchTask) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("channel sender panicked",
				zap.Any("panic", r),
				zap.String("message_id", task.msg.ID),
				zap.String("channel", string(task.channel)),
			)
		}
	}()

	sender := d.senders[task.channel]
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	rec := &notification.DeliveryRecord{
		MessageID:   task.msg.ID,
		Identity:    task.identity,
		Channel:     string(task.channel),
		AttemptedAt: time.Now(),
	}

	if err := sender.Send(ctx, task.identity, task.msg); err != nil {
		rec.Status = notification.StatusFailed
		rec.FailureReason = err.Error()
		d.logger.Warn("side-channel send failed",
			zap.Error(err),
			zap.String("message_id", task.msg.ID),
			zap.String("identity", task.identity),
			zap.String("channel", string(task.channel)),
		)
	} else {
		rec.Status = notification.StatusSent
	}

	if d.record != nil {
		d.record(rec)
	}
}
