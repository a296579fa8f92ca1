// internal/broker/subscriptions.go
package broker

import (
	"sync"
	"time"

	"wardpulse-service/internal/domain/subscription"
)

// SubscriptionRegistry holds one subscription per identity. Reads return
// deep copies so callers never alias registry state. Identities without a
// stored subscription get the documented default.
type SubscriptionRegistry struct {
	mu   sync.RWMutex
	subs map[string]*subscription.Subscription
}

func NewSubscriptionRegistry() *SubscriptionRegistry {
	return &SubscriptionRegistry{
		subs: make(map[string]*subscription.Subscription),
	}
}

// Get returns the identity's subscription, or the default if none exists.
func (r *SubscriptionRegistry) Get(identity string) *subscription.Subscription {
	r.mu.RLock()
	stored, ok := r.subs[identity]
	r.mu.RUnlock()

	if !ok {
		return subscription.Default(identity)
	}
	return stored.Clone()
}

// Upsert merges the partial update into the existing (or default)
// subscription and stores the result. Last write wins; there is no
// full-replace path, so untouched fields survive.
func (r *SubscriptionRegistry) Upsert(identity string, req *subscription.UpdateRequest) *subscription.Subscription {
	r.mu.Lock()
	defer r.mu.Unlock()

	base, ok := r.subs[identity]
	if !ok {
		base = subscription.Default(identity)
	} else {
		base = base.Clone()
	}

	req.ApplyTo(base)
	base.UpdatedAt = time.Now()
	r.subs[identity] = base
	return base.Clone()
}
