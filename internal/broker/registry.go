// internal/broker/registry.go
package broker

import (
	"sync"
	"time"

	wstypes "wardpulse-service/internal/domain/websocket"

	"github.com/oklog/ulid/v2"
)

// Transport is the send capability of one live connection. Implementations
// must bound Send internally (buffered queue or write deadline) so a hung
// peer cannot block the broker.
type Transport interface {
	Send(frame *wstypes.Frame) error
	Close() error
}

// ConnMetadata describes the session behind a connection. Department and
// Role come from the verified identity and drive broadcast resolution.
type ConnMetadata struct {
	UserAgent  string `json:"user_agent,omitempty"`
	IPAddress  string `json:"ip_address,omitempty"`
	Platform   string `json:"platform,omitempty"`
	Department string `json:"department,omitempty"`
	Role       string `json:"role,omitempty"`
}

// Connection is one live transport session. The registry owns the transport
// handle for the connection's lifetime and closes it on unregister.
type Connection struct {
	ID        string
	Identity  string
	Metadata  ConnMetadata
	transport Transport

	mu       sync.Mutex
	lastSeen time.Time
}

// LastSeen returns the time of the most recent inbound activity.
func (c *Connection) LastSeen() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastSeen
}

func (c *Connection) touch(now time.Time) {
	c.mu.Lock()
	c.lastSeen = now
	c.mu.Unlock()
}

// Send forwards a frame over the connection's transport.
func (c *Connection) Send(frame *wstypes.Frame) error {
	return c.transport.Send(frame)
}

// ConnectionRegistry tracks live connections, keyed by connection id and
// indexed by identity. One identity may hold several connections at once.
// All methods are safe for concurrent use.
type ConnectionRegistry struct {
	mu         sync.RWMutex
	conns      map[string]*Connection
	byIdentity map[string]map[string]*Connection

	// now is swappable for tests; the broker points it at its own clock.
	now func() time.Time
}

func NewConnectionRegistry() *ConnectionRegistry {
	return &ConnectionRegistry{
		conns:      make(map[string]*Connection),
		byIdentity: make(map[string]map[string]*Connection),
		now:        time.Now,
	}
}

// Register creates a Connection for the transport and returns it. The
// registry takes ownership of the transport handle.
func (r *ConnectionRegistry) Register(identity string, transport Transport, meta ConnMetadata) *Connection {
	conn := &Connection{
		ID:        ulid.Make().String(),
		Identity:  identity,
		Metadata:  meta,
		transport: transport,
		lastSeen:  r.now(),
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.conns[conn.ID] = conn
	if r.byIdentity[identity] == nil {
		r.byIdentity[identity] = make(map[string]*Connection)
	}
	r.byIdentity[identity][conn.ID] = conn
	return conn
}

// Touch updates last-seen for a connection. Unknown ids are a silent no-op;
// touches race with the sweeper by design.
func (r *ConnectionRegistry) Touch(connectionID string) {
	r.mu.RLock()
	conn, ok := r.conns[connectionID]
	r.mu.RUnlock()
	if ok {
		conn.touch(r.now())
	}
}

// Unregister removes the connection and closes its transport. Idempotent:
// unknown ids return false with no side effects.
func (r *ConnectionRegistry) Unregister(connectionID string) bool {
	r.mu.Lock()
	conn, ok := r.conns[connectionID]
	if ok {
		delete(r.conns, connectionID)
		if set := r.byIdentity[conn.Identity]; set != nil {
			delete(set, connectionID)
			if len(set) == 0 {
				delete(r.byIdentity, conn.Identity)
			}
		}
	}
	r.mu.Unlock()

	if !ok {
		return false
	}
	// Close outside the lock; a slow close must not block other lookups.
	_ = conn.transport.Close()
	return true
}

// ConnectionsFor returns a snapshot of the identity's live connections.
// Empty means the identity is offline.
func (r *ConnectionRegistry) ConnectionsFor(identity string) []*Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set := r.byIdentity[identity]
	out := make([]*Connection, 0, len(set))
	for _, conn := range set {
		out = append(out, conn)
	}
	return out
}

// AllIdentities returns the distinct identities with at least one live
// connection, as a snapshot.
func (r *ConnectionRegistry) AllIdentities() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.byIdentity))
	for identity := range r.byIdentity {
		out = append(out, identity)
	}
	return out
}

// IdentitiesWhere returns identities having at least one connection whose
// metadata satisfies pred. Used for department/role broadcast resolution.
func (r *ConnectionRegistry) IdentitiesWhere(pred func(ConnMetadata) bool) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0)
	for identity, set := range r.byIdentity {
		for _, conn := range set {
			if pred(conn.Metadata) {
				out = append(out, identity)
				break
			}
		}
	}
	return out
}

// StaleBefore returns connections with no activity since cutoff.
func (r *ConnectionRegistry) StaleBefore(cutoff time.Time) []*Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*Connection
	for _, conn := range r.conns {
		if conn.LastSeen().Before(cutoff) {
			out = append(out, conn)
		}
	}
	return out
}

// ConnectionCount returns the number of live connections.
func (r *ConnectionRegistry) ConnectionCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// IdentityCount returns the number of distinct connected identities.
func (r *ConnectionRegistry) IdentityCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byIdentity)
}

// CloseAll unregisters every connection, closing each transport. Used on
// shutdown.
func (r *ConnectionRegistry) CloseAll() {
	r.mu.Lock()
	conns := make([]*Connection, 0, len(r.conns))
	for _, conn := range r.conns {
		conns = append(conns, conn)
	}
	r.conns = make(map[string]*Connection)
	r.byIdentity = make(map[string]map[string]*Connection)
	r.mu.Unlock()

	for _, conn := range conns {
		_ = conn.transport.Close()
	}
}
