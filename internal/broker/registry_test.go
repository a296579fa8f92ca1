package broker

import (
	"sort"
	"sync"
	"testing"
	"time"

	wstypes "wardpulse-service/internal/domain/websocket"
)

type fakeTransport struct {
	mu     sync.Mutex
	frames []*wstypes.Frame
	closed bool
}

func (f *fakeTransport) Send(frame *wstypes.Frame) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frames = append(f.frames, frame)
	return nil
}

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeTransport) sentFrames() []*wstypes.Frame {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*wstypes.Frame, len(f.frames))
	copy(out, f.frames)
	return out
}

func (f *fakeTransport) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func TestRegistryRegisterAndLookup(t *testing.T) {
	r := NewConnectionRegistry()

	c1 := r.Register("nurse-1", &fakeTransport{}, ConnMetadata{Department: "icu"})
	c2 := r.Register("nurse-1", &fakeTransport{}, ConnMetadata{Department: "icu"})
	c3 := r.Register("doc-1", &fakeTransport{}, ConnMetadata{Department: "er", Role: "physician"})

	if c1.ID == c2.ID {
		t.Fatal("connection ids must be unique")
	}

	if got := len(r.ConnectionsFor("nurse-1")); got != 2 {
		t.Errorf("nurse-1 has %d connections, want 2", got)
	}
	if got := len(r.ConnectionsFor("doc-1")); got != 1 {
		t.Errorf("doc-1 has %d connections, want 1", got)
	}
	if got := len(r.ConnectionsFor("ghost")); got != 0 {
		t.Errorf("unknown identity has %d connections, want 0", got)
	}

	if r.ConnectionCount() != 3 {
		t.Errorf("connection count = %d, want 3", r.ConnectionCount())
	}
	if r.IdentityCount() != 2 {
		t.Errorf("identity count = %d, want 2", r.IdentityCount())
	}

	ids := r.AllIdentities()
	sort.Strings(ids)
	if len(ids) != 2 || ids[0] != "doc-1" || ids[1] != "nurse-1" {
		t.Errorf("identities = %v", ids)
	}

	erOnly := r.IdentitiesWhere(func(m ConnMetadata) bool { return m.Department == "er" })
	if len(erOnly) != 1 || erOnly[0] != "doc-1" {
		t.Errorf("er identities = %v, want [doc-1]", erOnly)
	}
	_ = c3
}

func TestRegistryUnregister(t *testing.T) {
	r := NewConnectionRegistry()
	ft := &fakeTransport{}
	conn := r.Register("nurse-1", ft, ConnMetadata{})

	if !r.Unregister(conn.ID) {
		t.Fatal("first unregister should report removal")
	}
	if !ft.isClosed() {
		t.Error("unregister must close the transport")
	}
	if r.Unregister(conn.ID) {
		t.Error("second unregister must be a no-op")
	}
	if r.IdentityCount() != 0 {
		t.Error("identity index must be cleaned up when its last connection goes")
	}
}

func TestRegistryTouchAndStaleness(t *testing.T) {
	r := NewConnectionRegistry()
	t0 := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return t0 }

	conn := r.Register("nurse-1", &fakeTransport{}, ConnMetadata{})
	if !conn.LastSeen().Equal(t0) {
		t.Errorf("last seen = %v at registration, want %v", conn.LastSeen(), t0)
	}

	t1 := t0.Add(time.Minute)
	r.now = func() time.Time { return t1 }
	r.Touch(conn.ID)
	if !conn.LastSeen().Equal(t1) {
		t.Error("touch must advance last-seen")
	}

	// Unknown ids are ignored.
	r.Touch("no-such-connection")

	if stale := r.StaleBefore(t1); len(stale) != 0 {
		t.Errorf("touched connection reported stale: %v", stale)
	}
	if stale := r.StaleBefore(t1.Add(time.Hour)); len(stale) != 1 {
		t.Errorf("got %d stale connections, want 1", len(stale))
	}
}

func TestRegistryConcurrentRegister(t *testing.T) {
	r := NewConnectionRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			conn := r.Register("nurse-1", &fakeTransport{}, ConnMetadata{})
			r.Touch(conn.ID)
		}()
	}
	wg.Wait()

	if r.ConnectionCount() != 50 {
		t.Errorf("connection count = %d, want 50", r.ConnectionCount())
	}
	if r.IdentityCount() != 1 {
		t.Errorf("identity count = %d, want 1", r.IdentityCount())
	}
}

func TestRegistryCloseAll(t *testing.T) {
	r := NewConnectionRegistry()
	transports := []*fakeTransport{{}, {}, {}}
	for _, ft := range transports {
		r.Register("nurse-1", ft, ConnMetadata{})
	}

	r.CloseAll()

	if r.ConnectionCount() != 0 {
		t.Error("close-all must empty the registry")
	}
	for i, ft := range transports {
		if !ft.isClosed() {
			t.Errorf("transport %d not closed", i)
		}
	}
}
