package session

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestManager(t *testing.T) (*Manager, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewManager(client), mr
}

func seedSession(t *testing.T, mr *miniredis.Miniredis, identity, jti string, data SessionData) {
	t.Helper()
	raw, err := json.Marshal(&data)
	if err != nil {
		t.Fatalf("marshal session: %v", err)
	}
	mr.Set("session:"+identity+":"+jti, string(raw))
}

func TestGetSession(t *testing.T) {
	m, mr := newTestManager(t)
	ctx := context.Background()

	t.Run("Found", func(t *testing.T) {
		seedSession(t, mr, "nurse-1", "jti-1", SessionData{
			JTI:      "jti-1",
			Identity: "nurse-1",
			Device:   "web",
		})

		got, err := m.GetSession(ctx, "nurse-1", "jti-1")
		if err != nil {
			t.Fatalf("get session: %v", err)
		}
		if got.Identity != "nurse-1" || got.Device != "web" {
			t.Errorf("session = %+v", got)
		}
	})

	t.Run("Missing", func(t *testing.T) {
		if _, err := m.GetSession(ctx, "nurse-1", "no-such-jti"); err == nil {
			t.Error("missing session must return an error")
		}
	})

	t.Run("Corrupt", func(t *testing.T) {
		mr.Set("session:nurse-1:bad", "{not json")
		if _, err := m.GetSession(ctx, "nurse-1", "bad"); err == nil {
			t.Error("corrupt session payload must return an error")
		}
	})
}

func TestIsTokenBlacklisted(t *testing.T) {
	m, mr := newTestManager(t)
	ctx := context.Background()

	blacklisted, err := m.IsTokenBlacklisted(ctx, "jti-1")
	if err != nil {
		t.Fatalf("blacklist lookup: %v", err)
	}
	if blacklisted {
		t.Error("unknown jti must not be blacklisted")
	}

	mr.Set("blacklist:jti-1", "1")
	blacklisted, err = m.IsTokenBlacklisted(ctx, "jti-1")
	if err != nil {
		t.Fatalf("blacklist lookup: %v", err)
	}
	if !blacklisted {
		t.Error("revoked jti must be blacklisted")
	}
}

func TestTouchSession(t *testing.T) {
	m, mr := newTestManager(t)
	ctx := context.Background()

	t.Run("UpdatesActivity", func(t *testing.T) {
		old := time.Now().Add(-time.Hour)
		seedSession(t, mr, "nurse-1", "jti-1", SessionData{
			JTI:            "jti-1",
			Identity:       "nurse-1",
			LastActivityAt: old,
			ExpiresAt:      time.Now().Add(time.Hour),
		})

		if err := m.TouchSession(ctx, "nurse-1", "jti-1"); err != nil {
			t.Fatalf("touch: %v", err)
		}

		got, err := m.GetSession(ctx, "nurse-1", "jti-1")
		if err != nil {
			t.Fatalf("get session: %v", err)
		}
		if !got.LastActivityAt.After(old) {
			t.Error("touch must advance last activity")
		}
	})

	t.Run("MissingIsNoOp", func(t *testing.T) {
		if err := m.TouchSession(ctx, "nurse-1", "gone"); err != nil {
			t.Errorf("touching a missing session must not error: %v", err)
		}
	})

	t.Run("ExpiredIsNoOp", func(t *testing.T) {
		seedSession(t, mr, "nurse-1", "jti-old", SessionData{
			JTI:       "jti-old",
			Identity:  "nurse-1",
			ExpiresAt: time.Now().Add(-time.Minute),
		})
		if err := m.TouchSession(ctx, "nurse-1", "jti-old"); err != nil {
			t.Errorf("touching an expired session must not error: %v", err)
		}
	})
}
