package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func setupTestRedis(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	s := miniredis.RunT(t)
	store, err := NewRedisStore("redis://" + s.Addr())
	if err != nil {
		t.Fatalf("failed to create redis store: %v", err)
	}
	return store, s
}

func TestSaveAndLookupSession(t *testing.T) {
	store, _ := setupTestRedis(t)
	defer store.Close()

	ctx := context.Background()
	cred := Credential{UserID: "user-123", Email: "tenant@example.com"}

	if err := store.Save(ctx, "token-hash", cred, time.Now().Add(24*time.Hour)); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := store.Lookup(ctx, "token-hash")
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if got.UserID != cred.UserID || got.Email != cred.Email {
		t.Errorf("lookup = %+v, want %+v", got, cred)
	}
}

func TestLookupExpiredSession(t *testing.T) {
	store, s := setupTestRedis(t)
	defer store.Close()

	ctx := context.Background()
	cred := Credential{UserID: "user-456"}
	if err := store.Save(ctx, "expiring", cred, time.Now().Add(time.Millisecond)); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	s.FastForward(2 * time.Millisecond)

	if _, err := store.Lookup(ctx, "expiring"); err == nil {
		t.Error("expected error for expired session, got nil")
	}
}

func TestLookupNonExistentSession(t *testing.T) {
	store, _ := setupTestRedis(t)
	defer store.Close()

	if _, err := store.Lookup(context.Background(), "missing"); err == nil {
		t.Error("expected error for missing session, got nil")
	}
}

func TestRevokeSession(t *testing.T) {
	store, _ := setupTestRedis(t)
	defer store.Close()

	ctx := context.Background()
	if err := store.Save(ctx, "revocable", Credential{UserID: "user-789"}, time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := store.Revoke(ctx, "revocable"); err != nil {
		t.Fatalf("Revoke failed: %v", err)
	}
	if _, err := store.Lookup(ctx, "revocable"); err == nil {
		t.Error("expected error for revoked session, got nil")
	}

	// Revoking again must not error.
	if err := store.Revoke(ctx, "revocable"); err != nil {
		t.Errorf("second Revoke failed: %v", err)
	}
}
