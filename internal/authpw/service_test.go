package authpw

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"rentport/core/internal/session"
	"rentport/core/internal/store"
)

// mockCredentialStore is a map-backed CredentialStore for testing.
type mockCredentialStore struct {
	byEmail map[string]store.Credential
}

func newMockCredentialStore() *mockCredentialStore {
	return &mockCredentialStore{byEmail: make(map[string]store.Credential)}
}

func (m *mockCredentialStore) CreateCredential(ctx context.Context, cred store.Credential) error {
	m.byEmail[cred.Email] = cred
	return nil
}

func (m *mockCredentialStore) GetCredentialByEmail(ctx context.Context, email string) (store.Credential, error) {
	if cred, ok := m.byEmail[email]; ok {
		return cred, nil
	}
	return store.Credential{}, store.ErrNotFound
}

func newTestService(t *testing.T) (*Service, *mockCredentialStore) {
	t.Helper()
	mr := miniredis.RunT(t)
	sessions := session.NewRedisStoreWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	creds := newMockCredentialStore()
	return NewService(creds, sessions, "test-secret", time.Hour), creds
}

func TestCreateAccount(t *testing.T) {
	svc, creds := newTestService(t)
	ctx := context.Background()

	var observed []*session.Credential
	cancel := svc.OnChange(func(cred *session.Credential) {
		observed = append(observed, cred)
	})
	defer cancel()

	cred, err := svc.CreateAccount(ctx, "tenant@example.com", "correcthorse")
	if err != nil {
		t.Fatalf("CreateAccount failed: %v", err)
	}
	if cred.UserID == "" || cred.Token == "" {
		t.Fatalf("incomplete credential: %+v", cred)
	}

	record, ok := creds.byEmail["tenant@example.com"]
	if !ok {
		t.Fatal("credential record was not stored")
	}
	if record.PasswordHash == "correcthorse" {
		t.Error("password stored in the clear")
	}

	if len(observed) != 1 || observed[0] == nil || observed[0].UserID != cred.UserID {
		t.Errorf("observer calls = %v", observed)
	}
}

func TestCreateAccountValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.CreateAccount(ctx, "", "correcthorse"); !errors.Is(err, ErrMissingFields) {
		t.Errorf("empty email: got %v", err)
	}
	if _, err := svc.CreateAccount(ctx, "a@example.com", "short"); !errors.Is(err, ErrWeakPassword) {
		t.Errorf("short password: got %v", err)
	}

	if _, err := svc.CreateAccount(ctx, "a@example.com", "correcthorse"); err != nil {
		t.Fatalf("CreateAccount failed: %v", err)
	}
	if _, err := svc.CreateAccount(ctx, "a@example.com", "correcthorse"); !errors.Is(err, ErrEmailTaken) {
		t.Errorf("duplicate email: got %v", err)
	}
}

func TestSignIn(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.CreateAccount(ctx, "tenant@example.com", "correcthorse")
	if err != nil {
		t.Fatalf("CreateAccount failed: %v", err)
	}

	cred, err := svc.SignIn(ctx, "tenant@example.com", "correcthorse")
	if err != nil {
		t.Fatalf("SignIn failed: %v", err)
	}
	if cred.UserID != created.UserID {
		t.Errorf("UserID = %q, want %q", cred.UserID, created.UserID)
	}

	if _, err := svc.SignIn(ctx, "tenant@example.com", "wrongwrong"); !errors.Is(err, ErrInvalidLogin) {
		t.Errorf("wrong password: got %v", err)
	}
	if _, err := svc.SignIn(ctx, "nobody@example.com", "correcthorse"); !errors.Is(err, ErrInvalidLogin) {
		t.Errorf("unknown email: got %v", err)
	}
}

func TestSignOutRevokesSession(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	cred, err := svc.CreateAccount(ctx, "tenant@example.com", "correcthorse")
	if err != nil {
		t.Fatalf("CreateAccount failed: %v", err)
	}

	var last *session.Credential
	fired := false
	cancel := svc.OnChange(func(c *session.Credential) {
		last = c
		fired = true
	})
	defer cancel()

	if err := svc.SignOut(ctx); err != nil {
		t.Fatalf("SignOut failed: %v", err)
	}
	if !fired || last != nil {
		t.Errorf("observer saw fired=%v cred=%v, want nil credential", fired, last)
	}

	if _, err := svc.Resume(ctx, cred.Token); !errors.Is(err, ErrNoSession) {
		t.Errorf("resume after sign-out: got %v, want ErrNoSession", err)
	}
}

func TestResume(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.CreateAccount(ctx, "tenant@example.com", "correcthorse")
	if err != nil {
		t.Fatalf("CreateAccount failed: %v", err)
	}

	resumed, err := svc.Resume(ctx, created.Token)
	if err != nil {
		t.Fatalf("Resume failed: %v", err)
	}
	if resumed.UserID != created.UserID || resumed.Email != created.Email {
		t.Errorf("resumed = %+v, want %+v", resumed, created)
	}

	if _, err := svc.Resume(ctx, "not-a-token"); err == nil {
		t.Error("expected garbage token to fail")
	}
	if _, err := svc.Resume(ctx, ""); !errors.Is(err, ErrNoSession) {
		t.Errorf("empty token: got %v", err)
	}
}
