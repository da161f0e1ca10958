package session

import (
	"context"
	"errors"
	"sync"
	"testing"

	"rentport/core/internal/result"
	"rentport/core/internal/store"
)

type fakeProvider struct {
	mu        sync.Mutex
	accounts  map[string]string // email -> password
	observers []func(*Credential)
	nextID    int

	createAccountErr error
	signInErr        error
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{accounts: map[string]string{}}
}

func (p *fakeProvider) fire(cred *Credential) {
	p.mu.Lock()
	observers := append([]func(*Credential){}, p.observers...)
	p.mu.Unlock()
	for _, fn := range observers {
		fn(cred)
	}
}

func (p *fakeProvider) CreateAccount(_ context.Context, email, password string) (Credential, error) {
	if p.createAccountErr != nil {
		return Credential{}, p.createAccountErr
	}
	p.mu.Lock()
	if _, exists := p.accounts[email]; exists {
		p.mu.Unlock()
		return Credential{}, errors.New("email already registered")
	}
	p.accounts[email] = password
	p.nextID++
	cred := Credential{UserID: "user-" + email, Email: email}
	p.mu.Unlock()
	p.fire(&cred)
	return cred, nil
}

func (p *fakeProvider) SignIn(_ context.Context, email, password string) (Credential, error) {
	if p.signInErr != nil {
		return Credential{}, p.signInErr
	}
	p.mu.Lock()
	stored, ok := p.accounts[email]
	p.mu.Unlock()
	if !ok || stored != password {
		return Credential{}, errors.New("invalid email or password")
	}
	cred := Credential{UserID: "user-" + email, Email: email}
	p.fire(&cred)
	return cred, nil
}

func (p *fakeProvider) SignOut(context.Context) error {
	p.fire(nil)
	return nil
}

func (p *fakeProvider) OnChange(fn func(*Credential)) func() {
	p.mu.Lock()
	p.observers = append(p.observers, fn)
	p.mu.Unlock()
	return func() {}
}

type fakeIdentityStore struct {
	mu         sync.Mutex
	identities map[string]store.Identity
	getErr     error
}

func newFakeIdentityStore() *fakeIdentityStore {
	return &fakeIdentityStore{identities: map[string]store.Identity{}}
}

func (s *fakeIdentityStore) GetIdentity(_ context.Context, id string) (store.Identity, error) {
	if s.getErr != nil {
		return store.Identity{}, s.getErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	identity, ok := s.identities[id]
	if !ok {
		return store.Identity{}, store.ErrNotFound
	}
	return identity, nil
}

func (s *fakeIdentityStore) UpsertIdentity(_ context.Context, identity store.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.identities[identity.ID] = identity
	return nil
}

func (s *fakeIdentityStore) UpdateIdentity(_ context.Context, id string, patch store.IdentityPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	identity, ok := s.identities[id]
	if !ok {
		return store.ErrNotFound
	}
	applyPatch(&identity, patch)
	s.identities[id] = identity
	return nil
}

func newTestManager(t *testing.T) (*Manager, *fakeProvider, *fakeIdentityStore) {
	t.Helper()
	provider := newFakeProvider()
	identities := newFakeIdentityStore()
	m := NewManager(provider, identities)
	m.Open(context.Background())
	t.Cleanup(m.Close)
	return m, provider, identities
}

func TestSignUpPersistsIdentity(t *testing.T) {
	m, _, identities := newTestManager(t)

	identity, err := m.SignUp(context.Background(), "jane@example.com", "hunter2long", "Jane Landlord", "landlord")
	if err != nil {
		t.Fatalf("SignUp failed: %v", err)
	}
	if identity.Role != store.RoleLandlord {
		t.Errorf("role = %q, want landlord", identity.Role)
	}
	if !identity.Notifications.Email || !identity.Notifications.Push || identity.Notifications.SMS {
		t.Errorf("default prefs = %+v", identity.Notifications)
	}

	persisted, err := identities.GetIdentity(context.Background(), identity.ID)
	if err != nil {
		t.Fatalf("identity not persisted: %v", err)
	}
	if persisted.Name != "Jane Landlord" {
		t.Errorf("persisted name = %q", persisted.Name)
	}

	if state := m.State(); state != StateAuthenticated {
		t.Errorf("state = %v, want StateAuthenticated", state)
	}
}

func TestSignUpDuplicateEmail(t *testing.T) {
	m, _, _ := newTestManager(t)

	if _, err := m.SignUp(context.Background(), "dup@example.com", "hunter2long", "A", "tenant"); err != nil {
		t.Fatalf("first SignUp failed: %v", err)
	}
	_, err := m.SignUp(context.Background(), "dup@example.com", "hunter2long", "B", "tenant")
	if err == nil {
		t.Fatal("expected duplicate email to fail")
	}
	var resErr *result.Error
	if !errors.As(err, &resErr) || resErr.Code != result.CodeAuth {
		t.Fatalf("error = %v, want auth error", err)
	}
}

func TestBootstrapMissingProfile(t *testing.T) {
	m, provider, identities := newTestManager(t)

	var notified []*store.Identity
	persistedAtNotify := false
	cancel := m.OnSessionChange(func(identity *store.Identity) {
		notified = append(notified, identity)
		if identity != nil {
			_, err := identities.GetIdentity(context.Background(), identity.ID)
			persistedAtNotify = err == nil
		}
	})
	defer cancel()

	// A credential with no users/{id} record, e.g. a first-time
	// external sign-in.
	provider.fire(&Credential{UserID: "user-ext", Email: "ext@example.com"})

	if len(notified) != 1 || notified[0] == nil {
		t.Fatalf("expected one identity notification, got %v", notified)
	}
	if notified[0].Role != store.RoleTenant {
		t.Errorf("bootstrap role = %q, want tenant", notified[0].Role)
	}
	if !persistedAtNotify {
		t.Error("identity was not persisted before the callback fired")
	}
}

func TestBootstrapLookupErrorFallsBack(t *testing.T) {
	m, provider, identities := newTestManager(t)
	identities.getErr = errors.New("store unavailable")

	provider.fire(&Credential{UserID: "user-x", Email: "x@example.com"})

	current, ok := m.Current()
	if !ok {
		t.Fatal("expected a resolved identity despite store failure")
	}
	if current.Role != store.RoleTenant {
		t.Errorf("fallback role = %q, want tenant", current.Role)
	}
}

func TestLogInResolvesViaObserver(t *testing.T) {
	m, _, _ := newTestManager(t)

	if _, err := m.SignUp(context.Background(), "seed@example.com", "hunter2long", "Seed", "tenant"); err != nil {
		t.Fatalf("seed SignUp failed: %v", err)
	}
	if err := m.LogOut(context.Background()); err != nil {
		t.Fatalf("LogOut failed: %v", err)
	}
	if state := m.State(); state != StateAnonymous {
		t.Fatalf("state after logout = %v, want StateAnonymous", state)
	}

	if err := m.LogIn(context.Background(), "seed@example.com", "hunter2long"); err != nil {
		t.Fatalf("LogIn failed: %v", err)
	}
	current, ok := m.Current()
	if !ok || current.Email != "seed@example.com" {
		t.Fatalf("current = %+v ok=%v", current, ok)
	}
}

func TestLogInBadPassword(t *testing.T) {
	m, _, _ := newTestManager(t)
	if _, err := m.SignUp(context.Background(), "a@example.com", "hunter2long", "A", "tenant"); err != nil {
		t.Fatalf("SignUp failed: %v", err)
	}
	if err := m.LogIn(context.Background(), "a@example.com", "wrong"); err == nil {
		t.Fatal("expected bad password to fail")
	}
}

func TestUpdateProfileMirrorsCurrent(t *testing.T) {
	m, _, identities := newTestManager(t)
	if _, err := m.SignUp(context.Background(), "p@example.com", "hunter2long", "Pat", "tenant"); err != nil {
		t.Fatalf("SignUp failed: %v", err)
	}

	phone := "+1 555 0100"
	prefs := store.NotificationPrefs{Email: false, Push: true, SMS: true}
	if err := m.UpdateProfile(context.Background(), store.IdentityPatch{Phone: &phone, Notifications: &prefs}); err != nil {
		t.Fatalf("UpdateProfile failed: %v", err)
	}

	current, _ := m.Current()
	if current.Phone != phone {
		t.Errorf("in-memory phone = %q", current.Phone)
	}
	if current.Notifications != prefs {
		t.Errorf("in-memory prefs = %+v", current.Notifications)
	}
	persisted, _ := identities.GetIdentity(context.Background(), current.ID)
	if persisted.Phone != phone {
		t.Errorf("persisted phone = %q", persisted.Phone)
	}
	// Untouched fields survive the merge.
	if persisted.Name != "Pat" {
		t.Errorf("persisted name = %q, want Pat", persisted.Name)
	}
}

func TestUpdateProfileWithoutSession(t *testing.T) {
	m, _, _ := newTestManager(t)
	name := "Nobody"
	if err := m.UpdateProfile(context.Background(), store.IdentityPatch{Name: &name}); err == nil {
		t.Fatal("expected UpdateProfile without a session to fail")
	}
}
