package session

import (
	"context"
	"errors"
	"sync"

	"rentport/core/internal/rbac"
	"rentport/core/internal/result"
	"rentport/core/internal/store"
)

// State is the identity-resolution state machine.
type State int

const (
	StateUnresolved State = iota
	StateResolving
	StateAuthenticated
	StateAnonymous
)

// IdentityStore is the slice of the document store the manager
// needs for users/{id} records.
type IdentityStore interface {
	GetIdentity(ctx context.Context, id string) (store.Identity, error)
	UpsertIdentity(ctx context.Context, identity store.Identity) error
	UpdateIdentity(ctx context.Context, id string, patch store.IdentityPatch) error
}

// Manager owns the authenticated-identity lifecycle: sign-up, login,
// logout, and bootstrapping a profile record on first sign-in. It is
// explicitly constructed and passed to consumers; there is no
// ambient global session.
type Manager struct {
	provider   Provider
	identities IdentityStore

	mu           sync.Mutex
	ctx          context.Context
	state        State
	current      *store.Identity
	observers    map[int]func(*store.Identity)
	nextObserver int
	cancelWatch  func()
}

func NewManager(provider Provider, identities IdentityStore) *Manager {
	return &Manager{
		provider:   provider,
		identities: identities,
		state:      StateUnresolved,
		observers:  map[int]func(*store.Identity){},
	}
}

// Open attaches to the provider's session changes. ctx bounds the
// store lookups triggered by provider callbacks.
func (m *Manager) Open(ctx context.Context) {
	m.mu.Lock()
	m.ctx = ctx
	m.mu.Unlock()
	m.cancelWatch = m.provider.OnChange(m.handleChange)
}

// Close detaches from the provider. It does not sign the user out.
func (m *Manager) Close() {
	if m.cancelWatch != nil {
		m.cancelWatch()
	}
}

// OnSessionChange registers a handler invoked on every resolved
// session change: with the identity on sign-in, with nil on
// sign-out. The returned cancel deregisters it.
func (m *Manager) OnSessionChange(fn func(*store.Identity)) (cancel func()) {
	m.mu.Lock()
	id := m.nextObserver
	m.nextObserver++
	m.observers[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.observers, id)
		m.mu.Unlock()
	}
}

// Current returns the resolved identity, if any.
func (m *Manager) Current() (store.Identity, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return store.Identity{}, false
	}
	return *m.current, true
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// handleChange resolves a provider credential into an Identity. A
// credential without a users/{id} record gets a default tenant
// profile persisted before anyone is notified, so consumers are
// never blocked on a missing profile.
func (m *Manager) handleChange(cred *Credential) {
	m.mu.Lock()
	ctx := m.ctx
	m.mu.Unlock()
	if ctx == nil {
		ctx = context.Background()
	}

	if cred == nil {
		m.setSession(nil, StateAnonymous)
		return
	}

	m.mu.Lock()
	m.state = StateResolving
	m.mu.Unlock()

	identity, err := m.identities.GetIdentity(ctx, cred.UserID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		identity = defaultIdentity(cred)
		// Availability over fidelity: if the persist fails the
		// synthesized identity is still served from memory.
		_ = m.identities.UpsertIdentity(ctx, identity)
	case err != nil:
		// Lookup failed outright; same availability fallback,
		// without persisting over a record that may exist.
		identity = defaultIdentity(cred)
	}

	m.setSession(&identity, StateAuthenticated)
}

func defaultIdentity(cred *Credential) store.Identity {
	return store.Identity{
		ID:    cred.UserID,
		Email: cred.Email,
		Name:  "User",
		Role:  store.RoleTenant,
		Notifications: store.NotificationPrefs{
			Email: true,
			Push:  true,
			SMS:   false,
		},
	}
}

func (m *Manager) setSession(identity *store.Identity, state State) {
	m.mu.Lock()
	m.current = identity
	m.state = state
	m.mu.Unlock()
	m.notify(identity)
}

// SignUp creates a credential, persists the Identity record with
// default notification prefs, and returns the resolved identity.
func (m *Manager) SignUp(ctx context.Context, email, password, name, role string) (store.Identity, error) {
	cred, err := m.provider.CreateAccount(ctx, email, password)
	if err != nil {
		return store.Identity{}, result.Auth("sign up failed", err)
	}

	identity := store.Identity{
		ID:    cred.UserID,
		Email: email,
		Name:  name,
		Role:  string(rbac.Normalize(role)),
		Notifications: store.NotificationPrefs{
			Email: true,
			Push:  true,
			SMS:   false,
		},
	}
	if err := m.identities.UpsertIdentity(ctx, identity); err != nil {
		return store.Identity{}, result.Auth("create profile failed", err)
	}

	m.setSession(&identity, StateAuthenticated)
	return identity, nil
}

// LogIn authenticates. It does not return the identity; resolution
// is delivered through OnSessionChange.
func (m *Manager) LogIn(ctx context.Context, email, password string) error {
	if _, err := m.provider.SignIn(ctx, email, password); err != nil {
		return result.Auth("login failed", err)
	}
	return nil
}

// LogOut clears the provider session; observers fire with nil.
func (m *Manager) LogOut(ctx context.Context) error {
	if err := m.provider.SignOut(ctx); err != nil {
		return result.Auth("logout failed", err)
	}
	return nil
}

// UpdateProfile merges a partial update into the persisted Identity
// and mirrors it into the in-memory session.
func (m *Manager) UpdateProfile(ctx context.Context, patch store.IdentityPatch) error {
	m.mu.Lock()
	current := m.current
	m.mu.Unlock()
	if current == nil {
		return result.Auth("no authenticated identity", nil)
	}

	if err := m.identities.UpdateIdentity(ctx, current.ID, patch); err != nil {
		return result.Submission("profile update failed", err)
	}

	m.mu.Lock()
	applyPatch(m.current, patch)
	updated := *m.current
	m.mu.Unlock()

	m.notify(&updated)
	return nil
}

func (m *Manager) notify(identity *store.Identity) {
	m.mu.Lock()
	observers := make([]func(*store.Identity), 0, len(m.observers))
	for _, fn := range m.observers {
		observers = append(observers, fn)
	}
	m.mu.Unlock()
	for _, fn := range observers {
		fn(identity)
	}
}

func applyPatch(identity *store.Identity, patch store.IdentityPatch) {
	if patch.Name != nil {
		identity.Name = *patch.Name
	}
	if patch.Phone != nil {
		identity.Phone = *patch.Phone
	}
	if patch.Address != nil {
		identity.Address = *patch.Address
	}
	if patch.EmergencyContact != nil {
		identity.EmergencyContact = *patch.EmergencyContact
	}
	if patch.Notifications != nil {
		identity.Notifications = *patch.Notifications
	}
}
