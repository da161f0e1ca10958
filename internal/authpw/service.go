// Package authpw provides email/password authentication backed by
// bcrypt credential records and revocable token sessions.
package authpw

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"rentport/core/internal/auth"
	"rentport/core/internal/session"
	"rentport/core/internal/store"
	"rentport/core/internal/util"
)

var (
	ErrEmailTaken    = errors.New("email already registered")
	ErrWeakPassword  = errors.New("password must be at least 8 characters")
	ErrMissingFields = errors.New("email and password are required")
	ErrInvalidLogin  = errors.New("invalid email or password")
	ErrNoSession     = errors.New("no active session")
)

// CredentialStore is the storage surface the provider needs.
type CredentialStore interface {
	CreateCredential(ctx context.Context, cred store.Credential) error
	GetCredentialByEmail(ctx context.Context, email string) (store.Credential, error)
}

// SessionStore persists issued sessions keyed by token hash so
// that sign-out revokes them server side.
type SessionStore interface {
	Save(ctx context.Context, tokenHash string, cred session.Credential, expiresAt time.Time) error
	Lookup(ctx context.Context, tokenHash string) (session.Credential, error)
	Revoke(ctx context.Context, tokenHash string) error
}

// Service implements session.Provider with email/password accounts.
type Service struct {
	creds       CredentialStore
	sessions    SessionStore
	tokenSecret []byte
	tokenTTL    time.Duration

	mu           sync.Mutex
	observers    map[int]func(*session.Credential)
	nextObserver int
	currentHash  string
}

func NewService(creds CredentialStore, sessions SessionStore, tokenSecret string, tokenTTL time.Duration) *Service {
	return &Service{
		creds:       creds,
		sessions:    sessions,
		tokenSecret: []byte(tokenSecret),
		tokenTTL:    tokenTTL,
		observers:   map[int]func(*session.Credential){},
	}
}

// CreateAccount registers a new credential and starts a session for it.
func (s *Service) CreateAccount(ctx context.Context, email, password string) (session.Credential, error) {
	if email == "" || password == "" {
		return session.Credential{}, ErrMissingFields
	}
	if len(password) < 8 {
		return session.Credential{}, ErrWeakPassword
	}

	if _, err := s.creds.GetCredentialByEmail(ctx, email); err == nil {
		return session.Credential{}, ErrEmailTaken
	} else if !errors.Is(err, store.ErrNotFound) {
		return session.Credential{}, fmt.Errorf("check email: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return session.Credential{}, fmt.Errorf("hash password: %w", err)
	}

	record := store.Credential{
		ID:           util.NewID("user"),
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.creds.CreateCredential(ctx, record); err != nil {
		return session.Credential{}, fmt.Errorf("create credential: %w", err)
	}

	return s.startSession(ctx, record)
}

// SignIn authenticates a credential and starts a session for it.
func (s *Service) SignIn(ctx context.Context, email, password string) (session.Credential, error) {
	if email == "" || password == "" {
		return session.Credential{}, ErrMissingFields
	}

	record, err := s.creds.GetCredentialByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return session.Credential{}, ErrInvalidLogin
		}
		return session.Credential{}, fmt.Errorf("look up credential: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(record.PasswordHash), []byte(password)); err != nil {
		return session.Credential{}, ErrInvalidLogin
	}

	return s.startSession(ctx, record)
}

// SignOut revokes the active session and notifies observers.
func (s *Service) SignOut(ctx context.Context) error {
	s.mu.Lock()
	hash := s.currentHash
	s.currentHash = ""
	s.mu.Unlock()

	if hash != "" {
		if err := s.sessions.Revoke(ctx, hash); err != nil {
			return fmt.Errorf("revoke session: %w", err)
		}
	}
	s.fire(nil)
	return nil
}

// Resume restores a session from a previously issued token, e.g.
// one the client kept across restarts. The token must still parse
// and its session must not have been revoked.
func (s *Service) Resume(ctx context.Context, token string) (session.Credential, error) {
	if token == "" {
		return session.Credential{}, ErrNoSession
	}
	if _, err := auth.ParseToken(s.tokenSecret, token); err != nil {
		return session.Credential{}, fmt.Errorf("parse token: %w", err)
	}

	hash := auth.HashToken(token)
	cred, err := s.sessions.Lookup(ctx, hash)
	if err != nil {
		return session.Credential{}, ErrNoSession
	}
	cred.Token = token

	s.mu.Lock()
	s.currentHash = hash
	s.mu.Unlock()
	s.fire(&cred)
	return cred, nil
}

// OnChange registers a session observer. Callbacks run synchronously
// on the goroutine that changed the session.
func (s *Service) OnChange(fn func(*session.Credential)) (cancel func()) {
	s.mu.Lock()
	id := s.nextObserver
	s.nextObserver++
	s.observers[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.observers, id)
		s.mu.Unlock()
	}
}

func (s *Service) startSession(ctx context.Context, record store.Credential) (session.Credential, error) {
	token, err := auth.IssueToken(s.tokenSecret, record.ID, record.DisplayName, record.Email, s.tokenTTL)
	if err != nil {
		return session.Credential{}, fmt.Errorf("issue token: %w", err)
	}

	cred := session.Credential{
		UserID: record.ID,
		Email:  record.Email,
		Token:  token,
	}
	hash := auth.HashToken(token)
	expiresAt := time.Now().Add(s.tokenTTL)
	if err := s.sessions.Save(ctx, hash, cred, expiresAt); err != nil {
		return session.Credential{}, fmt.Errorf("save session: %w", err)
	}

	s.mu.Lock()
	s.currentHash = hash
	s.mu.Unlock()
	s.fire(&cred)
	return cred, nil
}

func (s *Service) fire(cred *session.Credential) {
	s.mu.Lock()
	observers := make([]func(*session.Credential), 0, len(s.observers))
	for _, fn := range s.observers {
		observers = append(observers, fn)
	}
	s.mu.Unlock()
	for _, fn := range observers {
		fn(cred)
	}
}
