package session

import "context"

// Credential is the provider-level authenticated principal. It says
// nothing about the user's profile; that lives in users/{id}.
type Credential struct {
	UserID string
	Email  string
	Token  string
}

// Provider is the authentication provider contract. OnChange
// callbacks receive the current credential, or nil when the session
// ended; the returned cancel deregisters the callback.
type Provider interface {
	CreateAccount(ctx context.Context, email, password string) (Credential, error)
	SignIn(ctx context.Context, email, password string) (Credential, error)
	SignOut(ctx context.Context) error
	OnChange(fn func(*Credential)) (cancel func())
}
