package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"fsanano/item-catalog/internal/model"
)

// Identity is what a provider verified about the user behind a login.
type Identity struct {
	// Subject is the user id carried by the provider's ID token.
	Subject     string
	AccessToken string
	// TokenUserID and IssuedTo describe whom the access token was issued for
	// and to which client, as reported by the provider.
	TokenUserID string
	IssuedTo    string

	Name    string
	Email   string
	Picture string
}

// IdentityProvider exchanges one-time authorization codes for verified
// identities.
type IdentityProvider interface {
	Name() string
	ClientID() string
	Exchange(ctx context.Context, code string) (*Identity, error)
	Revoke(ctx context.Context, accessToken string) error
}

type UserStore interface {
	UpsertUser(ctx context.Context, name, email, picture string) (model.User, error)
}

type Manager struct {
	users     UserStore
	providers map[string]IdentityProvider
	timeout   time.Duration
	logger    *zap.Logger
}

func NewManager(users UserStore, logger *zap.Logger, timeout time.Duration, providers ...IdentityProvider) *Manager {
	m := &Manager{
		users:     users,
		providers: make(map[string]IdentityProvider, len(providers)),
		timeout:   timeout,
		logger:    logger,
	}
	for _, p := range providers {
		m.providers[p.Name()] = p
	}
	return m
}

func (m *Manager) Provider(name string) (IdentityProvider, bool) {
	p, ok := m.providers[name]
	return p, ok
}

// BeginLogin issues a fresh anti-forgery token and records it on sess.
func (m *Manager) BeginLogin(sess *Session) string {
	sess.State = strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return sess.State
}

// CompleteLogin finishes the login started by BeginLogin. It returns the
// session to store and whether sess was already connected as the same
// identity, in which case sess is returned as is.
func (m *Manager) CompleteLogin(ctx context.Context, sess *Session, provider IdentityProvider, code, state string) (*Session, bool, error) {
	if sess.State == "" || state != sess.State {
		return nil, false, ErrInvalidState
	}

	id, err := m.exchange(ctx, provider, code)
	if err != nil {
		return nil, false, &AuthError{Kind: ExchangeFailed, Message: ErrExchangeFailed.Message, Err: err}
	}

	if id.TokenUserID != id.Subject {
		return nil, false, &AuthError{Kind: TokenMismatch, Message: "Token's user ID doesn't match given user ID"}
	}
	if id.IssuedTo != provider.ClientID() {
		return nil, false, &AuthError{Kind: TokenMismatch, Message: "Token's client ID does not match app's"}
	}

	if sess.AccessToken != "" && sess.Provider == provider.Name() && sess.Subject == id.Subject {
		return sess, true, nil
	}

	user, err := m.users.UpsertUser(ctx, id.Name, id.Email, id.Picture)
	if err != nil {
		return nil, false, fmt.Errorf("failed to resolve user: %w", err)
	}

	m.logger.Info("user logged in",
		zap.Int64("user_id", user.ID),
		zap.String("provider", provider.Name()),
	)

	return &Session{
		Provider:    provider.Name(),
		Subject:     id.Subject,
		AccessToken: id.AccessToken,
		UserID:      user.ID,
		Username:    user.Name,
		Email:       user.Email,
		Picture:     user.Picture,
		Flash:       fmt.Sprintf("You are now logged in as %s", user.Name),
	}, false, nil
}

func (m *Manager) exchange(ctx context.Context, provider IdentityProvider, code string) (*Identity, error) {
	if code == "" {
		return nil, errors.New("authorization code is empty")
	}

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	id, err := provider.Exchange(ctx, code)
	if err != nil {
		return nil, err
	}
	if id.Email == "" {
		return nil, errors.New("provider returned no email")
	}
	return id, nil
}

// EndSession revokes the access token at the provider and returns the
// anonymous session that replaces sess. Revocation is best effort.
func (m *Manager) EndSession(ctx context.Context, sess *Session) *Session {
	if sess.AccessToken == "" {
		return &Session{}
	}

	p, ok := m.providers[sess.Provider]
	if !ok {
		m.logger.Warn("unknown provider on logout", zap.String("provider", sess.Provider))
		return &Session{}
	}

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	if err := p.Revoke(ctx, sess.AccessToken); err != nil {
		m.logger.Warn("failed to revoke access token",
			zap.Int64("user_id", sess.UserID),
			zap.String("provider", sess.Provider),
			zap.Error(err),
		)
	}

	return &Session{}
}
