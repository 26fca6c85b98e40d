package testutil

import (
	"context"
	"errors"
	"sync"

	"fsanano/item-catalog/internal/session"
)

// FakeProvider is an IdentityProvider that hands out canned identities keyed
// by authorization code.
type FakeProvider struct {
	ProviderName string
	Client       string

	mu         sync.Mutex
	identities map[string]session.Identity
	// ExchangeErr, when set, fails every exchange.
	ExchangeErr error
	// RevokeErr, when set, fails every revocation.
	RevokeErr error
	Revoked   []string
	// Block makes Exchange wait for the context to end.
	Block bool
}

func NewFakeProvider(name, clientID string) *FakeProvider {
	return &FakeProvider{
		ProviderName: name,
		Client:       clientID,
		identities:   map[string]session.Identity{},
	}
}

// AddIdentity registers a well-formed identity for code.
func (p *FakeProvider) AddIdentity(code, subject, name, email string) {
	p.Set(code, session.Identity{
		Subject:     subject,
		AccessToken: "token-" + code,
		TokenUserID: subject,
		IssuedTo:    p.Client,
		Name:        name,
		Email:       email,
		Picture:     "https://example.com/" + subject + ".png",
	})
}

func (p *FakeProvider) Set(code string, id session.Identity) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.identities[code] = id
}

func (p *FakeProvider) Name() string     { return p.ProviderName }
func (p *FakeProvider) ClientID() string { return p.Client }

func (p *FakeProvider) Exchange(ctx context.Context, code string) (*session.Identity, error) {
	if p.Block {
		<-ctx.Done()
		return nil, ctx.Err()
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ExchangeErr != nil {
		return nil, p.ExchangeErr
	}
	id, ok := p.identities[code]
	if !ok {
		return nil, errors.New("invalid_grant")
	}
	return &id, nil
}

func (p *FakeProvider) Revoke(_ context.Context, accessToken string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.Revoked = append(p.Revoked, accessToken)
	return p.RevokeErr
}

// RevokedTokens returns the tokens passed to Revoke so far.
func (p *FakeProvider) RevokedTokens() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.Revoked...)
}
