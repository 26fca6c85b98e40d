package session

import "context"

// Session is the per-cookie login state. A zero Session is anonymous.
type Session struct {
	// State is the anti-forgery token of the pending login, if any.
	State string `json:"state,omitempty"`

	Provider    string `json:"provider,omitempty"`
	Subject     string `json:"provider_sub,omitempty"`
	AccessToken string `json:"access_token,omitempty"`

	UserID   int64  `json:"user_id,omitempty"`
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
	Picture  string `json:"picture,omitempty"`

	// Flash is shown once on the next rendered page.
	Flash string `json:"flash,omitempty"`
}

func (s *Session) IsAuthenticated() bool {
	return s != nil && s.UserID != 0
}

func (s *Session) IsZero() bool {
	return s == nil || *s == (Session{})
}

// PopFlash returns the pending flash message and clears it.
func (s *Session) PopFlash() string {
	msg := s.Flash
	s.Flash = ""
	return msg
}

type ctxKey struct{}

func NewContext(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromContext returns the request's session, or an anonymous one.
func FromContext(ctx context.Context) *Session {
	if s, ok := ctx.Value(ctxKey{}).(*Session); ok && s != nil {
		return s
	}
	return &Session{}
}
