package session

import "fmt"

type AuthErrorKind int

const (
	InvalidState AuthErrorKind = iota + 1
	ExchangeFailed
	TokenMismatch
)

func (k AuthErrorKind) String() string {
	switch k {
	case InvalidState:
		return "invalid state"
	case ExchangeFailed:
		return "exchange failed"
	case TokenMismatch:
		return "token mismatch"
	default:
		return "unknown"
	}
}

// AuthError is returned when a login cannot be completed. Message is safe to
// show to the client; Err carries the underlying cause, if any.
type AuthError struct {
	Kind    AuthErrorKind
	Message string
	Err     error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// Is matches any *AuthError of the same kind, so errors.Is(err, ErrTokenMismatch)
// holds whatever the message.
func (e *AuthError) Is(target error) bool {
	t, ok := target.(*AuthError)
	return ok && t.Kind == e.Kind
}

var (
	ErrInvalidState   = &AuthError{Kind: InvalidState, Message: "Invalid state parameter"}
	ErrExchangeFailed = &AuthError{Kind: ExchangeFailed, Message: "Failed to upgrade the authorization code"}
	ErrTokenMismatch  = &AuthError{Kind: TokenMismatch, Message: "Token does not match"}
)
