package session

import (
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	CookieName = "catalog_session"
	defaultTTL = 24 * time.Hour
)

type cookieClaims struct {
	Session Session `json:"session"`
	jwt.RegisteredClaims
}

// Store keeps the whole Session in a signed cookie, so nothing about a
// session lives in process memory.
type Store struct {
	secret []byte
	secure bool
	ttl    time.Duration
	now    func() time.Time
}

func NewStore(secret string, secure bool) *Store {
	return &Store{
		secret: []byte(secret),
		secure: secure,
		ttl:    defaultTTL,
		now:    time.Now,
	}
}

func (s *Store) Encode(sess *Session) (string, error) {
	now := s.now()
	claims := cookieClaims{
		Session: *sess,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session: %w", err)
	}
	return signed, nil
}

func (s *Store) Decode(value string) (*Session, error) {
	var claims cookieClaims
	_, err := jwt.ParseWithClaims(value, &claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, fmt.Errorf("invalid session cookie: %w", err)
	}

	sess := claims.Session
	return &sess, nil
}

// Load reads the session from the request. Missing, tampered and expired
// cookies all yield an anonymous session.
func (s *Store) Load(r *http.Request) *Session {
	c, err := r.Cookie(CookieName)
	if err != nil {
		return &Session{}
	}

	sess, err := s.Decode(c.Value)
	if err != nil {
		return &Session{}
	}
	return sess
}

// Save writes sess as the response cookie. An empty session removes the
// cookie.
func (s *Store) Save(w http.ResponseWriter, sess *Session) error {
	if sess.IsZero() {
		http.SetCookie(w, s.cookie("", -1))
		return nil
	}

	value, err := s.Encode(sess)
	if err != nil {
		return err
	}

	http.SetCookie(w, s.cookie(value, int(s.ttl.Seconds())))
	return nil
}

func (s *Store) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   maxAge,
	}
}

// Middleware attaches the decoded session to the request context.
func (s *Store) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(NewContext(r.Context(), s.Load(r))))
	})
}
