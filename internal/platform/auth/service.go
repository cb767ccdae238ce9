package auth

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"libdesk/internal/libapi"
	"libdesk/internal/platform/apierr"
	"libdesk/internal/platform/logging"
	"libdesk/internal/platform/validate"
)

// Authenticator checks credentials against the library backend.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (libapi.LoginResult, error)
}

// Session is the signed-in librarian. ID doubles as the token's jti.
type Session struct {
	ID        string    `json:"session_id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      string    `json:"role,omitempty"`
	MemberID  int64     `json:"member_id,omitempty"`
	ExpiresAt time.Time `json:"expires_at"`
}

type claims struct {
	Name     string `json:"name,omitempty"`
	Role     string `json:"role,omitempty"`
	MemberID int64  `json:"mid,omitempty"`
	jwt.RegisteredClaims
}

type Service struct {
	backend  Authenticator
	sessions SessionStore
	secret   []byte
	ttl      time.Duration
	now      func() time.Time
	validate *validator.Validate

	mu       sync.Mutex
	onLogout []func(sessionID string)
}

func NewService(backend Authenticator, sessions SessionStore, secret []byte, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = 8 * time.Hour
	}
	return &Service{
		backend:  backend,
		sessions: sessions,
		secret:   secret,
		ttl:      ttl,
		now:      time.Now,
		validate: validate.New(),
	}
}

// OnLogout registers fn to run after a session is revoked.
func (s *Service) OnLogout(fn func(sessionID string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onLogout = append(s.onLogout, fn)
}

// Login verifies credentials with the backend and returns a signed session token.
func (s *Service) Login(ctx context.Context, email, password string) (LoginResponse, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return LoginResponse{}, apierr.ErrInvalid("email and password are required")
	}
	// 形式チェックはバックエンドに送る前に済ませる
	if err := validate.Var(s.validate, "email", email, "email"); err != nil {
		return LoginResponse{}, err
	}

	res, err := s.backend.Login(ctx, email, password)
	if err != nil {
		return LoginResponse{}, apierr.ErrUpstream("login failed, try again", err)
	}
	if !res.OK {
		logging.FromContext(ctx).Info("login rejected", "email", email)
		return LoginResponse{}, apierr.ErrUnauthorized("invalid email or password")
	}

	now := s.now()
	sess := Session{
		ID:        uuid.NewString(),
		Email:     res.Email,
		Name:      res.Name,
		Role:      res.Role,
		MemberID:  res.MemberID,
		ExpiresAt: now.Add(s.ttl).Truncate(time.Second),
	}
	if sess.Email == "" {
		sess.Email = email
	}
	if sess.Name == "" {
		sess.Name = sess.Email
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Name:     sess.Name,
		Role:     sess.Role,
		MemberID: sess.MemberID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sess.ID,
			Subject:   sess.Email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(sess.ExpiresAt),
		},
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return LoginResponse{}, err
	}
	logging.FromContext(ctx).Info("login", "email", sess.Email, "session_id", sess.ID)
	return LoginResponse{Token: signed, Session: sess}, nil
}

// Verify parses a token and rejects revoked sessions.
func (s *Service) Verify(ctx context.Context, tokenStr string) (Session, error) {
	var c claims
	token, err := jwt.ParseWithClaims(tokenStr, &c, func(t *jwt.Token) (any, error) {
		// alg 固定
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now), jwt.WithExpirationRequired())
	if err != nil || token == nil || !token.Valid {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Session{}, apierr.ErrUnauthorized("session expired")
		}
		return Session{}, apierr.ErrUnauthorized("invalid token")
	}
	// jti と sub は必須
	if c.ID == "" || c.Subject == "" {
		return Session{}, apierr.ErrUnauthorized("invalid claims")
	}

	// ログアウト済みか
	revoked, err := s.sessions.IsRevoked(ctx, c.ID)
	if err != nil {
		return Session{}, apierr.ErrInternal("session check failed")
	}
	if revoked {
		return Session{}, apierr.ErrUnauthorized("session has been signed out")
	}

	return Session{
		ID:        c.ID,
		Email:     c.Subject,
		Name:      c.Name,
		Role:      c.Role,
		MemberID:  c.MemberID,
		ExpiresAt: c.ExpiresAt.Time,
	}, nil
}

// Logout revokes the session and notifies listeners.
func (s *Service) Logout(ctx context.Context, sess Session) error {
	if err := s.sessions.Revoke(ctx, sess.ID, sess.ExpiresAt); err != nil {
		return apierr.ErrInternal("logout failed")
	}
	s.mu.Lock()
	hooks := append([]func(string){}, s.onLogout...)
	s.mu.Unlock()
	for _, fn := range hooks {
		fn(sess.ID)
	}
	logging.FromContext(ctx).Info("logout", "email", sess.Email, "session_id", sess.ID)
	return nil
}
