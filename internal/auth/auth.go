package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/sessions"

	"github.com/tahcohcat/rpglife/internal/clock"
)

const (
	sessionName   = "rpglife-session"
	sessionUserID = "user_id"
	tokenIssuer   = "rpglife"
	bearerPrefix  = "Bearer "
)

var (
	ErrUnauthenticated = errors.New("authentication required")
	ErrInvalidToken    = errors.New("invalid or expired token")
)

type userIDKey struct{}

// WithUserID stores the authenticated user on the context.
func WithUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, userIDKey{}, userID)
}

// UserID returns the authenticated user stored by the middleware.
func UserID(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(userIDKey{}).(int64)
	return id, ok
}

type Config struct {
	SessionSecret string
	JWTSecret     string
	TokenTTL      time.Duration
	SecureCookie  bool
}

// Manager authenticates requests by cookie session or bearer token.
type Manager struct {
	Store     *sessions.CookieStore
	jwtSecret []byte
	ttl       time.Duration
	clock     clock.Clock
}

func NewManager(cfg Config, clk clock.Clock) *Manager {
	if clk == nil {
		clk = clock.RealClock{}
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 24 * time.Hour
	}
	store := sessions.NewCookieStore([]byte(cfg.SessionSecret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(cfg.TokenTTL.Seconds()),
		HttpOnly: true,
		Secure:   cfg.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	}
	return &Manager{Store: store, jwtSecret: []byte(cfg.JWTSecret), ttl: cfg.TokenTTL, clock: clk}
}

// IssueToken signs an HS256 access token for the user.
func (m *Manager) IssueToken(userID int64) (string, time.Time, error) {
	now := m.clock.Now()
	expires := now.Add(m.ttl)
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(userID, 10),
		Issuer:    tokenIssuer,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expires),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.jwtSecret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, expires, nil
}

// ParseToken validates a token and returns its user id.
func (m *Manager) ParseToken(raw string) (int64, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		return m.jwtSecret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithTimeFunc(m.clock.Now),
	)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: bad subject", ErrInvalidToken)
	}
	return id, nil
}

// StartSession marks the cookie session as belonging to the user.
func (m *Manager) StartSession(w http.ResponseWriter, r *http.Request, userID int64) error {
	session, _ := m.Store.Get(r, sessionName)
	session.Values[sessionUserID] = userID
	return session.Save(r, w)
}

func (m *Manager) EndSession(w http.ResponseWriter, r *http.Request) error {
	session, _ := m.Store.Get(r, sessionName)
	delete(session.Values, sessionUserID)
	session.Options.MaxAge = -1
	return session.Save(r, w)
}

// Authenticate resolves the user from a bearer token first, then the session.
func (m *Manager) Authenticate(r *http.Request) (int64, error) {
	if h := r.Header.Get("Authorization"); h != "" {
		if !strings.HasPrefix(h, bearerPrefix) {
			return 0, ErrInvalidToken
		}
		return m.ParseToken(strings.TrimSpace(strings.TrimPrefix(h, bearerPrefix)))
	}

	session, err := m.Store.Get(r, sessionName)
	if err != nil {
		return 0, ErrUnauthenticated
	}
	if id, ok := session.Values[sessionUserID].(int64); ok && id > 0 {
		return id, nil
	}
	return 0, ErrUnauthenticated
}

// AuthMiddleware rejects unauthenticated requests with 401 and stores the
// user id on the request context otherwise.
func (m *Manager) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := m.Authenticate(r)
		if err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
	})
}
