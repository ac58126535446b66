package visitor

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// CookieName carries the signed visitor session token.
const CookieName = "quiz_session"

// Service issues and verifies visitor session tokens. A token only names a
// session; it grants nothing.
type Service struct {
	hmac []byte
	ttl  time.Duration
	now  func() time.Time
}

func NewService(secret string, ttl time.Duration) *Service {
	return &Service{hmac: []byte(secret), ttl: ttl, now: time.Now}
}

type Claims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

func (s *Service) Issue(sessionID string) (string, error) {
	now := s.now()
	claims := &Claims{
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "quiz",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(s.hmac)
}

func (s *Service) Parse(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return s.hmac, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, err
	}
	c, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || c.SessionID == "" {
		return nil, errors.New("invalid session token")
	}
	return c, nil
}

// Middleware makes sure every request carries a session ID in its context,
// minting a new one (and cookie) when the cookie is missing or invalid.
func Middleware(s *Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if c, err := r.Cookie(CookieName); err == nil {
				if claims, err := s.Parse(c.Value); err == nil {
					next.ServeHTTP(w, r.WithContext(WithSessionID(r.Context(), claims.SessionID)))
					return
				}
			}
			sid, err := s.Start(w)
			if err != nil {
				http.Error(w, "could not start session", http.StatusInternalServerError)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithSessionID(r.Context(), sid)))
		})
	}
}

// Start mints a fresh session ID and sets its cookie on w.
func (s *Service) Start(w http.ResponseWriter) (string, error) {
	sid := uuid.NewString()
	tok, err := s.Issue(sid)
	if err != nil {
		return "", err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    tok,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(s.ttl / time.Second),
	})
	return sid, nil
}

type ctxKey string

const ctxKeySID ctxKey = "sid"

func WithSessionID(ctx context.Context, sid string) context.Context {
	return context.WithValue(ctx, ctxKeySID, sid)
}

func SessionIDFromContext(ctx context.Context) string {
	if v := ctx.Value(ctxKeySID); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
