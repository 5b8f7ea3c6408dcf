package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	jwt "github.com/dgrijalva/jwt-go"
	"github.com/gorilla/sessions"
	"github.com/pkg/errors"
	"github.com/rozgar/job-board/internal/api"
)

const (
	SessionName = "rozgar_session"
	sessionKey  = "jwt"

	TokenValidity     = 7 * 24 * time.Hour
	TempTokenValidity = time.Hour
)

var ErrNoToken = errors.New("no token in request")

type UserJWT struct {
	UserID     string `json:"user_id"`
	Email      string `json:"email"`
	Role       string `json:"role"`
	IsVerified bool   `json:"is_verified"`
	// Pending is set on tokens issued before the email is verified.
	Pending bool `json:"pending"`
	jwt.StandardClaims
}

type ctxKey struct{}

// NewUserJWT builds the claims for a user. Unverified users get a short lived
// pending token.
func NewUserJWT(userID, email, role string, verified bool, issuer string, now time.Time) UserJWT {
	validity := TokenValidity
	if !verified {
		validity = TempTokenValidity
	}
	return UserJWT{
		UserID:     userID,
		Email:      email,
		Role:       role,
		IsVerified: verified,
		Pending:    !verified,
		StandardClaims: jwt.StandardClaims{
			ExpiresAt: now.Add(validity).UTC().Unix(),
			IssuedAt:  now.UTC().Unix(),
			Issuer:    issuer,
		},
	}
}

func SignUserJWT(claims UserJWT, key []byte) (string, error) {
	tkn := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	ss, err := tkn.SignedString(key)
	if err != nil {
		return "", errors.Wrap(err, "unable to sign jwt")
	}
	return ss, nil
}

func ParseUserJWT(tk string, key []byte) (*UserJWT, error) {
	token, err := jwt.ParseWithClaims(tk, &UserJWT{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return key, nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "invalid token")
	}
	if !token.Valid {
		return nil, errors.New("token is expired")
	}
	claims, ok := token.Claims.(*UserJWT)
	if !ok || claims.Email == "" {
		return nil, errors.New("could not convert jwt claims to UserJWT")
	}
	return claims, nil
}

// NewSessionStore returns the cookie store holding the identity token.
// Secure stores send the cookie cross-site, which the SPA on another origin
// needs.
func NewSessionStore(key []byte, secure bool) *sessions.CookieStore {
	store := sessions.NewCookieStore(key)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(TokenValidity.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	if secure {
		store.Options.SameSite = http.SameSiteNoneMode
	}
	return store
}

func SetUserSession(w http.ResponseWriter, r *http.Request, store *sessions.CookieStore, token string) error {
	// a stale cookie signed with an old key fails to decode, a fresh session
	// is returned alongside the error and is fine to overwrite
	sess, err := store.Get(r, SessionName)
	if sess == nil {
		return errors.Wrap(err, "unable to get session")
	}
	sess.Values[sessionKey] = token
	if err := sess.Save(r, w); err != nil {
		return errors.Wrap(err, "unable to save jwt into session cookie")
	}
	return nil
}

func ClearUserSession(w http.ResponseWriter, r *http.Request, store *sessions.CookieStore) error {
	sess, err := store.Get(r, SessionName)
	if sess == nil {
		return errors.Wrap(err, "unable to get session")
	}
	delete(sess.Values, sessionKey)
	opts := *store.Options
	opts.MaxAge = -1
	sess.Options = &opts
	return sess.Save(r, w)
}

func tokenFromRequest(r *http.Request, store *sessions.CookieStore) (string, error) {
	if h := r.Header.Get("Authorization"); h != "" {
		if tk := strings.TrimSpace(strings.TrimPrefix(h, "Bearer ")); tk != "" && tk != h {
			return tk, nil
		}
	}
	sess, err := store.Get(r, SessionName)
	if err != nil {
		return "", errors.Wrap(err, "could not find cookie")
	}
	tk, ok := sess.Values[sessionKey].(string)
	if !ok || tk == "" {
		return "", ErrNoToken
	}
	return tk, nil
}

// GetUserFromJWT reads the identity from a bearer token, falling back to the
// session cookie.
func GetUserFromJWT(r *http.Request, sessionStore *sessions.CookieStore, jwtKey []byte) (*UserJWT, error) {
	tk, err := tokenFromRequest(r, sessionStore)
	if err != nil {
		return nil, err
	}
	return ParseUserJWT(tk, jwtKey)
}

func WithUser(ctx context.Context, u *UserJWT) context.Context {
	return context.WithValue(ctx, ctxKey{}, u)
}

func UserFromContext(ctx context.Context) (*UserJWT, bool) {
	u, ok := ctx.Value(ctxKey{}).(*UserJWT)
	return u, ok && u != nil
}

func UserAuthenticatedMiddleware(sessionStore *sessions.CookieStore, jwtKey []byte, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, err := GetUserFromJWT(r, sessionStore, jwtKey)
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, api.Fail(api.MsgUnauthorized))
			return
		}
		next(w, r.WithContext(WithUser(r.Context(), claims)))
	}
}

// VerifiedUserMiddleware is UserAuthenticatedMiddleware that also rejects
// pending tokens.
func VerifiedUserMiddleware(sessionStore *sessions.CookieStore, jwtKey []byte, next http.HandlerFunc) http.HandlerFunc {
	return UserAuthenticatedMiddleware(sessionStore, jwtKey, func(w http.ResponseWriter, r *http.Request) {
		claims, _ := UserFromContext(r.Context())
		if !claims.IsVerified || claims.Pending {
			writeJSON(w, http.StatusForbidden, api.Fail(api.MsgNotVerified))
			return
		}
		next(w, r)
	})
}
