package handler

import (
	"context"
	"encoding/json"
	"html"
	"net/http"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/rozgar/job-board/internal/job"
	"github.com/rozgar/job-board/internal/middleware"
	"github.com/rozgar/job-board/internal/profile"
	"github.com/rozgar/job-board/internal/resume"
	"github.com/rozgar/job-board/internal/server"
	"github.com/rozgar/job-board/internal/user"
)

type userGetter interface {
	GetUser(ctx context.Context, email string) (user.User, error)
}

type userCreator interface {
	CreateUser(ctx context.Context, u *user.User) error
}

type userUpdater interface {
	MarkVerified(ctx context.Context, email string) error
	UpdatePassword(ctx context.Context, email, passwordHash string) error
	UpdateName(ctx context.Context, email, name string) error
}

type codeStore interface {
	SaveVerificationCode(ctx context.Context, code user.VerificationCode) error
	ClaimVerificationCode(ctx context.Context, email, purpose string) (user.VerificationCode, error)
	DeleteVerificationCode(ctx context.Context, email, purpose string) error
}

type userStore interface {
	userGetter
	userCreator
	userUpdater
	codeStore
}

type profileGetter interface {
	GetProfile(ctx context.Context, email string) (profile.Profile, error)
}

type profileSaver interface {
	SaveProfile(ctx context.Context, p *profile.Profile) error
}

type profileGetSaver interface {
	profileGetter
	profileSaver
}

type jobLister interface {
	Listings() []job.Listing
	BySlug(slug string) (job.Listing, bool)
}

// RegisterRoutes wires every API route onto svr.
func RegisterRoutes(svr server.Server, users userStore, profiles profileGetSaver, resumes resume.Store, jobs jobLister) {
	authed := func(h http.HandlerFunc) http.HandlerFunc {
		return middleware.UserAuthenticatedMiddleware(svr.SessionStore, svr.GetJWTSigningKey(), h)
	}
	verified := func(h http.HandlerFunc) http.HandlerFunc {
		return middleware.VerifiedUserMiddleware(svr.SessionStore, svr.GetJWTSigningKey(), h)
	}

	svr.RegisterRoute("/", IndexHandler(svr), []string{http.MethodGet})

	svr.RegisterRoute("/api/auth/register", RegisterHandler(svr, users, profiles), []string{http.MethodPost})
	svr.RegisterRoute("/api/auth/login", LoginHandler(svr, users), []string{http.MethodPost})
	svr.RegisterRoute("/api/auth/logout", LogoutHandler(svr), []string{http.MethodPost})
	svr.RegisterRoute("/api/auth/is-auth", authed(IsAuthHandler(svr, users)), []string{http.MethodGet})
	svr.RegisterRoute("/api/auth/send-verify-otp", authed(SendVerifyOTPHandler(svr, users)), []string{http.MethodPost})
	svr.RegisterRoute("/api/auth/verify-account", authed(VerifyAccountHandler(svr, users)), []string{http.MethodPost})
	svr.RegisterRoute("/api/auth/send-reset-otp", SendResetOTPHandler(svr, users), []string{http.MethodPost})
	svr.RegisterRoute("/api/auth/reset-password", ResetPasswordHandler(svr, users), []string{http.MethodPost})

	svr.RegisterRoute("/api/profile", verified(GetProfileHandler(svr, profiles)), []string{http.MethodGet})
	svr.RegisterRoute("/api/profile", verified(SaveProfileHandler(svr, profiles, users)), []string{http.MethodPost})
	svr.RegisterRoute("/api/profile/resume/{email}", verified(DownloadResumeHandler(svr, profiles, resumes)), []string{http.MethodGet})
	svr.RegisterRoute("/api/profile/resume/{email}", verified(UploadResumeHandler(svr, profiles, resumes)), []string{http.MethodPost})
	svr.RegisterRoute("/api/profile/{email}", verified(GetProfileByEmailHandler(svr, profiles)), []string{http.MethodGet})

	svr.RegisterRoute("/api/jobs", JobsHandler(svr, jobs), []string{http.MethodGet})
	svr.RegisterRoute("/api/jobs/feed.rss", JobsFeedHandler(svr, jobs), []string{http.MethodGet})
	svr.RegisterRoute("/api/jobs/{slug}", JobHandler(svr, jobs), []string{http.MethodGet})
}

func IndexHandler(svr server.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		svr.TEXT(w, http.StatusOK, "API Working")
	}
}

func storeCtx(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), server.StoreTimeout)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	return json.NewDecoder(r.Body).Decode(v)
}

var strictPolicy = bluemonday.StrictPolicy()

// sanitize strips all markup from s. Entities escaped by the policy are
// decoded again since the API returns plain text.
func sanitize(s string) string {
	return strings.TrimSpace(html.UnescapeString(strictPolicy.Sanitize(strings.TrimSpace(s))))
}

func claimsFrom(r *http.Request) *middleware.UserJWT {
	claims, _ := middleware.UserFromContext(r.Context())
	return claims
}

// issueToken signs a token for u and stores it in the session cookie.
func issueToken(w http.ResponseWriter, r *http.Request, svr server.Server, u user.User) (string, error) {
	cfg := svr.GetConfig()
	claims := middleware.NewUserJWT(u.ID, u.Email, string(u.Role), u.IsVerified, cfg.URLProtocol+cfg.SiteHost, time.Now())
	tk, err := middleware.SignUserJWT(claims, svr.GetJWTSigningKey())
	if err != nil {
		return "", err
	}
	if err := middleware.SetUserSession(w, r, svr.SessionStore, tk); err != nil {
		return "", err
	}
	return tk, nil
}
