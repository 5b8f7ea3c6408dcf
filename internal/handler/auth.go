package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rozgar/job-board/internal/api"
	"github.com/rozgar/job-board/internal/email"
	"github.com/rozgar/job-board/internal/middleware"
	"github.com/rozgar/job-board/internal/profile"
	"github.com/rozgar/job-board/internal/server"
	"github.com/rozgar/job-board/internal/template"
	"github.com/rozgar/job-board/internal/user"
)

// OTPResendWindow is the minimum time between two codes sent to the same
// email for the same purpose.
const OTPResendWindow = 60 * time.Second

func RegisterHandler(svr server.Server, users userCreator, profiles profileSaver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := &struct {
			Name     string `json:"name"`
			Email    string `json:"email"`
			Password string `json:"password"`
			Role     string `json:"role"`
		}{}
		if err := decodeJSON(w, r, req); err != nil {
			svr.JSON(w, http.StatusBadRequest, api.Fail(api.MsgMissingDetails))
			return
		}
		req.Name = sanitize(req.Name)
		req.Email = user.NormalizeEmail(req.Email)
		if req.Name == "" || req.Email == "" || req.Password == "" {
			svr.JSON(w, http.StatusBadRequest, api.Fail(api.MsgMissingDetails))
			return
		}
		if !svr.IsEmail(req.Email) {
			svr.JSON(w, http.StatusBadRequest, api.Fail(api.MsgInvalidEmail))
			return
		}
		role := user.Role(strings.ToLower(strings.TrimSpace(req.Role)))
		if role == "" {
			role = user.RoleSeeker
		}
		if !role.Valid() {
			svr.JSON(w, http.StatusBadRequest, api.Fail(api.MsgInvalidRole))
			return
		}
		hash, err := user.HashPassword(req.Password)
		if errors.Is(err, user.ErrPasswordTooShort) {
			svr.JSON(w, http.StatusBadRequest, api.Fail(api.MsgPasswordTooShort))
			return
		}
		if err != nil {
			svr.Log(err, "unable to hash password")
			svr.JSON(w, http.StatusInternalServerError, api.Fail(api.MsgInternalError))
			return
		}
		ctx, cancel := storeCtx(r)
		defer cancel()
		u := user.User{
			Name:     req.Name,
			Email:    req.Email,
			Password: hash,
			Role:     role,
		}
		err = users.CreateUser(ctx, &u)
		if errors.Is(err, user.ErrDuplicateEmail) {
			svr.JSON(w, http.StatusConflict, api.Fail(api.MsgUserExists))
			return
		}
		if err != nil {
			svr.Log(err, fmt.Sprintf("unable to create user %s", req.Email))
			svr.JSON(w, http.StatusInternalServerError, api.Fail(api.MsgInternalError))
			return
		}
		if err := profiles.SaveProfile(ctx, &profile.Profile{Email: u.Email, Name: u.Name}); err != nil {
			svr.Log(err, fmt.Sprintf("unable to create profile for %s", u.Email))
			svr.JSON(w, http.StatusInternalServerError, api.Fail(api.MsgInternalError))
			return
		}
		tk, err := issueToken(w, r, svr, u)
		if err != nil {
			svr.Log(err, "unable to issue temp token")
			svr.JSON(w, http.StatusInternalServerError, api.Fail(api.MsgInternalError))
			return
		}
		svr.JSON(w, http.StatusCreated, api.Response{Success: true, User: &u, TempToken: tk})
	}
}

func LoginHandler(svr server.Server, users userGetter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := &struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}{}
		if err := decodeJSON(w, r, req); err != nil {
			svr.JSON(w, http.StatusBadRequest, api.Fail(api.MsgMissingDetails))
			return
		}
		if strings.TrimSpace(req.Email) == "" || req.Password == "" {
			svr.JSON(w, http.StatusBadRequest, api.Fail(api.MsgMissingDetails))
			return
		}
		ctx, cancel := storeCtx(r)
		defer cancel()
		u, err := users.GetUser(ctx, req.Email)
		if errors.Is(err, user.ErrNotFound) {
			svr.JSON(w, http.StatusUnauthorized, api.Fail(api.MsgInvalidCredentials))
			return
		}
		if err != nil {
			svr.Log(err, "unable to get user for login")
			svr.JSON(w, http.StatusInternalServerError, api.Fail(api.MsgInternalError))
			return
		}
		if !user.CheckPassword(u.Password, req.Password) {
			svr.JSON(w, http.StatusUnauthorized, api.Fail(api.MsgInvalidCredentials))
			return
		}
		tk, err := issueToken(w, r, svr, u)
		if err != nil {
			svr.Log(err, "unable to issue token")
			svr.JSON(w, http.StatusInternalServerError, api.Fail(api.MsgInternalError))
			return
		}
		res := api.Response{Success: true, User: &u}
		if u.IsVerified {
			res.Token = tk
		} else {
			res.TempToken = tk
		}
		svr.JSON(w, http.StatusOK, res)
	}
}

func LogoutHandler(svr server.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := middleware.ClearUserSession(w, r, svr.SessionStore); err != nil {
			svr.Log(err, "unable to clear session cookie")
			svr.JSON(w, http.StatusInternalServerError, api.Fail(api.MsgInternalError))
			return
		}
		svr.JSON(w, http.StatusOK, api.OK(api.MsgLoggedOut))
	}
}

func IsAuthHandler(svr server.Server, users userGetter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := storeCtx(r)
		defer cancel()
		u, err := users.GetUser(ctx, claimsFrom(r).Email)
		if errors.Is(err, user.ErrNotFound) {
			svr.JSON(w, http.StatusUnauthorized, api.Fail(api.MsgUnauthorized))
			return
		}
		if err != nil {
			svr.Log(err, "unable to get user for is-auth")
			svr.JSON(w, http.StatusInternalServerError, api.Fail(api.MsgInternalError))
			return
		}
		svr.JSON(w, http.StatusOK, api.Response{Success: true, User: &u})
	}
}

type otpIssuer interface {
	userGetter
	SaveVerificationCode(ctx context.Context, code user.VerificationCode) error
}

// sendOTP stores a fresh code for u and emails it. The throttle key is
// released when sending fails so the user can retry straight away.
func sendOTP(r *http.Request, svr server.Server, codes otpIssuer, u user.User, purpose, view, subject string) error {
	otp, err := user.GenerateOTP()
	if err != nil {
		return err
	}
	code, err := user.NewVerificationCode(u.Email, purpose, otp, time.Now())
	if err != nil {
		return err
	}
	ctx, cancel := storeCtx(r)
	defer cancel()
	if err := codes.SaveVerificationCode(ctx, code); err != nil {
		return err
	}
	body, err := svr.RenderEmail(view, map[string]interface{}{
		"Name":     u.Name,
		"OTP":      otp,
		"Validity": user.OTPValidity,
	})
	if err != nil {
		return errors.Wrap(err, "unable to render otp email")
	}
	return svr.GetEmail().SendHTMLEmail(ctx, email.Address{Name: u.Name, Email: u.Email}, subject, body)
}

func throttleKey(purpose, email string) string {
	return "otp:" + purpose + ":" + email
}

func SendVerifyOTPHandler(svr server.Server, users otpIssuer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := storeCtx(r)
		defer cancel()
		u, err := users.GetUser(ctx, claimsFrom(r).Email)
		if errors.Is(err, user.ErrNotFound) {
			svr.JSON(w, http.StatusUnauthorized, api.Fail(api.MsgUnauthorized))
			return
		}
		if err != nil {
			svr.Log(err, "unable to get user for verify otp")
			svr.JSON(w, http.StatusInternalServerError, api.Fail(api.MsgInternalError))
			return
		}
		if u.IsVerified {
			svr.JSON(w, http.StatusBadRequest, api.Fail(api.MsgAlreadyVerified))
			return
		}
		key := throttleKey(user.PurposeVerify, u.Email)
		if svr.Throttled(key, OTPResendWindow) {
			svr.JSON(w, http.StatusTooManyRequests, api.Fail(api.MsgThrottled))
			return
		}
		subject := fmt.Sprintf("Verify your %s account", svr.GetConfig().SiteName)
		if err := sendOTP(r, svr, users, u, user.PurposeVerify, template.VerifyOTPEmail, subject); err != nil {
			svr.CacheDelete(key)
			svr.Log(err, fmt.Sprintf("unable to send verify otp to %s", u.Email))
			svr.JSON(w, http.StatusInternalServerError, api.Fail(api.MsgInternalError))
			return
		}
		svr.JSON(w, http.StatusOK, api.OK(api.MsgVerificationOTPSent))
	}
}

type otpChecker interface {
	ClaimVerificationCode(ctx context.Context, email, purpose string) (user.VerificationCode, error)
	DeleteVerificationCode(ctx context.Context, email, purpose string) error
}

// checkOTP validates otp for email and writes the failure response when it
// does not match. It reports whether the code was accepted.
func checkOTP(w http.ResponseWriter, r *http.Request, svr server.Server, codes otpChecker, email, purpose, otp string) bool {
	ctx, cancel := storeCtx(r)
	defer cancel()
	code, err := codes.ClaimVerificationCode(ctx, email, purpose)
	if errors.Is(err, user.ErrCodeNotFound) {
		svr.JSON(w, http.StatusBadRequest, api.Fail(api.MsgInvalidOTP))
		return false
	}
	if errors.Is(err, user.ErrTooManyAttempts) {
		svr.JSON(w, http.StatusTooManyRequests, api.Fail(api.MsgTooManyAttempts))
		return false
	}
	if err != nil {
		svr.Log(err, "unable to get verification code")
		svr.JSON(w, http.StatusInternalServerError, api.Fail(api.MsgInternalError))
		return false
	}
	switch err := code.Check(strings.TrimSpace(otp), time.Now()); {
	case err == nil:
		return true
	case errors.Is(err, user.ErrCodeExpired):
		svr.JSON(w, http.StatusBadRequest, api.Fail(api.MsgExpiredOTP))
	case errors.Is(err, user.ErrTooManyAttempts):
		svr.JSON(w, http.StatusTooManyRequests, api.Fail(api.MsgTooManyAttempts))
	default:
		svr.JSON(w, http.StatusBadRequest, api.Fail(api.MsgInvalidOTP))
	}
	return false
}

type accountVerifier interface {
	userGetter
	otpChecker
	MarkVerified(ctx context.Context, email string) error
}

func VerifyAccountHandler(svr server.Server, users accountVerifier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := &struct {
			OTP string `json:"otp"`
		}{}
		if err := decodeJSON(w, r, req); err != nil || strings.TrimSpace(req.OTP) == "" {
			svr.JSON(w, http.StatusBadRequest, api.Fail(api.MsgMissingDetails))
			return
		}
		ctx, cancel := storeCtx(r)
		defer cancel()
		u, err := users.GetUser(ctx, claimsFrom(r).Email)
		if errors.Is(err, user.ErrNotFound) {
			svr.JSON(w, http.StatusUnauthorized, api.Fail(api.MsgUnauthorized))
			return
		}
		if err != nil {
			svr.Log(err, "unable to get user for verify account")
			svr.JSON(w, http.StatusInternalServerError, api.Fail(api.MsgInternalError))
			return
		}
		if u.IsVerified {
			svr.JSON(w, http.StatusBadRequest, api.Fail(api.MsgAlreadyVerified))
			return
		}
		if !checkOTP(w, r, svr, users, u.Email, user.PurposeVerify, req.OTP) {
			return
		}
		if err := users.MarkVerified(ctx, u.Email); err != nil {
			svr.Log(err, fmt.Sprintf("unable to mark %s verified", u.Email))
			svr.JSON(w, http.StatusInternalServerError, api.Fail(api.MsgInternalError))
			return
		}
		if err := users.DeleteVerificationCode(ctx, u.Email, user.PurposeVerify); err != nil {
			svr.Log(err, "unable to delete used verification code")
		}
		u.IsVerified = true
		tk, err := issueToken(w, r, svr, u)
		if err != nil {
			svr.Log(err, "unable to issue token")
			svr.JSON(w, http.StatusInternalServerError, api.Fail(api.MsgInternalError))
			return
		}
		svr.JSON(w, http.StatusOK, api.Response{Success: true, Message: api.MsgAccountVerified, User: &u, Token: tk})
	}
}

func SendResetOTPHandler(svr server.Server, users otpIssuer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := &struct {
			Email string `json:"email"`
		}{}
		if err := decodeJSON(w, r, req); err != nil {
			svr.JSON(w, http.StatusBadRequest, api.Fail(api.MsgMissingDetails))
			return
		}
		req.Email = user.NormalizeEmail(req.Email)
		if !svr.IsEmail(req.Email) {
			svr.JSON(w, http.StatusBadRequest, api.Fail(api.MsgInvalidEmail))
			return
		}
		ctx, cancel := storeCtx(r)
		defer cancel()
		u, err := users.GetUser(ctx, req.Email)
		if errors.Is(err, user.ErrNotFound) {
			svr.JSON(w, http.StatusNotFound, api.Fail(api.MsgUserNotFound))
			return
		}
		if err != nil {
			svr.Log(err, "unable to get user for reset otp")
			svr.JSON(w, http.StatusInternalServerError, api.Fail(api.MsgInternalError))
			return
		}
		key := throttleKey(user.PurposeReset, u.Email)
		if svr.Throttled(key, OTPResendWindow) {
			svr.JSON(w, http.StatusTooManyRequests, api.Fail(api.MsgThrottled))
			return
		}
		subject := fmt.Sprintf("Reset your %s password", svr.GetConfig().SiteName)
		if err := sendOTP(r, svr, users, u, user.PurposeReset, template.ResetOTPEmail, subject); err != nil {
			svr.CacheDelete(key)
			svr.Log(err, fmt.Sprintf("unable to send reset otp to %s", u.Email))
			svr.JSON(w, http.StatusInternalServerError, api.Fail(api.MsgInternalError))
			return
		}
		svr.JSON(w, http.StatusOK, api.OK(api.MsgResetOTPSent))
	}
}

type passwordResetter interface {
	userGetter
	otpChecker
	UpdatePassword(ctx context.Context, email, passwordHash string) error
}

func ResetPasswordHandler(svr server.Server, users passwordResetter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := &struct {
			Email       string `json:"email"`
			OTP         string `json:"otp"`
			NewPassword string `json:"newPassword"`
		}{}
		if err := decodeJSON(w, r, req); err != nil {
			svr.JSON(w, http.StatusBadRequest, api.Fail(api.MsgMissingDetails))
			return
		}
		req.Email = user.NormalizeEmail(req.Email)
		if req.Email == "" || strings.TrimSpace(req.OTP) == "" || req.NewPassword == "" {
			svr.JSON(w, http.StatusBadRequest, api.Fail(api.MsgMissingDetails))
			return
		}
		hash, err := user.HashPassword(req.NewPassword)
		if errors.Is(err, user.ErrPasswordTooShort) {
			svr.JSON(w, http.StatusBadRequest, api.Fail(api.MsgPasswordTooShort))
			return
		}
		if err != nil {
			svr.Log(err, "unable to hash password")
			svr.JSON(w, http.StatusInternalServerError, api.Fail(api.MsgInternalError))
			return
		}
		ctx, cancel := storeCtx(r)
		defer cancel()
		u, err := users.GetUser(ctx, req.Email)
		if errors.Is(err, user.ErrNotFound) {
			svr.JSON(w, http.StatusNotFound, api.Fail(api.MsgUserNotFound))
			return
		}
		if err != nil {
			svr.Log(err, "unable to get user for reset password")
			svr.JSON(w, http.StatusInternalServerError, api.Fail(api.MsgInternalError))
			return
		}
		if !checkOTP(w, r, svr, users, u.Email, user.PurposeReset, req.OTP) {
			return
		}
		if err := users.UpdatePassword(ctx, u.Email, hash); err != nil {
			svr.Log(err, fmt.Sprintf("unable to update password for %s", u.Email))
			svr.JSON(w, http.StatusInternalServerError, api.Fail(api.MsgInternalError))
			return
		}
		if err := users.DeleteVerificationCode(ctx, u.Email, user.PurposeReset); err != nil {
			svr.Log(err, "unable to delete used reset code")
		}
		svr.JSON(w, http.StatusOK, api.OK(api.MsgPasswordReset))
	}
}
