// Package api holds the JSON envelope shared by the HTTP handlers and the
// client.
package api

import (
	"github.com/rozgar/job-board/internal/job"
	"github.com/rozgar/job-board/internal/profile"
	"github.com/rozgar/job-board/internal/user"
)

// Response is the body of every API reply. Success is always present,
// everything else only when it applies.
type Response struct {
	Success   bool             `json:"success"`
	Message   string           `json:"message,omitempty"`
	User      *user.User       `json:"user,omitempty"`
	Token     string           `json:"token,omitempty"`
	TempToken string           `json:"tempToken,omitempty"`
	Profile   *profile.Profile `json:"profile,omitempty"`
	Jobs      []job.Listing    `json:"jobs,omitempty"`
	Skills    []string         `json:"skills,omitempty"`
}

// JobsResponse answers job searches. Jobs and Skills are always arrays, empty
// when nothing matched.
type JobsResponse struct {
	Success bool          `json:"success"`
	Jobs    []job.Listing `json:"jobs"`
	Skills  []string      `json:"skills"`
}

func Fail(msg string) Response {
	return Response{Success: false, Message: msg}
}

func OK(msg string) Response {
	return Response{Success: true, Message: msg}
}

const (
	MsgRouteNotFound       = "Route not found"
	MsgInternalError       = "Internal server error"
	MsgUnauthorized        = "Not authorized, login again"
	MsgNotVerified         = "Please verify your account first"
	MsgUserExists          = "User already exists"
	MsgInvalidCredentials  = "Invalid email or password"
	MsgAlreadyVerified     = "Account already verified"
	MsgThrottled           = "Please wait before requesting another code"
	MsgInvalidOTP          = "Invalid OTP"
	MsgExpiredOTP          = "OTP expired"
	MsgTooManyAttempts     = "Too many attempts, request a new code"
	MsgMissingDetails      = "Missing details"
	MsgInvalidEmail        = "Invalid email"
	MsgPasswordTooShort    = "Password must be at least 6 characters"
	MsgInvalidRole         = "Invalid role"
	MsgProfileNotFound     = "Profile not found"
	MsgResumeNotFound      = "Resume not found"
	MsgForbidden           = "You can only change your own profile"
	MsgUnsupportedResume   = "Resume must be a PDF, DOC or DOCX file"
	MsgResumeTooLarge      = "Resume must be 5MB or smaller"
	MsgTooManySkills       = "Too many skills"
	MsgVerificationOTPSent = "Verification OTP sent on email"
	MsgResetOTPSent        = "OTP sent to your email"
	MsgPasswordReset       = "Password has been reset successfully"
	MsgLoggedOut           = "Logged out"
	MsgAccountVerified     = "Email verified successfully"
	MsgUserNotFound        = "User not found"
)
