package user

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"
)

const (
	PurposeVerify = "verify"
	PurposeReset  = "reset"

	OTPLength      = 6
	OTPValidity    = 15 * time.Minute
	MaxOTPAttempts = 5
)

var (
	ErrCodeInvalid     = errors.New("invalid verification code")
	ErrCodeExpired     = errors.New("verification code expired")
	ErrTooManyAttempts = errors.New("too many attempts, request a new code")
)

// VerificationCode holds the hash of a one-time code emailed to a user.
// There is at most one live code per email and purpose.
type VerificationCode struct {
	ID        string    `bson:"_id"`
	Email     string    `bson:"email"`
	Purpose   string    `bson:"purpose"`
	CodeHash  string    `bson:"code_hash"`
	Attempts  int       `bson:"attempts"`
	ExpiresAt time.Time `bson:"expires_at"`
	CreatedAt time.Time `bson:"created_at"`
}

func verificationCodeID(email, purpose string) string {
	return purpose + ":" + email
}

// GenerateOTP returns a zero padded numeric code of OTPLength digits.
func GenerateOTP() (string, error) {
	max := big.NewInt(1_000_000)
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", errors.Wrap(err, "unable to generate otp")
	}
	return fmt.Sprintf("%0*d", OTPLength, n.Int64()), nil
}

func NewVerificationCode(email, purpose, code string, now time.Time) (VerificationCode, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return VerificationCode{}, errors.Wrap(err, "unable to hash otp")
	}
	return VerificationCode{
		ID:        verificationCodeID(email, purpose),
		Email:     email,
		Purpose:   purpose,
		CodeHash:  string(hash),
		ExpiresAt: now.Add(OTPValidity),
		CreatedAt: now,
	}, nil
}

// Check validates code against the stored hash.
func (c VerificationCode) Check(code string, now time.Time) error {
	if c.Attempts >= MaxOTPAttempts {
		return ErrTooManyAttempts
	}
	if !now.Before(c.ExpiresAt) {
		return ErrCodeExpired
	}
	if bcrypt.CompareHashAndPassword([]byte(c.CodeHash), []byte(code)) != nil {
		return ErrCodeInvalid
	}
	return nil
}
