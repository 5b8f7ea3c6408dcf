package user

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoleValid(t *testing.T) {
	assert.True(t, RoleSeeker.Valid())
	assert.True(t, RoleRecruiter.Valid())
	assert.False(t, Role("admin").Valid())
	assert.False(t, Role("").Valid())
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "asha@rozgar.in", NormalizeEmail("  Asha@Rozgar.IN "))
}

func TestHashPassword(t *testing.T) {
	_, err := HashPassword("12345")
	assert.Equal(t, ErrPasswordTooShort, err)

	hash, err := HashPassword("s3cret!")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret!", hash)
	assert.True(t, CheckPassword(hash, "s3cret!"))
	assert.False(t, CheckPassword(hash, "wrong"))
}

func TestGenerateOTP(t *testing.T) {
	re := regexp.MustCompile(`^[0-9]{6}$`)
	for i := 0; i < 50; i++ {
		code, err := GenerateOTP()
		require.NoError(t, err)
		assert.Regexp(t, re, code)
	}
}

func TestVerificationCodeCheck(t *testing.T) {
	now := time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC)
	code, err := NewVerificationCode("asha@rozgar.in", PurposeVerify, "123456", now)
	require.NoError(t, err)
	assert.Equal(t, "verify:asha@rozgar.in", code.ID)
	assert.Equal(t, now.Add(OTPValidity), code.ExpiresAt)

	tests := []struct {
		name     string
		code     string
		at       time.Time
		attempts int
		want     error
	}{
		{"valid", "123456", now.Add(time.Minute), 0, nil},
		{"wrong code", "654321", now.Add(time.Minute), 0, ErrCodeInvalid},
		{"expired", "123456", now.Add(OTPValidity), 0, ErrCodeExpired},
		{"too many attempts", "123456", now.Add(time.Minute), MaxOTPAttempts, ErrTooManyAttempts},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := code
			c.Attempts = tt.attempts
			assert.Equal(t, tt.want, c.Check(tt.code, tt.at))
		})
	}
}
