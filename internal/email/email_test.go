package email

import (
	"bytes"
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddressString(t *testing.T) {
	assert.Equal(t, "a@b.com", Address{Email: "a@b.com"}.String())
	assert.Equal(t, "Rozgar <no-reply@rozgar.in>", Address{Name: "Rozgar", Email: "no-reply@rozgar.in"}.String())
}

func TestLogClient(t *testing.T) {
	var buf bytes.Buffer
	var m Mailer = NewLogClient(zerolog.New(&buf))

	err := m.SendHTMLEmail(context.Background(), Address{Email: "asha@example.com"}, "Verify", "<p>123456</p>\n")
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `"to":"asha@example.com"`)
	assert.Contains(t, buf.String(), `"subject":"Verify"`)
	assert.Contains(t, buf.String(), "123456")
}

func TestNewClient(t *testing.T) {
	c, err := NewClient("key", "https://api.sparkpost.com", "no-reply@rozgar.in", "Rozgar")
	require.NoError(t, err)
	assert.Equal(t, Address{Name: "Rozgar", Email: "no-reply@rozgar.in"}, c.noReply)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, c.SendHTMLEmail(ctx, Address{Email: "a@b.com"}, "s", "b"))
}
