package email

import (
	"net/smtp"
	"strings"
	"testing"

	"github.com/consultorio/backend/internal/money"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captured struct {
	addr string
	auth smtp.Auth
	from string
	to   []string
	msg  string
}

func testConfig(c *captured) *Config {
	cfg := FromEnv("mail.local", "1025", "", "", "Consultório", "noreply@consultorio.test", nil)
	cfg.SendMail = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		c.addr, c.auth, c.from, c.to, c.msg = addr, a, from, to, string(msg)
		return nil
	}
	return cfg
}

func TestSendPasswordReset(t *testing.T) {
	var c captured
	cfg := testConfig(&c)
	require.NoError(t, cfg.SendPasswordReset("ana@exemplo.com", "http://app/reset?token=abc"))
	assert.Equal(t, "mail.local:1025", c.addr)
	assert.Nil(t, c.auth)
	assert.Equal(t, []string{"ana@exemplo.com"}, c.to)
	assert.Contains(t, c.msg, "Subject: Redefinição de senha - Consultório\r\n")
	assert.Contains(t, c.msg, "From: Consultório <noreply@consultorio.test>\r\n")
	assert.Contains(t, c.msg, "http://app/reset?token=abc")
	assert.True(t, strings.Index(c.msg, "\r\n\r\n") > 0)
}

func TestSendPaymentLink(t *testing.T) {
	var c captured
	cfg := testConfig(&c)
	require.NoError(t, cfg.SendPaymentLink("ana@exemplo.com", "Ana", money.Cents(15000), "https://checkout/x"))
	assert.Contains(t, c.msg, "Olá, Ana!")
	assert.Contains(t, c.msg, "R$ 150,00")
	assert.Contains(t, c.msg, "https://checkout/x")
}

func TestSendValidation(t *testing.T) {
	var c captured
	cfg := testConfig(&c)
	assert.ErrorIs(t, cfg.Send("", "x", "y", false), ErrNoRecipient)

	cfg.Host = ""
	assert.ErrorIs(t, cfg.Send("a@b.c", "x", "y", false), ErrNotConfigured)
	assert.Error(t, cfg.SendPasswordReset("a@b.c", ""))
}

func TestAuthForSend(t *testing.T) {
	cfg := &Config{Host: "smtp.x", User: "u", Pass: "p"}
	assert.NotNil(t, cfg.authForSend())
	assert.Equal(t, 25, FromEnv("h", "abc", "", "", "", "f", nil).Port)
}
