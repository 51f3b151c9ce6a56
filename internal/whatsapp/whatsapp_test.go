package whatsapp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/consultorio/backend/internal/money"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSend_NotConfigured(t *testing.T) {
	// Cliente sem credenciais não envia.
	for _, cfg := range []Config{{}, {AuthToken: "token", From: "whatsapp:+15551234567"}, {AccountSid: "sid", AuthToken: "token"}} {
		err := NewClient(cfg).Send(context.Background(), "11999990000", "oi")
		assert.ErrorIs(t, err, ErrNotConfigured)
	}
}

func TestSend_PostsToTwilio(t *testing.T) {
	var got url.Values
	var path, user string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		user, _, _ = r.BasicAuth()
		require.NoError(t, r.ParseForm())
		got = r.PostForm
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	c := NewClient(Config{AccountSid: "AC1", AuthToken: "tok", From: "+14155238886", BaseURL: srv.URL})
	require.NoError(t, c.Send(context.Background(), "(11) 99999-0000", "olá"))
	assert.Equal(t, "/2010-04-01/Accounts/AC1/Messages.json", path)
	assert.Equal(t, "AC1", user)
	assert.Equal(t, "whatsapp:+5511999990000", got.Get("To"))
	assert.Equal(t, "whatsapp:+14155238886", got.Get("From"))
	assert.Equal(t, "olá", got.Get("Body"))
}

func TestSend_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"invalid number"}`, http.StatusBadRequest)
	}))
	defer srv.Close()
	c := NewClient(Config{AccountSid: "AC1", AuthToken: "tok", From: "whatsapp:+1", BaseURL: srv.URL})
	err := c.Send(context.Background(), "11999990000", "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid number")

	err = c.Send(context.Background(), "sem dígitos", "x")
	assert.Error(t, err)
}

func TestFormatPhone(t *testing.T) {
	assert.Equal(t, "5511999990000", FormatPhone("(11) 99999-0000"))
	assert.Equal(t, "5511999990000", FormatPhone("+55 11 99999-0000"))
	assert.Equal(t, "552133334444", FormatPhone("55 21 3333-4444"))
	assert.Equal(t, "", FormatPhone("abc"))
}

func TestLink(t *testing.T) {
	l := Link("11 99999-0000", "Olá, Ana!")
	assert.True(t, strings.HasPrefix(l, "https://wa.me/5511999990000?text="))
	u, err := url.Parse(l)
	require.NoError(t, err)
	assert.Equal(t, "Olá, Ana!", u.Query().Get("text"))
}

func TestReminderMessage(t *testing.T) {
	online := ReminderMessage("Ana", "10/06/2025", "14:00", "https://meet.google.com/abcd-efgh-ijkl")
	assert.Contains(t, online, "Olá, Ana!")
	assert.Contains(t, online, "*10/06/2025*")
	assert.Contains(t, online, "Link para a videochamada: https://meet.google.com/abcd-efgh-ijkl")
	assert.NotContains(t, online, "consultório")

	office := ReminderMessage("Ana", "10/06/2025", "14:00", "")
	assert.Contains(t, office, "Te aguardo no consultório.")

	withLink := ReminderWithConfirmation("Ana", "10/06/2025", "14:00", "", "https://app/confirmar/x")
	assert.True(t, strings.HasSuffix(withLink, "Confirme sua presença: https://app/confirmar/x"))
}

func TestPaymentMessage(t *testing.T) {
	msg := PaymentMessage("Ana", 0, "")
	assert.Contains(t, msg, "(R$ 150,00)")
	assert.NotContains(t, msg, "Chave Pix")

	msg = PaymentMessage("Ana", money.Cents(123456), "ana@pix.com")
	assert.Contains(t, msg, "(R$ 1.234,56)")
	assert.Contains(t, msg, "Chave Pix: ana@pix.com")
}

func TestOtherTemplates(t *testing.T) {
	assert.Contains(t, ConfirmationMessage("Ana"), "Recebi seu pagamento")
	assert.Contains(t, FollowUpMessage("Ana"), "Oi, Ana.")
	assert.Contains(t, BirthdayMessage("Ana"), "Parabéns, Ana!")
	assert.Contains(t, WelcomeMessage("Ana"), "Seja bem-vindo(a), Ana!")
}
