package email

import (
	"bytes"
	"errors"
	"fmt"
	"net/smtp"
	"sort"
	"strconv"
	"text/template"

	"github.com/consultorio/backend/internal/money"
	"go.uber.org/zap"
)

var (
	ErrNoRecipient   = errors.New("destinatário de e-mail vazio")
	ErrNotConfigured = errors.New("SMTP não configurado")
)

// Mailer é o que os handlers usam; Config implementa.
type Mailer interface {
	SendPasswordReset(to, resetURL string) error
	SendPaymentLink(to, patientName string, amount money.Cents, payURL string) error
}

type Config struct {
	Host     string
	Port     int
	User     string
	Pass     string
	FromName string
	FromAddr string
	Logger   *zap.Logger
	// SendMail substitui smtp.SendMail (testes).
	SendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// FromEnv monta a config a partir dos valores lidos do ambiente; porta inválida vira 25.
func FromEnv(host, port, user, pass, fromName, fromAddr string, logger *zap.Logger) *Config {
	p, err := strconv.Atoi(port)
	if err != nil {
		p = 25
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Config{Host: host, Port: p, User: user, Pass: pass, FromName: fromName, FromAddr: fromAddr, Logger: logger.Named("email")}
}

func (c *Config) log() *zap.Logger {
	if c.Logger == nil {
		return zap.NewNop()
	}
	return c.Logger
}

func (c *Config) Send(to, subject, body string, html bool) error {
	if to == "" {
		return ErrNoRecipient
	}
	if c.Host == "" || c.FromAddr == "" {
		c.log().Warn("smtp sem host ou remetente", zap.String("subject", subject))
		return ErrNotConfigured
	}
	port := c.Port
	if port == 0 {
		port = 25
	}
	addr := fmt.Sprintf("%s:%d", c.Host, port)
	from := c.FromAddr
	if c.FromName != "" {
		from = fmt.Sprintf("%s <%s>", c.FromName, c.FromAddr)
	}
	headers := map[string]string{
		"From":         from,
		"To":           to,
		"Subject":      subject,
		"MIME-Version": "1.0",
		"Content-Type": "text/plain; charset=UTF-8",
	}
	if html {
		headers["Content-Type"] = "text/html; charset=UTF-8"
	}
	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var buf bytes.Buffer
	for _, k := range keys {
		buf.WriteString(k + ": " + headers[k] + "\r\n")
	}
	buf.WriteString("\r\n")
	buf.WriteString(body)

	send := c.SendMail
	if send == nil {
		send = smtp.SendMail
	}
	if err := send(addr, c.authForSend(), c.FromAddr, []string{to}, buf.Bytes()); err != nil {
		c.log().Error("falha ao enviar e-mail", zap.String("subject", subject), zap.String("addr", addr), zap.Error(err))
		return err
	}
	c.log().Info("e-mail enviado", zap.String("subject", subject))
	return nil
}

// authForSend returns nil when User is empty (e.g. MailHog), so no AUTH is sent.
func (c *Config) authForSend() smtp.Auth {
	if c.User != "" {
		return smtp.PlainAuth("", c.User, c.Pass, c.Host)
	}
	return nil
}

var (
	resetTpl = template.Must(template.New("reset").Parse(`Olá,

Você solicitou a redefinição de senha. Clique no link abaixo (válido por 1 hora):

{{.ResetURL}}

Se você não solicitou isso, ignore este e-mail.`))

	paymentTpl = template.Must(template.New("payment").Parse(`Olá, {{.Name}}!

Segue o link para pagamento da sessão no valor de {{.Amount}}:

{{.URL}}

Qualquer dúvida, estou à disposição.`))
)

func (c *Config) SendPasswordReset(to, resetURL string) error {
	if resetURL == "" {
		return fmt.Errorf("resetURL vazio")
	}
	var b bytes.Buffer
	if err := resetTpl.Execute(&b, map[string]string{"ResetURL": resetURL}); err != nil {
		return err
	}
	return c.Send(to, "Redefinição de senha - Consultório", b.String(), false)
}

// SendPaymentLink envia o link do checkout ao paciente.
func (c *Config) SendPaymentLink(to, patientName string, amount money.Cents, payURL string) error {
	if payURL == "" {
		return fmt.Errorf("payURL vazio")
	}
	var b bytes.Buffer
	err := paymentTpl.Execute(&b, map[string]string{"Name": patientName, "Amount": amount.BRL(), "URL": payURL})
	if err != nil {
		return err
	}
	return c.Send(to, "Link de pagamento - Consultório", b.String(), false)
}

// LogConfigSummary loga um resumo da config SMTP (sem senha) para diagnóstico.
func (c *Config) LogConfigSummary() {
	c.log().Info("config smtp",
		zap.String("host", c.Host),
		zap.Int("port", c.Port),
		zap.String("from", c.FromAddr),
		zap.Bool("auth", c.User != ""),
	)
	if c.Host == "" || c.FromAddr == "" {
		c.log().Warn("host ou from vazio; envios podem falhar")
	}
}
