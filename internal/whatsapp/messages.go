package whatsapp

import (
	"errors"
	"net/url"
	"strings"
	"unicode"

	"github.com/consultorio/backend/internal/money"
)

var ErrNotConfigured = errors.New("whatsapp: não configurado")

// DefaultPaymentAmount é usado quando o paciente não tem valor de sessão.
const DefaultPaymentAmount = money.Cents(15000)

// FormatPhone remove tudo que não é dígito e prefixa 55. Números que já
// começam com 55 e têm 12 ou 13 dígitos são mantidos.
func FormatPhone(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if digits == "" {
		return ""
	}
	if strings.HasPrefix(digits, "55") && (len(digits) == 12 || len(digits) == 13) {
		return digits
	}
	return "55" + digits
}

// Link monta o deep link wa.me com o texto já codificado.
func Link(phone, text string) string {
	return "https://wa.me/" + FormatPhone(phone) + "?text=" + url.QueryEscape(text)
}

func ReminderMessage(patientName, dateBR, hhmm, meetLink string) string {
	var b strings.Builder
	b.WriteString("Olá, " + patientName + "! Tudo bem? ✨\n\n")
	b.WriteString("Passando para lembrar da nossa sessão de terapia agendada para:\n")
	b.WriteString("🗓️ *" + dateBR + "*\n⏰ *" + hhmm + "*")
	if meetLink != "" {
		b.WriteString("\n\nLink para a videochamada: " + meetLink)
	} else {
		b.WriteString("\n\nTe aguardo no consultório.")
	}
	b.WriteString("\n\nQualquer imprevisto, por favor me avise. Até lá!")
	return b.String()
}

// ReminderWithConfirmation acrescenta o link público de confirmação.
func ReminderWithConfirmation(patientName, dateBR, hhmm, meetLink, confirmURL string) string {
	msg := ReminderMessage(patientName, dateBR, hhmm, meetLink)
	if confirmURL != "" {
		msg += "\n\nConfirme sua presença: " + confirmURL
	}
	return msg
}

func PaymentMessage(patientName string, amount money.Cents, pixKey string) string {
	if amount <= 0 {
		amount = DefaultPaymentAmount
	}
	msg := "Olá, " + patientName + ". Espero que esteja bem!\n\n" +
		"Este é um lembrete automático sobre o pagamento da sua última sessão (" + amount.BRL() + ")."
	if pixKey != "" {
		msg += "\n\nChave Pix: " + pixKey
	}
	return msg + "\n\nSe já realizou o pagamento, por favor desconsidere. Obrigado(a)!"
}

func ConfirmationMessage(patientName string) string {
	return "Olá, " + patientName + "! ✨\n\nRecebi seu pagamento. Muito obrigado(a)! Já registrei aqui no sistema.\n\nNos vemos na próxima sessão!"
}

func FollowUpMessage(patientName string) string {
	return "Oi, " + patientName + ". Como você está se sentindo após a nossa última sessão?\n\n" +
		"Passando apenas para dizer que estou à disposição caso precise de algo antes do nosso próximo encontro. 🌿"
}

func BirthdayMessage(patientName string) string {
	return "Parabéns, " + patientName + "! 🎉✨\n\n" +
		"Desejo um dia iluminado, cheio de paz e alegria. Que este novo ciclo seja de muito crescimento e realizações. Feliz aniversário! 🎂🎈"
}

func WelcomeMessage(patientName string) string {
	return "Seja bem-vindo(a), " + patientName + "! ✨\n\n" +
		"Fico muito feliz em iniciar essa jornada com você. Se tiver qualquer dúvida sobre o processo ou horários, pode me chamar por aqui. Até nossa primeira sessão! 🌿"
}
