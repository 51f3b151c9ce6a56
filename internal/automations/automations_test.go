package automations

import (
	"testing"

	"github.com/consultorio/backend/internal/money"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	list, err := Defaults()
	require.NoError(t, err)
	require.Len(t, list, 5)
	kinds := map[string]bool{}
	for _, a := range list {
		kinds[a.Kind] = true
		assert.NotEmpty(t, a.Title)
		assert.Contains(t, []string{"whatsapp", "bot"}, a.Icon)
	}
	for _, k := range []string{KindReminder, KindPayment, KindFollowUp, KindBirthday, KindWelcome} {
		assert.True(t, kinds[k], k)
	}

	// cópia: alterar não afeta a próxima chamada
	list[0].Title = "x"
	again, _ := Defaults()
	assert.NotEqual(t, "x", again[0].Title)
}

func TestParseErrors(t *testing.T) {
	_, err := Parse([]byte("- kind: a\n  title: A\n- kind: a\n  title: B\n"))
	assert.ErrorContains(t, err, "duplicado")
	_, err = Parse([]byte("- title: sem kind\n"))
	assert.Error(t, err)
	_, err = Parse([]byte("não é lista"))
	assert.Error(t, err)

	list, err := Parse([]byte("- kind: a\n  title: A\n"))
	require.NoError(t, err)
	assert.Equal(t, "whatsapp", list[0].Icon)
}

func TestRender(t *testing.T) {
	out := Render("Olá {nome}, {data} às {horario}. Valor {valor}. Pix {pix}. {link}", Vars{
		Name: "Ana", DateBR: "10/06/2025", HHMM: "14:00", Amount: money.Cents(20000), PixKey: "chave",
	})
	assert.Equal(t, "Olá Ana, 10/06/2025 às 14:00. Valor R$ 200,00. Pix chave.", out)
	assert.Contains(t, Render("{valor}", Vars{}), "R$ 150,00")
}

func TestMessageFallsBackToBuiltin(t *testing.T) {
	msg, err := Message(KindBirthday, "  ", Vars{Name: "Ana"})
	require.NoError(t, err)
	assert.Contains(t, msg, "Parabéns, Ana!")

	msg, err = Message(KindReminder, "Oi {nome}", Vars{Name: "Ana"})
	require.NoError(t, err)
	assert.Equal(t, "Oi Ana", msg)

	_, err = Message("desconhecido", "", Vars{})
	assert.Error(t, err)
}
