// Package meet gera links de videochamada para sessões online. Os códigos
// seguem o formato do Google Meet (xxxx-xxxx-xxxx); não há chamada a API externa.
package meet

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
)

const alphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

const baseURL = "https://meet.google.com/"

type Event struct {
	ID       string `json:"id"`
	Summary  string `json:"summary"`
	MeetLink string `json:"meetLink"`
	Start    string `json:"start"`
}

// Generator é injetável nos handlers; o padrão é Local.
type Generator interface {
	Create(patientName, date, hhmm string) (*Event, error)
}

type Local struct{}

// Create monta o evento "Sessão Terapia - <paciente>" com um código aleatório.
func (Local) Create(patientName, date, hhmm string) (*Event, error) {
	start, err := time.Parse("2006-01-02 15:04", date+" "+hhmm)
	if err != nil {
		return nil, fmt.Errorf("meet: data/hora inválida: %w", err)
	}
	code, err := Code()
	if err != nil {
		return nil, err
	}
	return &Event{
		ID:       "event_" + uuid.NewString(),
		Summary:  "Sessão Terapia - " + patientName,
		MeetLink: baseURL + code,
		Start:    start.Format("2006-01-02T15:04"),
	}, nil
}

// Code devolve três blocos de 4 caracteres [a-z0-9] separados por hífen.
func Code() (string, error) {
	buf := make([]byte, 0, 14)
	for block := 0; block < 3; block++ {
		if block > 0 {
			buf = append(buf, '-')
		}
		for i := 0; i < 4; i++ {
			n, err := rand.Int(rand.Reader, big.NewInt(int64(len(alphabet))))
			if err != nil {
				return "", err
			}
			buf = append(buf, alphabet[n.Int64()])
		}
	}
	return string(buf), nil
}
