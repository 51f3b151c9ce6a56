// Package automations carrega o catálogo padrão de mensagens automáticas e
// renderiza os templates com os dados do paciente.
package automations

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"github.com/consultorio/backend/internal/money"
	"github.com/consultorio/backend/internal/repo"
	"github.com/consultorio/backend/internal/whatsapp"
	"gopkg.in/yaml.v3"
)

const (
	KindReminder = "reminder"
	KindPayment  = "payment"
	KindFollowUp = "follow_up"
	KindBirthday = "birthday"
	KindWelcome  = "welcome"
)

//go:embed defaults.yaml
var defaultsYAML []byte

type definition struct {
	Kind        string `yaml:"kind"`
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	Trigger     string `yaml:"trigger"`
	Icon        string `yaml:"icon"`
	Active      bool   `yaml:"active"`
	Template    string `yaml:"template"`
}

var (
	loadOnce sync.Once
	loaded   []repo.Automation
	loadErr  error
)

// Defaults devolve uma cópia do catálogo embutido.
func Defaults() ([]repo.Automation, error) {
	loadOnce.Do(func() {
		loaded, loadErr = Parse(defaultsYAML)
	})
	if loadErr != nil {
		return nil, loadErr
	}
	out := make([]repo.Automation, len(loaded))
	copy(out, loaded)
	return out, nil
}

// Parse lê uma lista YAML de automações; kind é obrigatório e único.
func Parse(data []byte) ([]repo.Automation, error) {
	var defs []definition
	if err := yaml.Unmarshal(data, &defs); err != nil {
		return nil, fmt.Errorf("automations: %w", err)
	}
	seen := make(map[string]bool, len(defs))
	out := make([]repo.Automation, 0, len(defs))
	for i, d := range defs {
		if d.Kind == "" || d.Title == "" {
			return nil, fmt.Errorf("automations: item %d sem kind/title", i)
		}
		if seen[d.Kind] {
			return nil, fmt.Errorf("automations: kind duplicado %q", d.Kind)
		}
		seen[d.Kind] = true
		if d.Icon == "" {
			d.Icon = "whatsapp"
		}
		out = append(out, repo.Automation{
			Kind: d.Kind, Title: d.Title, Description: d.Description, Trigger: d.Trigger,
			Icon: d.Icon, Active: d.Active, Template: d.Template,
		})
	}
	return out, nil
}

// Vars são os valores disponíveis nos templates.
type Vars struct {
	Name     string
	DateBR   string
	HHMM     string
	Amount   money.Cents
	MeetLink string
	PixKey   string
}

// Render substitui {nome}, {data}, {horario}, {valor}, {link} e {pix}.
func Render(tpl string, v Vars) string {
	amount := v.Amount
	if amount <= 0 {
		amount = whatsapp.DefaultPaymentAmount
	}
	r := strings.NewReplacer(
		"{nome}", v.Name,
		"{data}", v.DateBR,
		"{horario}", v.HHMM,
		"{valor}", amount.BRL(),
		"{link}", v.MeetLink,
		"{pix}", v.PixKey,
	)
	return strings.TrimSpace(r.Replace(tpl))
}

// Message usa o template do terapeuta; vazio cai na mensagem padrão do kind.
func Message(kind, tpl string, v Vars) (string, error) {
	if strings.TrimSpace(tpl) != "" {
		return Render(tpl, v), nil
	}
	switch kind {
	case KindReminder:
		return whatsapp.ReminderMessage(v.Name, v.DateBR, v.HHMM, v.MeetLink), nil
	case KindPayment:
		return whatsapp.PaymentMessage(v.Name, v.Amount, v.PixKey), nil
	case KindFollowUp:
		return whatsapp.FollowUpMessage(v.Name), nil
	case KindBirthday:
		return whatsapp.BirthdayMessage(v.Name), nil
	case KindWelcome:
		return whatsapp.WelcomeMessage(v.Name), nil
	}
	return "", fmt.Errorf("automations: kind desconhecido %q", kind)
}
