// Package money representa valores em centavos. No JSON o valor sai como número
// decimal (150.00) e entra como número ou string ("150,50" também é aceito).
package money

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

type Cents int64

var ErrInvalid = errors.New("valor monetário inválido")

// MaxCents limita valores a R$ 10 bilhões; acima disso a soma em int64 e o float
// de entrada deixam de ser exatos.
const MaxCents Cents = 1_000_000_000_000

// fromInput converte a entrada do cliente respeitando MaxCents.
func fromInput(f float64) (Cents, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || math.Abs(f)*100 > float64(MaxCents) {
		return 0, ErrInvalid
	}
	return FromFloat(f), nil
}

// FromFloat arredonda para o centavo mais próximo.
func FromFloat(v float64) Cents {
	return Cents(math.Round(v * 100))
}

func (c Cents) Float() float64 {
	return float64(c) / 100
}

func (c Cents) MarshalJSON() ([]byte, error) {
	return []byte(c.decimal()), nil
}

func (c *Cents) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		*c = 0
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		v, err := Parse(str)
		if err != nil {
			return err
		}
		*c = v
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return ErrInvalid
	}
	v, err := fromInput(f)
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// Parse aceita "150", "150.5", "150,50", "R$ 1.234,56".
func Parse(s string) (Cents, error) {
	s = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), "R$"))
	if s == "" {
		return 0, ErrInvalid
	}
	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, ErrInvalid
	}
	return fromInput(f)
}

func (c Cents) decimal() string {
	sign := ""
	v := int64(c)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

// BRL formata como "R$ 1.234,56".
func (c Cents) BRL() string {
	v := int64(c)
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	ints := strconv.FormatInt(v/100, 10)
	var b strings.Builder
	for i, r := range ints {
		if i > 0 && (len(ints)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	return fmt.Sprintf("%sR$ %s,%02d", sign, b.String(), v%100)
}

func (c Cents) String() string {
	return c.decimal()
}
