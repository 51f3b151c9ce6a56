package money

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBRL(t *testing.T) {
	tests := []struct {
		c    Cents
		want string
	}{
		{15000, "R$ 150,00"},
		{5, "R$ 0,05"},
		{123456789, "R$ 1.234.567,89"},
		{-2050, "-R$ 20,50"},
		{0, "R$ 0,00"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.c.BRL())
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want Cents
	}{
		{"150", 15000},
		{"150.5", 15050},
		{"150,50", 15050},
		{"R$ 1.234,56", 123456},
		{"0.1", 10},
	}
	for _, tt := range tests {
		got, err := Parse(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
	_, err := Parse("abc")
	assert.ErrorIs(t, err, ErrInvalid)
	_, err = Parse("")
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestJSON(t *testing.T) {
	var v struct {
		Amount Cents `json:"amount"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"amount":199.99}`), &v))
	assert.Equal(t, Cents(19999), v.Amount)

	require.NoError(t, json.Unmarshal([]byte(`{"amount":"80,00"}`), &v))
	assert.Equal(t, Cents(8000), v.Amount)

	b, err := json.Marshal(v)
	require.NoError(t, err)
	assert.JSONEq(t, `{"amount":80.00}`, string(b))

	assert.Error(t, json.Unmarshal([]byte(`{"amount":"x"}`), &v))
}

func TestFromFloatRounds(t *testing.T) {
	assert.Equal(t, Cents(2000), FromFloat(19.999))
	assert.Equal(t, Cents(15000), FromFloat(150))
	assert.InDelta(t, 150.0, Cents(15000).Float(), 0.0001)
}

// Valores fora do limite são recusados antes de virar centavos.
func TestRejectsOutOfRange(t *testing.T) {
	var v struct {
		Amount Cents `json:"amount"`
	}
	err := json.Unmarshal([]byte(`{"amount":50000000000000000}`), &v)
	assert.ErrorIs(t, err, ErrInvalid)
	err = json.Unmarshal([]byte(`{"amount":"-20000000000"}`), &v)
	assert.ErrorIs(t, err, ErrInvalid)

	for _, in := range []string{"1e300", "NaN", "R$ 10.000.000.000,01"} {
		_, err := Parse(in)
		assert.ErrorIs(t, err, ErrInvalid, in)
	}

	got, err := Parse("10000000000")
	require.NoError(t, err)
	assert.Equal(t, MaxCents, got)
}
