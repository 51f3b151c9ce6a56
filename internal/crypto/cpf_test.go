package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidCPF(t *testing.T) {
	tests := []struct {
		cpf  string
		want bool
	}{
		{"529.982.247-25", true},
		{"52998224725", true},
		{"529.982.247-24", false},
		{"111.111.111-11", false},
		{"123", false},
		{"", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ValidCPF(tt.cpf), tt.cpf)
	}
}

func TestNormalizeAndFormatCPF(t *testing.T) {
	assert.Equal(t, "52998224725", NormalizeCPF(" 529.982.247-25 "))
	assert.Equal(t, "529.982.247-25", FormatCPF("52998224725"))
	assert.Equal(t, "123", FormatCPF("123"))
	assert.Len(t, CPFHash("52998224725"), 64)
}
