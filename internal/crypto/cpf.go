package crypto

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
)

var nonDigits = regexp.MustCompile(`[^0-9]`)

// NormalizeCPF remove tudo que não for dígito.
func NormalizeCPF(cpf string) string {
	return nonDigits.ReplaceAllString(cpf, "")
}

// CPFHash permite checar duplicidade sem decifrar (SHA-256 do CPF normalizado).
func CPFHash(cpfNormalized string) string {
	h := sha256.Sum256([]byte(cpfNormalized))
	return hex.EncodeToString(h[:])
}

// ValidCPF confere tamanho e dígitos verificadores. Sequências repetidas são inválidas.
func ValidCPF(cpf string) bool {
	d := NormalizeCPF(cpf)
	if len(d) != 11 {
		return false
	}
	same := true
	for i := 1; i < 11; i++ {
		if d[i] != d[0] {
			same = false
			break
		}
	}
	if same {
		return false
	}
	check := func(n int) byte {
		sum := 0
		for i := 0; i < n; i++ {
			sum += int(d[i]-'0') * (n + 1 - i)
		}
		r := (sum * 10) % 11
		if r == 10 {
			r = 0
		}
		return byte(r) + '0'
	}
	return check(9) == d[9] && check(10) == d[10]
}

// FormatCPF devolve 000.000.000-00 quando houver 11 dígitos.
func FormatCPF(cpf string) string {
	d := NormalizeCPF(cpf)
	if len(d) != 11 {
		return cpf
	}
	return d[0:3] + "." + d[3:6] + "." + d[6:9] + "-" + d[9:11]
}
