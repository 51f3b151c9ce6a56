package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
)

var (
	ErrUnknownKeyVersion = errors.New("key version not found")
	ErrMalformed         = errors.New("ciphertext malformed")
)

func SHA256Hex(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// FieldCipher cifra campos de texto (CPF, conteúdo de prontuário) com AES-256-GCM.
// O valor gravado é "<versão>:<base64(nonce||ciphertext)>", então a rotação de chave
// só precisa manter as versões antigas em DATA_ENCRYPTION_KEYS.
type FieldCipher struct {
	keys    map[string][]byte
	current string
}

func NewFieldCipher(keysEnv, currentVersion string) (*FieldCipher, error) {
	keys, err := ParseKeysEnv(keysEnv)
	if err != nil {
		return nil, err
	}
	if _, ok := keys[currentVersion]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKeyVersion, currentVersion)
	}
	return &FieldCipher{keys: keys, current: currentVersion}, nil
}

func (f *FieldCipher) gcm(version string) (cipher.AEAD, error) {
	key, ok := f.keys[version]
	if !ok {
		return nil, ErrUnknownKeyVersion
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// Seal cifra com a chave atual. String vazia continua vazia.
func (f *FieldCipher) Seal(plain string) (string, error) {
	if plain == "" {
		return "", nil
	}
	gcm, err := f.gcm(f.current)
	if err != nil {
		return "", err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}
	out := gcm.Seal(nonce, nonce, []byte(plain), nil)
	return f.current + ":" + base64.StdEncoding.EncodeToString(out), nil
}

// Open decifra um valor produzido por Seal.
func (f *FieldCipher) Open(sealed string) (string, error) {
	if sealed == "" {
		return "", nil
	}
	idx := strings.Index(sealed, ":")
	if idx <= 0 {
		return "", ErrMalformed
	}
	gcm, err := f.gcm(sealed[:idx])
	if err != nil {
		return "", err
	}
	raw, err := base64.StdEncoding.DecodeString(sealed[idx+1:])
	if err != nil || len(raw) < gcm.NonceSize() {
		return "", ErrMalformed
	}
	plain, err := gcm.Open(nil, raw[:gcm.NonceSize()], raw[gcm.NonceSize():], nil)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

// ParseKeysEnv lê "v1:<base64 32 bytes>,v2:<...>".
func ParseKeysEnv(env string) (map[string][]byte, error) {
	out := make(map[string][]byte)
	for _, part := range strings.Split(env, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		idx := strings.Index(part, ":")
		if idx <= 0 {
			return nil, fmt.Errorf("entrada de chave sem versão: %q", part)
		}
		ver := strings.TrimSpace(part[:idx])
		b64 := strings.TrimRight(strings.TrimSpace(part[idx+1:]), "=")
		key, err := base64.RawStdEncoding.DecodeString(b64)
		if err != nil {
			return nil, fmt.Errorf("chave %s: %w", ver, err)
		}
		if len(key) != 32 {
			return nil, fmt.Errorf("key must be 32 bytes for AES-256 (got %d)", len(key))
		}
		out[ver] = key
	}
	return out, nil
}
