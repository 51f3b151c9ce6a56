// Package cache guarda respostas derivadas (dashboard, relatórios financeiros)
// por terapeuta. Escritas em transações/agenda invalidam o prefixo do terapeuta.
package cache

import (
	"context"
	"time"
)

type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
	DeletePrefix(ctx context.Context, prefix string)
}

// TherapistPrefix agrupa todas as chaves de um terapeuta.
func TherapistPrefix(therapistID string) string {
	return "t:" + therapistID + ":"
}

// Key monta "t:<id>:<parts...>".
func Key(therapistID string, parts ...string) string {
	k := TherapistPrefix(therapistID)
	for i, p := range parts {
		if i > 0 {
			k += ":"
		}
		k += p
	}
	return k
}
