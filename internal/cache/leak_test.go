//go:build !integration

package cache

import (
	"testing"

	"go.uber.org/goleak"
)

// a goroutine de limpeza do TTL precisa morrer no Close
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
