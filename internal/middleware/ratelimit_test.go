package middleware

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "http://example/", nil)
	r.RemoteAddr = "10.0.0.9:5555"
	assert.Equal(t, "10.0.0.9", ClientIP(r))

	// sem RealIP o cabeçalho é ignorado
	r.Header.Set("X-Forwarded-For", "1.2.3.4, 5.6.7.8")
	assert.Equal(t, "10.0.0.9", ClientIP(r))
}

func TestTrustedProxiesResolve(t *testing.T) {
	tp, err := ParseTrustedProxies([]string{"10.0.0.0/8", " 192.168.1.1 ", ""})
	require.NoError(t, err)
	require.Len(t, tp, 2)

	cases := []struct {
		name, remote, xff, want string
	}{
		{"conexão direta ignora xff", "203.0.113.7:4000", "1.1.1.1", "203.0.113.7"},
		{"proxy confiável", "10.1.2.3:4000", "198.51.100.20", "198.51.100.20"},
		{"hop mais à direita não confiável", "10.1.2.3:4000", "1.1.1.1, 198.51.100.20, 10.9.9.9", "198.51.100.20"},
		{"ip solto como proxy", "192.168.1.1:80", "198.51.100.21", "198.51.100.21"},
		{"sem xff", "10.1.2.3:4000", "", "10.1.2.3"},
		{"lixo no xff", "10.1.2.3:4000", "not-an-ip", "10.1.2.3"},
		{"todos confiáveis", "10.1.2.3:4000", "10.0.0.5, 10.0.0.6", "10.0.0.5"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = c.remote
			if c.xff != "" {
				r.Header.Set("X-Forwarded-For", c.xff)
			}
			assert.Equal(t, c.want, tp.Resolve(r))
		})
	}

	_, err = ParseTrustedProxies([]string{"10.0.0.0/99"})
	assert.Error(t, err)
	_, err = ParseTrustedProxies([]string{"proxy.local"})
	assert.Error(t, err)
}

func TestRateLimitIgnoresSpoofedForwardedFor(t *testing.T) {
	store := NewLimiterStore(0.001, 2)
	h := RealIP(nil)(RateLimit(store)(okHandler()))

	passed, limited := 0, 0
	for i := 0; i < 20; i++ {
		r := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
		r.RemoteAddr = "203.0.113.50:1000"
		r.Header.Set("X-Forwarded-For", fmt.Sprintf("10.0.0.%d", i))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, r)
		switch rec.Code {
		case http.StatusOK:
			passed++
		case http.StatusTooManyRequests:
			limited++
		}
	}
	assert.Equal(t, 2, passed)
	assert.Equal(t, 18, limited)
	assert.Equal(t, 1, store.Len())
}

func TestRateLimitBehindTrustedProxy(t *testing.T) {
	tp, err := ParseTrustedProxies([]string{"10.0.0.1"})
	require.NoError(t, err)
	store := NewLimiterStore(0.001, 1)
	h := RealIP(tp)(RateLimit(store)(okHandler()))

	send := func(client string) int {
		r := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
		r.RemoteAddr = "10.0.0.1:443"
		r.Header.Set("X-Forwarded-For", client)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, r)
		return rec.Code
	}
	assert.Equal(t, http.StatusOK, send("198.51.100.1"))
	assert.Equal(t, http.StatusTooManyRequests, send("198.51.100.1"))
	// clientes distintos atrás do mesmo proxy não dividem bucket
	assert.Equal(t, http.StatusOK, send("198.51.100.2"))
	// prefixo forjado à esquerda não muda o hop que o proxy anexou
	assert.Equal(t, http.StatusTooManyRequests, send("6.6.6.6, 198.51.100.1"))
}

func TestRateLimitBlocksAfterBurst(t *testing.T) {
	store := NewLimiterStore(0.001, 2)
	h := RateLimit(store)(okHandler())

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		r := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
		r.RemoteAddr = "10.0.0.1:1000"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, r)
		codes = append(codes, rec.Code)
		if rec.Code == http.StatusTooManyRequests {
			assert.NotEmpty(t, rec.Header().Get("Retry-After"))
		}
	}
	assert.Equal(t, []int{200, 200, 429}, codes)

	// outro IP tem bucket próprio
	r := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
	r.RemoteAddr = "10.0.0.2:1000"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, store.Len())
}

func TestLimiterStoreCleanup(t *testing.T) {
	store := NewLimiterStore(1, 1)
	store.idleTTL = -time.Second
	store.Get("a")
	store.Get("b")
	store.Cleanup()
	assert.Equal(t, 0, store.Len())
}
