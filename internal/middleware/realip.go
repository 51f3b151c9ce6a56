package middleware

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
)

const clientIPKey ctxKey = "client_ip"

// TrustedProxies são as redes do proxy do deploy; só delas o X-Forwarded-For é aceito.
type TrustedProxies []*net.IPNet

// ParseTrustedProxies aceita CIDRs ou IPs soltos ("10.0.0.0/8", "127.0.0.1").
func ParseTrustedProxies(list []string) (TrustedProxies, error) {
	var out TrustedProxies
	for _, s := range list {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if !strings.Contains(s, "/") {
			ip := net.ParseIP(s)
			if ip == nil {
				return nil, fmt.Errorf("trusted proxy inválido: %q", s)
			}
			bits := 32
			if ip.To4() == nil {
				bits = 128
			}
			s = fmt.Sprintf("%s/%d", ip.String(), bits)
		}
		_, n, err := net.ParseCIDR(s)
		if err != nil {
			return nil, fmt.Errorf("trusted proxy inválido: %q", s)
		}
		out = append(out, n)
	}
	return out, nil
}

func (tp TrustedProxies) trusts(ip net.IP) bool {
	if ip == nil {
		return false
	}
	for _, n := range tp {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

// Resolve devolve o IP do cliente. O X-Forwarded-For só conta quando a conexão
// vem de um proxy confiável; nesse caso vale o hop mais à direita que não é proxy.
func (tp TrustedProxies) Resolve(r *http.Request) string {
	remote := remoteHost(r)
	if !tp.trusts(net.ParseIP(remote)) {
		return remote
	}
	xff := r.Header.Values("X-Forwarded-For")
	hops := strings.Split(strings.Join(xff, ","), ",")
	client := remote
	for i := len(hops) - 1; i >= 0; i-- {
		hop := strings.TrimSpace(hops[i])
		if hop == "" {
			continue
		}
		ip := net.ParseIP(hop)
		if ip == nil {
			break
		}
		client = ip.String()
		if !tp.trusts(ip) {
			break
		}
	}
	return client
}

// RealIP resolve o IP do cliente uma vez e guarda no context para rate limit e auditoria.
func RealIP(tp TrustedProxies) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), clientIPKey, tp.Resolve(r))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClientIP lê o IP resolvido por RealIP; sem ele, usa RemoteAddr.
func ClientIP(r *http.Request) string {
	if v, ok := r.Context().Value(clientIPKey).(string); ok && v != "" {
		return v
	}
	return remoteHost(r)
}

func remoteHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
