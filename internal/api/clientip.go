package api

import (
	"net"
	"net/http"
	"strings"
)

// 解析访问者 IP：优先常见反向代理头，最后回退 RemoteAddr
func clientIP(r *http.Request) string {
	h := r.Header
	if x := h.Get("x-forwarded-for"); x != "" {
		return strings.TrimSpace(strings.Split(x, ",")[0])
	}
	for _, k := range []string{"cf-connecting-ip", "x-real-ip", "x-client-ip"} {
		if x := h.Get(k); x != "" {
			return strings.TrimSpace(x)
		}
	}
	if x := h.Get("forwarded"); x != "" {
		if i := strings.Index(strings.ToLower(x), "for="); i >= 0 {
			y := strings.Trim(x[i+4:], "\" ")
			if p := strings.IndexAny(y, ";,"); p >= 0 {
				y = y[:p]
			}
			return strings.Trim(y, "\"")
		}
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// 会话键：前端显式传入 X-Session-ID 时使用，否则按客户端 IP 归并
func sessionKey(r *http.Request) string {
	if s := strings.TrimSpace(r.Header.Get("x-session-id")); s != "" {
		return "sid:" + s
	}
	return "ip:" + clientIP(r)
}
