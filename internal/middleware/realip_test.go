package middleware

import (
	"net/http"
	"net/http/httptest"
	"net/netip"
	"testing"
)

func TestRealIP(t *testing.T) {
	trusted := []netip.Prefix{
		netip.MustParsePrefix("10.0.0.0/8"),
		netip.MustParsePrefix("2001:db8::/32"),
	}

	tests := []struct {
		name       string
		trusted    []netip.Prefix
		remoteAddr string
		headers    map[string]string
		want       string
	}{
		{
			name:       "no trusted proxies ignores headers",
			remoteAddr: "10.0.0.1:1234",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.5"},
			want:       "10.0.0.1:1234",
		},
		{
			name:       "untrusted peer ignores headers",
			trusted:    trusted,
			remoteAddr: "192.0.2.9:1234",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.5", "X-Real-IP": "203.0.113.6"},
			want:       "192.0.2.9:1234",
		},
		{
			name:       "trusted peer single hop",
			trusted:    trusted,
			remoteAddr: "10.0.0.1:1234",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.5"},
			want:       "203.0.113.5",
		},
		{
			name:       "client-supplied prefix is skipped",
			trusted:    trusted,
			remoteAddr: "10.0.0.1:1234",
			headers:    map[string]string{"X-Forwarded-For": "1.2.3.4, 203.0.113.5, 10.0.0.7"},
			want:       "203.0.113.5",
		},
		{
			name:       "all hops trusted",
			trusted:    trusted,
			remoteAddr: "10.0.0.1:1234",
			headers:    map[string]string{"X-Forwarded-For": "10.0.0.9, 10.0.0.7"},
			want:       "10.0.0.9",
		},
		{
			name:       "garbage hop stops the walk",
			trusted:    trusted,
			remoteAddr: "10.0.0.1:1234",
			headers:    map[string]string{"X-Forwarded-For": "nonsense, 10.0.0.7"},
			want:       "10.0.0.7",
		},
		{
			name:       "real ip from trusted peer",
			trusted:    trusted,
			remoteAddr: "[2001:db8::1]:443",
			headers:    map[string]string{"X-Real-IP": " 198.51.100.7 "},
			want:       "198.51.100.7",
		},
		{
			name:       "unparsable real ip keeps peer",
			trusted:    trusted,
			remoteAddr: "10.0.0.1:1234",
			headers:    map[string]string{"X-Real-IP": "localhost"},
			want:       "10.0.0.1:1234",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got string
			handler := RealIP(tt.trusted)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = r.RemoteAddr
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			handler.ServeHTTP(httptest.NewRecorder(), req)

			if got != tt.want {
				t.Errorf("RemoteAddr = %q, want %q", got, tt.want)
			}
		})
	}
}
