package middleware

import (
	"net"
	"net/http"
	"strings"

	"github.com/mssola/useragent"

	"attestor/pkg/requestcontext"
)

// Metadata extracts the client IP and a normalized User-Agent summary for
// audit enrichment.
func Metadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithClientMetadata(r.Context(), clientIP(r), userAgentSummary(r))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if idx := strings.IndexByte(fwd, ','); idx > 0 {
			return strings.TrimSpace(fwd[:idx])
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// userAgentSummary collapses raw User-Agent strings into "browser/version (os)"
// so audit events don't store high-cardinality raw headers.
func userAgentSummary(r *http.Request) string {
	raw := r.UserAgent()
	if raw == "" {
		return ""
	}
	ua := useragent.New(raw)
	name, version := ua.Browser()
	if name == "" {
		return raw
	}
	summary := name
	if version != "" {
		summary += "/" + version
	}
	if os := ua.OS(); os != "" {
		summary += " (" + os + ")"
	}
	return summary
}
