package pkg

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/jub0bs/cors"
)

const (
	corsWildcard      = "*"
	videoAllowMethods = "GET, OPTIONS"
	videoAllowHeaders = "Content-Type, Authorization"
	corsMaxAgeSeconds = 86400
)

// CORSPolicy is the origin allow-list attached explicitly to video link
// responses. An empty list or a "*" entry allows any origin.
type CORSPolicy struct {
	anyOrigin bool
	allowed   map[string]struct{}
}

// NewCORSPolicy normalizes origins to scheme://host form.
func NewCORSPolicy(origins []string) (CORSPolicy, error) {
	policy := CORSPolicy{allowed: make(map[string]struct{})}
	for _, origin := range origins {
		origin = strings.TrimSpace(origin)
		if origin == "" {
			continue
		}
		if origin == corsWildcard {
			policy.anyOrigin = true
			continue
		}
		normalized, err := normalizeOrigin(origin)
		if err != nil {
			return CORSPolicy{}, fmt.Errorf("parse origin %q: %w", origin, err)
		}
		policy.allowed[normalized] = struct{}{}
	}
	if len(policy.allowed) == 0 {
		policy.anyOrigin = true
	}
	return policy, nil
}

// Origins returns the configured allow-list, or ["*"] when any origin is allowed.
func (p CORSPolicy) Origins() []string {
	if p.anyOrigin {
		return []string{corsWildcard}
	}
	out := make([]string, 0, len(p.allowed))
	for origin := range p.allowed {
		out = append(out, origin)
	}
	return out
}

// writeVideoCORSHeaders sets the permission headers on the response itself.
func (p CORSPolicy) writeVideoCORSHeaders(w http.ResponseWriter, r *http.Request) {
	h := w.Header()
	if p.anyOrigin {
		h.Set("Access-Control-Allow-Origin", corsWildcard)
	} else {
		h.Add("Vary", "Origin")
		origin := strings.TrimSpace(r.Header.Get("Origin"))
		if !p.allows(origin) {
			return
		}
		h.Set("Access-Control-Allow-Origin", origin)
	}
	h.Set("Access-Control-Allow-Methods", videoAllowMethods)
	h.Set("Access-Control-Allow-Headers", videoAllowHeaders)
	h.Set("Access-Control-Max-Age", fmt.Sprint(corsMaxAgeSeconds))
}

func (p CORSPolicy) allows(origin string) bool {
	if p.anyOrigin {
		return true
	}
	normalized, err := normalizeOrigin(origin)
	if err != nil {
		return false
	}
	_, ok := p.allowed[normalized]
	return ok
}

func normalizeOrigin(origin string) (string, error) {
	parsed, err := url.Parse(strings.TrimSpace(origin))
	if err != nil {
		return "", err
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return "", fmt.Errorf("origin must include scheme and host")
	}
	return strings.ToLower(parsed.Scheme) + "://" + strings.ToLower(parsed.Host), nil
}

// NewAPICORS builds the middleware guarding the read-only JSON endpoints
// other than the video resolver.
func NewAPICORS(policy CORSPolicy) (*cors.Middleware, error) {
	mw, err := cors.NewMiddleware(cors.Config{
		Origins:         policy.Origins(),
		Methods:         []string{http.MethodGet},
		RequestHeaders:  []string{"Authorization", "Content-Type"},
		MaxAgeInSeconds: corsMaxAgeSeconds,
	})
	if err != nil {
		return nil, fmt.Errorf("build cors middleware: %w", err)
	}
	return mw, nil
}
