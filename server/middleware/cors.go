package middleware

import (
	"net/http"
	"strconv"
	"strings"
)

// CORSConfig holds CORS middleware configuration. An AllowedOrigins entry of
// "*" admits any origin.
type CORSConfig struct {
	AllowedOrigins   []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	AllowedMethods   []string `yaml:"allowed_methods" mapstructure:"allowed_methods"`
	AllowedHeaders   []string `yaml:"allowed_headers" mapstructure:"allowed_headers"`
	AllowCredentials bool     `yaml:"allow_credentials" mapstructure:"allow_credentials"`
	// MaxAge is how long, in seconds, browsers may cache a preflight answer.
	MaxAge int `yaml:"max_age" mapstructure:"max_age"`
}

type corsPolicy struct {
	anyOrigin   bool
	origins     map[string]bool
	methods     string
	headers     string
	credentials bool
	maxAge      string
}

func newCORSPolicy(cfg *CORSConfig) *corsPolicy {
	p := &corsPolicy{
		origins:     make(map[string]bool, len(cfg.AllowedOrigins)),
		methods:     strings.Join(cfg.AllowedMethods, ", "),
		headers:     strings.Join(cfg.AllowedHeaders, ", "),
		credentials: cfg.AllowCredentials,
	}
	for _, o := range cfg.AllowedOrigins {
		if o == "*" {
			p.anyOrigin = true
			continue
		}
		p.origins[strings.ToLower(o)] = true
	}
	if cfg.MaxAge > 0 {
		p.maxAge = strconv.Itoa(cfg.MaxAge)
	}
	return p
}

// allowOrigin returns the Access-Control-Allow-Origin value for origin, or
// "" when it is not allowed. Credentialed responses cannot use "*".
func (p *corsPolicy) allowOrigin(origin string) string {
	switch {
	case origin == "":
		return ""
	case p.origins[strings.ToLower(origin)]:
		return origin
	case p.anyOrigin && p.credentials:
		return origin
	case p.anyOrigin:
		return "*"
	}
	return ""
}

// CORS returns middleware that answers preflights and marks responses for
// allowed origins. Browsers open EventSource streams cross-origin, and
// reconnects carry Last-Event-ID, so the stream route needs a preflight
// answer as much as the JSON routes do. OPTIONS requests never reach next.
func CORS(cfg *CORSConfig) Middleware {
	if cfg == nil {
		cfg = &CORSConfig{}
	}
	p := newCORSPolicy(cfg)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Add("Vary", "Origin")
			if allowed := p.allowOrigin(r.Header.Get("Origin")); allowed != "" {
				h.Set("Access-Control-Allow-Origin", allowed)
				if p.credentials {
					h.Set("Access-Control-Allow-Credentials", "true")
				}
				if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
					p.preflight(h)
				}
			}
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (p *corsPolicy) preflight(h http.Header) {
	if p.methods != "" {
		h.Set("Access-Control-Allow-Methods", p.methods)
	}
	if p.headers != "" {
		h.Set("Access-Control-Allow-Headers", p.headers)
	}
	if p.maxAge != "" {
		h.Set("Access-Control-Max-Age", p.maxAge)
	}
}
