package httpapi

import (
	"net/http"
	"time"

	"github.com/erauner12/toolbridge-resources/internal/collection"
)

// ServerInfo represents the server's capabilities and configuration
type ServerInfo struct {
	APIVersion string         `json:"apiVersion"`
	ServerTime string         `json:"serverTime"`
	Storage    string         `json:"storage"`
	MaxLimit   int            `json:"maxLimit"`
	RateLimit  *RateLimitInfo `json:"rateLimit,omitempty"`
	Hints      *ClientHints   `json:"hints,omitempty"`
}

// RateLimitInfo describes the server's rate limiting policy
type RateLimitInfo struct {
	WindowSeconds int `json:"windowSeconds" yaml:"windowSeconds"` // e.g. 60
	MaxRequests   int `json:"maxRequests" yaml:"maxRequests"`     // per window
	Burst         int `json:"burst" yaml:"burst"`                 // token bucket size
}

// ClientHints provides recommendations for client behavior
type ClientHints struct {
	RecommendedPage int `json:"recommendedPage"` // page size for list calls
	BackoffMsOn429  int `json:"backoffMsOn429"`  // default backoff if Retry-After missing
}

// Info handles GET /v1/info
// Returns server capabilities and API version
// This endpoint can be called without authentication to allow capability discovery
func (s *Server) Info(w http.ResponseWriter, r *http.Request) {
	info := ServerInfo{
		APIVersion: "1.0",
		ServerTime: time.Now().UTC().Format(time.RFC3339Nano),
		Storage:    s.Storage,
		MaxLimit:   collection.MaxPageSize,
		Hints: &ClientHints{
			RecommendedPage: 500,
			BackoffMsOn429:  1000,
		},
	}
	if s.RateLimitConfig.MaxRequests > 0 {
		rl := s.RateLimitConfig
		info.RateLimit = &rl
	}

	writeJSON(w, http.StatusOK, info)
}
