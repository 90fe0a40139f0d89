package http

import (
	"net/http"

	"github.com/mmuslimabdulj/goat-rooms/internal/middleware"
)

// Routes builds the server mux. API routes get CORS and the API limiter;
// websocket upgrades get the websocket limiter.
func (h *Handler) Routes(apiLimiter, wsLimiter *middleware.IPRateLimiter) http.Handler {
	mux := http.NewServeMux()
	cors := middleware.CORS(h.cfg.AllowedOrigins)

	mux.Handle("/", cors(http.HandlerFunc(h.HandleRoot)))
	mux.Handle("/api/health", cors(middleware.RateLimitFunc(apiLimiter, h.HandleHealth)))
	mux.Handle("/api/rooms", cors(middleware.RateLimitFunc(apiLimiter, h.HandleRooms)))

	// WebSocket routes with rate limiting
	mux.HandleFunc("/ws", middleware.RateLimitFunc(wsLimiter, h.HandleChat))
	mux.HandleFunc("/ws/group-chat", middleware.RateLimitFunc(wsLimiter, h.HandleGroupChat))

	// Apply security headers middleware to all requests
	return middleware.SecurityHeaders(mux)
}
