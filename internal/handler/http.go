package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/distrack-profile/internal/botdetect"
	"github.com/distrack-profile/internal/config"
	"github.com/distrack-profile/internal/domain"
	"github.com/distrack-profile/internal/render"
	"github.com/distrack-profile/internal/websocket"
)

// ProfileService is the business-logic surface the handler consumes.
type ProfileService interface {
	GetUser(ctx context.Context, userID string) (*domain.User, error)
	GetProfile(ctx context.Context, userID string) (*domain.User, int64, error)
	ApplySession(ctx context.Context, event domain.SessionEvent) error
	TopCoders(ctx context.Context, n int) ([]domain.LeaderboardEntry, error)
	ArchiveUser(ctx context.Context, userID string) error
	CountUsers(ctx context.Context) (int64, error)
}

// ImageCache stores rendered profile images between requests.
type ImageCache interface {
	GetImage(ctx context.Context, userID, variant, format string) ([]byte, error)
	SetImage(ctx context.Context, userID, variant, format string, body []byte, ttl time.Duration) error
}

// Handler provides HTTP handlers for the profile API
type Handler struct {
	service  ProfileService
	renderer *render.Renderer
	images   ImageCache
	hub      *websocket.Hub
	cfg      *config.ProfileConfig
	logger   *slog.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(
	service ProfileService,
	renderer *render.Renderer,
	images ImageCache,
	hub *websocket.Hub,
	cfg *config.ProfileConfig,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		service:  service,
		renderer: renderer,
		images:   images,
		hub:      hub,
		cfg:      cfg,
		logger:   logger,
	}
}

// APIResponse represents a standard API response
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// Router creates and configures the HTTP router
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	r.Use(corsMiddleware)

	// Health check
	r.Get("/health", h.HealthCheck)
	r.Get("/ready", h.ReadyCheck)

	// WebSocket endpoint
	r.Get("/ws", h.HandleWebSocket)

	// Profile surface (paths kept stable for existing embeds)
	r.Get("/user/{userID}", h.GetUserProfile)
	r.Get("/embed-image/{userID}", h.EmbedImage)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/sessions", h.SubmitSession)
		r.Get("/leaderboard/top", h.GetTopCoders)
		r.Delete("/users/{userID}", h.ArchiveUser)
		r.Get("/ws/stats", h.GetWebSocketStats)
	})

	return r
}

// corsMiddleware adds CORS headers
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type, X-Request-ID")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeSuccess writes a successful JSON response
func (h *Handler) writeSuccess(w http.ResponseWriter, data interface{}) {
	h.writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    data,
	})
}

// writeError writes an error JSON response
func (h *Handler) writeError(w http.ResponseWriter, status int, err error) {
	h.writeJSON(w, status, APIResponse{
		Success: false,
		Error:   err.Error(),
	})
}

// HandleWebSocket handles WebSocket upgrade requests
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	websocket.ServeWs(h.hub, h.logger, w, r)
}

// GetWebSocketStats returns WebSocket connection statistics, optionally
// including the watcher count for a single user
func (h *Handler) GetWebSocketStats(w http.ResponseWriter, r *http.Request) {
	stats := map[string]interface{}{
		"total_connections": h.hub.GetTotalConnections(),
	}
	if userID := r.URL.Query().Get("user_id"); userID != "" {
		stats["watchers"] = h.hub.GetWatcherCount(userID)
	}
	h.writeSuccess(w, stats)
}

// HealthCheck returns service health status
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "OK",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// ReadyCheck returns service readiness status. The user count doubles as a
// record-store connectivity check.
func (h *Handler) ReadyCheck(w http.ResponseWriter, r *http.Request) {
	count, err := h.service.CountUsers(r.Context())
	if err != nil {
		h.logger.Error("readiness check failed", "error", err)
		h.writeError(w, http.StatusServiceUnavailable, domain.ErrInternalError)
		return
	}
	h.writeSuccess(w, map[string]interface{}{
		"status": "ready",
		"users":  count,
	})
}

// GetUserProfile serves a profile as JSON, as a crawler preview page, or as
// a redirect, depending on the requesting agent.
func (h *Handler) GetUserProfile(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	userAgent := r.Header.Get("User-Agent")

	user, err := h.service.GetUser(r.Context(), userID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			h.writeJSON(w, http.StatusNotFound, map[string]string{"message": "User not found"})
			return
		}
		h.logger.Error("failed to fetch user", "user_id", userID, "error", err)
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "Error fetching user profile"})
		return
	}

	profileURL := h.cfg.BaseURL + "/user/" + userID

	if botdetect.IsBot(userAgent) {
		h.logger.Info("crawler detected, serving preview page",
			"user_id", userID,
			"user_agent", truncate(userAgent, 50),
		)
		h.servePreviewPage(w, user)
		return
	}

	if r.URL.Query().Has("redirect") {
		http.Redirect(w, r, profileURL, http.StatusFound)
		return
	}

	h.writeJSON(w, http.StatusOK, user)
}

// EmbedImage serves the dynamically generated profile card. This endpoint
// never fails: unknown users and render errors degrade to a branded
// fallback image, still with a 200 and a valid image body.
func (h *Handler) EmbedImage(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	variant := r.URL.Query().Get("variant")
	if variant == "" {
		variant = h.cfg.DefaultVariant
	}
	format := "png"
	if r.URL.Query().Get("format") == "svg" {
		format = "svg"
	}
	vector := format == "svg"
	// The "v" query parameter is a cache buster; accepted, ignored.

	if body := h.cachedImage(r.Context(), userID, variant, format); body != nil {
		h.serveImage(w, body, contentTypeFor(vector))
		return
	}

	user, rank, err := h.service.GetProfile(r.Context(), userID)
	if err != nil {
		if !domain.IsNotFoundError(err) {
			h.logger.Error("failed to load profile for image", "user_id", userID, "error", err)
		}
		body, contentType := h.renderer.FallbackImage(vector)
		h.serveImage(w, body, contentType)
		return
	}

	body, contentType := h.renderer.ProfileImage(r.Context(), user, rank, variant, vector)
	h.storeImage(r.Context(), userID, variant, format, body)
	h.serveImage(w, body, contentType)
}

func contentTypeFor(vector bool) string {
	if vector {
		return render.ContentTypeSVG
	}
	return render.ContentTypePNG
}

func (h *Handler) cachedImage(ctx context.Context, userID, variant, format string) []byte {
	if h.images == nil {
		return nil
	}
	body, err := h.images.GetImage(ctx, userID, variant, format)
	if err != nil {
		h.logger.Warn("image cache read failed", "error", err)
		return nil
	}
	return body
}

func (h *Handler) storeImage(ctx context.Context, userID, variant, format string, body []byte) {
	if h.images == nil {
		return
	}
	if err := h.images.SetImage(ctx, userID, variant, format, body, h.cfg.ImageMaxAge); err != nil {
		h.logger.Warn("image cache write failed", "error", err)
	}
}

func (h *Handler) serveImage(w http.ResponseWriter, body []byte, contentType string) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", fmt.Sprintf("public, max-age=%d", int(h.cfg.ImageMaxAge.Seconds())))
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

// SubmitSession handles HTTP session ingest (same path as the Kafka
// consumer).
func (h *Handler) SubmitSession(w http.ResponseWriter, r *http.Request) {
	var event domain.SessionEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}

	if err := h.service.ApplySession(r.Context(), event); err != nil {
		if errors.Is(err, domain.ErrInvalidSession) {
			h.writeError(w, http.StatusBadRequest, err)
			return
		}
		h.logger.Error("failed to apply session", "error", err)
		h.writeError(w, http.StatusInternalServerError, domain.ErrInternalError)
		return
	}

	h.writeSuccess(w, map[string]string{"status": "accepted"})
}

// ArchiveUser hides a profile from the public surface and the leaderboard
func (h *Handler) ArchiveUser(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	if err := h.service.ArchiveUser(r.Context(), userID); err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			h.writeError(w, http.StatusNotFound, err)
			return
		}
		h.logger.Error("failed to archive user", "user_id", userID, "error", err)
		h.writeError(w, http.StatusInternalServerError, domain.ErrInternalError)
		return
	}

	h.writeSuccess(w, map[string]string{"status": "archived"})
}

// GetTopCoders returns the top of the coding-time leaderboard
func (h *Handler) GetTopCoders(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			limit = l
		}
	}

	entries, err := h.service.TopCoders(r.Context(), limit)
	if err != nil {
		h.logger.Error("failed to get top coders", "error", err)
		h.writeError(w, http.StatusInternalServerError, domain.ErrInternalError)
		return
	}

	h.writeSuccess(w, entries)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
