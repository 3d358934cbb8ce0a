package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"EchoQ/config"
	"EchoQ/core/auth"
	"EchoQ/core/bus"
	"EchoQ/core/queue"
	"EchoQ/repository"
)

type contextKey string

const (
	ctxUserID   contextKey = "userID"
	ctxUsername contextKey = "username"
)

// APIHandler 处理所有API请求
type APIHandler struct {
	svc      *queue.Service
	catalog  repository.CatalogRepository
	userRepo repository.UserRepository
	bus      *bus.Bus
	cfg      *config.Config
}

// NewAPIHandler 创建API处理器
func NewAPIHandler(svc *queue.Service, catalog repository.CatalogRepository, userRepo repository.UserRepository, b *bus.Bus, cfg *config.Config) *APIHandler {
	return &APIHandler{
		svc:      svc,
		catalog:  catalog,
		userRepo: userRepo,
		bus:      b,
		cfg:      cfg,
	}
}

// AuthMiddleware is a middleware function that checks for a valid JWT token
func (h *APIHandler) AuthMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, "Authorization header is required", http.StatusUnauthorized)
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			http.Error(w, "Invalid authorization header format", http.StatusUnauthorized)
			return
		}

		claims, err := auth.ParseToken(parts[1])
		if err != nil {
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), ctxUserID, claims.UserID)
		ctx = context.WithValue(ctx, ctxUsername, claims.Username)

		next.ServeHTTP(w, r.WithContext(ctx))
	}
}

// GetUserIDFromContext extracts the user ID from the request context
func GetUserIDFromContext(ctx context.Context) (int64, error) {
	userID, ok := ctx.Value(ctxUserID).(int64)
	if !ok {
		return 0, fmt.Errorf("user ID not found in context")
	}
	return userID, nil
}

// engineFor 获取请求用户的队列引擎（首次访问时从快照恢复）
func (h *APIHandler) engineFor(w http.ResponseWriter, r *http.Request) (*queue.Engine, int64, bool) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return nil, 0, false
	}
	eng, err := h.svc.Engine(r.Context(), userID)
	if err != nil {
		http.Error(w, "Failed to load player state", http.StatusInternalServerError)
		return nil, 0, false
	}
	return eng, userID, true
}

// writeJSON 输出JSON响应
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
