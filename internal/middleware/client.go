// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
)

// clientCookieName はブラウザクライアントを識別するCookieの名前。
const clientCookieName = "client_id"

// clientCookieMaxAge はクライアントIDの有効期間（1年）。
const clientCookieMaxAge = 365 * 24 * 60 * 60

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

var (
	// clientIDContextKey はリクエストコンテキストにクライアントIDを格納するためのキー。
	clientIDContextKey = contextKey("client_id")

	// clientIDHolderKey は外側のミドルウェアへクライアントIDを返すためのキー。
	clientIDHolderKey = contextKey("client_id_holder")
)

// clientIDHolder は識別したクライアントIDをログミドルウェアに渡す。
type clientIDHolder struct {
	id string
}

func withClientIDHolder(ctx context.Context, h *clientIDHolder) context.Context {
	return context.WithValue(ctx, clientIDHolderKey, h)
}

// CookieConfig はミドルウェアが発行するCookieの属性。
type CookieConfig struct {
	Secure bool
	Domain string
}

// NewClientIdentityMiddleware はclient_id Cookieからクライアントを識別するミドルウェアを返す。
// Cookieがない、またはUUIDとして不正な場合は新しいIDを発行する。
// 匿名クライアントも識別するため、このミドルウェアはリクエストを拒否しない。
func NewClientIdentityMiddleware(config CookieConfig) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// 1. Cookieから既存のIDを取得
			clientID := ""
			if cookie, err := r.Cookie(clientCookieName); err == nil {
				if id, err := uuid.Parse(cookie.Value); err == nil {
					clientID = id.String()
				}
			}

			// 2. なければ発行
			if clientID == "" {
				clientID = uuid.NewString()
				http.SetCookie(w, &http.Cookie{
					Name:     clientCookieName,
					Value:    clientID,
					Path:     "/",
					Domain:   config.Domain,
					MaxAge:   clientCookieMaxAge,
					HttpOnly: true,
					Secure:   config.Secure,
					SameSite: http.SameSiteLaxMode,
				})
				slog.Debug("issued client id", slog.String("client_id", clientID))
			}

			// 3. コンテキストに注入
			if h, ok := r.Context().Value(clientIDHolderKey).(*clientIDHolder); ok {
				h.id = clientID
			}
			next.ServeHTTP(w, r.WithContext(ContextWithClientID(r.Context(), clientID)))
		})
	}
}

// ClientIDFromContext はリクエストコンテキストからクライアントIDを取得する。
// クライアント識別ミドルウェアを通過したリクエストでのみ有効。
func ClientIDFromContext(ctx context.Context) (string, error) {
	clientID, ok := ctx.Value(clientIDContextKey).(string)
	if !ok || clientID == "" {
		return "", fmt.Errorf("client ID not found in context")
	}
	return clientID, nil
}

// ContextWithClientID はコンテキストにクライアントIDを注入する。
func ContextWithClientID(ctx context.Context, clientID string) context.Context {
	return context.WithValue(ctx, clientIDContextKey, clientID)
}
