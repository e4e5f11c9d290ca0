package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
)

// ErrMissingToken is returned when a request carries no editor token.
var ErrMissingToken = errors.New("missing token")

type contextKey string

const editorKey contextKey = "editor"

// EditorFromRequest authenticates r and returns the editor name. The token
// is read from a Bearer Authorization header, or from the "token" query
// parameter since browsers cannot set headers on a websocket upgrade.
func (s *Service) EditorFromRequest(r *http.Request) (string, error) {
	token := r.URL.Query().Get("token")
	if header := r.Header.Get("Authorization"); header != "" {
		scheme, value, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") {
			return "", fmt.Errorf("%w: authorization scheme must be Bearer", ErrInvalidToken)
		}
		token = strings.TrimSpace(value)
	}
	if token == "" {
		return "", ErrMissingToken
	}
	return s.ValidateToken(token)
}

// AuthMiddleware rejects requests without a valid editor token and stores
// the editor name in the request context.
func (s *Service) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		editor, err := s.EditorFromRequest(r)
		if err != nil {
			slog.Debug("request rejected", "path", r.URL.Path, "error", err)
			msg := "invalid token"
			if errors.Is(err, ErrMissingToken) {
				msg = "missing authorization header"
			}
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": msg})
			return
		}

		next.ServeHTTP(w, r.WithContext(WithEditor(r.Context(), editor)))
	})
}

// WithEditor returns a context carrying the editor name.
func WithEditor(ctx context.Context, editor string) context.Context {
	return context.WithValue(ctx, editorKey, editor)
}

// EditorFromContext returns the authenticated editor, or "" outside
// AuthMiddleware.
func EditorFromContext(ctx context.Context) string {
	editor, _ := ctx.Value(editorKey).(string)
	return editor
}
