package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/opinionlab/studyctl/pkg/auth/jwt"
	"github.com/opinionlab/studyctl/pkg/rest/middleware"
	"github.com/opinionlab/studyctl/pkg/rest/response"
)

type claimsKey struct{}

// WithTokenValidation refuses requests without a valid access token and
// stores the token claims in the request context.
func WithTokenValidation(logger *slog.Logger, tokens *jwt.TokenManager) middleware.MiddlewareFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			tokenString, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || strings.TrimSpace(tokenString) == "" {
				resp := jwt.Errors[jwt.ErrUnAuthorized]
				response.JSON(w, resp.Code, resp)
				return
			}

			claims, err := tokens.Validate(tokenString, jwt.ACCESS)
			if err != nil {
				logger.Info("token-validation failed",
					slog.String("reason", err.Error()),
					slog.String("route", r.URL.Path),
				)
				resp := jwt.Errors[jwt.ErrTokenNotValid]
				response.JSON(w, resp.Code, resp)
				return
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsKey{}, claims)))
		}
	}
}

func ClaimsFromContext(ctx context.Context) (*jwt.UserClaims, bool) {
	claims, ok := ctx.Value(claimsKey{}).(*jwt.UserClaims)
	return claims, ok
}
