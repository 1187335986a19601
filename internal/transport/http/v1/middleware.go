package v1

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/xiaot623/thinkarr/internal/domain"
)

// HeaderUserID carries the caller identity set by the fronting auth proxy.
const HeaderUserID = "X-User-Id"

const (
	ctxKeyUser  = "user"
	ctxKeyLevel = "permission_level"
)

// RequireUser resolves the chat caller and rejects anonymous requests.
func (h *Handler) RequireUser(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		user, err := h.service.Caller(c.Request().Context(), c.Request().Header.Get(HeaderUserID))
		if err != nil {
			return h.respondError(c, err)
		}
		c.Set(ctxKeyUser, user)
		return next(c)
	}
}

// RequireToolCaller authenticates an external tool caller by bearer token.
func (h *Handler) RequireToolCaller(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token, ok := BearerToken(c.Request())
		if !ok {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "missing bearer token"})
		}
		level, err := h.service.ToolCallerLevel(c.Request().Context(), token, c.Request().Header.Get(HeaderUserID))
		if err != nil {
			return h.respondError(c, err)
		}
		c.Set(ctxKeyLevel, level)
		return next(c)
	}
}

// BearerToken extracts the token of an "Authorization: Bearer" header.
func BearerToken(r *http.Request) (string, bool) {
	auth := r.Header.Get(echo.HeaderAuthorization)
	scheme, token, ok := strings.Cut(auth, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// UserFromContext returns the caller stored by RequireUser.
func UserFromContext(c echo.Context) *domain.User {
	user, _ := c.Get(ctxKeyUser).(*domain.User)
	return user
}

// LevelFromContext returns the tool caller level stored by RequireToolCaller.
// It defaults to scoped.
func LevelFromContext(c echo.Context) domain.PermissionLevel {
	if level, ok := c.Get(ctxKeyLevel).(domain.PermissionLevel); ok {
		return level
	}
	return domain.PermissionScoped
}
