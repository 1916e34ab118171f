package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/komatsuhenry1/MedAssistFront-sub000/internal/service"
)

const authClaimsKey = "auth_claims"

// JWTAuthMiddleware valida el access token y guarda los claims en el contexto.
// El token viaja en Authorization o, para el websocket, en el query param token.
func JWTAuthMiddleware(jwtSvc *service.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if jwtSvc == nil {
			respondError(c, http.StatusInternalServerError, "jwt not configured")
			return
		}

		token := bearerToken(c)
		if token == "" {
			respondError(c, http.StatusUnauthorized, "missing token")
			return
		}

		claims, err := jwtSvc.ParseAccessToken(token)
		if err != nil {
			respondError(c, http.StatusUnauthorized, "invalid token")
			return
		}

		c.Set(authClaimsKey, claims)
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	if header != "" {
		if len(header) > len("Bearer ") && strings.EqualFold(header[:len("Bearer ")], "bearer ") {
			return strings.TrimSpace(header[len("Bearer "):])
		}
		return ""
	}
	return strings.TrimSpace(c.Query("token"))
}

// GetAuthClaims obtiene claims de JWT desde el contexto.
func GetAuthClaims(c *gin.Context) (service.Claims, bool) {
	val, ok := c.Get(authClaimsKey)
	if !ok {
		return service.Claims{}, false
	}
	claims, ok := val.(service.Claims)
	return claims, ok
}
