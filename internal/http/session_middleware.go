package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"dp-auto/internal/domain"
	"dp-auto/internal/service"
)

const (
	sessionAccountKey = "session_account"
	sessionTokenKey   = "session_token"
)

// SessionAuthMiddleware valida el token de sesion y guarda la cuenta en el contexto.
func SessionAuthMiddleware(logger *zap.Logger, accounts *service.AccountService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := strings.TrimSpace(c.GetHeader("Authorization"))
		if header == "" || !strings.HasPrefix(strings.ToLower(header), "bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Token d'authentification manquant"})
			return
		}

		token := strings.TrimSpace(header[len("Bearer "):])
		account, err := accounts.VerifySessionToken(c.Request.Context(), token)
		if err != nil {
			if !errors.Is(err, service.ErrSessionInvalid) {
				logger.Error("session verification failed", zap.Error(err))
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Erreur interne du serveur"})
				return
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Token invalide ou expiré"})
			return
		}

		c.Set(sessionAccountKey, account)
		c.Set(sessionTokenKey, token)
		c.Next()
	}
}

// GetSessionAccount obtiene la cuenta autenticada desde el contexto.
func GetSessionAccount(c *gin.Context) (domain.Account, bool) {
	val, ok := c.Get(sessionAccountKey)
	if !ok {
		return domain.Account{}, false
	}
	account, ok := val.(domain.Account)
	return account, ok
}
