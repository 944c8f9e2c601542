package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"dp-auto/internal/service"
)

// NewRouter configura el router de Gin con middlewares y rutas de la API.
func NewRouter(
	logger *zap.Logger,
	accountH *AccountHandler,
	chatH *ChatHandler,
	accounts *service.AccountService,
) *gin.Engine {
	r := gin.New()

	// Middlewares basicos: logging, recovery y JSON content-type.
	r.Use(zapLoggerMiddleware(logger), gin.Recovery(), jsonContentTypeMiddleware())

	api := r.Group("/api")

	auth := api.Group("/auth")
	auth.POST("/signup", accountH.Signup)
	auth.POST("/login", accountH.Login)
	auth.POST("/verify-code", accountH.VerifyCode)
	auth.POST("/resend-code", accountH.ResendCode)

	authed := auth.Group("", SessionAuthMiddleware(logger, accounts))
	authed.POST("/logout", accountH.Logout)
	authed.GET("/profile", accountH.Profile)
	authed.GET("/check-auth", accountH.CheckAuth)

	chat := api.Group("/chat")
	chat.POST("/message", chatH.PostMessage)
	chat.POST("/analyze-cerfa", chatH.AnalyzeCerfa)
	chat.POST("/conversation", chatH.CreateConversation)
	chat.GET("/conversations", chatH.ListConversations)

	r.GET("/health", healthHandler(chatH))
	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Route non trouvée"})
	})

	return r
}

func healthHandler(chatH *ChatHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"success":   true,
			"message":   "Server is running",
			"timestamp": time.Now().UTC(),
			"gemini":    chatH.Enabled(),
		})
	}
}

// zapLoggerMiddleware crea un middleware simple de logging con zap.
func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

// jsonContentTypeMiddleware fuerza Content-Type: application/json en responses.
func jsonContentTypeMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Content-Type", "application/json")
		c.Next()
	}
}
