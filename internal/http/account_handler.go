package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"dp-auto/internal/service"
)

// AccountHandler mantiene dependencias para endpoints de cuentas.
type AccountHandler struct {
	logger   *zap.Logger
	accounts *service.AccountService
}

// NewAccountHandler crea una instancia de AccountHandler con dependencias necesarias.
func NewAccountHandler(logger *zap.Logger, accounts *service.AccountService) *AccountHandler {
	return &AccountHandler{
		logger:   logger,
		accounts: accounts,
	}
}

// Signup maneja POST /api/auth/signup.
func (h *AccountHandler) Signup(c *gin.Context) {
	var req struct {
		Email           string `json:"email" binding:"required,email"`
		Password        string `json:"password" binding:"required,min=6"`
		Name            string `json:"name" binding:"required,min=2,max=100"`
		ConfirmPassword string `json:"confirmPassword" binding:"omitempty,eqfield=Password"`
	}
	if !bindJSON(c, &req) {
		return
	}

	account, err := h.accounts.Signup(c.Request.Context(), service.SignupInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
	})
	if err != nil {
		h.writeError(c, "signup", err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "Utilisateur créé avec succès. Un code de vérification a été envoyé à votre email.",
		"data":    account,
	})
}

// Login maneja POST /api/auth/login.
func (h *AccountHandler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}
	if !bindJSON(c, &req) {
		return
	}

	res, err := h.accounts.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.writeError(c, "login", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Connexion réussie",
		"token":   res.Token,
		"data":    res.Account.View(),
	})
}

// VerifyCode maneja POST /api/auth/verify-code.
func (h *AccountHandler) VerifyCode(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required,email"`
		Code  string `json:"code" binding:"required,len=6,number"`
	}
	if !bindJSON(c, &req) {
		return
	}

	if err := h.accounts.VerifyCode(c.Request.Context(), req.Email, req.Code); err != nil {
		h.writeError(c, "verify code", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Email vérifié avec succès"})
}

// ResendCode maneja POST /api/auth/resend-code.
func (h *AccountHandler) ResendCode(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required,email"`
	}
	if !bindJSON(c, &req) {
		return
	}

	if err := h.accounts.ResendVerificationCode(c.Request.Context(), req.Email); err != nil {
		h.writeError(c, "resend code", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Nouveau code de vérification envoyé avec succès"})
}

// Logout maneja POST /api/auth/logout.
func (h *AccountHandler) Logout(c *gin.Context) {
	if err := h.accounts.Logout(c.Request.Context(), c.GetString(sessionTokenKey)); err != nil {
		h.writeError(c, "logout", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Profile maneja GET /api/auth/profile.
func (h *AccountHandler) Profile(c *gin.Context) {
	account, ok := GetSessionAccount(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Token invalide"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    gin.H{"user": account.ProfileView()},
	})
}

// CheckAuth maneja GET /api/auth/check-auth.
func (h *AccountHandler) CheckAuth(c *gin.Context) {
	account, ok := GetSessionAccount(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Token invalide"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    gin.H{"authenticated": true, "user": account.View()},
	})
}

// writeError traduce los errores del servicio; nunca expone detalles internos.
func (h *AccountHandler) writeError(c *gin.Context, op string, err error) {
	status, msg := http.StatusInternalServerError, "Erreur interne du serveur"
	switch {
	case errors.Is(err, service.ErrAccountAlreadyExists):
		status, msg = http.StatusConflict, "Un compte existe déjà avec cet email"
	case errors.Is(err, service.ErrAccountNotFound):
		status, msg = http.StatusNotFound, "Aucun compte trouvé avec cet email"
	case errors.Is(err, service.ErrEmailNotVerified):
		status, msg = http.StatusForbidden, "Veuillez vérifier votre email avant de vous connecter"
	case errors.Is(err, service.ErrInvalidPassword):
		status, msg = http.StatusUnauthorized, "Mot de passe incorrect"
	case errors.Is(err, service.ErrNoVerificationPending):
		status, msg = http.StatusBadRequest, "Aucun code de vérification trouvé pour cet email"
	case errors.Is(err, service.ErrCodeExpired):
		status, msg = http.StatusBadRequest, "Le code de vérification a expiré"
	case errors.Is(err, service.ErrCodeMismatch):
		status, msg = http.StatusBadRequest, "Code de vérification incorrect"
	case errors.Is(err, service.ErrAlreadyVerified):
		status, msg = http.StatusBadRequest, "L'email est déjà vérifié"
	case errors.Is(err, service.ErrInvalidEmail):
		status, msg = http.StatusBadRequest, "Email invalide"
	case errors.Is(err, service.ErrMailSendFailed):
		status, msg = http.StatusServiceUnavailable, "Erreur lors de l'envoi de l'email de vérification"
	case errors.Is(err, service.ErrRateLimited):
		status, msg = http.StatusTooManyRequests, "Trop de demandes, réessayez plus tard"
	case errors.Is(err, service.ErrSessionInvalid):
		status, msg = http.StatusUnauthorized, "Token invalide ou expiré"
	default:
		h.logger.Error(op+" failed", zap.Error(err))
	}
	c.JSON(status, gin.H{"success": false, "error": msg})
}
