package http

import (
	"errors"
	"net/http"
	"unicode"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

type fieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// bindJSON valida el body y responde 400 con el detalle por campo si falla.
func bindJSON(c *gin.Context, req any) bool {
	err := c.ShouldBindJSON(req)
	if err == nil {
		return true
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Données invalides"})
		return false
	}
	details := make([]fieldError, 0, len(verrs))
	for _, fe := range verrs {
		details = append(details, fieldError{
			Field:   jsonFieldName(fe.Field()),
			Message: fieldMessage(fe),
		})
	}
	c.JSON(http.StatusBadRequest, gin.H{
		"success": false,
		"error":   "Données invalides",
		"details": details,
	})
	return false
}

func jsonFieldName(name string) string {
	r, size := utf8.DecodeRuneInString(name)
	if r == utf8.RuneError {
		return name
	}
	return string(unicode.ToLower(r)) + name[size:]
}

func fieldMessage(fe validator.FieldError) string {
	field := jsonFieldName(fe.Field())
	switch fe.Tag() {
	case "required":
		return field + " requis"
	case "email":
		return "Email invalide"
	case "min":
		return field + " doit contenir au moins " + fe.Param() + " caractères"
	case "max":
		return field + " ne peut pas dépasser " + fe.Param() + " caractères"
	case "len":
		return "Le code doit contenir " + fe.Param() + " chiffres"
	case "number":
		return "Le code doit contenir uniquement des chiffres"
	case "eqfield":
		return "Les mots de passe ne correspondent pas"
	default:
		return field + " invalide"
	}
}
