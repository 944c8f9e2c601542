package email

import (
	"bytes"
	"html/template"
)

const VerificationSubject = "Vérification de votre email - DP Auto"

var verificationTemplate = template.Must(template.New("verification").Parse(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px; border: 1px solid #e0e0e0; border-radius: 10px;">
  <div style="text-align: center; margin-bottom: 20px;">
    <h1 style="color: #007bff; margin: 0;">DP Auto</h1>
    <p style="color: #666; margin: 5px 0;">Votre partenaire de confiance</p>
  </div>
  <h2 style="color: #333;">Bonjour {{.Name}},</h2>
  <p>Merci de vous être inscrit sur DP Auto. Pour activer votre compte, veuillez utiliser le code de vérification suivant :</p>
  <div style="background-color: #f8f9fa; padding: 20px; text-align: center; margin: 25px 0; border-radius: 8px; border: 2px dashed #007bff;">
    <h1 style="color: #007bff; margin: 0; font-size: 36px; letter-spacing: 5px;">{{.Code}}</h1>
  </div>
  <p style="color: #666; font-size: 14px;"><strong>Important :</strong> Ce code expirera dans {{.ValidMinutes}} minutes.</p>
  <div style="margin-top: 30px; padding-top: 20px; border-top: 1px solid #e0e0e0;">
    <p style="color: #999; font-size: 12px; margin: 0;">Si vous n'avez pas créé de compte sur DP Auto, veuillez ignorer cet email.</p>
  </div>
</div>
`))

// VerificationEmail es el contenido del correo con el codigo.
type VerificationEmail struct {
	Name         string
	Code         string
	ValidMinutes int
}

// RenderVerificationEmail arma el cuerpo HTML; el nombre se escapa.
func RenderVerificationEmail(data VerificationEmail) (string, error) {
	var buf bytes.Buffer
	if err := verificationTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
