package service

import (
	"fmt"
	"strconv"
	"strings"

	"dp-auto/internal/domain"
)

const urbanismSystemInstruction = `Tu es un expert en urbanisme français spécialisé dans les déclarations préalables de travaux.

TON RÔLE : Aider les utilisateurs à préparer leurs dossiers de déclaration préalable en répondant à leurs questions et en les guidant dans les démarches.

DOMAINES D'EXPERTISE :
- Règles d'urbanisme (PLU, POS, RNU)
- Formulaires CERFA (DP, PC, Permis d'aménager)
- Plans requis (DP1, DP2, DP3, DP4)
- Calculs de surfaces (SHON, SHAB, emprise au sol)
- Règles de recul, hauteur, implantation
- Déclarations préalables pour extensions, abris, piscines, clôtures, etc.

INSTRUCTIONS :
- Sois précis et technique mais pédagogique
- Cite les articles de loi quand c'est pertinent (Code de l'urbanisme)
- Donne des conseils pratiques pour remplir les formulaires
- Propose toujours l'étape suivante
- Si tu manques d'information, pose des questions précises (surface, localisation, etc.)
- Réponds en français de manière professionnelle et utile`

func buildUserPrompt(question string) string {
	return urbanismSystemInstruction + "\n\nQUESTION DE L'UTILISATEUR : " + question
}

func buildCerfaPrompt(form domain.CerfaForm) string {
	codePostal := strings.TrimSpace(form.CodePostal)
	if codePostal == "" {
		codePostal = "Non renseigné"
	}
	surface := strconv.FormatFloat(form.Surface, 'f', -1, 64)

	var sb strings.Builder
	sb.WriteString("Analyse ce formulaire CERFA pour un projet d'urbanisme :\n\n")
	sb.WriteString("INFORMATIONS DU PROJET :\n")
	fmt.Fprintf(&sb, "- Nature du projet: %s\n", form.NatureProjet)
	fmt.Fprintf(&sb, "- Nom: %s %s\n", form.Nom, form.Prenom)
	fmt.Fprintf(&sb, "- Adresse des travaux: %s\n", form.AdresseTravaux)
	fmt.Fprintf(&sb, "- Surface du projet: %s m²\n", surface)
	fmt.Fprintf(&sb, "- Code postal: %s\n\n", codePostal)
	sb.WriteString("ANALYSE DEMANDÉE :\n")
	sb.WriteString("1. Liste des documents obligatoires à joindre au dossier\n")
	sb.WriteString("2. Vérifications PLU à effectuer pour cette commune\n")
	sb.WriteString("3. Calculs de surface à vérifier (emprise au sol, surface de plancher)\n")
	sb.WriteString("4. Recommandations spécifiques pour ce type de projet\n")
	sb.WriteString("5. Points de vigilance et erreurs fréquentes à éviter\n\n")
	sb.WriteString("Fournis une analyse détaillée et des conseils pratiques.")
	return sb.String()
}
