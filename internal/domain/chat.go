package domain

import "time"

// ChatMessage es un turno de conversacion tal como lo envia el front.
type ChatMessage struct {
	ID      string `json:"id"`
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CerfaForm resume los datos del asistente de formulario CERFA.
type CerfaForm struct {
	NatureProjet   string  `json:"natureProjet"`
	Nom            string  `json:"nom"`
	Prenom         string  `json:"prenom"`
	AdresseTravaux string  `json:"adresseTravaux"`
	Surface        float64 `json:"surface"`
	CodePostal     string  `json:"codePostal,omitempty"`
}

type Conversation struct {
	ID        string    `json:"conversationId"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
}
