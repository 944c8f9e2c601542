package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"dp-auto/internal/config"
	"dp-auto/internal/domain"
	"dp-auto/internal/llm"
	"dp-auto/internal/service"
)

const greeting = "Bonjour ! Je suis votre assistant pour la déclaration préalable. Comment puis-je vous aider ?"

func main() {
	ctx := context.Background()
	reader := bufio.NewReader(os.Stdin)

	_ = godotenv.Load()

	cfg, err := config.LoadGeminiConfig()
	if err != nil {
		log.Fatal(err)
	}
	if cfg.GeminiAPIKey == "" {
		log.Fatal("GEMINI_API_KEY no configurada")
	}

	logger := zap.NewExample()
	defer logger.Sync()

	llmClient := llm.NewGeminiClient(cfg.GeminiBaseURL, cfg.GeminiAPIKey, cfg.GeminiModel, logger)
	chatSvc := service.NewChatService(llmClient, logger)

	for {
		fmt.Println("\n===== DP Auto =====")
		fmt.Println("[1] Chatear con el asistente")
		fmt.Println("[2] Analizar formulario CERFA")
		fmt.Println("[3] Salir")
		fmt.Print("Selecciona una opcion: ")

		line, _ := reader.ReadString('\n')
		switch strings.TrimSpace(line) {
		case "1":
			if err := chatFlow(ctx, reader, chatSvc); err != nil {
				fmt.Printf("Error en chat: %v\n", err)
			}
		case "2":
			if err := cerfaFlow(ctx, reader, chatSvc); err != nil {
				fmt.Printf("Error en analisis: %v\n", err)
			}
		case "3":
			return
		default:
			fmt.Println("Opcion invalida.")
		}
	}
}

// chatFlow mantiene el historial en memoria igual que el front.
func chatFlow(ctx context.Context, reader *bufio.Reader, chatSvc *service.ChatService) error {
	conv := chatSvc.NewConversation("")
	history := []domain.ChatMessage{{ID: "1", Role: "assistant", Content: greeting}}

	fmt.Printf("---- %s (%s) ----\n", conv.Title, conv.ID)
	fmt.Println("---- escribe 'salir' para terminar ----")
	fmt.Printf("Asistente > %s\n", greeting)
	for {
		fmt.Print("Tu > ")
		text, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("leer input: %w", err)
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		if strings.EqualFold(text, "salir") || strings.EqualFold(text, "exit") {
			fmt.Println("Saliendo del chat...")
			return nil
		}

		start := time.Now()
		reply, err := chatSvc.Reply(ctx, text, history)
		if err != nil {
			fmt.Printf("error generando respuesta: %v\n", err)
			continue
		}
		fmt.Printf("Asistente (%s) > %s\n", time.Since(start).Round(time.Millisecond), reply)

		history = append(history,
			domain.ChatMessage{ID: strconv.Itoa(len(history) + 1), Role: "user", Content: text},
			domain.ChatMessage{ID: strconv.Itoa(len(history) + 2), Role: "assistant", Content: reply},
		)
	}
}

func cerfaFlow(ctx context.Context, reader *bufio.Reader, chatSvc *service.ChatService) error {
	form := domain.CerfaForm{
		NatureProjet:   readLine(reader, "Nature du projet: "),
		Nom:            readLine(reader, "Nom: "),
		Prenom:         readLine(reader, "Prénom: "),
		AdresseTravaux: readLine(reader, "Adresse des travaux: "),
		CodePostal:     readLine(reader, "Code postal (optionnel): "),
	}
	if raw := readLine(reader, "Surface (m²): "); raw != "" {
		surface, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", "."), 64)
		if err != nil {
			return fmt.Errorf("surface invalida: %w", err)
		}
		form.Surface = surface
	}

	analysis, err := chatSvc.AnalyzeCerfa(ctx, form)
	if err != nil {
		return err
	}
	fmt.Println("\n---- Analyse ----")
	fmt.Println(analysis)
	return nil
}

func readLine(reader *bufio.Reader, prompt string) string {
	fmt.Print(prompt)
	line, _ := reader.ReadString('\n')
	return strings.TrimSpace(line)
}
