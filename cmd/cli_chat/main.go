package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"rag-chat/internal/app"
	"rag-chat/internal/config"
	"rag-chat/internal/domain"
)

// chatSession es el subconjunto de ChatService que usa la consola.
type chatSession interface {
	NewSession(ctx context.Context) (string, error)
	HandleTurn(ctx context.Context, sessionID, message string, topK int) (domain.Turn, error)
	History(ctx context.Context, sessionID string) ([]domain.Turn, error)
	ClearHistory(ctx context.Context, sessionID string) error
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	a, err := app.Build(ctx, cfg, logger)
	if err != nil {
		log.Fatal(err)
	}
	defer a.Close()

	fmt.Printf("store: %s\n", a.Store.BackendName())
	if err := runChat(ctx, os.Stdin, os.Stdout, a.Chat); err != nil {
		log.Printf("error en chat: %v", err)
	}
}

// runChat lee mensajes linea a linea. Comandos: /history, /clear, /new, salir.
func runChat(ctx context.Context, in io.Reader, out io.Writer, svc chatSession) error {
	reader := bufio.NewReader(in)

	sessionID, err := svc.NewSession(ctx)
	if err != nil {
		return fmt.Errorf("crear sesion: %w", err)
	}
	fmt.Fprintf(out, "---- Sesion %s (escribe 'salir' para terminar) ----\n", sessionID)

	for {
		fmt.Fprint(out, "Tu > ")
		text, err := reader.ReadString('\n')
		text = strings.TrimSpace(text)
		if err != nil && text == "" {
			if err == io.EOF {
				return nil
			}
			return fmt.Errorf("leer input: %w", err)
		}
		if text == "" {
			continue
		}

		switch {
		case strings.EqualFold(text, "salir") || strings.EqualFold(text, "exit"):
			fmt.Fprintln(out, "Saliendo del chat...")
			return nil
		case text == "/history":
			history, err := svc.History(ctx, sessionID)
			if err != nil {
				fmt.Fprintf(out, "error leyendo historial: %v\n", err)
				continue
			}
			printHistory(out, history)
		case text == "/clear":
			if err := svc.ClearHistory(ctx, sessionID); err != nil {
				fmt.Fprintf(out, "error borrando historial: %v\n", err)
				continue
			}
			fmt.Fprintln(out, "Historial borrado.")
		case text == "/new":
			id, err := svc.NewSession(ctx)
			if err != nil {
				fmt.Fprintf(out, "error creando sesion: %v\n", err)
				continue
			}
			sessionID = id
			fmt.Fprintf(out, "---- Sesion %s ----\n", sessionID)
		default:
			reply, err := svc.HandleTurn(ctx, sessionID, text, 0)
			if err != nil {
				fmt.Fprintf(out, "error generando respuesta: %v\n", err)
				continue
			}
			printReply(out, reply)
		}
	}
}

func printReply(out io.Writer, reply domain.Turn) {
	fmt.Fprintf(out, "Bot > %s\n", reply.Content)
	if reply.Degraded {
		return
	}
	for i, c := range reply.Contexts {
		fmt.Fprintf(out, "  [%d] %s\n", i+1, c.Source)
	}
}

func printHistory(out io.Writer, history []domain.Turn) {
	if len(history) == 0 {
		fmt.Fprintln(out, "(historial vacio)")
		return
	}
	for _, t := range history {
		fmt.Fprintf(out, "%s %s: %s\n", t.Timestamp.Format("15:04:05"), t.Role, t.Content)
	}
}
