// Package main provides a terminal client for the thinkarr chat WebSocket.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"

	"github.com/xiaot623/thinkarr/internal/domain"
)

func main() {
	server := flag.String("server", "http://localhost:8080", "thinkarr server base URL")
	userID := flag.String("user", "admin", "user id sent as X-User-Id")
	conversationID := flag.String("conversation", "", "conversation to continue (default: start a new one)")
	model := flag.String("model", "", "model selector, e.g. local:llama3")
	flag.Parse()

	log.SetFlags(log.Ltime)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	client := NewClient(*server, *userID)

	convID := *conversationID
	if convID == "" {
		id, err := client.CreateConversation(ctx, "")
		if err != nil {
			log.Fatalf("Failed to create conversation: %v", err)
		}
		convID = id
	}

	fmt.Printf("Connecting to %s...\n", *server)
	if err := client.Connect(ctx); err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer client.Close()

	fmt.Printf("Conversation: %s\n", convID)
	fmt.Println("\nType a message and press Enter to send.")
	fmt.Println("Commands: /quit to exit")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if ctx.Err() != nil || !scanner.Scan() {
			return
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if input == "/quit" {
			fmt.Println("Bye!")
			return
		}

		if err := client.Send(domain.TurnRequest{
			ConversationID: convID,
			UserMessage:    input,
			ModelSelector:  *model,
		}); err != nil {
			log.Printf("Send error: %v", err)
			return
		}
		if err := client.ReadTurn(os.Stdout); err != nil {
			log.Printf("Read error: %v", err)
			return
		}
	}
}
