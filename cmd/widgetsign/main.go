// Command widgetsign prints a Login Widget payload signed with a bot token,
// ready to POST to /api/auth/telegram-widget on a local server.
package main

import (
	"encoding/json"
	"flag"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"supermock/internal/telegram"
)

func main() {
	logger := log.New(os.Stderr, "widgetsign: ", 0)

	_ = godotenv.Load()

	id := flag.Int64("id", 123456789, "telegram user id")
	firstName := flag.String("first-name", "Test", "first name")
	lastName := flag.String("last-name", "", "last name")
	username := flag.String("username", "", "telegram username")
	token := flag.String("token", os.Getenv("TELEGRAM_BOT_TOKEN"), "bot token (defaults to $TELEGRAM_BOT_TOKEN)")
	query := flag.Bool("query", false, "print a callback query string instead of JSON")
	flag.Parse()

	if *token == "" {
		logger.Fatal("a bot token is required")
	}

	payload := telegram.WidgetPayload{
		ID:        *id,
		FirstName: *firstName,
		LastName:  *lastName,
		Username:  *username,
		AuthDate:  time.Now().Unix(),
	}
	payload.Hash = telegram.SignWidgetData(*token, payload.Values())

	if *query {
		os.Stdout.WriteString(payload.Values().Encode() + "\n")
		return
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(payload); err != nil {
		logger.Fatalf("encode payload: %v", err)
	}
}
