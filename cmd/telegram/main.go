package main

import (
	"context"
	"fmt"
	"os"

	"remindbot/internal/config"
	"remindbot/internal/implementations/telegram"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	url, err := cfg.WebhookURL()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	client := telegram.NewClient(cfg.TelegramBaseURL, cfg.TelegramToken, cfg.TelegramRequestTimeout)
	ctx, cancel := context.WithTimeout(context.Background(), cfg.TelegramRequestTimeout)
	defer cancel()

	if err := client.SetWebhook(ctx, url); err != nil {
		fmt.Fprintf(os.Stderr, "could not register telegram webhook, error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Webhook %s successfully registered\n", url)
}
