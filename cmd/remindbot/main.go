package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
)

var CLI struct {
	Serve   ServeCmd   `cmd:"" help:"Serve Telegram webhook updates and deliver due reminders." default:"1"`
	Migrate MigrateCmd `cmd:"" help:"Apply pending database migrations."`
}

func main() {
	_ = godotenv.Load()

	ctx := kong.Parse(&CLI,
		kong.Name("remindbot"),
		kong.Description("Telegram reminder bot"),
		kong.UsageOnError(),
	)

	if err := ctx.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
