package main

import (
	"fmt"

	"remindbot/internal/db"
)

type MigrateCmd struct {
	Database string `help:"PostgreSQL connection URL." env:"POSTGRESQL_URL" required:""`
	Path     string `help:"Migrations source URL." env:"MIGRATIONS_PATH" default:"file://migrations"`
}

func (cmd *MigrateCmd) Run() error {
	if err := db.Migrate(cmd.Path, cmd.Database); err != nil {
		return err
	}
	fmt.Println("Migrations applied.")
	return nil
}
