package main

import (
	"fmt"

	"github.com/urfave/cli"

	"pulse/internal/config"
	"pulse/internal/db"
)

func migrate(_ *cli.Context) error {
	cfg := config.Load()
	database, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	applied, err := db.AppliedMigrations(database)
	if err != nil {
		return err
	}
	fmt.Printf("migrations applied successfully (%d total)\n", len(applied))
	for _, name := range applied {
		fmt.Println("  " + name)
	}
	return nil
}
