package main

import (
	"database/sql"

	"github.com/spf13/afero"

	"pulse/internal/config"
	"pulse/internal/db"
)

func openDatabase(cfg config.Config) (*sql.DB, error) {
	database, err := db.OpenSQLite(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	if err := db.RunMigrations(database, afero.NewOsFs(), cfg.MigrationsDir); err != nil {
		_ = database.Close()
		return nil, err
	}
	return database, nil
}
