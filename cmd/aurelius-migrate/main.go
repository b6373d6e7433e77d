// Package main is the entry point for the Aurelius migration tool.
// It applies the embedded schema to the configured database backend.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/prn-tf/aurelius-catalogue/internal/config"
	"github.com/prn-tf/aurelius-catalogue/internal/repository/postgres"
	"github.com/prn-tf/aurelius-catalogue/internal/repository/sqlite"
)

// Version information (set at build time)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// migrator is the slice of the backend DB types this tool needs.
type migrator interface {
	Migrate(ctx context.Context) error
	MigrationVersion(ctx context.Context) (int, error)
	Close() error
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]

	switch command {
	case "version":
		fmt.Printf("Aurelius Migration Tool\n")
		fmt.Printf("Version: %s\n", Version)
		fmt.Printf("Build Time: %s\n", BuildTime)
		fmt.Printf("Git Commit: %s\n", GitCommit)

	case "up", "status":
		if err := run(command); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

	case "help", "-h", "--help":
		printUsage()

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func run(command string) error {
	ctx := context.Background()
	cfg := config.MustLoad(os.Getenv("AURELIUS_CONFIG"))
	logger := zerolog.New(os.Stderr).Level(zerolog.InfoLevel).With().Timestamp().Logger()

	var (
		db  migrator
		err error
	)
	switch cfg.Database.Driver {
	case "postgres":
		db, err = postgres.NewDB(ctx, cfg.Database, logger)
	case "sqlite":
		db, err = sqlite.NewDB(ctx, cfg.Database, logger)
	default:
		return fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}
	if err != nil {
		return err
	}
	defer db.Close()

	switch command {
	case "up":
		if err := db.Migrate(ctx); err != nil {
			return err
		}
		version, err := db.MigrationVersion(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Database is up to date (version %d, driver %s)\n", version, cfg.Database.Driver)
		return nil

	case "status":
		version, err := db.MigrationVersion(ctx)
		if err != nil {
			return err
		}
		if version == 0 {
			fmt.Printf("No migrations applied (driver %s)\n", cfg.Database.Driver)
		} else {
			fmt.Printf("Current migration version: %d (driver %s)\n", version, cfg.Database.Driver)
		}
		return nil
	}

	return nil
}

func printUsage() {
	fmt.Println(`Aurelius Migration Tool

Usage:
  aurelius-migrate <command>

Commands:
  up          Apply pending migrations
  status      Print the current migration version
  version     Print version information
  help        Show this help message

Configuration is read the same way the server reads it: AURELIUS_*
environment variables, or a config file pointed at by AURELIUS_CONFIG.`)
}
