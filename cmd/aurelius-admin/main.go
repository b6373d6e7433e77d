// Package main is the entry point for the Aurelius admin CLI.
// It manages users directly against the database: creating accounts with
// elevated roles, listing, promoting, and deleting.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/rs/zerolog"

	"github.com/prn-tf/aurelius-catalogue/internal/config"
	"github.com/prn-tf/aurelius-catalogue/internal/domain"
	"github.com/prn-tf/aurelius-catalogue/internal/repository"
	"github.com/prn-tf/aurelius-catalogue/internal/repository/postgres"
	"github.com/prn-tf/aurelius-catalogue/internal/repository/sqlite"
)

// Version information (set at build time)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]

	switch command {
	case "version":
		fmt.Printf("Aurelius Admin CLI\n")
		fmt.Printf("Version: %s\n", Version)
		fmt.Printf("Build Time: %s\n", BuildTime)
		fmt.Printf("Git Commit: %s\n", GitCommit)

	case "user":
		if err := runUserCommand(os.Args[2:]); err != nil {
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

func runUserCommand(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("user subcommand required: create, list, set-role, delete")
	}

	ctx := context.Background()
	repos, closer, err := openDatabase(ctx)
	if err != nil {
		return err
	}
	defer closer()

	switch args[0] {
	case "create":
		fs := flag.NewFlagSet("user create", flag.ExitOnError)
		username := fs.String("username", "", "username (required)")
		email := fs.String("email", "", "email address (required)")
		role := fs.String("role", "user", "role: user, moderator, admin")
		superuser := fs.Bool("superuser", false, "grant the superuser flag")
		_ = fs.Parse(args[1:])

		if *username == "" || *email == "" {
			return fmt.Errorf("--username and --email are required")
		}
		if !domain.Role(*role).Valid() {
			return fmt.Errorf("invalid role %q", *role)
		}

		user := domain.NewUser(*username, *email)
		user.Role = domain.Role(*role)
		user.IsSuperuser = *superuser
		user.Active = true

		if err := repos.User.Create(ctx, user); err != nil {
			return err
		}
		fmt.Printf("Created user %q (id=%d, role=%s)\n", user.Username, user.ID, user.Role)
		return nil

	case "list":
		result, err := repos.User.List(ctx, repository.ListOptions{Limit: 1000})
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tUSERNAME\tEMAIL\tROLE\tSUPERUSER\tACTIVE")
		for _, u := range result.Items {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%t\t%t\n",
				u.ID, u.Username, u.Email, u.Role, u.IsSuperuser, u.Active)
		}
		return w.Flush()

	case "set-role":
		fs := flag.NewFlagSet("user set-role", flag.ExitOnError)
		username := fs.String("username", "", "username (required)")
		role := fs.String("role", "", "new role: user, moderator, admin (required)")
		_ = fs.Parse(args[1:])

		if *username == "" || *role == "" {
			return fmt.Errorf("--username and --role are required")
		}
		if !domain.Role(*role).Valid() {
			return fmt.Errorf("invalid role %q", *role)
		}

		user, err := repos.User.GetByUsername(ctx, *username)
		if err != nil {
			return err
		}
		user.Role = domain.Role(*role)
		if err := repos.User.Update(ctx, user); err != nil {
			return err
		}
		fmt.Printf("User %q is now %s\n", user.Username, user.Role)
		return nil

	case "delete":
		fs := flag.NewFlagSet("user delete", flag.ExitOnError)
		username := fs.String("username", "", "username (required)")
		_ = fs.Parse(args[1:])

		if *username == "" {
			return fmt.Errorf("--username is required")
		}

		user, err := repos.User.GetByUsername(ctx, *username)
		if err != nil {
			return err
		}
		if err := repos.User.Delete(ctx, user.ID); err != nil {
			return err
		}
		fmt.Printf("Deleted user %q\n", user.Username)
		return nil

	default:
		return fmt.Errorf("unknown user subcommand %q", args[0])
	}
}

// openDatabase opens the configured backend with a quiet logger.
func openDatabase(ctx context.Context) (*repository.Repositories, func(), error) {
	cfg := config.MustLoad(os.Getenv("AURELIUS_CONFIG"))
	logger := zerolog.New(os.Stderr).Level(zerolog.WarnLevel)

	switch cfg.Database.Driver {
	case "postgres":
		db, err := postgres.NewDB(ctx, cfg.Database, logger)
		if err != nil {
			return nil, nil, err
		}
		return postgres.NewRepositories(db), func() { db.Close() }, nil

	case "sqlite":
		db, err := sqlite.NewDB(ctx, cfg.Database, logger)
		if err != nil {
			return nil, nil, err
		}
		return sqlite.NewRepositories(db), func() { db.Close() }, nil

	default:
		return nil, nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}
}

func printUsage() {
	fmt.Println(`Aurelius Admin CLI

Usage:
  aurelius-admin <command> [arguments]

Commands:
  user        Manage users (create, list, set-role, delete)
  version     Print version information
  help        Show this help message

Examples:
  aurelius-admin user create --username admin --email admin@example.com --role admin --superuser
  aurelius-admin user list
  aurelius-admin user set-role --username alice --role moderator
  aurelius-admin user delete --username bob

Configuration is read the same way the server reads it: AURELIUS_*
environment variables, or a config file pointed at by AURELIUS_CONFIG.`)
}
