package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"cognetex/api/internal/app"
	"cognetex/api/internal/authpw"
	"cognetex/api/internal/config"
	"cognetex/api/internal/content"
	"cognetex/api/internal/store"

	"github.com/spf13/cobra"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage database migrations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDatabase(cmd.Context(), func(ctx context.Context, cfg config.Config, db *store.PostgresStore) error {
				if err := store.ApplyMigrations(ctx, db.DB(), cfg.MigrationsDir); err != nil {
					return fmt.Errorf("migrations failed: %w", err)
				}
				fmt.Println("Migrations applied")
				return nil
			})
		},
	})

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back applied migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDatabase(cmd.Context(), func(ctx context.Context, cfg config.Config, db *store.PostgresStore) error {
				if err := store.RollbackMigrations(ctx, db.DB(), cfg.MigrationsDir, steps); err != nil {
					return fmt.Errorf("rollback failed: %w", err)
				}
				fmt.Printf("Rolled back %d migration(s)\n", steps)
				return nil
			})
		},
	}
	down.Flags().IntVarP(&steps, "steps", "n", 1, "number of migrations to roll back")
	cmd.AddCommand(down)

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "List migrations and whether they are applied",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDatabase(cmd.Context(), func(ctx context.Context, cfg config.Config, db *store.PostgresStore) error {
				migrations, err := store.MigrationStatus(ctx, db.DB(), cfg.MigrationsDir)
				if err != nil {
					return err
				}
				for _, migration := range migrations {
					state := "pending"
					if migration.Applied {
						state = "applied"
					}
					fmt.Printf("%-40s %s\n", migration.Version, state)
				}
				return nil
			})
		},
	})
	return cmd
}

func seedCmd() *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Copy the bundled content into empty collections",
		Long: `Copy the bundled default content into every collection that has no
records yet. Collections that already hold records are left alone.

Examples:
  cognetex seed
  cognetex seed --dry-run`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDatabase(cmd.Context(), func(ctx context.Context, cfg config.Config, db *store.PostgresStore) error {
				service := app.New(cfg, app.Deps{Store: db})
				counts, err := service.Seed(ctx, dryRun)
				if err != nil {
					return err
				}
				for _, kind := range content.Kinds() {
					fmt.Printf("%-10s %d\n", kind, counts[kind])
				}
				if dryRun {
					fmt.Println("Dry run - no changes made")
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "count what would be seeded without writing")
	return cmd
}

func hashPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password [password]",
		Short: "Print a bcrypt hash for ADMIN_PASSWORD_HASH",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := passwordArg(args)
			if err != nil {
				return err
			}
			hash, err := authpw.HashPassword(password)
			if err != nil {
				return err
			}
			fmt.Println(hash)
			return nil
		},
	}
}

func adminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Manage the admin account",
	}
	var emailAddress string
	setPassword := &cobra.Command{
		Use:   "set-password [password]",
		Short: "Store the admin password in the database",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := passwordArg(args)
			if err != nil {
				return err
			}
			hash, err := authpw.HashPassword(password)
			if err != nil {
				return err
			}
			return withDatabase(cmd.Context(), func(ctx context.Context, cfg config.Config, db *store.PostgresStore) error {
				email := strings.TrimSpace(emailAddress)
				if email == "" {
					email = cfg.AdminEmail
				}
				if email == "" {
					return fmt.Errorf("no admin email: pass --email or set ADMIN_EMAIL")
				}
				if err := db.UpsertAdminAccount(ctx, email, hash); err != nil {
					return err
				}
				fmt.Printf("Password updated for %s\n", email)
				return nil
			})
		},
	}
	setPassword.Flags().StringVar(&emailAddress, "email", "", "admin email (defaults to ADMIN_EMAIL)")
	cmd.AddCommand(setPassword)
	return cmd
}

func withDatabase(ctx context.Context, fn func(context.Context, config.Config, *store.PostgresStore) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	return fn(ctx, cfg, store.NewPostgresStore(db))
}

// passwordArg takes the password from args or, when absent, from the first
// line of stdin so it stays out of shell history.
func passwordArg(args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	fmt.Fprint(os.Stderr, "Password: ")
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read password: %w", err)
	}
	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		return "", fmt.Errorf("password must not be empty")
	}
	return password, nil
}
