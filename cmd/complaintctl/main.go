// Command complaintctl runs maintenance tasks against the complaints store:
// schema migration, admin account management, and cleanup of expired
// sessions and idempotency keys. It reads
// the same environment as the server.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/olekukonko/tablewriter"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"
	"gorm.io/gorm"

	"github.com/HussamZG/shakaoy-650/internal/auth"
	"github.com/HussamZG/shakaoy-650/internal/config"
	"github.com/HussamZG/shakaoy-650/internal/repo"
	"github.com/HussamZG/shakaoy-650/internal/services"
	"github.com/HussamZG/shakaoy-650/internal/sysutil"
)

func main() {
	_ = godotenv.Load()
	// Console output unless LOG_JSON is set; quieter than the server by default.
	sysutil.SetupLogging(sysutil.LogOptions{
		Level:  sysutil.FirstNonEmpty(os.Getenv("CTL_LOG_LEVEL"), os.Getenv("LOG_LEVEL"), "warn"),
		Pretty: !sysutil.IsTruthy(os.Getenv("LOG_JSON")),
	})

	args := os.Args
	if len(args) == 1 {
		args = append(args, "--help")
	}

	root := &cli.Command{
		Name:  "complaintctl",
		Usage: "Complaints store maintenance",
		Commands: []*cli.Command{
			migrateCommand(),
			adminCommand(),
			sessionsCommand(),
			idempotencyCommand(),
		},
	}
	if err := root.Run(context.Background(), args); err != nil {
		log.Fatal().Err(err).Msg("complaintctl")
	}
}

// open loads config and connects to the configured database.
func open() (config.Config, *gorm.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return cfg, nil, err
	}
	db, err := repo.Open(cfg.DB)
	if err != nil {
		return cfg, nil, err
	}
	return cfg, db, nil
}

func openAuth() (*auth.Service, error) {
	cfg, db, err := open()
	if err != nil {
		return nil, err
	}
	return auth.NewService(db, cfg.Admin.JWTSecret, cfg.Admin.SessionTTL), nil
}

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Create or update the database schema",
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg, db, err := open()
			if err != nil {
				return err
			}
			if err := repo.AutoMigrate(db); err != nil {
				return err
			}
			fmt.Printf("schema up to date (%s)\n", cfg.DB.Driver)
			return nil
		},
	}
}

func adminCommand() *cli.Command {
	return &cli.Command{
		Name:  "admin",
		Usage: "Manage administrator accounts",
		Commands: []*cli.Command{
			{
				Name:  "create",
				Usage: "Create an administrator",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "email", Required: true},
					&cli.StringFlag{Name: "password", Required: true, Usage: fmt.Sprintf("at least %d characters", auth.MinPasswordLen)},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					a, err := openAuth()
					if err != nil {
						return err
					}
					email := strings.ToLower(strings.TrimSpace(c.String("email")))
					u, err := a.CreateAdmin(ctx, email, c.String("password"))
					if err != nil {
						return err
					}
					fmt.Printf("created admin %s (%s)\n", u.Email, u.ID)
					fmt.Println("make sure the address is listed in ADMIN_ALLOWED_EMAILS")
					return nil
				},
			},
			{
				Name:  "list",
				Usage: "List administrators",
				Flags: []cli.Flag{&cli.BoolFlag{Name: "json", Usage: "output raw JSON"}},
				Action: func(ctx context.Context, c *cli.Command) error {
					a, err := openAuth()
					if err != nil {
						return err
					}
					users, err := a.ListAdmins(ctx)
					if err != nil {
						return err
					}
					if c.Bool("json") {
						enc := json.NewEncoder(os.Stdout)
						enc.SetIndent("", "  ")
						return enc.Encode(users)
					}
					table := tablewriter.NewWriter(os.Stdout)
					table.SetHeader([]string{"Email", "ID", "Created"})
					table.SetBorder(false)
					for _, u := range users {
						table.Append([]string{u.Email, u.ID, u.CreatedAt.Format(time.RFC3339)})
					}
					table.Render()
					fmt.Printf("%d administrator(s)\n", len(users))
					return nil
				},
			},
		},
	}
}

func sessionsCommand() *cli.Command {
	return &cli.Command{
		Name:  "sessions",
		Usage: "Admin session maintenance",
		Commands: []*cli.Command{
			{
				Name:  "purge",
				Usage: "Delete expired admin sessions",
				Action: func(ctx context.Context, c *cli.Command) error {
					a, err := openAuth()
					if err != nil {
						return err
					}
					n, err := a.PurgeExpired(ctx)
					if err != nil {
						return err
					}
					fmt.Printf("removed %d expired sessions\n", n)
					return nil
				},
			},
		},
	}
}

func idempotencyCommand() *cli.Command {
	return &cli.Command{
		Name:  "idempotency",
		Usage: "Idempotency-Key maintenance",
		Commands: []*cli.Command{
			{
				Name:  "purge",
				Usage: "Delete expired idempotency records",
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, db, err := open()
					if err != nil {
						return err
					}
					store := &services.DBIdempotency{DB: db, TTL: cfg.IdempotencyTTL}
					n, err := store.Purge(ctx)
					if err != nil {
						return err
					}
					fmt.Printf("removed %d expired idempotency records\n", n)
					return nil
				},
			},
		},
	}
}
