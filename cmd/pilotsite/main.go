package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/eringen/pilotsite"
	"github.com/eringen/pilotsite/docstore"
)

// version is set at build time via ldflags.
var version = "dev"

func main() {
	// A missing .env is normal in production; the environment wins either way.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Error: load .env: %v\n", err)
		os.Exit(1)
	}

	cmd := "serve"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}

	var err error
	switch cmd {
	case "serve":
		err = runServe()
	case "grant":
		if len(os.Args) != 4 {
			fmt.Fprintln(os.Stderr, "Usage: pilotsite grant <uid> <OrgMember|BlogAdmin|none>")
			os.Exit(1)
		}
		err = runGrant(os.Args[2], os.Args[3])
	case "adduser":
		if len(os.Args) < 4 || len(os.Args) > 5 {
			fmt.Fprintln(os.Stderr, "Usage: pilotsite adduser <email> <password> [uid]")
			os.Exit(1)
		}
		uid := ""
		if len(os.Args) == 5 {
			uid = os.Args[4]
		}
		err = runAddUser(os.Args[2], os.Args[3], uid)
	case "version":
		fmt.Printf("pilotsite %s\n", version)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`Usage: pilotsite <command> [arguments]

Commands:
  serve                            Run the web server (default)
  grant <uid> <role>               Set a user's org role (OrgMember, BlogAdmin, none)
  adduser <email> <password> [uid] Create a local sign-in account
  version                          Print the version
  help                             Show this help`)
}

func newLogger(level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func runServe() error {
	cfg := pilotsite.LoadConfig()
	log := newLogger(cfg.LogLevel)
	slog.SetDefault(log)

	app := pilotsite.New(cfg, pilotsite.WithLogger(log))
	defer func() {
		if err := app.Close(); err != nil {
			log.Error("close", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() { errc <- app.Start(ctx) }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errc
}

// openStore opens the configured document store for the admin commands.
func openStore(ctx context.Context) (docstore.Store, error) {
	app := pilotsite.New(pilotsite.LoadConfig())
	cfg := app.Config
	if cfg.StoreDriver == "sqlite" {
		if err := os.MkdirAll(filepath.Dir(cfg.StoreDSN), 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}
	return docstore.Open(ctx, cfg.StoreDriver, cfg.StoreDSN, cfg.StoreDatabase)
}

func runGrant(uid, roleName string) error {
	role := docstore.ParseRole(roleName)
	if role == docstore.RoleNone && roleName != "none" {
		return fmt.Errorf("unknown role %q", roleName)
	}
	ctx := context.Background()
	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()
	if err := store.SetOrgRole(ctx, uid, role); err != nil {
		return err
	}
	if role == docstore.RoleNone {
		fmt.Printf("Revoked org access for %s\n", uid)
		return nil
	}
	fmt.Printf("Granted %s to %s\n", role, uid)
	return nil
}

func runAddUser(email, password, uid string) error {
	ctx := context.Background()
	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()
	acc, err := pilotsite.CreateAccount(ctx, store, email, password, uid)
	if err != nil {
		return err
	}
	fmt.Printf("Created account %s (uid %s)\n", acc.Email, acc.UID)
	return nil
}
