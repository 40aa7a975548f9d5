package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/mrlokans/bookshelf/internal/auth"
	"github.com/mrlokans/bookshelf/internal/config"
	"github.com/mrlokans/bookshelf/internal/entrypoint"
	"github.com/mrlokans/bookshelf/internal/log"
)

// Version information - set at build time via ldflags
var (
	Version = "dev"
	Commit  = "unknown"
)

var (
	cfg    *config.Config
	logger *zap.Logger

	rootCmd = &cobra.Command{
		Use:           "bookshelf",
		Short:         "Bookshelf is a personal catalog of books read, with ratings and notes",
		Version:       fmt.Sprintf("%s (%s)", Version, Commit),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cfg = config.NewConfig()
			logger = log.New(cfg.Log)
		},
		RunE: runServe,
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server (default if no command given)",
		RunE:  runServe,
	}

	adminEmail     string
	createAdminCmd = &cobra.Command{
		Use:   "create-admin",
		Short: "Create an administrator account; the password is read from the terminal",
		RunE:  runCreateAdmin,
	}

	fetchCoversCmd = &cobra.Command{
		Use:   "fetch-covers",
		Short: "Download every missing book cover and exit",
		RunE:  runFetchCovers,
	}
)

func init() {
	createAdminCmd.Flags().StringVar(&adminEmail, "email", "", "administrator email")
	_ = createAdminCmd.MarkFlagRequired("email")

	rootCmd.AddCommand(serveCmd, createAdminCmd, fetchCoversCmd)
}

func main() {
	err := rootCmd.Execute()
	if logger != nil {
		_ = logger.Sync()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	return entrypoint.Run(cfg, Version, logger)
}

func runCreateAdmin(cmd *cobra.Command, args []string) error {
	password, err := readPassword("Password: ")
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}
	confirm, err := readPassword("Repeat password: ")
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}
	if password != confirm {
		return errors.New("passwords do not match")
	}

	app, err := entrypoint.NewApp(cfg, logger)
	if err != nil {
		return err
	}
	defer app.Close()

	user, err := app.CreateAdmin(cmd.Context(), adminEmail, password)
	if err != nil {
		if errors.Is(err, auth.ErrEmailTaken) {
			return fmt.Errorf("an account for %s already exists", adminEmail)
		}
		return err
	}

	fmt.Printf("Created administrator %s (id %d)\n", user.Email, user.ID)
	return nil
}

func runFetchCovers(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := entrypoint.NewApp(cfg, logger)
	if err != nil {
		return err
	}
	defer app.Close()

	result, err := app.FetchCovers(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Books: %d, missing covers: %d, fetched: %d\n", result.Books, result.Missing, result.Fetched)
	return nil
}

var stdin = bufio.NewReader(os.Stdin)

// readPassword reads a password without echo when stdin is a terminal, and
// a plain line otherwise so the command can be scripted.
func readPassword(prompt string) (string, error) {
	fd := int(syscall.Stdin)
	if !term.IsTerminal(fd) {
		line, err := stdin.ReadString('\n')
		if err != nil && line == "" {
			return "", err
		}
		return strings.TrimRight(line, "\r\n"), nil
	}

	fmt.Print(prompt)
	bytePassword, err := term.ReadPassword(fd)
	if err != nil {
		return "", err
	}
	fmt.Println() // Add newline after password input
	return string(bytePassword), nil
}
