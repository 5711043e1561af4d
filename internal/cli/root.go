// Package cli implements projectctl, a terminal client for the project
// board server.
package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/jaekwang-park/project-board/internal/client"
	"github.com/jaekwang-park/project-board/internal/store"
)

// ValidFormats lists the accepted --format values.
var ValidFormats = []string{"text", "json"}

// RootOptions holds flags shared by every command.
type RootOptions struct {
	Server     string
	Token      string
	DevUser    string
	Format     string
	CacheQuota int
	Verbose    bool
}

func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "projectctl",
		Short: "Browse and follow projects on a project board server",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			if opts.Token == "" && opts.DevUser == "" {
				return fmt.Errorf("one of --token or --dev-user is required")
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.Server, "server", envOr("PROJECT_BOARD_URL", "http://localhost:8080"), "server base URL")
	cmd.PersistentFlags().StringVar(&opts.Token, "token", os.Getenv("PROJECT_BOARD_TOKEN"), "Cognito ID token")
	cmd.PersistentFlags().StringVar(&opts.DevUser, "dev-user", "", "user id to act as against a dev-mode server")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().IntVar(&opts.CacheQuota, "cache-quota", 1<<20, "bytes of page cache")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")

	cmd.AddCommand(NewListCommand(opts))
	cmd.AddCommand(NewWatchCommand(opts))

	return cmd
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func (o *RootOptions) client() *client.Client {
	var copts []client.Option
	if o.Token != "" {
		copts = append(copts, client.WithBearerToken(o.Token))
	}
	if o.DevUser != "" {
		copts = append(copts, client.WithDevUser(o.DevUser))
	}
	return client.New(o.Server, copts...)
}

func (o *RootOptions) logger(w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	if o.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func (o *RootOptions) store(c *client.Client, logger *slog.Logger) *store.Store {
	cache := store.NewCache(store.NewMemoryStorage(o.CacheQuota), store.DefaultNamespace)
	return store.New(c, cache, logger)
}
