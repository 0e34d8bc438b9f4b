package service

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"postboard/app/repositories"
	"postboard/config"
	"postboard/logger"
)

// Version is overridden at build time with -ldflags
var Version = "dev"

// NewRootCommand assembles the postboard CLI
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "postboard",
		Short:         "Minimal blogging backend",
		Long:          "postboard serves a JSON API for posts and comments together with a static front end.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(NewServeCommand())
	rootCmd.AddCommand(NewInitCommand())
	rootCmd.AddCommand(NewCleanCommand())
	rootCmd.AddCommand(NewBackupCommand())
	rootCmd.AddCommand(NewRestoreCommand())
	rootCmd.AddCommand(NewVersionCommand())
	return rootCmd
}

// NewServeCommand creates the serve command
func NewServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServer(ctx)
		},
	}
}

// NewInitCommand creates the init command
func NewInitCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create an empty store if none exists",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(cfg *config.Config, store repositories.PostStore) error {
				if err := store.Init(); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Store initialized at %s\n", storeLocation(cfg.Store))
				return nil
			})
		},
	}
}

// NewCleanCommand creates the clean command
func NewCleanCommand() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove every post",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(cfg *config.Config, store repositories.PostStore) error {
				posts, err := store.ReadAll()
				if err != nil {
					return err
				}
				if len(posts) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Store is already clean")
					return nil
				}
				if !yes && !confirm(cmd, fmt.Sprintf("Delete %d posts? This cannot be undone.", len(posts))) {
					fmt.Fprintln(cmd.OutOrStdout(), "Operation cancelled")
					return nil
				}
				if err := store.WriteAll(nil); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Store cleaned successfully")
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}

// NewBackupCommand creates the backup command
func NewBackupCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "backup [file]",
		Short: "Write every post to a JSON backup file",
		Long:  "Write every post to a JSON backup file. Without an argument the backup goes to <posts dir>/backups/.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(cfg *config.Config, store repositories.PostStore) error {
				target := filepath.Join(cfg.Store.Dir, "backups", fmt.Sprintf("posts_%d.json", time.Now().Unix()))
				if len(args) == 1 {
					target = args[0]
				}

				posts, err := store.ReadAll()
				if err != nil {
					return err
				}
				data, err := repositories.EncodePosts(posts)
				if err != nil {
					return err
				}
				if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
					return fmt.Errorf("failed to create backup directory: %w", err)
				}
				if err := repositories.WriteFileAtomic(target, data); err != nil {
					return fmt.Errorf("failed to write backup: %w", err)
				}

				fmt.Fprintf(cmd.OutOrStdout(), "Backed up %d posts to %s\n", len(posts), target)
				return nil
			})
		},
	}
}

// NewRestoreCommand creates the restore command
func NewRestoreCommand() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "restore <file>",
		Short: "Replace every post with the contents of a backup file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read backup: %w", err)
			}
			if len(strings.TrimSpace(string(data))) == 0 {
				return fmt.Errorf("backup file is empty: %s", args[0])
			}
			posts, err := repositories.DecodePosts(data)
			if err != nil {
				return fmt.Errorf("backup file is not a post collection: %w", err)
			}

			return withStore(func(cfg *config.Config, store repositories.PostStore) error {
				existing, err := store.ReadAll()
				if err != nil {
					return err
				}
				if len(existing) > 0 && !yes &&
					!confirm(cmd, fmt.Sprintf("Store holds %d posts. Replace them?", len(existing))) {
					fmt.Fprintln(cmd.OutOrStdout(), "Operation cancelled")
					return nil
				}
				if err := store.WriteAll(posts); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Restored %d posts from %s\n", len(posts), args[0])
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}

// NewVersionCommand creates the version command
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the postboard version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "postboard version %s\n", Version)
		},
	}
}

func runServer(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	appLogger, err := logger.New(cfg.Logger)
	if err != nil {
		return err
	}
	defer appLogger.Close()

	srv, err := NewServer(cfg, appLogger)
	if err != nil {
		return err
	}

	addr, err := srv.Start()
	if err != nil {
		return err
	}
	appLogger.Infow("Starting postboard",
		"addr", addr,
		"backend", cfg.Store.Backend,
		"posts_dir", cfg.Store.Dir,
		"static_dir", cfg.Static.Dir,
	)

	var serveErr error
	select {
	case <-ctx.Done():
		appLogger.Infow("Shutting down")
	case serveErr = <-srv.Errors():
	}

	if err := srv.Stop(context.Background()); err != nil {
		appLogger.Errorw("Graceful shutdown failed", "error", err.Error())
		if serveErr == nil {
			serveErr = err
		}
	}
	appLogger.Infow("Stopped")
	return serveErr
}

// withStore loads the configuration, opens the store for fn and closes it
// afterwards.
func withStore(fn func(cfg *config.Config, store repositories.PostStore) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	store, err := OpenStore(cfg.Store, logger.Nop(), nil)
	if err != nil {
		return err
	}
	err = fn(cfg, store)
	if cerr := store.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

// confirm asks a yes/no question on the command's input
func confirm(cmd *cobra.Command, question string) bool {
	fmt.Fprintf(cmd.OutOrStdout(), "%s [y/N] ", question)
	return readYes(cmd.InOrStdin())
}

func readYes(in io.Reader) bool {
	line, _ := bufio.NewReader(in).ReadString('\n')
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}
