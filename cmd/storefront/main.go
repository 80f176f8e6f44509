package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"

	"github.com/alisina036/DoctorSmartPhone-Lelystad-sub001/cmd/storefront/cli"
	"github.com/alisina036/DoctorSmartPhone-Lelystad-sub001/internal/app"
	"github.com/alisina036/DoctorSmartPhone-Lelystad-sub001/internal/platform/db"
)

var rootCmd = &cobra.Command{
	Use:           "storefront",
	Short:         "Phone shop storefront and admin API",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run migrations and start the HTTP server",
	RunE:  runServe,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations and exit",
	RunE:  runMigrate,
}

var hashPasswordCmd = &cobra.Command{
	Use:   "hash-password",
	Short: "Read a password from stdin and print ADMIN_PASSWORD_HASH",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if code := cli.HashPasswordCommand(cli.HashPasswordOptions{
			Stdin:  cmd.InOrStdin(),
			Stdout: cmd.OutOrStdout(),
			Stderr: cmd.ErrOrStderr(),
		}); code != 0 {
			os.Exit(code)
		}
		return nil
	},
}

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Inspect and trigger background jobs",
}

var jobsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show the default queue state",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withJobsCLI(func(c *cli.JobsCLI) error {
			stats, err := c.InspectQueue(cmd.Context())
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "queue=%s pending=%d active=%d scheduled=%d retry=%d archived=%d\n",
				stats.Queue, stats.Pending, stats.Active, stats.Scheduled, stats.Retry, stats.Archived)
			return err
		})
	},
}

var jobsTriggerCmd = &cobra.Command{
	Use:   "trigger <task>",
	Short: "Enqueue a maintenance task now",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withJobsCLI(func(c *cli.JobsCLI) error {
			info, err := c.Trigger(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "enqueued %s as %s\n", info.Type, info.ID)
			return err
		})
	},
}

var jobsArchivedCmd = &cobra.Command{
	Use:   "archived",
	Short: "List tasks that exhausted their retries",
	RunE: func(cmd *cobra.Command, _ []string) error {
		size, _ := cmd.Flags().GetInt("size")
		return withJobsCLI(func(c *cli.JobsCLI) error {
			tasks, err := c.ListArchived(cmd.Context(), size)
			if err != nil {
				return err
			}
			for _, t := range tasks {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", t.ID, t.Type, t.LastErr)
			}
			return nil
		})
	},
}

func init() {
	jobsArchivedCmd.Flags().Int("size", 20, "Number of tasks to list")
	jobsCmd.AddCommand(jobsStatsCmd, jobsTriggerCmd, jobsArchivedCmd)
	rootCmd.AddCommand(serveCmd, migrateCmd, hashPasswordCmd, jobsCmd)
}

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		slog.Default().Error("storefront", slog.Any("error", err))
		os.Exit(1)
	}
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, err := app.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := app.NewLogger(cfg)
	pool, err := db.New(cmd.Context(), cfg.PGDSN)
	if err != nil {
		return err
	}
	defer pool.Close()

	applied, err := db.Migrate(cmd.Context(), pool)
	if err != nil {
		return err
	}
	logger.Info("migrations applied", slog.Any("versions", applied))
	return nil
}

func withJobsCLI(fn func(*cli.JobsCLI) error) error {
	cfg, err := app.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	c := cli.NewJobsCLI(redisOpts(cfg))
	defer func() { _ = c.Close() }()
	return fn(c)
}

func redisOpts(cfg *app.Config) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB}
}
