package main

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"tasksync/internal/engine"
	"tasksync/internal/util"
)

var Version = "dev"

// options are the persistent flags shared by every command.
type options struct {
	server   string
	token    string
	user     string
	dbPath   string
	debounce time.Duration
	prefs    string
	redis    string
	logLevel string
	logFile  string
}

func main() {
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	rootCmd := &cobra.Command{
		Use:   "todoctl",
		Short: "Manage a synced to-do list from the terminal",
		Long: `todoctl edits one user's task list and keeps it in sync with the
document server (--server) or a local sqlite database (--db).`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.server, "server", util.EnvOrDefault("TODO_SERVER", ""), "Document server URL; empty uses the local database")
	flags.StringVar(&opts.token, "token", util.EnvOrDefault("TODO_TOKEN", ""), "Bearer token for the document server")
	flags.StringVarP(&opts.user, "user", "u", util.EnvOrDefault("TODO_USER", ""), "User key whose list is edited")
	flags.StringVar(&opts.dbPath, "db", util.EnvOrDefault("TODO_DB_PATH", "data/todo.db"), "Local sqlite database")
	flags.DurationVar(&opts.debounce, "debounce", util.EnvDuration("TODO_DEBOUNCE", engine.DefaultDebounce), "Quiet period before changes are written")
	flags.StringVar(&opts.prefs, "prefs", util.EnvOrDefault("TODO_PREFS_FILE", defaultPrefsPath()), "Preferences file")
	flags.StringVar(&opts.redis, "redis", util.EnvOrDefault("TODO_REDIS_ADDR", ""), "Redis address for shared preferences")
	flags.StringVar(&opts.logLevel, "log-level", util.EnvOrDefault("TODO_LOG_LEVEL", "warn"), "Log level: debug, info, warn, error")
	flags.StringVar(&opts.logFile, "log-file", util.EnvOrDefault("TODO_LOG_FILE", ""), "Rotated log file (default stderr)")

	rootCmd.AddCommand(
		listCmd(opts),
		addCmd(opts),
		toggleCmd(opts),
		editCmd(opts),
		removeCmd(opts),
		doneCmd(opts),
		bulkRemoveCmd(opts),
		priorityCmd(opts),
		clearCompletedCmd(opts),
		statsCmd(opts),
		watchCmd(opts),
		prefsCmd(opts),
		tokenCmd(opts),
	)
	return rootCmd
}
