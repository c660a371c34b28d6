package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"tasksync/internal/prefs"
)

func defaultPrefsPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "todoctl-prefs.yaml"
	}
	return filepath.Join(dir, "todoctl", "prefs.yaml")
}

// openPrefs returns an initialised preference store. With --redis the
// values are shared per user through Redis; otherwise they stay in the
// local YAML file.
func openPrefs(ctx context.Context, o *options) (*prefs.Store, func(), error) {
	var (
		kv      prefs.KV
		closeFn = func() {}
	)
	if o.redis != "" {
		client, err := prefs.DialRedis(ctx, o.redis, os.Getenv("TODO_REDIS_PASSWORD"), 0)
		if err != nil {
			return nil, nil, err
		}
		kv = prefs.NewRedisKV(client, "prefs:"+o.user+":")
		closeFn = func() { _ = client.Close() }
	} else {
		kv = prefs.NewFileKV(o.prefs)
	}

	store := prefs.New(kv, prefs.SystemTheme)
	if err := store.Init(ctx); err != nil {
		closeFn()
		return nil, nil, err
	}
	return store, closeFn, nil
}

func prefsCmd(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prefs",
		Short: "Show or change display preferences",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "get",
		Short: "Print the current theme and background",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, closeFn, err := openPrefs(cmd.Context(), o)
			if err != nil {
				return err
			}
			defer closeFn()

			p := store.Get()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s: %s\n", prefs.KeyTheme, p.Theme)
			fmt.Fprintf(out, "%s: %s\n", prefs.KeyBackgroundColor, badge(p.BackgroundColor, p.BackgroundColor))
			fmt.Fprintf(out, "gradient: %s\n", p.Gradient())
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set <theme|backgroundColor> <value>",
		Short: "Change a preference; backgroundColor also accepts a preset name",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, closeFn, err := openPrefs(cmd.Context(), o)
			if err != nil {
				return err
			}
			defer closeFn()

			value := args[1]
			if args[0] == prefs.KeyBackgroundColor {
				for _, preset := range prefs.Presets {
					if preset.Name == value {
						value = preset.Value
						break
					}
				}
			}

			store.Observe(func(p prefs.Prefs) {
				fmt.Fprintln(cmd.OutOrStdout(), newRenderTheme(p).header.Render("preferences saved"))
			})
			return store.Set(cmd.Context(), args[0], value)
		},
	})

	return cmd
}
