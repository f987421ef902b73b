package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/brianly1003/lobo/internal/app"
	"github.com/brianly1003/lobo/internal/client"
	"github.com/brianly1003/lobo/internal/config"
	"github.com/brianly1003/lobo/internal/domain"
	"github.com/spf13/cobra"
)

var (
	remoteMode    bool
	remoteURL     string
	remoteTimeout time.Duration
)

var addCmd = &cobra.Command{
	Use:   "add <dir>...",
	Short: "Register directories to watch",
	Long: `Add one or more directories to the persisted watch list.

Without --remote the list is edited directly and takes effect on the next
'lobo start'. With --remote the running instance is asked to add the
directory and starts watching it right away if it is watching.

Examples:
  lobo add ./styles
  lobo add ~/site/assets ~/blog/theme
  lobo add ./styles --remote`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAdd,
}

var removeCmd = &cobra.Command{
	Use:     "remove <dir>...",
	Aliases: []string{"rm"},
	Short:   "Unregister watched directories",
	Args:    cobra.MinimumNArgs(1),
	RunE:    runRemove,
}

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List watched directories",
	Args:    cobra.NoArgs,
	RunE:    runList,
}

func init() {
	for _, c := range []*cobra.Command{addCmd, removeCmd, listCmd} {
		c.Flags().BoolVar(&remoteMode, "remote", false, "talk to a running lobo server instead of the store")
		c.Flags().StringVar(&remoteURL, "url", "", "server URL for --remote (default: from config)")
		c.Flags().DurationVar(&remoteTimeout, "timeout", client.DefaultTimeout, "request timeout for --remote")
	}
}

func runAdd(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	var failed int

	if remoteMode {
		c, err := newRemoteClient()
		if err != nil {
			return err
		}
		for _, dir := range args {
			info, err := c.Add(commandContext(cmd), dir)
			if err != nil {
				failed++
				fmt.Fprintf(cmd.ErrOrStderr(), "add %s: %v\n", dir, err)
				continue
			}
			fmt.Fprintf(out, "Added %s%s\n", info.Path, subscribedSuffix(info.Subscribed))
		}
		return failures("add", failed)
	}

	return withOfflineApp(func(a *app.App) error {
		for _, dir := range args {
			entry, err := a.AddDirectory(dir)
			if err != nil {
				failed++
				fmt.Fprintf(cmd.ErrOrStderr(), "add %s: %v\n", dir, err)
				continue
			}
			fmt.Fprintf(out, "Added %s%s\n", entry.Path, missingSuffix(entry.Path))
		}
		return failures("add", failed)
	})
}

func runRemove(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	var failed int

	if remoteMode {
		c, err := newRemoteClient()
		if err != nil {
			return err
		}
		for _, dir := range args {
			info, err := c.Remove(commandContext(cmd), dir)
			if err != nil {
				failed++
				fmt.Fprintf(cmd.ErrOrStderr(), "remove %s: %v\n", dir, err)
				continue
			}
			fmt.Fprintf(out, "Removed %s\n", info.Path)
		}
		return failures("remove", failed)
	}

	return withOfflineApp(func(a *app.App) error {
		for _, dir := range args {
			removed, err := a.RemoveDirectory(dir)
			if err != nil && (removed == "" || errors.Is(err, domain.ErrNotFound)) {
				failed++
				fmt.Fprintf(cmd.ErrOrStderr(), "remove %s: %v\n", dir, err)
				continue
			}
			fmt.Fprintf(out, "Removed %s\n", removed)
			if err != nil {
				failed++
				fmt.Fprintf(cmd.ErrOrStderr(), "  warning: %v\n", err)
			}
		}
		return failures("remove", failed)
	})
}

func runList(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	if remoteMode {
		c, err := newRemoteClient()
		if err != nil {
			return err
		}
		status, err := c.Status(commandContext(cmd))
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "State: %s\n", status.State)
		if status.Status != "" {
			fmt.Fprintf(out, "Status: %s\n", status.Status)
		}
		for _, d := range status.Directories {
			fmt.Fprintf(out, "  %s%s\n", d.Path, subscribedSuffix(d.Subscribed))
		}
		return nil
	}

	return withOfflineApp(func(a *app.App) error {
		printDirectories(out, a.Registry().List())
		return nil
	})
}

func printDirectories(w io.Writer, dirs []string) {
	if len(dirs) == 0 {
		fmt.Fprintln(w, "No directories are registered. Add one with 'lobo add <dir>'.")
		return
	}
	for _, d := range dirs {
		fmt.Fprintf(w, "%s%s\n", d, missingSuffix(d))
	}
}

// withOfflineApp builds the application without running it, so the
// persisted list can be edited while no instance is watching.
func withOfflineApp(fn func(a *app.App) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	quietLogging(cfg)

	a, err := app.New(cfg, app.Options{Version: version, NoWatch: true})
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	return fn(a)
}

func newRemoteClient() (*client.Client, error) {
	url := remoteURL
	if url == "" {
		cfg, err := loadConfig()
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		url = cfg.Server.BaseURL()
	}
	return client.New(url, remoteTimeout), nil
}

// quietLogging keeps one-shot commands from printing info logs.
func quietLogging(cfg *config.Config) {
	c := *cfg
	if !verbose {
		c.Logging.Level = "warn"
	}
	c.Logging.File = ""
	setupLogging(&c)
}

func subscribedSuffix(subscribed bool) string {
	if subscribed {
		return " (watching)"
	}
	return ""
}

func missingSuffix(path string) string {
	if _, err := os.Stat(path); err != nil {
		return " (missing)"
	}
	return ""
}

func failures(verb string, n int) error {
	if n == 0 {
		return nil
	}
	return fmt.Errorf("failed to %s %d director%s", verb, n, plural(n, "y", "ies"))
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

// commandContext returns cmd's context or a background one.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
