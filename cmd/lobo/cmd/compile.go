package cmd

import (
	"fmt"

	"github.com/brianly1003/lobo/internal/app"
	"github.com/brianly1003/lobo/internal/status"
	"github.com/spf13/cobra"
)

var compileCmd = &cobra.Command{
	Use:   "compile <file>...",
	Short: "Compile source files once",
	Long: `Compile each file with the configured compiler, writing the output next
to it exactly as a watched save would.

Examples:
  lobo compile styles/site.less
  lobo compile a.less b.less`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCompile,
}

func runCompile(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	quietLogging(cfg)

	a, err := app.New(cfg, app.Options{Version: version, Ephemeral: true, NoWatch: true})
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	// Deferred in reverse: the hub flushes into the console, which prints
	// everything before the app closes.
	console := status.NewConsole(cmd.OutOrStdout())
	defer func() { _ = console.Close() }()

	h := a.Hub()
	if err := h.Start(); err != nil {
		return err
	}
	defer func() { _ = h.Stop() }()

	h.Subscribe(console.Subscriber())

	var failed int
	for _, file := range args {
		if _, err := a.CompileFile(commandContext(cmd), file); err != nil {
			failed++
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d file%s failed to compile", failed, len(args), plural(len(args), "", "s"))
	}
	return nil
}
