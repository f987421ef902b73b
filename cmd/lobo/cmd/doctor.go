package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/brianly1003/lobo/internal/adapters/compiler"
	"github.com/brianly1003/lobo/internal/client"
	"github.com/brianly1003/lobo/internal/config"
	"github.com/brianly1003/lobo/internal/registry"
	"github.com/brianly1003/lobo/internal/store"
	"github.com/spf13/cobra"
)

var (
	doctorJSON        bool
	doctorStrict      bool
	doctorHTTPTimeout int
)

type doctorStatus string

const (
	doctorStatusOK   doctorStatus = "ok"
	doctorStatusWarn doctorStatus = "warn"
	doctorStatusFail doctorStatus = "fail"
)

type doctorCheck struct {
	ID          string                 `json:"id"`
	Status      doctorStatus           `json:"status"`
	Message     string                 `json:"message"`
	Details     map[string]interface{} `json:"details,omitempty"`
	Remediation string                 `json:"remediation,omitempty"`
}

type doctorSummary struct {
	Total int `json:"total"`
	OK    int `json:"ok"`
	Warn  int `json:"warn"`
	Fail  int `json:"fail"`
}

type doctorReport struct {
	Version      string        `json:"version"`
	GeneratedAt  string        `json:"generated_at"`
	Overall      doctorStatus  `json:"overall_status"`
	Summary      doctorSummary `json:"summary"`
	Checks       []doctorCheck `json:"checks"`
	SearchConfig []string      `json:"config_search_paths,omitempty"`
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run local diagnostics with remediation hints",
	Long: `Check that the compiler can be found, the directory store is readable
and every watched directory still exists.

By default the output is human-readable text.
Use --json for machine-readable output.`,
	Args: cobra.NoArgs,
	RunE: runDoctor,
}

func init() {
	doctorCmd.Flags().BoolVar(&doctorJSON, "json", false, "output machine-readable JSON")
	doctorCmd.Flags().BoolVar(&doctorStrict, "strict", false, "return non-zero on warnings")
	doctorCmd.Flags().IntVar(&doctorHTTPTimeout, "http-timeout", 2, "health endpoint timeout in seconds")
}

func runDoctor(cmd *cobra.Command, args []string) error {
	report := collectDoctorReport(commandContext(cmd))

	out := cmd.OutOrStdout()
	if doctorJSON {
		if err := printDoctorJSON(out, report); err != nil {
			return err
		}
	} else {
		printDoctorText(out, report)
	}

	if report.Summary.Fail > 0 {
		return fmt.Errorf("doctor found %d failing check(s)", report.Summary.Fail)
	}
	if doctorStrict && report.Summary.Warn > 0 {
		return fmt.Errorf("doctor strict mode failed with %d warning(s)", report.Summary.Warn)
	}
	return nil
}

func collectDoctorReport(ctx context.Context) doctorReport {
	checks := make([]doctorCheck, 0, 8)

	cfg := config.Default()
	loadedCfg, cfgCheck := checkConfigLoad(cfgFile)
	checks = append(checks, cfgCheck)
	if loadedCfg != nil {
		cfg = loadedCfg
	}

	checks = append(checks, checkConfigDirectory())
	checks = append(checks, checkCompiler(cfg.Compiler))

	dirs, storeCheck := checkStore(cfg.Store)
	checks = append(checks, storeCheck)
	for _, dir := range dirs {
		checks = append(checks, checkWatchedDirectory(dir))
	}

	if cfg.Server.Enabled {
		checks = append(checks, checkHealthEndpoint(ctx, cfg.Server.BaseURL(), doctorHTTPTimeout))
	}

	summary := summarizeDoctorChecks(checks)
	return doctorReport{
		Version:      version,
		GeneratedAt:  time.Now().UTC().Format(time.RFC3339),
		Overall:      overallStatus(summary),
		Summary:      summary,
		Checks:       checks,
		SearchConfig: configSearchPaths(cfgFile),
	}
}

func checkConfigLoad(path string) (*config.Config, doctorCheck) {
	cfg, err := config.Load(path)
	searchPaths := configSearchPaths(path)
	if err != nil {
		return nil, doctorCheck{
			ID:      "config.load",
			Status:  doctorStatusFail,
			Message: fmt.Sprintf("Failed to load config: %v", err),
			Details: map[string]interface{}{
				"config_path":  strings.TrimSpace(path),
				"search_paths": searchPaths,
			},
			Remediation: "Fix the config file syntax, or run `lobo config init --force` to regenerate defaults.",
		}
	}

	source := findFirstExistingPath(searchPaths)
	msg := "Configuration loaded using built-in defaults and environment overrides"
	if source != "" {
		msg = "Configuration loaded successfully"
	}

	return cfg, doctorCheck{
		ID:      "config.load",
		Status:  doctorStatusOK,
		Message: msg,
		Details: map[string]interface{}{
			"loaded_from":  source,
			"search_paths": searchPaths,
		},
	}
}

func checkConfigDirectory() doctorCheck {
	dir, err := config.GetConfigDir()
	if err != nil {
		return doctorCheck{
			ID:          "config.directory",
			Status:      doctorStatusFail,
			Message:     fmt.Sprintf("Failed to resolve config directory: %v", err),
			Remediation: "Verify your HOME environment and filesystem permissions.",
		}
	}

	check := checkDirectoryExists("config.directory", dir, "Config directory is available")
	if check.Status == doctorStatusWarn {
		check.Message = "Config directory does not exist yet"
		check.Remediation = "Run `lobo config init` or `lobo add <dir>` to create it."
	}
	return check
}

func checkCompiler(cfg config.CompilerConfig) doctorCheck {
	c := compiler.New(compiler.Options{Command: cfg.Command, Args: cfg.Args})
	resolved, err := c.Available()
	if err != nil {
		return doctorCheck{
			ID:      "compiler.command",
			Status:  doctorStatusFail,
			Message: fmt.Sprintf("Compiler not found in PATH: %s", c.Command()),
			Details: map[string]interface{}{
				"configured": cfg.Command,
			},
			Remediation: "Install it with `npm install -g less` or set `compiler.command` to a valid path.",
		}
	}

	return doctorCheck{
		ID:      "compiler.command",
		Status:  doctorStatusOK,
		Message: "Compiler is available",
		Details: map[string]interface{}{
			"configured": cfg.Command,
			"resolved":   resolved,
		},
	}
}

// checkStore reads the persisted list directly. It never writes it.
func checkStore(cfg config.StoreConfig) ([]string, doctorCheck) {
	details := map[string]interface{}{
		"driver": cfg.Driver,
		"path":   cfg.Path,
		"key":    cfg.Key,
	}

	st, err := store.Open(cfg)
	if err != nil {
		return nil, doctorCheck{
			ID:          "store.readable",
			Status:      doctorStatusFail,
			Message:     fmt.Sprintf("Failed to open store: %v", err),
			Details:     details,
			Remediation: "Check `store.path` and its permissions.",
		}
	}
	defer func() { _ = st.Close() }()

	dirs, err := registry.ReadPaths(st, cfg.Key)
	switch {
	case registry.IsAbsent(err):
		return nil, doctorCheck{
			ID:          "store.readable",
			Status:      doctorStatusWarn,
			Message:     "No directories have been registered yet",
			Details:     details,
			Remediation: "Run `lobo add <dir>` to watch a directory.",
		}
	case err != nil:
		return nil, doctorCheck{
			ID:          "store.readable",
			Status:      doctorStatusFail,
			Message:     fmt.Sprintf("Stored directory list is unreadable: %v", err),
			Details:     details,
			Remediation: "Re-add your directories with `lobo add`; the corrupt list is replaced on the next change.",
		}
	}

	details["directories"] = len(dirs)
	return dirs, doctorCheck{
		ID:      "store.readable",
		Status:  doctorStatusOK,
		Message: fmt.Sprintf("Store holds %d director%s", len(dirs), plural(len(dirs), "y", "ies")),
		Details: details,
	}
}

func checkWatchedDirectory(path string) doctorCheck {
	check := checkDirectoryExists("watch."+filepath.Base(path), path, "Watched directory exists")
	if check.Status != doctorStatusOK {
		check.Remediation = fmt.Sprintf("Create the directory or run `lobo remove %s`.", path)
	}
	return check
}

func checkDirectoryExists(id, path, okMessage string) doctorCheck {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return doctorCheck{
				ID:      id,
				Status:  doctorStatusWarn,
				Message: "Directory not found",
				Details: map[string]interface{}{
					"path": path,
				},
			}
		}
		return doctorCheck{
			ID:      id,
			Status:  doctorStatusFail,
			Message: fmt.Sprintf("Failed to read directory: %v", err),
			Details: map[string]interface{}{
				"path": path,
			},
			Remediation: "Check filesystem permissions.",
		}
	}

	if !info.IsDir() {
		return doctorCheck{
			ID:      id,
			Status:  doctorStatusFail,
			Message: "Path exists but is not a directory",
			Details: map[string]interface{}{
				"path": path,
			},
			Remediation: "Remove the file and create the directory path.",
		}
	}

	return doctorCheck{
		ID:      id,
		Status:  doctorStatusOK,
		Message: okMessage,
		Details: map[string]interface{}{
			"path": path,
		},
	}
}

func checkHealthEndpoint(ctx context.Context, baseURL string, timeoutSeconds int) doctorCheck {
	if timeoutSeconds <= 0 {
		timeoutSeconds = 2
	}

	c := client.New(baseURL, time.Duration(timeoutSeconds)*time.Second)
	if err := c.Health(ctx); err != nil {
		return doctorCheck{
			ID:      "server.health_endpoint",
			Status:  doctorStatusWarn,
			Message: fmt.Sprintf("Health endpoint is not reachable: %v", err),
			Details: map[string]interface{}{
				"url": baseURL + "/health",
			},
			Remediation: "Start lobo with `lobo start --server` and verify host/port configuration.",
		}
	}

	return doctorCheck{
		ID:      "server.health_endpoint",
		Status:  doctorStatusOK,
		Message: "Health endpoint is reachable",
		Details: map[string]interface{}{
			"url": baseURL + "/health",
		},
	}
}

func summarizeDoctorChecks(checks []doctorCheck) doctorSummary {
	summary := doctorSummary{Total: len(checks)}
	for _, check := range checks {
		switch check.Status {
		case doctorStatusOK:
			summary.OK++
		case doctorStatusWarn:
			summary.Warn++
		case doctorStatusFail:
			summary.Fail++
		}
	}
	return summary
}

func overallStatus(summary doctorSummary) doctorStatus {
	if summary.Fail > 0 {
		return doctorStatusFail
	}
	if summary.Warn > 0 {
		return doctorStatusWarn
	}
	return doctorStatusOK
}

func printDoctorJSON(w io.Writer, report doctorReport) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(report)
}

func printDoctorText(w io.Writer, report doctorReport) {
	fmt.Fprintf(w, "lobo doctor %s\n", report.Version)
	fmt.Fprintf(w, "generated_at: %s\n", report.GeneratedAt)
	fmt.Fprintf(w, "overall: %s  (ok=%d warn=%d fail=%d total=%d)\n\n",
		strings.ToUpper(string(report.Overall)),
		report.Summary.OK,
		report.Summary.Warn,
		report.Summary.Fail,
		report.Summary.Total,
	)

	for _, check := range report.Checks {
		label := "[OK]"
		if check.Status == doctorStatusWarn {
			label = "[WARN]"
		}
		if check.Status == doctorStatusFail {
			label = "[FAIL]"
		}

		fmt.Fprintf(w, "%s %s: %s\n", label, check.ID, check.Message)
		if check.Remediation != "" && check.Status != doctorStatusOK {
			fmt.Fprintf(w, "  fix: %s\n", check.Remediation)
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Tip: run `lobo doctor --json` for machine-readable output.")
}

func configSearchPaths(explicit string) []string {
	if strings.TrimSpace(explicit) != "" {
		return []string{explicit}
	}

	return []string{
		filepath.Join(".", "config.yaml"),
		filepath.Join(userHomeDir(), ".lobo", "config.yaml"),
		"/etc/lobo/config.yaml",
	}
}

func findFirstExistingPath(paths []string) string {
	for _, candidate := range paths {
		if strings.TrimSpace(candidate) == "" {
			continue
		}
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

func userHomeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
