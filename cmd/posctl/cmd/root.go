// Package cmd holds the posctl commands.
package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/handidevproject/pos-dashboard/internal/config"
	"github.com/handidevproject/pos-dashboard/internal/supabase"
)

var (
	jsonOut     bool
	sessionFile string
	verbose     bool
)

var rootCmd = &cobra.Command{
	Use:   "posctl",
	Short: "Manage the POS dashboard from the command line",
	Long: `posctl signs in to the dashboard's Supabase project and manages users.

Configuration is read like the server's: SUPABASE_URL and SUPABASE_ANON_KEY
(or a config.yaml). The session is kept in a file between runs.

Examples:
  posctl login --email admin@example.com
  posctl users list --search ana --limit 25
  posctl users create --email new@example.com --name "Ana Lima" --role cashier`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "output JSON")
	rootCmd.PersistentFlags().StringVar(&sessionFile, "session", "", "session file (default $XDG_CONFIG_HOME/posctl/session.json)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log requests to stderr")
}

// Execute runs the root command.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		printError(rootCmd.ErrOrStderr(), err)
		return err
	}
	return nil
}

func logger(cmd *cobra.Command) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
}

func sessionPath() (string, error) {
	if sessionFile != "" {
		return sessionFile, nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("cannot locate config directory: %w", err)
	}
	return filepath.Join(dir, "posctl", "session.json"), nil
}

// getClient returns a client whose session persists in the session file.
func getClient(cmd *cobra.Command) (*supabase.Client, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	path, err := sessionPath()
	if err != nil {
		return nil, err
	}

	log := logger(cmd)
	return supabase.NewBrowserClient(cfg.Supabase,
		supabase.WithStorage(supabase.NewFileStorage(path)),
		supabase.WithHTTPClient(supabase.NewHTTPClient(cfg.Supabase.Timeout, log)),
		supabase.WithLogger(log),
	)
}

// getStatelessClient returns a client that never touches the session file.
// Signing another user up must not replace the caller's session.
func getStatelessClient(cmd *cobra.Command) (*supabase.Client, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	log := logger(cmd)
	return supabase.NewBrowserClient(cfg.Supabase,
		supabase.WithoutSessionPersistence(),
		supabase.WithHTTPClient(supabase.NewHTTPClient(cfg.Supabase.Timeout, log)),
		supabase.WithLogger(log),
	)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printError(w io.Writer, err error) {
	if sbErr, ok := supabase.AsError(err); ok {
		fmt.Fprintf(w, "%s %s (%d %s)\n", colorRed("✗"), sbErr.Message, sbErr.StatusCode, sbErr.Code)
		return
	}
	fmt.Fprintf(w, "%s %v\n", colorRed("✗"), err)
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func printTableHeader(w io.Writer, cols ...string) {
	for i, c := range cols {
		if i > 0 {
			fmt.Fprint(w, "\t")
		}
		fmt.Fprint(w, c)
	}
	fmt.Fprintln(w)
}

func colorGreen(s string) string { return "\033[32m" + s + "\033[0m" }
func colorRed(s string) string   { return "\033[31m" + s + "\033[0m" }
