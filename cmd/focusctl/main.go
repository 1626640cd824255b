// Command focusctl drives a running focusroomd over its HTTP API.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"focusroom/internal/client"
	"focusroom/internal/logging"
)

// connection holds the flags needed to reach the daemon
type connection struct {
	Server  string
	APIKey  string
	Timeout time.Duration
	Verbose bool
}

// AddFlags registers the connection flags. Defaults come from FOCUSROOM_SERVER and
// FOCUSROOM_API_KEY.
func (c *connection) AddFlags(flagSet *pflag.FlagSet) {
	server := os.Getenv("FOCUSROOM_SERVER")
	if server == "" {
		server = "http://127.0.0.1:8090"
	}
	flagSet.StringVar(&c.Server, "server", server, "focusroomd base URL")
	flagSet.StringVar(&c.APIKey, "api-key", os.Getenv("FOCUSROOM_API_KEY"), "API key sent as "+client.APIKeyHeader)
	flagSet.DurationVar(&c.Timeout, "timeout", 10*time.Second, "request timeout")
	flagSet.BoolVarP(&c.Verbose, "verbose", "v", false, "log HTTP requests to stderr")
}

func (c *connection) client(stderr io.Writer) *client.Client {
	level := "error"
	if c.Verbose {
		level = "debug"
	}
	logger := logging.NewLogger(logging.LoggerConfig{Format: "text", Level: logging.ParseLevel(level), Output: stderr})
	return client.New(c.Server, c.APIKey, logger)
}

// cli is shared by every subcommand
type cli struct {
	conn   connection
	asJSON bool
}

// context returns a request context bounded by the timeout flag
func (a *cli) context(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), a.conn.Timeout)
}

func (a *cli) api(cmd *cobra.Command) *client.Client {
	return a.conn.client(cmd.ErrOrStderr())
}

// print writes v as indented JSON when --json is set, otherwise calls text
func (a *cli) print(cmd *cobra.Command, v any, text func(w io.Writer)) error {
	out := cmd.OutOrStdout()
	if a.asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	text(out)
	return nil
}

func newRootCmd() *cobra.Command {
	app := &cli{}

	root := &cobra.Command{
		Use:   "focusctl",
		Short: "Control a focusroom daemon",
		Long: `focusctl starts and manages focus sessions, checks URLs against the
block rules and edits the blocking settings of a running focusroomd.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	app.conn.AddFlags(root.PersistentFlags())
	root.PersistentFlags().BoolVar(&app.asJSON, "json", false, "print raw JSON responses")

	root.AddCommand(
		app.healthCmd(),
		app.startCmd(),
		app.statusCmd(),
		app.pauseCmd(),
		app.resumeCmd(),
		app.stopCmd(),
		app.completeCmd(),
		app.checkCmd(),
		app.lastBlockedCmd(),
		app.grantCmd(),
		app.historyCmd(),
		app.statsCmd(),
		app.settingsCmd(),
	)
	return root
}

func main() {
	slog.SetDefault(logging.Discard())
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
