// Command memo inspects a memoization storage directory.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/diskmemo/cache"
	"github.com/jonwraymond/diskmemo/health"
	"github.com/jonwraymond/diskmemo/observe"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// app holds the telemetry shared by every subcommand of one invocation.
type app struct {
	obs     observe.Observer
	logger  observe.Logger
	metrics observe.Metrics
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:                "memo",
		Short:              "Inspect a memoization storage directory",
		Version:            version,
		SilenceUsage:       true,
		PersistentPreRunE:  a.setup,
		PersistentPostRunE: a.teardown,
	}
	flags := root.PersistentFlags()
	flags.String("dir", "", "storage directory (env MEMO_DIR, default: system temp dir)")
	flags.String("log-level", "", "log level: debug|info|warn|error (env MEMO_LOG_LEVEL, default: warn)")
	flags.String("trace-exporter", "", "trace exporter: stdout|otlp|jaeger|none (env MEMO_TRACE_EXPORTER, default: none)")
	flags.String("metrics-exporter", "", "metrics exporter: stdout|otlp|prometheus|none (env MEMO_METRICS_EXPORTER, default: none)")

	root.AddCommand(a.listCmd(), a.showCmd(), a.checkCmd())
	return root
}

// flagOrEnv returns the flag value if set, else the environment value, else
// defaultValue.
func flagOrEnv(cmd *cobra.Command, flagName, envName, defaultValue string) string {
	if v, _ := cmd.Flags().GetString(flagName); v != "" {
		return v
	}
	if v, ok := os.LookupEnv(envName); ok && v != "" {
		return v
	}
	return defaultValue
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	level := flagOrEnv(cmd, "log-level", "MEMO_LOG_LEVEL", "warn")
	traceExporter := flagOrEnv(cmd, "trace-exporter", "MEMO_TRACE_EXPORTER", "none")
	metricsExporter := flagOrEnv(cmd, "metrics-exporter", "MEMO_METRICS_EXPORTER", "none")

	obs, err := observe.NewObserver(cmd.Context(), observe.Config{
		ServiceName: "memo",
		Version:     version,
		Tracing:     observe.TracingConfig{Enabled: traceExporter != "none", Exporter: traceExporter, SamplePct: 1.0},
		Metrics:     observe.MetricsConfig{Enabled: metricsExporter != "none", Exporter: metricsExporter},
		Logging:     observe.LoggingConfig{Enabled: true, Level: level},
		// stdout stays reserved for command output
		Output: cmd.ErrOrStderr(),
	})
	if err != nil {
		return err
	}
	metrics, err := observe.NewMetrics(obs.Meter())
	if err != nil {
		return err
	}

	a.obs = obs
	a.logger = obs.Logger()
	a.metrics = metrics
	return nil
}

func (a *app) teardown(cmd *cobra.Command, _ []string) error {
	if a.obs == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return a.obs.Shutdown(ctx)
}

func (a *app) openManager(cmd *cobra.Command) (*cache.Manager[any], error) {
	cfg := cache.DefaultConfig()
	cfg.StoragePath = flagOrEnv(cmd, "dir", "MEMO_DIR", cfg.StoragePath)
	return cache.NewManager[any](cfg, cache.WithLogger(a.logger), cache.WithMetrics(a.metrics))
}

func (a *app) listCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List indexed entries",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := a.openManager(cmd)
			if err != nil {
				return err
			}
			return writeEntries(cmd.OutOrStdout(), m.Entries())
		},
	}
}

func writeEntries(w io.Writer, entries []cache.EntryInfo) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FINGERPRINT\tPATH\tKEY")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", e.Fingerprint, e.Path, e.Key)
	}
	return tw.Flush()
}

func (a *app) showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <fingerprint>",
		Short: "Print the value stored for an entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := a.openManager(cmd)
			if err != nil {
				return err
			}
			for _, e := range m.Entries() {
				if !strings.HasPrefix(e.Fingerprint, args[0]) {
					continue
				}
				v, ok, err := m.GetEntry(cmd.Context(), e)
				if err != nil {
					return err
				}
				if !ok {
					break
				}
				return writeValue(cmd.OutOrStdout(), v)
			}
			return fmt.Errorf("no entry with fingerprint %q", args[0])
		},
	}
}

func writeValue(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		_, err = fmt.Fprintf(w, "%v\n", v)
		return err
	}
	_, err = fmt.Fprintf(w, "%s\n", data)
	return err
}

func (a *app) checkCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check that the storage directory is usable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			timeout, _ := cmd.Flags().GetDuration("timeout")
			cfg := cache.Config{StoragePath: flagOrEnv(cmd, "dir", "MEMO_DIR", "")}
			dir, err := cfg.Dir()
			if err != nil {
				return err
			}

			index := health.NewCheckerFunc("index", func(ctx context.Context) health.Result {
				m, err := a.openManager(cmd)
				if err != nil {
					return health.Unhealthy("index scan failed", err)
				}
				return health.Healthy("index loaded").WithDetails(map[string]any{
					"entries": m.Len(),
				})
			})
			storage := health.NewStorageChecker(health.StorageCheckerConfig{
				Dir:         dir,
				EntrySuffix: cache.EntrySuffix,
			})

			results := health.CheckAll(cmd.Context(), timeout, storage, index)
			for _, name := range []string{storage.Name(), index.Name()} {
				r := results[name]
				fmt.Fprintf(cmd.OutOrStdout(), "%-8s %-10s %s\n", name, r.Status, r.Message)
				if r.Error != nil {
					fmt.Fprintf(cmd.OutOrStdout(), "         error: %v\n", r.Error)
				}
			}

			if overall := health.Overall(results); overall == health.StatusUnhealthy {
				return fmt.Errorf("storage %s", overall)
			}
			return nil
		},
	}
	cmd.Flags().Duration("timeout", 5*time.Second, "maximum time for all checks")
	return cmd
}
